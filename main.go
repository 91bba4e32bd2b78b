package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/huddlehq/huddle/pkg/config"
	"github.com/huddlehq/huddle/pkg/db"
	"github.com/huddlehq/huddle/pkg/event"
	"github.com/huddlehq/huddle/pkg/llm"
	"github.com/huddlehq/huddle/pkg/queue"
	"github.com/huddlehq/huddle/pkg/service"
	"github.com/huddlehq/huddle/pkg/tools"
	"github.com/huddlehq/huddle/pkg/utils"
)

func main() {
	utils.InitLogger()
	logger := utils.GetLogger()

	if _, err := config.EnsureDefaultConfig(); err != nil {
		logger.Warn("could not write default config", "error", err)
	}
	cfg, configFile, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger.Info("config loaded", "file", configFile, "provider", cfg.Provider(),
		"model", cfg.ModelName(), "api_key", utils.MaskSensitiveString(cfg.APIKey()))

	dbPath, err := db.DefaultPath()
	if err != nil {
		logger.Error("failed to resolve database path", "error", err)
		os.Exit(1)
	}
	gdb, err := db.Open(dbPath)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	model, err := llm.NewChatModel(ctx, cfg)
	if err != nil {
		logger.Error("failed to create chat model", "error", err)
		os.Exit(1)
	}

	emitter := event.NewEmitter()

	q := queue.New()
	q.AddLane(service.LaneChat, 2)
	q.AddLane(service.LaneBulk, 2)

	var mailer tools.Mailer
	if addr := cfg.SMTPAddr(); addr != "" {
		mailer = tools.NewSMTPMailer(addr, cfg.EmailFrom())
		logger.Info("email delivery enabled", "relay", addr)
	}
	registry := tools.NewRegistry(gdb, mailer)
	engine := llm.NewEngine(model, service.NewMessageStore(gdb))

	responder := service.NewResponder(gdb, engine, registry.Tools(), emitter, service.ResponderConfig{
		PublishInterval: cfg.PublishInterval(),
		MaxToolRounds:   cfg.MaxToolRounds(),
		RetrievalLimit:  cfg.RetrievalLimit(),
	})

	chats := service.NewChatService(gdb, q, responder, emitter, cfg.RetryAttempts())
	transcripts := service.NewTranscriptService(gdb, q, emitter, cfg.ChunkMaxTokens())
	insights := service.NewInsightService(gdb, model, cfg.ModelName(), transcripts, emitter)

	server := NewServer(ServerDeps{
		DB:          gdb,
		Emitter:     emitter,
		Queue:       q,
		Chats:       chats,
		Transcripts: transcripts,
		Insights:    insights,
	})
	if err := server.Start(ctx, cfg.Host(), cfg.Port()); err != nil {
		logger.Error("failed to start server", "error", err)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("shutting down")
}
