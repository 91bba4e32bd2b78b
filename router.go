package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/huddlehq/huddle/pkg/event"
	"github.com/huddlehq/huddle/pkg/handler"
	"github.com/huddlehq/huddle/pkg/queue"
	"github.com/huddlehq/huddle/pkg/service"
	"github.com/huddlehq/huddle/pkg/utils"
)

// Server assembles the HTTP surface: REST API plus the events WebSocket.
type Server struct {
	ginEngine *gin.Engine
	logger    *slog.Logger
	port      int
}

// ServerDeps are the wired services the routes need.
type ServerDeps struct {
	DB          *gorm.DB
	Emitter     *event.Emitter
	Queue       *queue.Queue
	Chats       *service.ChatService
	Transcripts *service.TranscriptService
	Insights    *service.InsightService
}

func NewServer(deps ServerDeps) *Server {
	ginEngine := gin.New()
	ginEngine.Use(gin.Recovery())

	// CORS middleware: allow common localhost dev origins.
	ginEngine.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		// No Origin header means it's not a browser CORS request.
		if origin != "" {
			allowed := strings.HasPrefix(origin, "http://localhost") ||
				strings.HasPrefix(origin, "http://127.0.0.1") ||
				strings.HasPrefix(origin, "https://localhost") ||
				strings.HasPrefix(origin, "https://127.0.0.1")

			if allowed {
				c.Header("Access-Control-Allow-Origin", origin)
				c.Header("Vary", "Origin")
				c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
				c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
			} else {
				c.AbortWithStatus(http.StatusForbidden)
				return
			}
		}

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	server := &Server{
		ginEngine: ginEngine,
		logger:    utils.GetLogger(),
	}
	server.setupRoutes(deps)
	return server
}

func (s *Server) setupRoutes(deps ServerDeps) {
	chatHandler := handler.NewChatHandler(deps.Chats)
	meetingHandler := handler.NewMeetingHandler(deps.DB, deps.Transcripts, deps.Insights, deps.Queue)
	wsHandler := event.NewWSHandler(deps.Emitter)

	// API group
	// /api
	apiGroup := s.ginEngine.Group("/api")

	chatHandler.RegisterRoutes(apiGroup)
	meetingHandler.RegisterRoutes(apiGroup)

	// Live event stream
	// /api/events/ws?chat_id=...&events=...
	apiGroup.GET("/events/ws", wsHandler.Handle)
}

// Start binds the listener and serves until ctx is cancelled. Binding
// failures are returned immediately; serving continues in the background.
func (s *Server) Start(ctx context.Context, host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	srv := &http.Server{Addr: addr, Handler: s.ginEngine}

	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return err
	}

	if tcpAddr, ok := ln.Addr().(*net.TCPAddr); ok {
		s.port = tcpAddr.Port
	} else {
		s.port = port
	}
	s.logger.Info("server listening", "addr", ln.Addr().String())

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Serve(ln)
	}()

	// Graceful shutdown on context cancellation
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	select {
	case err := <-errChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	default:
	}
	return nil
}
