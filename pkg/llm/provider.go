package llm

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/claude"
	"github.com/cloudwego/eino-ext/components/model/ollama"
	"github.com/cloudwego/eino-ext/components/model/openai"
	einoModel "github.com/cloudwego/eino/components/model"

	"github.com/huddlehq/huddle/pkg/config"
)

// NewChatModel creates an eino chat model from config.
func NewChatModel(ctx context.Context, cfg *config.AppConfig) (einoModel.ToolCallingChatModel, error) {
	if cfg == nil {
		return nil, fmt.Errorf("model config is nil")
	}

	switch cfg.Provider() {
	case "openai", "custom":
		chatModel, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
			BaseURL: cfg.BaseURL(),
			APIKey:  cfg.APIKey(),
			Model:   cfg.ModelName(),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create OpenAI model: %w", err)
		}
		return chatModel, nil

	case "claude", "anthropic":
		baseURL := cfg.BaseURL()
		var baseURLPtr *string
		if baseURL != "" {
			baseURLPtr = &baseURL
		}
		chatModel, err := claude.NewChatModel(ctx, &claude.Config{
			BaseURL:   baseURLPtr,
			APIKey:    cfg.APIKey(),
			Model:     cfg.ModelName(),
			MaxTokens: 8192,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create Claude model: %w", err)
		}
		return chatModel, nil

	case "ollama":
		chatModel, err := ollama.NewChatModel(ctx, &ollama.ChatModelConfig{
			BaseURL: cfg.BaseURL(),
			Model:   cfg.ModelName(),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create Ollama model: %w", err)
		}
		return chatModel, nil

	default:
		return nil, fmt.Errorf("unsupported model provider: %s", cfg.Provider())
	}
}
