package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// AppConfig is read from a YAML file under the user's home directory.
// All fields are optional; defaults are applied by the accessor methods.
//
// Example (~/.huddle/config.yaml):
//
// server:
//   host: 127.0.0.1
//   port: 8090
// model:
//   provider: openai
//   name: gpt-4o-mini
//   api_key: sk-...
// chat:
//   publish_interval_ms: 50
//   max_tool_rounds: 8
//   chunk_max_tokens: 500
//   retrieval_limit: 10
// email:
//   smtp_addr: relay.example.com:587
//   from: noreply@example.com
//
// Notes:
// - If the config file does not exist, Load returns defaults without error.
// - If the config file exists but cannot be parsed, Load returns an error.
// - Port must be between 1 and 65535.

type AppConfig struct {
	Server ServerConfig `yaml:"server"`
	Model  ModelConfig  `yaml:"model"`
	Chat   ChatConfig   `yaml:"chat"`
	Email  EmailConfig  `yaml:"email"`
}

type ServerConfig struct {
	Host *string `yaml:"host"`
	Port *int    `yaml:"port"`
}

// ModelConfig selects the completion provider.
type ModelConfig struct {
	Provider *string `yaml:"provider"` // openai, claude, ollama
	Name     *string `yaml:"name"`
	APIKey   *string `yaml:"api_key"`
	BaseURL  *string `yaml:"base_url"`
}

// EmailConfig points at an SMTP relay for the email tools. When unset,
// emails are logged instead of delivered.
type EmailConfig struct {
	SMTPAddr *string `yaml:"smtp_addr"` // host:port
	From     *string `yaml:"from"`
}

// ChatConfig carries the response-pipeline tunables.
type ChatConfig struct {
	PublishIntervalMS *int `yaml:"publish_interval_ms"`
	MaxToolRounds     *int `yaml:"max_tool_rounds"`
	ChunkMaxTokens    *int `yaml:"chunk_max_tokens"`
	RetrievalLimit    *int `yaml:"retrieval_limit"`
	RetryAttempts     *int `yaml:"retry_attempts"`
}

const (
	DefaultHost = "127.0.0.1"
	DefaultPort = 8090

	DefaultProvider = "openai"
	DefaultModel    = "gpt-4o-mini"

	DefaultPublishIntervalMS = 50
	DefaultMaxToolRounds     = 8
	DefaultChunkMaxTokens    = 500
	DefaultRetrievalLimit    = 10
	DefaultRetryAttempts     = 3
)

// DefaultPaths returns the config dir and config file path.
func DefaultPaths() (configDir string, configFile string, err error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", "", fmt.Errorf("get user home dir: %w", err)
	}
	configDir = filepath.Join(home, ".huddle")
	configFile = filepath.Join(configDir, "config.yaml")
	return configDir, configFile, nil
}

// Load reads ~/.huddle/config.yaml.
// If the file doesn't exist, it returns a default config and nil error.
func Load() (*AppConfig, string, error) {
	_, configFile, err := DefaultPaths()
	if err != nil {
		return nil, "", err
	}

	cfg := &AppConfig{}

	b, err := os.ReadFile(configFile)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, configFile, nil
		}
		return nil, "", fmt.Errorf("read config file %s: %w", configFile, err)
	}

	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, "", fmt.Errorf("parse yaml config %s: %w", configFile, err)
	}

	if strings.TrimSpace(cfg.Host()) == "" {
		return nil, "", fmt.Errorf("invalid server.host (empty) in %s", configFile)
	}
	if port := cfg.Port(); port < 1 || port > 65535 {
		return nil, "", fmt.Errorf("invalid server.port %d in %s", port, configFile)
	}

	return cfg, configFile, nil
}

// EnsureDefaultConfig writes a default config file if it doesn't already exist.
// It is safe to call on startup.
func EnsureDefaultConfig() (string, error) {
	configDir, configFile, err := DefaultPaths()
	if err != nil {
		return "", err
	}

	if _, err := os.Stat(configFile); err == nil {
		return configFile, nil
	}

	if err := os.MkdirAll(configDir, 0o700); err != nil {
		return "", fmt.Errorf("create config dir %s: %w", configDir, err)
	}

	defaultCfg := AppConfig{Server: ServerConfig{Host: ptr(DefaultHost), Port: ptr(DefaultPort)}}
	b, err := yaml.Marshal(&defaultCfg)
	if err != nil {
		return "", fmt.Errorf("marshal default config: %w", err)
	}

	// Config may hold an API key later; keep permissions restrictive.
	if err := os.WriteFile(configFile, b, 0o600); err != nil {
		return "", fmt.Errorf("write default config file %s: %w", configFile, err)
	}

	return configFile, nil
}

func (c *AppConfig) Host() string {
	if c == nil || c.Server.Host == nil {
		return DefaultHost
	}
	v := strings.TrimSpace(*c.Server.Host)
	if v == "" {
		return DefaultHost
	}
	return v
}

func (c *AppConfig) Port() int {
	if c == nil || c.Server.Port == nil {
		return DefaultPort
	}
	return *c.Server.Port
}

func (c *AppConfig) Provider() string {
	if c == nil || c.Model.Provider == nil {
		return DefaultProvider
	}
	v := strings.TrimSpace(*c.Model.Provider)
	if v == "" {
		return DefaultProvider
	}
	return v
}

func (c *AppConfig) ModelName() string {
	if c == nil || c.Model.Name == nil {
		return DefaultModel
	}
	v := strings.TrimSpace(*c.Model.Name)
	if v == "" {
		return DefaultModel
	}
	return v
}

func (c *AppConfig) APIKey() string {
	if c == nil || c.Model.APIKey == nil {
		return os.Getenv("HUDDLE_API_KEY")
	}
	return *c.Model.APIKey
}

func (c *AppConfig) BaseURL() string {
	if c == nil || c.Model.BaseURL == nil {
		return ""
	}
	return *c.Model.BaseURL
}

// SMTPAddr returns the relay address, or "" when email delivery is not
// configured.
func (c *AppConfig) SMTPAddr() string {
	if c == nil || c.Email.SMTPAddr == nil {
		return ""
	}
	return strings.TrimSpace(*c.Email.SMTPAddr)
}

func (c *AppConfig) EmailFrom() string {
	if c == nil || c.Email.From == nil {
		return "huddle@localhost"
	}
	v := strings.TrimSpace(*c.Email.From)
	if v == "" {
		return "huddle@localhost"
	}
	return v
}

func (c *AppConfig) PublishInterval() time.Duration {
	ms := DefaultPublishIntervalMS
	if c != nil && c.Chat.PublishIntervalMS != nil && *c.Chat.PublishIntervalMS > 0 {
		ms = *c.Chat.PublishIntervalMS
	}
	return time.Duration(ms) * time.Millisecond
}

func (c *AppConfig) MaxToolRounds() int {
	if c != nil && c.Chat.MaxToolRounds != nil && *c.Chat.MaxToolRounds > 0 {
		return *c.Chat.MaxToolRounds
	}
	return DefaultMaxToolRounds
}

func (c *AppConfig) ChunkMaxTokens() int {
	if c != nil && c.Chat.ChunkMaxTokens != nil && *c.Chat.ChunkMaxTokens > 0 {
		return *c.Chat.ChunkMaxTokens
	}
	return DefaultChunkMaxTokens
}

func (c *AppConfig) RetrievalLimit() int {
	if c != nil && c.Chat.RetrievalLimit != nil && *c.Chat.RetrievalLimit > 0 {
		return *c.Chat.RetrievalLimit
	}
	return DefaultRetrievalLimit
}

func (c *AppConfig) RetryAttempts() int {
	if c != nil && c.Chat.RetryAttempts != nil && *c.Chat.RetryAttempts > 0 {
		return *c.Chat.RetryAttempts
	}
	return DefaultRetryAttempts
}

func ptr[T any](v T) *T { return &v }
