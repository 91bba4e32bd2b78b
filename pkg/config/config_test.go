package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_MissingFile_ReturnsDefault(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, path, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if path == "" {
		t.Fatalf("expected config path")
	}
	if got := cfg.Host(); got != DefaultHost {
		t.Fatalf("cfg.Host() = %q, want %q", got, DefaultHost)
	}
	if got := cfg.Port(); got != DefaultPort {
		t.Fatalf("cfg.Port() = %d, want %d", got, DefaultPort)
	}
	if got := cfg.PublishInterval(); got != DefaultPublishIntervalMS*time.Millisecond {
		t.Fatalf("cfg.PublishInterval() = %v, want %v", got, DefaultPublishIntervalMS*time.Millisecond)
	}
	if got := cfg.MaxToolRounds(); got != DefaultMaxToolRounds {
		t.Fatalf("cfg.MaxToolRounds() = %d, want %d", got, DefaultMaxToolRounds)
	}
}

func TestEnsureDefaultConfig_CreatesFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	path, err := EnsureDefaultConfig()
	if err != nil {
		t.Fatalf("EnsureDefaultConfig() error = %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected config file to exist at %s: %v", path, err)
	}

	cfg, gotPath, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if filepath.Clean(gotPath) != filepath.Clean(path) {
		t.Fatalf("Load() path = %s, want %s", gotPath, path)
	}
	if got := cfg.Host(); got != DefaultHost {
		t.Fatalf("cfg.Host() = %q, want %q", got, DefaultHost)
	}
}

func TestLoad_ParsesAllSections(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	configDir := filepath.Join(home, ".huddle")
	if err := os.MkdirAll(configDir, 0o700); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	configPath := filepath.Join(configDir, "config.yaml")

	content := "server:\n  host: 0.0.0.0\n  port: 9090\n" +
		"model:\n  provider: claude\n  name: claude-sonnet\n  api_key: key123\n" +
		"chat:\n  publish_interval_ms: 100\n  max_tool_rounds: 4\n  chunk_max_tokens: 300\n  retrieval_limit: 5\n" +
		"email:\n  smtp_addr: relay.example.com:587\n  from: noreply@example.com\n"
	if err := os.WriteFile(configPath, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := cfg.Host(); got != "0.0.0.0" {
		t.Fatalf("cfg.Host() = %q, want %q", got, "0.0.0.0")
	}
	if got := cfg.Port(); got != 9090 {
		t.Fatalf("cfg.Port() = %d, want %d", got, 9090)
	}
	if got := cfg.Provider(); got != "claude" {
		t.Fatalf("cfg.Provider() = %q, want %q", got, "claude")
	}
	if got := cfg.ModelName(); got != "claude-sonnet" {
		t.Fatalf("cfg.ModelName() = %q, want %q", got, "claude-sonnet")
	}
	if got := cfg.APIKey(); got != "key123" {
		t.Fatalf("cfg.APIKey() = %q, want %q", got, "key123")
	}
	if got := cfg.PublishInterval(); got != 100*time.Millisecond {
		t.Fatalf("cfg.PublishInterval() = %v, want %v", got, 100*time.Millisecond)
	}
	if got := cfg.MaxToolRounds(); got != 4 {
		t.Fatalf("cfg.MaxToolRounds() = %d, want %d", got, 4)
	}
	if got := cfg.ChunkMaxTokens(); got != 300 {
		t.Fatalf("cfg.ChunkMaxTokens() = %d, want %d", got, 300)
	}
	if got := cfg.RetrievalLimit(); got != 5 {
		t.Fatalf("cfg.RetrievalLimit() = %d, want %d", got, 5)
	}
	if got := cfg.SMTPAddr(); got != "relay.example.com:587" {
		t.Fatalf("cfg.SMTPAddr() = %q, want %q", got, "relay.example.com:587")
	}
	if got := cfg.EmailFrom(); got != "noreply@example.com" {
		t.Fatalf("cfg.EmailFrom() = %q, want %q", got, "noreply@example.com")
	}
}

func TestEmailDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := cfg.SMTPAddr(); got != "" {
		t.Fatalf("cfg.SMTPAddr() = %q, want empty (delivery off by default)", got)
	}
	if got := cfg.EmailFrom(); got != "huddle@localhost" {
		t.Fatalf("cfg.EmailFrom() = %q, want default sender", got)
	}
}

func TestLoad_InvalidPort(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	configDir := filepath.Join(home, ".huddle")
	if err := os.MkdirAll(configDir, 0o700); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(configDir, "config.yaml"), []byte("server:\n  port: 70000\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, _, err := Load(); err == nil {
		t.Fatalf("expected error for out-of-range port")
	}
}
