package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseDefaultConfig(t *testing.T) {
	cfg, err := parse(DefaultConfigYAML)
	if err != nil {
		t.Fatalf("failed to parse default config: %v", err)
	}

	if len(cfg.Sources.Feeds) == 0 {
		t.Error("expected feeds to be populated")
	}
	if cfg.Summarization.Provider != "ollama" {
		t.Errorf("expected provider 'ollama', got %q", cfg.Summarization.Provider)
	}
	if cfg.Server.Port != 8000 {
		t.Errorf("expected port 8000, got %d", cfg.Server.Port)
	}
	if len(cfg.Categories.Mentions) != 6 {
		t.Errorf("expected 6 mention categories, got %d", len(cfg.Categories.Mentions))
	}
	if len(cfg.Categories.Analytics) != 12 {
		t.Errorf("expected 12 analytics categories, got %d", len(cfg.Categories.Analytics))
	}
	if cfg.Categories.Legal != "enc-legal-public" {
		t.Errorf("expected legal category 'enc-legal-public', got %q", cfg.Categories.Legal)
	}
}

func TestParseMinimalConfig(t *testing.T) {
	data := []byte(`
summarization:
  provider: openai
  model: gpt-4o
server:
  port: 9000
sources:
  feeds:
    - url: https://example.com/feed.xml
      name: Example
`)
	cfg, err := parse(data)
	if err != nil {
		t.Fatalf("failed to parse minimal config: %v", err)
	}

	if cfg.Summarization.Provider != "openai" {
		t.Errorf("expected provider 'openai', got %q", cfg.Summarization.Provider)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Server.Port)
	}
	// Defaults should still be set for unspecified fields
	if cfg.Summarization.OllamaURL != "http://localhost:11434" {
		t.Errorf("expected default ollama_url, got %q", cfg.Summarization.OllamaURL)
	}
	if cfg.Pipeline.Schedule == "" {
		t.Error("expected default pipeline schedule")
	}
	if cfg.Sources.Feeds[0].Category != "enc-news" {
		t.Errorf("expected feed category to default to news, got %q", cfg.Sources.Feeds[0].Category)
	}
	if len(cfg.Categories.Mentions) == 0 {
		t.Error("expected default mention categories")
	}
}

func TestNewsAPIDefaults(t *testing.T) {
	cfg, err := parse([]byte(`
profile:
  full_name: Ada Lovelace
sources:
  newsapi:
    enabled: true
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	n := cfg.Sources.NewsAPI
	if n.Query != `"Ada Lovelace"` {
		t.Errorf("expected query to default to quoted full name, got %q", n.Query)
	}
	if n.Category != "enc-news" {
		t.Errorf("expected news category, got %q", n.Category)
	}
	if n.APIKeyEnv != "NEWSAPI_KEY" {
		t.Errorf("expected api_key_env NEWSAPI_KEY, got %q", n.APIKeyEnv)
	}
	if cfg.Sources.DaysBack != 7 {
		t.Errorf("expected days_back 7, got %d", cfg.Sources.DaysBack)
	}
}

func TestParseRejectsFeedWithoutURL(t *testing.T) {
	_, err := parse([]byte("sources:\n  feeds:\n    - name: broken\n"))
	if err == nil {
		t.Fatal("expected error for feed without url")
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, DefaultConfigYAML, 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if len(cfg.Sources.Feeds) == 0 {
		t.Error("expected feeds to be populated from file")
	}
}

func TestResolveConfigPathExplicitMissing(t *testing.T) {
	if _, err := ResolveConfigPath(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing explicit config")
	}
}

func TestProxyAPIKeyFromEnv(t *testing.T) {
	t.Setenv("REPWATCH_TEST_PROXY_KEY", "secret")
	s := Scraping{ProxyAPIKeyEnv: "REPWATCH_TEST_PROXY_KEY"}
	if s.ProxyAPIKey() != "secret" {
		t.Errorf("expected key from env, got %q", s.ProxyAPIKey())
	}
	if (Scraping{}).ProxyAPIKey() != "" {
		t.Error("expected empty key when env name unset")
	}
}

func TestGetDataDir(t *testing.T) {
	cfg := &Config{}
	defaultDir := cfg.GetDataDir()
	if defaultDir == "" {
		t.Error("expected non-empty default data dir")
	}

	cfg.Output.DataDir = "/custom/path"
	if cfg.GetDataDir() != "/custom/path" {
		t.Errorf("expected '/custom/path', got %q", cfg.GetDataDir())
	}
	if cfg.DatabasePath() != filepath.Join("/custom/path", "repwatch.db") {
		t.Errorf("unexpected database path %q", cfg.DatabasePath())
	}
}
