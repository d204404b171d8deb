package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "krishi.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Server.HTTP.Address != "0.0.0.0:5000" {
		t.Errorf("expected default HTTP address '0.0.0.0:5000', got %q", cfg.Server.HTTP.Address)
	}
	if cfg.LLM.Provider != "openai" {
		t.Errorf("expected default provider 'openai', got %q", cfg.LLM.Provider)
	}
	if cfg.Sources.PrimaryTimeout.Duration() != 4*time.Second {
		t.Errorf("expected primary timeout 4s, got %v", cfg.Sources.PrimaryTimeout.Duration())
	}
	if cfg.Cache.TTL.Milliseconds() != 300000 {
		t.Errorf("expected cache ttl 300000ms, got %d", cfg.Cache.TTL.Milliseconds())
	}
	if cfg.Cache.MaxEntries != 0 {
		t.Errorf("expected unbounded cache by default, got %d", cfg.Cache.MaxEntries)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:   "valid default config",
			modify: func(c *Config) {},
		},
		{
			name:    "missing http address",
			modify:  func(c *Config) { c.Server.HTTP.Address = "" },
			wantErr: true,
		},
		{
			name:    "unknown provider",
			modify:  func(c *Config) { c.LLM.Provider = "llama" },
			wantErr: true,
		},
		{
			name:    "unknown mobile chain provider",
			modify:  func(c *Config) { c.LLM.MobileChain = []string{"openai", "claude"} },
			wantErr: true,
		},
		{
			name:    "zero cache ttl",
			modify:  func(c *Config) { c.Cache.TTL = 0 },
			wantErr: true,
		},
		{
			name:    "negative max entries",
			modify:  func(c *Config) { c.Cache.MaxEntries = -1 },
			wantErr: true,
		},
		{
			name:    "badger without data dir",
			modify:  func(c *Config) { c.Storage.DataDir = "" },
			wantErr: true,
		},
		{
			name: "memory without data dir",
			modify: func(c *Config) {
				c.Storage.Backend = "memory"
				c.Storage.DataDir = ""
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_Load(t *testing.T) {
	path := writeConfig(t, `
server:
  http:
    address: 127.0.0.1:9080
    read_timeout: 60s
llm:
  provider: groq
  groq:
    model: llama-3.3-70b-versatile
sources:
  primary_timeout: 2500
  pest_alerts:
    url: https://example.org/pests.json
    csv_url: https://example.org/pests.csv
cache:
  ttl: 10m
  max_entries: 256
storage:
  backend: memory
logging:
  level: debug
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.HTTP.Address != "127.0.0.1:9080" {
		t.Errorf("expected HTTP address '127.0.0.1:9080', got %q", cfg.Server.HTTP.Address)
	}
	if cfg.Server.HTTP.ReadTimeout.Duration() != time.Minute {
		t.Errorf("expected read timeout 60s, got %v", cfg.Server.HTTP.ReadTimeout.Duration())
	}
	if cfg.LLM.Provider != "groq" || cfg.LLM.Groq.Model != "llama-3.3-70b-versatile" {
		t.Errorf("unexpected llm config: %+v", cfg.LLM)
	}
	if cfg.LLM.Groq.BaseURL == "" {
		t.Error("expected groq base url default to survive partial override")
	}
	if cfg.Sources.PrimaryTimeout.Duration() != 2500*time.Millisecond {
		t.Errorf("expected primary timeout 2.5s, got %v", cfg.Sources.PrimaryTimeout.Duration())
	}
	if cfg.Sources.PestAlerts.CSVURL != "https://example.org/pests.csv" {
		t.Errorf("unexpected pest csv url %q", cfg.Sources.PestAlerts.CSVURL)
	}
	if cfg.Cache.TTL.Duration() != 10*time.Minute || cfg.Cache.MaxEntries != 256 {
		t.Errorf("unexpected cache config: %+v", cfg.Cache)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level 'debug', got %q", cfg.Logging.Level)
	}
}

func TestConfig_Load_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("expected defaults for missing file, got %v", err)
	}
	if cfg.Cache.TTL.Duration() != 5*time.Minute {
		t.Errorf("expected default ttl, got %v", cfg.Cache.TTL.Duration())
	}

	if _, err := Load(""); err != nil {
		t.Fatalf("expected defaults for empty path, got %v", err)
	}
}

func TestConfig_Load_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "invalid: yaml: content:")

	if _, err := Load(path); err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestConfig_Load_ExpandsEnv(t *testing.T) {
	t.Setenv("TEST_OPENAI_KEY", "sk-from-env")
	path := writeConfig(t, `
llm:
  openai:
    api_key: ${TEST_OPENAI_KEY}
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.LLM.OpenAI.APIKey != "sk-from-env" {
		t.Errorf("expected expanded api key, got %q", cfg.LLM.OpenAI.APIKey)
	}
}

func TestConfig_EnvOverrides(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "Gemini")
	t.Setenv("GOOGLE_API_KEY", "g-key")
	t.Setenv("GEMINI_MODEL", "gemini-2.0-flash")
	t.Setenv("GROQ_API_KEY", "gq-key")
	t.Setenv("DATA_GOV_IN_API_KEY", "dg-key")
	t.Setenv("AGMARKNET_RESOURCE_ID", "res-1")
	t.Setenv("KERALA_PEST_ALERTS_CSV_URL", "https://example.org/alerts.csv")
	t.Setenv("PORT", "8181")
	t.Setenv("KRISHI_CACHE_TTL", "60000")

	path := writeConfig(t, `
llm:
  provider: openai
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.LLM.Provider != "gemini" {
		t.Errorf("expected env provider 'gemini', got %q", cfg.LLM.Provider)
	}
	if cfg.LLM.Gemini.APIKey != "g-key" || cfg.LLM.Gemini.Model != "gemini-2.0-flash" {
		t.Errorf("unexpected gemini config: %+v", cfg.LLM.Gemini)
	}
	if cfg.LLM.Groq.APIKey != "gq-key" {
		t.Errorf("expected groq key from env, got %q", cfg.LLM.Groq.APIKey)
	}
	if cfg.Sources.Market.APIKey != "dg-key" || cfg.Sources.Market.ResourceID != "res-1" {
		t.Errorf("unexpected market config: %+v", cfg.Sources.Market)
	}
	if cfg.Sources.PestAlerts.CSVURL != "https://example.org/alerts.csv" {
		t.Errorf("unexpected pest csv url %q", cfg.Sources.PestAlerts.CSVURL)
	}
	if cfg.Server.HTTP.Address != "0.0.0.0:8181" {
		t.Errorf("expected address from PORT, got %q", cfg.Server.HTTP.Address)
	}
	if cfg.Cache.TTL.Duration() != time.Minute {
		t.Errorf("expected ttl 1m from env, got %v", cfg.Cache.TTL.Duration())
	}
}

func TestConfig_EnvOverrides_InvalidTTL(t *testing.T) {
	t.Setenv("KRISHI_CACHE_TTL", "forever")

	if _, err := Load(""); err == nil {
		t.Error("expected error for invalid KRISHI_CACHE_TTL")
	}
}
