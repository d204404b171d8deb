// Package config provides configuration management for Krishi Sakhi.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mabhinav2955-coder/kisan-sub000/internal/tracing"
	"github.com/mabhinav2955-coder/kisan-sub000/pkg/duration"
	"gopkg.in/yaml.v3"
)

// Duration is an alias for the shared duration.Duration type.
type Duration = duration.Duration

// Config represents the complete service configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	LLM       LLMConfig       `yaml:"llm"`
	Sources   SourcesConfig   `yaml:"sources"`
	Cache     CacheConfig     `yaml:"cache"`
	Storage   StorageConfig   `yaml:"storage"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Tracing   tracing.Config  `yaml:"tracing"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	HTTP           HTTPConfig `yaml:"http"`
	AllowedOrigins []string   `yaml:"allowed_origins"`
}

// HTTPConfig contains HTTP server settings.
type HTTPConfig struct {
	Address        string   `yaml:"address"`
	ReadTimeout    Duration `yaml:"read_timeout"`
	WriteTimeout   Duration `yaml:"write_timeout"`
	RequestTimeout Duration `yaml:"request_timeout"`
}

// LLMConfig selects and configures the chat completion provider.
type LLMConfig struct {
	// Provider is one of "openai", "groq" or "gemini".
	Provider    string         `yaml:"provider"`
	Timeout     Duration       `yaml:"timeout"`
	MaxTokens   int            `yaml:"max_tokens"`
	Temperature float64        `yaml:"temperature"`
	OpenAI      ProviderConfig `yaml:"openai"`
	Groq        ProviderConfig `yaml:"groq"`
	Gemini      ProviderConfig `yaml:"gemini"`
	// MobileChain is the ordered provider list tried by the mobile chat route.
	MobileChain []string `yaml:"mobile_chain"`
}

// ProviderConfig holds the credentials for one LLM provider.
type ProviderConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

// SourcesConfig configures the upstream agricultural data feeds.
type SourcesConfig struct {
	// PrimaryTimeout bounds each primary upstream attempt.
	PrimaryTimeout Duration `yaml:"primary_timeout"`
	// ClientTimeout bounds every other outbound request.
	ClientTimeout Duration      `yaml:"client_timeout"`
	Market        MarketConfig  `yaml:"market"`
	PestAlerts    FeedConfig    `yaml:"pest_alerts"`
	Advisories    FeedConfig    `yaml:"advisories"`
	Weather       WeatherConfig `yaml:"weather"`
}

// MarketConfig configures the data.gov.in Agmarknet resource.
type MarketConfig struct {
	BaseURL    string `yaml:"base_url"`
	APIKey     string `yaml:"api_key"`
	ResourceID string `yaml:"resource_id"`
	State      string `yaml:"state"`
	CSVURL     string `yaml:"csv_url"`
}

// FeedConfig configures a JSON feed with an optional CSV fallback.
type FeedConfig struct {
	URL    string `yaml:"url"`
	CSVURL string `yaml:"csv_url"`
}

// WeatherConfig configures the Open-Meteo forecast endpoint.
type WeatherConfig struct {
	BaseURL string `yaml:"base_url"`
}

// CacheConfig configures the data route cache.
type CacheConfig struct {
	TTL        Duration `yaml:"ttl"`
	MaxEntries int      `yaml:"max_entries"`
}

// StorageConfig configures the activity log store.
type StorageConfig struct {
	// Backend is "badger" or "memory".
	Backend string `yaml:"backend"`
	DataDir string `yaml:"data_dir"`
}

// RateLimitConfig limits chat requests per client.
type RateLimitConfig struct {
	Enabled           bool    `yaml:"enabled"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size"`
}

// MetricsConfig contains metrics settings.
type MetricsConfig struct {
	Prometheus PrometheusConfig `yaml:"prometheus"`
}

// PrometheusConfig contains Prometheus metrics settings.
type PrometheusConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			HTTP: HTTPConfig{
				Address:        "0.0.0.0:5000",
				ReadTimeout:    Duration(30 * time.Second),
				WriteTimeout:   Duration(90 * time.Second),
				RequestTimeout: Duration(60 * time.Second),
			},
		},
		LLM: LLMConfig{
			Provider:    "openai",
			Timeout:     Duration(30 * time.Second),
			MaxTokens:   700,
			Temperature: 0.7,
			OpenAI: ProviderConfig{
				Model:   "gpt-4o-mini",
				BaseURL: "https://api.openai.com/v1",
			},
			Groq: ProviderConfig{
				Model:   "llama-3.1-8b-instant",
				BaseURL: "https://api.groq.com/openai/v1",
			},
			Gemini: ProviderConfig{
				Model: "gemini-1.5-flash",
			},
			MobileChain: []string{"openai", "gemini"},
		},
		Sources: SourcesConfig{
			PrimaryTimeout: Duration(4 * time.Second),
			ClientTimeout:  Duration(15 * time.Second),
			Market: MarketConfig{
				BaseURL:    "https://api.data.gov.in/resource",
				ResourceID: "9ef84268-d588-465a-a308-a864a43d0070",
				State:      "Kerala",
			},
			Weather: WeatherConfig{
				BaseURL: "https://api.open-meteo.com/v1/forecast",
			},
		},
		Cache: CacheConfig{
			TTL: Duration(5 * time.Minute),
		},
		Storage: StorageConfig{
			Backend: "badger",
			DataDir: "./data",
		},
		RateLimit: RateLimitConfig{
			Enabled:           true,
			RequestsPerSecond: 2,
			BurstSize:         10,
		},
		Metrics: MetricsConfig{
			Prometheus: PrometheusConfig{
				Enabled: true,
				Path:    "/metrics",
			},
		},
		Tracing: tracing.DefaultConfig(),
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load loads configuration from a YAML file, then applies environment
// overrides. An empty path or a missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		default:
			// Expand environment variables
			data = []byte(os.ExpandEnv(string(data)))
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv("PORT"); v != "" {
		c.Server.HTTP.Address = "0.0.0.0:" + v
	}
	if v := os.Getenv("KRISHI_HTTP_ADDRESS"); v != "" {
		c.Server.HTTP.Address = v
	}
	if v := os.Getenv("KRISHI_ALLOWED_ORIGINS"); v != "" {
		c.Server.AllowedOrigins = strings.Split(v, ",")
	}
	if v := os.Getenv("KRISHI_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("KRISHI_DATA_DIR"); v != "" {
		c.Storage.DataDir = v
	}
	if v := os.Getenv("KRISHI_CACHE_TTL"); v != "" {
		ttl, err := duration.Parse(v)
		if err != nil {
			return fmt.Errorf("KRISHI_CACHE_TTL: %w", err)
		}
		c.Cache.TTL = ttl
	}

	if v := os.Getenv("LLM_PROVIDER"); v != "" {
		c.LLM.Provider = strings.ToLower(strings.TrimSpace(v))
	}
	setIfPresent(&c.LLM.OpenAI.APIKey, "OPENAI_API_KEY")
	setIfPresent(&c.LLM.OpenAI.Model, "OPENAI_MODEL")
	setIfPresent(&c.LLM.Groq.APIKey, "GROQ_API_KEY")
	setIfPresent(&c.LLM.Groq.Model, "GROQ_MODEL")
	setIfPresent(&c.LLM.Gemini.APIKey, "GOOGLE_API_KEY")
	setIfPresent(&c.LLM.Gemini.Model, "GEMINI_MODEL")

	setIfPresent(&c.Sources.Market.APIKey, "DATA_GOV_IN_API_KEY")
	setIfPresent(&c.Sources.Market.ResourceID, "AGMARKNET_RESOURCE_ID")
	setIfPresent(&c.Sources.Market.CSVURL, "MARKET_PRICES_CSV_URL")
	setIfPresent(&c.Sources.PestAlerts.URL, "KERALA_PEST_ALERTS_URL")
	setIfPresent(&c.Sources.PestAlerts.CSVURL, "KERALA_PEST_ALERTS_CSV_URL")
	setIfPresent(&c.Sources.Advisories.URL, "GOVERNMENT_ADVISORIES_URL")
	setIfPresent(&c.Sources.Advisories.CSVURL, "GOVERNMENT_ADVISORIES_CSV_URL")
	return nil
}

func setIfPresent(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.HTTP.Address == "" {
		return fmt.Errorf("server.http.address is required")
	}
	switch c.LLM.Provider {
	case "openai", "groq", "gemini":
	default:
		return fmt.Errorf("llm.provider must be one of openai, groq, gemini; got %q", c.LLM.Provider)
	}
	for _, name := range c.LLM.MobileChain {
		switch name {
		case "openai", "groq", "gemini":
		default:
			return fmt.Errorf("llm.mobile_chain contains unknown provider %q", name)
		}
	}
	if c.Sources.PrimaryTimeout.Duration() <= 0 {
		return fmt.Errorf("sources.primary_timeout must be positive")
	}
	if c.Cache.TTL.Duration() <= 0 {
		return fmt.Errorf("cache.ttl must be positive")
	}
	if c.Cache.MaxEntries < 0 {
		return fmt.Errorf("cache.max_entries must not be negative")
	}
	switch c.Storage.Backend {
	case "memory":
	case "badger":
		if c.Storage.DataDir == "" {
			return fmt.Errorf("storage.data_dir is required for the badger backend")
		}
	default:
		return fmt.Errorf("storage.backend must be badger or memory; got %q", c.Storage.Backend)
	}
	return nil
}
