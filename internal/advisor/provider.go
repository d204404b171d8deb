// Package advisor assembles live farm data into an LLM prompt and gets a
// reply from the configured chat-completion provider.
package advisor

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mabhinav2955-coder/kisan-sub000/internal/models"
)

// Provider names.
const (
	ProviderOpenAI = "openai"
	ProviderGroq   = "groq"
	ProviderGemini = "gemini"
)

// Provider turns a system prompt and a user message into a reply.
type Provider interface {
	Name() string
	Complete(ctx context.Context, systemPrompt, userMessage string) (string, error)
}

// ProviderConfig holds the credentials for one provider.
type ProviderConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

// Config configures provider construction.
type Config struct {
	// Provider is the default provider for the chat routes.
	Provider    string
	Timeout     time.Duration
	MaxTokens   int
	Temperature float64
	OpenAI      ProviderConfig
	Groq        ProviderConfig
	Gemini      ProviderConfig
}

// DefaultConfig returns the provider defaults.
func DefaultConfig() Config {
	return Config{
		Provider:    ProviderOpenAI,
		Timeout:     30 * time.Second,
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
	}
}

type providerOptions struct {
	httpClient *http.Client
}

// ProviderOption configures provider construction.
type ProviderOption func(*providerOptions)

// WithHTTPClient sets the HTTP client used by providers.
func WithHTTPClient(hc *http.Client) ProviderOption {
	return func(o *providerOptions) {
		o.httpClient = hc
	}
}

// NewProvider builds the provider called name. An empty name selects
// OpenAI. Providers without an API key are still returned; their calls fail
// with models.ErrProviderNotConfigured.
func NewProvider(ctx context.Context, name string, cfg Config, opts ...ProviderOption) (Provider, error) {
	o := providerOptions{httpClient: &http.Client{}}
	for _, opt := range opts {
		opt(&o)
	}

	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", ProviderOpenAI:
		return newChatCompletions(ProviderOpenAI, cfg.OpenAI, cfg, o.httpClient), nil
	case ProviderGroq:
		return newChatCompletions(ProviderGroq, cfg.Groq, cfg, o.httpClient), nil
	case ProviderGemini:
		return newGemini(ctx, cfg.Gemini, cfg, o.httpClient)
	default:
		return nil, fmt.Errorf("%w: %q", models.ErrUnsupportedProvider, name)
	}
}

// withTimeout bounds a provider call when a timeout is configured.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
