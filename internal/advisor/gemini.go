package advisor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/mabhinav2955-coder/kisan-sub000/internal/models"
)

// gemini calls the Gemini API through the genai SDK.
type gemini struct {
	client      *genai.Client
	model       string
	maxTokens   int
	temperature float64
	timeout     time.Duration
}

func newGemini(ctx context.Context, pc ProviderConfig, cfg Config, hc *http.Client) (*gemini, error) {
	g := &gemini{
		model:       pc.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		timeout:     cfg.Timeout,
	}
	if g.model == "" {
		g.model = DefaultConfig().Gemini.Model
	}
	if pc.APIKey == "" {
		return g, nil
	}

	cc := &genai.ClientConfig{
		APIKey:     pc.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: hc,
	}
	if pc.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: pc.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	g.client = client
	return g, nil
}

func (g *gemini) Name() string {
	return ProviderGemini
}

func (g *gemini) Complete(ctx context.Context, systemPrompt, userMessage string) (string, error) {
	if g.client == nil {
		return "", fmt.Errorf("%s: %w", ProviderGemini, models.ErrProviderNotConfigured)
	}

	ctx, cancel := withTimeout(ctx, g.timeout)
	defer cancel()

	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
		Temperature:       genai.Ptr(float32(g.temperature)),
	}
	if g.maxTokens > 0 {
		config.MaxOutputTokens = int32(g.maxTokens)
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model,
		[]*genai.Content{genai.NewContentFromText(userMessage, genai.RoleUser)},
		config,
	)
	if err != nil {
		return "", fmt.Errorf("gemini generate failed: %w", err)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", errors.New("no response from gemini")
	}
	return text, nil
}
