package advisor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mabhinav2955-coder/kisan-sub000/internal/models"
)

// chatCompletions calls an OpenAI-compatible /chat/completions endpoint.
// Groq serves the same API under its own base URL.
type chatCompletions struct {
	name        string
	apiKey      string
	model       string
	baseURL     string
	maxTokens   int
	temperature float64
	timeout     time.Duration
	httpClient  *http.Client
}

func newChatCompletions(name string, pc ProviderConfig, cfg Config, hc *http.Client) *chatCompletions {
	defaults := DefaultConfig()
	fallback := defaults.OpenAI
	if name == ProviderGroq {
		fallback = defaults.Groq
	}
	if pc.Model == "" {
		pc.Model = fallback.Model
	}
	if pc.BaseURL == "" {
		pc.BaseURL = fallback.BaseURL
	}
	return &chatCompletions{
		name:        name,
		apiKey:      pc.APIKey,
		model:       pc.Model,
		baseURL:     strings.TrimRight(pc.BaseURL, "/"),
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		timeout:     cfg.Timeout,
		httpClient:  hc,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
}

func (p *chatCompletions) Name() string {
	return p.name
}

func (p *chatCompletions) Complete(ctx context.Context, systemPrompt, userMessage string) (string, error) {
	if p.apiKey == "" {
		return "", fmt.Errorf("%s: %w", p.name, models.ErrProviderNotConfigured)
	}

	ctx, cancel := withTimeout(ctx, p.timeout)
	defer cancel()

	body, err := json.Marshal(chatRequest{
		Model: p.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userMessage},
		},
		MaxTokens:   p.maxTokens,
		Temperature: p.temperature,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("%s API error: %d - %s", p.name, resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode %s response: %w", p.name, err)
	}
	if len(result.Choices) == 0 {
		return "", errors.New("no response from " + p.name)
	}
	return strings.TrimSpace(result.Choices[0].Message.Content), nil
}
