package advisor

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/mabhinav2955-coder/kisan-sub000/internal/models"
	"github.com/mabhinav2955-coder/kisan-sub000/pkg/clock"
)

// Chain tries providers in order until one answers. Each provider has its
// own circuit breaker so a provider that keeps failing is skipped until its
// cooldown has passed.
type Chain struct {
	providers []Provider
	breakers  []*breaker
	logger    zerolog.Logger
}

// NewChain creates a fallback chain over providers.
func NewChain(providers []Provider, config BreakerConfig, clk clock.Clock, logger zerolog.Logger) *Chain {
	if clk == nil {
		clk = clock.New()
	}
	c := &Chain{
		providers: providers,
		breakers:  make([]*breaker, len(providers)),
		logger:    logger.With().Str("component", "advisor").Str("chain", "mobile").Logger(),
	}
	for i := range providers {
		c.breakers[i] = newBreaker(config, clk)
	}
	return c
}

// Name returns "chain".
func (c *Chain) Name() string {
	return "chain"
}

// Complete returns the first successful reply.
func (c *Chain) Complete(ctx context.Context, systemPrompt, userMessage string) (string, error) {
	content, _, err := c.CompleteWithProvider(ctx, systemPrompt, userMessage)
	return content, err
}

// CompleteWithProvider returns the first successful reply and the name of
// the provider that produced it.
func (c *Chain) CompleteWithProvider(ctx context.Context, systemPrompt, userMessage string) (string, string, error) {
	var errs []error
	for i, p := range c.providers {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		b := c.breakers[i]
		if !b.Allow() {
			c.logger.Debug().Str("provider", p.Name()).Msg("Circuit open, skipping provider")
			errs = append(errs, fmt.Errorf("%s: circuit open", p.Name()))
			continue
		}

		content, err := p.Complete(ctx, systemPrompt, userMessage)
		if err != nil {
			if ctx.Err() != nil {
				// The caller gave up; the provider may be healthy.
				b.Release()
				c.logger.Debug().Err(err).Str("provider", p.Name()).Msg("Request cancelled during provider call")
				errs = append(errs, err)
				break
			}
			// An unconfigured provider is not a health signal.
			if errors.Is(err, models.ErrProviderNotConfigured) {
				b.Release()
			} else {
				b.RecordFailure()
			}
			c.logger.Warn().Err(err).Str("provider", p.Name()).Msg("Provider failed, trying next")
			errs = append(errs, err)
			continue
		}
		b.RecordSuccess()
		return content, p.Name(), nil
	}
	return "", "", fmt.Errorf("%w: %w", models.ErrAllProvidersFailed, errors.Join(errs...))
}

// States returns the breaker state of each provider by name.
func (c *Chain) States() map[string]string {
	states := make(map[string]string, len(c.providers))
	for i, p := range c.providers {
		states[p.Name()] = c.breakers[i].State().String()
	}
	return states
}
