package advisor

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/mabhinav2955-coder/kisan-sub000/internal/metrics"
	"github.com/mabhinav2955-coder/kisan-sub000/internal/tracing"
	"github.com/mabhinav2955-coder/kisan-sub000/pkg/clock"
)

// instrumented records a span, metrics and a log line for every call.
type instrumented struct {
	Provider
	metrics *metrics.Metrics
	logger  zerolog.Logger
	clock   clock.Clock
}

// Instrument wraps p with tracing and metrics. Latency is measured with clk,
// which defaults to the wall clock when nil.
func Instrument(p Provider, m *metrics.Metrics, clk clock.Clock, logger zerolog.Logger) Provider {
	if clk == nil {
		clk = clock.New()
	}
	return &instrumented{
		Provider: p,
		metrics:  m,
		logger:   logger.With().Str("component", "advisor").Str("provider", p.Name()).Logger(),
		clock:    clk,
	}
}

func (p *instrumented) Complete(ctx context.Context, systemPrompt, userMessage string) (string, error) {
	ctx, span := tracing.StartLLMSpan(ctx, p.Name())
	defer span.End()

	start := p.clock.Now()
	content, err := p.Provider.Complete(ctx, systemPrompt, userMessage)
	elapsed := p.clock.Since(start)

	if err != nil {
		tracing.RecordError(span, err)
		p.metrics.RecordLLMRequest(p.Name(), "error", elapsed)
		p.logger.Error().Err(err).Dur("duration", elapsed).Msg("Provider call failed")
		return "", err
	}
	tracing.SetSpanOK(span)
	p.metrics.RecordLLMRequest(p.Name(), "success", elapsed)
	p.logger.Debug().Dur("duration", elapsed).Int("reply_len", len(content)).Msg("Provider replied")
	return content, nil
}
