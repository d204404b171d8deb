package advisor

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/mabhinav2955-coder/kisan-sub000/internal/models"
	"github.com/mabhinav2955-coder/kisan-sub000/internal/sources"
	"github.com/mabhinav2955-coder/kisan-sub000/internal/tracing"
)

// DataSource is the set of feeds the assembler reads. *sources.Client
// implements it.
type DataSource interface {
	FetchWeather(ctx context.Context, lat, lon float64) *models.Weather
	FetchMarketPrices(ctx context.Context, filter sources.MarketFilter) models.Dataset[models.MarketPrice]
	FetchPestAlerts(ctx context.Context, filter sources.PestFilter) models.Dataset[models.PestAlert]
	FetchGovernmentAdvisories(ctx context.Context, filter sources.AdvisoryFilter) models.Dataset[models.GovernmentAdvisory]
}

// Request is one chat turn.
type Request struct {
	Message  string
	Language models.Language
	Location *models.Location
}

// Metadata describes the data a reply was built from.
type Metadata struct {
	Provider             string                       `json:"provider"`
	WeatherData          *models.Weather              `json:"weatherData"`
	MarketData           []models.MarketPrice         `json:"marketData"`
	PestAlerts           []models.PestAlert           `json:"pestAlerts"`
	GovernmentAdvisories []models.GovernmentAdvisory  `json:"governmentAdvisories"`
	Provenance           map[string]models.Provenance `json:"provenance,omitempty"`
}

// Reply is the provider answer plus its context.
type Reply struct {
	Content  string   `json:"content"`
	Metadata Metadata `json:"metadata"`
}

// Assembler gathers context and asks a provider.
type Assembler struct {
	data     DataSource
	provider Provider
	logger   zerolog.Logger
}

// NewAssembler creates an assembler bound to one provider.
func NewAssembler(data DataSource, provider Provider, logger zerolog.Logger) *Assembler {
	return &Assembler{
		data:     data,
		provider: provider,
		logger:   logger.With().Str("component", "advisor").Logger(),
	}
}

// Gather fetches weather (when a valid location is given) and the three
// datasets concurrently. Fetchers never fail, so neither does Gather.
func (a *Assembler) Gather(ctx context.Context, loc *models.Location) models.PromptContext {
	var (
		pc         models.PromptContext
		market     models.Dataset[models.MarketPrice]
		pests      models.Dataset[models.PestAlert]
		advisories models.Dataset[models.GovernmentAdvisory]
	)

	eg, egCtx := errgroup.WithContext(ctx)
	if loc != nil && loc.Valid() {
		eg.Go(func() error {
			pc.Weather = a.data.FetchWeather(egCtx, loc.Lat, loc.Lon)
			return nil
		})
	}
	eg.Go(func() error {
		market = a.data.FetchMarketPrices(egCtx, sources.MarketFilter{})
		return nil
	})
	eg.Go(func() error {
		pests = a.data.FetchPestAlerts(egCtx, sources.PestFilter{})
		return nil
	})
	eg.Go(func() error {
		advisories = a.data.FetchGovernmentAdvisories(egCtx, sources.AdvisoryFilter{})
		return nil
	})
	_ = eg.Wait()

	pc.Market = market.Items
	pc.PestAlerts = pests.Items
	pc.GovernmentAdvisories = advisories.Items
	pc.Provenance = map[string]models.Provenance{
		sources.SourceMarket:     market.Provenance,
		sources.SourcePestAlerts: pests.Provenance,
		sources.SourceAdvisories: advisories.Provenance,
	}
	return pc
}

// Respond builds the prompt for req and returns the provider's reply.
// Provider errors are returned to the caller; there is no fallback to
// another provider unless the assembler was built with a Chain.
func (a *Assembler) Respond(ctx context.Context, req Request) (Reply, error) {
	if strings.TrimSpace(req.Message) == "" {
		return Reply{}, models.ErrMessageRequired
	}
	lang := req.Language
	if lang == "" {
		lang = models.LanguageEnglish
	}

	ctx, span := tracing.StartAssembleSpan(ctx, string(lang))
	defer span.End()

	pc := a.Gather(ctx, req.Location)
	prompt := BuildSystemPrompt(pc, lang)

	var (
		content string
		name    = a.provider.Name()
		err     error
	)
	if chain, ok := a.provider.(*Chain); ok {
		content, name, err = chain.CompleteWithProvider(ctx, prompt, req.Message)
	} else {
		content, err = a.provider.Complete(ctx, prompt, req.Message)
	}
	if err != nil {
		tracing.RecordError(span, err)
		return Reply{}, fmt.Errorf("provider %s: %w", a.provider.Name(), err)
	}
	tracing.SetSpanOK(span)

	a.logger.Debug().
		Str("provider", name).
		Str("language", string(lang)).
		Bool("weather", pc.Weather != nil).
		Msg("Chat reply assembled")

	return Reply{
		Content: content,
		Metadata: Metadata{
			Provider:             name,
			WeatherData:          pc.Weather,
			MarketData:           pc.Market,
			PestAlerts:           pc.PestAlerts,
			GovernmentAdvisories: pc.GovernmentAdvisories,
			Provenance:           pc.Provenance,
		},
	}, nil
}

// ProviderName returns the name of the bound provider.
func (a *Assembler) ProviderName() string {
	return a.provider.Name()
}
