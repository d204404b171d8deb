package advisor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"github.com/mabhinav2955-coder/kisan-sub000/internal/metrics"
	"github.com/mabhinav2955-coder/kisan-sub000/internal/models"
	"github.com/mabhinav2955-coder/kisan-sub000/internal/sources"
	"github.com/mabhinav2955-coder/kisan-sub000/pkg/clock"
)

type fakeProvider struct {
	name   string
	reply  string
	err    error
	calls  atomic.Int32
	system string
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) Complete(ctx context.Context, systemPrompt, userMessage string) (string, error) {
	p.calls.Add(1)
	p.system = systemPrompt
	if p.err != nil {
		return "", p.err
	}
	return p.reply, nil
}

type fakeData struct {
	weatherCalls atomic.Int32
}

func (d *fakeData) FetchWeather(ctx context.Context, lat, lon float64) *models.Weather {
	d.weatherCalls.Add(1)
	return &models.Weather{Temperature: 31, Humidity: 70, Description: "partly cloudy"}
}

func (d *fakeData) FetchMarketPrices(ctx context.Context, filter sources.MarketFilter) models.Dataset[models.MarketPrice] {
	items := make([]models.MarketPrice, 5)
	for i := range items {
		items[i] = models.MarketPrice{Crop: fmt.Sprintf("Crop%d", i), Market: "Palakkad", ModalPrice: 3000, Unit: "₹/quintal"}
	}
	return models.Dataset[models.MarketPrice]{Items: items, Provenance: models.ProvenanceLive}
}

func (d *fakeData) FetchPestAlerts(ctx context.Context, filter sources.PestFilter) models.Dataset[models.PestAlert] {
	return models.Dataset[models.PestAlert]{
		Items: []models.PestAlert{
			{Pest: "Pest0", Crop: "Rice"}, {Pest: "Pest1", Crop: "Rice"}, {Pest: "Pest2", Crop: "Rice"},
		},
		Provenance: models.ProvenanceFallback,
	}
}

func (d *fakeData) FetchGovernmentAdvisories(ctx context.Context, filter sources.AdvisoryFilter) models.Dataset[models.GovernmentAdvisory] {
	return models.Dataset[models.GovernmentAdvisory]{
		Items:      []models.GovernmentAdvisory{{Scheme: "Scheme0"}, {Scheme: "Scheme1"}, {Scheme: "Scheme2"}},
		Provenance: models.ProvenanceSecondary,
	}
}

func TestBuildSystemPrompt_Limits(t *testing.T) {
	pc := (&Assembler{data: &fakeData{}}).Gather(context.Background(), &models.Location{Lat: 10, Lon: 76})
	prompt := BuildSystemPrompt(pc, models.LanguageEnglish)

	for _, want := range []string{"Crop0", "Crop2", "Pest1", "Scheme1", "31.0°C", "Respond in English."} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	for _, unwanted := range []string{"Crop3", "Pest2", "Scheme2"} {
		if strings.Contains(prompt, unwanted) {
			t.Errorf("prompt should not contain %q", unwanted)
		}
	}
}

func TestBuildSystemPrompt_MalayalamWithoutData(t *testing.T) {
	prompt := BuildSystemPrompt(models.PromptContext{}, models.LanguageMalayalam)
	if !strings.Contains(prompt, "Malayalam") {
		t.Error("expected Malayalam instruction")
	}
	if strings.Contains(prompt, "Market prices") || strings.Contains(prompt, "Current weather") {
		t.Error("empty sections should be omitted")
	}
}

func TestGather_WeatherOnlyWithLocation(t *testing.T) {
	data := &fakeData{}
	a := NewAssembler(data, &fakeProvider{name: "fake"}, zerolog.Nop())

	pc := a.Gather(context.Background(), nil)
	if pc.Weather != nil || data.weatherCalls.Load() != 0 {
		t.Error("weather fetched without a location")
	}
	if len(pc.Market) != 5 || len(pc.PestAlerts) != 3 || len(pc.GovernmentAdvisories) != 3 {
		t.Errorf("unexpected context sizes %d/%d/%d", len(pc.Market), len(pc.PestAlerts), len(pc.GovernmentAdvisories))
	}
	if pc.Provenance[sources.SourcePestAlerts] != models.ProvenanceFallback {
		t.Errorf("pest provenance = %q", pc.Provenance[sources.SourcePestAlerts])
	}

	pc = a.Gather(context.Background(), &models.Location{Lat: 200, Lon: 0})
	if pc.Weather != nil {
		t.Error("weather fetched for an invalid location")
	}
}

func TestRespond(t *testing.T) {
	p := &fakeProvider{name: "fake", reply: "Drain the field."}
	a := NewAssembler(&fakeData{}, p, zerolog.Nop())

	reply, err := a.Respond(context.Background(), Request{
		Message:  "My paddy leaves are yellow",
		Language: models.LanguageMalayalam,
		Location: &models.Location{Lat: 10.5, Lon: 76.2},
	})
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if reply.Content != "Drain the field." || reply.Metadata.Provider != "fake" {
		t.Errorf("unexpected reply %+v", reply)
	}
	if reply.Metadata.WeatherData == nil || len(reply.Metadata.MarketData) != 5 {
		t.Error("metadata missing gathered data")
	}
	if !strings.Contains(p.system, "Malayalam") {
		t.Error("system prompt missing language instruction")
	}

	b, err := json.Marshal(reply)
	if err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{`"content"`, `"weatherData"`, `"marketData"`, `"pestAlerts"`, `"governmentAdvisories"`} {
		if !strings.Contains(string(b), key) {
			t.Errorf("reply JSON missing %s", key)
		}
	}
}

func TestRespond_Errors(t *testing.T) {
	a := NewAssembler(&fakeData{}, &fakeProvider{name: "fake", reply: "x"}, zerolog.Nop())
	if _, err := a.Respond(context.Background(), Request{Message: "  "}); !errors.Is(err, models.ErrMessageRequired) {
		t.Errorf("expected ErrMessageRequired, got %v", err)
	}

	boom := errors.New("boom")
	a = NewAssembler(&fakeData{}, &fakeProvider{name: "fake", err: boom}, zerolog.Nop())
	if _, err := a.Respond(context.Background(), Request{Message: "hi"}); !errors.Is(err, boom) {
		t.Errorf("expected provider error, got %v", err)
	}
}

func TestRespond_ChainReportsAnsweringProvider(t *testing.T) {
	first := &fakeProvider{name: ProviderOpenAI, err: errors.New("quota")}
	second := &fakeProvider{name: ProviderGemini, reply: "ok"}
	chain := NewChain([]Provider{first, second}, DefaultBreakerConfig(), nil, zerolog.Nop())
	a := NewAssembler(&fakeData{}, chain, zerolog.Nop())

	reply, err := a.Respond(context.Background(), Request{Message: "hi"})
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if reply.Metadata.Provider != ProviderGemini {
		t.Errorf("provider = %q, want gemini", reply.Metadata.Provider)
	}
}

func TestChain_BreakerSkipsFailingProvider(t *testing.T) {
	clk := clock.NewMock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	first := &fakeProvider{name: "first", err: errors.New("down")}
	second := &fakeProvider{name: "second", reply: "ok"}
	chain := NewChain([]Provider{first, second}, BreakerConfig{FailureThreshold: 2, Cooldown: time.Minute}, clk, zerolog.Nop())

	for i := 0; i < 4; i++ {
		if _, _, err := chain.CompleteWithProvider(context.Background(), "s", "u"); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}
	if got := first.calls.Load(); got != 2 {
		t.Errorf("first provider called %d times, want 2 before the breaker opened", got)
	}
	if chain.States()["first"] != "open" {
		t.Errorf("first breaker = %s, want open", chain.States()["first"])
	}

	clk.Add(time.Minute)
	first.err = nil
	first.reply = "back"
	content, name, err := chain.CompleteWithProvider(context.Background(), "s", "u")
	if err != nil || content != "back" || name != "first" {
		t.Errorf("trial call = %q %q %v", content, name, err)
	}
	if chain.States()["first"] != "closed" {
		t.Errorf("first breaker = %s, want closed", chain.States()["first"])
	}
}

// cancellingProvider ends the caller's context mid-call, as a client that
// hangs up would.
type cancellingProvider struct {
	name   string
	cancel context.CancelFunc
	calls  atomic.Int32
}

func (p *cancellingProvider) Name() string { return p.name }

func (p *cancellingProvider) Complete(ctx context.Context, systemPrompt, userMessage string) (string, error) {
	p.calls.Add(1)
	p.cancel()
	<-ctx.Done()
	return "", fmt.Errorf("request: %w", ctx.Err())
}

func TestChain_CancelledCallerDoesNotTripBreaker(t *testing.T) {
	first := &cancellingProvider{name: "openai"}
	second := &fakeProvider{name: "gemini", reply: "ok"}
	chain := NewChain([]Provider{first, second}, DefaultBreakerConfig(), clock.NewMock(time.Now()), zerolog.Nop())

	for i := 0; i < 5; i++ {
		ctx, cancel := context.WithCancel(context.Background())
		first.cancel = cancel
		_, _, err := chain.CompleteWithProvider(ctx, "s", "u")
		if !errors.Is(err, context.Canceled) {
			t.Errorf("call %d: expected context.Canceled, got %v", i, err)
		}
	}

	if got := chain.States()["openai"]; got != "closed" {
		t.Errorf("openai breaker = %s, want closed", got)
	}
	if got := first.calls.Load(); got != 5 {
		t.Errorf("openai called %d times, want 5", got)
	}
	if got := second.calls.Load(); got != 0 {
		t.Errorf("gemini called %d times after the caller gave up", got)
	}
}

func TestChain_DeadlineDoesNotTripBreaker(t *testing.T) {
	var calls atomic.Int32
	chain := NewChain([]Provider{providerFunc{name: "openai", fn: func(ctx context.Context) (string, error) {
		calls.Add(1)
		<-ctx.Done()
		return "", ctx.Err()
	}}}, DefaultBreakerConfig(), nil, zerolog.Nop())

	for i := 0; i < 3; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
		_, err := chain.Complete(ctx, "s", "u")
		cancel()
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("call %d: expected deadline error, got %v", i, err)
		}
	}
	if got := chain.States()["openai"]; got != "closed" {
		t.Errorf("breaker = %s, want closed", got)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("provider called %d times, want 3", got)
	}
}

type providerFunc struct {
	name string
	fn   func(ctx context.Context) (string, error)
}

func (p providerFunc) Name() string { return p.name }

func (p providerFunc) Complete(ctx context.Context, systemPrompt, userMessage string) (string, error) {
	return p.fn(ctx)
}

func TestInstrument_RecordsLatencyFromClock(t *testing.T) {
	clk := clock.NewMock(time.Date(2025, 1, 20, 9, 0, 0, 0, time.UTC))
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegisterer(reg)

	slow := providerFunc{name: "groq", fn: func(ctx context.Context) (string, error) {
		clk.Add(2 * time.Second)
		return "Irrigate at dawn.", nil
	}}
	p := Instrument(slow, m, clk, zerolog.Nop())
	if p.Name() != "groq" {
		t.Errorf("name = %q", p.Name())
	}

	content, err := p.Complete(context.Background(), "s", "u")
	if err != nil || content != "Irrigate at dawn." {
		t.Fatalf("Complete = %q, %v", content, err)
	}

	failing := Instrument(&fakeProvider{name: "gemini", err: errors.New("quota")}, m, clk, zerolog.Nop())
	if _, err := failing.Complete(context.Background(), "s", "u"); err == nil {
		t.Fatal("expected error")
	}

	if got := testutil.ToFloat64(m.LLMRequestsTotal.WithLabelValues("groq", "success")); got != 1 {
		t.Errorf("groq success = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.LLMRequestsTotal.WithLabelValues("gemini", "error")); got != 1 {
		t.Errorf("gemini error = %v, want 1", got)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}
	var sum float64
	var found bool
	for _, mf := range families {
		if !strings.HasSuffix(mf.GetName(), "llm_request_duration_seconds") {
			continue
		}
		for _, metric := range mf.GetMetric() {
			for _, label := range metric.GetLabel() {
				if label.GetName() == "provider" && label.GetValue() == "groq" {
					sum = metric.GetHistogram().GetSampleSum()
					found = true
				}
			}
		}
	}
	if !found || sum != 2 {
		t.Errorf("groq latency sum = %v (found %v), want 2s", sum, found)
	}
}

func TestChain_AllFail(t *testing.T) {
	chain := NewChain([]Provider{
		&fakeProvider{name: "a", err: models.ErrProviderNotConfigured},
		&fakeProvider{name: "b", err: errors.New("timeout")},
	}, DefaultBreakerConfig(), nil, zerolog.Nop())

	_, err := chain.Complete(context.Background(), "s", "u")
	if !errors.Is(err, models.ErrAllProvidersFailed) {
		t.Errorf("expected ErrAllProvidersFailed, got %v", err)
	}
	if !errors.Is(err, models.ErrProviderNotConfigured) {
		t.Errorf("expected joined cause, got %v", err)
	}
}

func TestChatCompletions(t *testing.T) {
	var got chatRequest
	var auth, path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		path = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":" Use neem oil. "}}]}`)
	}))
	defer srv.Close()

	cfg := DefaultConfig()
	cfg.Groq = ProviderConfig{APIKey: "gsk", BaseURL: srv.URL + "/openai/v1/"}
	p, err := NewProvider(context.Background(), "GROQ", cfg)
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	if p.Name() != ProviderGroq {
		t.Errorf("name = %q", p.Name())
	}

	content, err := p.Complete(context.Background(), "system", "aphids on okra")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if content != "Use neem oil." {
		t.Errorf("content = %q", content)
	}
	if auth != "Bearer gsk" || path != "/openai/v1/chat/completions" {
		t.Errorf("auth=%q path=%q", auth, path)
	}
	if got.Model != "llama-3.1-8b-instant" || len(got.Messages) != 2 || got.Messages[0].Role != "system" {
		t.Errorf("unexpected request %+v", got)
	}
}

func TestChatCompletions_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"rate limited"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	cfg := DefaultConfig()
	cfg.OpenAI = ProviderConfig{APIKey: "sk", BaseURL: srv.URL}
	p, _ := NewProvider(context.Background(), "", cfg)
	_, err := p.Complete(context.Background(), "s", "u")
	if err == nil || !strings.Contains(err.Error(), "429") {
		t.Errorf("expected status error, got %v", err)
	}
}

func TestNewProvider_Unconfigured(t *testing.T) {
	for _, name := range []string{ProviderOpenAI, ProviderGroq, ProviderGemini} {
		t.Run(name, func(t *testing.T) {
			p, err := NewProvider(context.Background(), name, DefaultConfig())
			if err != nil {
				t.Fatalf("NewProvider: %v", err)
			}
			if _, err := p.Complete(context.Background(), "s", "u"); !errors.Is(err, models.ErrProviderNotConfigured) {
				t.Errorf("expected ErrProviderNotConfigured, got %v", err)
			}
		})
	}

	if _, err := NewProvider(context.Background(), "claude", DefaultConfig()); !errors.Is(err, models.ErrUnsupportedProvider) {
		t.Errorf("expected ErrUnsupportedProvider, got %v", err)
	}
}

func TestGemini(t *testing.T) {
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"candidates":[{"content":{"role":"model","parts":[{"text":"Apply lime before planting."}]}}]}`)
	}))
	defer srv.Close()

	cfg := DefaultConfig()
	cfg.Gemini = ProviderConfig{APIKey: "g-key", BaseURL: srv.URL}
	p, err := NewProvider(context.Background(), ProviderGemini, cfg)
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	content, err := p.Complete(context.Background(), "system", "acidic soil")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if content != "Apply lime before planting." {
		t.Errorf("content = %q", content)
	}
	if !strings.Contains(path, "gemini-1.5-flash:generateContent") {
		t.Errorf("path = %q", path)
	}
}
