// Package sources fetches the agricultural feeds that back the data routes
// and the chat context: mandi prices, pest alerts, government advisories
// and current weather.
//
// Every list fetcher tries a primary JSON source under a fixed timeout, then
// an optional CSV feed, then a built-in list. Fetchers never fail; the
// returned Dataset records which tier produced it.
package sources

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mabhinav2955-coder/kisan-sub000/internal/metrics"
	"github.com/mabhinav2955-coder/kisan-sub000/internal/models"
	"github.com/mabhinav2955-coder/kisan-sub000/internal/tracing"
	"github.com/mabhinav2955-coder/kisan-sub000/pkg/clock"
	"github.com/rs/zerolog"
)

// Source names used in logs, metrics and record provenance.
const (
	SourceMarket     = "market-prices"
	SourcePestAlerts = "pest-alerts"
	SourceAdvisories = "government-advisories"
	SourceWeather    = "weather"
)

const maxBodyBytes = 8 << 20

var errNotConfigured = errors.New("source not configured")

// Config configures the upstream endpoints.
type Config struct {
	// PrimaryTimeout bounds each primary attempt.
	PrimaryTimeout time.Duration
	Market         MarketConfig
	PestAlerts     FeedConfig
	Advisories     FeedConfig
	WeatherURL     string
}

// MarketConfig configures the data.gov.in Agmarknet resource API.
type MarketConfig struct {
	BaseURL    string
	APIKey     string
	ResourceID string
	State      string
	CSVURL     string
}

// FeedConfig is a JSON feed with an optional CSV fallback.
type FeedConfig struct {
	URL    string
	CSVURL string
}

// DefaultConfig returns endpoints for the public services.
func DefaultConfig() Config {
	return Config{
		PrimaryTimeout: 4 * time.Second,
		Market: MarketConfig{
			BaseURL: "https://api.data.gov.in/resource",
			State:   "Kerala",
		},
		WeatherURL: "https://api.open-meteo.com/v1/forecast",
	}
}

// Client fetches upstream feeds.
type Client struct {
	config  Config
	http    *http.Client
	logger  zerolog.Logger
	metrics *metrics.Metrics
	clock   clock.Clock
}

// ClientOption configures the client.
type ClientOption func(*Client)

// WithHTTPClient sets the HTTP client used for every request.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.http = hc
	}
}

// WithMetrics records fetch outcomes.
func WithMetrics(m *metrics.Metrics) ClientOption {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithClock sets the clock used to date built-in records.
func WithClock(clk clock.Clock) ClientOption {
	return func(c *Client) {
		c.clock = clk
	}
}

// New creates a feed client.
func New(config Config, logger zerolog.Logger, opts ...ClientOption) *Client {
	if config.PrimaryTimeout <= 0 {
		config.PrimaryTimeout = 4 * time.Second
	}
	c := &Client{
		config: config,
		http: &http.Client{
			Timeout: 15 * time.Second,
		},
		logger: logger.With().Str("component", "sources").Logger(),
		clock:  clock.New(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// tiered runs the primary/secondary/fallback chain for one feed and records
// the outcome.
func (c *Client) tiered(ctx context.Context, source string, primary, secondary func(context.Context) ([]record, error)) ([]record, models.Provenance) {
	start := c.clock.Now()

	rows, err := primary(ctx)
	if err == nil && len(rows) > 0 {
		c.metrics.RecordUpstreamFetch(source, string(models.ProvenanceLive), c.clock.Since(start))
		return rows, models.ProvenanceLive
	}
	if err == nil {
		err = errors.New("empty response")
	}
	if !errors.Is(err, errNotConfigured) {
		c.logger.Warn().Err(err).Str("source", source).Msg("Primary feed failed, trying secondary")
	}

	rows, err = secondary(ctx)
	if err == nil && len(rows) > 0 {
		c.metrics.RecordUpstreamFetch(source, string(models.ProvenanceSecondary), c.clock.Since(start))
		return rows, models.ProvenanceSecondary
	}
	if err == nil {
		err = errors.New("empty response")
	}
	if !errors.Is(err, errNotConfigured) {
		c.logger.Warn().Err(err).Str("source", source).Msg("Secondary feed failed, using built-in data")
	}

	c.metrics.RecordUpstreamFetch(source, string(models.ProvenanceFallback), c.clock.Since(start))
	return nil, models.ProvenanceFallback
}

// getJSONRecords performs a primary request bounded by PrimaryTimeout and
// returns the array of objects found in the body.
func (c *Client) getJSONRecords(ctx context.Context, source, rawURL string) ([]record, error) {
	if rawURL == "" {
		return nil, errNotConfigured
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.PrimaryTimeout)
	defer cancel()

	ctx, span := tracing.StartFetchSpan(ctx, source, "primary", redactURL(rawURL))
	defer span.End()

	body, err := c.get(ctx, rawURL, "application/json")
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}
	defer body.Close()

	var raw json.RawMessage
	if err := json.NewDecoder(io.LimitReader(body, maxBodyBytes)).Decode(&raw); err != nil {
		tracing.RecordError(span, err)
		return nil, fmt.Errorf("failed to decode %s response: %w", source, err)
	}
	rows, err := recordsFromJSON(raw)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}
	tracing.SetSpanOK(span)
	return rows, nil
}

// getCSVRecords reads a CSV feed whose first row is the header.
func (c *Client) getCSVRecords(ctx context.Context, source, rawURL string) ([]record, error) {
	if rawURL == "" {
		return nil, errNotConfigured
	}

	ctx, span := tracing.StartFetchSpan(ctx, source, "secondary", redactURL(rawURL))
	defer span.End()

	body, err := c.get(ctx, rawURL, "text/csv")
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}
	defer body.Close()

	rows, err := recordsFromCSV(io.LimitReader(body, maxBodyBytes))
	if err != nil {
		tracing.RecordError(span, err)
		return nil, fmt.Errorf("failed to parse %s csv: %w", source, err)
	}
	tracing.SetSpanOK(span)
	return rows, nil
}

func (c *Client) get(ctx context.Context, rawURL, accept string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", accept)
	tracing.InjectHTTP(ctx, req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, redactURL(rawURL))
	}
	return resp.Body, nil
}

func (c *Client) today() string {
	return c.clock.Now().Format("2006-01-02")
}

// redactURL drops the query string, which may carry API keys.
func redactURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "invalid-url"
	}
	u.RawQuery = ""
	return u.String()
}

// record is one upstream row with lower-cased, underscore-joined keys.
type record map[string]string

// get returns the first non-empty value among the given keys.
func (r record) get(keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(r[k]); v != "" {
			return v
		}
	}
	return ""
}

func normalizeKey(k string) string {
	k = strings.ToLower(strings.TrimSpace(k))
	k = strings.TrimPrefix(k, "\ufeff")
	return strings.NewReplacer(" ", "_", "-", "_").Replace(k)
}

// recordsFromJSON accepts a bare array or an object wrapping one under a
// common key.
func recordsFromJSON(raw json.RawMessage) ([]record, error) {
	var items []map[string]any
	if err := json.Unmarshal(raw, &items); err != nil {
		var wrapped map[string]json.RawMessage
		if err := json.Unmarshal(raw, &wrapped); err != nil {
			return nil, fmt.Errorf("response is neither an array nor an object")
		}
		found := false
		for _, key := range []string{"records", "data", "alerts", "advisories", "schemes", "items", "results"} {
			if inner, ok := wrapped[key]; ok {
				if err := json.Unmarshal(inner, &items); err == nil {
					found = true
					break
				}
			}
		}
		if !found {
			return nil, fmt.Errorf("no record array in response")
		}
	}

	rows := make([]record, 0, len(items))
	for _, item := range items {
		row := make(record, len(item))
		for k, v := range item {
			row[normalizeKey(k)] = stringify(v)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		if val {
			return "true"
		}
		return "false"
	case []any:
		parts := make([]string, 0, len(val))
		for _, p := range val {
			parts = append(parts, stringify(p))
		}
		return strings.Join(parts, ",")
	default:
		b, _ := json.Marshal(val)
		return string(b)
	}
}

func recordsFromCSV(r io.Reader) ([]record, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, err
	}
	for i := range header {
		header[i] = normalizeKey(header[i])
	}

	var rows []record
	for {
		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		row := make(record, len(header))
		for i, name := range header {
			if i < len(fields) {
				row[name] = fields[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}
