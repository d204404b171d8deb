// Krishi Sakhi - farm advisory API
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/mabhinav2955-coder/kisan-sub000/internal/advisor"
	"github.com/mabhinav2955-coder/kisan-sub000/internal/api"
	"github.com/mabhinav2955-coder/kisan-sub000/internal/cache"
	"github.com/mabhinav2955-coder/kisan-sub000/internal/config"
	"github.com/mabhinav2955-coder/kisan-sub000/internal/metrics"
	"github.com/mabhinav2955-coder/kisan-sub000/internal/sources"
	"github.com/mabhinav2955-coder/kisan-sub000/internal/storage"
	"github.com/mabhinav2955-coder/kisan-sub000/internal/tracing"
	"github.com/mabhinav2955-coder/kisan-sub000/pkg/clock"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "krishi.yaml", "Path to configuration file")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("Krishi Sakhi %s (built %s)\n", Version, BuildTime)
		os.Exit(0)
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration from %s: %v\n", *configPath, err)
		os.Exit(1)
	}

	// Setup logger
	logger := setupLogger(cfg.Logging)

	logger.Info().
		Str("version", Version).
		Str("build_time", BuildTime).
		Msg("Starting Krishi Sakhi")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize tracing
	tp, err := tracing.InitProvider(ctx, cfg.Tracing, Version)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize tracing")
	}

	// Initialize metrics
	var m *metrics.Metrics
	if cfg.Metrics.Prometheus.Enabled {
		m = metrics.New()
	}

	clk := clock.New()

	dataCache := cache.New(cache.Config{
		MaxEntries: cfg.Cache.MaxEntries,
		OnEvict: func(key string) {
			m.RecordCacheEviction()
			logger.Debug().Str("key", key).Msg("Evicted cache entry")
		},
	}, clk)

	// Upstream feeds
	data := sources.New(sourcesConfig(cfg.Sources), logger,
		sources.WithHTTPClient(&http.Client{Timeout: cfg.Sources.ClientTimeout.Duration()}),
		sources.WithMetrics(m),
		sources.WithClock(clk),
	)

	// LLM providers
	llmCfg := advisorConfig(cfg.LLM)
	chatProvider, err := buildProvider(ctx, cfg.LLM.Provider, llmCfg, m, clk, logger)
	if err != nil {
		logger.Fatal().Err(err).Str("provider", cfg.LLM.Provider).Msg("Failed to initialize LLM provider")
	}

	chain := make([]advisor.Provider, 0, len(cfg.LLM.MobileChain))
	for _, name := range cfg.LLM.MobileChain {
		p, err := buildProvider(ctx, name, llmCfg, m, clk, logger)
		if err != nil {
			logger.Fatal().Err(err).Str("provider", name).Msg("Failed to initialize LLM provider")
		}
		chain = append(chain, p)
	}

	mobile := advisor.NewAssembler(data, chatProvider, logger)
	if len(chain) > 0 {
		mobile = advisor.NewAssembler(data, advisor.NewChain(chain, advisor.DefaultBreakerConfig(), clk, logger), logger)
	}

	// Initialize storage
	store, err := openStore(cfg.Storage, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize storage")
	}
	defer store.Close()

	// Initialize API
	handler := api.NewHandler(api.Dependencies{
		Cache:   dataCache,
		Data:    data,
		Chat:    advisor.NewAssembler(data, chatProvider, logger),
		Mobile:  mobile,
		Store:   store,
		Metrics: m,
		Clock:   clk,
		DataTTL: cfg.Cache.TTL.Duration(),
	}, logger)

	routerCfg := api.RouterConfig{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Metrics:        m,
		RequestTimeout: cfg.Server.HTTP.RequestTimeout.Duration(),
	}
	if cfg.Metrics.Prometheus.Enabled {
		routerCfg.MetricsPath = cfg.Metrics.Prometheus.Path
	}
	if cfg.RateLimit.Enabled {
		limiterCfg := api.DefaultRateLimitConfig()
		limiterCfg.RequestsPerSecond = cfg.RateLimit.RequestsPerSecond
		limiterCfg.BurstSize = cfg.RateLimit.BurstSize
		limiterCfg.Metrics = m
		routerCfg.RateLimiter = api.NewRateLimiter(limiterCfg)
		defer routerCfg.RateLimiter.Stop()
	}
	router := api.NewRouterWithConfig(handler, logger, routerCfg)

	// Start HTTP server
	server := &http.Server{
		Addr:         cfg.Server.HTTP.Address,
		Handler:      router,
		ReadTimeout:  cfg.Server.HTTP.ReadTimeout.Duration(),
		WriteTimeout: cfg.Server.HTTP.WriteTimeout.Duration(),
	}

	go func() {
		logger.Info().
			Str("address", cfg.Server.HTTP.Address).
			Str("provider", cfg.LLM.Provider).
			Strs("mobile_chain", cfg.LLM.MobileChain).
			Msg("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Stop HTTP server
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	// Flush spans
	if err := tp.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Tracing shutdown failed")
	}

	logger.Info().Msg("Krishi Sakhi stopped")
}

func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339

	var logger zerolog.Logger
	if cfg.Format == "json" {
		logger = zerolog.New(os.Stdout).With().Timestamp().Caller().Logger()
	} else {
		output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		logger = zerolog.New(output).With().Timestamp().Caller().Logger()
	}

	switch cfg.Level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	return logger
}

func sourcesConfig(cfg config.SourcesConfig) sources.Config {
	return sources.Config{
		PrimaryTimeout: cfg.PrimaryTimeout.Duration(),
		Market: sources.MarketConfig{
			BaseURL:    cfg.Market.BaseURL,
			APIKey:     cfg.Market.APIKey,
			ResourceID: cfg.Market.ResourceID,
			State:      cfg.Market.State,
			CSVURL:     cfg.Market.CSVURL,
		},
		PestAlerts: sources.FeedConfig{URL: cfg.PestAlerts.URL, CSVURL: cfg.PestAlerts.CSVURL},
		Advisories: sources.FeedConfig{URL: cfg.Advisories.URL, CSVURL: cfg.Advisories.CSVURL},
		WeatherURL: cfg.Weather.BaseURL,
	}
}

func advisorConfig(cfg config.LLMConfig) advisor.Config {
	provider := func(pc config.ProviderConfig) advisor.ProviderConfig {
		return advisor.ProviderConfig{APIKey: pc.APIKey, Model: pc.Model, BaseURL: pc.BaseURL}
	}
	return advisor.Config{
		Provider:    cfg.Provider,
		Timeout:     cfg.Timeout.Duration(),
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
		OpenAI:      provider(cfg.OpenAI),
		Groq:        provider(cfg.Groq),
		Gemini:      provider(cfg.Gemini),
	}
}

func buildProvider(ctx context.Context, name string, cfg advisor.Config, m *metrics.Metrics, clk clock.Clock, logger zerolog.Logger) (advisor.Provider, error) {
	p, err := advisor.NewProvider(ctx, name, cfg)
	if err != nil {
		return nil, err
	}
	return advisor.Instrument(p, m, clk, logger), nil
}

func openStore(cfg config.StorageConfig, logger zerolog.Logger) (storage.ActivityStore, error) {
	if cfg.Backend == "memory" {
		logger.Warn().Msg("Using in-memory activity store, activities are lost on restart")
		return storage.NewMemoryStore(), nil
	}
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return storage.NewBadgerStore(cfg.DataDir, logger)
}
