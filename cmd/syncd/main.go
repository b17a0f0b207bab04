package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/arunvilla/Finomini-POC-sub002/internal/config"
	"github.com/arunvilla/Finomini-POC-sub002/internal/domain"
	"github.com/arunvilla/Finomini-POC-sub002/internal/handler"
	"github.com/arunvilla/Finomini-POC-sub002/internal/infra/cache"
	"github.com/arunvilla/Finomini-POC-sub002/internal/infra/memstore"
	"github.com/arunvilla/Finomini-POC-sub002/internal/infra/observability"
	"github.com/arunvilla/Finomini-POC-sub002/internal/infra/provider"
	"github.com/arunvilla/Finomini-POC-sub002/internal/infra/resilience"
	"github.com/arunvilla/Finomini-POC-sub002/internal/service"

	"go.uber.org/zap"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("provider_api_url", cfg.ProviderAPIURL),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("initial_backoff", cfg.InitialBackoff),
		zap.Int("max_concurrent_syncs", cfg.MaxConcurrentSyncs),
		zap.Bool("dev_mode", cfg.DevMode),
	)

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "finomini-syncd")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Provider client ---
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	cb := resilience.NewCircuitBreaker("provider")
	providerClient := provider.NewClient(
		httpClient,
		cfg.ProviderAPIURL,
		cfg.ProviderClientID,
		cfg.ProviderSecret,
		cb,
		metrics,
		logger,
	)

	// --- Stores ---
	// In-memory stores; the app backend swaps in its persistence layer
	// through the same ports.
	txStore := memstore.NewTransactionStore()
	linkStore := memstore.NewLinkStore()
	if cfg.DevMode {
		seedDevLinks(linkStore, logger)
	}

	accountCache := cache.New[[]domain.ProviderAccount](cfg.AccountCacheTTL)

	// --- Services ---
	day := 24 * time.Hour
	fetcher := service.NewFetcher(providerClient, service.FetcherConfig{
		PageSize:      cfg.PageSize,
		DefaultWindow: time.Duration(cfg.DefaultFetchWindowDays) * day,
		MaxWindow:     time.Duration(cfg.FullHistoryDays) * day,
		Retry: resilience.Config{
			MaxRetries:     cfg.MaxRetries,
			InitialBackoff: cfg.InitialBackoff,
			MaxBackoff:     cfg.MaxBackoff,
		},
	}, metrics, logger)

	transformer := service.NewTransformer()
	matcher := service.NewMatcher(service.MatcherConfig{
		AmountTolerance: cfg.MatchAmountTolerance,
		DateWindow:      cfg.MatchDateWindow,
	})
	reconciler := service.NewReconciler(matcher, logger)

	syncer := service.NewSyncer(
		fetcher,
		transformer,
		reconciler,
		providerClient,
		txStore,
		linkStore,
		accountCache,
		service.SyncConfig{
			SafetyMargin:  time.Duration(cfg.SafetyMarginDays) * day,
			DefaultWindow: time.Duration(cfg.IncrementalWindowDays) * day,
			FullWindow:    time.Duration(cfg.FullHistoryDays) * day,
			MaxConcurrent: cfg.MaxConcurrentSyncs,
		},
		metrics,
		logger,
	)

	// --- Router ---
	router := handler.NewRouter(syncer, txStore, linkStore, metrics, cfg.JWTSecret, logger)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 120 * time.Second, // full-history syncs are slow
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}

// seedDevLinks registers sandbox links so local runs have something to sync.
func seedDevLinks(linkStore *memstore.LinkStore, logger *zap.Logger) {
	now := time.Now()
	linkStore.Seed(
		domain.AccountLink{
			ID:              "link-sandbox-1",
			InstitutionID:   "ins_109508",
			InstitutionName: "First Platypus Bank",
			AccessToken:     "access-sandbox-11111111",
			CreatedAt:       now,
		},
		domain.AccountLink{
			ID:              "link-sandbox-2",
			InstitutionID:   "ins_109509",
			InstitutionName: "Second Platypus Credit Union",
			AccessToken:     "access-sandbox-22222222",
			CreatedAt:       now,
		},
	)
	logger.Info("dev mode: seeded sandbox links", zap.Int("count", 2))
}
