package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/arunvilla/Finomini-POC-sub002/internal/domain"
	"github.com/arunvilla/Finomini-POC-sub002/internal/infra/observability"
	"github.com/arunvilla/Finomini-POC-sub002/internal/infra/resilience"
	"github.com/arunvilla/Finomini-POC-sub002/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var fetchTracer = otel.Tracer("service/fetcher")

// FetcherConfig bounds the fetch windows and pagination.
type FetcherConfig struct {
	PageSize      int           // records per provider page
	DefaultWindow time.Duration // window when the caller passes no start
	MaxWindow     time.Duration // hard ceiling; wider windows are clamped
	Retry         resilience.Config
}

// DefaultFetcherConfig returns the standard bounds: 500-record pages, a
// 30-day default window, a 2-year ceiling, and 3 retries starting at 1s
// capped at 30s.
func DefaultFetcherConfig() FetcherConfig {
	return FetcherConfig{
		PageSize:      500,
		DefaultWindow: 30 * 24 * time.Hour,
		MaxWindow:     730 * 24 * time.Hour,
		Retry: resilience.Config{
			MaxRetries:     3,
			InitialBackoff: time.Second,
			MaxBackoff:     30 * time.Second,
		},
	}
}

// Fetcher retrieves raw transaction pages from the provider for one link.
// Transient failures (timeouts, 5xx) are retried with exponential backoff;
// auth failures fail fast. It mutates no local state.
type Fetcher struct {
	provider port.ProviderAPI
	cfg      FetcherConfig
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// NewFetcher creates a fetcher.
func NewFetcher(provider port.ProviderAPI, cfg FetcherConfig, metrics *observability.Metrics, logger *zap.Logger) *Fetcher {
	if cfg.PageSize <= 0 {
		cfg.PageSize = 500
	}
	return &Fetcher{provider: provider, cfg: cfg, metrics: metrics, logger: logger}
}

// Fetch returns all raw transactions for the link within [start, end],
// paginating until the provider's total is exhausted. A zero end means
// "now"; a zero start means end minus the default window. Windows wider
// than the ceiling are clamped, not rejected.
//
// After retries are exhausted the error surfaces as *domain.ErrConnection;
// *domain.ErrAuth passes through untouched so the orchestrator can tell
// "reconnect this account" apart from "provider is down".
func (f *Fetcher) Fetch(ctx context.Context, link *domain.AccountLink, start, end time.Time) ([]domain.ProviderTransaction, error) {
	ctx, span := fetchTracer.Start(ctx, "Fetcher.Fetch")
	defer span.End()
	span.SetAttributes(attribute.String("link.id", link.ID))

	if end.IsZero() {
		end = time.Now()
	}
	if start.IsZero() {
		start = end.Add(-f.cfg.DefaultWindow)
	}
	if end.Sub(start) > f.cfg.MaxWindow {
		f.logger.Warn("fetch window exceeds ceiling, clamping",
			zap.String("link_id", link.ID),
			zap.Time("requested_start", start),
		)
		start = end.Add(-f.cfg.MaxWindow)
	}
	span.SetAttributes(
		attribute.String("window.start", start.Format("2006-01-02")),
		attribute.String("window.end", end.Format("2006-01-02")),
	)

	var all []domain.ProviderTransaction
	offset := 0

	for {
		page, total, err := f.fetchPage(ctx, link, start, end, offset)
		if err != nil {
			return nil, err
		}

		all = append(all, page...)
		offset += len(page)

		if len(page) < f.cfg.PageSize || offset >= total {
			break
		}
	}

	f.logger.Info("provider fetch completed",
		zap.String("link_id", link.ID),
		zap.String("institution", link.InstitutionName),
		zap.Int("records", len(all)),
	)
	return all, nil
}

// fetchPage retrieves one page with bounded retry/backoff. Auth errors are
// marked permanent so the retry loop stops immediately.
func (f *Fetcher) fetchPage(ctx context.Context, link *domain.AccountLink, start, end time.Time, offset int) ([]domain.ProviderTransaction, int, error) {
	var (
		page  []domain.ProviderTransaction
		total int
	)

	attempts := 0
	err := resilience.RetryWithBackoff(ctx, f.cfg.Retry, func() error {
		attempts++
		p, t, err := f.provider.ListTransactions(ctx, link.AccessToken, start, end, f.cfg.PageSize, offset)
		if err != nil {
			var authErr *domain.ErrAuth
			if errors.As(err, &authErr) {
				return resilience.Permanent(err)
			}
			f.logger.Warn("provider page fetch failed",
				zap.String("link_id", link.ID),
				zap.Int("offset", offset),
				zap.Int("attempt", attempts),
				zap.Error(err),
			)
			return err
		}
		page, total = p, t
		return nil
	})

	if err != nil {
		var authErr *domain.ErrAuth
		if errors.As(err, &authErr) {
			return nil, 0, &domain.ErrAuth{Institution: link.InstitutionName, Reason: authErr.Reason}
		}
		return nil, 0, &domain.ErrConnection{
			Institution: link.InstitutionName,
			Err:         fmt.Errorf("after %d attempts: %w", attempts, err),
		}
	}
	return page, total, nil
}
