package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/arunvilla/Finomini-POC-sub002/internal/domain"
	"github.com/arunvilla/Finomini-POC-sub002/internal/infra/observability"
	"github.com/arunvilla/Finomini-POC-sub002/internal/infra/resilience"
	"github.com/arunvilla/Finomini-POC-sub002/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var syncTracer = otel.Tracer("service/syncer")

// SyncConfig holds the orchestrator's window policy.
type SyncConfig struct {
	SafetyMargin  time.Duration // rewind from checkpoint to catch late corrections
	DefaultWindow time.Duration // incremental window when no checkpoint exists
	FullWindow    time.Duration // full-history window
	MaxConcurrent int           // concurrent account syncs in SyncAll
}

// DefaultSyncConfig returns the standard policy: 7-day safety margin,
// 90-day first-sync window, 2-year full history, 4 concurrent syncs.
func DefaultSyncConfig() SyncConfig {
	return SyncConfig{
		SafetyMargin:  7 * 24 * time.Hour,
		DefaultWindow: 90 * 24 * time.Hour,
		FullWindow:    730 * 24 * time.Hour,
		MaxConcurrent: 4,
	}
}

// Syncer coordinates fetch → transform → match → merge for linked accounts
// and owns checkpoint state. Callers must not start a second sync for the
// same link while one is outstanding; that contract is not enforced with a
// lock here.
type Syncer struct {
	fetcher     *Fetcher
	transformer *Transformer
	reconciler  *Reconciler
	provider    port.ProviderAPI
	txStore     port.TransactionStore
	linkStore   port.LinkStore
	accounts    port.Cache[[]domain.ProviderAccount]
	cfg         SyncConfig
	bulkhead    *resilience.Bulkhead
	metrics     *observability.Metrics
	logger      *zap.Logger

	mu       sync.RWMutex
	statuses map[string]domain.SyncStatus
}

// NewSyncer creates the sync orchestrator with all dependencies injected.
func NewSyncer(
	fetcher *Fetcher,
	transformer *Transformer,
	reconciler *Reconciler,
	provider port.ProviderAPI,
	txStore port.TransactionStore,
	linkStore port.LinkStore,
	accounts port.Cache[[]domain.ProviderAccount],
	cfg SyncConfig,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *Syncer {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 4
	}
	return &Syncer{
		fetcher:     fetcher,
		transformer: transformer,
		reconciler:  reconciler,
		provider:    provider,
		txStore:     txStore,
		linkStore:   linkStore,
		accounts:    accounts,
		cfg:         cfg,
		bulkhead:    resilience.NewBulkhead(cfg.MaxConcurrent),
		metrics:     metrics,
		logger:      logger,
		statuses:    make(map[string]domain.SyncStatus),
	}
}

// SyncAccount runs one sync cycle for a single link. Individual record
// failures fold into the result's error list; fetch failure is terminal for
// the link and returns an error. On success the checkpoint advances to
// "now" whether or not anything changed.
func (s *Syncer) SyncAccount(ctx context.Context, linkID, mode string) (*domain.SyncResult, error) {
	ctx, span := syncTracer.Start(ctx, "Syncer.SyncAccount")
	defer span.End()
	span.SetAttributes(attribute.String("link.id", linkID), attribute.String("sync.mode", mode))

	if mode == "" {
		mode = domain.SyncModeIncremental
	}

	start := time.Now()
	defer func() { s.metrics.RecordSyncDuration(mode, time.Since(start)) }()

	link, err := s.linkStore.GetLink(ctx, linkID)
	if err != nil {
		return nil, err
	}

	s.setState(linkID, domain.SyncStateSyncing, nil, "")

	result, err := s.runSync(ctx, link, mode)
	if err != nil {
		s.metrics.IncrSyncRun("error")
		s.setState(linkID, domain.SyncStateError, nil, err.Error())
		s.logger.Error("sync failed",
			zap.String("link_id", linkID),
			zap.String("institution", link.InstitutionName),
			zap.String("mode", mode),
			zap.Error(err),
		)
		return nil, err
	}

	s.metrics.IncrSyncRun("success")
	s.setState(linkID, domain.SyncStateCompleted, result, "")
	s.logger.Info("sync completed",
		zap.String("link_id", linkID),
		zap.String("mode", mode),
		zap.Int("new", result.NewCount),
		zap.Int("updated", result.UpdatedCount),
		zap.Int("duplicates", result.Duplicates),
		zap.Int("deletion_candidates", len(result.DeletedIDs)),
		zap.Int("record_errors", len(result.Errors)),
	)
	return result, nil
}

// runSync executes the fetch → transform → reconcile → persist pipeline.
func (s *Syncer) runSync(ctx context.Context, link *domain.AccountLink, mode string) (*domain.SyncResult, error) {
	now := time.Now()
	result := &domain.SyncResult{LinkID: link.ID, SyncedAt: now}

	// --- Window ---
	var windowStart time.Time
	if mode == domain.SyncModeFull {
		windowStart = now.Add(-s.cfg.FullWindow)

		// Best-effort: ask the provider for fresh data first. Failure
		// degrades to fetching whatever is already available.
		if err := s.provider.ForceRefresh(ctx, link.AccessToken); err != nil {
			s.logger.Warn("force refresh failed, continuing with cached provider data",
				zap.String("link_id", link.ID),
				zap.Error(err),
			)
			result.Errors = append(result.Errors, fmt.Sprintf("force refresh: %v", err))
		}
	} else if link.LastSyncedAt != nil {
		windowStart = link.LastSyncedAt.Add(-s.cfg.SafetyMargin)
	} else {
		windowStart = now.Add(-s.cfg.DefaultWindow)
	}

	// --- Fetch ---
	raw, err := s.fetcher.Fetch(ctx, link, windowStart, now)
	if err != nil {
		return nil, err
	}

	// --- Transform (per-record failures never abort the batch) ---
	incoming := make([]domain.Transaction, 0, len(raw))
	for _, rec := range raw {
		tx := s.transformer.Transform(rec)
		if err := s.transformer.Validate(tx); err != nil {
			s.metrics.AddTransactions("record_error", 1)
			result.Errors = append(result.Errors, fmt.Sprintf("record %s: %v", rec.TransactionID, err))
			continue
		}
		incoming = append(incoming, tx)
	}

	// --- Existing set, scoped to the link's accounts when known ---
	accountIDs := s.accountIDsFor(ctx, link)
	var existing []domain.Transaction
	if len(accountIDs) > 0 {
		existing, err = s.txStore.ListByAccounts(ctx, accountIDs)
	} else {
		existing, err = s.txStore.ListAll(ctx)
	}
	if err != nil {
		return nil, &domain.ErrStorage{Op: "list_transactions", Err: err}
	}

	// --- Reconcile. Deletion detection is scoped to the fetched window. ---
	rec := s.reconciler.Reconcile(incoming, existing, windowStart, now)
	result.New = rec.New
	result.Updated = rec.Updated
	result.NewCount = len(rec.New)
	result.UpdatedCount = len(rec.Updated)
	result.Duplicates = rec.Duplicates
	result.DeletedIDs = rec.DeletedIDs
	result.AccountIDs = accountIDs

	s.metrics.AddTransactions("new", result.NewCount)
	s.metrics.AddTransactions("updated", result.UpdatedCount)
	s.metrics.AddTransactions("duplicate", result.Duplicates)
	s.metrics.AddTransactions("deleted_candidate", len(result.DeletedIDs))

	// --- Persist. Durability failures don't discard computed results. ---
	if err := s.txStore.ApplyReconcile(ctx, rec); err != nil {
		s.logger.Error("failed to persist reconcile result",
			zap.String("link_id", link.ID),
			zap.Error(err),
		)
		result.Errors = append(result.Errors, fmt.Sprintf("storage: %v", err))
	}

	// --- Advance checkpoint ---
	if err := s.linkStore.SaveCheckpoint(ctx, link.ID, now); err != nil {
		s.logger.Error("failed to save sync checkpoint",
			zap.String("link_id", link.ID),
			zap.Error(err),
		)
		result.Errors = append(result.Errors, fmt.Sprintf("checkpoint: %v", err))
	}

	return result, nil
}

// SyncAll syncs every registered link. Accounts are independent: one link's
// failure is captured in its own slot and never aborts siblings. The result
// map always holds one entry per link.
func (s *Syncer) SyncAll(ctx context.Context, mode string) map[string]*domain.SyncResult {
	ctx, span := syncTracer.Start(ctx, "Syncer.SyncAll")
	defer span.End()

	links, err := s.linkStore.ListLinks(ctx)
	if err != nil {
		s.logger.Error("failed to list account links", zap.Error(err))
		return map[string]*domain.SyncResult{}
	}

	var (
		mu      sync.Mutex
		results = make(map[string]*domain.SyncResult, len(links))
	)

	var g errgroup.Group
	for _, link := range links {
		link := link
		g.Go(func() error {
			if err := s.bulkhead.Acquire(ctx); err != nil {
				mu.Lock()
				results[link.ID] = errorResult(link.ID, err)
				mu.Unlock()
				return nil
			}
			defer s.bulkhead.Release()

			res, err := s.SyncAccount(ctx, link.ID, mode)
			if err != nil {
				res = errorResult(link.ID, err)
			}

			mu.Lock()
			results[link.ID] = res
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait() // goroutines never return errors; failures live in the map

	return results
}

// errorResult builds the error-only slot for a link whose sync failed
// terminally: empty transaction lists, the failure in Errors.
func errorResult(linkID string, err error) *domain.SyncResult {
	return &domain.SyncResult{
		LinkID:   linkID,
		New:      []domain.Transaction{},
		Updated:  []domain.Transaction{},
		Errors:   []string{err.Error()},
		SyncedAt: time.Now(),
	}
}

// accountIDsFor resolves the provider account ids behind a link, cached by
// link id. Resolution failure is non-fatal: matching falls back to the full
// local set.
func (s *Syncer) accountIDsFor(ctx context.Context, link *domain.AccountLink) []string {
	cacheKey := fmt.Sprintf("accounts:%s", link.ID)

	accounts, ok := s.accounts.Get(cacheKey)
	if ok {
		s.metrics.IncrCacheHit("accounts")
	} else {
		s.metrics.IncrCacheMiss("accounts")
		var err error
		accounts, err = s.provider.ListAccounts(ctx, link.AccessToken)
		if err != nil {
			s.logger.Warn("could not list provider accounts, matching against full store",
				zap.String("link_id", link.ID),
				zap.Error(err),
			)
			return nil
		}
		s.accounts.Set(cacheKey, accounts)
	}

	ids := make([]string, 0, len(accounts))
	for _, a := range accounts {
		ids = append(ids, a.AccountID)
	}
	return ids
}

// Status returns the link's state machine snapshot. Links that never synced
// report idle.
func (s *Syncer) Status(linkID string) domain.SyncStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.statuses[linkID]
	if !ok {
		return domain.SyncStatus{LinkID: linkID, State: domain.SyncStateIdle}
	}
	return st
}

// Statuses returns snapshots for every link that has synced at least once.
func (s *Syncer) Statuses() []domain.SyncStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.SyncStatus, 0, len(s.statuses))
	for _, st := range s.statuses {
		out = append(out, st)
	}
	return out
}

// setState records a state transition. Completed and error stay visible
// until the next sync moves the link back to syncing; LastResult and
// LastError always hold the most recent outcome.
func (s *Syncer) setState(linkID, state string, result *domain.SyncResult, errMsg string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.statuses[linkID]
	st.LinkID = linkID
	st.State = state
	st.UpdatedAt = time.Now()
	if result != nil {
		st.LastResult = result
	}
	st.LastError = errMsg
	s.statuses[linkID] = st
}
