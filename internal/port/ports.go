// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations: the provider gateway, the persisted
// transaction store, and the link/checkpoint store.
package port

import (
	"context"
	"time"

	"github.com/arunvilla/Finomini-POC-sub002/internal/domain"
)

// ProviderAPI is the banking-data provider gateway. Three logical calls are
// consumed by the sync core; the raw payload shape is fully absorbed by the
// Transformer.
type ProviderAPI interface {
	// ListTransactions returns one page of raw transactions for the token
	// within [start, end], plus the provider's total count for the window.
	ListTransactions(ctx context.Context, accessToken string, start, end time.Time, pageSize, offset int) ([]domain.ProviderTransaction, int, error)

	// ListAccounts returns the accounts reachable through the token.
	ListAccounts(ctx context.Context, accessToken string) ([]domain.ProviderAccount, error)

	// ForceRefresh asks the provider to pull fresh data from the institution.
	// Best-effort: callers treat failure as a degraded fetch, not an abort.
	ForceRefresh(ctx context.Context, accessToken string) error
}

// TransactionStore is the persisted transaction set the merge engine
// reconciles against. The persistence medium is irrelevant to the core.
type TransactionStore interface {
	ListByAccounts(ctx context.Context, accountIDs []string) ([]domain.Transaction, error)
	ListAll(ctx context.Context) ([]domain.Transaction, error)

	// ApplyReconcile persists a merge result: inserts New, overwrites
	// Updated. Deletion candidates are NOT removed; that is a user decision.
	ApplyReconcile(ctx context.Context, result *domain.ReconcileResult) error
}

// LinkStore holds account linkages (access token + institution metadata)
// and their sync checkpoints. Checkpoints are keyed per link; last-writer
// wins, no compare-and-swap is assumed.
type LinkStore interface {
	ListLinks(ctx context.Context) ([]domain.AccountLink, error)
	GetLink(ctx context.Context, linkID string) (*domain.AccountLink, error)
	SaveCheckpoint(ctx context.Context, linkID string, ts time.Time) error
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}
