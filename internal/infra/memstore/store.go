// Package memstore provides in-memory implementations of the transaction
// and link stores. Used in dev mode and tests; the sync core never depends
// on the persistence medium.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/arunvilla/Finomini-POC-sub002/internal/domain"
)

// TransactionStore is a mutex-guarded in-memory transaction set.
type TransactionStore struct {
	mu   sync.RWMutex
	byID map[string]domain.Transaction
}

// NewTransactionStore creates an empty in-memory transaction store.
func NewTransactionStore() *TransactionStore {
	return &TransactionStore{byID: make(map[string]domain.Transaction)}
}

// Seed inserts transactions directly, bypassing reconciliation.
func (s *TransactionStore) Seed(txns ...domain.Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, tx := range txns {
		s.byID[tx.ID] = tx
	}
}

// ListByAccounts returns transactions belonging to any of the given accounts.
// Transactions without an account reference are always included so manual
// entries stay visible to the matcher.
func (s *TransactionStore) ListByAccounts(_ context.Context, accountIDs []string) ([]domain.Transaction, error) {
	wanted := make(map[string]bool, len(accountIDs))
	for _, id := range accountIDs {
		wanted[id] = true
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Transaction, 0, len(s.byID))
	for _, tx := range s.byID {
		if tx.AccountID == "" || wanted[tx.AccountID] {
			out = append(out, tx)
		}
	}
	return out, nil
}

// ListAll returns every stored transaction.
func (s *TransactionStore) ListAll(_ context.Context) ([]domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Transaction, 0, len(s.byID))
	for _, tx := range s.byID {
		out = append(out, tx)
	}
	return out, nil
}

// ApplyReconcile inserts new and overwrites updated transactions.
// Deletion candidates are left untouched; removal is a user decision.
func (s *TransactionStore) ApplyReconcile(_ context.Context, result *domain.ReconcileResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, tx := range result.New {
		s.byID[tx.ID] = tx
	}
	for _, tx := range result.Updated {
		s.byID[tx.ID] = tx
	}
	return nil
}

// Get returns one transaction by local id.
func (s *TransactionStore) Get(id string) (domain.Transaction, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tx, ok := s.byID[id]
	return tx, ok
}

// Len returns the number of stored transactions.
func (s *TransactionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

// LinkStore is a mutex-guarded in-memory account-link registry.
// Checkpoint writes are last-writer-wins per link id.
type LinkStore struct {
	mu    sync.RWMutex
	links map[string]domain.AccountLink
}

// NewLinkStore creates an empty in-memory link store.
func NewLinkStore() *LinkStore {
	return &LinkStore{links: make(map[string]domain.AccountLink)}
}

// Seed inserts links directly.
func (s *LinkStore) Seed(links ...domain.AccountLink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range links {
		s.links[l.ID] = l
	}
}

// ListLinks returns all registered links.
func (s *LinkStore) ListLinks(_ context.Context) ([]domain.AccountLink, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.AccountLink, 0, len(s.links))
	for _, l := range s.links {
		out = append(out, l)
	}
	return out, nil
}

// GetLink returns one link by id.
func (s *LinkStore) GetLink(_ context.Context, linkID string) (*domain.AccountLink, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.links[linkID]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "account_link", ID: linkID}
	}
	return &l, nil
}

// SaveCheckpoint advances the link's sync checkpoint.
func (s *LinkStore) SaveCheckpoint(_ context.Context, linkID string, ts time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.links[linkID]
	if !ok {
		return &domain.ErrNotFound{Resource: "account_link", ID: linkID}
	}
	l.LastSyncedAt = &ts
	s.links[linkID] = l
	return nil
}
