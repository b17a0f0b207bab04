// Package domain defines the core business entities for the Finomini sync
// engine. These models are independent of the banking-data provider and
// represent the canonical data structures used throughout the app.
package domain

import "time"

// ============================================================
// Transactions (canonical)
// ============================================================

// Transaction direction. Amounts are always stored as non-negative
// magnitudes; direction is carried here, never as a negative amount.
const (
	TypeIncome  = "income"
	TypeExpense = "expense"
)

// Transaction status as reported by the provider.
const (
	StatusPosted  = "posted"
	StatusPending = "pending"
)

// Transaction is the app's canonical transaction record.
//
// Provider-sourced rows carry ProviderTxID and IsManual=false; user-entered
// rows have no ProviderTxID and IsManual=true. Tags and Notes are user
// overlay fields and must survive provider resyncs once set.
type Transaction struct {
	ID           string    `json:"id"`
	ProviderTxID string    `json:"provider_tx_id,omitempty"`
	AccountID    string    `json:"account_id"`
	Amount       float64   `json:"amount"` // non-negative magnitude
	Type         string    `json:"type"`   // income, expense
	Date         time.Time `json:"date"`
	Description  string    `json:"description"`
	Category     string    `json:"category"`
	Subcategory  string    `json:"subcategory,omitempty"`
	Merchant     string    `json:"merchant,omitempty"`
	Status       string    `json:"status"` // posted, pending
	IsManual     bool      `json:"is_manual"`
	Confidence   float64   `json:"confidence_score"` // 0..1 trust in auto-categorization
	Tags         []string  `json:"tags,omitempty"`
	Notes        string    `json:"notes,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ============================================================
// Provider feed (raw)
// ============================================================

// ProviderTransaction is the raw record shape returned by the provider
// gateway. It is a courtesy type: the Transformer is its only consumer and
// no provider field name leaks past that boundary.
type ProviderTransaction struct {
	TransactionID string   `json:"transaction_id"`
	AccountID     string   `json:"account_id"`
	Amount        float64  `json:"amount"` // provider convention: positive = outflow
	ISOCurrency   string   `json:"iso_currency_code,omitempty"`
	Date          string   `json:"date"` // YYYY-MM-DD, occasionally RFC3339
	Name          string   `json:"name"`
	MerchantName  string   `json:"merchant_name,omitempty"`
	Category      []string `json:"category,omitempty"`
	Pending       bool     `json:"pending"`
}

// ProviderAccount is a linked account as reported by the provider.
type ProviderAccount struct {
	AccountID    string  `json:"account_id"`
	Name         string  `json:"name"`
	OfficialName string  `json:"official_name,omitempty"`
	Type         string  `json:"type"`
	Subtype      string  `json:"subtype,omitempty"`
	Mask         string  `json:"mask,omitempty"`
	Balance      float64 `json:"balance"`
}

// ============================================================
// Account links & checkpoints
// ============================================================

// AccountLink is a provider linkage: the opaque access token for one
// institution plus the sync checkpoint for its accounts.
type AccountLink struct {
	ID              string     `json:"id"`
	InstitutionID   string     `json:"institution_id"`
	InstitutionName string     `json:"institution_name"`
	AccessToken     string     `json:"-"`
	LastSyncedAt    *time.Time `json:"last_synced_at,omitempty"` // checkpoint
	CreatedAt       time.Time  `json:"created_at"`
}

// ============================================================
// Sync results
// ============================================================

// Sync modes.
const (
	SyncModeIncremental = "incremental"
	SyncModeFull        = "full"
)

// Per-link sync states.
const (
	SyncStateIdle      = "idle"
	SyncStateSyncing   = "syncing"
	SyncStateCompleted = "completed"
	SyncStateError     = "error"
)

// SyncResult is the value object returned from one sync invocation.
// Errors holds non-fatal per-record messages; a terminal failure for the
// whole link is reported separately (see SyncAll).
type SyncResult struct {
	LinkID       string        `json:"link_id"`
	NewCount     int           `json:"new_count"`
	UpdatedCount int           `json:"updated_count"`
	Duplicates   int           `json:"duplicates"`
	New          []Transaction `json:"new_transactions"`
	Updated      []Transaction `json:"updated_transactions"`
	DeletedIDs   []string      `json:"deleted_ids,omitempty"` // deletion candidates, not removed
	Errors       []string      `json:"errors,omitempty"`
	AccountIDs   []string      `json:"account_ids,omitempty"`
	SyncedAt     time.Time     `json:"synced_at"`
}

// SyncStatus is the observable per-link state machine snapshot.
type SyncStatus struct {
	LinkID     string      `json:"link_id"`
	State      string      `json:"state"` // idle, syncing, completed, error
	LastResult *SyncResult `json:"last_result,omitempty"`
	LastError  string      `json:"last_error,omitempty"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// ReconcileResult is the outcome of one merge pass over an incoming batch.
// New and Updated preserve the order records were encountered in the batch;
// Merged is the resulting full set sorted by date descending.
type ReconcileResult struct {
	New        []Transaction
	Updated    []Transaction
	Duplicates int
	DeletedIDs []string
	Merged     []Transaction
}

// ============================================================
// Metrics snapshot
// ============================================================

// SyncMetrics is an aggregate counter snapshot for the dashboard.
type SyncMetrics struct {
	TotalRuns      int64   `json:"total_runs"`
	FailedRuns     int64   `json:"failed_runs"`
	NewTotal       int64   `json:"new_total"`
	UpdatedTotal   int64   `json:"updated_total"`
	DuplicateTotal int64   `json:"duplicate_total"`
	RecordErrors   int64   `json:"record_errors"`
	ErrorRate      float64 `json:"error_rate"`
}
