package service

import (
	"slices"
	"sort"
	"time"

	"github.com/arunvilla/Finomini-POC-sub002/internal/domain"

	"go.uber.org/zap"
)

// Reconciler merges an incoming batch of canonical transactions against the
// existing local set. It is the single merge engine: the orchestrator and
// any other call site delegate here instead of re-deriving match/merge
// logic.
type Reconciler struct {
	matcher *Matcher
	logger  *zap.Logger
}

// NewReconciler creates a reconciler around the given matcher.
func NewReconciler(matcher *Matcher, logger *zap.Logger) *Reconciler {
	return &Reconciler{matcher: matcher, logger: logger}
}

// Reconcile classifies every incoming transaction as new, an update, or a
// no-op duplicate, applies the field-level merge policy, and computes
// deletion candidates. It mutates nothing: the result holds copies.
//
// windowStart and windowEnd bound deletion detection: only existing records
// dated inside the fetched window can be reported as deletion candidates,
// since the feed says nothing about records it was never asked for. Zero
// bounds mean a full-batch reconcile over the whole set.
//
// New and Updated preserve batch encounter order; Merged is the full
// resulting set sorted by date descending. Deletion candidates are existing
// non-manual provider-sourced records whose provider id is absent from the
// incoming batch; they are reported, never removed.
func (r *Reconciler) Reconcile(incoming, existing []domain.Transaction, windowStart, windowEnd time.Time) *domain.ReconcileResult {
	result := &domain.ReconcileResult{
		New:     make([]domain.Transaction, 0),
		Updated: make([]domain.Transaction, 0),
	}

	// Working set: matching runs against the merged view so a second
	// identical incoming record dedupes instead of double-inserting.
	working := make([]domain.Transaction, len(existing))
	copy(working, existing)

	newIdx := make(map[string]int)     // local id → index in result.New
	updatedIdx := make(map[string]int) // local id → index in result.Updated

	for _, in := range incoming {
		match := r.matcher.FindMatch(in, working)
		if match == nil {
			newIdx[in.ID] = len(result.New)
			result.New = append(result.New, in)
			working = append(working, in)
			continue
		}

		if !r.shouldUpdate(in, *match) {
			result.Duplicates++
			continue
		}

		merged := mergeFields(in, *match)
		for i := range working {
			if working[i].ID == merged.ID {
				working[i] = merged
				break
			}
		}

		// A record introduced earlier in this batch settles into its New
		// slot; a store record updated twice occupies one Updated slot.
		// Either way one provider record yields one result entry.
		if idx, seen := newIdx[merged.ID]; seen {
			result.New[idx] = merged
		} else if idx, seen := updatedIdx[merged.ID]; seen {
			result.Updated[idx] = merged
		} else {
			updatedIdx[merged.ID] = len(result.Updated)
			result.Updated = append(result.Updated, merged)
		}
	}

	result.DeletedIDs = deletionCandidates(incoming, existing, windowStart, windowEnd)
	result.Merged = working
	sort.SliceStable(result.Merged, func(i, j int) bool {
		return result.Merged[i].Date.After(result.Merged[j].Date)
	})

	return result
}

// shouldUpdate decides whether a matched incoming record replaces the
// existing one or is a no-op duplicate. Re-fetched records are transformed
// fresh every sync, so wall-clock timestamps carry no signal here; only
// content does.
func (r *Reconciler) shouldUpdate(in, existing domain.Transaction) bool {
	// A provider id arriving for a record that lacks one upgrades a
	// previous partial/manual match.
	if in.ProviderTxID != "" && existing.ProviderTxID == "" {
		return true
	}
	// Status progression: pending settles to posted.
	if existing.Status == domain.StatusPending && in.Status == domain.StatusPosted {
		return true
	}
	if providerFieldsChanged(in, existing) {
		return true
	}
	// Overlay fields only count while the provider still owns them.
	if !existing.IsManual && overlayFieldsChanged(in, existing) {
		return true
	}

	r.logger.Debug("unchanged record treated as duplicate",
		zap.String("transaction_id", existing.ID),
		zap.String("provider_tx_id", in.ProviderTxID),
	)
	return false
}

// providerFieldsChanged reports whether any always-refreshed field differs.
func providerFieldsChanged(in, existing domain.Transaction) bool {
	return in.Amount != existing.Amount ||
		in.Type != existing.Type ||
		!in.Date.Equal(existing.Date) ||
		in.Status != existing.Status ||
		in.Confidence != existing.Confidence
}

// overlayFieldsChanged reports whether any user-overlay field differs.
func overlayFieldsChanged(in, existing domain.Transaction) bool {
	return in.Category != existing.Category ||
		in.Subcategory != existing.Subcategory ||
		in.Description != existing.Description ||
		in.Merchant != existing.Merchant ||
		!slices.Equal(in.Tags, existing.Tags)
}

// mergeFields applies the field-level merge policy.
//
// Provider-sourced fields (amount, date, status, provider id, confidence)
// always refresh. User-overlay fields (category, subcategory, description,
// merchant, tags) refresh only while the user has not taken ownership
// (is_manual). Notes are never provider-sourced and are always preserved.
func mergeFields(in, existing domain.Transaction) domain.Transaction {
	merged := existing

	merged.Amount = in.Amount
	merged.Type = in.Type
	merged.Date = in.Date
	merged.Status = in.Status
	merged.Confidence = in.Confidence
	if in.ProviderTxID != "" {
		merged.ProviderTxID = in.ProviderTxID
	}

	if !existing.IsManual {
		merged.Category = in.Category
		merged.Subcategory = in.Subcategory
		merged.Description = in.Description
		merged.Merchant = in.Merchant
		merged.Tags = in.Tags
	}

	// merged.Notes stays existing.Notes unconditionally.
	merged.UpdatedAt = time.Now()
	return merged
}

// deletionCandidates reports local ids of existing non-manual
// provider-sourced records whose provider id no longer appears in the feed.
// Records dated outside the fetched window are never candidates: an
// incremental feed is silent about them, not missing them. Manual records
// are never proposed for deletion.
func deletionCandidates(incoming, existing []domain.Transaction, windowStart, windowEnd time.Time) []string {
	seen := make(map[string]bool, len(incoming))
	for _, in := range incoming {
		if in.ProviderTxID != "" {
			seen[in.ProviderTxID] = true
		}
	}

	var deleted []string
	for _, tx := range existing {
		if tx.IsManual || tx.ProviderTxID == "" {
			continue
		}
		if !windowStart.IsZero() && tx.Date.Before(windowStart) {
			continue
		}
		if !windowEnd.IsZero() && tx.Date.After(windowEnd) {
			continue
		}
		if !seen[tx.ProviderTxID] {
			deleted = append(deleted, tx.ID)
		}
	}
	return deleted
}
