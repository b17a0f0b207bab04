package service

import (
	"math"
	"strings"
	"time"

	"github.com/arunvilla/Finomini-POC-sub002/internal/domain"
)

// Similarity weights. They sum to 1.0; an exact provider-id match
// short-circuits to 1.0 before any of them apply.
const (
	weightDescriptionExact   = 0.4
	weightDescriptionPartial = 0.2
	weightMerchant           = 0.3
	weightCategory           = 0.2
	weightStatus             = 0.1
)

// MatcherConfig holds the pool prefilter tolerances. Defaults reflect the
// app's observed behavior; some institutions post with larger date skew, so
// both knobs are injectable per link.
type MatcherConfig struct {
	AmountTolerance float64
	DateWindow      time.Duration
}

// DefaultMatcherConfig returns the standard tolerances: one cent and 24h.
func DefaultMatcherConfig() MatcherConfig {
	return MatcherConfig{
		AmountTolerance: 0.01,
		DateWindow:      24 * time.Hour,
	}
}

// Matcher finds the best-matching existing transaction for an incoming
// candidate. The pool prefilter (account, amount tolerance, date window) is
// what guarantees safety; the weighted score only ranks pool members.
type Matcher struct {
	cfg MatcherConfig
}

// NewMatcher creates a matcher with the given tolerances.
func NewMatcher(cfg MatcherConfig) *Matcher {
	return &Matcher{cfg: cfg}
}

// FindMatch returns the highest-scoring pool member for the candidate, or
// nil when the pool is empty (the candidate is new). Greedy best-match, not
// an optimal batch assignment: the prefiltered pool rarely holds more than
// one true duplicate.
func (m *Matcher) FindMatch(candidate domain.Transaction, existing []domain.Transaction) *domain.Transaction {
	var (
		best      *domain.Transaction
		bestScore float64
	)

	for i := range existing {
		tx := &existing[i]
		if !m.inPool(candidate, *tx) {
			continue
		}

		score := similarity(candidate, *tx)
		if best == nil || score > bestScore {
			best = tx
			bestScore = score
		}
		if bestScore >= 1.0 {
			break
		}
	}
	return best
}

// inPool applies the prefilter: same account when both records carry one,
// amount within tolerance, transaction dates within the window.
func (m *Matcher) inPool(candidate, tx domain.Transaction) bool {
	if candidate.AccountID != "" && tx.AccountID != "" && candidate.AccountID != tx.AccountID {
		return false
	}
	if math.Abs(candidate.Amount-tx.Amount) > m.cfg.AmountTolerance {
		return false
	}
	diff := candidate.Date.Sub(tx.Date)
	if diff < 0 {
		diff = -diff
	}
	return diff <= m.cfg.DateWindow
}

// similarity scores a pool member against the candidate.
func similarity(candidate, tx domain.Transaction) float64 {
	if candidate.ProviderTxID != "" && candidate.ProviderTxID == tx.ProviderTxID {
		return 1.0
	}

	score := 0.0

	switch {
	case candidate.Description == tx.Description:
		score += weightDescriptionExact
	case candidate.Description != "" && tx.Description != "" &&
		(strings.Contains(candidate.Description, tx.Description) ||
			strings.Contains(tx.Description, candidate.Description)):
		score += weightDescriptionPartial
	}

	if candidate.Merchant != "" && strings.EqualFold(candidate.Merchant, tx.Merchant) {
		score += weightMerchant
	}
	if candidate.Category == tx.Category {
		score += weightCategory
	}
	if candidate.Status == tx.Status {
		score += weightStatus
	}
	return score
}
