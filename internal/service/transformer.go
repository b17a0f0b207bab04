// Package service provides the business logic layer of the sync engine:
// fetching raw provider transactions, transforming them into canonical
// records, matching duplicates, reconciling against the local store, and
// orchestrating sync runs across linked accounts.
package service

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/arunvilla/Finomini-POC-sub002/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Transformer defaults.
const (
	// ProviderConfidence marks a record as provider-sourced but not yet
	// reviewed by the user. Deliberately below 1.0.
	ProviderConfidence = 0.92

	DescriptionLimit      = 200
	LargeExpenseThreshold = 500.00
)

// categoryMap translates the provider's primary category into the app's
// category set. Unmapped values fall back to "Other".
var categoryMap = map[string]string{
	"Food and Drink": "Food & Dining",
	"Restaurants":    "Food & Dining",
	"Groceries":      "Food & Dining",
	"Shops":          "Shopping",
	"Travel":         "Travel",
	"Transportation": "Transportation",
	"Recreation":     "Entertainment",
	"Entertainment":  "Entertainment",
	"Service":        "Bills & Utilities",
	"Utilities":      "Bills & Utilities",
	"Healthcare":     "Health",
	"Bank Fees":      "Fees",
	"Interest":       "Income",
	"Payroll":        "Income",
	"Transfer":       "Transfer",
	"Payment":        "Bills & Utilities",
	"Community":      "Other",
	"Tax":            "Taxes",
}

// subscriptionKeywords trigger the "subscription" auto-tag when they appear
// in the cleansed description.
var subscriptionKeywords = []string{
	"netflix", "spotify", "hulu", "subscription", "membership", "prime",
}

var (
	whitespaceRegex = regexp.MustCompile(`\s+`)
	// Keep letters, digits, and basic punctuation; everything else goes.
	descCharsRegex = regexp.MustCompile(`[^a-zA-Z0-9 .,'&/#:*-]`)

	trailingDigitsRegex = regexp.MustCompile(`^(.*?)[\s#*-]*\d{3,}$`)
	leadingCapsRegex    = regexp.MustCompile(`^([A-Z][A-Za-z'&.]*(?:\s+[A-Z][A-Za-z'&.]*){0,3})`)
)

// Transformer maps raw provider records into canonical transactions.
// Pure: no I/O, same input always yields the same output (ids and
// timestamps aside).
type Transformer struct{}

// NewTransformer creates a transformer.
func NewTransformer() *Transformer {
	return &Transformer{}
}

// Transform converts a raw provider record into a canonical Transaction.
// It never rejects a record: unparseable dates fall back to "now" and
// unmapped categories fall back to "Other". Schema problems are caught
// separately by Validate.
func (t *Transformer) Transform(raw domain.ProviderTransaction) domain.Transaction {
	now := time.Now()

	// Provider convention: positive amount = outflow. Direction is carried
	// by Type; the stored amount is always a non-negative cent-exact value.
	amount := decimal.NewFromFloat(raw.Amount).Abs().Round(2)
	txType := domain.TypeExpense
	if raw.Amount < 0 {
		txType = domain.TypeIncome
	}

	status := domain.StatusPosted
	if raw.Pending {
		status = domain.StatusPending
	}

	description := cleanseDescription(raw.Name)
	category, subcategory := mapCategory(raw.Category)
	merchant := raw.MerchantName
	if merchant == "" {
		merchant = extractMerchant(description)
	}

	tx := domain.Transaction{
		ID:           uuid.New().String(),
		ProviderTxID: raw.TransactionID,
		AccountID:    raw.AccountID,
		Amount:       amount.InexactFloat64(),
		Type:         txType,
		Date:         parseProviderDate(raw.Date, now),
		Description:  description,
		Category:     category,
		Subcategory:  subcategory,
		Merchant:     merchant,
		Status:       status,
		IsManual:     false,
		Confidence:   ProviderConfidence,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	tx.Tags = autoTags(tx)
	return tx
}

// Validate checks a transformed record against the canonical schema.
// Failures are recoverable at batch level: the record is dropped and the
// message lands in the sync result's error list.
func (t *Transformer) Validate(tx domain.Transaction) error {
	if tx.AccountID == "" {
		return &domain.ErrValidation{Field: "account_id", Message: "required"}
	}
	if tx.Amount < 0 {
		return &domain.ErrValidation{Field: "amount", Message: "must be a non-negative magnitude"}
	}
	if tx.Type != domain.TypeIncome && tx.Type != domain.TypeExpense {
		return &domain.ErrValidation{Field: "type", Message: "must be income or expense"}
	}
	if len(tx.Description) > DescriptionLimit {
		return &domain.ErrValidation{Field: "description", Message: "exceeds length limit"}
	}
	return nil
}

// parseProviderDate parses the provider's date representation. On failure it
// falls back to now — lossy but never fatal for the record.
func parseProviderDate(raw string, now time.Time) time.Time {
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if d, err := time.Parse(layout, raw); err == nil {
			return d
		}
	}
	return now
}

// cleanseDescription trims, collapses internal whitespace, strips characters
// beyond basic punctuation, and truncates to the description limit.
func cleanseDescription(s string) string {
	s = descCharsRegex.ReplaceAllString(s, "")
	s = whitespaceRegex.ReplaceAllString(strings.TrimSpace(s), " ")
	if len(s) > DescriptionLimit {
		s = strings.TrimSpace(s[:DescriptionLimit])
	}
	return s
}

// mapCategory translates the provider's category path into the app's
// category set. The first element is the primary category; a second element
// becomes the subcategory only when the primary maps cleanly.
func mapCategory(path []string) (string, string) {
	if len(path) == 0 {
		return "Other", ""
	}
	mapped, ok := categoryMap[path[0]]
	if !ok {
		return "Other", ""
	}
	sub := ""
	if len(path) > 1 {
		sub = path[1]
	}
	return mapped, sub
}

// extractMerchant heuristically pulls a merchant name out of a cleansed
// description using a small ordered set of patterns. May legitimately
// return "" — no merchant, not a placeholder.
func extractMerchant(description string) string {
	if description == "" {
		return ""
	}

	// 1. Trailing reference digits: "STARBUCKS STORE 08421" → "STARBUCKS STORE"
	if m := trailingDigitsRegex.FindStringSubmatch(description); m != nil {
		if name := strings.TrimSpace(m[1]); name != "" {
			return name
		}
	}

	// 2. Leading capitalized phrase: "Whole Foods Market purchase" → "Whole Foods Market"
	if m := leadingCapsRegex.FindStringSubmatch(description); m != nil {
		if name := strings.TrimSpace(m[1]); name != "" {
			return name
		}
	}

	// 3. Dash-delimited prefix: "uber trip - san francisco" → "uber trip"
	if idx := strings.Index(description, " - "); idx > 0 {
		return strings.TrimSpace(description[:idx])
	}

	return ""
}

// autoTags derives deterministic tags from amount magnitude, category
// keywords, and pending status. No randomness: same input, same tags.
func autoTags(tx domain.Transaction) []string {
	tags := make([]string, 0, 3)

	if tx.Type == domain.TypeExpense && tx.Amount >= LargeExpenseThreshold {
		tags = append(tags, "large-expense")
	}

	lower := strings.ToLower(tx.Description)
	for _, kw := range subscriptionKeywords {
		if strings.Contains(lower, kw) {
			tags = append(tags, "subscription")
			break
		}
	}

	if tx.Category == "Travel" {
		tags = append(tags, "travel")
	}
	if tx.Status == domain.StatusPending {
		tags = append(tags, "pending")
	}

	sort.Strings(tags)
	if len(tags) == 0 {
		return nil
	}
	return tags
}
