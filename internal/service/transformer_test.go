package service_test

import (
	"strings"
	"testing"
	"time"

	"github.com/arunvilla/Finomini-POC-sub002/internal/domain"
	"github.com/arunvilla/Finomini-POC-sub002/internal/service"
)

func TestTransform_ExpenseFromPositiveAmount(t *testing.T) {
	tr := service.NewTransformer()

	tx := tr.Transform(domain.ProviderTransaction{
		TransactionID: "ptx-1",
		AccountID:     "acc-1",
		Amount:        42.509,
		Date:          "2026-08-01",
		Name:          "STARBUCKS STORE 08421",
		Category:      []string{"Food and Drink", "Coffee Shop"},
	})

	if tx.Type != domain.TypeExpense {
		t.Errorf("expected expense, got %s", tx.Type)
	}
	if tx.Amount != 42.51 {
		t.Errorf("expected 42.51 after cent rounding, got %f", tx.Amount)
	}
	if tx.ProviderTxID != "ptx-1" {
		t.Errorf("expected provider tx id preserved, got %q", tx.ProviderTxID)
	}
	if tx.Category != "Food & Dining" {
		t.Errorf("expected category 'Food & Dining', got %q", tx.Category)
	}
	if tx.Subcategory != "Coffee Shop" {
		t.Errorf("expected subcategory 'Coffee Shop', got %q", tx.Subcategory)
	}
	if tx.Status != domain.StatusPosted {
		t.Errorf("expected posted, got %s", tx.Status)
	}
	if tx.Confidence != service.ProviderConfidence {
		t.Errorf("expected confidence %f, got %f", service.ProviderConfidence, tx.Confidence)
	}
	if tx.IsManual {
		t.Error("provider-sourced records must not be manual")
	}
	if tx.ID == "" {
		t.Error("expected a generated local id")
	}
}

func TestTransform_IncomeFromNegativeAmount(t *testing.T) {
	tr := service.NewTransformer()

	tx := tr.Transform(domain.ProviderTransaction{
		TransactionID: "ptx-2",
		AccountID:     "acc-1",
		Amount:        -2500.00,
		Date:          "2026-08-15",
		Name:          "ACME CORP PAYROLL",
		Category:      []string{"Payroll"},
	})

	if tx.Type != domain.TypeIncome {
		t.Errorf("expected income, got %s", tx.Type)
	}
	if tx.Amount != 2500.00 {
		t.Errorf("expected magnitude 2500.00, got %f", tx.Amount)
	}
	if tx.Category != "Income" {
		t.Errorf("expected category 'Income', got %q", tx.Category)
	}
}

func TestTransform_PendingStatusAndTag(t *testing.T) {
	tr := service.NewTransformer()

	tx := tr.Transform(domain.ProviderTransaction{
		TransactionID: "ptx-3",
		AccountID:     "acc-1",
		Amount:        12.00,
		Date:          "2026-08-20",
		Name:          "Uber Trip",
		Pending:       true,
	})

	if tx.Status != domain.StatusPending {
		t.Errorf("expected pending, got %s", tx.Status)
	}
	if !hasTag(tx.Tags, "pending") {
		t.Errorf("expected pending tag, got %v", tx.Tags)
	}
}

func TestTransform_UnmappedCategoryFallsBackToOther(t *testing.T) {
	tr := service.NewTransformer()

	tx := tr.Transform(domain.ProviderTransaction{
		TransactionID: "ptx-4",
		AccountID:     "acc-1",
		Amount:        5.00,
		Date:          "2026-08-20",
		Name:          "Mystery Charge",
		Category:      []string{"Cryptozoology"},
	})

	if tx.Category != "Other" {
		t.Errorf("expected fallback 'Other', got %q", tx.Category)
	}
	if tx.Subcategory != "" {
		t.Errorf("expected no subcategory on fallback, got %q", tx.Subcategory)
	}
}

func TestTransform_BadDateFallsBackToNow(t *testing.T) {
	tr := service.NewTransformer()
	before := time.Now()

	tx := tr.Transform(domain.ProviderTransaction{
		TransactionID: "ptx-5",
		AccountID:     "acc-1",
		Amount:        1.00,
		Date:          "not-a-date",
		Name:          "x",
	})

	if tx.Date.Before(before) {
		t.Errorf("expected fallback to now, got %v", tx.Date)
	}
}

func TestTransform_DescriptionCleansing(t *testing.T) {
	tr := service.NewTransformer()

	tx := tr.Transform(domain.ProviderTransaction{
		TransactionID: "ptx-6",
		AccountID:     "acc-1",
		Amount:        9.99,
		Date:          "2026-08-10",
		Name:          "  NETFLIX.COM\t\t  ~~~ billing ",
	})

	if tx.Description != "NETFLIX.COM billing" {
		t.Errorf("unexpected cleansed description: %q", tx.Description)
	}
	if !hasTag(tx.Tags, "subscription") {
		t.Errorf("expected subscription tag, got %v", tx.Tags)
	}
}

func TestTransform_DescriptionTruncated(t *testing.T) {
	tr := service.NewTransformer()

	tx := tr.Transform(domain.ProviderTransaction{
		TransactionID: "ptx-7",
		AccountID:     "acc-1",
		Amount:        1.00,
		Date:          "2026-08-10",
		Name:          strings.Repeat("A", 500),
	})

	if len(tx.Description) > service.DescriptionLimit {
		t.Errorf("description exceeds limit: %d", len(tx.Description))
	}
}

func TestTransform_MerchantFromTrailingDigits(t *testing.T) {
	tr := service.NewTransformer()

	tx := tr.Transform(domain.ProviderTransaction{
		TransactionID: "ptx-8",
		AccountID:     "acc-1",
		Amount:        4.85,
		Date:          "2026-08-10",
		Name:          "STARBUCKS STORE 08421",
	})

	if tx.Merchant != "STARBUCKS STORE" {
		t.Errorf("expected merchant 'STARBUCKS STORE', got %q", tx.Merchant)
	}
}

func TestTransform_ProviderMerchantWins(t *testing.T) {
	tr := service.NewTransformer()

	tx := tr.Transform(domain.ProviderTransaction{
		TransactionID: "ptx-9",
		AccountID:     "acc-1",
		Amount:        4.85,
		Date:          "2026-08-10",
		Name:          "SQ *COFFEE 1234",
		MerchantName:  "Blue Bottle Coffee",
	})

	if tx.Merchant != "Blue Bottle Coffee" {
		t.Errorf("expected provider merchant to win, got %q", tx.Merchant)
	}
}

func TestTransform_LargeExpenseAndTravelTags(t *testing.T) {
	tr := service.NewTransformer()

	tx := tr.Transform(domain.ProviderTransaction{
		TransactionID: "ptx-10",
		AccountID:     "acc-1",
		Amount:        820.00,
		Date:          "2026-08-02",
		Name:          "DELTA AIR LINES",
		Category:      []string{"Travel", "Airlines"},
	})

	if !hasTag(tx.Tags, "large-expense") {
		t.Errorf("expected large-expense tag, got %v", tx.Tags)
	}
	if !hasTag(tx.Tags, "travel") {
		t.Errorf("expected travel tag, got %v", tx.Tags)
	}
}

func TestValidate(t *testing.T) {
	tr := service.NewTransformer()

	valid := domain.Transaction{
		AccountID:   "acc-1",
		Amount:      10,
		Type:        domain.TypeExpense,
		Description: "ok",
	}
	if err := tr.Validate(valid); err != nil {
		t.Fatalf("expected valid record, got %v", err)
	}

	cases := []struct {
		name  string
		tx    domain.Transaction
		field string
	}{
		{"missing account", domain.Transaction{Amount: 1, Type: domain.TypeExpense}, "account_id"},
		{"negative amount", domain.Transaction{AccountID: "a", Amount: -1, Type: domain.TypeExpense}, "amount"},
		{"bad type", domain.Transaction{AccountID: "a", Amount: 1, Type: "transfer"}, "type"},
		{"long description", domain.Transaction{AccountID: "a", Amount: 1, Type: domain.TypeIncome, Description: strings.Repeat("x", 201)}, "description"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tr.Validate(tc.tx)
			if err == nil {
				t.Fatal("expected validation error")
			}
			vErr, ok := err.(*domain.ErrValidation)
			if !ok {
				t.Fatalf("expected *domain.ErrValidation, got %T", err)
			}
			if vErr.Field != tc.field {
				t.Errorf("expected field %q, got %q", tc.field, vErr.Field)
			}
		})
	}
}

func TestTransform_Deterministic(t *testing.T) {
	tr := service.NewTransformer()
	raw := domain.ProviderTransaction{
		TransactionID: "ptx-11",
		AccountID:     "acc-1",
		Amount:        15.75,
		Date:          "2026-08-05",
		Name:          "SPOTIFY USA",
		Category:      []string{"Service"},
	}

	a := tr.Transform(raw)
	b := tr.Transform(raw)

	if a.Amount != b.Amount || a.Type != b.Type || a.Description != b.Description ||
		a.Category != b.Category || a.Merchant != b.Merchant {
		t.Error("same raw record must transform to the same canonical fields")
	}
	if len(a.Tags) != len(b.Tags) {
		t.Errorf("tags differ between runs: %v vs %v", a.Tags, b.Tags)
	}
}

func hasTag(tags []string, want string) bool {
	for _, tag := range tags {
		if tag == want {
			return true
		}
	}
	return false
}
