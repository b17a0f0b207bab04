package provider_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/arunvilla/Finomini-POC-sub002/internal/domain"
	"github.com/arunvilla/Finomini-POC-sub002/internal/infra/observability"
	"github.com/arunvilla/Finomini-POC-sub002/internal/infra/provider"
	"github.com/arunvilla/Finomini-POC-sub002/internal/infra/resilience"

	"go.uber.org/zap"
)

func newTestClient(serverURL string) *provider.Client {
	return provider.NewClient(
		&http.Client{Timeout: 5 * time.Second},
		serverURL,
		"client-id",
		"secret",
		resilience.NewCircuitBreaker("provider-test"),
		observability.NewMetrics(),
		zap.NewNop(),
	)
}

func TestListTransactions(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/transactions/get" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"transactions": []domain.ProviderTransaction{
				{TransactionID: "ptx-1", AccountID: "acc-1", Amount: 12.50, Date: "2026-08-10", Name: "COFFEE"},
			},
			"total_transactions": 1,
		})
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)

	txns, total, err := c.ListTransactions(context.Background(), "access-token", start, end, 500, 0)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if total != 1 || len(txns) != 1 {
		t.Fatalf("expected 1 transaction, got %d (total %d)", len(txns), total)
	}
	if txns[0].TransactionID != "ptx-1" {
		t.Errorf("unexpected transaction id %q", txns[0].TransactionID)
	}

	if gotBody["access_token"] != "access-token" {
		t.Errorf("expected access token forwarded, got %v", gotBody["access_token"])
	}
	if gotBody["start_date"] != "2026-08-01" {
		t.Errorf("expected start date 2026-08-01, got %v", gotBody["start_date"])
	}
}

func TestListTransactions_AuthError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{
			"error_type":    "ITEM_ERROR",
			"error_code":    "ITEM_LOGIN_REQUIRED",
			"error_message": "the login details of this item have changed",
		})
	}))
	defer server.Close()

	c := newTestClient(server.URL)

	_, _, err := c.ListTransactions(context.Background(), "stale-token", time.Now().Add(-time.Hour), time.Now(), 500, 0)
	if err == nil {
		t.Fatal("expected auth error")
	}

	var authErr *domain.ErrAuth
	if !errors.As(err, &authErr) {
		t.Fatalf("expected *domain.ErrAuth, got %T: %v", err, err)
	}
	if authErr.Reason == "" {
		t.Error("expected the gateway's error message carried as reason")
	}
}

func TestListAccounts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/accounts/get" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"accounts": []domain.ProviderAccount{
				{AccountID: "acc-1", Name: "Checking", Type: "depository"},
				{AccountID: "acc-2", Name: "Savings", Type: "depository"},
			},
		})
	}))
	defer server.Close()

	c := newTestClient(server.URL)

	accounts, err := c.ListAccounts(context.Background(), "access-token")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(accounts) != 2 {
		t.Errorf("expected 2 accounts, got %d", len(accounts))
	}
}

func TestForceRefresh_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	c := newTestClient(server.URL)

	if err := c.ForceRefresh(context.Background(), "access-token"); err == nil {
		t.Fatal("expected error on gateway failure")
	}
}

func TestCircuitBreaker_OpensAfterRepeatedFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	c := newTestClient(server.URL)

	// Trip the breaker: it opens at >=5 requests with a 60% failure ratio.
	var lastErr error
	for i := 0; i < 10; i++ {
		lastErr = c.ForceRefresh(context.Background(), "access-token")
	}
	if lastErr == nil {
		t.Fatal("expected failures against a broken gateway")
	}

	var openErr *domain.ErrCircuitOpen
	if !errors.As(lastErr, &openErr) {
		t.Fatalf("expected *domain.ErrCircuitOpen after repeated failures, got %T: %v", lastErr, lastErr)
	}
}
