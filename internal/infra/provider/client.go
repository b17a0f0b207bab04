// Package provider implements the ProviderAPI port against the banking-data
// provider gateway. Each call goes through the shared circuit breaker; retry
// policy lives in the fetcher service, not here.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/arunvilla/Finomini-POC-sub002/internal/domain"
	"github.com/arunvilla/Finomini-POC-sub002/internal/infra/observability"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("infra/provider")

// Client talks to the provider gateway over HTTP.
type Client struct {
	httpClient *http.Client
	baseURL    string
	clientID   string
	secret     string
	cb         *gobreaker.CircuitBreaker
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// NewClient creates a provider gateway client.
func NewClient(httpClient *http.Client, baseURL, clientID, secret string, cb *gobreaker.CircuitBreaker, metrics *observability.Metrics, logger *zap.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		clientID:   clientID,
		secret:     secret,
		cb:         cb,
		metrics:    metrics,
		logger:     logger,
	}
}

type listTransactionsRequest struct {
	ClientID    string                  `json:"client_id"`
	Secret      string                  `json:"secret"`
	AccessToken string                  `json:"access_token"`
	StartDate   string                  `json:"start_date"`
	EndDate     string                  `json:"end_date"`
	Options     listTransactionsOptions `json:"options"`
}

type listTransactionsOptions struct {
	Count  int `json:"count"`
	Offset int `json:"offset"`
}

type listTransactionsResponse struct {
	Transactions      []domain.ProviderTransaction `json:"transactions"`
	TotalTransactions int                          `json:"total_transactions"`
}

// ListTransactions fetches one page of raw transactions in [start, end].
func (c *Client) ListTransactions(ctx context.Context, accessToken string, start, end time.Time, pageSize, offset int) ([]domain.ProviderTransaction, int, error) {
	ctx, span := tracer.Start(ctx, "ProviderClient.ListTransactions")
	defer span.End()
	span.SetAttributes(
		attribute.String("window.start", start.Format("2006-01-02")),
		attribute.String("window.end", end.Format("2006-01-02")),
		attribute.Int("page.offset", offset),
	)

	body := listTransactionsRequest{
		ClientID:    c.clientID,
		Secret:      c.secret,
		AccessToken: accessToken,
		StartDate:   start.Format("2006-01-02"),
		EndDate:     end.Format("2006-01-02"),
		Options:     listTransactionsOptions{Count: pageSize, Offset: offset},
	}

	var out listTransactionsResponse
	err := c.post(ctx, "transactions_get", "/transactions/get", body, &out)
	if err != nil {
		return nil, 0, err
	}
	return out.Transactions, out.TotalTransactions, nil
}

type tokenRequest struct {
	ClientID    string `json:"client_id"`
	Secret      string `json:"secret"`
	AccessToken string `json:"access_token"`
}

type listAccountsResponse struct {
	Accounts []domain.ProviderAccount `json:"accounts"`
}

// ListAccounts returns the accounts reachable through the token.
func (c *Client) ListAccounts(ctx context.Context, accessToken string) ([]domain.ProviderAccount, error) {
	ctx, span := tracer.Start(ctx, "ProviderClient.ListAccounts")
	defer span.End()

	var out listAccountsResponse
	if err := c.post(ctx, "accounts_get", "/accounts/get", tokenRequest{
		ClientID: c.clientID, Secret: c.secret, AccessToken: accessToken,
	}, &out); err != nil {
		return nil, err
	}
	return out.Accounts, nil
}

// ForceRefresh asks the provider to pull fresh data from the institution.
func (c *Client) ForceRefresh(ctx context.Context, accessToken string) error {
	ctx, span := tracer.Start(ctx, "ProviderClient.ForceRefresh")
	defer span.End()

	return c.post(ctx, "transactions_refresh", "/transactions/refresh", tokenRequest{
		ClientID: c.clientID, Secret: c.secret, AccessToken: accessToken,
	}, &struct{}{})
}

// providerErrorBody is the gateway's error envelope.
type providerErrorBody struct {
	ErrorType    string `json:"error_type"`
	ErrorCode    string `json:"error_code"`
	ErrorMessage string `json:"error_message"`
}

// post executes one JSON round-trip through the circuit breaker and decodes
// the response into out. Auth failures come back as *domain.ErrAuth so
// callers can fail fast instead of retrying.
func (c *Client) post(ctx context.Context, operation, path string, in, out any) error {
	_, err := c.cb.Execute(func() (any, error) {
		payload, err := json.Marshal(in)
		if err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			c.metrics.IncrProviderCall(operation, "network_error")
			return nil, err
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK:
			c.metrics.IncrProviderCall(operation, "ok")
			return nil, json.NewDecoder(resp.Body).Decode(out)

		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			var body providerErrorBody
			_ = json.NewDecoder(resp.Body).Decode(&body)
			c.metrics.IncrProviderCall(operation, "auth_error")
			c.logger.Warn("provider rejected access token",
				zap.String("operation", operation),
				zap.String("error_code", body.ErrorCode),
			)
			reason := body.ErrorMessage
			if reason == "" {
				reason = fmt.Sprintf("status %d", resp.StatusCode)
			}
			return nil, &domain.ErrAuth{Reason: reason}

		default:
			c.metrics.IncrProviderCall(operation, "error")
			return nil, fmt.Errorf("provider returned status %d", resp.StatusCode)
		}
	})

	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return &domain.ErrCircuitOpen{Service: "provider"}
		}
		return err
	}
	return nil
}
