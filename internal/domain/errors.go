package domain

import "fmt"

// Error types for consistent error handling across the sync engine.

// ErrNotFound indicates a resource was not found.
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrConnection indicates the provider could not be reached after the
// fetcher exhausted its retries. The orchestrator does not retry further;
// it is a terminal failure for that link's sync.
type ErrConnection struct {
	Institution string
	Err         error
}

func (e *ErrConnection) Error() string {
	return fmt.Sprintf("provider connection failed [%s]: %v", e.Institution, e.Err)
}

func (e *ErrConnection) Unwrap() error {
	return e.Err
}

// ErrAuth indicates the provider rejected the access token. Never retried:
// the user has to reconnect the institution.
type ErrAuth struct {
	Institution string
	Reason      string
}

func (e *ErrAuth) Error() string {
	return fmt.Sprintf("provider auth failed [%s]: %s", e.Institution, e.Reason)
}

// ErrValidation indicates a record or request failed schema validation.
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error on '%s': %s", e.Field, e.Message)
}

// ErrStorage indicates a checkpoint or result persistence failure. Computed
// results are still handed back to the caller; only durability was lost.
type ErrStorage struct {
	Op  string
	Err error
}

func (e *ErrStorage) Error() string {
	return fmt.Sprintf("storage error [%s]: %v", e.Op, e.Err)
}

func (e *ErrStorage) Unwrap() error {
	return e.Err
}

// ErrCircuitOpen indicates the provider circuit breaker is open.
type ErrCircuitOpen struct {
	Service string
}

func (e *ErrCircuitOpen) Error() string {
	return fmt.Sprintf("circuit breaker open for service: %s", e.Service)
}

// ErrUnauthorized indicates an invalid or missing API token.
type ErrUnauthorized struct {
	Message string
}

func (e *ErrUnauthorized) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "unauthorized"
}
