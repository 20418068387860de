// Package apierror provides standardized error response structures for the
// local API plus the error taxonomy shared by the store, sync, and submission
// layers. All errors returned to the UI go through this package to ensure
// consistency and to prevent leaking internals.
package apierror

import (
	"errors"
	"fmt"
)

// APIError is the canonical error envelope for all 4xx/5xx HTTP responses.
type APIError struct {
	Detail string `json:"detail"`
}

func New(msg string) *APIError {
	return &APIError{Detail: msg}
}

// FieldErrors wraps multiple field validation errors.
type FieldErrors struct {
	Detail string            `json:"detail"`
	Fields map[string]string `json:"fields"`
}

func NewFields(fields map[string]string) *FieldErrors {
	return &FieldErrors{Detail: "validation error", Fields: fields}
}

// ── Core taxonomy ─────────────────────────────────────────────────────────────

var (
	// ErrStorageUnavailable: the local store could not be opened. Fatal for
	// offline capability until the store is re-initialized.
	ErrStorageUnavailable = errors.New("local store unavailable")

	// ErrDuplicateOrder: a caller-supplied client order id already exists in
	// the queue. Rejected, never silently overwritten.
	ErrDuplicateOrder = errors.New("client order id already queued")

	// ErrOrderNotFound: a status update targeted a missing queued order.
	ErrOrderNotFound = errors.New("queued order not found")

	// ErrStockLimit: requested quantity exceeds the cached available stock.
	ErrStockLimit = errors.New("quantity exceeds available stock")
)

// NetworkError marks a transport-level failure reaching the remote POS API.
// During direct submission it triggers the fallback to the offline queue;
// during a sync pass it marks the individual order FAILED.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("pos api: %s: network error: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// IsNetwork reports whether err is (or wraps) a NetworkError.
func IsNetwork(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

// ValidationError is a payload rejection by the remote endpoint. It must never
// be queued for retry: the payload itself is at fault, not connectivity.
type ValidationError struct {
	Status  int
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("pos api: rejected (%d): %s", e.Status, e.Message)
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
