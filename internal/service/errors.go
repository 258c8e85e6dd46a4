package service

import (
	"errors"
	"fmt"
)

// ValidationError reports malformed sale input. Not retryable.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// ProductNotFoundError reports a line item whose product does not exist
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

// InsufficientStockError reports a line item asking for more than is on hand
type InsufficientStockError struct {
	ProductID string
	Name      string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: requested=%d, available=%d",
		e.ProductID, e.Requested, e.Available)
}

// TransactionAbortedError wraps an infrastructure failure. Nothing from the
// attempt was persisted, so the whole call is safe to retry.
type TransactionAbortedError struct {
	Err error
}

func (e *TransactionAbortedError) Error() string {
	return fmt.Sprintf("sale transaction aborted: %v", e.Err)
}

func (e *TransactionAbortedError) Unwrap() error {
	return e.Err
}

// DuplicateRequestError reports a sale with the same idempotency key still in flight
type DuplicateRequestError struct {
	Key string
}

func (e *DuplicateRequestError) Error() string {
	return fmt.Sprintf("sale with idempotency key %q is already being processed", e.Key)
}

// failureReason classifies err for metrics. ok is false for errors that are
// not part of the sale error taxonomy.
func failureReason(err error) (reason string, ok bool) {
	var (
		validationErr *ValidationError
		notFoundErr   *ProductNotFoundError
		stockErr      *InsufficientStockError
	)

	switch {
	case errors.As(err, &validationErr):
		return "validation", true
	case errors.As(err, &notFoundErr):
		return "product_not_found", true
	case errors.As(err, &stockErr):
		return "insufficient_stock", true
	}
	return "", false
}
