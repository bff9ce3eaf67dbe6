package stock

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a stock item, issuance or order id does
	// not resolve.
	ErrNotFound = errors.New("not found")

	// ErrHasHistory is returned when deleting a stock item that still has
	// ledger entries or issuances referencing it.
	ErrHasHistory = errors.New("stock item has ledger history")
)

// InsufficientStockError is returned when an issue request exceeds the
// available quantity. It carries both sides for caller-facing messaging.
type InsufficientStockError struct {
	Available int64
	Requested int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock: %d available, %d requested", e.Available, e.Requested)
}

// AlreadyReturnedError is returned when returning an issuance that has
// already been returned. No mutation happens.
type AlreadyReturnedError struct {
	IssuanceID string
}

func (e *AlreadyReturnedError) Error() string {
	return fmt.Sprintf("issuance %s already returned", e.IssuanceID)
}

// ValidationError reports a malformed request caught before any mutation.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
