package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Error types for consistent error handling across the ledger.

// ErrNotFound indicates a resource was not found.
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrExternalService indicates a failure talking to the backing store or
// another remote service.
type ErrExternalService struct {
	Service string
	Err     error
}

func (e *ErrExternalService) Error() string {
	return fmt.Sprintf("external service error [%s]: %v", e.Service, e.Err)
}

func (e *ErrExternalService) Unwrap() error {
	return e.Err
}

// ErrCircuitOpen indicates the circuit breaker is open.
type ErrCircuitOpen struct {
	Service string
}

func (e *ErrCircuitOpen) Error() string {
	return fmt.Sprintf("circuit breaker open for service: %s", e.Service)
}

// ErrValidation indicates a validation error (bad input).
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error on '%s': %s", e.Field, e.Message)
}

// ErrInvalidIndex indicates a listing position outside the fetch window.
type ErrInvalidIndex struct {
	Index int
	Max   int
}

func (e *ErrInvalidIndex) Error() string {
	return fmt.Sprintf("invalid index %d: window has %d entries", e.Index, e.Max)
}

// ErrInvalidDate indicates a date token that could not be resolved.
type ErrInvalidDate struct {
	Token string
}

func (e *ErrInvalidDate) Error() string {
	return fmt.Sprintf("invalid date token: %q", e.Token)
}

// ErrOverpay indicates a repayment larger than the outstanding balance.
type ErrOverpay struct {
	Name    string
	Balance decimal.Decimal
}

func (e *ErrOverpay) Error() string {
	return fmt.Sprintf("repayment exceeds balance of %s: %s", e.Name, e.Balance.StringFixed(2))
}

// ErrSignature indicates an export link that failed verification. It never
// says which check failed.
type ErrSignature struct{}

func (e *ErrSignature) Error() string {
	return "invalid or expired export link"
}
