package domain

import (
	"fmt"
	"sort"
	"strings"
)

// Error types for consistent error handling across the console BFA.

// ErrNotFound indicates a resource was not found.
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrExternalService indicates a failure in an external service call.
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

// ErrTimeout indicates an operation exceeded its deadline.
type ErrTimeout struct {
	Operation string
}

func (e *ErrTimeout) Error() string {
	return fmt.Sprintf("operation timed out: %s", e.Operation)
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

// ErrValidationSet carries every failing field of a form at once.
type ErrValidationSet struct {
	Fields map[string]string
}

func (e *ErrValidationSet) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// ErrQuotaExceeded indicates a plan quota would be exceeded.
type ErrQuotaExceeded struct {
	Resource string
	Limit    int
	Current  int
}

func (e *ErrQuotaExceeded) Error() string {
	return fmt.Sprintf("quota exceeded [%s]: limit=%d current=%d", e.Resource, e.Limit, e.Current)
}

// ErrForbidden indicates the user lacks permission for the operation.
type ErrForbidden struct {
	Action string
}

func (e *ErrForbidden) Error() string {
	return fmt.Sprintf("forbidden: %s", e.Action)
}

// ErrUnauthorized indicates invalid credentials or token.
type ErrUnauthorized struct {
	Message string
}

func (e *ErrUnauthorized) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "unauthorized"
}

// ErrAccountBlocked indicates the caller's profile is blocked.
type ErrAccountBlocked struct {
	Reason string
}

func (e *ErrAccountBlocked) Error() string {
	return "Conta bloqueada"
}

// ErrConflict indicates a resource already exists (e.g. duplicate product code).
type ErrConflict struct {
	Message string
}

func (e *ErrConflict) Error() string {
	return e.Message
}

// ErrInvalidTransition indicates a status change not allowed from the current state.
type ErrInvalidTransition struct {
	Resource string
	ID       string
	From     string
	To       string
}

func (e *ErrInvalidTransition) Error() string {
	return fmt.Sprintf("%s %s cannot move from %q to %q", e.Resource, e.ID, e.From, e.To)
}

// ErrProvisioning reports which provisioning step failed and whether the
// completed steps were undone.
type ErrProvisioning struct {
	Step            ProvisioningStep
	Err             error
	CompensationErr error
}

func (e *ErrProvisioning) Error() string {
	msg := fmt.Sprintf("partner provisioning failed at %s: %v", e.Step, e.Err)
	if e.CompensationErr != nil {
		msg += fmt.Sprintf(" (rollback incomplete: %v)", e.CompensationErr)
	}
	return msg
}

func (e *ErrProvisioning) Unwrap() error {
	return e.Err
}

// RolledBack reports whether every completed step was undone.
func (e *ErrProvisioning) RolledBack() bool {
	return e.CompensationErr == nil
}

// ErrStockUpdate is returned when the stock procedure rejects a movement.
type ErrStockUpdate struct {
	Message string
}

func (e *ErrStockUpdate) Error() string {
	return e.Message
}
