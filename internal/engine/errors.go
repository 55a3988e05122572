package engine

import (
	"errors"
	"fmt"
)

// DomainError represents a rejected engine operation.
//
// Domain errors are always no-ops: the operation left no partial state
// change behind. Transient storage errors are returned as plain wrapped
// errors instead, and the caller retries against the idempotent contracts.
type DomainError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// OwnerID identifies the affected schedule or monitor, when known.
	OwnerID string

	// OccurrenceID identifies the affected occurrence, when known.
	OccurrenceID string
}

// ErrorCode categorizes domain errors.
type ErrorCode string

const (
	// ErrCodeStateConflict indicates an invalid status transition, e.g.
	// overriding an occurrence that is not MISSED.
	ErrCodeStateConflict ErrorCode = "STATE_CONFLICT"

	// ErrCodeNotFound indicates a reference to an owner with no active
	// rule/monitor, or to a nonexistent occurrence.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	// ErrCodeNoDueWindow indicates an event on a date the owner's
	// definition expects nothing for (excluded weekday, outside the
	// rule's date bounds, weekday not listed for DOW).
	ErrCodeNoDueWindow ErrorCode = "NO_DUE_WINDOW"
)

// Error implements the error interface.
func (e *DomainError) Error() string {
	switch {
	case e.OccurrenceID != "":
		return fmt.Sprintf("%s: %s (occurrence=%s)", e.Code, e.Message, e.OccurrenceID)
	case e.OwnerID != "":
		return fmt.Sprintf("%s: %s (owner=%s)", e.Code, e.Message, e.OwnerID)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
}

// IsStateConflict returns true for invalid-transition errors.
// Uses errors.As to handle wrapped errors.
func IsStateConflict(err error) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code == ErrCodeStateConflict
	}
	return false
}

// IsNotFound returns true for unknown-owner and unknown-occurrence errors.
func IsNotFound(err error) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code == ErrCodeNotFound || de.Code == ErrCodeNoDueWindow
	}
	return false
}

// NewStateConflictError creates a DomainError for an invalid transition.
func NewStateConflictError(occurrenceID, message string) *DomainError {
	return &DomainError{
		Code:         ErrCodeStateConflict,
		Message:      message,
		OccurrenceID: occurrenceID,
	}
}

// NewNotFoundError creates a DomainError for an unknown owner or occurrence.
func NewNotFoundError(ownerID, message string) *DomainError {
	return &DomainError{
		Code:    ErrCodeNotFound,
		Message: message,
		OwnerID: ownerID,
	}
}

// asDomainError unwraps err into target, returning whether it matched.
func asDomainError(err error, target **DomainError) bool {
	return errors.As(err, target)
}

// NewNoDueWindowError creates a DomainError for an event with no expected
// occurrence on its date. The event is surfaced to the producer, never
// silently dropped.
func NewNoDueWindowError(ownerID, message string) *DomainError {
	return &DomainError{
		Code:    ErrCodeNoDueWindow,
		Message: message,
		OwnerID: ownerID,
	}
}
