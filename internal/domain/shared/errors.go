package shared

import "errors"

// ErrorKind classifies a DomainError for propagation decisions.
// Validation and permission failures are never retried; conflicts are safe to
// retry after re-reading state; infrastructure failures abort atomic batches.
type ErrorKind string

const (
	KindValidation     ErrorKind = "VALIDATION"
	KindNotFound       ErrorKind = "NOT_FOUND"
	KindPermission     ErrorKind = "PERMISSION"
	KindConflict       ErrorKind = "CONFLICT"
	KindInfrastructure ErrorKind = "INFRASTRUCTURE"
)

// DomainError represents a domain-level error
type DomainError struct {
	Kind    ErrorKind `json:"kind"`
	Code    string    `json:"code"`
	Message string    `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is lets errors.Is match sentinel domain errors by code
func (e *DomainError) Is(target error) bool {
	var de *DomainError
	if errors.As(target, &de) {
		return e.Code == de.Code
	}
	return false
}

// NewDomainError creates a new domain error with an explicit kind
func NewDomainError(kind ErrorKind, code, message string) *DomainError {
	return &DomainError{Kind: kind, Code: code, Message: message}
}

// NewValidationError creates a validation-kind domain error
func NewValidationError(code, message string) *DomainError {
	return NewDomainError(KindValidation, code, message)
}

// NewNotFoundError creates a not-found-kind domain error
func NewNotFoundError(code, message string) *DomainError {
	return NewDomainError(KindNotFound, code, message)
}

// NewPermissionError creates a permission-kind domain error
func NewPermissionError(code, message string) *DomainError {
	return NewDomainError(KindPermission, code, message)
}

// NewConflictError creates a conflict-kind domain error
func NewConflictError(code, message string) *DomainError {
	return NewDomainError(KindConflict, code, message)
}

// Common domain errors
var (
	ErrNotFound            = NewNotFoundError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists       = NewConflictError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput        = NewValidationError("INVALID_INPUT", "Invalid input provided")
	ErrMissingContext      = NewValidationError("MISSING_CONTEXT", "Operation context is incomplete")
	ErrPermissionDenied    = NewPermissionError("PERMISSION_DENIED", "Not authorized to perform this action")
	ErrInvalidState        = NewConflictError("INVALID_STATE", "Operation not allowed in current state")
	ErrInsufficientStock   = NewConflictError("INSUFFICIENT_STOCK", "Insufficient stock available")
	ErrConcurrencyConflict = NewConflictError("CONCURRENCY_CONFLICT", "Resource was modified by another process")
)

// KindOf returns the ErrorKind of err, or KindInfrastructure for errors that
// did not originate in the domain (driver failures, timeouts, deadlocks).
func KindOf(err error) ErrorKind {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInfrastructure
}

// CodeOf returns the code of a domain error, or an empty string for
// errors that did not originate in the domain.
func CodeOf(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// IsNotFound reports whether err is a not-found domain error
func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}

// IsConflict reports whether err is a conflict domain error
func IsConflict(err error) bool {
	return KindOf(err) == KindConflict
}

// IsValidation reports whether err is a validation domain error
func IsValidation(err error) bool {
	return KindOf(err) == KindValidation
}
