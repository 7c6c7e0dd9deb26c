package shared

import "errors"

// DomainError represents a domain-level error.
// Two DomainErrors match under errors.Is when their codes are equal, so
// callers can test against the sentinels below regardless of message.
type DomainError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	cause   error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

// Is reports whether target is a DomainError with the same code
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Unwrap returns the underlying cause, if any
func (e *DomainError) Unwrap() error {
	return e.cause
}

// WithDetail returns a copy of the error carrying an extra detail entry
func (e *DomainError) WithDetail(key string, value any) *DomainError {
	details := make(map[string]any, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value
	return &DomainError{Code: e.Code, Message: e.Message, Details: details, cause: e.cause}
}

// WithMessage returns a copy of the error with a more specific message
func (e *DomainError) WithMessage(message string) *DomainError {
	return &DomainError{Code: e.Code, Message: message, Details: e.Details, cause: e.cause}
}

// Wrap returns a copy of the error that records cause
func (e *DomainError) Wrap(cause error) *DomainError {
	return &DomainError{Code: e.Code, Message: e.Message, Details: e.Details, cause: cause}
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Error codes
const (
	CodeNotFound            = "NOT_FOUND"
	CodeAlreadyExists       = "ALREADY_EXISTS"
	CodeInvalidInput        = "INVALID_INPUT"
	CodeConcurrencyConflict = "CONCURRENCY_CONFLICT"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodePermissionDenied    = "PERMISSION_DENIED"
	CodeInvalidState        = "INVALID_STATE"
	CodeTerminalState       = "TERMINAL_STATE"
	CodeAlreadySubmitted    = "ALREADY_SUBMITTED"
	CodeMissingRequirements = "MISSING_REQUIREMENTS"
	CodeInvalidWorkflow     = "INVALID_WORKFLOW"
	CodeAmbiguousStage      = "AMBIGUOUS_STAGE"
	CodeStorageUnavailable  = "STORAGE_UNAVAILABLE"
)

// Common domain errors
var (
	ErrNotFound            = NewDomainError(CodeNotFound, "Resource not found")
	ErrAlreadyExists       = NewDomainError(CodeAlreadyExists, "Resource already exists")
	ErrInvalidInput        = NewDomainError(CodeInvalidInput, "Invalid input provided")
	ErrConcurrencyConflict = NewDomainError(CodeConcurrencyConflict, "Resource was modified by another process")
	ErrUnauthorized        = NewDomainError(CodeUnauthorized, "Not authorized to perform this action")
	ErrPermissionDenied    = NewDomainError(CodePermissionDenied, "Actor lacks the capability required for this action")
	ErrInvalidState        = NewDomainError(CodeInvalidState, "Operation not allowed in current state")
	ErrTerminalState       = NewDomainError(CodeTerminalState, "Application is in a terminal state")
	ErrAlreadySubmitted    = NewDomainError(CodeAlreadySubmitted, "Application has already been submitted")
	ErrMissingRequirements = NewDomainError(CodeMissingRequirements, "Required documents are missing or unverified")
	ErrInvalidWorkflow     = NewDomainError(CodeInvalidWorkflow, "Workflow definition is invalid")
	ErrAmbiguousStage      = NewDomainError(CodeAmbiguousStage, "Workflow contains stages with the same order")
	ErrStorageUnavailable  = NewDomainError(CodeStorageUnavailable, "Storage is temporarily unavailable")
)

// IsRetryable reports whether the caller may retry the failed operation unchanged
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStorageUnavailable) || errors.Is(err, ErrConcurrencyConflict)
}

// ErrorCode extracts the domain error code from err, or "" when err is not a DomainError
func ErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}
