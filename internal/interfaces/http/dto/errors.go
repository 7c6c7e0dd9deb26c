package dto

import (
	"net/http"

	"github.com/afrinict/nbcportal-sub001/internal/domain/shared"
)

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	ErrCodeUnknown  = "ERR_UNKNOWN"
	ErrCodeInternal = "ERR_INTERNAL"
)

// Validation error codes
const (
	// ErrCodeValidation is used when request binding or field validation fails
	ErrCodeValidation = "ERR_VALIDATION"
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
	// ErrCodeInvalidInput is used for values the domain rejects
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
	ErrCodeInvalidJSON  = "ERR_INVALID_JSON"
)

// Authentication error codes
const (
	ErrCodeUnauthorized = "ERR_UNAUTHORIZED"
	ErrCodeTokenExpired = "ERR_TOKEN_EXPIRED"
	ErrCodeTokenInvalid = "ERR_TOKEN_INVALID"
	ErrCodeTokenRevoked = "ERR_TOKEN_REVOKED"
	// ErrCodePermissionDenied is used when the actor lacks a capability
	ErrCodePermissionDenied = "ERR_PERMISSION_DENIED"
)

// Resource error codes
const (
	ErrCodeNotFound            = "ERR_NOT_FOUND"
	ErrCodeAlreadyExists       = "ERR_ALREADY_EXISTS"
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"
)

// Workflow error codes
const (
	ErrCodeInvalidState        = "ERR_INVALID_STATE"
	ErrCodeTerminalState       = "ERR_TERMINAL_STATE"
	ErrCodeAlreadySubmitted    = "ERR_ALREADY_SUBMITTED"
	ErrCodeMissingRequirements = "ERR_MISSING_REQUIREMENTS"
	ErrCodeInvalidWorkflow     = "ERR_INVALID_WORKFLOW"
	ErrCodeAmbiguousStage      = "ERR_AMBIGUOUS_STAGE"
)

// Availability error codes
const (
	// ErrCodeStorageUnavailable is retryable by the client
	ErrCodeStorageUnavailable = "ERR_STORAGE_UNAVAILABLE"
	ErrCodeRateLimited        = "ERR_RATE_LIMITED"
	ErrCodeRequestTooLarge    = "ERR_REQUEST_TOO_LARGE"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	ErrCodeValidation:   http.StatusBadRequest,
	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeInvalidInput: http.StatusBadRequest,
	ErrCodeInvalidJSON:  http.StatusBadRequest,

	ErrCodeUnauthorized:     http.StatusUnauthorized,
	ErrCodeTokenExpired:     http.StatusUnauthorized,
	ErrCodeTokenInvalid:     http.StatusUnauthorized,
	ErrCodeTokenRevoked:     http.StatusUnauthorized,
	ErrCodePermissionDenied: http.StatusForbidden,

	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeAlreadyExists:       http.StatusConflict,
	ErrCodeConcurrencyConflict: http.StatusConflict,

	// State conflicts -> 409, rule violations on the request -> 422
	ErrCodeInvalidState:        http.StatusConflict,
	ErrCodeTerminalState:       http.StatusConflict,
	ErrCodeAlreadySubmitted:    http.StatusConflict,
	ErrCodeMissingRequirements: http.StatusUnprocessableEntity,
	ErrCodeInvalidWorkflow:     http.StatusUnprocessableEntity,
	ErrCodeAmbiguousStage:      http.StatusUnprocessableEntity,

	ErrCodeStorageUnavailable: http.StatusServiceUnavailable,
	ErrCodeRateLimited:        http.StatusTooManyRequests,
	ErrCodeRequestTooLarge:    http.StatusRequestEntityTooLarge,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DomainErrorCodeMapping maps domain error codes to API error codes
var DomainErrorCodeMapping = map[string]string{
	shared.CodeNotFound:            ErrCodeNotFound,
	shared.CodeAlreadyExists:       ErrCodeAlreadyExists,
	shared.CodeInvalidInput:        ErrCodeInvalidInput,
	shared.CodeConcurrencyConflict: ErrCodeConcurrencyConflict,
	shared.CodeUnauthorized:        ErrCodeUnauthorized,
	shared.CodePermissionDenied:    ErrCodePermissionDenied,
	shared.CodeInvalidState:        ErrCodeInvalidState,
	shared.CodeTerminalState:       ErrCodeTerminalState,
	shared.CodeAlreadySubmitted:    ErrCodeAlreadySubmitted,
	shared.CodeMissingRequirements: ErrCodeMissingRequirements,
	shared.CodeInvalidWorkflow:     ErrCodeInvalidWorkflow,
	shared.CodeAmbiguousStage:      ErrCodeAmbiguousStage,
	shared.CodeStorageUnavailable:  ErrCodeStorageUnavailable,
}

// NormalizeErrorCode converts a domain error code to the API format.
// Codes already in the API format, and unknown codes, are returned as-is.
func NormalizeErrorCode(code string) string {
	if apiCode, ok := DomainErrorCodeMapping[code]; ok {
		return apiCode
	}
	return code
}
