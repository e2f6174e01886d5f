package dto

import "net/http"

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	ErrCodeUnknown  = "ERR_UNKNOWN"
	ErrCodeInternal = "ERR_INTERNAL"
	// ErrCodeUnavailable is used when a dependency such as the database is down
	ErrCodeUnavailable = "ERR_UNAVAILABLE"
)

// Input error codes
const (
	ErrCodeBadRequest   = "ERR_BAD_REQUEST"
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
	ErrCodeTooLarge     = "ERR_REQUEST_TOO_LARGE"
)

// Resource error codes
const (
	ErrCodeNotFound            = "ERR_NOT_FOUND"
	ErrCodeAlreadyExists       = "ERR_ALREADY_EXISTS"
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"
)

// Business rule error codes
const (
	ErrCodeInvalidState  = "ERR_INVALID_STATE"
	ErrCodeBusinessRule  = "ERR_BUSINESS_RULE"
	ErrCodeHierarchy     = "ERR_HIERARCHY"
	ErrCodeTenantContext = "ERR_TENANT_CONTEXT"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeUnknown:     http.StatusInternalServerError,
	ErrCodeInternal:    http.StatusInternalServerError,
	ErrCodeUnavailable: http.StatusServiceUnavailable,

	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeInvalidInput: http.StatusBadRequest,
	ErrCodeTooLarge:     http.StatusRequestEntityTooLarge,

	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeAlreadyExists:       http.StatusConflict,
	ErrCodeConcurrencyConflict: http.StatusConflict,

	// Business rule errors -> 422 Unprocessable Entity
	ErrCodeInvalidState:  http.StatusUnprocessableEntity,
	ErrCodeBusinessRule:  http.StatusUnprocessableEntity,
	ErrCodeHierarchy:     http.StatusUnprocessableEntity,
	ErrCodeTenantContext: http.StatusUnprocessableEntity,
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
	"NOT_FOUND":                        ErrCodeNotFound,
	"ALREADY_EXISTS":                   ErrCodeAlreadyExists,
	"INVALID_INPUT":                    ErrCodeInvalidInput,
	"INVALID_FIELD":                    ErrCodeInvalidInput,
	"INVALID_STATE":                    ErrCodeInvalidState,
	"CONCURRENCY_CONFLICT":             ErrCodeConcurrencyConflict,
	"TENANT_CONTEXT":                   ErrCodeTenantContext,
	"INTERNAL_ERROR":                   ErrCodeInternal,
	"ACCOUNT_SELF_PARENT":              ErrCodeHierarchy,
	"ACCOUNT_HIERARCHY_CYCLE":          ErrCodeHierarchy,
	"ACCOUNT_HIERARCHY_DEPTH_EXCEEDED": ErrCodeHierarchy,
	"ACCOUNT_PARENT_NOT_FOUND":         ErrCodeHierarchy,
	"ACCOUNT_CLASSIFICATION_MISMATCH":  ErrCodeHierarchy,
}

// NormalizeErrorCode converts a domain error code to the API format.
// Unmapped domain codes are business rule violations; codes already in
// the API format are returned as-is.
func NormalizeErrorCode(code string) string {
	if apiCode, ok := DomainErrorCodeMapping[code]; ok {
		return apiCode
	}
	if _, ok := ErrorCodeHTTPStatus[code]; ok {
		return code
	}
	return ErrCodeBusinessRule
}
