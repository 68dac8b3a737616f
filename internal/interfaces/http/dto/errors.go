package dto

import (
	"net/http"
	"strings"
)

// API error codes. Domain codes are exposed with an ERR_ prefix, see APICode.
const (
	ErrCodeUnknown  = "ERR_UNKNOWN"
	ErrCodeInternal = "ERR_INTERNAL"

	ErrCodeBadRequest      = "ERR_BAD_REQUEST"
	ErrCodeInvalidInput    = "ERR_INVALID_INPUT"
	ErrCodeInvalidJSON     = "ERR_INVALID_JSON"
	ErrCodeRequestInvalid  = "ERR_REQUEST_INVALID" // binding tags rejected the body
	ErrCodeRequestTooLarge = "ERR_REQUEST_TOO_LARGE"

	ErrCodeUnauthorized = "ERR_UNAUTHORIZED"
	ErrCodeTokenExpired = "ERR_TOKEN_EXPIRED"
	ErrCodeTokenInvalid = "ERR_TOKEN_INVALID"

	ErrCodeNotFound            = "ERR_NOT_FOUND"
	ErrCodeAlreadyExists       = "ERR_ALREADY_EXISTS"
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT" // stale version on save
	ErrCodeInvalidState        = "ERR_INVALID_STATE"        // entry already submitted or cancelled
	ErrCodeValidation          = "ERR_VALIDATION"

	ErrCodeRateNotFound    = "ERR_RATE_NOT_FOUND"
	ErrCodeRemoteCall      = "ERR_REMOTE_CALL"
	ErrCodeStorageDisabled = "ERR_STORAGE_DISABLED"
	ErrCodeRateLimited     = "ERR_RATE_LIMITED"
)

// StatusFor returns the HTTP status an error code is served with.
// Unlisted ERR_INVALID_* codes are client input errors.
func StatusFor(code string) int {
	switch code {
	case ErrCodeBadRequest, ErrCodeInvalidInput, ErrCodeInvalidJSON, ErrCodeRequestInvalid:
		return http.StatusBadRequest
	case ErrCodeRequestTooLarge:
		return http.StatusRequestEntityTooLarge
	case ErrCodeUnauthorized, ErrCodeTokenExpired, ErrCodeTokenInvalid:
		return http.StatusUnauthorized
	case ErrCodeNotFound, ErrCodeRateNotFound:
		return http.StatusNotFound
	case ErrCodeAlreadyExists, ErrCodeConcurrencyConflict:
		return http.StatusConflict
	case ErrCodeInvalidState, ErrCodeValidation:
		return http.StatusUnprocessableEntity
	case ErrCodeRemoteCall:
		return http.StatusBadGateway
	case ErrCodeStorageDisabled:
		return http.StatusServiceUnavailable
	case ErrCodeRateLimited:
		return http.StatusTooManyRequests
	}
	if strings.HasPrefix(code, "ERR_INVALID_") {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// renamedCodes are domain codes whose API name is not just the ERR_ prefixed form.
var renamedCodes = map[string]string{
	"VALIDATION_ERROR":   ErrCodeValidation,
	"REMOTE_CALL_FAILED": ErrCodeRemoteCall,
	"INTERNAL_ERROR":     ErrCodeInternal,
}

// APICode converts a domain error code to the code sent to clients.
func APICode(domainCode string) string {
	switch {
	case domainCode == "":
		return ErrCodeUnknown
	case strings.HasPrefix(domainCode, "ERR_"):
		return domainCode
	}
	if code, ok := renamedCodes[domainCode]; ok {
		return code
	}
	return "ERR_" + domainCode
}
