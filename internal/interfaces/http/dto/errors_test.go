package dto

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		code     string
		expected int
	}{
		{ErrCodeInternal, http.StatusInternalServerError},
		{ErrCodeAlreadyExists, http.StatusConflict},
		{ErrCodeRequestInvalid, http.StatusBadRequest},
		{ErrCodeRequestTooLarge, http.StatusRequestEntityTooLarge},
		{ErrCodeTokenExpired, http.StatusUnauthorized},
		{ErrCodeNotFound, http.StatusNotFound},
		{ErrCodeRateNotFound, http.StatusNotFound},
		{ErrCodeConcurrencyConflict, http.StatusConflict},
		{ErrCodeValidation, http.StatusUnprocessableEntity},
		{ErrCodeInvalidState, http.StatusUnprocessableEntity},
		{ErrCodeRemoteCall, http.StatusBadGateway},
		{ErrCodeStorageDisabled, http.StatusServiceUnavailable},
		{ErrCodeRateLimited, http.StatusTooManyRequests},
		{"ERR_INVALID_PAYMENT_TYPE", http.StatusBadRequest},
		{"ERR_SOMETHING_ELSE", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.expected, StatusFor(tt.code))
		})
	}
}

func TestAPICode(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"NOT_FOUND", ErrCodeNotFound},
		{"INVALID_STATE", ErrCodeInvalidState},
		{"CONCURRENCY_CONFLICT", ErrCodeConcurrencyConflict},
		{"RATE_NOT_FOUND", ErrCodeRateNotFound},
		{"STORAGE_DISABLED", ErrCodeStorageDisabled},
		{"VALIDATION_ERROR", ErrCodeValidation},
		{"REMOTE_CALL_FAILED", ErrCodeRemoteCall},
		{"INVALID_PARTY_TYPE", "ERR_INVALID_PARTY_TYPE"},
		{ErrCodeNotFound, ErrCodeNotFound},
		{"", ErrCodeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, APICode(tt.input))
		})
	}
}

func TestErrorResponseEnvelope(t *testing.T) {
	resp := NewErrorResponseWithDetails(ErrCodeValidation, "Row 2: Exchange Rate cannot be zero", "req-1",
		RowValidationDetail{RowIdx: 2, Field: "target_exchange_rate"})

	raw, err := json.Marshal(resp)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, false, decoded["success"])
	assert.NotContains(t, decoded, "data")

	errInfo := decoded["error"].(map[string]any)
	assert.Equal(t, ErrCodeValidation, errInfo["code"])
	assert.Equal(t, "req-1", errInfo["request_id"])
	assert.Equal(t, map[string]any{"row_idx": float64(2), "field": "target_exchange_rate"}, errInfo["details"])
}

func TestValidationErrorResponse(t *testing.T) {
	resp := NewValidationErrorResponse("Request validation failed", "", []ValidationDetail{{Field: "company", Message: "This field is required"}})

	assert.False(t, resp.Success)
	assert.Equal(t, ErrCodeRequestInvalid, resp.Error.Code)
	assert.Empty(t, resp.Error.RequestID)
	assert.Len(t, resp.Error.Details, 1)
}
