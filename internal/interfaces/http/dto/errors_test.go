package dto

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		code     string
		expected int
	}{
		{ErrCodeUnknown, http.StatusInternalServerError},
		{ErrCodeInternal, http.StatusInternalServerError},
		{ErrCodeUnavailable, http.StatusServiceUnavailable},
		{ErrCodeBadRequest, http.StatusBadRequest},
		{ErrCodeInvalidInput, http.StatusBadRequest},
		{ErrCodeTooLarge, http.StatusRequestEntityTooLarge},
		{ErrCodeNotFound, http.StatusNotFound},
		{ErrCodeAlreadyExists, http.StatusConflict},
		{ErrCodeConcurrencyConflict, http.StatusConflict},
		{ErrCodeInvalidState, http.StatusUnprocessableEntity},
		{ErrCodeHierarchy, http.StatusUnprocessableEntity},
		{ErrCodeTenantContext, http.StatusUnprocessableEntity},
		// Unknown code should return 500
		{"UNKNOWN_CODE", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetHTTPStatus(tt.code))
		})
	}
}

func TestNormalizeErrorCode(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"NOT_FOUND", ErrCodeNotFound},
		{"ALREADY_EXISTS", ErrCodeAlreadyExists},
		{"INVALID_INPUT", ErrCodeInvalidInput},
		{"INVALID_STATE", ErrCodeInvalidState},
		{"TENANT_CONTEXT", ErrCodeTenantContext},
		{"ACCOUNT_HIERARCHY_CYCLE", ErrCodeHierarchy},
		{"ACCOUNT_CLASSIFICATION_MISMATCH", ErrCodeHierarchy},
		// unmapped domain rules
		{"INVALID_ACCOUNT_NAME", ErrCodeBusinessRule},
		// already normalized
		{ErrCodeNotFound, ErrCodeNotFound},
		{ErrCodeInternal, ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeErrorCode(tt.input))
		})
	}
}

func TestNewSuccessResponseWithMeta(t *testing.T) {
	resp := NewSuccessResponseWithMeta([]string{"a", "b"}, 41, 2, 20)
	assert.True(t, resp.Success)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, 3, resp.Meta.TotalPages)

	empty := NewSuccessResponseWithMeta(nil, 0, 1, 0)
	assert.Zero(t, empty.Meta.TotalPages)
}

func TestNewErrorResponse_JSON(t *testing.T) {
	body, err := json.Marshal(NewErrorResponse(ErrCodeNotFound, "Job not found", "req-1"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":false,"error":{"code":"ERR_NOT_FOUND","message":"Job not found","request_id":"req-1"}}`, string(body))

	body, err = json.Marshal(NewErrorResponse(ErrCodeInternal, "boom", ""))
	require.NoError(t, err)
	assert.NotContains(t, string(body), "request_id")
}
