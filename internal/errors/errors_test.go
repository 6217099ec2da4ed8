package errors

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/render"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIError_Error(t *testing.T) {
	tests := []struct {
		name     string
		apiError *APIError
		want     string
	}{
		{
			name:     "simple message",
			apiError: New(http.StatusBadRequest, "INVALID_REQUEST", "Invalid request format"),
			want:     "Invalid request format",
		},
		{
			name:     "empty message",
			apiError: &APIError{StatusCode: http.StatusInternalServerError},
			want:     "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.apiError.Error())
		})
	}
}

func TestAPIError_RenderSetsStatus(t *testing.T) {
	for _, apiErr := range []*APIError{ErrInvalidRequest, ErrNotFound, ErrRateLimitExceeded, ErrInternalServer, ErrServiceUnavailable} {
		t.Run(apiErr.ErrorCode, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/test", nil)

			require.NoError(t, render.Render(w, r, apiErr))
			assert.Equal(t, apiErr.StatusCode, w.Code)

			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, apiErr.ErrorCode, body["error_code"])
		})
	}
}

func TestNewWithDetails(t *testing.T) {
	details := map[string]string{"view": "regional"}
	e := NewWithDetails(http.StatusNotFound, "NOT_FOUND", "view not found", details)

	assert.Equal(t, http.StatusNotFound, e.StatusCode)
	assert.Equal(t, "NOT_FOUND", e.ErrorCode)
	assert.Equal(t, details, e.Details)
	assert.Nil(t, e.Cause)
}

func TestInvalidRequestWithError(t *testing.T) {
	cause := errors.New("unexpected EOF")
	e := InvalidRequestWithError(cause)

	assert.Equal(t, http.StatusBadRequest, e.StatusCode)
	assert.Equal(t, "unexpected EOF", e.Details)
	assert.ErrorIs(t, e, cause)
}

func TestInvalidParameter(t *testing.T) {
	e := InvalidParameter("n", "must be a positive integer")

	assert.Equal(t, http.StatusBadRequest, e.StatusCode)
	assert.Equal(t, "INVALID_PARAMETER", e.ErrorCode)
	assert.Equal(t, "Invalid parameter n", e.Message)
	assert.Equal(t, ValidationError{Field: "n", Message: "must be a positive integer"}, e.Details)
}

func TestNotFoundError(t *testing.T) {
	cause := errors.New("no such region")
	e := NotFoundError("Region", cause)

	assert.Equal(t, http.StatusNotFound, e.StatusCode)
	assert.Equal(t, "Region not found", e.Message)
	assert.True(t, errors.Is(e, cause))
}

func TestNewValidationErrors(t *testing.T) {
	fields := []ValidationError{
		{Field: "id_columns", Message: "required"},
		{Field: "value_label", Message: "max"},
	}
	e := NewValidationErrors(fields)

	assert.Equal(t, "VALIDATION_FAILED", e.ErrorCode)
	require.IsType(t, ValidationErrors{}, e.Details)
	assert.Len(t, e.Details.(ValidationErrors).Errors, 2)
}

func TestProblemDetails_MarshalJSON(t *testing.T) {
	pd := NewProblemDetails(http.StatusNotFound, TypeNotFound, "Not Found", "", "/api/v1/views/x").
		WithExtension("trace_id", "abc")

	data, err := json.Marshal(pd)
	require.NoError(t, err)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &body))
	assert.Equal(t, TypeNotFound, body["type"])
	assert.Equal(t, "Not Found", body["title"])
	assert.Equal(t, float64(http.StatusNotFound), body["status"])
	assert.Equal(t, "/api/v1/views/x", body["instance"])
	assert.Equal(t, "abc", body["trace_id"])
	assert.NotContains(t, body, "detail")
}

func TestProblemDetails_ExtensionsCannotOverrideCoreFields(t *testing.T) {
	pd := NewProblemDetails(http.StatusBadRequest, TypeValidation, "Bad Request", "bad", "/x").
		WithExtension("status", 200)

	data, err := json.Marshal(pd)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"status":400`)
}

func TestProblemDetails_Error(t *testing.T) {
	assert.Equal(t, "Not Found", (&ProblemDetails{Title: "Not Found"}).Error())
	assert.Equal(t, "Not Found: gone", (&ProblemDetails{Title: "Not Found", Detail: "gone"}).Error())
}
