package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"ecoquest/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) *APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return &resp
}

func TestWriteError(t *testing.T) {
	builder := NewBuilder(DefaultConfig(), zap.NewNop())

	t.Run("service errors map to their status code", func(t *testing.T) {
		tests := []struct {
			err    error
			status int
		}{
			{services.NewNotFoundError("Challenge not found"), http.StatusNotFound},
			{services.NewForbiddenError("Admins cannot join challenges"), http.StatusForbidden},
			{services.NewAlreadyJoinedError(), http.StatusBadRequest},
			{services.NewAlreadyApprovedError(), http.StatusBadRequest},
			{services.NewInvalidDecisionError("maybe"), http.StatusBadRequest},
			{services.NewServiceUnavailableError("Database temporarily unavailable"), http.StatusServiceUnavailable},
		}

		for _, tt := range tests {
			req := httptest.NewRequest(http.MethodGet, "/challenges", nil)
			rec := httptest.NewRecorder()

			builder.WriteError(rec, req, tt.err)

			assert.Equal(t, tt.status, rec.Code)
			resp := decode(t, rec)
			assert.False(t, resp.Success)
			require.NotNil(t, resp.Error)
			assert.NotEmpty(t, resp.Error.Message)
		}
	})

	t.Run("unknown errors are masked", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/challenges", nil)
		rec := httptest.NewRecorder()

		builder.WriteError(rec, req, errors.New("pq: connection refused to 10.0.0.5"))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		resp := decode(t, rec)
		assert.Equal(t, "An internal error occurred", resp.Error.Message)
		assert.NotContains(t, rec.Body.String(), "10.0.0.5")
	})

	t.Run("coded internal errors keep their stable message", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/challenges", nil)
		rec := httptest.NewRecorder()

		builder.WriteError(rec, req, services.NewCompressionError(errors.New("webp: encoder panic at offset 9")))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		resp := decode(t, rec)
		assert.Equal(t, "Failed to process image", resp.Error.Message)
		assert.NotContains(t, rec.Body.String(), "offset 9")
	})
}

func TestWriteSuccess(t *testing.T) {
	builder := NewBuilder(DefaultConfig(), zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/challenges", nil)
	rec := httptest.NewRecorder()

	builder.WriteSuccess(rec, req, map[string]string{"hello": "world"})

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decode(t, rec)
	assert.True(t, resp.Success)
	assert.Equal(t, "v1", resp.Version)
	assert.NotZero(t, resp.Timestamp)
}
