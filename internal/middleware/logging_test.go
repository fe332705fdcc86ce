package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"channels-core/internal/common/logging"
)

func TestRequestID(t *testing.T) {
	var seen string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	t.Run("generates id", func(t *testing.T) {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest("GET", "/health", nil))

		id := rr.Header().Get(RequestIDHeader)
		_, err := uuid.Parse(id)
		require.NoError(t, err)
		assert.Equal(t, id, seen)
	})

	t.Run("keeps incoming id", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/health", nil)
		req.Header.Set(RequestIDHeader, "abc-123")
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		assert.Equal(t, "abc-123", rr.Header().Get(RequestIDHeader))
		assert.Equal(t, "abc-123", seen)
	})
}

func TestLogging(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.NewZapLogger(logging.LogConfig{Level: logging.DebugLevel, Output: &buf, JSON: true})
	require.NoError(t, err)

	handler := RequestID(Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})))

	req := httptest.NewRequest("POST", "/webhooks?auth_signature=secret", nil)
	req.Header.Set(RequestIDHeader, "req-1")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	out := buf.String()
	assert.Contains(t, out, "HTTP request completed")
	assert.Contains(t, out, `"status":401`)
	assert.Contains(t, out, `"request_id":"req-1"`)
	assert.Contains(t, out, `"path":"/webhooks"`)
	assert.NotContains(t, out, "auth_signature")
}
