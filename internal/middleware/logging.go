package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"channels-core/internal/common/logging"
)

// RequestIDHeader carries the id of a request through proxies and logs
const RequestIDHeader = "X-Request-ID"

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// RequestID reuses an incoming X-Request-ID or assigns a new one, echoes it
// on the response and stores it in the request context
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)

		ctx := context.WithValue(r.Context(), logging.RequestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID returns the id stored by RequestID
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(logging.RequestIDKey).(string)
	return id
}

// Logging logs every request with method, path, status and duration.
// Query strings are not logged since signed requests carry auth parameters.
func Logging(logger logging.Logger) func(http.Handler) http.Handler {
	logger = logging.OrDefault(logger)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			wrapped := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(wrapped, r)

			fields := []logging.Field{
				{Key: "method", Value: r.Method},
				{Key: "path", Value: r.URL.Path},
				{Key: "status", Value: wrapped.statusCode},
				{Key: "duration_ms", Value: time.Since(start).Milliseconds()},
				{Key: "remote_addr", Value: r.RemoteAddr},
			}
			if ua := r.Header.Get("User-Agent"); ua != "" {
				fields = append(fields, logging.Field{Key: "user_agent", Value: ua})
			}

			log := logger.WithContext(r.Context())
			if wrapped.statusCode >= 500 {
				log.Error("HTTP request completed", nil, fields...)
			} else if wrapped.statusCode >= 400 {
				log.Warn("HTTP request completed", fields...)
			} else {
				log.Info("HTTP request completed", fields...)
			}
		})
	}
}
