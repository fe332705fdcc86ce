package app

import (
	"net/http"

	"github.com/gorilla/mux"

	"channels-core/internal/common/logging"
	"channels-core/internal/handlers"
	"channels-core/internal/middleware"
	"channels-core/internal/ratelimit"
)

// SetupRoutes configures all HTTP routes for the application
func SetupRoutes(router *mux.Router, h *handlers.Handlers, rateLimiter ratelimit.Limiter, logger logging.Logger) {
	router.Use(middleware.RequestID)
	router.Use(middleware.Logging(logger))

	router.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)

	// Webhooks come from the service and are authenticated by signature
	router.HandleFunc("/webhooks", h.HandleWebhook).Methods(http.MethodPost)
	router.HandleFunc("/apps/{app_id}/events", h.HandleSignedRequest).Methods(http.MethodPost)
	router.HandleFunc("/apps/{app_id}/channels", h.HandleSignedRequest).Methods(http.MethodGet)

	// Subscribing browsers call the auth endpoints
	auth := router.PathPrefix("/pusher").Subrouter()
	if rateLimiter != nil {
		auth.Use(ratelimit.Middleware(rateLimiter, ratelimit.IPBasedKey, logger))
	}
	auth.HandleFunc("/auth", h.HandleChannelAuth).Methods(http.MethodPost)
	auth.HandleFunc("/user-auth", h.HandleUserAuth).Methods(http.MethodPost)
}
