// Package handlers serves the development endpoints: channel and user
// authorization for subscribing clients, webhook reception, and a signed
// request check mirroring the service's events API.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"channels-core/internal/client"
	"channels-core/internal/common/errors"
	"channels-core/internal/common/logging"
	"channels-core/internal/replay"
	"channels-core/internal/signature"
)

// HealthFunc reports the health of an optional dependency
type HealthFunc func(ctx context.Context) error

// Options configures Handlers
type Options struct {
	// Guard rejects redelivered webhooks and replayed signed requests.
	// Nil disables replay protection.
	Guard replay.Guard
	// ReplayWindow is how long a claim is held
	ReplayWindow time.Duration
	// Health checks the replay backend
	Health HealthFunc
	Logger logging.Logger
}

type Handlers struct {
	client       *client.Client
	guard        replay.Guard
	replayWindow time.Duration
	health       HealthFunc
	validate     *validator.Validate
	logger       logging.Logger
}

func New(c *client.Client, opts Options) *Handlers {
	window := opts.ReplayWindow
	if window <= 0 {
		window = signature.DefaultTimestampGrace
	}
	return &Handlers{
		client:       c,
		guard:        opts.Guard,
		replayWindow: window,
		health:       opts.Health,
		validate:     validator.New(),
		logger:       logging.OrDefault(opts.Logger).WithFields(logging.Field{Key: "component", Value: "handlers"}),
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handlers) sendJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("Failed to write response", err)
	}
}

// sendError maps an AppError type to a status. Authentication failures get
// a fixed message since the detailed one helps forging signatures.
func (h *Handlers) sendError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	message := "internal error"

	switch errors.GetType(err) {
	case errors.ErrTypeValidation, errors.ErrTypeParse:
		status = http.StatusBadRequest
		message = errors.Message(err)
	case errors.ErrTypeAuth:
		status = http.StatusUnauthorized
		message = "authentication failed"
	case errors.ErrTypeConfig:
		message = "server is not configured for this request"
	}

	log := h.logger.WithContext(r.Context())
	if status >= 500 {
		log.Error("Request failed", err, logging.Field{Key: "path", Value: r.URL.Path})
	} else {
		log.Debug("Request rejected", logging.Field{Key: "path", Value: r.URL.Path}, logging.Field{Key: "reason", Value: err.Error()})
	}

	h.sendJSON(w, status, errorResponse{Error: message})
}

// claim returns false when id was already seen inside the replay window
func (h *Handlers) claim(ctx context.Context, id string) (bool, error) {
	if h.guard == nil {
		return true, nil
	}
	return h.guard.Claim(ctx, id, h.replayWindow)
}

func (h *Handlers) validationError(err error) error {
	if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
		f := verrs[0]
		return errors.ValidationErrorf("%s failed %s validation", f.Field(), f.Tag())
	}
	return errors.ValidationError(err.Error())
}

// HealthCheck reports process and replay backend health
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"app_id":    h.client.AppID(),
	}

	if h.health != nil {
		if err := h.health(r.Context()); err != nil {
			status["status"] = "degraded"
			status["replay_backend"] = "unhealthy"
			h.sendJSON(w, http.StatusServiceUnavailable, status)
			return
		}
		status["replay_backend"] = "healthy"
	}

	h.sendJSON(w, http.StatusOK, status)
}
