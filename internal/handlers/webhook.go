package handlers

import (
	"context"
	"net/http"
	"strings"

	"channels-core/internal/common/errors"
	"channels-core/internal/common/logging"
	"channels-core/internal/webhook"
)

type webhookResponse struct {
	Events int `json:"events"`
}

// HandleWebhook verifies and decodes a webhook from the service.
// 401 with a fixed message on a bad key or signature, 400 on an undecodable body, 409 when the
// same webhook was already accepted.
func (h *Handlers) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	req, err := webhook.FromHTTP(r)
	if err != nil {
		h.sendError(w, r, err)
		return
	}

	hook := h.client.WebHook(req)
	if reason := hook.Check(); reason != webhook.ReasonOK {
		// The reason is logged, never returned
		h.logger.WithContext(r.Context()).Info("Rejected webhook", logging.Field{Key: "reason", Value: string(reason)})
		h.sendJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid webhook"})
		return
	}
	r = r.WithContext(context.WithValue(r.Context(), logging.AppKeyKey, hook.Key()))

	events, err := hook.Events()
	if err != nil {
		h.sendError(w, r, err)
		return
	}

	fresh, err := h.claim(r.Context(), "webhook:"+strings.ToLower(req.Signature))
	if err != nil {
		h.sendError(w, r, errors.InternalError("replay check failed", err))
		return
	}
	if !fresh {
		h.sendJSON(w, http.StatusConflict, errorResponse{Error: "webhook already received"})
		return
	}

	log := h.logger.WithContext(r.Context())
	for _, ev := range events {
		log.Info("Received webhook event",
			logging.Field{Key: "name", Value: ev.Name},
			logging.Field{Key: "channel", Value: ev.Channel},
		)
	}

	h.sendJSON(w, http.StatusOK, webhookResponse{Events: len(events)})
}
