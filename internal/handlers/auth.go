package handlers

import (
	"encoding/json"
	"net/http"

	"channels-core/internal/common/logging"
)

type channelAuthForm struct {
	SocketID    string `validate:"required"`
	ChannelName string `validate:"required"`
	ChannelData string `validate:"omitempty,json"`
}

type userAuthForm struct {
	SocketID string `validate:"required"`
	UserData string `validate:"required,json"`
}

// HandleChannelAuth answers a subscribing client's authorization request.
// Form fields: socket_id, channel_name and, for presence channels,
// channel_data as a JSON string.
func (h *Handlers) HandleChannelAuth(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.sendJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid form body"})
		return
	}

	form := channelAuthForm{
		SocketID:    r.PostForm.Get("socket_id"),
		ChannelName: r.PostForm.Get("channel_name"),
		ChannelData: r.PostForm.Get("channel_data"),
	}
	if err := h.validate.Struct(form); err != nil {
		h.sendError(w, r, h.validationError(err))
		return
	}

	var customData interface{}
	if form.ChannelData != "" {
		customData = json.RawMessage(form.ChannelData)
	}

	resp, err := h.client.Authorize(form.SocketID, form.ChannelName, customData)
	if err != nil {
		h.sendError(w, r, err)
		return
	}

	h.logger.WithContext(r.Context()).Info("Authorized channel subscription",
		logging.Field{Key: "channel", Value: form.ChannelName},
		logging.Field{Key: "socket_id", Value: form.SocketID},
	)
	h.sendJSON(w, http.StatusOK, resp)
}

// HandleUserAuth answers a user sign-in request.
// Form fields: socket_id and user_data as a JSON string.
func (h *Handlers) HandleUserAuth(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.sendJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid form body"})
		return
	}

	form := userAuthForm{
		SocketID: r.PostForm.Get("socket_id"),
		UserData: r.PostForm.Get("user_data"),
	}
	if err := h.validate.Struct(form); err != nil {
		h.sendError(w, r, h.validationError(err))
		return
	}

	resp, err := h.client.AuthorizeUser(form.SocketID, json.RawMessage(form.UserData))
	if err != nil {
		h.sendError(w, r, err)
		return
	}

	h.logger.WithContext(r.Context()).Info("Authorized user", logging.Field{Key: "socket_id", Value: form.SocketID})
	h.sendJSON(w, http.StatusOK, resp)
}
