package handlers

import (
	"bytes"
	"context"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"channels-core/internal/common/errors"
	"channels-core/internal/common/logging"
	"channels-core/internal/signature"
)

// MaxEventBodySize bounds signed request bodies
const MaxEventBodySize = 1 << 20

// HandleSignedRequest authenticates a request signed for this app the way
// the service's API does, so locally built trigger requests can be checked
// end to end. The body is not published anywhere.
func (h *Handlers) HandleSignedRequest(w http.ResponseWriter, r *http.Request) {
	if mux.Vars(r)["app_id"] != h.client.AppID() {
		h.sendJSON(w, http.StatusNotFound, errorResponse{Error: "unknown app"})
		return
	}

	var body []byte
	if r.Body != nil && r.Method != http.MethodGet {
		var buf bytes.Buffer
		if _, err := buf.ReadFrom(http.MaxBytesReader(w, r.Body, MaxEventBodySize)); err != nil {
			h.sendError(w, r, errors.ParseError("failed to read request body", err))
			return
		}
		if buf.Len() > 0 {
			body = buf.Bytes()
		}
	}

	params := r.URL.Query()
	cred, err := h.client.Verify(signature.Request{
		Method: r.Method,
		Path:   r.URL.Path,
		Params: params,
		Body:   body,
	})
	if err != nil {
		h.sendError(w, r, err)
		return
	}

	r = r.WithContext(context.WithValue(r.Context(), logging.AppKeyKey, cred.Key))

	fresh, err := h.claim(r.Context(), "request:"+strings.ToLower(params.Get(signature.ParamSignature)))
	if err != nil {
		h.sendError(w, r, errors.InternalError("replay check failed", err))
		return
	}
	if !fresh {
		h.sendJSON(w, http.StatusConflict, errorResponse{Error: "request already received"})
		return
	}

	h.logger.WithContext(r.Context()).Info("Accepted signed request",
		logging.Field{Key: "method", Value: r.Method},
		logging.Field{Key: "path", Value: r.URL.Path},
		logging.Field{Key: "body_bytes", Value: len(body)},
	)
	h.sendJSON(w, http.StatusOK, map[string]interface{}{})
}
