// Package webhook authenticates and decodes webhooks sent by the messaging
// service.
//
// A webhook carries the sending application key in X-Pusher-Key and the
// hex HMAC-SHA256 of the raw body in X-Pusher-Signature. The body is only
// decoded once the signature has been checked against one of the
// configured tokens.
//
//	hook := webhook.New(req, primary, webhook.WithExtraTokens(old))
//	if !hook.Valid() {
//		http.Error(w, "invalid webhook", http.StatusUnauthorized)
//		return
//	}
//	events, err := hook.Events()
package webhook

import (
	"bytes"
	"crypto/hmac"
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"strings"
	"sync"
	"time"

	"channels-core/internal/common/errors"
	"channels-core/internal/common/logging"
	"channels-core/internal/signature"
)

// Header names
const (
	HeaderKey       = "X-Pusher-Key"
	HeaderSignature = "X-Pusher-Signature"
)

// MaxBodySize bounds the body read by FromHTTP
const MaxBodySize = 1 << 20

// Reason explains the outcome of a signature check
type Reason string

const (
	ReasonOK               Reason = "ok"
	ReasonUnknownKey       Reason = "unknown_key"
	ReasonInvalidSignature Reason = "invalid_signature"
)

// Request is the transport-independent form of an inbound webhook
type Request struct {
	Key         string
	Signature   string
	ContentType string
	Body        []byte
}

// FromHTTP reads the headers and body of r. The body is restored on r so
// later handlers can read it again.
func FromHTTP(r *http.Request) (*Request, error) {
	var body []byte
	if r.Body != nil {
		var buf bytes.Buffer
		if _, err := buf.ReadFrom(http.MaxBytesReader(nil, r.Body, MaxBodySize)); err != nil {
			return nil, errors.ParseError("failed to read webhook body", err)
		}
		body = buf.Bytes()
		r.Body = io.NopCloser(bytes.NewReader(body))
	}
	return &Request{
		Key:         r.Header.Get(HeaderKey),
		Signature:   r.Header.Get(HeaderSignature),
		ContentType: r.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}

// Event is one entry of a webhook's events list
type Event struct {
	Name     string          `json:"name"`
	Channel  string          `json:"channel,omitempty"`
	Event    string          `json:"event,omitempty"`
	Data     string          `json:"data,omitempty"`
	SocketID string          `json:"socket_id,omitempty"`
	UserID   string          `json:"user_id,omitempty"`
	Raw      json.RawMessage `json:"-"`
}

// UnmarshalJSON keeps the raw event alongside the decoded fields
func (e *Event) UnmarshalJSON(b []byte) error {
	type plain Event
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*e = Event(p)
	e.Raw = append(json.RawMessage(nil), b...)
	return nil
}

// Payload is the decoded webhook body
type Payload struct {
	TimeMS int64   `json:"time_ms"`
	Events []Event `json:"events"`
}

// Option configures a WebHook
type Option func(*WebHook)

// WithExtraTokens adds credentials accepted besides the primary one,
// typically during secret rotation
func WithExtraTokens(tokens ...*signature.Credential) Option {
	return func(w *WebHook) {
		for _, t := range tokens {
			if t != nil {
				w.tokens = append(w.tokens, t)
			}
		}
	}
}

// WithLogger sets the logger used for rejected webhooks
func WithLogger(logger logging.Logger) Option {
	return func(w *WebHook) {
		w.logger = logger
	}
}

// WebHook verifies a single inbound webhook. Validity and the decoded
// payload are computed once and cached.
type WebHook struct {
	req    *Request
	tokens []*signature.Credential
	logger logging.Logger

	checkOnce sync.Once
	reason    Reason

	parseOnce sync.Once
	payload   *Payload
	parseErr  error
}

// New creates a WebHook for req checked against primary and any extra tokens
func New(req *Request, primary *signature.Credential, opts ...Option) *WebHook {
	if req == nil {
		req = &Request{}
	}
	w := &WebHook{req: req}
	if primary != nil {
		w.tokens = append(w.tokens, primary)
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = logging.OrDefault(w.logger)
	return w
}

// Key returns the application key the webhook claims to come from
func (w *WebHook) Key() string {
	return w.req.Key
}

// Check returns why the webhook is or is not authentic
func (w *WebHook) Check() Reason {
	w.checkOnce.Do(func() {
		w.reason = w.check()
	})
	return w.reason
}

func (w *WebHook) check() Reason {
	given := []byte(strings.ToLower(w.req.Signature))
	known := false
	for _, t := range w.tokens {
		if t.Key != w.req.Key || len(t.Secret) == 0 {
			continue
		}
		known = true
		if hmac.Equal(given, []byte(t.HexHMAC(string(w.req.Body)))) {
			return ReasonOK
		}
	}

	if !known {
		w.logger.Warn("Received webhook with unknown key", logging.Field{Key: "key", Value: w.req.Key})
		return ReasonUnknownKey
	}
	w.logger.Warn("Received webhook with invalid signature", logging.Field{Key: "key", Value: w.req.Key})
	return ReasonInvalidSignature
}

// Valid reports whether the key is known and the signature matches
func (w *WebHook) Valid() bool {
	return w.Check() == ReasonOK
}

// Data decodes the body. It fails with a parse error for a content type
// other than application/json or a body that is not valid JSON.
func (w *WebHook) Data() (*Payload, error) {
	w.parseOnce.Do(func() {
		w.payload, w.parseErr = w.parse()
	})
	return w.payload, w.parseErr
}

func (w *WebHook) parse() (*Payload, error) {
	if ct := w.req.ContentType; ct != "" {
		mediaType, _, err := mime.ParseMediaType(ct)
		if err != nil || mediaType != "application/json" {
			return nil, errors.ParseError("Unknown Content-Type ("+ct+")", err)
		}
	}

	var p Payload
	if err := json.Unmarshal(w.req.Body, &p); err != nil {
		return nil, errors.ParseError("Webhook body is not valid JSON", err)
	}
	return &p, nil
}

// Events returns the events of the decoded body
func (w *WebHook) Events() ([]Event, error) {
	p, err := w.Data()
	if err != nil {
		return nil, err
	}
	return p.Events, nil
}

// Time returns the moment the service sent the webhook
func (w *WebHook) Time() (time.Time, error) {
	p, err := w.Data()
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(p.TimeMS).UTC(), nil
}
