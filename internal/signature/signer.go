package signature

import (
	"crypto/md5"
	"encoding/hex"
	"net/url"
	"strconv"
	"strings"
	"time"

	"channels-core/internal/canonical"
	"channels-core/internal/common/logging"
)

// Option configures a Signer or a Verifier
type Option func(*options)

type options struct {
	now    func() time.Time
	logger logging.Logger
	grace  time.Duration
}

func defaultOptions() options {
	return options{
		now:   time.Now,
		grace: DefaultTimestampGrace,
	}
}

// WithClock replaces the wall clock used for auth_timestamp and freshness checks
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger logging.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithTimestampGrace sets the verifier's freshness window. GraceDisabled,
// or any negative duration, turns the timestamp check off.
func WithTimestampGrace(grace time.Duration) Option {
	return func(o *options) {
		o.grace = grace
	}
}

// Signer attaches auth envelopes to requests
type Signer struct {
	credential Credential
	now        func() time.Time
	logger     logging.Logger
}

// NewSigner creates a signer for cred
func NewSigner(cred *Credential, opts ...Option) (*Signer, error) {
	if err := cred.Validate(); err != nil {
		return nil, err
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	return &Signer{
		credential: Credential{Key: cred.Key, Secret: cred.Secret},
		now:        o.now,
		logger:     logging.OrDefault(o.logger),
	}, nil
}

// Key returns the application key requests are signed with
func (s *Signer) Key() string {
	return s.credential.Key
}

// Sign returns req with auth_key, auth_timestamp, auth_version,
// auth_signature and, when a body is present, body_md5 merged into its
// parameters. Auth fields already present in req.Params are replaced.
func (s *Signer) Sign(req Request) (*SignedRequest, error) {
	method, err := canonical.NormalizeMethod(req.Method)
	if err != nil {
		return nil, err
	}
	if err := canonical.ValidatePath(req.Path); err != nil {
		return nil, err
	}

	params := make(url.Values, len(req.Params)+5)
	for k, v := range cloneParams(req.Params) {
		lower := strings.ToLower(k)
		if strings.HasPrefix(lower, "auth_") {
			continue
		}
		if lower == ParamBodyMD5 && req.Body != nil {
			continue
		}
		params[k] = v
	}

	if req.Body != nil {
		params[ParamBodyMD5] = []string{bodyDigest(req.Body)}
	}

	envelope := AuthEnvelope{
		Key:       s.credential.Key,
		Timestamp: s.now().Unix(),
		Version:   AuthVersion,
	}
	params[ParamKey] = []string{envelope.Key}
	params[ParamTimestamp] = []string{strconv.FormatInt(envelope.Timestamp, 10)}
	params[ParamVersion] = []string{envelope.Version}

	stringToSign, err := canonical.BuildString(method, req.Path, params)
	if err != nil {
		return nil, err
	}

	envelope.Signature = s.credential.HexHMAC(stringToSign)
	params[ParamSignature] = []string{envelope.Signature}

	s.logger.Debug("Signed request",
		logging.Field{Key: "method", Value: method},
		logging.Field{Key: "path", Value: req.Path},
		logging.Field{Key: "auth_timestamp", Value: envelope.Timestamp},
	)

	return &SignedRequest{
		Method:       method,
		Path:         req.Path,
		Params:       params,
		Body:         req.Body,
		Envelope:     envelope,
		StringToSign: stringToSign,
	}, nil
}

// bodyDigest is the lower-case hex MD5 carried in body_md5
func bodyDigest(body []byte) string {
	sum := md5.Sum(body)
	return hex.EncodeToString(sum[:])
}
