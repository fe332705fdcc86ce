package signature

import (
	"crypto/hmac"
	"fmt"
	"strconv"
	"time"

	"channels-core/internal/canonical"
	"channels-core/internal/common/errors"
	"channels-core/internal/common/logging"
)

// DefaultTimestampGrace is how far auth_timestamp may drift from the
// verifier's clock, in either direction
const DefaultTimestampGrace = 600 * time.Second

// GraceDisabled skips the timestamp check entirely
const GraceDisabled time.Duration = -1

// ISO8601 is the layout timestamps are reported in
const ISO8601 = "2006-01-02T15:04:05Z"

// Verifier authenticates signed requests
type Verifier struct {
	lookup KeyLookup
	grace  time.Duration
	now    func() time.Time
	logger logging.Logger
}

// NewVerifier creates a verifier resolving secrets through lookup
func NewVerifier(lookup KeyLookup, opts ...Option) (*Verifier, error) {
	if lookup == nil {
		return nil, errors.ConfigError("key lookup is required")
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	return &Verifier{
		lookup: lookup,
		grace:  o.grace,
		now:    o.now,
		logger: logging.OrDefault(o.logger),
	}, nil
}

// Verify checks key, version, timestamp freshness, signature and body
// digest, in that order, and returns the credential the request was
// signed with.
func (v *Verifier) Verify(req Request) (*Credential, error) {
	params, err := canonical.Lowercase(req.Params)
	if err != nil {
		return nil, err
	}

	key, ok := params[ParamKey]
	if !ok || key == "" {
		return nil, errors.AuthError("Authentication key required")
	}

	cred, found := v.lookup(key)
	if !found || cred == nil || len(cred.Secret) == 0 {
		v.logger.Warn("Signed request with unknown key", logging.Field{Key: "auth_key", Value: key})
		return nil, errors.AuthError("Invalid authentication key")
	}

	if err := validateVersion(params); err != nil {
		return nil, err
	}

	if err := v.validateTimestamp(params); err != nil {
		v.logger.Warn("Signed request outside timestamp grace",
			logging.Field{Key: "auth_key", Value: key},
			logging.Field{Key: "auth_timestamp", Value: params[ParamTimestamp]},
		)
		return nil, err
	}

	if err := v.validateSignature(cred, req, params); err != nil {
		v.logger.Warn("Signed request with invalid signature", logging.Field{Key: "auth_key", Value: key})
		return nil, err
	}

	if err := validateBody(req, params); err != nil {
		return nil, err
	}

	return cred, nil
}

func validateVersion(params map[string]string) error {
	version, ok := params[ParamVersion]
	if !ok {
		return nil
	}
	if version != AuthVersion {
		return errors.AuthError("Version not supported").WithContext("auth_version", version)
	}
	return nil
}

func (v *Verifier) validateTimestamp(params map[string]string) error {
	if v.grace < 0 {
		return nil
	}

	raw, ok := params[ParamTimestamp]
	if !ok || raw == "" {
		return errors.AuthError("Timestamp required")
	}
	timestamp, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return errors.AuthError("Invalid timestamp")
	}

	now := v.now()
	graceSeconds := int64(v.grace / time.Second)
	// Compared without subtracting timestamp, which may be any int64
	if timestamp < now.Unix()-graceSeconds || timestamp > now.Unix()+graceSeconds {
		return errors.AuthError(fmt.Sprintf(
			"Timestamp expired: Given timestamp (%s) not within %ds of server time (%s)",
			time.Unix(timestamp, 0).UTC().Format(ISO8601),
			graceSeconds,
			now.UTC().Format(ISO8601),
		))
	}
	return nil
}

func (v *Verifier) validateSignature(cred *Credential, req Request, params map[string]string) error {
	given, ok := params[ParamSignature]
	if !ok || given == "" {
		return errors.AuthError("Signature required")
	}

	stringToSign, err := canonical.BuildString(req.Method, req.Path, req.Params)
	if err != nil {
		return err
	}

	expected := cred.HexHMAC(stringToSign)
	if !hmac.Equal([]byte(given), []byte(expected)) {
		return errors.AuthError(fmt.Sprintf(
			"Invalid signature: you should have sent HmacSHA256Hex(%q, your_secret_key)",
			stringToSign,
		))
	}
	return nil
}

func validateBody(req Request, params map[string]string) error {
	if req.Body == nil {
		return nil
	}
	given, ok := params[ParamBodyMD5]
	if !ok {
		return errors.AuthError("Body digest required")
	}
	if !hmac.Equal([]byte(given), []byte(bodyDigest(req.Body))) {
		return errors.AuthError("Body digest mismatch")
	}
	return nil
}
