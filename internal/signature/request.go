package signature

import (
	"net/url"
	"strconv"
)

// Auth parameter names
const (
	ParamKey       = "auth_key"
	ParamTimestamp = "auth_timestamp"
	ParamVersion   = "auth_version"
	ParamSignature = "auth_signature"
	ParamBodyMD5   = "body_md5"
)

// AuthVersion is the only protocol generation produced and accepted
const AuthVersion = "1.0"

// Request is the signable surface of an API call
type Request struct {
	Method string
	Path   string
	Params url.Values
	Body   []byte
}

// AuthEnvelope is the authentication data attached to a signed request
type AuthEnvelope struct {
	Key       string
	Timestamp int64
	Version   string
	Signature string
}

// Params returns the envelope as query parameters
func (e AuthEnvelope) Params() url.Values {
	v := url.Values{}
	v.Set(ParamKey, e.Key)
	v.Set(ParamTimestamp, strconv.FormatInt(e.Timestamp, 10))
	if e.Version != "" {
		v.Set(ParamVersion, e.Version)
	}
	v.Set(ParamSignature, e.Signature)
	return v
}

// SignedRequest is a request with its auth envelope merged into Params
type SignedRequest struct {
	Method       string
	Path         string
	Params       url.Values
	Body         []byte
	Envelope     AuthEnvelope
	StringToSign string
}

// URL returns path with the signed parameters as its query string
func (s *SignedRequest) URL() string {
	return s.Path + "?" + s.Params.Encode()
}

func cloneParams(params url.Values) url.Values {
	out := make(url.Values, len(params))
	for k, v := range params {
		out[k] = append([]string(nil), v...)
	}
	return out
}
