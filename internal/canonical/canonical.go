// Package canonical builds the exact byte sequences that are HMAC-signed.
//
// The request string follows auth_version 1.0 of the HTTP API:
//
//	METHOD\nPATH\nk1=v1&k2=v2...
//
// Parameter keys are lower-cased and sorted byte-wise, auth_signature is
// excluded, and values are written verbatim. Signer and verifier both go
// through BuildString so that they can never disagree.
package canonical

import (
	"net/url"
	"sort"
	"strings"

	"channels-core/internal/common/errors"
)

// SignatureParam is the parameter that carries the signature and therefore
// never participates in the string it signs.
const SignatureParam = "auth_signature"

// Supported request methods.
const (
	MethodGet  = "GET"
	MethodPost = "POST"
)

// NormalizeMethod upper-cases method and rejects anything but GET and POST.
func NormalizeMethod(method string) (string, error) {
	m := strings.ToUpper(strings.TrimSpace(method))
	switch m {
	case MethodGet, MethodPost:
		return m, nil
	default:
		return "", errors.ValidationErrorf("unsupported method %q", method)
	}
}

// ValidatePath checks that path is an absolute request path.
func ValidatePath(path string) error {
	if path == "" {
		return errors.ValidationError("path is required")
	}
	if !strings.HasPrefix(path, "/") {
		return errors.ValidationErrorf("path %q must start with /", path)
	}
	if strings.ContainsAny(path, "\n?#") {
		return errors.ValidationErrorf("path %q must not contain a query, fragment or newline", path)
	}
	return nil
}

// Lowercase returns params with every key lower-cased. Keys that carry more
// than one value, or that collide once lower-cased, are rejected.
func Lowercase(params url.Values) (map[string]string, error) {
	out := make(map[string]string, len(params))
	for key, values := range params {
		if len(values) != 1 {
			return nil, errors.ValidationErrorf("parameter %q must have exactly one value, got %d", key, len(values))
		}
		lower := strings.ToLower(key)
		if _, dup := out[lower]; dup {
			return nil, errors.ValidationErrorf("parameter %q collides with another key after lower-casing", key)
		}
		out[lower] = values[0]
	}
	return out, nil
}

// ParamString renders params as the sorted key=value list used in the
// string to sign.
func ParamString(params url.Values) (string, error) {
	lowered, err := Lowercase(params)
	if err != nil {
		return "", err
	}
	delete(lowered, SignatureParam)

	keys := make([]string, 0, len(lowered))
	for k := range lowered {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(lowered[k])
	}
	return b.String(), nil
}

// BuildString composes the full string to sign for a request.
func BuildString(method, path string, params url.Values) (string, error) {
	m, err := NormalizeMethod(method)
	if err != nil {
		return "", err
	}
	if err := ValidatePath(path); err != nil {
		return "", err
	}
	paramString, err := ParamString(params)
	if err != nil {
		return "", err
	}
	return m + "\n" + path + "\n" + paramString, nil
}
