package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"channels-core/internal/common/errors"
)

// Credential is an application key and its shared secret.
// The secret is never printed or serialized.
type Credential struct {
	Key    string
	Secret []byte
}

// NewCredential creates a credential from a key and a string secret
func NewCredential(key, secret string) *Credential {
	return &Credential{Key: key, Secret: []byte(secret)}
}

// Validate reports a configuration error when the key or secret is missing
func (c *Credential) Validate() error {
	if c == nil {
		return errors.ConfigError("credential is required")
	}
	if c.Key == "" {
		return errors.ConfigError("credential key is required")
	}
	if len(c.Secret) == 0 {
		return errors.ConfigError("credential secret is required")
	}
	return nil
}

// String redacts the secret
func (c Credential) String() string {
	return fmt.Sprintf("Credential{Key: %s, Secret: [redacted]}", c.Key)
}

// GoString redacts the secret for %#v
func (c Credential) GoString() string {
	return c.String()
}

// MarshalJSON emits the key only
func (c Credential) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Key string `json:"key"`
	}{Key: c.Key})
}

// HexHMAC returns the lower-case hex HMAC-SHA256 of message under the secret
func (c *Credential) HexHMAC(message string) string {
	mac := hmac.New(sha256.New, c.Secret)
	mac.Write([]byte(message))
	return hex.EncodeToString(mac.Sum(nil))
}

// KeyLookup resolves an application key to its credential
type KeyLookup func(key string) (*Credential, bool)

// StaticLookup resolves keys against a fixed set of credentials
func StaticLookup(creds ...*Credential) KeyLookup {
	byKey := make(map[string]*Credential, len(creds))
	for _, c := range creds {
		if c != nil {
			byKey[c.Key] = c
		}
	}
	return func(key string) (*Credential, bool) {
		c, ok := byKey[key]
		return c, ok
	}
}
