package crypto

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"

	"channels-core/internal/common/errors"
)

// MasterKeySize is the required length of the encryption master key
const MasterKeySize = 32

// MasterKey is the process-wide key every channel key is derived from
type MasterKey []byte

// ParseMasterKey copies raw into a MasterKey after checking its length
func ParseMasterKey(raw []byte) (MasterKey, error) {
	if len(raw) != MasterKeySize {
		return nil, errors.ConfigError(fmt.Sprintf("encryption master key must be %d bytes, got %d", MasterKeySize, len(raw)))
	}
	key := make(MasterKey, MasterKeySize)
	copy(key, raw)
	return key, nil
}

// ParseMasterKeyBase64 decodes a standard base64 master key
func ParseMasterKeyBase64(encoded string) (MasterKey, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return nil, errors.ConfigError("encryption master key is not valid base64")
	}
	return ParseMasterKey(raw)
}

// String redacts the key
func (k MasterKey) String() string {
	return "MasterKey[redacted]"
}

// GoString redacts the key for %#v
func (k MasterKey) GoString() string {
	return k.String()
}

// DeriveChannelKey returns SHA-256(channel || master), the symmetric key of
// one private-encrypted channel. It is cheap enough to recompute per use.
func DeriveChannelKey(channel string, master []byte) [32]byte {
	h := sha256.New()
	h.Write([]byte(channel))
	h.Write(master)

	var key [32]byte
	copy(key[:], h.Sum(nil))
	return key
}

// SharedSecret returns the derived channel key as standard base64, the form
// subscribers receive in their authorization response
func SharedSecret(channel string, master []byte) string {
	key := DeriveChannelKey(channel, master)
	return base64.StdEncoding.EncodeToString(key[:])
}
