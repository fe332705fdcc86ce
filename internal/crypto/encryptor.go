// Package crypto encrypts event payloads for private-encrypted channels.
//
// Every channel gets its own 32-byte key, derived as SHA-256 of the channel
// name followed by the master key, so no per-channel key material is stored.
// Payloads are sealed with NaCl secretbox (XSalsa20-Poly1305) under a fresh
// random 24-byte nonce per call and shipped as
//
//	{"nonce":"<base64>","ciphertext":"<base64>"}
//
// Example usage:
//
//	master, err := crypto.ParseMasterKeyBase64(os.Getenv("PUSHER_ENCRYPTION_MASTER_KEY_BASE64"))
//	if err != nil {
//		return err
//	}
//	enc, err := crypto.NewPayloadEncryptor(master)
//	if err != nil {
//		return err
//	}
//	envelope, err := enc.Encrypt("private-encrypted-orders", []byte(`{"id":1}`))
package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"io"

	"golang.org/x/crypto/nacl/secretbox"

	"channels-core/internal/channel"
	"channels-core/internal/common/errors"
)

// NonceSize is the secretbox nonce length
const NonceSize = 24

// Envelope is the wire form of an encrypted payload
type Envelope struct {
	Nonce      string `json:"nonce"`
	Ciphertext string `json:"ciphertext"`
}

// JSON returns the envelope encoded as the event's data string
func (e *Envelope) JSON() (string, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return "", errors.InternalError("failed to encode envelope", err)
	}
	return string(b), nil
}

// ParseEnvelope decodes an event data string produced by Envelope.JSON
func ParseEnvelope(data string) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal([]byte(data), &env); err != nil {
		return nil, errors.ParseError("encrypted payload is not a valid envelope", err)
	}
	if env.Nonce == "" || env.Ciphertext == "" {
		return nil, errors.ParseError("encrypted payload is missing nonce or ciphertext", nil)
	}
	return &env, nil
}

// PayloadEncryptor seals payloads for private-encrypted channels.
//
// The encryptor is safe for concurrent use by multiple goroutines.
type PayloadEncryptor struct {
	master MasterKey
	rand   io.Reader
}

// NewPayloadEncryptor creates an encryptor for master
func NewPayloadEncryptor(master MasterKey) (*PayloadEncryptor, error) {
	if len(master) != MasterKeySize {
		return nil, errors.ConfigError("encryption master key is required to use private-encrypted channels")
	}
	return &PayloadEncryptor{master: master, rand: rand.Reader}, nil
}

func checkChannel(name string) error {
	if err := channel.ValidateName(name); err != nil {
		return err
	}
	if !channel.IsEncrypted(name) {
		return errors.ValidationErrorf("channel %q is not a %s channel", name, channel.PrivateEncryptedPrefix+"*")
	}
	return nil
}

// SharedSecret returns the base64 channel key handed to authorized subscribers
func (e *PayloadEncryptor) SharedSecret(channelName string) (string, error) {
	if err := checkChannel(channelName); err != nil {
		return "", err
	}
	return SharedSecret(channelName, e.master), nil
}

// Encrypt seals plaintext under the key of channelName
func (e *PayloadEncryptor) Encrypt(channelName string, plaintext []byte) (*Envelope, error) {
	if err := checkChannel(channelName); err != nil {
		return nil, err
	}

	var nonce [NonceSize]byte
	if _, err := io.ReadFull(e.rand, nonce[:]); err != nil {
		return nil, errors.InternalError("failed to create nonce", err)
	}

	key := DeriveChannelKey(channelName, e.master)
	sealed := secretbox.Seal(nil, plaintext, &nonce, &key)

	return &Envelope{
		Nonce:      base64.StdEncoding.EncodeToString(nonce[:]),
		Ciphertext: base64.StdEncoding.EncodeToString(sealed),
	}, nil
}

// Decrypt opens an envelope sealed for channelName
func (e *PayloadEncryptor) Decrypt(channelName string, env *Envelope) ([]byte, error) {
	if err := checkChannel(channelName); err != nil {
		return nil, err
	}
	if env == nil {
		return nil, errors.ValidationError("envelope is required")
	}

	nonceBytes, err := base64.StdEncoding.DecodeString(env.Nonce)
	if err != nil || len(nonceBytes) != NonceSize {
		return nil, errors.ParseError("envelope nonce is invalid", err)
	}
	sealed, err := base64.StdEncoding.DecodeString(env.Ciphertext)
	if err != nil {
		return nil, errors.ParseError("envelope ciphertext is not valid base64", err)
	}

	var nonce [NonceSize]byte
	copy(nonce[:], nonceBytes)
	key := DeriveChannelKey(channelName, e.master)

	plaintext, ok := secretbox.Open(nil, sealed, &nonce, &key)
	if !ok {
		return nil, errors.AuthError("encrypted payload failed authentication")
	}
	return plaintext, nil
}
