package channel

import (
	"encoding/json"
	"strings"

	"channels-core/internal/canonical"
	"channels-core/internal/common/errors"
	"channels-core/internal/common/logging"
	"channels-core/internal/signature"
)

// SecretSource hands out the per-channel shared secret of encrypted channels
type SecretSource interface {
	SharedSecret(channel string) (string, error)
}

// AuthResponse is the body returned to a subscribing client
type AuthResponse struct {
	Auth         string `json:"auth"`
	ChannelData  string `json:"channel_data,omitempty"`
	SharedSecret string `json:"shared_secret,omitempty"`
}

// UserAuthResponse is the body returned for a user sign-in
type UserAuthResponse struct {
	Auth     string `json:"auth"`
	UserData string `json:"user_data"`
}

// Option configures an Authorizer
type Option func(*Authorizer)

// WithSecretSource enables authorization of private-encrypted channels
func WithSecretSource(src SecretSource) Option {
	return func(a *Authorizer) {
		a.secrets = src
	}
}

// WithEncoder replaces the canonical JSON encoder used for custom data
func WithEncoder(enc canonical.Encoder) Option {
	return func(a *Authorizer) {
		if enc != nil {
			a.encode = enc
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger logging.Logger) Option {
	return func(a *Authorizer) {
		a.logger = logger
	}
}

// Authorizer signs subscription tokens for private, presence and
// private-encrypted channels, and user sign-in tokens.
type Authorizer struct {
	credential *signature.Credential
	secrets    SecretSource
	encode     canonical.Encoder
	logger     logging.Logger
}

// NewAuthorizer creates an authorizer signing with cred
func NewAuthorizer(cred *signature.Credential, opts ...Option) (*Authorizer, error) {
	if err := cred.Validate(); err != nil {
		return nil, err
	}

	a := &Authorizer{credential: cred, encode: canonical.JSON}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = logging.OrDefault(a.logger)
	return a, nil
}

// AuthenticationString returns the string signed for a subscription:
// "socket:channel", or "socket:channel:data" when data is non-empty
func AuthenticationString(socketID, channel, data string) string {
	if data == "" {
		return socketID + ":" + channel
	}
	return socketID + ":" + channel + ":" + data
}

// Authorize signs a subscription of socketID to channel. customData, when
// given, is canonically encoded and becomes part of the signed string.
func (a *Authorizer) Authorize(socketID, channel string, customData interface{}) (*AuthResponse, error) {
	if err := ValidateSocketID(socketID); err != nil {
		return nil, err
	}
	if err := ValidateName(channel); err != nil {
		return nil, err
	}

	class := ClassOf(channel)

	var data string
	if customData != nil {
		encoded, err := a.encode(customData)
		if err != nil {
			return nil, err
		}
		data = encoded
	}

	resp := &AuthResponse{
		Auth:        a.token(AuthenticationString(socketID, channel, data)),
		ChannelData: data,
	}

	if class == PrivateEncrypted {
		if a.secrets == nil {
			return nil, errors.ConfigError("encryption master key is required to authorize private-encrypted channels")
		}
		secret, err := a.secrets.SharedSecret(channel)
		if err != nil {
			return nil, err
		}
		resp.SharedSecret = secret
	}

	a.logger.Debug("Authorized channel subscription",
		logging.Field{Key: "channel", Value: channel},
		logging.Field{Key: "class", Value: class.String()},
		logging.Field{Key: "socket_id", Value: socketID},
	)
	return resp, nil
}

// AuthorizeUser signs a user sign-in. userData must be a JSON object with
// a non-empty string "id".
func (a *Authorizer) AuthorizeUser(socketID string, userData interface{}) (*UserAuthResponse, error) {
	if err := ValidateSocketID(socketID); err != nil {
		return nil, err
	}
	if userData == nil {
		return nil, errors.ValidationError("user data is required")
	}

	data, err := a.encode(userData)
	if err != nil {
		return nil, err
	}

	var user struct {
		ID interface{} `json:"id"`
	}
	if err := json.Unmarshal([]byte(data), &user); err != nil {
		return nil, errors.ValidationError("user data must be a JSON object")
	}
	id, ok := user.ID.(string)
	if !ok || strings.TrimSpace(id) == "" {
		return nil, errors.ValidationError("user data must contain a non-empty string id")
	}

	a.logger.Debug("Authorized user", logging.Field{Key: "socket_id", Value: socketID})
	return &UserAuthResponse{
		Auth:     a.token(socketID + "::user::" + data),
		UserData: data,
	}, nil
}

func (a *Authorizer) token(message string) string {
	return a.credential.Key + ":" + a.credential.HexHMAC(message)
}
