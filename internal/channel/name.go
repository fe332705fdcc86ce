// Package channel classifies channel names and authorizes subscriptions.
package channel

import (
	"regexp"
	"strings"

	"channels-core/internal/common/errors"
)

// Class is the kind of channel a name denotes
type Class int

const (
	// Public channels need neither authorization nor encryption
	Public Class = iota
	// Private channels need a signed authorization
	Private
	// Presence channels need a signed authorization carrying member data
	Presence
	// PrivateEncrypted channels need authorization and end-to-end encryption
	PrivateEncrypted
)

// Channel name prefixes
const (
	PrivatePrefix          = "private-"
	PresencePrefix         = "presence-"
	PrivateEncryptedPrefix = "private-encrypted-"
)

// MaxNameLength is the longest accepted channel name
const MaxNameLength = 200

var (
	namePattern     = regexp.MustCompile(`^[A-Za-z0-9_\-=@,.;]+$`)
	socketIDPattern = regexp.MustCompile(`^\d+\.\d+$`)
)

// String returns the class name
func (c Class) String() string {
	switch c {
	case Public:
		return "public"
	case Private:
		return "private"
	case Presence:
		return "presence"
	case PrivateEncrypted:
		return "private-encrypted"
	default:
		return "unknown"
	}
}

// RequiresAuthorization reports whether subscribing needs a signed token
func (c Class) RequiresAuthorization() bool {
	return c != Public
}

// ClassOf returns the class of name from its prefix
func ClassOf(name string) Class {
	switch {
	case strings.HasPrefix(name, PrivateEncryptedPrefix):
		return PrivateEncrypted
	case strings.HasPrefix(name, PrivatePrefix):
		return Private
	case strings.HasPrefix(name, PresencePrefix):
		return Presence
	default:
		return Public
	}
}

// IsEncrypted reports whether name is a private-encrypted channel
func IsEncrypted(name string) bool {
	return ClassOf(name) == PrivateEncrypted
}

// ValidateName checks length and character set
func ValidateName(name string) error {
	if name == "" {
		return errors.ValidationError("channel name is required")
	}
	if len(name) > MaxNameLength {
		return errors.ValidationErrorf("channel name too long (%d > %d characters)", len(name), MaxNameLength).
			WithContext("channel", name[:32]+"...")
	}
	if !namePattern.MatchString(name) {
		return errors.ValidationErrorf("invalid channel name %q", name)
	}
	return nil
}

// ValidateSocketID checks that id has the digits.digits form
func ValidateSocketID(id string) error {
	if !socketIDPattern.MatchString(id) {
		return errors.ValidationErrorf("Invalid socket ID %q", id)
	}
	return nil
}
