package types

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Address identifies one device of one account. It is the session identifier.
type Address struct {
	UUID     uuid.UUID `json:"uuid"`
	DeviceID uint32    `json:"device_id"`
}

// String returns the "<uuid>.<device>" form of the address.
func (a Address) String() string {
	return a.UUID.String() + "." + strconv.FormatUint(uint64(a.DeviceID), 10)
}

// IsZero reports whether the address is unset.
func (a Address) IsZero() bool { return a == Address{} }

// ParseAddress parses the "<uuid>.<device>" form produced by Address.String.
func ParseAddress(s string) (Address, error) {
	i := strings.LastIndexByte(s, '.')
	if i <= 0 || i == len(s)-1 {
		return Address{}, fmt.Errorf("address %q: want <uuid>.<device>", s)
	}
	id, err := uuid.Parse(s[:i])
	if err != nil {
		return Address{}, fmt.Errorf("address %q: %w", s, err)
	}
	dev, err := strconv.ParseUint(s[i+1:], 10, 32)
	if err != nil {
		return Address{}, fmt.Errorf("address %q: device: %w", s, err)
	}
	return Address{UUID: id, DeviceID: uint32(dev)}, nil
}

// KeyID is a short identifier for public keys presented in logs and the CLI.
type KeyID string

// String returns the string form of the key id.
func (k KeyID) String() string { return string(k) }

// SignedPreKeyID uniquely identifies a signed pre-key.
type SignedPreKeyID string

// String returns the string form of the identifier.
func (id SignedPreKeyID) String() string { return string(id) }

// OneTimePreKeyID uniquely identifies a one-time pre-key.
type OneTimePreKeyID string

// String returns the string form of the identifier.
func (id OneTimePreKeyID) String() string { return string(id) }
