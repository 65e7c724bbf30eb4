// Package certificate validates and issues the sender certificates that
// authenticate sealed-sender messages.
//
// A trust root signs server certificates; a server key signs sender
// certificates binding an address to an identity key until an expiry time.
// Validation never reads the clock: the caller supplies the time to check
// against.
package certificate

import (
	"fmt"
	"slices"
	"time"

	"umbra/internal/crypto"
	"umbra/internal/domain"
	"umbra/internal/protocol/codec"
)

// Validator checks sender certificates against one trust root.
type Validator struct {
	trustRoot domain.Ed25519Public
	revoked   []uint32
}

// ValidatorOption configures a Validator.
type ValidatorOption func(*Validator)

// WithRevokedKeyIDs rejects server certificates with any of the given key ids,
// even when correctly signed.
func WithRevokedKeyIDs(ids ...uint32) ValidatorOption {
	return func(v *Validator) { v.revoked = append(v.revoked, ids...) }
}

// NewValidator returns a Validator that trusts certificates chaining to trustRoot.
func NewValidator(trustRoot domain.Ed25519Public, opts ...ValidatorOption) *Validator {
	v := &Validator{trustRoot: trustRoot}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// ValidateServer checks that the trust root signed c and that c is not revoked.
func (v *Validator) ValidateServer(c domain.ServerCertificate) error {
	body, err := codec.ServerCertificateBody(c)
	if err != nil {
		return err
	}
	if !crypto.VerifyEd25519(v.trustRoot, body, c.Signature) {
		return fmt.Errorf("%w: server certificate %d", domain.ErrInvalidSignature, c.KeyID)
	}
	if slices.Contains(v.revoked, c.KeyID) {
		return fmt.Errorf("%w: server key %d is revoked", domain.ErrUntrustedSender, c.KeyID)
	}
	return nil
}

// Validate checks the full chain of c and that c has not expired at now.
// A certificate is still valid at exactly its expiry instant.
func (v *Validator) Validate(c domain.SenderCertificate, now time.Time) error {
	if err := v.ValidateServer(c.Signer); err != nil {
		return err
	}
	body, err := codec.SenderCertificateBody(c)
	if err != nil {
		return err
	}
	if !crypto.VerifyEd25519(c.Signer.Key, body, c.Signature) {
		return fmt.Errorf("%w: sender certificate for %s", domain.ErrInvalidSignature, c.Sender)
	}
	if ms := now.UnixMilli(); ms < 0 || uint64(ms) > c.Expires {
		return fmt.Errorf("%w: sender certificate for %s expired at %d",
			domain.ErrExpiredCertificate, c.Sender, c.Expires)
	}
	return nil
}

// IssueServerCertificate signs a certificate for serverKey with the trust root key.
func IssueServerCertificate(trustRoot domain.Ed25519Private, keyID uint32, serverKey domain.Ed25519Public) (domain.ServerCertificate, error) {
	c := domain.ServerCertificate{KeyID: keyID, Key: serverKey}
	body, err := codec.ServerCertificateBody(c)
	if err != nil {
		return domain.ServerCertificate{}, err
	}
	c.Signature = crypto.SignEd25519(trustRoot, body)
	return c, nil
}

// IssueSenderCertificate signs a certificate for sender and identityKey that
// expires at expires. serverKey must be the private half of signer.Key.
func IssueSenderCertificate(
	serverKey domain.Ed25519Private,
	signer domain.ServerCertificate,
	sender domain.Address,
	identityKey domain.X25519Public,
	expires time.Time,
) (domain.SenderCertificate, error) {
	c := domain.SenderCertificate{
		Sender:      sender,
		IdentityKey: identityKey,
		Expires:     uint64(expires.UnixMilli()),
		Signer:      signer,
	}
	body, err := codec.SenderCertificateBody(c)
	if err != nil {
		return domain.SenderCertificate{}, err
	}
	c.Signature = crypto.SignEd25519(serverKey, body)
	return c, nil
}
