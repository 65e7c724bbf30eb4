package identity

import (
	"context"
	"fmt"
	"log/slog"
	"unicode"

	"github.com/google/uuid"

	"umbra/internal/crypto"
	"umbra/internal/domain"
)

const (
	// minPassphraseLength defines the minimum number of characters required for a passphrase.
	minPassphraseLength = 12
)

var (
	// ErrWeakPassphrase is returned when the passphrase fails the strength policy.
	ErrWeakPassphrase = fmt.Errorf(
		"passphrase is too weak (must be at least %d characters and include upper, lower, "+
			"number, and symbol)",
		minPassphraseLength,
	)
)

// Service manages identity key creation and access using a backing store.
//
// The identity contains:
//   - X25519 key pair for Diffie-Hellman (X3DH, Double Ratchet, sealed sender).
//   - Ed25519 key pair for signing (for example, signing the signed pre-key).
type Service struct {
	store domain.IdentityStore
	log   *slog.Logger
}

// New returns an identity service backed by the given store.
func New(s domain.IdentityStore, log *slog.Logger) *Service {
	return &Service{store: s, log: log}
}

// GenerateIdentity creates a new identity for addr, saves it and returns it
// together with the key id of its X25519 public key. A zero UUID is replaced
// with a random one and device 0 becomes device 1.
func (s *Service) GenerateIdentity(
	ctx context.Context,
	addr domain.Address,
) (domain.Identity, domain.KeyID, error) {
	if addr.UUID == uuid.Nil {
		addr.UUID = uuid.New()
	}
	if addr.DeviceID == 0 {
		addr.DeviceID = 1
	}

	// Generate Diffie-Hellman keypair.
	xPriv, xPub, err := crypto.GenerateX25519()
	if err != nil {
		return domain.Identity{}, "", err
	}
	// Generate signing keypair.
	edPriv, edPub, err := crypto.GenerateEd25519()
	if err != nil {
		return domain.Identity{}, "", err
	}

	id := domain.Identity{
		Address: addr,
		XPub:    xPub,
		XPriv:   xPriv,
		EdPub:   edPub,
		EdPriv:  edPriv,
	}
	if err := s.store.SaveLocalIdentity(ctx, id); err != nil {
		return domain.Identity{}, "", err
	}

	keyID := crypto.KeyID(id.XPub.Slice())
	s.log.InfoContext(ctx, "identity generated",
		slog.String("address", addr.String()),
		slog.String("key_id", keyID.String()),
	)
	return id, keyID, nil
}

// LoadIdentity returns the local identity.
func (s *Service) LoadIdentity(ctx context.Context) (domain.Identity, error) {
	return s.store.LocalIdentity(ctx)
}

// KeyID returns the short key id of the local X25519 public key.
func (s *Service) KeyID(ctx context.Context) (domain.KeyID, error) {
	id, err := s.store.LocalIdentity(ctx)
	if err != nil {
		return "", err
	}
	defer id.Wipe()
	return crypto.KeyID(id.XPub.Slice()), nil
}

// CheckPassphrase enforces the passphrase policy applied before a new identity
// is sealed at rest.
func CheckPassphrase(passphrase string) error {
	if !isSecurePassphrase(passphrase) {
		return ErrWeakPassphrase
	}
	return nil
}

// isSecurePassphrase enforces a basic strength policy.
func isSecurePassphrase(passphrase string) bool {
	var hasUpper, hasLower, hasDigit, hasSymbol bool
	if len(passphrase) < minPassphraseLength {
		return false
	}
	for _, r := range passphrase {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r), unicode.IsSymbol(r):
			hasSymbol = true
		}
	}
	return hasUpper && hasLower && hasDigit && hasSymbol
}

// Compile-time assertion that Service implements domain.IdentityService.
var _ domain.IdentityService = (*Service)(nil)
