package interfaces

import (
	"context"
	"time"

	domaintypes "umbra/internal/domain/types"
)

// IdentityService creates, retrieves, and inspects the local identity.
type IdentityService interface {
	GenerateIdentity(ctx context.Context, addr domaintypes.Address) (
		domaintypes.Identity,
		domaintypes.KeyID,
		error,
	)
	LoadIdentity(ctx context.Context) (domaintypes.Identity, error)
	KeyID(ctx context.Context) (domaintypes.KeyID, error)
}

// PreKeyService generates pre-keys and assembles the public bundle.
type PreKeyService interface {
	GenerateAndStorePreKeys(ctx context.Context, count int) (
		domaintypes.X25519Public,
		[]domaintypes.X25519Public,
		error,
	)
	LoadPreKeyBundle(ctx context.Context) (domaintypes.PreKeyBundle, error)
}

// SessionService establishes sessions and encrypts or decrypts on them.
// Calls on the same peer are serialized.
type SessionService interface {
	InitiateSession(ctx context.Context, bundle domaintypes.PreKeyBundle) error
	HasSession(ctx context.Context, peer domaintypes.Address) (bool, error)
	DeleteSession(ctx context.Context, peer domaintypes.Address) error

	Encrypt(
		ctx context.Context,
		peer domaintypes.Address,
		plaintext []byte,
	) (domaintypes.CiphertextMessage, error)
	// EncryptWith is Encrypt that passes the message to use before the
	// session is stored; if use fails the session does not advance.
	EncryptWith(
		ctx context.Context,
		peer domaintypes.Address,
		plaintext []byte,
		use func(domaintypes.CiphertextMessage) error,
	) error
	Decrypt(
		ctx context.Context,
		peer domaintypes.Address,
		msg domaintypes.CiphertextMessage,
	) ([]byte, error)
	// DecryptFrom is Decrypt that additionally requires the session's remote
	// identity key to equal identity.
	DecryptFrom(
		ctx context.Context,
		peer domaintypes.Address,
		identity domaintypes.X25519Public,
		msg domaintypes.CiphertextMessage,
	) ([]byte, error)
}

// MessageService seals outgoing messages and unseals incoming envelopes.
type MessageService interface {
	SendSealed(
		ctx context.Context,
		cert domaintypes.SenderCertificate,
		to domaintypes.Address,
		plaintext []byte,
	) ([]byte, error)
	ReceiveSealed(
		ctx context.Context,
		envelope []byte,
		now time.Time,
	) (domaintypes.DecryptedMessage, error)
}
