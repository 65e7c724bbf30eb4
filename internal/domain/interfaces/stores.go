package interfaces

import (
	"context"

	domaintypes "umbra/internal/domain/types"
)

// IdentityStore persists the local identity and the identity keys of peers.
// Lookups of unknown entries return domain.ErrNotFound.
type IdentityStore interface {
	SaveLocalIdentity(ctx context.Context, id domaintypes.Identity) error
	LocalIdentity(ctx context.Context) (domaintypes.Identity, error)

	SaveRemoteIdentity(ctx context.Context, addr domaintypes.Address, key domaintypes.X25519Public) error
	RemoteIdentity(ctx context.Context, addr domaintypes.Address) (domaintypes.X25519Public, error)
}

// PreKeyStore manages signed and one-time pre-keys.
type PreKeyStore interface {
	// Signed pre-key
	SaveSignedPreKey(ctx context.Context, pair domaintypes.SignedPreKeyPair) error
	LoadSignedPreKey(ctx context.Context, id domaintypes.SignedPreKeyID) (domaintypes.SignedPreKeyPair, error)
	SetCurrentSignedPreKeyID(ctx context.Context, id domaintypes.SignedPreKeyID) error
	CurrentSignedPreKeyID(ctx context.Context) (domaintypes.SignedPreKeyID, error)

	// One-time pre-keys
	SaveOneTimePreKeys(ctx context.Context, pairs []domaintypes.OneTimePreKeyPair) error
	LoadOneTimePreKey(ctx context.Context, id domaintypes.OneTimePreKeyID) (domaintypes.OneTimePreKeyPair, error)
	ConsumeOneTimePreKey(ctx context.Context, id domaintypes.OneTimePreKeyID) error
	ListOneTimePreKeyPublics(ctx context.Context) ([]domaintypes.OneTimePreKeyPublic, error)
}

// SessionStore persists ratchet sessions keyed by peer address.
type SessionStore interface {
	LoadSession(ctx context.Context, addr domaintypes.Address) (domaintypes.SessionState, error)
	StoreSession(ctx context.Context, addr domaintypes.Address, state domaintypes.SessionState) error
	DeleteSession(ctx context.Context, addr domaintypes.Address) error
}

// TrustStore holds the sealed-sender trust root and revoked server key ids.
type TrustStore interface {
	SaveTrustRoot(ctx context.Context, root domaintypes.Ed25519Public) error
	TrustRoot(ctx context.Context) (domaintypes.Ed25519Public, error)
	RevokeServerKey(ctx context.Context, keyID uint32) error
	RevokedServerKeyIDs(ctx context.Context) ([]uint32, error)
}

// Stores groups the collaborators one unit of work may touch.
type Stores struct {
	Identities IdentityStore
	PreKeys    PreKeyStore
	Sessions   SessionStore
	Trust      TrustStore
}

// Transactor runs fn against stores bound to a single unit of work. If fn
// returns an error nothing it wrote may be observed afterwards. A backend may
// run fn more than once, so fn must confine its effects to the stores it is
// given.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context, s Stores) error) error
}
