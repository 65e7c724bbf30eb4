package sqlstore

import (
	"context"

	"umbra/internal/domain"
	"umbra/internal/store"
)

// SaveLocalIdentity seals id with the store passphrase and stores it.
func (s *Store) SaveLocalIdentity(ctx context.Context, id domain.Identity) error {
	sealed, err := store.SealIdentity(s.passphrase, id, s.scrypt)
	if err != nil {
		return err
	}
	return upsert(ctx, s.db, "id", []string{"sealed", "updated_at"},
		&localIdentityRow{ID: 1, Sealed: sealed})
}

// LocalIdentity loads and opens the local identity.
func (s *Store) LocalIdentity(ctx context.Context) (domain.Identity, error) {
	var row localIdentityRow
	if err := s.db.WithContext(ctx).First(&row, "id = ?", 1).Error; err != nil {
		return domain.Identity{}, notFound(err, "local identity")
	}
	return store.OpenIdentity(s.passphrase, row.Sealed)
}

// SaveRemoteIdentity records the identity key of the peer at addr.
func (s *Store) SaveRemoteIdentity(ctx context.Context, addr domain.Address, key domain.X25519Public) error {
	return upsert(ctx, s.db, "address", []string{"identity_key", "updated_at"},
		&remoteIdentityRow{Address: addr.String(), IdentityKey: key[:]})
}

// RemoteIdentity returns the recorded identity key of the peer at addr.
func (s *Store) RemoteIdentity(ctx context.Context, addr domain.Address) (domain.X25519Public, error) {
	var row remoteIdentityRow
	if err := s.db.WithContext(ctx).First(&row, "address = ?", addr.String()).Error; err != nil {
		return domain.X25519Public{}, notFound(err, "identity of %s", addr)
	}
	return key32(row.IdentityKey, "identity key")
}
