package store

import (
	"context"
	"encoding/json"
	"fmt"

	"umbra/internal/crypto"
	"umbra/internal/domain"
	"umbra/internal/util/memzero"
)

// SealIdentity encrypts id under a key derived from passphrase. The result is
// what FileStore writes to identity.enc and what sqlstore keeps in its
// identity table.
func SealIdentity(passphrase string, id domain.Identity, params ScryptParams) ([]byte, error) {
	raw, err := json.Marshal(id)
	if err != nil {
		return nil, err
	}
	defer memzero.Zero(raw)
	return seal(passphrase, raw, params)
}

// OpenIdentity is the inverse of SealIdentity. It returns ErrWrongPassphrase
// if the passphrase does not match or the blob was modified.
func OpenIdentity(passphrase string, b []byte) (domain.Identity, error) {
	pt, err := open(passphrase, b)
	if err != nil {
		return domain.Identity{}, err
	}
	defer memzero.Zero(pt)

	var id domain.Identity
	if err := json.Unmarshal(pt, &id); err != nil {
		return domain.Identity{}, fmt.Errorf("store: identity: %w", err)
	}
	return id, nil
}

// SaveLocalIdentity encrypts id with the store passphrase and writes it.
func (s *FileStore) SaveLocalIdentity(ctx context.Context, id domain.Identity) error {
	ct, err := SealIdentity(s.passphrase, id, s.scrypt)
	if err != nil {
		return err
	}
	return s.unit(ctx, func(u *FileStore) error {
		u.write(idFilename, ct)
		return nil
	})
}

// LocalIdentity reads and decrypts the local identity.
func (s *FileStore) LocalIdentity(ctx context.Context) (id domain.Identity, err error) {
	err = s.unit(ctx, func(u *FileStore) error {
		id.Wipe()
		b, err := u.read(idFilename)
		if err != nil {
			return err
		}
		if b == nil {
			return fmt.Errorf("%w: local identity", domain.ErrNotFound)
		}
		id, err = OpenIdentity(s.passphrase, b)
		return err
	})
	return id, err
}

// SaveRemoteIdentity records the identity key of the peer at addr.
func (s *FileStore) SaveRemoteIdentity(ctx context.Context, addr domain.Address, key domain.X25519Public) error {
	return s.unit(ctx, func(u *FileStore) error {
		m := map[string]string{}
		if _, err := u.readJSON(remotesFilename, &m); err != nil {
			return err
		}
		m[addr.String()] = crypto.B64(key[:])
		return u.writeJSON(remotesFilename, m)
	})
}

// RemoteIdentity returns the recorded identity key of the peer at addr.
func (s *FileStore) RemoteIdentity(ctx context.Context, addr domain.Address) (key domain.X25519Public, err error) {
	err = s.unit(ctx, func(u *FileStore) error {
		m := map[string]string{}
		if _, err := u.readJSON(remotesFilename, &m); err != nil {
			return err
		}
		enc, ok := m[addr.String()]
		if !ok {
			return fmt.Errorf("%w: identity of %s", domain.ErrNotFound, addr)
		}
		key, err = crypto.Key32FromB64(enc)
		return err
	})
	return key, err
}
