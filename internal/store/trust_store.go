package store

import (
	"context"
	"fmt"
	"slices"

	"umbra/internal/crypto"
	"umbra/internal/domain"
)

type trustFile struct {
	Root    string   `json:"root,omitempty"`
	Revoked []uint32 `json:"revoked,omitempty"`
}

// SaveTrustRoot sets the key sealed-sender certificates must chain to.
func (s *FileStore) SaveTrustRoot(ctx context.Context, root domain.Ed25519Public) error {
	return s.unit(ctx, func(u *FileStore) error {
		var tf trustFile
		if _, err := u.readJSON(trustFilename, &tf); err != nil {
			return err
		}
		tf.Root = crypto.B64(root[:])
		return u.writeJSON(trustFilename, tf)
	})
}

// TrustRoot returns the configured trust root.
func (s *FileStore) TrustRoot(ctx context.Context) (root domain.Ed25519Public, err error) {
	err = s.unit(ctx, func(u *FileStore) error {
		var tf trustFile
		if _, err := u.readJSON(trustFilename, &tf); err != nil {
			return err
		}
		if tf.Root == "" {
			return fmt.Errorf("%w: trust root", domain.ErrNotFound)
		}
		root, err = crypto.Key32FromB64(tf.Root)
		return err
	})
	return root, err
}

// RevokeServerKey adds keyID to the revocation list.
func (s *FileStore) RevokeServerKey(ctx context.Context, keyID uint32) error {
	return s.unit(ctx, func(u *FileStore) error {
		var tf trustFile
		if _, err := u.readJSON(trustFilename, &tf); err != nil {
			return err
		}
		if slices.Contains(tf.Revoked, keyID) {
			return nil
		}
		tf.Revoked = append(tf.Revoked, keyID)
		slices.Sort(tf.Revoked)
		return u.writeJSON(trustFilename, tf)
	})
}

// RevokedServerKeyIDs returns the revoked server key ids in ascending order.
func (s *FileStore) RevokedServerKeyIDs(ctx context.Context) (ids []uint32, err error) {
	err = s.unit(ctx, func(u *FileStore) error {
		var tf trustFile
		if _, err := u.readJSON(trustFilename, &tf); err != nil {
			return err
		}
		ids = tf.Revoked
		return nil
	})
	return ids, err
}
