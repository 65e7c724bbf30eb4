package store

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"umbra/internal/domain"
)

type spkPair struct {
	Priv      [32]byte `json:"priv"`
	Pub       [32]byte `json:"pub"`
	Sig       []byte   `json:"sig"`
	CreatedAt int64    `json:"created_at"`
}

type opkPair struct {
	Priv [32]byte `json:"priv"`
	Pub  [32]byte `json:"pub"`
}

type prekeyMeta struct {
	CurrentSignedPreKeyID domain.SignedPreKeyID `json:"current_signed_pre_key_id"`
}

// SaveSignedPreKey stores a signed pre-key by id.
func (s *FileStore) SaveSignedPreKey(ctx context.Context, pair domain.SignedPreKeyPair) error {
	return s.unit(ctx, func(u *FileStore) error {
		m := map[domain.SignedPreKeyID]spkPair{}
		if _, err := u.readJSON(spkPairsFile, &m); err != nil {
			return err
		}
		m[pair.ID] = spkPair{
			Priv:      pair.Priv,
			Pub:       pair.Pub,
			Sig:       append([]byte(nil), pair.Signature...),
			CreatedAt: pair.CreatedUTC,
		}
		return u.writeJSON(spkPairsFile, m)
	})
}

// LoadSignedPreKey retrieves a signed pre-key by id.
func (s *FileStore) LoadSignedPreKey(ctx context.Context, id domain.SignedPreKeyID) (out domain.SignedPreKeyPair, err error) {
	err = s.unit(ctx, func(u *FileStore) error {
		m := map[domain.SignedPreKeyID]spkPair{}
		if _, err := u.readJSON(spkPairsFile, &m); err != nil {
			return err
		}
		p, ok := m[id]
		if !ok {
			return fmt.Errorf("%w: signed pre-key %s", domain.ErrNotFound, id)
		}
		out = domain.SignedPreKeyPair{ID: id, Priv: p.Priv, Pub: p.Pub, Signature: p.Sig, CreatedUTC: p.CreatedAt}
		return nil
	})
	return out, err
}

// SetCurrentSignedPreKeyID records which signed pre-key id is current.
func (s *FileStore) SetCurrentSignedPreKeyID(ctx context.Context, id domain.SignedPreKeyID) error {
	return s.unit(ctx, func(u *FileStore) error {
		return u.writeJSON(prekeyMetaFile, prekeyMeta{CurrentSignedPreKeyID: id})
	})
}

// CurrentSignedPreKeyID returns the recorded current signed pre-key id.
func (s *FileStore) CurrentSignedPreKeyID(ctx context.Context) (id domain.SignedPreKeyID, err error) {
	err = s.unit(ctx, func(u *FileStore) error {
		var meta prekeyMeta
		if _, err := u.readJSON(prekeyMetaFile, &meta); err != nil {
			return err
		}
		if meta.CurrentSignedPreKeyID == "" {
			return fmt.Errorf("%w: current signed pre-key", domain.ErrNotFound)
		}
		id = meta.CurrentSignedPreKeyID
		return nil
	})
	return id, err
}

// SaveOneTimePreKeys merges the provided one-time pre-key pairs into the store.
func (s *FileStore) SaveOneTimePreKeys(ctx context.Context, pairs []domain.OneTimePreKeyPair) error {
	return s.unit(ctx, func(u *FileStore) error {
		m := map[domain.OneTimePreKeyID]opkPair{}
		if _, err := u.readJSON(opkPairsFile, &m); err != nil {
			return err
		}
		for _, p := range pairs {
			m[p.ID] = opkPair{Priv: p.Priv, Pub: p.Pub}
		}
		return u.writeJSON(opkPairsFile, m)
	})
}

// LoadOneTimePreKey returns a one-time pre-key without consuming it.
func (s *FileStore) LoadOneTimePreKey(ctx context.Context, id domain.OneTimePreKeyID) (out domain.OneTimePreKeyPair, err error) {
	err = s.unit(ctx, func(u *FileStore) error {
		m := map[domain.OneTimePreKeyID]opkPair{}
		if _, err := u.readJSON(opkPairsFile, &m); err != nil {
			return err
		}
		p, ok := m[id]
		if !ok {
			return fmt.Errorf("%w: one-time pre-key %s", domain.ErrNotFound, id)
		}
		out = domain.OneTimePreKeyPair{ID: id, Priv: p.Priv, Pub: p.Pub}
		return nil
	})
	return out, err
}

// ConsumeOneTimePreKey removes a one-time pre-key so it is never used again.
func (s *FileStore) ConsumeOneTimePreKey(ctx context.Context, id domain.OneTimePreKeyID) error {
	return s.unit(ctx, func(u *FileStore) error {
		m := map[domain.OneTimePreKeyID]opkPair{}
		if _, err := u.readJSON(opkPairsFile, &m); err != nil {
			return err
		}
		if _, ok := m[id]; !ok {
			return fmt.Errorf("%w: one-time pre-key %s", domain.ErrNotFound, id)
		}
		delete(m, id)
		return u.writeJSON(opkPairsFile, m)
	})
}

// ListOneTimePreKeyPublics exposes only the public halves for bundling, in
// id order.
func (s *FileStore) ListOneTimePreKeyPublics(ctx context.Context) (out []domain.OneTimePreKeyPublic, err error) {
	err = s.unit(ctx, func(u *FileStore) error {
		m := map[domain.OneTimePreKeyID]opkPair{}
		if _, err := u.readJSON(opkPairsFile, &m); err != nil {
			return err
		}
		out = make([]domain.OneTimePreKeyPublic, 0, len(m))
		for id, p := range m {
			out = append(out, domain.OneTimePreKeyPublic{ID: id, Pub: p.Pub})
		}
		return nil
	})
	slices.SortFunc(out, func(a, b domain.OneTimePreKeyPublic) int {
		return strings.Compare(string(a.ID), string(b.ID))
	})
	return out, err
}
