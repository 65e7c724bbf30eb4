package store

import (
	"context"
	"fmt"
	"path/filepath"

	"umbra/internal/domain"
	"umbra/internal/protocol/codec"
	"umbra/internal/util/memzero"
)

func sessionFile(addr domain.Address) string {
	return filepath.Join(sessionsDir, addr.String()+".state")
}

// LoadSession reads the session with the peer at addr.
func (s *FileStore) LoadSession(ctx context.Context, addr domain.Address) (st domain.SessionState, err error) {
	err = s.unit(ctx, func(u *FileStore) error {
		st.Wipe()
		b, err := u.read(sessionFile(addr))
		if err != nil {
			return err
		}
		if b == nil {
			return fmt.Errorf("%w: session with %s", domain.ErrNotFound, addr)
		}
		defer memzero.Zero(b)
		st, err = codec.DecodeSessionState(b)
		return err
	})
	return st, err
}

// StoreSession replaces the session with the peer at addr.
func (s *FileStore) StoreSession(ctx context.Context, addr domain.Address, st domain.SessionState) error {
	b, err := codec.EncodeSessionState(st)
	if err != nil {
		return err
	}
	defer memzero.Zero(b)

	return s.unit(ctx, func(u *FileStore) error {
		u.write(sessionFile(addr), b)
		return nil
	})
}

// DeleteSession removes the session with the peer at addr, if any.
func (s *FileStore) DeleteSession(ctx context.Context, addr domain.Address) error {
	return s.unit(ctx, func(u *FileStore) error {
		u.remove(sessionFile(addr))
		return nil
	})
}
