package sqlstore

import (
	"context"

	"umbra/internal/domain"
	"umbra/internal/protocol/codec"
	"umbra/internal/util/memzero"
)

// LoadSession reads the session with the peer at addr.
func (s *Store) LoadSession(ctx context.Context, addr domain.Address) (domain.SessionState, error) {
	var row sessionRow
	if err := s.db.WithContext(ctx).First(&row, "address = ?", addr.String()).Error; err != nil {
		return domain.SessionState{}, notFound(err, "session with %s", addr)
	}
	defer memzero.Zero(row.State)
	return codec.DecodeSessionState(row.State)
}

// StoreSession replaces the session with the peer at addr.
func (s *Store) StoreSession(ctx context.Context, addr domain.Address, st domain.SessionState) error {
	b, err := codec.EncodeSessionState(st)
	if err != nil {
		return err
	}
	defer memzero.Zero(b)
	return upsert(ctx, s.db, "address", []string{"state", "updated_at"},
		&sessionRow{Address: addr.String(), State: b})
}

// DeleteSession removes the session with the peer at addr, if any.
func (s *Store) DeleteSession(ctx context.Context, addr domain.Address) error {
	return s.db.WithContext(ctx).Delete(&sessionRow{}, "address = ?", addr.String()).Error
}
