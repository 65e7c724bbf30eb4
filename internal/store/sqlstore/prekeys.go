package sqlstore

import (
	"context"
	"fmt"

	"gorm.io/gorm/clause"

	"umbra/internal/domain"
)

// SaveSignedPreKey stores a signed pre-key by id.
func (s *Store) SaveSignedPreKey(ctx context.Context, pair domain.SignedPreKeyPair) error {
	return upsert(ctx, s.db, "id", []string{"priv", "pub", "signature", "created_utc"}, &signedPreKeyRow{
		ID:         string(pair.ID),
		Priv:       pair.Priv[:],
		Pub:        pair.Pub[:],
		Signature:  pair.Signature,
		CreatedUTC: pair.CreatedUTC,
	})
}

// LoadSignedPreKey retrieves a signed pre-key by id.
func (s *Store) LoadSignedPreKey(ctx context.Context, id domain.SignedPreKeyID) (domain.SignedPreKeyPair, error) {
	var row signedPreKeyRow
	if err := s.db.WithContext(ctx).First(&row, "id = ?", string(id)).Error; err != nil {
		return domain.SignedPreKeyPair{}, notFound(err, "signed pre-key %s", id)
	}
	priv, err := key32(row.Priv, "signed pre-key private")
	if err != nil {
		return domain.SignedPreKeyPair{}, err
	}
	pub, err := key32(row.Pub, "signed pre-key public")
	if err != nil {
		return domain.SignedPreKeyPair{}, err
	}
	return domain.SignedPreKeyPair{
		ID:         id,
		Priv:       priv,
		Pub:        pub,
		Signature:  row.Signature,
		CreatedUTC: row.CreatedUTC,
	}, nil
}

// SetCurrentSignedPreKeyID records which signed pre-key id is current.
func (s *Store) SetCurrentSignedPreKeyID(ctx context.Context, id domain.SignedPreKeyID) error {
	return upsert(ctx, s.db, "name", []string{"value"},
		&settingRow{Name: settingCurrentSignedPreKey, Value: []byte(id)})
}

// CurrentSignedPreKeyID returns the recorded current signed pre-key id.
func (s *Store) CurrentSignedPreKeyID(ctx context.Context) (domain.SignedPreKeyID, error) {
	var row settingRow
	if err := s.db.WithContext(ctx).First(&row, "name = ?", settingCurrentSignedPreKey).Error; err != nil {
		return "", notFound(err, "current signed pre-key")
	}
	return domain.SignedPreKeyID(row.Value), nil
}

// SaveOneTimePreKeys inserts the given pairs; ids already present are kept.
func (s *Store) SaveOneTimePreKeys(ctx context.Context, pairs []domain.OneTimePreKeyPair) error {
	if len(pairs) == 0 {
		return nil
	}
	rows := make([]oneTimePreKeyRow, 0, len(pairs))
	for _, p := range pairs {
		rows = append(rows, oneTimePreKeyRow{ID: string(p.ID), Priv: p.Priv[:], Pub: p.Pub[:]})
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&rows).Error
}

// LoadOneTimePreKey returns a one-time pre-key without consuming it.
func (s *Store) LoadOneTimePreKey(ctx context.Context, id domain.OneTimePreKeyID) (domain.OneTimePreKeyPair, error) {
	var row oneTimePreKeyRow
	if err := s.db.WithContext(ctx).First(&row, "id = ?", string(id)).Error; err != nil {
		return domain.OneTimePreKeyPair{}, notFound(err, "one-time pre-key %s", id)
	}
	priv, err := key32(row.Priv, "one-time pre-key private")
	if err != nil {
		return domain.OneTimePreKeyPair{}, err
	}
	pub, err := key32(row.Pub, "one-time pre-key public")
	if err != nil {
		return domain.OneTimePreKeyPair{}, err
	}
	return domain.OneTimePreKeyPair{ID: id, Priv: priv, Pub: pub}, nil
}

// ConsumeOneTimePreKey deletes a one-time pre-key so it is never used again.
func (s *Store) ConsumeOneTimePreKey(ctx context.Context, id domain.OneTimePreKeyID) error {
	res := s.db.WithContext(ctx).Delete(&oneTimePreKeyRow{}, "id = ?", string(id))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: one-time pre-key %s", domain.ErrNotFound, id)
	}
	return nil
}

// ListOneTimePreKeyPublics returns the public halves of the unused one-time
// pre-keys in id order.
func (s *Store) ListOneTimePreKeyPublics(ctx context.Context) ([]domain.OneTimePreKeyPublic, error) {
	var rows []oneTimePreKeyRow
	if err := s.db.WithContext(ctx).Select("id", "pub").Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.OneTimePreKeyPublic, 0, len(rows))
	for _, r := range rows {
		pub, err := key32(r.Pub, "one-time pre-key public")
		if err != nil {
			return nil, err
		}
		out = append(out, domain.OneTimePreKeyPublic{ID: domain.OneTimePreKeyID(r.ID), Pub: pub})
	}
	return out, nil
}
