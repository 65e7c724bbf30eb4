package sqlstore

import (
	"context"

	"gorm.io/gorm/clause"

	"umbra/internal/domain"
)

// SaveTrustRoot sets the key sealed-sender certificates must chain to.
func (s *Store) SaveTrustRoot(ctx context.Context, root domain.Ed25519Public) error {
	return upsert(ctx, s.db, "name", []string{"value"},
		&settingRow{Name: settingTrustRoot, Value: root[:]})
}

// TrustRoot returns the configured trust root.
func (s *Store) TrustRoot(ctx context.Context) (domain.Ed25519Public, error) {
	var row settingRow
	if err := s.db.WithContext(ctx).First(&row, "name = ?", settingTrustRoot).Error; err != nil {
		return domain.Ed25519Public{}, notFound(err, "trust root")
	}
	return key32(row.Value, "trust root")
}

// RevokeServerKey adds keyID to the revocation list.
func (s *Store) RevokeServerKey(ctx context.Context, keyID uint32) error {
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&revokedServerKeyRow{KeyID: keyID}).Error
}

// RevokedServerKeyIDs returns the revoked server key ids in ascending order.
func (s *Store) RevokedServerKeyIDs(ctx context.Context) ([]uint32, error) {
	var ids []uint32
	err := s.db.WithContext(ctx).
		Model(&revokedServerKeyRow{}).
		Order("key_id ASC").
		Pluck("key_id", &ids).Error
	return ids, err
}
