package sqlstore

import "time"

// localIdentityRow holds the passphrase-sealed local identity. There is at
// most one row, with ID 1.
type localIdentityRow struct {
	ID        uint   `gorm:"primaryKey;autoIncrement:false"`
	Sealed    []byte `gorm:"not null"`
	UpdatedAt time.Time
}

type remoteIdentityRow struct {
	Address     string `gorm:"primaryKey;size:64"`
	IdentityKey []byte `gorm:"not null"`
	UpdatedAt   time.Time
}

type signedPreKeyRow struct {
	ID         string `gorm:"primaryKey;size:64"`
	Priv       []byte `gorm:"not null"`
	Pub        []byte `gorm:"not null"`
	Signature  []byte `gorm:"not null"`
	CreatedUTC int64  `gorm:"not null"`
}

type oneTimePreKeyRow struct {
	ID   string `gorm:"primaryKey;size:64"`
	Priv []byte `gorm:"not null"`
	Pub  []byte `gorm:"not null"`
}

type sessionRow struct {
	Address   string `gorm:"primaryKey;size:64"`
	State     []byte `gorm:"not null"`
	UpdatedAt time.Time
}

// settingRow stores single values such as the current signed pre-key id and
// the trust root.
type settingRow struct {
	Name  string `gorm:"primaryKey;size:64"`
	Value []byte `gorm:"not null"`
}

type revokedServerKeyRow struct {
	KeyID     uint32 `gorm:"primaryKey;autoIncrement:false"`
	CreatedAt time.Time
}

const (
	settingCurrentSignedPreKey = "current_signed_pre_key"
	settingTrustRoot           = "trust_root"
)

func models() []any {
	return []any{
		&localIdentityRow{},
		&remoteIdentityRow{},
		&signedPreKeyRow{},
		&oneTimePreKeyRow{},
		&sessionRow{},
		&settingRow{},
		&revokedServerKeyRow{},
	}
}
