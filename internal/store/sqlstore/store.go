package sqlstore

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"umbra/internal/domain"
	"umbra/internal/store"
)

// Store implements every domain store on one gorm handle.
type Store struct {
	db         *gorm.DB
	passphrase string
	scrypt     store.ScryptParams
}

// Option configures a Store.
type Option func(*Store)

// WithScryptParams overrides the cost of sealing the local identity.
func WithScryptParams(p store.ScryptParams) Option {
	return func(s *Store) { s.scrypt = p }
}

// New returns a Store on db. passphrase seals the local identity, as in the
// file store.
func New(db *gorm.DB, passphrase string, opts ...Option) *Store {
	s := &Store{db: db, passphrase: passphrase, scrypt: store.DefaultScryptParams}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Migrate creates or updates the schema.
func (s *Store) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(models()...)
}

// Stores returns s as every domain store.
func (s *Store) Stores() domain.Stores {
	return domain.Stores{Identities: s, PreKeys: s, Sessions: s, Trust: s}
}

// InTx runs fn inside a database transaction; an error from fn rolls back
// everything it wrote.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, st domain.Stores) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txStore := &Store{db: tx, passphrase: s.passphrase, scrypt: s.scrypt}
		return fn(ctx, txStore.Stores())
	})
}

func notFound(err error, format string, args ...any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: "+format, append([]any{domain.ErrNotFound}, args...)...)
	}
	return err
}

func upsert(ctx context.Context, db *gorm.DB, pk string, cols []string, row any) error {
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: pk}},
			DoUpdates: clause.AssignmentColumns(cols),
		}).
		Create(row).Error
}

func key32(b []byte, what string) ([32]byte, error) {
	var k [32]byte
	if len(b) != len(k) {
		return k, fmt.Errorf("sqlstore: %s: want %d bytes, got %d", what, len(k), len(b))
	}
	copy(k[:], b)
	return k, nil
}

// Compile-time assertions that Store implements the domain stores.
var (
	_ domain.IdentityStore = (*Store)(nil)
	_ domain.PreKeyStore   = (*Store)(nil)
	_ domain.SessionStore  = (*Store)(nil)
	_ domain.TrustStore    = (*Store)(nil)
	_ domain.Transactor    = (*Store)(nil)
)
