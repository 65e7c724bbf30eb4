package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"umbra/internal/domain"
)

const (
	idFilename      = "identity.enc"
	remotesFilename = "remote_identities.json"
	spkPairsFile    = "spk_pairs.json"
	opkPairsFile    = "opk_pairs.json"
	prekeyMetaFile  = "prekey_meta.json"
	trustFilename   = "trust.json"
	sessionsDir     = "sessions"
)

// maxAttempts bounds how often InTx reruns a unit that lost a race with a
// concurrent unit.
const maxAttempts = 32

// ErrConflict is returned when a unit of work kept reading files that
// concurrent units changed before it could commit.
var ErrConflict = errors.New("store: concurrent update")

// FileStore persists identities, pre-keys, sessions and trust settings under
// one directory.
//
// Every method runs inside a unit of work: the one InTx started, or a unit of
// its own. A unit reads through an overlay of its pending changes and writes
// nothing until it commits. Commit checks that no file the unit read was
// changed by another unit in the meantime, then replaces the changed files
// with temp-file + rename.
type FileStore struct {
	dir        string
	passphrase string
	scrypt     ScryptParams

	disk *disk
	tx   *overlay // nil outside a unit of work
}

// disk is the state shared by every unit of one store.
type disk struct {
	mu       sync.Mutex        // held while reading a file or committing
	versions map[string]uint64 // bumped on every committed change
}

// Option configures a FileStore.
type Option func(*FileStore)

// WithScryptParams overrides the cost of deriving the identity key from the
// passphrase.
func WithScryptParams(p ScryptParams) Option {
	return func(s *FileStore) { s.scrypt = p }
}

// NewFileStore returns a FileStore rooted at dir. passphrase protects the
// local identity at rest.
func NewFileStore(dir, passphrase string, opts ...Option) *FileStore {
	s := &FileStore{
		dir:        dir,
		passphrase: passphrase,
		scrypt:     DefaultScryptParams,
		disk:       &disk{versions: map[string]uint64{}},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dir returns the directory the store lives in.
func (s *FileStore) Dir() string { return s.dir }

// Stores returns s as every domain store.
func (s *FileStore) Stores() domain.Stores {
	return domain.Stores{Identities: s, PreKeys: s, Sessions: s, Trust: s}
}

// InTx runs fn as one unit of work. Reads inside fn see fn's own writes, and
// nothing reaches disk unless fn returns nil. If another unit committed a file
// fn read, the unit is dropped and fn runs again, so fn must keep its effects
// inside st.
func (s *FileStore) InTx(ctx context.Context, fn func(ctx context.Context, st domain.Stores) error) error {
	return s.unit(ctx, func(u *FileStore) error { return fn(ctx, u.Stores()) })
}

// unit runs fn inside the current unit of work, or in new ones until one
// commits.
func (s *FileStore) unit(ctx context.Context, fn func(u *FileStore) error) error {
	if s.tx != nil {
		return fn(s)
	}
	for range maxAttempts {
		if err := ctx.Err(); err != nil {
			return err
		}
		u := *s
		u.tx = newOverlay()
		err := fn(&u)
		if err == nil {
			err = u.commit()
		}
		u.tx.wipe()
		if !errors.Is(err, ErrConflict) {
			return err
		}
	}
	return fmt.Errorf("%w: gave up after %d attempts", ErrConflict, maxAttempts)
}

func (s *FileStore) path(name string) string { return filepath.Join(s.dir, name) }

// Compile-time assertions that FileStore implements the domain stores.
var (
	_ domain.IdentityStore = (*FileStore)(nil)
	_ domain.PreKeyStore   = (*FileStore)(nil)
	_ domain.SessionStore  = (*FileStore)(nil)
	_ domain.TrustStore    = (*FileStore)(nil)
	_ domain.Transactor    = (*FileStore)(nil)
)
