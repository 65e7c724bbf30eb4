package prekey

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"umbra/internal/crypto"
	"umbra/internal/domain"
)

// ErrNoSignedPreKey is returned when a bundle is requested before any signed
// pre-key was generated.
var ErrNoSignedPreKey = errors.New("no signed pre-key available")

// Service manages pre-key pairs and builds the public bundle.
type Service struct {
	ids domain.IdentityStore
	ps  domain.PreKeyStore
	log *slog.Logger
	now func() time.Time
}

// New returns a pre-key service over the given stores.
func New(ids domain.IdentityStore, ps domain.PreKeyStore, log *slog.Logger) *Service {
	return &Service{ids: ids, ps: ps, log: log, now: time.Now}
}

// GenerateAndStorePreKeys creates a signed pre-key and count one-time pre-keys.
// The new signed pre-key becomes current.
func (s *Service) GenerateAndStorePreKeys(
	ctx context.Context,
	count int,
) (domain.X25519Public, []domain.X25519Public, error) {
	if count < 0 {
		return domain.X25519Public{}, nil, fmt.Errorf("pre-key count must not be negative, got %d", count)
	}
	id, err := s.ids.LocalIdentity(ctx)
	if err != nil {
		return domain.X25519Public{}, nil, err
	}
	defer id.Wipe()

	// Signed pre-key
	spkPriv, spkPub, err := crypto.GenerateX25519()
	if err != nil {
		return domain.X25519Public{}, nil, err
	}
	now := s.now().UTC()
	spk := domain.SignedPreKeyPair{
		ID:         domain.SignedPreKeyID(fmt.Sprintf("spk-%d-%s", now.Unix(), shortID())),
		Priv:       spkPriv,
		Pub:        spkPub,
		Signature:  crypto.SignEd25519(id.EdPriv, spkPub[:]),
		CreatedUTC: now.Unix(),
	}
	if err := s.ps.SaveSignedPreKey(ctx, spk); err != nil {
		return domain.X25519Public{}, nil, err
	}
	if err := s.ps.SetCurrentSignedPreKeyID(ctx, spk.ID); err != nil {
		return domain.X25519Public{}, nil, err
	}

	// One-time pre-keys
	pairs := make([]domain.OneTimePreKeyPair, 0, count)
	publics := make([]domain.X25519Public, 0, count)
	for i := 0; i < count; i++ {
		priv, pub, err := crypto.GenerateX25519()
		if err != nil {
			return domain.X25519Public{}, nil, err
		}
		opkID := domain.OneTimePreKeyID(fmt.Sprintf("opk-%d-%d-%s", now.Unix(), i, shortID()))
		pairs = append(pairs, domain.OneTimePreKeyPair{ID: opkID, Priv: priv, Pub: pub})
		publics = append(publics, pub)
	}
	if len(pairs) > 0 {
		if err := s.ps.SaveOneTimePreKeys(ctx, pairs); err != nil {
			return domain.X25519Public{}, nil, err
		}
	}

	s.log.InfoContext(ctx, "pre-keys generated",
		slog.String("signed_pre_key_id", spk.ID.String()),
		slog.Int("one_time_pre_keys", len(pairs)),
	)
	return spkPub, publics, nil
}

// LoadPreKeyBundle builds the public bundle from the current signed pre-key
// and the first unused one-time pre-key, if any remain.
func (s *Service) LoadPreKeyBundle(ctx context.Context) (domain.PreKeyBundle, error) {
	id, err := s.ids.LocalIdentity(ctx)
	if err != nil {
		return domain.PreKeyBundle{}, err
	}
	defer id.Wipe()

	spkID, err := s.ps.CurrentSignedPreKeyID(ctx)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.PreKeyBundle{}, ErrNoSignedPreKey
	}
	if err != nil {
		return domain.PreKeyBundle{}, err
	}
	spk, err := s.ps.LoadSignedPreKey(ctx, spkID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.PreKeyBundle{}, ErrNoSignedPreKey
	}
	if err != nil {
		return domain.PreKeyBundle{}, err
	}

	oneTime, err := s.ps.ListOneTimePreKeyPublics(ctx)
	if err != nil {
		return domain.PreKeyBundle{}, err
	}

	b := domain.PreKeyBundle{
		Address:               id.Address,
		IdentityKey:           id.XPub,
		SigningKey:            id.EdPub,
		SignedPreKeyID:        spk.ID,
		SignedPreKey:          spk.Pub,
		SignedPreKeySignature: spk.Signature,
	}
	if len(oneTime) > 0 {
		opk := oneTime[0]
		b.OneTimePreKey = &opk
	}
	return b, nil
}

// shortID returns eight random hex characters so ids minted in the same
// second stay unique.
func shortID() string {
	return uuid.NewString()[:8]
}

// Compile-time assertion that Service implements domain.PreKeyService.
var _ domain.PreKeyService = (*Service)(nil)
