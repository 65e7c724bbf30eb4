package prekey_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"umbra/internal/domain"
	"umbra/internal/observability/logging"
	"umbra/internal/protocol/x3dh"
	"umbra/internal/services/identity"
	"umbra/internal/services/prekey"
	"umbra/internal/store"
)

func setup(t *testing.T) (*prekey.Service, *store.FileStore, domain.Identity) {
	t.Helper()
	s := store.NewFileStore(t.TempDir(), "pass", store.WithScryptParams(store.ScryptParams{N: 1 << 10, R: 8, P: 1}))
	id, _, err := identity.New(s, logging.Discard()).GenerateIdentity(context.Background(), domain.Address{})
	require.NoError(t, err)
	return prekey.New(s, s, logging.Discard()), s, id
}

func TestGenerateAndLoadBundle(t *testing.T) {
	ctx := context.Background()
	svc, s, id := setup(t)

	spkPub, opks, err := svc.GenerateAndStorePreKeys(ctx, 4)
	require.NoError(t, err)
	require.Len(t, opks, 4)

	b, err := svc.LoadPreKeyBundle(ctx)
	require.NoError(t, err)
	require.Equal(t, id.Address, b.Address)
	require.Equal(t, id.XPub, b.IdentityKey)
	require.Equal(t, id.EdPub, b.SigningKey)
	require.Equal(t, spkPub, b.SignedPreKey)
	require.NoError(t, x3dh.VerifySignedPreKey(b.SigningKey, b.SignedPreKey, b.SignedPreKeySignature))

	require.NotNil(t, b.OneTimePreKey)
	require.Contains(t, opks, b.OneTimePreKey.Pub)

	pair, err := s.LoadOneTimePreKey(ctx, b.OneTimePreKey.ID)
	require.NoError(t, err)
	require.Equal(t, b.OneTimePreKey.Pub, pair.Pub)
}

func TestRotateSignedPreKey(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := setup(t)

	first, _, err := svc.GenerateAndStorePreKeys(ctx, 0)
	require.NoError(t, err)
	second, _, err := svc.GenerateAndStorePreKeys(ctx, 0)
	require.NoError(t, err)
	require.NotEqual(t, first, second)

	b, err := svc.LoadPreKeyBundle(ctx)
	require.NoError(t, err)
	require.Equal(t, second, b.SignedPreKey)
	require.Nil(t, b.OneTimePreKey)
}

func TestLoadBundle_NoSignedPreKey(t *testing.T) {
	svc, _, _ := setup(t)
	_, err := svc.LoadPreKeyBundle(context.Background())
	require.ErrorIs(t, err, prekey.ErrNoSignedPreKey)
}

func TestGenerate_NegativeCount(t *testing.T) {
	svc, _, _ := setup(t)
	_, _, err := svc.GenerateAndStorePreKeys(context.Background(), -1)
	require.Error(t, err)
}
