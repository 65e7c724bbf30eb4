package identity_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"umbra/internal/crypto"
	"umbra/internal/domain"
	"umbra/internal/observability/logging"
	"umbra/internal/services/identity"
	"umbra/internal/store"
)

func newService(t *testing.T) *identity.Service {
	t.Helper()
	s := store.NewFileStore(t.TempDir(), "pass", store.WithScryptParams(store.ScryptParams{N: 1 << 10, R: 8, P: 1}))
	return identity.New(s, logging.Discard())
}

func TestGenerateIdentity(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	addr := domain.Address{UUID: uuid.New(), DeviceID: 7}

	id, keyID, err := svc.GenerateIdentity(ctx, addr)
	require.NoError(t, err)
	require.Equal(t, addr, id.Address)
	require.Equal(t, crypto.KeyID(id.XPub[:]), keyID)

	pub, err := crypto.PublicX25519(id.XPriv)
	require.NoError(t, err)
	require.Equal(t, id.XPub, pub)

	loaded, err := svc.LoadIdentity(ctx)
	require.NoError(t, err)
	require.Equal(t, id, loaded)

	got, err := svc.KeyID(ctx)
	require.NoError(t, err)
	require.Equal(t, keyID, got)
}

func TestGenerateIdentity_DefaultsAddress(t *testing.T) {
	id, _, err := newService(t).GenerateIdentity(context.Background(), domain.Address{})
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, id.Address.UUID)
	require.Equal(t, uint32(1), id.Address.DeviceID)
}

func TestLoadIdentity_Missing(t *testing.T) {
	_, err := newService(t).LoadIdentity(context.Background())
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCheckPassphrase(t *testing.T) {
	for _, tc := range []struct {
		passphrase string
		ok         bool
	}{
		{passphrase: "Sh0rt!", ok: false},
		{passphrase: "alllowercase1!", ok: false},
		{passphrase: "NoDigitsHere!!", ok: false},
		{passphrase: "NoSymbols12345", ok: false},
		{passphrase: "Correct-Horse-9", ok: true},
	} {
		t.Run(tc.passphrase, func(t *testing.T) {
			err := identity.CheckPassphrase(tc.passphrase)
			if tc.ok {
				require.NoError(t, err)
			} else {
				require.ErrorIs(t, err, identity.ErrWeakPassphrase)
			}
		})
	}
}
