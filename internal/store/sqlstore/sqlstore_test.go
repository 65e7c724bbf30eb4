package sqlstore_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"umbra/internal/domain"
	"umbra/internal/store"
	"umbra/internal/store/sqlstore"
)

func newStore(t *testing.T) *sqlstore.Store {
	t.Helper()
	db, err := sqlstore.Open(sqlstore.Config{
		Driver: sqlstore.DriverSQLite,
		DSN:    fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	s := sqlstore.New(db, "pass", sqlstore.WithScryptParams(store.ScryptParams{N: 1 << 10, R: 8, P: 1}))
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func addr(dev uint32) domain.Address {
	return domain.Address{UUID: uuid.MustParse("1b4e28ba-2fa1-11d2-883f-0016d3cca427"), DeviceID: dev}
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := sqlstore.Open(sqlstore.Config{Driver: "mysql"})
	require.Error(t, err)
}

func TestIdentities(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	_, err := s.LocalIdentity(ctx)
	require.ErrorIs(t, err, domain.ErrNotFound)

	id := domain.Identity{Address: addr(1), XPub: domain.X25519Public{1}, XPriv: domain.X25519Private{2}}
	require.NoError(t, s.SaveLocalIdentity(ctx, id))
	id.XPub[0] = 9
	require.NoError(t, s.SaveLocalIdentity(ctx, id))

	got, err := s.LocalIdentity(ctx)
	require.NoError(t, err)
	require.Equal(t, id, got)

	_, err = s.RemoteIdentity(ctx, addr(2))
	require.ErrorIs(t, err, domain.ErrNotFound)
	require.NoError(t, s.SaveRemoteIdentity(ctx, addr(2), domain.X25519Public{5}))
	require.NoError(t, s.SaveRemoteIdentity(ctx, addr(2), domain.X25519Public{6}))
	remote, err := s.RemoteIdentity(ctx, addr(2))
	require.NoError(t, err)
	require.Equal(t, domain.X25519Public{6}, remote)
}

func TestPreKeys(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	spk := domain.SignedPreKeyPair{ID: "spk-1", Priv: domain.X25519Private{1}, Pub: domain.X25519Public{2}, Signature: []byte("sig"), CreatedUTC: 7}
	require.NoError(t, s.SaveSignedPreKey(ctx, spk))
	require.NoError(t, s.SetCurrentSignedPreKeyID(ctx, spk.ID))
	cur, err := s.CurrentSignedPreKeyID(ctx)
	require.NoError(t, err)
	got, err := s.LoadSignedPreKey(ctx, cur)
	require.NoError(t, err)
	require.Equal(t, spk, got)

	require.NoError(t, s.SaveOneTimePreKeys(ctx, []domain.OneTimePreKeyPair{
		{ID: "b", Priv: domain.X25519Private{3}, Pub: domain.X25519Public{4}},
		{ID: "a", Priv: domain.X25519Private{5}, Pub: domain.X25519Public{6}},
	}))
	// Re-saving an existing id keeps the original key.
	require.NoError(t, s.SaveOneTimePreKeys(ctx, []domain.OneTimePreKeyPair{{ID: "a", Pub: domain.X25519Public{99}}}))

	pubs, err := s.ListOneTimePreKeyPublics(ctx)
	require.NoError(t, err)
	require.Equal(t, []domain.OneTimePreKeyPublic{
		{ID: "a", Pub: domain.X25519Public{6}},
		{ID: "b", Pub: domain.X25519Public{4}},
	}, pubs)

	require.NoError(t, s.ConsumeOneTimePreKey(ctx, "a"))
	require.ErrorIs(t, s.ConsumeOneTimePreKey(ctx, "a"), domain.ErrNotFound)
	_, err = s.LoadOneTimePreKey(ctx, "a")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSessionsAndTrust(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	st := domain.SessionState{
		Version: domain.CurrentSessionVersion,
		RootKey: domain.SymmetricKey{1},
		Sending: domain.SendingChain{RatchetPublic: domain.X25519Public{2}, RatchetPrivate: domain.X25519Private{3}, Index: 4},
		Pending: &domain.PendingPreKey{SignedPreKeyID: "spk", BaseKey: domain.X25519Public{2}},
		BaseKey: domain.X25519Public{2},
	}
	require.NoError(t, s.StoreSession(ctx, addr(1), st))
	st.Sending.Index = 5
	require.NoError(t, s.StoreSession(ctx, addr(1), st))

	got, err := s.LoadSession(ctx, addr(1))
	require.NoError(t, err)
	require.Equal(t, st.Sending, got.Sending)
	require.Equal(t, st.Pending, got.Pending)

	require.NoError(t, s.DeleteSession(ctx, addr(1)))
	_, err = s.LoadSession(ctx, addr(1))
	require.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, s.SaveTrustRoot(ctx, domain.Ed25519Public{8}))
	root, err := s.TrustRoot(ctx)
	require.NoError(t, err)
	require.Equal(t, domain.Ed25519Public{8}, root)

	require.NoError(t, s.RevokeServerKey(ctx, 4))
	require.NoError(t, s.RevokeServerKey(ctx, 2))
	require.NoError(t, s.RevokeServerKey(ctx, 4))
	ids, err := s.RevokedServerKeyIDs(ctx)
	require.NoError(t, err)
	require.Equal(t, []uint32{2, 4}, ids)
}

func TestInTx_RollsBack(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	boom := errors.New("boom")

	err := s.InTx(ctx, func(ctx context.Context, st domain.Stores) error {
		require.NoError(t, st.Identities.SaveRemoteIdentity(ctx, addr(3), domain.X25519Public{1}))
		require.NoError(t, st.Sessions.StoreSession(ctx, addr(3), domain.SessionState{Version: domain.CurrentSessionVersion}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = s.RemoteIdentity(ctx, addr(3))
	require.ErrorIs(t, err, domain.ErrNotFound)
	_, err = s.LoadSession(ctx, addr(3))
	require.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, s.InTx(ctx, func(ctx context.Context, st domain.Stores) error {
		return st.Identities.SaveRemoteIdentity(ctx, addr(3), domain.X25519Public{1})
	}))
	_, err = s.RemoteIdentity(ctx, addr(3))
	require.NoError(t, err)
}
