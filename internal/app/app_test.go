package app_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"umbra/internal/app"
	"umbra/internal/domain"
	"umbra/internal/protocol/ratchet"
)

func TestLoadConfig_Defaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("UMBRA_HOME", home)
	t.Setenv("UMBRA_STORE", "")
	t.Setenv("UMBRA_MAX_SKIP", "")

	cfg, err := app.LoadConfig("")
	require.NoError(t, err)
	require.Equal(t, home, cfg.Home)
	require.Equal(t, app.StoreFile, cfg.Store)
	require.Equal(t, ratchet.DefaultLimits(), cfg.Limits)

	other := t.TempDir()
	cfg, err = app.LoadConfig(other)
	require.NoError(t, err)
	require.Equal(t, other, cfg.Home)
}

func TestLoadConfig_EnvAndDotEnv(t *testing.T) {
	home := t.TempDir()
	t.Setenv("UMBRA_HOME", home)
	t.Setenv("UMBRA_MAX_SKIP", "50")
	// godotenv only fills unset variables; Setenv's cleanup restores them.
	for _, k := range []string{"UMBRA_STORE", "UMBRA_MAX_SKIPPED_KEYS"} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
	require.NoError(t, os.WriteFile(filepath.Join(home, ".env"),
		[]byte("UMBRA_STORE=sqlite\nUMBRA_MAX_SKIP=7\nUMBRA_MAX_SKIPPED_KEYS=70\n"), 0o600))

	cfg, err := app.LoadConfig("")
	require.NoError(t, err)
	require.Equal(t, app.StoreSQLite, cfg.Store)
	require.Equal(t, 50, cfg.Limits.MaxSkip)
	require.Equal(t, 70, cfg.Limits.MaxSkippedKeys)
}

func TestNewWire(t *testing.T) {
	for _, backend := range []string{app.StoreFile, app.StoreSQLite} {
		t.Run(backend, func(t *testing.T) {
			ctx := context.Background()
			w, err := app.NewWire(ctx, app.Config{
				Home:       t.TempDir(),
				Store:      backend,
				Passphrase: "pass",
				LogLevel:   "error",
				Limits:     ratchet.DefaultLimits(),
			})
			require.NoError(t, err)
			t.Cleanup(func() { require.NoError(t, w.Close()) })

			id, _, err := w.Identities.GenerateIdentity(ctx, domain.Address{})
			require.NoError(t, err)
			loaded, err := w.Stores.Identities.LocalIdentity(ctx)
			require.NoError(t, err)
			require.Equal(t, id, loaded)

			ok, err := w.Sessions.HasSession(ctx, id.Address)
			require.NoError(t, err)
			require.False(t, ok)

			w.Metrics.Ratchet("encrypt", nil)
			families, err := w.Registry.Gather()
			require.NoError(t, err)
			require.NotEmpty(t, families)
		})
	}
}

func TestNewWire_Errors(t *testing.T) {
	ctx := context.Background()
	for _, cfg := range []app.Config{
		{Store: "mysql", Limits: ratchet.DefaultLimits()},
		{Store: app.StorePostgres, Limits: ratchet.DefaultLimits()},
		{Store: app.StoreFile, Limits: ratchet.Limits{MaxSkip: 0, MaxSkippedKeys: 1, MaxArchivedChains: 1}},
	} {
		cfg.Home = t.TempDir()
		_, err := app.NewWire(ctx, cfg)
		require.Error(t, err, cfg.Store)
	}
}
