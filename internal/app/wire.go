package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"umbra/internal/domain"
	"umbra/internal/observability/logging"
	"umbra/internal/observability/metrics"
	"umbra/internal/protocol/ratchet"
	"umbra/internal/services/identity"
	"umbra/internal/services/prekey"
	"umbra/internal/services/sealed"
	"umbra/internal/services/session"
	"umbra/internal/store"
	"umbra/internal/store/sqlstore"
)

// backend is a store that can run units of work.
type backend interface {
	domain.Transactor
	Stores() domain.Stores
}

// Wire bundles all stores, services and observability for the CLI.
type Wire struct {
	Config     Config
	Stores     domain.Stores
	Tx         domain.Transactor
	Identities *identity.Service
	PreKeys    *prekey.Service
	Sessions   *session.Service
	Sealed     *sealed.Service
	Metrics    *metrics.Metrics
	Registry   *prometheus.Registry
	Log        *slog.Logger

	close func() error
}

// NewWire constructs the dependency graph from cfg.
func NewWire(ctx context.Context, cfg Config) (*Wire, error) {
	if err := os.MkdirAll(cfg.Home, 0o700); err != nil {
		return nil, err
	}
	log := logging.NewLogger(logging.Config{
		ServiceName: "umbra",
		Environment: cfg.Environment,
		Level:       cfg.LogLevel,
	})

	b, closeFn, err := openBackend(ctx, cfg)
	if err != nil {
		return nil, err
	}

	engine, err := ratchet.New(ratchet.WithLimits(cfg.Limits))
	if err != nil {
		_ = closeFn()
		return nil, err
	}

	reg := prometheus.NewRegistry()
	m := metrics.New()
	m.MustRegister(reg)

	st := b.Stores()
	sessions := session.New(b, engine, m, log)
	return &Wire{
		Config:     cfg,
		Stores:     st,
		Tx:         b,
		Identities: identity.New(st.Identities, log),
		PreKeys:    prekey.New(st.Identities, st.PreKeys, log),
		Sessions:   sessions,
		Sealed:     sealed.New(sessions, b, m, log),
		Metrics:    m,
		Registry:   reg,
		Log:        log,
		close:      closeFn,
	}, nil
}

// Close releases the store.
func (w *Wire) Close() error {
	if w.close == nil {
		return nil
	}
	return w.close()
}

func openBackend(ctx context.Context, cfg Config) (backend, func() error, error) {
	var dbCfg sqlstore.Config
	switch cfg.Store {
	case StoreFile, "":
		return store.NewFileStore(cfg.Home, cfg.Passphrase), func() error { return nil }, nil
	case StoreSQLite:
		dsn := cfg.DatabaseURL
		if dsn == "" {
			dsn = filepath.Join(cfg.Home, "umbra.db")
		}
		dbCfg = sqlstore.Config{Driver: sqlstore.DriverSQLite, DSN: dsn, LogSQL: cfg.LogSQL}
	case StorePostgres:
		if cfg.DatabaseURL == "" {
			return nil, nil, fmt.Errorf("store %q needs UMBRA_DATABASE_URL", cfg.Store)
		}
		dbCfg = sqlstore.Config{Driver: sqlstore.DriverPostgres, DSN: cfg.DatabaseURL, LogSQL: cfg.LogSQL}
	default:
		return nil, nil, fmt.Errorf("unknown store %q (want %s, %s or %s)", cfg.Store, StoreFile, StoreSQLite, StorePostgres)
	}

	db, err := sqlstore.Open(dbCfg)
	if err != nil {
		return nil, nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, err
	}
	s := sqlstore.New(db, cfg.Passphrase)
	if err := s.Migrate(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}
	return s, sqlDB.Close, nil
}
