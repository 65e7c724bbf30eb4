package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"

	"umbra/internal/app"
)

var (
	home        string
	passphrase  string
	storeKind   string
	databaseURL string
	logLevel    string
	metricsOut  string

	wire *app.Wire
)

// Execute runs the CLI until it finishes or is interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer closeWire()
	return NewRootCmd().ExecuteContext(ctx)
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "umbra",
		Short:        "End-to-end encrypted sessions with sealed sender",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.LoadConfig(home)
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("passphrase") {
				cfg.Passphrase = passphrase
			}
			if flags.Changed("store") {
				cfg.Store = storeKind
			}
			if flags.Changed("database-url") {
				cfg.DatabaseURL = databaseURL
			}
			if flags.Changed("log-level") {
				cfg.LogLevel = logLevel
			}

			w, err := app.NewWire(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			wire = w
			slog.SetDefault(w.Log)
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if metricsOut == "" {
				return nil
			}
			return writeMetrics(metricsOut, wire.Registry)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&home, "home", "", "state dir (default $UMBRA_HOME or ~/.umbra)")
	pf.StringVarP(&passphrase, "passphrase", "p", "", "passphrase protecting the identity (default $UMBRA_PASSPHRASE)")
	pf.StringVar(&storeKind, "store", "", "store backend: file, sqlite or postgres (default $UMBRA_STORE or file)")
	pf.StringVar(&databaseURL, "database-url", "", "database DSN for sqlite or postgres (default $UMBRA_DATABASE_URL)")
	pf.StringVar(&logLevel, "log-level", "", "debug, info, warn or error (default $UMBRA_LOG_LEVEL or info)")
	pf.StringVar(&metricsOut, "metrics-out", "", "write Prometheus metrics in text format to this file on exit")

	root.AddCommand(
		initCmd(),
		keyIDCmd(),
		prekeysCmd(),
		trustCmd(),
		authorityCmd(),
		startSessionCmd(),
		endSessionCmd(),
		sealCmd(),
		unsealCmd(),
	)
	return root
}

func closeWire() {
	if wire == nil {
		return
	}
	if err := wire.Close(); err != nil {
		slog.Warn("closing store", "error", err)
	}
	wire = nil
}

// writeMetrics dumps every gathered family in the text exposition format.
func writeMetrics(path string, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(f, mf); err != nil {
			_ = f.Close()
			return fmt.Errorf("write metrics: %w", err)
		}
	}
	return f.Close()
}
