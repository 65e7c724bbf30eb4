package app

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"

	"umbra/internal/protocol/ratchet"
)

// Store backends.
const (
	StoreFile     = "file"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

// Config holds runtime wiring options for building the app.
type Config struct {
	Home        string // state directory, e.g. $HOME/.umbra
	Store       string // StoreFile, StoreSQLite or StorePostgres
	DatabaseURL string // postgres URL; for sqlite a file path, default <Home>/umbra.db
	Passphrase  string // protects the local identity at rest
	LogLevel    string
	Environment string
	LogSQL      bool
	Limits      ratchet.Limits
}

// LoadConfig reads the UMBRA_* environment. home overrides UMBRA_HOME when
// not empty. Variables from <home>/.env are loaded first but never override
// ones already set.
func LoadConfig(home string) (Config, error) {
	if home == "" {
		home = getenv("UMBRA_HOME", "")
	}
	if home == "" {
		dir, err := os.UserHomeDir()
		if err != nil {
			return Config{}, err
		}
		home = filepath.Join(dir, ".umbra")
	}
	envFile := filepath.Join(home, ".env")
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load %s: %w", envFile, err)
	}

	def := ratchet.DefaultLimits()
	return Config{
		Home:        home,
		Store:       getenv("UMBRA_STORE", StoreFile),
		DatabaseURL: getenv("UMBRA_DATABASE_URL", ""),
		Passphrase:  getenv("UMBRA_PASSPHRASE", ""),
		LogLevel:    getenv("UMBRA_LOG_LEVEL", "info"),
		Environment: getenv("UMBRA_ENV", "local"),
		LogSQL:      getbool("UMBRA_LOG_SQL", false),
		Limits: ratchet.Limits{
			MaxSkip:           getint("UMBRA_MAX_SKIP", def.MaxSkip),
			MaxSkippedKeys:    getint("UMBRA_MAX_SKIPPED_KEYS", def.MaxSkippedKeys),
			MaxArchivedChains: getint("UMBRA_MAX_ARCHIVED_CHAINS", def.MaxArchivedChains),
		},
	}, nil
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}
