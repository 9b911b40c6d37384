package main

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/formcourier/FormCourier/internal/cli"
	"github.com/formcourier/FormCourier/internal/config"
	"github.com/formcourier/FormCourier/internal/lockfile"
	"github.com/formcourier/FormCourier/internal/recorder"
	"github.com/formcourier/FormCourier/internal/session"
	"github.com/formcourier/FormCourier/internal/store"
)

func main() {
	initializeLogger(slog.LevelInfo)

	cfg, stateDir := loadConfiguration()
	initializeLogger(parseLogLevel(cfg.LogLevel))

	// One client process per state directory; the lock is held for the
	// whole run and released automatically if the process dies.
	lock, err := lockfile.AcquireLock(stateDir)
	if err != nil {
		slog.Error("Failed to acquire state directory lock", "error", err)
		os.Exit(1)
	}
	defer lock.Release()

	st, err := openStore(cfg)
	if err != nil {
		slog.Error("Failed to open local store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	rec := recorder.New(cfg.Audio.RecordingsDir)
	mgr := session.NewManager(st, rec)

	slog.Debug("Bootstrapped FormCourier",
		"state_dir", stateDir,
		"db_driver", cfg.Storage.Driver,
		"server_set", cfg.Server.BaseURL != "")

	cli.Execute(&cli.App{
		StateDir: stateDir,
		Config:   cfg,
		Store:    st,
		Manager:  mgr,
	})
}

// initializeLogger sets up structured logging at the given level.
func initializeLogger(level slog.Level) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// loadConfiguration layers the config file under environment overrides, with
// .env honored for development setups.
func loadConfiguration() (*config.Config, string) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file loaded", "error", err)
	} else {
		slog.Debug("Loaded .env file")
	}

	stateDir := config.DefaultStateDir()
	cfg, err := config.ReadConfig(stateDir)
	if err != nil {
		slog.Error("Failed to read configuration", "error", err, "state_dir", stateDir)
		os.Exit(1)
	}
	cfg.ApplyEnv()
	return cfg, stateDir
}

// openStore selects the storage backend from configuration. SQLite is the
// default; Postgres serves shared-kiosk deployments where several devices
// sync through one database.
func openStore(cfg *config.Config) (store.Store, error) {
	switch cfg.Storage.Driver {
	case "postgres":
		return store.NewPostgresStore(store.WithPostgresDSN(cfg.Storage.DSN))
	default:
		return store.NewSQLiteStore(store.WithSQLiteDSN(cfg.Storage.DSN))
	}
}
