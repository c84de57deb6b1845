// Package jinro parses server command flags and starts the game runtime.
package jinro

import (
	"context"
	"flag"
	"time"

	entrypoint "github.com/tsukino/jinro/internal/platform/cmd"
	server "github.com/tsukino/jinro/internal/services/game/app"
)

// Config holds server command configuration.
type Config struct {
	Port                int    `env:"JINRO_PORT" envDefault:"8090"`
	DBPath              string `env:"JINRO_DB_PATH" envDefault:"jinro.db"`
	MigrationsDir       string `env:"JINRO_MIGRATIONS_DIR"`
	PollIntervalSeconds int    `env:"JINRO_POLL_INTERVAL" envDefault:"10"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.IntVar(&cfg.Port, "port", cfg.Port, "The server port")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "Path to the SQLite database file")
	fs.StringVar(&cfg.MigrationsDir, "migrations", cfg.MigrationsDir, "Directory of *.sql migrations (defaults to the bundled set)")
	fs.IntVar(&cfg.PollIntervalSeconds, "poll-interval", cfg.PollIntervalSeconds, "Phase timeout poll interval in seconds")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the game persistence service.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceJinro, func(ctx context.Context) error {
		return server.Run(ctx, server.Options{
			Port:          cfg.Port,
			DBPath:        cfg.DBPath,
			MigrationsDir: cfg.MigrationsDir,
			PollInterval:  time.Duration(cfg.PollIntervalSeconds) * time.Second,
		})
	})
}
