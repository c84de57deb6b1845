// Package migrate applies schema migrations and reports the resulting schema.
package migrate

import (
	"context"
	"flag"
	"fmt"
	"log"

	entrypoint "github.com/tsukino/jinro/internal/platform/cmd"
	"github.com/tsukino/jinro/internal/platform/storage/sqlitemigrate"
	storagesqlite "github.com/tsukino/jinro/internal/services/game/storage/sqlite"
)

// Config holds migrate command configuration.
type Config struct {
	DBPath        string `env:"JINRO_DB_PATH" envDefault:"jinro.db"`
	MigrationsDir string `env:"JINRO_MIGRATIONS_DIR"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "Path to the SQLite database file")
	fs.StringVar(&cfg.MigrationsDir, "migrations", cfg.MigrationsDir, "Directory of *.sql migrations (defaults to the bundled set)")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run applies pending migrations and prints the schema state.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceMigrate, func(ctx context.Context) error {
		return migrate(ctx, cfg)
	})
}

func migrate(ctx context.Context, cfg Config) error {
	var store *storagesqlite.Store
	var err error
	if cfg.MigrationsDir != "" {
		store, err = storagesqlite.OpenWithMigrationsDir(cfg.DBPath, cfg.MigrationsDir)
	} else {
		store, err = storagesqlite.Open(cfg.DBPath)
	}
	if err != nil {
		return err
	}
	defer store.Close()

	applied, err := sqlitemigrate.Applied(store.DB())
	if err != nil {
		return fmt.Errorf("read migration ledger: %w", err)
	}
	log.Printf("%d migrations applied", len(applied))
	for _, m := range applied {
		log.Printf("  %s (applied %s)", m.Filename, m.AppliedAt.Format("2006-01-02 15:04:05"))
	}

	rows, err := store.DB().QueryContext(ctx,
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name")
	if err != nil {
		return fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	log.Print("tables:")
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return fmt.Errorf("scan table name: %w", err)
		}
		log.Printf("  %s", name)
	}
	return rows.Err()
}
