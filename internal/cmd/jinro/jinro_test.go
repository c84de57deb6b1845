package jinro

import (
	"flag"
	"testing"
)

func TestParseConfigDefaults(t *testing.T) {
	fs := flag.NewFlagSet("jinro", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}

	if cfg.Port != 8090 {
		t.Errorf("port = %d, want 8090", cfg.Port)
	}
	if cfg.DBPath != "jinro.db" {
		t.Errorf("db path = %q, want jinro.db", cfg.DBPath)
	}
	if cfg.PollIntervalSeconds != 10 {
		t.Errorf("poll interval = %d, want 10", cfg.PollIntervalSeconds)
	}
}

func TestParseConfigFlagsOverride(t *testing.T) {
	fs := flag.NewFlagSet("jinro", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{"-port", "9000", "-db", "/tmp/test.db", "-poll-interval", "3"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}

	if cfg.Port != 9000 {
		t.Errorf("port = %d, want 9000", cfg.Port)
	}
	if cfg.DBPath != "/tmp/test.db" {
		t.Errorf("db path = %q, want /tmp/test.db", cfg.DBPath)
	}
	if cfg.PollIntervalSeconds != 3 {
		t.Errorf("poll interval = %d, want 3", cfg.PollIntervalSeconds)
	}
}

func TestParseConfigEnv(t *testing.T) {
	t.Setenv("JINRO_PORT", "7777")
	t.Setenv("JINRO_MIGRATIONS_DIR", "/srv/migrations")

	fs := flag.NewFlagSet("jinro", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}

	if cfg.Port != 7777 {
		t.Errorf("port = %d, want 7777", cfg.Port)
	}
	if cfg.MigrationsDir != "/srv/migrations" {
		t.Errorf("migrations dir = %q, want /srv/migrations", cfg.MigrationsDir)
	}
}
