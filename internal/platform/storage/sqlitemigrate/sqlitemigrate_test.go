package sqlitemigrate

import (
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	_ "modernc.org/sqlite"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "migrate-test.db")
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open sqlite db: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	return sqlDB
}

func TestApplyRequiresDB(t *testing.T) {
	if err := Apply(nil, fstest.MapFS{}); err == nil {
		t.Fatal("expected error for nil db")
	}
}

func TestApplyRunsFilesInOrder(t *testing.T) {
	sqlDB := openTestDB(t)
	migrationFS := fstest.MapFS{
		"002_add_column.sql":  {Data: []byte("ALTER TABLE pets ADD COLUMN name TEXT;")},
		"001_create.sql":      {Data: []byte("CREATE TABLE pets (id INTEGER PRIMARY KEY);")},
		"notes.txt":           {Data: []byte("not a migration")},
		"003_insert_seed.sql": {Data: []byte("INSERT INTO pets (id, name) VALUES (1, 'Rabbit');")},
	}

	if err := Apply(sqlDB, migrationFS); err != nil {
		t.Fatalf("apply: %v", err)
	}

	var name string
	if err := sqlDB.QueryRow("SELECT name FROM pets WHERE id = 1").Scan(&name); err != nil {
		t.Fatalf("query seeded row: %v", err)
	}
	if name != "Rabbit" {
		t.Fatalf("unexpected name: %q", name)
	}

	applied, err := Applied(sqlDB)
	if err != nil {
		t.Fatalf("applied: %v", err)
	}
	if len(applied) != 3 {
		t.Fatalf("expected 3 ledger rows, got %d", len(applied))
	}
	if applied[0].Filename != "001_create.sql" {
		t.Fatalf("unexpected first migration: %q", applied[0].Filename)
	}
}

func TestApplyTwiceIsIdempotent(t *testing.T) {
	sqlDB := openTestDB(t)
	migrationFS := fstest.MapFS{
		"001_create.sql": {Data: []byte("CREATE TABLE pets (id INTEGER PRIMARY KEY);")},
		"002_seed.sql":   {Data: []byte("INSERT INTO pets (id) VALUES (1);")},
	}

	if err := Apply(sqlDB, migrationFS); err != nil {
		t.Fatalf("first apply: %v", err)
	}
	if err := Apply(sqlDB, migrationFS); err != nil {
		t.Fatalf("second apply: %v", err)
	}

	var count int
	if err := sqlDB.QueryRow("SELECT COUNT(*) FROM pets").Scan(&count); err != nil {
		t.Fatalf("count pets: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected seed applied once, got %d rows", count)
	}

	applied, err := Applied(sqlDB)
	if err != nil {
		t.Fatalf("applied: %v", err)
	}
	if len(applied) != 2 {
		t.Fatalf("expected 2 ledger rows, got %d", len(applied))
	}
}

func TestApplySkipsLedgeredFileEvenIfContentChanged(t *testing.T) {
	sqlDB := openTestDB(t)

	if err := Apply(sqlDB, fstest.MapFS{
		"001_create.sql": {Data: []byte("CREATE TABLE pets (id INTEGER PRIMARY KEY);")},
	}); err != nil {
		t.Fatalf("first apply: %v", err)
	}

	// Same filename, different (and broken) body: must be skipped, not re-run.
	if err := Apply(sqlDB, fstest.MapFS{
		"001_create.sql": {Data: []byte("THIS IS NOT SQL;")},
	}); err != nil {
		t.Fatalf("second apply: %v", err)
	}
}

func TestApplyFailingFileRollsBack(t *testing.T) {
	sqlDB := openTestDB(t)
	migrationFS := fstest.MapFS{
		"001_create.sql": {Data: []byte("CREATE TABLE pets (id INTEGER PRIMARY KEY);")},
		"002_broken.sql": {Data: []byte("INSERT INTO pets (id) VALUES (1);\nINSERT INTO missing_table (id) VALUES (2);")},
	}

	err := Apply(sqlDB, migrationFS)
	if err == nil {
		t.Fatal("expected apply to fail")
	}
	if !strings.Contains(err.Error(), "002_broken.sql") {
		t.Fatalf("expected failing filename in error, got %v", err)
	}

	// The failing file's partial work must not be visible.
	var count int
	if err := sqlDB.QueryRow("SELECT COUNT(*) FROM pets").Scan(&count); err != nil {
		t.Fatalf("count pets: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected rollback, got %d rows", count)
	}

	// The ledger must only contain the file that succeeded.
	applied, appliedErr := Applied(sqlDB)
	if appliedErr != nil {
		t.Fatalf("applied: %v", appliedErr)
	}
	if len(applied) != 1 || applied[0].Filename != "001_create.sql" {
		t.Fatalf("unexpected ledger: %+v", applied)
	}
}

func TestApplyDirMissingDirectoryIsZeroMigrations(t *testing.T) {
	sqlDB := openTestDB(t)
	if err := ApplyDir(sqlDB, filepath.Join(t.TempDir(), "does-not-exist")); err != nil {
		t.Fatalf("apply dir: %v", err)
	}
}

func TestApplyDirReadsDiskFiles(t *testing.T) {
	sqlDB := openTestDB(t)
	dir := t.TempDir()
	file := filepath.Join(dir, "001_create.sql")
	if err := os.WriteFile(file, []byte("CREATE TABLE pets (id INTEGER PRIMARY KEY);"), 0o644); err != nil {
		t.Fatalf("write migration file: %v", err)
	}

	if err := ApplyDir(sqlDB, dir); err != nil {
		t.Fatalf("apply dir: %v", err)
	}

	if _, err := sqlDB.Exec("INSERT INTO pets (id) VALUES (1)"); err != nil {
		t.Fatalf("expected table to exist: %v", err)
	}
}

func TestExtractUpMigration(t *testing.T) {
	content := "-- +migrate Up\nCREATE TABLE a (id INTEGER);\n-- +migrate Down\nDROP TABLE a;"
	up := ExtractUpMigration(content)
	if strings.Contains(up, "DROP TABLE") {
		t.Fatalf("down section leaked into up SQL: %q", up)
	}
	if !strings.Contains(up, "CREATE TABLE a") {
		t.Fatalf("missing up SQL: %q", up)
	}

	plain := "CREATE TABLE b (id INTEGER);"
	if ExtractUpMigration(plain) != plain {
		t.Fatal("plain files must be applied whole")
	}
}
