package database

import (
	"context"
	"testing"
	"testing/fstest"
	"time"
)

// testMigrations is a single reversible migration.
func testMigrations() fstest.MapFS {
	return fstest.MapFS{
		"20260301_090000_create_probe.up.sql": {
			Data: []byte("CREATE TABLE probe (id INTEGER PRIMARY KEY, name TEXT NOT NULL);"),
		},
		"20260301_090000_create_probe.down.sql": {
			Data: []byte("DROP TABLE probe;"),
		},
		"README.md": {Data: []byte("ignored")},
	}
}

func tableExists(t *testing.T, db *DB, name string) bool {
	t.Helper()
	var count int
	err := db.QueryRowContext(context.Background(),
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", name,
	).Scan(&count)
	if err != nil {
		t.Fatalf("query sqlite_master: %v", err)
	}
	return count == 1
}

// TestMigrate verifies migration application.
func TestMigrate(t *testing.T) {
	db := openTestDB(t)
	fsys := testMigrations()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := db.Migrate(ctx, fsys); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if !tableExists(t, db, "probe") {
		t.Fatal("table probe not created")
	}

	applied, pending, err := db.MigrationStatus(ctx, fsys)
	if err != nil {
		t.Fatalf("MigrationStatus() error = %v", err)
	}
	if len(applied) != 1 {
		t.Errorf("expected 1 applied migration, got %d", len(applied))
	}
	if len(pending) != 0 {
		t.Errorf("expected 0 pending migrations, got %d", len(pending))
	}

	// Running again should be idempotent
	if err := db.Migrate(ctx, fsys); err != nil {
		t.Fatalf("second Migrate() error = %v", err)
	}
}

// TestMigrateDown verifies migration rollback.
func TestMigrateDown(t *testing.T) {
	db := openTestDB(t)
	fsys := testMigrations()
	ctx := context.Background()

	if err := db.Migrate(ctx, fsys); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if err := db.MigrateDown(ctx, fsys); err != nil {
		t.Fatalf("MigrateDown() error = %v", err)
	}
	if tableExists(t, db, "probe") {
		t.Error("table probe should have been dropped")
	}

	applied, _, err := db.MigrationStatus(ctx, fsys)
	if err != nil {
		t.Fatalf("MigrationStatus() error = %v", err)
	}
	if len(applied) != 0 {
		t.Errorf("expected 0 applied migrations after rollback, got %d", len(applied))
	}
}

// TestMigrateNoMigrations verifies behaviour with nil and empty filesystems.
func TestMigrateNoMigrations(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.Migrate(ctx, nil); err != nil {
		t.Errorf("Migrate(nil) error = %v", err)
	}
	if err := db.Migrate(ctx, fstest.MapFS{}); err != nil {
		t.Errorf("Migrate(empty) error = %v", err)
	}
	if err := db.MigrateDown(ctx, nil); err != nil {
		t.Errorf("MigrateDown() with nothing applied error = %v", err)
	}
}

// TestMigrateFailureRollsBack verifies a broken migration leaves no record.
func TestMigrateFailureRollsBack(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	fsys := fstest.MapFS{
		"20260301_090000_broken.up.sql": {Data: []byte("CREATE TABLE;")},
	}

	if err := db.Migrate(ctx, fsys); err == nil {
		t.Fatal("Migrate() expected error for invalid SQL")
	}

	applied, pending, err := db.MigrationStatus(ctx, fsys)
	if err != nil {
		t.Fatalf("MigrationStatus() error = %v", err)
	}
	if len(applied) != 0 || len(pending) != 1 {
		t.Errorf("applied=%d pending=%d, want 0 and 1", len(applied), len(pending))
	}
}

func TestParseMigrationFilename(t *testing.T) {
	tests := []struct {
		filename    string
		wantVersion string
		wantName    string
		wantUp      bool
		wantOk      bool
	}{
		{filename: "20260301_090000_releases.up.sql", wantVersion: "20260301_090000", wantName: "releases", wantUp: true, wantOk: true},
		{filename: "20260301_090100_cycles.down.sql", wantVersion: "20260301_090100", wantName: "cycles", wantOk: true},
		{filename: "20260301_090000_add_product_index.up.sql", wantVersion: "20260301_090000", wantName: "add_product_index", wantUp: true, wantOk: true},
		{filename: "readme.txt"},
		{filename: "20260301_090000_releases.sql"},
		{filename: "invalid.up.sql"},
		{filename: "2026_0900_short.up.sql"},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			version, name, up, ok := parseMigrationFilename(tt.filename)
			if ok != tt.wantOk {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOk)
			}
			if !ok {
				return
			}
			if version != tt.wantVersion || name != tt.wantName || up != tt.wantUp {
				t.Errorf("got (%q, %q, %v), want (%q, %q, %v)",
					version, name, up, tt.wantVersion, tt.wantName, tt.wantUp)
			}
		})
	}
}

// TestMigrate_DownWithoutUp verifies an orphaned down file is rejected.
func TestMigrate_DownWithoutUp(t *testing.T) {
	db := openTestDB(t)
	fsys := fstest.MapFS{
		"20260301_090000_orphan.down.sql": {Data: []byte("DROP TABLE orphan;")},
	}

	if err := db.Migrate(context.Background(), fsys); err == nil {
		t.Error("Migrate() expected error for down-only migration")
	}
}

// TestMigrate_Order verifies migrations apply oldest first.
func TestMigrate_Order(t *testing.T) {
	db := openTestDB(t)
	fsys := fstest.MapFS{
		"20260302_000000_index.up.sql":  {Data: []byte("CREATE INDEX idx_probe_name ON probe(name);")},
		"20260301_000000_probe.up.sql":  {Data: []byte("CREATE TABLE probe (id INTEGER PRIMARY KEY, name TEXT);")},
		"20260303_000000_insert.up.sql": {Data: []byte("INSERT INTO probe (name) VALUES ('x');")},
	}

	if err := db.Migrate(context.Background(), fsys); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	applied, _, err := db.MigrationStatus(context.Background(), fsys)
	if err != nil {
		t.Fatalf("MigrationStatus() error = %v", err)
	}
	if len(applied) != 3 || applied[0].Version != "20260301_000000" || applied[2].Version != "20260303_000000" {
		t.Errorf("applied = %+v, want three in version order", applied)
	}
}

// TestMigrateDown_MissingFromFilesystem verifies rollback refuses unknown versions.
func TestMigrateDown_MissingFromFilesystem(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.Migrate(ctx, testMigrations()); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if err := db.MigrateDown(ctx, fstest.MapFS{}); err == nil {
		t.Error("MigrateDown() expected error when the applied migration is gone")
	}
}
