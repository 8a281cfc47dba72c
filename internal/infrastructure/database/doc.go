// Package database opens the SQLite file holding the release index and the
// cycle log, and applies schema migrations.
//
// Migrations are supplied as an fs.FS (see the migrations package) with
// files named YYYYMMDD_HHMMSS_name.up.sql and the matching .down.sql. Each
// migration runs in its own transaction and is recorded in
// schema_migrations, so Migrate is safe to call on every start.
//
//	db, err := database.Open(cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS); err != nil {
//	    return err
//	}
//
// The file is created with 0600 permissions. WAL mode is enabled for
// on-disk databases when configured.
package database
