// Package migrations embeds the SQLite schema into the binary.
//
// Pass FS to database.DB.Migrate; files sit at the root of the embedded FS.
package migrations

import "embed"

// FS holds every *.up.sql / *.down.sql migration.
//
//go:embed *.sql
var FS embed.FS
