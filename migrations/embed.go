// Package migrations holds the Postgres schema applied by
// database.RunMigrations at startup.
package migrations

import "embed"

// FS contains the *.up.sql files in version order.
//
//go:embed *.up.sql
var FS embed.FS
