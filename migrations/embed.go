// Package migrations holds the versioned SQLite schema applied on startup.
package migrations

import "embed"

// FS holds the embedded migration files.
//
//go:embed *.sql
var FS embed.FS
