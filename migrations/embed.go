// Package migrations embeds the PostgreSQL schema migrations so that the
// server, the migrate CLI and integration tests apply the same files.
package migrations

import "embed"

// FS holds the numbered up/down migration files
//
//go:embed *.sql
var FS embed.FS
