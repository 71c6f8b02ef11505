// Package migrations embeds SQL migration files for the PostgreSQL store.
// The {{dimensions}} placeholder is replaced with the vector width.
package migrations

import "embed"

// FS contains all SQL migration files embedded at compile time.
//
//go:embed *.sql
var FS embed.FS
