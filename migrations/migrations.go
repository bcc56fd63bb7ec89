// Package migrations embeds the catalog schema.
package migrations

import "embed"

// FS holds the ordered .up.sql and .down.sql files.
//
//go:embed *.sql
var FS embed.FS
