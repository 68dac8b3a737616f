// Package migrations embeds the SQL schema so the binaries carry it.
package migrations

import "embed"

// FS holds the versioned up/down scripts
//
//go:embed *.sql
var FS embed.FS
