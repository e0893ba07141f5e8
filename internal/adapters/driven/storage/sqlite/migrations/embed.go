// Package migrations embeds the versioned schema of the SQLite record store.
package migrations

import "embed"

// FS holds the up and down scripts, applied in file name order.
//
//go:embed *.sql
var FS embed.FS
