// Package migrations embeds the activity log schema so the server binary
// migrates without a migrations directory on disk.
package migrations

import "embed"

// FS holds the golang-migrate SQL files.
//
//go:embed *.sql
var FS embed.FS
