// Package migrations embeds the PostgreSQL schema migrations of the
// records service
package migrations

import "embed"

// FS holds every *.up.sql and *.down.sql file in this directory
//
//go:embed *.sql
var FS embed.FS
