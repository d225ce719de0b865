// Package migrations embeds the SQL schema migrations.
package migrations

import "embed"

// Version is the schema version main migrates up to.
const Version = 1

//go:embed *.sql
var FS embed.FS
