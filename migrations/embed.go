// Package migrations embeds the schema scripts. Files are named
// V{n}__{description}.sql and applied in version order.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
