// Package migrations embeds the numbered SQL files applied by
// `klinik-server migrate up`.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
