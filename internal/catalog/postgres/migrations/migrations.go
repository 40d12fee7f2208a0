// Package migrations embeds the catalog schema's SQL migration files for
// golang-migrate's iofs source driver.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
