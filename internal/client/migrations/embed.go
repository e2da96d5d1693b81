// Package migrations embeds the goose migrations for the client's local
// database. Migrations must stay additive (new tables, columns, indexes only)
// so databases written by older client versions remain readable.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
