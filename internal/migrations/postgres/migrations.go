// Package postgres embeds the goose migrations of the Postgres object store.
package postgres

import "embed"

//go:embed *.sql
var Migrations embed.FS
