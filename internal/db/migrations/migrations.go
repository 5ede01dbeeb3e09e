// Package migrations embebe el esquema SQL del backend Postgres.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
