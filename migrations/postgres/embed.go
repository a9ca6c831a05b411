// Package migrations embebe los scripts SQL de PostgreSQL.
package migrations

import "embed"

// FS contiene los *_up.sql, aplicados en orden lexicográfico.
//
//go:embed *.sql
var FS embed.FS
