// Package db provides the embedded database migrations.
package db

import "embed"

// Migrations holds the numbered golang-migrate files under migrations/.
//
//go:embed migrations/*.sql
var Migrations embed.FS
