package db

import (
	"embed"
	"io/fs"
)

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// getMigrationsFS returns the migrations as an fs.FS rooted at the
// migration files themselves.
func getMigrationsFS() (fs.FS, error) {
	return fs.Sub(embeddedMigrations, "migrations")
}

// MigrationsFS exposes the embedded migrations for callers outside the
// package (test setup, tooling).
func MigrationsFS() (fs.FS, error) {
	return getMigrationsFS()
}
