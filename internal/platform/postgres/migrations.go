package postgres

import "embed"

// MigrationsFS embeds the goose migration files so the server binary
// can apply them without the source tree on disk.
//
//go:embed migrations/*.sql
var MigrationsFS embed.FS

// MigrationsDir is the path of the migration files inside MigrationsFS.
const MigrationsDir = "migrations"
