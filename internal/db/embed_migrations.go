package db

import "embed"

// MigrationFS embeds SQL migration files from internal/db/migrations.
// Used by the migrate runner (cmd/migrate) and by dbtest to build throwaway schemas.
//
//go:embed migrations/*.sql
var MigrationFS embed.FS
