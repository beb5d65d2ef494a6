// Package dbtest opens throwaway in-memory SQLite databases carrying the production schema,
// for repository and transaction tests that do not need a running Postgres. Tests that depend
// on Postgres row locks use Postgres instead.
package dbtest

import (
	"context"
	"database/sql"
	"io/fs"
	"os"
	"sort"
	"strings"
	"testing"
	"time"

	"otp-relay/internal/db"
	"otp-relay/internal/db/migrate"
	"otp-relay/internal/db/sqlc/gen"

	_ "modernc.org/sqlite"
)

// New returns an in-memory database with every up migration applied. The database is
// closed when the test ends.
//
// The pool is pinned to one connection: each SQLite :memory: connection is its own database,
// and a single connection also serializes transactions the way row locks do in Postgres.
func New(t testing.TB) *sql.DB {
	t.Helper()
	conn, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	conn.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = conn.Close() })

	ctx := context.Background()
	if _, err := conn.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("enable foreign keys: %v", err)
	}
	for _, stmt := range upMigrations(t) {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			t.Fatalf("apply schema: %v", err)
		}
	}
	return conn
}

// PostgresEnv names the DSN of a scratch Postgres database.
const PostgresEnv = "OTP_RELAY_TEST_DATABASE_URL"

// Postgres migrates the database named by PostgresEnv and returns a pooled connection to it.
// The test is skipped when the variable is unset. The database is shared between tests, so
// callers use unique ids.
func Postgres(t testing.TB) *sql.DB {
	t.Helper()
	dsn := os.Getenv(PostgresEnv)
	if dsn == "" {
		t.Skipf("%s not set", PostgresEnv)
	}
	r, err := migrate.New(dsn)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	err = r.Up()
	_ = r.Close()
	if err != nil {
		t.Fatalf("migrate up: %v", err)
	}
	conn, err := db.Open(context.Background(), dsn)
	if err != nil {
		t.Fatalf("open postgres: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func upMigrations(t testing.TB) []string {
	t.Helper()
	names, err := fs.Glob(db.MigrationFS, "migrations/*.up.sql")
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	sort.Strings(names)
	out := make([]string, 0, len(names))
	for _, name := range names {
		b, err := fs.ReadFile(db.MigrationFS, name)
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		// SQLite only maps TIMESTAMP-like declared types to time.Time.
		out = append(out, strings.ReplaceAll(string(b), "TIMESTAMPTZ", "TIMESTAMP"))
	}
	return out
}

// SeedProject inserts an unbound project.
func SeedProject(t testing.TB, conn *sql.DB, id, owner, name string) {
	t.Helper()
	_, err := gen.New(conn).CreateProject(context.Background(), gen.CreateProjectParams{
		ID: id, RepoOwner: owner, RepoName: name, SecretHash: "unused", CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("seed project %s: %v", id, err)
	}
}

// SeedSlackBinding creates a Slack config for channelID and binds the project to it.
func SeedSlackBinding(t testing.TB, conn *sql.DB, projectID, configID, channelID string) {
	t.Helper()
	ctx := context.Background()
	q := gen.New(conn)
	now := time.Now().UTC()
	if _, err := q.CreateSlackResponderConfig(ctx, gen.CreateSlackResponderConfigParams{
		ID: configID, TeamID: "T1", ChannelID: channelID, BotToken: "xoxb-seed", CreatedAt: now,
	}); err != nil {
		t.Fatalf("seed slack config: %v", err)
	}
	if err := q.SetProjectResponder(ctx, gen.SetProjectResponderParams{
		ID: projectID, ResponderPlatform: "slack",
		SlackConfigID: sql.NullString{String: configID, Valid: true}, UpdatedAt: now,
	}); err != nil {
		t.Fatalf("bind slack config: %v", err)
	}
}

// CountRows returns the number of rows in table.
func CountRows(t testing.TB, conn *sql.DB, table string) int {
	t.Helper()
	var n int
	if err := conn.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n); err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return n
}
