package migrate

import (
	"errors"
	"os"
	"strings"
	"testing"
)

func TestRun_EmptyDSN(t *testing.T) {
	err := Run("", "up")
	if err == nil {
		t.Fatal("Run with empty DSN should return error")
	}
	if !strings.Contains(err.Error(), "DATABASE_URL is not set") {
		t.Errorf("error message = %q, should mention DATABASE_URL", err.Error())
	}
}

func TestRun_InvalidDirection(t *testing.T) {
	for _, direction := range []string{"", "invalid", "UP", "Down", "sideways"} {
		t.Run(direction, func(t *testing.T) {
			err := Run("postgres://localhost/test", direction)
			if err == nil {
				t.Fatalf("Run with direction %q should return error", direction)
			}
			if !strings.Contains(err.Error(), "direction") {
				t.Errorf("error = %q, should mention direction", err.Error())
			}
		})
	}
}

func TestRun_InvalidDSN(t *testing.T) {
	for _, dsn := range []string{"invalid-dsn", "://localhost/test", "postgres://localhost with spaces/test"} {
		if err := Run(dsn, "up"); err == nil {
			t.Errorf("Run with invalid DSN %q should return error", dsn)
		} else if errors.Is(err, ErrNoChange) {
			t.Errorf("Run should never surface ErrNoChange, got %v", err)
		}
	}
}

func TestSource_PairsUpAndDown(t *testing.T) {
	src, err := Source()
	if err != nil {
		t.Fatalf("Source: %v", err)
	}
	defer src.Close()

	v, err := src.First()
	if err != nil {
		t.Fatalf("First: %v", err)
	}
	for {
		up, _, err := src.ReadUp(v)
		if err != nil {
			t.Fatalf("version %d has no up migration: %v", v, err)
		}
		up.Close()
		down, _, err := src.ReadDown(v)
		if err != nil {
			t.Fatalf("version %d has no down migration: %v", v, err)
		}
		down.Close()

		next, err := src.Next(v)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return
			}
			t.Fatalf("Next(%d): %v", v, err)
		}
		v = next
	}
}

func TestRunner_Integration(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}
	r, err := New(dsn)
	if err != nil {
		t.Skipf("Database connection failed (expected in test environment): %v", err)
	}
	defer r.Close()

	if err := r.Up(); err != nil {
		t.Fatalf("Up: %v", err)
	}
	v, dirty, err := r.Version()
	if err != nil {
		t.Fatalf("Version: %v", err)
	}
	if v == 0 || dirty {
		t.Errorf("Version = (%d, %v), want applied and clean", v, dirty)
	}
	if err := r.Steps(0); err == nil {
		t.Error("Steps(0) should return error")
	}
}
