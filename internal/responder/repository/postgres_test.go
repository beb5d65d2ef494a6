package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"otp-relay/internal/db/dbtest"
	"otp-relay/internal/db/sqlc/gen"
	"otp-relay/internal/responder/domain"
)

func TestPostgresRepository_GetSlackConfig(t *testing.T) {
	conn := dbtest.New(t)
	dbtest.SeedProject(t, conn, "p1", "acme", "widgets")
	dbtest.SeedSlackBinding(t, conn, "p1", "s1", "C1")
	repo := NewPostgresRepository(conn)

	cfg, err := repo.GetSlackConfig(context.Background(), "s1")
	if err != nil {
		t.Fatalf("GetSlackConfig: %v", err)
	}
	if cfg == nil || cfg.ChannelID != "C1" || cfg.BotToken != "xoxb-seed" {
		t.Fatalf("GetSlackConfig = %+v", cfg)
	}
	missing, err := repo.GetFeishuConfig(context.Background(), "nope")
	if err != nil || missing != nil {
		t.Errorf("GetFeishuConfig(missing) = %+v, %v", missing, err)
	}
}

func TestPostgresRepository_UpdateDestination(t *testing.T) {
	conn := dbtest.New(t)
	dbtest.SeedProject(t, conn, "p1", "acme", "widgets")
	dbtest.SeedSlackBinding(t, conn, "p1", "s1", "C1")
	repo := NewPostgresRepository(conn)
	ctx := context.Background()

	if err := repo.UpdateDestination(ctx, "p1", domain.PlatformSlack, "C2", "U9"); err != nil {
		t.Fatalf("UpdateDestination: %v", err)
	}
	cfg, _ := repo.GetSlackConfig(ctx, "s1")
	if cfg.ChannelID != "C2" || cfg.UserToMention != "U9" {
		t.Errorf("config after update = %+v", cfg)
	}

	if err := repo.UpdateDestination(ctx, "p1", domain.PlatformFeishu, "oc_1", ""); !errors.Is(err, ErrNotBound) {
		t.Errorf("UpdateDestination wrong platform = %v, want ErrNotBound", err)
	}
	if err := repo.UpdateDestination(ctx, "missing", domain.PlatformSlack, "C2", ""); !errors.Is(err, ErrProjectNotFound) {
		t.Errorf("UpdateDestination missing project = %v, want ErrProjectNotFound", err)
	}
}

func TestPostgresRepository_Reset(t *testing.T) {
	conn := dbtest.New(t)
	dbtest.SeedProject(t, conn, "p1", "acme", "widgets")
	dbtest.SeedSlackBinding(t, conn, "p1", "s1", "C1")
	repo := NewPostgresRepository(conn)
	ctx := context.Background()

	if err := repo.Reset(ctx, "p1"); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	p, err := gen.New(conn).GetProject(ctx, "p1")
	if err != nil {
		t.Fatalf("GetProject: %v", err)
	}
	if p.ResponderPlatform != "" || p.SlackConfigID.Valid || p.FeishuConfigID.Valid {
		t.Errorf("project after reset = %+v", p)
	}
	if n := dbtest.CountRows(t, conn, "slack_responder_configs"); n != 0 {
		t.Errorf("slack configs after reset = %d, want 0", n)
	}

	// Resetting an unbound project is a no-op.
	if err := repo.Reset(ctx, "p1"); err != nil {
		t.Errorf("second Reset: %v", err)
	}
	if err := repo.Reset(ctx, "missing"); !errors.Is(err, ErrProjectNotFound) {
		t.Errorf("Reset missing = %v, want ErrProjectNotFound", err)
	}
}

func TestPostgresRepository_Installations(t *testing.T) {
	repo := NewPostgresRepository(dbtest.New(t))
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	got, err := repo.GetInstallation(ctx, domain.PlatformSlack, "T1")
	if err != nil || got != nil {
		t.Fatalf("GetInstallation before save = %+v, %v", got, err)
	}

	for _, token := range []string{"xoxb-1", "xoxb-2"} {
		if err := repo.SaveInstallation(ctx, &domain.Installation{
			Platform: domain.PlatformSlack, WorkspaceID: "T1", AccessToken: token, UpdatedAt: now,
		}); err != nil {
			t.Fatalf("SaveInstallation(%s): %v", token, err)
		}
	}
	got, err = repo.GetInstallation(ctx, domain.PlatformSlack, "T1")
	if err != nil {
		t.Fatalf("GetInstallation: %v", err)
	}
	if got.AccessToken != "xoxb-2" {
		t.Errorf("AccessToken = %q, want the latest token", got.AccessToken)
	}
	other, _ := repo.GetInstallation(ctx, domain.PlatformFeishu, "T1")
	if other != nil {
		t.Error("installations are scoped by platform")
	}
}
