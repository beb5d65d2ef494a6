package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"otp-relay/internal/db"
	"otp-relay/internal/db/sqlc/gen"
	"otp-relay/internal/linker/domain"
	projectdomain "otp-relay/internal/project/domain"
	projectrepo "otp-relay/internal/project/repository"
	responderdomain "otp-relay/internal/responder/domain"
	responderrepo "otp-relay/internal/responder/repository"
)

type PostgresRepository struct {
	db      *sql.DB
	queries *gen.Queries
}

// NewPostgresRepository returns a linker repository that uses the given db for persistence.
func NewPostgresRepository(conn *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: conn, queries: gen.New(conn)}
}

// Create persists the linker. The linker must have Token set.
func (r *PostgresRepository) Create(ctx context.Context, l *domain.Linker) error {
	_, err := r.queries.CreateLinker(ctx, gen.CreateLinkerParams{
		Token: l.Token, ProjectID: l.ProjectID, Platform: string(l.Platform),
		CreatedAt: l.CreatedAt, ExpiresAt: l.ExpiresAt,
	})
	return err
}

// GetLive returns the newest unexpired linker for the project and platform, or nil if none.
func (r *PostgresRepository) GetLive(ctx context.Context, projectID string, platform responderdomain.Platform, now time.Time) (*domain.Linker, error) {
	l, err := r.queries.GetLiveLinker(ctx, gen.GetLiveLinkerParams{ProjectID: projectID, Platform: string(platform), ExpiresAt: now})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return genLinkerToDomain(&l), nil
}

// DeleteExpired removes linkers whose deadline is at or before now and returns how many went.
func (r *PostgresRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	return r.queries.DeleteExpiredLinkers(ctx, now)
}

// BindChat runs the linking handshake as one transaction:
//
//  1. read the linker to find its project
//  2. lock the project row, serializing binds per project
//  3. delete the linker; zero rows means another delivery consumed it first
//  4. refuse expired or cross-platform tokens
//  5. create the config for dest carrying credential
//  6. point the project at it and delete whatever it replaced
//  7. delete the project's remaining linkers
//
// Any error rolls everything back, leaving the project and linker as they were.
func (r *PostgresRepository) BindChat(ctx context.Context, token string, dest responderdomain.Destination, credential string, now time.Time) (*projectdomain.Project, error) {
	var bound *projectdomain.Project
	err := db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		q := r.queries.WithTx(tx)

		l, err := q.GetLinker(ctx, token)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return domain.ErrLinkerNotFound
			}
			return err
		}
		p, err := responderrepo.LockedProject(ctx, q, l.ProjectID)
		if err != nil {
			if errors.Is(err, responderrepo.ErrProjectNotFound) {
				return domain.ErrLinkerNotFound
			}
			return err
		}
		consumed, err := q.ConsumeLinker(ctx, token)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return domain.ErrLinkerNotFound
			}
			return err
		}
		linker := genLinkerToDomain(&consumed)
		if linker.ExpiredAt(now) {
			return domain.ErrLinkerExpired
		}
		if linker.Platform != dest.Platform {
			return domain.ErrPlatformMismatch
		}

		configID, err := createConfig(ctx, q, dest, credential, now)
		if err != nil {
			return err
		}
		if err := responderrepo.ReplaceConfigs(ctx, q, &p, dest.Platform, configID, now); err != nil {
			return err
		}
		if err := q.DeleteLinkersByProject(ctx, p.ID); err != nil {
			return err
		}

		row, err := q.GetProject(ctx, p.ID)
		if err != nil {
			return err
		}
		bound = projectrepo.GenProjectToDomain(&row)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return bound, nil
}

func createConfig(ctx context.Context, q *gen.Queries, dest responderdomain.Destination, credential string, now time.Time) (string, error) {
	id := uuid.New().String()
	switch dest.Platform {
	case responderdomain.PlatformSlack:
		_, err := q.CreateSlackResponderConfig(ctx, gen.CreateSlackResponderConfigParams{
			ID: id, TeamID: dest.WorkspaceID, ChannelID: dest.ChannelID, EnterpriseID: dest.EnterpriseID,
			UserToMention: dest.OperatorID, BotToken: credential, CreatedAt: now,
		})
		return id, err
	case responderdomain.PlatformFeishu:
		_, err := q.CreateFeishuResponderConfig(ctx, gen.CreateFeishuResponderConfigParams{
			ID: id, ChatID: dest.ChannelID, UserToMention: dest.OperatorID, TenantKey: dest.WorkspaceID,
			AppToken: credential, CreatedAt: now,
		})
		return id, err
	}
	return "", domain.ErrPlatformMismatch
}

func genLinkerToDomain(l *gen.Linker) *domain.Linker {
	return &domain.Linker{
		Token: l.Token, ProjectID: l.ProjectID, Platform: responderdomain.Platform(l.Platform),
		CreatedAt: l.CreatedAt, ExpiresAt: l.ExpiresAt,
	}
}
