package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"otp-relay/internal/db"
	"otp-relay/internal/db/sqlc/gen"
	"otp-relay/internal/responder/domain"
)

var (
	// ErrProjectNotFound is returned when the project does not exist.
	ErrProjectNotFound = errors.New("project not found")
	// ErrNotBound is returned when the project is not bound to the requested platform.
	ErrNotBound = errors.New("project is not bound to this platform")
)

type PostgresRepository struct {
	db      *sql.DB
	queries *gen.Queries
}

// NewPostgresRepository returns a responder repository that uses the given db for persistence.
func NewPostgresRepository(conn *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: conn, queries: gen.New(conn)}
}

// GetSlackConfig returns the Slack config for id, or nil if not found.
func (r *PostgresRepository) GetSlackConfig(ctx context.Context, id string) (*domain.SlackConfig, error) {
	c, err := r.queries.GetSlackResponderConfig(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return genSlackConfigToDomain(&c), nil
}

// GetFeishuConfig returns the Feishu config for id, or nil if not found.
func (r *PostgresRepository) GetFeishuConfig(ctx context.Context, id string) (*domain.FeishuConfig, error) {
	c, err := r.queries.GetFeishuResponderConfig(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return genFeishuConfigToDomain(&c), nil
}

// UpdateDestination edits the channel (or chat) and mention target of the project's active config.
// Returns ErrProjectNotFound or ErrNotBound when there is nothing to edit.
func (r *PostgresRepository) UpdateDestination(ctx context.Context, projectID string, platform domain.Platform, destinationID, userToMention string) error {
	return db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		q := r.queries.WithTx(tx)
		p, err := LockedProject(ctx, q, projectID)
		if err != nil {
			return err
		}
		if domain.Platform(p.ResponderPlatform) != platform {
			return ErrNotBound
		}
		var n int64
		switch platform {
		case domain.PlatformSlack:
			n, err = q.UpdateSlackResponderDestination(ctx, gen.UpdateSlackResponderDestinationParams{
				ID: p.SlackConfigID.String, ChannelID: destinationID, UserToMention: userToMention,
			})
		case domain.PlatformFeishu:
			n, err = q.UpdateFeishuResponderDestination(ctx, gen.UpdateFeishuResponderDestinationParams{
				ID: p.FeishuConfigID.String, ChatID: destinationID, UserToMention: userToMention,
			})
		default:
			return ErrNotBound
		}
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotBound
		}
		return nil
	})
}

// Reset clears the project's responder references and deletes the configs they pointed at.
func (r *PostgresRepository) Reset(ctx context.Context, projectID string) error {
	return db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		q := r.queries.WithTx(tx)
		p, err := LockedProject(ctx, q, projectID)
		if err != nil {
			return err
		}
		return ReplaceConfigs(ctx, q, &p, domain.PlatformNone, "", time.Now().UTC())
	})
}

// ReplaceConfigs points the project at configID on platform (or at nothing for PlatformNone)
// and deletes every config it referenced before. Callers run it inside their transaction,
// after taking the project row lock.
func ReplaceConfigs(ctx context.Context, q *gen.Queries, p *gen.Project, platform domain.Platform, configID string, now time.Time) error {
	params := gen.SetProjectResponderParams{ID: p.ID, ResponderPlatform: string(platform), UpdatedAt: now}
	switch platform {
	case domain.PlatformSlack:
		params.SlackConfigID = sql.NullString{String: configID, Valid: true}
	case domain.PlatformFeishu:
		params.FeishuConfigID = sql.NullString{String: configID, Valid: true}
	}
	// A single statement swaps the pointers so the single-responder check holds after every statement.
	if err := q.SetProjectResponder(ctx, params); err != nil {
		return err
	}
	if p.SlackConfigID.Valid && p.SlackConfigID.String != configID {
		if err := q.DeleteSlackResponderConfig(ctx, p.SlackConfigID.String); err != nil {
			return err
		}
	}
	if p.FeishuConfigID.Valid && p.FeishuConfigID.String != configID {
		if err := q.DeleteFeishuResponderConfig(ctx, p.FeishuConfigID.String); err != nil {
			return err
		}
	}
	return nil
}

// SaveInstallation creates or replaces the credential for a workspace.
func (r *PostgresRepository) SaveInstallation(ctx context.Context, inst *domain.Installation) error {
	return r.queries.UpsertChatInstallation(ctx, gen.UpsertChatInstallationParams{
		Platform: string(inst.Platform), WorkspaceID: inst.WorkspaceID,
		AccessToken: inst.AccessToken, UpdatedAt: inst.UpdatedAt,
	})
}

// GetInstallation returns the stored credential for a workspace, or nil if the app was never installed there.
func (r *PostgresRepository) GetInstallation(ctx context.Context, platform domain.Platform, workspaceID string) (*domain.Installation, error) {
	i, err := r.queries.GetChatInstallation(ctx, gen.GetChatInstallationParams{Platform: string(platform), WorkspaceID: workspaceID})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &domain.Installation{
		Platform: domain.Platform(i.Platform), WorkspaceID: i.WorkspaceID,
		AccessToken: i.AccessToken, UpdatedAt: i.UpdatedAt,
	}, nil
}

// LockedProject takes the project row lock and returns the row as seen under it.
// Must run inside a transaction.
func LockedProject(ctx context.Context, q *gen.Queries, projectID string) (gen.Project, error) {
	n, err := q.LockProject(ctx, gen.LockProjectParams{ID: projectID, UpdatedAt: time.Now().UTC()})
	if err != nil {
		return gen.Project{}, err
	}
	if n == 0 {
		return gen.Project{}, ErrProjectNotFound
	}
	return q.GetProject(ctx, projectID)
}

func genSlackConfigToDomain(c *gen.SlackResponderConfig) *domain.SlackConfig {
	return &domain.SlackConfig{
		ID: c.ID, TeamID: c.TeamID, ChannelID: c.ChannelID, EnterpriseID: c.EnterpriseID,
		UserToMention: c.UserToMention, BotToken: c.BotToken, CreatedAt: c.CreatedAt,
	}
}

func genFeishuConfigToDomain(c *gen.FeishuResponderConfig) *domain.FeishuConfig {
	return &domain.FeishuConfig{
		ID: c.ID, ChatID: c.ChatID, UserToMention: c.UserToMention, TenantKey: c.TenantKey,
		AppToken: c.AppToken, CreatedAt: c.CreatedAt,
	}
}
