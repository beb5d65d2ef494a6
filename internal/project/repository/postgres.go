package repository

import (
	"context"
	"database/sql"
	"errors"

	"otp-relay/internal/db/sqlc/gen"
	"otp-relay/internal/project/domain"
	responderdomain "otp-relay/internal/responder/domain"
)

// ErrDuplicateRepo is returned by Create when owner/name is already registered.
var ErrDuplicateRepo = errors.New("project for this repository already exists")

type PostgresRepository struct {
	queries *gen.Queries
}

// NewPostgresRepository returns a project repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{queries: gen.New(db)}
}

// GetByID returns the project for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Project, error) {
	p, err := r.queries.GetProject(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return GenProjectToDomain(&p), nil
}

// GetByRepo returns the project for owner/name, or nil if not found.
func (r *PostgresRepository) GetByRepo(ctx context.Context, owner, name string) (*domain.Project, error) {
	p, err := r.queries.GetProjectByRepo(ctx, gen.GetProjectByRepoParams{RepoOwner: owner, RepoName: name})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return GenProjectToDomain(&p), nil
}

// Create persists a new, unbound project. The project must have ID and SecretHash set.
func (r *PostgresRepository) Create(ctx context.Context, p *domain.Project) error {
	existing, err := r.GetByRepo(ctx, p.RepoOwner, p.RepoName)
	if err != nil {
		return err
	}
	if existing != nil {
		return ErrDuplicateRepo
	}
	created, err := r.queries.CreateProject(ctx, gen.CreateProjectParams{
		ID: p.ID, RepoOwner: p.RepoOwner, RepoName: p.RepoName, SecretHash: p.SecretHash, CreatedAt: p.CreatedAt,
	})
	if err != nil {
		return err
	}
	*p = *GenProjectToDomain(&created)
	return nil
}

// GenProjectToDomain converts a sqlc row. Exported for repositories that read projects inside
// their own transactions.
func GenProjectToDomain(p *gen.Project) *domain.Project {
	if p == nil {
		return nil
	}
	return &domain.Project{
		ID:                p.ID,
		RepoOwner:         p.RepoOwner,
		RepoName:          p.RepoName,
		SecretHash:        p.SecretHash,
		ResponderPlatform: responderdomain.Platform(p.ResponderPlatform),
		SlackConfigID:     p.SlackConfigID.String,
		FeishuConfigID:    p.FeishuConfigID.String,
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
	}
}
