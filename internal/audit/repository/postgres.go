package repository

import (
	"context"
	"database/sql"
	"errors"

	"otp-relay/internal/audit/domain"
	"otp-relay/internal/db/sqlc/gen"
)

type PostgresRepository struct {
	queries *gen.Queries
}

// NewPostgresRepository returns an audit log repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{queries: gen.New(db)}
}

// GetByID returns the audit log for id, or nil if not found.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.AuditLog, error) {
	a, err := r.queries.GetAuditLog(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return genAuditLogToDomain(&a), nil
}

// ListByProject returns the project's audit logs, newest first.
func (r *PostgresRepository) ListByProject(ctx context.Context, projectID string, limit, offset int32) ([]*domain.AuditLog, error) {
	list, err := r.queries.ListAuditLogsByProject(ctx, gen.ListAuditLogsByProjectParams{ProjectID: projectID, Limit: limit, Offset: offset})
	if err != nil {
		return nil, err
	}
	out := make([]*domain.AuditLog, len(list))
	for i := range list {
		out[i] = genAuditLogToDomain(&list[i])
	}
	return out, nil
}

// Create persists the audit log. The audit log must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, a *domain.AuditLog) error {
	_, err := r.queries.CreateAuditLog(ctx, gen.CreateAuditLogParams{
		ID:        a.ID,
		ProjectID: a.ProjectID,
		Actor:     sql.NullString{String: a.Actor, Valid: a.Actor != ""},
		Action:    a.Action,
		Resource:  a.Resource,
		Ip:        a.IP,
		Metadata:  sql.NullString{String: a.Metadata, Valid: a.Metadata != ""},
		CreatedAt: a.CreatedAt,
	})
	return err
}

func genAuditLogToDomain(a *gen.AuditLog) *domain.AuditLog {
	if a == nil {
		return nil
	}
	return &domain.AuditLog{
		ID: a.ID, ProjectID: a.ProjectID, Actor: a.Actor.String, Action: a.Action, Resource: a.Resource,
		IP: a.Ip, Metadata: a.Metadata.String, CreatedAt: a.CreatedAt,
	}
}
