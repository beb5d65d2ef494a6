package repository

import (
	"context"

	"otp-relay/internal/project/domain"
)

// Repository defines persistence for projects.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Project, error)
	GetByRepo(ctx context.Context, owner, name string) (*domain.Project, error)
	Create(ctx context.Context, p *domain.Project) error
}
