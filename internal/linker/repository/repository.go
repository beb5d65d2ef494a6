package repository

import (
	"context"
	"time"

	"otp-relay/internal/linker/domain"
	projectdomain "otp-relay/internal/project/domain"
	responderdomain "otp-relay/internal/responder/domain"
)

// Repository defines persistence for linkers and the binding transaction that consumes them.
type Repository interface {
	Create(ctx context.Context, l *domain.Linker) error
	GetLive(ctx context.Context, projectID string, platform responderdomain.Platform, now time.Time) (*domain.Linker, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
	// BindChat consumes the linker and binds its project to dest in one transaction, returning
	// the project as committed.
	BindChat(ctx context.Context, token string, dest responderdomain.Destination, credential string, now time.Time) (*projectdomain.Project, error)
}
