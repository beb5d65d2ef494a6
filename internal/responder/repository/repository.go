package repository

import (
	"context"

	"otp-relay/internal/responder/domain"
)

// Repository defines persistence for responder configs and chat installations.
type Repository interface {
	GetSlackConfig(ctx context.Context, id string) (*domain.SlackConfig, error)
	GetFeishuConfig(ctx context.Context, id string) (*domain.FeishuConfig, error)
	// UpdateDestination changes where the project's bound config delivers and whom it mentions.
	UpdateDestination(ctx context.Context, projectID string, platform domain.Platform, destinationID, userToMention string) error
	// Reset detaches and deletes every responder config of the project.
	Reset(ctx context.Context, projectID string) error
	SaveInstallation(ctx context.Context, inst *domain.Installation) error
	GetInstallation(ctx context.Context, platform domain.Platform, workspaceID string) (*domain.Installation, error)
}
