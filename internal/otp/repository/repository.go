package repository

import (
	"context"
	"time"

	"otp-relay/internal/otp/domain"
)

// Repository persists OTP requests. Every state change is a conditional update keyed on the
// expected current state, so concurrent writers cannot move a request backwards or twice.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Request, error)
	Create(ctx context.Context, r *domain.Request) error
	// RecordMessage stores the platform message id of the sent card. It fails with
	// ErrMessageAlreadyRecorded if an id is already stored or the request can no longer be sent.
	RecordMessage(ctx context.Context, requestID, messageID, channelID string) error
	// Transition moves id from one state to another. It reports false when the request was not in from.
	Transition(ctx context.Context, id string, from, to domain.State, now time.Time) (bool, error)
	// Respond commits an answer. It reports false when the request is not validated or the
	// message id does not match, which covers duplicate deliveries.
	Respond(ctx context.Context, id, messageID, response, operator string, now time.Time) (bool, error)
	// ExpireOverdue moves every non-terminal request whose deadline is at or before now to expired.
	ExpireOverdue(ctx context.Context, now time.Time) ([]Expired, error)
}

// Expired identifies a request moved to expired by ExpireOverdue.
type Expired struct {
	ID        string
	ProjectID string
}
