package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"otp-relay/internal/db/sqlc/gen"
	"otp-relay/internal/otp/domain"
)

// ErrMessageAlreadyRecorded is returned by RecordMessage when the request already carries a
// message id or has left the states a card can be sent from.
var ErrMessageAlreadyRecorded = errors.New("otp request message already recorded or not sendable")

type PostgresRepository struct {
	queries *gen.Queries
	now     func() time.Time
}

// NewPostgresRepository returns an OTP request repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{queries: gen.New(db), now: func() time.Time { return time.Now().UTC() }}
}

// GetByID returns the request for id, or nil if not found.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Request, error) {
	row, err := r.queries.GetOTPRequest(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return genRequestToDomain(&row), nil
}

// Create inserts req in state created and refreshes it from the stored row.
// ID, ProjectID, CreatedAt and ExpiresAt must be set.
func (r *PostgresRepository) Create(ctx context.Context, req *domain.Request) error {
	row, err := r.queries.CreateOTPRequest(ctx, gen.CreateOTPRequestParams{
		ID:                 req.ID,
		ProjectID:          req.ProjectID,
		RequestDescription: req.RequestDescription,
		RequestUrl:         req.RequestURL,
		CreatedAt:          req.CreatedAt,
		ExpiresAt:          req.ExpiresAt,
	})
	if err != nil {
		return err
	}
	*req = *genRequestToDomain(&row)
	return nil
}

func (r *PostgresRepository) RecordMessage(ctx context.Context, requestID, messageID, channelID string) error {
	if messageID == "" {
		return errors.New("message id is required")
	}
	n, err := r.queries.RecordOTPMessage(ctx, gen.RecordOTPMessageParams{
		ID: requestID, MessageID: messageID, ChannelID: channelID, UpdatedAt: r.now(),
	})
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrMessageAlreadyRecorded
	}
	return nil
}

func (r *PostgresRepository) Transition(ctx context.Context, id string, from, to domain.State, now time.Time) (bool, error) {
	n, err := r.queries.TransitionOTPRequest(ctx, gen.TransitionOTPRequestParams{
		ID: id, State: string(from), State_2: string(to), UpdatedAt: now,
	})
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *PostgresRepository) Respond(ctx context.Context, id, messageID, response, operator string, now time.Time) (bool, error) {
	n, err := r.queries.RespondOTPRequest(ctx, gen.RespondOTPRequestParams{
		ID:                id,
		MessageID:         messageID,
		Response:          response,
		RespondedAt:       sql.NullTime{Time: now, Valid: true},
		UserThatResponded: operator,
	})
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *PostgresRepository) ExpireOverdue(ctx context.Context, now time.Time) ([]Expired, error) {
	rows, err := r.queries.ExpireOverdueOTPRequests(ctx, now)
	if err != nil {
		return nil, err
	}
	out := make([]Expired, 0, len(rows))
	for _, row := range rows {
		out = append(out, Expired{ID: row.ID, ProjectID: row.ProjectID})
	}
	return out, nil
}

func genRequestToDomain(r *gen.OtpRequest) *domain.Request {
	if r == nil {
		return nil
	}
	out := &domain.Request{
		ID:                 r.ID,
		ProjectID:          r.ProjectID,
		State:              domain.State(r.State),
		Response:           r.Response,
		MessageID:          r.MessageID,
		ChannelID:          r.ChannelID,
		UserThatResponded:  r.UserThatResponded,
		RequestDescription: r.RequestDescription,
		RequestURL:         r.RequestUrl,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
		ExpiresAt:          r.ExpiresAt,
	}
	if r.RespondedAt.Valid {
		t := r.RespondedAt.Time
		out.RespondedAt = &t
	}
	return out
}
