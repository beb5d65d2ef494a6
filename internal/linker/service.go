// Package linker runs the chat-linking handshake: an operator asks for a single-use link token
// for a project, types it as a chat command, and the chat it arrived from becomes the project's
// responder destination.
package linker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"otp-relay/internal/audit"
	auditdomain "otp-relay/internal/audit/domain"
	"otp-relay/internal/linker/domain"
	"otp-relay/internal/linker/repository"
	projectdomain "otp-relay/internal/project/domain"
	responderdomain "otp-relay/internal/responder/domain"
	"otp-relay/internal/telemetry"
	telemetrydomain "otp-relay/internal/telemetry/domain"
)

// Errors returned by Link that are safe to show in chat. None of them changes any state.
var (
	ErrLinkerNotFound   = domain.ErrLinkerNotFound
	ErrLinkerExpired    = domain.ErrLinkerExpired
	ErrPlatformMismatch = domain.ErrPlatformMismatch
	ErrMissingToken     = errors.New("missing link token")
)

// ErrProjectNotFound is returned by Ensure for an unknown project.
var ErrProjectNotFound = errors.New("project not found")

// ProjectGetter loads projects.
type ProjectGetter interface {
	GetByID(ctx context.Context, id string) (*projectdomain.Project, error)
}

// Service issues and redeems link tokens.
type Service struct {
	repo     repository.Repository
	projects ProjectGetter
	audit    audit.AuditLogger
	events   telemetry.EventEmitter
	logger   *zap.Logger
	ttl      time.Duration
	now      func() time.Time

	pending singleflight.Group
}

// NewService returns a Service whose tokens live for ttl. auditLogger and events may be nil.
func NewService(repo repository.Repository, projects ProjectGetter, auditLogger audit.AuditLogger, events telemetry.EventEmitter, logger *zap.Logger, ttl time.Duration) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:     repo,
		projects: projects,
		audit:    auditLogger,
		events:   events,
		logger:   logger.Named("linker"),
		ttl:      ttl,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Ensure returns the project's pending linker for platform, creating one if none is live.
// Concurrent calls for the same project and platform share one lookup-or-create.
func (s *Service) Ensure(ctx context.Context, projectID string, platform responderdomain.Platform) (*domain.Linker, error) {
	p, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrProjectNotFound
	}
	// Callers waiting on the same key must not inherit the first caller's cancellation.
	shared := context.WithoutCancel(ctx)
	v, err, _ := s.pending.Do(projectID+"/"+string(platform), func() (interface{}, error) {
		now := s.now()
		live, err := s.repo.GetLive(shared, projectID, platform, now)
		if err != nil {
			return nil, err
		}
		if live != nil {
			return live, nil
		}
		token, err := domain.NewToken()
		if err != nil {
			return nil, err
		}
		l := &domain.Linker{Token: token, ProjectID: projectID, Platform: platform, CreatedAt: now, ExpiresAt: now.Add(s.ttl)}
		if err := s.repo.Create(shared, l); err != nil {
			return nil, fmt.Errorf("create linker: %w", err)
		}
		return l, nil
	})
	if err != nil {
		return nil, err
	}
	l := *v.(*domain.Linker)
	return &l, nil
}

// Link redeems token for the chat described by dest. credential is the installation access
// token for dest's workspace and is stored on the new responder config.
func (s *Service) Link(ctx context.Context, token string, dest responderdomain.Destination, credential string) (*projectdomain.Project, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrMissingToken
	}
	p, err := s.repo.BindChat(ctx, token, dest, credential, s.now())
	if err != nil {
		return nil, err
	}

	meta, _ := json.Marshal(map[string]string{"platform": string(dest.Platform), "channel_id": dest.ChannelID})
	if s.audit != nil {
		s.audit.LogEvent(ctx, p.ID, dest.OperatorID, auditdomain.ActionLink, auditdomain.ResourceResponder, string(meta))
	}
	telemetry.EmitAsync(s.events, s.logger, &telemetrydomain.Event{
		ProjectID: p.ID,
		EventType: telemetrydomain.EventResponderLinked,
		Source:    "linker",
		Platform:  string(dest.Platform),
		Metadata:  meta,
		CreatedAt: s.now(),
	})
	s.logger.Info("responder linked", zap.String("project", p.FullName()),
		zap.String("platform", string(dest.Platform)), zap.String("channel_id", dest.ChannelID))
	return p, nil
}

// DeleteExpired removes linkers past their deadline.
func (s *Service) DeleteExpired(ctx context.Context) (int64, error) {
	return s.repo.DeleteExpired(ctx, s.now())
}
