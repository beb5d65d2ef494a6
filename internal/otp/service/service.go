// Package service implements the OTP request lifecycle: creation and dispatch to the bound chat
// responder, pipeline-driven validation, the guarded answer commit, and deadline expiry.
package service

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"otp-relay/internal/audit"
	auditdomain "otp-relay/internal/audit/domain"
	"otp-relay/internal/otp/domain"
	"otp-relay/internal/otp/repository"
	"otp-relay/internal/policy/engine"
	projectdomain "otp-relay/internal/project/domain"
	"otp-relay/internal/responder"
	responderdomain "otp-relay/internal/responder/domain"
	"otp-relay/internal/telemetry"
	telemetrydomain "otp-relay/internal/telemetry/domain"
)

// Sentinel errors; the gRPC handler maps them to status codes.
var (
	ErrProjectNotFound   = errors.New("project not found")
	ErrRequestNotFound   = errors.New("otp request not found")
	ErrInvalidTransition = errors.New("otp request cannot make this transition")
	ErrRequestExpired    = errors.New("otp request has expired")
	ErrNotRetryable      = errors.New("only requests that were never delivered can be retried")
	ErrConflict          = errors.New("otp request changed concurrently; try again")
)

// SlackOTPLength is the exact answer length accepted from Slack.
const SlackOTPLength = 6

const (
	eventSource       = "otp_service"
	transitionRetries = 3
)

// ProjectGetter loads projects.
type ProjectGetter interface {
	GetByID(ctx context.Context, id string) (*projectdomain.Project, error)
}

// Answer is an operator's reply to an OTP card, already correlated to a request.
type Answer struct {
	RequestID  string
	MessageID  string
	Value      string
	OperatorID string
	Platform   responderdomain.Platform
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces time.Now for deadline and timestamp decisions.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithMeterProvider sets the meter provider for lifecycle counters. Defaults to the global provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(s *Service) { s.meterProvider = mp }
}

// Service owns OTP request state changes.
type Service struct {
	requests   repository.Repository
	projects   ProjectGetter
	responders responder.Registry
	policy     engine.Evaluator
	audit      audit.AuditLogger
	events     telemetry.EventEmitter
	logger     *zap.Logger
	ttl        time.Duration

	now           func() time.Time
	meterProvider metric.MeterProvider
	metrics       *metrics
}

// NewService returns a Service. policy, auditLogger and events may be nil.
func NewService(
	requests repository.Repository,
	projects ProjectGetter,
	responders responder.Registry,
	policy engine.Evaluator,
	auditLogger audit.AuditLogger,
	events telemetry.EventEmitter,
	logger *zap.Logger,
	ttl time.Duration,
	opts ...Option,
) (*Service, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		requests:   requests,
		projects:   projects,
		responders: responders,
		policy:     policy,
		audit:      auditLogger,
		events:     events,
		logger:     logger.Named("otp"),
		ttl:        ttl,
		now:        func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.meterProvider == nil {
		s.meterProvider = otel.GetMeterProvider()
	}
	m, err := newMetrics(s.meterProvider)
	if err != nil {
		return nil, fmt.Errorf("otp metrics: %w", err)
	}
	s.metrics = m
	return s, nil
}

// Create stores a new request for the project and sends it to the bound responder.
// A project without a responder fails with responder.ErrNotConfigured before anything is stored.
// A failed delivery is not an error: the request is returned in state created and can be retried.
func (s *Service) Create(ctx context.Context, projectID string, info *domain.RequestInformation) (*domain.Request, error) {
	project, err := s.loadProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	r, err := responder.ForProject(project, s.responders)
	if err != nil {
		return nil, err
	}

	now := s.now()
	req := &domain.Request{
		ID:        uuid.New().String(),
		ProjectID: project.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if info != nil {
		req.RequestDescription = info.Description
		req.RequestURL = info.URL
	}
	if err := s.requests.Create(ctx, req); err != nil {
		return nil, fmt.Errorf("create otp request: %w", err)
	}
	platform := string(project.ResponderPlatform)
	s.metrics.created.Add(ctx, 1, platformAttr(platform))
	s.emit(project.ID, req.ID, telemetrydomain.EventRequestCreated, platform, nil)

	return s.dispatch(ctx, project, r, req), nil
}

// Get returns the project's request id.
func (s *Service) Get(ctx context.Context, projectID, id string) (*domain.Request, error) {
	req, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req == nil || req.ProjectID != projectID {
		return nil, ErrRequestNotFound
	}
	return req, nil
}

// Retry sends a request whose card was never delivered, e.g. after a transport failure. The
// request may already be validated by then.
func (s *Service) Retry(ctx context.Context, projectID, id string) (*domain.Request, error) {
	req, err := s.Get(ctx, projectID, id)
	if err != nil {
		return nil, err
	}
	if req.MessageID != "" || (req.State != domain.StateCreated && req.State != domain.StateValidated) {
		return nil, ErrNotRetryable
	}
	if req.ExpiredAt(s.now()) {
		return nil, ErrRequestExpired
	}
	project, err := s.loadProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	r, err := responder.ForProject(project, s.responders)
	if err != nil {
		return nil, err
	}
	return s.dispatch(ctx, project, r, req), nil
}

// dispatch sends the card. Failures are logged and reported as events; the stored request is
// left as it was.
func (s *Service) dispatch(ctx context.Context, project *projectdomain.Project, r responder.Responder, req *domain.Request) *domain.Request {
	platform := string(r.Platform())
	if err := r.RequestOTP(ctx, project, req, req.Information()); err != nil {
		s.logger.Warn("otp request not delivered",
			zap.String("request_id", req.ID), zap.String("project_id", project.ID), zap.Error(err))
		s.metrics.sendFailed.Add(ctx, 1, platformAttr(platform))
		s.emit(project.ID, req.ID, telemetrydomain.EventRequestSendFailed, platform, map[string]string{"error": err.Error()})
		return req
	}
	s.metrics.sent.Add(ctx, 1, platformAttr(platform))
	s.emit(project.ID, req.ID, telemetrydomain.EventRequestSent, platform, nil)

	fresh, err := s.requests.GetByID(ctx, req.ID)
	if err != nil || fresh == nil {
		s.logger.Warn("reload after send failed", zap.String("request_id", req.ID), zap.Error(err))
		return req
	}
	return fresh
}

// Validate marks the request as confirmed by the pipeline; answers are accepted from then on.
func (s *Service) Validate(ctx context.Context, projectID, id string) (*domain.Request, error) {
	return s.transition(ctx, projectID, id, domain.StateValidated)
}

// Invalidate abandons the request; no answer will be accepted.
func (s *Service) Invalidate(ctx context.Context, projectID, id string) (*domain.Request, error) {
	return s.transition(ctx, projectID, id, domain.StateInvalid)
}

func (s *Service) transition(ctx context.Context, projectID, id string, to domain.State) (*domain.Request, error) {
	for range transitionRetries {
		req, err := s.Get(ctx, projectID, id)
		if err != nil {
			return nil, err
		}
		if req.State == to {
			return req, nil
		}
		if !domain.CanTransition(req.State, to) {
			return nil, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, req.State, to)
		}
		now := s.now()
		if to == domain.StateValidated && req.ExpiredAt(now) {
			return nil, ErrRequestExpired
		}
		ok, err := s.requests.Transition(ctx, id, req.State, to, now)
		if err != nil {
			return nil, fmt.Errorf("transition otp request: %w", err)
		}
		if !ok {
			continue
		}
		action, event := auditdomain.ActionValidate, telemetrydomain.EventRequestValidated
		if to == domain.StateInvalid {
			action, event = auditdomain.ActionInvalidate, telemetrydomain.EventRequestInvalid
		}
		s.logAudit(ctx, projectID, "", action, map[string]string{"request_id": id, "from": string(req.State)})
		s.emit(projectID, id, event, "", nil)
		return s.Get(ctx, projectID, id)
	}
	return nil, ErrConflict
}

// Respond applies an operator's answer. Guards run in a fixed order and each refusal is a
// *domain.Rejection with nothing written. Only one of any number of identical answers commits.
func (s *Service) Respond(ctx context.Context, a Answer) (*domain.Request, error) {
	platform := string(a.Platform)
	req, err := s.requests.GetByID(ctx, a.RequestID)
	if err != nil {
		return nil, err
	}
	if req == nil || req.State != domain.StateValidated {
		return nil, s.reject(ctx, a, domain.ReasonNotAccepting)
	}
	now := s.now()
	if req.ExpiredAt(now) {
		return nil, s.reject(ctx, a, domain.ReasonExpired)
	}
	value := strings.TrimSpace(a.Value)
	if !validFormat(a.Platform, value) {
		return nil, s.reject(ctx, a, domain.ReasonInvalidFormat)
	}
	if req.MessageID == "" || subtle.ConstantTimeCompare([]byte(a.MessageID), []byte(req.MessageID)) != 1 {
		return nil, s.reject(ctx, a, domain.ReasonMessageMismatch)
	}
	if s.policy != nil {
		project, err := s.loadProject(ctx, req.ProjectID)
		if err != nil {
			return nil, err
		}
		allowed, err := s.policy.AllowResponder(ctx, engine.ResponderInput{
			ProjectID:  project.ID,
			RepoOwner:  project.RepoOwner,
			RepoName:   project.RepoName,
			Platform:   platform,
			RequestID:  req.ID,
			OperatorID: a.OperatorID,
			ChannelID:  req.ChannelID,
		})
		if err != nil {
			return nil, err
		}
		if !allowed {
			return nil, s.reject(ctx, a, domain.ReasonNotPermitted)
		}
	}
	ok, err := s.requests.Respond(ctx, req.ID, req.MessageID, value, a.OperatorID, now)
	if err != nil {
		return nil, fmt.Errorf("respond otp request: %w", err)
	}
	if !ok {
		return nil, s.reject(ctx, a, domain.ReasonAlreadyResponded)
	}

	s.metrics.responded.Add(ctx, 1, platformAttr(platform))
	s.logAudit(ctx, req.ProjectID, a.OperatorID, auditdomain.ActionRespond, map[string]string{"request_id": req.ID, "platform": platform})
	s.emit(req.ProjectID, req.ID, telemetrydomain.EventRequestResponded, platform, map[string]string{"operator": a.OperatorID})
	s.logger.Info("otp request answered", zap.String("request_id", req.ID), zap.String("operator", a.OperatorID))

	fresh, err := s.requests.GetByID(ctx, req.ID)
	if err != nil || fresh == nil {
		return req, nil
	}
	return fresh, nil
}

// ExpireOverdue moves every request past its deadline to expired and returns how many moved.
func (s *Service) ExpireOverdue(ctx context.Context) (int, error) {
	expired, err := s.requests.ExpireOverdue(ctx, s.now())
	if err != nil {
		return 0, err
	}
	for _, e := range expired {
		s.emit(e.ProjectID, e.ID, telemetrydomain.EventRequestExpired, "", nil)
	}
	if n := len(expired); n > 0 {
		s.metrics.expired.Add(ctx, int64(n))
		s.logger.Info("expired overdue otp requests", zap.Int("count", n))
	}
	return len(expired), nil
}

func validFormat(platform responderdomain.Platform, value string) bool {
	if platform == responderdomain.PlatformSlack {
		return utf8.RuneCountInString(value) == SlackOTPLength
	}
	return value != ""
}

func (s *Service) reject(ctx context.Context, a Answer, reason domain.RejectionReason) error {
	s.metrics.reject(ctx, string(a.Platform), string(reason))
	s.logger.Debug("otp answer rejected",
		zap.String("request_id", a.RequestID), zap.String("operator", a.OperatorID), zap.String("reason", string(reason)))
	return domain.Reject(reason)
}

func (s *Service) loadProject(ctx context.Context, id string) (*projectdomain.Project, error) {
	p, err := s.projects.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrProjectNotFound
	}
	return p, nil
}

func (s *Service) logAudit(ctx context.Context, projectID, actor, action string, meta map[string]string) {
	if s.audit == nil {
		return
	}
	b, _ := json.Marshal(meta)
	s.audit.LogEvent(ctx, projectID, actor, action, auditdomain.ResourceOTPRequest, string(b))
}

func (s *Service) emit(projectID, requestID, eventType, platform string, meta map[string]string) {
	if s.events == nil {
		return
	}
	ev := &telemetrydomain.Event{
		ProjectID: projectID,
		RequestID: requestID,
		EventType: eventType,
		Source:    eventSource,
		Platform:  platform,
		CreatedAt: s.now(),
	}
	if meta != nil {
		ev.Metadata, _ = json.Marshal(meta)
	}
	telemetry.EmitAsync(s.events, s.logger, ev)
}
