package service

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/sync/errgroup"

	"otp-relay/internal/db/dbtest"
	"otp-relay/internal/otp/domain"
	"otp-relay/internal/otp/repository"
	"otp-relay/internal/policy/engine"
	projectdomain "otp-relay/internal/project/domain"
	projectrepo "otp-relay/internal/project/repository"
	"otp-relay/internal/responder"
	responderdomain "otp-relay/internal/responder/domain"
	telemetrydomain "otp-relay/internal/telemetry/domain"
)

type fakeResponder struct {
	platform  responderdomain.Platform
	recorder  responder.Recorder
	messageID string
	err       error
	calls     int
}

func (f *fakeResponder) Platform() responderdomain.Platform { return f.platform }

func (f *fakeResponder) RequestOTP(ctx context.Context, _ *projectdomain.Project, req *domain.Request, _ *domain.RequestInformation) error {
	f.calls++
	if f.err != nil {
		return &responder.TransportError{Platform: f.platform, Op: "post message", Err: f.err}
	}
	return f.recorder.RecordMessage(ctx, req.ID, f.messageID, "C1")
}

type policyFunc func(engine.ResponderInput) bool

func (p policyFunc) AllowResponder(_ context.Context, in engine.ResponderInput) (bool, error) {
	return p(in), nil
}

type recordingEmitter struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingEmitter) Emit(_ context.Context, e *telemetrydomain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e.EventType)
	return nil
}

func (r *recordingEmitter) has(eventType string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e == eventType {
			return true
		}
	}
	return false
}

type fixture struct {
	svc       *Service
	conn      *sql.DB
	requests  *repository.PostgresRepository
	responder *fakeResponder
	events    *recordingEmitter
	now       time.Time
	policy    policyFunc
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn := dbtest.New(t)
	dbtest.SeedProject(t, conn, "p1", "acme", "widgets")
	dbtest.SeedSlackBinding(t, conn, "p1", "s1", "C1")
	dbtest.SeedProject(t, conn, "p2", "acme", "unbound")

	f := &fixture{
		conn:     conn,
		requests: repository.NewPostgresRepository(conn),
		events:   &recordingEmitter{},
		now:      time.Now().UTC().Truncate(time.Second),
		policy:   func(engine.ResponderInput) bool { return true },
	}
	f.responder = &fakeResponder{platform: responderdomain.PlatformSlack, recorder: f.requests, messageID: "m1"}
	svc, err := NewService(
		f.requests,
		projectrepo.NewPostgresRepository(conn),
		responder.NewRegistry(f.responder),
		policyFunc(func(in engine.ResponderInput) bool { return f.policy(in) }),
		nil,
		f.events,
		zaptest.NewLogger(t),
		30*time.Minute,
		WithClock(func() time.Time { return f.now }),
		WithMeterProvider(noop.NewMeterProvider()),
	)
	require.NoError(t, err)
	f.svc = svc
	return f
}

// validated creates a delivered request and validates it.
func (f *fixture) validated(t *testing.T) *domain.Request {
	t.Helper()
	ctx := context.Background()
	req, err := f.svc.Create(ctx, "p1", nil)
	require.NoError(t, err)
	req, err = f.svc.Validate(ctx, "p1", req.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StateValidated, req.State)
	return req
}

func requireRejection(t *testing.T, err error, reason domain.RejectionReason) {
	t.Helper()
	var rej *domain.Rejection
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, reason, rej.Reason)
	assert.NotEmpty(t, rej.Message)
}

func TestCreate_DeliversAndRecords(t *testing.T) {
	f := newFixture(t)
	req, err := f.svc.Create(context.Background(), "p1", &domain.RequestInformation{Description: "run 7", URL: "https://ci/7"})
	require.NoError(t, err)

	assert.Equal(t, domain.StateAwaitingResponse, req.State)
	assert.Equal(t, "m1", req.MessageID)
	assert.Equal(t, "run 7", req.RequestDescription)
	assert.True(t, req.ExpiresAt.Equal(f.now.Add(30*time.Minute)))
	assert.Eventually(t, func() bool {
		return f.events.has(telemetrydomain.EventRequestCreated) && f.events.has(telemetrydomain.EventRequestSent)
	}, time.Second, 10*time.Millisecond)
}

func TestCreate_UnboundProjectStoresNothing(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Create(context.Background(), "p2", nil)
	require.ErrorIs(t, err, responder.ErrNotConfigured)
	assert.Equal(t, 0, dbtest.CountRows(t, f.conn, "otp_requests"))

	_, err = f.svc.Create(context.Background(), "missing", nil)
	require.ErrorIs(t, err, ErrProjectNotFound)
}

func TestCreate_TransportFailureLeavesCreatedThenRetry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.responder.err = errors.New("network down")
	core, logs := observer.New(zapcore.WarnLevel)
	f.svc.logger = zap.New(core)

	req, err := f.svc.Create(ctx, "p1", nil)
	require.NoError(t, err)
	assert.Equal(t, domain.StateCreated, req.State)
	assert.Empty(t, req.MessageID)
	assert.Equal(t, 1, logs.FilterMessage("otp request not delivered").Len())
	assert.Eventually(t, func() bool { return f.events.has(telemetrydomain.EventRequestSendFailed) }, time.Second, 10*time.Millisecond)

	f.responder.err = nil
	req, err = f.svc.Retry(ctx, "p1", req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StateAwaitingResponse, req.State)
	assert.Equal(t, 2, f.responder.calls)

	_, err = f.svc.Retry(ctx, "p1", req.ID)
	require.ErrorIs(t, err, ErrNotRetryable)
}

func TestRetry_AfterValidateDeliversAndAcceptsAnswer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.responder.err = errors.New("network down")

	req, err := f.svc.Create(ctx, "p1", nil)
	require.NoError(t, err)
	req, err = f.svc.Validate(ctx, "p1", req.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StateValidated, req.State)
	require.Empty(t, req.MessageID)

	f.responder.err = nil
	req, err = f.svc.Retry(ctx, "p1", req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StateValidated, req.State)
	assert.Equal(t, "m1", req.MessageID)
	assert.Equal(t, 2, f.responder.calls)

	_, err = f.svc.Retry(ctx, "p1", req.ID)
	require.ErrorIs(t, err, ErrNotRetryable)

	got, err := f.svc.Respond(ctx, Answer{
		RequestID: req.ID, MessageID: "m1", Value: "123456", OperatorID: "U1", Platform: responderdomain.PlatformSlack,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StateResponded, got.State)
}

func TestRetry_TerminalRequestRefused(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.responder.err = errors.New("network down")
	req, err := f.svc.Create(ctx, "p1", nil)
	require.NoError(t, err)
	_, err = f.svc.Invalidate(ctx, "p1", req.ID)
	require.NoError(t, err)

	f.responder.err = nil
	_, err = f.svc.Retry(ctx, "p1", req.ID)
	require.ErrorIs(t, err, ErrNotRetryable)
	assert.Equal(t, 1, f.responder.calls)
}

func TestRespond_Success(t *testing.T) {
	f := newFixture(t)
	req := f.validated(t)

	got, err := f.svc.Respond(context.Background(), Answer{
		RequestID: req.ID, MessageID: "m1", Value: " 123456 ", OperatorID: "U1", Platform: responderdomain.PlatformSlack,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StateResponded, got.State)
	assert.Equal(t, "123456", got.Response)
	assert.Equal(t, "U1", got.UserThatResponded)
	require.NotNil(t, got.RespondedAt)
	assert.True(t, got.RespondedAt.Equal(f.now))
}

func TestRespond_MessageMismatchLeavesStateUnchanged(t *testing.T) {
	f := newFixture(t)
	req := f.validated(t)

	_, err := f.svc.Respond(context.Background(), Answer{
		RequestID: req.ID, MessageID: "m2", Value: "123456", OperatorID: "U1", Platform: responderdomain.PlatformSlack,
	})
	requireRejection(t, err, domain.ReasonMessageMismatch)

	got, err := f.svc.Get(context.Background(), "p1", req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StateValidated, got.State)
	assert.Empty(t, got.Response)
}

func TestRespond_GuardOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("not validated", func(t *testing.T) {
		f := newFixture(t)
		req, err := f.svc.Create(ctx, "p1", nil)
		require.NoError(t, err)
		// Even a malformed answer for the wrong message is refused as not accepting first.
		_, err = f.svc.Respond(ctx, Answer{RequestID: req.ID, MessageID: "zz", Value: "1", Platform: responderdomain.PlatformSlack})
		requireRejection(t, err, domain.ReasonNotAccepting)
	})

	t.Run("unknown request", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Respond(ctx, Answer{RequestID: "nope", MessageID: "m1", Value: "123456"})
		requireRejection(t, err, domain.ReasonNotAccepting)
	})

	t.Run("expired before format", func(t *testing.T) {
		f := newFixture(t)
		req := f.validated(t)
		f.now = f.now.Add(31 * time.Minute)
		_, err := f.svc.Respond(ctx, Answer{RequestID: req.ID, MessageID: "zz", Value: "1", Platform: responderdomain.PlatformSlack})
		requireRejection(t, err, domain.ReasonExpired)
	})

	t.Run("format before message id", func(t *testing.T) {
		f := newFixture(t)
		req := f.validated(t)
		_, err := f.svc.Respond(ctx, Answer{RequestID: req.ID, MessageID: "zz", Value: "12345", Platform: responderdomain.PlatformSlack})
		requireRejection(t, err, domain.ReasonInvalidFormat)
		_, err = f.svc.Respond(ctx, Answer{RequestID: req.ID, MessageID: "m1", Value: "  ", Platform: responderdomain.PlatformFeishu})
		requireRejection(t, err, domain.ReasonInvalidFormat)
	})

	t.Run("feishu accepts any non-empty value", func(t *testing.T) {
		f := newFixture(t)
		req := f.validated(t)
		got, err := f.svc.Respond(ctx, Answer{RequestID: req.ID, MessageID: "m1", Value: "12345678", Platform: responderdomain.PlatformFeishu})
		require.NoError(t, err)
		assert.Equal(t, "12345678", got.Response)
	})

	t.Run("policy after message id", func(t *testing.T) {
		f := newFixture(t)
		req := f.validated(t)
		var seen engine.ResponderInput
		f.policy = func(in engine.ResponderInput) bool { seen = in; return in.OperatorID == "U1" }

		_, err := f.svc.Respond(ctx, Answer{RequestID: req.ID, MessageID: "m1", Value: "123456", OperatorID: "U2", Platform: responderdomain.PlatformSlack})
		requireRejection(t, err, domain.ReasonNotPermitted)
		assert.Equal(t, "acme", seen.RepoOwner)
		assert.Equal(t, "C1", seen.ChannelID)

		_, err = f.svc.Respond(ctx, Answer{RequestID: req.ID, MessageID: "m1", Value: "123456", OperatorID: "U1", Platform: responderdomain.PlatformSlack})
		require.NoError(t, err)
	})
}

func TestRespond_DuplicateAnswersCommitOnce(t *testing.T) {
	f := newFixture(t)
	req := f.validated(t)
	ctx := context.Background()

	const deliveries = 6
	errs := make([]error, deliveries)
	var g errgroup.Group
	for i := 0; i < deliveries; i++ {
		g.Go(func() error {
			_, errs[i] = f.svc.Respond(ctx, Answer{
				RequestID: req.ID, MessageID: "m1", Value: "123456", OperatorID: "U1", Platform: responderdomain.PlatformSlack,
			})
			return nil
		})
	}
	require.NoError(t, g.Wait())

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		var rej *domain.Rejection
		require.ErrorAs(t, err, &rej)
		assert.Contains(t, []domain.RejectionReason{domain.ReasonNotAccepting, domain.ReasonAlreadyResponded}, rej.Reason)
	}
	assert.Equal(t, 1, wins)
}

func TestValidateAndInvalidate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req, err := f.svc.Create(ctx, "p1", nil)
	require.NoError(t, err)

	_, err = f.svc.Validate(ctx, "p2", req.ID)
	require.ErrorIs(t, err, ErrRequestNotFound, "requests are scoped to their project")

	v1, err := f.svc.Validate(ctx, "p1", req.ID)
	require.NoError(t, err)
	v2, err := f.svc.Validate(ctx, "p1", req.ID)
	require.NoError(t, err)
	assert.Equal(t, v1.State, v2.State)

	inv, err := f.svc.Invalidate(ctx, "p1", req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StateInvalid, inv.State)

	_, err = f.svc.Validate(ctx, "p1", req.ID)
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestValidate_PastDeadline(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req, err := f.svc.Create(ctx, "p1", nil)
	require.NoError(t, err)

	f.now = f.now.Add(time.Hour)
	_, err = f.svc.Validate(ctx, "p1", req.ID)
	require.ErrorIs(t, err, ErrRequestExpired)
}

func TestExpireOverdue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req, err := f.svc.Create(ctx, "p1", nil)
	require.NoError(t, err)

	n, err := f.svc.ExpireOverdue(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	f.now = f.now.Add(30 * time.Minute)
	n, err = f.svc.ExpireOverdue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := f.svc.Get(ctx, "p1", req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StateExpired, got.State)
	assert.Eventually(t, func() bool { return f.events.has(telemetrydomain.EventRequestExpired) }, time.Second, 10*time.Millisecond)
}
