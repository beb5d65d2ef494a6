package correlator

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"

	"otp-relay/internal/db/dbtest"
	"otp-relay/internal/linker"
	linkerrepo "otp-relay/internal/linker/repository"
	otpdomain "otp-relay/internal/otp/domain"
	otprepo "otp-relay/internal/otp/repository"
	"otp-relay/internal/otp/service"
	projectdomain "otp-relay/internal/project/domain"
	projectrepo "otp-relay/internal/project/repository"
	"otp-relay/internal/responder"
	responderdomain "otp-relay/internal/responder/domain"
)

type linkerStub struct {
	err   error
	token string
	dest  responderdomain.Destination
}

func (l *linkerStub) Link(_ context.Context, token string, dest responderdomain.Destination, _ string) (*projectdomain.Project, error) {
	l.token, l.dest = token, dest
	if l.err != nil {
		return nil, l.err
	}
	return &projectdomain.Project{RepoOwner: "acme", RepoName: "widgets"}, nil
}

type answererStub struct {
	err error
	got service.Answer
}

func (a *answererStub) Respond(_ context.Context, ans service.Answer) (*otpdomain.Request, error) {
	a.got = ans
	return &otpdomain.Request{}, a.err
}

func TestHandle_LinkReplies(t *testing.T) {
	testCases := []struct {
		name string
		err  error
		want string
	}{
		{"success", nil, "Linked acme/widgets to this chat. OTP requests will be posted here."},
		{"missing token", linker.ErrMissingToken, ReplyMissingToken},
		{"unknown token", linker.ErrLinkerNotFound, ReplyTokenInvalid},
		{"expired", linker.ErrLinkerExpired, ReplyTokenExpired},
		{"wrong platform", linker.ErrPlatformMismatch, ReplyWrongPlatform},
		{"transaction failure", errors.New("deadlock"), ReplyLinkFailed},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			l := &linkerStub{err: tc.err}
			c := New(l, &answererStub{}, zap.NewNop())
			cmd, _ := ParseCommand("/cfa-link T1")
			reply := c.Handle(context.Background(), Inbound{
				Kind: KindCommand, Platform: responderdomain.PlatformSlack, Command: cmd,
				Destination: responderdomain.Destination{ChannelID: "C1"},
			})
			assert.Equal(t, tc.want, reply.Text)
			assert.Equal(t, "T1", l.token)
			assert.Equal(t, responderdomain.PlatformSlack, l.dest.Platform)
		})
	}
}

func TestHandle_LinkWithoutArgs(t *testing.T) {
	l := &linkerStub{err: linker.ErrMissingToken}
	c := New(l, &answererStub{}, nil)
	reply := c.Handle(context.Background(), Inbound{Kind: KindCommand, Command: Command{Name: "cfa-link"}})
	assert.Equal(t, ReplyMissingToken, reply.Text)
	assert.Empty(t, l.token)
}

func TestHandle_Unknown(t *testing.T) {
	l := &linkerStub{}
	a := &answererStub{}
	c := New(l, a, nil)
	for _, in := range []Inbound{
		{Kind: KindCommand, Command: Command{Name: "help"}},
		{Kind: KindAnswer, Answer: Answer{Marker: "something-else"}},
		{},
	} {
		assert.Equal(t, ReplyUnknownCommand, c.Handle(context.Background(), in).Text)
	}
	assert.Empty(t, l.token)
	assert.Empty(t, a.got.RequestID)
}

func TestHandle_AnswerReplies(t *testing.T) {
	testCases := []struct {
		name string
		err  error
		want string
	}{
		{"accepted", nil, ReplyAnswerAccepted},
		{"rejected", otpdomain.Reject(otpdomain.ReasonExpired), otpdomain.Reject(otpdomain.ReasonExpired).Message},
		{"internal", errors.New("db down"), ReplyAnswerFailed},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			a := &answererStub{err: tc.err}
			c := New(&linkerStub{}, a, nil)
			reply := c.Handle(context.Background(), Inbound{
				Kind: KindAnswer, Platform: responderdomain.PlatformFeishu,
				Answer: Answer{RequestID: "r1", Marker: responder.CommandMarker, Value: "123456", MessageID: "om_1", OperatorID: "ou_1"},
			})
			assert.Equal(t, tc.want, reply.Text)
			assert.Equal(t, service.Answer{
				RequestID: "r1", MessageID: "om_1", Value: "123456", OperatorID: "ou_1", Platform: responderdomain.PlatformFeishu,
			}, a.got)
		})
	}
}

// recordingResponder stands in for a chat backend: it "sends" by recording a fixed message id.
type recordingResponder struct {
	recorder  responder.Recorder
	messageID string
}

func (r *recordingResponder) Platform() responderdomain.Platform {
	return responderdomain.PlatformFeishu
}

func (r *recordingResponder) RequestOTP(ctx context.Context, _ *projectdomain.Project, req *otpdomain.Request, _ *otpdomain.RequestInformation) error {
	return r.recorder.RecordMessage(ctx, req.ID, r.messageID, "oc_1")
}

func TestHandle_LinkThenAnswer(t *testing.T) {
	ctx := context.Background()
	conn := dbtest.New(t)
	dbtest.SeedProject(t, conn, "p1", "acme", "widgets")
	projects := projectrepo.NewPostgresRepository(conn)
	requests := otprepo.NewPostgresRepository(conn)

	linkSvc := linker.NewService(linkerrepo.NewPostgresRepository(conn), projects, nil, nil, zap.NewNop(), time.Hour)
	otpSvc, err := service.NewService(requests, projects,
		responder.NewRegistry(&recordingResponder{recorder: requests, messageID: "m1"}),
		nil, nil, nil, zap.NewNop(), 30*time.Minute, service.WithMeterProvider(noop.NewMeterProvider()))
	require.NoError(t, err)
	c := New(linkSvc, otpSvc, zap.NewNop())

	l, err := linkSvc.Ensure(ctx, "p1", responderdomain.PlatformFeishu)
	require.NoError(t, err)

	cmd, ok := ParseCommand(fmt.Sprintf("@_user_1 %s", l.Command()))
	require.True(t, ok)
	reply := c.Handle(ctx, Inbound{
		Kind: KindCommand, Platform: responderdomain.PlatformFeishu, Command: cmd,
		Destination: responderdomain.Destination{ChannelID: "oc_1", WorkspaceID: "tenant", OperatorID: "ou_1"},
	})
	require.Equal(t, "Linked acme/widgets to this chat. OTP requests will be posted here.", reply.Text)

	req, err := otpSvc.Create(ctx, "p1", nil)
	require.NoError(t, err)
	require.Equal(t, otpdomain.StateAwaitingResponse, req.State)
	_, err = otpSvc.Validate(ctx, "p1", req.ID)
	require.NoError(t, err)

	answer := func(messageID string) string {
		return c.Handle(ctx, Inbound{
			Kind: KindAnswer, Platform: responderdomain.PlatformFeishu,
			Answer: Answer{RequestID: req.ID, Marker: responder.CommandMarker, Value: "654321", MessageID: messageID, OperatorID: "ou_1"},
		}).Text
	}
	assert.Equal(t, otpdomain.Reject(otpdomain.ReasonMessageMismatch).Message, answer("m2"))
	assert.Equal(t, ReplyAnswerAccepted, answer("m1"))
	assert.Equal(t, otpdomain.Reject(otpdomain.ReasonNotAccepting).Message, answer("m1"))

	got, err := otpSvc.Get(ctx, "p1", req.ID)
	require.NoError(t, err)
	assert.Equal(t, otpdomain.StateResponded, got.State)
	assert.Equal(t, "654321", got.Response)
}
