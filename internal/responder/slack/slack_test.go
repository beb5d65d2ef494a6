package slack

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	slackapi "github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	otpdomain "otp-relay/internal/otp/domain"
	projectdomain "otp-relay/internal/project/domain"
	"otp-relay/internal/responder"
	"otp-relay/internal/responder/domain"
)

type configStub map[string]*domain.SlackConfig

func (c configStub) GetSlackConfig(_ context.Context, id string) (*domain.SlackConfig, error) {
	return c[id], nil
}

type recorderStub struct {
	requestID, messageID, channelID string
	err                             error
}

func (r *recorderStub) RecordMessage(_ context.Context, requestID, messageID, channelID string) error {
	r.requestID, r.messageID, r.channelID = requestID, messageID, channelID
	return r.err
}

var testProject = &projectdomain.Project{
	ID: "p1", RepoOwner: "acme", RepoName: "widgets",
	ResponderPlatform: domain.PlatformSlack, SlackConfigID: "s1",
}

func slackServer(t *testing.T, reply string, captured *map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat.postMessage" {
			http.NotFound(w, r)
			return
		}
		require.NoError(t, r.ParseForm())
		if captured != nil {
			*captured = map[string]string{"channel": r.PostForm.Get("channel"), "blocks": r.PostForm.Get("blocks")}
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(reply))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newResponder(srv *httptest.Server, configs ConfigGetter, rec responder.Recorder) *Responder {
	return New(configs, rec, zap.NewNop(), WithAPIURL(srv.URL+"/"), WithHTTPClient(srv.Client()))
}

func TestRequestOTP_SendsAndRecords(t *testing.T) {
	var form map[string]string
	srv := slackServer(t, `{"ok":true,"channel":"C1","ts":"1700000000.000100"}`, &form)
	rec := &recorderStub{}
	r := newResponder(srv, configStub{"s1": {ID: "s1", ChannelID: "C1", UserToMention: "U9", BotToken: "xoxb-1"}}, rec)

	req := &otpdomain.Request{ID: "r1", ProjectID: "p1"}
	err := r.RequestOTP(context.Background(), testProject, req, &otpdomain.RequestInformation{Description: "run 7", URL: "https://ci/7"})
	require.NoError(t, err)

	assert.Equal(t, "r1", rec.requestID)
	assert.Equal(t, "1700000000.000100", rec.messageID)
	assert.Equal(t, "C1", rec.channelID)
	assert.Equal(t, "C1", form["channel"])
	assert.Contains(t, form["blocks"], `"block_id":"otp-submit:r1"`)
	// Block JSON is HTML-escaped on the wire, so match the unescaped parts.
	assert.Contains(t, form["blocks"], "@U9")
	assert.Contains(t, form["blocks"], "https://ci/7|run 7")
}

func TestRequestOTP_PlatformError(t *testing.T) {
	srv := slackServer(t, `{"ok":false,"error":"channel_not_found"}`, nil)
	rec := &recorderStub{}
	core, logs := observer.New(zapcore.WarnLevel)
	r := New(configStub{"s1": {ID: "s1", ChannelID: "C404", BotToken: "xoxb-1"}}, rec, zap.New(core),
		WithAPIURL(srv.URL+"/"), WithHTTPClient(srv.Client()))

	err := r.RequestOTP(context.Background(), testProject, &otpdomain.Request{ID: "r1"}, nil)
	var te *responder.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "post message", te.Op)
	assert.Equal(t, domain.PlatformSlack, te.Platform)
	assert.Empty(t, rec.requestID, "nothing is recorded when the send fails")
	assert.Zero(t, logs.Len(), "the caller logs transport failures")
}

func TestRequestOTP_MissingConfig(t *testing.T) {
	srv := slackServer(t, `{"ok":true}`, nil)
	r := newResponder(srv, configStub{}, &recorderStub{})

	err := r.RequestOTP(context.Background(), testProject, &otpdomain.Request{ID: "r1"}, nil)
	require.ErrorIs(t, err, responder.ErrConfigMissing)
}

func TestRequestOTP_RecordFailureIsTransportError(t *testing.T) {
	srv := slackServer(t, `{"ok":true,"channel":"C1","ts":"1.2"}`, nil)
	recErr := errors.New("db down")
	r := newResponder(srv, configStub{"s1": {ID: "s1", ChannelID: "C1"}}, &recorderStub{err: recErr})

	err := r.RequestOTP(context.Background(), testProject, &otpdomain.Request{ID: "r1"}, nil)
	var te *responder.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "record message", te.Op)
	assert.ErrorIs(t, err, recErr)
}

func TestBlocks(t *testing.T) {
	blocks := Blocks(testProject, &otpdomain.Request{ID: "r1"}, nil, "")
	require.Len(t, blocks, 2)

	section, ok := blocks[0].(*slackapi.SectionBlock)
	require.True(t, ok)
	assert.True(t, strings.HasSuffix(section.Text.Text, "acme/widgets."))
	assert.NotContains(t, section.Text.Text, "<@")

	input, ok := blocks[1].(*slackapi.InputBlock)
	require.True(t, ok)
	assert.Equal(t, "otp-submit:r1", input.BlockID)
	assert.True(t, input.DispatchAction)
	el, ok := input.Element.(*slackapi.PlainTextInputBlockElement)
	require.True(t, ok)
	assert.Equal(t, "otp-submit", el.ActionID)
	assert.Equal(t, OTPLength, el.MinLength)
	assert.Equal(t, OTPLength, el.MaxLength)

	raw, err := json.Marshal(slackapi.Blocks{BlockSet: blocks})
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"dispatch_action":true`)
}
