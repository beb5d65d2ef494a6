// Package slack delivers OTP request cards to a Slack channel with Block Kit.
package slack

import (
	"context"
	"fmt"
	"net/http"

	slackapi "github.com/slack-go/slack"
	"go.uber.org/zap"

	otpdomain "otp-relay/internal/otp/domain"
	projectdomain "otp-relay/internal/project/domain"
	"otp-relay/internal/responder"
	"otp-relay/internal/responder/domain"
)

// OTPLength is the exact length Slack's input enforces for an answer.
const OTPLength = 6

// BlockIDPrefix prefixes the input block id; the request id follows the colon.
const BlockIDPrefix = responder.CommandMarker + ":"

// ConfigGetter loads Slack responder configs.
type ConfigGetter interface {
	GetSlackConfig(ctx context.Context, id string) (*domain.SlackConfig, error)
}

// Option configures a Responder.
type Option func(*Responder)

// WithAPIURL overrides the Slack Web API base URL. It must end with a slash.
func WithAPIURL(u string) Option {
	return func(r *Responder) {
		if u != "" {
			r.apiURL = u
		}
	}
}

// WithHTTPClient sets the HTTP client used for Web API calls.
func WithHTTPClient(c *http.Client) Option {
	return func(r *Responder) { r.httpClient = c }
}

// Responder posts OTP cards with the bot token stored on the project's Slack config.
type Responder struct {
	configs    ConfigGetter
	recorder   responder.Recorder
	logger     *zap.Logger
	apiURL     string
	httpClient *http.Client
}

// New returns a Slack responder.
func New(configs ConfigGetter, recorder responder.Recorder, logger *zap.Logger, opts ...Option) *Responder {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Responder{configs: configs, recorder: recorder, logger: logger.Named("slack_responder"), apiURL: slackapi.APIURL}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Responder) Platform() domain.Platform { return domain.PlatformSlack }

func (r *Responder) RequestOTP(ctx context.Context, project *projectdomain.Project, req *otpdomain.Request, info *otpdomain.RequestInformation) error {
	cfg, err := r.configs.GetSlackConfig(ctx, project.SlackConfigID)
	if err != nil {
		return r.fail("load config", err)
	}
	if cfg == nil {
		return r.fail("load config", responder.ErrConfigMissing)
	}

	opts := []slackapi.Option{slackapi.OptionAPIURL(r.apiURL)}
	if r.httpClient != nil {
		opts = append(opts, slackapi.OptionHTTPClient(r.httpClient))
	}
	client := slackapi.New(cfg.BotToken, opts...)

	channel, ts, err := client.PostMessageContext(ctx, cfg.ChannelID,
		slackapi.MsgOptionText(responder.Explanation(project), false),
		slackapi.MsgOptionBlocks(Blocks(project, req, info, cfg.UserToMention)...),
	)
	if err != nil {
		return r.fail("post message", err)
	}
	if err := r.recorder.RecordMessage(ctx, req.ID, ts, channel); err != nil {
		return r.fail("record message", err)
	}
	r.logger.Debug("otp card sent", zap.String("request_id", req.ID), zap.String("channel", channel), zap.String("ts", ts))
	return nil
}

func (r *Responder) fail(op string, err error) error {
	return &responder.TransportError{Platform: domain.PlatformSlack, Op: op, Err: err}
}

// Blocks builds the Block Kit card for req. The input block id carries the request id so an
// interaction can be routed without server-side lookup tables.
func Blocks(project *projectdomain.Project, req *otpdomain.Request, info *otpdomain.RequestInformation, mention string) []slackapi.Block {
	text := responder.Explanation(project)
	if mention != "" {
		text = fmt.Sprintf("<@%s> %s", mention, text)
	}
	blocks := []slackapi.Block{
		slackapi.NewSectionBlock(slackapi.NewTextBlockObject(slackapi.MarkdownType, text, false, false), nil, nil),
	}
	if info != nil {
		src := fmt.Sprintf("*Request source:* <%s|%s>", info.URL, info.Description)
		blocks = append(blocks, slackapi.NewContextBlock("", slackapi.NewTextBlockObject(slackapi.MarkdownType, src, false, false)))
	}

	el := slackapi.NewPlainTextInputBlockElement(
		slackapi.NewTextBlockObject(slackapi.PlainTextType, "Enter OTP here", false, false),
		responder.CommandMarker,
	)
	el.MinLength = OTPLength
	el.MaxLength = OTPLength
	input := slackapi.NewInputBlock(BlockIDPrefix+req.ID,
		slackapi.NewTextBlockObject(slackapi.PlainTextType, "OTP", false, false), nil, el)
	input.DispatchAction = true
	return append(blocks, input)
}
