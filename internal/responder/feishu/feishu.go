// Package feishu delivers OTP request cards to a Feishu group chat as interactive messages.
package feishu

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	lark "github.com/larksuite/oapi-sdk-go/v3"
	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	"go.uber.org/zap"

	otpdomain "otp-relay/internal/otp/domain"
	projectdomain "otp-relay/internal/project/domain"
	"otp-relay/internal/responder"
	"otp-relay/internal/responder/domain"
)

const createMessagePath = "/open-apis/im/v1/messages?receive_id_type=chat_id"

// ConfigGetter loads Feishu responder configs.
type ConfigGetter interface {
	GetFeishuConfig(ctx context.Context, id string) (*domain.FeishuConfig, error)
}

// Config holds the app credentials used to send cards.
type Config struct {
	AppID     string
	AppSecret string
	// BaseURL overrides the open platform endpoint (e.g. https://open.larksuite.com).
	BaseURL    string
	HTTPClient *http.Client
}

// Responder sends OTP cards through the Feishu open platform.
type Responder struct {
	// client fetches and caches the app's own tenant token.
	client *lark.Client
	// direct sends with a credential stored at link time; the token cache would override it.
	direct   *lark.Client
	configs  ConfigGetter
	recorder responder.Recorder
	logger   *zap.Logger
}

// New returns a Feishu responder.
func New(cfg Config, configs ConfigGetter, recorder responder.Recorder, logger *zap.Logger) *Responder {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts := []lark.ClientOptionFunc{lark.WithLogLevel(larkcore.LogLevelError)}
	if cfg.BaseURL != "" {
		opts = append(opts, lark.WithOpenBaseUrl(cfg.BaseURL))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, lark.WithHttpClient(cfg.HTTPClient))
	}
	return &Responder{
		client:   lark.NewClient(cfg.AppID, cfg.AppSecret, opts...),
		direct:   lark.NewClient(cfg.AppID, cfg.AppSecret, append(opts, lark.WithEnableTokenCache(false))...),
		configs:  configs,
		recorder: recorder,
		logger:   logger.Named("feishu_responder"),
	}
}

func (r *Responder) Platform() domain.Platform { return domain.PlatformFeishu }

type createMessageBody struct {
	ReceiveID string `json:"receive_id"`
	MsgType   string `json:"msg_type"`
	Content   string `json:"content"`
}

type createMessageResp struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data struct {
		MessageID string `json:"message_id"`
		ChatID    string `json:"chat_id"`
	} `json:"data"`
}

func (r *Responder) RequestOTP(ctx context.Context, project *projectdomain.Project, req *otpdomain.Request, info *otpdomain.RequestInformation) error {
	cfg, err := r.configs.GetFeishuConfig(ctx, project.FeishuConfigID)
	if err != nil {
		return r.fail("load config", err)
	}
	if cfg == nil {
		return r.fail("load config", responder.ErrConfigMissing)
	}

	card, err := encodeCard(NewCard(project, req, info, cfg.UserToMention))
	if err != nil {
		return r.fail("build card", err)
	}
	client, opts := r.client, []larkcore.RequestOptionFunc(nil)
	if cfg.AppToken != "" {
		client, opts = r.direct, []larkcore.RequestOptionFunc{larkcore.WithTenantAccessToken(cfg.AppToken)}
	}
	out, err := r.send(ctx, client, cfg.ChatID, "interactive", string(card), opts...)
	if err != nil {
		return r.fail("create message", err)
	}
	chatID := out.Data.ChatID
	if chatID == "" {
		chatID = cfg.ChatID
	}
	if err := r.recorder.RecordMessage(ctx, req.ID, out.Data.MessageID, chatID); err != nil {
		return r.fail("record message", err)
	}
	r.logger.Debug("otp card sent", zap.String("request_id", req.ID), zap.String("message_id", out.Data.MessageID))
	return nil
}

// SendText posts a plain text message into chatID using the app's tenant token.
func (r *Responder) SendText(ctx context.Context, chatID, text string) error {
	content, err := json.Marshal(struct {
		Text string `json:"text"`
	}{text})
	if err != nil {
		return err
	}
	if _, err := r.send(ctx, r.client, chatID, "text", string(content)); err != nil {
		return &responder.TransportError{Platform: domain.PlatformFeishu, Op: "send text", Err: err}
	}
	return nil
}

func (r *Responder) send(ctx context.Context, client *lark.Client, chatID, msgType, content string, opts ...larkcore.RequestOptionFunc) (*createMessageResp, error) {
	resp, err := client.Post(ctx, createMessagePath, createMessageBody{
		ReceiveID: chatID, MsgType: msgType, Content: content,
	}, larkcore.AccessTokenTypeTenant, opts...)
	if err != nil {
		return nil, err
	}
	var out createMessageResp
	if err := json.Unmarshal(resp.RawBody, &out); err != nil {
		return nil, fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err)
	}
	if out.Code != 0 {
		return nil, fmt.Errorf("code %d: %s", out.Code, out.Msg)
	}
	if out.Data.MessageID == "" {
		return nil, errors.New("response carries no message id")
	}
	return &out, nil
}

// encodeCard keeps markup such as <at> mentions unescaped.
func encodeCard(c *Card) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(c); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func (r *Responder) fail(op string, err error) error {
	return &responder.TransportError{Platform: domain.PlatformFeishu, Op: op, Err: err}
}
