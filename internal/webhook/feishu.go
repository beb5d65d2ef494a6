package webhook

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"otp-relay/internal/correlator"
	linkerdomain "otp-relay/internal/linker/domain"
	responderdomain "otp-relay/internal/responder/domain"
	"otp-relay/internal/responder/feishu"
)

const (
	feishuMessageReceive = "im.message.receive_v1"
	feishuCardAction     = "card.action.trigger"
)

// feishuEnvelope covers every callback shape posted to the Feishu endpoint: the url
// verification challenge, schema 2.0 events, v1 card action callbacks, and the legacy command form.
type feishuEnvelope struct {
	Type      string `json:"type"`
	Challenge string `json:"challenge"`
	Token     string `json:"token"`
	Encrypt   string `json:"encrypt"`

	Schema string          `json:"schema"`
	Header *feishuHeader   `json:"header"`
	Event  json.RawMessage `json:"event"`

	// v1 card action callback.
	OpenID        string        `json:"open_id"`
	OpenMessageID string        `json:"open_message_id"`
	OpenChatID    string        `json:"open_chat_id"`
	TenantKey     string        `json:"tenant_key"`
	Action        *feishuAction `json:"action"`

	// Legacy command form.
	Text   string `json:"text"`
	UserID string `json:"user_id"`
	ChatID string `json:"chat_id"`
}

type feishuHeader struct {
	EventType string `json:"event_type"`
	Token     string `json:"token"`
	TenantKey string `json:"tenant_key"`
}

type feishuAction struct {
	Tag        string            `json:"tag"`
	Value      feishu.InputValue `json:"value"`
	InputValue string            `json:"input_value"`
}

type feishuMessageEvent struct {
	Sender struct {
		SenderID struct {
			OpenID string `json:"open_id"`
		} `json:"sender_id"`
		TenantKey string `json:"tenant_key"`
	} `json:"sender"`
	Message struct {
		MessageID   string `json:"message_id"`
		ChatID      string `json:"chat_id"`
		MessageType string `json:"message_type"`
		Content     string `json:"content"`
	} `json:"message"`
}

type feishuCardEvent struct {
	Operator struct {
		OpenID string `json:"open_id"`
	} `json:"operator"`
	Action  feishuAction `json:"action"`
	Context struct {
		OpenMessageID string `json:"open_message_id"`
		OpenChatID    string `json:"open_chat_id"`
	} `json:"context"`
}

func (e *feishuEnvelope) token() string {
	if e.Header != nil {
		return e.Header.Token
	}
	return e.Token
}

// FeishuEvent handles every Feishu callback.
func (h *Handler) FeishuEvent(c *gin.Context) {
	body, ok := readBody(c)
	if !ok {
		return
	}
	var env feishuEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if env.Encrypt != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "encrypted callbacks are not supported"})
		return
	}
	if want := h.cfg.FeishuVerificationToken; want != "" &&
		subtle.ConstantTimeCompare([]byte(env.token()), []byte(want)) != 1 {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid verification token"})
		return
	}

	switch {
	case env.Type == "url_verification":
		c.JSON(http.StatusOK, gin.H{"challenge": env.Challenge})
	case env.Header != nil && env.Header.EventType == feishuMessageReceive:
		h.feishuMessage(c, &env)
	case env.Header != nil && env.Header.EventType == feishuCardAction:
		h.feishuCardV2(c, &env)
	case env.Action != nil:
		h.feishuCardV1(c, &env)
	case env.Text != "":
		h.feishuLegacyCommand(c, &env)
	default:
		c.JSON(http.StatusOK, gin.H{})
	}
}

// feishuMessage handles a message that mentions the bot. The reply is posted into the chat.
func (h *Handler) feishuMessage(c *gin.Context, env *feishuEnvelope) {
	var ev feishuMessageEvent
	if err := json.Unmarshal(env.Event, &ev); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event"})
		return
	}
	c.JSON(http.StatusOK, gin.H{})
	if ev.Message.MessageType != "text" {
		return
	}
	var content struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal([]byte(ev.Message.Content), &content); err != nil {
		h.logger.Debug("feishu message content undecodable", zap.Error(err))
		return
	}
	tenant := env.Header.TenantKey
	if tenant == "" {
		tenant = ev.Sender.TenantKey
	}
	reply := h.feishuCommand(c, content.Text, ev.Message.ChatID, tenant, ev.Sender.SenderID.OpenID)
	if h.feishu == nil {
		h.logger.Info("feishu reply not sent; no replier configured", zap.String("reply", reply))
		return
	}
	if err := h.feishu.SendText(c.Request.Context(), ev.Message.ChatID, reply); err != nil {
		h.logger.Warn("feishu reply failed", zap.String("chat_id", ev.Message.ChatID), zap.Error(err))
	}
}

// feishuLegacyCommand handles the {token, text, user_id, chat_id} form; the reply is the response body.
func (h *Handler) feishuLegacyCommand(c *gin.Context, env *feishuEnvelope) {
	c.JSON(http.StatusOK, gin.H{"text": h.feishuCommand(c, env.Text, env.ChatID, env.TenantKey, env.UserID)})
}

func (h *Handler) feishuCommand(c *gin.Context, text, chatID, tenant, operator string) string {
	cmd, ok := correlator.ParseCommand(text)
	if !ok {
		return correlator.ReplyUnknownCommand
	}
	in := correlator.Inbound{
		Kind:     correlator.KindCommand,
		Platform: responderdomain.PlatformFeishu,
		Command:  cmd,
		Destination: responderdomain.Destination{
			Platform:    responderdomain.PlatformFeishu,
			ChannelID:   chatID,
			WorkspaceID: tenant,
			OperatorID:  operator,
		},
	}
	if cmd.Name == linkerdomain.CommandName {
		// Feishu sends with the app's own credentials when no tenant token is stored.
		cred, err := h.credential(c.Request.Context(), responderdomain.PlatformFeishu, tenant)
		if err != nil {
			h.logger.Error("load feishu installation", zap.String("tenant_key", tenant), zap.Error(err))
			return correlator.ReplyLinkFailed
		}
		in.Credential = cred
	}
	return h.correlator.Handle(c.Request.Context(), in).Text
}

func (h *Handler) feishuCardV1(c *gin.Context, env *feishuEnvelope) {
	reply := h.feishuAnswer(c, env.Action, env.OpenMessageID, env.OpenID)
	c.JSON(http.StatusOK, toast(reply))
}

func (h *Handler) feishuCardV2(c *gin.Context, env *feishuEnvelope) {
	var ev feishuCardEvent
	if err := json.Unmarshal(env.Event, &ev); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event"})
		return
	}
	reply := h.feishuAnswer(c, &ev.Action, ev.Context.OpenMessageID, ev.Operator.OpenID)
	c.JSON(http.StatusOK, toast(reply))
}

func (h *Handler) feishuAnswer(c *gin.Context, action *feishuAction, messageID, operator string) string {
	return h.correlator.Handle(c.Request.Context(), correlator.Inbound{
		Kind:     correlator.KindAnswer,
		Platform: responderdomain.PlatformFeishu,
		Answer: correlator.Answer{
			RequestID:  action.Value.RequestID,
			Marker:     action.Value.Action,
			Value:      action.InputValue,
			MessageID:  messageID,
			OperatorID: operator,
		},
	}).Text
}

func toast(text string) gin.H {
	return gin.H{"toast": gin.H{"type": "info", "content": text}}
}
