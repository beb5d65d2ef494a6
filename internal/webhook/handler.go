// Package webhook receives chat platform callbacks over HTTP, authenticates them, normalizes
// them into correlator.Inbound values, and renders the correlator's reply in each platform's shape.
package webhook

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"otp-relay/internal/correlator"
	responderdomain "otp-relay/internal/responder/domain"
)

// maxBodyBytes bounds callback bodies; real payloads are a few KiB.
const maxBodyBytes = 1 << 20

// ReplyNotInstalled is shown when a link command arrives from a workspace without a stored credential.
const ReplyNotInstalled = "This workspace has not installed the app yet. Install it, then run the command again."

// Correlator handles normalized callbacks.
type Correlator interface {
	Handle(ctx context.Context, in correlator.Inbound) correlator.Reply
}

// Installations looks up stored workspace credentials.
type Installations interface {
	GetInstallation(ctx context.Context, platform responderdomain.Platform, workspaceID string) (*responderdomain.Installation, error)
}

// FeishuReplier posts a plain text message into a Feishu chat.
type FeishuReplier interface {
	SendText(ctx context.Context, chatID, text string) error
}

// Config holds the secrets used to authenticate callbacks. An empty secret disables the check
// for that platform.
type Config struct {
	SlackSigningSecret      string
	FeishuVerificationToken string
}

// Handler serves the webhook routes.
type Handler struct {
	correlator    Correlator
	installations Installations
	feishu        FeishuReplier
	cfg           Config
	logger        *zap.Logger
	// slackReply posts to an interaction's response_url.
	slackReply slackReplyFunc
}

// NewHandler returns a Handler. feishu may be nil; replies to Feishu mentions are then only logged.
func NewHandler(c Correlator, installations Installations, feishu FeishuReplier, cfg Config, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		correlator:    c,
		installations: installations,
		feishu:        feishu,
		cfg:           cfg,
		logger:        logger.Named("webhook"),
		slackReply:    postSlackReply,
	}
}

// Register mounts the webhook routes under /webhooks.
func (h *Handler) Register(r gin.IRouter) {
	g := r.Group("/webhooks")
	g.POST("/slack/commands", h.SlackCommand)
	g.POST("/slack/interactions", h.SlackInteraction)
	g.POST("/feishu/events", h.FeishuEvent)
}

// credential returns the workspace's stored access token, or "" when none is stored.
func (h *Handler) credential(ctx context.Context, platform responderdomain.Platform, workspaceID string) (string, error) {
	if h.installations == nil || workspaceID == "" {
		return "", nil
	}
	inst, err := h.installations.GetInstallation(ctx, platform, workspaceID)
	if err != nil || inst == nil {
		return "", err
	}
	return inst.AccessToken, nil
}

func readBody(c *gin.Context) ([]byte, bool) {
	body, err := readLimited(c.Request)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return nil, false
	}
	return body, true
}
