package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/slack-go/slack"
	"go.uber.org/zap"

	"otp-relay/internal/correlator"
	linkerdomain "otp-relay/internal/linker/domain"
	responderdomain "otp-relay/internal/responder/domain"
	slackresponder "otp-relay/internal/responder/slack"
)

type slackReplyFunc func(ctx context.Context, url string, msg *slack.WebhookMessage) error

func postSlackReply(ctx context.Context, url string, msg *slack.WebhookMessage) error {
	return slack.PostWebhookContext(ctx, url, msg)
}

// verifySlack checks the request signature against the signing secret.
func (h *Handler) verifySlack(c *gin.Context, body []byte) bool {
	if h.cfg.SlackSigningSecret == "" {
		return true
	}
	sv, err := slack.NewSecretsVerifier(c.Request.Header, h.cfg.SlackSigningSecret)
	if err == nil {
		_, _ = sv.Write(body)
		err = sv.Ensure()
	}
	if err != nil {
		h.logger.Debug("slack signature rejected", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
		return false
	}
	return true
}

// SlackCommand handles slash commands. The reply is returned as an ephemeral message.
func (h *Handler) SlackCommand(c *gin.Context) {
	body, ok := readBody(c)
	if !ok || !h.verifySlack(c, body) {
		return
	}
	s, err := slack.SlashCommandParse(c.Request)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid slash command"})
		return
	}
	ctx := c.Request.Context()

	cmd, ok := correlator.ParseCommand(s.Command + " " + s.Text)
	if !ok {
		c.JSON(http.StatusOK, ephemeral(correlator.ReplyUnknownCommand))
		return
	}
	in := correlator.Inbound{
		Kind:     correlator.KindCommand,
		Platform: responderdomain.PlatformSlack,
		Command:  cmd,
		Destination: responderdomain.Destination{
			Platform:     responderdomain.PlatformSlack,
			ChannelID:    s.ChannelID,
			WorkspaceID:  s.TeamID,
			EnterpriseID: s.EnterpriseID,
			OperatorID:   s.UserID,
		},
	}
	if cmd.Name == linkerdomain.CommandName {
		cred, err := h.credential(ctx, responderdomain.PlatformSlack, s.TeamID)
		if err != nil {
			h.logger.Error("load slack installation", zap.String("team_id", s.TeamID), zap.Error(err))
			c.JSON(http.StatusOK, ephemeral(correlator.ReplyLinkFailed))
			return
		}
		if cred == "" {
			c.JSON(http.StatusOK, ephemeral(ReplyNotInstalled))
			return
		}
		in.Credential = cred
	}
	c.JSON(http.StatusOK, ephemeral(h.correlator.Handle(ctx, in).Text))
}

// SlackInteraction handles block_actions from the OTP card's input. Slack expects an empty 200;
// the reply goes to the interaction's response_url.
func (h *Handler) SlackInteraction(c *gin.Context) {
	body, ok := readBody(c)
	if !ok || !h.verifySlack(c, body) {
		return
	}
	var cb slack.InteractionCallback
	if err := json.Unmarshal([]byte(c.PostForm("payload")), &cb); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	if cb.Type != slack.InteractionTypeBlockActions {
		c.Status(http.StatusOK)
		return
	}
	ctx := c.Request.Context()
	messageID := cb.Container.MessageTs
	if messageID == "" {
		messageID = cb.Message.Timestamp
	}
	for _, action := range cb.ActionCallback.BlockActions {
		requestID, found := strings.CutPrefix(action.BlockID, slackresponder.BlockIDPrefix)
		if !found {
			continue
		}
		reply := h.correlator.Handle(ctx, correlator.Inbound{
			Kind:     correlator.KindAnswer,
			Platform: responderdomain.PlatformSlack,
			Answer: correlator.Answer{
				RequestID:  requestID,
				Marker:     action.ActionID,
				Value:      action.Value,
				MessageID:  messageID,
				OperatorID: cb.User.ID,
			},
		})
		if cb.ResponseURL != "" {
			if err := h.slackReply(ctx, cb.ResponseURL, ephemeral(reply.Text)); err != nil {
				h.logger.Warn("slack reply failed", zap.String("request_id", requestID), zap.Error(err))
			}
		}
	}
	c.Status(http.StatusOK)
}

func ephemeral(text string) *slack.WebhookMessage {
	return &slack.WebhookMessage{ResponseType: slack.ResponseTypeEphemeral, Text: text}
}
