package correlator

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"otp-relay/internal/linker"
	linkerdomain "otp-relay/internal/linker/domain"
	otpdomain "otp-relay/internal/otp/domain"
	"otp-relay/internal/otp/service"
	projectdomain "otp-relay/internal/project/domain"
	"otp-relay/internal/responder"
	responderdomain "otp-relay/internal/responder/domain"
)

// Chat replies.
const (
	ReplyUnknownCommand = "Unknown command."
	ReplyMissingToken   = "Missing link token. Usage: /" + linkerdomain.CommandName + " <token>"
	ReplyTokenInvalid   = "Link token invalid or already used."
	ReplyTokenExpired   = "This link token has expired. Generate a new one and try again."
	ReplyWrongPlatform  = "This link token was issued for another chat platform."
	ReplyLinkFailed     = "Failed to link this chat. Please try again."
	ReplyAnswerFailed   = "Something went wrong. Please try again."
	ReplyAnswerAccepted = "Thanks! The OTP was passed on to the release pipeline."
)

// Linker redeems link tokens.
type Linker interface {
	Link(ctx context.Context, token string, dest responderdomain.Destination, credential string) (*projectdomain.Project, error)
}

// Answerer commits OTP answers.
type Answerer interface {
	Respond(ctx context.Context, a service.Answer) (*otpdomain.Request, error)
}

// Correlator dispatches Inbound callbacks. It holds no state of its own.
type Correlator struct {
	linker  Linker
	answers Answerer
	logger  *zap.Logger
}

// New returns a Correlator.
func New(l Linker, answers Answerer, logger *zap.Logger) *Correlator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Correlator{linker: l, answers: answers, logger: logger.Named("correlator")}
}

// Handle applies in and returns the reply for the operator. It never fails: every error is
// turned into a reply and logged.
func (c *Correlator) Handle(ctx context.Context, in Inbound) Reply {
	switch in.Kind {
	case KindCommand:
		if in.Command.Name == linkerdomain.CommandName {
			return c.link(ctx, in)
		}
	case KindAnswer:
		if in.Answer.Marker == responder.CommandMarker {
			return c.answer(ctx, in)
		}
	}
	c.logger.Debug("unknown inbound", zap.String("platform", string(in.Platform)), zap.String("command", in.Command.Name))
	return Reply{Text: ReplyUnknownCommand}
}

func (c *Correlator) link(ctx context.Context, in Inbound) Reply {
	token := ""
	if len(in.Command.Args) > 0 {
		token = in.Command.Args[0]
	}
	dest := in.Destination
	dest.Platform = in.Platform
	p, err := c.linker.Link(ctx, token, dest, in.Credential)
	if err == nil {
		return Reply{Text: fmt.Sprintf("Linked %s to this chat. OTP requests will be posted here.", p.FullName())}
	}

	var text string
	switch {
	case errors.Is(err, linker.ErrMissingToken):
		text = ReplyMissingToken
	case errors.Is(err, linker.ErrLinkerNotFound):
		text = ReplyTokenInvalid
	case errors.Is(err, linker.ErrLinkerExpired):
		text = ReplyTokenExpired
	case errors.Is(err, linker.ErrPlatformMismatch):
		text = ReplyWrongPlatform
	default:
		c.logger.Error("link failed", zap.String("platform", string(in.Platform)),
			zap.String("channel_id", dest.ChannelID), zap.Error(err))
		return Reply{Text: ReplyLinkFailed}
	}
	c.logger.Debug("link rejected", zap.String("platform", string(in.Platform)), zap.Error(err))
	return Reply{Text: text}
}

func (c *Correlator) answer(ctx context.Context, in Inbound) Reply {
	_, err := c.answers.Respond(ctx, service.Answer{
		RequestID:  in.Answer.RequestID,
		MessageID:  in.Answer.MessageID,
		Value:      in.Answer.Value,
		OperatorID: in.Answer.OperatorID,
		Platform:   in.Platform,
	})
	if err == nil {
		return Reply{Text: ReplyAnswerAccepted}
	}
	var rej *otpdomain.Rejection
	if errors.As(err, &rej) {
		return Reply{Text: rej.Message}
	}
	c.logger.Error("answer failed", zap.String("request_id", in.Answer.RequestID), zap.Error(err))
	return Reply{Text: ReplyAnswerFailed}
}
