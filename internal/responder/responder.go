// Package responder defines the capability every chat backend implements to ask a human for an
// OTP, and selects the backend bound to a project.
package responder

import (
	"context"
	"errors"
	"fmt"

	otpdomain "otp-relay/internal/otp/domain"
	projectdomain "otp-relay/internal/project/domain"
	"otp-relay/internal/responder/domain"
)

// CommandMarker is the action marker carried by the answer widget of every OTP card.
const CommandMarker = "otp-submit"

// ErrNotConfigured is returned by ForProject when the project has no usable responder.
var ErrNotConfigured = errors.New("project has no responder configured")

// ErrConfigMissing is wrapped in a TransportError when the bound config row cannot be found.
var ErrConfigMissing = errors.New("responder config not found")

// Responder sends an OTP request card to the chat destination bound to a project.
type Responder interface {
	Platform() domain.Platform
	// RequestOTP sends the card and records its message id on the request. Every failure is a
	// *TransportError; the request keeps its pre-send state.
	RequestOTP(ctx context.Context, project *projectdomain.Project, req *otpdomain.Request, info *otpdomain.RequestInformation) error
}

// Recorder stores the platform message id of a delivered card on its request.
type Recorder interface {
	RecordMessage(ctx context.Context, requestID, messageID, channelID string) error
}

// Registry maps each platform to its Responder.
type Registry map[domain.Platform]Responder

// NewRegistry indexes responders by Platform. Nil responders are skipped.
func NewRegistry(responders ...Responder) Registry {
	r := make(Registry, len(responders))
	for _, rs := range responders {
		if rs != nil {
			r[rs.Platform()] = rs
		}
	}
	return r
}

// ForProject returns the Responder selected by the project's platform discriminator.
func ForProject(p *projectdomain.Project, registry Registry) (Responder, error) {
	if p == nil || p.ResponderPlatform == domain.PlatformNone || p.ActiveConfigID() == "" {
		return nil, ErrNotConfigured
	}
	r, ok := registry[p.ResponderPlatform]
	if !ok {
		return nil, fmt.Errorf("%w: no %s responder registered", ErrNotConfigured, p.ResponderPlatform)
	}
	return r, nil
}

// TransportError reports a failed delivery: config lookup, network, platform rejection, or the
// message id write after a successful send.
type TransportError struct {
	Platform domain.Platform
	Op       string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s responder: %s: %v", e.Platform, e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Explanation is the opening text of every OTP card.
func Explanation(p *projectdomain.Project) string {
	return fmt.Sprintf("Attention! The release pipeline needs a 2FA OTP token to publish a new release of %s.", p.FullName())
}
