package domain

import "time"

// Domain actions recorded outside the gRPC audit interceptor.
const (
	ActionLink          = "link"
	ActionRespond       = "respond"
	ActionValidate      = "validate"
	ActionInvalidate    = "invalidate"
	ActionResetConfigs  = "reset"
	ActionUpdateConfig  = "update"
	ActionCreateLinker  = "create"
	ActionCreateProject = "create"
)

// Resources named by audit entries.
const (
	ResourceProject    = "project"
	ResourceOTPRequest = "otp_request"
	ResourceResponder  = "responder"
	ResourceLinker     = "linker"
)

// AuditLog represents an audit event.
type AuditLog struct {
	ID        string
	ProjectID string
	// Actor is the chat operator, admin subject, or pipeline that caused the event; may be empty.
	Actor     string
	Action    string
	Resource  string
	IP        string
	Metadata  string
	CreatedAt time.Time
}
