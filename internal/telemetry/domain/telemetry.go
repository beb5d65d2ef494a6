package domain

import (
	"encoding/json"
	"time"
)

// Lifecycle event types.
const (
	EventRequestCreated    = "otp_request_created"
	EventRequestSent       = "otp_request_sent"
	EventRequestSendFailed = "otp_request_send_failed"
	EventRequestResponded  = "otp_request_responded"
	EventRequestExpired    = "otp_request_expired"
	EventRequestValidated  = "otp_request_validated"
	EventRequestInvalid    = "otp_request_invalidated"
	EventResponderLinked   = "responder_linked"
	EventGRPCRequest       = "grpc_request"
)

// Event is one lifecycle or request event. It is the JSON value written to Kafka and pushed to Loki.
type Event struct {
	ProjectID string          `json:"project_id"`
	RequestID string          `json:"request_id,omitempty"`
	EventType string          `json:"event_type"`
	Source    string          `json:"source"`
	Platform  string          `json:"platform,omitempty"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}
