package domain

import "time"

// State is the lifecycle state of an OTP request. States only move forward.
type State string

const (
	// StateCreated: the request exists and no card has been delivered yet.
	StateCreated State = "created"
	// StateAwaitingResponse: a card was sent and its message id recorded.
	StateAwaitingResponse State = "awaiting_response"
	// StateValidated: the pipeline confirmed the request is still wanted; answers are accepted.
	StateValidated State = "validated"
	StateResponded State = "responded"
	StateExpired   State = "expired"
	StateInvalid   State = "invalid"
)

// Valid reports whether s is a known state.
func (s State) Valid() bool {
	switch s {
	case StateCreated, StateAwaitingResponse, StateValidated, StateResponded, StateExpired, StateInvalid:
		return true
	}
	return false
}

// Terminal reports whether no further transition is possible from s.
func (s State) Terminal() bool {
	return s == StateResponded || s == StateExpired || s == StateInvalid
}

var transitions = map[State][]State{
	StateCreated:          {StateAwaitingResponse, StateValidated, StateExpired, StateInvalid},
	StateAwaitingResponse: {StateValidated, StateExpired, StateInvalid},
	StateValidated:        {StateResponded, StateExpired, StateInvalid},
}

// CanTransition reports whether from → to is an allowed forward transition.
func CanTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// RequestInformation describes the pipeline run that asked for the OTP.
type RequestInformation struct {
	Description string
	URL         string
}

// Request is one OTP approval request.
type Request struct {
	ID          string
	ProjectID   string
	State       State
	Response    string
	RespondedAt *time.Time
	// MessageID is the platform id of the card carrying the answer widget. Once set it never
	// changes and is the only value an inbound answer is authenticated against.
	MessageID          string
	ChannelID          string
	UserThatResponded  string
	RequestDescription string
	RequestURL         string
	CreatedAt          time.Time
	UpdatedAt          time.Time
	ExpiresAt          time.Time
}

// Information returns the request source, or nil when none was supplied.
func (r *Request) Information() *RequestInformation {
	if r.RequestDescription == "" && r.RequestURL == "" {
		return nil
	}
	return &RequestInformation{Description: r.RequestDescription, URL: r.RequestURL}
}

// ExpiredAt reports whether the request's deadline has passed at now.
func (r *Request) ExpiredAt(now time.Time) bool {
	return !r.ExpiresAt.IsZero() && !now.Before(r.ExpiresAt)
}
