package domain

// RejectionReason classifies why an inbound answer was refused.
type RejectionReason string

const (
	ReasonNotAccepting     RejectionReason = "not_accepting"
	ReasonExpired          RejectionReason = "expired"
	ReasonInvalidFormat    RejectionReason = "invalid_format"
	ReasonMessageMismatch  RejectionReason = "message_mismatch"
	ReasonNotPermitted     RejectionReason = "not_permitted"
	ReasonAlreadyResponded RejectionReason = "already_responded"
)

var rejectionMessages = map[RejectionReason]string{
	ReasonNotAccepting:     "This OTP request is not accepting responses.",
	ReasonExpired:          "This OTP request has expired.",
	ReasonInvalidFormat:    "Invalid OTP format. Please enter the 6-character code.",
	ReasonMessageMismatch:  "Something went wrong. Please try again.",
	ReasonNotPermitted:     "You are not permitted to answer this OTP request.",
	ReasonAlreadyResponded: "This OTP request has already been answered.",
}

// Rejection is returned when an answer fails a guard. Nothing was written when a Rejection
// is returned; Message is safe to show in chat.
type Rejection struct {
	Reason  RejectionReason
	Message string
}

// Reject returns the Rejection for reason with its chat message.
func Reject(reason RejectionReason) *Rejection {
	return &Rejection{Reason: reason, Message: rejectionMessages[reason]}
}

func (r *Rejection) Error() string {
	return "otp answer rejected: " + string(r.Reason)
}
