package engine

import "context"

// ResponderInput describes who is trying to answer which OTP request.
type ResponderInput struct {
	ProjectID  string
	RepoOwner  string
	RepoName   string
	Platform   string
	RequestID  string
	OperatorID string
	// ChannelID is the chat the card was delivered to.
	ChannelID string
}

// Evaluator decides whether an operator may answer an OTP request.
type Evaluator interface {
	AllowResponder(ctx context.Context, in ResponderInput) (bool, error)
}
