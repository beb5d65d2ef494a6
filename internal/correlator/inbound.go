// Package correlator turns normalized chat callbacks into linking handshakes or OTP answers and
// produces the reply shown in chat.
package correlator

import (
	"regexp"
	"strings"

	responderdomain "otp-relay/internal/responder/domain"
)

// Kind says which part of Inbound is meaningful.
type Kind int

const (
	// KindCommand is a slash command or a command typed while mentioning the bot.
	KindCommand Kind = iota + 1
	// KindAnswer is a value submitted through an OTP card's input.
	KindAnswer
)

// Command is a parsed chat command.
type Command struct {
	Name string
	Args []string
}

// Answer is a value submitted through an OTP card.
type Answer struct {
	RequestID string
	// Marker is the action marker the card attached to its input.
	Marker string
	Value  string
	// MessageID is the platform id of the message that carried the input.
	MessageID  string
	OperatorID string
}

// Inbound is the one shape every platform callback is normalized into.
type Inbound struct {
	Kind        Kind
	Platform    responderdomain.Platform
	Command     Command
	Destination responderdomain.Destination
	Answer      Answer
	// Credential is the installation access token of the workspace the callback came from.
	Credential string
}

// Reply is the text shown back to the operator.
type Reply struct {
	Text string
}

var mentionPlaceholder = regexp.MustCompile(`@_user_\d+`)

// ParseCommand parses command text from either ingress shape: Slack's "/cfa-link TOKEN" or
// Feishu's "@_user_1 cfa-link TOKEN". It reports false when nothing is left after stripping.
func ParseCommand(text string) (Command, bool) {
	fields := strings.Fields(mentionPlaceholder.ReplaceAllString(text, " "))
	if len(fields) == 0 {
		return Command{}, false
	}
	name := strings.ToLower(strings.TrimPrefix(fields[0], "/"))
	if name == "" {
		return Command{}, false
	}
	return Command{Name: name, Args: fields[1:]}, true
}
