package domain

import (
	"crypto/rand"
	"encoding/base64"
	"time"

	responderdomain "otp-relay/internal/responder/domain"
)

// CommandName is the chat command that consumes a linker.
const CommandName = "cfa-link"

// Linker is a single-use token that binds the chat it is typed into to a project.
type Linker struct {
	Token     string
	ProjectID string
	Platform  responderdomain.Platform
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Command returns the text the operator types in chat.
func (l *Linker) Command() string {
	return "/" + CommandName + " " + l.Token
}

// ExpiredAt reports whether the linker can no longer be used at now.
func (l *Linker) ExpiredAt(now time.Time) bool {
	return !now.Before(l.ExpiresAt)
}

// NewToken returns a random URL-safe token with 256 bits of entropy.
func NewToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
