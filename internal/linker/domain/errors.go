package domain

import "errors"

// Sentinel errors for the linking handshake. Each leaves the database untouched.
var (
	ErrLinkerNotFound   = errors.New("link token invalid or already used")
	ErrLinkerExpired    = errors.New("link token expired")
	ErrPlatformMismatch = errors.New("link token was issued for another platform")
)
