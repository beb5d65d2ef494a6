package domain

import (
	"fmt"
	"time"
)

// Platform identifies a chat backend. The empty Platform means no responder is bound.
type Platform string

const (
	PlatformNone   Platform = ""
	PlatformSlack  Platform = "slack"
	PlatformFeishu Platform = "feishu"
)

// ParsePlatform returns the Platform for s, or an error if s names no supported backend.
func ParsePlatform(s string) (Platform, error) {
	switch p := Platform(s); p {
	case PlatformSlack, PlatformFeishu:
		return p, nil
	}
	return PlatformNone, fmt.Errorf("unsupported platform %q", s)
}

// SlackConfig binds a project to a Slack channel.
type SlackConfig struct {
	ID            string
	TeamID        string
	ChannelID     string
	EnterpriseID  string
	UserToMention string
	// BotToken is the installation's bot token captured when the channel was linked.
	BotToken  string
	CreatedAt time.Time
}

// FeishuConfig binds a project to a Feishu group chat.
type FeishuConfig struct {
	ID            string
	ChatID        string
	UserToMention string
	TenantKey     string
	// AppToken is the tenant access token captured when the chat was linked; empty means
	// the app's own credentials are used when sending.
	AppToken  string
	CreatedAt time.Time
}

// Destination describes the chat a link command arrived from.
type Destination struct {
	Platform Platform
	// ChannelID is the Slack channel id or the Feishu chat id.
	ChannelID string
	// WorkspaceID is the Slack team id or the Feishu tenant key.
	WorkspaceID  string
	EnterpriseID string
	// OperatorID is the platform user who issued the command; they become the mention target.
	OperatorID string
}

// Installation is the stored output of a platform's OAuth install flow for one workspace.
type Installation struct {
	Platform    Platform
	WorkspaceID string
	AccessToken string
	UpdatedAt   time.Time
}
