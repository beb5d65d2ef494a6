package domain

import (
	"time"

	responderdomain "otp-relay/internal/responder/domain"
)

// Project is the aggregate root: one repository whose publishing pipeline asks for OTPs.
// At most one responder config is referenced at a time, selected by ResponderPlatform.
type Project struct {
	ID                string
	RepoOwner         string
	RepoName          string
	SecretHash        string
	ResponderPlatform responderdomain.Platform
	SlackConfigID     string
	FeishuConfigID    string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// FullName returns owner/name.
func (p *Project) FullName() string {
	return p.RepoOwner + "/" + p.RepoName
}

// ActiveConfigID returns the id of the config the discriminator points at, or "" when
// no responder is bound or the pointer is missing.
func (p *Project) ActiveConfigID() string {
	switch p.ResponderPlatform {
	case responderdomain.PlatformSlack:
		return p.SlackConfigID
	case responderdomain.PlatformFeishu:
		return p.FeishuConfigID
	}
	return ""
}
