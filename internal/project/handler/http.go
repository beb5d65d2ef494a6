// Package handler serves the operator admin API for projects and their responder bindings.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"otp-relay/internal/audit"
	auditdomain "otp-relay/internal/audit/domain"
	"otp-relay/internal/linker"
	linkerdomain "otp-relay/internal/linker/domain"
	"otp-relay/internal/project/domain"
	"otp-relay/internal/project/repository"
	responderdomain "otp-relay/internal/responder/domain"
	responderrepo "otp-relay/internal/responder/repository"
	"otp-relay/internal/security"
	"otp-relay/internal/server/middleware"
)

// Projects persists projects.
type Projects interface {
	GetByID(ctx context.Context, id string) (*domain.Project, error)
	Create(ctx context.Context, p *domain.Project) error
}

// Responders reads and edits responder configs.
type Responders interface {
	GetSlackConfig(ctx context.Context, id string) (*responderdomain.SlackConfig, error)
	GetFeishuConfig(ctx context.Context, id string) (*responderdomain.FeishuConfig, error)
	UpdateDestination(ctx context.Context, projectID string, platform responderdomain.Platform, destinationID, userToMention string) error
	Reset(ctx context.Context, projectID string) error
}

// Linkers issues link tokens.
type Linkers interface {
	Ensure(ctx context.Context, projectID string, platform responderdomain.Platform) (*linkerdomain.Linker, error)
}

// SecretHasher hashes project secrets (e.g. *security.Hasher).
type SecretHasher interface {
	Hash(secret []byte) (string, error)
}

// Handler serves /api/projects.
type Handler struct {
	projects   Projects
	responders Responders
	linkers    Linkers
	hasher     SecretHasher
	audit      audit.AuditLogger
	logger     *zap.Logger
	now        func() time.Time
}

// NewHandler returns a Handler. auditLogger may be nil.
func NewHandler(projects Projects, responders Responders, linkers Linkers, hasher SecretHasher, auditLogger audit.AuditLogger, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		projects:   projects,
		responders: responders,
		linkers:    linkers,
		hasher:     hasher,
		audit:      auditLogger,
		logger:     logger.Named("project_api"),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Register mounts the project routes on an authenticated group.
func (h *Handler) Register(g gin.IRouter) {
	g.POST("/projects", h.Create)
	g.GET("/projects/:id", h.Get)
	g.POST("/projects/:id/linkers/:platform", h.CreateLinker)
	g.PATCH("/projects/:id/responders/:platform", h.UpdateResponder)
	g.DELETE("/projects/:id/responders", h.ResetResponders)
}

type createProjectRequest struct {
	RepoOwner string `json:"repo_owner" binding:"required"`
	RepoName  string `json:"repo_name" binding:"required"`
}

type responderView struct {
	Platform      string `json:"platform"`
	DestinationID string `json:"destination_id"`
	WorkspaceID   string `json:"workspace_id,omitempty"`
	UserToMention string `json:"user_to_mention,omitempty"`
}

type projectView struct {
	ID        string         `json:"id"`
	RepoOwner string         `json:"repo_owner"`
	RepoName  string         `json:"repo_name"`
	Responder *responderView `json:"responder,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Create registers a project and returns its pipeline secret. The secret is shown only here.
func (h *Handler) Create(c *gin.Context) {
	var input createProjectRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "repo_owner and repo_name are required"})
		return
	}
	owner, name := strings.TrimSpace(input.RepoOwner), strings.TrimSpace(input.RepoName)
	if owner == "" || name == "" || strings.Contains(owner, "/") || strings.Contains(name, "/") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid repository name"})
		return
	}
	secret, err := security.NewProjectSecret()
	if err != nil {
		h.internal(c, "generate secret", err)
		return
	}
	hash, err := h.hasher.Hash([]byte(secret))
	if err != nil {
		h.internal(c, "hash secret", err)
		return
	}
	p := &domain.Project{ID: uuid.NewString(), RepoOwner: owner, RepoName: name, SecretHash: hash, CreatedAt: h.now()}
	if err := h.projects.Create(c.Request.Context(), p); err != nil {
		if errors.Is(err, repository.ErrDuplicateRepo) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		h.internal(c, "create project", err)
		return
	}
	h.logAudit(c, p.ID, auditdomain.ActionCreateProject, auditdomain.ResourceProject, map[string]string{"repo": p.FullName()})
	c.JSON(http.StatusCreated, gin.H{"project": h.view(c, p), "secret": secret})
}

// Get returns a project and its bound responder.
func (h *Handler) Get(c *gin.Context) {
	p, ok := h.load(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.view(c, p))
}

// CreateLinker returns the project's pending link token for the platform, creating one if needed.
func (h *Handler) CreateLinker(c *gin.Context) {
	platform, ok := platformParam(c)
	if !ok {
		return
	}
	l, err := h.linkers.Ensure(c.Request.Context(), c.Param("id"), platform)
	if err != nil {
		if errors.Is(err, linker.ErrProjectNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
			return
		}
		h.internal(c, "ensure linker", err)
		return
	}
	h.logAudit(c, l.ProjectID, auditdomain.ActionCreateLinker, auditdomain.ResourceLinker, map[string]string{"platform": string(platform)})
	c.JSON(http.StatusOK, gin.H{
		"token":      l.Token,
		"platform":   l.Platform,
		"command":    l.Command(),
		"expires_at": l.ExpiresAt,
	})
}

type updateResponderRequest struct {
	DestinationID string  `json:"destination_id"`
	UserToMention *string `json:"user_to_mention"`
}

// UpdateResponder edits where the bound config delivers and whom it mentions.
// Omitted fields keep their current values.
func (h *Handler) UpdateResponder(c *gin.Context) {
	platform, ok := platformParam(c)
	if !ok {
		return
	}
	var input updateResponderRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	p, ok := h.load(c)
	if !ok {
		return
	}
	current := h.responder(c, p)
	if current == nil || current.Platform != string(platform) {
		c.JSON(http.StatusConflict, gin.H{"error": responderrepo.ErrNotBound.Error()})
		return
	}
	dest := strings.TrimSpace(input.DestinationID)
	if dest == "" {
		dest = current.DestinationID
	}
	mention := current.UserToMention
	if input.UserToMention != nil {
		mention = strings.TrimSpace(*input.UserToMention)
	}
	if err := h.responders.UpdateDestination(c.Request.Context(), p.ID, platform, dest, mention); err != nil {
		switch {
		case errors.Is(err, responderrepo.ErrProjectNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
		case errors.Is(err, responderrepo.ErrNotBound):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			h.internal(c, "update responder", err)
		}
		return
	}
	h.logAudit(c, p.ID, auditdomain.ActionUpdateConfig, auditdomain.ResourceResponder,
		map[string]string{"platform": string(platform), "destination_id": dest})
	c.JSON(http.StatusOK, h.view(c, p))
}

// ResetResponders unbinds the project from every chat.
func (h *Handler) ResetResponders(c *gin.Context) {
	id := c.Param("id")
	if err := h.responders.Reset(c.Request.Context(), id); err != nil {
		if errors.Is(err, responderrepo.ErrProjectNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
			return
		}
		h.internal(c, "reset responders", err)
		return
	}
	h.logAudit(c, id, auditdomain.ActionResetConfigs, auditdomain.ResourceResponder, nil)
	c.Status(http.StatusNoContent)
}

func (h *Handler) load(c *gin.Context) (*domain.Project, bool) {
	p, err := h.projects.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.internal(c, "load project", err)
		return nil, false
	}
	if p == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
		return nil, false
	}
	return p, true
}

// view re-reads the project so the response reflects writes made by this request.
func (h *Handler) view(c *gin.Context, p *domain.Project) projectView {
	if fresh, err := h.projects.GetByID(c.Request.Context(), p.ID); err == nil && fresh != nil {
		p = fresh
	}
	return projectView{
		ID:        p.ID,
		RepoOwner: p.RepoOwner,
		RepoName:  p.RepoName,
		Responder: h.responder(c, p),
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func (h *Handler) responder(c *gin.Context, p *domain.Project) *responderView {
	id := p.ActiveConfigID()
	if id == "" {
		return nil
	}
	ctx := c.Request.Context()
	switch p.ResponderPlatform {
	case responderdomain.PlatformSlack:
		cfg, err := h.responders.GetSlackConfig(ctx, id)
		if err != nil || cfg == nil {
			h.logger.Warn("load slack config", zap.String("project_id", p.ID), zap.Error(err))
			return nil
		}
		return &responderView{Platform: string(p.ResponderPlatform), DestinationID: cfg.ChannelID, WorkspaceID: cfg.TeamID, UserToMention: cfg.UserToMention}
	case responderdomain.PlatformFeishu:
		cfg, err := h.responders.GetFeishuConfig(ctx, id)
		if err != nil || cfg == nil {
			h.logger.Warn("load feishu config", zap.String("project_id", p.ID), zap.Error(err))
			return nil
		}
		return &responderView{Platform: string(p.ResponderPlatform), DestinationID: cfg.ChatID, WorkspaceID: cfg.TenantKey, UserToMention: cfg.UserToMention}
	}
	return nil
}

func platformParam(c *gin.Context) (responderdomain.Platform, bool) {
	p, err := responderdomain.ParsePlatform(c.Param("platform"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return "", false
	}
	return p, true
}

func (h *Handler) logAudit(c *gin.Context, projectID, action, resource string, meta map[string]string) {
	if h.audit == nil {
		return
	}
	var raw string
	if meta != nil {
		b, _ := json.Marshal(meta)
		raw = string(b)
	}
	h.audit.LogEvent(c.Request.Context(), projectID, middleware.Operator(c), action, resource, raw)
}

func (h *Handler) internal(c *gin.Context, op string, err error) {
	h.logger.Error("admin api: "+op, zap.String("path", c.FullPath()), zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}
