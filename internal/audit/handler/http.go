// Package handler serves a project's audit trail on the admin API.
package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"otp-relay/internal/audit/domain"
)

const (
	defaultLimit = 50
	maxLimit     = 500
)

// Lister reads audit logs (e.g. the audit repository).
type Lister interface {
	ListByProject(ctx context.Context, projectID string, limit, offset int32) ([]*domain.AuditLog, error)
}

// Handler serves GET /projects/:id/audit-logs.
type Handler struct {
	logs   Lister
	logger *zap.Logger
}

// NewHandler returns a Handler.
func NewHandler(logs Lister, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{logs: logs, logger: logger.Named("audit_api")}
}

// Register mounts the audit route on an authenticated group.
func (h *Handler) Register(g gin.IRouter) {
	g.GET("/projects/:id/audit-logs", h.List)
}

type auditLogView struct {
	ID        string    `json:"id"`
	Actor     string    `json:"actor,omitempty"`
	Action    string    `json:"action"`
	Resource  string    `json:"resource"`
	IP        string    `json:"ip"`
	Metadata  string    `json:"metadata,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// List returns the project's audit logs, newest first. Query: limit (default 50, max 500), offset.
func (h *Handler) List(c *gin.Context) {
	limit, ok := intQuery(c, "limit", defaultLimit)
	if !ok {
		return
	}
	offset, ok := intQuery(c, "offset", 0)
	if !ok {
		return
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	logs, err := h.logs.ListByProject(c.Request.Context(), c.Param("id"), int32(limit), int32(offset))
	if err != nil {
		h.logger.Error("list audit logs", zap.String("project_id", c.Param("id")), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	out := make([]auditLogView, 0, len(logs))
	for _, l := range logs {
		out = append(out, auditLogView{
			ID: l.ID, Actor: l.Actor, Action: l.Action, Resource: l.Resource,
			IP: l.IP, Metadata: l.Metadata, CreatedAt: l.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"audit_logs": out, "limit": limit, "offset": offset})
}

func intQuery(c *gin.Context, key string, fallback int) (int, bool) {
	raw := c.Query(key)
	if raw == "" {
		return fallback, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 || n > 1<<30 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + key})
		return 0, false
	}
	return n, true
}
