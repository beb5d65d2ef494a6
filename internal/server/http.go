package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	healthhandler "otp-relay/internal/health/handler"
	"otp-relay/internal/server/middleware"
)

// Mounter registers its routes on a router group (webhook, project and audit handlers).
type Mounter interface {
	Register(r gin.IRouter)
}

// HTTPDeps holds the dependencies of the HTTP router.
type HTTPDeps struct {
	// Webhooks is mounted unauthenticated; callbacks carry their own signatures.
	Webhooks Mounter
	// Admin handlers are mounted under /api behind operator bearer auth.
	Admin []Mounter
	// Tokens validates operator tokens. If nil, /api is not mounted.
	Tokens middleware.TokenValidator
	// Pinger backs /healthz. Optional.
	Pinger healthhandler.Pinger
	Logger *zap.Logger
}

// NewRouter builds the gin engine serving webhooks, the admin API and /healthz.
func NewRouter(deps HTTPDeps) *gin.Engine {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	r := gin.New()
	r.Use(requestLogger(logger.Named("http")), gin.Recovery(), middleware.ClientIP())

	r.GET("/healthz", func(c *gin.Context) {
		if deps.Pinger != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := deps.Pinger.PingContext(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if deps.Webhooks != nil {
		deps.Webhooks.Register(r)
	}

	if deps.Tokens != nil {
		api := r.Group("/api",
			middleware.OperatorAuth(deps.Tokens),
			middleware.RequireAnyRole(middleware.RoleAdmin, middleware.RoleViewer),
			middleware.RequireWriteRole(middleware.RoleAdmin),
		)
		for _, h := range deps.Admin {
			h.Register(api)
		}
	}
	return r
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("route", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			logger.Warn("request", fields...)
			return
		}
		logger.Debug("request", fields...)
	}
}
