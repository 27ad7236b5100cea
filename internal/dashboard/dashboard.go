// Package dashboard implements the HTTP operator surface: read-only
// endpoints for active alerts, derived status category, stream/event
// history, and host metrics; a /ws/alerts WebSocket push feed; and an
// admin-gated synthetic-alert injection endpoint for exercising the full
// pipeline without a real broadcast. It is the one place in the pipeline
// that actually mounts gin.Engine, grounded on internal/radio/server.go's
// http.Server lifecycle and internal/radio/middleware.go's security
// headers and bearer-auth middleware shapes (both otherwise unused by the
// teacher's own stdlib-based server).
package dashboard

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wx-endec/eas-listener/internal/alertmgr"
	"github.com/wx-endec/eas-listener/internal/auth"
	"github.com/wx-endec/eas-listener/internal/monitor"
)

// Config is the dashboard's static configuration.
type Config struct {
	BindAddr string
}

// Server wraps a gin.Engine in an http.Server with the same graceful
// start/shutdown shape as internal/radio.Server.Start.
type Server struct {
	httpServer *http.Server
}

// New builds the dashboard's route table and binds it to cfg.BindAddr.
func New(cfg Config, mgr *alertmgr.Manager, hub *monitor.Hub, authInstance *auth.Auth) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), securityHeaders())

	h := &handlers{mgr: mgr, hub: hub, auth: authInstance}

	engine.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	engine.POST("/api/auth/login", h.login)
	engine.GET("/api/auth/verify", authRequired(authInstance), h.verifyToken)

	engine.GET("/api/alerts", h.alerts)
	engine.GET("/api/status", h.status)
	engine.GET("/api/events", h.events)
	engine.GET("/api/metrics", h.metrics)
	engine.GET("/ws/alerts", h.wsAlerts)

	engine.POST("/api/test-alert", authRequired(authInstance), h.testAlert)

	return &Server{
		httpServer: &http.Server{
			Addr:           cfg.BindAddr,
			Handler:        engine,
			ReadTimeout:    10 * time.Second,
			WriteTimeout:   0, // the WebSocket route streams indefinitely
			IdleTimeout:    60 * time.Second,
			MaxHeaderBytes: 1 << 20,
		},
	}
}

// Start runs the dashboard until ctx is canceled, then shuts down
// gracefully with a 5-second deadline.
func (s *Server) Start(ctx context.Context) error {
	errChan := make(chan error, 1)

	go func() {
		slog.Info("dashboard: HTTP server starting", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	}
}
