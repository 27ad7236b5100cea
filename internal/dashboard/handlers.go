package dashboard

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wx-endec/eas-listener/internal/alertmgr"
	"github.com/wx-endec/eas-listener/internal/auth"
	"github.com/wx-endec/eas-listener/internal/eas"
	"github.com/wx-endec/eas-listener/internal/monitor"
	"github.com/wx-endec/eas-listener/internal/same"
)

// defaultTestHeader is a well-formed but harmless SAME burst ("Required
// Weekly Test" from the WXR originator, addressed to the nationwide
// location code 000000 rather than to any county) used when a
// POST /api/test-alert body omits raw_header.
const defaultTestHeader = "ZCZC-WXR-RWT-000000+0030-0010000-DASHBOARD-"

// handlers holds the dependencies every dashboard route needs. Shaped after
// the teacher's handler.*Handlers types (one struct per route group,
// constructed with its service dependency), collapsed into a single struct
// here since the dashboard's route surface is small.
type handlers struct {
	mgr  *alertmgr.Manager
	hub  *monitor.Hub
	auth *auth.Auth
}

// login handles POST /api/auth/login, identical in shape to the teacher's
// handler.AuthHandlers.Login.
func (h *handlers) login(c *gin.Context) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": "invalid request body"})
		return
	}
	if len(body.Username) == 0 || len(body.Username) > 256 ||
		len(body.Password) == 0 || len(body.Password) > 256 {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": "invalid credentials format"})
		return
	}

	token, err := h.auth.Authenticate(body.Username, body.Password, c.Request.RemoteAddr)
	if err != nil {
		if err == auth.ErrRateLimited {
			remaining := h.auth.RemainingLockout(c.Request.RemoteAddr)
			c.Header("Retry-After", fmt.Sprintf("%d", int(remaining.Seconds())))
			c.JSON(http.StatusTooManyRequests, gin.H{"status": "error", "error": "too many login attempts, please try again later"})
			return
		}
		c.JSON(http.StatusUnauthorized, gin.H{"status": "error", "error": "invalid credentials"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok", "token": token, "username": body.Username})
}

// verifyToken handles GET /api/auth/verify; authRequired has already
// validated the bearer token by the time this runs.
func (h *handlers) verifyToken(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "token is valid"})
}

// alerts handles GET /api/alerts: a read-only snapshot of the active set.
func (h *handlers) alerts(c *gin.Context) {
	snapshot := h.mgr.ActiveAlerts()
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"count":  len(snapshot),
		"alerts": snapshot,
	})
}

// status handles GET /api/status: the derived status-file category plus
// an active-alert count, for a single glanceable dashboard tile.
func (h *handlers) status(c *gin.Context) {
	snapshot := h.mgr.ActiveAlerts()
	c.JSON(http.StatusOK, gin.H{
		"status":         "ok",
		"category":       categoryLabel(eas.Category(snapshot)),
		"active_alerts":  len(snapshot),
		"recent_events":  h.hub.RecentEvents(),
		"server_time":    time.Now().Format(time.RFC3339),
	})
}

func categoryLabel(cat eas.StatusCategory) string {
	switch cat {
	case eas.StatusSevere:
		return "severe"
	case eas.StatusRainy:
		return "rainy"
	default:
		return "neither"
	}
}

// events handles GET /api/events: the monitoring hub's ring-buffered
// stream lifecycle log.
func (h *handlers) events(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "events": h.hub.RecentEvents()})
}

// metrics handles GET /api/metrics: host CPU/memory via gopsutil.
func (h *handlers) metrics(c *gin.Context) {
	m, err := monitor.ReadHostMetrics(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "cpu_percent": m.CPUPercent, "memory_percent": m.MemoryPercent})
}

// testAlert handles POST /api/test-alert (protected): it injects a
// synthetic StartOfMessage event through the full Alert Manager pipeline
// so an operator can exercise recording/webhook/relay without waiting for
// a real broadcast.
func (h *handlers) testAlert(c *gin.Context) {
	var body struct {
		RawHeader   string `json:"raw_header"`
		SourceLabel string `json:"source_label"`
	}
	_ = c.ShouldBindJSON(&body)

	rawHeader := body.RawHeader
	if rawHeader == "" {
		rawHeader = defaultTestHeader
	}
	sourceLabel := body.SourceLabel
	if sourceLabel == "" {
		sourceLabel = "dashboard-test"
	}

	fields, ok := same.ParseHeaderFields(rawHeader)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": "raw_header does not parse as a well-formed ZCZC burst"})
		return
	}

	// HandleStartOfMessage spawns a background fan-out (recording/webhook/
	// relay) that outlives this handler; a request-scoped context would be
	// cancelled the instant we return, tearing down the recording window
	// before it ever starts, so the injected alert uses context.Background
	// instead of c.Request.Context().
	h.mgr.HandleStartOfMessage(context.Background(), alertmgr.StartOfMessageEvent{
		RawHeader:   rawHeader,
		SourceLabel: sourceLabel,
		Fields:      fields,
	})

	c.JSON(http.StatusAccepted, gin.H{"status": "ok", "message": "synthetic alert injected", "raw_header": rawHeader})
}
