package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/GTDGit/elit_catalog/internal/service"
	"github.com/GTDGit/elit_catalog/internal/sse"
	"github.com/GTDGit/elit_catalog/internal/utils"
)

var startTime = time.Now()

// HealthHandler provides health endpoint.
type HealthHandler struct {
	session *service.Session
	hub     *sse.Hub
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(session *service.Session, hub *sse.Hub) *HealthHandler {
	return &HealthHandler{session: session, hub: hub}
}

// GetHealth responds with service and catalog status.
func (h *HealthHandler) GetHealth(c *gin.Context) {
	_, authenticated := h.session.Credentials()
	cat := h.session.Catalog()

	catalog := gin.H{
		"scope": cat.Scope,
		"items": cat.Len(),
	}
	if cat.Scope != "" {
		catalog["loadedAt"] = cat.LoadedAt.Format(time.RFC3339)
	}

	utils.Success(c, 200, "Service is healthy", gin.H{
		"status":        "healthy",
		"version":       "1.0.0",
		"uptime":        int(time.Since(startTime).Seconds()),
		"authenticated": authenticated,
		"catalog":       catalog,
		"sseClients":    h.hub.ClientCount(),
	})
}
