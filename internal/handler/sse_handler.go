package handler

import (
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/elit_catalog/internal/service"
	"github.com/GTDGit/elit_catalog/internal/sse"
	"github.com/GTDGit/elit_catalog/internal/utils"
)

// SSEHandler streams catalog progress, pages and errors to the UI.
type SSEHandler struct {
	hub          *sse.Hub
	session      *service.Session
	pingInterval time.Duration
}

// NewSSEHandler creates a new SSEHandler.
func NewSSEHandler(hub *sse.Hub, session *service.Session) *SSEHandler {
	return &SSEHandler{hub: hub, session: session, pingInterval: 30 * time.Second}
}

// Stream handles GET /v1/catalog/events?token=<jwt>
// EventSource API cannot set custom headers, so JWT is passed via query param.
func (h *SSEHandler) Stream(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		utils.Error(c, 401, "UNAUTHORIZED", "Missing token query parameter")
		return
	}

	claims, err := utils.ValidateJWT(token)
	if err != nil {
		utils.Error(c, 401, "INVALID_TOKEN", "Invalid or expired token")
		return
	}

	clientID := "ui-" + uuid.NewString()

	// SSE headers
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no") // Disable nginx buffering

	client := h.hub.Register(clientID)
	defer h.hub.Unregister(clientID)

	// Send initial connected event with the page the UI should show
	c.SSEvent("connected", gin.H{
		"clientId":  clientID,
		"message":   "SSE connection established",
		"timestamp": time.Now().Format(time.RFC3339),
	})
	initial, err := sse.Encode(&sse.Event{
		Event:     sse.EventCatalogPage,
		Data:      h.session.CurrentPage(),
		Timestamp: time.Now(),
	})
	if err != nil {
		log.Error().Err(err).Msg("Failed to encode initial catalog page")
	} else {
		c.SSEvent(sse.StreamEventName, string(initial))
	}
	c.Writer.Flush()

	log.Info().Str("client_id", clientID).Int("user_id", claims.UserID).Msg("Catalog SSE stream started")

	ping := time.NewTicker(h.pingInterval)
	defer ping.Stop()

	// Stream events
	c.Stream(func(w io.Writer) bool {
		select {
		case data, ok := <-client.Events:
			if !ok {
				return false
			}
			c.SSEvent(sse.StreamEventName, string(data))
			return true
		case <-ping.C:
			c.SSEvent("ping", gin.H{"timestamp": time.Now().Format(time.RFC3339)})
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
