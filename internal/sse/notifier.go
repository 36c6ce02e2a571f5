package sse

import (
	"errors"
	"time"

	"github.com/GTDGit/elit_catalog/internal/service"
	"github.com/GTDGit/elit_catalog/pkg/elit"
)

// ProgressData is the payload of a catalog.progress event.
type ProgressData struct {
	Loaded int `json:"loaded"`
	Total  int `json:"total"`
}

// ErrorData is the payload of a catalog.error event.
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// HubPresenter implements service.Presenter by broadcasting through the Hub.
type HubPresenter struct {
	hub *Hub
}

// NewHubPresenter creates a presenter backed by the given Hub.
func NewHubPresenter(hub *Hub) *HubPresenter {
	return &HubPresenter{hub: hub}
}

func (p *HubPresenter) RenderPage(view service.PageView) {
	p.broadcast(EventCatalogPage, view)
}

func (p *HubPresenter) RenderProgress(loaded, total int) {
	p.broadcast(EventCatalogProgress, ProgressData{Loaded: loaded, Total: total})
}

func (p *HubPresenter) RenderError(err error) {
	p.broadcast(EventCatalogError, ErrorData{Code: ErrorCode(err), Message: err.Error()})
}

func (p *HubPresenter) broadcast(eventType EventType, data any) {
	if p.hub.ClientCount() == 0 {
		return
	}
	p.hub.Broadcast(&Event{Event: eventType, Data: data, Timestamp: time.Now()})
}

// ErrorCode maps a load failure onto a stable code for the UI.
func ErrorCode(err error) string {
	var apiErr *elit.APIError
	var terr *elit.TransportError
	switch {
	case errors.Is(err, elit.ErrAuthentication):
		return "AUTHENTICATION_FAILED"
	case errors.As(err, &apiErr):
		return "API_ERROR"
	case errors.As(err, &terr):
		return "TRANSPORT_ERROR"
	default:
		return "LOAD_FAILED"
	}
}
