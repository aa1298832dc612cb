package events

import (
	"github.com/princekumarofficial/course-media-service/internal/types"
)

// Publisher interface for publishing upload lifecycle events
type Publisher interface {
	PublishUploadEvent(uploaderID string, eventType types.EventType, data *types.UploadEvent) error
}

// EventPublisher implements the Publisher interface
type EventPublisher struct {
	hub WebSocketHub
}

// WebSocketHub interface for the WebSocket hub
type WebSocketHub interface {
	BroadcastToUser(userID string, event *types.Event)
	IsUserConnected(userID string) bool
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(hub WebSocketHub) *EventPublisher {
	return &EventPublisher{
		hub: hub,
	}
}

// PublishUploadEvent notifies the uploader's open connections of a transition.
// Nothing is sent when the uploader is offline.
func (p *EventPublisher) PublishUploadEvent(uploaderID string, eventType types.EventType, data *types.UploadEvent) error {
	if uploaderID == "" || !p.hub.IsUserConnected(uploaderID) {
		return nil
	}

	p.hub.BroadcastToUser(uploaderID, types.NewEvent(eventType, data))
	return nil
}

// Discard drops every event. Used when no hub is configured.
type Discard struct{}

func (Discard) PublishUploadEvent(string, types.EventType, *types.UploadEvent) error { return nil }
