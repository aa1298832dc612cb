package types

import "time"

// EventType represents the type of real-time event
type EventType string

const (
	EventUploadInitiated EventType = "upload.initiated"
	EventUploadCompleted EventType = "upload.completed"
	EventUploadFailed    EventType = "upload.failed"
	EventUploadCancelled EventType = "upload.cancelled"
	EventMediaDeleted    EventType = "media.deleted"
)

// Event represents a real-time event that can be sent over WebSocket
type Event struct {
	Type      EventType   `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp string      `json:"timestamp"`
}

// UploadEvent describes a lifecycle transition of one media upload
type UploadEvent struct {
	MediaID   string `json:"media_id"`
	TenantID  string `json:"tenant_id"`
	Status    string `json:"status"`
	SizeBytes int64  `json:"size_bytes,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// NewEvent creates a new event with the current timestamp
func NewEvent(eventType EventType, data interface{}) *Event {
	return &Event{
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}
