package events

import (
	"testing"

	"github.com/princekumarofficial/course-media-service/internal/types"
	"github.com/stretchr/testify/assert"
)

type fakeHub struct {
	connected map[string]bool
	sent      map[string][]*types.Event
}

func (h *fakeHub) BroadcastToUser(userID string, event *types.Event) {
	h.sent[userID] = append(h.sent[userID], event)
}

func (h *fakeHub) IsUserConnected(userID string) bool {
	return h.connected[userID]
}

func TestPublishUploadEvent(t *testing.T) {
	hub := &fakeHub{connected: map[string]bool{"online": true}, sent: map[string][]*types.Event{}}
	p := NewEventPublisher(hub)

	data := &types.UploadEvent{MediaID: "m-1", TenantID: "tenant-a", Status: "COMPLETED", SizeBytes: 350}
	assert.NoError(t, p.PublishUploadEvent("online", types.EventUploadCompleted, data))
	assert.NoError(t, p.PublishUploadEvent("offline", types.EventUploadCompleted, data))
	assert.NoError(t, p.PublishUploadEvent("", types.EventUploadCompleted, data))

	if assert.Len(t, hub.sent["online"], 1) {
		ev := hub.sent["online"][0]
		assert.Equal(t, types.EventUploadCompleted, ev.Type)
		assert.Equal(t, data, ev.Data)
		assert.NotEmpty(t, ev.Timestamp)
	}
	assert.Empty(t, hub.sent["offline"])
}
