package messaging

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/civicseva/civic-complaints/internal/events"
)

func TestRoutingKey(t *testing.T) {
	assert.Equal(t, "complaint.created", RoutingKey(events.EventComplaintCreated))
	assert.Equal(t, "complaint.status.updated", RoutingKey(events.EventComplaintStatusChanged))
	assert.Equal(t, "complaint.custom", RoutingKey(events.EventType("custom")))
}

func TestEveryEventHasARoutingKey(t *testing.T) {
	for _, et := range events.AllEventTypes {
		_, ok := routingKeys[et]
		assert.True(t, ok, string(et))
	}
}
