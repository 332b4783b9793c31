package outbox

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEvent struct {
	Name string `json:"name"`
}

func (e *stubEvent) EventType() string { return "tracking.stub" }

func TestNewEvent(t *testing.T) {
	event, err := NewEvent("SHIP-001", "Shipment", "tracking.shipments", &stubEvent{Name: "x"})
	require.NoError(t, err)

	assert.NotEmpty(t, event.ID)
	assert.Equal(t, "SHIP-001", event.AggregateID)
	assert.Equal(t, "Shipment", event.AggregateType)
	assert.Equal(t, "tracking.stub", event.EventType)
	assert.Equal(t, "tracking.shipments", event.Topic)
	assert.JSONEq(t, `{"name":"x"}`, string(event.Payload))
	assert.False(t, event.IsPublished())
	assert.True(t, event.ShouldRetry())
}

func TestEventRetryBudget(t *testing.T) {
	event, err := NewEvent("SHIP-001", "Shipment", "tracking.shipments", &stubEvent{})
	require.NoError(t, err)

	event.RetryCount = DefaultMaxRetries
	assert.False(t, event.ShouldRetry())

	event.RetryCount = 0
	now := time.Now()
	event.PublishedAt = &now
	assert.True(t, event.IsPublished())
	assert.False(t, event.ShouldRetry())
}
