package events

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tapestry-ai/tapestry/pkg/models"
)

func TestNewBaseEvent(t *testing.T) {
	event := NewBaseEvent(RunCreatedEvent, "wf-1", "run-1")

	assert.NotEmpty(t, event.ID)
	assert.Equal(t, RunCreatedEvent, event.Type)
	assert.Equal(t, "wf-1", event.WorkflowID)
	assert.Equal(t, "run-1", event.RunID)
	assert.False(t, event.Timestamp.IsZero())
	assert.NotNil(t, event.Metadata)
}

func TestRunFailed_JSONSerialization(t *testing.T) {
	original := RunFailed{
		BaseEvent:  NewBaseEvent(RunFailedEvent, "wf-1", "run-1"),
		Error:      `Node "Review" failed: agent session crashed`,
		NodeID:     "review",
		DurationMs: 1500,
	}

	jsonData, err := json.Marshal(original)
	require.NoError(t, err)
	assert.Contains(t, string(jsonData), `"type":"run.failed"`)
	assert.Contains(t, string(jsonData), `"node_id":"review"`)

	var deserialized RunFailed

	require.NoError(t, json.Unmarshal(jsonData, &deserialized))
	assert.Equal(t, original.Error, deserialized.Error)
	assert.Equal(t, original.NodeID, deserialized.NodeID)
	assert.Equal(t, original.DurationMs, deserialized.DurationMs)
}

func TestNodeCompleted_GetType(t *testing.T) {
	event := NodeCompleted{
		BaseEvent: NewBaseEvent(NodeCompletedEvent, "wf-1", "run-1"),
		NodeID:    "transform-1",
		NodeType:  models.NodeTypeTransform,
		Output:    map[string]any{"count": 3},
	}

	assert.Equal(t, NodeCompletedEvent, event.GetType())
}

func TestEventTypes_AreDistinct(t *testing.T) {
	types := []EventType{
		RunCreatedEvent, RunCompletedEvent, RunFailedEvent,
		RunPausedEvent, RunResumedEvent, RunCancelledEvent,
		NodeStartedEvent, NodeWaitingEvent, NodeCompletedEvent,
		NodeFailedEvent, NodeSkippedEvent,
	}

	seen := make(map[EventType]bool, len(types))
	for _, eventType := range types {
		assert.False(t, seen[eventType], "duplicate event type %s", eventType)
		seen[eventType] = true
	}
}
