// Package events defines event types published on the bus for run and
// node-run lifecycle notifications.
package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/tapestry-ai/tapestry/pkg/models"
)

type EventType string

// Kafka topics.
const RunTopic = "tapestry.run.events"   // Run lifecycle events
const NodeTopic = "tapestry.node.events" // Node-run lifecycle events

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// Run lifecycle events.
	RunCreatedEvent   EventType = "run.created"
	RunCompletedEvent EventType = "run.completed"
	RunFailedEvent    EventType = "run.failed"
	RunPausedEvent    EventType = "run.paused"
	RunResumedEvent   EventType = "run.resumed"
	RunCancelledEvent EventType = "run.cancelled"

	// Node-run lifecycle events.
	NodeStartedEvent   EventType = "node.started"
	NodeWaitingEvent   EventType = "node.waiting"
	NodeCompletedEvent EventType = "node.completed"
	NodeFailedEvent    EventType = "node.failed"
	NodeSkippedEvent   EventType = "node.skipped"
)

type Event interface {
	GetType() EventType
}

type BaseEvent struct {
	ID         string         `json:"id"`
	Type       EventType      `json:"type"`
	Timestamp  time.Time      `json:"timestamp"`
	WorkflowID string         `json:"workflow_id"`
	RunID      string         `json:"run_id"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

func NewBaseEvent(eventType EventType, workflowID, runID string) BaseEvent {
	return BaseEvent{
		ID:         uuid.New().String(),
		Type:       eventType,
		Timestamp:  time.Now().UTC(),
		WorkflowID: workflowID,
		RunID:      runID,
		Metadata:   make(map[string]any),
	}
}

type RunCreated struct {
	BaseEvent

	Input map[string]any `json:"input,omitempty"`
}

func (r RunCreated) GetType() EventType {
	return RunCreatedEvent
}

type RunCompleted struct {
	BaseEvent

	Output     map[string]any `json:"output,omitempty"`
	DurationMs int64          `json:"duration_ms"`
}

func (r RunCompleted) GetType() EventType {
	return RunCompletedEvent
}

type RunFailed struct {
	BaseEvent

	Error      string `json:"error"`
	NodeID     string `json:"node_id,omitempty"`
	DurationMs int64  `json:"duration_ms"`
}

func (r RunFailed) GetType() EventType {
	return RunFailedEvent
}

type RunPaused struct {
	BaseEvent

	WaitingNodeIDs []string `json:"waiting_node_ids"`
}

func (r RunPaused) GetType() EventType {
	return RunPausedEvent
}

type RunResumed struct {
	BaseEvent

	NodeID string `json:"node_id"`
}

func (r RunResumed) GetType() EventType {
	return RunResumedEvent
}

type RunCancelled struct {
	BaseEvent

	Reason     string `json:"reason,omitempty"`
	DurationMs int64  `json:"duration_ms"`
}

func (r RunCancelled) GetType() EventType {
	return RunCancelledEvent
}

// Node-run lifecycle events

type NodeStarted struct {
	BaseEvent

	NodeID   string          `json:"node_id"`
	NodeType models.NodeType `json:"node_type"`
	Input    map[string]any  `json:"input,omitempty"`
}

func (n NodeStarted) GetType() EventType {
	return NodeStartedEvent
}

type NodeWaiting struct {
	BaseEvent

	NodeID    string          `json:"node_id"`
	NodeType  models.NodeType `json:"node_type"`
	SessionID string          `json:"session_id,omitempty"`
	TaskID    string          `json:"task_id,omitempty"`
}

func (n NodeWaiting) GetType() EventType {
	return NodeWaitingEvent
}

type NodeCompleted struct {
	BaseEvent

	NodeID     string          `json:"node_id"`
	NodeType   models.NodeType `json:"node_type"`
	Output     map[string]any  `json:"output,omitempty"`
	DurationMs int64           `json:"duration_ms"`
}

func (n NodeCompleted) GetType() EventType {
	return NodeCompletedEvent
}

type NodeFailed struct {
	BaseEvent

	NodeID     string          `json:"node_id"`
	NodeType   models.NodeType `json:"node_type"`
	Error      string          `json:"error"`
	DurationMs int64           `json:"duration_ms"`
}

func (n NodeFailed) GetType() EventType {
	return NodeFailedEvent
}

type NodeSkipped struct {
	BaseEvent

	NodeID   string          `json:"node_id"`
	NodeType models.NodeType `json:"node_type"`
	Reason   string          `json:"reason,omitempty"`
}

func (n NodeSkipped) GetType() EventType {
	return NodeSkippedEvent
}
