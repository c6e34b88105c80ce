package models

import "time"

// RunStatus represents the lifecycle state of a workflow run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusPaused    RunStatus = "paused" // At least one node is waiting on a timer or external event
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

// IsTerminal reports whether the run status is final.
func (s RunStatus) IsTerminal() bool {
	return s == RunStatusCompleted || s == RunStatusFailed || s == RunStatusCancelled
}

// WorkflowRun is one execution instance of a workflow. The run holds its own
// frozen snapshot of the graph and is mutated only by the scheduler until it
// reaches a terminal status.
//
// Invariant: CompletedAt is set if and only if Status is terminal.
type WorkflowRun struct {
	ID             string         `json:"id"`
	WorkflowID     string         `json:"workflow_id"`
	AgentID        string         `json:"agent_id"`
	Status         RunStatus      `json:"status"`
	Input          map[string]any `json:"input,omitempty"`
	Output         map[string]any `json:"output,omitempty"`
	Snapshot       *GraphSnapshot `json:"workflow_snapshot"`
	CurrentNodeIDs []string       `json:"current_node_ids"`
	Error          string         `json:"error,omitempty"`
	StartedAt      time.Time      `json:"started_at"`
	CompletedAt    *time.Time     `json:"completed_at,omitempty"`

	// NodeRuns is populated only when the caller asks for them; list
	// endpoints leave it nil for performance.
	NodeRuns []*NodeRun `json:"node_runs,omitempty"`
}

// NodeRunStatus represents the lifecycle state of a single node execution.
type NodeRunStatus string

const (
	NodeRunStatusPending   NodeRunStatus = "pending" // Ready but not yet admitted under the concurrency caps
	NodeRunStatusRunning   NodeRunStatus = "running"
	NodeRunStatusWaiting   NodeRunStatus = "waiting" // Suspended on a timer or external event
	NodeRunStatusCompleted NodeRunStatus = "completed"
	NodeRunStatusFailed    NodeRunStatus = "failed"
	NodeRunStatusSkipped   NodeRunStatus = "skipped"
)

// IsTerminal reports whether the node-run status is final.
func (s NodeRunStatus) IsTerminal() bool {
	return s == NodeRunStatusCompleted || s == NodeRunStatusFailed || s == NodeRunStatusSkipped
}

// NodeRun records one visit of a node within a run. At most one NodeRun
// exists per (RunID, NodeID); the uniqueness key is the engine's guard
// against re-entering a node.
type NodeRun struct {
	ID       string        `json:"id"`
	RunID    string        `json:"run_id"`
	NodeID   string        `json:"node_id"`
	NodeType NodeType      `json:"node_type"`
	Status   NodeRunStatus `json:"status"`

	Input  map[string]any `json:"input,omitempty"`
	Output map[string]any `json:"output,omitempty"`

	// Handles to the external operation performing the work, when any.
	SessionID *string `json:"session_id,omitempty"`
	TaskID    *string `json:"task_id,omitempty"`

	Error string `json:"error,omitempty"`

	// StartedAt is set on the first transition into running or waiting and
	// never overwritten afterwards.
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}
