// Package models defines the core domain models for graph-based workflow execution.
package models

import "time"

// WorkflowStatus represents the lifecycle state of a workflow definition.
type WorkflowStatus string

const (
	WorkflowStatusDraft  WorkflowStatus = "draft"  // Editable, not executable
	WorkflowStatusActive WorkflowStatus = "active" // Executable
	WorkflowStatusPaused WorkflowStatus = "paused" // Temporarily not accepting new runs
)

// DefaultMaxConcurrency is the per-run concurrency cap applied when a
// workflow does not set one.
const DefaultMaxConcurrency = 2

// Workflow represents a directed-graph workflow definition. The definition is
// mutable by its owner; running instances never read it after run creation
// (see GraphSnapshot).
type Workflow struct {
	ID               string         `json:"id"`
	Name             string         `json:"name"               validate:"required,min=3"`
	Description      string         `json:"description"`
	Status           WorkflowStatus `json:"status"             validate:"required,oneof=draft active paused"`
	MaxConcurrency   int            `json:"max_concurrency"    validate:"min=1"`
	Nodes            []*Node        `json:"nodes"`
	Edges            []*Edge        `json:"edges"`
	DefaultProjectID string         `json:"default_project_id,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// NodeByID returns the node with the given id, or nil.
func (w *Workflow) NodeByID(id string) *Node {
	for _, node := range w.Nodes {
		if node.ID == id {
			return node
		}
	}

	return nil
}

// Snapshot deep-copies the workflow graph for attachment to a new run.
func (w *Workflow) Snapshot() *GraphSnapshot {
	maxConcurrency := w.MaxConcurrency
	if maxConcurrency < 1 {
		maxConcurrency = DefaultMaxConcurrency
	}

	snapshot := &GraphSnapshot{
		Nodes:          make([]*Node, 0, len(w.Nodes)),
		Edges:          make([]*Edge, 0, len(w.Edges)),
		MaxConcurrency: maxConcurrency,
	}

	for _, node := range w.Nodes {
		snapshot.Nodes = append(snapshot.Nodes, node.Clone())
	}

	for _, edge := range w.Edges {
		cloned := *edge
		snapshot.Edges = append(snapshot.Edges, &cloned)
	}

	return snapshot
}
