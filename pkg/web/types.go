// Package web provides HTTP request and response types for the workflow API.
package web

import "github.com/tapestry-ai/tapestry/pkg/models"

// CreateWorkflowRequest represents the request body for creating a new workflow.
type CreateWorkflowRequest struct {
	Name             string         `json:"name"                         validate:"required,min=3"`
	Description      string         `json:"description"`
	MaxConcurrency   int            `json:"max_concurrency,omitempty"    validate:"omitempty,min=1"`
	Nodes            []*models.Node `json:"nodes"`
	Edges            []*models.Edge `json:"edges"`
	DefaultProjectID string         `json:"default_project_id,omitempty"`
}

// UpdateWorkflowRequest represents the request body for updating an existing
// workflow. All fields are optional to support partial updates; nodes and
// edges are replaced wholesale when present.
type UpdateWorkflowRequest struct {
	Name             *string                `json:"name,omitempty"               validate:"omitempty,min=3"`
	Description      *string                `json:"description,omitempty"`
	Status           *models.WorkflowStatus `json:"status,omitempty"             validate:"omitempty,oneof=draft active paused"`
	MaxConcurrency   *int                   `json:"max_concurrency,omitempty"    validate:"omitempty,min=1"`
	Nodes            []*models.Node         `json:"nodes,omitempty"`
	Edges            []*models.Edge         `json:"edges,omitempty"`
	DefaultProjectID *string                `json:"default_project_id,omitempty"`
}

// CreateRunRequest represents the request body for starting a workflow run.
type CreateRunRequest struct {
	AgentID string         `json:"agent_id" validate:"required"`
	Input   map[string]any `json:"input"`
}

// UpdateRunRequest represents the request body for a partial run state
// update.
type UpdateRunRequest struct {
	Status         *models.RunStatus `json:"status,omitempty"           validate:"omitempty,oneof=running paused completed failed cancelled"`
	Output         map[string]any    `json:"output,omitempty"`
	CurrentNodeIDs []string          `json:"current_node_ids,omitempty"`
	Error          *string           `json:"error,omitempty"`
}
