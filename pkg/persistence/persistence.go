// Package persistence provides the durable-store abstraction for workflows,
// runs, and node runs.
package persistence

import (
	"context"

	"github.com/tapestry-ai/tapestry/pkg/models"
)

// Persistence is the single source of truth the scheduler re-derives
// readiness from. Implementations must make (RunID, NodeID) unique for node
// runs and must cascade deletes: workflow -> runs -> node runs.
type Persistence interface {
	// Workflow definitions.
	Workflows(ctx context.Context) ([]*models.Workflow, error)
	SaveWorkflow(ctx context.Context, workflow *models.Workflow) error
	WorkflowByID(ctx context.Context, id string) (*models.Workflow, error)
	DeleteWorkflow(ctx context.Context, id string) error

	// Workflow runs.
	CreateRun(ctx context.Context, run *models.WorkflowRun) error
	UpdateRun(ctx context.Context, run *models.WorkflowRun) error
	RunByID(ctx context.Context, id string, includeNodeRuns bool) (*models.WorkflowRun, error)
	RunsByWorkflow(ctx context.Context, workflowID string) ([]*models.WorkflowRun, error)
	ActiveRuns(ctx context.Context) ([]*models.WorkflowRun, error)
	DeleteRun(ctx context.Context, id string) error

	// Node runs. CreateNodeRun returns ErrNodeRunExists when a node run for
	// the same (run, node) pair already exists.
	CreateNodeRun(ctx context.Context, nodeRun *models.NodeRun) error
	UpdateNodeRun(ctx context.Context, nodeRun *models.NodeRun) error
	NodeRunsByRun(ctx context.Context, runID string) ([]*models.NodeRun, error)
	NodeRunByRunAndNode(ctx context.Context, runID, nodeID string) (*models.NodeRun, error)

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}
