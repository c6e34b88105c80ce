package services

import (
	"context"
	"fmt"
	"time"

	"github.com/tapestry-ai/tapestry/pkg/models"
	"github.com/tapestry-ai/tapestry/pkg/persistence"
)

// ErrRunNotFound is returned when a workflow run is not found.
var ErrRunNotFound = persistence.ErrRunNotFound

// RunEngine is the slice of the scheduler the run service depends on.
type RunEngine interface {
	CreateRun(ctx context.Context, workflowID, agentID string, input map[string]any) (*models.WorkflowRun, error)
	CancelRun(ctx context.Context, runID string) error
}

type Run struct {
	persistence persistence.Persistence
	engine      RunEngine
}

// NewRun creates a new run service.
func NewRun(persistence persistence.Persistence, engine RunEngine) *Run {
	return &Run{
		persistence: persistence,
		engine:      engine,
	}
}

// Create starts a new run of the given workflow.
func (r *Run) Create(ctx context.Context, workflowID, agentID string, input map[string]any) (*models.WorkflowRun, error) {
	run, err := r.engine.CreateRun(ctx, workflowID, agentID, input)
	if err != nil {
		return nil, err
	}

	return run, nil
}

// FetchByID retrieves a run by its ID, with or without its node runs. List
// callers should leave includeNodeRuns false; node runs can dominate the
// payload on large graphs.
func (r *Run) FetchByID(ctx context.Context, runID string, includeNodeRuns bool) (*models.WorkflowRun, error) {
	run, err := r.persistence.RunByID(ctx, runID, includeNodeRuns)
	if err != nil {
		return nil, err
	}

	if run == nil {
		return nil, ErrRunNotFound
	}

	return run, nil
}

// ListActive returns all runs in the running or paused status.
func (r *Run) ListActive(ctx context.Context) ([]*models.WorkflowRun, error) {
	runs, err := r.persistence.ActiveRuns(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list active runs: %w", err)
	}

	return runs, nil
}

// Cancel cancels a run. Cancelling a run that already reached a terminal
// status is a no-op.
func (r *Run) Cancel(ctx context.Context, runID string) error {
	if _, err := r.persistence.RunByID(ctx, runID, false); err != nil {
		return err
	}

	return r.engine.CancelRun(ctx, runID)
}

// UpdateRunRequest carries a partial update of a run's execution state. Nil
// fields are left untouched.
type UpdateRunRequest struct {
	Status         *models.RunStatus `json:"status,omitempty"`
	Output         map[string]any    `json:"output,omitempty"`
	CurrentNodeIDs []string          `json:"current_node_ids,omitempty"`
	Error          *string           `json:"error,omitempty"`
}

// Update applies a partial state update to a run. Updating a run that
// already reached a terminal status is a conflict.
func (r *Run) Update(ctx context.Context, runID string, req UpdateRunRequest) (*models.WorkflowRun, error) {
	run, err := r.persistence.RunByID(ctx, runID, false)
	if err != nil {
		return nil, err
	}

	if run.Status.IsTerminal() {
		return nil, fmt.Errorf("run %s is %s: %w", runID, run.Status, ErrRunFinished)
	}

	if req.Status != nil {
		if !isValidRunStatus(*req.Status) {
			return nil, NewValidationError(
				"UpdateRun",
				"INVALID_STATUS",
				fmt.Sprintf("invalid run status '%s'", *req.Status),
				ErrInvalidStatus,
			)
		}

		run.Status = *req.Status

		if run.Status.IsTerminal() {
			now := time.Now().UTC()
			run.CompletedAt = &now
		}
	}

	if req.Output != nil {
		run.Output = req.Output
	}

	if req.CurrentNodeIDs != nil {
		run.CurrentNodeIDs = req.CurrentNodeIDs
	}

	if req.Error != nil {
		run.Error = *req.Error
	}

	if err := r.persistence.UpdateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to update run: %w", err)
	}

	return run, nil
}

func isValidRunStatus(status models.RunStatus) bool {
	switch status {
	case models.RunStatusRunning, models.RunStatusPaused,
		models.RunStatusCompleted, models.RunStatusFailed, models.RunStatusCancelled:
		return true
	default:
		return false
	}
}
