package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/tapestry-ai/tapestry/pkg/models"
	"github.com/tapestry-ai/tapestry/pkg/persistence"
)

const pqUniqueViolation = "23505"

const runColumns = `id, workflow_id, agent_id, status, input, output, snapshot,
	current_node_ids, error, started_at, completed_at`

// CreateRun stores a new workflow run.
func (s *Store) CreateRun(ctx context.Context, run *models.WorkflowRun) error {
	input, output, snapshot, currentNodeIDs, err := encodeRun(run)
	if err != nil {
		return persistence.NewRunError("CreateRun", run.ID, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO workflow_runs (`+runColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`,
		run.ID, run.WorkflowID, run.AgentID, run.Status, input, output,
		snapshot, currentNodeIDs, run.Error, run.StartedAt, run.CompletedAt,
	)
	if err != nil {
		return persistence.NewRunError("CreateRun", run.ID, err)
	}

	return nil
}

// UpdateRun replaces the mutable run state.
func (s *Store) UpdateRun(ctx context.Context, run *models.WorkflowRun) error {
	input, output, _, currentNodeIDs, err := encodeRun(run)
	if err != nil {
		return persistence.NewRunError("UpdateRun", run.ID, err)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE workflow_runs
		SET status = $2, input = $3, output = $4, current_node_ids = $5,
		    error = $6, completed_at = $7
		WHERE id = $1
	`, run.ID, run.Status, input, output, currentNodeIDs, run.Error, run.CompletedAt)
	if err != nil {
		return persistence.NewRunError("UpdateRun", run.ID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewRunError("UpdateRun", run.ID, err)
	}

	if affected == 0 {
		return persistence.NewRunError("UpdateRun", run.ID, persistence.ErrRunNotFound)
	}

	return nil
}

// RunByID loads one run, optionally with its node runs attached.
func (s *Store) RunByID(ctx context.Context, id string, includeNodeRuns bool) (*models.WorkflowRun, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+runColumns+` FROM workflow_runs WHERE id = $1
	`, id)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.NewRunError("RunByID", id, persistence.ErrRunNotFound)
	}

	if err != nil {
		return nil, persistence.NewRunError("RunByID", id, err)
	}

	if includeNodeRuns {
		nodeRuns, err := s.NodeRunsByRun(ctx, id)
		if err != nil {
			return nil, err
		}

		run.NodeRuns = nodeRuns
	}

	return run, nil
}

// RunsByWorkflow returns every run of the given workflow, newest first.
func (s *Store) RunsByWorkflow(ctx context.Context, workflowID string) ([]*models.WorkflowRun, error) {
	return s.queryRuns(ctx, `
		SELECT `+runColumns+` FROM workflow_runs
		WHERE workflow_id = $1
		ORDER BY started_at DESC
	`, workflowID)
}

// ActiveRuns returns runs in running or paused status, oldest first.
func (s *Store) ActiveRuns(ctx context.Context) ([]*models.WorkflowRun, error) {
	return s.queryRuns(ctx, `
		SELECT `+runColumns+` FROM workflow_runs
		WHERE status IN ($1, $2)
		ORDER BY started_at
	`, models.RunStatusRunning, models.RunStatusPaused)
}

// DeleteRun removes the run; node runs cascade via foreign keys.
func (s *Store) DeleteRun(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM workflow_runs WHERE id = $1", id)
	if err != nil {
		return persistence.NewRunError("DeleteRun", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewRunError("DeleteRun", id, err)
	}

	if affected == 0 {
		return persistence.NewRunError("DeleteRun", id, persistence.ErrRunNotFound)
	}

	return nil
}

// CreateNodeRun stores a node run; the (run_id, node_id) unique constraint
// yields ErrNodeRunExists on duplicates.
func (s *Store) CreateNodeRun(ctx context.Context, nodeRun *models.NodeRun) error {
	input, err := json.Marshal(nodeRun.Input)
	if err != nil {
		return persistence.NewNodeRunError("CreateNodeRun", nodeRun.RunID, nodeRun.NodeID, err)
	}

	output, err := json.Marshal(nodeRun.Output)
	if err != nil {
		return persistence.NewNodeRunError("CreateNodeRun", nodeRun.RunID, nodeRun.NodeID, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO node_runs (id, run_id, node_id, node_type, status, input,
		                       output, session_id, task_id, error, started_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`,
		nodeRun.ID, nodeRun.RunID, nodeRun.NodeID, nodeRun.NodeType,
		nodeRun.Status, input, output, nodeRun.SessionID, nodeRun.TaskID,
		nodeRun.Error, nodeRun.StartedAt, nodeRun.CompletedAt,
	)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == pqUniqueViolation {
		return persistence.NewNodeRunError("CreateNodeRun", nodeRun.RunID, nodeRun.NodeID, persistence.ErrNodeRunExists)
	}

	if err != nil {
		return persistence.NewNodeRunError("CreateNodeRun", nodeRun.RunID, nodeRun.NodeID, err)
	}

	return nil
}

// UpdateNodeRun replaces the mutable node-run state.
func (s *Store) UpdateNodeRun(ctx context.Context, nodeRun *models.NodeRun) error {
	input, err := json.Marshal(nodeRun.Input)
	if err != nil {
		return persistence.NewNodeRunError("UpdateNodeRun", nodeRun.RunID, nodeRun.NodeID, err)
	}

	output, err := json.Marshal(nodeRun.Output)
	if err != nil {
		return persistence.NewNodeRunError("UpdateNodeRun", nodeRun.RunID, nodeRun.NodeID, err)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE node_runs
		SET status = $3, input = $4, output = $5, session_id = $6,
		    task_id = $7, error = $8, started_at = $9, completed_at = $10
		WHERE run_id = $1 AND node_id = $2
	`,
		nodeRun.RunID, nodeRun.NodeID, nodeRun.Status, input, output,
		nodeRun.SessionID, nodeRun.TaskID, nodeRun.Error,
		nodeRun.StartedAt, nodeRun.CompletedAt,
	)
	if err != nil {
		return persistence.NewNodeRunError("UpdateNodeRun", nodeRun.RunID, nodeRun.NodeID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewNodeRunError("UpdateNodeRun", nodeRun.RunID, nodeRun.NodeID, err)
	}

	if affected == 0 {
		return persistence.NewNodeRunError("UpdateNodeRun", nodeRun.RunID, nodeRun.NodeID, persistence.ErrNodeRunNotFound)
	}

	return nil
}

// NodeRunsByRun returns every node run of the given run in node-id order.
func (s *Store) NodeRunsByRun(ctx context.Context, runID string) ([]*models.NodeRun, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, run_id, node_id, node_type, status, input, output,
		       session_id, task_id, error, started_at, completed_at
		FROM node_runs
		WHERE run_id = $1
		ORDER BY node_id
	`, runID)
	if err != nil {
		return nil, persistence.NewRunError("NodeRunsByRun", runID, err)
	}
	defer func() { _ = rows.Close() }()

	var nodeRuns []*models.NodeRun

	for rows.Next() {
		nodeRun, err := scanNodeRun(rows)
		if err != nil {
			return nil, persistence.NewRunError("NodeRunsByRun", runID, err)
		}

		nodeRuns = append(nodeRuns, nodeRun)
	}

	return nodeRuns, rows.Err()
}

// NodeRunByRunAndNode returns the node run for (run, node).
func (s *Store) NodeRunByRunAndNode(ctx context.Context, runID, nodeID string) (*models.NodeRun, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, run_id, node_id, node_type, status, input, output,
		       session_id, task_id, error, started_at, completed_at
		FROM node_runs
		WHERE run_id = $1 AND node_id = $2
	`, runID, nodeID)

	nodeRun, err := scanNodeRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.NewNodeRunError("NodeRunByRunAndNode", runID, nodeID, persistence.ErrNodeRunNotFound)
	}

	if err != nil {
		return nil, persistence.NewNodeRunError("NodeRunByRunAndNode", runID, nodeID, err)
	}

	return nodeRun, nil
}

func (s *Store) queryRuns(ctx context.Context, query string, args ...any) ([]*models.WorkflowRun, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []*models.WorkflowRun

	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}

		runs = append(runs, run)
	}

	return runs, rows.Err()
}

func encodeRun(run *models.WorkflowRun) (input, output, snapshot, currentNodeIDs []byte, err error) {
	if input, err = json.Marshal(run.Input); err != nil {
		return nil, nil, nil, nil, err
	}

	if output, err = json.Marshal(run.Output); err != nil {
		return nil, nil, nil, nil, err
	}

	if snapshot, err = json.Marshal(run.Snapshot); err != nil {
		return nil, nil, nil, nil, err
	}

	ids := run.CurrentNodeIDs
	if ids == nil {
		ids = []string{}
	}

	if currentNodeIDs, err = json.Marshal(ids); err != nil {
		return nil, nil, nil, nil, err
	}

	return input, output, snapshot, currentNodeIDs, nil
}

func scanRun(row rowScanner) (*models.WorkflowRun, error) {
	run := &models.WorkflowRun{}

	var input, output, snapshot, currentNodeIDs []byte

	err := row.Scan(&run.ID, &run.WorkflowID, &run.AgentID, &run.Status,
		&input, &output, &snapshot, &currentNodeIDs, &run.Error,
		&run.StartedAt, &run.CompletedAt)
	if err != nil {
		return nil, err
	}

	if input != nil {
		if err := json.Unmarshal(input, &run.Input); err != nil {
			return nil, fmt.Errorf("failed to decode run input: %w", err)
		}
	}

	if output != nil {
		if err := json.Unmarshal(output, &run.Output); err != nil {
			return nil, fmt.Errorf("failed to decode run output: %w", err)
		}
	}

	if err := json.Unmarshal(snapshot, &run.Snapshot); err != nil {
		return nil, fmt.Errorf("failed to decode run snapshot: %w", err)
	}

	if err := json.Unmarshal(currentNodeIDs, &run.CurrentNodeIDs); err != nil {
		return nil, fmt.Errorf("failed to decode current node ids: %w", err)
	}

	return run, nil
}

func scanNodeRun(row rowScanner) (*models.NodeRun, error) {
	nodeRun := &models.NodeRun{}

	var input, output []byte

	err := row.Scan(&nodeRun.ID, &nodeRun.RunID, &nodeRun.NodeID,
		&nodeRun.NodeType, &nodeRun.Status, &input, &output,
		&nodeRun.SessionID, &nodeRun.TaskID, &nodeRun.Error,
		&nodeRun.StartedAt, &nodeRun.CompletedAt)
	if err != nil {
		return nil, err
	}

	if input != nil {
		if err := json.Unmarshal(input, &nodeRun.Input); err != nil {
			return nil, fmt.Errorf("failed to decode node run input: %w", err)
		}
	}

	if output != nil {
		if err := json.Unmarshal(output, &nodeRun.Output); err != nil {
			return nil, fmt.Errorf("failed to decode node run output: %w", err)
		}
	}

	return nodeRun, nil
}
