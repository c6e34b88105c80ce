package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tapestry-ai/tapestry/pkg/models"
	"github.com/tapestry-ai/tapestry/pkg/persistence"
)

// Workflows returns every stored workflow definition.
func (s *Store) Workflows(ctx context.Context) ([]*models.Workflow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, status, max_concurrency, nodes, edges,
		       default_project_id, created_at, updated_at
		FROM workflows
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflows: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var workflows []*models.Workflow

	for rows.Next() {
		workflow, err := scanWorkflow(rows)
		if err != nil {
			return nil, err
		}

		workflows = append(workflows, workflow)
	}

	return workflows, rows.Err()
}

// SaveWorkflow upserts a workflow definition.
func (s *Store) SaveWorkflow(ctx context.Context, workflow *models.Workflow) error {
	nodes, err := json.Marshal(workflow.Nodes)
	if err != nil {
		return persistence.NewWorkflowError("SaveWorkflow", workflow.ID, err)
	}

	edges, err := json.Marshal(workflow.Edges)
	if err != nil {
		return persistence.NewWorkflowError("SaveWorkflow", workflow.ID, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO workflows (id, name, description, status, max_concurrency,
		                       nodes, edges, default_project_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			status = EXCLUDED.status,
			max_concurrency = EXCLUDED.max_concurrency,
			nodes = EXCLUDED.nodes,
			edges = EXCLUDED.edges,
			default_project_id = EXCLUDED.default_project_id,
			updated_at = EXCLUDED.updated_at
	`,
		workflow.ID, workflow.Name, workflow.Description, workflow.Status,
		workflow.MaxConcurrency, nodes, edges, workflow.DefaultProjectID,
		workflow.CreatedAt, workflow.UpdatedAt,
	)
	if err != nil {
		return persistence.NewWorkflowError("SaveWorkflow", workflow.ID, err)
	}

	return nil
}

// WorkflowByID loads one workflow definition.
func (s *Store) WorkflowByID(ctx context.Context, id string) (*models.Workflow, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, status, max_concurrency, nodes, edges,
		       default_project_id, created_at, updated_at
		FROM workflows
		WHERE id = $1
	`, id)

	workflow, err := scanWorkflow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.NewWorkflowError("WorkflowByID", id, persistence.ErrWorkflowNotFound)
	}

	if err != nil {
		return nil, persistence.NewWorkflowError("WorkflowByID", id, err)
	}

	return workflow, nil
}

// DeleteWorkflow removes the workflow; runs and node runs cascade via
// foreign keys.
func (s *Store) DeleteWorkflow(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM workflows WHERE id = $1", id)
	if err != nil {
		return persistence.NewWorkflowError("DeleteWorkflow", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewWorkflowError("DeleteWorkflow", id, err)
	}

	if affected == 0 {
		return persistence.NewWorkflowError("DeleteWorkflow", id, persistence.ErrWorkflowNotFound)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWorkflow(row rowScanner) (*models.Workflow, error) {
	workflow := &models.Workflow{}

	var nodes, edges []byte

	err := row.Scan(&workflow.ID, &workflow.Name, &workflow.Description,
		&workflow.Status, &workflow.MaxConcurrency, &nodes, &edges,
		&workflow.DefaultProjectID, &workflow.CreatedAt, &workflow.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(nodes, &workflow.Nodes); err != nil {
		return nil, fmt.Errorf("failed to decode workflow nodes: %w", err)
	}

	if err := json.Unmarshal(edges, &workflow.Edges); err != nil {
		return nil, fmt.Errorf("failed to decode workflow edges: %w", err)
	}

	return workflow, nil
}
