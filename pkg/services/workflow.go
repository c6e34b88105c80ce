package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tapestry-ai/tapestry/pkg/models"
	"github.com/tapestry-ai/tapestry/pkg/persistence"
)

// ErrWorkflowNotFound is returned when a workflow is not found.
var ErrWorkflowNotFound = persistence.ErrWorkflowNotFound

type Workflow struct {
	persistence persistence.Persistence
}

// NewWorkflow creates a new workflow service.
func NewWorkflow(persistence persistence.Persistence) *Workflow {
	return &Workflow{
		persistence: persistence,
	}
}

// HealthCheck checks the health of the persistence layer.
func (w *Workflow) HealthCheck(ctx context.Context) (string, bool) {
	if w.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := w.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// SaveWorkflowResult carries the saved workflow plus non-blocking warnings,
// such as implicit merges the author probably wants an explicit join for.
type SaveWorkflowResult struct {
	Workflow *models.Workflow         `json:"workflow"`
	Warnings []models.ValidationIssue `json:"warnings,omitempty"`
}

// List retrieves all workflows, optionally filtered by status.
func (w *Workflow) List(ctx context.Context, status *models.WorkflowStatus) ([]*models.Workflow, error) {
	if status != nil && !isValidWorkflowStatus(*status) {
		return nil, NewValidationError(
			"ListWorkflows",
			"INVALID_STATUS",
			fmt.Sprintf("invalid status '%s'", *status),
			ErrInvalidStatus,
		)
	}

	workflows, err := w.persistence.Workflows(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}

	if status == nil {
		return workflows, nil
	}

	filtered := make([]*models.Workflow, 0, len(workflows))

	for _, workflow := range workflows {
		if workflow.Status == *status {
			filtered = append(filtered, workflow)
		}
	}

	return filtered, nil
}

// FetchByID retrieves a workflow by its ID.
func (w *Workflow) FetchByID(ctx context.Context, id string) (*models.Workflow, error) {
	workflow, err := w.persistence.WorkflowByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if workflow == nil {
		return nil, ErrWorkflowNotFound
	}

	return workflow, nil
}

// Create adds a new workflow to the store. Structural graph validation runs
// on every save; start/end completeness is only enforced at activation, so
// drafts may be saved incomplete.
func (w *Workflow) Create(ctx context.Context, workflow *models.Workflow) (*SaveWorkflowResult, error) {
	if workflow == nil {
		return nil, ErrWorkflowNil
	}

	now := time.Now().UTC()
	workflow.ID = uuid.New().String()
	workflow.CreatedAt = now
	workflow.UpdatedAt = now

	if workflow.Status == "" {
		workflow.Status = models.WorkflowStatusDraft
	}

	warnings, err := w.validateForSave(workflow)
	if err != nil {
		return nil, err
	}

	if err := w.persistence.SaveWorkflow(ctx, workflow); err != nil {
		return nil, fmt.Errorf("failed to create workflow: %w", err)
	}

	return &SaveWorkflowResult{Workflow: workflow, Warnings: warnings}, nil
}

// Update modifies an existing workflow by its ID.
func (w *Workflow) Update(
	ctx context.Context,
	workflowID string,
	workflow *models.Workflow,
) (*SaveWorkflowResult, error) {
	if workflow == nil {
		return nil, ErrWorkflowNil
	}

	existing, err := w.persistence.WorkflowByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	if existing == nil {
		return nil, ErrWorkflowNotFound
	}

	workflow.ID = workflowID
	workflow.CreatedAt = existing.CreatedAt
	workflow.UpdatedAt = time.Now().UTC()

	if workflow.Status == "" {
		workflow.Status = existing.Status
	}

	warnings, err := w.validateForSave(workflow)
	if err != nil {
		return nil, err
	}

	if err := w.persistence.SaveWorkflow(ctx, workflow); err != nil {
		return nil, fmt.Errorf("failed to update workflow: %w", err)
	}

	return &SaveWorkflowResult{Workflow: workflow, Warnings: warnings}, nil
}

// Activate transitions a workflow to the active status. Unlike plain saves,
// activation enforces the full execution invariants: the graph must contain
// at least one start and one end node.
func (w *Workflow) Activate(ctx context.Context, workflowID string) (*models.Workflow, error) {
	workflow, err := w.persistence.WorkflowByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	if workflow == nil {
		return nil, ErrWorkflowNotFound
	}

	if validationErr := models.ValidateForExecution(workflow.Nodes, workflow.Edges); validationErr != nil {
		return nil, validationErr
	}

	workflow.Status = models.WorkflowStatusActive
	workflow.UpdatedAt = time.Now().UTC()

	if err := w.persistence.SaveWorkflow(ctx, workflow); err != nil {
		return nil, fmt.Errorf("failed to activate workflow: %w", err)
	}

	return workflow, nil
}

// Delete removes a workflow by its ID. Runs and node runs cascade in the
// store.
func (w *Workflow) Delete(ctx context.Context, workflowID string) error {
	existing, err := w.persistence.WorkflowByID(ctx, workflowID)
	if err != nil {
		return err
	}

	if existing == nil {
		return ErrWorkflowNotFound
	}

	if err := w.persistence.DeleteWorkflow(ctx, workflowID); err != nil {
		return fmt.Errorf("failed to delete workflow: %w", err)
	}

	return nil
}

// validateForSave checks the fields and structural graph invariants enforced
// on every save and collects non-blocking warnings.
func (w *Workflow) validateForSave(workflow *models.Workflow) ([]models.ValidationIssue, error) {
	if strings.TrimSpace(workflow.Name) == "" {
		return nil, ErrWorkflowNameRequired
	}

	if !isValidWorkflowStatus(workflow.Status) {
		return nil, NewValidationError(
			"validateForSave",
			"INVALID_STATUS",
			fmt.Sprintf("invalid workflow status '%s'", workflow.Status),
			ErrInvalidStatus,
		)
	}

	if validationErr := models.ValidateGraph(workflow.Nodes, workflow.Edges); validationErr != nil {
		return nil, validationErr
	}

	return models.ImplicitMergeWarnings(workflow.Nodes, workflow.Edges), nil
}

func isValidWorkflowStatus(status models.WorkflowStatus) bool {
	switch status {
	case models.WorkflowStatusDraft, models.WorkflowStatusActive, models.WorkflowStatusPaused:
		return true
	default:
		return false
	}
}
