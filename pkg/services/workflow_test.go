package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tapestry-ai/tapestry/pkg/models"
	"github.com/tapestry-ai/tapestry/pkg/persistence"
	"github.com/tapestry-ai/tapestry/pkg/persistence/file"
	"github.com/tapestry-ai/tapestry/pkg/services"
	"github.com/tapestry-ai/tapestry/pkg/testutil"
)

func newWorkflowService(t *testing.T) (*services.Workflow, persistence.Persistence) {
	t.Helper()

	store, err := file.NewStore(t.TempDir())
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = store.Close(context.Background())
	})

	return services.NewWorkflow(store), store
}

func TestWorkflowCreate(t *testing.T) {
	svc, _ := newWorkflowService(t)
	ctx := context.Background()

	workflow := testutil.CreateTestWorkflow(testutil.WithStatus(""))
	workflow.ID = ""

	result, err := svc.Create(ctx, workflow)
	require.NoError(t, err)

	assert.NotEmpty(t, result.Workflow.ID)
	assert.Equal(t, models.WorkflowStatusDraft, result.Workflow.Status)
	assert.False(t, result.Workflow.CreatedAt.IsZero())
	assert.Empty(t, result.Warnings)

	fetched, err := svc.FetchByID(ctx, result.Workflow.ID)
	require.NoError(t, err)
	assert.Equal(t, workflow.Name, fetched.Name)
}

func TestWorkflowCreateRejectsEmptyName(t *testing.T) {
	svc, _ := newWorkflowService(t)

	workflow := testutil.CreateTestWorkflow()
	workflow.Name = "   "

	_, err := svc.Create(context.Background(), workflow)
	require.Error(t, err)
	assert.ErrorIs(t, err, services.ErrWorkflowNameRequired)
	assert.True(t, services.IsValidationError(err))
}

func TestWorkflowCreateRejectsBrokenGraph(t *testing.T) {
	svc, _ := newWorkflowService(t)

	workflow := testutil.CreateTestWorkflow(testutil.WithGraph(
		[]*models.Node{
			testutil.Node("start", models.NodeTypeStart),
			testutil.Node("end", models.NodeTypeEnd),
		},
		[]*models.Edge{
			testutil.Edge("start", "ghost"),
		},
	))

	_, err := svc.Create(context.Background(), workflow)
	require.Error(t, err)
	assert.True(t, services.IsValidationError(err))

	var validationErr *models.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, models.IssueUnknownEndpoint, validationErr.Issues[0].Code)
}

func TestWorkflowCreateWarnsOnImplicitMerge(t *testing.T) {
	svc, _ := newWorkflowService(t)

	workflow := testutil.CreateTestWorkflow(testutil.WithGraph(
		[]*models.Node{
			testutil.Node("start", models.NodeTypeStart),
			testutil.Node("a", models.NodeTypeTransform, map[string]any{"template": "x"}),
			testutil.Node("b", models.NodeTypeTransform, map[string]any{"template": "y"}),
			testutil.Node("merge", models.NodeTypeTransform, map[string]any{"template": "z"}),
			testutil.Node("end", models.NodeTypeEnd),
		},
		[]*models.Edge{
			testutil.Edge("start", "a"),
			testutil.Edge("start", "b"),
			testutil.Edge("a", "merge"),
			testutil.Edge("b", "merge"),
			testutil.Edge("merge", "end"),
		},
	))

	result, err := svc.Create(context.Background(), workflow)
	require.NoError(t, err)

	require.Len(t, result.Warnings, 1)
	assert.Equal(t, models.IssueImplicitMerge, result.Warnings[0].Code)
	assert.Equal(t, "merge", result.Warnings[0].NodeID)
}

func TestWorkflowUpdatePreservesCreatedAt(t *testing.T) {
	svc, _ := newWorkflowService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, testutil.CreateTestWorkflow())
	require.NoError(t, err)

	updated := testutil.CreateTestWorkflow()
	updated.Name = "Renamed workflow"

	result, err := svc.Update(ctx, created.Workflow.ID, updated)
	require.NoError(t, err)

	assert.Equal(t, created.Workflow.ID, result.Workflow.ID)
	assert.Equal(t, "Renamed workflow", result.Workflow.Name)
	assert.Equal(t, created.Workflow.CreatedAt, result.Workflow.CreatedAt)
}

func TestWorkflowUpdateNotFound(t *testing.T) {
	svc, _ := newWorkflowService(t)

	_, err := svc.Update(context.Background(), "missing", testutil.CreateTestWorkflow())
	assert.ErrorIs(t, err, services.ErrWorkflowNotFound)
}

func TestWorkflowActivate(t *testing.T) {
	svc, _ := newWorkflowService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, testutil.CreateTestWorkflow(testutil.WithStatus(models.WorkflowStatusDraft)))
	require.NoError(t, err)

	activated, err := svc.Activate(ctx, created.Workflow.ID)
	require.NoError(t, err)
	assert.Equal(t, models.WorkflowStatusActive, activated.Status)
}

func TestWorkflowActivateRequiresStartAndEnd(t *testing.T) {
	svc, _ := newWorkflowService(t)
	ctx := context.Background()

	// Drafts may be saved without the execution invariants.
	draft := testutil.CreateTestWorkflow(
		testutil.WithStatus(models.WorkflowStatusDraft),
		testutil.WithGraph(
			[]*models.Node{testutil.Node("lonely", models.NodeTypeTransform, map[string]any{"template": "x"})},
			nil,
		),
	)

	created, err := svc.Create(ctx, draft)
	require.NoError(t, err)

	_, err = svc.Activate(ctx, created.Workflow.ID)
	require.Error(t, err)
	assert.True(t, services.IsValidationError(err))
}

func TestWorkflowDeleteCascades(t *testing.T) {
	svc, store := newWorkflowService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, testutil.CreateTestWorkflow())
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, created.Workflow.ID))

	_, err = store.WorkflowByID(ctx, created.Workflow.ID)
	assert.ErrorIs(t, err, persistence.ErrWorkflowNotFound)

	assert.ErrorIs(t, svc.Delete(ctx, created.Workflow.ID), services.ErrWorkflowNotFound)
}

func TestWorkflowListFiltersByStatus(t *testing.T) {
	svc, _ := newWorkflowService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, testutil.CreateTestWorkflow(testutil.WithStatus(models.WorkflowStatusDraft)))
	require.NoError(t, err)

	_, err = svc.Create(ctx, testutil.CreateTestWorkflow(testutil.WithStatus(models.WorkflowStatusActive)))
	require.NoError(t, err)

	all, err := svc.List(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	active := models.WorkflowStatusActive
	filtered, err := svc.List(ctx, &active)
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, models.WorkflowStatusActive, filtered[0].Status)

	bogus := models.WorkflowStatus("bogus")
	_, err = svc.List(ctx, &bogus)
	assert.ErrorIs(t, err, services.ErrInvalidStatus)
}
