package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tapestry-ai/tapestry/pkg/models"
	"github.com/tapestry-ai/tapestry/pkg/persistence"
	"github.com/tapestry-ai/tapestry/pkg/persistence/file"
	"github.com/tapestry-ai/tapestry/pkg/services"
	"github.com/tapestry-ai/tapestry/pkg/testutil"
)

// fakeRunEngine records scheduler calls without running a scheduler.
type fakeRunEngine struct {
	store     persistence.Persistence
	created   []string
	cancelled []string
}

func (f *fakeRunEngine) CreateRun(ctx context.Context, workflowID, agentID string, input map[string]any) (*models.WorkflowRun, error) {
	workflow, err := f.store.WorkflowByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	run := &models.WorkflowRun{
		ID:             uuid.New().String(),
		WorkflowID:     workflow.ID,
		AgentID:        agentID,
		Status:         models.RunStatusRunning,
		Input:          input,
		Snapshot:       workflow.Snapshot(),
		CurrentNodeIDs: []string{},
		StartedAt:      time.Now().UTC(),
	}

	if err := f.store.CreateRun(ctx, run); err != nil {
		return nil, err
	}

	f.created = append(f.created, run.ID)

	return run, nil
}

func (f *fakeRunEngine) CancelRun(ctx context.Context, runID string) error {
	f.cancelled = append(f.cancelled, runID)

	run, err := f.store.RunByID(ctx, runID, false)
	if err != nil {
		return err
	}

	if run.Status.IsTerminal() {
		return nil
	}

	now := time.Now().UTC()
	run.Status = models.RunStatusCancelled
	run.CompletedAt = &now

	return f.store.UpdateRun(ctx, run)
}

func newRunService(t *testing.T) (*services.Run, *fakeRunEngine, persistence.Persistence) {
	t.Helper()

	store, err := file.NewStore(t.TempDir())
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = store.Close(context.Background())
	})

	engine := &fakeRunEngine{store: store}

	return services.NewRun(store, engine), engine, store
}

func seedWorkflow(t *testing.T, store persistence.Persistence) *models.Workflow {
	t.Helper()

	workflow := testutil.CreateTestWorkflow()
	require.NoError(t, store.SaveWorkflow(context.Background(), workflow))

	return workflow
}

func TestRunCreateAndFetch(t *testing.T) {
	svc, engine, store := newRunService(t)
	ctx := context.Background()

	workflow := seedWorkflow(t, store)

	run, err := svc.Create(ctx, workflow.ID, "agent-1", map[string]any{"ticket": "T-1"})
	require.NoError(t, err)
	assert.Equal(t, []string{run.ID}, engine.created)

	require.NoError(t, store.CreateNodeRun(ctx, &models.NodeRun{
		ID:       uuid.New().String(),
		RunID:    run.ID,
		NodeID:   "start",
		NodeType: models.NodeTypeStart,
		Status:   models.NodeRunStatusCompleted,
	}))

	fetched, err := svc.FetchByID(ctx, run.ID, false)
	require.NoError(t, err)
	assert.Equal(t, "agent-1", fetched.AgentID)
	assert.Nil(t, fetched.NodeRuns)

	withNodeRuns, err := svc.FetchByID(ctx, run.ID, true)
	require.NoError(t, err)
	require.Len(t, withNodeRuns.NodeRuns, 1)
	assert.Equal(t, "start", withNodeRuns.NodeRuns[0].NodeID)
}

func TestRunFetchNotFound(t *testing.T) {
	svc, _, _ := newRunService(t)

	_, err := svc.FetchByID(context.Background(), "missing", false)
	assert.ErrorIs(t, err, services.ErrRunNotFound)
}

func TestRunListActive(t *testing.T) {
	svc, _, store := newRunService(t)
	ctx := context.Background()

	workflow := seedWorkflow(t, store)

	running, err := svc.Create(ctx, workflow.ID, "agent-1", nil)
	require.NoError(t, err)

	finished, err := svc.Create(ctx, workflow.ID, "agent-1", nil)
	require.NoError(t, err)

	now := time.Now().UTC()
	finished.Status = models.RunStatusCompleted
	finished.CompletedAt = &now
	require.NoError(t, store.UpdateRun(ctx, finished))

	active, err := svc.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, running.ID, active[0].ID)
}

func TestRunCancel(t *testing.T) {
	svc, engine, store := newRunService(t)
	ctx := context.Background()

	workflow := seedWorkflow(t, store)

	run, err := svc.Create(ctx, workflow.ID, "agent-1", nil)
	require.NoError(t, err)

	require.NoError(t, svc.Cancel(ctx, run.ID))
	assert.Equal(t, []string{run.ID}, engine.cancelled)

	cancelled, err := svc.FetchByID(ctx, run.ID, false)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusCancelled, cancelled.Status)

	assert.ErrorIs(t, svc.Cancel(ctx, "missing"), services.ErrRunNotFound)
}

func TestRunUpdate(t *testing.T) {
	svc, _, store := newRunService(t)
	ctx := context.Background()

	workflow := seedWorkflow(t, store)

	run, err := svc.Create(ctx, workflow.ID, "agent-1", nil)
	require.NoError(t, err)

	status := models.RunStatusPaused
	errText := ""
	updated, err := svc.Update(ctx, run.ID, services.UpdateRunRequest{
		Status:         &status,
		Output:         map[string]any{"partial": true},
		CurrentNodeIDs: []string{"delay"},
		Error:          &errText,
	})
	require.NoError(t, err)

	assert.Equal(t, models.RunStatusPaused, updated.Status)
	assert.Equal(t, []string{"delay"}, updated.CurrentNodeIDs)
	assert.Nil(t, updated.CompletedAt)

	terminal := models.RunStatusCompleted
	updated, err = svc.Update(ctx, run.ID, services.UpdateRunRequest{Status: &terminal})
	require.NoError(t, err)
	require.NotNil(t, updated.CompletedAt)

	// Terminal runs reject further updates.
	_, err = svc.Update(ctx, run.ID, services.UpdateRunRequest{Status: &status})
	require.Error(t, err)
	assert.ErrorIs(t, err, services.ErrRunFinished)
	assert.True(t, services.IsConflictError(err))
}

func TestRunUpdateRejectsUnknownStatus(t *testing.T) {
	svc, _, store := newRunService(t)
	ctx := context.Background()

	workflow := seedWorkflow(t, store)

	run, err := svc.Create(ctx, workflow.ID, "agent-1", nil)
	require.NoError(t, err)

	bogus := models.RunStatus("bogus")
	_, err = svc.Update(ctx, run.ID, services.UpdateRunRequest{Status: &bogus})
	require.Error(t, err)
	assert.ErrorIs(t, err, services.ErrInvalidStatus)
}
