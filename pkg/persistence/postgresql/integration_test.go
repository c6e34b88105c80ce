package postgresql_test

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tapestry-ai/tapestry/pkg/models"
	"github.com/tapestry-ai/tapestry/pkg/persistence"
	"github.com/tapestry-ai/tapestry/pkg/persistence/postgresql"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

var postgresContainer *postgres.PostgresContainer

func setupTestStore(t *testing.T) (*postgresql.Store, context.Context) {
	t.Helper()

	if os.Getenv("TESTCONTAINERS_DISABLED") != "" {
		t.Skip("testcontainers disabled in this environment")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	t.Cleanup(cancel)

	if postgresContainer == nil || !postgresContainer.IsRunning() {
		var err error

		postgresContainer, err = postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("tapestry_test"),
			postgres.WithUsername("tapestry"),
			postgres.WithPassword("tapestry"),
			postgres.BasicWaitStrategies(),
		)
		require.NoError(t, err)
	}

	databaseURL, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	store, err := postgresql.NewStore(ctx, logger, databaseURL)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = store.Close(ctx)
	})

	return store, ctx
}

func testWorkflow() *models.Workflow {
	return &models.Workflow{
		ID:             uuid.New().String(),
		Name:           "Integration workflow",
		Status:         models.WorkflowStatusActive,
		MaxConcurrency: 2,
		Nodes: []*models.Node{
			{ID: "start", Type: models.NodeTypeStart},
			{ID: "end", Type: models.NodeTypeEnd},
		},
		Edges: []*models.Edge{
			{ID: "e1", SourceNodeID: "start", TargetNodeID: "end"},
		},
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
		UpdatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}
}

func TestPostgres_WorkflowRoundTrip(t *testing.T) {
	store, ctx := setupTestStore(t)

	workflow := testWorkflow()
	require.NoError(t, store.SaveWorkflow(ctx, workflow))

	loaded, err := store.WorkflowByID(ctx, workflow.ID)
	require.NoError(t, err)
	assert.Equal(t, workflow.Name, loaded.Name)
	require.Len(t, loaded.Nodes, 2)
	assert.Equal(t, models.NodeTypeStart, loaded.Nodes[0].Type)

	workflow.Name = "Renamed"
	require.NoError(t, store.SaveWorkflow(ctx, workflow))

	loaded, err = store.WorkflowByID(ctx, workflow.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", loaded.Name)
}

func TestPostgres_RunAndNodeRuns(t *testing.T) {
	store, ctx := setupTestStore(t)

	workflow := testWorkflow()
	require.NoError(t, store.SaveWorkflow(ctx, workflow))

	run := &models.WorkflowRun{
		ID:         uuid.New().String(),
		WorkflowID: workflow.ID,
		AgentID:    "agent-1",
		Status:     models.RunStatusRunning,
		Input:      map[string]any{"ticket": "OPS-7"},
		Snapshot:   workflow.Snapshot(),
		StartedAt:  time.Now().UTC().Truncate(time.Millisecond),
	}
	require.NoError(t, store.CreateRun(ctx, run))

	nodeRun := &models.NodeRun{
		ID:       uuid.New().String(),
		RunID:    run.ID,
		NodeID:   "start",
		NodeType: models.NodeTypeStart,
		Status:   models.NodeRunStatusRunning,
		Input:    map[string]any{"ticket": "OPS-7"},
	}
	require.NoError(t, store.CreateNodeRun(ctx, nodeRun))

	// Duplicate (run, node) creation must surface the sentinel.
	dup := &models.NodeRun{ID: uuid.New().String(), RunID: run.ID, NodeID: "start", Status: models.NodeRunStatusPending}
	err := store.CreateNodeRun(ctx, dup)
	assert.True(t, persistence.IsNodeRunExists(err))

	now := time.Now().UTC().Truncate(time.Millisecond)
	nodeRun.Status = models.NodeRunStatusCompleted
	nodeRun.Output = map[string]any{"ticket": "OPS-7"}
	nodeRun.CompletedAt = &now
	require.NoError(t, store.UpdateNodeRun(ctx, nodeRun))

	withNodeRuns, err := store.RunByID(ctx, run.ID, true)
	require.NoError(t, err)
	require.Len(t, withNodeRuns.NodeRuns, 1)
	assert.Equal(t, models.NodeRunStatusCompleted, withNodeRuns.NodeRuns[0].Status)

	active, err := store.ActiveRuns(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, active)
}

func TestPostgres_CascadeDelete(t *testing.T) {
	store, ctx := setupTestStore(t)

	workflow := testWorkflow()
	require.NoError(t, store.SaveWorkflow(ctx, workflow))

	run := &models.WorkflowRun{
		ID:         uuid.New().String(),
		WorkflowID: workflow.ID,
		Status:     models.RunStatusCompleted,
		Snapshot:   workflow.Snapshot(),
		StartedAt:  time.Now().UTC(),
	}
	require.NoError(t, store.CreateRun(ctx, run))
	require.NoError(t, store.CreateNodeRun(ctx, &models.NodeRun{
		ID: uuid.New().String(), RunID: run.ID, NodeID: "start",
		NodeType: models.NodeTypeStart, Status: models.NodeRunStatusCompleted,
	}))

	require.NoError(t, store.DeleteWorkflow(ctx, workflow.ID))

	_, err := store.RunByID(ctx, run.ID, false)
	assert.True(t, persistence.IsRunNotFound(err))

	nodeRuns, err := store.NodeRunsByRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Empty(t, nodeRuns)
}
