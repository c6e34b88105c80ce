package models

import (
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkflow_Validation(t *testing.T) {
	validate := validator.New(validator.WithRequiredStructEnabled())

	workflow := &Workflow{
		ID:             "wf-1",
		Name:           "Release pipeline",
		Status:         WorkflowStatusActive,
		MaxConcurrency: 2,
	}

	assert.NoError(t, validate.Struct(workflow))

	workflow.Name = "ab"
	assert.Error(t, validate.Struct(workflow), "names under 3 chars are rejected")

	workflow.Name = "Release pipeline"
	workflow.Status = WorkflowStatus("archived")
	assert.Error(t, validate.Struct(workflow))
}

func TestSnapshot_IsIndependentOfWorkflowEdits(t *testing.T) {
	workflow := &Workflow{
		ID:     "wf-1",
		Name:   "Snapshot test",
		Status: WorkflowStatusActive,
		Nodes: []*Node{
			{ID: "start", Type: NodeTypeStart, Config: map[string]any{"note": "v1", "nested": map[string]any{"k": "v"}}},
			{ID: "end", Type: NodeTypeEnd},
		},
		Edges: []*Edge{
			{ID: "e1", SourceNodeID: "start", TargetNodeID: "end"},
		},
	}

	snapshot := workflow.Snapshot()

	// Mutate the live workflow after the snapshot was taken.
	workflow.Nodes[0].Config["note"] = "v2"
	workflow.Nodes[0].Config["nested"].(map[string]any)["k"] = "changed"
	workflow.Edges[0].TargetNodeID = "elsewhere"
	workflow.Nodes = workflow.Nodes[:1]

	require.Len(t, snapshot.Nodes, 2)
	assert.Equal(t, "v1", snapshot.NodeByID("start").Config["note"])
	assert.Equal(t, "v", snapshot.NodeByID("start").Config["nested"].(map[string]any)["k"])
	assert.Equal(t, "end", snapshot.Edges[0].TargetNodeID)
}

func TestSnapshot_EdgeLookups(t *testing.T) {
	snapshot := &GraphSnapshot{
		Nodes: []*Node{
			{ID: "a", Type: NodeTypeStart},
			{ID: "b", Type: NodeTypeParallel},
			{ID: "c", Type: NodeTypeEnd},
		},
		Edges: []*Edge{
			{ID: "e1", SourceNodeID: "a", TargetNodeID: "b"},
			{ID: "e2", SourceNodeID: "b", TargetNodeID: "c"},
			{ID: "e3", SourceNodeID: "a", TargetNodeID: "c"},
		},
	}

	assert.Len(t, snapshot.EdgesFrom("a"), 2)
	assert.Len(t, snapshot.EdgesInto("c"), 2)
	assert.Nil(t, snapshot.NodeByID("ghost"))

	ends := snapshot.NodesByType(NodeTypeEnd)
	require.Len(t, ends, 1)
	assert.Equal(t, "c", ends[0].ID)
}

func TestRunStatus_Terminality(t *testing.T) {
	assert.False(t, RunStatusRunning.IsTerminal())
	assert.False(t, RunStatusPaused.IsTerminal())
	assert.True(t, RunStatusCompleted.IsTerminal())
	assert.True(t, RunStatusFailed.IsTerminal())
	assert.True(t, RunStatusCancelled.IsTerminal())
}

func TestNodeRunStatus_Terminality(t *testing.T) {
	for _, status := range []NodeRunStatus{NodeRunStatusPending, NodeRunStatusRunning, NodeRunStatusWaiting} {
		assert.False(t, status.IsTerminal(), string(status))
	}

	for _, status := range []NodeRunStatus{NodeRunStatusCompleted, NodeRunStatusFailed, NodeRunStatusSkipped} {
		assert.True(t, status.IsTerminal(), string(status))
	}
}

func TestNodeRun_StartedAtShape(t *testing.T) {
	now := time.Now().UTC()

	nodeRun := &NodeRun{
		ID:        "nr-1",
		RunID:     "run-1",
		NodeID:    "task",
		NodeType:  NodeTypeWorkTask,
		Status:    NodeRunStatusRunning,
		StartedAt: &now,
	}

	assert.Nil(t, nodeRun.CompletedAt)
	assert.NotNil(t, nodeRun.StartedAt)
}

func TestNode_DisplayLabel(t *testing.T) {
	assert.Equal(t, "Review PR", (&Node{ID: "n1", Label: "Review PR"}).DisplayLabel())
	assert.Equal(t, "n1", (&Node{ID: "n1"}).DisplayLabel())
}
