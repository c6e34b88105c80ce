// Package testutil provides test data builders and mock collaborators.
package testutil

import (
	"github.com/google/uuid"
	"github.com/tapestry-ai/tapestry/pkg/models"
)

// CreateTestWorkflow builds an active workflow with default values that
// can be overridden.
func CreateTestWorkflow(overrides ...func(*models.Workflow)) *models.Workflow {
	workflow := &models.Workflow{
		ID:             uuid.New().String(),
		Name:           "Test workflow",
		Status:         models.WorkflowStatusActive,
		MaxConcurrency: models.DefaultMaxConcurrency,
		Nodes: []*models.Node{
			Node("start", models.NodeTypeStart),
			Node("end", models.NodeTypeEnd),
		},
		Edges: []*models.Edge{
			Edge("start", "end"),
		},
	}

	for _, override := range overrides {
		override(workflow)
	}

	return workflow
}

// WithGraph replaces the workflow's nodes and edges.
func WithGraph(nodes []*models.Node, edges []*models.Edge) func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.Nodes = nodes
		w.Edges = edges
	}
}

// WithMaxConcurrency sets the per-run concurrency bound.
func WithMaxConcurrency(n int) func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.MaxConcurrency = n
	}
}

// WithStatus sets the workflow status.
func WithStatus(status models.WorkflowStatus) func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.Status = status
	}
}

// Node builds a graph node. The optional config argument sets the
// type-specific payload.
func Node(id string, nodeType models.NodeType, config ...map[string]any) *models.Node {
	node := &models.Node{
		ID:   id,
		Type: nodeType,
	}

	if len(config) > 0 {
		node.Config = config[0]
	}

	return node
}

// Edge builds an unconditioned edge between two nodes.
func Edge(source, target string) *models.Edge {
	return &models.Edge{
		ID:           source + "->" + target,
		SourceNodeID: source,
		TargetNodeID: target,
	}
}

// CondEdge builds an edge that fires only when the source's
// conditionResult matches the condition string.
func CondEdge(source, target, condition string) *models.Edge {
	edge := Edge(source, target)
	edge.ID = source + "->" + target + ":" + condition
	edge.Condition = condition

	return edge
}
