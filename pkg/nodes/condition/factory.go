package condition

import (
	"context"

	"github.com/tapestry-ai/tapestry/pkg/expression"
	"github.com/tapestry-ai/tapestry/pkg/models"
	"github.com/tapestry-ai/tapestry/pkg/protocol"
)

type ConditionNodeFactory struct {
	evaluator *expression.Evaluator
}

func NewConditionNodeFactory(evaluator *expression.Evaluator) protocol.NodeFactory {
	return &ConditionNodeFactory{evaluator: evaluator}
}

func (f *ConditionNodeFactory) Create(_ context.Context, node *models.Node) (protocol.Node, error) {
	return NewConditionNode(node.ID, node.Config, f.evaluator)
}

func (f *ConditionNodeFactory) Type() models.NodeType {
	return models.NodeTypeCondition
}

func (f *ConditionNodeFactory) Name() string {
	return "Condition"
}

func (f *ConditionNodeFactory) Description() string {
	return "Evaluates a restricted boolean expression against the accumulated context. Outgoing edges labeled 'true' or 'false' select the branch."
}

func (f *ConditionNodeFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"expression": map[string]any{
				"type":        "string",
				"description": "Boolean predicate over the node input. Dotted-path lookups, comparisons and contains() are supported.",
				"examples": []string{
					`prev.status == "approved"`,
					`prev.score > 75`,
					`contains(prev.tags, "urgent")`,
				},
			},
		},
		"required": []string{"expression"},
	}
}
