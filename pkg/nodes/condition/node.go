// Package condition provides boolean branch labeling for workflow
// execution. The node only labels a result; edge conditions select the
// branch that actually fires.
package condition

import (
	"context"
	"errors"
	"fmt"

	"github.com/tapestry-ai/tapestry/pkg/expression"
	"github.com/tapestry-ai/tapestry/pkg/protocol"
)

type ConditionNode struct {
	id         string
	expression string
	evaluator  *expression.Evaluator
}

func NewConditionNode(id string, config map[string]any, evaluator *expression.Evaluator) (*ConditionNode, error) {
	expr, ok := config["expression"].(string)
	if !ok || expr == "" {
		return nil, errors.New("missing required field 'expression'")
	}

	return &ConditionNode{
		id:         id,
		expression: expr,
		evaluator:  evaluator,
	}, nil
}

// Execute evaluates the expression against the node input and reports
// the coerced boolean as conditionResult.
func (n *ConditionNode) Execute(_ context.Context, ectx protocol.ExecutionContext) (*protocol.Result, error) {
	result, err := n.evaluator.Evaluate(n.expression, ectx.Input)
	if err != nil {
		return nil, fmt.Errorf("condition evaluation failed: %w", err)
	}

	return &protocol.Result{
		Output: map[string]any{
			"conditionResult": result,
		},
	}, nil
}

func (n *ConditionNode) Suspends() bool {
	return false
}
