// Package join provides the fan-in marker node.
package join

import (
	"context"

	"github.com/tapestry-ai/tapestry/pkg/protocol"
)

// JoinNode fires only after every predecessor has completed; the
// scheduler enforces that readiness rule. The node itself just passes
// the merged predecessor context through.
type JoinNode struct {
	id string
}

func NewJoinNode(id string) *JoinNode {
	return &JoinNode{id: id}
}

func (n *JoinNode) Execute(_ context.Context, ectx protocol.ExecutionContext) (*protocol.Result, error) {
	return &protocol.Result{Output: ectx.Input}, nil
}

func (n *JoinNode) Suspends() bool {
	return false
}
