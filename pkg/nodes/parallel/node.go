// Package parallel provides the fan-out marker node.
package parallel

import (
	"context"

	"github.com/tapestry-ai/tapestry/pkg/protocol"
)

// ParallelNode has no computation of its own. Completing it makes every
// successor concurrently eligible; the input passes through so each
// branch sees the same predecessor context.
type ParallelNode struct {
	id string
}

func NewParallelNode(id string) *ParallelNode {
	return &ParallelNode{id: id}
}

func (n *ParallelNode) Execute(_ context.Context, ectx protocol.ExecutionContext) (*protocol.Result, error) {
	return &protocol.Result{Output: ectx.Input}, nil
}

func (n *ParallelNode) Suspends() bool {
	return false
}
