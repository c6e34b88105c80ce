// Package start provides the run entry node.
package start

import (
	"context"

	"github.com/tapestry-ai/tapestry/pkg/protocol"
)

// StartNode passes the run's input through unchanged.
type StartNode struct {
	id string
}

func NewStartNode(id string) *StartNode {
	return &StartNode{id: id}
}

func (n *StartNode) Execute(_ context.Context, ectx protocol.ExecutionContext) (*protocol.Result, error) {
	return &protocol.Result{Output: ectx.Input}, nil
}

func (n *StartNode) Suspends() bool {
	return false
}
