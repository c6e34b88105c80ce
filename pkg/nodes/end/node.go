// Package end provides the run exit node.
package end

import (
	"context"

	"github.com/tapestry-ai/tapestry/pkg/protocol"
)

// EndNode marks its branch complete. Its output is the branch's resolved
// value, which the scheduler uses as the run output: the predecessor's
// output when one exists, otherwise the run input.
type EndNode struct {
	id string
}

func NewEndNode(id string) *EndNode {
	return &EndNode{id: id}
}

func (n *EndNode) Execute(_ context.Context, ectx protocol.ExecutionContext) (*protocol.Result, error) {
	if prev, ok := ectx.Input["prev"].(map[string]any); ok {
		return &protocol.Result{Output: prev}, nil
	}

	return &protocol.Result{Output: ectx.Input}, nil
}

func (n *EndNode) Suspends() bool {
	return false
}
