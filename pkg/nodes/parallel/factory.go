package parallel

import (
	"context"

	"github.com/tapestry-ai/tapestry/pkg/models"
	"github.com/tapestry-ai/tapestry/pkg/protocol"
)

type ParallelNodeFactory struct{}

func NewParallelNodeFactory() protocol.NodeFactory {
	return &ParallelNodeFactory{}
}

func (f *ParallelNodeFactory) Create(_ context.Context, node *models.Node) (protocol.Node, error) {
	return NewParallelNode(node.ID), nil
}

func (f *ParallelNodeFactory) Type() models.NodeType {
	return models.NodeTypeParallel
}

func (f *ParallelNodeFactory) Name() string {
	return "Parallel"
}

func (f *ParallelNodeFactory) Description() string {
	return "Fan-out marker. Makes all successor nodes concurrently eligible."
}

func (f *ParallelNodeFactory) Schema() map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": map[string]any{},
	}
}
