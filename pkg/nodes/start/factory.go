package start

import (
	"context"

	"github.com/tapestry-ai/tapestry/pkg/models"
	"github.com/tapestry-ai/tapestry/pkg/protocol"
)

type StartNodeFactory struct{}

func NewStartNodeFactory() protocol.NodeFactory {
	return &StartNodeFactory{}
}

func (f *StartNodeFactory) Create(_ context.Context, node *models.Node) (protocol.Node, error) {
	return NewStartNode(node.ID), nil
}

func (f *StartNodeFactory) Type() models.NodeType {
	return models.NodeTypeStart
}

func (f *StartNodeFactory) Name() string {
	return "Start"
}

func (f *StartNodeFactory) Description() string {
	return "Entry point of a workflow. Passes the run input through to its successors."
}

func (f *StartNodeFactory) Schema() map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": map[string]any{},
	}
}
