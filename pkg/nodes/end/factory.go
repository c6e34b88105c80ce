package end

import (
	"context"

	"github.com/tapestry-ai/tapestry/pkg/models"
	"github.com/tapestry-ai/tapestry/pkg/protocol"
)

type EndNodeFactory struct{}

func NewEndNodeFactory() protocol.NodeFactory {
	return &EndNodeFactory{}
}

func (f *EndNodeFactory) Create(_ context.Context, node *models.Node) (protocol.Node, error) {
	return NewEndNode(node.ID), nil
}

func (f *EndNodeFactory) Type() models.NodeType {
	return models.NodeTypeEnd
}

func (f *EndNodeFactory) Name() string {
	return "End"
}

func (f *EndNodeFactory) Description() string {
	return "Exit point of a workflow. Captures the branch's resolved value as the run output."
}

func (f *EndNodeFactory) Schema() map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": map[string]any{},
	}
}
