package transform

import (
	"context"

	"github.com/tapestry-ai/tapestry/pkg/models"
	"github.com/tapestry-ai/tapestry/pkg/protocol"
)

type TransformNodeFactory struct{}

func NewTransformNodeFactory() protocol.NodeFactory {
	return &TransformNodeFactory{}
}

func (f *TransformNodeFactory) Create(_ context.Context, node *models.Node) (protocol.Node, error) {
	return NewTransformNode(node.ID, node.Config)
}

func (f *TransformNodeFactory) Type() models.NodeType {
	return models.NodeTypeTransform
}

func (f *TransformNodeFactory) Name() string {
	return "Transform"
}

func (f *TransformNodeFactory) Description() string {
	return "Renders a {{path}} template against the accumulated context and passes the context through."
}

func (f *TransformNodeFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"template": map[string]any{
				"type":        "string",
				"description": "Template with {{dotted.path}} placeholders resolved from the node input.",
				"examples": []string{
					"Ticket {{prev.ticket}} assigned to {{prev.assignee}}",
					"{{prev.payload}}",
				},
			},
		},
		"required": []string{"template"},
	}
}
