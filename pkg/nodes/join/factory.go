package join

import (
	"context"

	"github.com/tapestry-ai/tapestry/pkg/models"
	"github.com/tapestry-ai/tapestry/pkg/protocol"
)

type JoinNodeFactory struct{}

func NewJoinNodeFactory() protocol.NodeFactory {
	return &JoinNodeFactory{}
}

func (f *JoinNodeFactory) Create(_ context.Context, node *models.Node) (protocol.Node, error) {
	return NewJoinNode(node.ID), nil
}

func (f *JoinNodeFactory) Type() models.NodeType {
	return models.NodeTypeJoin
}

func (f *JoinNodeFactory) Name() string {
	return "Join"
}

func (f *JoinNodeFactory) Description() string {
	return "Fan-in marker. Becomes eligible only after every incoming branch has completed."
}

func (f *JoinNodeFactory) Schema() map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": map[string]any{},
	}
}
