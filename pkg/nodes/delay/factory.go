package delay

import (
	"context"

	"github.com/jonboulle/clockwork"
	"github.com/tapestry-ai/tapestry/pkg/models"
	"github.com/tapestry-ai/tapestry/pkg/protocol"
)

type DelayNodeFactory struct {
	clock clockwork.Clock
}

func NewDelayNodeFactory(clock clockwork.Clock) protocol.NodeFactory {
	return &DelayNodeFactory{clock: clock}
}

func (f *DelayNodeFactory) Create(_ context.Context, node *models.Node) (protocol.Node, error) {
	return NewDelayNode(node.ID, node.Config, f.clock)
}

func (f *DelayNodeFactory) Type() models.NodeType {
	return models.NodeTypeDelay
}

func (f *DelayNodeFactory) Name() string {
	return "Delay"
}

func (f *DelayNodeFactory) Description() string {
	return "Suspends the branch for a fixed duration."
}

func (f *DelayNodeFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"delayMs": map[string]any{
				"type":        "integer",
				"minimum":     0,
				"description": "Milliseconds to wait before the branch resumes.",
			},
		},
		"required": []string{"delayMs"},
	}
}
