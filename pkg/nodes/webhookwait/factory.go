package webhookwait

import (
	"context"

	"github.com/jonboulle/clockwork"
	"github.com/tapestry-ai/tapestry/pkg/models"
	"github.com/tapestry-ai/tapestry/pkg/protocol"
)

type WebhookWaitNodeFactory struct {
	source protocol.EventSource
	clock  clockwork.Clock
}

func NewWebhookWaitNodeFactory(source protocol.EventSource, clock clockwork.Clock) protocol.NodeFactory {
	return &WebhookWaitNodeFactory{source: source, clock: clock}
}

func (f *WebhookWaitNodeFactory) Create(_ context.Context, node *models.Node) (protocol.Node, error) {
	return NewWebhookWaitNode(node.ID, node.Config, f.source, f.clock)
}

func (f *WebhookWaitNodeFactory) Type() models.NodeType {
	return models.NodeTypeWebhookWait
}

func (f *WebhookWaitNodeFactory) Name() string {
	return "Webhook Wait"
}

func (f *WebhookWaitNodeFactory) Description() string {
	return "Suspends until a matching external event arrives. Times out with a node failure when configured."
}

func (f *WebhookWaitNodeFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"webhookEvent": map[string]any{
				"type":        "string",
				"description": "Name of the external event that resumes this node.",
			},
			"timeoutMs": map[string]any{
				"type":        "integer",
				"minimum":     0,
				"description": "Milliseconds before the wait fails. Zero means no timeout.",
			},
		},
		"required": []string{"webhookEvent"},
	}
}
