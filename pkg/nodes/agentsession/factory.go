package agentsession

import (
	"context"

	"github.com/tapestry-ai/tapestry/pkg/models"
	"github.com/tapestry-ai/tapestry/pkg/protocol"
)

type AgentSessionNodeFactory struct {
	runner protocol.AgentRunner
}

func NewAgentSessionNodeFactory(runner protocol.AgentRunner) protocol.NodeFactory {
	return &AgentSessionNodeFactory{runner: runner}
}

func (f *AgentSessionNodeFactory) Create(_ context.Context, node *models.Node) (protocol.Node, error) {
	return NewAgentSessionNode(node.ID, node.Config, f.runner)
}

func (f *AgentSessionNodeFactory) Type() models.NodeType {
	return models.NodeTypeAgentSession
}

func (f *AgentSessionNodeFactory) Name() string {
	return "Agent Session"
}

func (f *AgentSessionNodeFactory) Description() string {
	return "Runs an agent session with the configured prompt. Suspends until the agent finishes."
}

func (f *AgentSessionNodeFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"prompt": map[string]any{
				"type":        "string",
				"description": "Prompt sent to the agent. Supports {{dotted.path}} placeholders against the node input.",
			},
			"maxTurns": map[string]any{
				"type":        "integer",
				"minimum":     1,
				"description": "Maximum agent turns before the collaborator gives up.",
			},
		},
		"required": []string{"prompt"},
	}
}
