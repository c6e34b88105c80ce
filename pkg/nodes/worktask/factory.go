package worktask

import (
	"context"

	"github.com/tapestry-ai/tapestry/pkg/models"
	"github.com/tapestry-ai/tapestry/pkg/protocol"
)

type WorkTaskNodeFactory struct {
	runner protocol.TaskRunner
}

func NewWorkTaskNodeFactory(runner protocol.TaskRunner) protocol.NodeFactory {
	return &WorkTaskNodeFactory{runner: runner}
}

func (f *WorkTaskNodeFactory) Create(_ context.Context, node *models.Node) (protocol.Node, error) {
	return NewWorkTaskNode(node.ID, node.Config, f.runner)
}

func (f *WorkTaskNodeFactory) Type() models.NodeType {
	return models.NodeTypeWorkTask
}

func (f *WorkTaskNodeFactory) Name() string {
	return "Work Task"
}

func (f *WorkTaskNodeFactory) Description() string {
	return "Runs a long-running external task. Suspends until the task runner finishes."
}

func (f *WorkTaskNodeFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"description": map[string]any{
				"type":        "string",
				"description": "Task description handed to the task runner. Supports {{dotted.path}} placeholders.",
			},
		},
		"required": []string{"description"},
	}
}
