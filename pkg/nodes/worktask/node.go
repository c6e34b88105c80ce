// Package worktask delegates node work to the external long-running
// task collaborator.
package worktask

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/tapestry-ai/tapestry/pkg/protocol"
	"github.com/tapestry-ai/tapestry/pkg/template"
)

// WorkTaskNode starts a long-running task and suspends until the
// collaborator reports completion or failure.
type WorkTaskNode struct {
	id          string
	description string
	runner      protocol.TaskRunner
}

func NewWorkTaskNode(id string, config map[string]any, runner protocol.TaskRunner) (*WorkTaskNode, error) {
	description, ok := config["description"].(string)
	if !ok || description == "" {
		return nil, errors.New("missing required field 'description'")
	}

	return &WorkTaskNode{
		id:          id,
		description: description,
		runner:      runner,
	}, nil
}

func (n *WorkTaskNode) Execute(ctx context.Context, ectx protocol.ExecutionContext) (*protocol.Result, error) {
	rendered, err := template.Render(n.description, ectx.Input)
	if err != nil {
		return nil, fmt.Errorf("description rendering failed: %w", err)
	}

	description := fmt.Sprintf("%v", rendered)
	taskID := uuid.New().String()

	go func() {
		output, err := n.runner.Invoke(ctx, taskID, description)
		if err != nil {
			ectx.Signaler.NodeFailed(ctx, ectx.RunID, n.id, err.Error())

			return
		}

		ectx.Signaler.NodeSucceeded(ctx, ectx.RunID, n.id, output)
	}()

	return &protocol.Result{
		Suspended: true,
		TaskID:    &taskID,
	}, nil
}

func (n *WorkTaskNode) Suspends() bool {
	return true
}
