// Package agentsession delegates node work to the external
// agent-execution collaborator.
package agentsession

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/tapestry-ai/tapestry/pkg/protocol"
	"github.com/tapestry-ai/tapestry/pkg/template"
)

const defaultMaxTurns = 10

// AgentSessionNode starts an agent session and suspends until the
// collaborator reports completion or failure through the signaler.
type AgentSessionNode struct {
	id       string
	prompt   string
	maxTurns int
	runner   protocol.AgentRunner
}

func NewAgentSessionNode(id string, config map[string]any, runner protocol.AgentRunner) (*AgentSessionNode, error) {
	prompt, ok := config["prompt"].(string)
	if !ok || prompt == "" {
		return nil, errors.New("missing required field 'prompt'")
	}

	maxTurns := defaultMaxTurns
	if raw, ok := config["maxTurns"]; ok {
		parsed, err := intFromConfig(raw)
		if err != nil || parsed < 1 {
			return nil, fmt.Errorf("invalid 'maxTurns' value: %v", raw)
		}

		maxTurns = parsed
	}

	return &AgentSessionNode{
		id:       id,
		prompt:   prompt,
		maxTurns: maxTurns,
		runner:   runner,
	}, nil
}

func (n *AgentSessionNode) Execute(ctx context.Context, ectx protocol.ExecutionContext) (*protocol.Result, error) {
	rendered, err := template.Render(n.prompt, ectx.Input)
	if err != nil {
		return nil, fmt.Errorf("prompt rendering failed: %w", err)
	}

	prompt := fmt.Sprintf("%v", rendered)
	sessionID := uuid.New().String()

	go func() {
		output, err := n.runner.Invoke(ctx, sessionID, prompt, n.maxTurns)
		if err != nil {
			ectx.Signaler.NodeFailed(ctx, ectx.RunID, n.id, err.Error())

			return
		}

		ectx.Signaler.NodeSucceeded(ctx, ectx.RunID, n.id, output)
	}()

	return &protocol.Result{
		Suspended: true,
		SessionID: &sessionID,
	}, nil
}

func (n *AgentSessionNode) Suspends() bool {
	return true
}

func intFromConfig(raw any) (int, error) {
	switch v := raw.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	default:
		return 0, fmt.Errorf("not a number: %T", raw)
	}
}
