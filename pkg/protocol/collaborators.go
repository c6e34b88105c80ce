package protocol

import "context"

// AgentRunner is the external agent-execution collaborator. Invoke blocks
// until the agent session finishes and returns its final response payload.
// The engine never retries; retry policy belongs to the collaborator.
type AgentRunner interface {
	Invoke(ctx context.Context, sessionID, prompt string, maxTurns int) (map[string]any, error)

	// Cancel is best-effort; the engine does not block on acknowledgement.
	Cancel(ctx context.Context, sessionID string) error
}

// TaskRunner is the external long-running task collaborator.
type TaskRunner interface {
	Invoke(ctx context.Context, taskID, description string) (map[string]any, error)
	Cancel(ctx context.Context, taskID string) error
}

// EventSource delivers named external events to webhook_wait nodes. The
// returned channel yields at most the matching event payloads; the cancel
// function releases the subscription.
type EventSource interface {
	Subscribe(ctx context.Context, eventName string) (<-chan map[string]any, func(), error)
}
