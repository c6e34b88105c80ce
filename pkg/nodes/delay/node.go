// Package delay provides the timer-bound wait node.
package delay

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/tapestry-ai/tapestry/pkg/protocol"
)

// DelayNode suspends the branch until the configured duration has
// elapsed since the node first started. On recovery re-dispatch only
// the remaining portion is waited.
type DelayNode struct {
	id      string
	delayMs int
	clock   clockwork.Clock
}

func NewDelayNode(id string, config map[string]any, clock clockwork.Clock) (*DelayNode, error) {
	raw, ok := config["delayMs"]
	if !ok {
		return nil, fmt.Errorf("missing required field 'delayMs'")
	}

	delayMs, err := intFromConfig(raw)
	if err != nil || delayMs < 0 {
		return nil, fmt.Errorf("invalid 'delayMs' value: %v", raw)
	}

	return &DelayNode{
		id:      id,
		delayMs: delayMs,
		clock:   clock,
	}, nil
}

func (n *DelayNode) Execute(ctx context.Context, ectx protocol.ExecutionContext) (*protocol.Result, error) {
	remaining := time.Duration(n.delayMs)*time.Millisecond - n.clock.Since(ectx.StartedAt)
	if remaining < 0 {
		remaining = 0
	}

	go func() {
		select {
		case <-n.clock.After(remaining):
			ectx.Signaler.NodeSucceeded(ctx, ectx.RunID, n.id, map[string]any{
				"delayed": true,
				"delayMs": n.delayMs,
			})
		case <-ctx.Done():
		}
	}()

	return &protocol.Result{Suspended: true}, nil
}

func (n *DelayNode) Suspends() bool {
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
