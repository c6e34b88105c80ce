// Package webhookwait provides the external-event wait node.
package webhookwait

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/tapestry-ai/tapestry/pkg/protocol"
)

// WebhookWaitNode suspends until an external event with the configured
// name arrives, or the timeout elapses. Timeout is a node failure.
type WebhookWaitNode struct {
	id           string
	webhookEvent string
	timeoutMs    int
	source       protocol.EventSource
	clock        clockwork.Clock
}

func NewWebhookWaitNode(id string, config map[string]any, source protocol.EventSource, clock clockwork.Clock) (*WebhookWaitNode, error) {
	eventName, ok := config["webhookEvent"].(string)
	if !ok || eventName == "" {
		return nil, errors.New("missing required field 'webhookEvent'")
	}

	timeoutMs := 0

	if raw, ok := config["timeoutMs"]; ok {
		parsed, err := intFromConfig(raw)
		if err != nil || parsed < 0 {
			return nil, fmt.Errorf("invalid 'timeoutMs' value: %v", raw)
		}

		timeoutMs = parsed
	}

	return &WebhookWaitNode{
		id:           id,
		webhookEvent: eventName,
		timeoutMs:    timeoutMs,
		source:       source,
		clock:        clock,
	}, nil
}

func (n *WebhookWaitNode) Execute(ctx context.Context, ectx protocol.ExecutionContext) (*protocol.Result, error) {
	events, cancel, err := n.source.Subscribe(ctx, n.webhookEvent)
	if err != nil {
		return nil, fmt.Errorf("subscribe to event %q failed: %w", n.webhookEvent, err)
	}

	// Timeouts are measured from the node-run's first start so a
	// recovery re-dispatch does not extend the wait.
	var timeout <-chan time.Time

	if n.timeoutMs > 0 {
		remaining := time.Duration(n.timeoutMs)*time.Millisecond - n.clock.Since(ectx.StartedAt)
		if remaining < 0 {
			remaining = 0
		}

		timeout = n.clock.After(remaining)
	}

	go func() {
		defer cancel()

		select {
		case payload, ok := <-events:
			if !ok {
				return
			}

			ectx.Signaler.NodeSucceeded(ctx, ectx.RunID, n.id, payload)
		case <-timeout:
			ectx.Signaler.NodeFailed(ctx, ectx.RunID, n.id,
				fmt.Sprintf("webhook wait for %q timed out after %dms", n.webhookEvent, n.timeoutMs))
		case <-ctx.Done():
		}
	}()

	return &protocol.Result{Suspended: true}, nil
}

func (n *WebhookWaitNode) Suspends() bool {
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
