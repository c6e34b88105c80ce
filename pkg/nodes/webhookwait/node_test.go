package webhookwait

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tapestry-ai/tapestry/pkg/eventsource"
	"github.com/tapestry-ai/tapestry/pkg/protocol"
)

type signalRecorder struct {
	succeeded chan map[string]any
	failed    chan string
}

func newSignalRecorder() *signalRecorder {
	return &signalRecorder{
		succeeded: make(chan map[string]any, 1),
		failed:    make(chan string, 1),
	}
}

func (s *signalRecorder) NodeSucceeded(_ context.Context, _, _ string, output map[string]any) {
	s.succeeded <- output
}

func (s *signalRecorder) NodeFailed(_ context.Context, _, _ string, message string) {
	s.failed <- message
}

func TestWebhookWaitNode_ResumesOnEvent(t *testing.T) {
	hub := eventsource.NewHub()
	clock := clockwork.NewFakeClock()
	recorder := newSignalRecorder()

	node, err := NewWebhookWaitNode("wait-1", map[string]any{
		"webhookEvent": "approval.granted",
		"timeoutMs":    60000,
	}, hub, clock)
	require.NoError(t, err)
	require.True(t, node.Suspends())

	result, err := node.Execute(context.Background(), protocol.ExecutionContext{
		RunID:     "run-1",
		StartedAt: clock.Now(),
		Signaler:  recorder,
	})
	require.NoError(t, err)
	assert.True(t, result.Suspended)

	require.NoError(t, hub.Publish(context.Background(), "approval.granted", map[string]any{"by": "reviewer"}))

	select {
	case output := <-recorder.succeeded:
		assert.Equal(t, "reviewer", output["by"])
	case <-time.After(time.Second):
		t.Fatal("event never resumed the node")
	}
}

func TestWebhookWaitNode_TimeoutFails(t *testing.T) {
	hub := eventsource.NewHub()
	clock := clockwork.NewFakeClock()
	recorder := newSignalRecorder()

	node, err := NewWebhookWaitNode("wait-1", map[string]any{
		"webhookEvent": "approval.granted",
		"timeoutMs":    30000,
	}, hub, clock)
	require.NoError(t, err)

	_, err = node.Execute(context.Background(), protocol.ExecutionContext{
		RunID:     "run-1",
		StartedAt: clock.Now(),
		Signaler:  recorder,
	})
	require.NoError(t, err)

	clock.BlockUntil(1)
	clock.Advance(30 * time.Second)

	select {
	case message := <-recorder.failed:
		assert.Contains(t, message, "timed out after 30000ms")
	case <-time.After(time.Second):
		t.Fatal("timeout never fired")
	}
}

func TestWebhookWaitNode_NoTimeoutConfigured(t *testing.T) {
	hub := eventsource.NewHub()
	clock := clockwork.NewFakeClock()
	recorder := newSignalRecorder()

	node, err := NewWebhookWaitNode("wait-1", map[string]any{
		"webhookEvent": "deploy.finished",
	}, hub, clock)
	require.NoError(t, err)

	_, err = node.Execute(context.Background(), protocol.ExecutionContext{
		RunID:     "run-1",
		StartedAt: clock.Now(),
		Signaler:  recorder,
	})
	require.NoError(t, err)

	// With no timeout, nothing should fire on its own.
	select {
	case <-recorder.failed:
		t.Fatal("node failed without a timeout configured")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestWebhookWaitNode_ConfigErrors(t *testing.T) {
	hub := eventsource.NewHub()
	clock := clockwork.NewFakeClock()

	_, err := NewWebhookWaitNode("wait-1", map[string]any{}, hub, clock)
	require.Error(t, err)

	_, err = NewWebhookWaitNode("wait-1", map[string]any{"webhookEvent": "x", "timeoutMs": -5}, hub, clock)
	require.Error(t, err)
}
