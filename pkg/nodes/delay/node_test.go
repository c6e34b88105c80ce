package delay

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
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

func TestDelayNode_FiresAfterDuration(t *testing.T) {
	clock := clockwork.NewFakeClock()
	recorder := newSignalRecorder()

	node, err := NewDelayNode("delay-1", map[string]any{"delayMs": 5000}, clock)
	require.NoError(t, err)
	require.True(t, node.Suspends())

	result, err := node.Execute(context.Background(), protocol.ExecutionContext{
		RunID:     "run-1",
		StartedAt: clock.Now(),
		Signaler:  recorder,
	})
	require.NoError(t, err)
	assert.True(t, result.Suspended)

	clock.BlockUntil(1)

	select {
	case <-recorder.succeeded:
		t.Fatal("delay fired before the duration elapsed")
	default:
	}

	clock.Advance(5 * time.Second)

	select {
	case output := <-recorder.succeeded:
		assert.Equal(t, true, output["delayed"])
		assert.Equal(t, 5000, output["delayMs"])
	case <-time.After(time.Second):
		t.Fatal("delay never fired")
	}
}

func TestDelayNode_RecoveryWaitsOnlyRemaining(t *testing.T) {
	clock := clockwork.NewFakeClock()
	recorder := newSignalRecorder()

	node, err := NewDelayNode("delay-1", map[string]any{"delayMs": 10000}, clock)
	require.NoError(t, err)

	// The node first started 8s ago; only 2s remain.
	startedAt := clock.Now().Add(-8 * time.Second)

	_, err = node.Execute(context.Background(), protocol.ExecutionContext{
		RunID:     "run-1",
		StartedAt: startedAt,
		Signaler:  recorder,
	})
	require.NoError(t, err)

	clock.BlockUntil(1)
	clock.Advance(2 * time.Second)

	select {
	case <-recorder.succeeded:
	case <-time.After(time.Second):
		t.Fatal("delay never fired after remaining duration")
	}
}

func TestDelayNode_ConfigErrors(t *testing.T) {
	clock := clockwork.NewFakeClock()

	_, err := NewDelayNode("delay-1", map[string]any{}, clock)
	require.Error(t, err)

	_, err = NewDelayNode("delay-1", map[string]any{"delayMs": -1}, clock)
	require.Error(t, err)

	_, err = NewDelayNode("delay-1", map[string]any{"delayMs": "soon"}, clock)
	require.Error(t, err)
}
