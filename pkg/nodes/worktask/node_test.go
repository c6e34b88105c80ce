package worktask

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tapestry-ai/tapestry/pkg/protocol"
)

type fakeRunner struct {
	output map[string]any
	err    error

	gotDescription string
}

func (f *fakeRunner) Invoke(_ context.Context, _ string, description string) (map[string]any, error) {
	f.gotDescription = description

	return f.output, f.err
}

func (f *fakeRunner) Cancel(_ context.Context, _ string) error {
	return nil
}

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

func TestWorkTaskNode_Execute(t *testing.T) {
	runner := &fakeRunner{output: map[string]any{"artifact": "report.pdf"}}
	recorder := newSignalRecorder()

	node, err := NewWorkTaskNode("task-1", map[string]any{
		"description": "Build report for {{prev.customer}}",
	}, runner)
	require.NoError(t, err)
	require.True(t, node.Suspends())

	result, err := node.Execute(context.Background(), protocol.ExecutionContext{
		RunID:    "run-1",
		Input:    map[string]any{"prev": map[string]any{"customer": "acme"}},
		Signaler: recorder,
	})
	require.NoError(t, err)
	assert.True(t, result.Suspended)
	require.NotNil(t, result.TaskID)

	select {
	case output := <-recorder.succeeded:
		assert.Equal(t, "report.pdf", output["artifact"])
	case <-time.After(time.Second):
		t.Fatal("completion signal never arrived")
	}

	assert.Equal(t, "Build report for acme", runner.gotDescription)
}

func TestWorkTaskNode_RunnerFailure(t *testing.T) {
	runner := &fakeRunner{err: errors.New("task runner unavailable")}
	recorder := newSignalRecorder()

	node, err := NewWorkTaskNode("task-1", map[string]any{"description": "work"}, runner)
	require.NoError(t, err)

	_, err = node.Execute(context.Background(), protocol.ExecutionContext{
		RunID:    "run-1",
		Input:    map[string]any{},
		Signaler: recorder,
	})
	require.NoError(t, err)

	select {
	case message := <-recorder.failed:
		assert.Equal(t, "task runner unavailable", message)
	case <-time.After(time.Second):
		t.Fatal("failure signal never arrived")
	}
}

func TestWorkTaskNode_MissingDescription(t *testing.T) {
	_, err := NewWorkTaskNode("task-1", map[string]any{}, &fakeRunner{})
	require.Error(t, err)
}
