package httprunner_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tapestry-ai/tapestry/pkg/runners/httprunner"
)

func TestAgentRunnerInvoke(t *testing.T) {
	var received map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/sessions", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"answer": "rebooted the service"}`))
	}))
	defer server.Close()

	runner := httprunner.NewAgentRunner(slog.Default(), server.URL)

	output, err := runner.Invoke(context.Background(), "sess-1", "fix the outage", 10)
	require.NoError(t, err)

	assert.Equal(t, "rebooted the service", output["answer"])
	assert.Equal(t, "sess-1", received["session_id"])
	assert.Equal(t, "fix the outage", received["prompt"])
	assert.Equal(t, float64(10), received["max_turns"])
}

func TestAgentRunnerInvokeErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "session backend unavailable", http.StatusBadGateway)
	}))
	defer server.Close()

	runner := httprunner.NewAgentRunner(slog.Default(), server.URL)

	_, err := runner.Invoke(context.Background(), "sess-1", "fix the outage", 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
	assert.Contains(t, err.Error(), "session backend unavailable")
}

func TestTaskRunnerInvokeAndCancel(t *testing.T) {
	var cancelPath string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/tasks":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"status": "done"}`))
		default:
			cancelPath = r.URL.Path
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer server.Close()

	runner := httprunner.NewTaskRunner(slog.Default(), server.URL)

	output, err := runner.Invoke(context.Background(), "task-1", "build the release")
	require.NoError(t, err)
	assert.Equal(t, "done", output["status"])

	require.NoError(t, runner.Cancel(context.Background(), "task-1"))
	assert.Equal(t, "/tasks/task-1/cancel", cancelPath)
}

func TestTaskRunnerInvokeHonorsContext(t *testing.T) {
	block := make(chan struct{})

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-block
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()
	defer close(block)

	runner := httprunner.NewTaskRunner(slog.Default(), server.URL)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := runner.Invoke(ctx, "task-1", "never finishes")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
