// Package httprunner provides HTTP client implementations of the agent and
// task collaborator contracts. Each invocation is one blocking POST to the
// collaborator service; the response body is the final output payload.
package httprunner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

func newRequest(ctx context.Context, method, url string, payload any) (*http.Request, error) {
	var body io.Reader

	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request payload: %w", err)
		}

		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")

	return req, nil
}

func doJSON(client *http.Client, req *http.Request) (map[string]any, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}

	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("collaborator returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	output := map[string]any{}

	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &output); err != nil {
			return nil, fmt.Errorf("failed to decode response body: %w", err)
		}
	}

	return output, nil
}

// AgentRunner invokes agent sessions over HTTP.
type AgentRunner struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

func NewAgentRunner(logger *slog.Logger, baseURL string) *AgentRunner {
	return &AgentRunner{
		baseURL: strings.TrimRight(baseURL, "/"),
		// No client timeout: agent sessions are long-lived and bounded
		// by the request context instead.
		client: &http.Client{},
		logger: logger.With("module", "httprunner.agent"),
	}
}

func (r *AgentRunner) Invoke(ctx context.Context, sessionID, prompt string, maxTurns int) (map[string]any, error) {
	req, err := newRequest(ctx, http.MethodPost, r.baseURL+"/sessions", map[string]any{
		"session_id": sessionID,
		"prompt":     prompt,
		"max_turns":  maxTurns,
	})
	if err != nil {
		return nil, err
	}

	r.logger.InfoContext(ctx, "invoking agent session", "session_id", sessionID)

	return doJSON(r.client, req)
}

func (r *AgentRunner) Cancel(ctx context.Context, sessionID string) error {
	req, err := newRequest(ctx, http.MethodPost, r.baseURL+"/sessions/"+sessionID+"/cancel", nil)
	if err != nil {
		return err
	}

	_, err = doJSON(r.client, req)

	return err
}

// TaskRunner dispatches long-running work tasks over HTTP.
type TaskRunner struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

func NewTaskRunner(logger *slog.Logger, baseURL string) *TaskRunner {
	return &TaskRunner{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{},
		logger:  logger.With("module", "httprunner.task"),
	}
}

func (r *TaskRunner) Invoke(ctx context.Context, taskID, description string) (map[string]any, error) {
	req, err := newRequest(ctx, http.MethodPost, r.baseURL+"/tasks", map[string]any{
		"task_id":     taskID,
		"description": description,
	})
	if err != nil {
		return nil, err
	}

	r.logger.InfoContext(ctx, "dispatching work task", "task_id", taskID)

	return doJSON(r.client, req)
}

func (r *TaskRunner) Cancel(ctx context.Context, taskID string) error {
	req, err := newRequest(ctx, http.MethodPost, r.baseURL+"/tasks/"+taskID+"/cancel", nil)
	if err != nil {
		return err
	}

	_, err = doJSON(r.client, req)

	return err
}
