package testutil

import (
	"context"
	"sync"
)

// InstantAgentRunner completes agent sessions immediately with a fixed
// response or error, recording every invocation.
type InstantAgentRunner struct {
	Response map[string]any
	Err      error

	mu         sync.Mutex
	invoked    []string
	cancelled  []string
	concurrent int
	maxSeen    int
}

func (r *InstantAgentRunner) Invoke(_ context.Context, sessionID, prompt string, _ int) (map[string]any, error) {
	r.mu.Lock()
	r.invoked = append(r.invoked, prompt)
	r.concurrent++

	if r.concurrent > r.maxSeen {
		r.maxSeen = r.concurrent
	}
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.concurrent--
		r.mu.Unlock()
	}()

	_ = sessionID

	if r.Err != nil {
		return nil, r.Err
	}

	if r.Response != nil {
		return r.Response, nil
	}

	return map[string]any{}, nil
}

func (r *InstantAgentRunner) Cancel(_ context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.cancelled = append(r.cancelled, sessionID)

	return nil
}

// Invocations returns the prompts seen so far.
func (r *InstantAgentRunner) Invocations() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]string(nil), r.invoked...)
}

// Cancelled returns the session ids Cancel was called with.
func (r *InstantAgentRunner) Cancelled() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]string(nil), r.cancelled...)
}

// MaxConcurrent reports the highest number of overlapping invocations.
func (r *InstantAgentRunner) MaxConcurrent() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.maxSeen
}

// InstantTaskRunner completes tasks immediately; responses may be keyed
// per description with Responses, falling back to Response.
type InstantTaskRunner struct {
	Response  map[string]any
	Responses map[string]map[string]any
	Err       error

	// Block, when non-nil, is closed by the test to release in-flight
	// invocations.
	Block chan struct{}

	mu         sync.Mutex
	invoked    []string
	cancelled  []string
	concurrent int
	maxSeen    int
}

func (r *InstantTaskRunner) Invoke(_ context.Context, taskID, description string) (map[string]any, error) {
	r.mu.Lock()
	r.invoked = append(r.invoked, description)
	r.concurrent++

	if r.concurrent > r.maxSeen {
		r.maxSeen = r.concurrent
	}

	block := r.Block
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.concurrent--
		r.mu.Unlock()
	}()

	_ = taskID

	if block != nil {
		<-block
	}

	if r.Err != nil {
		return nil, r.Err
	}

	if response, ok := r.Responses[description]; ok {
		return response, nil
	}

	if r.Response != nil {
		return r.Response, nil
	}

	return map[string]any{}, nil
}

func (r *InstantTaskRunner) Cancel(_ context.Context, taskID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.cancelled = append(r.cancelled, taskID)

	return nil
}

// MaxConcurrent reports the highest number of overlapping invocations.
func (r *InstantTaskRunner) MaxConcurrent() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.maxSeen
}

func (r *InstantTaskRunner) Invocations() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]string(nil), r.invoked...)
}

func (r *InstantTaskRunner) Cancelled() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]string(nil), r.cancelled...)
}
