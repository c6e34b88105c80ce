// Package persistence provides standardized error types for persistence operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types all implementations must use.
var (
	// ErrWorkflowNotFound indicates a workflow was not found by the given identifier.
	ErrWorkflowNotFound = errors.New("workflow not found")

	// ErrRunNotFound indicates a workflow run was not found by the given identifier.
	ErrRunNotFound = errors.New("workflow run not found")

	// ErrNodeRunNotFound indicates no node run exists for the given lookup.
	ErrNodeRunNotFound = errors.New("node run not found")

	// ErrNodeRunExists indicates a node run for the same (run, node) pair
	// already exists. The scheduler relies on this as its duplicate-entry
	// guard.
	ErrNodeRunExists = errors.New("node run already exists for this run and node")
)

// WorkflowError wraps workflow-related errors with operation context.
type WorkflowError struct {
	Op         string
	WorkflowID string
	Err        error
}

func (e *WorkflowError) Error() string {
	return fmt.Sprintf("%s operation failed for workflow %s: %v", e.Op, e.WorkflowID, e.Err)
}

func (e *WorkflowError) Unwrap() error {
	return e.Err
}

func (e *WorkflowError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewWorkflowError creates a workflow error with context.
func NewWorkflowError(op, workflowID string, err error) *WorkflowError {
	return &WorkflowError{Op: op, WorkflowID: workflowID, Err: err}
}

// RunError wraps run- and node-run-related errors with operation context.
type RunError struct {
	Op     string
	RunID  string
	NodeID string
	Err    error
}

func (e *RunError) Error() string {
	if e.NodeID != "" {
		return fmt.Sprintf("%s operation failed for node %s of run %s: %v", e.Op, e.NodeID, e.RunID, e.Err)
	}

	return fmt.Sprintf("%s operation failed for run %s: %v", e.Op, e.RunID, e.Err)
}

func (e *RunError) Unwrap() error {
	return e.Err
}

func (e *RunError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewRunError creates a run error with context.
func NewRunError(op, runID string, err error) *RunError {
	return &RunError{Op: op, RunID: runID, Err: err}
}

// NewNodeRunError creates a node-run error with context.
func NewNodeRunError(op, runID, nodeID string, err error) *RunError {
	return &RunError{Op: op, RunID: runID, NodeID: nodeID, Err: err}
}

// IsWorkflowNotFound checks if an error indicates a workflow was not found.
func IsWorkflowNotFound(err error) bool {
	return errors.Is(err, ErrWorkflowNotFound)
}

// IsRunNotFound checks if an error indicates a run was not found.
func IsRunNotFound(err error) bool {
	return errors.Is(err, ErrRunNotFound)
}

// IsNodeRunNotFound checks if an error indicates a node run was not found.
func IsNodeRunNotFound(err error) bool {
	return errors.Is(err, ErrNodeRunNotFound)
}

// IsNodeRunExists checks if an error indicates a duplicate node run creation.
func IsNodeRunExists(err error) bool {
	return errors.Is(err, ErrNodeRunExists)
}
