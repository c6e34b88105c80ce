// Package protocol defines the contracts between the scheduler, the per-type
// node dispatchers, and the external collaborators that perform step work.
package protocol

import (
	"context"
	"log/slog"
	"time"

	"github.com/tapestry-ai/tapestry/pkg/models"
)

// ExecutionContext carries everything a node dispatcher may read when a node
// is entered. Input is the node's resolved input: the originating run input
// merged with the predecessor output under "prev".
type ExecutionContext struct {
	RunID     string
	NodeRunID string
	Node      *models.Node
	Input     map[string]any

	// StartedAt is the node-run's first start time. On recovery re-dispatch
	// it predates "now", letting timer-bound nodes resume the remaining
	// wait instead of restarting it.
	StartedAt time.Time

	Logger   *slog.Logger
	Signaler CompletionSignaler
}

// Result is the outcome of entering a node.
//
// Synchronous nodes return Output directly. Suspending nodes return
// Suspended=true after arranging for an asynchronous completion signal; the
// scheduler records them as live and moves on.
type Result struct {
	Output    map[string]any
	Suspended bool

	// Handles to the external operation, recorded on the NodeRun for
	// observers and best-effort cancellation.
	SessionID *string
	TaskID    *string
}

// CompletionSignaler is how suspended node work reports back to the
// scheduler. Implementations must be safe for concurrent use; signals for
// runs that have already reached a terminal state are ignored.
type CompletionSignaler interface {
	NodeSucceeded(ctx context.Context, runID, nodeID string, output map[string]any)
	NodeFailed(ctx context.Context, runID, nodeID, message string)
}

// Node is a per-type dispatcher instance bound to one graph node's config.
type Node interface {
	// Execute enters the node. For suspending types it must return promptly
	// after starting the asynchronous work.
	Execute(ctx context.Context, ectx ExecutionContext) (*Result, error)

	// Suspends reports whether entering this node parks it in a waiting
	// state rather than running to completion synchronously.
	Suspends() bool
}

// NodeFactory builds Node instances for one node type and describes its
// config schema.
type NodeFactory interface {
	// Create binds a dispatcher to a concrete graph node, validating its
	// config shape.
	Create(ctx context.Context, node *models.Node) (Node, error)

	// Type returns the node type this factory serves.
	Type() models.NodeType

	// Name returns the human-readable name for this node type.
	Name() string

	// Description returns a description of what this node does.
	Description() string

	// Schema returns the JSON schema for this node type's config.
	Schema() map[string]any
}
