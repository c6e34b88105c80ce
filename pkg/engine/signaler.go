package engine

import (
	"context"

	"github.com/tapestry-ai/tapestry/pkg/events"
	"github.com/tapestry-ai/tapestry/pkg/models"
)

// NodeSucceeded resumes a suspended node with its output and re-enters
// the scheduler. Signals for already-terminal node-runs or runs are
// recorded at most once and never advance a terminal run.
func (e *Engine) NodeSucceeded(ctx context.Context, runID, nodeID string, output map[string]any) {
	// Suspended work may signal with an already-cancelled context.
	ctx = context.WithoutCancel(ctx)

	lock := e.runLock(runID)
	lock.Lock()
	defer lock.Unlock()

	nodeRun, err := e.persistence.NodeRunByRunAndNode(ctx, runID, nodeID)
	if err != nil {
		e.logger.Error("completion signal for unknown node run",
			"run_id", runID, "node_id", nodeID, "error", err)

		return
	}

	if nodeRun.Status.IsTerminal() {
		return
	}

	e.releaseIfRunning(nodeRun.NodeType, nodeRun.Status)

	now := e.clock.Now().UTC()
	nodeRun.Status = models.NodeRunStatusCompleted
	nodeRun.Output = output
	nodeRun.CompletedAt = &now

	if nodeRun.StartedAt == nil {
		nodeRun.StartedAt = &now
	}

	if err := e.persistence.UpdateNodeRun(ctx, nodeRun); err != nil {
		e.logger.Error("failed to record node completion",
			"run_id", runID, "node_id", nodeID, "error", err)

		return
	}

	run, err := e.persistence.RunByID(ctx, runID, true)
	if err != nil {
		e.logger.Error("failed to load run for completion signal", "run_id", runID, "error", err)

		return
	}

	e.publish(ctx, events.NodeCompleted{
		BaseEvent:  events.NewBaseEvent(events.NodeCompletedEvent, run.WorkflowID, runID),
		NodeID:     nodeID,
		NodeType:   nodeRun.NodeType,
		Output:     output,
		DurationMs: durationMs(*nodeRun.StartedAt, now),
	})

	if run.Status.IsTerminal() {
		// The run settled while this node was in flight; just drop it
		// from the live set now that it resolved.
		run.CurrentNodeIDs = liveNodeIDs(run.NodeRuns)

		if err := e.persistence.UpdateRun(ctx, run); err != nil {
			e.logger.Error("failed to update live set after late completion",
				"run_id", runID, "node_id", nodeID, "error", err)
		}

		return
	}

	if run.Status == models.RunStatusPaused {
		e.publish(ctx, events.RunResumed{
			BaseEvent: events.NewBaseEvent(events.RunResumedEvent, run.WorkflowID, runID),
			NodeID:    nodeID,
		})
	}

	if err := e.advanceLocked(ctx, runID); err != nil {
		e.logger.Error("failed to advance run after node completion",
			"run_id", runID, "node_id", nodeID, "error", err)
	}
}

// NodeFailed records a node failure and fails the owning run.
func (e *Engine) NodeFailed(ctx context.Context, runID, nodeID, message string) {
	ctx = context.WithoutCancel(ctx)

	lock := e.runLock(runID)
	lock.Lock()
	defer lock.Unlock()

	run, err := e.persistence.RunByID(ctx, runID, true)
	if err != nil {
		e.logger.Error("failed to load run for failure signal", "run_id", runID, "error", err)

		return
	}

	nodeRun := nodeRunsByNode(run.NodeRuns)[nodeID]
	if nodeRun == nil {
		e.logger.Error("failure signal for unknown node run", "run_id", runID, "node_id", nodeID)

		return
	}

	if nodeRun.Status.IsTerminal() {
		return
	}

	e.nodeRunFailed(ctx, run, nodeRun, message)
}
