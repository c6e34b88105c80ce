package engine

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/google/uuid"
	"github.com/tapestry-ai/tapestry/pkg/events"
	"github.com/tapestry-ai/tapestry/pkg/expression"
	"github.com/tapestry-ai/tapestry/pkg/models"
	"github.com/tapestry-ai/tapestry/pkg/otelhelper"
	"github.com/tapestry-ai/tapestry/pkg/persistence"
	"github.com/tapestry-ai/tapestry/pkg/protocol"
	"go.opentelemetry.io/otel/attribute"
)

// advanceLocked is one scheduling reaction: it repeats ready-set passes
// until none of them makes synchronous progress, then settles the run's
// status. Callers must hold the run lock.
func (e *Engine) advanceLocked(ctx context.Context, runID string) error {
	for {
		run, err := e.persistence.RunByID(ctx, runID, true)
		if err != nil {
			return err
		}

		if run.Status.IsTerminal() {
			return nil
		}

		progressed, err := e.schedulePass(ctx, run)
		if err != nil {
			return err
		}

		if !progressed {
			return e.settle(ctx, runID)
		}
	}
}

// schedulePass computes the ready set, queues a NodeRun for every ready
// node and admits queued nodes up to the concurrency bounds. It reports
// whether any node completed synchronously, which may have made new
// nodes ready.
func (e *Engine) schedulePass(ctx context.Context, run *models.WorkflowRun) (bool, error) {
	nodeRuns := nodeRunsByNode(run.NodeRuns)

	for _, node := range e.readySet(run.Snapshot, nodeRuns) {
		nodeRun := &models.NodeRun{
			ID:       uuid.New().String(),
			RunID:    run.ID,
			NodeID:   node.ID,
			NodeType: node.Type,
			Status:   models.NodeRunStatusPending,
			Input:    e.nodeInput(run, node, nodeRuns),
		}

		if err := e.persistence.CreateNodeRun(ctx, nodeRun); err != nil {
			// Concurrent creation is fine: (run, node) is unique.
			if persistence.IsNodeRunExists(err) {
				continue
			}

			return false, err
		}

		nodeRuns[node.ID] = nodeRun
		run.NodeRuns = append(run.NodeRuns, nodeRun)
	}

	queued := make([]*models.NodeRun, 0, len(run.NodeRuns))

	runningCount := 0

	for _, nodeRun := range run.NodeRuns {
		switch nodeRun.Status {
		case models.NodeRunStatusPending:
			queued = append(queued, nodeRun)
		case models.NodeRunStatusRunning:
			runningCount++
		}
	}

	sort.Slice(queued, func(i, j int) bool { return queued[i].NodeID < queued[j].NodeID })

	progressed := false

	for _, nodeRun := range queued {
		node := run.Snapshot.NodeByID(nodeRun.NodeID)
		if node == nil {
			return false, fmt.Errorf("node %s missing from snapshot of run %s", nodeRun.NodeID, run.ID)
		}

		// Timer- and event-bound waits hold no admission slot; the
		// caps bound running node operations.
		holdsSlot := !isWaitingType(node.Type)
		if holdsSlot {
			if runningCount >= run.Snapshot.MaxConcurrency {
				continue
			}

			if !e.slots.tryAcquire() {
				e.markStarved(run.ID)

				continue
			}

			runningCount++
		}

		completedSync, err := e.dispatch(ctx, run, node, nodeRun)
		if err != nil {
			return false, err
		}

		if completedSync {
			runningCount--
			progressed = true
		}

		if run.Status.IsTerminal() {
			return true, nil
		}
	}

	return progressed, nil
}

// dispatch transitions a queued NodeRun into running or waiting and
// invokes its node. Synchronous nodes complete within the call;
// suspending nodes arrange their completion signal and return.
func (e *Engine) dispatch(ctx context.Context, run *models.WorkflowRun, node *models.Node, nodeRun *models.NodeRun) (bool, error) {
	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "engine.dispatch",
		attribute.String(otelhelper.WorkflowIDKey, run.WorkflowID),
		attribute.String(otelhelper.RunIDKey, run.ID),
		attribute.String(otelhelper.NodeIDKey, node.ID),
		attribute.String(otelhelper.NodeTypeKey, string(node.Type)),
	)
	defer span.End()

	now := e.clock.Now().UTC()

	if isWaitingType(node.Type) {
		nodeRun.Status = models.NodeRunStatusWaiting
	} else {
		nodeRun.Status = models.NodeRunStatusRunning
	}

	if nodeRun.StartedAt == nil {
		startedAt := now
		nodeRun.StartedAt = &startedAt
	}

	if err := e.persistence.UpdateNodeRun(ctx, nodeRun); err != nil {
		e.releaseIfRunning(node.Type, nodeRun.Status)

		return false, err
	}

	if nodeRun.Status == models.NodeRunStatusWaiting {
		e.publish(ctx, events.NodeWaiting{
			BaseEvent: events.NewBaseEvent(events.NodeWaitingEvent, run.WorkflowID, run.ID),
			NodeID:    node.ID,
			NodeType:  node.Type,
		})
	} else {
		e.publish(ctx, events.NodeStarted{
			BaseEvent: events.NewBaseEvent(events.NodeStartedEvent, run.WorkflowID, run.ID),
			NodeID:    node.ID,
			NodeType:  node.Type,
			Input:     nodeRun.Input,
		})
	}

	executable, err := e.registry.CreateNode(ctx, node)
	if err != nil {
		otelhelper.SetError(span, err, attribute.String(otelhelper.NodeRunIDKey, nodeRun.ID))
		e.nodeRunFailed(ctx, run, nodeRun, err.Error())

		return false, nil
	}

	execCtx := ctx
	if executable.Suspends() {
		execCtx = e.runContextFor(run.ID)
	}

	result, err := executable.Execute(execCtx, protocol.ExecutionContext{
		RunID:     run.ID,
		NodeRunID: nodeRun.ID,
		Node:      node,
		Input:     nodeRun.Input,
		StartedAt: *nodeRun.StartedAt,
		Logger:    e.logger.With("run_id", run.ID, "node_id", node.ID),
		Signaler:  e,
	})
	if err != nil {
		otelhelper.SetError(span, err, attribute.String(otelhelper.NodeRunIDKey, nodeRun.ID))
		e.nodeRunFailed(ctx, run, nodeRun, err.Error())

		return false, nil
	}

	if result.Suspended {
		nodeRun.SessionID = result.SessionID
		nodeRun.TaskID = result.TaskID

		if err := e.persistence.UpdateNodeRun(ctx, nodeRun); err != nil {
			return false, err
		}

		return false, nil
	}

	completedAt := e.clock.Now().UTC()
	nodeRun.Status = models.NodeRunStatusCompleted
	nodeRun.Output = result.Output
	nodeRun.CompletedAt = &completedAt

	if err := e.persistence.UpdateNodeRun(ctx, nodeRun); err != nil {
		return false, err
	}

	e.releaseSlot()

	e.publish(ctx, events.NodeCompleted{
		BaseEvent:  events.NewBaseEvent(events.NodeCompletedEvent, run.WorkflowID, run.ID),
		NodeID:     node.ID,
		NodeType:   node.Type,
		Output:     result.Output,
		DurationMs: durationMs(*nodeRun.StartedAt, completedAt),
	})

	return true, nil
}

// nodeRunFailed records a node failure and fails the run (fail-fast).
func (e *Engine) nodeRunFailed(ctx context.Context, run *models.WorkflowRun, nodeRun *models.NodeRun, message string) {
	now := e.clock.Now().UTC()

	e.releaseIfRunning(nodeRun.NodeType, nodeRun.Status)

	nodeRun.Status = models.NodeRunStatusFailed
	nodeRun.Error = message
	nodeRun.CompletedAt = &now

	if nodeRun.StartedAt == nil {
		nodeRun.StartedAt = &now
	}

	if err := e.persistence.UpdateNodeRun(ctx, nodeRun); err != nil {
		e.logger.Error("failed to record node failure",
			"run_id", run.ID, "node_id", nodeRun.NodeID, "error", err)
	}

	e.publish(ctx, events.NodeFailed{
		BaseEvent: events.NewBaseEvent(events.NodeFailedEvent, run.WorkflowID, run.ID),
		NodeID:    nodeRun.NodeID,
		NodeType:  nodeRun.NodeType,
		Error:     message,
	})

	e.failRun(ctx, run, nodeRun.NodeID, message)
}

// failRun transitions the whole run to failed. In-flight siblings are
// left to finish; their outcomes no longer advance the run.
func (e *Engine) failRun(ctx context.Context, run *models.WorkflowRun, nodeID, message string) {
	if run.Status.IsTerminal() {
		// The run settled earlier; the late failure still removes the
		// node from the live set.
		run.CurrentNodeIDs = liveNodeIDs(run.NodeRuns)

		if err := e.persistence.UpdateRun(ctx, run); err != nil {
			e.logger.Error("failed to update live set after late failure",
				"run_id", run.ID, "node_id", nodeID, "error", err)
		}

		return
	}

	label := nodeID
	if node := run.Snapshot.NodeByID(nodeID); node != nil {
		label = node.DisplayLabel()
	}

	now := e.clock.Now().UTC()
	run.Status = models.RunStatusFailed
	run.Error = fmt.Sprintf("Node %q failed: %s", label, message)
	run.CompletedAt = &now
	run.CurrentNodeIDs = liveNodeIDs(run.NodeRuns)

	if err := e.persistence.UpdateRun(ctx, run); err != nil {
		e.logger.Error("failed to persist run failure", "run_id", run.ID, "error", err)

		return
	}

	e.skipQueuedNodeRuns(ctx, run, "run failed")

	e.logger.Warn("workflow run failed", "run_id", run.ID, "error", run.Error)

	e.publish(ctx, events.RunFailed{
		BaseEvent:  events.NewBaseEvent(events.RunFailedEvent, run.WorkflowID, run.ID),
		Error:      run.Error,
		NodeID:     nodeID,
		DurationMs: durationMs(run.StartedAt, now),
	})
}

// settle reconciles the run's status and frontier with its node-runs
// once a scheduling reaction has quiesced.
func (e *Engine) settle(ctx context.Context, runID string) error {
	run, err := e.persistence.RunByID(ctx, runID, true)
	if err != nil {
		return err
	}

	if run.Status.IsTerminal() {
		return nil
	}

	var pending, running, waiting int

	for _, nodeRun := range run.NodeRuns {
		switch nodeRun.Status {
		case models.NodeRunStatusPending:
			pending++
		case models.NodeRunStatusRunning:
			running++
		case models.NodeRunStatusWaiting:
			waiting++
		}
	}

	run.CurrentNodeIDs = liveNodeIDs(run.NodeRuns)

	if pending+running+waiting > 0 {
		status := models.RunStatusRunning
		if waiting > 0 && running == 0 && pending == 0 {
			status = models.RunStatusPaused
		}

		if status != run.Status {
			if status == models.RunStatusPaused {
				e.publish(ctx, events.RunPaused{
					BaseEvent:      events.NewBaseEvent(events.RunPausedEvent, run.WorkflowID, run.ID),
					WaitingNodeIDs: run.CurrentNodeIDs,
				})
			}

			run.Status = status
		}

		return e.persistence.UpdateRun(ctx, run)
	}

	// Quiescent: no live or queued work and nothing ready. The run
	// completes through an end node or has nowhere left to go.
	now := e.clock.Now().UTC()

	if endRun := completedEndRun(run); endRun != nil {
		run.Status = models.RunStatusCompleted
		run.Output = endRun.Output
		run.CompletedAt = &now

		if err := e.persistence.UpdateRun(ctx, run); err != nil {
			return err
		}

		e.logger.Info("workflow run completed", "run_id", run.ID)

		e.publish(ctx, events.RunCompleted{
			BaseEvent:  events.NewBaseEvent(events.RunCompletedEvent, run.WorkflowID, run.ID),
			Output:     run.Output,
			DurationMs: durationMs(run.StartedAt, now),
		})

		return nil
	}

	run.Status = models.RunStatusFailed
	run.Error = "no end node reached"
	run.CompletedAt = &now

	if err := e.persistence.UpdateRun(ctx, run); err != nil {
		return err
	}

	e.publish(ctx, events.RunFailed{
		BaseEvent:  events.NewBaseEvent(events.RunFailedEvent, run.WorkflowID, run.ID),
		Error:      run.Error,
		DurationMs: durationMs(run.StartedAt, now),
	})

	return nil
}

// readySet lists snapshot nodes with no NodeRun yet whose predecessors
// have resolved, in ascending node-id order.
//
// A node is ready when at least one inbound edge is live (source
// completed and the edge's condition, if any, matches the source's
// conditionResult) and no inbound edge's source can still deliver
// control. A source without a NodeRun blocks readiness too, unless
// control can no longer reach it at all (unselected conditional branch,
// or downstream of a failed or skipped path). A deeper branch that has
// not caught up yet must hold converging nodes back. Joins are
// stricter: every inbound source must have a completed NodeRun.
func (e *Engine) readySet(snapshot *models.GraphSnapshot, nodeRuns map[string]*models.NodeRun) []*models.Node {
	var ready []*models.Node

	reachable := stillReachable(snapshot, nodeRuns)

	for _, node := range snapshot.Nodes {
		if _, exists := nodeRuns[node.ID]; exists {
			continue
		}

		inbound := snapshot.EdgesInto(node.ID)

		if len(inbound) == 0 {
			// Only entry nodes start without predecessors.
			if node.Type == models.NodeTypeStart {
				ready = append(ready, node)
			}

			continue
		}

		if node.Type == models.NodeTypeJoin {
			if allSourcesCompleted(inbound, nodeRuns) {
				ready = append(ready, node)
			}

			continue
		}

		var live, blocked bool

		for _, edge := range inbound {
			source, exists := nodeRuns[edge.SourceNodeID]
			if !exists {
				if reachable[edge.SourceNodeID] {
					blocked = true

					break
				}

				continue
			}

			if !source.Status.IsTerminal() {
				blocked = true

				break
			}

			if source.Status == models.NodeRunStatusCompleted && edgeConditionMatches(edge, source.Output) {
				live = true
			}
		}

		if live && !blocked {
			ready = append(ready, node)
		}
	}

	sort.Slice(ready, func(i, j int) bool { return ready[i].ID < ready[j].ID })

	return ready
}

// nodeInput resolves a node's input: the run input with the predecessor
// output merged under "prev". With multiple completed predecessors the
// last one to complete wins, ties broken by node id.
func (e *Engine) nodeInput(run *models.WorkflowRun, node *models.Node, nodeRuns map[string]*models.NodeRun) map[string]any {
	input := make(map[string]any, len(run.Input)+1)
	for key, value := range run.Input {
		input[key] = value
	}

	var predecessors []*models.NodeRun

	for _, edge := range run.Snapshot.EdgesInto(node.ID) {
		source, exists := nodeRuns[edge.SourceNodeID]
		if !exists || source.Status != models.NodeRunStatusCompleted {
			continue
		}

		if !edgeConditionMatches(edge, source.Output) {
			continue
		}

		predecessors = append(predecessors, source)
	}

	if len(predecessors) > 0 {
		sort.Slice(predecessors, func(i, j int) bool {
			left, right := predecessors[i], predecessors[j]
			if left.CompletedAt != nil && right.CompletedAt != nil && !left.CompletedAt.Equal(*right.CompletedAt) {
				return left.CompletedAt.Before(*right.CompletedAt)
			}

			return left.NodeID < right.NodeID
		})

		input["prev"] = predecessors[len(predecessors)-1].Output
	}

	return input
}

// redispatch re-enters a suspended node after a restart, preserving its
// original start time so timers resume with their remaining duration.
func (e *Engine) redispatch(ctx context.Context, run *models.WorkflowRun, nodeRun *models.NodeRun) error {
	node := run.Snapshot.NodeByID(nodeRun.NodeID)
	if node == nil {
		return fmt.Errorf("node %s missing from snapshot", nodeRun.NodeID)
	}

	executable, err := e.registry.CreateNode(ctx, node)
	if err != nil {
		return err
	}

	if nodeRun.Status == models.NodeRunStatusRunning {
		e.slots.forceAcquire()
	}

	startedAt := e.clock.Now().UTC()
	if nodeRun.StartedAt != nil {
		startedAt = *nodeRun.StartedAt
	}

	result, err := executable.Execute(e.runContextFor(run.ID), protocol.ExecutionContext{
		RunID:     run.ID,
		NodeRunID: nodeRun.ID,
		Node:      node,
		Input:     nodeRun.Input,
		StartedAt: startedAt,
		Logger:    e.logger.With("run_id", run.ID, "node_id", node.ID),
		Signaler:  e,
	})
	if err != nil {
		e.releaseIfRunning(nodeRun.NodeType, nodeRun.Status)

		return err
	}

	if result.Suspended {
		// External work restarted under fresh handles.
		if result.SessionID != nil {
			nodeRun.SessionID = result.SessionID
		}

		if result.TaskID != nil {
			nodeRun.TaskID = result.TaskID
		}

		return e.persistence.UpdateNodeRun(ctx, nodeRun)
	}

	return nil
}

func (e *Engine) releaseIfRunning(nodeType models.NodeType, status models.NodeRunStatus) {
	if status == models.NodeRunStatusRunning && !isWaitingType(nodeType) {
		e.releaseSlot()
	}
}

func isWaitingType(nodeType models.NodeType) bool {
	return nodeType == models.NodeTypeDelay || nodeType == models.NodeTypeWebhookWait
}

func edgeConditionMatches(edge *models.Edge, output map[string]any) bool {
	if edge.Condition == "" {
		return true
	}

	return edge.Condition == strconv.FormatBool(expression.Truthy(output["conditionResult"]))
}

// stillReachable reports, per node, whether it can still produce a
// completed NodeRun: it is in flight, or it has no NodeRun yet and some
// inbound path can still deliver control to it. Paths die at terminal
// non-completed sources and at completed sources whose edge condition
// does not match.
func stillReachable(snapshot *models.GraphSnapshot, nodeRuns map[string]*models.NodeRun) map[string]bool {
	memo := make(map[string]bool, len(snapshot.Nodes))
	visiting := make(map[string]bool)

	var visit func(id string) bool

	visit = func(id string) bool {
		if known, ok := memo[id]; ok {
			return known
		}

		if visiting[id] {
			return false
		}

		visiting[id] = true
		defer delete(visiting, id)

		reachable := false

		if nodeRun, exists := nodeRuns[id]; exists {
			reachable = !nodeRun.Status.IsTerminal()
		} else {
			for _, edge := range snapshot.EdgesInto(id) {
				source, exists := nodeRuns[edge.SourceNodeID]
				if !exists {
					if visit(edge.SourceNodeID) {
						reachable = true

						break
					}

					continue
				}

				if !source.Status.IsTerminal() {
					reachable = true

					break
				}

				if source.Status == models.NodeRunStatusCompleted && edgeConditionMatches(edge, source.Output) {
					reachable = true

					break
				}
			}
		}

		memo[id] = reachable

		return reachable
	}

	for _, node := range snapshot.Nodes {
		visit(node.ID)
	}

	return memo
}

func allSourcesCompleted(inbound []*models.Edge, nodeRuns map[string]*models.NodeRun) bool {
	for _, edge := range inbound {
		source, exists := nodeRuns[edge.SourceNodeID]
		if !exists || source.Status != models.NodeRunStatusCompleted {
			return false
		}
	}

	return true
}

func nodeRunsByNode(nodeRuns []*models.NodeRun) map[string]*models.NodeRun {
	byNode := make(map[string]*models.NodeRun, len(nodeRuns))
	for _, nodeRun := range nodeRuns {
		byNode[nodeRun.NodeID] = nodeRun
	}

	return byNode
}

func liveNodeIDs(nodeRuns []*models.NodeRun) []string {
	ids := []string{}

	for _, nodeRun := range nodeRuns {
		if nodeRun.Status == models.NodeRunStatusRunning || nodeRun.Status == models.NodeRunStatusWaiting {
			ids = append(ids, nodeRun.NodeID)
		}
	}

	sort.Strings(ids)

	return ids
}

// completedEndRun picks the completed end node with the lowest node id;
// its output becomes the run output.
func completedEndRun(run *models.WorkflowRun) *models.NodeRun {
	var chosen *models.NodeRun

	for _, nodeRun := range run.NodeRuns {
		if nodeRun.NodeType != models.NodeTypeEnd || nodeRun.Status != models.NodeRunStatusCompleted {
			continue
		}

		if chosen == nil || nodeRun.NodeID < chosen.NodeID {
			chosen = nodeRun
		}
	}

	return chosen
}
