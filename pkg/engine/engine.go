// Package engine implements the workflow run scheduler: ready-set
// computation, bounded admission, data flow between nodes, fail-fast
// failure propagation, cancellation and restart recovery.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/tapestry-ai/tapestry/pkg/eventbus"
	"github.com/tapestry-ai/tapestry/pkg/events"
	"github.com/tapestry-ai/tapestry/pkg/models"
	"github.com/tapestry-ai/tapestry/pkg/persistence"
	"github.com/tapestry-ai/tapestry/pkg/protocol"
	"github.com/tapestry-ai/tapestry/pkg/registry"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Config wires the engine's collaborators. Persistence and Registry are
// required; the rest are optional.
type Config struct {
	Logger      *slog.Logger
	Persistence persistence.Persistence
	Registry    *registry.Registry
	Publisher   eventbus.EventPublisher
	Clock       clockwork.Clock
	Tracer      trace.Tracer

	// Best-effort cancellation targets for in-flight external work.
	AgentRunner protocol.AgentRunner
	TaskRunner  protocol.TaskRunner

	GlobalMaxConcurrentNodes int
}

// Engine is the per-process scheduler. All state transitions flow
// through the durable store; the engine re-derives readiness from it on
// every pass, which is what makes restart recovery correct.
type Engine struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	registry    *registry.Registry
	publisher   eventbus.EventPublisher
	clock       clockwork.Clock
	tracer      trace.Tracer
	slots       *slots

	agentRunner protocol.AgentRunner
	taskRunner  protocol.TaskRunner

	runLocks sync.Map // run id -> *sync.Mutex

	ctxMu   sync.Mutex
	runCtxs map[string]runContext

	// Runs that could not take a global admission slot, re-advanced
	// when capacity frees up.
	starvedMu sync.Mutex
	starved   map[string]struct{}
}

type runContext struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// ErrWorkflowNotActive is returned when a run is requested for a
// workflow that is not in the active status.
var ErrWorkflowNotActive = errors.New("workflow is not active")

func New(cfg Config) (*Engine, error) {
	if cfg.Persistence == nil {
		return nil, fmt.Errorf("engine requires a persistence backend")
	}

	if cfg.Registry == nil {
		return nil, fmt.Errorf("engine requires a node registry")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	tracer := cfg.Tracer
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("engine")
	}

	return &Engine{
		logger:      logger.With("module", "engine"),
		persistence: cfg.Persistence,
		registry:    cfg.Registry,
		publisher:   cfg.Publisher,
		clock:       clock,
		tracer:      tracer,
		slots:       newSlots(cfg.GlobalMaxConcurrentNodes),
		agentRunner: cfg.AgentRunner,
		taskRunner:  cfg.TaskRunner,
		runCtxs:     make(map[string]runContext),
		starved:     make(map[string]struct{}),
	}, nil
}

// CreateRun freezes the workflow graph into a snapshot, persists the
// run and schedules its first ready set.
func (e *Engine) CreateRun(ctx context.Context, workflowID, agentID string, input map[string]any) (*models.WorkflowRun, error) {
	workflow, err := e.persistence.WorkflowByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	if workflow.Status != models.WorkflowStatusActive {
		return nil, fmt.Errorf("workflow %s (status: %s): %w", workflowID, workflow.Status, ErrWorkflowNotActive)
	}

	if err := models.ValidateForExecution(workflow.Nodes, workflow.Edges); err != nil {
		return nil, err
	}

	if input == nil {
		input = map[string]any{}
	}

	run := &models.WorkflowRun{
		ID:             uuid.New().String(),
		WorkflowID:     workflow.ID,
		AgentID:        agentID,
		Status:         models.RunStatusRunning,
		Input:          input,
		Snapshot:       workflow.Snapshot(),
		CurrentNodeIDs: []string{},
		StartedAt:      e.clock.Now().UTC(),
	}

	if err := e.persistence.CreateRun(ctx, run); err != nil {
		return nil, err
	}

	e.logger.Info("created workflow run",
		"run_id", run.ID, "workflow_id", workflow.ID, "agent_id", agentID)

	e.publish(ctx, events.RunCreated{
		BaseEvent: events.NewBaseEvent(events.RunCreatedEvent, workflow.ID, run.ID),
		Input:     input,
	})

	if err := e.Advance(ctx, run.ID); err != nil {
		return nil, err
	}

	return e.persistence.RunByID(ctx, run.ID, false)
}

// CancelRun marks the run cancelled, skips queued work and notifies
// external collaborators best-effort. Cancelling a terminal run is a
// no-op.
func (e *Engine) CancelRun(ctx context.Context, runID string) error {
	lock := e.runLock(runID)
	lock.Lock()
	defer lock.Unlock()

	run, err := e.persistence.RunByID(ctx, runID, true)
	if err != nil {
		return err
	}

	if run.Status.IsTerminal() {
		return nil
	}

	now := e.clock.Now().UTC()
	run.Status = models.RunStatusCancelled
	run.CompletedAt = &now

	e.skipQueuedNodeRuns(ctx, run, "run cancelled")

	// Dispatched nodes resolve on their own; observers still see them
	// as live until then.
	run.CurrentNodeIDs = liveNodeIDs(run.NodeRuns)

	if err := e.persistence.UpdateRun(ctx, run); err != nil {
		return err
	}

	e.notifyCollaborators(ctx, run)
	e.cancelRunContext(runID)

	e.logger.Info("cancelled workflow run", "run_id", runID)

	e.publish(ctx, events.RunCancelled{
		BaseEvent:  events.NewBaseEvent(events.RunCancelledEvent, run.WorkflowID, run.ID),
		DurationMs: now.Sub(run.StartedAt).Milliseconds(),
	})

	return nil
}

// Recover re-admits non-terminal runs after a process restart:
// suspended nodes are re-dispatched (timers resume with their remaining
// duration) and the ready set is re-evaluated. NodeRun creation is
// keyed by (run, node), so recovering an unchanged state produces no
// duplicates.
func (e *Engine) Recover(ctx context.Context) error {
	runs, err := e.persistence.ActiveRuns(ctx)
	if err != nil {
		return err
	}

	for _, run := range runs {
		if err := e.recoverRun(ctx, run.ID); err != nil {
			e.logger.Error("failed to recover run", "run_id", run.ID, "error", err)
		}
	}

	return nil
}

func (e *Engine) recoverRun(ctx context.Context, runID string) error {
	lock := e.runLock(runID)
	lock.Lock()
	defer lock.Unlock()

	run, err := e.persistence.RunByID(ctx, runID, true)
	if err != nil {
		return err
	}

	if run.Status.IsTerminal() {
		return nil
	}

	e.logger.Info("recovering workflow run", "run_id", runID, "status", run.Status)

	// Re-dispatch suspended nodes: their timers, subscriptions and
	// collaborator goroutines died with the previous process.
	for _, nodeRun := range run.NodeRuns {
		if nodeRun.Status != models.NodeRunStatusRunning && nodeRun.Status != models.NodeRunStatusWaiting {
			continue
		}

		if err := e.redispatch(ctx, run, nodeRun); err != nil {
			e.failRun(ctx, run, nodeRun.NodeID, err.Error())

			return nil
		}
	}

	return e.advanceLocked(ctx, runID)
}

// Advance runs the ready-set algorithm for one run. Passes for the same
// run are serialized; concurrent runs advance independently.
func (e *Engine) Advance(ctx context.Context, runID string) error {
	lock := e.runLock(runID)
	lock.Lock()
	defer lock.Unlock()

	return e.advanceLocked(ctx, runID)
}

// Close cancels the contexts of every suspended node dispatch.
func (e *Engine) Close() {
	e.ctxMu.Lock()
	defer e.ctxMu.Unlock()

	for runID, rc := range e.runCtxs {
		rc.cancel()
		delete(e.runCtxs, runID)
	}
}

func (e *Engine) runLock(runID string) *sync.Mutex {
	lock, _ := e.runLocks.LoadOrStore(runID, &sync.Mutex{})

	return lock.(*sync.Mutex)
}

// runContextFor returns a long-lived context for suspended node work on
// this run, independent of the caller's request context. It is
// cancelled when the run is cancelled or the engine shuts down.
func (e *Engine) runContextFor(runID string) context.Context {
	e.ctxMu.Lock()
	defer e.ctxMu.Unlock()

	if rc, ok := e.runCtxs[runID]; ok {
		return rc.ctx
	}

	ctx, cancel := context.WithCancel(context.Background())
	e.runCtxs[runID] = runContext{ctx: ctx, cancel: cancel}

	return ctx
}

func (e *Engine) cancelRunContext(runID string) {
	e.ctxMu.Lock()
	defer e.ctxMu.Unlock()

	if rc, ok := e.runCtxs[runID]; ok {
		rc.cancel()
		delete(e.runCtxs, runID)
	}
}

func (e *Engine) markStarved(runID string) {
	e.starvedMu.Lock()
	defer e.starvedMu.Unlock()

	e.starved[runID] = struct{}{}
}

// releaseSlot frees a global admission slot and re-advances runs that
// were previously denied one.
func (e *Engine) releaseSlot() {
	e.slots.release()

	e.starvedMu.Lock()
	ids := make([]string, 0, len(e.starved))

	for id := range e.starved {
		ids = append(ids, id)
	}

	e.starved = make(map[string]struct{})
	e.starvedMu.Unlock()

	for _, id := range ids {
		go func(runID string) {
			if err := e.Advance(context.Background(), runID); err != nil {
				e.logger.Error("failed to advance starved run", "run_id", runID, "error", err)
			}
		}(id)
	}
}

func (e *Engine) publish(ctx context.Context, event events.Event) {
	if e.publisher == nil {
		return
	}

	if err := e.publisher.Publish(ctx, event); err != nil {
		e.logger.Warn("failed to publish event", "event_type", event.GetType(), "error", err)
	}
}

// notifyCollaborators asks the external runners to stop in-flight work.
// Failures are logged, never blocked on.
func (e *Engine) notifyCollaborators(ctx context.Context, run *models.WorkflowRun) {
	for _, nodeRun := range run.NodeRuns {
		if nodeRun.Status.IsTerminal() {
			continue
		}

		switch {
		case nodeRun.SessionID != nil && e.agentRunner != nil:
			if err := e.agentRunner.Cancel(ctx, *nodeRun.SessionID); err != nil {
				e.logger.Warn("agent session cancel failed",
					"run_id", run.ID, "node_id", nodeRun.NodeID, "error", err)
			}
		case nodeRun.TaskID != nil && e.taskRunner != nil:
			if err := e.taskRunner.Cancel(ctx, *nodeRun.TaskID); err != nil {
				e.logger.Warn("task cancel failed",
					"run_id", run.ID, "node_id", nodeRun.NodeID, "error", err)
			}
		}
	}
}

// skipQueuedNodeRuns marks pending node-runs skipped when the run
// reaches a terminal state before they were admitted.
func (e *Engine) skipQueuedNodeRuns(ctx context.Context, run *models.WorkflowRun, reason string) {
	now := e.clock.Now().UTC()

	for _, nodeRun := range run.NodeRuns {
		if nodeRun.Status != models.NodeRunStatusPending {
			continue
		}

		nodeRun.Status = models.NodeRunStatusSkipped
		completedAt := now
		nodeRun.CompletedAt = &completedAt

		if err := e.persistence.UpdateNodeRun(ctx, nodeRun); err != nil {
			e.logger.Error("failed to mark node run skipped",
				"run_id", run.ID, "node_id", nodeRun.NodeID, "error", err)

			continue
		}

		e.publish(ctx, events.NodeSkipped{
			BaseEvent: events.NewBaseEvent(events.NodeSkippedEvent, run.WorkflowID, run.ID),
			NodeID:    nodeRun.NodeID,
			NodeType:  nodeRun.NodeType,
			Reason:    reason,
		})
	}
}

func durationMs(from time.Time, to time.Time) int64 {
	return to.Sub(from).Milliseconds()
}
