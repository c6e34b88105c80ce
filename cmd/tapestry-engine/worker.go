// Package main provides the headless run execution worker. It recovers
// in-flight runs on startup and keeps their timers and external waits
// live until shut down.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/tapestry-ai/tapestry/pkg/engine"
	"github.com/tapestry-ai/tapestry/pkg/eventbus"
	"github.com/tapestry-ai/tapestry/pkg/otelhelper"
	"github.com/tapestry-ai/tapestry/pkg/persistence"
	"github.com/tapestry-ai/tapestry/pkg/protocol"
	"github.com/tapestry-ai/tapestry/pkg/registry"
	"go.opentelemetry.io/otel/trace"
)

type Worker struct {
	logger         *slog.Logger
	persistence    persistence.Persistence
	registry       *registry.Registry
	eventBus       eventbus.EventBus
	agentRunner    protocol.AgentRunner
	taskRunner     protocol.TaskRunner
	maxConcurrent  int
	tracingEnabled bool
}

func NewWorker(
	logger *slog.Logger,
	persistence persistence.Persistence,
	registry *registry.Registry,
	eventBus eventbus.EventBus,
	agentRunner protocol.AgentRunner,
	taskRunner protocol.TaskRunner,
	maxConcurrent int,
	tracingEnabled bool,
) *Worker {
	return &Worker{
		logger:         logger,
		persistence:    persistence,
		registry:       registry,
		eventBus:       eventBus,
		agentRunner:    agentRunner,
		taskRunner:     taskRunner,
		maxConcurrent:  maxConcurrent,
		tracingEnabled: tracingEnabled,
	}
}

// Run starts the engine, recovers in-flight runs and blocks until a
// shutdown signal arrives.
func (w *Worker) Run(ctx context.Context) error {
	var tracer trace.Tracer

	if w.tracingEnabled {
		var err error

		tracer, err = otelhelper.NewTracer(ctx, "tapestry-engine")
		if err != nil {
			return err
		}
	}

	eng, err := engine.New(engine.Config{
		Logger:                   w.logger,
		Persistence:              w.persistence,
		Registry:                 w.registry,
		Publisher:                w.eventBus,
		Tracer:                   tracer,
		AgentRunner:              w.agentRunner,
		TaskRunner:               w.taskRunner,
		GlobalMaxConcurrentNodes: w.maxConcurrent,
	})
	if err != nil {
		return err
	}

	defer eng.Close()

	if err := eng.Recover(ctx); err != nil {
		w.logger.ErrorContext(ctx, "Run recovery failed", "error", err)
	}

	w.logger.InfoContext(ctx, "Engine worker started")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		w.logger.InfoContext(ctx, "Shutting down", "signal", sig.String())
	case <-ctx.Done():
	}

	return nil
}
