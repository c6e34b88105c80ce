package main

import (
	"context"
	"os"

	"github.com/tapestry-ai/tapestry/pkg/cmd"
	"github.com/tapestry-ai/tapestry/pkg/engine"
	"github.com/tapestry-ai/tapestry/pkg/log"
	"github.com/tapestry-ai/tapestry/pkg/registry"
	"github.com/tapestry-ai/tapestry/pkg/runners/httprunner"
	cli "github.com/urfave/cli/v3"
)

func main() {
	logger := log.WithModule("engine")

	command := &cli.Command{
		Name:                  "tapestry-engine",
		Usage:                 "Recover and execute workflow runs",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence (postgres:// or a directory path)",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus provider (gochannel, kafka)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis URL for cross-process external events (empty for in-process)",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.StringFlag{
				Name:     "agent-runner-url",
				Usage:    "Base URL of the agent session collaborator service",
				Required: true,
				Sources:  cli.EnvVars("AGENT_RUNNER_URL"),
			},
			&cli.StringFlag{
				Name:     "task-runner-url",
				Usage:    "Base URL of the work task collaborator service",
				Required: true,
				Sources:  cli.EnvVars("TASK_RUNNER_URL"),
			},
			&cli.IntFlag{
				Name:    "global-max-concurrent-nodes",
				Usage:   "Process-wide cap on concurrently running nodes",
				Value:   engine.DefaultGlobalMaxConcurrentNodes,
				Sources: cli.EnvVars("GLOBAL_MAX_CONCURRENT_NODES"),
			},
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Enable OpenTelemetry tracing",
				Sources: cli.EnvVars("TRACING_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger.InfoContext(ctx, "Initializing Tapestry Engine")

			persistence := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			defer func() {
				if err := persistence.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			eventBus := cmd.NewEventBus(command.String("event-bus"), "tapestry-engine", logger)
			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			eventSource := cmd.NewEventSource(ctx, logger, command.String("redis-url"))

			agentRunner := httprunner.NewAgentRunner(logger, command.String("agent-runner-url"))
			taskRunner := httprunner.NewTaskRunner(logger, command.String("task-runner-url"))

			reg := cmd.NewRegistry(logger, registry.Dependencies{
				AgentRunner: agentRunner,
				TaskRunner:  taskRunner,
				EventSource: eventSource,
			})

			worker := NewWorker(logger, persistence, reg, eventBus, agentRunner, taskRunner,
				command.Int("global-max-concurrent-nodes"), command.Bool("tracing"))

			return worker.Run(ctx)
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}
