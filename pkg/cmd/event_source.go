package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tapestry-ai/tapestry/pkg/eventsource"
)

// NewEventSource builds the external event source. An empty redis URL means
// the in-process hub, which only delivers events published by the same
// process.
func NewEventSource(ctx context.Context, logger *slog.Logger, redisURL string) eventsource.Source {
	if redisURL == "" {
		return eventsource.NewHub()
	}

	source, err := eventsource.NewRedisSource(ctx, logger, redisURL)
	if err != nil {
		panic(fmt.Errorf("failed to create redis event source: %w", err))
	}

	return source
}
