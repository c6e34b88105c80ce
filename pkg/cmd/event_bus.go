// Package cmd provides common initialization functions for the command-line
// binaries.
package cmd

import (
	"fmt"
	"log/slog"

	"github.com/tapestry-ai/tapestry/pkg/eventbus"
)

// NewEventBus creates an event bus instance based on the provider name.
func NewEventBus(provider, serviceName string, logger *slog.Logger) eventbus.EventBus {
	bus, err := eventbus.NewEventBus(provider, serviceName, logger)
	if err != nil {
		panic(fmt.Errorf("failed to create event bus: %w", err))
	}

	return bus
}
