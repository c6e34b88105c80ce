package cmd

import (
	"log/slog"

	"github.com/tapestry-ai/tapestry/pkg/registry"
)

// NewRegistry builds a node registry with every built-in node type
// registered.
func NewRegistry(logger *slog.Logger, deps registry.Dependencies) *registry.Registry {
	reg := registry.NewRegistry(logger)
	reg.RegisterDefaultNodes(deps)

	return reg
}
