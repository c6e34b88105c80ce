// Package registry provides node factory registration and config
// validation for the execution engine.
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tapestry-ai/tapestry/pkg/models"
	"github.com/tapestry-ai/tapestry/pkg/protocol"
	"github.com/xeipuuv/gojsonschema"
)

type Registry struct {
	logger        *slog.Logger
	nodeFactories map[models.NodeType]protocol.NodeFactory
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:        logger,
		nodeFactories: make(map[models.NodeType]protocol.NodeFactory),
	}
}

func (r *Registry) RegisterNode(factory protocol.NodeFactory) {
	r.nodeFactories[factory.Type()] = factory
}

// CreateNode validates the node's config against the factory schema and
// builds an executable node.
func (r *Registry) CreateNode(ctx context.Context, node *models.Node) (protocol.Node, error) {
	factory, ok := r.nodeFactories[node.Type]
	if !ok {
		return nil, fmt.Errorf("node type '%s' not registered", node.Type)
	}

	if err := validateConfig(node.Config, factory.Schema()); err != nil {
		return nil, fmt.Errorf("invalid config for node '%s': %w", node.ID, err)
	}

	return factory.Create(ctx, node)
}

func (r *Registry) NodeFactory(nodeType models.NodeType) (protocol.NodeFactory, bool) {
	factory, ok := r.nodeFactories[nodeType]

	return factory, ok
}

// HealthCheck reports whether the registry has node factories registered.
func (r *Registry) HealthCheck() (string, bool) {
	if len(r.nodeFactories) == 0 {
		return "No node types registered", false
	}

	return fmt.Sprintf("%d node types registered", len(r.nodeFactories)), true
}

func (r *Registry) NodeTypes() []models.NodeType {
	types := make([]models.NodeType, 0, len(r.nodeFactories))
	for nodeType := range r.nodeFactories {
		types = append(types, nodeType)
	}

	return types
}

func validateConfig(config, schema map[string]any) error {
	if schema == nil {
		return nil
	}

	if config == nil {
		config = map[string]any{}
	}

	schemaLoader := gojsonschema.NewGoLoader(schema)
	dataLoader := gojsonschema.NewGoLoader(config)

	result, err := gojsonschema.Validate(schemaLoader, dataLoader)
	if err != nil {
		return err
	}

	if !result.Valid() {
		descriptions := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			descriptions = append(descriptions, desc.String())
		}

		return fmt.Errorf("validation errors: %s", strings.Join(descriptions, "; "))
	}

	return nil
}
