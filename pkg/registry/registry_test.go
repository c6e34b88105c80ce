package registry

import (
	"context"
	"log/slog"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tapestry-ai/tapestry/pkg/eventsource"
	"github.com/tapestry-ai/tapestry/pkg/models"
)

func newTestRegistry() *Registry {
	registry := NewRegistry(slog.Default())
	registry.RegisterDefaultNodes(Dependencies{
		EventSource: eventsource.NewHub(),
		Clock:       clockwork.NewFakeClock(),
	})

	return registry
}

func TestRegistry_AllTypesRegistered(t *testing.T) {
	registry := newTestRegistry()

	for _, nodeType := range models.NodeTypes {
		_, ok := registry.NodeFactory(nodeType)
		assert.True(t, ok, "node type %s not registered", nodeType)
	}

	assert.Len(t, registry.NodeTypes(), len(models.NodeTypes))
}

func TestCreateNode_Condition(t *testing.T) {
	registry := newTestRegistry()

	node, err := registry.CreateNode(context.Background(), &models.Node{
		ID:     "cond-1",
		Type:   models.NodeTypeCondition,
		Config: map[string]any{"expression": `prev.status == "ok"`},
	})
	require.NoError(t, err)
	assert.False(t, node.Suspends())
}

func TestCreateNode_SchemaRejection(t *testing.T) {
	registry := newTestRegistry()

	// delayMs violates the schema minimum.
	_, err := registry.CreateNode(context.Background(), &models.Node{
		ID:     "delay-1",
		Type:   models.NodeTypeDelay,
		Config: map[string]any{"delayMs": -100},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config for node 'delay-1'")

	// Required field missing.
	_, err = registry.CreateNode(context.Background(), &models.Node{
		ID:     "wait-1",
		Type:   models.NodeTypeWebhookWait,
		Config: map[string]any{},
	})
	require.Error(t, err)
}

func TestCreateNode_UnknownType(t *testing.T) {
	registry := NewRegistry(slog.Default())

	_, err := registry.CreateNode(context.Background(), &models.Node{
		ID:   "n-1",
		Type: models.NodeType("mystery"),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not registered")
}

func TestCreateNode_NilConfigOnMarkerNodes(t *testing.T) {
	registry := newTestRegistry()

	for _, nodeType := range []models.NodeType{
		models.NodeTypeStart, models.NodeTypeEnd,
		models.NodeTypeParallel, models.NodeTypeJoin,
	} {
		_, err := registry.CreateNode(context.Background(), &models.Node{
			ID:   "n-1",
			Type: nodeType,
		})
		require.NoError(t, err, "marker node %s should accept nil config", nodeType)
	}
}
