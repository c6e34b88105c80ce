package transform

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tapestry-ai/tapestry/pkg/protocol"
)

func TestTransformNode_Execute(t *testing.T) {
	node, err := NewTransformNode("t-1", map[string]any{
		"template": "Ticket {{prev.ticket}} closed by {{actor}}",
	})
	require.NoError(t, err)

	input := map[string]any{
		"actor": "reviewer",
		"prev":  map[string]any{"ticket": "OPS-7"},
	}

	result, err := node.Execute(context.Background(), protocol.ExecutionContext{Input: input})
	require.NoError(t, err)

	assert.Equal(t, "Ticket OPS-7 closed by reviewer", result.Output["result"])
	// Context passes through.
	assert.Equal(t, "reviewer", result.Output["actor"])
	assert.Equal(t, input["prev"], result.Output["prev"])
}

func TestTransformNode_SinglePlaceholderPreservesType(t *testing.T) {
	node, err := NewTransformNode("t-1", map[string]any{"template": "{{prev.payload}}"})
	require.NoError(t, err)

	payload := map[string]any{"count": 3}
	result, err := node.Execute(context.Background(), protocol.ExecutionContext{
		Input: map[string]any{"prev": map[string]any{"payload": payload}},
	})
	require.NoError(t, err)
	assert.Equal(t, payload, result.Output["result"])
}

func TestTransformNode_MalformedTemplateFails(t *testing.T) {
	node, err := NewTransformNode("t-1", map[string]any{"template": "broken {{prev.x"})
	require.NoError(t, err)

	_, err = node.Execute(context.Background(), protocol.ExecutionContext{Input: map[string]any{}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "template rendering failed")
}

func TestTransformNode_MissingTemplate(t *testing.T) {
	_, err := NewTransformNode("t-1", map[string]any{})
	require.Error(t, err)
}
