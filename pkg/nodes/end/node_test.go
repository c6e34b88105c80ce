package end

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tapestry-ai/tapestry/pkg/protocol"
)

func TestEndNode_ResolvesPredecessorOutput(t *testing.T) {
	node := NewEndNode("end")

	result, err := node.Execute(context.Background(), protocol.ExecutionContext{
		Input: map[string]any{
			"ticket": "OPS-7",
			"prev":   map[string]any{"response": "ok"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"response": "ok"}, result.Output)
}

func TestEndNode_FallsBackToRunInput(t *testing.T) {
	node := NewEndNode("end")

	result, err := node.Execute(context.Background(), protocol.ExecutionContext{
		Input: map[string]any{"ticket": "OPS-7"},
	})
	require.NoError(t, err)
	assert.Equal(t, "OPS-7", result.Output["ticket"])
	assert.False(t, node.Suspends())
}
