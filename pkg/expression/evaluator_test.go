package expression

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluate_Predicates(t *testing.T) {
	evaluator := NewEvaluator()

	env := map[string]any{
		"prev": map[string]any{
			"status":   "approved",
			"attempts": 3,
		},
		"environment": "production",
	}

	tests := []struct {
		expression string
		want       bool
	}{
		{``, true},
		{`true`, true},
		{`false`, false},
		{`prev.status == "approved"`, true},
		{`prev.status == "rejected"`, false},
		{`prev.attempts > 2`, true},
		{`environment == "production" && prev.attempts < 10`, true},
		{`prev.status contains "appr"`, true},
		{`missing_key`, false},
		{`prev.attempts`, true},
	}

	for _, tt := range tests {
		t.Run(tt.expression, func(t *testing.T) {
			got, err := evaluator.Evaluate(tt.expression, env)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluate_CompileError(t *testing.T) {
	evaluator := NewEvaluator()

	_, err := evaluator.Evaluate(`prev. ==`, map[string]any{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to compile")
}

func TestEvaluate_CachesPrograms(t *testing.T) {
	evaluator := NewEvaluator()

	for range 3 {
		got, err := evaluator.Evaluate(`count > 1`, map[string]any{"count": 2})
		require.NoError(t, err)
		assert.True(t, got)
	}

	evaluator.mu.RLock()
	defer evaluator.mu.RUnlock()
	assert.Len(t, evaluator.cache, 1)
}

func TestTruthy(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  bool
	}{
		{"bool true", true, true},
		{"bool false", false, false},
		{"boolean string", "false", false},
		{"non-empty string", "hello", true},
		{"empty string", "", false},
		{"zero int", 0, false},
		{"non-zero float", 1.5, true},
		{"empty slice", []any{}, false},
		{"populated map", map[string]any{"k": "v"}, true},
		{"nil", nil, false},
		{"unknown type", struct{}{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Truthy(tt.value))
		})
	}
}
