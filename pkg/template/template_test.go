package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testData() map[string]any {
	return map[string]any{
		"ticket": "OPS-42",
		"prev": map[string]any{
			"result": map[string]any{
				"status": "done",
				"count":  float64(7),
			},
		},
	}
}

func TestRender_Interpolation(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain text", "no placeholders here", "no placeholders here"},
		{"single var in text", "ticket {{ticket}} closed", "ticket OPS-42 closed"},
		{"dotted path", "status={{prev.result.status}}", "status=done"},
		{"number stringified", "count: {{prev.result.count}}", "count: 7"},
		{"missing path renders empty", "[{{prev.missing}}]", "[]"},
		{"multiple placeholders", "{{ticket}}/{{prev.result.status}}", "OPS-42/done"},
		{"whitespace inside delimiters", "{{ ticket }}", "OPS-42"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Render(tt.input, testData())
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRender_SinglePlaceholderPreservesType(t *testing.T) {
	got, err := Render("{{prev.result}}", testData())
	require.NoError(t, err)

	asMap, ok := got.(map[string]any)
	require.True(t, ok, "whole-placeholder templates keep the value's type")
	assert.Equal(t, "done", asMap["status"])

	count, err := Render("{{prev.result.count}}", testData())
	require.NoError(t, err)
	assert.Equal(t, float64(7), count)
}

func TestRender_Errors(t *testing.T) {
	_, err := Render("broken {{ticket", testData())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unclosed placeholder")

	_, err = Render(`{{exec("rm -rf /")}}`, testData())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dotted-path lookups")
}

func TestLookup(t *testing.T) {
	value, ok := Lookup(testData(), "prev.result.status")
	require.True(t, ok)
	assert.Equal(t, "done", value)

	_, ok = Lookup(testData(), "prev.result.status.deeper")
	assert.False(t, ok, "cannot descend into a scalar")

	_, ok = Lookup(testData(), "nope")
	assert.False(t, ok)
}
