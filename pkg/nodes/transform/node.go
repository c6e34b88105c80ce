// Package transform provides template-based data shaping between nodes.
package transform

import (
	"context"
	"errors"
	"fmt"

	"github.com/tapestry-ai/tapestry/pkg/protocol"
	"github.com/tapestry-ai/tapestry/pkg/template"
)

// TransformNode renders its template against the accumulated context.
// The rendered value lands under "result"; the incoming context passes
// through so downstream nodes keep access to it.
type TransformNode struct {
	id       string
	template string
}

func NewTransformNode(id string, config map[string]any) (*TransformNode, error) {
	tmpl, ok := config["template"].(string)
	if !ok {
		return nil, errors.New("missing required field 'template'")
	}

	return &TransformNode{
		id:       id,
		template: tmpl,
	}, nil
}

func (n *TransformNode) Execute(_ context.Context, ectx protocol.ExecutionContext) (*protocol.Result, error) {
	rendered, err := template.Render(n.template, ectx.Input)
	if err != nil {
		return nil, fmt.Errorf("template rendering failed: %w", err)
	}

	output := make(map[string]any, len(ectx.Input)+1)
	for key, value := range ectx.Input {
		output[key] = value
	}

	output["result"] = rendered

	return &protocol.Result{Output: output}, nil
}

func (n *TransformNode) Suspends() bool {
	return false
}
