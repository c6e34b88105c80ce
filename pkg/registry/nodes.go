package registry

import (
	"github.com/jonboulle/clockwork"
	"github.com/tapestry-ai/tapestry/pkg/expression"
	"github.com/tapestry-ai/tapestry/pkg/nodes/agentsession"
	"github.com/tapestry-ai/tapestry/pkg/nodes/condition"
	"github.com/tapestry-ai/tapestry/pkg/nodes/delay"
	endnode "github.com/tapestry-ai/tapestry/pkg/nodes/end"
	"github.com/tapestry-ai/tapestry/pkg/nodes/join"
	"github.com/tapestry-ai/tapestry/pkg/nodes/parallel"
	startnode "github.com/tapestry-ai/tapestry/pkg/nodes/start"
	"github.com/tapestry-ai/tapestry/pkg/nodes/transform"
	"github.com/tapestry-ai/tapestry/pkg/nodes/webhookwait"
	"github.com/tapestry-ai/tapestry/pkg/nodes/worktask"
	"github.com/tapestry-ai/tapestry/pkg/protocol"
)

// Dependencies carries the collaborators the built-in node factories
// need.
type Dependencies struct {
	AgentRunner protocol.AgentRunner
	TaskRunner  protocol.TaskRunner
	EventSource protocol.EventSource
	Clock       clockwork.Clock
	Evaluator   *expression.Evaluator
}

// RegisterDefaultNodes registers every built-in node factory.
func (r *Registry) RegisterDefaultNodes(deps Dependencies) {
	clock := deps.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	evaluator := deps.Evaluator
	if evaluator == nil {
		evaluator = expression.NewEvaluator()
	}

	r.RegisterNode(startnode.NewStartNodeFactory())
	r.RegisterNode(endnode.NewEndNodeFactory())
	r.RegisterNode(agentsession.NewAgentSessionNodeFactory(deps.AgentRunner))
	r.RegisterNode(worktask.NewWorkTaskNodeFactory(deps.TaskRunner))
	r.RegisterNode(condition.NewConditionNodeFactory(evaluator))
	r.RegisterNode(delay.NewDelayNodeFactory(clock))
	r.RegisterNode(webhookwait.NewWebhookWaitNodeFactory(deps.EventSource, clock))
	r.RegisterNode(transform.NewTransformNodeFactory())
	r.RegisterNode(parallel.NewParallelNodeFactory())
	r.RegisterNode(join.NewJoinNodeFactory())
}
