package models

// NodeType identifies the execution behavior of a node.
type NodeType string

const (
	NodeTypeStart        NodeType = "start"         // Passes the run input through unchanged
	NodeTypeEnd          NodeType = "end"           // Terminates a branch; resolves the run output
	NodeTypeAgentSession NodeType = "agent_session" // Delegates to the agent-execution collaborator
	NodeTypeWorkTask     NodeType = "work_task"     // Delegates to the long-running task collaborator
	NodeTypeCondition    NodeType = "condition"     // Evaluates a predicate, labels a boolean
	NodeTypeDelay        NodeType = "delay"         // Suspends until a timer fires
	NodeTypeWebhookWait  NodeType = "webhook_wait"  // Suspends until a named external event arrives
	NodeTypeTransform    NodeType = "transform"     // Renders a template against accumulated context
	NodeTypeParallel     NodeType = "parallel"      // Pure fan-out marker
	NodeTypeJoin         NodeType = "join"          // Pure fan-in marker
)

// NodeTypes lists every node type the engine dispatches.
var NodeTypes = []NodeType{
	NodeTypeStart,
	NodeTypeEnd,
	NodeTypeAgentSession,
	NodeTypeWorkTask,
	NodeTypeCondition,
	NodeTypeDelay,
	NodeTypeWebhookWait,
	NodeTypeTransform,
	NodeTypeParallel,
	NodeTypeJoin,
}

// IsValidNodeType reports whether t names a known node type.
func IsValidNodeType(t NodeType) bool {
	for _, known := range NodeTypes {
		if t == known {
			return true
		}
	}

	return false
}

// Position is layout metadata for the authoring UI. It has no execution
// meaning.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Node is a single typed node in a workflow graph. Config carries the
// type-specific payload (prompt, expression, delayMs, webhookEvent,
// timeoutMs, template).
type Node struct {
	ID       string         `json:"id"       validate:"required"`
	Type     NodeType       `json:"type"     validate:"required"`
	Label    string         `json:"label"`
	Config   map[string]any `json:"config,omitempty"`
	Position *Position      `json:"position,omitempty"`
}

// DisplayLabel returns the label, falling back to the node id.
func (n *Node) DisplayLabel() string {
	if n.Label != "" {
		return n.Label
	}

	return n.ID
}

// Clone deep-copies the node, including its config map.
func (n *Node) Clone() *Node {
	cloned := *n

	if n.Config != nil {
		cloned.Config = deepCopyMap(n.Config)
	}

	if n.Position != nil {
		position := *n.Position
		cloned.Position = &position
	}

	return &cloned
}

// Edge is a directed, optionally-conditioned connection between two nodes.
// Condition, when set, is matched against the evaluated boolean of the source
// node's output ("true" or "false").
type Edge struct {
	ID           string `json:"id"`
	SourceNodeID string `json:"source_node_id" validate:"required"`
	TargetNodeID string `json:"target_node_id" validate:"required"`
	Condition    string `json:"condition,omitempty"`
	Label        string `json:"label,omitempty"`
}

func deepCopyMap(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))

	for key, value := range in {
		switch typed := value.(type) {
		case map[string]any:
			out[key] = deepCopyMap(typed)
		case []any:
			copied := make([]any, len(typed))

			for i, item := range typed {
				if nested, ok := item.(map[string]any); ok {
					copied[i] = deepCopyMap(nested)
				} else {
					copied[i] = item
				}
			}

			out[key] = copied
		default:
			out[key] = value
		}
	}

	return out
}
