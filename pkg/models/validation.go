package models

import (
	"fmt"
	"strings"
)

// ValidationIssue describes a single problem found in a workflow graph.
type ValidationIssue struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	NodeID  string `json:"node_id,omitempty"`
	EdgeID  string `json:"edge_id,omitempty"`
}

// Issue codes reported by graph validation.
const (
	IssueDuplicateNodeID  = "duplicate_node_id"
	IssueUnknownNodeType  = "unknown_node_type"
	IssueUnknownEndpoint  = "unknown_endpoint"
	IssueSelfLoop         = "self_loop"
	IssueDuplicateEdge    = "duplicate_edge"
	IssueMissingStartNode = "missing_start_node"
	IssueMissingEndNode   = "missing_end_node"
	IssueStartHasInbound  = "start_has_inbound"
	IssueEndHasOutbound   = "end_has_outbound"
	IssueImplicitMerge    = "implicit_merge"
)

// ValidationError aggregates the issues found in a graph. It is a client
// error surfaced at save/activation time, never a crash.
type ValidationError struct {
	Issues []ValidationIssue `json:"issues"`
}

func (e *ValidationError) Error() string {
	messages := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		messages = append(messages, issue.Message)
	}

	return "invalid workflow graph: " + strings.Join(messages, "; ")
}

// ValidateGraph checks the structural invariants that must hold at any save:
// unique node ids, known node types, resolvable edge endpoints, no
// self-loops, no duplicate edges between the same ordered pair.
//
// A nil return means the graph is structurally sound. Presence of start/end
// nodes is checked separately by ValidateForExecution, so drafts may be saved
// incomplete.
func ValidateGraph(nodes []*Node, edges []*Edge) *ValidationError {
	var issues []ValidationIssue

	nodeIDs := make(map[string]bool, len(nodes))

	for _, node := range nodes {
		if nodeIDs[node.ID] {
			issues = append(issues, ValidationIssue{
				Code:    IssueDuplicateNodeID,
				Message: fmt.Sprintf("duplicate node id %q", node.ID),
				NodeID:  node.ID,
			})

			continue
		}

		nodeIDs[node.ID] = true

		if !IsValidNodeType(node.Type) {
			issues = append(issues, ValidationIssue{
				Code:    IssueUnknownNodeType,
				Message: fmt.Sprintf("node %q has unknown type %q", node.ID, node.Type),
				NodeID:  node.ID,
			})
		}
	}

	seenPairs := make(map[string]bool, len(edges))

	for _, edge := range edges {
		if !nodeIDs[edge.SourceNodeID] {
			issues = append(issues, ValidationIssue{
				Code:    IssueUnknownEndpoint,
				Message: fmt.Sprintf("edge %q references unknown source node %q", edge.ID, edge.SourceNodeID),
				EdgeID:  edge.ID,
			})
		}

		if !nodeIDs[edge.TargetNodeID] {
			issues = append(issues, ValidationIssue{
				Code:    IssueUnknownEndpoint,
				Message: fmt.Sprintf("edge %q references unknown target node %q", edge.ID, edge.TargetNodeID),
				EdgeID:  edge.ID,
			})
		}

		if edge.SourceNodeID == edge.TargetNodeID {
			issues = append(issues, ValidationIssue{
				Code:    IssueSelfLoop,
				Message: fmt.Sprintf("edge %q is a self-loop on node %q", edge.ID, edge.SourceNodeID),
				EdgeID:  edge.ID,
			})
		}

		pair := edge.SourceNodeID + " -> " + edge.TargetNodeID
		if seenPairs[pair] {
			issues = append(issues, ValidationIssue{
				Code:    IssueDuplicateEdge,
				Message: fmt.Sprintf("duplicate edge from %q to %q", edge.SourceNodeID, edge.TargetNodeID),
				EdgeID:  edge.ID,
			})
		}

		seenPairs[pair] = true
	}

	if len(issues) == 0 {
		return nil
	}

	return &ValidationError{Issues: issues}
}

// ValidateForExecution runs ValidateGraph and additionally enforces the
// invariants a graph must satisfy before it may be executed: at least one
// start node with no inbound edges, at least one end node with no outbound
// edges.
func ValidateForExecution(nodes []*Node, edges []*Edge) *ValidationError {
	var issues []ValidationIssue

	if structural := ValidateGraph(nodes, edges); structural != nil {
		issues = structural.Issues
	}

	byType := make(map[NodeType][]*Node)
	for _, node := range nodes {
		byType[node.Type] = append(byType[node.Type], node)
	}

	if len(byType[NodeTypeStart]) == 0 {
		issues = append(issues, ValidationIssue{
			Code:    IssueMissingStartNode,
			Message: "workflow must contain at least one start node",
		})
	}

	if len(byType[NodeTypeEnd]) == 0 {
		issues = append(issues, ValidationIssue{
			Code:    IssueMissingEndNode,
			Message: "workflow must contain at least one end node",
		})
	}

	for _, edge := range edges {
		for _, start := range byType[NodeTypeStart] {
			if edge.TargetNodeID == start.ID {
				issues = append(issues, ValidationIssue{
					Code:    IssueStartHasInbound,
					Message: fmt.Sprintf("start node %q must not have inbound edges", start.ID),
					EdgeID:  edge.ID,
				})
			}
		}

		for _, end := range byType[NodeTypeEnd] {
			if edge.SourceNodeID == end.ID {
				issues = append(issues, ValidationIssue{
					Code:    IssueEndHasOutbound,
					Message: fmt.Sprintf("end node %q must not have outbound edges", end.ID),
					EdgeID:  edge.ID,
				})
			}
		}
	}

	if len(issues) == 0 {
		return nil
	}

	return &ValidationError{Issues: issues}
}

// ImplicitMergeWarnings reports nodes with more than one unconditioned
// inbound edge that are neither join nor end nodes. The merge order of their
// predecessor context is "last completed wins", which is rarely what the
// author intended; an explicit join expresses the wait.
func ImplicitMergeWarnings(nodes []*Node, edges []*Edge) []ValidationIssue {
	byID := make(map[string]*Node, len(nodes))
	for _, node := range nodes {
		byID[node.ID] = node
	}

	inbound := make(map[string]int)

	for _, edge := range edges {
		if edge.Condition == "" {
			inbound[edge.TargetNodeID]++
		}
	}

	var warnings []ValidationIssue

	for nodeID, count := range inbound {
		node := byID[nodeID]
		if node == nil || count < 2 {
			continue
		}

		if node.Type == NodeTypeJoin || node.Type == NodeTypeEnd {
			continue
		}

		warnings = append(warnings, ValidationIssue{
			Code:    IssueImplicitMerge,
			Message: fmt.Sprintf("node %q merges %d unconditioned branches without a join; predecessor context is last-completed-wins", nodeID, count),
			NodeID:  nodeID,
		})
	}

	return warnings
}
