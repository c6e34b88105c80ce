package models

import "sort"

// GraphSnapshot is the frozen copy of a workflow graph captured when a run is
// created. Edits to the live workflow never affect an in-flight run.
type GraphSnapshot struct {
	Nodes []*Node `json:"nodes"`
	Edges []*Edge `json:"edges"`

	// MaxConcurrency is frozen with the graph so concurrency edits on
	// the live workflow never affect an in-flight run.
	MaxConcurrency int `json:"max_concurrency"`
}

// NodeByID returns the snapshot node with the given id, or nil.
func (s *GraphSnapshot) NodeByID(id string) *Node {
	for _, node := range s.Nodes {
		if node.ID == id {
			return node
		}
	}

	return nil
}

// NodesByType returns snapshot nodes of the given type in ascending id order.
func (s *GraphSnapshot) NodesByType(t NodeType) []*Node {
	var nodes []*Node

	for _, node := range s.Nodes {
		if node.Type == t {
			nodes = append(nodes, node)
		}
	}

	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })

	return nodes
}

// EdgesInto returns every edge whose target is the given node.
func (s *GraphSnapshot) EdgesInto(nodeID string) []*Edge {
	var edges []*Edge

	for _, edge := range s.Edges {
		if edge.TargetNodeID == nodeID {
			edges = append(edges, edge)
		}
	}

	return edges
}

// EdgesFrom returns every edge whose source is the given node.
func (s *GraphSnapshot) EdgesFrom(nodeID string) []*Edge {
	var edges []*Edge

	for _, edge := range s.Edges {
		if edge.SourceNodeID == nodeID {
			edges = append(edges, edge)
		}
	}

	return edges
}
