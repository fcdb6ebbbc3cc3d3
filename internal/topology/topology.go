// Package topology holds the read-only resource dependency graph the
// evaluators traverse. A Snapshot is built once from loader data and is safe
// for concurrent reads without locking; it is never mutated after
// construction.
package topology

import (
	"strings"
)

// Recognized tag keys on graph nodes.
const (
	TagCriticality = "criticality"
	TagPurpose     = "purpose"
	TagEnvironment = "environment"
	TagOwner       = "owner"
)

// Node is one resource in the dependency graph.
type Node struct {
	Name           string            `yaml:"name" json:"name"`
	Type           string            `yaml:"type" json:"type"`
	Location       string            `yaml:"location,omitempty" json:"location,omitempty"`
	Tags           map[string]string `yaml:"tags,omitempty" json:"tags,omitempty"`
	MonthlyCost    float64           `yaml:"monthly_cost,omitempty" json:"monthly_cost,omitempty"`
	Dependencies   []string          `yaml:"dependencies,omitempty" json:"dependencies,omitempty"`
	Dependents     []string          `yaml:"dependents,omitempty" json:"dependents,omitempty"`
	Governs        []string          `yaml:"governs,omitempty" json:"governs,omitempty"`
	ServicesHosted []string          `yaml:"services_hosted,omitempty" json:"services_hosted,omitempty"`
	Consumers      []string          `yaml:"consumers,omitempty" json:"consumers,omitempty"`
	NodeCount      int               `yaml:"node_count,omitempty" json:"node_count,omitempty"`
}

// Criticality returns the node's criticality tag, lowercased, or "" when
// untagged.
func (n *Node) Criticality() string {
	if n == nil || n.Tags == nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(n.Tags[TagCriticality]))
}

// Edge is one directed dependency edge supplementing the node-level lists.
type Edge struct {
	From string `yaml:"from" json:"from"`
	To   string `yaml:"to" json:"to"`
}

// Resolver resolves a resource identifier to a graph node. Implementations
// return nil for unknown resources; a miss is not an error.
type Resolver interface {
	Resolve(id string) *Node
}

// Snapshot is an immutable view of the resource graph.
type Snapshot struct {
	byName map[string]*Node
	order  []string
	edges  []Edge
}

// NewSnapshot builds a snapshot from nodes and directed edges. Later nodes
// with a duplicate name replace earlier ones.
func NewSnapshot(nodes []Node, edges []Edge) *Snapshot {
	s := &Snapshot{
		byName: make(map[string]*Node, len(nodes)),
		edges:  append([]Edge(nil), edges...),
	}
	for i := range nodes {
		n := nodes[i]
		if n.Name == "" {
			continue
		}
		if _, seen := s.byName[n.Name]; !seen {
			s.order = append(s.order, n.Name)
		}
		s.byName[n.Name] = &n
	}
	return s
}

// Resolve looks a resource up by its full identifier first, then by the
// last slash-delimited segment. Returns nil when neither matches.
func (s *Snapshot) Resolve(id string) *Node {
	if s == nil {
		return nil
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil
	}
	if n, ok := s.byName[id]; ok {
		return n
	}
	trimmed := strings.TrimRight(id, "/")
	if idx := strings.LastIndex(trimmed, "/"); idx >= 0 {
		if n, ok := s.byName[trimmed[idx+1:]]; ok {
			return n
		}
	}
	return nil
}

// Adjacent returns the opposite endpoints of every directed edge incident to
// name, in input order.
func (s *Snapshot) Adjacent(name string) []string {
	if s == nil {
		return nil
	}
	var out []string
	for _, e := range s.edges {
		switch name {
		case e.From:
			out = append(out, e.To)
		case e.To:
			out = append(out, e.From)
		}
	}
	return out
}

// Names returns node names in first-seen order.
func (s *Snapshot) Names() []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s.order...)
}

// Nodes returns the nodes in first-seen order.
func (s *Snapshot) Nodes() []*Node {
	if s == nil {
		return nil
	}
	out := make([]*Node, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.byName[name])
	}
	return out
}

// Edges returns a copy of the directed edge list.
func (s *Snapshot) Edges() []Edge {
	if s == nil {
		return nil
	}
	return append([]Edge(nil), s.edges...)
}

// Len returns the number of nodes.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.byName)
}
