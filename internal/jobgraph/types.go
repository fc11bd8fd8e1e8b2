package jobgraph

import (
	"encoding/json"
	"fmt"
)

// SourceKind says what a binding points at.
type SourceKind string

const (
	SourceMaterial SourceKind = "material"
	SourceNode     SourceKind = "node"
)

// Source is the origin of one node input.
type Source struct {
	Kind SourceKind `json:"kind"`
	Name string     `json:"name"`
}

// FromMaterial binds an input to a registered material.
func FromMaterial(name string) Source {
	return Source{Kind: SourceMaterial, Name: name}
}

// FromNode binds an input to the output of a node added earlier.
func FromNode(name string) Source {
	return Source{Kind: SourceNode, Name: name}
}

func (s Source) String() string {
	return fmt.Sprintf("%s.%s", s.Kind, s.Name)
}

// Material is a shared, named material definition. Properties are opaque to
// the builder.
type Material struct {
	Name       string          `json:"name"`
	Properties json.RawMessage `json:"properties,omitempty"`
}

// NodeSpec is one computation step. Params are kind-specific and opaque to
// the builder; Inputs maps a logical role (e.g. "matrix", "fiber", "plastic")
// to its source.
type NodeSpec struct {
	Name   string            `json:"name"`
	Kind   string            `json:"kind"`
	Params json.RawMessage   `json:"params,omitempty"`
	Inputs map[string]Source `json:"inputs,omitempty"`
}

// Batch is the ordered, submittable content of a graph.
type Batch struct {
	Materials []Material `json:"materials"`
	Nodes     []NodeSpec `json:"nodes"`
}

// Graph is a validated batch plus the node whose result the caller wants.
type Graph struct {
	Batch    Batch
	Terminal string
}

// Node returns the spec of the named node.
func (g *Graph) Node(name string) (NodeSpec, bool) {
	for _, n := range g.Batch.Nodes {
		if n.Name == name {
			return n, true
		}
	}
	return NodeSpec{}, false
}

// InvalidGraphError is returned when a graph cannot be constructed.
type InvalidGraphError struct {
	Node   string
	Reason string
}

func (e *InvalidGraphError) Error() string {
	if e.Node == "" {
		return "invalid job graph: " + e.Reason
	}
	return fmt.Sprintf("invalid job graph: node %q: %s", e.Node, e.Reason)
}

func invalid(node, format string, args ...any) *InvalidGraphError {
	return &InvalidGraphError{Node: node, Reason: fmt.Sprintf(format, args...)}
}
