package jobgraph

import (
	"encoding/json"
	"sort"

	"github.com/specialistvlad/simgridgo/internal/dag"
)

// Builder accumulates materials and nodes in submission order. It fails
// fast: after the first invalid addition every further call is a no-op and
// Build returns that first error.
type Builder struct {
	materials []Material
	matIndex  map[string]struct{}
	nodes     []NodeSpec
	deps      *dag.Graph
	terminal  string
	err       error
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{
		matIndex: make(map[string]struct{}),
		deps:     dag.New(),
	}
}

// Err returns the first construction error, if any.
func (b *Builder) Err() error {
	return b.err
}

// AddMaterial registers a shared material.
func (b *Builder) AddMaterial(m Material) *Builder {
	if b.err != nil {
		return b
	}
	if m.Name == "" {
		b.err = invalid("", "material with empty name")
		return b
	}
	if _, exists := b.matIndex[m.Name]; exists {
		b.err = invalid("", "duplicate material %q", m.Name)
		return b
	}
	if len(m.Properties) > 0 && !json.Valid(m.Properties) {
		b.err = invalid("", "material %q has malformed properties", m.Name)
		return b
	}
	b.matIndex[m.Name] = struct{}{}
	b.materials = append(b.materials, m)
	return b
}

// AddNode appends a node. Every binding must resolve to a registered material
// or a node that is already present.
func (b *Builder) AddNode(n NodeSpec) *Builder {
	if b.err != nil {
		return b
	}
	if err := b.validateNode(n); err != nil {
		b.err = err
		return b
	}

	if err := b.deps.AddNode(n.Name); err != nil {
		b.err = invalid(n.Name, "duplicate node name")
		return b
	}
	for _, role := range sortedRoles(n.Inputs) {
		src := n.Inputs[role]
		if src.Kind != SourceNode {
			continue
		}
		if err := b.deps.AddEdge(src.Name, n.Name); err != nil {
			b.err = invalid(n.Name, "input %q: %v", role, err)
			return b
		}
	}

	b.nodes = append(b.nodes, cloneNode(n))
	return b
}

func (b *Builder) validateNode(n NodeSpec) error {
	if n.Name == "" {
		return invalid("", "node with empty name")
	}
	if n.Kind == "" {
		return invalid(n.Name, "node kind is required")
	}
	if b.deps.Has(n.Name) {
		return invalid(n.Name, "duplicate node name")
	}
	if len(n.Params) > 0 && !json.Valid(n.Params) {
		return invalid(n.Name, "malformed params")
	}
	for _, role := range sortedRoles(n.Inputs) {
		src := n.Inputs[role]
		if role == "" {
			return invalid(n.Name, "input with empty role")
		}
		switch src.Kind {
		case SourceMaterial:
			if _, ok := b.matIndex[src.Name]; !ok {
				return invalid(n.Name, "input %q references unregistered material %q", role, src.Name)
			}
		case SourceNode:
			if src.Name == n.Name {
				return invalid(n.Name, "input %q references the node itself (cycle)", role)
			}
			if !b.deps.Has(src.Name) {
				return invalid(n.Name, "input %q references node %q that has not been added yet", role, src.Name)
			}
		default:
			return invalid(n.Name, "input %q has unknown source kind %q", role, src.Kind)
		}
	}
	return nil
}

// Chain appends steps as a linear chain: each step after the first receives
// the previous step's output under role, in addition to its own inputs.
func (b *Builder) Chain(role string, steps ...NodeSpec) *Builder {
	for i, step := range steps {
		if b.err != nil {
			return b
		}
		if i > 0 {
			step = cloneNode(step)
			if _, taken := step.Inputs[role]; taken {
				b.err = invalid(step.Name, "chain role %q is already bound", role)
				return b
			}
			step.Inputs[role] = FromNode(steps[i-1].Name)
		}
		b.AddNode(step)
	}
	return b
}

// FanIn appends a reduction node fed by two or more distinct sibling nodes.
// from maps each input role to the sibling node feeding it. Roles are checked
// in lexical order.
func (b *Builder) FanIn(n NodeSpec, from map[string]string) *Builder {
	if b.err != nil {
		return b
	}
	if len(from) < 2 {
		b.err = invalid(n.Name, "fan-in needs at least two sources, got %d", len(from))
		return b
	}
	n = cloneNode(n)
	roles := make([]string, 0, len(from))
	for role := range from {
		roles = append(roles, role)
	}
	sort.Strings(roles)
	seen := make(map[string]string, len(from))
	for _, role := range roles {
		sibling := from[role]
		if _, taken := n.Inputs[role]; taken {
			b.err = invalid(n.Name, "fan-in role %q is already bound", role)
			return b
		}
		if prev, dup := seen[sibling]; dup {
			b.err = invalid(n.Name, "fan-in source %q feeds both %q and %q", sibling, prev, role)
			return b
		}
		seen[sibling] = role
		n.Inputs[role] = FromNode(sibling)
	}
	return b.AddNode(n)
}

// WithTerminal designates the node the caller will poll for. Without it the
// last node added is the terminal.
func (b *Builder) WithTerminal(name string) *Builder {
	b.terminal = name
	return b
}

// Build validates the whole graph and returns it with nodes in dependency
// order. On error no graph is returned.
func (b *Builder) Build() (*Graph, error) {
	if b.err != nil {
		return nil, b.err
	}
	if len(b.nodes) == 0 {
		return nil, invalid("", "graph has no nodes")
	}
	order, err := b.deps.TopologicalOrder()
	if err != nil {
		return nil, invalid("", "%v", err)
	}

	terminal := b.terminal
	if terminal == "" {
		terminal = b.nodes[len(b.nodes)-1].Name
	} else if !b.deps.Has(terminal) {
		return nil, invalid(terminal, "terminal node is not part of the graph")
	}

	g := &Graph{
		Batch: Batch{
			Materials: append([]Material(nil), b.materials...),
			Nodes:     make([]NodeSpec, len(b.nodes)),
		},
		Terminal: terminal,
	}
	byName := make(map[string]NodeSpec, len(b.nodes))
	for _, n := range b.nodes {
		byName[n.Name] = n
	}
	for i, name := range order {
		g.Batch.Nodes[i] = cloneNode(byName[name])
	}
	return g, nil
}

// Build assembles a graph from materials and nodes given in submission
// order. The last node is the terminal.
func Build(nodes []NodeSpec, materials []Material) (*Graph, error) {
	b := NewBuilder()
	for _, m := range materials {
		b.AddMaterial(m)
	}
	for _, n := range nodes {
		b.AddNode(n)
	}
	return b.Build()
}

func sortedRoles(inputs map[string]Source) []string {
	roles := make([]string, 0, len(inputs))
	for role := range inputs {
		roles = append(roles, role)
	}
	sort.Strings(roles)
	return roles
}

func cloneNode(n NodeSpec) NodeSpec {
	inputs := make(map[string]Source, len(n.Inputs))
	for role, src := range n.Inputs {
		inputs[role] = src
	}
	n.Inputs = inputs
	return n
}
