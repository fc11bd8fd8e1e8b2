package hclgraph

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"

	"github.com/specialistvlad/simgridgo/internal/ctxlog"
	"github.com/specialistvlad/simgridgo/internal/fsutil"
	"github.com/specialistvlad/simgridgo/internal/jobgraph"
	"github.com/specialistvlad/simgridgo/internal/material"
)

// Extension is the suffix of graph files inside a directory.
const Extension = ".hcl"

// fileRoot is the set of top-level constructs allowed in a graph file.
type fileRoot struct {
	Terminal  *string          `hcl:"terminal,optional"`
	Materials []*materialBlock `hcl:"material,block"`
	Nodes     []*nodeBlock     `hcl:"node,block"`
}

type materialBlock struct {
	Name   string   `hcl:"name,label"`
	Type   string   `hcl:"type"`
	Remain hcl.Body `hcl:",remain"`
}

type nodeBlock struct {
	Name   string         `hcl:"name,label"`
	Kind   string         `hcl:"kind"`
	Params hcl.Expression `hcl:"params,optional"`
	Inputs hcl.Expression `hcl:"inputs,optional"`
}

// Load parses every graph file under paths and builds the graph they
// describe.
func Load(ctx context.Context, paths ...string) (*jobgraph.Graph, error) {
	logger := ctxlog.FromContext(ctx)

	files, err := fsutil.CollectFiles(paths, Extension)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no %s files found in %v", Extension, paths)
	}
	logger.Debug("Discovered graph files.", "count", len(files))

	parser := hclparse.NewParser()
	var roots []*fileRoot
	for _, file := range files {
		f, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}
		var root fileRoot
		if diags := gohcl.DecodeBody(f.Body, nil, &root); diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}
		roots = append(roots, &root)
	}
	return build(ctx, roots)
}

// Parse builds a graph from a single in-memory document. filename is only
// used in diagnostics.
func Parse(ctx context.Context, filename string, src []byte) (*jobgraph.Graph, error) {
	f, diags := hclparse.NewParser().ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL %s: %w", filename, diags)
	}
	var root fileRoot
	if diags := gohcl.DecodeBody(f.Body, nil, &root); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL %s: %w", filename, diags)
	}
	return build(ctx, []*fileRoot{&root})
}

func build(ctx context.Context, roots []*fileRoot) (*jobgraph.Graph, error) {
	logger := ctxlog.FromContext(ctx)
	b := jobgraph.NewBuilder()

	var terminal string
	for _, root := range roots {
		if root.Terminal == nil {
			continue
		}
		if terminal != "" && terminal != *root.Terminal {
			return nil, fmt.Errorf("conflicting terminal declarations %q and %q", terminal, *root.Terminal)
		}
		terminal = *root.Terminal
	}

	for _, root := range roots {
		for _, mb := range root.Materials {
			m, err := translateMaterial(mb)
			if err != nil {
				return nil, err
			}
			b.AddMaterial(m)
		}
	}
	for _, root := range roots {
		for _, nb := range root.Nodes {
			n, err := translateNode(nb)
			if err != nil {
				return nil, err
			}
			b.AddNode(n)
		}
	}
	if terminal != "" {
		b.WithTerminal(terminal)
	}

	g, err := b.Build()
	if err != nil {
		return nil, err
	}
	logger.Debug("Graph loaded.", "materials", len(g.Batch.Materials), "nodes", len(g.Batch.Nodes), "terminal", g.Terminal)
	return g, nil
}

// translateMaterial turns the free-form attributes of a material block into
// a validated material model.
func translateMaterial(mb *materialBlock) (jobgraph.Material, error) {
	attrs, diags := mb.Remain.JustAttributes()
	if diags.HasErrors() {
		return jobgraph.Material{}, fmt.Errorf("material %q: %w", mb.Name, diags)
	}
	fields := map[string]cty.Value{"type": cty.StringVal(mb.Type)}
	for name, attr := range attrs {
		val, diags := attr.Expr.Value(nil)
		if diags.HasErrors() {
			return jobgraph.Material{}, fmt.Errorf("material %q: %w", mb.Name, diags)
		}
		fields[name] = val
	}
	raw, err := toJSON(cty.ObjectVal(fields))
	if err != nil {
		return jobgraph.Material{}, fmt.Errorf("material %q: %w", mb.Name, err)
	}
	model, err := material.Decode(raw)
	if err != nil {
		return jobgraph.Material{}, fmt.Errorf("material %q: %w", mb.Name, err)
	}
	return material.Bind(mb.Name, model)
}

func translateNode(nb *nodeBlock) (jobgraph.NodeSpec, error) {
	n := jobgraph.NodeSpec{Name: nb.Name, Kind: nb.Kind}

	if nb.Params != nil {
		val, diags := nb.Params.Value(nil)
		if diags.HasErrors() {
			return n, fmt.Errorf("node %q params: %w", nb.Name, diags)
		}
		if !val.IsNull() {
			raw, err := toJSON(val)
			if err != nil {
				return n, fmt.Errorf("node %q params: %w", nb.Name, err)
			}
			n.Params = raw
		}
	}

	if nb.Inputs != nil && !isNullExpr(nb.Inputs) {
		inputs, err := parseInputs(nb.Name, nb.Inputs)
		if err != nil {
			return n, err
		}
		n.Inputs = inputs
	}
	return n, nil
}

// parseInputs reads an object of role = material.<name> | node.<name>.
func parseInputs(node string, expr hcl.Expression) (map[string]jobgraph.Source, error) {
	pairs, diags := hcl.ExprMap(expr)
	if diags.HasErrors() {
		return nil, fmt.Errorf("node %q inputs: %w", node, diags)
	}
	inputs := make(map[string]jobgraph.Source, len(pairs))
	for _, pair := range pairs {
		role, err := keyName(pair.Key)
		if err != nil {
			return nil, fmt.Errorf("node %q inputs: %w", node, err)
		}
		traversal, diags := hcl.AbsTraversalForExpr(pair.Value)
		src, ok := parseSourceTraversal(traversal)
		if diags.HasErrors() || !ok {
			return nil, fmt.Errorf("%s: node %q input %q must reference material.<name> or node.<name>",
				pair.Value.Range(), node, role)
		}
		if _, dup := inputs[role]; dup {
			return nil, fmt.Errorf("node %q declares input %q twice", node, role)
		}
		inputs[role] = src
	}
	return inputs, nil
}

// parseSourceTraversal accepts exactly `material.<name>` or `node.<name>`.
func parseSourceTraversal(traversal hcl.Traversal) (jobgraph.Source, bool) {
	if len(traversal) != 2 {
		return jobgraph.Source{}, false
	}
	attr, ok := traversal[1].(hcl.TraverseAttr)
	if !ok {
		return jobgraph.Source{}, false
	}
	switch traversal.RootName() {
	case string(jobgraph.SourceMaterial):
		return jobgraph.FromMaterial(attr.Name), true
	case string(jobgraph.SourceNode):
		return jobgraph.FromNode(attr.Name), true
	default:
		return jobgraph.Source{}, false
	}
}

func keyName(expr hcl.Expression) (string, error) {
	if kw := hcl.ExprAsKeyword(expr); kw != "" {
		return kw, nil
	}
	val, diags := expr.Value(nil)
	if diags.HasErrors() {
		return "", diags
	}
	if val.Type() != cty.String || val.IsNull() {
		return "", fmt.Errorf("%s: input role must be a name", expr.Range())
	}
	return val.AsString(), nil
}

func isNullExpr(expr hcl.Expression) bool {
	val, diags := expr.Value(nil)
	return !diags.HasErrors() && val.IsNull()
}

func toJSON(val cty.Value) (json.RawMessage, error) {
	return ctyjson.Marshal(val, val.Type())
}
