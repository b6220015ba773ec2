package domain

import "strings"

// Env is the capability an EvalString evaluates against. Lookups are
// read-only; a name that is not bound anywhere resolves to the empty string.
type Env interface {
	Lookup(name string) string
}

// BindingEnv is a map-backed Env with an optional parent. Environments
// compose as a chain: edge-local bindings shadow rule bindings, which shadow
// the file-level scope.
type BindingEnv struct {
	bindings map[string]string
	parent   Env
}

// NewBindingEnv creates an empty BindingEnv on top of parent. parent may be
// nil for the outermost scope.
func NewBindingEnv(parent Env) *BindingEnv {
	return &BindingEnv{
		bindings: make(map[string]string),
		parent:   parent,
	}
}

// Bind sets name to value in this scope, shadowing any parent binding.
func (e *BindingEnv) Bind(name, value string) {
	e.bindings[name] = value
}

// Lookup resolves name in this scope, then the parent chain.
func (e *BindingEnv) Lookup(name string) string {
	if v, ok := e.bindings[name]; ok {
		return v
	}
	if e.parent != nil {
		return e.parent.Lookup(name)
	}
	return ""
}

// EdgeEnv wraps an edge to expose the special "in", "in_newline" and "out"
// variables during command evaluation, falling back to the edge's binding
// scope for everything else.
type EdgeEnv struct {
	edge *Edge
}

// NewEdgeEnv creates an EdgeEnv for edge.
func NewEdgeEnv(edge *Edge) *EdgeEnv {
	return &EdgeEnv{edge: edge}
}

// Lookup implements Env.
func (e *EdgeEnv) Lookup(name string) string {
	switch name {
	case "in":
		return e.joinPaths(e.edge.ExplicitInputs(), ' ')
	case "in_newline":
		return e.joinPaths(e.edge.ExplicitInputs(), '\n')
	case "out":
		return e.joinPaths(e.edge.Outputs, ' ')
	}
	if e.edge.Env != nil {
		return e.edge.Env.Lookup(name)
	}
	return ""
}

func (e *EdgeEnv) joinPaths(nodes []*Node, sep byte) string {
	var out strings.Builder
	for i, n := range nodes {
		if i > 0 {
			out.WriteByte(sep)
		}
		out.WriteString(n.Path.String())
	}
	return out.String()
}
