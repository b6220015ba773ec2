package domain

import (
	"path"
	"strings"

	"go.trai.ch/zerr"
)

// DepKind selects which list AddInOut appends to.
type DepKind int

const (
	// DepIn appends an explicit input.
	DepIn DepKind = iota
	// DepInImplicit appends an implicit input.
	DepInImplicit
	// DepInOrderOnly appends an order-only input.
	DepInOrderOnly
	// DepOut appends an output.
	DepOut
)

// State is the arena of nodes and edges plus the rule registry. The parser
// populates it; the engine only reads and flips per-node state.
type State struct {
	paths    map[InternedString]*Node
	edges    []*Edge
	rules    map[string]*Rule
	bindings *BindingEnv
	stats    *StatCache
	defaults []*Node
}

// NewState creates an empty State observing the filesystem through fsys.
func NewState(fsys FileStatter) *State {
	s := &State{
		paths:    make(map[InternedString]*Node),
		rules:    make(map[string]*Rule),
		bindings: NewBindingEnv(nil),
	}
	s.stats = newStatCache(s, fsys)
	return s
}

// CanonicalizePath normalises separators and collapses "." and ".."
// components so that aliases of the same file share a node.
func CanonicalizePath(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	return path.Clean(p)
}

// Bindings returns the file-level variable scope.
func (s *State) Bindings() *BindingEnv {
	return s.bindings
}

// StatCache returns the per-run stat cache.
func (s *State) StatCache() *StatCache {
	return s.stats
}

// AddRule registers a rule. Duplicate names fail.
func (s *State) AddRule(r *Rule) error {
	if _, exists := s.rules[r.Name]; exists {
		return zerr.With(ErrDuplicateRule, "rule", r.Name)
	}
	s.rules[r.Name] = r
	return nil
}

// LookupRule returns the rule registered under name, or nil.
func (s *State) LookupRule(name string) *Rule {
	return s.rules[name]
}

// AddEdge creates a new edge applying rule, with a fresh binding scope over
// the file-level one.
func (s *State) AddEdge(rule *Rule) *Edge {
	e := &Edge{
		Rule: rule,
		Env:  NewBindingEnv(s.bindings),
	}
	s.edges = append(s.edges, e)
	return e
}

// Edges returns all edges in declaration order.
func (s *State) Edges() []*Edge {
	return s.edges
}

// AddInOut looks up or creates the node for path and appends it to the
// edge's input or output list. Declaring a second producer for an output
// fails.
func (s *State) AddInOut(e *Edge, kind DepKind, p string) error {
	n := s.GetNode(p)
	switch kind {
	case DepOut:
		if n.InEdge != nil {
			return zerr.With(ErrDuplicateOutput, "output", n.Path.String())
		}
		n.InEdge = e
		e.Outputs = append(e.Outputs, n)
	case DepIn, DepInImplicit, DepInOrderOnly:
		e.Inputs = append(e.Inputs, n)
		n.OutEdges = append(n.OutEdges, e)
		if kind == DepInImplicit {
			e.ImplicitDeps++
		}
		if kind == DepInOrderOnly {
			e.OrderOnlyDeps++
		}
	}
	return nil
}

// GetNode looks up or creates the node for path. Paths are canonicalised
// before the lookup.
func (s *State) GetNode(p string) *Node {
	key := NewInternedString(CanonicalizePath(p))
	if n, ok := s.paths[key]; ok {
		return n
	}
	n := &Node{
		Path:  key,
		MTime: -1,
	}
	s.paths[key] = n
	return n
}

// LookupNode returns the node for path if it was ever referenced, nil
// otherwise. Used to reject unknown targets without creating them.
func (s *State) LookupNode(p string) *Node {
	return s.paths[NewInternedString(CanonicalizePath(p))]
}

// AddDefault marks path as a default target for builds without arguments.
func (s *State) AddDefault(p string) {
	s.defaults = append(s.defaults, s.GetNode(p))
}

// Defaults returns the declared default targets.
func (s *State) Defaults() []*Node {
	return s.defaults
}
