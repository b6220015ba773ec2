// Package domain contains the core entities of the build graph: nodes,
// edges, rules, the graph store and the stat cache.
package domain

// Node represents one file path tracked by the graph. A node has at most one
// producing edge; a node without one is a source file and must exist on disk
// for any build that consumes it.
type Node struct {
	// Path is the canonical, interned path.
	Path InternedString

	// MTime is the observed modification time in unix seconds.
	// -1 means not statted yet, 0 means the file is missing.
	MTime int64

	// Dirty marks an output whose on-disk state does not reflect its
	// current inputs or command.
	Dirty bool

	// InEdge is the edge producing this node, nil for sources.
	InEdge *Edge

	// OutEdges lists every edge consuming this node.
	OutEdges []*Edge
}

// Exists reports whether the file was present at the last stat.
func (n *Node) Exists() bool {
	return n.MTime > 0
}

// StatusKnown reports whether the node has been statted at all.
func (n *Node) StatusKnown() bool {
	return n.MTime != -1
}

// MarkDirty sets the dirty flag and propagates it to every transitive output
// of the node. Already-dirty nodes terminate the walk.
func (n *Node) MarkDirty() {
	if n.Dirty {
		return
	}
	n.Dirty = true
	for _, e := range n.OutEdges {
		e.OutputsReady = false
		for _, out := range e.Outputs {
			out.MarkDirty()
		}
	}
}

// Rule is a named holder of command and auxiliary templates.
type Rule struct {
	Name           string
	Command        EvalString
	Description    EvalString
	Depfile        EvalString
	Rspfile        EvalString
	RspfileContent EvalString

	// Restat re-stats outputs after execution and demotes unchanged ones
	// back to clean.
	Restat bool

	// Generator marks edges whose command changes are not a rebuild signal.
	Generator bool
}

// Edge is one application of a rule: inputs, outputs and a binding scope.
// Inputs are ordered explicit, then implicit, then order-only; only the
// first two partitions influence dirtiness.
type Edge struct {
	Rule *Rule

	// Env holds the edge-local bindings, chained over the file scope.
	Env *BindingEnv

	Inputs  []*Node
	Outputs []*Node

	// ImplicitDeps and OrderOnlyDeps count the trailing partitions of Inputs.
	ImplicitDeps  int
	OrderOnlyDeps int

	// OutputsReady is true once every output reflects the current inputs,
	// either because the edge was clean or because it finished running.
	OutputsReady bool
}

// IsOrderOnly reports whether the input at index i is order-only.
func (e *Edge) IsOrderOnly(i int) bool {
	return i >= len(e.Inputs)-e.OrderOnlyDeps
}

// ExplicitInputs returns the explicit input partition.
func (e *Edge) ExplicitInputs() []*Node {
	return e.Inputs[:len(e.Inputs)-e.ImplicitDeps-e.OrderOnlyDeps]
}

// EvaluateCommand expands the rule's command template for this edge. With
// inclRspContent set, the response-file content is appended so that rspfile
// changes show up as command changes in the build log.
func (e *Edge) EvaluateCommand(inclRspContent bool) string {
	env := NewEdgeEnv(e)
	command := e.Rule.Command.Evaluate(env)
	if inclRspContent && !e.Rule.RspfileContent.Empty() {
		command += ";rspfile=" + e.Rule.RspfileContent.Evaluate(env)
	}
	return command
}

// EvaluateDepFile expands the rule's depfile template for this edge.
func (e *Edge) EvaluateDepFile() string {
	return e.Rule.Depfile.Evaluate(NewEdgeEnv(e))
}

// EvaluateRspFile expands the rule's rspfile path template for this edge.
func (e *Edge) EvaluateRspFile() string {
	return e.Rule.Rspfile.Evaluate(NewEdgeEnv(e))
}

// EvaluateRspFileContent expands the rule's rspfile content for this edge.
func (e *Edge) EvaluateRspFileContent() string {
	return e.Rule.RspfileContent.Evaluate(NewEdgeEnv(e))
}

// Description returns the human-readable description of the edge, falling
// back to the full command when the rule declares none.
func (e *Edge) Description() string {
	if e.Rule.Description.Empty() {
		return e.EvaluateCommand(false)
	}
	return e.Rule.Description.Evaluate(NewEdgeEnv(e))
}
