// Package dirty implements dirty propagation over the build graph.
package dirty

import (
	"go.trai.ch/shinobi/internal/core/domain"
	"go.trai.ch/shinobi/internal/engine/buildlog"
	"go.trai.ch/zerr"
)

const (
	unvisited = iota
	visiting
	visited
)

// Engine walks the graph from a target, consulting the stat cache and the
// build log to decide which nodes are out of date.
type Engine struct {
	state *domain.State
	log   *buildlog.Log
}

// NewEngine creates an Engine over state. log may be nil, in which case
// command-line changes are not a dirtiness signal.
func NewEngine(state *domain.State, log *buildlog.Log) *Engine {
	return &Engine{
		state: state,
		log:   log,
	}
}

// CheckDirty computes dirtiness for node and, transitively, every input of
// its producing edge. Each edge is visited at most once per call; a cycle is
// a graph error.
func (e *Engine) CheckDirty(node *domain.Node) error {
	return e.checkNode(node, make(map[*domain.Edge]int))
}

func (e *Engine) checkNode(node *domain.Node, marks map[*domain.Edge]int) error {
	edge := node.InEdge
	if edge == nil {
		// A source's mtime is observed; it is never dirty on its own.
		// Whether its absence matters is decided by the consuming edge.
		if err := e.state.StatCache().Stat(node); err != nil {
			return err
		}
		node.Dirty = false
		return nil
	}
	return e.checkEdge(edge, marks)
}

func (e *Engine) checkEdge(edge *domain.Edge, marks map[*domain.Edge]int) error {
	switch marks[edge] {
	case visiting:
		return zerr.With(domain.ErrCycleDetected, "output", firstOutput(edge))
	case visited:
		return nil
	}
	marks[edge] = visiting

	dirty := false
	mostRecentInput := int64(0)

	for i, in := range edge.Inputs {
		if err := e.checkNode(in, marks); err != nil {
			return err
		}

		if in.InEdge == nil && !in.Exists() {
			return zerr.With(
				zerr.With(domain.ErrMissingInput, "path", in.Path.String()),
				"needed_by", firstOutput(edge),
			)
		}

		// Order-only inputs are walked for discovery but never
		// contribute dirtiness.
		if edge.IsOrderOnly(i) {
			continue
		}
		if in.Dirty {
			dirty = true
		} else if in.MTime > mostRecentInput {
			mostRecentInput = in.MTime
		}
	}

	if dirty {
		// Outputs still need their mtimes observed for downstream edges.
		for _, out := range edge.Outputs {
			if err := e.state.StatCache().Stat(out); err != nil {
				return err
			}
		}
	} else {
		outputsDirty, err := e.RecomputeOutputsDirty(edge, mostRecentInput, edge.EvaluateCommand(true))
		if err != nil {
			return err
		}
		dirty = outputsDirty
	}

	if dirty {
		for _, out := range edge.Outputs {
			out.Dirty = true
		}
		edge.OutputsReady = false
	} else {
		edge.OutputsReady = true
	}

	marks[edge] = visited
	return nil
}

// RecomputeOutputsDirty stats every output of edge and reports whether any
// of them is out of date with respect to mostRecentInput and command. It is
// also used after a restat rule ran, to decide whether downstream edges can
// be demoted back to clean.
func (e *Engine) RecomputeOutputsDirty(edge *domain.Edge, mostRecentInput int64, command string) (bool, error) {
	for _, out := range edge.Outputs {
		if err := e.state.StatCache().Stat(out); err != nil {
			return false, err
		}
		if e.outputDirty(edge, out, mostRecentInput, command) {
			return true, nil
		}
	}
	return false, nil
}

func (e *Engine) outputDirty(edge *domain.Edge, out *domain.Node, mostRecentInput int64, command string) bool {
	if !out.Exists() {
		return true
	}

	var entry *buildlog.Entry
	if e.log != nil {
		entry = e.log.LookupByOutput(out.Path.String())
	}

	// An output as old as its newest input is clean; only strictly older
	// is stale.
	if out.MTime < mostRecentInput {
		// A restat rule may have left the output untouched in an earlier
		// run; the recorded input mtime of that run decides instead.
		if edge.Rule.Restat && entry != nil {
			if entry.RestatMtime < mostRecentInput {
				return true
			}
		} else {
			return true
		}
	}

	if e.log != nil && !edge.Rule.Generator {
		if entry == nil || !entry.CommandEquals(command) {
			return true
		}
	}

	return false
}

func firstOutput(edge *domain.Edge) string {
	if len(edge.Outputs) == 0 {
		return ""
	}
	return edge.Outputs[0].Path.String()
}
