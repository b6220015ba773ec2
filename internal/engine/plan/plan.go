// Package plan implements the ready-queue scheduler over the dirty subgraph.
package plan

import (
	"go.trai.ch/shinobi/internal/core/domain"
	"go.trai.ch/shinobi/internal/engine/dirty"
	"go.trai.ch/zerr"
)

// EdgeState tracks one wanted edge through its lifetime. Transitions are
// monotonic: want -> ready -> running -> done.
type EdgeState int

const (
	// StateWaiting indicates the edge is wanted but has unready inputs.
	StateWaiting EdgeState = iota
	// StateReady indicates the edge sits in the ready queue.
	StateReady
	// StateRunning indicates the edge was handed out by FindWork.
	StateRunning
	// StateDone indicates the edge finished, successfully or not.
	StateDone
)

// Plan is the in-memory frontier of wanted-but-not-yet-done edges. It tracks
// a want bit, a counter of unready inputs, and a FIFO ready queue. Only
// dirty edges are ever added; a clean edge needs no work and its outputs are
// treated as already satisfied.
type Plan struct {
	states  map[*domain.Edge]EdgeState
	pending map[*domain.Edge]int
	ready   []*domain.Edge
	wanted  int
}

// New creates an empty plan.
func New() *Plan {
	return &Plan{
		states:  make(map[*domain.Edge]EdgeState),
		pending: make(map[*domain.Edge]int),
	}
}

// AddTarget marks the node's producing edge wanted, and recursively any
// input edges required to make it ready. Re-adding an already-wanted target
// is a no-op.
func (p *Plan) AddTarget(node *domain.Node) error {
	edge := node.InEdge
	if edge == nil {
		// A touched source that exists is fine; a dirty one that is absent
		// cannot be made.
		if node.Dirty && !node.Exists() {
			return zerr.With(domain.ErrMissingInput, "path", node.Path.String())
		}
		return nil
	}
	if edge.OutputsReady {
		return nil
	}
	if _, wanted := p.states[edge]; wanted {
		return nil
	}

	// Mark before recursing so a malformed cyclic graph cannot loop.
	p.states[edge] = StateWaiting
	p.wanted++

	unready := 0
	for _, in := range edge.Inputs {
		if err := p.AddTarget(in); err != nil {
			return err
		}
		if in.InEdge != nil && !in.InEdge.OutputsReady {
			unready++
		}
	}
	p.pending[edge] = unready
	if unready == 0 {
		p.scheduleEdge(edge)
	}
	return nil
}

func (p *Plan) scheduleEdge(edge *domain.Edge) {
	if p.states[edge] != StateWaiting {
		return
	}
	p.states[edge] = StateReady
	p.ready = append(p.ready, edge)
}

// FindWork returns the next ready wanted edge, FIFO among eligible edges,
// or nil when the frontier is currently empty. Every edge is returned at
// most once per run.
func (p *Plan) FindWork() *domain.Edge {
	if len(p.ready) == 0 {
		return nil
	}
	edge := p.ready[0]
	p.ready = p.ready[1:]
	p.states[edge] = StateRunning
	return edge
}

// MoreToDo reports whether at least one wanted edge has not reached done.
func (p *Plan) MoreToDo() bool {
	return p.wanted > 0
}

// EdgeFinished transitions edge to done. On success it marks the outputs
// ready and unblocks any newly-ready consumer; a failed edge does not
// release its consumers.
func (p *Plan) EdgeFinished(edge *domain.Edge, success bool) {
	if p.states[edge] == StateDone {
		return
	}
	p.states[edge] = StateDone
	delete(p.pending, edge)
	p.wanted--

	if !success {
		return
	}

	edge.OutputsReady = true
	for _, out := range edge.Outputs {
		p.nodeFinished(out)
	}
}

func (p *Plan) nodeFinished(node *domain.Node) {
	for _, consumer := range node.OutEdges {
		state, wanted := p.states[consumer]
		if !wanted || state != StateWaiting {
			continue
		}
		for _, in := range consumer.Inputs {
			if in == node {
				p.pending[consumer]--
			}
		}
		if p.pending[consumer] == 0 {
			p.scheduleEdge(consumer)
		}
	}
}

// CleanNode is the restat hook: node's just-executed producer left it
// unchanged, so consumers whose remaining inputs are all clean are
// re-examined and, when their outputs check out, demoted to clean and
// skipped entirely.
func (p *Plan) CleanNode(scan *dirty.Engine, node *domain.Node) error {
	node.Dirty = false

	for _, edge := range node.OutEdges {
		state, wanted := p.states[edge]
		if !wanted || state != StateWaiting {
			continue
		}

		// Order-only inputs never influence restat propagation.
		allClean := true
		mostRecentInput := int64(0)
		for i, in := range edge.Inputs {
			if edge.IsOrderOnly(i) {
				continue
			}
			if in.Dirty {
				allClean = false
				break
			}
			if in.MTime > mostRecentInput {
				mostRecentInput = in.MTime
			}
		}
		if !allClean {
			continue
		}

		outputsDirty, err := scan.RecomputeOutputsDirty(edge, mostRecentInput, edge.EvaluateCommand(true))
		if err != nil {
			return err
		}
		if outputsDirty {
			continue
		}

		p.states[edge] = StateDone
		delete(p.pending, edge)
		p.wanted--
		edge.OutputsReady = true

		for _, out := range edge.Outputs {
			if err := p.CleanNode(scan, out); err != nil {
				return err
			}
			p.nodeFinished(out)
		}
	}
	return nil
}
