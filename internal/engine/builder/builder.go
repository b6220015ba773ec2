// Package builder glues the dirty scan, the plan, the build log and the
// external executor into one build run.
//
// The core is single-threaded: parallelism is extrinsic to it. The executor
// may run many commands at once, but every mutation of the graph, the plan,
// the stat cache and the log happens on the dispatcher goroutine between
// executor suspension points.
package builder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"go.trai.ch/shinobi/internal/core/domain"
	"go.trai.ch/shinobi/internal/core/ports"
	"go.trai.ch/shinobi/internal/engine/buildlog"
	"go.trai.ch/shinobi/internal/engine/dirty"
	"go.trai.ch/shinobi/internal/engine/plan"
	"go.trai.ch/zerr"
)

// Config holds the per-run knobs of a build.
type Config struct {
	// Parallelism caps the number of in-flight edge commands.
	Parallelism int

	// KeepGoing is the failure budget: once this many edges have failed,
	// no new edges are started and in-flight ones are drained.
	KeepGoing int

	// DryRun suppresses the executor and on-disk log writes.
	DryRun bool
}

// Builder owns the four core subsystems and drives them from the executor.
type Builder struct {
	state  *domain.State
	scan   *dirty.Engine
	plan   *plan.Plan
	log    *buildlog.Log
	exec   ports.Executor
	logger ports.Logger
	tel    ports.Telemetry
	cfg    Config
}

// New creates a Builder over state. log may be nil when command logging is
// unavailable; the build then proceeds without persistence.
func New(
	state *domain.State,
	log *buildlog.Log,
	exec ports.Executor,
	logger ports.Logger,
	tel ports.Telemetry,
	cfg Config,
) *Builder {
	if cfg.Parallelism < 1 {
		cfg.Parallelism = 1
	}
	if cfg.KeepGoing < 1 {
		cfg.KeepGoing = 1
	}
	return &Builder{
		state:  state,
		scan:   dirty.NewEngine(state, log),
		plan:   plan.New(),
		log:    log,
		exec:   exec,
		logger: logger,
		tel:    tel,
		cfg:    cfg,
	}
}

// AddTarget resolves path, computes dirtiness from it and adds it to the
// plan. Graph errors surface here, before any command runs.
func (b *Builder) AddTarget(path string) (*domain.Node, error) {
	node := b.state.LookupNode(path)
	if node == nil {
		return nil, zerr.With(domain.ErrUnknownTarget, "target", path)
	}
	if err := b.scan.CheckDirty(node); err != nil {
		return nil, err
	}
	if node.InEdge == nil && !node.Exists() {
		return nil, zerr.With(domain.ErrMissingInput, "path", node.Path.String())
	}
	if err := b.plan.AddTarget(node); err != nil {
		return nil, err
	}
	return node, nil
}

// AlreadyUpToDate reports whether the plan has no work at all.
func (b *Builder) AlreadyUpToDate() bool {
	return !b.plan.MoreToDo()
}

type inflight struct {
	edge    *domain.Edge
	vertex  ports.Vertex
	startMs int32
}

// Build runs the plan to completion. Once the keep-going budget is exhausted,
// no new edges start and in-flight ones are drained. It returns
// ErrBuildFailed when any edge failed or the context was cancelled.
func (b *Builder) Build(ctx context.Context) error {
	running := make(map[ports.Subprocess]*inflight)
	started := time.Now()
	failures := 0

	for b.plan.MoreToDo() || len(running) > 0 {
		// A cancelled context behaves like an exhausted failure budget:
		// nothing new starts, in-flight edges are awaited.
		for failures < b.cfg.KeepGoing && ctx.Err() == nil && len(running) < b.cfg.Parallelism {
			edge := b.plan.FindWork()
			if edge == nil {
				break
			}
			if err := b.startEdge(ctx, edge, started, running, &failures); err != nil {
				return err
			}
		}

		if len(running) == 0 {
			break
		}

		if err := b.exec.DoWork(); err != nil {
			return zerr.Wrap(err, "waiting for subprocesses failed")
		}
		for sub, fl := range running {
			if !sub.Done() {
				continue
			}
			delete(running, sub)
			if err := b.finishEdge(fl, sub.Finish() == 0, sub.Output(), started, &failures); err != nil {
				return err
			}
		}
	}

	if failures > 0 {
		return zerr.With(domain.ErrBuildFailed, "failed_edges", failures)
	}
	if err := ctx.Err(); err != nil {
		return errors.Join(domain.ErrBuildFailed, err)
	}
	return nil
}

func (b *Builder) startEdge(
	ctx context.Context,
	edge *domain.Edge,
	started time.Time,
	running map[ports.Subprocess]*inflight,
	failures *int,
) error {
	startMs := int32(time.Since(started).Milliseconds())
	_, vertex := b.tel.Record(ctx, edge.Description())

	if b.cfg.DryRun {
		fl := &inflight{edge: edge, vertex: vertex, startMs: startMs}
		return b.finishEdge(fl, true, "", started, failures)
	}

	if rspfile := edge.EvaluateRspFile(); rspfile != "" {
		content := edge.EvaluateRspFileContent()
		if err := os.WriteFile(rspfile, []byte(content), 0o644); err != nil { //nolint:gosec // path from build description
			return zerr.With(zerr.Wrap(err, "failed to write response file"), "path", rspfile)
		}
	}

	command := edge.EvaluateCommand(false)
	sub, err := b.exec.Add(ctx, command, nil)
	if err != nil {
		// A spawn failure counts against the budget like a failed edge.
		b.logger.Error(zerr.With(zerr.Wrap(err, "failed to spawn command"), "command", command))
		vertex.Complete(err)
		b.plan.EdgeFinished(edge, false)
		*failures++
		return nil
	}

	running[sub] = &inflight{edge: edge, vertex: vertex, startMs: startMs}
	return nil
}

func (b *Builder) finishEdge(fl *inflight, success bool, output string, started time.Time, failures *int) error {
	edge := fl.edge
	endMs := int32(time.Since(started).Milliseconds())

	if output != "" {
		_, _ = fl.vertex.Stdout().Write([]byte(output))
	}

	if !success {
		err := zerr.With(zerr.New("command exited non-zero"), "command", edge.EvaluateCommand(false))
		b.logger.Error(err)
		if output != "" {
			b.logger.Info(output)
		}
		fl.vertex.Complete(err)
		b.plan.EdgeFinished(edge, false)
		*failures++
		return nil
	}

	restatMtime := int64(0)
	if !b.cfg.DryRun {
		demoted, err := b.restatOutputs(edge)
		if err != nil {
			return err
		}
		if demoted {
			fl.vertex.Cached()
		}
		for i, in := range edge.Inputs {
			if edge.IsOrderOnly(i) {
				continue
			}
			if in.MTime > restatMtime {
				restatMtime = in.MTime
			}
		}
	}

	if b.log != nil {
		if err := b.log.RecordCommand(edge, fl.startMs, endMs, restatMtime); err != nil {
			b.logger.Warn(fmt.Sprintf("build log write failed, continuing without persistence: %v", err))
			b.log.Close()
		}
	}

	b.plan.EdgeFinished(edge, true)
	fl.vertex.Complete(nil)
	return nil
}

// restatOutputs refreshes the stat cache for edge's outputs. For a restat
// rule, outputs whose mtime did not change demote their consumers back to
// clean, letting downstream edges skip execution entirely. For a restat rule
// it reports whether every output came back unchanged; for any other rule it
// reports false.
func (b *Builder) restatOutputs(edge *domain.Edge) (bool, error) {
	stats := b.state.StatCache()
	allUnchanged := len(edge.Outputs) > 0

	for _, out := range edge.Outputs {
		previous := out.MTime
		stats.Invalidate(out)
		if err := stats.Stat(out); err != nil {
			return false, err
		}
		out.Dirty = false

		if !edge.Rule.Restat {
			allUnchanged = false
			continue
		}
		if out.MTime == previous {
			if err := b.plan.CleanNode(b.scan, out); err != nil {
				return false, err
			}
		} else {
			allUnchanged = false
		}
	}

	return edge.Rule.Restat && allUnchanged, nil
}
