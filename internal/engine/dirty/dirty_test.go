package dirty_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/shinobi/internal/core/domain"
	"go.trai.ch/shinobi/internal/engine/buildlog"
	"go.trai.ch/shinobi/internal/engine/dirty"
)

type virtualFS map[string]int64

func (v virtualFS) Stat(path string) (int64, error) {
	return v[path], nil
}

// catGraph builds "build out: cat in1 in2" and returns the state and edge.
func catGraph(t *testing.T, fsys virtualFS) (*domain.State, *domain.Edge) {
	t.Helper()

	state := domain.NewState(fsys)
	rule := &domain.Rule{Name: "cat"}
	require.NoError(t, rule.Command.Parse("cat @in > $out"))
	require.NoError(t, state.AddRule(rule))

	edge := state.AddEdge(rule)
	require.NoError(t, state.AddInOut(edge, domain.DepIn, "in1"))
	require.NoError(t, state.AddInOut(edge, domain.DepIn, "in2"))
	require.NoError(t, state.AddInOut(edge, domain.DepOut, "out"))
	return state, edge
}

// loggedCat returns a build log holding the edge's current command for its
// outputs, as a previous successful run would have left it.
func loggedCat(t *testing.T, edge *domain.Edge, restatMtime int64) *buildlog.Log {
	t.Helper()
	log := buildlog.New(true)
	require.NoError(t, log.RecordCommand(edge, 0, 1, restatMtime))
	return log
}

func TestCheckDirty_UpToDate(t *testing.T) {
	state, edge := catGraph(t, virtualFS{"in1": 5, "in2": 7, "out": 10})
	engine := dirty.NewEngine(state, loggedCat(t, edge, 0))

	require.NoError(t, engine.CheckDirty(state.GetNode("out")))

	assert.False(t, state.GetNode("out").Dirty)
	assert.True(t, edge.OutputsReady)
}

func TestCheckDirty_InputNewerThanOutput(t *testing.T) {
	state, edge := catGraph(t, virtualFS{"in1": 20, "in2": 7, "out": 10})
	engine := dirty.NewEngine(state, loggedCat(t, edge, 0))

	require.NoError(t, engine.CheckDirty(state.GetNode("out")))

	assert.True(t, state.GetNode("out").Dirty)
	assert.False(t, edge.OutputsReady)
}

func TestCheckDirty_EqualMtimesAreClean(t *testing.T) {
	// An output exactly as old as its newest input does not rebuild.
	state, edge := catGraph(t, virtualFS{"in1": 10, "in2": 10, "out": 10})
	engine := dirty.NewEngine(state, loggedCat(t, edge, 0))

	require.NoError(t, engine.CheckDirty(state.GetNode("out")))

	assert.False(t, state.GetNode("out").Dirty)
}

func TestCheckDirty_MissingOutput(t *testing.T) {
	state, edge := catGraph(t, virtualFS{"in1": 5, "in2": 7})
	engine := dirty.NewEngine(state, loggedCat(t, edge, 0))

	require.NoError(t, engine.CheckDirty(state.GetNode("out")))

	assert.True(t, state.GetNode("out").Dirty)
}

func TestCheckDirty_CommandChangeTriggersRebuild(t *testing.T) {
	state, _ := catGraph(t, virtualFS{"in1": 5, "in2": 7, "out": 10})

	// The log remembers a different command line for "out".
	log := buildlog.New(true)
	_, prevEdge := catGraph(t, virtualFS{})
	prevEdge.Inputs = prevEdge.Inputs[:1] // cat in1 > out
	require.NoError(t, log.RecordCommand(prevEdge, 0, 1, 0))

	engine := dirty.NewEngine(state, log)
	require.NoError(t, engine.CheckDirty(state.GetNode("out")))

	assert.True(t, state.GetNode("out").Dirty, "mtimes say clean, the command says rebuild")
}

func TestCheckDirty_CommandMissingFromLog(t *testing.T) {
	state, _ := catGraph(t, virtualFS{"in1": 5, "in2": 7, "out": 10})
	engine := dirty.NewEngine(state, buildlog.New(true))

	require.NoError(t, engine.CheckDirty(state.GetNode("out")))

	assert.True(t, state.GetNode("out").Dirty)
}

func TestCheckDirty_NoLogSkipsCommandCheck(t *testing.T) {
	state, _ := catGraph(t, virtualFS{"in1": 5, "in2": 7, "out": 10})
	engine := dirty.NewEngine(state, nil)

	require.NoError(t, engine.CheckDirty(state.GetNode("out")))

	assert.False(t, state.GetNode("out").Dirty)
}

func TestCheckDirty_MissingSource(t *testing.T) {
	state, _ := catGraph(t, virtualFS{"in1": 5, "out": 10})
	engine := dirty.NewEngine(state, nil)

	err := engine.CheckDirty(state.GetNode("out"))
	require.ErrorIs(t, err, domain.ErrMissingInput)
}

func TestCheckDirty_TransitiveDirtyness(t *testing.T) {
	// in -> mid -> out, with mid stale: both mid and out become dirty.
	fsys := virtualFS{"in": 20, "mid": 10, "out": 10}
	state := domain.NewState(fsys)
	rule := &domain.Rule{Name: "cp"}
	require.NoError(t, rule.Command.Parse("cp $in $out"))
	require.NoError(t, state.AddRule(rule))

	e1 := state.AddEdge(rule)
	require.NoError(t, state.AddInOut(e1, domain.DepIn, "in"))
	require.NoError(t, state.AddInOut(e1, domain.DepOut, "mid"))
	e2 := state.AddEdge(rule)
	require.NoError(t, state.AddInOut(e2, domain.DepIn, "mid"))
	require.NoError(t, state.AddInOut(e2, domain.DepOut, "out"))

	engine := dirty.NewEngine(state, nil)
	require.NoError(t, engine.CheckDirty(state.GetNode("out")))

	assert.True(t, state.GetNode("mid").Dirty)
	assert.True(t, state.GetNode("out").Dirty)
	assert.False(t, state.GetNode("in").Dirty)
}

func TestCheckDirty_OrderOnlyDoesNotPropagate(t *testing.T) {
	fsys := virtualFS{"in": 5, "gen": 50, "out": 10}
	state := domain.NewState(fsys)
	rule := &domain.Rule{Name: "cc"}
	require.NoError(t, rule.Command.Parse("cc $in -o $out"))
	require.NoError(t, state.AddRule(rule))

	edge := state.AddEdge(rule)
	require.NoError(t, state.AddInOut(edge, domain.DepIn, "in"))
	require.NoError(t, state.AddInOut(edge, domain.DepInOrderOnly, "gen"))
	require.NoError(t, state.AddInOut(edge, domain.DepOut, "out"))

	engine := dirty.NewEngine(state, nil)
	require.NoError(t, engine.CheckDirty(state.GetNode("out")))

	assert.False(t, state.GetNode("out").Dirty, "a newer order-only input is not a rebuild signal")
}

func TestCheckDirty_CycleIsGraphError(t *testing.T) {
	state := domain.NewState(virtualFS{})
	rule := &domain.Rule{Name: "cp"}
	require.NoError(t, rule.Command.Parse("cp $in $out"))
	require.NoError(t, state.AddRule(rule))

	e1 := state.AddEdge(rule)
	require.NoError(t, state.AddInOut(e1, domain.DepIn, "b"))
	require.NoError(t, state.AddInOut(e1, domain.DepOut, "a"))
	e2 := state.AddEdge(rule)
	require.NoError(t, state.AddInOut(e2, domain.DepIn, "a"))
	require.NoError(t, state.AddInOut(e2, domain.DepOut, "b"))

	engine := dirty.NewEngine(state, nil)
	err := engine.CheckDirty(state.GetNode("a"))
	require.ErrorIs(t, err, domain.ErrCycleDetected)
}

func TestCheckDirty_RestatMtimeKeepsChainStable(t *testing.T) {
	// The output is older than the input, but a previous restat run
	// recorded that the command already saw this input state.
	fsys := virtualFS{"in1": 20, "in2": 7, "out": 10}
	state, edge := catGraph(t, fsys)
	edge.Rule.Restat = true

	engine := dirty.NewEngine(state, loggedCat(t, edge, 20))
	require.NoError(t, engine.CheckDirty(state.GetNode("out")))

	assert.False(t, state.GetNode("out").Dirty)
}

func TestCheckDirty_Idempotent(t *testing.T) {
	fsys := virtualFS{"in1": 20, "in2": 7, "out": 10}
	state, _ := catGraph(t, fsys)
	engine := dirty.NewEngine(state, nil)

	require.NoError(t, engine.CheckDirty(state.GetNode("out")))
	first := state.GetNode("out").Dirty

	require.NoError(t, engine.CheckDirty(state.GetNode("out")))
	assert.Equal(t, first, state.GetNode("out").Dirty)
}
