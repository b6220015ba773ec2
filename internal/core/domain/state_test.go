package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/shinobi/internal/core/domain"
)

// virtualFS is an in-memory filesystem: path -> mtime, absent means missing.
type virtualFS map[string]int64

func (v virtualFS) Stat(path string) (int64, error) {
	return v[path], nil
}

func newTestState(t *testing.T) *domain.State {
	t.Helper()
	return domain.NewState(virtualFS{})
}

func addCatEdge(t *testing.T, state *domain.State) *domain.Edge {
	t.Helper()

	rule := &domain.Rule{Name: "cat"}
	require.NoError(t, rule.Command.Parse("cat @in > $out"))
	require.NoError(t, state.AddRule(rule))

	edge := state.AddEdge(rule)
	require.NoError(t, state.AddInOut(edge, domain.DepIn, "in1"))
	require.NoError(t, state.AddInOut(edge, domain.DepIn, "in2"))
	require.NoError(t, state.AddInOut(edge, domain.DepOut, "out"))
	return edge
}

func TestState_Basic(t *testing.T) {
	state := newTestState(t)
	edge := addCatEdge(t, state)

	assert.Equal(t, "cat in1 in2 > out", edge.EvaluateCommand(false))

	assert.False(t, state.GetNode("in1").Dirty)
	assert.False(t, state.GetNode("in2").Dirty)
	assert.False(t, state.GetNode("out").Dirty)

	state.StatCache().Touch("in1", 1)
	assert.True(t, state.GetNode("in1").Dirty)
	assert.False(t, state.GetNode("in2").Dirty)
	assert.True(t, state.GetNode("out").Dirty)
}

func TestState_DuplicateRule(t *testing.T) {
	state := newTestState(t)

	require.NoError(t, state.AddRule(&domain.Rule{Name: "cc"}))
	err := state.AddRule(&domain.Rule{Name: "cc"})
	require.ErrorIs(t, err, domain.ErrDuplicateRule)
}

func TestState_DuplicateOutput(t *testing.T) {
	state := newTestState(t)
	rule := &domain.Rule{Name: "touch"}
	require.NoError(t, state.AddRule(rule))

	e1 := state.AddEdge(rule)
	require.NoError(t, state.AddInOut(e1, domain.DepOut, "gen.h"))

	e2 := state.AddEdge(rule)
	err := state.AddInOut(e2, domain.DepOut, "gen.h")
	require.ErrorIs(t, err, domain.ErrDuplicateOutput)
}

func TestState_OutputWiresInEdge(t *testing.T) {
	state := newTestState(t)
	edge := addCatEdge(t, state)

	out := state.GetNode("out")
	assert.Same(t, edge, out.InEdge)
	require.Len(t, state.GetNode("in1").OutEdges, 1)
	assert.Same(t, edge, state.GetNode("in1").OutEdges[0])
}

func TestState_PathCanonicalisation(t *testing.T) {
	state := newTestState(t)

	n := state.GetNode("src/../src/main.c")
	assert.Same(t, n, state.GetNode("src/main.c"))
	assert.Same(t, n, state.GetNode(`src\main.c`))
	assert.Equal(t, "src/main.c", n.Path.String())

	assert.Nil(t, state.LookupNode("never/mentioned.c"))
	assert.NotNil(t, state.LookupNode("./src/main.c"))
}

func TestStatCache_InvalidateForcesRestat(t *testing.T) {
	fsys := virtualFS{"gen.c": 10}
	state := domain.NewState(fsys)

	n := state.GetNode("gen.c")
	require.NoError(t, state.StatCache().Stat(n))
	assert.EqualValues(t, 10, n.MTime)

	// The cached observation stays stable until invalidated.
	fsys["gen.c"] = 20
	n.MTime = -1
	require.NoError(t, state.StatCache().Stat(n))
	assert.EqualValues(t, 10, n.MTime)

	state.StatCache().Invalidate(n)
	require.NoError(t, state.StatCache().Stat(n))
	assert.EqualValues(t, 20, n.MTime)
}
