package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/shinobi/internal/core/domain"
)

func TestBindingEnv_Shadowing(t *testing.T) {
	top := domain.NewBindingEnv(nil)
	top.Bind("cflags", "-g")
	top.Bind("ldflags", "-lm")

	edge := domain.NewBindingEnv(top)
	edge.Bind("cflags", "-O2")

	assert.Equal(t, "-O2", edge.Lookup("cflags"))
	assert.Equal(t, "-lm", edge.Lookup("ldflags"))
	assert.Equal(t, "", edge.Lookup("unbound"))
}

func TestEdgeEnv_SpecialVariables(t *testing.T) {
	state := newTestState(t)
	rule := &domain.Rule{Name: "cat"}
	require.NoError(t, rule.Command.Parse("cat $in > $out"))
	require.NoError(t, state.AddRule(rule))

	edge := state.AddEdge(rule)
	require.NoError(t, state.AddInOut(edge, domain.DepIn, "a"))
	require.NoError(t, state.AddInOut(edge, domain.DepIn, "b"))
	require.NoError(t, state.AddInOut(edge, domain.DepInImplicit, "hdr"))
	require.NoError(t, state.AddInOut(edge, domain.DepOut, "o"))
	edge.Env.Bind("extra", "yes")

	env := domain.NewEdgeEnv(edge)
	assert.Equal(t, "a b", env.Lookup("in"))
	assert.Equal(t, "a\nb", env.Lookup("in_newline"))
	assert.Equal(t, "o", env.Lookup("out"))
	assert.Equal(t, "yes", env.Lookup("extra"))
}
