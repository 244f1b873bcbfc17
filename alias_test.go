package symgrade_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/njchilds90/symgrade"
)

func TestSubstitute_Order(t *testing.T) {
	abc := symgrade.Substitution{Pattern: "abc", Replacement: "p"}
	bc := symgrade.Substitution{Pattern: "bc", Replacement: "q"}
	c := symgrade.Substitution{Pattern: "c", Replacement: "r"}
	cBr := symgrade.Substitution{Pattern: "c", Replacement: "br"}

	cases := []struct {
		in   string
		subs []symgrade.Substitution
		want string
	}{
		{"abc bc c", []symgrade.Substitution{abc, bc, c}, "p q r"},
		{"abc bc c", []symgrade.Substitution{c, bc, abc}, "p q r"},
		{"bc", []symgrade.Substitution{c, bc}, "br"},
		{"bc", []symgrade.Substitution{bc, c}, "q"},
		{"p bc c", []symgrade.Substitution{{Pattern: "p", Replacement: "abc"}, bc, c}, "abc q r"},
		{"p bc c", []symgrade.Substitution{{Pattern: "p", Replacement: "abc"}, cBr}, "abc bbr br"},
		{"abc", nil, "abc"},
		{"αβ", []symgrade.Substitution{{Pattern: "β", Replacement: "beta"}}, "αbeta"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, symgrade.Substitute(tc.in, tc.subs), tc.in)
	}
}

func TestSubstitute_ReplacementNotRescanned(t *testing.T) {
	subs := []symgrade.Substitution{
		{Pattern: "a", Replacement: "b"},
		{Pattern: "b", Replacement: "c"},
	}
	assert.Equal(t, "bc", symgrade.Substitute("ab", subs))
}

func TestAliasTable_LongestFirst(t *testing.T) {
	table := symgrade.NewAliasTable([]symgrade.InputSymbol{
		{Code: "v", Aliases: []string{"speed", " ", "velocity"}},
		{Code: "t", Aliases: []string{"time"}},
		{Code: " "},
	})
	got := table.Substitutions()
	want := []symgrade.Substitution{
		{Pattern: "velocity", Replacement: "v"},
		{Pattern: "speed", Replacement: "v"},
		{Pattern: "time", Replacement: "t"},
		{Pattern: "v", Replacement: "v"},
		{Pattern: "t", Replacement: "t"},
	}
	assert.Equal(t, want, got)
	assert.Equal(t, []string{"v", "t"}, table.Codes())
	assert.Equal(t, "v*t + v", table.Apply("speed*time + velocity"))
}

func TestAliasTable_ApplyIdempotent(t *testing.T) {
	table := symgrade.NewAliasTable([]symgrade.InputSymbol{
		{Code: "v", Aliases: []string{"speed", "velocity"}},
		{Code: "t", Aliases: []string{"time"}},
		{Code: "xy"},
		{Code: "z", Aliases: []string{"x"}},
	})
	for _, in := range []string{
		"speed*time + velocity",
		"timespeed",
		"xy + x",
		"v*t",
		"",
	} {
		once := table.Apply(in)
		assert.Equal(t, once, table.Apply(once), in)
	}
}

func TestAliasTable_CodeShadowsAlias(t *testing.T) {
	// "xy" would otherwise be rewritten through the alias "x".
	table := symgrade.NewAliasTable([]symgrade.InputSymbol{
		{Code: "xy"},
		{Code: "z", Aliases: []string{"x"}},
	})
	assert.Equal(t, "xy + z", table.Apply("xy + x"))
}

func TestPreprocessExpressions(t *testing.T) {
	symbols := []symgrade.InputSymbol{{Code: "a", Aliases: []string{"alpha"}}}
	got := symgrade.PreprocessExpressions([]string{"alpha + 1", "2*alpha", "b"}, symbols)
	assert.Equal(t, []string{"a + 1", "2*a", "b"}, got)
}
