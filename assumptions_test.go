package symgrade_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/njchilds90/symgrade"
)

func TestParseAssumptions(t *testing.T) {
	cases := []struct {
		in   string
		want []symgrade.SymbolAssumption
	}{
		{"", nil},
		{"(x,positive)", []symgrade.SymbolAssumption{{Symbol: "x", Assumption: "positive"}}},
		{"('g','positive') ('v', 'real')", []symgrade.SymbolAssumption{
			{Symbol: "g", Assumption: "positive"},
			{Symbol: "v", Assumption: "real"},
		}},
		{`("x_1", "nonnegative")`, []symgrade.SymbolAssumption{{Symbol: "x_1", Assumption: "nonnegative"}}},
	}
	for _, tc := range cases {
		got, err := symgrade.ParseAssumptions(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestParseAssumptions_Malformed(t *testing.T) {
	for _, in := range []string{"(x positive)", "(x,positive", "(x,pos,itive)", "('x,positive)", "(,positive)", "(x+y,real)"} {
		_, err := symgrade.ParseAssumptions(in)
		require.Error(t, err, in)
		assert.True(t, errors.Is(err, symgrade.ErrMalformedAssumptions), in)
	}
}

func TestEngine_SupportsAssumption(t *testing.T) {
	eng := symgrade.DefaultEngine()
	assert.True(t, eng.SupportsAssumption("positive"))
	assert.True(t, eng.SupportsAssumption("real"))
	assert.False(t, eng.SupportsAssumption("wobbly"))
}
