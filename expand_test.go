package symgrade_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/njchilds90/symgrade"
)

func TestSignVariants(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"x + 1", []string{"x + 1"}},
		{"plus_minus x", []string{"+ x", "- x"}},
		{"a minus_plus b", []string{"a - b", "a + b"}},
		{"plus_minus x + minus_plus y", []string{"+ x + - y", "- x + + y"}},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, symgrade.SignVariants(tc.in), tc.in)
	}
}

func TestMatchMatrix_Satisfies(t *testing.T) {
	m := symgrade.NewMatchMatrix(2, 2)
	m.Record(0, 0, true)
	m.Record(0, 1, false)
	m.Record(1, 0, true)
	m.Record(1, 1, false)

	cases := map[symgrade.Criteria]bool{
		symgrade.CriteriaAll:          false,
		symgrade.CriteriaAllResponses: true,
		symgrade.CriteriaAllAnswers:   false,
	}
	for c, want := range cases {
		got, err := m.Satisfies(c)
		require.NoError(t, err, c)
		assert.Equal(t, want, got, c)
	}

	m.Record(1, 1, true)
	got, err := m.Satisfies(symgrade.CriteriaAll)
	require.NoError(t, err)
	assert.True(t, got)

	_, err = m.Satisfies("most")
	assert.True(t, errors.Is(err, symgrade.ErrUnknownCriteria))
}

func TestChecker_CheckVariantsWithoutMarkers(t *testing.T) {
	cfg, err := symgrade.Params{}.Resolve()
	require.NoError(t, err)
	c := symgrade.NewChecker(nil, cfg, nil)

	direct, err := c.Check(context.Background(), "2*x", "x + x")
	require.NoError(t, err)
	expanded, err := c.CheckVariants(context.Background(), "2*x", "x + x")
	require.NoError(t, err)
	assert.Equal(t, direct, expanded)
	assert.Equal(t, symgrade.LevelSymbolic, direct.Level)
}

func TestChecker_CheckVariantsFeedbackDeduplicated(t *testing.T) {
	cfg, err := symgrade.Params{}.Resolve()
	require.NoError(t, err)
	c := symgrade.NewChecker(nil, cfg, nil)

	out, err := c.CheckVariants(context.Background(), "plus_minus x", "plus_minus x = 1")
	require.NoError(t, err)
	assert.False(t, out.IsCorrect)
	assert.Equal(t, symgrade.ExpectedEquality, out.Feedback)
}
