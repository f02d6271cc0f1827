// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package einsum

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	e, err := Parse("ij,jk->ik")
	require.NoError(t, err)
	assert.Equal(t, []rune("ijk"), e.Names)
	require.Len(t, e.Operands, 2)
	assert.Equal(t, Spec{Labels: []LabelID{0, 1}, EllipsisPos: NoEllipsis}, e.Operands[0])
	assert.Equal(t, Spec{Labels: []LabelID{1, 2}, EllipsisPos: NoEllipsis}, e.Operands[1])
	assert.Equal(t, Spec{Labels: []LabelID{0, 2}, EllipsisPos: NoEllipsis}, e.Output)
	assert.Equal(t, 3, e.NumExplicit())

	// White space is ignored, and the output can be empty.
	e, err = Parse(" i j ,\tj k -> ")
	require.NoError(t, err)
	assert.Equal(t, "ij,jk->", e.String())
	assert.Empty(t, e.Output.Labels)
	assert.False(t, e.Output.HasEllipsis())

	e, err = Parse("...ij, i...j ,ij...->...")
	require.NoError(t, err)
	assert.Equal(t, 0, e.Operands[0].EllipsisPos)
	assert.Equal(t, 1, e.Operands[1].EllipsisPos)
	assert.Equal(t, 2, e.Operands[2].EllipsisPos)
	assert.Equal(t, 0, e.Output.EllipsisPos)
	assert.Equal(t, "...ij,i...j,ij...->...", e.String())

	// An empty operand spec is a scalar.
	e, err = Parse(",i->i")
	require.NoError(t, err)
	require.Len(t, e.Operands, 2)
	assert.Empty(t, e.Operands[0].Labels)

	// An empty left side is a single scalar operand.
	e, err = Parse("->")
	require.NoError(t, err)
	require.Len(t, e.Operands, 1)
	assert.Empty(t, e.Operands[0].Labels)
	assert.Empty(t, e.Output.Labels)

	// Upper-case labels are distinct from lower-case ones.
	e, err = Parse("aA->Aa")
	require.NoError(t, err)
	assert.Equal(t, []LabelID{1, 0}, e.Output.Labels)

	// Output-only labels are parsed, and rejected later when resolving.
	e, err = Parse("i->j")
	require.NoError(t, err)
	assert.Equal(t, 2, e.NumExplicit())
}

func TestParseErrors(t *testing.T) {
	testCases := []struct {
		equation string
		want     error
	}{
		{"ij,jk", ErrMalformedExpression},
		{"ij->j->i", ErrMalformedExpression},
		{"->i->", ErrMalformedExpression},
		{"i1->i", ErrMalformedExpression},
		{"i-j->i", ErrMalformedExpression},
		{"ij>k->i", ErrMalformedExpression},
		{"i_j->i", ErrMalformedExpression},
		{"i..j->i", ErrInvalidEllipsis},
		{"....->", ErrInvalidEllipsis},
		{"i.->i", ErrInvalidEllipsis},
		{"...i...->i", ErrInvalidEllipsis},
		{"i->..", ErrInvalidEllipsis},
		{"i->......", ErrInvalidEllipsis},
	}
	for _, tc := range testCases {
		_, err := Parse(tc.equation)
		require.ErrorIs(t, err, tc.want, "equation %q", tc.equation)
	}
}

func TestLabelName(t *testing.T) {
	e, err := Parse("...ab->...")
	require.NoError(t, err)
	assert.Equal(t, "a", e.LabelName(0))
	assert.Equal(t, "b", e.LabelName(1))
	assert.Equal(t, "…0", e.LabelName(2))
	assert.Equal(t, "…1", e.LabelName(3))
}
