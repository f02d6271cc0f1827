// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package einsum

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tensorn/tensorn/pkg/core/dtypes"
	"github.com/tensorn/tensorn/pkg/core/shapes"
)

func f64(dims ...int) shapes.Shape { return shapes.Make(dtypes.Float64, dims...) }

func TestNewPlanMatMul(t *testing.T) {
	p, err := NewPlan("ij,jk->ik", f64(2, 3), f64(3, 4))
	require.NoError(t, err)
	assert.Equal(t, []int{2, 4}, p.OutputShape.Dimensions)
	assert.Equal(t, dtypes.Float64, p.OutputShape.DType)
	assert.Equal(t, []LabelID{0, 2}, p.OutputLabels)
	assert.Equal(t, []LabelID{1}, p.SummationLabels)
	assert.Equal(t, []LabelID{0, 2, 1}, p.AllLabels)
	assert.Equal(t, []int{2, 4, 3}, p.Extents)
	assert.Equal(t, [][]int{{0, 2}, {2, 1}}, p.IndexMaps)
	assert.Equal(t, int64(24), p.NumSteps())
	assert.Equal(t, int64(3), p.NumSummationSteps())

	str := p.String()
	assert.Contains(t, str, `einsum "ij,jk->ik"`)
	assert.Contains(t, str, "output: (Float64)[2 4]")
	assert.Contains(t, str, "output labels: i=2 k=4")
	assert.Contains(t, str, "summation labels: j=3")
	assert.Contains(t, str, "steps: 24")
}

func TestNewPlanSummationOrder(t *testing.T) {
	// Summation labels follow the order in which labels are first bound.
	p, err := NewPlan("kij,jl->", f64(2, 3, 4), f64(4, 5))
	require.NoError(t, err)
	assert.Empty(t, p.OutputLabels)
	assert.Equal(t, []LabelID{0, 1, 2, 3}, p.SummationLabels)
	assert.True(t, p.OutputShape.IsScalar())
	assert.Equal(t, 1, p.OutputShape.Size())
}

func TestNewPlanTrace(t *testing.T) {
	p, err := NewPlan("ii->", f64(3, 3))
	require.NoError(t, err)
	assert.Equal(t, []LabelID{0}, p.AllLabels)
	assert.Equal(t, [][]int{{0, 0}}, p.IndexMaps)
	// Both axes of the diagonal advance together.
	assert.Equal(t, [][]int{{4}}, p.strides)
}

func TestNewPlanEllipsis(t *testing.T) {
	p, err := NewPlan("...ij,...jk->...ik", f64(5, 6, 2, 3), f64(5, 6, 3, 4))
	require.NoError(t, err)
	assert.Equal(t, []int{5, 6, 2, 4}, p.OutputShape.Dimensions)
	// Explicit labels i, j, k are 0, 1, 2; the ellipsis axes 3 and 4.
	assert.Equal(t, []LabelID{3, 4, 0, 2}, p.OutputLabels)
	assert.Equal(t, []LabelID{1}, p.SummationLabels)

	// Ellipsis in the middle, and covering no axes at all.
	p, err = NewPlan("i...j,ij->...", f64(2, 7, 3), f64(2, 3))
	require.NoError(t, err, "operands without ellipsis don't constrain the ellipsis axes")
	assert.Equal(t, []int{7}, p.OutputShape.Dimensions)
	p, err = NewPlan("i...j,i...j->...", f64(2, 7, 3), f64(2, 7, 3))
	require.NoError(t, err)
	assert.Equal(t, []int{7}, p.OutputShape.Dimensions)
	p, err = NewPlan("...ij->ij", f64(2, 3))
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3}, p.OutputShape.Dimensions)

	// Output ellipsis without any operand ellipsis expands to nothing.
	p, err = NewPlan("ij->...ji", f64(2, 3))
	require.NoError(t, err)
	assert.Equal(t, []int{3, 2}, p.OutputShape.Dimensions)

	// An ellipsis covering all axes.
	p, err = NewPlan("...->", f64(2, 3, 4))
	require.NoError(t, err)
	assert.Equal(t, int64(24), p.NumSteps())
}

func TestNewPlanErrors(t *testing.T) {
	testCases := []struct {
		name     string
		equation string
		shapes   []shapes.Shape
		want     error
	}{
		{"too few operands", "ij,jk->ik", []shapes.Shape{f64(2, 3)}, ErrOperandCountMismatch},
		{"too many operands", "ij->ij", []shapes.Shape{f64(2, 3), f64(3)}, ErrOperandCountMismatch},
		{"too few labels", "i->i", []shapes.Shape{f64(2, 3)}, ErrRankMismatch},
		{"too many labels", "ijk->i", []shapes.Shape{f64(2, 3)}, ErrRankMismatch},
		{"too many labels with ellipsis", "ijk...->i", []shapes.Shape{f64(2, 3)}, ErrRankMismatch},
		{"conflicting label", "ij,jk->ik", []shapes.Shape{f64(2, 3), f64(4, 5)}, ErrDimensionMismatch},
		{"non-square trace", "ii->", []shapes.Shape{f64(2, 3)}, ErrDimensionMismatch},
		{"ellipsis widths", "...i,...i->...i", []shapes.Shape{f64(2, 3), f64(4, 2, 3)}, ErrDimensionMismatch},
		{"ellipsis dims", "...i,...i->...i", []shapes.Shape{f64(2, 3), f64(4, 3)}, ErrDimensionMismatch},
		{"no size 1 broadcasting", "...i,...i->...i", []shapes.Shape{f64(1, 3), f64(4, 3)}, ErrDimensionMismatch},
		{"unknown output", "ij->ik", []shapes.Shape{f64(2, 3)}, ErrUnknownOutputLabel},
		{"repeated output", "ij->ii", []shapes.Shape{f64(2, 2)}, ErrMalformedExpression},
		{"parse error", "ij", []shapes.Shape{f64(2, 2)}, ErrMalformedExpression},
		{"dtype mismatch", "i,i->", []shapes.Shape{f64(2), shapes.Make(dtypes.Float32, 2)}, ErrDTypeMismatch},
		{"bool", "i->", []shapes.Shape{shapes.Make(dtypes.Bool, 2)}, ErrUnsupportedDType},
		{"no operands", "i->", nil, ErrOperandCountMismatch},
		{"operand count before dtype", "i,i->", []shapes.Shape{f64(2), shapes.Make(dtypes.Float32, 2), f64(2)},
			ErrOperandCountMismatch},
		{"output label of a scalar", "->i", []shapes.Shape{f64()}, ErrUnknownOutputLabel},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewPlan(tc.equation, tc.shapes...)
			require.ErrorIs(t, err, tc.want)
		})
	}
}
