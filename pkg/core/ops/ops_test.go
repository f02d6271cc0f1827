// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package ops

import (
	"math"
	"testing"

	"github.com/janpfeifer/must"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tensorn/tensorn/pkg/core/dtypes"
	"github.com/tensorn/tensorn/pkg/core/tensors"
	"gonum.org/v1/gonum/mat"
)

func TestProducts(t *testing.T) {
	a := tensors.FromValue([][]float64{{1, 2, 3}, {4, 5, 6}})
	b := tensors.FromValue([][]float64{{1, 2}, {3, 4}, {5, 6}})
	got, err := MatMul(a, b)
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{22, 28}, {49, 64}}, got.Value())

	v := tensors.FromValue([]float64{1, 2, 3})
	w := tensors.FromValue([]float64{4, 5, 6})
	got, err = Dot(v, w)
	require.NoError(t, err)
	assert.Equal(t, 32.0, got.Value())

	got, err = Outer(v, tensors.FromValue([]float64{1, -1}))
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{1, -1}, {2, -2}, {3, -3}}, got.Value())

	got, err = Hadamard(a, a)
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{1, 4, 9}, {16, 25, 36}}, got.Value())

	got, err = Hadamard(tensors.FromScalar(3.0), tensors.FromScalar(4.0))
	require.NoError(t, err)
	assert.Equal(t, 12.0, got.Value())

	// xᵀ·A·y with A = [[1 2 3] [4 5 6]], x = [1 1], y = [1 0 -1].
	got, err = Bilinear(tensors.FromValue([]float64{1, 1}), a, tensors.FromValue([]float64{1, 0, -1}))
	require.NoError(t, err)
	assert.Equal(t, -4.0, got.Value())

	got, err = Gram(a)
	require.NoError(t, err)
	var want mat.Dense
	dense := mat.NewDense(2, 3, tensors.MustCopyFlatData[float64](a))
	want.Mul(dense, dense.T())
	assert.Equal(t, want.RawMatrix().Data, tensors.MustCopyFlatData[float64](got))
}

func TestReductions(t *testing.T) {
	x := tensors.FromValue([][][]int32{{{1, 2}, {3, 4}, {5, 6}}, {{7, 8}, {9, 10}, {11, 12}}})

	got, err := Sum(x)
	require.NoError(t, err)
	assert.Equal(t, int32(78), got.Value())

	got, err = SumAxis(x, 1)
	require.NoError(t, err)
	assert.Equal(t, [][]int32{{9, 12}, {27, 30}}, got.Value())
	got, err = SumAxis(x, -1)
	require.NoError(t, err)
	assert.Equal(t, [][]int32{{3, 7, 11}, {15, 19, 23}}, got.Value())

	got, err = Contract(x, 0, 2)
	require.NoError(t, err)
	assert.Equal(t, []int32{18, 26, 34}, got.Value())
	got, err = Contract(x, 0, 1, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, int32(78), got.Value())
	got, err = Contract(x)
	require.NoError(t, err)
	assert.True(t, got.Equal(x))
	assert.NotSame(t, x, got)

	m := tensors.FromValue([][]float64{{1, 2}, {3, 4}})
	got, err = Trace(m)
	require.NoError(t, err)
	assert.Equal(t, 5.0, got.Value())
	got, err = Diag(m)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 4}, got.Value())
	got, err = DiagMatrix(tensors.FromValue([]float64{1, 2}))
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{1, 0}, {0, 2}}, got.Value())

	// Diag of DiagMatrix is the identity on vectors.
	v := tensors.FromValue([]float64{3, -1, 7})
	d, err := DiagMatrix(v)
	require.NoError(t, err)
	got, err = Diag(d)
	require.NoError(t, err)
	assert.True(t, got.Equal(v))
}

func TestTranspose(t *testing.T) {
	m := tensors.FromValue([][]float64{{1, 2, 3}, {4, 5, 6}})
	got, err := Transpose(m)
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{1, 4}, {2, 5}, {3, 6}}, got.Value())

	x := tensors.Zeros[float32](2, 3, 4)
	got, err = Transpose(x, 1, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 4, 2}, got.Shape().Dimensions)
	got, err = Transpose(x, -1, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, []int{4, 2, 3}, got.Shape().Dimensions)

	// Transposing twice with the reversed order is the identity.
	twice, err := Transpose(must.M1(Transpose(m)))
	require.NoError(t, err)
	assert.True(t, twice.Equal(m))

	got, err = Transpose(tensors.FromScalar(1.0))
	require.NoError(t, err)
	assert.Equal(t, 1.0, got.Value())
}

func TestMathOps(t *testing.T) {
	x := tensors.FromValue([]float64{1, 4, 9})
	got, err := Sqrt(x)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3}, got.Value())

	got, err = Exp(tensors.FromValue([]float32{0, 1}))
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float32{1, float32(math.E)}, got.Value(), 1e-6)

	got, err = Log(tensors.FromValue([]float64{1, math.E}))
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0, 1}, got.Value(), 1e-12)

	got, err = Sin(tensors.FromValue([]float64{0, math.Pi / 2}))
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0, 1}, got.Value(), 1e-12)

	got, err = Cos(tensors.FromFlatDataAndDimensions(tensors.Float32ToFloat16([]float32{0}), 1))
	require.NoError(t, err)
	require.Equal(t, dtypes.Float16, got.DType())
	asFloat32, err := tensors.ConvertDType(got, dtypes.Float32)
	require.NoError(t, err)
	assert.Equal(t, []float32{1}, asFloat32.Value())

	data := tensors.FromValue([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	mean, err := Mean(data)
	require.NoError(t, err)
	assert.Equal(t, 5.0, mean)
	variance, err := Var(data)
	require.NoError(t, err)
	assert.InDelta(t, 4.0, variance, 1e-12)
	stddev, err := Stddev(data)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, stddev, 1e-12)

	norm, err := Norm(tensors.FromValue([]float64{3, 4}))
	require.NoError(t, err)
	assert.Equal(t, 5.0, norm)
	norm, err = FrobeniusNorm(tensors.FromValue([][]float64{{1, 2}, {2, 4}}))
	require.NoError(t, err)
	assert.Equal(t, 5.0, norm)
}

func TestInvalidArguments(t *testing.T) {
	vector := tensors.FromValue([]float64{1, 2})
	matrix := tensors.FromValue([][]float64{{1, 2, 3}, {4, 5, 6}})
	ints := tensors.FromValue([]int32{1, 2})
	testCases := []struct {
		name string
		fn   func() error
	}{
		{"MatMul rank", func() error { _, err := MatMul(vector, matrix); return err }},
		{"MatMul dims", func() error { _, err := MatMul(matrix, matrix); return err }},
		{"Dot rank", func() error { _, err := Dot(matrix, vector); return err }},
		{"Dot dims", func() error { _, err := Dot(vector, tensors.FromValue([]float64{1, 2, 3})); return err }},
		{"Outer rank", func() error { _, err := Outer(vector, matrix); return err }},
		{"Hadamard shapes", func() error { _, err := Hadamard(vector, matrix); return err }},
		{"Bilinear ranks", func() error { _, err := Bilinear(matrix, matrix, vector); return err }},
		{"Bilinear dims", func() error { _, err := Bilinear(vector, matrix, vector); return err }},
		{"Gram rank", func() error { _, err := Gram(vector); return err }},
		{"Contract axis", func() error { _, err := Contract(matrix, 2); return err }},
		{"SumAxis axis", func() error { _, err := SumAxis(matrix, -3); return err }},
		{"Trace square", func() error { _, err := Trace(matrix); return err }},
		{"Diag square", func() error { _, err := Diag(matrix); return err }},
		{"DiagMatrix rank", func() error { _, err := DiagMatrix(matrix); return err }},
		{"Transpose length", func() error { _, err := Transpose(matrix, 0); return err }},
		{"Transpose repeated", func() error { _, err := Transpose(matrix, 1, 1); return err }},
		{"Transpose range", func() error { _, err := Transpose(matrix, 0, 2); return err }},
		{"Exp ints", func() error { _, err := Exp(ints); return err }},
		{"Mean ints", func() error { _, err := Mean(ints); return err }},
		{"Mean empty", func() error { _, err := Mean(tensors.Zeros[float64](0)); return err }},
		{"Norm rank", func() error { _, err := Norm(matrix); return err }},
		{"FrobeniusNorm rank", func() error { _, err := FrobeniusNorm(vector); return err }},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.ErrorIs(t, tc.fn(), ErrInvalidArgument)
		})
	}

	_, err := MatMul(nil, matrix)
	require.Error(t, err)

	highRank := make([]int, MaxRank+1)
	for ii := range highRank {
		highRank[ii] = 1
	}
	_, err = Sum(tensors.Zeros[float64](highRank...))
	require.NoError(t, err, "Sum uses an ellipsis, not one label per axis")
	_, err = SumAxis(tensors.Zeros[float64](highRank...), 0)
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestAxesLabels(t *testing.T) {
	labels, err := axesLabels("test", 3)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(labels))
	labels, err = axesLabels("test", MaxRank)
	require.NoError(t, err)
	assert.Equal(t, byte('Z'), labels[MaxRank-1])
	_, err = axesLabels("test", MaxRank+1)
	require.ErrorIs(t, err, ErrInvalidArgument)
}
