// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package shapes

import (
	"bytes"
	"encoding/gob"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tensorn/tensorn/pkg/core/dtypes"
	"github.com/tensorn/tensorn/pkg/core/dtypes/bfloat16"
	"github.com/x448/float16"
)

func TestShape(t *testing.T) {
	invalidShape := Invalid()
	require.False(t, invalidShape.Ok())

	shape0 := Make(dtypes.Float64)
	require.True(t, shape0.Ok())
	require.True(t, shape0.IsScalar())
	require.Equal(t, 0, shape0.Rank())
	require.Len(t, shape0.Dimensions, 0)
	require.Equal(t, 1, shape0.Size())
	require.Equal(t, 8, int(shape0.Memory()))
	require.Equal(t, "(Float64)", shape0.String())

	shape1 := Make(dtypes.Float32, 4, 3, 2)
	require.True(t, shape1.Ok())
	require.False(t, shape1.IsScalar())
	require.Equal(t, 3, shape1.Rank())
	require.Equal(t, 4*3*2, shape1.Size())
	require.Equal(t, 4*4*3*2, int(shape1.Memory()))
	require.Equal(t, "(Float32)[4 3 2]", shape1.String())
}

func TestZeroSize(t *testing.T) {
	s := Make(dtypes.Int32, 3, 0, 2)
	require.True(t, s.IsZeroSize())
	require.Equal(t, 0, s.Size())
	require.Equal(t, []int{0, 0, 0}, s.Strides())
	count := 0
	for range s.Iter() {
		count++
	}
	require.Zero(t, count)

	require.Panics(t, func() { _ = Make(dtypes.Int32, 3, -1) })
	_, err := MakeE(dtypes.Int32, -2)
	require.Error(t, err)
	_, err = MakeE(dtypes.InvalidDType, 2)
	require.Error(t, err)
}

func TestDim(t *testing.T) {
	shape := Make(dtypes.Float32, 4, 3, 2)
	require.Equal(t, 4, shape.Dim(0))
	require.Equal(t, 3, shape.Dim(1))
	require.Equal(t, 2, shape.Dim(2))
	require.Equal(t, 4, shape.Dim(-3))
	require.Equal(t, 3, shape.Dim(-2))
	require.Equal(t, 2, shape.Dim(-1))
	require.Panics(t, func() { _ = shape.Dim(3) })
	require.Panics(t, func() { _ = shape.Dim(-4) })
}

func TestEqual(t *testing.T) {
	a := Make(dtypes.Float32, 2, 3)
	b := a.Clone()
	b.Dimensions[0] = 2
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(Make(dtypes.Float64, 2, 3)))
	assert.True(t, a.EqualDimensions(Make(dtypes.Float64, 2, 3)))
	assert.False(t, a.Equal(Make(dtypes.Float32, 3, 2)))
	assert.True(t, Make(dtypes.Int8).Equal(Scalar[int8]()))
}

func TestChecks(t *testing.T) {
	s := Make(dtypes.Float32, 3, 3)
	require.NoError(t, s.CheckDims(3, UncheckedAxis))
	require.Error(t, s.CheckDims(3, 4))
	require.Error(t, s.Check(dtypes.Float64, 3, 3))
	require.NoError(t, CheckRank(s, 2))
	require.Error(t, s.CheckScalar())
	require.NoError(t, s.CheckSquare())
	require.Error(t, Make(dtypes.Float32, 2, 3).CheckSquare())
	require.Panics(t, func() { s.Assert(dtypes.Int32, 3, 3) })
}

func TestGob(t *testing.T) {
	for _, s := range []Shape{Make(dtypes.Float32, 2, 0, 3), Make(dtypes.Complex128)} {
		buf := &bytes.Buffer{}
		require.NoError(t, s.GobSerialize(gob.NewEncoder(buf)))
		got, err := GobDeserialize(gob.NewDecoder(buf))
		require.NoError(t, err)
		require.Truef(t, s.Equal(got), "want %s, got %s", s, got)
	}
}

func TestCastAsDType(t *testing.T) {
	value := [][]int{{1, 2}, {3, 4}, {5, 6}}
	require.Equal(t, [][]float32{{1, 2}, {3, 4}, {5, 6}}, CastAsDType(value, dtypes.Float32))
	require.Equal(t, [][]complex64{{1, 2}, {3, 4}, {5, 6}}, CastAsDType(value, dtypes.Complex64))
	require.Equal(t, []bool{false, true}, CastAsDType([]float64{0, 0.5}, dtypes.Bool))
	require.Equal(t, []float64{1, 0}, CastAsDType([]bool{true, false}, dtypes.Float64))
	require.Equal(t, float64(3), CastAsDType(complex128(3+2i), dtypes.Float64))

	for _, v := range []float64{math.Inf(-1), -1, 0, 2, math.Inf(1)} {
		vAny := CastAsDType(v, dtypes.BF16)
		_, ok := vAny.(bfloat16.BFloat16)
		require.Truef(t, ok, "CastAsDType(float64(%g), BF16) returned %T", v, vAny)
		vAny = CastAsDType(float32(v), dtypes.F16)
		_, ok = vAny.(float16.Float16)
		require.Truef(t, ok, "CastAsDType(float32(%g), F16) returned %T", v, vAny)
	}
	require.Equal(t, float32(2), CastAsDType(float16.Fromfloat32(2), dtypes.Float32))
}
