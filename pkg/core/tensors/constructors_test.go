// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package tensors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tensorn/tensorn/pkg/core/dtypes"
	"github.com/tensorn/tensorn/pkg/core/dtypes/bfloat16"
	"github.com/x448/float16"
)

func TestFactories(t *testing.T) {
	assert.Equal(t, [][]float32{{0, 0}, {0, 0}}, Zeros[float32](2, 2).Value())
	assert.Equal(t, []int32{1, 1, 1}, Ones[int32](3).Value())
	assert.Equal(t, []complex64{1, 1}, Ones[complex64](2).Value())
	assert.Equal(t, []float16.Float16{float16.Fromfloat32(1)}, Ones[float16.Float16](1).Value())
	assert.Equal(t, [][]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}, Eye[float64](3).Value())
	assert.Equal(t, []bfloat16.BFloat16{bfloat16.FromFloat32(1)}, Eye[bfloat16.BFloat16](1).Value().([][]bfloat16.BFloat16)[0])
	assert.Equal(t, dtypes.Float64, Eye[float64](0).DType())
}

func TestArange(t *testing.T) {
	r, err := Arange[int32](0, 5, 1)
	require.NoError(t, err)
	assert.Equal(t, []int32{0, 1, 2, 3, 4}, r.Value())

	r, err = Arange(0.0, 1.0, 0.25)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0.25, 0.5, 0.75}, r.Value())

	r, err = Arange[int64](5, 0, -2)
	require.NoError(t, err)
	assert.Equal(t, []int64{5, 3, 1}, r.Value())

	r, err = Arange[int64](3, 3, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, r.Size())

	_, err = Arange[int64](0, 3, 0)
	require.Error(t, err)
}

func TestReshape(t *testing.T) {
	r, err := Arange[float32](0, 6, 1)
	require.NoError(t, err)
	m, err := Reshape(r, 2, 3)
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{0, 1, 2}, {3, 4, 5}}, m.Value())
	_, err = Reshape(r, 4, 2)
	require.Error(t, err)
	_, err = Reshape(r, -1, 6)
	require.Error(t, err)
}

func TestConvertDType(t *testing.T) {
	a := FromValue([][]float64{{1.5, -2}, {0, 3}})
	b, err := ConvertDType(a, dtypes.Int32)
	require.NoError(t, err)
	assert.Equal(t, [][]int32{{1, -2}, {0, 3}}, b.Value())

	c, err := ConvertDType(a, dtypes.Float16)
	require.NoError(t, err)
	assert.Equal(t, dtypes.Float16, c.DType())
	back, err := ConvertDType(c, dtypes.Float64)
	require.NoError(t, err)
	assert.True(t, a.InDelta(back, 1e-3))

	same, err := ConvertDType(a, dtypes.Float64)
	require.NoError(t, err)
	assert.True(t, a.Equal(same))

	_, err = ConvertDType(a, dtypes.InvalidDType)
	require.Error(t, err)
}

func TestDiagMatrix(t *testing.T) {
	d, err := DiagMatrix(FromValue([]int64{1, 2, 3}))
	require.NoError(t, err)
	assert.Equal(t, [][]int64{{1, 0, 0}, {0, 2, 0}, {0, 0, 3}}, d.Value())
	_, err = DiagMatrix(FromValue([][]int64{{1}}))
	require.Error(t, err)
}
