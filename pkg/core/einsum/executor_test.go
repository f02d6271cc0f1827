// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package einsum

import (
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tensorn/tensorn/pkg/core/dtypes"
	"github.com/tensorn/tensorn/pkg/core/shapes"
	"github.com/tensorn/tensorn/pkg/core/tensors"
)

func TestParallelIsBitIdentical(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 7))
	testCases := []struct {
		equation string
		dims     [][]int
	}{
		{"ij,jk->ik", [][]int{{33, 17}, {17, 29}}},
		{"bij,bjk->bik", [][]int{{5, 8, 7}, {5, 7, 9}}},
		{"ijk->k", [][]int{{11, 13, 3}}},
		{"i,j->ij", [][]int{{40}, {41}}},
		{"ij->", [][]int{{20, 20}}},
	}
	for _, tc := range testCases {
		operands := make([]*tensors.Tensor, len(tc.dims))
		for ii, dims := range tc.dims {
			operands[ii] = randomTensor(rng, dims...)
		}
		sequential, err := Einsum(tc.equation, operands...)
		require.NoError(t, err)
		for _, workers := range []int{2, 4, 7, -1} {
			parallel, err := EinsumWithOptions(tc.equation, []Option{WithWorkers(workers), WithMinWorkSize(1)}, operands...)
			require.NoError(t, err)
			assert.True(t, sequential.Equal(parallel), "%q with %d workers", tc.equation, workers)
		}
	}
}

func TestProgress(t *testing.T) {
	rng := rand.New(rand.NewPCG(8, 8))
	a, b := randomTensor(rng, 100, 10), randomTensor(rng, 10, 50)
	for _, workers := range []int{1, 4} {
		var mu sync.Mutex
		var calls [][2]int64
		progress := func(done, total int64) {
			mu.Lock()
			defer mu.Unlock()
			calls = append(calls, [2]int64{done, total})
		}
		_, err := EinsumWithOptions("ij,jk->ik", []Option{WithWorkers(workers), WithMinWorkSize(1), WithProgress(progress)}, a, b)
		require.NoError(t, err)
		require.NotEmpty(t, calls)
		assert.LessOrEqual(t, len(calls), progressCheckpoints+1)
		for ii, call := range calls {
			assert.Equal(t, int64(5000), call[1])
			if ii > 0 {
				assert.Greater(t, call[0], calls[ii-1][0], "progress must increase")
			}
		}
		assert.Equal(t, int64(5000), calls[len(calls)-1][0], "workers=%d", workers)
	}

	// Contractions with nothing to compute still report completion.
	var last [2]int64
	_, err := EinsumWithOptions("ij->i", []Option{WithProgress(func(done, total int64) { last = [2]int64{done, total} })},
		tensors.Zeros[float64](3, 0))
	require.NoError(t, err)
	assert.Equal(t, [2]int64{3, 3}, last)
}

func TestContract(t *testing.T) {
	p, err := NewPlan("i,i->", shapes.Make(dtypes.Int64, 3), shapes.Make(dtypes.Int64, 3))
	require.NoError(t, err)
	got, err := Contract(p, [][]int64{{1, 2, 3}, {4, 5, 6}})
	require.NoError(t, err)
	assert.Equal(t, []int64{32}, got)

	_, err = Contract(p, [][]int64{{1, 2, 3}})
	require.ErrorIs(t, err, ErrOperandCountMismatch)
	_, err = Contract(p, [][]int64{{1, 2, 3}, {4, 5}})
	require.Error(t, err)
}

func TestParallelConfig(t *testing.T) {
	p, err := NewPlan("ij,jk->ik", shapes.Make(dtypes.Float32, 10, 100), shapes.Make(dtypes.Float32, 100, 10))
	require.NoError(t, err)
	assert.Equal(t, 1, newConfig(nil).parallelConfig(p).NumWorkers)
	cfg := newConfig([]Option{WithWorkers(4), WithMinWorkSize(1000)})
	pc := cfg.parallelConfig(p)
	assert.Equal(t, 4, pc.NumWorkers)
	// 100 multiply-adds per output element: at least 10 elements per worker.
	assert.Equal(t, 10, pc.MinChunkSize)
}
