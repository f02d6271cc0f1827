// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package einsum

// ComputeStrides returns the row-major strides for the given dimensions: the last axis has stride 1.
// It returns an empty slice for a scalar (no dimensions).
func ComputeStrides(dimensions []int) []int {
	strides := make([]int, len(dimensions))
	stride := 1
	for axis := len(dimensions) - 1; axis >= 0; axis-- {
		strides[axis] = stride
		stride *= dimensions[axis]
	}
	return strides
}

// ComputeOffset returns the flat offset of indices, given the strides: their dot product.
func ComputeOffset(indices, strides []int) int {
	offset := 0
	for axis, idx := range indices {
		offset += idx * strides[axis]
	}
	return offset
}

// Increment advances indices to the next combination in row-major order (last axis fastest), bounded by limits.
// It returns false when the combinations are exhausted, in which case indices is reset to all zeros.
func Increment(indices, limits []int) bool {
	for axis := len(indices) - 1; axis >= 0; axis-- {
		indices[axis]++
		if indices[axis] < limits[axis] {
			return true
		}
		indices[axis] = 0
	}
	return false
}

// unravel sets indices to the multi-dimensional position of the row-major flat index.
func unravel(flatIdx int, limits, indices []int) {
	for axis := len(limits) - 1; axis >= 0; axis-- {
		if limits[axis] == 0 {
			indices[axis] = 0
			continue
		}
		indices[axis] = flatIdx % limits[axis]
		flatIdx /= limits[axis]
	}
}
