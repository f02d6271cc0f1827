// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package tensors

import (
	"github.com/pkg/errors"
	"github.com/tensorn/tensorn/pkg/core/dtypes"
)

var (
	// ErrIndexOutOfRange is returned when an index is beyond an axis dimension.
	ErrIndexOutOfRange = errors.New("index out of range")

	// ErrWrongNumberOfIndices is returned when the number of indices doesn't match the rank.
	ErrWrongNumberOfIndices = errors.New("number of indices must match the tensor rank")
)

// FlatIndex returns the position in the flat data for the given indices, one per axis.
func (t *Tensor) FlatIndex(indices ...int) (int, error) {
	dims := t.shape.Dimensions
	if len(indices) != len(dims) {
		return 0, errors.Wrapf(ErrWrongNumberOfIndices, "%d indices given for shape %s", len(indices), t.shape)
	}
	flatIdx, stride := 0, 1
	for axis := len(dims) - 1; axis >= 0; axis-- {
		if indices[axis] < 0 || indices[axis] >= dims[axis] {
			return 0, errors.Wrapf(ErrIndexOutOfRange, "indices %v for shape %s (axis %d)", indices, t.shape, axis)
		}
		flatIdx += indices[axis] * stride
		stride *= dims[axis]
	}
	return flatIdx, nil
}

// At returns the element at the given indices.
func At[T dtypes.Supported](t *Tensor, indices ...int) (value T, err error) {
	flatIdx, err := t.FlatIndex(indices...)
	if err != nil {
		return
	}
	err = ConstFlatData(t, func(flat []T) {
		value = flat[flatIdx]
	})
	return
}

// SetAt sets the element at the given indices.
func SetAt[T dtypes.Supported](t *Tensor, value T, indices ...int) error {
	flatIdx, err := t.FlatIndex(indices...)
	if err != nil {
		return err
	}
	return MutableFlatData(t, func(flat []T) {
		flat[flatIdx] = value
	})
}
