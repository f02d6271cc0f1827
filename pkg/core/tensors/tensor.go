// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package tensors implement a `Tensor`, a representation of a dense multidimensional array.
//
// Tensors are multidimensional arrays (from scalar with 0 dimensions, to arbitrarily large dimensions), defined
// by their shape (a data type and its axes' dimensions) and their actual content, stored as a flat
// Go slice of the dtype in row-major order (the last axis varies fastest).
//
// There are various ways to construct a Tensor:
//
//   - FromShape(shape shapes.Shape): creates a tensor with the given shape, and zero values.
//
//   - FromScalarAndDimensions[T dtypes.Supported](value T, dimensions ...int): creates a Tensor with the
//     given dimensions, filled with the scalar value given.
//
//   - FromFlatDataAndDimensions[T dtypes.Supported](data []T, dimensions ...int): creates a Tensor with the
//     given dimensions and set the flattened values with the given data. Example:
//
//     t := FromFlatDataAndDimensions([]int8{1, 2, 3, 4}, 2, 2}) // Tensor with [[1,2], [3,4]]
//
//   - FromValue[S MultiDimensionSlice](value S): Generic conversion works with the scalar supported `DType`s
//     as well as with any arbitrary multidimensional slice of them. Slices of rank > 1 must be regular, that is
//     all the sub-slices must have the same shape. Example:
//
//     t := FromValue([][]float{{1,2}, {3, 5}, {7, 11}})`
//
//   - Zeros, Ones, Eye and Arange for the usual factory tensors.
//
// A Tensor exclusively owns its data: Clone makes a deep copy, while passing the *Tensor around moves it.
// Access to the data is done through ConstFlatData and MutableFlatData, which lock the tensor during the call,
// so concurrent readers of the same tensor are safe.
package tensors

import (
	"sync"

	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
	"github.com/tensorn/tensorn/pkg/core/dtypes"
	"github.com/tensorn/tensorn/pkg/core/shapes"
)

// Tensor represents a multidimensional array (from scalar with 0 dimensions, to arbitrarily large dimensions), defined
// by their shape, a data type (dtypes.DType) and its axes' dimensions, and their actual content stored as a flat (1D)
// array of values.
//
// Invariant: Size() == len(flat).
type Tensor struct {
	// shape of the tensor, immutable.
	shape shapes.Shape

	// mu protects flat, but not the shape.
	mu sync.RWMutex

	// flat holds the slice with actual data, a []T for the Go type T of the dtype.
	// It is nil after the tensor is finalized.
	flat any
}

// newTensor creates a tensor that takes ownership of flat, which must be a slice of the right dtype and size.
func newTensor(shape shapes.Shape, flat any) *Tensor {
	return &Tensor{shape: shape, flat: flat}
}

// Shape of the tensor, includes DType.
func (t *Tensor) Shape() shapes.Shape { return t.shape }

// DType returns the DType of the tensor's shape.
// It is a shortcut to `Tensor.Shape().DType`.
func (t *Tensor) DType() dtypes.DType {
	if t == nil {
		return dtypes.InvalidDType
	}
	return t.shape.DType
}

// Rank returns the rank of the tensor's shape.
func (t *Tensor) Rank() int { return t.shape.Rank() }

// IsScalar returns whether the tensor represents a scalar value.
func (t *Tensor) IsScalar() bool { return t.shape.IsScalar() }

// Size returns the number of elements in the tensor.
func (t *Tensor) Size() int { return t.shape.Size() }

// Memory returns the number of bytes used to store the tensor. An alias to Tensor.Shape().Memory().
func (t *Tensor) Memory() uintptr { return t.shape.Memory() }

// IsIsomorphic returns whether both tensors have the same dimensions. DTypes are not compared.
func (t *Tensor) IsIsomorphic(other *Tensor) bool {
	return t.shape.EqualDimensions(other.shape)
}

// Ok returns whether the Tensor is in a valid state: it is not nil, and it hasn't been finalized.
func (t *Tensor) Ok() bool {
	if t == nil || !t.shape.Ok() {
		return false
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.flat != nil
}

// CheckValid returns an error if the Tensor is nil, or it has been finalized.
func (t *Tensor) CheckValid() error {
	if t == nil {
		return errors.New("Tensor is nil")
	}
	if !t.shape.Ok() {
		return errors.Errorf("Tensor has invalid shape %s", t.shape)
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.flat == nil {
		return errors.New("Tensor has already been finalized")
	}
	return nil
}

// AssertValid panics if the tensor is nil or was finalized.
func (t *Tensor) AssertValid() {
	if err := t.CheckValid(); err != nil {
		exceptions.Panicf("tensors.AssertValid() failed: %v", err)
	}
}

// FinalizeAll immediately frees the data of all given tensors. Nil or already finalized tensors are ignored.
// It's not required, but it helps the garbage collector with large tensors that won't be used again.
func FinalizeAll(tensors ...*Tensor) {
	for _, t := range tensors {
		t.Finalize()
	}
}

// Finalize immediately frees the data of the tensor. The tensor becomes invalid.
func (t *Tensor) Finalize() {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.flat = nil
}
