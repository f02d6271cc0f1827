// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package shapes defines Shape and related constants and functions.
//
// A Shape is the DType of the elements and the dimensions of each axis of a dense
// multidimensional array. A scalar has no dimensions (rank 0) and holds exactly one element.
// Axes of dimension 0 are allowed: such shapes hold no elements at all.
//
// Shapes are usually created with Make, e.g.:
//
//	s := shapes.Make(dtypes.Float32, 2, 3) // A 2x3 matrix of float32.
package shapes

import (
	"encoding/gob"
	"fmt"
	"slices"

	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
	"github.com/tensorn/tensorn/pkg/core/dtypes"
)

// Shape represents the shape of a tensor: its element type and the dimensions of its axes.
//
// Use Make to create a new shape. The zero value is an invalid shape.
type Shape struct {
	DType      dtypes.DType
	Dimensions []int
}

// Make returns a Shape structure filled with the values given.
// It panics if any dimension is negative.
func Make(dtype dtypes.DType, dimensions ...int) Shape {
	s := Shape{Dimensions: slices.Clone(dimensions), DType: dtype}
	for _, dim := range dimensions {
		if dim < 0 {
			exceptions.Panicf("shapes.Make(%s): cannot create a shape with an axis with negative dimension", s)
		}
	}
	return s
}

// MakeE is like Make, but returns an error instead of panicking.
func MakeE(dtype dtypes.DType, dimensions ...int) (Shape, error) {
	for axis, dim := range dimensions {
		if dim < 0 {
			return Invalid(), errors.Errorf("invalid dimensions %v for dtype %s: axis #%d has negative dimension", dimensions, dtype, axis)
		}
	}
	if !dtype.Ok() {
		return Invalid(), errors.Errorf("invalid dtype %s", dtype)
	}
	return Shape{Dimensions: slices.Clone(dimensions), DType: dtype}, nil
}

// Scalar returns a scalar Shape for the given type.
func Scalar[T dtypes.Supported]() Shape {
	return Shape{DType: dtypes.FromGenericsType[T]()}
}

// Invalid returns an invalid shape.
//
// Invalid().Ok() == false.
func Invalid() Shape {
	return Shape{DType: dtypes.InvalidDType}
}

// Ok returns whether this is a valid Shape.
func (s Shape) Ok() bool { return s.DType != dtypes.InvalidDType }

// Rank of the shape, that is, the number of axes.
func (s Shape) Rank() int { return len(s.Dimensions) }

// IsScalar returns whether the shape represents a scalar, that is there are no dimensions (rank==0).
func (s Shape) IsScalar() bool { return s.Ok() && s.Rank() == 0 }

// IsZeroSize returns whether any of the axes has dimension 0, in which case the shape holds no elements.
func (s Shape) IsZeroSize() bool {
	return slices.Contains(s.Dimensions, 0)
}

// Dim returns the dimension of the given axis. axis can take negative numbers, in which
// case it counts as starting from the end -- so axis=-1 refers to the last axis.
// Like with a slice indexing, it panics for an out-of-bound axis.
func (s Shape) Dim(axis int) int {
	adjustedAxis := axis
	if adjustedAxis < 0 {
		adjustedAxis += s.Rank()
	}
	if adjustedAxis < 0 || adjustedAxis >= s.Rank() {
		exceptions.Panicf("Shape.Dim(%d) out-of-bounds for rank %d (shape=%s)", axis, s.Rank(), s)
	}
	return s.Dimensions[adjustedAxis]
}

// String implements stringer, pretty-prints the shape.
func (s Shape) String() string {
	if s.Rank() == 0 {
		return fmt.Sprintf("(%s)", s.DType)
	}
	return fmt.Sprintf("(%s)%v", s.DType, s.Dimensions)
}

// Size returns the number of elements of DType are needed for this shape. It's the product of all dimensions.
// A scalar has size 1, and a shape with any zero dimension has size 0.
func (s Shape) Size() (size int) {
	size = 1
	for _, d := range s.Dimensions {
		size *= d
	}
	return
}

// Memory returns the number of bytes for that would be used to store the elements of the shape.
func (s Shape) Memory() uintptr {
	return s.DType.Memory() * uintptr(s.Size())
}

// Equal compares two shapes for equality: dtype and dimensions are compared.
func (s Shape) Equal(s2 Shape) bool {
	if s.DType != s2.DType {
		return false
	}
	return s.EqualDimensions(s2)
}

// EqualDimensions compares two shapes for equality of dimensions. Dtypes can be different.
func (s Shape) EqualDimensions(s2 Shape) bool {
	if s.Rank() != s2.Rank() {
		return false
	}
	return slices.Equal(s.Dimensions, s2.Dimensions)
}

// Clone returns a new deep copy of the shape.
func (s Shape) Clone() (s2 Shape) {
	s2.DType = s.DType
	s2.Dimensions = slices.Clone(s.Dimensions)
	return
}

// GobSerialize shape in binary format.
func (s Shape) GobSerialize(encoder *gob.Encoder) (err error) {
	enc := func(e any) {
		if err != nil {
			return
		}
		err = encoder.Encode(e)
		if err != nil {
			err = errors.Wrapf(err, "failed to serialize Shape %s", s)
		}
	}
	enc(s.DType)
	enc(len(s.Dimensions))
	for _, dim := range s.Dimensions {
		enc(dim)
	}
	return
}

// GobDeserialize a Shape. Returns new Shape or an error.
func GobDeserialize(decoder *gob.Decoder) (s Shape, err error) {
	dec := func(data any) {
		if err != nil {
			return
		}
		err = decoder.Decode(data)
		if err != nil {
			err = errors.Wrapf(err, "failed to deserialize Shape")
		}
	}
	var rank int
	dec(&s.DType)
	dec(&rank)
	if err != nil {
		return
	}
	if rank < 0 {
		err = errors.Errorf("failed to deserialize Shape: invalid rank %d", rank)
		return
	}
	s.Dimensions = make([]int, rank)
	for axis := range s.Dimensions {
		dec(&s.Dimensions[axis])
	}
	if err != nil {
		return
	}
	if !s.DType.Ok() {
		err = errors.Errorf("failed to deserialize Shape: invalid dtype %d", int32(s.DType))
	}
	return
}
