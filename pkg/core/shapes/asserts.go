// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package shapes

import (
	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
	"github.com/tensorn/tensorn/pkg/core/dtypes"
)

// UncheckedAxis can be used in CheckDims or AssertDims functions for an axis
// whose dimension doesn't matter.
const UncheckedAxis = int(-1)

// HasShape is an interface for objects that have an associated Shape.
// Shape itself and tensors.Tensor implement it.
type HasShape interface {
	Shape() Shape
}

// Shape returns itself, so Shape implements HasShape.
func (s Shape) Shape() Shape { return s }

// CheckDims checks that the shape has the given dimensions and rank. A value of -1 in
// dimensions means it can take any value and is not checked.
func (s Shape) CheckDims(dimensions ...int) error {
	if s.Rank() != len(dimensions) {
		return errors.Errorf("shape %s has incompatible rank %d (wanted %d)", s, s.Rank(), len(dimensions))
	}
	for ii, wantDim := range dimensions {
		if wantDim != UncheckedAxis && s.Dimensions[ii] != wantDim {
			return errors.Errorf("shape %s axis %d has dimension %d, wanted %d (shape wanted=%v)", s, ii, s.Dimensions[ii], wantDim, dimensions)
		}
	}
	return nil
}

// Check that the shape has the given dtype, dimensions and rank. A value of -1 in
// dimensions means it can take any value and is not checked.
func (s Shape) Check(dtype dtypes.DType, dimensions ...int) error {
	if dtype != s.DType {
		return errors.Errorf("shape %s has incompatible dtype %s (wanted %s)", s, s.DType, dtype)
	}
	return s.CheckDims(dimensions...)
}

// Assert is like Check, but panics if it doesn't match.
func (s Shape) Assert(dtype dtypes.DType, dimensions ...int) {
	if err := s.Check(dtype, dimensions...); err != nil {
		exceptions.Panicf("shapes.Assert(%s, %v): %+v", dtype, dimensions, err)
	}
}

// CheckRank checks that the shape has the given rank.
func (s Shape) CheckRank(rank int) error {
	if s.Rank() != rank {
		return errors.Errorf("shape %s has incompatible rank %d -- wanted %d", s, s.Rank(), rank)
	}
	return nil
}

// CheckRank checks that shaped has the given rank.
func CheckRank(shaped HasShape, rank int) error {
	return shaped.Shape().CheckRank(rank)
}

// CheckScalar checks that the shape is a scalar.
func (s Shape) CheckScalar() error {
	if !s.IsScalar() {
		return errors.Errorf("shape %s is not a scalar", s)
	}
	return nil
}

// CheckSquare checks that the shape is a square matrix.
func (s Shape) CheckSquare() error {
	if err := s.CheckRank(2); err != nil {
		return err
	}
	if s.Dimensions[0] != s.Dimensions[1] {
		return errors.Errorf("shape %s is not a square matrix", s)
	}
	return nil
}
