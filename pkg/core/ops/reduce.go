// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package ops

import (
	"slices"

	"github.com/pkg/errors"
	"github.com/tensorn/tensorn/pkg/core/einsum"
	"github.com/tensorn/tensorn/pkg/core/tensors"
	"github.com/tensorn/tensorn/pkg/support/sets"
	"github.com/tensorn/tensorn/pkg/support/xslices"
)

// Contract sums t over the given axes, keeping the remaining ones in order.
// Negative axes count from the end, and repeated axes are summed only once.
// Without any axes it returns a copy of t.
func Contract(t *tensors.Tensor, axes ...int) (*tensors.Tensor, error) {
	const op = "Contract"
	if err := checkValid(op, t); err != nil {
		return nil, err
	}
	if len(axes) == 0 {
		return t.Clone()
	}
	summed := sets.Make[int](len(axes))
	for _, axis := range axes {
		adjusted, err := adjustAxis(op, axis, t.Rank())
		if err != nil {
			return nil, err
		}
		summed.Insert(adjusted)
	}
	return sumAxes(op, t, summed)
}

// SumAxis sums t over one axis. A negative axis counts from the end.
func SumAxis(t *tensors.Tensor, axis int) (*tensors.Tensor, error) {
	const op = "SumAxis"
	if err := checkValid(op, t); err != nil {
		return nil, err
	}
	adjusted, err := adjustAxis(op, axis, t.Rank())
	if err != nil {
		return nil, err
	}
	return sumAxes(op, t, sets.MakeWith(adjusted))
}

// sumAxes builds the equation that drops the summed axes from the output.
func sumAxes(op string, t *tensors.Tensor, summed sets.Set[int]) (*tensors.Tensor, error) {
	labels, err := axesLabels(op, t.Rank())
	if err != nil {
		return nil, err
	}
	output := make([]byte, 0, len(labels))
	for axis, label := range labels {
		if !summed.Has(axis) {
			output = append(output, label)
		}
	}
	return einsum.Einsum(string(labels)+"->"+string(output), t)
}

// Trace returns the sum of the diagonal of the square matrix A, as a scalar tensor.
func Trace(A *tensors.Tensor) (*tensors.Tensor, error) {
	const op = "Trace"
	if err := checkValid(op, A); err != nil {
		return nil, err
	}
	if err := checkSquare(op, A); err != nil {
		return nil, err
	}
	return einsum.Einsum("ii->", A)
}

// Sum returns the sum of all elements of t, as a scalar tensor.
func Sum(t *tensors.Tensor) (*tensors.Tensor, error) {
	if err := checkValid("Sum", t); err != nil {
		return nil, err
	}
	return einsum.Einsum("...->", t)
}

// Transpose permutes the axes of t: axis ii of the result is axis permutation[ii] of t.
// Without a permutation it reverses the order of the axes.
func Transpose(t *tensors.Tensor, permutation ...int) (*tensors.Tensor, error) {
	const op = "Transpose"
	if err := checkValid(op, t); err != nil {
		return nil, err
	}
	rank := t.Rank()
	labels, err := axesLabels(op, rank)
	if err != nil {
		return nil, err
	}
	if len(permutation) == 0 {
		permutation = xslices.Iota(0, rank)
		slices.Reverse(permutation)
	}
	if len(permutation) != rank {
		return nil, errors.Wrapf(ErrInvalidArgument, "%s: permutation %v has %d axes, but %s has rank %d",
			op, permutation, len(permutation), t.Shape(), rank)
	}
	used := sets.Make[int](rank)
	output := make([]byte, rank)
	for ii, axis := range permutation {
		adjusted, err := adjustAxis(op, axis, rank)
		if err != nil {
			return nil, err
		}
		if !used.InsertNew(adjusted) {
			return nil, errors.Wrapf(ErrInvalidArgument, "%s: axis %d repeated in permutation %v", op, axis, permutation)
		}
		output[ii] = labels[adjusted]
	}
	return einsum.Einsum(string(labels)+"->"+string(output), t)
}

// Diag returns the diagonal of the square matrix A as a vector.
func Diag(A *tensors.Tensor) (*tensors.Tensor, error) {
	const op = "Diag"
	if err := checkValid(op, A); err != nil {
		return nil, err
	}
	if err := checkSquare(op, A); err != nil {
		return nil, err
	}
	return einsum.Einsum("ii->i", A)
}

// DiagMatrix returns the square matrix with the vector v on its diagonal and zeros elsewhere.
func DiagMatrix(v *tensors.Tensor) (*tensors.Tensor, error) {
	const op = "DiagMatrix"
	if err := checkValid(op, v); err != nil {
		return nil, err
	}
	if err := checkRank(op, v, 1); err != nil {
		return nil, err
	}
	return tensors.DiagMatrix(v)
}
