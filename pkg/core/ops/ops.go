// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package ops implements common linear algebra operations on tensors in terms of einsum equations.
//
// Each operation checks the ranks and dimensions it requires, returning an error wrapping ErrInvalidArgument
// when they don't hold, and then delegates to einsum.Einsum.
package ops

import (
	"github.com/pkg/errors"
	"github.com/tensorn/tensorn/pkg/core/einsum"
	"github.com/tensorn/tensorn/pkg/core/shapes"
	"github.com/tensorn/tensorn/pkg/core/tensors"
)

// ErrInvalidArgument is returned when the operands of an operation have the wrong rank, dimensions or dtype.
var ErrInvalidArgument = errors.New("invalid argument")

// labelLetters are used, in order, to label the axes of generated equations.
const labelLetters = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// MaxRank is the largest rank supported by the operations that generate one label per axis.
const MaxRank = len(labelLetters)

// axesLabels returns one distinct label per axis.
func axesLabels(op string, rank int) ([]byte, error) {
	if rank > MaxRank {
		return nil, errors.Wrapf(ErrInvalidArgument, "%s: rank %d is larger than the maximum supported rank %d",
			op, rank, MaxRank)
	}
	return []byte(labelLetters[:rank]), nil
}

// adjustAxis converts a negative axis (counting from the end) to a non-negative one, and checks it's in range.
func adjustAxis(op string, axis, rank int) (int, error) {
	adjusted := axis
	if adjusted < 0 {
		adjusted += rank
	}
	if adjusted < 0 || adjusted >= rank {
		return 0, errors.Wrapf(ErrInvalidArgument, "%s: axis %d out of range for rank %d", op, axis, rank)
	}
	return adjusted, nil
}

func checkValid(op string, operands ...*tensors.Tensor) error {
	for ii, t := range operands {
		if err := t.CheckValid(); err != nil {
			return errors.WithMessagef(err, "%s: operand #%d", op, ii)
		}
	}
	return nil
}

func checkRank(op string, t *tensors.Tensor, rank int) error {
	if err := shapes.CheckRank(t, rank); err != nil {
		return errors.Wrapf(ErrInvalidArgument, "%s: %v", op, err)
	}
	return nil
}

func checkSquare(op string, t *tensors.Tensor) error {
	if err := t.Shape().CheckSquare(); err != nil {
		return errors.Wrapf(ErrInvalidArgument, "%s: %v", op, err)
	}
	return nil
}

// MatMul returns the matrix product of a (m×n) and b (n×p).
func MatMul(a, b *tensors.Tensor) (*tensors.Tensor, error) {
	const op = "MatMul"
	if err := checkValid(op, a, b); err != nil {
		return nil, err
	}
	if err := checkRank(op, a, 2); err != nil {
		return nil, err
	}
	if err := checkRank(op, b, 2); err != nil {
		return nil, err
	}
	if a.Shape().Dimensions[1] != b.Shape().Dimensions[0] {
		return nil, errors.Wrapf(ErrInvalidArgument, "%s(%s, %s): inner dimensions don't match", op, a.Shape(), b.Shape())
	}
	return einsum.Einsum("ij,jk->ik", a, b)
}

// Dot returns the inner product of the vectors a and b, as a scalar tensor.
func Dot(a, b *tensors.Tensor) (*tensors.Tensor, error) {
	const op = "Dot"
	if err := checkValid(op, a, b); err != nil {
		return nil, err
	}
	if err := checkRank(op, a, 1); err != nil {
		return nil, err
	}
	if err := checkRank(op, b, 1); err != nil {
		return nil, err
	}
	if a.Shape().Dimensions[0] != b.Shape().Dimensions[0] {
		return nil, errors.Wrapf(ErrInvalidArgument, "%s(%s, %s): lengths don't match", op, a.Shape(), b.Shape())
	}
	return einsum.Einsum("i,i->", a, b)
}

// Outer returns the outer product of the vectors a and b: a matrix with a[i]*b[j].
func Outer(a, b *tensors.Tensor) (*tensors.Tensor, error) {
	const op = "Outer"
	if err := checkValid(op, a, b); err != nil {
		return nil, err
	}
	if err := checkRank(op, a, 1); err != nil {
		return nil, err
	}
	if err := checkRank(op, b, 1); err != nil {
		return nil, err
	}
	return einsum.Einsum("i,j->ij", a, b)
}

// Hadamard returns the elementwise product of a and b, which must have the same shape.
func Hadamard(a, b *tensors.Tensor) (*tensors.Tensor, error) {
	const op = "Hadamard"
	if err := checkValid(op, a, b); err != nil {
		return nil, err
	}
	if !a.IsIsomorphic(b) {
		return nil, errors.Wrapf(ErrInvalidArgument, "%s(%s, %s): shapes don't match", op, a.Shape(), b.Shape())
	}
	return einsum.Einsum("...,...->...", a, b)
}

// Bilinear returns the bilinear form xᵀ·A·y as a scalar tensor, for vectors x, y and the matrix A.
func Bilinear(x, A, y *tensors.Tensor) (*tensors.Tensor, error) {
	const op = "Bilinear"
	if err := checkValid(op, x, A, y); err != nil {
		return nil, err
	}
	if x.Rank() != 1 || A.Rank() != 2 || y.Rank() != 1 {
		return nil, errors.Wrapf(ErrInvalidArgument, "%s(%s, %s, %s): requires a vector, a matrix and a vector",
			op, x.Shape(), A.Shape(), y.Shape())
	}
	if err := A.Shape().CheckDims(x.Shape().Dimensions[0], y.Shape().Dimensions[0]); err != nil {
		return nil, errors.Wrapf(ErrInvalidArgument, "%s(%s, %s, %s): %v", op, x.Shape(), A.Shape(), y.Shape(), err)
	}
	Ay, err := einsum.Einsum("ij,j->i", A, y)
	if err != nil {
		return nil, err
	}
	defer Ay.Finalize()
	return einsum.Einsum("i,i->", x, Ay)
}

// Gram returns the Gram matrix X·Xᵀ of the rows of X.
func Gram(X *tensors.Tensor) (*tensors.Tensor, error) {
	const op = "Gram"
	if err := checkValid(op, X); err != nil {
		return nil, err
	}
	if err := checkRank(op, X, 2); err != nil {
		return nil, err
	}
	return einsum.Einsum("ik,jk->ij", X, X)
}
