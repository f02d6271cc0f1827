// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package einsum implements generalized Einstein summation over any number of dense tensors.
//
// The equation describes the axes of each operand with one letter (label) per axis, separated by ",", and the
// axes of the output after "->". Axes sharing a label are iterated together, and labels missing from the output
// are summed over. An ellipsis ("...") stands for the remaining axes of an operand, which must be the same
// (same number of axes and same dimensions) for all operands using it.
//
// Examples:
//
//   - "ij,jk->ik": matrix multiplication.
//   - "bij,bjk->bik" or "...ij,...jk->...ik": batched matrix multiplication.
//   - "i,i->": dot product, and "i,j->ij" outer product.
//   - "ii->": trace, and "ii->i" the diagonal.
//   - "...->": sum of all elements.
//   - "ij,jk,kl->il": chained matrix multiplication.
//
// The contraction is computed by exhaustively enumerating all index combinations, without reordering or
// splitting the operands. Errors are reported by wrapping one of the Err* kinds of this package.
package einsum

import (
	"time"

	"github.com/janpfeifer/must"
	"github.com/pkg/errors"
	"github.com/tensorn/tensorn/pkg/core/dtypes"
	"github.com/tensorn/tensorn/pkg/core/dtypes/bfloat16"
	"github.com/tensorn/tensorn/pkg/core/shapes"
	"github.com/tensorn/tensorn/pkg/core/tensors"
	"github.com/x448/float16"
	"k8s.io/klog/v2"
)

// Einsum evaluates the equation on the operands and returns a new tensor with the result.
//
// All operands must have the same numeric dtype, and the result has the same dtype.
// Float16 and BFloat16 values are accumulated in float32.
func Einsum(equation string, operands ...*tensors.Tensor) (*tensors.Tensor, error) {
	return EinsumWithOptions(equation, nil, operands...)
}

// MustEinsum is like Einsum, but panics on errors.
func MustEinsum(equation string, operands ...*tensors.Tensor) *tensors.Tensor {
	return must.M1(Einsum(equation, operands...))
}

// EinsumWithOptions is like Einsum, configured with the given options.
func EinsumWithOptions(equation string, opts []Option, operands ...*tensors.Tensor) (*tensors.Tensor, error) {
	operandShapes := make([]shapes.Shape, len(operands))
	for opIdx, operand := range operands {
		if err := operand.CheckValid(); err != nil {
			return nil, errors.WithMessagef(err, "einsum %q operand #%d", equation, opIdx)
		}
		operandShapes[opIdx] = operand.Shape()
	}
	plan, err := NewPlan(equation, operandShapes...)
	if err != nil {
		return nil, err
	}
	return Execute(plan, opts, operands...)
}

// Execute runs a plan on the operands, which must have the shapes the plan was created with.
func Execute(plan *Plan, opts []Option, operands ...*tensors.Tensor) (*tensors.Tensor, error) {
	if len(operands) != len(plan.OperandShapes) {
		return nil, errors.Wrapf(ErrOperandCountMismatch, "einsum %q plan has %d operands, but %d were given",
			plan.Expr.Equation, len(plan.OperandShapes), len(operands))
	}
	for opIdx, operand := range operands {
		if err := operand.CheckValid(); err != nil {
			return nil, errors.WithMessagef(err, "einsum %q operand #%d", plan.Expr.Equation, opIdx)
		}
		if !operand.Shape().Equal(plan.OperandShapes[opIdx]) {
			return nil, errors.Errorf("einsum %q operand #%d has shape %s, but the plan was created for %s",
				plan.Expr.Equation, opIdx, operand.Shape(), plan.OperandShapes[opIdx])
		}
	}
	if klog.V(1).Enabled() {
		klog.Infof("%s", plan)
	}

	start := time.Now()
	var outputFlat any
	var contractErr error
	err := tensors.ConstFlatDataMany(operands, func(flats []any) {
		outputFlat, contractErr = contractAny(plan, flats, opts)
	})
	if err != nil {
		return nil, err
	}
	if contractErr != nil {
		return nil, contractErr
	}
	klog.V(2).Infof("einsum %q: %d steps in %s", plan.Expr.Equation, plan.NumSteps(), time.Since(start))
	return tensors.FromFlatAny(plan.OutputShape, outputFlat)
}

// contractAny dispatches the contraction to the typed kernel matching the dtype of the flat values.
func contractAny(plan *Plan, flats []any, opts []Option) (any, error) {
	switch flats[0].(type) {
	case []float32:
		return contractTyped[float32](plan, flats, opts)
	case []float64:
		return contractTyped[float64](plan, flats, opts)
	case []int8:
		return contractTyped[int8](plan, flats, opts)
	case []int16:
		return contractTyped[int16](plan, flats, opts)
	case []int32:
		return contractTyped[int32](plan, flats, opts)
	case []int64:
		return contractTyped[int64](plan, flats, opts)
	case []uint8:
		return contractTyped[uint8](plan, flats, opts)
	case []uint16:
		return contractTyped[uint16](plan, flats, opts)
	case []uint32:
		return contractTyped[uint32](plan, flats, opts)
	case []uint64:
		return contractTyped[uint64](plan, flats, opts)
	case []complex64:
		return contractTyped[complex64](plan, flats, opts)
	case []complex128:
		return contractTyped[complex128](plan, flats, opts)
	case []float16.Float16:
		widened := make([][]float32, len(flats))
		for ii, flat := range flats {
			widened[ii] = tensors.Float16ToFloat32(flat.([]float16.Float16))
		}
		output, err := Contract(plan, widened, opts...)
		if err != nil {
			return nil, err
		}
		return tensors.Float32ToFloat16(output), nil
	case []bfloat16.BFloat16:
		widened := make([][]float32, len(flats))
		for ii, flat := range flats {
			widened[ii] = tensors.BFloat16ToFloat32(flat.([]bfloat16.BFloat16))
		}
		output, err := Contract(plan, widened, opts...)
		if err != nil {
			return nil, err
		}
		return tensors.Float32ToBFloat16(output), nil
	}
	return nil, errors.Wrapf(ErrUnsupportedDType, "einsum %q with operands of type %T", plan.Expr.Equation, flats[0])
}

func contractTyped[T dtypes.Number](plan *Plan, flats []any, opts []Option) (any, error) {
	typed := make([][]T, len(flats))
	for ii, flat := range flats {
		typed[ii] = flat.([]T)
	}
	return Contract(plan, typed, opts...)
}
