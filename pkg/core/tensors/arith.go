// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package tensors

import (
	"reflect"

	"github.com/pkg/errors"
	"github.com/tensorn/tensorn/pkg/core/dtypes"
	"github.com/tensorn/tensorn/pkg/core/dtypes/bfloat16"
	"github.com/tensorn/tensorn/pkg/core/shapes"
	"github.com/x448/float16"
)

var (
	// ErrNotIsomorphic is returned by elementwise operations on tensors of different dimensions.
	ErrNotIsomorphic = errors.New("tensors are not isomorphic")

	// ErrDivisionByZero is returned by integer divisions by zero.
	ErrDivisionByZero = errors.New("integer division by zero")

	// ErrUnsupportedDType is returned by arithmetic on non-numeric dtypes (Bool).
	ErrUnsupportedDType = errors.New("unsupported dtype for arithmetic")
)

type binaryOp int

const (
	opAdd binaryOp = iota
	opSub
	opMul
	opDiv
)

var opNames = [...]string{opAdd: "Add", opSub: "Sub", opMul: "Mul", opDiv: "Div"}

// Add returns a new tensor with a+b, elementwise. Both must have the same shape.
func Add(a, b *Tensor) (*Tensor, error) { return binary(opAdd, a, b) }

// Sub returns a new tensor with a-b, elementwise. Both must have the same shape.
func Sub(a, b *Tensor) (*Tensor, error) { return binary(opSub, a, b) }

// Mul returns a new tensor with a*b, elementwise (Hadamard product). Both must have the same shape.
func Mul(a, b *Tensor) (*Tensor, error) { return binary(opMul, a, b) }

// Div returns a new tensor with a/b, elementwise. Both must have the same shape.
// Integer division by zero returns ErrDivisionByZero.
func Div(a, b *Tensor) (*Tensor, error) { return binary(opDiv, a, b) }

// AddScalar returns t+scalar. The scalar is converted to t's dtype first.
func AddScalar(t *Tensor, scalar float64) (*Tensor, error) { return binaryScalar(opAdd, t, scalar) }

// SubScalar returns t-scalar. The scalar is converted to t's dtype first.
func SubScalar(t *Tensor, scalar float64) (*Tensor, error) { return binaryScalar(opSub, t, scalar) }

// MulScalar returns t*scalar. The scalar is converted to t's dtype first.
func MulScalar(t *Tensor, scalar float64) (*Tensor, error) { return binaryScalar(opMul, t, scalar) }

// DivScalar returns t/scalar. The scalar is converted to t's dtype first.
func DivScalar(t *Tensor, scalar float64) (*Tensor, error) { return binaryScalar(opDiv, t, scalar) }

func binaryScalar(op binaryOp, t *Tensor, scalar float64) (*Tensor, error) {
	if err := t.CheckValid(); err != nil {
		return nil, err
	}
	if !t.DType().IsNumber() {
		return nil, errors.Wrapf(ErrUnsupportedDType, "%sScalar on %s", opNames[op], t.Shape())
	}
	broadcast := FromShape(t.Shape())
	value := reflect.ValueOf(shapes.CastAsDType(scalar, t.DType()))
	broadcast.MustMutableFlatData(func(flat any) {
		flatV := reflect.ValueOf(flat)
		for ii := range flatV.Len() {
			flatV.Index(ii).Set(value)
		}
	})
	return binary(op, t, broadcast)
}

func binary(op binaryOp, a, b *Tensor) (*Tensor, error) {
	if err := a.CheckValid(); err != nil {
		return nil, err
	}
	if err := b.CheckValid(); err != nil {
		return nil, err
	}
	if a.DType() != b.DType() {
		return nil, errors.Errorf("%s(%s, %s): dtypes don't match", opNames[op], a.Shape(), b.Shape())
	}
	if !a.IsIsomorphic(b) {
		return nil, errors.Wrapf(ErrNotIsomorphic, "%s(%s, %s)", opNames[op], a.Shape(), b.Shape())
	}
	out := FromShape(a.Shape())
	var opErr error
	err := ConstFlatDataMany([]*Tensor{a, b}, func(flats []any) {
		out.MustMutableFlatData(func(outFlat any) {
			opErr = applyBinary(op, flats[0], flats[1], outFlat)
		})
	})
	if err != nil {
		return nil, err
	}
	if opErr != nil {
		return nil, errors.WithMessagef(opErr, "%s(%s, %s)", opNames[op], a.Shape(), b.Shape())
	}
	return out, nil
}

func applyBinary(op binaryOp, x, y, out any) error {
	switch xFlat := x.(type) {
	case []float32:
		return binaryKernel(op, xFlat, y.([]float32), out.([]float32))
	case []float64:
		return binaryKernel(op, xFlat, y.([]float64), out.([]float64))
	case []int8:
		return binaryKernel(op, xFlat, y.([]int8), out.([]int8))
	case []int16:
		return binaryKernel(op, xFlat, y.([]int16), out.([]int16))
	case []int32:
		return binaryKernel(op, xFlat, y.([]int32), out.([]int32))
	case []int64:
		return binaryKernel(op, xFlat, y.([]int64), out.([]int64))
	case []uint8:
		return binaryKernel(op, xFlat, y.([]uint8), out.([]uint8))
	case []uint16:
		return binaryKernel(op, xFlat, y.([]uint16), out.([]uint16))
	case []uint32:
		return binaryKernel(op, xFlat, y.([]uint32), out.([]uint32))
	case []uint64:
		return binaryKernel(op, xFlat, y.([]uint64), out.([]uint64))
	case []complex64:
		return binaryKernel(op, xFlat, y.([]complex64), out.([]complex64))
	case []complex128:
		return binaryKernel(op, xFlat, y.([]complex128), out.([]complex128))
	case []float16.Float16:
		x32, y32 := Float16ToFloat32(xFlat), Float16ToFloat32(y.([]float16.Float16))
		if err := binaryKernel(op, x32, y32, x32); err != nil {
			return err
		}
		copy(out.([]float16.Float16), Float32ToFloat16(x32))
		return nil
	case []bfloat16.BFloat16:
		x32, y32 := BFloat16ToFloat32(xFlat), BFloat16ToFloat32(y.([]bfloat16.BFloat16))
		if err := binaryKernel(op, x32, y32, x32); err != nil {
			return err
		}
		copy(out.([]bfloat16.BFloat16), Float32ToBFloat16(x32))
		return nil
	}
	return errors.Wrapf(ErrUnsupportedDType, "flat data of type %T", x)
}

func binaryKernel[T dtypes.Number](op binaryOp, x, y, out []T) error {
	switch op {
	case opAdd:
		for ii := range out {
			out[ii] = x[ii] + y[ii]
		}
	case opSub:
		for ii := range out {
			out[ii] = x[ii] - y[ii]
		}
	case opMul:
		for ii := range out {
			out[ii] = x[ii] * y[ii]
		}
	case opDiv:
		isInt := dtypes.FromGenericsType[T]().IsInt()
		var zero T
		for ii := range out {
			if isInt && y[ii] == zero {
				return errors.Wrapf(ErrDivisionByZero, "at flat index %d", ii)
			}
			out[ii] = x[ii] / y[ii]
		}
	}
	return nil
}

// Float16ToFloat32 returns a new slice with the values converted to float32.
func Float16ToFloat32(values []float16.Float16) []float32 {
	out := make([]float32, len(values))
	for ii, v := range values {
		out[ii] = v.Float32()
	}
	return out
}

// Float32ToFloat16 returns a new slice with the values converted to float16.
func Float32ToFloat16(values []float32) []float16.Float16 {
	out := make([]float16.Float16, len(values))
	for ii, v := range values {
		out[ii] = float16.Fromfloat32(v)
	}
	return out
}

// BFloat16ToFloat32 returns a new slice with the values converted to float32.
func BFloat16ToFloat32(values []bfloat16.BFloat16) []float32 {
	out := make([]float32, len(values))
	for ii, v := range values {
		out[ii] = v.Float32()
	}
	return out
}

// Float32ToBFloat16 returns a new slice with the values converted to bfloat16.
func Float32ToBFloat16(values []float32) []bfloat16.BFloat16 {
	out := make([]bfloat16.BFloat16, len(values))
	for ii, v := range values {
		out[ii] = bfloat16.FromFloat32(v)
	}
	return out
}
