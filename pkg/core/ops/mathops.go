// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package ops

import (
	"math"

	"github.com/pkg/errors"
	"github.com/tensorn/tensorn/pkg/core/dtypes"
	"github.com/tensorn/tensorn/pkg/core/dtypes/bfloat16"
	"github.com/tensorn/tensorn/pkg/core/tensors"
	"github.com/x448/float16"
	"golang.org/x/exp/constraints"
)

func checkFloat(op string, t *tensors.Tensor) error {
	if !t.DType().IsFloat() {
		return errors.Wrapf(ErrInvalidArgument, "%s: requires a float tensor, got %s", op, t.Shape())
	}
	return nil
}

func mapFloats[T constraints.Float](in, out []T, fn func(float64) float64) {
	for ii, v := range in {
		out[ii] = T(fn(float64(v)))
	}
}

// elementwise returns a new tensor with fn applied to each element of the float tensor t.
// Half precision values are computed in float64 and rounded back.
func elementwise(op string, t *tensors.Tensor, fn func(float64) float64) (*tensors.Tensor, error) {
	if err := checkValid(op, t); err != nil {
		return nil, err
	}
	if err := checkFloat(op, t); err != nil {
		return nil, err
	}
	out := tensors.FromShape(t.Shape())
	err := t.ConstFlatData(func(flat any) {
		out.MustMutableFlatData(func(outFlat any) {
			switch in := flat.(type) {
			case []float32:
				mapFloats(in, outFlat.([]float32), fn)
			case []float64:
				mapFloats(in, outFlat.([]float64), fn)
			case []float16.Float16:
				outValues := outFlat.([]float16.Float16)
				for ii, v := range in {
					outValues[ii] = float16.Fromfloat32(float32(fn(float64(v.Float32()))))
				}
			case []bfloat16.BFloat16:
				outValues := outFlat.([]bfloat16.BFloat16)
				for ii, v := range in {
					outValues[ii] = bfloat16.FromFloat64(fn(float64(v.Float32())))
				}
			}
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Exp returns e^x for each element x of the float tensor t.
func Exp(t *tensors.Tensor) (*tensors.Tensor, error) { return elementwise("Exp", t, math.Exp) }

// Log returns the natural logarithm of each element of the float tensor t.
func Log(t *tensors.Tensor) (*tensors.Tensor, error) { return elementwise("Log", t, math.Log) }

// Sqrt returns the square root of each element of the float tensor t.
func Sqrt(t *tensors.Tensor) (*tensors.Tensor, error) { return elementwise("Sqrt", t, math.Sqrt) }

// Sin returns the sine of each element of the float tensor t.
func Sin(t *tensors.Tensor) (*tensors.Tensor, error) { return elementwise("Sin", t, math.Sin) }

// Cos returns the cosine of each element of the float tensor t.
func Cos(t *tensors.Tensor) (*tensors.Tensor, error) { return elementwise("Cos", t, math.Cos) }

// scalarValue converts a scalar tensor to float64, and frees it.
func scalarValue(t *tensors.Tensor) (float64, error) {
	defer t.Finalize()
	if err := t.Shape().CheckScalar(); err != nil {
		return 0, err
	}
	converted, err := tensors.ConvertDType(t, dtypes.Float64)
	if err != nil {
		return 0, err
	}
	return tensors.ToScalar[float64](converted), nil
}

// sumValue returns the sum of all elements of t as a float64.
func sumValue(op string, t *tensors.Tensor) (float64, error) {
	if err := checkValid(op, t); err != nil {
		return 0, err
	}
	if err := checkFloat(op, t); err != nil {
		return 0, err
	}
	if t.Size() == 0 {
		return 0, errors.Wrapf(ErrInvalidArgument, "%s: tensor %s has no elements", op, t.Shape())
	}
	sum, err := Sum(t)
	if err != nil {
		return 0, err
	}
	return scalarValue(sum)
}

// Mean returns the average of all elements of the float tensor t.
func Mean(t *tensors.Tensor) (float64, error) {
	sum, err := sumValue("Mean", t)
	if err != nil {
		return 0, err
	}
	return sum / float64(t.Size()), nil
}

// Var returns the (population) variance of all elements of the float tensor t.
func Var(t *tensors.Tensor) (float64, error) {
	const op = "Var"
	mean, err := Mean(t)
	if err != nil {
		return 0, errors.WithMessage(err, op)
	}
	centered, err := tensors.SubScalar(t, mean)
	if err != nil {
		return 0, err
	}
	defer centered.Finalize()
	squares, err := Hadamard(centered, centered)
	if err != nil {
		return 0, err
	}
	defer squares.Finalize()
	sumSquares, err := sumValue(op, squares)
	if err != nil {
		return 0, err
	}
	return sumSquares / float64(t.Size()), nil
}

// Stddev returns the (population) standard deviation of all elements of the float tensor t.
func Stddev(t *tensors.Tensor) (float64, error) {
	variance, err := Var(t)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(variance), nil
}

// Norm returns the L2 norm of the float vector v.
func Norm(v *tensors.Tensor) (float64, error) {
	const op = "Norm"
	if err := checkValid(op, v); err != nil {
		return 0, err
	}
	if err := checkFloat(op, v); err != nil {
		return 0, err
	}
	squares, err := Dot(v, v)
	if err != nil {
		return 0, err
	}
	sumSquares, err := scalarValue(squares)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(sumSquares), nil
}

// FrobeniusNorm returns the square root of the sum of the squares of the elements of the float matrix A.
func FrobeniusNorm(A *tensors.Tensor) (float64, error) {
	const op = "FrobeniusNorm"
	if err := checkValid(op, A); err != nil {
		return 0, err
	}
	if err := checkFloat(op, A); err != nil {
		return 0, err
	}
	if err := checkRank(op, A, 2); err != nil {
		return 0, err
	}
	squares, err := Hadamard(A, A)
	if err != nil {
		return 0, err
	}
	defer squares.Finalize()
	sum, err := Sum(squares)
	if err != nil {
		return 0, err
	}
	sumSquares, err := scalarValue(sum)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(sumSquares), nil
}
