// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package tensors

import (
	"fmt"
	"math"
	"reflect"

	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
	"github.com/tensorn/tensorn/pkg/core/dtypes"
	"github.com/tensorn/tensorn/pkg/core/shapes"
)

// castTo converts v to the Go type T, going through the dtype's conversion rules.
func castTo[T dtypes.Supported](v float64) T {
	var out T
	dtype := dtypes.FromGenericsType[T]()
	cast := reflect.ValueOf(shapes.CastAsDType(v, dtype))
	reflect.ValueOf(&out).Elem().Set(cast.Convert(reflect.TypeOf(out)))
	return out
}

// Zeros returns a tensor of the given dimensions filled with zeros.
func Zeros[T dtypes.Supported](dimensions ...int) *Tensor {
	return FromShape(shapes.Make(dtypes.FromGenericsType[T](), dimensions...))
}

// Ones returns a tensor of the given dimensions filled with ones.
func Ones[T dtypes.Supported](dimensions ...int) *Tensor {
	return FromScalarAndDimensions(castTo[T](1), dimensions...)
}

// Eye returns the n x n identity matrix.
func Eye[T dtypes.Supported](n int) *Tensor {
	t := Zeros[T](n, n)
	one := reflect.ValueOf(shapes.CastAsDType(float64(1), t.DType()))
	t.MustMutableFlatData(func(flat any) {
		flatV := reflect.ValueOf(flat)
		for ii := 0; ii < n; ii++ {
			flatV.Index(ii*n + ii).Set(one)
		}
	})
	return t
}

// Arange returns a vector with the values start, start+step, ..., up to but excluding stop.
// A negative step counts downwards. It returns an error if step is zero.
func Arange[T dtypes.NumberNotComplex](start, stop, step T) (*Tensor, error) {
	if step == 0 {
		return nil, errors.Errorf("tensors.Arange(%v, %v, %v): step cannot be zero", start, stop, step)
	}
	n := int(math.Ceil((float64(stop) - float64(start)) / float64(step)))
	n = max(n, 0)
	data := make([]T, n)
	for ii := range data {
		data[ii] = start + T(ii)*step
	}
	return FromFlatDataAndDimensions(data, n), nil
}

// Reshape returns a copy of t with the new dimensions. The total size must be preserved.
func Reshape(t *Tensor, dimensions ...int) (*Tensor, error) {
	newShape, err := shapes.MakeE(t.DType(), dimensions...)
	if err != nil {
		return nil, err
	}
	if newShape.Size() != t.Size() {
		return nil, errors.Errorf("tensors.Reshape(%s, %v): size %d is incompatible with the new size %d",
			t.Shape(), dimensions, t.Size(), newShape.Size())
	}
	clone, err := t.Clone()
	if err != nil {
		return nil, err
	}
	clone.shape = newShape
	return clone, nil
}

// ConvertDType returns a new tensor with the values of t converted to dtype.
// If t already has the dtype, it returns a clone.
func ConvertDType(t *Tensor, dtype dtypes.DType) (*Tensor, error) {
	if !dtype.Ok() {
		return nil, errors.Errorf("tensors.ConvertDType: invalid dtype %s", dtype)
	}
	if t.DType() == dtype {
		return t.Clone()
	}
	var converted any
	var convErr error
	err := t.ConstFlatData(func(flat any) {
		if exception := exceptions.Try(func() { converted = shapes.CastAsDType(flat, dtype) }); exception != nil {
			convErr = errors.Errorf("tensors.ConvertDType(%s -> %s): %v", t.Shape(), dtype, exception)
		}
	})
	if err != nil {
		return nil, err
	}
	if convErr != nil {
		return nil, convErr
	}
	return FromFlatAny(shapes.Make(dtype, t.Shape().Dimensions...), converted)
}

// DiagMatrix returns a square matrix with the values of the vector v on its diagonal, and zeros elsewhere.
func DiagMatrix(v *Tensor) (*Tensor, error) {
	if err := v.Shape().CheckRank(1); err != nil {
		return nil, errors.WithMessage(err, "tensors.DiagMatrix requires a vector")
	}
	n := v.Shape().Dimensions[0]
	out := FromShape(shapes.Make(v.DType(), n, n))
	err := v.ConstFlatData(func(vFlat any) {
		out.MustMutableFlatData(func(outFlat any) {
			vV, outV := reflect.ValueOf(vFlat), reflect.ValueOf(outFlat)
			for ii := 0; ii < n; ii++ {
				outV.Index(ii*n + ii).Set(vV.Index(ii))
			}
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// String converts to string, if not too large. It uses t.Summary(precision=4).
func (t *Tensor) String() string {
	if err := t.CheckValid(); err != nil {
		return fmt.Sprintf("Tensor(invalid: %v)", err)
	}
	return t.Summary(DefaultPrecision)
}
