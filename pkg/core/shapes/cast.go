// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package shapes

import (
	"reflect"

	"github.com/tensorn/tensorn/pkg/core/dtypes"
	"github.com/tensorn/tensorn/pkg/core/dtypes/bfloat16"
	"github.com/x448/float16"
)

var (
	float16Type  = reflect.TypeOf(float16.Float16(0))
	bfloat16Type = reflect.TypeOf(bfloat16.BFloat16(0))
	float64Type  = reflect.TypeOf(float64(0))
)

// CastAsDType casts a numeric value to the corresponding Go type for the DType.
// If the value is a slice (of any depth) it will convert to a newly allocated slice of
// the given DType.
//
// Float16 and BFloat16 values are converted through float64. Conversion to Bool yields
// whether the value is non-zero. Real values cast to complex get a zero imaginary part, and
// complex values cast to real dtypes keep only their real part.
func CastAsDType(value any, dtype dtypes.DType) any {
	valueOf := reflect.ValueOf(value)
	return castValue(valueOf, dtype).Interface()
}

func castValue(valueOf reflect.Value, dtype dtypes.DType) reflect.Value {
	typeOf := valueOf.Type()
	if typeOf.Kind() != reflect.Slice && typeOf.Kind() != reflect.Array {
		return castScalar(valueOf, dtype)
	}
	newTypeOf := typeForSliceDType(typeOf, dtype)
	newValueOf := reflect.MakeSlice(newTypeOf, valueOf.Len(), valueOf.Len())
	for ii := 0; ii < valueOf.Len(); ii++ {
		newValueOf.Index(ii).Set(castValue(valueOf.Index(ii), dtype))
	}
	return newValueOf
}

func castScalar(valueOf reflect.Value, dtype dtypes.DType) reflect.Value {
	switch valueOf.Type() {
	case float16Type:
		valueOf = reflect.ValueOf(float64(valueOf.Interface().(float16.Float16).Float32()))
	case bfloat16Type:
		valueOf = reflect.ValueOf(float64(valueOf.Interface().(bfloat16.BFloat16).Float32()))
	}
	if valueOf.Kind() == reflect.Bool {
		if dtype == dtypes.Bool {
			return valueOf
		}
		if valueOf.Bool() {
			valueOf = reflect.ValueOf(float64(1))
		} else {
			valueOf = reflect.ValueOf(float64(0))
		}
	}
	if valueOf.Kind() == reflect.Complex64 || valueOf.Kind() == reflect.Complex128 {
		if !dtype.IsComplex() && dtype != dtypes.Bool {
			valueOf = reflect.ValueOf(real(valueOf.Complex()))
		}
	} else if dtype.IsComplex() {
		return reflect.ValueOf(complex(valueOf.Convert(float64Type).Float(), 0)).Convert(dtype.GoType())
	}
	switch dtype {
	case dtypes.Bool:
		return reflect.ValueOf(!valueOf.IsZero())
	case dtypes.Float16:
		return reflect.ValueOf(float16.Fromfloat32(float32(valueOf.Convert(float64Type).Float())))
	case dtypes.BFloat16:
		return reflect.ValueOf(bfloat16.FromFloat64(valueOf.Convert(float64Type).Float()))
	}
	return valueOf.Convert(dtype.GoType())
}

func typeForSliceDType(valueType reflect.Type, dtype dtypes.DType) reflect.Type {
	if valueType.Kind() != reflect.Slice && valueType.Kind() != reflect.Array {
		return dtype.GoType()
	}
	return reflect.SliceOf(typeForSliceDType(valueType.Elem(), dtype))
}
