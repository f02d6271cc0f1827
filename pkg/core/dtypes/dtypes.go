// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package dtypes defines the DType enum for the element types a tensor can hold.
//
// It includes converters to/from Go native types (and reflect.Type), parsing of dtype names
// and constraint interfaces to be used with generics (Supported, Number, NumberNotComplex, GoFloat).
//
// The numeric values of the enum follow the XLA/NumPy-compatible numbering, so they are stable
// across serialization formats.
package dtypes

import (
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/tensorn/tensorn/pkg/core/dtypes/bfloat16"
	"github.com/x448/float16"
)

// DType is an enum that represents the data type of a tensor element.
type DType int32

const (
	// InvalidDType is the zero value, used as "no dtype".
	InvalidDType DType = 0

	Bool DType = 1

	Int8  DType = 2
	Int16 DType = 3
	Int32 DType = 4
	Int64 DType = 5

	Uint8  DType = 6
	Uint16 DType = 7
	Uint32 DType = 8
	Uint64 DType = 9

	Float16 DType = 10
	Float32 DType = 11
	Float64 DType = 12

	// BFloat16 is the "brain" 16 bits float: 8 bits of exponent and 7 bits of mantissa.
	BFloat16 DType = 13

	Complex64  DType = 14
	Complex128 DType = 15
)

// Short aliases, matching the names used by XLA.
const (
	PRED = Bool
	S8   = Int8
	S16  = Int16
	S32  = Int32
	S64  = Int64
	U8   = Uint8
	U16  = Uint16
	U32  = Uint32
	U64  = Uint64
	F16  = Float16
	F32  = Float32
	F64  = Float64
	BF16 = BFloat16
	C64  = Complex64
	C128 = Complex128
)

var dtypeNames = [...]string{
	InvalidDType: "InvalidDType",
	Bool:         "Bool",
	Int8:         "Int8",
	Int16:        "Int16",
	Int32:        "Int32",
	Int64:        "Int64",
	Uint8:        "Uint8",
	Uint16:       "Uint16",
	Uint32:       "Uint32",
	Uint64:       "Uint64",
	Float16:      "Float16",
	Float32:      "Float32",
	Float64:      "Float64",
	BFloat16:     "BFloat16",
	Complex64:    "Complex64",
	Complex128:   "Complex128",
}

// String implements fmt.Stringer.
func (dtype DType) String() string {
	if dtype < 0 || int(dtype) >= len(dtypeNames) {
		return "DType(" + strconv.Itoa(int(dtype)) + ")"
	}
	return dtypeNames[dtype]
}

// MapOfNames maps names (and lower-case names, and the short XLA aliases) to DTypes.
var MapOfNames = map[string]DType{
	"PRED": Bool,
	"S8":   Int8,
	"S16":  Int16,
	"S32":  Int32,
	"S64":  Int64,
	"U8":   Uint8,
	"U16":  Uint16,
	"U32":  Uint32,
	"U64":  Uint64,
	"F16":  Float16,
	"F32":  Float32,
	"F64":  Float64,
	"BF16": BFloat16,
	"C64":  Complex64,
	"C128": Complex128,

	// Go names.
	"int":     Int64,
	"float":   Float64,
	"double":  Float64,
	"boolean": Bool,
}

func init() {
	for dtype, name := range dtypeNames {
		if DType(dtype) == InvalidDType {
			continue
		}
		MapOfNames[name] = DType(dtype)
	}
	for key, dtype := range MapOfNames {
		lowerKey := strings.ToLower(key)
		if _, found := MapOfNames[lowerKey]; !found {
			MapOfNames[lowerKey] = dtype
		}
	}
}

// FromName parses the name of a dtype. It accepts the DType names ("Float32"), the
// XLA short names ("F32") and the Go type names ("float32"), case-insensitive.
func FromName(name string) (DType, error) {
	if dtype, found := MapOfNames[name]; found {
		return dtype, nil
	}
	if dtype, found := MapOfNames[strings.ToLower(name)]; found {
		return dtype, nil
	}
	return InvalidDType, errors.Errorf("unknown dtype %q", name)
}

// FromGenericsType returns the DType enum for the given type that this package knows about.
func FromGenericsType[T Supported]() DType {
	var t T
	switch (any(t)).(type) {
	case float64:
		return Float64
	case float32:
		return Float32
	case float16.Float16:
		return Float16
	case bfloat16.BFloat16:
		return BFloat16
	case int:
		if strconv.IntSize == 32 {
			return Int32
		}
		return Int64
	case int64:
		return Int64
	case int32:
		return Int32
	case int16:
		return Int16
	case int8:
		return Int8
	case bool:
		return Bool
	case uint8:
		return Uint8
	case uint16:
		return Uint16
	case uint32:
		return Uint32
	case uint64:
		return Uint64
	case complex64:
		return Complex64
	case complex128:
		return Complex128
	}
	return InvalidDType
}

// FromGoType returns the DType for the given "reflect.Type".
// It returns InvalidDType for types not supported.
func FromGoType(t reflect.Type) DType {
	if t == nil {
		return InvalidDType
	}
	if t == float16Type {
		return Float16
	} else if t == bfloat16Type {
		return BFloat16
	}
	switch t.Kind() {
	case reflect.Int:
		if strconv.IntSize == 32 {
			return Int32
		}
		return Int64
	case reflect.Int64:
		return Int64
	case reflect.Int32:
		return Int32
	case reflect.Int16:
		return Int16
	case reflect.Int8:
		return Int8

	case reflect.Uint64:
		return Uint64
	case reflect.Uint32:
		return Uint32
	case reflect.Uint16:
		return Uint16
	case reflect.Uint8:
		return Uint8

	case reflect.Bool:
		return Bool

	case reflect.Float32:
		return Float32
	case reflect.Float64:
		return Float64

	case reflect.Complex64:
		return Complex64
	case reflect.Complex128:
		return Complex128
	default:
		return InvalidDType
	}
}

// FromAny introspects the underlying type of any and returns the corresponding DType.
// Non-scalar types, or unsupported types return an InvalidType.
func FromAny(value any) DType {
	return FromGoType(reflect.TypeOf(value))
}

// Ok returns whether the dtype is one of the known data types.
func (dtype DType) Ok() bool {
	return dtype > InvalidDType && dtype <= Complex128
}

// Size returns the number of bytes for the given DType.
func (dtype DType) Size() int {
	return int(dtype.GoType().Size())
}

// Memory returns the number of bytes for the given DType.
// It's an alias to Size, converted to uintptr.
func (dtype DType) Memory() uintptr {
	return uintptr(dtype.Size())
}

// Pre-generate constant reflect.TypeOf for convenience.
var (
	float32Type  = reflect.TypeOf(float32(0))
	float64Type  = reflect.TypeOf(float64(0))
	float16Type  = reflect.TypeOf(float16.Float16(0))
	bfloat16Type = reflect.TypeOf(bfloat16.BFloat16(0))
)

// GoType returns the Go `reflect.Type` corresponding to the tensor DType.
// It panics for an invalid dtype.
func (dtype DType) GoType() reflect.Type {
	switch dtype {
	case Int64:
		return reflect.TypeOf(int64(0))
	case Int32:
		return reflect.TypeOf(int32(0))
	case Int16:
		return reflect.TypeOf(int16(0))
	case Int8:
		return reflect.TypeOf(int8(0))

	case Uint64:
		return reflect.TypeOf(uint64(0))
	case Uint32:
		return reflect.TypeOf(uint32(0))
	case Uint16:
		return reflect.TypeOf(uint16(0))
	case Uint8:
		return reflect.TypeOf(uint8(0))

	case Bool:
		return reflect.TypeOf(true)

	case Float16:
		return float16Type
	case BFloat16:
		return bfloat16Type
	case Float32:
		return float32Type
	case Float64:
		return float64Type

	case Complex64:
		return reflect.TypeOf(complex64(0))
	case Complex128:
		return reflect.TypeOf(complex128(0))

	default:
		panic(errors.Errorf("unknown dtype %q (%d) in DType.GoType", dtype, int32(dtype)))
	}
}

// GoStr converts dtype to the corresponding Go type and convert that to string.
func (dtype DType) GoStr() string {
	return dtype.GoType().Name()
}

// LowestValue for dtype converted to the corresponding Go type.
// For float values it will return negative infinite.
// Complex numbers are not ordered, and it returns 0 for them.
func (dtype DType) LowestValue() any {
	switch dtype {
	case Int64:
		return int64(math.MinInt64)
	case Int32:
		return int32(math.MinInt32)
	case Int16:
		return int16(math.MinInt16)
	case Int8:
		return int8(math.MinInt8)
	case Uint64:
		return uint64(0)
	case Uint32:
		return uint32(0)
	case Uint16:
		return uint16(0)
	case Uint8:
		return uint8(0)
	case Bool:
		return false
	case Float32:
		return float32(math.Inf(-1))
	case Float64:
		return math.Inf(-1)
	case Float16:
		return float16.Inf(-1)
	case BFloat16:
		return bfloat16.Inf(-1)
	default:
		return reflect.New(dtype.GoType()).Elem().Interface()
	}
}

// CheckIntRange returns an error if any of the values doesn't fit the integer dtype, as given by
// LowestValue and HighestValue. It's a no-op for non-integer dtypes.
func CheckIntRange[T int64 | uint64](dtype DType, values []T) error {
	if !dtype.IsInt() {
		return nil
	}
	lowest, highest := reflect.ValueOf(dtype.LowestValue()), reflect.ValueOf(dtype.HighestValue())
	for i, v := range values {
		var inRange bool
		switch x := any(v).(type) {
		case int64:
			if dtype.IsUnsigned() {
				inRange = x >= 0 && uint64(x) <= highest.Uint()
			} else {
				inRange = x >= lowest.Int() && x <= highest.Int()
			}
		case uint64:
			if dtype.IsUnsigned() {
				inRange = x <= highest.Uint()
			} else {
				inRange = x <= uint64(highest.Int())
			}
		}
		if !inRange {
			return errors.Errorf("value #%d (%d) out of range [%v, %v] for dtype %s", i, v, lowest, highest, dtype)
		}
	}
	return nil
}

// HighestValue for dtype converted to the corresponding Go type.
// For float values it will return infinite.
// Complex numbers are not ordered, and it returns 0 for them.
func (dtype DType) HighestValue() any {
	switch dtype {
	case Int64:
		return int64(math.MaxInt64)
	case Int32:
		return int32(math.MaxInt32)
	case Int16:
		return int16(math.MaxInt16)
	case Int8:
		return int8(math.MaxInt8)
	case Uint64:
		return uint64(math.MaxUint64)
	case Uint32:
		return uint32(math.MaxUint32)
	case Uint16:
		return uint16(math.MaxUint16)
	case Uint8:
		return uint8(math.MaxUint8)
	case Bool:
		return true
	case Float32:
		return float32(math.Inf(1))
	case Float64:
		return math.Inf(1)
	case Float16:
		return float16.Inf(1)
	case BFloat16:
		return bfloat16.Inf(1)
	default:
		return reflect.New(dtype.GoType()).Elem().Interface()
	}
}

// IsFloat returns whether dtype is a float. It returns false for complex numbers.
func (dtype DType) IsFloat() bool {
	return dtype == Float32 || dtype == Float64 || dtype == Float16 || dtype == BFloat16
}

// IsFloat16 returns whether dtype is a float with 16 bits: [Float16] or [BFloat16].
func (dtype DType) IsFloat16() bool {
	return dtype == Float16 || dtype == BFloat16
}

// IsComplex returns whether dtype is a complex number type.
func (dtype DType) IsComplex() bool {
	return dtype == Complex64 || dtype == Complex128
}

// IsInt returns whether dtype is an integer type, signed or unsigned.
func (dtype DType) IsInt() bool {
	return dtype == Int64 || dtype == Int32 || dtype == Int16 || dtype == Int8 ||
		dtype == Uint8 || dtype == Uint16 || dtype == Uint32 || dtype == Uint64
}

// IsUnsigned returns whether dtype is one of the unsigned integer types.
func (dtype DType) IsUnsigned() bool {
	return dtype == Uint8 || dtype == Uint16 || dtype == Uint32 || dtype == Uint64
}

// IsNumber returns whether dtype supports arithmetic: everything but Bool and InvalidDType.
func (dtype DType) IsNumber() bool {
	return dtype.IsInt() || dtype.IsFloat() || dtype.IsComplex()
}

// Supported lists the Go types a tensor can hold.
// Used as traits for generics.
//
// Notice Go's `int` type is not portable, since it may translate to dtypes Int32 or Int64 depending
// on the platform.
type Supported interface {
	bool | float16.Float16 | bfloat16.BFloat16 |
		float32 | float64 | int | int8 | int16 | int32 | int64 | uint8 | uint16 | uint32 | uint64 |
		complex64 | complex128
}

// Number represents the Go numeric types corresponding to supported DType's.
// Used as traits for generics.
//
// It includes complex numbers.
// It doesn't include float16.Float16 or bfloat16.BFloat16 because they are not native number types.
type Number interface {
	float32 | float64 | int | int8 | int16 | int32 | int64 | uint8 | uint16 | uint32 | uint64 | complex64 | complex128
}

// NumberNotComplex represents the real Go numeric types.
// Used as a Generics constraint.
type NumberNotComplex interface {
	float32 | float64 | int | int8 | int16 | int32 | int64 | uint8 | uint16 | uint32 | uint64
}

// GoFloat represent a continuous Go numeric type.
// It doesn't include complex numbers.
type GoFloat interface {
	float32 | float64
}
