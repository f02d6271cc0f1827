// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package tensors

import (
	"fmt"
	"reflect"
	"unsafe"

	"github.com/gomlx/exceptions"
	"github.com/janpfeifer/must"
	"github.com/pkg/errors"
	"github.com/tensorn/tensorn/pkg/core/dtypes"
	"github.com/tensorn/tensorn/pkg/core/shapes"
	"github.com/tensorn/tensorn/pkg/support/xslices"
)

var intType = reflect.TypeOf(int(0))

// FromShape returns a Tensor with the given shape, with the data initialized with zeros.
//
// It panics if you provide an invalid shape.
func FromShape(shape shapes.Shape) *Tensor {
	if !shape.Ok() {
		exceptions.Panicf("tensors.FromShape(%s): invalid shape", shape)
	}
	size := shape.Size()
	flatV := reflect.MakeSlice(reflect.SliceOf(shape.DType.GoType()), size, size)
	return newTensor(shape.Clone(), flatV.Interface())
}

// FromFlatAny creates a tensor with the given shape that takes ownership of flat, without copying.
// flat must be a slice of the Go type corresponding to shape.DType, with shape.Size() elements.
func FromFlatAny(shape shapes.Shape, flat any) (*Tensor, error) {
	if !shape.Ok() {
		return nil, errors.Errorf("tensors.FromFlatAny(%s): invalid shape", shape)
	}
	flatV := reflect.ValueOf(flat)
	if !flatV.IsValid() || flatV.Kind() != reflect.Slice || flatV.Type().Elem() != shape.DType.GoType() {
		return nil, errors.Errorf("tensors.FromFlatAny(%s): flat data of type %T, wanted []%s",
			shape, flat, shape.DType.GoStr())
	}
	if flatV.Len() != shape.Size() {
		return nil, errors.Errorf("tensors.FromFlatAny(%s): flat data has %d elements, but shape size is %d",
			shape, flatV.Len(), shape.Size())
	}
	return newTensor(shape.Clone(), flat), nil
}

// Clone creates a deep copy of the Tensor.
func (t *Tensor) Clone() (*Tensor, error) {
	var clone *Tensor
	err := t.ConstFlatData(func(flat any) {
		flatV := reflect.ValueOf(flat)
		size := flatV.Len()
		cloneFlatV := reflect.MakeSlice(flatV.Type(), size, size)
		reflect.Copy(cloneFlatV, flatV)
		clone = newTensor(t.shape.Clone(), cloneFlatV.Interface())
	})
	if err != nil {
		return nil, err
	}
	return clone, nil
}

// MustClone is like Clone, but panics on error.
func (t *Tensor) MustClone() *Tensor {
	return must.M1(t.Clone())
}

// ConstFlatData calls accessFn with the flattened data as a slice of the Go type corresponding to the DType type.
// Even scalar values have a flattened data representation of one element.
// It read-locks the Tensor until accessFn returns.
//
// This provides accessFn with the actual Tensor data (not a copy), and it's owned by the Tensor, and it
// should not be changed. See Tensor.MutableFlatData to access a mutable version of the flat data.
//
// See Tensor.Size for the number of elements, and Tensor.LayoutStrides to calculate the offset of individual
// positions, given the indices at each axis.
func (t *Tensor) ConstFlatData(accessFn func(flat any)) error {
	if t == nil {
		return errors.New("Tensor is nil")
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.flat == nil {
		return errors.New("Tensor has already been finalized")
	}
	accessFn(t.flat)
	return nil
}

// MustConstFlatData is like ConstFlatData, but panics on error.
func (t *Tensor) MustConstFlatData(accessFn func(flat any)) {
	must.M(t.ConstFlatData(accessFn))
}

// ConstFlatDataMany calls accessFn with the flat data of all the given tensors, read-locking each
// distinct tensor once. The same tensor may be given more than once.
func ConstFlatDataMany(tensors []*Tensor, accessFn func(flats []any)) error {
	locked := make(map[*Tensor]bool, len(tensors))
	defer func() {
		for t := range locked {
			t.mu.RUnlock()
		}
	}()
	flats := make([]any, len(tensors))
	for ii, t := range tensors {
		if t == nil {
			return errors.Errorf("tensor #%d is nil", ii)
		}
		if !locked[t] {
			t.mu.RLock()
			locked[t] = true
		}
		if t.flat == nil {
			return errors.Errorf("tensor #%d has already been finalized", ii)
		}
		flats[ii] = t.flat
	}
	accessFn(flats)
	return nil
}

// ConstFlatData calls accessFn with the flattened data as a slice of the Go type corresponding to the DType type.
// It is the "generics" version of Tensor.ConstFlatData().
//
// The Go `int` type is not accepted, use int64 or int32 instead.
func ConstFlatData[T dtypes.Supported](t *Tensor, accessFn func(flat []T)) error {
	var conversionErr error
	err := t.ConstFlatData(func(anyFlat any) {
		flat, ok := anyFlat.([]T)
		if !ok {
			var v T
			conversionErr = errors.Errorf("ConstFlatData[%T] is incompatible with Tensor's dtype %s", v, t.shape.DType)
			return
		}
		accessFn(flat)
	})
	if err != nil {
		return err
	}
	return conversionErr
}

// MustConstFlatData is like ConstFlatData, but panics on error.
func MustConstFlatData[T dtypes.Supported](t *Tensor, accessFn func(flat []T)) {
	must.M(ConstFlatData(t, accessFn))
}

// bytesOf returns a []byte view of a flat slice.
func bytesOf(flat any) []byte {
	flatV := reflect.ValueOf(flat)
	if flatV.Len() == 0 {
		return nil
	}
	ptr := flatV.Index(0).Addr().UnsafePointer()
	sizeBytes := uintptr(flatV.Len()) * flatV.Type().Elem().Size()
	return unsafe.Slice((*byte)(ptr), sizeBytes)
}

// ConstBytes calls accessFn with the data as a bytes slice, in the machine native byte order.
// It is nil for tensors with no elements.
//
// The bytes are the actual Tensor data (not a copy), and it should not be changed.
func (t *Tensor) ConstBytes(accessFn func(data []byte)) error {
	return t.ConstFlatData(func(flat any) {
		accessFn(bytesOf(flat))
	})
}

// MutableFlatData calls accessFn with a flat slice pointing to the Tensor data.
// The type of the slice corresponds to the DType of the tensor.
// The contents of the slice itself can be changed until accessFn returns.
// During this time the Tensor is locked.
//
// Even scalar values have a flattened data representation of one element.
func (t *Tensor) MutableFlatData(accessFn func(flat any)) error {
	if t == nil {
		return errors.New("Tensor is nil")
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.flat == nil {
		return errors.New("Tensor has already been finalized")
	}
	accessFn(t.flat)
	return nil
}

// MustMutableFlatData is like MutableFlatData, but panics on error.
func (t *Tensor) MustMutableFlatData(accessFn func(flat any)) {
	must.M(t.MutableFlatData(accessFn))
}

// MutableBytes gives mutable access to the storage of the values for the tensor, as bytes in the
// machine native byte order.
func (t *Tensor) MutableBytes(accessFn func(data []byte)) error {
	return t.MutableFlatData(func(flat any) {
		accessFn(bytesOf(flat))
	})
}

// MutableFlatData calls accessFn with a flat slice pointing to the Tensor data.
// It is the "generics" version of Tensor.MutableFlatData(), see its description for more details.
func MutableFlatData[T dtypes.Supported](t *Tensor, accessFn func(flat []T)) error {
	var conversionErr error
	accessErr := t.MutableFlatData(func(anyFlat any) {
		flat, ok := anyFlat.([]T)
		if !ok {
			var v T
			conversionErr = errors.Errorf("MutableFlatData[%T] is incompatible with Tensor's dtype %s", v, t.shape.DType)
			return
		}
		accessFn(flat)
	})
	if accessErr != nil {
		return accessErr
	}
	return conversionErr
}

// MustMutableFlatData is like MutableFlatData, but panics on error.
func MustMutableFlatData[T dtypes.Supported](t *Tensor, accessFn func(flat []T)) {
	must.M(MutableFlatData(t, accessFn))
}

// AssignFlatData will copy over the values in fromFlat to the storage used by toTensor.
// It returns an error if the dtypes are not compatible or if the size is wrong.
func AssignFlatData[T dtypes.Supported](toTensor *Tensor, fromFlat []T) error {
	var lenErr error
	accessErr := MutableFlatData(toTensor, func(toFlat []T) {
		if len(toFlat) != len(fromFlat) {
			var v T
			lenErr = errors.Errorf("AssignFlatData[%T] is trying to store %d values into shape %s, which requires %d values",
				v, len(fromFlat), toTensor.Shape(), toTensor.Shape().Size())
			return
		}
		copy(toFlat, fromFlat)
	})
	if accessErr != nil {
		return accessErr
	}
	return lenErr
}

// ToScalar returns the scalar value of the Tensor.
//
// It will panic if the given generic type doesn't match the DType of the tensor, or if the tensor is not a scalar.
func ToScalar[T dtypes.Supported](t *Tensor) T {
	var value T
	MustConstFlatData(t, func(flat []T) {
		if !t.shape.IsScalar() {
			exceptions.Panicf("ToScalar[%T] requires scalar Tensor, got shape %s instead", value, t.shape)
		}
		value = flat[0]
	})
	return value
}

// CopyFlatData returns a copy of the flat data of the Tensor.
func CopyFlatData[T dtypes.Supported](t *Tensor) ([]T, error) {
	var flatCopy []T
	err := ConstFlatData(t, func(flat []T) {
		flatCopy = xslices.Copy(flat)
	})
	return flatCopy, err
}

// MustCopyFlatData is like CopyFlatData, but panics on error.
func MustCopyFlatData[T dtypes.Supported](t *Tensor) []T {
	return must.M1(CopyFlatData[T](t))
}

// MultiDimensionSlice lists the Go types a Tensor can be converted to/from. There are no recursions in
// generics' constraint definitions, so we list up to 5 levels of slices. The implementation works with
// any arbitrary number, see FromAnyValue.
type MultiDimensionSlice interface {
	bool | float32 | float64 | int | int32 | int64 | uint8 | uint32 | uint64 | complex64 | complex128 |
		[]bool | []float32 | []float64 | []int | []int32 | []int64 | []uint8 | []uint32 | []uint64 | []complex64 | []complex128 |
		[][]bool | [][]float32 | [][]float64 | [][]int | [][]int32 | [][]int64 | [][]uint8 | [][]uint32 | [][]uint64 | [][]complex64 | [][]complex128 |
		[][][]bool | [][][]float32 | [][][]float64 | [][][]int | [][][]int32 | [][][]int64 | [][][]uint8 | [][][]uint32 | [][][]uint64 | [][][]complex64 | [][][]complex128 |
		[][][][]bool | [][][][]float32 | [][][][]float64 | [][][][]int | [][][][]int32 | [][][][]int64 | [][][][]uint8 | [][][][]uint32 | [][][][]uint64 | [][][][]complex64 | [][][][]complex128
}

// LayoutStrides return the strides for each axis. This can be handy when manipulating the flat data.
func (t *Tensor) LayoutStrides() (strides []int) {
	return t.shape.Strides()
}

// Value returns a multidimensional slice (except if the shape is a scalar) containing a copy of the values stored
// in the tensor.
// This is expensive and usually only used for smaller tensors in tests and to print results.
//
// It panics if the tensor is invalid.
func (t *Tensor) Value() any {
	return must.M1(t.ValueSafe())
}

// ValueSafe returns a multidimensional slice (except if the shape is a scalar) containing a copy of the values stored
// in the tensor.
func (t *Tensor) ValueSafe() (any, error) {
	var mdSlice any
	err := t.ConstFlatData(func(flat any) {
		if t.shape.IsScalar() {
			mdSlice = reflect.ValueOf(flat).Index(0).Interface()
			return
		}
		flatCopyV := reflect.MakeSlice(reflect.SliceOf(t.shape.DType.GoType()), t.Size(), t.Size())
		reflect.Copy(flatCopyV, reflect.ValueOf(flat))
		mdSlice = convertDataToSlices(flatCopyV, t.shape.Dimensions...).Interface()
	})
	if err != nil {
		return nil, err
	}
	return mdSlice, nil
}

// FromScalar creates a local tensor with the given scalar.
// The `DType` is inferred from the value.
func FromScalar[T dtypes.Supported](value T) (t *Tensor) {
	return FromScalarAndDimensions(value)
}

// FromScalarAndDimensions creates a local tensor with the given dimensions, filled with the
// given scalar value replicated everywhere.
// The `DType` is inferred from the value.
func FromScalarAndDimensions[T dtypes.Supported](value T, dimensions ...int) *Tensor {
	dtype := dtypes.FromGenericsType[T]()
	shape := shapes.Make(dtype, dimensions...)
	if reflect.TypeOf(value) == intType {
		// Go's int maps to Int32 or Int64 depending on the platform: convert explicitly.
		flat := shapes.CastAsDType(xslices.SliceWithValue(shape.Size(), value), dtype)
		return must.M1(FromFlatAny(shape, flat))
	}
	t := FromShape(shape)
	MustMutableFlatData(t, func(flat []T) {
		xslices.FillSlice(flat, value)
	})
	return t
}

// FromFlatDataAndDimensions creates a tensor with the given dimensions, filled with the flattened values given in `data`.
// The data is copied to the Tensor.
// The `DType` is inferred from the `data` type.
//
// It panics if the size of data is wrong for the shape.
func FromFlatDataAndDimensions[T dtypes.Supported](data []T, dimensions ...int) *Tensor {
	dtype := dtypes.FromGenericsType[T]()
	shape := shapes.Make(dtype, dimensions...)
	if len(data) != shape.Size() {
		exceptions.Panicf("FromFlatDataAndDimensions(%s): data size is %d, but dimensions size is %d",
			shape, len(data), shape.Size())
	}
	var dummy T
	if reflect.TypeOf(dummy) == intType {
		// Go's int maps to Int32 or Int64 depending on the platform: convert explicitly.
		return must.M1(FromFlatAny(shape, shapes.CastAsDType(data, dtype)))
	}
	return must.M1(FromFlatAny(shape, xslices.Copy(data)))
}

// FromValue returns a tensor constructed from the given multi-dimension slice (or scalar).
// If the rank of the `value` is larger than 1, the shape of all sub-slices must be the same.
//
// It panics if the shape is not regular.
func FromValue[S MultiDimensionSlice](value S) *Tensor {
	return FromAnyValue(value)
}

// FromAnyValue is a non-generic version of FromValue.
// The input is expected to be either a scalar or a slice of slices with homogeneous dimensions.
// If the input is a tensor already, it is simply returned.
//
// It panics with an error if the value type is unsupported or the shape is not regular.
func FromAnyValue(value any) *Tensor {
	return must.M1(FromAnyValueE(value))
}

// FromAnyValueE is like FromAnyValue, but returns an error instead of panicking.
func FromAnyValueE(value any) (*Tensor, error) {
	if valueT, ok := value.(*Tensor); ok {
		return valueT, nil
	}
	shape, err := shapeForValue(value)
	if err != nil {
		return nil, errors.WithMessagef(err, "cannot create tensor from %T", value)
	}
	if baseType(reflect.TypeOf(value)) == intType {
		value = shapes.CastAsDType(value, shape.DType)
	}
	t := FromShape(shape)
	t.MustMutableFlatData(func(flatAny any) {
		flatV := reflect.ValueOf(flatAny)
		if shape.IsScalar() {
			flatV.Index(0).Set(reflect.ValueOf(value))
			return
		}
		copySlicesRecursively(flatV, reflect.ValueOf(value), t.LayoutStrides())
	})
	return t, nil
}

// copySlicesRecursively copy values on a multi-dimension slice to a flat data slice
// assuming the strides for each dimension.
func copySlicesRecursively(data reflect.Value, mdSlice reflect.Value, strides []int) {
	if len(strides) == 1 {
		reflect.Copy(data, mdSlice)
		return
	}
	subStrides := strides[1:]
	for ii := 0; ii < mdSlice.Len(); ii++ {
		subData := data.Slice(ii*strides[0], (ii+1)*strides[0])
		copySlicesRecursively(subData, mdSlice.Index(ii), subStrides)
	}
}

// convertDataToSlices takes data as a flat slice and creates a multidimensional slice with the given dimensions that
// points to the given data.
func convertDataToSlices(dataV reflect.Value, dimensions ...int) reflect.Value {
	if len(dimensions) <= 1 {
		return dataV
	}
	resultT := dataV.Type().Elem()
	for range dimensions {
		resultT = reflect.SliceOf(resultT)
	}
	strides := make([]int, len(dimensions))
	currentStride := 1
	for axis := len(dimensions) - 1; axis >= 0; axis-- {
		strides[axis] = currentStride
		currentStride *= dimensions[axis]
	}
	return createSlicesRecursively(resultT, dataV, dimensions, strides)
}

// createSlicesRecursively creates the nested slices pointing to the flat data.
func createSlicesRecursively(resultT reflect.Type, data reflect.Value, dimensions []int, strides []int) reflect.Value {
	if len(strides) == 1 {
		return data
	}
	numElements := dimensions[0]
	slice := reflect.MakeSlice(resultT, numElements, numElements)
	for ii := 0; ii < numElements; ii++ {
		subData := data.Slice(ii*strides[0], (ii+1)*strides[0])
		slice.Index(ii).Set(createSlicesRecursively(resultT.Elem(), subData, dimensions[1:], strides[1:]))
	}
	return slice
}

func shapeForValue(v any) (shapes.Shape, error) {
	if v == nil {
		return shapes.Invalid(), errors.New("nil value")
	}
	var shape shapes.Shape
	err := shapeForValueRecursive(&shape, reflect.ValueOf(v), reflect.TypeOf(v))
	return shape, err
}

func shapeForValueRecursive(shape *shapes.Shape, v reflect.Value, t reflect.Type) error {
	switch t.Kind() {
	case reflect.Slice:
		t = t.Elem()
		shape.Dimensions = append(shape.Dimensions, v.Len())
		shapePrefix := shape.Clone()
		if v.Len() == 0 {
			return errors.Errorf("value with empty slice not valid for Tensor conversion: %T -- "+
				"tensors with zero-dimensions can't be represented generically using Go slices, use FromShape instead",
				v.Interface())
		}
		err := shapeForValueRecursive(shape, v.Index(0), t)
		if err != nil {
			return err
		}
		for ii := 1; ii < v.Len(); ii++ {
			shapeTest := shapePrefix.Clone()
			err = shapeForValueRecursive(&shapeTest, v.Index(ii), t)
			if err != nil {
				return err
			}
			if !shape.Equal(shapeTest) {
				return errors.Errorf("sub-slices have irregular shapes, found shapes %s, and %s", shape, shapeTest)
			}
		}

	case reflect.Pointer:
		return errors.Errorf("cannot convert Pointer (%s) to a concrete value for tensors", t)

	default:
		shape.DType = dtypes.FromGoType(t)
		if shape.DType == dtypes.InvalidDType {
			return errors.Errorf("cannot convert type %s to a value concrete tensor type", t)
		}
	}
	return nil
}

// baseType returns the underlying type of a multi-dimension slice. So `baseType([][]int{})` would return the
// type `int`.
func baseType(valueType reflect.Type) reflect.Type {
	for valueType.Kind() == reflect.Slice || valueType.Kind() == reflect.Array {
		valueType = valueType.Elem()
	}
	return valueType
}

// Equal checks whether t == otherTensor: same shape and same values.
// If they are the same pointer, they are considered equal.
// If either side is invalid (nil), it panics.
func (t *Tensor) Equal(otherTensor *Tensor) bool {
	t.AssertValid()
	otherTensor.AssertValid()
	if t == otherTensor {
		return true
	}
	if !t.shape.Equal(otherTensor.shape) {
		return false
	}
	equal := true
	must.M(ConstFlatDataMany([]*Tensor{t, otherTensor}, func(flats []any) {
		t0V, t1V := reflect.ValueOf(flats[0]), reflect.ValueOf(flats[1])
		for ii := range t0V.Len() {
			if !t0V.Index(ii).Equal(t1V.Index(ii)) {
				equal = false
				return
			}
		}
	}))
	return equal
}

// InDelta checks whether Abs(t - otherTensor) <= delta for every element.
// If they are the same pointer, they are considered equal.
// If the shapes are different, it returns false.
// If either is invalid (nil), it panics.
func (t *Tensor) InDelta(otherTensor *Tensor, delta float64) bool {
	t.AssertValid()
	otherTensor.AssertValid()
	if t == otherTensor {
		return true
	}
	if !t.shape.Equal(otherTensor.shape) {
		return false
	}
	if t.shape.IsZeroSize() {
		return true
	}
	inDelta := true
	must.M(ConstFlatDataMany([]*Tensor{t, otherTensor}, func(flats []any) {
		inDelta = xslices.SlicesInDelta(flats[0], flats[1], delta)
	}))
	return inDelta
}

// GoStr converts to string, using a Go-syntax representation that can be copied&pasted back to code.
func (t *Tensor) GoStr() string {
	t.AssertValid()
	if t.Shape().IsZeroSize() {
		return t.shape.String()
	}
	value := t.Value()
	if t.IsScalar() {
		return fmt.Sprintf("%s(%v)", t.shape.DType.GoStr(), value)
	}
	return fmt.Sprintf("%s: %#v", t.shape, value)
}
