// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package tensors

import (
	"bytes"
	"fmt"
	"reflect"
	"strings"

	"github.com/tensorn/tensorn/pkg/core/dtypes/bfloat16"
	"github.com/x448/float16"
)

// DefaultPrecision used by Tensor.String.
const DefaultPrecision = 4

// maxItemsPerAxis is the number of items on an axis above which the summary elides the middle items.
const maxItemsPerAxis = 6

var (
	typeFloat16  = reflect.TypeOf(float16.Float16(0))
	typeBFloat16 = reflect.TypeOf(bfloat16.BFloat16(0))
)

// Summary returns a multi-line summary of the Tensor's content, inspired by numpy output.
// Axes with more than 6 items only show the first 3 and the last 3.
//
// Example:
//
//	(Float64)[2 3]
//	[[1, 2, 3],
//	 [4, 5, 6]]
func (t *Tensor) Summary(precision int) string {
	if t.Shape().IsZeroSize() {
		return t.Shape().String()
	}
	var buf bytes.Buffer
	w := func(format string, args ...any) { _, _ = fmt.Fprintf(&buf, format, args...) }

	wValue := func(v reflect.Value) {
		switch v.Type() {
		case typeFloat16:
			w("%.*g", precision, v.Interface().(float16.Float16).Float32())
			return
		case typeBFloat16:
			w("%.*g", precision, v.Interface().(bfloat16.BFloat16).Float32())
			return
		}
		switch v.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			w("%d", v.Int())
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			w("%d", v.Uint())
		case reflect.Complex64, reflect.Complex128:
			c := v.Complex()
			w("(%.*g%+.*gi)", precision, real(c), precision, imag(c))
		case reflect.Bool:
			w("%v", v.Bool())
		default:
			w("%.*g", precision, v.Float())
		}
	}

	dims := t.Shape().Dimensions
	strides := t.Shape().Strides()
	w("%s\n", t.Shape())
	t.MustConstFlatData(func(flat any) {
		values := reflect.ValueOf(flat)
		if len(dims) == 0 {
			wValue(values.Index(0))
			return
		}

		var printAxis func(axis, offset int)
		printAxis = func(axis, offset int) {
			w("[")
			dim := dims[axis]
			for ii := 0; ii < dim; ii++ {
				if dim > maxItemsPerAxis && ii == 3 {
					if axis == len(dims)-1 {
						w("..., ")
					} else {
						w("...,\n%s", strings.Repeat(" ", axis+1))
					}
					ii = dim - 3
				}
				if axis == len(dims)-1 {
					wValue(values.Index(offset + ii))
				} else {
					printAxis(axis+1, offset+ii*strides[axis])
				}
				if ii < dim-1 {
					if axis == len(dims)-1 {
						w(", ")
					} else {
						w(",\n%s", strings.Repeat(" ", axis+1))
					}
				}
			}
			w("]")
		}
		printAxis(0, 0)
	})
	return buf.String()
}
