// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package jsonio reads and writes tensors as JSON documents of the form:
//
//	{
//	  "shape": [2, 3],
//	  "dtype": "Float32",
//	  "data": [1, 2, 3, 4, 5, 6]
//	}
//
// "data" holds the values flattened in row-major order. "dtype" is optional on read, and defaults to Float64.
// Complex dtypes are not supported.
package jsonio

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"reflect"
	"strconv"

	"github.com/pkg/errors"
	"github.com/tensorn/tensorn/pkg/core/dtypes"
	"github.com/tensorn/tensorn/pkg/core/dtypes/bfloat16"
	"github.com/tensorn/tensorn/pkg/core/shapes"
	"github.com/tensorn/tensorn/pkg/core/tensors"
	"github.com/x448/float16"
)

type document struct {
	Shape []int  `json:"shape"`
	DType string `json:"dtype,omitempty"`
	Data  []any  `json:"data"`
}

// Write t to w as an indented JSON document.
func Write(t *tensors.Tensor, w io.Writer) error {
	if err := t.CheckValid(); err != nil {
		return err
	}
	dtype := t.DType()
	if dtype.IsComplex() {
		return errors.Errorf("jsonio: complex dtype %s not supported", dtype)
	}
	doc := document{Shape: t.Shape().Dimensions, DType: dtype.String()}
	if doc.Shape == nil {
		doc.Shape = []int{}
	}
	err := t.ConstFlatData(func(flat any) {
		switch values := flat.(type) {
		case []float16.Float16:
			flat = tensors.Float16ToFloat32(values)
		case []bfloat16.BFloat16:
			flat = tensors.BFloat16ToFloat32(values)
		}
		doc.Data = toAnySlice(flat)
	})
	if err != nil {
		return err
	}
	encoded, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return errors.Wrapf(err, "jsonio: failed to encode tensor shaped %s", t.Shape())
	}
	encoded = append(encoded, '\n')
	if _, err = w.Write(encoded); err != nil {
		return errors.Wrapf(err, "jsonio: failed to write")
	}
	return nil
}

// toAnySlice boxes each value, which encoding/json then formats with the precision of its own type.
func toAnySlice(flat any) []any {
	flatV := reflect.ValueOf(flat)
	out := make([]any, flatV.Len())
	for i := range out {
		out[i] = flatV.Index(i).Interface()
	}
	return out
}

// Read a JSON document from r.
func Read(r io.Reader) (*tensors.Tensor, error) {
	decoder := json.NewDecoder(r)
	decoder.UseNumber()
	var doc document
	if err := decoder.Decode(&doc); err != nil {
		return nil, errors.Wrapf(err, "jsonio: failed to decode")
	}
	dtype := dtypes.Float64
	if doc.DType != "" {
		var err error
		dtype, err = dtypes.FromName(doc.DType)
		if err != nil {
			return nil, errors.WithMessagef(err, "jsonio: invalid dtype")
		}
	}
	if dtype.IsComplex() {
		return nil, errors.Errorf("jsonio: complex dtype %s not supported", dtype)
	}
	if doc.Shape == nil {
		return nil, errors.New(`jsonio: missing "shape"`)
	}
	shape, err := shapes.MakeE(dtype, doc.Shape...)
	if err != nil {
		return nil, errors.WithMessagef(err, "jsonio: invalid shape")
	}
	if len(doc.Data) != shape.Size() {
		return nil, errors.Errorf("jsonio: shape %s requires %d values, got %d", shape, shape.Size(), len(doc.Data))
	}
	flat, err := parseData(doc.Data, dtype)
	if err != nil {
		return nil, err
	}
	return tensors.FromFlatAny(shape, flat)
}

func parseData(data []any, dtype dtypes.DType) (any, error) {
	if dtype == dtypes.Bool {
		values := make([]bool, len(data))
		for i, v := range data {
			b, ok := v.(bool)
			if !ok {
				return nil, errors.Errorf("jsonio: value #%d (%v) is not a boolean", i, v)
			}
			values[i] = b
		}
		return values, nil
	}

	numbers := make([]json.Number, len(data))
	for i, v := range data {
		n, ok := v.(json.Number)
		if !ok {
			return nil, errors.Errorf("jsonio: value #%d (%v) is not a number", i, v)
		}
		numbers[i] = n
	}
	var parsed any
	var err error
	switch {
	case dtype.IsUnsigned():
		var values []uint64
		values, err = parseNumbers(numbers, func(s string) (uint64, error) { return strconv.ParseUint(s, 10, 64) })
		if err == nil {
			err = errors.WithMessage(dtypes.CheckIntRange(dtype, values), "jsonio")
		}
		parsed = values
	case dtype.IsInt():
		var values []int64
		values, err = parseNumbers(numbers, func(s string) (int64, error) { return strconv.ParseInt(s, 10, 64) })
		if err == nil {
			err = errors.WithMessage(dtypes.CheckIntRange(dtype, values), "jsonio")
		}
		parsed = values
	default:
		parsed, err = parseNumbers(numbers, func(s string) (float64, error) { return strconv.ParseFloat(s, 64) })
	}
	if err != nil {
		return nil, err
	}
	return shapes.CastAsDType(parsed, dtype), nil
}

func parseNumbers[T any](numbers []json.Number, parseFn func(string) (T, error)) ([]T, error) {
	values := make([]T, len(numbers))
	for i, n := range numbers {
		v, err := parseFn(n.String())
		if err != nil {
			return nil, errors.Wrapf(err, "jsonio: invalid value #%d", i)
		}
		values[i] = v
	}
	return values, nil
}

// SaveFile writes t to filePath as JSON.
func SaveFile(t *tensors.Tensor, filePath string) error {
	var buf bytes.Buffer
	if err := Write(t, &buf); err != nil {
		return err
	}
	if err := os.WriteFile(filePath, buf.Bytes(), 0o644); err != nil {
		return errors.Wrapf(err, "jsonio: failed to write %q", filePath)
	}
	return nil
}

// LoadFile reads a JSON tensor from filePath.
func LoadFile(filePath string) (*tensors.Tensor, error) {
	contents, err := os.ReadFile(filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "jsonio: failed to read %q", filePath)
	}
	t, err := Read(bytes.NewReader(contents))
	if err != nil {
		return nil, errors.WithMessagef(err, "while reading %q", filePath)
	}
	return t, nil
}
