// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package csvio reads and writes scalars, vectors and matrices as headerless CSV files.
//
// A matrix is stored one row per line, a vector as a single line and a scalar as a single value.
// On load the shape is inferred back from the grid: 1x1 becomes a scalar, 1xN a vector, and MxN a matrix.
package csvio

import (
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/pkg/errors"
	"github.com/tensorn/tensorn/pkg/core/dtypes"
	"github.com/tensorn/tensorn/pkg/core/dtypes/bfloat16"
	"github.com/tensorn/tensorn/pkg/core/shapes"
	"github.com/tensorn/tensorn/pkg/core/tensors"
	"github.com/x448/float16"
	"k8s.io/klog/v2"
)

// ErrUnsupportedRank is returned when trying to write a tensor with rank > 2.
var ErrUnsupportedRank = errors.New("csv supports only tensors of rank 0, 1 or 2")

// Write t as CSV to w.
func Write(t *tensors.Tensor, w io.Writer) error {
	if err := t.CheckValid(); err != nil {
		return err
	}
	shape := t.Shape()
	var numRows, numCols int
	switch shape.Rank() {
	case 0:
		numRows, numCols = 1, 1
	case 1:
		numRows, numCols = 1, shape.Dimensions[0]
	case 2:
		numRows, numCols = shape.Dimensions[0], shape.Dimensions[1]
	default:
		return errors.Wrapf(ErrUnsupportedRank, "cannot write tensor shaped %s", shape)
	}
	if numRows == 0 || numCols == 0 {
		return errors.Errorf("cannot write empty tensor shaped %s as CSV", shape)
	}

	var columns []series.Series
	err := t.ConstFlatData(func(flat any) {
		cells := formatValues(flat)
		columns = make([]series.Series, numCols)
		colValues := make([]string, numRows)
		for col := range numCols {
			for row := range numRows {
				colValues[row] = cells[row*numCols+col]
			}
			columns[col] = series.New(colValues, series.String, "X"+strconv.Itoa(col))
		}
	})
	if err != nil {
		return err
	}
	df := dataframe.New(columns...)
	if df.Err != nil {
		return errors.Wrapf(df.Err, "failed to build CSV data for tensor shaped %s", shape)
	}
	if err = df.WriteCSV(w, dataframe.WriteHeader(false)); err != nil {
		return errors.Wrapf(err, "failed to write CSV")
	}
	return nil
}

// formatValues converts each value of a flat slice to its shortest string representation.
func formatValues(flat any) []string {
	switch values := flat.(type) {
	case []float64:
		return mapStrings(values, func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) })
	case []float32:
		return mapStrings(values, func(v float32) string { return strconv.FormatFloat(float64(v), 'g', -1, 32) })
	case []float16.Float16:
		return mapStrings(values, func(v float16.Float16) string {
			return strconv.FormatFloat(float64(v.Float32()), 'g', -1, 32)
		})
	case []bfloat16.BFloat16:
		return mapStrings(values, func(v bfloat16.BFloat16) string {
			return strconv.FormatFloat(float64(v.Float32()), 'g', -1, 32)
		})
	case []complex64:
		return mapStrings(values, func(v complex64) string { return strconv.FormatComplex(complex128(v), 'g', -1, 64) })
	case []complex128:
		return mapStrings(values, func(v complex128) string { return strconv.FormatComplex(v, 'g', -1, 128) })
	case []bool:
		return mapStrings(values, strconv.FormatBool)
	}
	if values, ok := flat.([]uint64); ok {
		return mapStrings(values, func(v uint64) string { return strconv.FormatUint(v, 10) })
	}
	// Other integer types fit in an int64.
	asInt := shapes.CastAsDType(flat, dtypes.Int64).([]int64)
	return mapStrings(asInt, func(v int64) string { return strconv.FormatInt(v, 10) })
}

func mapStrings[T any](values []T, fn func(T) string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = fn(v)
	}
	return out
}

// Read parses CSV from r into a tensor of the given dtype.
//
// It returns an error for empty input, rows with different numbers of fields, or values that can't be parsed
// as dtype.
func Read(r io.Reader, dtype dtypes.DType) (*tensors.Tensor, error) {
	if !dtype.IsNumber() && dtype != dtypes.Bool {
		return nil, errors.Errorf("cannot read CSV as dtype %s", dtype)
	}
	df := dataframe.ReadCSV(r,
		dataframe.HasHeader(false),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String))
	if df.Err != nil {
		return nil, errors.Wrapf(df.Err, "failed to parse CSV")
	}
	numRows, numCols := df.Dims()
	if numRows == 0 || numCols == 0 {
		return nil, errors.New("empty CSV")
	}

	cells := make([]string, numRows*numCols)
	for col := range numCols {
		for row, record := range df.Col(df.Names()[col]).Records() {
			cells[row*numCols+col] = strings.TrimSpace(record)
		}
	}
	flat, err := parseValues(cells, dtype)
	if err != nil {
		return nil, err
	}

	var shape shapes.Shape
	switch {
	case numRows == 1 && numCols == 1:
		shape = shapes.Make(dtype)
	case numRows == 1:
		shape = shapes.Make(dtype, numCols)
	default:
		shape = shapes.Make(dtype, numRows, numCols)
	}
	return tensors.FromFlatAny(shape, flat)
}

// parseValues parses the cells into a flat slice of the Go type of dtype.
func parseValues(cells []string, dtype dtypes.DType) (any, error) {
	var parsed any
	var err error
	switch {
	case dtype == dtypes.Bool:
		parsed, err = parseAll(cells, strconv.ParseBool)
	case dtype.IsComplex():
		parsed, err = parseAll(cells, func(s string) (complex128, error) { return strconv.ParseComplex(s, 128) })
	case dtype.IsUnsigned():
		var values []uint64
		values, err = parseAll(cells, func(s string) (uint64, error) { return strconv.ParseUint(s, 10, 64) })
		if err == nil {
			err = dtypes.CheckIntRange(dtype, values)
		}
		parsed = values
	case dtype.IsInt():
		var values []int64
		values, err = parseAll(cells, func(s string) (int64, error) { return strconv.ParseInt(s, 10, 64) })
		if err == nil {
			err = dtypes.CheckIntRange(dtype, values)
		}
		parsed = values
	default:
		parsed, err = parseAll(cells, func(s string) (float64, error) { return strconv.ParseFloat(s, 64) })
	}
	if err != nil {
		return nil, errors.WithMessagef(err, "reading CSV as %s", dtype)
	}
	return shapes.CastAsDType(parsed, dtype), nil
}

func parseAll[T any](cells []string, parseFn func(string) (T, error)) ([]T, error) {
	values := make([]T, len(cells))
	for i, cell := range cells {
		v, err := parseFn(cell)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid CSV value %q at position %d", cell, i)
		}
		values[i] = v
	}
	return values, nil
}

// SaveFile writes t to filePath as CSV.
func SaveFile(t *tensors.Tensor, filePath string) (err error) {
	f, err := os.Create(filePath)
	if err != nil {
		return errors.Wrapf(err, "failed to create CSV file %q", filePath)
	}
	defer func() {
		closeErr := f.Close()
		if err == nil && closeErr != nil {
			err = errors.Wrapf(closeErr, "failed to close CSV file %q", filePath)
		} else if closeErr != nil {
			klog.Warningf("Failed to close %q after error: %v", filePath, closeErr)
		}
	}()
	return Write(t, f)
}

// LoadFile reads a CSV file into a tensor of the given dtype.
func LoadFile(filePath string, dtype dtypes.DType) (*tensors.Tensor, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open CSV file %q", filePath)
	}
	defer func() { _ = f.Close() }()
	t, err := Read(f, dtype)
	if err != nil {
		return nil, errors.WithMessagef(err, "while reading %q", filePath)
	}
	return t, nil
}
