// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package fileio saves and loads tensors in any of the supported file formats, picking the format from
// the file extension when asked to.
package fileio

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/tensorn/tensorn/pkg/core/dtypes"
	"github.com/tensorn/tensorn/pkg/core/tensors"
	"github.com/tensorn/tensorn/pkg/core/tensors/csvio"
	"github.com/tensorn/tensorn/pkg/core/tensors/jsonio"
	"github.com/tensorn/tensorn/pkg/core/tensors/numpy"
	"github.com/tensorn/tensorn/pkg/support/fsutil"
	"k8s.io/klog/v2"
)

// Format of a tensor file.
type Format int

const (
	FormatAuto Format = iota
	FormatCSV
	FormatNpy
	FormatNpz
	FormatJSON
	FormatGob
)

var formatNames = []string{"auto", "csv", "npy", "npz", "json", "gob"}

// String implements fmt.Stringer.
func (f Format) String() string {
	if f < 0 || int(f) >= len(formatNames) {
		return fmt.Sprintf("Format(%d)", int(f))
	}
	return formatNames[f]
}

// ErrUnknownFormat is returned when the format can't be determined or is not supported.
var ErrUnknownFormat = errors.New("unknown tensor file format")

// ParseFormat converts a format name ("csv", "npy", ...) or a file extension (".csv") to a Format.
func ParseFormat(name string) (Format, error) {
	name = strings.ToLower(strings.TrimPrefix(name, "."))
	for f, fName := range formatNames {
		if name == fName {
			return Format(f), nil
		}
	}
	return FormatAuto, errors.Wrapf(ErrUnknownFormat, "format %q", name)
}

// Resolve returns the concrete format for filePath: format itself, or the one inferred from the
// extension if format is FormatAuto.
func Resolve(filePath string, format Format) (Format, error) {
	if format != FormatAuto {
		if format < 0 || int(format) >= len(formatNames) {
			return FormatAuto, errors.Wrapf(ErrUnknownFormat, "format %d", int(format))
		}
		return format, nil
	}
	ext := fsutil.Ext(filePath)
	if ext == "" || ext == formatNames[FormatAuto] {
		return FormatAuto, errors.Wrapf(ErrUnknownFormat, "can't infer format of %q", filePath)
	}
	f, err := ParseFormat(ext)
	if err != nil {
		return FormatAuto, errors.WithMessagef(err, "can't infer format of %q", filePath)
	}
	return f, nil
}

// Save t to filePath in the given format. A leading "~" in filePath is expanded to the home directory.
func Save(t *tensors.Tensor, filePath string, format Format) error {
	filePath, err := fsutil.ReplaceTilde(filePath)
	if err != nil {
		return err
	}
	format, err = Resolve(filePath, format)
	if err != nil {
		return err
	}
	klog.V(2).Infof("saving %s to %q as %s", t.Shape(), filePath, format)
	switch format {
	case FormatCSV:
		return csvio.SaveFile(t, filePath)
	case FormatNpy:
		return numpy.ToNpyFile(t, filePath)
	case FormatNpz:
		return numpy.ToNpzFile(map[string]*tensors.Tensor{numpy.DefaultNpzName: t}, filePath)
	case FormatJSON:
		return jsonio.SaveFile(t, filePath)
	default:
		return t.Save(filePath)
	}
}

// Load a tensor from filePath in the given format, converting it to dtype if needed.
//
// CSV files carry no dtype, so their values are parsed directly as dtype. For the other formats, if dtype is
// dtypes.InvalidDType the tensor is returned with the dtype stored in the file.
func Load(filePath string, dtype dtypes.DType, format Format) (*tensors.Tensor, error) {
	filePath, err := fsutil.ReplaceTilde(filePath)
	if err != nil {
		return nil, err
	}
	format, err = Resolve(filePath, format)
	if err != nil {
		return nil, err
	}

	var t *tensors.Tensor
	switch format {
	case FormatCSV:
		csvDType := dtype
		if csvDType == dtypes.InvalidDType {
			csvDType = dtypes.Float64
		}
		t, err = csvio.LoadFile(filePath, csvDType)
	case FormatNpy:
		t, err = numpy.FromNpyFile(filePath)
	case FormatNpz:
		t, err = numpy.LoadNpzTensor(filePath)
	case FormatJSON:
		t, err = jsonio.LoadFile(filePath)
	default:
		t, err = tensors.Load(filePath)
	}
	if err != nil {
		return nil, err
	}
	klog.V(2).Infof("loaded %s from %q (%s)", t.Shape(), filePath, format)
	if dtype == dtypes.InvalidDType || t.DType() == dtype {
		return t, nil
	}
	converted, err := tensors.ConvertDType(t, dtype)
	if err != nil {
		return nil, errors.WithMessagef(err, "loading %q", filePath)
	}
	t.Finalize()
	return converted, nil
}
