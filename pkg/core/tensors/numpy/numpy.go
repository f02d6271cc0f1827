// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package numpy reads and writes tensors in NumPy's .npy and .npz file formats.
//
// Only numeric and boolean dtypes are supported. Data can be read in C (row-major) or Fortran (column-major)
// order and in either byte order; it is always written little-endian in C order.
package numpy

import (
	"archive/zip"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/tensorn/tensorn/pkg/core/dtypes"
	"github.com/tensorn/tensorn/pkg/core/shapes"
	"github.com/tensorn/tensorn/pkg/core/tensors"
	"github.com/tensorn/tensorn/pkg/support/xslices"
	"k8s.io/klog/v2"
)

const magic = "\x93NUMPY"

// DefaultNpzName is the name given to a single tensor stored in a .npz file, as numpy.savez does.
const DefaultNpzName = "arr_0"

var (
	reDescr   = regexp.MustCompile(`'descr'\s*:\s*'([^']*)'`)
	reFortran = regexp.MustCompile(`'fortran_order'\s*:\s*(True|False)`)
	reShape   = regexp.MustCompile(`'shape'\s*:\s*\(([^)]*)\)`)
)

// FromNpyFile reads a .npy file.
func FromNpyFile(filePath string) (*tensors.Tensor, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open .npy file %q", filePath)
	}
	defer func() { _ = f.Close() }()
	t, err := FromNpyReader(f)
	if err != nil {
		return nil, errors.WithMessagef(err, "while reading %q", filePath)
	}
	return t, nil
}

// npyHeader is the parsed contents of the .npy header dictionary.
type npyHeader struct {
	descr        string
	fortranOrder bool
	dimensions   []int
}

// FromNpyReader reads one .npy encoded tensor from r.
func FromNpyReader(r io.Reader) (*tensors.Tensor, error) {
	header, err := readNpyHeader(r)
	if err != nil {
		return nil, err
	}
	dtype, bigEndian, err := dtypeFromDescr(header.descr)
	if err != nil {
		return nil, err
	}
	shape, err := shapes.MakeE(dtype, header.dimensions...)
	if err != nil {
		return nil, errors.WithMessagef(err, "invalid .npy shape %v", header.dimensions)
	}

	raw := make([]byte, shape.Memory())
	if _, err = io.ReadFull(r, raw); err != nil {
		return nil, errors.Wrapf(err, "failed to read tensor data for %s (expected %d bytes)", shape, len(raw))
	}
	if bigEndian {
		swapBytes(raw, dtype)
	}

	t := tensors.FromShape(shape)
	err = t.MutableBytes(func(data []byte) {
		if !header.fortranOrder || shape.Rank() <= 1 {
			copy(data, raw)
			return
		}
		fortranToC(shape, raw, data)
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// readNpyHeader consumes the magic string, version, and header dictionary.
func readNpyHeader(r io.Reader) (*npyHeader, error) {
	preamble := make([]byte, len(magic)+2)
	if _, err := io.ReadFull(r, preamble); err != nil {
		return nil, errors.Wrapf(err, "failed to read .npy preamble")
	}
	if string(preamble[:len(magic)]) != magic {
		return nil, errors.Errorf("invalid .npy file: magic string mismatch")
	}
	major, minor := preamble[len(magic)], preamble[len(magic)+1]

	var headerLen int
	switch major {
	case 1:
		var lenBytes [2]byte
		if _, err := io.ReadFull(r, lenBytes[:]); err != nil {
			return nil, errors.Wrapf(err, "failed to read header length")
		}
		headerLen = int(binary.LittleEndian.Uint16(lenBytes[:]))
	case 2, 3:
		// Version 3 only differs by allowing utf8 in the header, which we don't need to handle differently.
		var lenBytes [4]byte
		if _, err := io.ReadFull(r, lenBytes[:]); err != nil {
			return nil, errors.Wrapf(err, "failed to read header length")
		}
		headerLen = int(binary.LittleEndian.Uint32(lenBytes[:]))
		if headerLen > 1<<24 {
			return nil, errors.Errorf(".npy header length %d is too large", headerLen)
		}
	default:
		return nil, errors.Errorf("unsupported .npy version %d.%d", major, minor)
	}

	headerBytes := make([]byte, headerLen)
	if _, err := io.ReadFull(r, headerBytes); err != nil {
		return nil, errors.Wrapf(err, "failed to read .npy header")
	}
	return parseNpyHeader(string(headerBytes))
}

// parseNpyHeader parses the Python dictionary literal of the header, e.g.:
// "{'descr': '<f4', 'fortran_order': False, 'shape': (1, 2, 3), }".
//
// It is not a Python parser: it only looks for the three keys the format requires.
func parseNpyHeader(header string) (*npyHeader, error) {
	h := &npyHeader{}
	m := reDescr.FindStringSubmatch(header)
	if m == nil {
		return nil, errors.Errorf("missing 'descr' in .npy header %q", header)
	}
	h.descr = m[1]

	m = reFortran.FindStringSubmatch(header)
	if m == nil {
		return nil, errors.Errorf("missing 'fortran_order' in .npy header %q", header)
	}
	h.fortranOrder = m[1] == "True"

	m = reShape.FindStringSubmatch(header)
	if m == nil {
		return nil, errors.Errorf("missing 'shape' in .npy header %q", header)
	}
	h.dimensions = []int{}
	for _, part := range strings.Split(m[1], ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			// Trailing comma of 1-tuples, or the empty tuple of scalars.
			continue
		}
		dim, err := strconv.Atoi(strings.TrimSuffix(part, "L"))
		if err != nil {
			return nil, errors.Wrapf(err, "invalid dimension %q in .npy header", part)
		}
		h.dimensions = append(h.dimensions, dim)
	}
	return h, nil
}

// dtypeFromDescr converts a NumPy type descriptor (e.g. "<f4") to a DType, and reports whether the data
// is big-endian.
func dtypeFromDescr(descr string) (dtype dtypes.DType, bigEndian bool, err error) {
	typeStr := descr
	if len(typeStr) > 0 {
		switch typeStr[0] {
		case '<', '|', '=':
			typeStr = typeStr[1:]
		case '>':
			bigEndian = true
			typeStr = typeStr[1:]
		}
	}
	switch typeStr {
	case "?", "b1":
		dtype = dtypes.Bool
	case "i1":
		dtype = dtypes.Int8
	case "u1":
		dtype = dtypes.Uint8
	case "i2":
		dtype = dtypes.Int16
	case "u2":
		dtype = dtypes.Uint16
	case "i4":
		dtype = dtypes.Int32
	case "u4":
		dtype = dtypes.Uint32
	case "i8":
		dtype = dtypes.Int64
	case "u8":
		dtype = dtypes.Uint64
	case "f2":
		dtype = dtypes.Float16
	case "f4":
		dtype = dtypes.Float32
	case "f8":
		dtype = dtypes.Float64
	case "c8":
		dtype = dtypes.Complex64
	case "c16":
		dtype = dtypes.Complex128
	default:
		err = errors.Errorf("unsupported NumPy dtype %q", descr)
	}
	return
}

// descrFromDType is the inverse of dtypeFromDescr, always little-endian.
func descrFromDType(dtype dtypes.DType) (string, error) {
	switch dtype {
	case dtypes.Bool:
		return "|b1", nil
	case dtypes.Int8:
		return "|i1", nil
	case dtypes.Uint8:
		return "|u1", nil
	case dtypes.Int16:
		return "<i2", nil
	case dtypes.Uint16:
		return "<u2", nil
	case dtypes.Int32:
		return "<i4", nil
	case dtypes.Uint32:
		return "<u4", nil
	case dtypes.Int64:
		return "<i8", nil
	case dtypes.Uint64:
		return "<u8", nil
	case dtypes.Float16:
		return "<f2", nil
	case dtypes.Float32:
		return "<f4", nil
	case dtypes.Float64:
		return "<f8", nil
	case dtypes.Complex64:
		return "<c8", nil
	case dtypes.Complex128:
		return "<c16", nil
	default:
		// BFloat16 has no standard NumPy descriptor.
		return "", errors.Errorf("dtype %s cannot be stored as .npy", dtype)
	}
}

// swapBytes converts raw from big-endian to little-endian in place. Complex numbers are swapped per component.
func swapBytes(raw []byte, dtype dtypes.DType) {
	wordSize := dtype.Size()
	if dtype.IsComplex() {
		wordSize /= 2
	}
	if wordSize <= 1 {
		return
	}
	for start := 0; start+wordSize <= len(raw); start += wordSize {
		word := raw[start : start+wordSize]
		for i, j := 0, wordSize-1; i < j; i, j = i+1, j-1 {
			word[i], word[j] = word[j], word[i]
		}
	}
}

// fortranToC copies column-major fortranData into the row-major cData.
func fortranToC(shape shapes.Shape, fortranData, cData []byte) {
	fortranStrides := make([]int, shape.Rank())
	stride := 1
	for axis, dim := range shape.Dimensions {
		fortranStrides[axis] = stride
		stride *= dim
	}
	elemSize := shape.DType.Size()
	for flatIdx, indices := range shape.Iter() {
		fortranIdx := 0
		for axis, idx := range indices {
			fortranIdx += idx * fortranStrides[axis]
		}
		src := fortranData[fortranIdx*elemSize : (fortranIdx+1)*elemSize]
		copy(cData[flatIdx*elemSize:(flatIdx+1)*elemSize], src)
	}
}

// ToNpyWriter writes t to w in .npy format (version 1.0, or 2.0 if the header is too large).
func ToNpyWriter(t *tensors.Tensor, w io.Writer) error {
	if err := t.CheckValid(); err != nil {
		return err
	}
	shape := t.Shape()
	descr, err := descrFromDType(shape.DType)
	if err != nil {
		return err
	}

	var shapeTuple string
	switch shape.Rank() {
	case 0:
		shapeTuple = "()"
	case 1:
		shapeTuple = fmt.Sprintf("(%d,)", shape.Dimensions[0])
	default:
		shapeTuple = "(" + strings.Join(xslices.Map(shape.Dimensions, strconv.Itoa), ", ") + ")"
	}
	var header bytes.Buffer
	_, _ = fmt.Fprintf(&header, "{'descr': '%s', 'fortran_order': False, 'shape': %s, }", descr, shapeTuple)

	// Preamble plus header is padded with spaces to a multiple of 64 bytes, ending in '\n'.
	version := byte(1)
	preambleLen := len(magic) + 2 + 2
	if header.Len()+preambleLen+1 > 0xFFFF {
		version = 2
		preambleLen += 2
	}
	for (preambleLen+header.Len()+1)%64 != 0 {
		header.WriteByte(' ')
	}
	header.WriteByte('\n')

	var preamble bytes.Buffer
	preamble.WriteString(magic)
	preamble.Write([]byte{version, 0})
	if version == 1 {
		_ = binary.Write(&preamble, binary.LittleEndian, uint16(header.Len()))
	} else {
		_ = binary.Write(&preamble, binary.LittleEndian, uint32(header.Len()))
	}
	if _, err = w.Write(preamble.Bytes()); err != nil {
		return errors.Wrapf(err, "failed to write .npy preamble")
	}
	if _, err = w.Write(header.Bytes()); err != nil {
		return errors.Wrapf(err, "failed to write .npy header")
	}

	var writeErr error
	err = t.ConstBytes(func(data []byte) {
		if len(data) == 0 {
			return
		}
		if _, writeErr = w.Write(data); writeErr != nil {
			writeErr = errors.Wrapf(writeErr, "failed to write tensor data")
		}
	})
	if err != nil {
		return err
	}
	return writeErr
}

// ToNpyFile writes t to filePath in .npy format.
func ToNpyFile(t *tensors.Tensor, filePath string) (err error) {
	f, err := os.Create(filePath)
	if err != nil {
		return errors.Wrapf(err, "failed to create .npy file %q", filePath)
	}
	defer func() {
		closeErr := f.Close()
		if err == nil && closeErr != nil {
			err = errors.Wrapf(closeErr, "failed to close .npy file %q", filePath)
		} else if closeErr != nil {
			klog.Warningf("Failed to close %q after error: %v", filePath, closeErr)
		}
	}()
	return ToNpyWriter(t, f)
}

// FromNpzFile reads all the arrays stored in a .npz file, keyed by their names (the member file name
// without the ".npy" suffix).
func FromNpzFile(filePath string) (map[string]*tensors.Tensor, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open .npz file %q", filePath)
	}
	defer func() { _ = f.Close() }()
	info, err := f.Stat()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to stat .npz file %q", filePath)
	}
	return FromNpzReader(f, info.Size())
}

// FromNpzReader reads all the arrays of a .npz archive. A .npz is a zip file, hence the io.ReaderAt.
func FromNpzReader(r io.ReaderAt, size int64) (map[string]*tensors.Tensor, error) {
	zipReader, err := zip.NewReader(r, size)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read .npz archive")
	}
	results := make(map[string]*tensors.Tensor)
	for _, member := range zipReader.File {
		cleanPath := path.Clean(member.Name)
		if path.IsAbs(cleanPath) || strings.HasPrefix(cleanPath, "..") {
			return nil, errors.Errorf("invalid path %q in .npz archive", member.Name)
		}
		if !strings.HasSuffix(member.Name, ".npy") {
			continue
		}
		rc, err := member.Open()
		if err != nil {
			return nil, errors.Wrapf(err, "failed to open %q within .npz", member.Name)
		}
		t, err := FromNpyReader(rc)
		_ = rc.Close()
		if err != nil {
			return nil, errors.WithMessagef(err, "failed to read array %q from .npz", member.Name)
		}
		results[strings.TrimSuffix(member.Name, ".npy")] = t
	}
	return results, nil
}

// LoadNpzTensor reads a .npz file and returns its DefaultNpzName array, or the first array in name order
// if there is no DefaultNpzName.
func LoadNpzTensor(filePath string) (*tensors.Tensor, error) {
	all, err := FromNpzFile(filePath)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, errors.Errorf("no arrays in .npz file %q", filePath)
	}
	name := DefaultNpzName
	if _, found := all[name]; !found {
		name = xslices.SortedKeys(all)[0]
	}
	for otherName, t := range all {
		if otherName != name {
			t.Finalize()
		}
	}
	return all[name], nil
}

// ToNpzWriter writes the tensors as a .npz archive to w, members in name order.
func ToNpzWriter(tensorsMap map[string]*tensors.Tensor, w io.Writer) error {
	zipWriter := zip.NewWriter(w)
	for _, name := range xslices.SortedKeys(tensorsMap) {
		npyName := name + ".npy"
		memberWriter, err := zipWriter.Create(npyName)
		if err != nil {
			return errors.Wrapf(err, "failed to create %q in .npz archive", npyName)
		}
		if err = ToNpyWriter(tensorsMap[name], memberWriter); err != nil {
			return errors.WithMessagef(err, "failed to write array %q to .npz archive", name)
		}
	}
	if err := zipWriter.Close(); err != nil {
		return errors.Wrapf(err, "failed to close .npz archive")
	}
	return nil
}

// ToNpzFile writes the tensors to filePath as a .npz archive.
func ToNpzFile(tensorsMap map[string]*tensors.Tensor, filePath string) (err error) {
	f, err := os.Create(filePath)
	if err != nil {
		return errors.Wrapf(err, "failed to create .npz file %q", filePath)
	}
	defer func() {
		closeErr := f.Close()
		if err == nil && closeErr != nil {
			err = errors.Wrapf(closeErr, "failed to close .npz file %q", filePath)
		} else if closeErr != nil {
			klog.Warningf("Failed to close %q after error: %v", filePath, closeErr)
		}
	}()
	return ToNpzWriter(tensorsMap, f)
}
