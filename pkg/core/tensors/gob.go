// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package tensors

import (
	"encoding/gob"
	"os"
	"reflect"

	"github.com/pkg/errors"
	"github.com/tensorn/tensorn/pkg/core/shapes"
	"k8s.io/klog/v2"
)

// GobSerialize Tensor in binary format.
func (t *Tensor) GobSerialize(encoder *gob.Encoder) error {
	if err := t.CheckValid(); err != nil {
		return err
	}
	err := t.shape.GobSerialize(encoder)
	if err != nil {
		return err
	}
	accessErr := t.ConstFlatData(func(flat any) {
		err = encoder.Encode(flat)
		if err != nil {
			err = errors.Wrapf(err, "failed to write Tensor data")
		}
	})
	if accessErr != nil {
		return accessErr
	}
	return err
}

// GobDeserialize a Tensor from the decoder.
func GobDeserialize(decoder *gob.Decoder) (*Tensor, error) {
	shape, err := shapes.GobDeserialize(decoder)
	if err != nil {
		return nil, errors.WithMessagef(err, "failed to deserialize Tensor shape data")
	}
	flatPtrV := reflect.New(reflect.SliceOf(shape.DType.GoType()))
	err = decoder.Decode(flatPtrV.Interface())
	if err != nil {
		return nil, errors.Wrapf(err, "failed to deserialize Tensor data")
	}
	flatV := flatPtrV.Elem()
	if flatV.IsNil() {
		// Empty slices are decoded as nil.
		flatV = reflect.MakeSlice(flatV.Type(), 0, 0)
	}
	return FromFlatAny(shape, flatV.Interface())
}

// Save the tensor to the given file path, in Gob format.
func (t *Tensor) Save(filePath string) (err error) {
	if err = t.CheckValid(); err != nil {
		return err
	}
	f, err := os.Create(filePath)
	if err != nil {
		return errors.Wrapf(err, "creating %q to save tensor", filePath)
	}
	defer func() {
		closeErr := f.Close()
		if closeErr == nil {
			return
		}
		if err == nil {
			err = errors.Wrapf(closeErr, "close file %q, where tensor was saved", filePath)
		} else {
			klog.Warningf("failed to close %q after error: %v", filePath, closeErr)
		}
	}()
	err = t.GobSerialize(gob.NewEncoder(f))
	if err != nil {
		return errors.WithMessagef(err, "saving Tensor to %q", filePath)
	}
	return nil
}

// Load a tensor saved with Tensor.Save from the file path given.
func Load(filePath string) (*Tensor, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %q to load Tensor", filePath)
	}
	defer func() { _ = f.Close() }()
	t, err := GobDeserialize(gob.NewDecoder(f))
	if err != nil {
		return nil, errors.WithMessagef(err, "loading Tensor from %q", filePath)
	}
	return t, nil
}
