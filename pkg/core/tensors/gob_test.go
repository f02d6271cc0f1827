// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package tensors

import (
	"bytes"
	"encoding/gob"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tensorn/tensorn/pkg/core/dtypes"
	"github.com/tensorn/tensorn/pkg/core/shapes"
)

func TestGobSerialize(t *testing.T) {
	for _, tensor := range []*Tensor{
		FromValue([][]float32{{1, 2}, {3, 4}}),
		FromValue(int64(7)),
		FromShape(shapes.Make(dtypes.Float64, 2, 0)),
		FromValue([]complex64{1 + 2i}),
		Ones[float32](3).mustConvert(dtypes.BFloat16),
	} {
		buf := &bytes.Buffer{}
		require.NoError(t, tensor.GobSerialize(gob.NewEncoder(buf)))
		got, err := GobDeserialize(gob.NewDecoder(buf))
		require.NoError(t, err)
		require.Truef(t, tensor.Equal(got), "want %s, got %s", tensor, got)
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "t.gob")
	tensor := FromValue([][]int32{{1, 2, 3}, {4, 5, 6}})
	require.NoError(t, tensor.Save(path))
	loaded, err := Load(path)
	require.NoError(t, err)
	require.True(t, tensor.Equal(loaded))

	_, err = Load(filepath.Join(t.TempDir(), "missing.gob"))
	require.Error(t, err)
}

func (t *Tensor) mustConvert(dtype dtypes.DType) *Tensor {
	converted, err := ConvertDType(t, dtype)
	if err != nil {
		panic(err)
	}
	return converted
}
