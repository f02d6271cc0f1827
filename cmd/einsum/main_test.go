// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/janpfeifer/must"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tensorn/tensorn/pkg/core/dtypes"
	"github.com/tensorn/tensorn/pkg/core/tensors"
	"github.com/tensorn/tensorn/pkg/core/tensors/fileio"
)

// writeOperands saves a 2x3 matrix as CSV and a 3x2 matrix as npy.
func writeOperands(t *testing.T) (dir, aPath, bPath string) {
	dir = t.TempDir()
	aPath = filepath.Join(dir, "a.csv")
	require.NoError(t, os.WriteFile(aPath, []byte("1,2,3\n4,5,6\n"), 0o644))
	bPath = filepath.Join(dir, "b.npy")
	b := tensors.FromValue([][]float64{{1, 2}, {3, 4}, {5, 6}})
	require.NoError(t, fileio.Save(b, bPath, fileio.FormatAuto))
	return
}

func TestRunPrintsResult(t *testing.T) {
	_, aPath, bPath := writeOperands(t)
	var buf bytes.Buffer
	cfg := &runConfig{equation: "ij,jk->ik", paths: []string{aPath, bPath}, format: "auto", precision: 4}
	require.NoError(t, run(cfg, &buf))
	out := buf.String()
	assert.Contains(t, out, "Operands")
	assert.Contains(t, out, "a.csv")
	assert.Contains(t, out, "(Float64)[2 2]")
	assert.Contains(t, out, "22")
	assert.Contains(t, out, "64")
}

func TestRunSavesResult(t *testing.T) {
	dir, aPath, bPath := writeOperands(t)
	outPath := filepath.Join(dir, "out.json")
	var buf bytes.Buffer
	cfg := &runConfig{
		equation: "ij,jk->ik", paths: []string{aPath, bPath}, format: "auto",
		outPath: outPath, workers: 2, precision: 4,
	}
	require.NoError(t, run(cfg, &buf))
	assert.Contains(t, buf.String(), "Result")
	result := must.M1(fileio.Load(outPath, dtypes.InvalidDType, fileio.FormatAuto))
	assert.Equal(t, [][]float64{{22, 28}, {49, 64}}, result.Value())
}

func TestRunPlanOnly(t *testing.T) {
	_, aPath, bPath := writeOperands(t)
	var buf bytes.Buffer
	cfg := &runConfig{equation: "ij,jk->", paths: []string{aPath, bPath}, format: "auto", planOnly: true}
	require.NoError(t, run(cfg, &buf))
	out := buf.String()
	assert.Contains(t, out, "Plan")
	assert.Contains(t, out, "ij,jk->")
	assert.Contains(t, out, "j=3")
	assert.NotContains(t, out, "Result")
}

func TestRunWithProgress(t *testing.T) {
	_, aPath, bPath := writeOperands(t)
	var buf bytes.Buffer
	terminal := true
	cfg := &runConfig{
		equation: "ij,jk->ik", paths: []string{aPath, bPath}, format: "auto",
		progress: true, isTerminal: &terminal, precision: 4,
	}
	require.NoError(t, run(cfg, &buf))
	assert.Contains(t, buf.String(), "contracting")
}

func TestRunDTypes(t *testing.T) {
	_, aPath, bPath := writeOperands(t)
	var buf bytes.Buffer
	cfg := &runConfig{
		equation: "ij,jk->ik", paths: []string{aPath, bPath}, format: "auto",
		dtypes: []dtypes.DType{dtypes.Float32}, precision: 4,
	}
	require.NoError(t, run(cfg, &buf))
	assert.Contains(t, buf.String(), "(Float32)[2 2]")

	// Operands loaded with different dtypes can't be contracted.
	cfg.dtypes = []dtypes.DType{dtypes.Float32, dtypes.Float64}
	require.Error(t, run(cfg, &buf))

	cfg.dtypes = []dtypes.DType{dtypes.Float32, dtypes.Float32, dtypes.Float32}
	require.Error(t, run(cfg, &buf))
}

func TestRunErrors(t *testing.T) {
	dir, aPath, bPath := writeOperands(t)
	var buf bytes.Buffer
	testCases := []struct {
		name string
		cfg  *runConfig
	}{
		{"bad equation", &runConfig{equation: "ij,jk", paths: []string{aPath, bPath}, format: "auto"}},
		{"shape mismatch", &runConfig{equation: "ij,jk->ik", paths: []string{aPath, aPath}, format: "auto"}},
		{"missing file", &runConfig{equation: "ij->", paths: []string{filepath.Join(dir, "missing.csv")}, format: "auto"}},
		{"unknown format", &runConfig{equation: "ij->", paths: []string{aPath}, format: "xml"}},
		{"unknown out extension", &runConfig{equation: "ij->", paths: []string{aPath}, format: "auto",
			outPath: filepath.Join(dir, "out.txt")}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.Error(t, run(tc.cfg, &buf))
		})
	}
}
