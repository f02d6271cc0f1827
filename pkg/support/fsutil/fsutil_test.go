// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package fsutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFileExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "x.npy")
	exists, err := FileExists(path)
	require.NoError(t, err)
	require.False(t, exists)
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	exists, err = FileExists(path)
	require.NoError(t, err)
	require.True(t, exists)
}

func TestReplaceTilde(t *testing.T) {
	got, err := ReplaceTilde("/tmp/a.csv")
	require.NoError(t, err)
	require.Equal(t, "/tmp/a.csv", got)

	got, err = ReplaceTilde("~/a.csv")
	require.NoError(t, err)
	require.NotContains(t, got, "~")
	require.Equal(t, "a.csv", filepath.Base(got))
}

func TestExt(t *testing.T) {
	require.Equal(t, "npy", Ext("a/b.NPY"))
	require.Equal(t, "", Ext("noext"))
	require.Equal(t, "gz", Ext("x.tar.gz"))
}
