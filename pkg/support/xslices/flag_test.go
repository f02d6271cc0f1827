// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package xslices

import (
	"flag"
	"io"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlagSetVar(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	values := FlagSetVar(fs, "values", []int{1, 2}, "list of ints", strconv.Atoi)
	assert.Equal(t, []int{1, 2}, *values)
	assert.Equal(t, "1,2", fs.Lookup("values").Value.String())

	require.NoError(t, fs.Parse([]string{"-values", "3, 4,5"}))
	assert.Equal(t, []int{3, 4, 5}, *values)

	require.NoError(t, fs.Parse([]string{"-values="}))
	assert.Empty(t, *values)

	fs.SetOutput(io.Discard)
	require.Error(t, fs.Parse([]string{"-values", "1,x"}))
}

