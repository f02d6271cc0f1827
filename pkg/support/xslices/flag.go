// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package xslices

import (
	"flag"
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Flag creates a comma-separated list flag for []T in the default flag.CommandLine set.
// parserFn parses each individual value.
func Flag[T any](name string, defaultValue []T, usage string, parserFn func(valueStr string) (T, error)) *[]T {
	return FlagSetVar(flag.CommandLine, name, defaultValue, usage, parserFn)
}

// FlagSetVar is like Flag, but defines the flag in the given flag set.
func FlagSetVar[T any](fs *flag.FlagSet, name string, defaultValue []T, usage string,
	parserFn func(valueStr string) (T, error)) *[]T {
	f := &sliceFlag[T]{
		values:   defaultValue,
		parserFn: parserFn,
	}
	fs.Var(f, name, usage)
	return &f.values
}

// sliceFlag implements flag.Value for a list of values of type T.
type sliceFlag[T any] struct {
	values   []T
	parserFn func(valueStr string) (T, error)
}

func (f *sliceFlag[T]) String() string {
	if f == nil || len(f.values) == 0 {
		return ""
	}
	return strings.Join(Map(f.values, func(v T) string { return fmt.Sprint(v) }), ",")
}

func (f *sliceFlag[T]) Set(listStr string) error {
	if listStr == "" {
		f.values = make([]T, 0)
		return nil
	}
	parts := strings.Split(listStr, ",")
	values := make([]T, len(parts))
	for ii, part := range parts {
		var err error
		values[ii], err = f.parserFn(strings.TrimSpace(part))
		if err != nil {
			return errors.WithMessagef(err, "parsing value #%d (%q) of list %q", ii, part, listStr)
		}
	}
	f.values = values
	return nil
}
