// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package xslices provide functionality missing from the standard slices package.
package xslices

import (
	"cmp"
	"math"
	"math/cmplx"
	"reflect"
	"slices"

	"github.com/tensorn/tensorn/pkg/core/dtypes/bfloat16"
	"github.com/x448/float16"
	"golang.org/x/exp/constraints"
)

// Copy creates a new (shallow) copy of T. A short cut to a call to `make` and then `copy`.
func Copy[T any](slice []T) []T {
	if slice == nil {
		return nil
	}
	slice2 := make([]T, len(slice))
	copy(slice2, slice)
	return slice2
}

// FillSlice fills a slice with the given value.
func FillSlice[T any](slice []T, value T) {
	if len(slice) == 0 {
		return
	}
	// Doubling copies are faster than a loop for large slices.
	slice[0] = value
	for filled := 1; filled < len(slice); filled *= 2 {
		copy(slice[filled:], slice[:filled])
	}
}

// SliceWithValue creates a slice of given size filled with given value.
func SliceWithValue[T any](size int, value T) []T {
	s := make([]T, size)
	FillSlice(s, value)
	return s
}

// Iota returns a slice of incremental values, starting with start and of the given length.
// E.g.: Iota(3, 2) -> [3, 4]
func Iota[T constraints.Integer | constraints.Float](start T, length int) (slice []T) {
	slice = make([]T, length)
	for ii := range slice {
		slice[ii] = start + T(ii)
	}
	return
}

// Map executes the given function sequentially for every element on in, and returns a mapped slice.
func Map[In, Out any](in []In, fn func(e In) Out) (out []Out) {
	out = make([]Out, len(in))
	for ii, e := range in {
		out[ii] = fn(e)
	}
	return
}

// SortedKeys returns the sorted keys of a map.
func SortedKeys[K cmp.Ordered, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// IsPermutation returns whether perm holds each of the values 0 to len(perm)-1 exactly once.
func IsPermutation[T constraints.Integer](perm []T) bool {
	seen := make([]bool, len(perm))
	for _, v := range perm {
		if v < 0 || int(v) >= len(perm) || seen[v] {
			return false
		}
		seen[v] = true
	}
	return true
}

// DeepSliceCmp returns false if the slices given are of different shapes, or if the given cmpFn
// function returns false for any corresponding element.
func DeepSliceCmp(s0, s1 any, cmpFn func(e0, e1 any) bool) bool {
	return recursiveDeepSliceCmp(reflect.ValueOf(s0), reflect.ValueOf(s1), cmpFn)
}

func recursiveDeepSliceCmp(s0, s1 reflect.Value, cmpFn func(e0, e1 any) bool) bool {
	if !s0.IsValid() || !s1.IsValid() {
		return false
	}
	if s0.Type().Kind() != s1.Type().Kind() {
		return false
	}
	if s0.Type().Kind() != reflect.Slice {
		return cmpFn(s0.Interface(), s1.Interface())
	}
	if s0.Len() != s1.Len() {
		return false
	}
	for ii := 0; ii < s0.Len(); ii++ {
		if !recursiveDeepSliceCmp(s0.Index(ii), s1.Index(ii), cmpFn) {
			return false
		}
	}
	return true
}

var float64Type = reflect.TypeOf(float64(0))

// SlicesInDelta checks whether multidimensional slices s0 and s1 have the same shape and types,
// and that each of their values are within the given delta. Complex values are compared by the
// absolute value of their difference. Float16 and BFloat16 values are compared as float64.
//
// If delta <= 0, it checks for equality.
func SlicesInDelta(s0, s1 any, delta float64) bool {
	cmpFn := func(e0, e1 any) bool {
		if reflect.TypeOf(e0) != reflect.TypeOf(e1) {
			return false
		}
		if reflect.DeepEqual(e0, e1) {
			return true
		}
		if delta <= 0 {
			return false
		}
		switch v0 := e0.(type) {
		case complex64:
			return cmplx.Abs(complex128(v0-e1.(complex64))) <= delta
		case complex128:
			return cmplx.Abs(v0-e1.(complex128)) <= delta
		case float16.Float16:
			return math.Abs(float64(v0.Float32())-float64(e1.(float16.Float16).Float32())) <= delta
		case bfloat16.BFloat16:
			return math.Abs(float64(v0.Float32())-float64(e1.(bfloat16.BFloat16).Float32())) <= delta
		}
		e0v, e1v := reflect.ValueOf(e0), reflect.ValueOf(e1)
		if !e0v.CanConvert(float64Type) || e0v.Kind() == reflect.Bool {
			return false
		}
		return math.Abs(e0v.Convert(float64Type).Float()-e1v.Convert(float64Type).Float()) <= delta
	}
	return DeepSliceCmp(s0, s1, cmpFn)
}
