// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package xslices provide missing functionality to the slices package, mostly the
// gather/scatter style manipulations used when rearranging loop dimensions.
package xslices

import (
	"slices"

	"github.com/gomlx/opfusion/pkg/support/sets"
	"golang.org/x/exp/constraints"
)

// At takes an element at the given `index`, where `index` can be negative, in which case it takes from the end
// of the slice.
func At[T any](slice []T, index int) T {
	if index < 0 {
		index = len(slice) + index
	}
	return slice[index]
}

// Last returns the last element of a slice.
func Last[T any](slice []T) T {
	return At(slice, -1)
}

// Copy creates a new (shallow) copy of T. A short cut to a call to `make` and then `copy`.
func Copy[T any](slice []T) []T {
	if len(slice) == 0 {
		return nil
	}
	slice2 := make([]T, len(slice))
	copy(slice2, slice)
	return slice2
}

// Iota returns a slice of incremental int values, starting with start and of length len.
// Eg: Iota(3, 2) -> []int{3, 4}
func Iota[T constraints.Integer](start T, len int) (slice []T) {
	slice = make([]T, len)
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

// FlatMap maps every element to a slice and concatenates the results, in order.
func FlatMap[In, Out any](in []In, fn func(e In) []Out) (out []Out) {
	for _, e := range in {
		out = append(out, fn(e)...)
	}
	return
}

// Concat returns a new slice with the elements of all given slices, in order.
func Concat[T any](parts ...[]T) []T {
	var total int
	for _, part := range parts {
		total += len(part)
	}
	out := make([]T, 0, total)
	for _, part := range parts {
		out = append(out, part...)
	}
	return out
}

// UniqueConcat returns the elements of first followed by the elements of second, keeping only the
// first occurrence of each element. The relative order of the kept elements is preserved.
func UniqueConcat[T comparable](first, second []T) []T {
	set := sets.MakeOrdered(first...)
	set.Insert(second...)
	return set.Elements()
}

// Gather returns slice[indices[0]], slice[indices[1]], ...
//
// It panics (like a slice access) if an index is out of range.
func Gather[T any, I constraints.Integer](slice []T, indices []I) []T {
	out := make([]T, len(indices))
	for ii, idx := range indices {
		out[ii] = slice[idx]
	}
	return out
}

// ExcludeIndex returns the indices in [0, size) that are not listed in excluded, in increasing order.
func ExcludeIndex[I constraints.Integer](size int, excluded []I) []I {
	out := make([]I, 0, size)
	for _, idx := range Iota(I(0), size) {
		if !slices.Contains(excluded, idx) {
			out = append(out, idx)
		}
	}
	return out
}

// InsertAt returns a new slice of length len(slice)+len(positions), where every position listed in
// positions (indices in the output) is filled with fill, and the remaining positions take the elements
// of slice in order.
//
// Positions beyond the output length are ignored, which means the output will have fewer slice elements.
// Callers are expected to validate positions before.
func InsertAt[T any, I constraints.Integer](slice []T, positions []I, fill T) []T {
	out := make([]T, len(slice)+len(positions))
	pointer := 0
	for ii := range out {
		if slices.Contains(positions, I(ii)) || pointer >= len(slice) {
			out[ii] = fill
			continue
		}
		out[ii] = slice[pointer]
		pointer++
	}
	return out
}

// AnyIn returns whether any element of first is also present in second.
func AnyIn[T comparable](first, second []T) bool {
	for _, e := range first {
		if slices.Contains(second, e) {
			return true
		}
	}
	return false
}

// Filter returns the elements of slice for which keep returns true, in order.
func Filter[T any](slice []T, keep func(e T) bool) (out []T) {
	for _, e := range slice {
		if keep(e) {
			out = append(out, e)
		}
	}
	return
}
