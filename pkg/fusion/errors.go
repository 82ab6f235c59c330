// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package fusion

import (
	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
)

// Error categories returned by the fusion engine. Use errors.Is to test for them.
//
// All of them are fatal to the fusion attempt being evaluated: the driver should treat the
// candidate fusion as invalid and not fuse.
var (
	// ErrUnimplemented is returned when merging an undefined ordered pair of pattern kinds, or
	// when a query (loop framework, output ops) is not defined for a pattern kind.
	ErrUnimplemented = errors.New("unimplemented for pattern kind")

	// ErrInvariantViolation is returned when a structural invariant doesn't hold, e.g. a reduce tree
	// that can't be attached to exactly one place of another reduce tree.
	ErrInvariantViolation = errors.New("fusion invariant violation")

	// ErrShapeIncompatible is returned when two loop shapes can't be aligned by broadcasting.
	ErrShapeIncompatible = errors.New("incompatible loop shapes")

	// ErrIndexOutOfRange is returned for invalid indices given by the caller (fake reduce
	// indices, padding positions, permutations).
	ErrIndexOutOfRange = errors.New("index out of range")
)

// throwf panics with an error of the given category. It is converted back to an error by catch at
// the exported API.
func throwf(category error, format string, args ...any) {
	panic(errors.Wrapf(category, format, args...))
}

// catch runs fn and converts a thrown error to a returned error.
func catch[T any](fn func() T) (result T, err error) {
	err = exceptions.TryCatch[error](func() { result = fn() })
	return
}
