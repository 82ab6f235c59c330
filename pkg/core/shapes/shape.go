// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package shapes defines the symbolic Shape of values in an operation graph.
//
// Shape represents the DType and the dimensions of a value, where each dimension is a DimExpr:
// either a static size or a named symbol (e.g.: the batch size "N") only known at execution time.
// Fusion decisions are taken on these symbolic shapes, so two dimensions are considered equal
// only if they are provably equal (same static value, or same symbol).
//
// ## Glossary
//
//   - Rank: number of axes (dimensions) of a value.
//   - Axis: is the index of a dimension. We try to refer to a dimension index as "axis"
//     (plural axes), and its size as its dimension.
//   - Dimension: the size of a value in one of its axes, a DimExpr.
//   - DType: the data type of the unit element. Enumeration defined in github.com/gomlx/gopjrt/dtypes
//
// Example: `shapes.Make(dtypes.Float32, shapes.Symbol("N"), shapes.Static(128))` has rank 2, and
// prints as `(Float32)[N 128]`.
package shapes

import (
	"fmt"
	"slices"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
)

// Shape represents the symbolic shape of a value in an operation graph.
//
// Use Make or MakeStatic to create a new shape.
type Shape struct {
	DType      dtypes.DType
	Dimensions []DimExpr
}

// Make returns a Shape structure filled with the values given.
// It panics if a static dimension is <= 0.
func Make(dtype dtypes.DType, dimensions ...DimExpr) Shape {
	s := Shape{Dimensions: slices.Clone(dimensions), DType: dtype}
	for _, dim := range dimensions {
		if dim.IsStatic() && dim.Value() <= 0 {
			exceptions.Panicf("shapes.Make(%s): cannot create a shape with an axis with dimension <= 0", s)
		}
	}
	return s
}

// MakeStatic returns a Shape with only static dimensions.
func MakeStatic(dtype dtypes.DType, dimensions ...int) Shape {
	return Make(dtype, StaticDims(dimensions...)...)
}

// Invalid returns an invalid shape.
//
// Invalid().Ok() == false.
func Invalid() Shape {
	return Shape{DType: dtypes.InvalidDType}
}

// Ok returns whether this is a valid Shape. A "zero" shape, that is just instantiating it with Shape{} will be invalid.
func (s Shape) Ok() bool { return s.DType != dtypes.InvalidDType }

// Rank of the shape, that is, the number of dimensions.
func (s Shape) Rank() int { return len(s.Dimensions) }

// IsScalar returns whether the shape represents a scalar, that is there are no dimensions (rank==0).
func (s Shape) IsScalar() bool { return s.Ok() && s.Rank() == 0 }

// IsStatic returns whether all dimensions are static.
func (s Shape) IsStatic() bool {
	for _, dim := range s.Dimensions {
		if dim.IsSymbol() {
			return false
		}
	}
	return true
}

// Dim returns the dimension of the given axis. axis can take negative numbers, in which
// case it counts as starting from the end -- so axis=-1 refers to the last axis.
// Like with a slice indexing, it panics for an out-of-bound axis.
func (s Shape) Dim(axis int) DimExpr {
	adjustedAxis := axis
	if adjustedAxis < 0 {
		adjustedAxis += s.Rank()
	}
	if adjustedAxis < 0 || adjustedAxis >= s.Rank() {
		exceptions.Panicf("Shape.Dim(%d) out-of-bounds for rank %d (shape=%s)", axis, s.Rank(), s)
	}
	return s.Dimensions[adjustedAxis]
}

// Shape returns a shallow copy of itself. It implements the HasShape interface.
func (s Shape) Shape() Shape { return s }

// String implements stringer, pretty-prints the shape.
func (s Shape) String() string {
	if s.Rank() == 0 {
		return fmt.Sprintf("(%s)", s.DType)
	}
	return fmt.Sprintf("(%s)[%s]", s.DType, JoinDims(s.Dimensions, " "))
}

// Equal compares two shapes for equality: dtype and dimensions are compared.
func (s Shape) Equal(s2 Shape) bool {
	if s.DType != s2.DType {
		return false
	}
	return s.EqualDimensions(s2)
}

// EqualDimensions compares two shapes for equality of dimensions. Dtypes can be different.
func (s Shape) EqualDimensions(s2 Shape) bool {
	return slices.Equal(s.Dimensions, s2.Dimensions)
}

// Clone returns a new deep copy of the shape.
func (s Shape) Clone() (s2 Shape) {
	s2.DType = s.DType
	s2.Dimensions = slices.Clone(s.Dimensions)
	return
}

// HasShape is an interface for objects that have an associated Shape.
type HasShape interface {
	Shape() Shape
}

// CheckDims checks that the shape has the given dimensions and rank.
//
// It returns an error if the rank is different or if any of the dimensions don't match.
func (s Shape) CheckDims(dimensions ...DimExpr) error {
	if s.Rank() != len(dimensions) {
		return errors.Errorf("shape (%s) has incompatible rank %d (wanted %d)", s, s.Rank(), len(dimensions))
	}
	for ii, wantDim := range dimensions {
		if s.Dimensions[ii] != wantDim {
			return errors.Errorf("shape (%s) axis %d has dimension %s, wanted %s", s, ii, s.Dimensions[ii], wantDim)
		}
	}
	return nil
}

// AssertDims checks that the shape has the given dimensions and rank, and panics if it doesn't match.
func (s Shape) AssertDims(dimensions ...DimExpr) {
	if err := s.CheckDims(dimensions...); err != nil {
		panic(errors.WithMessagef(err, "shapes.AssertDims(%v)", dimensions))
	}
}
