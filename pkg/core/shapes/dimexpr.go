// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package shapes

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/pkg/errors"
)

// DimExpr is a symbolic dimension size: either a static (known) value or a named
// symbol whose value is only known at execution time (e.g.: the batch size "N").
//
// DimExpr is comparable: two expressions are equal if they are both static with the same
// value, or both the same symbol. A static dimension is never equal to a symbol, even if
// at execution time they would happen to have the same value.
type DimExpr struct {
	value  int64
	symbol string
}

// Static returns a DimExpr with a known value.
func Static(value int64) DimExpr {
	return DimExpr{value: value}
}

// Symbol returns a DimExpr for a named dimension.
// An empty name is not a valid symbol, and Symbol panics.
func Symbol(name string) DimExpr {
	if name == "" {
		panic(errors.New("shapes.Symbol() requires a non-empty name"))
	}
	return DimExpr{symbol: name}
}

// One is the static unit dimension, used for padding.
var One = Static(1)

// IsStatic returns whether the dimension is known.
func (d DimExpr) IsStatic() bool { return d.symbol == "" }

// IsSymbol returns whether the dimension is a named symbol.
func (d DimExpr) IsSymbol() bool { return d.symbol != "" }

// Value returns the static value. It is 0 for symbols.
func (d DimExpr) Value() int64 { return d.value }

// Name returns the symbol name, or "" for static dimensions.
func (d DimExpr) Name() string { return d.symbol }

// IsOne returns whether d is the static dimension 1. Symbols are never considered 1.
func (d DimExpr) IsOne() bool { return d.IsStatic() && d.value == 1 }

// String implements fmt.Stringer.
func (d DimExpr) String() string {
	if d.IsSymbol() {
		return d.symbol
	}
	return strconv.FormatInt(d.value, 10)
}

// StaticDims converts a list of static values to DimExpr.
func StaticDims(values ...int) []DimExpr {
	dims := make([]DimExpr, len(values))
	for ii, v := range values {
		dims[ii] = Static(int64(v))
	}
	return dims
}

// ParseDim parses either an integer ("4") or a symbol name ("N", "seq_len").
func ParseDim(text string) (DimExpr, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return DimExpr{}, errors.New("empty dimension")
	}
	if v, err := strconv.ParseInt(text, 10, 64); err == nil {
		if v <= 0 {
			return DimExpr{}, errors.Errorf("invalid dimension %d: must be > 0", v)
		}
		return Static(v), nil
	}
	for ii, r := range text {
		if r == '_' || unicode.IsLetter(r) || (ii > 0 && unicode.IsDigit(r)) {
			continue
		}
		return DimExpr{}, errors.Errorf("invalid dimension symbol %q", text)
	}
	return Symbol(text), nil
}

// JoinDims pretty-prints a list of dimensions separated by sep.
func JoinDims(dims []DimExpr, sep string) string {
	parts := make([]string, len(dims))
	for ii, d := range dims {
		parts[ii] = d.String()
	}
	return strings.Join(parts, sep)
}
