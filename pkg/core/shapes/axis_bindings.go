// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package shapes

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// AxisBindings maps dimension symbols to concrete dimension values.
// Used to resolve symbolic shapes to concrete shapes, e.g. when reporting loop sizes.
type AxisBindings map[string]int64

// Key returns a canonical string representation for map keying.
// Format: "name1=val1,name2=val2" with names sorted alphabetically.
// Returns empty string for empty or nil bindings.
func (ab AxisBindings) Key() string {
	if len(ab) == 0 {
		return ""
	}
	names := make([]string, 0, len(ab))
	for name := range ab {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%s=%d", name, ab[name])
	}
	return strings.Join(parts, ",")
}

// ParseAxisBindings parses the format returned by Key, e.g.: "N=32,seq=128".
func ParseAxisBindings(text string) (AxisBindings, error) {
	bindings := make(AxisBindings)
	if strings.TrimSpace(text) == "" {
		return bindings, nil
	}
	for _, part := range strings.Split(text, ",") {
		name, valueStr, found := strings.Cut(part, "=")
		if !found {
			return nil, errors.Errorf("invalid axis binding %q, expected <name>=<value>", part)
		}
		name = strings.TrimSpace(name)
		value, err := strconv.ParseInt(strings.TrimSpace(valueStr), 10, 64)
		if err != nil || value <= 0 {
			return nil, errors.Errorf("invalid value for axis binding %q", part)
		}
		err = bindings.Merge(AxisBindings{name: value})
		if err != nil {
			return nil, err
		}
	}
	return bindings, nil
}

// Merge combines bindings from another AxisBindings into this one.
// Returns an error if there are conflicting values for the same axis name.
func (ab AxisBindings) Merge(other AxisBindings) error {
	for name, val := range other {
		if existing, ok := ab[name]; ok && existing != val {
			return errors.Errorf("conflicting values for axis %q: %d vs %d", name, existing, val)
		}
		ab[name] = val
	}
	return nil
}

// Resolve returns the static dimension bound to d, or d itself if it is static or unbound.
func (d DimExpr) Resolve(bindings AxisBindings) DimExpr {
	if d.IsStatic() {
		return d
	}
	if val, ok := bindings[d.symbol]; ok {
		return Static(val)
	}
	return d
}

// ResolveDims resolves every dimension of the list, see DimExpr.Resolve.
func ResolveDims(dims []DimExpr, bindings AxisBindings) []DimExpr {
	resolved := make([]DimExpr, len(dims))
	for ii, d := range dims {
		resolved[ii] = d.Resolve(bindings)
	}
	return resolved
}

// Resolve replaces symbols with concrete values from bindings.
// Symbols without a binding are kept. Static dimensions are unchanged.
func (s Shape) Resolve(bindings AxisBindings) Shape {
	return Shape{DType: s.DType, Dimensions: ResolveDims(s.Dimensions, bindings)}
}

// ExtractBindings gets axis bindings from a concrete shape matching a symbolic pattern.
//
// Returns error if:
//   - Shapes have different ranks
//   - Shapes have different dtypes
//   - Static dimensions don't match
//   - Same symbol has conflicting values
func ExtractBindings(pattern, concrete Shape) (AxisBindings, error) {
	if pattern.Rank() != concrete.Rank() {
		return nil, errors.Errorf("rank mismatch: pattern has %d, concrete has %d",
			pattern.Rank(), concrete.Rank())
	}
	if pattern.DType != concrete.DType {
		return nil, errors.Errorf("dtype mismatch: pattern is %s, concrete is %s",
			pattern.DType, concrete.DType)
	}
	if !concrete.IsStatic() {
		return nil, errors.Errorf("shape %s is not concrete", concrete)
	}

	bindings := make(AxisBindings)
	for i, dim := range pattern.Dimensions {
		concreteVal := concrete.Dimensions[i].Value()
		if dim.IsSymbol() {
			if existing, ok := bindings[dim.Name()]; ok && existing != concreteVal {
				return nil, errors.Errorf("axis %q has conflicting values at dimension %d: %d vs %d",
					dim.Name(), i, existing, concreteVal)
			}
			bindings[dim.Name()] = concreteVal
		} else if dim.Value() != concreteVal {
			return nil, errors.Errorf("dimension %d mismatch: pattern has %d, concrete has %d",
				i, dim.Value(), concreteVal)
		}
	}
	return bindings, nil
}
