// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package fusionscript loads a graph and a fusion script from YAML, and replays the script with
// the fusion engine.
//
// A script describes the graph (inputs and ops), then the steps of a fusion driver (merges and lifts of
// patterns), and finally the patterns to return:
//
//	graph:
//	  inputs:
//	    - {name: x, dtype: Float32, dims: [N, 128]}
//	  ops:
//	    - {name: add, type: Add, inputs: [x, x]}
//	    - {name: sum, type: ReduceSum, inputs: [add], axes: [1]}
//	steps:
//	  - {name: p1, merge: [add, sum]}
//	returns: [p1]
//
// Every op starts with a pattern named after the op.
package fusionscript

import (
	"os"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/opfusion/pkg/core/opgraph"
	"github.com/gomlx/opfusion/pkg/core/shapes"
	"github.com/gomlx/opfusion/pkg/support/fsutil"
	"github.com/gomlx/opfusion/pkg/support/xslices"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Script is the parsed YAML document.
type Script struct {
	Graph   GraphSpec `yaml:"graph"`
	Steps   []Step    `yaml:"steps"`
	Returns []string  `yaml:"returns"`
}

// GraphSpec describes the graph to fuse.
type GraphSpec struct {
	Name   string      `yaml:"name"`
	Inputs []ValueSpec `yaml:"inputs"`
	Ops    []OpSpec    `yaml:"ops"`
}

// ValueSpec describes a graph input, or a result shape of a custom op.
type ValueSpec struct {
	Name  string `yaml:"name"`
	DType string `yaml:"dtype"`
	Dims  []Dim  `yaml:"dims"`
}

// OpSpec describes one op. Which of the attributes are used depends on the type.
type OpSpec struct {
	Name   string   `yaml:"name"`
	Type   string   `yaml:"type"`
	Inputs []string `yaml:"inputs"`

	// Axes reduced by reductions, or the output axes of a BroadcastInDim operand.
	Axes     []int `yaml:"axes"`
	KeepDims bool  `yaml:"keep_dims"`

	// Dims are the output dims of BroadcastInDim and Reshape.
	Dims []Dim `yaml:"dims"`

	// Perm is the permutation of a Transpose.
	Perm []int `yaml:"perm"`

	// DType is the target of ConvertDType.
	DType string `yaml:"dtype"`

	// Results are the result shapes of a Custom op.
	Results []ValueSpec `yaml:"results"`
}

// Dim is a dimension in a script: either an integer or a symbol name.
type Dim struct {
	shapes.DimExpr
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Dim) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return errors.Errorf("line %d: dimension must be a scalar", node.Line)
	}
	dim, err := shapes.ParseDim(node.Value)
	if err != nil {
		return errors.WithMessagef(err, "line %d", node.Line)
	}
	d.DimExpr = dim
	return nil
}

func dimExprs(dims []Dim) []shapes.DimExpr {
	return xslices.Map(dims, func(d Dim) shapes.DimExpr { return d.DimExpr })
}

// Parse a YAML script.
func Parse(data []byte) (*Script, error) {
	script := &Script{}
	if err := yaml.Unmarshal(data, script); err != nil {
		return nil, errors.Wrap(err, "failed to parse fusion script")
	}
	if len(script.Graph.Ops) == 0 {
		return nil, errors.New("fusion script has no ops in its graph")
	}
	return script, nil
}

// Load and parse a YAML script from a file. A leading "~" in path is replaced by the home directory.
func Load(path string) (*Script, error) {
	resolved, err := fsutil.ResolveFile(path)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to find fusion script")
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read fusion script")
	}
	script, err := Parse(data)
	if err != nil {
		return nil, errors.WithMessagef(err, "in %q", path)
	}
	return script, nil
}

func (v ValueSpec) shape() (shapes.Shape, error) {
	dtype, err := dtypes.DTypeString(v.DType)
	if err != nil {
		return shapes.Invalid(), errors.Wrapf(err, "invalid dtype %q", v.DType)
	}
	return shapes.Make(dtype, dimExprs(v.Dims)...), nil
}

// BuildGraph creates the graph described by the script. It returns the graph and its ops by name.
func (s *Script) BuildGraph() (g *opgraph.Graph, ops map[string]*opgraph.Op, err error) {
	name := s.Graph.Name
	if name == "" {
		name = "script"
	}
	g = opgraph.New(name)
	ops = make(map[string]*opgraph.Op, len(s.Graph.Ops))
	values := make(map[string]*opgraph.Value)
	err = exceptions.TryCatch[error](func() {
		for _, input := range s.Graph.Inputs {
			if _, found := values[input.Name]; found || input.Name == "" {
				exceptions.Panicf("invalid or duplicate input name %q", input.Name)
			}
			shape, err := input.shape()
			if err != nil {
				panic(errors.WithMessagef(err, "input %q", input.Name))
			}
			values[input.Name] = g.Parameter(input.Name, shape)
		}
		for _, spec := range s.Graph.Ops {
			if _, found := ops[spec.Name]; found || spec.Name == "" {
				exceptions.Panicf("invalid or duplicate op name %q", spec.Name)
			}
			if _, found := values[spec.Name]; found {
				exceptions.Panicf("op name %q already used by a value", spec.Name)
			}
			op := buildOp(g, spec, values)
			op.SetName(spec.Name)
			ops[spec.Name] = op
			if op.NumResults() == 1 {
				values[spec.Name] = op.Result(0)
			} else {
				for _, result := range op.Results() {
					values[result.Name()] = result
				}
			}
		}
	})
	if err != nil {
		return nil, nil, errors.WithMessagef(err, "building graph %q", name)
	}
	return
}

// buildOp adds the op described by spec to g. It panics on errors.
func buildOp(g *opgraph.Graph, spec OpSpec, values map[string]*opgraph.Value) *opgraph.Op {
	opType, err := opgraph.OpTypeString(spec.Type)
	if err != nil {
		panic(errors.WithMessagef(err, "op %q", spec.Name))
	}
	inputs := xslices.Map(spec.Inputs, func(name string) *opgraph.Value {
		v, found := values[name]
		if !found {
			exceptions.Panicf("op %q: unknown input %q", spec.Name, name)
		}
		return v
	})
	requireInputs := func(n int) {
		if len(inputs) != n {
			exceptions.Panicf("op %q (%s) requires %d inputs, got %d", spec.Name, opType, n, len(inputs))
		}
	}

	var result *opgraph.Value
	switch {
	case opType.IsUnary():
		requireInputs(1)
		result = g.Unary(opType, inputs[0])
	case opType.IsBinary():
		requireInputs(2)
		result = g.Binary(opType, inputs[0], inputs[1])
	case opgraph.OpPatternKind(opType) == opgraph.KindReduction:
		requireInputs(1)
		result = g.Reduce(opType, inputs[0], spec.KeepDims, spec.Axes...)
	default:
		switch opType {
		case opgraph.OpTypeWhere:
			requireInputs(3)
			result = g.Where(inputs[0], inputs[1], inputs[2])
		case opgraph.OpTypeConvertDType:
			requireInputs(1)
			dtype, err := dtypes.DTypeString(spec.DType)
			if err != nil {
				panic(errors.Wrapf(err, "op %q: invalid dtype %q", spec.Name, spec.DType))
			}
			result = g.ConvertDType(inputs[0], dtype)
		case opgraph.OpTypeBroadcastInDim:
			requireInputs(1)
			result = g.BroadcastInDim(inputs[0], dimExprs(spec.Dims), spec.Axes...)
		case opgraph.OpTypeReshape:
			requireInputs(1)
			result = g.Reshape(inputs[0], dimExprs(spec.Dims)...)
		case opgraph.OpTypeTranspose:
			requireInputs(1)
			result = g.Transpose(inputs[0], spec.Perm...)
		case opgraph.OpTypeDotGeneral:
			requireInputs(2)
			result = g.DotGeneral(inputs[0], inputs[1])
		case opgraph.OpTypeCustom:
			resultShapes := xslices.Map(spec.Results, func(v ValueSpec) shapes.Shape {
				shape, err := v.shape()
				if err != nil {
					panic(errors.WithMessagef(err, "op %q", spec.Name))
				}
				return shape
			})
			return g.Custom(inputs, resultShapes...)
		default:
			exceptions.Panicf("op %q: op type %s not supported in scripts", spec.Name, opType)
		}
	}
	return result.Producer()
}
