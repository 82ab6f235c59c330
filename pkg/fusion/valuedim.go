// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package fusion

import (
	"fmt"

	"github.com/gomlx/opfusion/pkg/core/opgraph"
	"github.com/gomlx/opfusion/pkg/core/shapes"
	"github.com/gomlx/opfusion/pkg/support/xslices"
)

// ValueDim is a handle to one dimension (Axis) of one tensor value.
//
// The zero ValueDim is a padding placeholder: a synthetic unit dimension not backed by any value.
type ValueDim struct {
	Value *opgraph.Value
	Axis  int
}

// IsPadding returns whether this is a padding placeholder.
func (vd ValueDim) IsPadding() bool { return vd.Value == nil }

// DimExpr returns the symbolic size of the dimension, or 1 for a padding placeholder.
func (vd ValueDim) DimExpr() shapes.DimExpr {
	if vd.IsPadding() {
		return shapes.One
	}
	return vd.Value.Shape().Dim(vd.Axis)
}

// String implements fmt.Stringer.
func (vd ValueDim) String() string {
	if vd.IsPadding() {
		return "<pad>"
	}
	return fmt.Sprintf("%s[%d]", vd.Value.Name(), vd.Axis)
}

// AllValueDims returns a handle to each of the dimensions of v.
func AllValueDims(v *opgraph.Value) []ValueDim {
	return xslices.Map(xslices.Iota(0, v.Shape().Rank()), func(axis int) ValueDim {
		return ValueDim{Value: v, Axis: axis}
	})
}

// GetLoopValueDims returns, for each loop dimension of the pattern, the tensor dimension that defines it.
//
// It mirrors GetLoopFramework: for every pattern but HorizontalFusionPattern it returns one list, aligned
// with the pattern's loop framework. A HorizontalFusionPattern returns the lists of each of its members,
// with padding placeholders at their padding positions.
//
// ItersPermutationPattern and UnsupportPattern return ErrUnimplemented.
func GetLoopValueDims(pattern StmtPattern) ([][]ValueDim, error) {
	return catch(func() [][]ValueDim { return getLoopValueDims(pattern) })
}

func getLoopValueDims(pattern StmtPattern) [][]ValueDim {
	switch p := pattern.(type) {
	case *ReducePattern:
		reduceOp := p.reduceOp
		input := reduceOp.Operand(0)
		reduced := xslices.Map(reduceOp.ReduceAxes(), func(axis int) ValueDim {
			return ValueDim{Value: input, Axis: axis}
		})
		return [][]ValueDim{xslices.Concat(AllValueDims(reduceOp.Result(0)), reduced)}

	case *ReduceTreePattern:
		return getLoopValueDims(p.root)

	case *TrivialPattern:
		return [][]ValueDim{AllValueDims(p.sinkOp.Result(0))}

	case *ReduceTreePlusTrivialPattern:
		trivialDims := getLoopValueDims(p.sinkTrivial)[0]
		if len(p.fakeReduceIterIdx) > 0 {
			nonFake := xslices.ExcludeIndex(len(trivialDims), p.fakeReduceIterIdx)
			return [][]ValueDim{xslices.Gather(trivialDims, xslices.Concat(nonFake, p.fakeReduceIterIdx))}
		}
		rootDims := getLoopValueDims(p.tree.root)[0]
		numReduce := len(p.tree.root.reduceOp.ReduceAxes())
		return [][]ValueDim{xslices.Concat(trivialDims, rootDims[len(rootDims)-numReduce:])}

	case *HorizontalFusionPattern:
		return xslices.FlatMap(p.members, func(member PaddingStmtPattern) [][]ValueDim {
			return xslices.Map(getLoopValueDims(member.Pattern), func(dims []ValueDim) []ValueDim {
				checkPaddingPos(member.PaddingPos, len(dims))
				return xslices.InsertAt(dims, member.PaddingPos, ValueDim{})
			})
		})

	case *ItersPermutationPattern, *UnsupportPattern:
		throwf(ErrUnimplemented, "loop value dims of %s", pattern.ID())
	}
	throwf(ErrUnimplemented, "loop value dims of unknown pattern type %T", pattern)
	return nil
}

// GetOutputOpsInPattern returns the ops whose results leave the pattern: the reduction of a ReducePattern,
// the sink of a TrivialPattern, the root's reduction for a tree, the sink trivial's sink for a
// ReduceTreePlusTrivialPattern and the concatenated outputs of the members of a horizontal fusion.
//
// ItersPermutationPattern and UnsupportPattern return ErrUnimplemented.
func GetOutputOpsInPattern(pattern StmtPattern) ([]*opgraph.Op, error) {
	return catch(func() []*opgraph.Op { return getOutputOps(pattern) })
}

func getOutputOps(pattern StmtPattern) []*opgraph.Op {
	switch p := pattern.(type) {
	case *ReducePattern:
		return []*opgraph.Op{p.reduceOp}
	case *TrivialPattern:
		return []*opgraph.Op{p.sinkOp}
	case *ReduceTreePattern:
		return getOutputOps(p.root)
	case *ReduceTreePlusTrivialPattern:
		return getOutputOps(p.sinkTrivial)
	case *HorizontalFusionPattern:
		return xslices.FlatMap(p.members, func(member PaddingStmtPattern) []*opgraph.Op {
			return getOutputOps(member.Pattern)
		})
	case *ItersPermutationPattern, *UnsupportPattern:
		throwf(ErrUnimplemented, "output ops of %s", pattern.ID())
	}
	throwf(ErrUnimplemented, "output ops of unknown pattern type %T", pattern)
	return nil
}
