// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package fusion

import (
	"fmt"
	"slices"

	"github.com/gomlx/opfusion/pkg/core/shapes"
	"github.com/gomlx/opfusion/pkg/support/xslices"
	"k8s.io/klog/v2"
)

// MaybeLoopFramework describes the iteration space of a pattern: the symbolic size of each loop
// dimension, and whether it is a reduction dimension. Loop and IsReduce always have the same length.
type MaybeLoopFramework struct {
	Loop     []shapes.DimExpr
	IsReduce []bool
}

// NewLoopFramework returns a framework whose last numReduce dims are marked as reduction dims.
func NewLoopFramework(loop []shapes.DimExpr, numReduce int) MaybeLoopFramework {
	if numReduce < 0 || numReduce > len(loop) {
		throwf(ErrIndexOutOfRange, "%d reduce dims requested for a loop of rank %d", numReduce, len(loop))
	}
	isReduce := make([]bool, len(loop))
	for ii := len(loop) - numReduce; ii < len(loop); ii++ {
		isReduce[ii] = true
	}
	return MaybeLoopFramework{Loop: slices.Clone(loop), IsReduce: isReduce}
}

// Rank returns the number of loop dimensions.
func (f MaybeLoopFramework) Rank() int { return len(f.Loop) }

// Clone returns a deep copy.
func (f MaybeLoopFramework) Clone() MaybeLoopFramework {
	return MaybeLoopFramework{Loop: slices.Clone(f.Loop), IsReduce: slices.Clone(f.IsReduce)}
}

// String implements fmt.Stringer. Reduction dims are prefixed with "R:", e.g. "[N 128 R:64]".
func (f MaybeLoopFramework) String() string {
	parts := make([]string, len(f.Loop))
	for ii, dim := range f.Loop {
		if f.IsReduce[ii] {
			parts[ii] = "R:" + dim.String()
		} else {
			parts[ii] = dim.String()
		}
	}
	return fmt.Sprintf("%v", parts)
}

// Squeeze returns the framework with all the static unit dims removed. The relative order of the
// remaining dims and their reduction flags are preserved.
func (f MaybeLoopFramework) Squeeze() MaybeLoopFramework {
	var squeezed MaybeLoopFramework
	for ii, dim := range f.Loop {
		if dim.IsOne() {
			continue
		}
		squeezed.Loop = append(squeezed.Loop, dim)
		squeezed.IsReduce = append(squeezed.IsReduce, f.IsReduce[ii])
	}
	return squeezed
}

// SplitReduceLoop returns the non-reduction dims and the reduction dims, each in their original order.
func (f MaybeLoopFramework) SplitReduceLoop() (nonReduce, reduce []shapes.DimExpr) {
	for ii, dim := range f.Loop {
		if f.IsReduce[ii] {
			reduce = append(reduce, dim)
		} else {
			nonReduce = append(nonReduce, dim)
		}
	}
	return
}

// ReduceLoop returns only the reduction dims.
func (f MaybeLoopFramework) ReduceLoop() []shapes.DimExpr {
	_, reduce := f.SplitReduceLoop()
	return reduce
}

// Equal returns whether both frameworks have exactly the same dims and flags.
func (f MaybeLoopFramework) Equal(other MaybeLoopFramework) bool {
	return slices.Equal(f.Loop, other.Loop) && slices.Equal(f.IsReduce, other.IsReduce)
}

// Resolve replaces the symbolic dims bound in bindings by their static values.
func (f MaybeLoopFramework) Resolve(bindings shapes.AxisBindings) MaybeLoopFramework {
	return MaybeLoopFramework{Loop: shapes.ResolveDims(f.Loop, bindings), IsReduce: slices.Clone(f.IsReduce)}
}

// gather returns the framework with the dims at the given indices, in that order.
func (f MaybeLoopFramework) gather(indices []int) MaybeLoopFramework {
	return MaybeLoopFramework{Loop: xslices.Gather(f.Loop, indices), IsReduce: xslices.Gather(f.IsReduce, indices)}
}

// pad inserts unit dims (not reduction) at the given output positions.
func (f MaybeLoopFramework) pad(paddingPos []int) MaybeLoopFramework {
	checkPaddingPos(paddingPos, f.Rank())
	return MaybeLoopFramework{
		Loop:     xslices.InsertAt(f.Loop, paddingPos, shapes.One),
		IsReduce: xslices.InsertAt(f.IsReduce, paddingPos, false),
	}
}

// checkPaddingPos validates that the positions are unique and valid in a padded loop of the given rank.
func checkPaddingPos(paddingPos []int, rank int) {
	paddedRank := rank + len(paddingPos)
	for ii, pos := range paddingPos {
		if pos < 0 || pos >= paddedRank {
			throwf(ErrIndexOutOfRange, "padding position %d out of range for padded rank %d", pos, paddedRank)
		}
		if slices.Contains(paddingPos[:ii], pos) {
			throwf(ErrIndexOutOfRange, "padding position %d given more than once", pos)
		}
	}
}

// GetLoopFramework returns the iteration space of the pattern.
//
// It returns ErrUnimplemented for an UnsupportPattern.
func GetLoopFramework(pattern StmtPattern) (MaybeLoopFramework, error) {
	return catch(func() MaybeLoopFramework { return getLoopFramework(pattern) })
}

func getLoopFramework(pattern StmtPattern) (f MaybeLoopFramework) {
	switch p := pattern.(type) {
	case *ReducePattern:
		reduceOp := p.reduceOp
		axes := reduceOp.ReduceAxes()
		outputDims := reduceOp.Result(0).Shape().Dimensions
		reducedDims := xslices.Gather(reduceOp.Operand(0).Shape().Dimensions, axes)
		f = NewLoopFramework(xslices.Concat(outputDims, reducedDims), len(reducedDims))

	case *ReduceTreePattern:
		f = getLoopFramework(p.root)

	case *TrivialPattern:
		f = NewLoopFramework(p.sinkOp.Result(0).Shape().Dimensions, 0)

	case *ReduceTreePlusTrivialPattern:
		trivialLoop := getLoopFramework(p.sinkTrivial)
		if len(p.fakeReduceIterIdx) > 0 {
			nonFake := xslices.ExcludeIndex(trivialLoop.Rank(), p.fakeReduceIterIdx)
			reordered := trivialLoop.gather(xslices.Concat(nonFake, p.fakeReduceIterIdx))
			f = NewLoopFramework(reordered.Loop, len(p.fakeReduceIterIdx))
		} else {
			reduceLoop := getLoopFramework(p.tree.root).ReduceLoop()
			f = NewLoopFramework(xslices.Concat(trivialLoop.Loop, reduceLoop), len(reduceLoop))
		}

	case *HorizontalFusionPattern:
		member := p.representative()
		f = getLoopFramework(member.Pattern).pad(member.PaddingPos)

	case *ItersPermutationPattern:
		f = p.loopDims.Clone()

	case *UnsupportPattern:
		throwf(ErrUnimplemented, "loop framework of %s", p.id)

	default:
		throwf(ErrUnimplemented, "loop framework of unknown pattern type %T", pattern)
	}
	if klog.V(4).Enabled() {
		klog.Infof("GetLoopFramework(%s) = %s", pattern.ID(), f)
	}
	return
}

// representative returns the member whose loop framework stands for the whole horizontal fusion: the
// first member holding a ReducePattern, or else the last member.
func (p *HorizontalFusionPattern) representative() PaddingStmtPattern {
	for _, member := range p.members {
		if _, ok := member.Pattern.(*ReducePattern); ok {
			return member
		}
	}
	return xslices.Last(p.members)
}

// IsLoopFrameworkEqual returns whether the two patterns iterate over the same space, up to unit dims.
//
// The reduction dims of both must be equal, unless one of them has none. And the loops with
// the unit dims squeezed out must be equal.
func IsLoopFrameworkEqual(first, second StmtPattern) (bool, error) {
	return catch(func() bool { return isLoopFrameworkEqual(first, second) })
}

func isLoopFrameworkEqual(first, second StmtPattern) bool {
	firstLoop, secondLoop := getLoopFramework(first), getLoopFramework(second)
	firstReduce, secondReduce := firstLoop.ReduceLoop(), secondLoop.ReduceLoop()
	reduceEqual := len(firstReduce) == 0 || len(secondReduce) == 0 || slices.Equal(firstReduce, secondReduce)
	squeezedEqual := slices.Equal(firstLoop.Squeeze().Loop, secondLoop.Squeeze().Loop)
	klog.V(4).Infof("IsLoopFrameworkEqual(%s %s, %s %s): reduce_equal=%v squeezed_equal=%v",
		first.ID(), firstLoop, second.ID(), secondLoop, reduceEqual, squeezedEqual)
	return reduceEqual && squeezedEqual
}
