// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package fusion

import (
	"slices"

	"github.com/gomlx/opfusion/pkg/support/xslices"
)

// The lifting constructors wrap a pattern into a composite variant with the same ops. The lifted
// pattern gets a new ID but shares the tracker of the wrapped pattern.

// LiftToReduceTreePattern returns a tree with reduce as its root and no children.
func LiftToReduceTreePattern(reduce *ReducePattern) *ReduceTreePattern {
	return NewReduceTreePattern(reduce, nil, reduce.tracker)
}

// LiftToHorizontalFusionPattern returns a horizontal fusion with pattern as its only member, without padding.
func LiftToHorizontalFusionPattern(pattern StmtPattern) *HorizontalFusionPattern {
	return NewHorizontalFusionPattern([]PaddingStmtPattern{{Pattern: pattern}}, pattern.Tracker())
}

// LiftToItersPermutationPattern returns an ItersPermutationPattern with the ops of pattern, whose loop
// dims are the ones of pattern reordered by perm: dim ii of the new loop is the dim perm[ii] of the old one.
//
// It returns ErrIndexOutOfRange if perm is not a permutation of the loop axes, or ErrUnimplemented if
// the loop framework of pattern is not defined.
func LiftToItersPermutationPattern(pattern StmtPattern, perm []int) (*ItersPermutationPattern, error) {
	return catch(func() *ItersPermutationPattern {
		loop := getLoopFramework(pattern)
		sorted := slices.Sorted(slices.Values(perm))
		if !slices.Equal(sorted, xslices.Iota(0, loop.Rank())) {
			throwf(ErrIndexOutOfRange, "%v is not a permutation of the %d loop axes of %s", perm, loop.Rank(), pattern.ID())
		}
		return NewItersPermutationPattern(pattern.Ops(), pattern.Tracker(), loop.gather(perm))
	})
}
