// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package fusion

import (
	"github.com/gomlx/opfusion/pkg/core/opgraph"
	"github.com/gomlx/opfusion/pkg/support/xslices"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// mergeFn merges two patterns of a known ordered pair of kinds. It panics (with throwf) on failure.
type mergeFn func(first, second StmtPattern) StmtPattern

// mergeRules lists the defined merges, keyed by the ordered pair of kinds (upstream, downstream).
// Any pair not listed here is not fusable.
//
// Filled in init: the rules recurse into mergePattern.
var mergeRules map[[2]PatternKind]mergeFn

func init() {
	mergeRules = map[[2]PatternKind]mergeFn{
		{PatternKindTrivial, PatternKindTrivial}: func(first, second StmtPattern) StmtPattern {
			return mergeTrivialTrivial(first.(*TrivialPattern), second.(*TrivialPattern))
		},
		{PatternKindTrivial, PatternKindReduce}: func(first, second StmtPattern) StmtPattern {
			return mergeTrivialReduce(first.(*TrivialPattern), second.(*ReducePattern))
		},
		{PatternKindTrivial, PatternKindReduceTree}: func(first, second StmtPattern) StmtPattern {
			return mergeTrivialReduceTree(first.(*TrivialPattern), second.(*ReduceTreePattern))
		},
		{PatternKindTrivial, PatternKindReduceTreePlusTrivial}: func(first, second StmtPattern) StmtPattern {
			return mergeTrivialReduceTreePlusTrivial(first.(*TrivialPattern), second.(*ReduceTreePlusTrivialPattern))
		},
		{PatternKindTrivial, PatternKindItersPermutation}: func(first, second StmtPattern) StmtPattern {
			return mergeTrivialItersPermutation(first.(*TrivialPattern), second.(*ItersPermutationPattern))
		},
		{PatternKindReduceTree, PatternKindTrivial}: func(first, second StmtPattern) StmtPattern {
			return mergeReduceTreeTrivial(first.(*ReduceTreePattern), second.(*TrivialPattern))
		},
		{PatternKindReduceTree, PatternKindReduceTree}: func(first, second StmtPattern) StmtPattern {
			return mergeReduceTreeReduceTree(first.(*ReduceTreePattern), second.(*ReduceTreePattern))
		},
		{PatternKindHorizontalFusion, PatternKindHorizontalFusion}: func(first, second StmtPattern) StmtPattern {
			return mergeHorizontalHorizontal(first.(*HorizontalFusionPattern), second.(*HorizontalFusionPattern))
		},
	}
}

// CanMerge returns whether a merge is defined for the ordered pair of kinds.
// A defined merge may still fail for the specific patterns given.
func CanMerge(first, second PatternKind) bool {
	_, found := mergeRules[[2]PatternKind{first, second}]
	return found
}

// MergePattern fuses first (upstream) and second (downstream) into a new pattern, holding the ops of both
// (first's ops, then second's ops not already included) and with a tracker that merges both trackers.
// The inputs are not modified.
//
// Errors:
//   - ErrUnimplemented if the merge of the kinds of first and second is not defined, see CanMerge.
//   - ErrInvariantViolation if the patterns are structurally not fusable, e.g. two reduce trees
//     that don't connect at exactly one point.
//   - ErrShapeIncompatible if the loops of two horizontal fusion patterns can't be aligned.
func MergePattern(first, second StmtPattern) (StmtPattern, error) {
	return catch(func() StmtPattern { return mergePattern(first, second) })
}

// MustMergePattern is like MergePattern, but panics on error.
func MustMergePattern(first, second StmtPattern) StmtPattern {
	return mergePattern(first, second)
}

func mergePattern(first, second StmtPattern) StmtPattern {
	if first == nil || second == nil {
		throwf(ErrInvariantViolation, "MergePattern called with a nil pattern")
	}
	merge, found := mergeRules[[2]PatternKind{first.Kind(), second.Kind()}]
	if !found {
		throwf(ErrUnimplemented, "merge of %s (%s) with %s (%s) is not defined",
			first.Kind(), first.ID(), second.Kind(), second.ID())
	}
	merged := merge(first, second)
	klog.V(4).Infof("MergePattern(%s, %s) -> %s", first.ID(), second.ID(), merged)
	return merged
}

func mergedOps(first, second StmtPattern) []*opgraph.Op {
	return xslices.UniqueConcat(first.Ops(), second.Ops())
}

func mergedTracker(first, second StmtPattern) *FusionTracker {
	return MergeTrackers(first.Tracker(), second.Tracker())
}

func mergeTrivialTrivial(first, second *TrivialPattern) *TrivialPattern {
	return NewTrivialPattern(mergedOps(first, second), second.sinkOp, mergedTracker(first, second))
}

func mergeTrivialReduce(first *TrivialPattern, second *ReducePattern) *ReducePattern {
	return NewReducePattern(mergedOps(first, second), mergedTracker(first, second))
}

func mergeTrivialReduceTree(first *TrivialPattern, second *ReduceTreePattern) *ReduceTreePattern {
	connectOps := opgraph.FindDownstreamOps(first.sinkOp)
	fused, ok := fuseIntoTree(first, second, connectOps)
	if !ok {
		throwf(ErrInvariantViolation, "%s is not consumed by any node of %s", first.id, second.id)
	}
	return newReduceTreePattern(fused.root, fused.children, mergedTracker(first, second), mergedOps(first, second))
}

// fuseIntoTree fuses up into the root and into each node of the tree that consumes it. Nodes
// that don't consume it are kept as they are. It returns false (and the tree unchanged) if
// no node consumes it.
func fuseIntoTree(up *TrivialPattern, tree *ReduceTreePattern, connectOps []*opgraph.Op) (*ReduceTreePattern, bool) {
	root, fused := fusePatternIfConnected(up, tree.root, connectOps)
	children := make([]*ReduceTreePattern, len(tree.children))
	for ii, child := range tree.children {
		var childFused bool
		children[ii], childFused = fuseIntoTree(up, child, connectOps)
		fused = fused || childFused
	}
	if !fused {
		return tree, false
	}
	return NewReduceTreePattern(root, children, mergedTracker(up, tree)), true
}

func mergeTrivialReduceTreePlusTrivial(first *TrivialPattern, second *ReduceTreePlusTrivialPattern) *ReduceTreePlusTrivialPattern {
	connectOps := opgraph.FindDownstreamOps(first.sinkOp)
	tree, treeFused := fuseIntoTree(first, second.tree, connectOps)
	sinkTrivial, sinkFused := fusePatternIfConnected(first, second.sinkTrivial, connectOps)
	if !treeFused && !sinkFused {
		throwf(ErrInvariantViolation, "%s is not consumed by any part of %s", first.id, second.id)
	}
	return newReduceTreePlusTrivialPattern(tree, sinkTrivial, mergedTracker(first, second),
		second.fakeReduceIterIdx, mergedOps(first, second))
}

func mergeTrivialItersPermutation(first *TrivialPattern, second *ItersPermutationPattern) *ItersPermutationPattern {
	return NewItersPermutationPattern(mergedOps(first, second), mergedTracker(first, second), second.loopDims)
}

func mergeReduceTreeTrivial(first *ReduceTreePattern, second *TrivialPattern) *ReduceTreePlusTrivialPattern {
	return newReduceTreePlusTrivialPattern(first, second, mergedTracker(first, second), nil, mergedOps(first, second))
}

// mergeReduceTreeReduceTree attaches the upstream tree as a new child of the one node of the downstream tree
// whose reduce pattern consumes the result of the upstream root reduction.
func mergeReduceTreeReduceTree(upstream, downstream *ReduceTreePattern) *ReduceTreePattern {
	attached, count := insertUpstreamIntoTree(upstream, downstream)
	if count != 1 {
		throwf(ErrInvariantViolation, "reduce tree %s must attach to exactly one node of %s, found %d attachment points",
			upstream.id, downstream.id, count)
	}
	return newReduceTreePattern(attached.root, attached.children, mergedTracker(upstream, downstream),
		mergedOps(upstream, downstream))
}

// insertUpstreamIntoTree walks the whole tree and returns a copy of it with upstream attached as a child
// of every node directly consuming it, and the number of such nodes. Unchanged subtrees are shared.
func insertUpstreamIntoTree(upstream, tree *ReduceTreePattern) (*ReduceTreePattern, int) {
	var count int
	children := make([]*ReduceTreePattern, len(tree.children), len(tree.children)+1)
	for ii, child := range tree.children {
		var childCount int
		children[ii], childCount = insertUpstreamIntoTree(upstream, child)
		count += childCount
	}
	if isDirectUpstream(upstream.root, tree.root) {
		children = append(children, upstream)
		count++
	}
	if count == 0 {
		return tree, 0
	}
	if count > 1 {
		// The result is discarded by the caller, and building it would fail on the repeated reductions.
		return tree, count
	}
	return NewReduceTreePattern(tree.root, children, mergedTracker(upstream, tree)), count
}

// isDirectUpstream returns whether any op of downstream consumes the result of the reduction of upstream.
func isDirectUpstream(upstream, downstream *ReducePattern) bool {
	return len(opgraph.FindUserOps(downstream.ops, upstream.reduceOp.Result(0))) > 0
}

// FusePatternIfConnected merges up into down if any of connectOps (usually the ops downstream of up) is
// part of down. Otherwise, it returns down itself, unchanged.
func FusePatternIfConnected(up, down StmtPattern, connectOps []*opgraph.Op) (StmtPattern, error) {
	return catch(func() StmtPattern {
		fused, _ := fusePatternIfConnected(up, down, connectOps)
		return fused
	})
}

// fusePatternIfConnected merges up into down, if connected, and returns the result with the same type as down.
func fusePatternIfConnected[T StmtPattern](up StmtPattern, down T, connectOps []*opgraph.Op) (T, bool) {
	if !xslices.AnyIn(connectOps, down.Ops()) {
		return down, false
	}
	merged := mergePattern(up, down)
	typed, ok := merged.(T)
	if !ok {
		throwf(ErrInvariantViolation, "merging %s into %s changed its kind to %s", up.ID(), down.ID(), merged.Kind())
	}
	return typed, true
}

func mergeHorizontalHorizontal(first, second *HorizontalFusionPattern) *HorizontalFusionPattern {
	firstLoop, secondLoop := getLoopFramework(first), getLoopFramework(second)
	padFirst, padSecond, err := GetPaddingVector(firstLoop.Loop, secondLoop.Loop)
	if err != nil {
		panic(errors.WithMessagef(err, "merging %s with %s", first.id, second.id))
	}
	return NewHorizontalFusionPattern([]PaddingStmtPattern{
		{Pattern: first, PaddingPos: padFirst},
		{Pattern: second, PaddingPos: padSecond},
	}, mergedTracker(first, second))
}

// SetReturnInstr marks the pattern as a finalized root of the fusion, by appending a Return instruction
// to its tracker. It must be called once per finalized pattern, before handing its tracker to the
// code generator.
func SetReturnInstr(pattern StmtPattern) {
	pattern.Tracker().Append(&ReturnInstr{PatternID: pattern.ID()})
	klog.V(4).Infof("SetReturnInstr(%s)", pattern.ID())
}
