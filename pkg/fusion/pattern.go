// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package fusion

import (
	"fmt"
	"slices"
	"strings"
	"sync/atomic"

	"github.com/gomlx/opfusion/pkg/core/opgraph"
	"github.com/gomlx/opfusion/pkg/support/sets"
	"github.com/gomlx/opfusion/pkg/support/xslices"
)

// PatternKind identifies the variant of a StmtPattern.
type PatternKind int

//go:generate go tool enumer -type=PatternKind -trimprefix=PatternKind -output=gen_patternkind_enumer.go pattern.go

const (
	PatternKindTrivial PatternKind = iota
	PatternKindReduce
	PatternKindReduceTree
	PatternKindReduceTreePlusTrivial
	PatternKindHorizontalFusion
	PatternKindItersPermutation
	PatternKindUnsupport
)

// StmtPattern is a fusion pattern: a group of ops that will be lowered to one loop nest.
//
// It is a closed sum type: the only implementations are *TrivialPattern, *ReducePattern,
// *ReduceTreePattern, *ReduceTreePlusTrivialPattern, *HorizontalFusionPattern, *ItersPermutationPattern
// and *UnsupportPattern. Patterns are immutable once created.
type StmtPattern interface {
	// ID is a unique human-readable identifier, e.g. "Trivial_12".
	ID() string

	// Kind of the pattern.
	Kind() PatternKind

	// Ops returns a copy of the ops of the pattern: duplicate-free, in insertion order.
	Ops() []*opgraph.Op

	// Tracker returns the construction log of the pattern. It is shared, and must not be appended
	// to, except through SetReturnInstr.
	Tracker() *FusionTracker

	String() string

	isStmtPattern()
}

var patternCounter atomic.Int64

func newPatternID(kind PatternKind) string {
	return fmt.Sprintf("%s_%d", kind, patternCounter.Add(1))
}

// patternBase holds the fields shared by all variants.
type patternBase struct {
	id      string
	ops     []*opgraph.Op
	tracker *FusionTracker
}

func newPatternBase(kind PatternKind, ops []*opgraph.Op, tracker *FusionTracker) patternBase {
	if tracker == nil {
		throwf(ErrInvariantViolation, "%s created without a tracker", kind)
	}
	unique := sets.MakeOrdered(ops...)
	if unique.Len() != len(ops) {
		throwf(ErrInvariantViolation, "%s created with duplicate ops %v", kind, opNames(ops))
	}
	return patternBase{id: newPatternID(kind), ops: unique.Elements(), tracker: tracker}
}

func (p *patternBase) ID() string              { return p.id }
func (p *patternBase) Ops() []*opgraph.Op      { return slices.Clone(p.ops) }
func (p *patternBase) Tracker() *FusionTracker { return p.tracker }
func (p *patternBase) isStmtPattern()          {}

func (p *patternBase) hasOp(op *opgraph.Op) bool { return slices.Contains(p.ops, op) }

func opNames(ops []*opgraph.Op) string {
	return "[" + strings.Join(xslices.Map(ops, (*opgraph.Op).Name), " ") + "]"
}

// TrivialPattern is a chain of element-wise, broadcast or injective ops, with one designated output (sink) op.
type TrivialPattern struct {
	patternBase
	sinkOp *opgraph.Op
}

var _ StmtPattern = (*TrivialPattern)(nil)

// NewTrivialPattern creates a TrivialPattern. The sink op must be one of the ops.
// It panics with ErrInvariantViolation otherwise.
func NewTrivialPattern(ops []*opgraph.Op, sinkOp *opgraph.Op, tracker *FusionTracker) *TrivialPattern {
	p := &TrivialPattern{patternBase: newPatternBase(PatternKindTrivial, ops, tracker), sinkOp: sinkOp}
	if !p.hasOp(sinkOp) {
		throwf(ErrInvariantViolation, "TrivialPattern sink op is not one of its ops %s", opNames(ops))
	}
	return p
}

func (p *TrivialPattern) Kind() PatternKind { return PatternKindTrivial }

// SinkOp returns the output op of the chain.
func (p *TrivialPattern) SinkOp() *opgraph.Op { return p.sinkOp }

func (p *TrivialPattern) String() string {
	return fmt.Sprintf("%s{ops=%s, sink=%s}", p.id, opNames(p.ops), p.sinkOp.Name())
}

// ReducePattern holds one reduction op, plus the trivial ops fused upstream of it.
type ReducePattern struct {
	patternBase
	reduceOp *opgraph.Op
}

var _ StmtPattern = (*ReducePattern)(nil)

// NewReducePattern creates a ReducePattern. Exactly one of the ops must be a reduction, and it
// panics with ErrInvariantViolation otherwise.
func NewReducePattern(ops []*opgraph.Op, tracker *FusionTracker) *ReducePattern {
	p := &ReducePattern{patternBase: newPatternBase(PatternKindReduce, ops, tracker)}
	for _, op := range p.ops {
		if op.Kind() != opgraph.KindReduction {
			continue
		}
		if p.reduceOp != nil {
			throwf(ErrInvariantViolation, "ReducePattern with more than one reduction: %s", opNames(ops))
		}
		p.reduceOp = op
	}
	if p.reduceOp == nil {
		throwf(ErrInvariantViolation, "ReducePattern without a reduction: %s", opNames(ops))
	}
	return p
}

func (p *ReducePattern) Kind() PatternKind { return PatternKindReduce }

// ReduceOp returns the reduction op of the pattern.
func (p *ReducePattern) ReduceOp() *opgraph.Op { return p.reduceOp }

func (p *ReducePattern) String() string {
	return fmt.Sprintf("%s{ops=%s, reduce=%s}", p.id, opNames(p.ops), p.reduceOp.Name())
}

// ReduceTreePattern is a tree of ReducePattern connected by producer->consumer edges: the reduction
// of each child feeds the root of its parent.
type ReduceTreePattern struct {
	patternBase
	root     *ReducePattern
	children []*ReduceTreePattern
}

var _ StmtPattern = (*ReduceTreePattern)(nil)

// NewReduceTreePattern creates a tree with the given root and children. Its ops are the root's ops followed
// by the children's ops. It panics with ErrInvariantViolation if a reduction appears more than once in the tree.
func NewReduceTreePattern(root *ReducePattern, children []*ReduceTreePattern, tracker *FusionTracker) *ReduceTreePattern {
	return newReduceTreePattern(root, children, tracker, nil)
}

// newReduceTreePattern takes the op list explicitly, if ops is nil it is computed from the tree.
func newReduceTreePattern(root *ReducePattern, children []*ReduceTreePattern, tracker *FusionTracker, ops []*opgraph.Op) *ReduceTreePattern {
	if root == nil {
		throwf(ErrInvariantViolation, "ReduceTreePattern without a root")
	}
	treeOps := sets.MakeOrdered(root.ops...)
	reduceOps := sets.MakeWith(root.reduceOp)
	for _, child := range children {
		for _, reduceOp := range child.reduceOps() {
			if reduceOps.Has(reduceOp) {
				throwf(ErrInvariantViolation, "ReduceTreePattern: reduction %s appears more than once in the tree", reduceOp.Name())
			}
			reduceOps.Insert(reduceOp)
		}
		treeOps.Insert(child.ops...)
	}
	if ops == nil {
		ops = treeOps.Elements()
	} else if !sets.MakeWith(ops...).Equal(treeOps.Set()) {
		throwf(ErrInvariantViolation, "ReduceTreePattern: op list %s doesn't match the tree ops %s",
			opNames(ops), opNames(treeOps.Elements()))
	}
	return &ReduceTreePattern{
		patternBase: newPatternBase(PatternKindReduceTree, ops, tracker),
		root:        root,
		children:    slices.Clone(children),
	}
}

func (p *ReduceTreePattern) Kind() PatternKind { return PatternKindReduceTree }

// Root returns the root ReducePattern, the last reduction of the tree.
func (p *ReduceTreePattern) Root() *ReducePattern { return p.root }

// Children returns a copy of the list of child trees.
func (p *ReduceTreePattern) Children() []*ReduceTreePattern { return slices.Clone(p.children) }

// reduceOps returns all reductions of the tree, depth-first, root first.
func (p *ReduceTreePattern) reduceOps() []*opgraph.Op {
	reduceOps := []*opgraph.Op{p.root.reduceOp}
	for _, child := range p.children {
		reduceOps = append(reduceOps, child.reduceOps()...)
	}
	return reduceOps
}

func (p *ReduceTreePattern) String() string {
	children := xslices.Map(p.children, (*ReduceTreePattern).String)
	return fmt.Sprintf("%s{root=%s, children=[%s]}", p.id, p.root, strings.Join(children, ", "))
}

// ReduceTreePlusTrivialPattern is a ReduceTreePattern whose root feeds one downstream TrivialPattern.
type ReduceTreePlusTrivialPattern struct {
	patternBase
	tree              *ReduceTreePattern
	sinkTrivial       *TrivialPattern
	fakeReduceIterIdx []int
}

var _ StmtPattern = (*ReduceTreePlusTrivialPattern)(nil)

// NewReduceTreePlusTrivialPattern creates the pattern with no fake reduce iteration indices.
func NewReduceTreePlusTrivialPattern(tree *ReduceTreePattern, sinkTrivial *TrivialPattern, tracker *FusionTracker) *ReduceTreePlusTrivialPattern {
	return newReduceTreePlusTrivialPattern(tree, sinkTrivial, tracker, nil,
		xslices.UniqueConcat(tree.ops, sinkTrivial.ops))
}

func newReduceTreePlusTrivialPattern(tree *ReduceTreePattern, sinkTrivial *TrivialPattern, tracker *FusionTracker,
	fakeReduceIterIdx []int, ops []*opgraph.Op) *ReduceTreePlusTrivialPattern {
	if tree == nil || sinkTrivial == nil {
		throwf(ErrInvariantViolation, "ReduceTreePlusTrivialPattern requires both a tree and a sink trivial pattern")
	}
	p := &ReduceTreePlusTrivialPattern{
		patternBase: newPatternBase(PatternKindReduceTreePlusTrivial, ops, tracker),
		tree:        tree,
		sinkTrivial: sinkTrivial,
	}
	p.fakeReduceIterIdx = validateFakeReduceIterIdx(sinkTrivial, fakeReduceIterIdx)
	return p
}

// validateFakeReduceIterIdx checks the indices are within the sink trivial's loop and returns them sorted,
// without duplicates.
func validateFakeReduceIterIdx(sinkTrivial *TrivialPattern, idx []int) []int {
	if len(idx) == 0 {
		return nil
	}
	rank := sinkTrivial.sinkOp.Result(0).Shape().Rank()
	sorted := slices.Clone(idx)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)
	for _, i := range sorted {
		if i < 0 || i >= rank {
			throwf(ErrIndexOutOfRange, "fake reduce iteration index %d out of range for the sink trivial loop of rank %d", i, rank)
		}
	}
	return sorted
}

func (p *ReduceTreePlusTrivialPattern) Kind() PatternKind { return PatternKindReduceTreePlusTrivial }

// Tree returns the reduce tree part.
func (p *ReduceTreePlusTrivialPattern) Tree() *ReduceTreePattern { return p.tree }

// SinkTrivial returns the trivial pattern fed by the tree's root.
func (p *ReduceTreePlusTrivialPattern) SinkTrivial() *TrivialPattern { return p.sinkTrivial }

// FakeReduceIterIdx returns the sorted indices of the sink trivial's loop dimensions treated as reduction
// dimensions.
func (p *ReduceTreePlusTrivialPattern) FakeReduceIterIdx() []int { return slices.Clone(p.fakeReduceIterIdx) }

// WithFakeReduceIterIdx returns a new pattern (same ops and tracker) with the given fake reduce iteration
// indices. Indices must be valid loop dimensions of the sink trivial pattern, otherwise ErrIndexOutOfRange
// is returned.
func (p *ReduceTreePlusTrivialPattern) WithFakeReduceIterIdx(idx []int) (*ReduceTreePlusTrivialPattern, error) {
	return catch(func() *ReduceTreePlusTrivialPattern {
		return newReduceTreePlusTrivialPattern(p.tree, p.sinkTrivial, p.tracker, idx, p.ops)
	})
}

func (p *ReduceTreePlusTrivialPattern) String() string {
	return fmt.Sprintf("%s{tree=%s, sink=%s, fake_reduce=%v}", p.id, p.tree, p.sinkTrivial, p.fakeReduceIterIdx)
}

// PaddingStmtPattern is one member of a HorizontalFusionPattern: the pattern and the positions where
// unit dimensions are inserted in its loop to match the shared iteration space.
type PaddingStmtPattern struct {
	Pattern    StmtPattern
	PaddingPos []int
}

// HorizontalFusionPattern holds independent sibling patterns fused side by side, sharing one loop.
type HorizontalFusionPattern struct {
	patternBase
	members []PaddingStmtPattern
}

var _ StmtPattern = (*HorizontalFusionPattern)(nil)

// NewHorizontalFusionPattern creates a horizontal fusion of the given members.
// It panics with ErrInvariantViolation if there are no members.
func NewHorizontalFusionPattern(members []PaddingStmtPattern, tracker *FusionTracker) *HorizontalFusionPattern {
	if len(members) == 0 {
		throwf(ErrInvariantViolation, "HorizontalFusionPattern requires at least one member")
	}
	var ops []*opgraph.Op
	copied := make([]PaddingStmtPattern, len(members))
	for ii, member := range members {
		ops = xslices.UniqueConcat(ops, member.Pattern.Ops())
		copied[ii] = PaddingStmtPattern{Pattern: member.Pattern, PaddingPos: slices.Clone(member.PaddingPos)}
	}
	return &HorizontalFusionPattern{
		patternBase: newPatternBase(PatternKindHorizontalFusion, ops, tracker),
		members:     copied,
	}
}

func (p *HorizontalFusionPattern) Kind() PatternKind { return PatternKindHorizontalFusion }

// Members returns a copy of the padded members.
func (p *HorizontalFusionPattern) Members() []PaddingStmtPattern {
	members := make([]PaddingStmtPattern, len(p.members))
	for ii, member := range p.members {
		members[ii] = PaddingStmtPattern{Pattern: member.Pattern, PaddingPos: slices.Clone(member.PaddingPos)}
	}
	return members
}

func (p *HorizontalFusionPattern) String() string {
	parts := xslices.Map(p.members, func(m PaddingStmtPattern) string {
		return fmt.Sprintf("%s padding=%v", m.Pattern.ID(), m.PaddingPos)
	})
	return fmt.Sprintf("%s{members=[%s]}", p.id, strings.Join(parts, "; "))
}

// ItersPermutationPattern is a pattern whose iteration dimensions were explicitly reordered.
// Its loop framework is stored, and opaque to the analyzer.
type ItersPermutationPattern struct {
	patternBase
	loopDims MaybeLoopFramework
}

var _ StmtPattern = (*ItersPermutationPattern)(nil)

// NewItersPermutationPattern creates the pattern with the given loop framework.
func NewItersPermutationPattern(ops []*opgraph.Op, tracker *FusionTracker, loopDims MaybeLoopFramework) *ItersPermutationPattern {
	if len(loopDims.Loop) != len(loopDims.IsReduce) {
		throwf(ErrInvariantViolation, "ItersPermutationPattern loop framework with %d dims and %d reduce flags",
			len(loopDims.Loop), len(loopDims.IsReduce))
	}
	return &ItersPermutationPattern{
		patternBase: newPatternBase(PatternKindItersPermutation, ops, tracker),
		loopDims:    loopDims.Clone(),
	}
}

func (p *ItersPermutationPattern) Kind() PatternKind { return PatternKindItersPermutation }

// LoopDims returns a copy of the stored loop framework.
func (p *ItersPermutationPattern) LoopDims() MaybeLoopFramework { return p.loopDims.Clone() }

func (p *ItersPermutationPattern) String() string {
	return fmt.Sprintf("%s{ops=%s, %s}", p.id, opNames(p.ops), p.loopDims)
}

// UnsupportPattern holds ops that can't take part in fusion.
type UnsupportPattern struct {
	patternBase
}

var _ StmtPattern = (*UnsupportPattern)(nil)

// NewUnsupportPattern creates an UnsupportPattern.
func NewUnsupportPattern(ops []*opgraph.Op, tracker *FusionTracker) *UnsupportPattern {
	return &UnsupportPattern{patternBase: newPatternBase(PatternKindUnsupport, ops, tracker)}
}

func (p *UnsupportPattern) Kind() PatternKind { return PatternKindUnsupport }

func (p *UnsupportPattern) String() string {
	return fmt.Sprintf("%s{ops=%s}", p.id, opNames(p.ops))
}
