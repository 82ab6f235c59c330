// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package fusion

import (
	"fmt"
	"strings"

	"github.com/gomlx/opfusion/pkg/core/opgraph"
	"github.com/gomlx/opfusion/pkg/support/sets"
)

// InstrType enumerates the kinds of tracker instructions.
type InstrType int

//go:generate go tool enumer -type=InstrType -trimprefix=Instr -output=gen_instrtype_enumer.go tracker.go

const (
	InstrInit InstrType = iota
	InstrMerge
	InstrReturn
)

// Instruction is one entry of a FusionTracker log.
// The concrete types are *InitPatternInstr, *MergeTrackerInstr and *ReturnInstr.
type Instruction interface {
	Type() InstrType
	String() string
	isInstruction()
}

// InitPatternInstr records a pattern created directly from a raw op.
type InitPatternInstr struct {
	Op        *opgraph.Op
	PatternID string
}

func (*InitPatternInstr) Type() InstrType { return InstrInit }
func (*InitPatternInstr) isInstruction()  {}

func (i *InitPatternInstr) String() string {
	return fmt.Sprintf("Init(%s -> %s)", i.Op.Name(), i.PatternID)
}

// MergeTrackerInstr records that the tracker is the ordered concatenation of two predecessors.
//
// The predecessors are referenced, not copied. Their lengths at the time of the merge are recorded,
// so instructions appended to a predecessor afterwards are not part of this tracker.
type MergeTrackerInstr struct {
	Left, Right       *FusionTracker
	leftLen, rightLen int
}

func (*MergeTrackerInstr) Type() InstrType { return InstrMerge }
func (*MergeTrackerInstr) isInstruction()  {}

func (i *MergeTrackerInstr) String() string {
	return fmt.Sprintf("Merge(%d instructions, %d instructions)", i.leftLen, i.rightLen)
}

// ReturnInstr marks a pattern as a finalized root, ready for code generation.
type ReturnInstr struct {
	PatternID string
}

func (*ReturnInstr) Type() InstrType { return InstrReturn }
func (*ReturnInstr) isInstruction()  {}

func (i *ReturnInstr) String() string {
	return fmt.Sprintf("Return(%s)", i.PatternID)
}

// FusionTracker is the append-only log of how a pattern was built from raw ops.
//
// Trackers are shared (by pointer) among the patterns derived from them by merging: a merged
// tracker references its two predecessors instead of copying them, forming a DAG of provenance.
// Appending is not safe for concurrent use, but only the owner of a finalized pattern appends to
// its tracker (see SetReturnInstr).
type FusionTracker struct {
	instructions []Instruction
}

// NewFusionTracker returns an empty tracker.
func NewFusionTracker() *FusionTracker {
	return &FusionTracker{}
}

// MergeTrackers returns a new tracker holding a single MergeTrackerInstr referencing left then right.
func MergeTrackers(left, right *FusionTracker) *FusionTracker {
	if left == nil || right == nil {
		throwf(ErrInvariantViolation, "MergeTrackers: nil tracker given (left=%v, right=%v)", left != nil, right != nil)
	}
	return &FusionTracker{instructions: []Instruction{
		&MergeTrackerInstr{Left: left, Right: right, leftLen: left.Len(), rightLen: right.Len()},
	}}
}

// Append an instruction to the tracker's own log.
func (t *FusionTracker) Append(instr Instruction) {
	t.instructions = append(t.instructions, instr)
}

// Len returns the number of instructions in the tracker's own log (merges count as one).
func (t *FusionTracker) Len() int { return len(t.instructions) }

// Instructions returns a copy of the tracker's own log, with merges not expanded.
func (t *FusionTracker) Instructions() []Instruction {
	out := make([]Instruction, len(t.instructions))
	copy(out, t.instructions)
	return out
}

// Flatten returns the instructions to replay, in order, with every MergeTrackerInstr expanded into
// its predecessors' instructions (left first). An instruction of a predecessor reachable through more
// than one path of the provenance DAG is emitted only once: a later path with a longer snapshot of the
// predecessor only adds the instructions not emitted yet.
func (t *FusionTracker) Flatten() []Instruction {
	var out []Instruction
	emitted := make(map[*FusionTracker]int)
	t.flattenInto(len(t.instructions), emitted, &out)
	return out
}

// flattenInto appends the instructions of t up to length, skipping the first emitted[t] ones.
func (t *FusionTracker) flattenInto(length int, emitted map[*FusionTracker]int, out *[]Instruction) {
	start := emitted[t]
	if length <= start {
		return
	}
	emitted[t] = length
	for _, instr := range t.instructions[start:length] {
		if merge, ok := instr.(*MergeTrackerInstr); ok {
			merge.Left.flattenInto(merge.leftLen, emitted, out)
			merge.Right.flattenInto(merge.rightLen, emitted, out)
			continue
		}
		*out = append(*out, instr)
	}
}

// ReplayOps replays the Init instructions and returns the ops they record, in replay order and without
// duplicates. For a tracker of a pattern it returns exactly the pattern's op set.
func (t *FusionTracker) ReplayOps() []*opgraph.Op {
	ops := sets.MakeOrdered[*opgraph.Op]()
	for _, instr := range t.Flatten() {
		if init, ok := instr.(*InitPatternInstr); ok {
			ops.Insert(init.Op)
		}
	}
	return ops.Elements()
}

// ReturnedPatterns lists the IDs of patterns marked as returned, in replay order.
func (t *FusionTracker) ReturnedPatterns() []string {
	var ids []string
	for _, instr := range t.Flatten() {
		if ret, ok := instr.(*ReturnInstr); ok {
			ids = append(ids, ret.PatternID)
		}
	}
	return ids
}

// String lists the flattened instructions, one per line.
func (t *FusionTracker) String() string {
	var sb strings.Builder
	for ii, instr := range t.Flatten() {
		_, _ = fmt.Fprintf(&sb, "%d: %s\n", ii, instr)
	}
	return sb.String()
}
