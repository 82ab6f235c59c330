// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package fusion

import (
	"github.com/gomlx/opfusion/pkg/core/opgraph"
	"github.com/gomlx/opfusion/pkg/support/xslices"
	"k8s.io/klog/v2"
)

// ConvertToStmtPattern creates the initial single-op pattern for op, based on its coarse kind:
// reductions become a ReducePattern, element-wise, broadcast and injective ops become a TrivialPattern
// (with op as its sink), and everything else an UnsupportPattern.
//
// The pattern gets a new tracker with one Init instruction.
func ConvertToStmtPattern(op *opgraph.Op) StmtPattern {
	tracker := NewFusionTracker()
	var pattern StmtPattern
	switch op.Kind() {
	case opgraph.KindReduction:
		pattern = NewReducePattern([]*opgraph.Op{op}, tracker)
	case opgraph.KindElementWise, opgraph.KindBroadcast, opgraph.KindInjective:
		pattern = NewTrivialPattern([]*opgraph.Op{op}, op, tracker)
	default:
		pattern = NewUnsupportPattern([]*opgraph.Op{op}, tracker)
	}
	tracker.Append(&InitPatternInstr{Op: op, PatternID: pattern.ID()})
	klog.V(4).Infof("ConvertToStmtPattern(%s): %s", op.Name(), pattern)
	return pattern
}

// ConvertGraph classifies every op of the graph, in graph order.
func ConvertGraph(g *opgraph.Graph) []StmtPattern {
	patterns := xslices.Map(g.Ops(), ConvertToStmtPattern)
	klog.V(3).Infof("ConvertGraph(%q): %d patterns", g.Name(), len(patterns))
	return patterns
}
