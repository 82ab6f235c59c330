// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package fusion

import (
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/opfusion/pkg/core/opgraph"
	"github.com/gomlx/opfusion/pkg/core/shapes"
	"github.com/gomlx/opfusion/pkg/support/sets"
	"github.com/gomlx/opfusion/pkg/support/xslices"
	"github.com/stretchr/testify/require"
)

var (
	dimN   = shapes.Symbol("N")
	dim128 = shapes.Static(128)
)

// named sets the name of the op producing v, and returns the op.
func named(v *opgraph.Value, name string) *opgraph.Op {
	return v.Producer().SetName(name)
}

func broadcastRows(g *opgraph.Graph, v *opgraph.Value) *opgraph.Value {
	return g.BroadcastInDim(v, []shapes.DimExpr{dimN, dim128}, 0)
}

func names(ops []*opgraph.Op) []string {
	return xslices.Map(ops, (*opgraph.Op).Name)
}

// requireMerge merges and checks the op-set union law and the completeness of the tracker.
func requireMerge(t *testing.T, first, second StmtPattern) StmtPattern {
	t.Helper()
	merged, err := MergePattern(first, second)
	require.NoError(t, err)
	require.Equal(t, xslices.UniqueConcat(first.Ops(), second.Ops()), merged.Ops())
	requireTrackerComplete(t, merged)
	return merged
}

// requireTrackerComplete checks that replaying the tracker yields exactly the ops of the pattern, and
// recursively the same for the inner patterns.
func requireTrackerComplete(t *testing.T, pattern StmtPattern) {
	t.Helper()
	replayed := sets.MakeWith(pattern.Tracker().ReplayOps()...)
	require.Truef(t, replayed.Equal(sets.MakeWith(pattern.Ops()...)),
		"tracker of %s replays %v", pattern, names(pattern.Tracker().ReplayOps()))
	switch p := pattern.(type) {
	case *ReduceTreePattern:
		requireTrackerComplete(t, p.Root())
		for _, child := range p.Children() {
			requireTrackerComplete(t, child)
		}
	case *ReduceTreePlusTrivialPattern:
		requireTrackerComplete(t, p.Tree())
		requireTrackerComplete(t, p.SinkTrivial())
	case *HorizontalFusionPattern:
		for _, member := range p.Members() {
			requireTrackerComplete(t, member.Pattern)
		}
	}
}

// softmaxGraph builds the usual softmax-like chain:
//
//	exp = Exp(x); max = ReduceMax(exp); sub = exp - broadcast(max); sum = ReduceSum(sub)
type softmaxGraph struct {
	g                         *opgraph.Graph
	exp, max, bcast, sub, sum *opgraph.Op
}

func newSoftmaxGraph() *softmaxGraph {
	s := &softmaxGraph{g: opgraph.New("softmax")}
	x := s.g.Parameter("x", shapes.Make(dtypes.Float32, dimN, dim128))
	exp := s.g.Unary(opgraph.OpTypeExp, x)
	maxV := s.g.Reduce(opgraph.OpTypeReduceMax, exp, false, 1)
	bcast := broadcastRows(s.g, maxV)
	sub := s.g.Binary(opgraph.OpTypeSub, exp, bcast)
	sum := s.g.Reduce(opgraph.OpTypeReduceSum, sub, false, 1)
	s.exp, s.max, s.bcast, s.sub, s.sum = named(exp, "exp"), named(maxV, "max"), named(bcast, "bcast"),
		named(sub, "sub"), named(sum, "sum")
	return s
}

// sumTree returns the tree [bcast, sub, sum] with the tree [max] as its child.
func (s *softmaxGraph) sumTree(t *testing.T) *ReduceTreePattern {
	t.Helper()
	chain := requireMerge(t, ConvertToStmtPattern(s.bcast), ConvertToStmtPattern(s.sub))
	sumPattern := requireMerge(t, chain, ConvertToStmtPattern(s.sum))
	maxTree := LiftToReduceTreePattern(ConvertToStmtPattern(s.max).(*ReducePattern))
	tree := requireMerge(t, maxTree, LiftToReduceTreePattern(sumPattern.(*ReducePattern)))
	return tree.(*ReduceTreePattern)
}
