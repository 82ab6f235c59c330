// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package fusion

import (
	"fmt"
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/opfusion/pkg/core/opgraph"
	"github.com/gomlx/opfusion/pkg/core/shapes"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeTrivialReduce(t *testing.T) {
	g := opgraph.New("trivial_reduce")
	x := g.Parameter("x", shapes.Make(dtypes.Float32, dimN, dim128))
	add := g.Binary(opgraph.OpTypeAdd, x, x)
	relu := g.Unary(opgraph.OpTypeRelu, add)
	sum := g.Reduce(opgraph.OpTypeReduceSum, relu, false, 1)
	named(add, "add")
	named(relu, "relu")
	named(sum, "sum")

	chain := requireMerge(t, ConvertToStmtPattern(add.Producer()), ConvertToStmtPattern(relu.Producer()))
	require.IsType(t, &TrivialPattern{}, chain)
	assert.Same(t, relu.Producer(), chain.(*TrivialPattern).SinkOp())
	assert.Equal(t, []string{"add", "relu"}, names(chain.Ops()))

	pSum := ConvertToStmtPattern(sum.Producer())
	reduce := requireMerge(t, chain, pSum)
	require.IsType(t, &ReducePattern{}, reduce)
	assert.Equal(t, []string{"add", "relu", "sum"}, names(reduce.Ops()))
	assert.Same(t, sum.Producer(), reduce.(*ReducePattern).ReduceOp())
	assert.Equal(t, []string{"add", "relu", "sum"}, names(reduce.Tracker().ReplayOps()))

	// Determinism: merging the same inputs again gives the same structure, with a new ID.
	again := MustMergePattern(chain, pSum)
	assert.Equal(t, reduce.Kind(), again.Kind())
	assert.Equal(t, reduce.Ops(), again.Ops())
	assert.NotEqual(t, reduce.ID(), again.ID())

	// Inputs are not modified.
	assert.Equal(t, []string{"add", "relu"}, names(chain.Ops()))
	assert.Equal(t, []string{"sum"}, names(pSum.Ops()))

	// Merging in the reverse order is not defined.
	_, err := MergePattern(pSum, chain)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnimplemented))

	SetReturnInstr(reduce)
	assert.Equal(t, []string{reduce.ID()}, reduce.Tracker().ReturnedPatterns())
	assert.Equal(t, InstrReturn, reduce.Tracker().Instructions()[reduce.Tracker().Len()-1].Type())
}

func TestMergeTable(t *testing.T) {
	defined := map[[2]PatternKind]bool{
		{PatternKindTrivial, PatternKindTrivial}:                   true,
		{PatternKindTrivial, PatternKindReduce}:                    true,
		{PatternKindTrivial, PatternKindReduceTree}:                true,
		{PatternKindTrivial, PatternKindReduceTreePlusTrivial}:     true,
		{PatternKindTrivial, PatternKindItersPermutation}:          true,
		{PatternKindReduceTree, PatternKindTrivial}:                true,
		{PatternKindReduceTree, PatternKindReduceTree}:             true,
		{PatternKindHorizontalFusion, PatternKindHorizontalFusion}: true,
	}

	s := newSoftmaxGraph()
	maxTree := LiftToReduceTreePattern(ConvertToStmtPattern(s.max).(*ReducePattern))
	perm, err := LiftToItersPermutationPattern(ConvertToStmtPattern(s.sub), []int{0, 1})
	require.NoError(t, err)
	instances := map[PatternKind]StmtPattern{
		PatternKindTrivial:               ConvertToStmtPattern(s.exp),
		PatternKindReduce:                ConvertToStmtPattern(s.sum),
		PatternKindReduceTree:            maxTree,
		PatternKindReduceTreePlusTrivial: MustMergePattern(maxTree, ConvertToStmtPattern(s.bcast)),
		PatternKindHorizontalFusion:      LiftToHorizontalFusionPattern(ConvertToStmtPattern(s.exp)),
		PatternKindItersPermutation:      perm,
		PatternKindUnsupport:             NewUnsupportPattern([]*opgraph.Op{s.sub}, NewFusionTracker()),
	}

	for _, first := range PatternKindValues() {
		for _, second := range PatternKindValues() {
			pair := [2]PatternKind{first, second}
			assert.Equalf(t, defined[pair], CanMerge(first, second), "CanMerge(%s, %s)", first, second)
			if defined[pair] {
				continue
			}
			t.Run(fmt.Sprintf("%s-%s", first, second), func(t *testing.T) {
				require.Equal(t, first, instances[first].Kind())
				require.Equal(t, second, instances[second].Kind())
				_, err := MergePattern(instances[first], instances[second])
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrUnimplemented), "unexpected error: %v", err)
				assert.Panics(t, func() { MustMergePattern(instances[first], instances[second]) })
			})
		}
	}

	_, err = MergePattern(nil, instances[PatternKindTrivial])
	assert.True(t, errors.Is(err, ErrInvariantViolation))
}

func TestMergeRules(t *testing.T) {
	require.Len(t, mergeRules, 8)
	for pair, rule := range mergeRules {
		assert.NotNilf(t, rule, "rule for %s-%s", pair[0], pair[1])
		assert.True(t, CanMerge(pair[0], pair[1]))
	}

	// A rule that recurses into mergePattern: exp is fused into the root and into the child of the tree.
	s := newSoftmaxGraph()
	fused, err := MergePattern(ConvertToStmtPattern(s.exp), s.sumTree(t))
	require.NoError(t, err)
	assert.Equal(t, PatternKindReduceTree, fused.Kind())
}

func TestMergeTrivialReduceTree(t *testing.T) {
	t.Run("Softmax", func(t *testing.T) {
		s := newSoftmaxGraph()
		tree := s.sumTree(t)
		assert.Equal(t, []string{"max", "bcast", "sub", "sum"}, names(tree.Ops()))
		require.Len(t, tree.Children(), 1)
		assert.Equal(t, []string{"max"}, names(tree.Children()[0].Ops()))

		// exp is consumed by both the root (sub) and the child (max).
		fused := requireMerge(t, ConvertToStmtPattern(s.exp), tree).(*ReduceTreePattern)
		assert.Equal(t, []string{"exp", "max", "bcast", "sub", "sum"}, names(fused.Ops()))
		assert.Equal(t, []string{"exp", "bcast", "sub", "sum"}, names(fused.Root().Ops()))
		assert.Equal(t, []string{"exp", "max"}, names(fused.Children()[0].Ops()))
		assert.Equal(t, []string{"max", "bcast", "sub", "sum"}, names(tree.Ops()), "input tree must not change")
	})

	t.Run("ConnectivityGating", func(t *testing.T) {
		g := opgraph.New("two_children")
		x := g.Parameter("x", shapes.Make(dtypes.Float32, dimN, dim128))
		y := g.Parameter("y", shapes.Make(dtypes.Float32, dimN, dim128))
		ex := g.Unary(opgraph.OpTypeExp, x)
		mx := g.Reduce(opgraph.OpTypeReduceMax, ex, false, 1)
		ly := g.Unary(opgraph.OpTypeLog, y)
		my := g.Reduce(opgraph.OpTypeReduceMax, ly, false, 1)
		add := g.Binary(opgraph.OpTypeAdd, mx, my)
		bc := broadcastRows(g, add)
		rs := g.Reduce(opgraph.OpTypeReduceSum, bc, false, 1)

		chain := MustMergePattern(ConvertToStmtPattern(add.Producer()), ConvertToStmtPattern(bc.Producer()))
		root := requireMerge(t, chain, ConvertToStmtPattern(rs.Producer())).(*ReducePattern)
		mxTree := LiftToReduceTreePattern(ConvertToStmtPattern(mx.Producer()).(*ReducePattern))
		myTree := LiftToReduceTreePattern(ConvertToStmtPattern(my.Producer()).(*ReducePattern))
		tree := requireMerge(t, mxTree, LiftToReduceTreePattern(root))
		tree = requireMerge(t, myTree, tree)
		children := tree.(*ReduceTreePattern).Children()
		require.Len(t, children, 2)
		assert.Same(t, mxTree, children[0])
		assert.Same(t, myTree, children[1])

		pEx := ConvertToStmtPattern(ex.Producer())
		fused := requireMerge(t, pEx, tree).(*ReduceTreePattern)
		assert.Same(t, root, fused.Root(), "root doesn't consume ex")
		require.Len(t, fused.Children(), 2)
		assert.Same(t, myTree, fused.Children()[1], "my branch doesn't consume ex")
		assert.Equal(t, xsNames(ex, mx), names(fused.Children()[0].Ops()))

		// Exported form: returns down itself if not connected.
		connectOps := opgraph.FindDownstreamOps(ex.Producer())
		same, err := FusePatternIfConnected(pEx, myTree, connectOps)
		require.NoError(t, err)
		assert.Same(t, myTree, same)
		connected, err := FusePatternIfConnected(pEx, mxTree, connectOps)
		require.NoError(t, err)
		assert.NotSame(t, mxTree, connected)
		assert.Equal(t, xsNames(ex, mx), names(connected.Ops()))

		// ly is only consumed by the other branch, and a trivial not consumed by the tree can't be fused.
		pLy := ConvertToStmtPattern(ly.Producer())
		fused = requireMerge(t, pLy, tree).(*ReduceTreePattern)
		assert.Same(t, mxTree, fused.Children()[0])
		pX := ConvertToStmtPattern(g.Unary(opgraph.OpTypeNeg, x).Producer())
		_, err = MergePattern(pX, tree)
		assert.True(t, errors.Is(err, ErrInvariantViolation))
	})
}

// xsNames returns the names of the ops producing the values.
func xsNames(values ...*opgraph.Value) []string {
	out := make([]string, len(values))
	for ii, v := range values {
		out[ii] = v.Producer().Name()
	}
	return out
}

func TestMergeReduceTreeReduceTree(t *testing.T) {
	// u is consumed both by r1 (through bc1) and by r2 (through c):
	//
	//	u = sum(p); r1 = max(broadcast(u)); c = u + r1; r2 = sum(broadcast(c))
	g := opgraph.New("attachments")
	p := g.Parameter("p", shapes.Make(dtypes.Float32, dimN, dim128))
	u := g.Reduce(opgraph.OpTypeReduceSum, p, false, 1)
	bc1 := broadcastRows(g, u)
	r1 := g.Reduce(opgraph.OpTypeReduceMax, bc1, false, 1)
	c := g.Binary(opgraph.OpTypeAdd, u, r1)
	bc2 := broadcastRows(g, c)
	r2 := g.Reduce(opgraph.OpTypeReduceSum, bc2, false, 1)

	r1Pattern := MustMergePattern(ConvertToStmtPattern(bc1.Producer()), ConvertToStmtPattern(r1.Producer()))
	cChain := MustMergePattern(ConvertToStmtPattern(c.Producer()), ConvertToStmtPattern(bc2.Producer()))
	r2Pattern := MustMergePattern(cChain, ConvertToStmtPattern(r2.Producer()))
	r1Tree := LiftToReduceTreePattern(r1Pattern.(*ReducePattern))
	r2Tree := LiftToReduceTreePattern(r2Pattern.(*ReducePattern))
	uTree := LiftToReduceTreePattern(ConvertToStmtPattern(u.Producer()).(*ReducePattern))

	// One attachment point.
	down := requireMerge(t, r1Tree, r2Tree).(*ReduceTreePattern)
	assert.Same(t, r2Pattern, down.Root())
	require.Len(t, down.Children(), 1)
	assert.Same(t, r1Tree, down.Children()[0])
	loop, err := GetLoopFramework(down)
	require.NoError(t, err)
	assert.Equal(t, "[N R:128]", loop.String())

	// Attaching deeper in the tree: u into the r1 child only.
	nested := requireMerge(t, requireMerge(t, uTree, r1Tree), r2Tree).(*ReduceTreePattern)
	require.Len(t, nested.Children(), 1)
	require.Len(t, nested.Children()[0].Children(), 1)
	assert.Same(t, uTree, nested.Children()[0].Children()[0])

	// Two attachment points: u is consumed both by the root and by the child of down.
	_, err = MergePattern(uTree, down)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvariantViolation), "unexpected error: %v", err)

	// Zero attachment points.
	_, err = MergePattern(r2Tree, r1Tree)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvariantViolation), "unexpected error: %v", err)

	// Failed merges leave down unchanged.
	require.Len(t, down.Children()[0].Children(), 0)
}

func TestMergeReduceTreePlusTrivial(t *testing.T) {
	// e = exp(x); sum = reduce(e); out = broadcast(sum) + log(y)
	g := opgraph.New("rtpt")
	x := g.Parameter("x", shapes.Make(dtypes.Float32, dimN, dim128))
	y := g.Parameter("y", shapes.Make(dtypes.Float32, dimN, dim128))
	e := g.Unary(opgraph.OpTypeExp, x)
	sum := g.Reduce(opgraph.OpTypeReduceSum, e, false, 1)
	bc := broadcastRows(g, sum)
	ly := g.Unary(opgraph.OpTypeLog, y)
	out := g.Binary(opgraph.OpTypeAdd, bc, ly)

	tree := LiftToReduceTreePattern(ConvertToStmtPattern(sum.Producer()).(*ReducePattern))
	sink := requireMerge(t, ConvertToStmtPattern(bc.Producer()), ConvertToStmtPattern(out.Producer())).(*TrivialPattern)
	rtpt := requireMerge(t, tree, sink).(*ReduceTreePlusTrivialPattern)
	assert.Same(t, tree, rtpt.Tree())
	assert.Same(t, sink, rtpt.SinkTrivial())
	assert.Empty(t, rtpt.FakeReduceIterIdx())
	withFake, err := rtpt.WithFakeReduceIterIdx([]int{1})
	require.NoError(t, err)

	// ly only feeds the sink trivial.
	fused := requireMerge(t, ConvertToStmtPattern(ly.Producer()), withFake).(*ReduceTreePlusTrivialPattern)
	assert.Same(t, tree, fused.Tree())
	assert.Equal(t, xsNames(ly, bc, out), names(fused.SinkTrivial().Ops()))
	assert.Same(t, out.Producer(), fused.SinkTrivial().SinkOp())
	assert.Equal(t, []int{1}, fused.FakeReduceIterIdx())
	loop, err := GetLoopFramework(fused)
	require.NoError(t, err)
	assert.Equal(t, "[N R:128]", loop.String())

	// e only feeds the tree.
	fused = requireMerge(t, ConvertToStmtPattern(e.Producer()), fused).(*ReduceTreePlusTrivialPattern)
	assert.Same(t, sink.SinkOp(), fused.SinkTrivial().SinkOp())
	assert.Equal(t, xsNames(e, sum), names(fused.Tree().Ops()))
	assert.Equal(t, xsNames(ly, bc, out), names(fused.SinkTrivial().Ops()))
	assert.Equal(t, []int{1}, fused.FakeReduceIterIdx())
	assert.Equal(t, xsNames(e, ly, sum, bc, out), names(fused.Ops()))

	// A trivial not consumed by any part of the pattern can't be fused.
	pNeg := ConvertToStmtPattern(g.Unary(opgraph.OpTypeNeg, y).Producer())
	_, err = MergePattern(pNeg, rtpt)
	assert.True(t, errors.Is(err, ErrInvariantViolation))
}

func TestMergeTrivialItersPermutation(t *testing.T) {
	g := opgraph.New("perm")
	x := g.Parameter("x", shapes.Make(dtypes.Float32, dimN, dim128))
	e := g.Unary(opgraph.OpTypeExp, x)
	r := g.Unary(opgraph.OpTypeRelu, e)
	perm, err := LiftToItersPermutationPattern(ConvertToStmtPattern(r.Producer()), []int{1, 0})
	require.NoError(t, err)

	merged := requireMerge(t, ConvertToStmtPattern(e.Producer()), perm).(*ItersPermutationPattern)
	assert.True(t, perm.LoopDims().Equal(merged.LoopDims()))
	assert.Equal(t, xsNames(e, r), names(merged.Ops()))
	loop, err := GetLoopFramework(merged)
	require.NoError(t, err)
	assert.Equal(t, "[128 N]", loop.String())
}

func TestMergeHorizontal(t *testing.T) {
	g := opgraph.New("horizontal")
	a := ConvertToStmtPattern(g.Unary(opgraph.OpTypeRelu, g.Parameter("a", shapes.MakeStatic(dtypes.Float32, 4, 1, 8))).Producer())
	b := ConvertToStmtPattern(g.Unary(opgraph.OpTypeRelu, g.Parameter("b", shapes.MakeStatic(dtypes.Float32, 4, 6, 1, 8))).Producer())
	ha, hb := LiftToHorizontalFusionPattern(a), LiftToHorizontalFusionPattern(b)

	h := requireMerge(t, ha, hb).(*HorizontalFusionPattern)
	members := h.Members()
	require.Len(t, members, 2)
	assert.Same(t, ha, members[0].Pattern)
	assert.Equal(t, []int{1}, members[0].PaddingPos)
	assert.Same(t, hb, members[1].Pattern)
	assert.Empty(t, members[1].PaddingPos)
	loop, err := GetLoopFramework(h)
	require.NoError(t, err)
	assert.Equal(t, "[4 6 1 8]", loop.String())

	c := ConvertToStmtPattern(g.Unary(opgraph.OpTypeRelu, g.Parameter("c", shapes.MakeStatic(dtypes.Float32, 4, 6))).Producer())
	_, err = MergePattern(LiftToHorizontalFusionPattern(c), ha)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrShapeIncompatible), "unexpected error: %v", err)
}
