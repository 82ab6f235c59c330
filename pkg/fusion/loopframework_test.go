// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package fusion

import (
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/opfusion/pkg/core/opgraph"
	"github.com/gomlx/opfusion/pkg/core/shapes"
	"github.com/gomlx/opfusion/pkg/support/xslices"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// reluPattern returns a TrivialPattern of a Relu over a new parameter with the given static dims.
func reluPattern(g *opgraph.Graph, dims ...int) StmtPattern {
	x := g.Parameter("x", shapes.MakeStatic(dtypes.Float32, dims...))
	return ConvertToStmtPattern(g.Unary(opgraph.OpTypeRelu, x).Producer())
}

// reducePattern returns a ReducePattern of a ReduceSum over a new parameter with the given static dims.
func reducePattern(g *opgraph.Graph, axis int, dims ...int) StmtPattern {
	x := g.Parameter("x", shapes.MakeStatic(dtypes.Float32, dims...))
	return ConvertToStmtPattern(g.Reduce(opgraph.OpTypeReduceSum, x, false, axis).Producer())
}

func requireLoop(t *testing.T, pattern StmtPattern) MaybeLoopFramework {
	t.Helper()
	loop, err := GetLoopFramework(pattern)
	require.NoError(t, err)
	require.Len(t, loop.IsReduce, len(loop.Loop))
	return loop
}

func TestGetLoopFramework(t *testing.T) {
	s := newSoftmaxGraph()
	pSum := ConvertToStmtPattern(s.sum)

	t.Run("Trivial", func(t *testing.T) {
		loop := requireLoop(t, ConvertToStmtPattern(s.sub))
		assert.Equal(t, "[N 128]", loop.String())
		assert.Empty(t, loop.ReduceLoop())
	})

	t.Run("Reduce", func(t *testing.T) {
		loop := requireLoop(t, pSum)
		assert.Equal(t, []shapes.DimExpr{dimN, dim128}, loop.Loop)
		assert.Equal(t, []bool{false, true}, loop.IsReduce)
		assert.Equal(t, "[N R:128]", loop.String())

		g := opgraph.New("keep_dims")
		x := g.Parameter("x", shapes.MakeStatic(dtypes.Float32, 2, 3, 4))
		kept := ConvertToStmtPattern(g.Reduce(opgraph.OpTypeReduceMax, x, true, 0, 2).Producer())
		assert.Equal(t, "[1 3 1 R:2 R:4]", requireLoop(t, kept).String())
	})

	t.Run("ReduceTree", func(t *testing.T) {
		tree := s.sumTree(t)
		assert.True(t, requireLoop(t, tree).Equal(requireLoop(t, tree.Root())))
	})

	t.Run("ReduceTreePlusTrivial", func(t *testing.T) {
		// Tree [sum] feeding a broadcast of its result back to [N, 128].
		g := opgraph.New("rtpt")
		x := g.Parameter("x", shapes.Make(dtypes.Float32, dimN, dim128))
		sum := g.Reduce(opgraph.OpTypeReduceSum, x, false, 1)
		bcast := broadcastRows(g, sum)
		tree := LiftToReduceTreePattern(ConvertToStmtPattern(sum.Producer()).(*ReducePattern))
		rtpt := requireMerge(t, tree, ConvertToStmtPattern(bcast.Producer())).(*ReduceTreePlusTrivialPattern)
		assert.Equal(t, "[N 128 R:128]", requireLoop(t, rtpt).String())

		withFake, err := rtpt.WithFakeReduceIterIdx([]int{0})
		require.NoError(t, err)
		assert.Equal(t, "[128 R:N]", requireLoop(t, withFake).String())
	})

	t.Run("HorizontalFusion", func(t *testing.T) {
		// Representative is the first member holding a ReducePattern.
		h := NewHorizontalFusionPattern([]PaddingStmtPattern{
			{Pattern: ConvertToStmtPattern(s.sub), PaddingPos: []int{0}},
			{Pattern: pSum, PaddingPos: []int{1}},
			{Pattern: ConvertToStmtPattern(s.max)},
		}, NewFusionTracker())
		assert.Equal(t, "[N 1 R:128]", requireLoop(t, h).String())

		// Without ReducePattern, the last member is used.
		h = NewHorizontalFusionPattern([]PaddingStmtPattern{
			{Pattern: LiftToReduceTreePattern(pSum.(*ReducePattern))},
			{Pattern: ConvertToStmtPattern(s.exp), PaddingPos: []int{2, 0}},
		}, NewFusionTracker())
		assert.Equal(t, "[1 N 1 128]", requireLoop(t, h).String())

		h = NewHorizontalFusionPattern([]PaddingStmtPattern{
			{Pattern: ConvertToStmtPattern(s.exp), PaddingPos: []int{4}},
		}, NewFusionTracker())
		_, err := GetLoopFramework(h)
		assert.True(t, errors.Is(err, ErrIndexOutOfRange))
	})

	t.Run("ItersPermutation", func(t *testing.T) {
		stored := NewLoopFramework([]shapes.DimExpr{dim128, dimN}, 1)
		p := NewItersPermutationPattern([]*opgraph.Op{s.sub}, NewFusionTracker(), stored)
		assert.True(t, stored.Equal(requireLoop(t, p)))
	})

	t.Run("Unsupport", func(t *testing.T) {
		p := NewUnsupportPattern([]*opgraph.Op{s.sub}, NewFusionTracker())
		_, err := GetLoopFramework(p)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrUnimplemented))
		_, err = IsLoopFrameworkEqual(p, pSum)
		assert.True(t, errors.Is(err, ErrUnimplemented))
	})
}

func TestLoopFrameworkOps(t *testing.T) {
	loop := MaybeLoopFramework{
		Loop:     []shapes.DimExpr{shapes.One, dimN, shapes.One, dim128},
		IsReduce: []bool{false, false, true, true},
	}
	squeezed := loop.Squeeze()
	assert.Equal(t, []shapes.DimExpr{dimN, dim128}, squeezed.Loop)
	assert.Equal(t, []bool{false, true}, squeezed.IsReduce)

	nonReduce, reduce := loop.SplitReduceLoop()
	assert.Equal(t, []shapes.DimExpr{shapes.One, dimN}, nonReduce)
	assert.Equal(t, []shapes.DimExpr{shapes.One, dim128}, reduce)

	resolved := loop.Resolve(shapes.AxisBindings{"N": 32})
	assert.Equal(t, "[1 32 R:1 R:128]", resolved.String())
	assert.Equal(t, "[1 N R:1 R:128]", loop.String())

	assert.Panics(t, func() { NewLoopFramework(shapes.StaticDims(2, 3), 3) })
}

func TestIsLoopFrameworkEqual(t *testing.T) {
	g := opgraph.New("loops")
	requireEqual := func(first, second StmtPattern) bool {
		t.Helper()
		equal, err := IsLoopFrameworkEqual(first, second)
		require.NoError(t, err)
		return equal
	}

	// Unit dims are squeezed on both sides.
	assert.True(t, requireEqual(reluPattern(g, 1, 4, 1, 8), reluPattern(g, 4, 8)))
	assert.False(t, requireEqual(reluPattern(g, 4, 8), reluPattern(g, 8, 4)))
	assert.False(t, requireEqual(reluPattern(g, 4, 8), reluPattern(g, 4, 8, 2)))

	// Reduction dims must match, when both have them.
	assert.True(t, requireEqual(reducePattern(g, 1, 4, 8), reducePattern(g, 0, 8, 4)))
	assert.False(t, requireEqual(reducePattern(g, 1, 4, 8), reducePattern(g, 1, 8, 4)))

	// A pattern without reduction dims is compatible with any reduction, as long as the squeezed loops match.
	assert.True(t, requireEqual(reluPattern(g, 4, 8), reducePattern(g, 1, 4, 8)))
	assert.False(t, requireEqual(reluPattern(g, 4), reducePattern(g, 1, 4, 8)))

	// Softmax-like: the sub chain iterates over the same loop as the sum reduction.
	s := newSoftmaxGraph()
	assert.True(t, requireEqual(ConvertToStmtPattern(s.sub), ConvertToStmtPattern(s.sum)))
	assert.True(t, requireEqual(ConvertToStmtPattern(s.max), ConvertToStmtPattern(s.sum)))
}

func TestGetPaddingVector(t *testing.T) {
	testCases := []struct {
		name                  string
		first, second         []shapes.DimExpr
		wantFirst, wantSecond []int
	}{
		{"broadcast_in_second", shapes.StaticDims(4, 1, 8), shapes.StaticDims(4, 6, 1, 8), []int{1}, nil},
		{"unit_in_first", shapes.StaticDims(4, 1, 8), shapes.StaticDims(4, 8), nil, []int{1}},
		{"equal", shapes.StaticDims(4, 8), shapes.StaticDims(4, 8), nil, nil},
		{"first_empty", nil, shapes.StaticDims(1, 1), []int{0, 1}, nil},
		{"trailing_unit", []shapes.DimExpr{dimN, shapes.One}, []shapes.DimExpr{dimN}, nil, []int{1}},
		{"symbolic", []shapes.DimExpr{dimN, shapes.One, dim128}, []shapes.DimExpr{shapes.One, dimN, dim128}, []int{0}, []int{2}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			padFirst, padSecond, err := GetPaddingVector(tc.first, tc.second)
			require.NoError(t, err)
			assert.Equal(t, tc.wantFirst, padFirst)
			assert.Equal(t, tc.wantSecond, padSecond)

			// Round trip: padded loops have the same length, and each pair is equal or broadcastable.
			first := xslices.InsertAt(tc.first, padFirst, shapes.One)
			second := xslices.InsertAt(tc.second, padSecond, shapes.One)
			require.Len(t, second, len(first))
			for ii := range first {
				assert.Truef(t, first[ii] == second[ii] || first[ii].IsOne() || second[ii].IsOne(),
					"position %d: %s vs %s", ii, first[ii], second[ii])
			}
		})
	}

	for _, incompatible := range [][2][]shapes.DimExpr{
		{shapes.StaticDims(4, 8), shapes.StaticDims(4, 6)},
		{shapes.StaticDims(4), shapes.StaticDims(4, 8)},
		{[]shapes.DimExpr{dimN}, []shapes.DimExpr{shapes.Symbol("M")}},
	} {
		_, _, err := GetPaddingVector(incompatible[0], incompatible[1])
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrShapeIncompatible))
	}
}

func TestGetLoopValueDims(t *testing.T) {
	s := newSoftmaxGraph()
	pSum := ConvertToStmtPattern(s.sum)
	sumInput := s.sum.Operand(0)

	dims, err := GetLoopValueDims(pSum)
	require.NoError(t, err)
	require.Len(t, dims, 1)
	assert.Equal(t, []ValueDim{{s.sum.Result(0), 0}, {sumInput, 1}}, dims[0])
	loop := requireLoop(t, pSum)
	assert.Equal(t, loop.Loop, xslices.Map(dims[0], ValueDim.DimExpr))

	h, err := MergePattern(
		LiftToHorizontalFusionPattern(ConvertToStmtPattern(s.exp)),
		LiftToHorizontalFusionPattern(LiftToReduceTreePattern(pSum.(*ReducePattern))))
	require.NoError(t, err)
	dims, err = GetLoopValueDims(h)
	require.NoError(t, err)
	require.Len(t, dims, 2)
	assert.Equal(t, AllValueDims(s.exp.Result(0)), dims[0])
	assert.Equal(t, []ValueDim{{s.sum.Result(0), 0}, {sumInput, 1}}, dims[1])

	// Padding placeholders.
	padded := NewHorizontalFusionPattern([]PaddingStmtPattern{
		{Pattern: ConvertToStmtPattern(s.max), PaddingPos: []int{0, 2}},
	}, NewFusionTracker())
	dims, err = GetLoopValueDims(padded)
	require.NoError(t, err)
	require.Len(t, dims[0], 4)
	assert.True(t, dims[0][0].IsPadding())
	assert.True(t, dims[0][2].IsPadding())
	assert.Equal(t, "<pad>", dims[0][2].String())
	assert.Equal(t, "1 N 1 128", shapes.JoinDims(xslices.Map(dims[0], ValueDim.DimExpr), " "))
	assert.Equal(t, "exp[1]", dims[0][3].String())

	// Fake reduce dims are moved to the end.
	tree := LiftToReduceTreePattern(ConvertToStmtPattern(s.max).(*ReducePattern))
	rtpt := MustMergePattern(tree, ConvertToStmtPattern(s.bcast)).(*ReduceTreePlusTrivialPattern)
	dims, err = GetLoopValueDims(rtpt)
	require.NoError(t, err)
	assert.Equal(t, []ValueDim{{s.bcast.Result(0), 0}, {s.bcast.Result(0), 1}, {s.exp.Result(0), 1}}, dims[0])
	withFake, err := rtpt.WithFakeReduceIterIdx([]int{0})
	require.NoError(t, err)
	dims, err = GetLoopValueDims(withFake)
	require.NoError(t, err)
	assert.Equal(t, []ValueDim{{s.bcast.Result(0), 1}, {s.bcast.Result(0), 0}}, dims[0])

	_, err = GetLoopValueDims(NewUnsupportPattern([]*opgraph.Op{s.exp}, NewFusionTracker()))
	assert.True(t, errors.Is(err, ErrUnimplemented))
}

func TestGetOutputOpsInPattern(t *testing.T) {
	s := newSoftmaxGraph()
	tree := s.sumTree(t)
	outputs := func(p StmtPattern) []string {
		t.Helper()
		ops, err := GetOutputOpsInPattern(p)
		require.NoError(t, err)
		return names(ops)
	}
	assert.Equal(t, []string{"exp"}, outputs(ConvertToStmtPattern(s.exp)))
	assert.Equal(t, []string{"sum"}, outputs(tree.Root()))
	assert.Equal(t, []string{"sum"}, outputs(tree))

	g := opgraph.New("output")
	x := g.Parameter("x", shapes.Make(dtypes.Float32, dimN, dim128))
	sum := g.Reduce(opgraph.OpTypeReduceSum, x, false, 1)
	bcast := broadcastRows(g, sum)
	out := named(g.Unary(opgraph.OpTypeNeg, bcast), "neg")
	sink := MustMergePattern(ConvertToStmtPattern(bcast.Producer()), ConvertToStmtPattern(out))
	rtpt := MustMergePattern(LiftToReduceTreePattern(ConvertToStmtPattern(sum.Producer()).(*ReducePattern)), sink)
	assert.Equal(t, []string{"neg"}, outputs(rtpt))

	h := NewHorizontalFusionPattern([]PaddingStmtPattern{
		{Pattern: ConvertToStmtPattern(s.exp)},
		{Pattern: rtpt},
	}, NewFusionTracker())
	assert.Equal(t, []string{"exp", "neg"}, outputs(h))

	perm, err := LiftToItersPermutationPattern(ConvertToStmtPattern(s.exp), []int{1, 0})
	require.NoError(t, err)
	_, err = GetOutputOpsInPattern(perm)
	assert.True(t, errors.Is(err, ErrUnimplemented))
	_, err = GetOutputOpsInPattern(NewUnsupportPattern([]*opgraph.Op{s.exp}, NewFusionTracker()))
	assert.True(t, errors.Is(err, ErrUnimplemented))
}
