// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package opgraph is a minimal dataflow graph of primitive tensor operations, with symbolic shapes.
//
// It is the operation/graph layer consumed by the fusion engine (package fusion): ops have an identity,
// a coarse kind (see OpPatternKind), ordered operands and results, and values know their producer and
// their users.
//
// # Error Handling
//
// Like the GoMLX graph package, building methods "throw" errors with panic() (see
// github.com/gomlx/exceptions), so graphs can be built without checking errors at every op. Use
// exceptions.TryCatch[error] to convert them back to errors.
package opgraph

import (
	"fmt"
	"slices"
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/opfusion/pkg/core/shapes"
	"github.com/gomlx/opfusion/pkg/support/sets"
	"github.com/gomlx/opfusion/pkg/support/xslices"
	"k8s.io/klog/v2"
)

// OpID is the index of the op in its Graph.
type OpID int

// ValueID is the index of the value in its Graph.
type ValueID int

// Graph holds the ops and values of a dataflow graph.
// Ops are stored in creation order, which is a topological order.
type Graph struct {
	name   string
	ops    []*Op
	values []*Value
}

// New creates an empty Graph.
func New(name string) *Graph {
	return &Graph{name: name}
}

// Name of the graph.
func (g *Graph) Name() string { return g.name }

// Ops returns the ops of the graph in creation order.
func (g *Graph) Ops() []*Op { return slices.Clone(g.ops) }

// NumOps returns the number of ops in the graph.
func (g *Graph) NumOps() int { return len(g.ops) }

// Op returns the op with the given id.
func (g *Graph) Op(id OpID) *Op {
	if int(id) < 0 || int(id) >= len(g.ops) {
		exceptions.Panicf("Graph(%q).Op(%d): op id out of range, graph has %d ops", g.name, id, len(g.ops))
	}
	return g.ops[id]
}

// Values returns all values (graph inputs and op results) in creation order.
func (g *Graph) Values() []*Value { return slices.Clone(g.values) }

// String returns a multi-line listing of the graph.
func (g *Graph) String() string {
	var sb strings.Builder
	_, _ = fmt.Fprintf(&sb, "Graph %q: %d ops\n", g.name, len(g.ops))
	for _, op := range g.ops {
		_, _ = fmt.Fprintf(&sb, "\t%s\n", op)
	}
	return sb.String()
}

// Value is a tensor value: either a graph input (no producer) or the result of an op.
type Value struct {
	graph    *Graph
	id       ValueID
	name     string
	shape    shapes.Shape
	producer *Op
	index    int // index in producer's results.
	users    []*Op
}

// ID of the value within its graph.
func (v *Value) ID() ValueID { return v.id }

// Graph the value belongs to.
func (v *Value) Graph() *Graph { return v.graph }

// Shape of the value. It implements shapes.HasShape.
func (v *Value) Shape() shapes.Shape { return v.shape }

// Producer returns the op that produces the value, or nil for graph inputs.
func (v *Value) Producer() *Op { return v.producer }

// ResultIndex returns the index of the value in its producer's results.
func (v *Value) ResultIndex() int { return v.index }

// Users returns the ops that take the value as an operand, in creation order, without duplicates.
func (v *Value) Users() []*Op { return slices.Clone(v.users) }

// Name returns the name of the value: the parameter name for inputs, or the producer name
// (with the result index if the producer has more than one result).
func (v *Value) Name() string {
	if v.producer == nil {
		return v.name
	}
	if len(v.producer.results) == 1 {
		return v.producer.name
	}
	return fmt.Sprintf("%s#%d", v.producer.name, v.index)
}

// String implements fmt.Stringer.
func (v *Value) String() string {
	return fmt.Sprintf("%%%s%s", v.Name(), v.shape)
}

// Op is one primitive operation in the Graph.
type Op struct {
	graph    *Graph
	id       OpID
	name     string
	opType   OpType
	operands []*Value
	results  []*Value

	// reduceAxes and keepDims are only set for reductions.
	reduceAxes []int
	keepDims   bool

	// Attributes of the other ops, kept for printing and shape checking.
	broadcastAxes []int
	permutation   []int
}

// ID of the op within its graph.
func (op *Op) ID() OpID { return op.id }

// Graph the op belongs to.
func (op *Op) Graph() *Graph { return op.graph }

// Name of the op. Defaults to the lower-case op type followed by the op id, see SetName.
func (op *Op) Name() string { return op.name }

// SetName changes the name of the op. It returns the op itself, so it can be chained.
func (op *Op) SetName(name string) *Op {
	op.name = name
	return op
}

// Type of the op.
func (op *Op) Type() OpType { return op.opType }

// Kind returns the coarse kind of the op, see OpPatternKind.
func (op *Op) Kind() Kind { return OpPatternKind(op.opType) }

// NumOperands returns the number of operands.
func (op *Op) NumOperands() int { return len(op.operands) }

// Operand returns the i-th operand.
func (op *Op) Operand(i int) *Value { return op.operands[i] }

// Operands returns the operands in order.
func (op *Op) Operands() []*Value { return slices.Clone(op.operands) }

// NumResults returns the number of results.
func (op *Op) NumResults() int { return len(op.results) }

// Result returns the i-th result.
func (op *Op) Result(i int) *Value { return op.results[i] }

// Results returns the results in order.
func (op *Op) Results() []*Value { return slices.Clone(op.results) }

// ReduceAxes returns the axes reduced by a reduction op (in the operand's axes), or nil for other ops.
func (op *Op) ReduceAxes() []int { return slices.Clone(op.reduceAxes) }

// KeepDims returns whether a reduction op keeps the reduced axes as dimensions of size 1.
func (op *Op) KeepDims() bool { return op.keepDims }

// String implements fmt.Stringer.
func (op *Op) String() string {
	results := xslices.Map(op.results, func(v *Value) string { return v.String() })
	operands := xslices.Map(op.operands, func(v *Value) string { return "%" + v.Name() })
	var attrs string
	switch {
	case op.reduceAxes != nil:
		attrs = fmt.Sprintf(" axes=%v keep_dims=%v", op.reduceAxes, op.keepDims)
	case op.broadcastAxes != nil:
		attrs = fmt.Sprintf(" axes=%v", op.broadcastAxes)
	case op.permutation != nil:
		attrs = fmt.Sprintf(" permutation=%v", op.permutation)
	}
	return fmt.Sprintf("%s = %s(%s)%s", strings.Join(results, ", "), op.opType, strings.Join(operands, ", "), attrs)
}

// newValue registers a new value in the graph.
func (g *Graph) newValue(name string, shape shapes.Shape, producer *Op, index int) *Value {
	v := &Value{graph: g, id: ValueID(len(g.values)), name: name, shape: shape, producer: producer, index: index}
	g.values = append(g.values, v)
	return v
}

// addOp creates an op with the given operands and result shapes, and links the use-def edges.
func (g *Graph) addOp(opType OpType, operands []*Value, resultShapes ...shapes.Shape) *Op {
	for ii, operand := range operands {
		if operand == nil {
			exceptions.Panicf("%s: operand #%d is nil", opType, ii)
		}
		if operand.graph != g {
			exceptions.Panicf("%s: operand #%d (%s) belongs to a different graph", opType, ii, operand)
		}
	}
	op := &Op{
		graph:    g,
		id:       OpID(len(g.ops)),
		opType:   opType,
		operands: slices.Clone(operands),
	}
	op.name = fmt.Sprintf("%s_%d", strings.ToLower(opType.String()), op.id)
	for ii, shape := range resultShapes {
		op.results = append(op.results, g.newValue("", shape, op, ii))
	}
	seen := sets.Make[ValueID](len(operands))
	for _, operand := range operands {
		if seen.Has(operand.id) {
			continue
		}
		seen.Insert(operand.id)
		operand.users = append(operand.users, op)
	}
	g.ops = append(g.ops, op)
	if klog.V(3).Enabled() {
		klog.Infof("Graph(%q): added %s", g.name, op)
	}
	return op
}

// Parameter creates a graph input value.
func (g *Graph) Parameter(name string, shape shapes.Shape) *Value {
	if !shape.Ok() {
		exceptions.Panicf("Graph(%q).Parameter(%q): invalid shape %s", g.name, name, shape)
	}
	return g.newValue(name, shape.Clone(), nil, 0)
}

// Unary adds an element-wise op with one operand.
func (g *Graph) Unary(opType OpType, x *Value) *Value {
	if !opType.IsUnary() {
		exceptions.Panicf("Graph.Unary(%s): not a unary op", opType)
	}
	return g.addOp(opType, []*Value{x}, x.shape.Clone()).results[0]
}

// Binary adds an element-wise op with two operands of the same shape.
// Broadcasting must be made explicit with BroadcastInDim.
func (g *Graph) Binary(opType OpType, x, y *Value) *Value {
	if !opType.IsBinary() {
		exceptions.Panicf("Graph.Binary(%s): not a binary op", opType)
	}
	if !x.shape.Equal(y.shape) {
		exceptions.Panicf("Graph.Binary(%s): operands have different shapes %s and %s", opType, x.shape, y.shape)
	}
	return g.addOp(opType, []*Value{x, y}, x.shape.Clone()).results[0]
}

// Where adds the element-wise selection `cond ? onTrue : onFalse`.
func (g *Graph) Where(cond, onTrue, onFalse *Value) *Value {
	if cond.shape.DType != dtypes.Bool {
		exceptions.Panicf("Graph.Where: condition must be Bool, got %s", cond.shape)
	}
	if !onTrue.shape.Equal(onFalse.shape) || !cond.shape.EqualDimensions(onTrue.shape) {
		exceptions.Panicf("Graph.Where: incompatible shapes %s, %s and %s", cond.shape, onTrue.shape, onFalse.shape)
	}
	return g.addOp(OpTypeWhere, []*Value{cond, onTrue, onFalse}, onTrue.shape.Clone()).results[0]
}

// ConvertDType adds an element-wise conversion of x to the given dtype.
func (g *Graph) ConvertDType(x *Value, dtype dtypes.DType) *Value {
	return g.addOp(OpTypeConvertDType, []*Value{x}, shapes.Make(dtype, x.shape.Dimensions...)).results[0]
}

// BroadcastInDim broadcasts x to the given output dimensions. axes maps each axis of x to an axis of the
// output, and the dimension of x in each axis must be either 1 or equal to the output dimension.
func (g *Graph) BroadcastInDim(x *Value, outputDims []shapes.DimExpr, axes ...int) *Value {
	if len(axes) != x.shape.Rank() {
		exceptions.Panicf("Graph.BroadcastInDim: operand of rank %d requires %d axes, got %v", x.shape.Rank(), x.shape.Rank(), axes)
	}
	for ii, axis := range axes {
		if axis < 0 || axis >= len(outputDims) {
			exceptions.Panicf("Graph.BroadcastInDim: axis %d out of range for output rank %d", axis, len(outputDims))
		}
		if ii > 0 && axis <= axes[ii-1] {
			exceptions.Panicf("Graph.BroadcastInDim: axes must be strictly increasing, got %v", axes)
		}
		if dim := x.shape.Dimensions[ii]; !dim.IsOne() && dim != outputDims[axis] {
			exceptions.Panicf("Graph.BroadcastInDim: operand axis %d (%s) cannot be broadcast to %s", ii, dim, outputDims[axis])
		}
	}
	op := g.addOp(OpTypeBroadcastInDim, []*Value{x}, shapes.Make(x.shape.DType, outputDims...))
	op.broadcastAxes = slices.Clone(axes)
	return op.results[0]
}

// Reshape x to the given dimensions. If all dimensions are static, the sizes must match.
func (g *Graph) Reshape(x *Value, dims ...shapes.DimExpr) *Value {
	newShape := shapes.Make(x.shape.DType, dims...)
	if x.shape.IsStatic() && newShape.IsStatic() && staticSize(x.shape) != staticSize(newShape) {
		exceptions.Panicf("Graph.Reshape: cannot reshape %s to %s", x.shape, newShape)
	}
	return g.addOp(OpTypeReshape, []*Value{x}, newShape).results[0]
}

func staticSize(s shapes.Shape) int64 {
	size := int64(1)
	for _, d := range s.Dimensions {
		size *= d.Value()
	}
	return size
}

// Transpose permutes the axes of x: output axis i is x's axis permutation[i].
func (g *Graph) Transpose(x *Value, permutation ...int) *Value {
	if len(permutation) != x.shape.Rank() {
		exceptions.Panicf("Graph.Transpose: permutation %v doesn't match rank of %s", permutation, x.shape)
	}
	used := sets.Make[int]()
	dims := make([]shapes.DimExpr, len(permutation))
	for ii, axis := range permutation {
		if axis < 0 || axis >= x.shape.Rank() || used.Has(axis) {
			exceptions.Panicf("Graph.Transpose: invalid permutation %v for %s", permutation, x.shape)
		}
		used.Insert(axis)
		dims[ii] = x.shape.Dimensions[axis]
	}
	op := g.addOp(OpTypeTranspose, []*Value{x}, shapes.Make(x.shape.DType, dims...))
	op.permutation = slices.Clone(permutation)
	return op.results[0]
}

// Reduce adds a reduction of x over the given axes. If keepDims is true, the reduced axes are kept
// with dimension 1, otherwise they are removed. Negative axes count from the end.
func (g *Graph) Reduce(opType OpType, x *Value, keepDims bool, axes ...int) *Value {
	if OpPatternKind(opType) != KindReduction {
		exceptions.Panicf("Graph.Reduce(%s): not a reduction", opType)
	}
	if len(axes) == 0 {
		exceptions.Panicf("Graph.Reduce(%s): no axes to reduce given", opType)
	}
	rank := x.shape.Rank()
	reduced := make([]int, 0, len(axes))
	for _, axis := range axes {
		adjusted := axis
		if adjusted < 0 {
			adjusted += rank
		}
		if adjusted < 0 || adjusted >= rank || slices.Contains(reduced, adjusted) {
			exceptions.Panicf("Graph.Reduce(%s): invalid axes %v for %s", opType, axes, x.shape)
		}
		reduced = append(reduced, adjusted)
	}
	slices.Sort(reduced)
	var dims []shapes.DimExpr
	for axis, dim := range x.shape.Dimensions {
		switch {
		case !slices.Contains(reduced, axis):
			dims = append(dims, dim)
		case keepDims:
			dims = append(dims, shapes.One)
		}
	}
	op := g.addOp(opType, []*Value{x}, shapes.Make(x.shape.DType, dims...))
	op.reduceAxes = reduced
	op.keepDims = keepDims
	return op.results[0]
}

// DotGeneral adds a matrix multiplication of lhs [M, K] and rhs [K, N].
func (g *Graph) DotGeneral(lhs, rhs *Value) *Value {
	if lhs.shape.Rank() != 2 || rhs.shape.Rank() != 2 || lhs.shape.Dim(1) != rhs.shape.Dim(0) ||
		lhs.shape.DType != rhs.shape.DType {
		exceptions.Panicf("Graph.DotGeneral: incompatible shapes %s and %s", lhs.shape, rhs.shape)
	}
	return g.addOp(OpTypeDotGeneral, []*Value{lhs, rhs}, shapes.Make(lhs.shape.DType, lhs.shape.Dim(0), rhs.shape.Dim(1))).results[0]
}

// Custom adds an opaque op with the given result shapes. Custom ops are never fused.
func (g *Graph) Custom(inputs []*Value, resultShapes ...shapes.Shape) *Op {
	if len(resultShapes) == 0 {
		exceptions.Panicf("Graph.Custom: at least one result is required")
	}
	return g.addOp(OpTypeCustom, inputs, resultShapes...)
}
