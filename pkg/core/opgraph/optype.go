// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package opgraph

// OpType is an enum of the primitive operations that can appear in a Graph.
type OpType int

//go:generate go tool enumer -type=OpType -trimprefix=OpType -output=gen_optype_enumer.go optype.go

const (
	OpTypeInvalid OpType = iota

	// Element-wise operations.

	OpTypeAbs
	OpTypeAdd
	OpTypeConvertDType
	OpTypeDiv
	OpTypeExp
	OpTypeLog
	OpTypeLogistic
	OpTypeMax
	OpTypeMin
	OpTypeMul
	OpTypeNeg
	OpTypeRelu
	OpTypeRsqrt
	OpTypeSqrt
	OpTypeSub
	OpTypeTanh
	OpTypeWhere

	// Broadcast operations.

	OpTypeBroadcastInDim

	// Injective operations: every output element maps to exactly one input element.

	OpTypeReshape
	OpTypeTranspose

	// Reductions.

	OpTypeReduceMax
	OpTypeReduceMin
	OpTypeReduceProduct
	OpTypeReduceSum

	// Operations that never take part in fusion.

	OpTypeDotGeneral
	OpTypeCustom

	// OpTypeLast should always be kept the last, it is used as a counter/marker for OpType.
	OpTypeLast
)

// Kind is the coarse classification of an operation used by fusion.
type Kind int

const (
	KindUnsupported Kind = iota
	KindElementWise
	KindBroadcast
	KindInjective
	KindReduction
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindElementWise:
		return "ElementWise"
	case KindBroadcast:
		return "Broadcast"
	case KindInjective:
		return "Injective"
	case KindReduction:
		return "Reduction"
	default:
		return "Unsupported"
	}
}

// OpPatternKind returns the coarse kind of the given op type.
func OpPatternKind(t OpType) Kind {
	switch t {
	case OpTypeAbs, OpTypeAdd, OpTypeConvertDType, OpTypeDiv, OpTypeExp, OpTypeLog, OpTypeLogistic,
		OpTypeMax, OpTypeMin, OpTypeMul, OpTypeNeg, OpTypeRelu, OpTypeRsqrt, OpTypeSqrt, OpTypeSub,
		OpTypeTanh, OpTypeWhere:
		return KindElementWise
	case OpTypeBroadcastInDim:
		return KindBroadcast
	case OpTypeReshape, OpTypeTranspose:
		return KindInjective
	case OpTypeReduceMax, OpTypeReduceMin, OpTypeReduceProduct, OpTypeReduceSum:
		return KindReduction
	default:
		return KindUnsupported
	}
}

// IsUnary returns whether the op type is an element-wise op taking one operand.
func (t OpType) IsUnary() bool {
	switch t {
	case OpTypeAbs, OpTypeExp, OpTypeLog, OpTypeLogistic, OpTypeNeg, OpTypeRelu, OpTypeRsqrt, OpTypeSqrt, OpTypeTanh:
		return true
	}
	return false
}

// IsBinary returns whether the op type is an element-wise op taking two operands.
func (t OpType) IsBinary() bool {
	switch t {
	case OpTypeAdd, OpTypeDiv, OpTypeMax, OpTypeMin, OpTypeMul, OpTypeSub:
		return true
	}
	return false
}
