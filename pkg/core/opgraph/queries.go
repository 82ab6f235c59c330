// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package opgraph

import (
	"slices"

	"github.com/gomlx/opfusion/pkg/support/sets"
)

// FindDownstreamOps returns the ops that directly consume any of the results of op.
// The list is ordered by result, then by the users' creation order, without duplicates.
func FindDownstreamOps(op *Op) []*Op {
	downstream := sets.MakeOrdered[*Op]()
	for _, result := range op.results {
		downstream.Insert(result.users...)
	}
	return downstream.Elements()
}

// FindUpstreamOps returns the ops that produce the operands of op, in operand order, without duplicates.
// Graph inputs have no producer and are skipped.
func FindUpstreamOps(op *Op) []*Op {
	upstream := sets.MakeOrdered[*Op]()
	for _, operand := range op.operands {
		if operand.producer != nil {
			upstream.Insert(operand.producer)
		}
	}
	return upstream.Elements()
}

// FindUserOps returns the ops from candidates that use value as an operand, in candidates order.
func FindUserOps(candidates []*Op, value *Value) []*Op {
	var users []*Op
	for _, op := range candidates {
		if slices.Contains(op.operands, value) {
			users = append(users, op)
		}
	}
	return users
}
