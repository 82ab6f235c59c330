// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package fusion

import (
	"github.com/gomlx/opfusion/pkg/core/shapes"
	"github.com/gomlx/opfusion/pkg/support/sets"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// GetPaddingVector aligns two loops that are equal up to broadcasting of unit dims. It returns, for each of
// them, the positions (in the aligned output) where a unit dim must be inserted so that both become of
// the same length, with each aligned pair of dims either equal or having one side equal to 1.
//
// Padding is only inserted where one of the sides is 1 (or exhausted). If there is a choice, it first
// tries to pad the side that is not 1. For example [4,1,8] and [4,8] give padSecond=[1], while
// [4,1,8] and [4,6,1,8] give padFirst=[1].
//
// It returns ErrShapeIncompatible if no such alignment exists.
func GetPaddingVector(first, second []shapes.DimExpr) (padFirst, padSecond []int, err error) {
	w := &paddingWalk{first: first, second: second, failed: sets.Make[[2]int]()}
	if !w.walk(0, 0) {
		return nil, nil, errors.Wrapf(ErrShapeIncompatible, "can't align loops %v and %v", first, second)
	}
	if len(w.padFirst) > 0 {
		padFirst = w.padFirst
	}
	if len(w.padSecond) > 0 {
		padSecond = w.padSecond
	}
	klog.V(4).Infof("GetPaddingVector(%v, %v) = %v, %v", first, second, padFirst, padSecond)
	return padFirst, padSecond, nil
}

// paddingWalk is a two-pointer walk over both loops, backtracking on the choice of which side to pad.
// States (pf, ps) known to fail are memoized, so it visits at most len(first)*len(second) states.
type paddingWalk struct {
	first, second       []shapes.DimExpr
	padFirst, padSecond []int
	failed              sets.Set[[2]int]
}

func (w *paddingWalk) walk(pf, ps int) bool {
	if pf == len(w.first) && ps == len(w.second) {
		return true
	}
	state := [2]int{pf, ps}
	if w.failed.Has(state) {
		return false
	}
	firstDone, secondDone := pf == len(w.first), ps == len(w.second)
	firstOne := !firstDone && w.first[pf].IsOne()
	secondOne := !secondDone && w.second[ps].IsOne()

	if !firstDone && !secondDone && w.first[pf] == w.second[ps] && w.walk(pf+1, ps+1) {
		return true
	}
	// first[pf] is 1: either align it against a padding in second, or pad first against second[ps].
	if firstOne && w.padSecondAndWalk(pf+1, ps) {
		return true
	}
	if secondOne && w.padFirstAndWalk(pf, ps+1) {
		return true
	}
	if firstOne && !secondDone && w.padFirstAndWalk(pf, ps+1) {
		return true
	}
	if secondOne && !firstDone && w.padSecondAndWalk(pf+1, ps) {
		return true
	}
	w.failed.Insert(state)
	return false
}

// padFirstAndWalk inserts a padding in first at the current output position, aligned against the
// current second dim, and walks on from (pf, nextPs).
func (w *paddingWalk) padFirstAndWalk(pf, nextPs int) bool {
	w.padFirst = append(w.padFirst, pf+len(w.padFirst))
	if w.walk(pf, nextPs) {
		return true
	}
	w.padFirst = w.padFirst[:len(w.padFirst)-1]
	return false
}

// padSecondAndWalk is the symmetric of padFirstAndWalk.
func (w *paddingWalk) padSecondAndWalk(nextPf, ps int) bool {
	w.padSecond = append(w.padSecond, ps+len(w.padSecond))
	if w.walk(nextPf, ps) {
		return true
	}
	w.padSecond = w.padSecond[:len(w.padSecond)-1]
	return false
}
