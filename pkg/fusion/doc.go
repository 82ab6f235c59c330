// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package fusion implements the operator-fusion pattern algebra: it groups connected ops of an
// opgraph.Graph into fusion patterns, each to be lowered to one loop nest (kernel) by a code generator.
//
// The flow of a fusion driver is:
//
//  1. ConvertToStmtPattern (or ConvertGraph) creates one pattern per op, classified by its coarse kind.
//  2. MergePattern fuses pairs of patterns (upstream, downstream). Only some ordered pairs of pattern
//     kinds can be merged, see CanMerge. GetLoopFramework and IsLoopFrameworkEqual tell whether two
//     patterns iterate over compatible loops.
//  3. SetReturnInstr marks the final patterns, whose FusionTracker is then replayed by the code generator.
//
// Patterns are immutable: merging creates new patterns, and the trackers of the inputs are shared (not
// copied) by the result.
//
// Errors are reported with the categories ErrUnimplemented, ErrInvariantViolation, ErrShapeIncompatible
// and ErrIndexOutOfRange. Test for them with errors.Is.
package fusion
