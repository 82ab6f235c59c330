// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package fusionscript

import (
	"fmt"
	"slices"

	"github.com/gomlx/opfusion/pkg/core/opgraph"
	"github.com/gomlx/opfusion/pkg/fusion"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Step is one action of the fusion driver. Exactly one of Merge, Lift or FakeReduce must be set.
type Step struct {
	// Name of the resulting pattern. It defaults to the name of the last input pattern, so the input
	// is replaced by the result.
	Name string `yaml:"name"`

	// Merge the two named patterns, upstream first.
	Merge []string `yaml:"merge"`

	// Lift the pattern named by Of to "horizontal", "reduce_tree" or "iters_permutation" (with Perm).
	Lift string `yaml:"lift"`
	Of   string `yaml:"of"`
	Perm []int  `yaml:"perm"`

	// FakeReduce sets the fake reduce iteration indices of the ReduceTreePlusTrivialPattern named by Of
	// (or by Name if Of is empty).
	FakeReduce []int `yaml:"fake_reduce"`
}

func (s Step) String() string {
	switch {
	case len(s.Merge) > 0:
		return fmt.Sprintf("%s = merge(%v)", s.Name, s.Merge)
	case s.Lift != "":
		return fmt.Sprintf("%s = lift_%s(%s)", s.Name, s.Lift, s.Of)
	default:
		return fmt.Sprintf("%s = fake_reduce(%s, %v)", s.Name, s.Of, s.FakeReduce)
	}
}

// Lift targets accepted in a Step.
const (
	LiftHorizontal       = "horizontal"
	LiftReduceTree       = "reduce_tree"
	LiftItersPermutation = "iters_permutation"
)

// NamedPattern is a pattern produced by a script, with its loop framework when it is defined.
type NamedPattern struct {
	Name    string
	Pattern fusion.StmtPattern
	Loop    fusion.MaybeLoopFramework
	HasLoop bool
}

// Result of running a script.
type Result struct {
	Graph *opgraph.Graph

	// Patterns are the returned patterns if the script lists them, otherwise every pattern
	// not consumed by any step, in order of creation.
	Patterns []NamedPattern
}

// Run builds the graph, classifies its ops and replays the steps of the script.
//
// Errors from the fusion engine keep their category (see fusion.ErrUnimplemented and friends),
// with the failing step added to the message.
func (s *Script) Run() (*Result, error) {
	g, ops, err := s.BuildGraph()
	if err != nil {
		return nil, err
	}
	st := &state{patterns: make(map[string]fusion.StmtPattern)}
	for _, spec := range s.Graph.Ops {
		st.define(spec.Name, fusion.ConvertToStmtPattern(ops[spec.Name]))
	}

	for ii, step := range s.Steps {
		if err := st.apply(&step); err != nil {
			return nil, errors.WithMessagef(err, "step #%d (%s)", ii, step)
		}
		klog.V(1).Infof("step #%d: %s -> %s", ii, step, st.patterns[step.Name])
	}

	names := st.live
	if len(s.Returns) > 0 {
		names = s.Returns
	}
	result := &Result{Graph: g}
	for _, name := range names {
		pattern, found := st.patterns[name]
		if !found {
			return nil, errors.Errorf("returned pattern %q is not defined", name)
		}
		if len(s.Returns) > 0 {
			fusion.SetReturnInstr(pattern)
		}
		np := NamedPattern{Name: name, Pattern: pattern}
		if loop, err := fusion.GetLoopFramework(pattern); err == nil {
			np.Loop, np.HasLoop = loop, true
		}
		result.Patterns = append(result.Patterns, np)
	}
	return result, nil
}

// state of the interpretation: named patterns, and the names of the ones not consumed yet.
type state struct {
	patterns map[string]fusion.StmtPattern
	live     []string
}

func (st *state) define(name string, pattern fusion.StmtPattern) {
	st.patterns[name] = pattern
	if !slices.Contains(st.live, name) {
		st.live = append(st.live, name)
	}
}

func (st *state) consume(name string) {
	st.live = slices.DeleteFunc(st.live, func(n string) bool { return n == name })
}

func (st *state) lookup(name string) (fusion.StmtPattern, error) {
	pattern, found := st.patterns[name]
	if !found {
		return nil, errors.Errorf("unknown pattern %q", name)
	}
	return pattern, nil
}

// apply executes the step. It fills in the default step name.
func (st *state) apply(step *Step) error {
	var numActions int
	for _, set := range []bool{len(step.Merge) > 0, step.Lift != "", len(step.FakeReduce) > 0} {
		if set {
			numActions++
		}
	}
	if numActions != 1 {
		return errors.New("step must have exactly one of merge, lift or fake_reduce")
	}

	var inputs []string
	switch {
	case len(step.Merge) > 0:
		if len(step.Merge) != 2 {
			return errors.Errorf("merge requires 2 patterns, got %v", step.Merge)
		}
		inputs = step.Merge
	default:
		if step.Of == "" {
			step.Of = step.Name
		}
		inputs = []string{step.Of}
	}
	if step.Name == "" {
		step.Name = inputs[len(inputs)-1]
	}
	patterns := make([]fusion.StmtPattern, len(inputs))
	for ii, name := range inputs {
		var err error
		if patterns[ii], err = st.lookup(name); err != nil {
			return err
		}
	}

	result, err := st.execute(step, patterns)
	if err != nil {
		return err
	}
	for _, name := range inputs {
		st.consume(name)
	}
	st.define(step.Name, result)
	return nil
}

func (st *state) execute(step *Step, patterns []fusion.StmtPattern) (fusion.StmtPattern, error) {
	switch {
	case len(step.Merge) > 0:
		return fusion.MergePattern(patterns[0], patterns[1])

	case len(step.FakeReduce) > 0:
		rtpt, ok := patterns[0].(*fusion.ReduceTreePlusTrivialPattern)
		if !ok {
			return nil, errors.Errorf("fake_reduce requires a %s pattern, got %s",
				fusion.PatternKindReduceTreePlusTrivial, patterns[0].Kind())
		}
		return rtpt.WithFakeReduceIterIdx(step.FakeReduce)
	}

	switch step.Lift {
	case LiftHorizontal:
		return fusion.LiftToHorizontalFusionPattern(patterns[0]), nil
	case LiftReduceTree:
		reduce, ok := patterns[0].(*fusion.ReducePattern)
		if !ok {
			return nil, errors.Errorf("lift to reduce_tree requires a %s pattern, got %s",
				fusion.PatternKindReduce, patterns[0].Kind())
		}
		return fusion.LiftToReduceTreePattern(reduce), nil
	case LiftItersPermutation:
		return fusion.LiftToItersPermutationPattern(patterns[0], step.Perm)
	}
	return nil, errors.Errorf("unknown lift target %q, valid values are %q, %q and %q",
		step.Lift, LiftHorizontal, LiftReduceTree, LiftItersPermutation)
}
