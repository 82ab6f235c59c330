// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/gomlx/opfusion/internal/fusionscript"
	"github.com/gomlx/opfusion/pkg/core/opgraph"
	"github.com/gomlx/opfusion/pkg/core/shapes"
	"github.com/gomlx/opfusion/pkg/fusion"
	"github.com/gomlx/opfusion/pkg/support/xslices"
)

// reportOptions selects the sections of the report.
type reportOptions struct {
	summary, patterns, tracker, values bool

	// bindings resolve the symbolic dims of the loop frameworks.
	bindings shapes.AxisBindings
}

func report(w io.Writer, scriptPath string, result *fusionscript.Result, opts reportOptions) {
	if opts.summary {
		summary(w, scriptPath, result)
	}
	if opts.patterns {
		patterns(w, result, opts.bindings)
	}
	if opts.tracker {
		trackers(w, result)
	}
	if opts.values {
		loopValues(w, result)
	}
}

func joinOpNames(ops []*opgraph.Op) string {
	return strings.Join(xslices.Map(ops, (*opgraph.Op).Name), ", ")
}

func summary(w io.Writer, scriptPath string, result *fusionscript.Result) {
	_, _ = fmt.Fprintln(w, titleStyle.Render("Summary"))
	table := newPlainTable(false, lipgloss.Right, lipgloss.Left)
	table.Row("script", scriptPath)
	table.Row("graph", result.Graph.Name())
	table.Row("# ops", humanize.Comma(int64(result.Graph.NumOps())))
	table.Row("# patterns", humanize.Comma(int64(len(result.Patterns))))

	counts := make(map[fusion.PatternKind]int)
	var numFusedOps int
	for _, np := range result.Patterns {
		counts[np.Pattern.Kind()]++
		if n := len(np.Pattern.Ops()); n > 1 {
			numFusedOps += n
		}
	}
	for _, kind := range fusion.PatternKindValues() {
		if counts[kind] > 0 {
			table.Row("# "+kind.String(), humanize.Comma(int64(counts[kind])))
		}
	}
	table.Row("# fused ops", humanize.Comma(int64(numFusedOps)))
	_, _ = fmt.Fprintln(w, table.Render())
}

// patterns lists the resulting patterns. Patterns without a loop framework are highlighted.
func patterns(w io.Writer, result *fusionscript.Result, bindings shapes.AxisBindings) {
	_, _ = fmt.Fprintln(w, titleStyle.Render("Patterns"))
	table := newPatternTable(true, lipgloss.Left)
	table.Headers("Name", "ID", "Kind", "# Ops", "Ops", "Loop", "Outputs")
	for _, np := range result.Patterns {
		ops := np.Pattern.Ops()
		loop := "-"
		if np.HasLoop {
			loop = np.Loop.Resolve(bindings).String()
		}
		outputs := "-"
		if outputOps, err := fusion.GetOutputOpsInPattern(np.Pattern); err == nil {
			outputs = joinOpNames(outputOps)
		}
		table.AddRow(!np.HasLoop, np.Name, np.Name, np.Pattern.ID(), np.Pattern.Kind().String(),
			humanize.Comma(int64(len(ops))), joinOpNames(ops), loop, outputs)
	}
	_, _ = fmt.Fprintln(w, table.Render())
}

// trackers lists the flattened tracker of each pattern, in replay order.
func trackers(w io.Writer, result *fusionscript.Result) {
	for _, np := range result.Patterns {
		_, _ = fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("Tracker of %q", np.Name)))
		table := newPlainTable(true, lipgloss.Right, lipgloss.Left)
		table.Headers("#", "Type", "Instruction")
		for ii, instr := range np.Pattern.Tracker().Flatten() {
			table.Row(strconv.Itoa(ii), instr.Type().String(), instr.String())
		}
		_, _ = fmt.Fprintln(w, table.Render())
	}
}

// loopValues lists the tensor dimensions defining the loop of each pattern, one row per loop
// (horizontal fusions have one loop per member).
func loopValues(w io.Writer, result *fusionscript.Result) {
	_, _ = fmt.Fprintln(w, titleStyle.Render("Loop values"))
	table := newPatternTable(true, lipgloss.Left)
	table.Headers("Name", "Loop", "Value dims")
	for _, np := range result.Patterns {
		loops, err := fusion.GetLoopValueDims(np.Pattern)
		if err != nil {
			table.AddRow(true, np.Name, np.Name, "-", err.Error())
			continue
		}
		for ii, dims := range loops {
			table.AddRow(false, np.Name, np.Name, strconv.Itoa(ii),
				strings.Join(xslices.Map(dims, fusion.ValueDim.String), " "))
		}
	}
	_, _ = fmt.Fprintln(w, table.Render())
}
