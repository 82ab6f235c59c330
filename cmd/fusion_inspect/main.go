// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// fusion_inspect replays fusion scripts (see package internal/fusionscript) and reports the
// resulting patterns: their kinds, ops, loop frameworks and fusion trackers.
//
// Usage:
//
//	fusion_inspect [flags] <script.yaml> [<script.yaml>...]
//
// Scripts are replayed in parallel, and reported in the order given.
package main

import (
	"flag"
	"os"
	"runtime"

	"github.com/charmbracelet/lipgloss"
	"github.com/gomlx/opfusion/internal/fusionscript"
	"github.com/gomlx/opfusion/internal/workerspool"
	"github.com/gomlx/opfusion/pkg/core/shapes"
	"github.com/janpfeifer/must"
	"github.com/muesli/termenv"
	"k8s.io/klog/v2"
)

var (
	flagSummary  = flag.Bool("summary", true, "Display a summary of the graph and of the resulting patterns.")
	flagPatterns = flag.Bool("patterns", true, "Lists the resulting patterns with their loop frameworks.")
	flagTracker  = flag.Bool("tracker", false, "Lists the flattened fusion tracker of each resulting pattern.")
	flagValues   = flag.Bool("values", false, "Lists the tensor dimensions that define the loop of each resulting pattern.")
	flagBind     = flag.String("bind", "",
		"Axis bindings used to resolve symbolic loop dimensions in the report, e.g.: \"N=32,seq_len=128\".")
	flagNoColor     = flag.Bool("no_color", false, "Disable colors and other terminal styles.")
	flagParallelism = flag.Int("parallelism", runtime.NumCPU(),
		"Maximum number of scripts replayed at the same time. Set to 0 to replay them sequentially.")
)

// replay is the outcome of one script.
type replay struct {
	path   string
	result *fusionscript.Result
	err    error
}

func replayScript(path string) replay {
	script, err := fusionscript.Load(path)
	if err != nil {
		return replay{path: path, err: err}
	}
	result, err := script.Run()
	return replay{path: path, result: result, err: err}
}

func main() {
	klog.InitFlags(nil)
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		klog.Errorf("Missing fusion script to replay. See 'fusion_inspect -help'")
		os.Exit(1)
	}
	if *flagNoColor {
		lipgloss.SetColorProfile(termenv.Ascii)
	}

	opts := reportOptions{
		summary:  *flagSummary,
		patterns: *flagPatterns,
		tracker:  *flagTracker,
		values:   *flagValues,
		bindings: must.M1(shapes.ParseAxisBindings(*flagBind)),
	}
	pool := workerspool.NewWithParallelism(*flagParallelism)
	var failed bool
	for _, r := range workerspool.Map(pool, args, replayScript) {
		if r.err != nil {
			klog.Errorf("Failed to replay %q: %+v", r.path, r.err)
			failed = true
			continue
		}
		report(os.Stdout, r.path, r.result, opts)
	}
	if failed {
		os.Exit(1)
	}
}
