// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
	"github.com/gomlx/opfusion/pkg/support/sets"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Padding(1, 4, 1, 4)

	headerStyle = lipgloss.NewStyle().Reverse(true).Padding(0, 2, 0, 2).Align(lipgloss.Center)
	cellStyle   = lipgloss.NewStyle().PaddingLeft(1).PaddingRight(1)

	// Consecutive rows of the same pattern share a shade; shades alternate between patterns.
	brightStyle  = cellStyle.Faint(false)
	shadedStyle  = cellStyle.Faint(true)
	flaggedStyle = cellStyle.Foreground(lipgloss.AdaptiveColor{Light: "9", Dark: "9"}).Bold(true)
)

// newPlainTable returns a table with alternating row shades and one alignment per column: the last
// alignment given is used for the remaining columns.
func newPlainTable(withHeader bool, alignments ...lipgloss.Position) *lgtable.Table {
	return newPatternTable(withHeader, alignments...).Table
}

// patternTable is a table whose rows are grouped by pattern.
// Rows of patterns that can't be lowered (no loop framework) are flagged in red.
type patternTable struct {
	*lgtable.Table

	group    []int
	numGroup int
	lastKey  string
	flagged  sets.Set[int]
}

// AddRow appends a row for the pattern named key. Rows of consecutive calls with the same key form a group.
func (t *patternTable) AddRow(flagged bool, key string, cells ...string) {
	row := len(t.group)
	if row == 0 || key != t.lastKey {
		t.numGroup++
		t.lastKey = key
	}
	t.group = append(t.group, t.numGroup)
	if flagged {
		t.flagged.Insert(row)
	}
	t.Table.Row(cells...)
}

func (t *patternTable) rowStyle(row int) lipgloss.Style {
	if t.flagged.Has(row) {
		return flaggedStyle
	}
	// Rows added directly to the table are their own group.
	group := row + 1
	if row < len(t.group) {
		group = t.group[row]
	}
	if group%2 == 0 {
		return shadedStyle
	}
	return brightStyle
}

func newPatternTable(withHeader bool, alignments ...lipgloss.Position) *patternTable {
	t := &patternTable{flagged: sets.Make[int]()}
	t.Table = lgtable.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("99"))).
		StyleFunc(func(row, col int) lipgloss.Style {
			if withHeader && row == lgtable.HeaderRow {
				return headerStyle
			}
			s := t.rowStyle(row)
			if len(alignments) > 0 {
				s = s.Align(alignments[min(col, len(alignments)-1)])
			}
			return s
		})
	return t
}
