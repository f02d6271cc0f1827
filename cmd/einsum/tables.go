// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/tensorn/tensorn/pkg/core/einsum"
	"github.com/tensorn/tensorn/pkg/core/tensors"
)

var (
	headerRowStyle = lipgloss.NewStyle().Reverse(true).
			Padding(0, 2, 0, 2).Align(lipgloss.Center)
	oddRowStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFF")).
			PaddingLeft(1).PaddingRight(1)
	evenRowStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#999")).
			PaddingLeft(1).PaddingRight(1)
	titleStyle = lipgloss.NewStyle().Bold(true).Padding(1, 4, 0, 4)
)

// newTable creates a table with alternating row colors. If withHeader is set, the first row is the header.
func newTable(withHeader bool) *lgtable.Table {
	return lgtable.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("99"))).
		StyleFunc(func(row, col int) (s lipgloss.Style) {
			if withHeader && row == lgtable.HeaderRow {
				return headerRowStyle
			}
			if row%2 == 0 {
				s = oddRowStyle
			} else {
				s = evenRowStyle
			}
			if col == 0 {
				return s.Align(lipgloss.Right)
			}
			return s.Align(lipgloss.Left)
		})
}

// operandsTable lists the operands with their labels and sizes.
func operandsTable(paths []string, plan *einsum.Plan) string {
	table := newTable(true).Headers("#", "File", "Labels", "Shape", "Size", "Bytes")
	for opIdx, shape := range plan.OperandShapes {
		table.Row(
			fmt.Sprintf("%d", opIdx), paths[opIdx],
			operandLabels(plan, opIdx),
			shape.String(),
			humanize.Comma(int64(shape.Size())),
			humanize.Bytes(uint64(shape.Memory())))
	}
	return titleStyle.Render("Operands") + "\n" + table.Render()
}

// operandLabels renders the labels of each axis of an operand, after expanding the ellipsis.
func operandLabels(plan *einsum.Plan, opIdx int) string {
	parts := make([]string, len(plan.IndexMaps[opIdx]))
	for axis, pos := range plan.IndexMaps[opIdx] {
		parts[axis] = plan.Expr.LabelName(plan.AllLabels[pos])
	}
	return strings.Join(parts, " ")
}

// planTable summarizes the resolved plan.
func planTable(plan *einsum.Plan) string {
	table := newTable(false)
	table.Row("equation", plan.Expr.String())
	table.Row("output", plan.OutputShape.String())
	var outputLabels, summationLabels []string
	for _, label := range plan.OutputLabels {
		outputLabels = append(outputLabels, plan.Expr.LabelName(label))
	}
	for ii, label := range plan.SummationLabels {
		extent := plan.Extents[len(plan.OutputLabels)+ii]
		summationLabels = append(summationLabels, fmt.Sprintf("%s=%d", plan.Expr.LabelName(label), extent))
	}
	table.Row("output labels", orDash(strings.Join(outputLabels, " ")))
	table.Row("summation labels", orDash(strings.Join(summationLabels, " ")))
	table.Row("output elements", humanize.Comma(int64(plan.OutputShape.Size())))
	table.Row("multiply-adds", humanize.Comma(plan.NumSteps()))
	return titleStyle.Render("Plan") + "\n" + table.Render()
}

// resultTable reports where the result was saved.
func resultTable(result *tensors.Tensor, path string, elapsed time.Duration) string {
	table := newTable(false)
	table.Row("file", path)
	table.Row("shape", result.Shape().String())
	table.Row("bytes", humanize.Bytes(uint64(result.Memory())))
	table.Row("elapsed", elapsed.Round(time.Microsecond).String())
	return titleStyle.Render("Result") + "\n" + table.Render()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
