// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package einsum

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/tensorn/tensorn/pkg/core/dtypes"
	"github.com/tensorn/tensorn/pkg/core/shapes"
)

// Plan is a fully resolved einsum contraction for a given set of operand shapes.
//
// The contraction enumerates every combination of indices of AllLabels (the output labels followed by the
// summation labels) in row-major order, and for each combination adds the product of the addressed operand
// elements to the addressed output element.
//
// A Plan is immutable and can be used concurrently.
type Plan struct {
	Expr          *Expression
	OperandShapes []shapes.Shape
	OutputShape   shapes.Shape

	// OutputLabels are the labels of the output axes, SummationLabels the ones summed over.
	OutputLabels, SummationLabels []LabelID

	// AllLabels is OutputLabels followed by SummationLabels, and Extents their dimensions.
	AllLabels []LabelID
	Extents   []int

	// IndexMaps holds, for each operand, the position in AllLabels of the label of each of its axes.
	IndexMaps [][]int

	// positions maps each label to its position in AllLabels.
	positions map[LabelID]int

	// strides holds, for each operand, the flat offset increment when the index of each label of AllLabels
	// is incremented. A label repeated in an operand (a diagonal) adds up the strides of its axes.
	strides [][]int
}

// NewPlan parses the equation and resolves it against the shapes of the operands.
//
// All operands must have the same numeric dtype (not Bool), which is also the dtype of the output.
func NewPlan(equation string, operandShapes ...shapes.Shape) (*Plan, error) {
	expr, err := Parse(equation)
	if err != nil {
		return nil, err
	}
	return NewPlanFromExpression(expr, operandShapes...)
}

// NewPlanFromExpression is like NewPlan, but takes an already parsed expression.
func NewPlanFromExpression(expr *Expression, operandShapes ...shapes.Shape) (*Plan, error) {
	if err := checkOperandCount(expr, len(operandShapes)); err != nil {
		return nil, err
	}
	dtype, err := operandsDType(expr, operandShapes)
	if err != nil {
		return nil, err
	}
	b, err := resolveBindings(expr, operandShapes)
	if err != nil {
		return nil, err
	}
	outputLabels, summationLabels, err := b.outputLabels()
	if err != nil {
		return nil, err
	}

	p := &Plan{
		Expr:            expr,
		OperandShapes:   operandShapes,
		OutputLabels:    outputLabels,
		SummationLabels: summationLabels,
	}
	p.AllLabels = make([]LabelID, 0, len(outputLabels)+len(summationLabels))
	p.AllLabels = append(p.AllLabels, outputLabels...)
	p.AllLabels = append(p.AllLabels, summationLabels...)
	p.positions = make(map[LabelID]int, len(p.AllLabels))
	p.Extents = make([]int, len(p.AllLabels))
	for pos, label := range p.AllLabels {
		p.positions[label] = pos
		p.Extents[pos] = b.extents[label]
	}
	p.OutputShape = shapes.Make(dtype, p.Extents[:len(outputLabels)]...)

	p.IndexMaps = make([][]int, len(operandShapes))
	p.strides = make([][]int, len(operandShapes))
	for opIdx, labels := range b.operandLabels {
		operandStrides := ComputeStrides(operandShapes[opIdx].Dimensions)
		indexMap := make([]int, len(labels))
		strides := make([]int, len(p.AllLabels))
		for axis, label := range labels {
			pos := p.positions[label]
			indexMap[axis] = pos
			strides[pos] += operandStrides[axis]
		}
		p.IndexMaps[opIdx] = indexMap
		p.strides[opIdx] = strides
	}
	return p, nil
}

// operandsDType returns the common dtype of the operands. There is always at least one operand.
func operandsDType(expr *Expression, operandShapes []shapes.Shape) (dtypes.DType, error) {
	dtype := operandShapes[0].DType
	for opIdx, shape := range operandShapes {
		if !shape.Ok() {
			return dtypes.InvalidDType, errors.Errorf("einsum %q operand #%d has an invalid shape", expr.Equation, opIdx)
		}
		if shape.DType != dtype {
			return dtypes.InvalidDType, errors.Wrapf(ErrDTypeMismatch, "einsum %q operand #0 is %s, but operand #%d is %s",
				expr.Equation, dtype, opIdx, shape.DType)
		}
	}
	if !dtype.IsNumber() {
		return dtypes.InvalidDType, errors.Wrapf(ErrUnsupportedDType, "einsum %q with operands of dtype %s",
			expr.Equation, dtype)
	}
	return dtype, nil
}

// NumSteps returns the number of index combinations enumerated by the contraction: the product of Extents.
func (p *Plan) NumSteps() int64 {
	steps := int64(1)
	for _, extent := range p.Extents {
		steps *= int64(extent)
	}
	return steps
}

// NumSummationSteps returns the number of summation index combinations per output element.
func (p *Plan) NumSummationSteps() int64 {
	steps := int64(1)
	for _, extent := range p.Extents[len(p.OutputLabels):] {
		steps *= int64(extent)
	}
	return steps
}

// labelsString renders the labels with their dimensions, e.g. "i=2 j=3".
func (p *Plan) labelsString(labels []LabelID) string {
	if len(labels) == 0 {
		return "-"
	}
	parts := make([]string, len(labels))
	for ii, label := range labels {
		parts[ii] = fmt.Sprintf("%s=%d", p.Expr.LabelName(label), p.Extents[p.positions[label]])
	}
	return strings.Join(parts, " ")
}

// String implements fmt.Stringer, with a multi-line description of the plan.
func (p *Plan) String() string {
	var sb strings.Builder
	_, _ = fmt.Fprintf(&sb, "einsum %q:\n", p.Expr.String())
	for opIdx, shape := range p.OperandShapes {
		_, _ = fmt.Fprintf(&sb, "  operand #%d: %s\n", opIdx, shape)
	}
	_, _ = fmt.Fprintf(&sb, "  output: %s\n", p.OutputShape)
	_, _ = fmt.Fprintf(&sb, "  output labels: %s\n", p.labelsString(p.OutputLabels))
	_, _ = fmt.Fprintf(&sb, "  summation labels: %s\n", p.labelsString(p.SummationLabels))
	_, _ = fmt.Fprintf(&sb, "  steps: %d", p.NumSteps())
	return sb.String()
}
