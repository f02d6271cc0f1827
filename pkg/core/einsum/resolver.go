// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package einsum

import (
	"github.com/pkg/errors"
	"github.com/tensorn/tensorn/pkg/core/shapes"
)

// bindings maps every label of an expression to the dimension of the axes it names.
type bindings struct {
	expr *Expression

	// ellipsisRank is the number of axes covered by the ellipsis of the operands, 0 if no operand has one.
	ellipsisRank int

	// extents and bound are indexed by LabelID.
	extents []int
	bound   []bool

	// order lists the bound labels in the order they were first bound.
	order []LabelID

	// operandLabels holds for each operand one label per axis, with the ellipsis expanded.
	operandLabels [][]LabelID
}

// ellipsisLabels returns the labels standing for the axes of the ellipsis.
func (b *bindings) ellipsisLabels() []LabelID {
	labels := make([]LabelID, b.ellipsisRank)
	for k := range labels {
		labels[k] = LabelID(b.expr.NumExplicit() + k)
	}
	return labels
}

// expand replaces the ellipsis of spec (if any) by the ellipsis labels.
func (b *bindings) expand(spec Spec) []LabelID {
	if !spec.HasEllipsis() {
		return spec.Labels
	}
	expanded := make([]LabelID, 0, len(spec.Labels)+b.ellipsisRank)
	expanded = append(expanded, spec.Labels[:spec.EllipsisPos]...)
	expanded = append(expanded, b.ellipsisLabels()...)
	expanded = append(expanded, spec.Labels[spec.EllipsisPos:]...)
	return expanded
}

// checkOperandCount checks that one shape is given per operand spec of the expression.
func checkOperandCount(expr *Expression, numOperands int) error {
	if len(expr.Operands) != numOperands {
		return errors.Wrapf(ErrOperandCountMismatch, "einsum %q describes %d operands, but %d were given",
			expr.Equation, len(expr.Operands), numOperands)
	}
	return nil
}

// resolveBindings binds each label of the expression to the dimension of the axes it names in the operands.
//
// The k-th axis covered by an ellipsis gets the same label in every operand, so all ellipses must cover the
// same number of axes with the exact same dimensions: there is no broadcasting of dimensions of size 1.
//
// The number of operand shapes must match the expression, see checkOperandCount.
func resolveBindings(expr *Expression, operandShapes []shapes.Shape) (*bindings, error) {
	b := &bindings{expr: expr}
	ellipsisOperand := -1
	for opIdx, spec := range expr.Operands {
		rank := operandShapes[opIdx].Rank()
		numExplicit := len(spec.Labels)
		if !spec.HasEllipsis() {
			if numExplicit != rank {
				return nil, errors.Wrapf(ErrRankMismatch, "einsum %q operand #%d has %d labels, but its shape is %s",
					expr.Equation, opIdx, numExplicit, operandShapes[opIdx])
			}
			continue
		}
		if numExplicit > rank {
			return nil, errors.Wrapf(ErrRankMismatch,
				"einsum %q operand #%d has %d labels plus an ellipsis, more than the rank of its shape %s",
				expr.Equation, opIdx, numExplicit, operandShapes[opIdx])
		}
		width := rank - numExplicit
		if ellipsisOperand == -1 {
			ellipsisOperand = opIdx
			b.ellipsisRank = width
		} else if width != b.ellipsisRank {
			return nil, errors.Wrapf(ErrDimensionMismatch,
				"einsum %q ellipsis covers %d axes in operand #%d but %d axes in operand #%d",
				expr.Equation, b.ellipsisRank, ellipsisOperand, width, opIdx)
		}
	}

	numLabels := expr.NumExplicit() + b.ellipsisRank
	b.extents = make([]int, numLabels)
	b.bound = make([]bool, numLabels)
	b.operandLabels = make([][]LabelID, len(expr.Operands))
	for opIdx, spec := range expr.Operands {
		labels := b.expand(spec)
		b.operandLabels[opIdx] = labels
		dims := operandShapes[opIdx].Dimensions
		for axis, label := range labels {
			dim := dims[axis]
			if !b.bound[label] {
				b.bound[label] = true
				b.extents[label] = dim
				b.order = append(b.order, label)
				continue
			}
			if b.extents[label] != dim {
				return nil, errors.Wrapf(ErrDimensionMismatch,
					"einsum %q label %q is bound to dimension %d, but operand #%d axis %d has dimension %d",
					expr.Equation, expr.LabelName(label), b.extents[label], opIdx, axis, dim)
			}
		}
	}
	return b, nil
}
