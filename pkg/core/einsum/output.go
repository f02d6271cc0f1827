// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package einsum

import (
	"github.com/pkg/errors"
	"github.com/tensorn/tensorn/pkg/support/sets"
)

// outputLabels expands the output spec and validates it. It returns the labels of the output axes, and the
// summation labels: those bound by the operands but absent from the output, in the order they were bound.
func (b *bindings) outputLabels() (output, summation []LabelID, err error) {
	expr := b.expr
	// With no ellipsis in the operands, ellipsisRank is 0 and an output ellipsis expands to nothing.
	output = b.expand(expr.Output)
	seen := sets.Make[LabelID](len(output))
	for _, label := range output {
		if !seen.InsertNew(label) {
			return nil, nil, errors.Wrapf(ErrMalformedExpression, "einsum %q output label %q is repeated",
				expr.Equation, expr.LabelName(label))
		}
		if !b.bound[label] {
			return nil, nil, errors.Wrapf(ErrUnknownOutputLabel, "einsum %q output label %q is not used by any operand",
				expr.Equation, expr.LabelName(label))
		}
	}
	summation = seen.FilterOut(b.order)
	return output, summation, nil
}
