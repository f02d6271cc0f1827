// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package einsum

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/pkg/errors"
)

// LabelID identifies an axis label of an expression.
//
// Explicit labels (letters) are numbered 0 to NumExplicit-1 in order of first appearance in the expression.
// Labels standing for the axes covered by an ellipsis are numbered from NumExplicit onwards, one per position
// inside the ellipsis, so they never collide with explicit ones.
type LabelID int

// NoEllipsis is the value of Spec.EllipsisPos when the spec has no ellipsis.
const NoEllipsis = -1

const (
	arrow    = "->"
	ellipsis = "..."
)

// Spec is the parsed description of the axes of one operand, or of the output.
type Spec struct {
	// Labels holds the explicit labels in order, without the ellipsis.
	Labels []LabelID

	// EllipsisPos is the position in Labels where the ellipsis was, or NoEllipsis.
	// E.g.: for "i...j" Labels has 2 entries and EllipsisPos is 1.
	EllipsisPos int
}

// HasEllipsis returns whether the spec has an ellipsis.
func (s Spec) HasEllipsis() bool { return s.EllipsisPos != NoEllipsis }

// Expression is a parsed einsum equation.
type Expression struct {
	// Equation as given by the user.
	Equation string

	// Operands holds one Spec per operand, and Output the spec of the result.
	Operands []Spec
	Output   Spec

	// Names of the explicit labels, indexed by LabelID.
	Names []rune
}

// NumExplicit returns the number of distinct explicit labels in the expression.
func (e *Expression) NumExplicit() int { return len(e.Names) }

// LabelName returns the printable name of a label: its letter for explicit labels, or "…k" for the k-th
// axis of an ellipsis.
func (e *Expression) LabelName(id LabelID) string {
	if int(id) < len(e.Names) {
		return string(e.Names[id])
	}
	return fmt.Sprintf("…%d", int(id)-len(e.Names))
}

// Parse an einsum equation, like "ij,jk->ik" or "...ij,...jk->...ik".
//
// White space is ignored. Labels must be letters (a-z, A-Z), and each operand and the output can hold at most one
// ellipsis ("..."). The output (after "->") may be empty, for a scalar result. Empty operand specs, including an
// empty left side as in "->", describe scalar operands.
func Parse(equation string) (*Expression, error) {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, equation)

	if count := strings.Count(cleaned, arrow); count != 1 {
		return nil, errors.Wrapf(ErrMalformedExpression, "%q must have exactly one %q, found %d", equation, arrow, count)
	}
	lhs, rhs, _ := strings.Cut(cleaned, arrow)

	e := &Expression{Equation: equation}
	ids := make(map[rune]LabelID)
	operandStrs := strings.Split(lhs, ",")
	e.Operands = make([]Spec, len(operandStrs))
	var err error
	for ii, str := range operandStrs {
		e.Operands[ii], err = e.parseSpec(str, ids)
		if err != nil {
			return nil, errors.WithMessagef(err, "einsum %q operand #%d (%q)", equation, ii, str)
		}
	}
	e.Output, err = e.parseSpec(rhs, ids)
	if err != nil {
		return nil, errors.WithMessagef(err, "einsum %q output (%q)", equation, rhs)
	}
	return e, nil
}

// parseSpec scans the tokens of one spec, assigning new LabelIDs to labels not seen before.
func (e *Expression) parseSpec(str string, ids map[rune]LabelID) (Spec, error) {
	spec := Spec{Labels: make([]LabelID, 0, len(str)), EllipsisPos: NoEllipsis}
	runes := []rune(str)
	for pos := 0; pos < len(runes); pos++ {
		r := runes[pos]
		if r == '.' {
			runLen := 1
			for pos+runLen < len(runes) && runes[pos+runLen] == '.' {
				runLen++
			}
			if runLen != len(ellipsis) {
				return spec, errors.Wrapf(ErrInvalidEllipsis, "found a run of %d dots, an ellipsis must be exactly %q",
					runLen, ellipsis)
			}
			if spec.HasEllipsis() {
				return spec, errors.Wrapf(ErrInvalidEllipsis, "more than one ellipsis")
			}
			spec.EllipsisPos = len(spec.Labels)
			pos += runLen - 1
			continue
		}
		if !isLabel(r) {
			return spec, errors.Wrapf(ErrMalformedExpression, "invalid character %q, labels must be letters a-z or A-Z", r)
		}
		id, found := ids[r]
		if !found {
			id = LabelID(len(e.Names))
			ids[r] = id
			e.Names = append(e.Names, r)
		}
		spec.Labels = append(spec.Labels, id)
	}
	return spec, nil
}

func isLabel(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

// specString renders the spec with the label names of e.
func (e *Expression) specString(spec Spec) string {
	var sb strings.Builder
	for ii, id := range spec.Labels {
		if ii == spec.EllipsisPos {
			sb.WriteString(ellipsis)
		}
		sb.WriteString(e.LabelName(id))
	}
	if spec.EllipsisPos == len(spec.Labels) {
		sb.WriteString(ellipsis)
	}
	return sb.String()
}

// String returns the normalized equation, without white space.
func (e *Expression) String() string {
	parts := make([]string, len(e.Operands))
	for ii, spec := range e.Operands {
		parts[ii] = e.specString(spec)
	}
	return strings.Join(parts, ",") + arrow + e.specString(e.Output)
}
