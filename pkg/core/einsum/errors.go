// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package einsum

import (
	"github.com/pkg/errors"
	"github.com/tensorn/tensorn/pkg/core/tensors"
)

// Error kinds returned by this package. Returned errors wrap one of them with context, use errors.Is to
// check for the kind.
var (
	// ErrMalformedExpression is returned when the "->" separator is missing or duplicated, or the expression
	// has invalid characters or repeated output labels.
	ErrMalformedExpression = errors.New("malformed einsum expression")

	// ErrInvalidEllipsis is returned for a run of dots that is not exactly "...", or more than one ellipsis
	// in a single operand or output.
	ErrInvalidEllipsis = errors.New("invalid ellipsis in einsum expression")

	// ErrOperandCountMismatch is returned when the number of operands given differs from the expression.
	ErrOperandCountMismatch = errors.New("einsum operand count mismatch")

	// ErrRankMismatch is returned when the number of labels of an operand is incompatible with its rank.
	ErrRankMismatch = errors.New("einsum rank mismatch")

	// ErrDimensionMismatch is returned when the same label (or ellipsis axis) is bound to different
	// dimensions.
	ErrDimensionMismatch = errors.New("einsum dimension mismatch")

	// ErrUnknownOutputLabel is returned when the output uses a label not present in any operand.
	ErrUnknownOutputLabel = errors.New("einsum unknown output label")

	// ErrDTypeMismatch is returned when operands have different dtypes.
	ErrDTypeMismatch = errors.New("einsum operands dtype mismatch")

	// ErrUnsupportedDType is returned for operands that are not numbers (Bool).
	ErrUnsupportedDType = tensors.ErrUnsupportedDType
)
