// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package einsum_test

import (
	"fmt"

	"github.com/tensorn/tensorn/pkg/core/dtypes"
	"github.com/tensorn/tensorn/pkg/core/einsum"
	"github.com/tensorn/tensorn/pkg/core/shapes"
	"github.com/tensorn/tensorn/pkg/core/tensors"
)

func ExampleEinsum() {
	a := tensors.FromValue([][]float64{{1, 2, 3}, {4, 5, 6}})
	b := tensors.FromValue([][]float64{{1, 2}, {3, 4}, {5, 6}})
	product, err := einsum.Einsum("ij,jk->ik", a, b)
	if err != nil {
		panic(err)
	}
	fmt.Println(product.Value())

	trace := einsum.MustEinsum("ii->", tensors.FromValue([][]int32{{1, 2}, {3, 4}}))
	fmt.Println(trace.Value())
	// Output:
	// [[22 28] [49 64]]
	// 5
}

func ExampleNewPlan() {
	plan, err := einsum.NewPlan("bij,bjk->bik",
		shapes.Make(dtypes.Float32, 8, 2, 3), shapes.Make(dtypes.Float32, 8, 3, 4))
	if err != nil {
		panic(err)
	}
	fmt.Println(plan.OutputShape)
	fmt.Println(plan.NumSteps())
	// Output:
	// (Float32)[8 2 4]
	// 192
}
