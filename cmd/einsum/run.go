// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"time"

	"github.com/pkg/errors"
	"github.com/tensorn/tensorn/pkg/core/dtypes"
	"github.com/tensorn/tensorn/pkg/core/einsum"
	"github.com/tensorn/tensorn/pkg/core/shapes"
	"github.com/tensorn/tensorn/pkg/core/tensors"
	"github.com/tensorn/tensorn/pkg/core/tensors/fileio"
	"k8s.io/klog/v2"
)

// runConfig holds the parsed command line.
type runConfig struct {
	equation  string
	paths     []string
	dtypes    []dtypes.DType
	outPath   string
	format    string
	workers   int
	progress  bool
	planOnly  bool
	precision int

	// isTerminal overrides the terminal detection of the progress bar, for tests.
	isTerminal *bool
}

// operandDType returns the dtype to load operand opIdx with, or dtypes.InvalidDType to keep the file's.
func (cfg *runConfig) operandDType(opIdx int) (dtypes.DType, error) {
	switch len(cfg.dtypes) {
	case 0:
		return dtypes.InvalidDType, nil
	case 1:
		return cfg.dtypes[0], nil
	case len(cfg.paths):
		return cfg.dtypes[opIdx], nil
	}
	return dtypes.InvalidDType, errors.Errorf("-dtype lists %d dtypes for %d operands: give either one or one per operand",
		len(cfg.dtypes), len(cfg.paths))
}

// loadOperands reads every operand file.
func loadOperands(cfg *runConfig) ([]*tensors.Tensor, error) {
	operands := make([]*tensors.Tensor, 0, len(cfg.paths))
	for opIdx, path := range cfg.paths {
		dtype, err := cfg.operandDType(opIdx)
		if err != nil {
			tensors.FinalizeAll(operands...)
			return nil, err
		}
		operand, err := fileio.Load(path, dtype, fileio.FormatAuto)
		if err != nil {
			tensors.FinalizeAll(operands...)
			return nil, errors.WithMessagef(err, "loading operand #%d", opIdx)
		}
		operands = append(operands, operand)
	}
	return operands, nil
}

// run loads the operands, plans and executes the contraction, and prints or saves the result to w.
func run(cfg *runConfig, w io.Writer) error {
	outFormat, err := fileio.ParseFormat(cfg.format)
	if err != nil {
		return err
	}
	if cfg.outPath != "" {
		if _, err := fileio.Resolve(cfg.outPath, outFormat); err != nil {
			return err
		}
	}
	operands, err := loadOperands(cfg)
	if err != nil {
		return err
	}
	defer tensors.FinalizeAll(operands...)

	operandShapes := make([]shapes.Shape, len(operands))
	for ii, operand := range operands {
		operandShapes[ii] = operand.Shape()
	}
	plan, err := einsum.NewPlan(cfg.equation, operandShapes...)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(w, operandsTable(cfg.paths, plan))
	if cfg.planOnly {
		_, _ = fmt.Fprintln(w, planTable(plan))
		return nil
	}

	opts := []einsum.Option{einsum.WithWorkers(cfg.workers)}
	var bar *progressBar
	if cfg.progress {
		bar = newProgressBar(w, int64(plan.OutputShape.Size()), cfg.isTerminal)
		if bar != nil {
			opts = append(opts, einsum.WithProgress(bar.update))
		}
	}
	start := time.Now()
	result, err := einsum.Execute(plan, opts, operands...)
	if bar != nil {
		bar.finish()
	}
	if err != nil {
		return err
	}
	defer result.Finalize()
	elapsed := time.Since(start)
	klog.V(1).Infof("contraction %q took %s", cfg.equation, elapsed)

	if cfg.outPath != "" {
		if err := fileio.Save(result, cfg.outPath, outFormat); err != nil {
			return err
		}
		_, _ = fmt.Fprintln(w, resultTable(result, cfg.outPath, elapsed))
		return nil
	}
	_, _ = fmt.Fprintln(w, result.Summary(cfg.precision))
	return nil
}
