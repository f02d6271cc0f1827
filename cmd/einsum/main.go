// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// einsum evaluates an Einstein summation over tensors stored in files.
//
// Usage:
//
//	einsum [flags] -expr "ij,jk->ik" a.npy b.csv
//
// Operand formats are inferred from their extensions (.csv, .npy, .npz, .json, .gob). The result is printed,
// or saved with -out.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/tensorn/tensorn/pkg/core/dtypes"
	"github.com/tensorn/tensorn/pkg/support/xslices"
	"k8s.io/klog/v2"
)

var (
	flagExpr   = flag.String("expr", "", "Einsum equation, e.g. \"ij,jk->ik\". Required.")
	flagDTypes = xslices.Flag("dtype", nil,
		"Comma-separated dtypes to load the operands as: a single one for all operands, or one per operand. "+
			"By default each operand keeps the dtype stored in its file, and CSV files are loaded as float64.",
		dtypes.FromName)
	flagOut    = flag.String("out", "", "Save the result to this file instead of printing it.")
	flagFormat = flag.String("format", "auto",
		"Format of the -out file: csv, npy, npz, json, gob or auto to infer it from the extension.")
	flagWorkers = flag.Int("workers", 0,
		"Number of goroutines computing the contraction: 0 or 1 computes sequentially, -1 uses one per CPU.")
	flagProgress  = flag.Bool("progress", false, "Display a progress bar, if the output is a terminal.")
	flagPlan      = flag.Bool("plan", false, "Only print the resolved plan, without computing it.")
	flagPrecision = flag.Int("precision", 4, "Number of significant digits used when printing the result.")
)

func main() {
	klog.InitFlags(nil)
	flag.Usage = func() {
		_, _ = fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] -expr <equation> <operand files...>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if *flagExpr == "" {
		klog.Errorf("Missing -expr. See 'einsum -help'.")
		os.Exit(1)
	}
	if flag.NArg() == 0 {
		klog.Errorf("Missing operand files. See 'einsum -help'.")
		os.Exit(1)
	}

	cfg := &runConfig{
		equation:  *flagExpr,
		paths:     flag.Args(),
		dtypes:    *flagDTypes,
		outPath:   *flagOut,
		format:    *flagFormat,
		workers:   *flagWorkers,
		progress:  *flagProgress,
		planOnly:  *flagPlan,
		precision: *flagPrecision,
	}
	if err := run(cfg, os.Stdout); err != nil {
		klog.Exitf("einsum failed: %+v", err)
	}
}
