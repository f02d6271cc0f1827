// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package einsum

import (
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	"github.com/tensorn/tensorn/pkg/core/dtypes"
	"github.com/tensorn/tensorn/pkg/support/parallel"
)

// ProgressFn is called during a contraction with the number of output elements done so far, and the total.
type ProgressFn func(done, total int64)

// DefaultMinWorkSize is the default minimum number of multiply-adds given to each worker.
const DefaultMinWorkSize = 1 << 14

// progressCheckpoints is the maximum number of times a ProgressFn is called by one contraction.
const progressCheckpoints = 100

type config struct {
	numWorkers  int
	minWorkSize int
	progress    ProgressFn
}

func newConfig(opts []Option) *config {
	cfg := &config{numWorkers: 1, minWorkSize: DefaultMinWorkSize}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Option configures the execution of a contraction.
type Option func(cfg *config)

// WithWorkers splits the output elements into contiguous ranges, each computed by a separate goroutine.
// Values of n <= 1 compute sequentially (the default), and n < 0 uses one worker per CPU.
//
// Each output element is always accumulated by a single worker in the same order as the sequential
// computation, so results are bit-identical.
func WithWorkers(n int) Option {
	return func(cfg *config) {
		if n < 0 {
			n = parallel.DefaultConfig().NumWorkers
		}
		cfg.numWorkers = n
	}
}

// WithMinWorkSize sets the minimum number of multiply-adds each worker must have, to be worth starting it.
// Defaults to DefaultMinWorkSize.
func WithMinWorkSize(n int) Option {
	return func(cfg *config) {
		cfg.minWorkSize = max(n, 1)
	}
}

// WithProgress sets a function to be called as the contraction progresses. It is called at most about 100 times,
// always from one goroutine at a time, with increasing values of done, and a last time with done == total.
func WithProgress(fn ProgressFn) Option {
	return func(cfg *config) {
		cfg.progress = fn
	}
}

// parallelConfig returns how to split the output elements across workers.
func (cfg *config) parallelConfig(p *Plan) parallel.Config {
	if cfg.numWorkers <= 1 {
		return parallel.Sequential()
	}
	sumSteps := max(p.NumSummationSteps(), 1)
	minChunk := (int64(cfg.minWorkSize) + sumSteps - 1) / sumSteps
	return parallel.Config{NumWorkers: cfg.numWorkers, MinChunkSize: int(max(minChunk, 1))}
}

// progressTracker reports progress at bounded checkpoints, possibly from several workers.
type progressTracker struct {
	fn              ProgressFn
	total, interval int64
	done            atomic.Int64

	mu           sync.Mutex
	lastReported int64
}

func newProgressTracker(fn ProgressFn, total int64) *progressTracker {
	if fn == nil {
		return nil
	}
	return &progressTracker{fn: fn, total: total, interval: max(total/progressCheckpoints, 1), lastReported: -1}
}

// add n finished output elements.
func (pt *progressTracker) add(n int64) {
	if pt == nil {
		return
	}
	done := pt.done.Add(n)
	if done != pt.total && done/pt.interval == (done-n)/pt.interval {
		return
	}
	pt.report(done)
}

func (pt *progressTracker) report(done int64) {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	if done <= pt.lastReported {
		return
	}
	pt.lastReported = done
	pt.fn(done, pt.total)
}

// Contract executes the plan on the flat (row-major) values of the operands, returning the flat values of the
// output. flats must hold one slice per operand, each with the size of the corresponding operand shape.
func Contract[T dtypes.Number](p *Plan, flats [][]T, opts ...Option) ([]T, error) {
	if len(flats) != len(p.OperandShapes) {
		return nil, errors.Wrapf(ErrOperandCountMismatch, "einsum %q plan has %d operands, but %d were given",
			p.Expr.Equation, len(p.OperandShapes), len(flats))
	}
	for opIdx, flat := range flats {
		if len(flat) != p.OperandShapes[opIdx].Size() {
			return nil, errors.Errorf("einsum %q operand #%d has %d values, but its shape %s requires %d",
				p.Expr.Equation, opIdx, len(flat), p.OperandShapes[opIdx], p.OperandShapes[opIdx].Size())
		}
	}
	cfg := newConfig(opts)
	outputSize := p.OutputShape.Size()
	output := make([]T, outputSize)
	tracker := newProgressTracker(cfg.progress, int64(outputSize))
	if p.NumSteps() == 0 {
		// Some dimension is 0: the sums are over empty sets, and the output is left with zeros.
		if tracker != nil {
			tracker.report(tracker.total)
		}
		return output, nil
	}
	parallel.ForRanges(outputSize, cfg.parallelConfig(p), func(start, end int) {
		contractRange(p, flats, output, start, end, tracker)
	})
	return output, nil
}

// contractRange computes the output elements with flat index in [start, end).
//
// Because the output labels come first in AllLabels, the row-major enumeration of all index combinations visits
// each output element in one contiguous block, over which it enumerates the summation indices.
func contractRange[T dtypes.Number](p *Plan, flats [][]T, output []T, start, end int, tracker *progressTracker) {
	numOutput := len(p.OutputLabels)
	outputExtents, sumExtents := p.Extents[:numOutput], p.Extents[numOutput:]
	outputIdx := make([]int, numOutput)
	sumIdx := make([]int, len(sumExtents))
	baseOffsets := make([]int, len(flats))
	unravel(start, outputExtents, outputIdx)

	const reportEvery = 64
	pending := int64(0)
	for outputFlatIdx := start; outputFlatIdx < end; outputFlatIdx++ {
		for opIdx := range flats {
			baseOffsets[opIdx] = ComputeOffset(outputIdx, p.strides[opIdx][:numOutput])
		}
		var sum T
		for {
			var product T = 1
			for opIdx, flat := range flats {
				product *= flat[baseOffsets[opIdx]+ComputeOffset(sumIdx, p.strides[opIdx][numOutput:])]
			}
			sum += product
			if !Increment(sumIdx, sumExtents) {
				break
			}
		}
		output[outputFlatIdx] = sum
		Increment(outputIdx, outputExtents)

		pending++
		if pending == reportEvery {
			tracker.add(pending)
			pending = 0
		}
	}
	if pending > 0 {
		tracker.add(pending)
	}
}
