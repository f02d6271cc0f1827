// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package parallel splits a range of work items into contiguous chunks and runs them concurrently.
package parallel

import (
	"runtime"
	"sync"
)

// Config controls how work is split across goroutines.
type Config struct {
	// NumWorkers is the maximum number of goroutines used. Values <= 1 run sequentially.
	NumWorkers int

	// MinChunkSize is the minimum number of items per goroutine: smaller ranges are not worth the overhead.
	MinChunkSize int
}

// DefaultConfig uses one worker per CPU.
func DefaultConfig() Config {
	return Config{
		NumWorkers:   runtime.NumCPU(),
		MinChunkSize: 64,
	}
}

// Sequential is a Config that disables concurrency.
func Sequential() Config {
	return Config{NumWorkers: 1}
}

// Chunks returns the contiguous [start, end) ranges covering [0, n) that ForRanges would use.
// The ranges are in increasing order and depend only on n and the configuration.
func (cfg Config) Chunks(n int) [][2]int {
	if n <= 0 {
		return nil
	}
	numChunks := 1
	if cfg.NumWorkers > 1 {
		numChunks = cfg.NumWorkers
		if cfg.MinChunkSize > 0 {
			numChunks = min(numChunks, n/cfg.MinChunkSize)
		}
		numChunks = max(min(numChunks, n), 1)
	}
	chunks := make([][2]int, 0, numChunks)
	chunkSize, remainder := n/numChunks, n%numChunks
	start := 0
	for i := range numChunks {
		end := start + chunkSize
		if i < remainder {
			end++
		}
		chunks = append(chunks, [2]int{start, end})
		start = end
	}
	return chunks
}

// ForRanges calls fn(start, end) for each of the chunks of [0, n), concurrently if cfg allows it.
// It returns when all calls have returned.
func ForRanges(n int, cfg Config, fn func(start, end int)) {
	chunks := cfg.Chunks(n)
	if len(chunks) == 1 {
		fn(chunks[0][0], chunks[0][1])
		return
	}
	var wg sync.WaitGroup
	for _, chunk := range chunks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn(chunk[0], chunk[1])
		}()
	}
	wg.Wait()
}

// For calls fn(i) for every i in [0, n), concurrently if cfg allows it.
func For(n int, cfg Config, fn func(i int)) {
	ForRanges(n, cfg, func(start, end int) {
		for i := start; i < end; i++ {
			fn(i)
		}
	})
}
