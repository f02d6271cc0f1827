// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"time"

	"github.com/muesli/termenv"
	"github.com/schollz/progressbar/v3"
)

// progressBar displays the progress of a contraction on a terminal.
type progressBar struct {
	w       io.Writer
	bar     *progressbar.ProgressBar
	termenv *termenv.Output
}

// newProgressBar returns nil if w is not a terminal supporting ANSI codes.
// isTerminal, if not nil, overrides the detection.
func newProgressBar(w io.Writer, total int64, isTerminal *bool) *progressBar {
	output := termenv.NewOutput(w)
	supported := output.ColorProfile() != termenv.Ascii
	if isTerminal != nil {
		supported = *isTerminal
	}
	if !supported {
		return nil
	}
	pBar := &progressBar{w: w, termenv: output}
	pBar.bar = progressbar.NewOptions64(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("contracting"),
		progressbar.OptionUseANSICodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("elements"),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionSetTheme(progressbar.ThemeASCII),
		progressbar.OptionSetRenderBlankState(true),
	)
	pBar.termenv.HideCursor()
	return pBar
}

// update implements einsum.ProgressFn.
func (pBar *progressBar) update(done, _ int64) {
	_ = pBar.bar.Set64(done)
}

func (pBar *progressBar) finish() {
	_ = pBar.bar.Finish()
	pBar.termenv.ShowCursor()
	_, _ = fmt.Fprintln(pBar.w)
}
