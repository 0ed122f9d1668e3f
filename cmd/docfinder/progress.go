// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/pdiddy/docfinder/pkg/types"
)

// terminalListener prints status lines and drives a progress bar on w.
type terminalListener struct {
	w     io.Writer
	quiet bool

	bar   *progressbar.ProgressBar
	total int
	err   string
}

func newTerminalListener(w io.Writer, quiet bool) *terminalListener {
	return &terminalListener{w: w, quiet: quiet}
}

func (l *terminalListener) OnStatus(text string) {
	if l.quiet {
		return
	}
	l.clearBar()
	fmt.Fprintln(l.w, text)
}

// OnProgress shows a spinner for total 0 and a bar otherwise. Current 0
// with total 0 and no phase clears the bar.
func (l *terminalListener) OnProgress(current, total int, phase, detail string) {
	if l.quiet {
		return
	}
	if total == 0 && phase == "" {
		l.clearBar()
		return
	}
	if l.bar == nil || l.total != total {
		l.clearBar()
		limit := total
		if total == 0 {
			limit = -1
		}
		l.bar = progressbar.NewOptions(limit,
			progressbar.OptionSetDescription(phase),
			progressbar.OptionSetWriter(l.w),
			progressbar.OptionSetWidth(40),
			progressbar.OptionThrottle(65*time.Millisecond),
			progressbar.OptionShowCount(),
			progressbar.OptionSpinnerType(14),
			progressbar.OptionClearOnFinish(),
			progressbar.OptionSetRenderBlankState(true),
		)
		l.total = total
	}
	desc := phase
	if detail != "" {
		desc = phase + " " + shorten(detail, 40)
	}
	l.bar.Describe(desc)
	if total > 0 {
		_ = l.bar.Set(current)
	} else {
		_ = l.bar.Add(1)
	}
}

func (l *terminalListener) OnResults([]types.SearchResult, map[string]int) {}

func (l *terminalListener) OnError(description string) {
	l.clearBar()
	l.err = description
	fmt.Fprintln(l.w, "Error:", description)
}

func (l *terminalListener) clearBar() {
	if l.bar == nil {
		return
	}
	_ = l.bar.Finish()
	l.bar = nil
	l.total = 0
}
