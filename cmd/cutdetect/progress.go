package main

import (
	"fmt"
	"io"
	"time"

	"github.com/fiapx/fiapx-cutdetect-service/internal/domain/port"
)

// progressLine redraws a single stderr line at most every interval.
type progressLine struct {
	w        io.Writer
	interval time.Duration
	last     time.Time
	started  time.Time
}

func newProgressLine(w io.Writer) *progressLine {
	return &progressLine{w: w, interval: 200 * time.Millisecond, started: time.Now()}
}

func (p *progressLine) report(pr port.Progress) {
	now := time.Now()
	done := !pr.Indeterminate && pr.Processed >= pr.Total
	if !done && now.Sub(p.last) < p.interval {
		return
	}
	p.last = now
	fmt.Fprintf(p.w, "\r%s", formatProgress(pr, now.Sub(p.started)))
}

func formatProgress(pr port.Progress, elapsed time.Duration) string {
	elapsed = elapsed.Truncate(100 * time.Millisecond)
	if pr.Indeterminate {
		return fmt.Sprintf("frames %d (%s)", pr.Processed, elapsed)
	}
	return fmt.Sprintf("%5.1f%% %d/%d frames (%s)", pr.Fraction*100, pr.Processed, pr.Total, elapsed)
}
