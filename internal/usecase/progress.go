package usecase

import (
	"math"

	"github.com/fiapx/fiapx-cutdetect-service/internal/domain/port"
)

// indeterminateEvery is the frame interval between progress reports when the total is unknown.
const indeterminateEvery = 250

// progressThrottle forwards one report per step of completed fraction, or one per
// indeterminateEvery frames for sources of unknown length.
type progressThrottle struct {
	step    float64
	next    float64
	lastAt  int
	forward func(port.Progress)
}

func newProgressThrottle(step float64, forward func(port.Progress)) *progressThrottle {
	if step <= 0 || step > 1 {
		step = 0.05
	}
	return &progressThrottle{step: step, next: step, forward: forward}
}

func (t *progressThrottle) report(p port.Progress) {
	if p.Indeterminate {
		if p.Processed-t.lastAt >= indeterminateEvery {
			t.lastAt = p.Processed
			t.forward(p)
		}
		return
	}
	if p.Fraction+1e-9 < t.next {
		return
	}
	t.next = (math.Floor((p.Fraction+1e-9)/t.step) + 1) * t.step
	t.forward(p)
}
