package scan

import (
	"sync/atomic"

	"github.com/fiapx/fiapx-cutdetect-service/internal/domain/entity"
	"github.com/fiapx/fiapx-cutdetect-service/internal/domain/port"
)

type NopObserver struct{}

func (NopObserver) OnProgress(port.Progress) {}
func (NopObserver) CancelRequested() bool    { return false }

// CancelFlag is an observer whose cancellation can be requested from another goroutine.
// OnProgress forwards to Report when set.
type CancelFlag struct {
	Report func(port.Progress)
	flag   atomic.Bool
}

func (c *CancelFlag) Cancel() { c.flag.Store(true) }

func (c *CancelFlag) CancelRequested() bool { return c.flag.Load() }

func (c *CancelFlag) OnProgress(p port.Progress) {
	if c.Report != nil {
		c.Report(p)
	}
}

func progressOf(processed int, video entity.VideoDescriptor) port.Progress {
	p := port.Progress{Processed: processed, Total: video.FrameCount}
	if !video.FrameCountKnown() || video.FrameCount == 0 {
		p.Indeterminate = true
		return p
	}
	p.Fraction = float64(processed) / float64(video.FrameCount)
	if p.Fraction > 1 {
		p.Fraction = 1
	}
	return p
}
