package port

import (
	"context"

	"github.com/fiapx/fiapx-cutdetect-service/internal/domain/entity"
)

// FrameSource yields decoded frames in strictly increasing index order.
// Next returns io.EOF after the last frame; any other error is a decode failure.
type FrameSource interface {
	Descriptor() entity.VideoDescriptor
	Next(ctx context.Context) (*entity.Frame, error)
	Close() error
}

type FrameSourceOpener interface {
	Open(ctx context.Context, videoPath string) (FrameSource, error)
}

// Progress is reported once per processed frame. Fraction is meaningless when Indeterminate.
type Progress struct {
	Processed     int
	Total         int
	Fraction      float64
	Indeterminate bool
}

type ProgressObserver interface {
	OnProgress(p Progress)
	CancelRequested() bool
}
