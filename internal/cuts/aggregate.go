// Package cuts folds scene boundaries into contiguous closed-open frame intervals.
//
// An interval shorter than the minimum length is merged into the interval that follows it;
// a short final interval is merged into the one before it. The only interval that can stay
// below the minimum is the single interval of a video that is itself shorter than the
// minimum, which is only reachable when the frame count was not known before the scan.
package cuts

import (
	"errors"
	"fmt"

	"github.com/fiapx/fiapx-cutdetect-service/internal/domain/entity"
)

// ErrInvalidBoundaries reports boundaries that are not strictly increasing or fall outside
// the open range (0, frameCount).
var ErrInvalidBoundaries = errors.New("invalid boundaries")

// Interval is the frame range [Start, End).
type Interval struct {
	Start int
	End   int
}

func (iv Interval) Len() int { return iv.End - iv.Start }

// Aggregator consumes boundaries one at a time in increasing order.
// The zero value is not usable; call NewAggregator.
type Aggregator struct {
	minLen    int
	start     int
	last      int
	confirmed []Interval
}

func NewAggregator(minLen int) (*Aggregator, error) {
	if minLen <= 0 {
		return nil, fmt.Errorf("%w: min_len_frames must be >= 1, got %d", entity.ErrInvalidConfiguration, minLen)
	}
	return &Aggregator{minLen: minLen}, nil
}

// Add records a boundary. The interval it closes is confirmed only if it is long enough;
// otherwise the pending interval keeps growing into the next one.
func (a *Aggregator) Add(boundary int) error {
	if boundary <= a.last {
		return fmt.Errorf("%w: boundary %d after %d", ErrInvalidBoundaries, boundary, a.last)
	}
	a.last = boundary
	if boundary-a.start >= a.minLen {
		a.confirmed = append(a.confirmed, Interval{Start: a.start, End: boundary})
		a.start = boundary
	}
	return nil
}

// Confirmed returns a copy of the intervals already closed by a long-enough boundary.
// The pending interval is not included.
func (a *Aggregator) Confirmed() []Interval {
	out := make([]Interval, len(a.confirmed))
	copy(out, a.confirmed)
	return out
}

// Finish closes the pending interval at total and returns the full partition of [0, total).
func (a *Aggregator) Finish(total int) ([]Interval, error) {
	if total < a.last || (a.last > 0 && total == a.last) {
		return nil, fmt.Errorf("%w: boundary %d not below frame count %d", ErrInvalidBoundaries, a.last, total)
	}
	out := a.Confirmed()
	if total == 0 {
		return out, nil
	}
	tail := Interval{Start: a.start, End: total}
	if tail.Len() < a.minLen && len(out) > 0 {
		out[len(out)-1].End = total
		return out, nil
	}
	return append(out, tail), nil
}

// Aggregate partitions [0, frameCount) at the given strictly increasing boundaries.
func Aggregate(frameCount int, boundaries []int, minLen int) ([]Interval, error) {
	if frameCount < 0 {
		return nil, fmt.Errorf("%w: frame count %d", entity.ErrInvalidConfiguration, frameCount)
	}
	if minLen <= 0 || minLen > frameCount {
		return nil, fmt.Errorf("%w: min_len_frames %d outside [1,%d]", entity.ErrInvalidConfiguration, minLen, frameCount)
	}
	agg, err := NewAggregator(minLen)
	if err != nil {
		return nil, err
	}
	for _, b := range boundaries {
		if b >= frameCount {
			return nil, fmt.Errorf("%w: boundary %d not below frame count %d", ErrInvalidBoundaries, b, frameCount)
		}
		if err := agg.Add(b); err != nil {
			return nil, err
		}
	}
	return agg.Finish(frameCount)
}
