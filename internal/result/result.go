// Package result assembles detection runs into the exported result document.
package result

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/fiapx/fiapx-cutdetect-service/internal/cuts"
	"github.com/fiapx/fiapx-cutdetect-service/internal/domain/entity"
)

const timeTolerance = 1e-6

// ErrInvalidResult is returned by Validate and Decode for documents that break the export contract.
var ErrInvalidResult = errors.New("invalid result")

type Params struct {
	Input           string
	Method          entity.Method
	MinLenFrames    int
	Video           entity.VideoDescriptor
	Status          entity.ResultStatus
	FramesProcessed int
}

// Build derives every cut's times from the video fps. TotalFrames is the descriptor's frame
// count, or the number of frames processed when the count is unknown.
func Build(p Params, intervals []cuts.Interval) *entity.Result {
	total := p.Video.FrameCount
	if !p.Video.FrameCountKnown() {
		total = p.FramesProcessed
	}
	status := p.Status
	if status == "" {
		status = entity.StatusCompleted
	}

	res := &entity.Result{
		Input:           p.Input,
		Method:          p.Method,
		MinLenFrames:    p.MinLenFrames,
		FPS:             p.Video.FPS,
		TotalFrames:     total,
		DurationSeconds: seconds(total, p.Video.FPS),
		Status:          status,
		FramesProcessed: p.FramesProcessed,
		Cuts:            make([]entity.Cut, 0, len(intervals)),
	}
	for i, iv := range intervals {
		res.Cuts = append(res.Cuts, entity.Cut{
			Index:           i + 1,
			StartFrame:      iv.Start,
			EndFrame:        iv.End,
			DurationFrames:  iv.Len(),
			StartTime:       seconds(iv.Start, p.Video.FPS),
			EndTime:         seconds(iv.End, p.Video.FPS),
			DurationSeconds: seconds(iv.Len(), p.Video.FPS),
		})
	}
	return res
}

// Validate checks the export invariants. Completed results must partition [0, total_frames);
// cancelled results must partition a prefix ending at or before frames_processed, which in
// turn may not exceed total_frames.
func Validate(r *entity.Result) error {
	if r == nil {
		return fmt.Errorf("%w: nil result", ErrInvalidResult)
	}
	switch r.Method {
	case entity.MethodContent, entity.MethodAdaptive, entity.MethodThreshold:
	default:
		return fmt.Errorf("%w: method %q", ErrInvalidResult, r.Method)
	}
	if r.MinLenFrames < 1 {
		return fmt.Errorf("%w: min_len_frames %d", ErrInvalidResult, r.MinLenFrames)
	}
	if r.FPS <= 0 || math.IsNaN(r.FPS) || math.IsInf(r.FPS, 0) {
		return fmt.Errorf("%w: fps %v", ErrInvalidResult, r.FPS)
	}
	if r.TotalFrames < 0 {
		return fmt.Errorf("%w: total_frames %d", ErrInvalidResult, r.TotalFrames)
	}
	if !near(r.DurationSeconds, seconds(r.TotalFrames, r.FPS)) {
		return fmt.Errorf("%w: duration_seconds %v does not match total_frames/fps", ErrInvalidResult, r.DurationSeconds)
	}

	short := 0
	next := 0
	for i, c := range r.Cuts {
		if c.Index != i+1 {
			return fmt.Errorf("%w: cut at position %d has index %d", ErrInvalidResult, i, c.Index)
		}
		if c.StartFrame != next {
			return fmt.Errorf("%w: cut %d starts at %d, want %d", ErrInvalidResult, c.Index, c.StartFrame, next)
		}
		if c.EndFrame <= c.StartFrame || c.DurationFrames != c.EndFrame-c.StartFrame {
			return fmt.Errorf("%w: cut %d has frames [%d,%d) duration %d",
				ErrInvalidResult, c.Index, c.StartFrame, c.EndFrame, c.DurationFrames)
		}
		if !near(c.StartTime, seconds(c.StartFrame, r.FPS)) ||
			!near(c.EndTime, seconds(c.EndFrame, r.FPS)) ||
			!near(c.DurationSeconds, seconds(c.DurationFrames, r.FPS)) {
			return fmt.Errorf("%w: cut %d times do not match fps", ErrInvalidResult, c.Index)
		}
		if c.DurationFrames < r.MinLenFrames {
			short++
		}
		next = c.EndFrame
	}
	if short > 1 {
		return fmt.Errorf("%w: %d cuts shorter than %d frames", ErrInvalidResult, short, r.MinLenFrames)
	}

	switch r.Status {
	case entity.StatusCompleted:
		if next != r.TotalFrames {
			return fmt.Errorf("%w: cuts end at %d, total_frames is %d", ErrInvalidResult, next, r.TotalFrames)
		}
	case entity.StatusCancelled:
		if next > r.FramesProcessed {
			return fmt.Errorf("%w: cuts end at %d past %d processed frames", ErrInvalidResult, next, r.FramesProcessed)
		}
		if r.FramesProcessed > r.TotalFrames {
			return fmt.Errorf("%w: %d frames processed of %d total", ErrInvalidResult, r.FramesProcessed, r.TotalFrames)
		}
	default:
		return fmt.Errorf("%w: status %q", ErrInvalidResult, r.Status)
	}
	return nil
}

// Encode writes r as indented JSON. Non-ASCII notes are written verbatim.
func Encode(w io.Writer, r *entity.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	return nil
}

// Decode reads a result document and validates it.
func Decode(rd io.Reader) (*entity.Result, error) {
	var r entity.Result
	if err := json.NewDecoder(rd).Decode(&r); err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}
	if r.Status == "" {
		r.Status = entity.StatusCompleted
	}
	if r.Cuts == nil {
		r.Cuts = []entity.Cut{}
	}
	if err := Validate(&r); err != nil {
		return nil, err
	}
	return &r, nil
}

// ApplyNotes attaches notes keyed by 1-based cut index.
func ApplyNotes(r *entity.Result, notes map[int]string) error {
	for idx, note := range notes {
		if err := r.SetNote(idx, note); err != nil {
			return err
		}
	}
	return nil
}

func seconds(frames int, fps float64) float64 {
	if fps <= 0 {
		return 0
	}
	return float64(frames) / fps
}

func near(a, b float64) bool {
	return math.Abs(a-b) <= timeTolerance
}
