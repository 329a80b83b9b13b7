package entity

import (
	"fmt"
	"strings"
)

type Method string

const (
	MethodContent   Method = "content"
	MethodAdaptive  Method = "adaptive"
	MethodThreshold Method = "threshold"
)

// ParseMethod accepts a method name case-insensitively.
func ParseMethod(s string) (Method, error) {
	switch m := Method(strings.ToLower(strings.TrimSpace(s))); m {
	case MethodContent, MethodAdaptive, MethodThreshold:
		return m, nil
	default:
		return "", fmt.Errorf("%w: unknown method %q", ErrInvalidConfiguration, s)
	}
}

type ResultStatus string

const (
	StatusCompleted ResultStatus = "completed"
	StatusCancelled ResultStatus = "cancelled"
)

// Cut is a closed-open frame interval [StartFrame, EndFrame).
type Cut struct {
	Index           int     `json:"index"`
	StartFrame      int     `json:"start_frame"`
	EndFrame        int     `json:"end_frame"`
	DurationFrames  int     `json:"duration_frames"`
	StartTime       float64 `json:"start_time"`
	EndTime         float64 `json:"end_time"`
	DurationSeconds float64 `json:"duration_seconds"`
	Note            string  `json:"note,omitempty"`
}

// Result is the artifact of one detection run. Only cut notes may change after it is built.
type Result struct {
	Input           string       `json:"input"`
	Method          Method       `json:"method"`
	MinLenFrames    int          `json:"min_len_frames"`
	FPS             float64      `json:"fps"`
	TotalFrames     int          `json:"total_frames"`
	DurationSeconds float64      `json:"duration_seconds"`
	Status          ResultStatus `json:"status"`
	FramesProcessed int          `json:"frames_processed"`
	Cuts            []Cut        `json:"cuts"`
}

// SetNote attaches a free-text note to the cut with the given 1-based index.
// An empty note clears it.
func (r *Result) SetNote(index int, note string) error {
	if index < 1 || index > len(r.Cuts) {
		return fmt.Errorf("cut %d out of range [1,%d]", index, len(r.Cuts))
	}
	r.Cuts[index-1].Note = strings.TrimSpace(note)
	return nil
}

// Covered is the end frame of the last cut, i.e. the prefix [0, Covered) the cuts partition.
func (r *Result) Covered() int {
	if len(r.Cuts) == 0 {
		return 0
	}
	return r.Cuts[len(r.Cuts)-1].EndFrame
}
