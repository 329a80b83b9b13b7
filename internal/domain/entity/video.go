package entity

// UnknownFrameCount marks a video descriptor whose length is not known up front.
const UnknownFrameCount = -1

// VideoDescriptor is created once when a scan starts and never changes afterwards.
type VideoDescriptor struct {
	FrameCount int
	FPS        float64
	// Estimated is set when FrameCount was derived from container duration rather than counted.
	Estimated bool
	Width     int
	Height    int
}

func (v VideoDescriptor) FrameCountKnown() bool {
	return v.FrameCount >= 0
}

// DurationSeconds is FrameCount/FPS, or 0 when either is unknown.
func (v VideoDescriptor) DurationSeconds() float64 {
	if !v.FrameCountKnown() || v.FPS <= 0 {
		return 0
	}
	return float64(v.FrameCount) / v.FPS
}

// Frame is one decoded frame. Pix is packed RGB24 with a stride of 3*Width.
// A frame belongs to the current scan step only; detectors must not keep Pix.
type Frame struct {
	Index  int
	Width  int
	Height int
	Pix    []byte
}

// Timestamp returns the presentation time of the frame in seconds.
func (f *Frame) Timestamp(fps float64) float64 {
	if fps <= 0 {
		return 0
	}
	return float64(f.Index) / fps
}
