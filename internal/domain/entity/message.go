package entity

import "github.com/google/uuid"

// CutDetectionMessage is the inbound message from the video.cutdetect queue.
// Zero-valued optional fields fall back to the preset and then to service defaults.
type CutDetectionMessage struct {
	JobID            uuid.UUID `json:"job_id"`
	UserID           string    `json:"user_id"`
	VideoKey         string    `json:"video_key"`
	Method           string    `json:"method,omitempty"`
	MinLenFrames     *int      `json:"min_len_frames,omitempty"`
	Preset           string    `json:"preset,omitempty"`
	ContentThreshold *float64  `json:"content_threshold,omitempty"`
	PixelThreshold   *float64  `json:"pixel_threshold,omitempty"`
	AdaptiveWindow   *int      `json:"adaptive_window,omitempty"`
	AdaptiveK        *float64  `json:"adaptive_k,omitempty"`
	UserEmail        string    `json:"user_email,omitempty"`
}

// CancelMessage is the inbound message from the video.cutdetect.cancel queue.
type CancelMessage struct {
	JobID uuid.UUID `json:"job_id"`
}

// CutNoteMessage is the inbound message from the video.cutdetect.notes queue. Index is the
// 1-based cut index; an empty Note clears it.
type CutNoteMessage struct {
	JobID uuid.UUID `json:"job_id"`
	Index int       `json:"index"`
	Note  string    `json:"note"`
}

// CutStatusMessage is the outbound message published to the video.cutdetect.status queue.
type CutStatusMessage struct {
	JobID           uuid.UUID `json:"job_id"`
	UserID          string    `json:"user_id"`
	Status          JobStatus `json:"status"`
	VideoKey        string    `json:"video_key"`
	Method          Method    `json:"method,omitempty"`
	Progress        *float64  `json:"progress,omitempty"`
	FramesProcessed int       `json:"frames_processed,omitempty"`
	TotalFrames     int       `json:"total_frames,omitempty"`
	CutCount        int       `json:"cut_count,omitempty"`
	ResultKey       string    `json:"result_key,omitempty"`
	ErrorKind       string    `json:"error_kind,omitempty"`
	ErrorMessage    string    `json:"error_message,omitempty"`
	Attempt         int       `json:"attempt"`
	MaxAttempts     int       `json:"max_attempts"`
}
