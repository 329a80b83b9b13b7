package entity

import (
	"time"

	"github.com/google/uuid"
)

type JobStatus string

const (
	JobStatusPending    JobStatus = "PENDING"
	JobStatusProcessing JobStatus = "PROCESSING"
	JobStatusCompleted  JobStatus = "COMPLETED"
	JobStatusCancelled  JobStatus = "CANCELLED"
	JobStatusFailed     JobStatus = "FAILED"
)

type Job struct {
	ID              uuid.UUID
	UserID          string
	VideoKey        string
	ResultKey       string
	Method          Method
	MinLenFrames    int
	Status          JobStatus
	TotalFrames     int
	FramesProcessed int
	CutCount        int
	FPS             float64
	VideoDuration   float64
	Attempt         int
	MaxAttempts     int
	ErrorKind       string
	ErrorMessage    string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	CompletedAt     *time.Time
}

func NewJob(userID, videoKey string, method Method, minLenFrames, maxAttempts int) *Job {
	now := time.Now().UTC()
	return &Job{
		ID:           uuid.New(),
		UserID:       userID,
		VideoKey:     videoKey,
		Method:       method,
		MinLenFrames: minLenFrames,
		Status:       JobStatusPending,
		Attempt:      0,
		MaxAttempts:  maxAttempts,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func (j *Job) MarkProcessing() {
	j.Status = JobStatusProcessing
	j.Attempt++
	j.ErrorKind = ""
	j.ErrorMessage = ""
	j.UpdatedAt = time.Now().UTC()
}

// MarkFinished records a completed or cancelled run from its result.
func (j *Job) MarkFinished(resultKey string, res *Result) {
	now := time.Now().UTC()
	j.Status = JobStatusCompleted
	if res.Status == StatusCancelled {
		j.Status = JobStatusCancelled
	}
	j.ResultKey = resultKey
	j.TotalFrames = res.TotalFrames
	j.FramesProcessed = res.FramesProcessed
	j.CutCount = len(res.Cuts)
	j.FPS = res.FPS
	j.VideoDuration = res.DurationSeconds
	j.UpdatedAt = now
	j.CompletedAt = &now
}

func (j *Job) MarkFailed(kind, errMsg string) {
	j.Status = JobStatusFailed
	j.ErrorKind = kind
	j.ErrorMessage = errMsg
	j.UpdatedAt = time.Now().UTC()
}

func (j *Job) CanRetry() bool {
	return j.Attempt < j.MaxAttempts
}

// Terminal reports whether the job reached a state no redelivery should reopen.
func (j *Job) Terminal() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusCancelled
}
