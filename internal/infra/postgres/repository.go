package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/fiapx/fiapx-cutdetect-service/internal/domain/entity"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when no row matches the requested key.
var ErrNotFound = entity.ErrNotFound

type JobRepository struct {
	pool *pgxpool.Pool
}

func NewJobRepository(pool *pgxpool.Pool) *JobRepository {
	return &JobRepository{pool: pool}
}

func (r *JobRepository) Create(ctx context.Context, job *entity.Job) error {
	query := `
		INSERT INTO detection_jobs (
			id, user_id, video_key, result_key, method, min_len_frames, status,
			total_frames, frames_processed, cut_count, fps, video_duration,
			attempt, max_attempts, error_kind, error_message,
			created_at, updated_at, completed_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)`

	_, err := r.pool.Exec(ctx, query,
		job.ID, job.UserID, job.VideoKey, job.ResultKey, string(job.Method), job.MinLenFrames,
		string(job.Status), job.TotalFrames, job.FramesProcessed, job.CutCount,
		job.FPS, job.VideoDuration, job.Attempt, job.MaxAttempts,
		job.ErrorKind, job.ErrorMessage,
		job.CreatedAt, job.UpdatedAt, job.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

func (r *JobRepository) Update(ctx context.Context, job *entity.Job) error {
	query := `
		UPDATE detection_jobs SET
			status=$2, result_key=$3, method=$4, min_len_frames=$5,
			total_frames=$6, frames_processed=$7, cut_count=$8, fps=$9, video_duration=$10,
			attempt=$11, error_kind=$12, error_message=$13, updated_at=$14, completed_at=$15
		WHERE id=$1`

	tag, err := r.pool.Exec(ctx, query,
		job.ID, string(job.Status), job.ResultKey, string(job.Method), job.MinLenFrames,
		job.TotalFrames, job.FramesProcessed, job.CutCount, job.FPS, job.VideoDuration,
		job.Attempt, job.ErrorKind, job.ErrorMessage, job.UpdatedAt, job.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update job %s: %w", job.ID, ErrNotFound)
	}
	return nil
}

func (r *JobRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Job, error) {
	query := `
		SELECT id, user_id, video_key, result_key, method, min_len_frames, status,
			total_frames, frames_processed, cut_count, fps, video_duration,
			attempt, max_attempts, error_kind, error_message,
			created_at, updated_at, completed_at
		FROM detection_jobs WHERE id=$1`

	job := &entity.Job{}
	var method, status string
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&job.ID, &job.UserID, &job.VideoKey, &job.ResultKey, &method, &job.MinLenFrames, &status,
		&job.TotalFrames, &job.FramesProcessed, &job.CutCount, &job.FPS, &job.VideoDuration,
		&job.Attempt, &job.MaxAttempts, &job.ErrorKind, &job.ErrorMessage,
		&job.CreatedAt, &job.UpdatedAt, &job.CompletedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("find job %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find job by id: %w", err)
	}
	job.Method = entity.Method(method)
	job.Status = entity.JobStatus(status)
	return job, nil
}
