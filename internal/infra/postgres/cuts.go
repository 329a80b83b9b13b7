package postgres

import (
	"context"
	"fmt"

	"github.com/fiapx/fiapx-cutdetect-service/internal/domain/entity"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type CutRepository struct {
	pool *pgxpool.Pool
}

func NewCutRepository(pool *pgxpool.Pool) *CutRepository {
	return &CutRepository{pool: pool}
}

// ReplaceCuts stores the cuts of a job, dropping any cuts left by an earlier attempt.
func (r *CutRepository) ReplaceCuts(ctx context.Context, jobID uuid.UUID, cuts []entity.Cut) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM detection_cuts WHERE job_id=$1`, jobID); err != nil {
		return fmt.Errorf("delete cuts: %w", err)
	}

	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"detection_cuts"},
		[]string{"job_id", "cut_index", "start_frame", "end_frame", "start_time", "end_time", "note"},
		pgx.CopyFromSlice(len(cuts), func(i int) ([]any, error) {
			c := cuts[i]
			return []any{jobID, c.Index, c.StartFrame, c.EndFrame, c.StartTime, c.EndTime, c.Note}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("copy cuts: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit cuts: %w", err)
	}
	return nil
}

// UpdateNote sets the user note of one cut. Notes are the only cut field that may change
// after detection. AnnotateCutUseCase keeps the stored result document in step.
func (r *CutRepository) UpdateNote(ctx context.Context, jobID uuid.UUID, index int, note string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE detection_cuts SET note=$3 WHERE job_id=$1 AND cut_index=$2`,
		jobID, index, note,
	)
	if err != nil {
		return fmt.Errorf("update note: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("cut %d of job %s: %w", index, jobID, ErrNotFound)
	}
	return nil
}

// ListCuts returns the stored cuts of a job ordered by index.
func (r *CutRepository) ListCuts(ctx context.Context, jobID uuid.UUID) ([]entity.Cut, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT cut_index, start_frame, end_frame, start_time, end_time, note
		FROM detection_cuts WHERE job_id=$1 ORDER BY cut_index`, jobID)
	if err != nil {
		return nil, fmt.Errorf("list cuts: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (entity.Cut, error) {
		var c entity.Cut
		if err := row.Scan(&c.Index, &c.StartFrame, &c.EndFrame, &c.StartTime, &c.EndTime, &c.Note); err != nil {
			return c, err
		}
		c.DurationFrames = c.EndFrame - c.StartFrame
		c.DurationSeconds = c.EndTime - c.StartTime
		return c, nil
	})
}
