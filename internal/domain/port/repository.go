package port

import (
	"context"

	"github.com/fiapx/fiapx-cutdetect-service/internal/domain/entity"
	"github.com/google/uuid"
)

type JobRepository interface {
	Create(ctx context.Context, job *entity.Job) error
	Update(ctx context.Context, job *entity.Job) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Job, error)
}

type CutRepository interface {
	ReplaceCuts(ctx context.Context, jobID uuid.UUID, cuts []entity.Cut) error
	UpdateNote(ctx context.Context, jobID uuid.UUID, index int, note string) error
}
