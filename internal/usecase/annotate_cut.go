package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fiapx/fiapx-cutdetect-service/internal/domain/entity"
	"github.com/fiapx/fiapx-cutdetect-service/internal/domain/port"
	"github.com/fiapx/fiapx-cutdetect-service/internal/infra/metrics"
	"github.com/fiapx/fiapx-cutdetect-service/internal/result"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// AnnotateCutUseCase handles messages from the notes queue. It rewrites the stored result
// document and then the cut row; a failure on either requeues the message.
type AnnotateCutUseCase struct {
	repo    port.JobRepository
	cutRepo port.CutRepository
	storage port.VideoStorage
	dlq     port.DLQPublisher
	logger  *zap.Logger
}

func NewAnnotateCutUseCase(
	repo port.JobRepository,
	cutRepo port.CutRepository,
	storage port.VideoStorage,
	dlq port.DLQPublisher,
	logger *zap.Logger,
) *AnnotateCutUseCase {
	return &AnnotateCutUseCase{repo: repo, cutRepo: cutRepo, storage: storage, dlq: dlq, logger: logger}
}

func (uc *AnnotateCutUseCase) Execute(ctx context.Context, rawMsg []byte) error {
	ctx, span := otel.Tracer("usecase").Start(ctx, "AnnotateCutUseCase.Execute")
	defer span.End()

	var msg entity.CutNoteMessage
	if err := json.Unmarshal(rawMsg, &msg); err != nil {
		return uc.reject(ctx, rawMsg, "unmarshal_error: "+err.Error())
	}
	if msg.JobID == uuid.Nil || msg.Index < 1 {
		return uc.reject(ctx, rawMsg, "invalid_message: job_id and a positive index are required")
	}
	span.SetAttributes(attribute.String("job.id", msg.JobID.String()), attribute.Int("cut.index", msg.Index))
	log := uc.logger.With(zap.String("job_id", msg.JobID.String()), zap.Int("cut_index", msg.Index))

	job, err := uc.repo.FindByID(ctx, msg.JobID)
	if errors.Is(err, entity.ErrNotFound) {
		return uc.reject(ctx, rawMsg, "unknown job")
	}
	if err != nil {
		return fmt.Errorf("find job: %w", err)
	}
	if job.ResultKey == "" {
		return uc.reject(ctx, rawMsg, fmt.Sprintf("job has no result (status %s)", job.Status))
	}

	rc, err := uc.storage.OpenResult(ctx, job.ResultKey)
	if err != nil {
		return fmt.Errorf("open result: %w", err)
	}
	res, err := result.Decode(rc)
	rc.Close()
	if err != nil {
		return fmt.Errorf("read result %s: %w", job.ResultKey, err)
	}
	if err := res.SetNote(msg.Index, msg.Note); err != nil {
		return uc.reject(ctx, rawMsg, "invalid_message: "+err.Error())
	}

	var buf bytes.Buffer
	if err := result.Encode(&buf, res); err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	if err := uc.storage.UploadResult(ctx, job.ResultKey, bytes.NewReader(buf.Bytes()), int64(buf.Len())); err != nil {
		log.Error("result upload failed", zap.Error(err))
		return fmt.Errorf("upload result: %w", err)
	}
	if err := uc.cutRepo.UpdateNote(ctx, job.ID, msg.Index, res.Cuts[msg.Index-1].Note); err != nil {
		log.Error("failed to update cut note", zap.Error(err))
		return fmt.Errorf("update note: %w", err)
	}

	metrics.NotesUpdatedTotal.Inc()
	log.Info("cut note updated", zap.String("result_key", job.ResultKey))
	return nil
}

func (uc *AnnotateCutUseCase) reject(ctx context.Context, rawMsg []byte, reason string) error {
	uc.logger.Error("invalid note message", zap.String("reason", reason), zap.ByteString("body", rawMsg))
	_ = uc.dlq.PublishToDLQ(ctx, rawMsg, reason)
	return nil
}
