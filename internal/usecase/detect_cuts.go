package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/fiapx/fiapx-cutdetect-service/internal/detector"
	"github.com/fiapx/fiapx-cutdetect-service/internal/domain/entity"
	"github.com/fiapx/fiapx-cutdetect-service/internal/domain/port"
	"github.com/fiapx/fiapx-cutdetect-service/internal/infra/config"
	"github.com/fiapx/fiapx-cutdetect-service/internal/infra/metrics"
	"github.com/fiapx/fiapx-cutdetect-service/internal/result"
	"github.com/fiapx/fiapx-cutdetect-service/internal/scan"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

type DetectCutsUseCase struct {
	repo      port.JobRepository
	cutRepo   port.CutRepository
	storage   port.VideoStorage
	opener    port.FrameSourceOpener
	publisher port.StatusPublisher
	dlq       port.DLQPublisher
	notifier  port.FailureNotifier
	cancels   *CancelRegistry
	logger    *zap.Logger

	tempDir      string
	maxRetry     int
	defaults     detector.Config
	presets      config.Presets
	progressStep float64
}

type DetectCutsConfig struct {
	TempDir      string
	MaxRetries   int
	Defaults     detector.Config
	Presets      config.Presets
	ProgressStep float64
}

func NewDetectCutsUseCase(
	repo port.JobRepository,
	cutRepo port.CutRepository,
	storage port.VideoStorage,
	opener port.FrameSourceOpener,
	publisher port.StatusPublisher,
	dlq port.DLQPublisher,
	notifier port.FailureNotifier,
	cancels *CancelRegistry,
	logger *zap.Logger,
	cfg DetectCutsConfig,
) *DetectCutsUseCase {
	return &DetectCutsUseCase{
		repo:         repo,
		cutRepo:      cutRepo,
		storage:      storage,
		opener:       opener,
		publisher:    publisher,
		dlq:          dlq,
		notifier:     notifier,
		cancels:      cancels,
		logger:       logger,
		tempDir:      cfg.TempDir,
		maxRetry:     cfg.MaxRetries,
		defaults:     cfg.Defaults,
		presets:      cfg.Presets,
		progressStep: cfg.ProgressStep,
	}
}

// Execute runs one delivery. A nil return acks the message: the job finished, failed
// permanently, or the message was unusable. A non-nil return requeues it.
func (uc *DetectCutsUseCase) Execute(ctx context.Context, rawMsg []byte) error {
	tracer := otel.Tracer("usecase")
	ctx, span := tracer.Start(ctx, "DetectCutsUseCase.Execute")
	defer span.End()

	totalTimer := time.Now()

	var msg entity.CutDetectionMessage
	if err := json.Unmarshal(rawMsg, &msg); err != nil {
		uc.logger.Error("failed to unmarshal message", zap.Error(err), zap.ByteString("body", rawMsg))
		_ = uc.dlq.PublishToDLQ(ctx, rawMsg, "unmarshal_error: "+err.Error())
		return nil
	}
	if msg.JobID == uuid.Nil || msg.VideoKey == "" {
		uc.logger.Error("message missing job_id or video_key", zap.ByteString("body", rawMsg))
		_ = uc.dlq.PublishToDLQ(ctx, rawMsg, "invalid_message: job_id and video_key are required")
		return nil
	}

	span.SetAttributes(
		attribute.String("job.id", msg.JobID.String()),
		attribute.String("job.video_key", msg.VideoKey),
	)

	log := uc.logger.With(zap.String("job_id", msg.JobID.String()), zap.String("video_key", msg.VideoKey))

	cfg, cfgErr := BuildDetectionConfig(uc.defaults, uc.presets, msg)

	job, err := uc.repo.FindByID(ctx, msg.JobID)
	if err != nil {
		job = entity.NewJob(msg.UserID, msg.VideoKey, cfg.Method, cfg.MinLenFrames, uc.maxRetry)
		job.ID = msg.JobID
		if err := uc.repo.Create(ctx, job); err != nil {
			log.Error("failed to create job record", zap.Error(err))
			return fmt.Errorf("create job: %w", err)
		}
	}

	if job.Terminal() {
		log.Info("job already finished, skipping redelivery", zap.String("status", string(job.Status)))
		return nil
	}

	if cfgErr != nil {
		log.Warn("invalid detection configuration", zap.Error(cfgErr))
		span.SetStatus(codes.Error, cfgErr.Error())
		return uc.handlePermanentFailure(ctx, job, msg, rawMsg, cfgErr)
	}
	job.Method = cfg.Method
	job.MinLenFrames = cfg.MinLenFrames
	span.SetAttributes(
		attribute.String("detect.method", string(cfg.Method)),
		attribute.Int("detect.min_len_frames", cfg.MinLenFrames),
	)

	if !job.CanRetry() {
		log.Warn("job exhausted retries, sending to DLQ")
		return uc.handlePermanentFailure(ctx, job, msg, rawMsg, errors.New("max retries exceeded"))
	}

	job.MarkProcessing()
	if err := uc.repo.Update(ctx, job); err != nil {
		log.Error("failed to update job to PROCESSING", zap.Error(err))
		return fmt.Errorf("update job: %w", err)
	}
	uc.publishStatus(ctx, job, nil, log)

	metrics.ActiveWorkers.Inc()
	defer metrics.ActiveWorkers.Dec()

	res, err := uc.detectPipeline(ctx, job, msg, rawMsg, cfg, log)
	if err != nil || res == nil {
		return err
	}

	outcome := "completed"
	if res.Status == entity.StatusCancelled {
		outcome = "cancelled"
	}
	metrics.JobsProcessedTotal.WithLabelValues(outcome).Inc()
	metrics.JobProcessingDuration.WithLabelValues("total").Observe(time.Since(totalTimer).Seconds())

	return nil
}

// detectPipeline returns a nil result when the failure was already handled.
func (uc *DetectCutsUseCase) detectPipeline(
	ctx context.Context,
	job *entity.Job,
	msg entity.CutDetectionMessage,
	rawMsg []byte,
	cfg detector.Config,
	log *zap.Logger,
) (*entity.Result, error) {
	tracer := otel.Tracer("usecase")

	flag := uc.cancels.Register(job.ID)
	defer uc.cancels.Unregister(job.ID)

	workDir := filepath.Join(uc.tempDir, job.ID.String())
	if err := os.MkdirAll(workDir, 0755); err != nil {
		return nil, fmt.Errorf("create workdir: %w", err)
	}
	defer os.RemoveAll(workDir)

	// Download video from MinIO
	dlStart := time.Now()
	ctx2, spanDl := tracer.Start(ctx, "download_video")
	videoPath := filepath.Join(workDir, "input"+filepath.Ext(msg.VideoKey))
	if err := uc.storage.DownloadVideo(ctx2, msg.VideoKey, videoPath); err != nil {
		spanDl.End()
		log.Error("failed to download video", zap.Error(err))
		return nil, uc.handleRetryableFailure(ctx, job, msg, rawMsg, fmt.Errorf("download_video: %w", err), log)
	}
	spanDl.End()
	metrics.JobProcessingDuration.WithLabelValues("download").Observe(time.Since(dlStart).Seconds())

	// Scan frames
	scanStart := time.Now()
	ctx3, spanScan := tracer.Start(ctx, "scan_frames")
	res, err := uc.runScan(ctx3, job, msg, cfg, videoPath, flag, log)
	spanScan.End()
	if err != nil {
		if ctx.Err() != nil {
			log.Warn("scan interrupted by shutdown", zap.Error(err))
			return nil, fmt.Errorf("scan interrupted: %w", ctx.Err())
		}
		log.Error("scan failed", zap.Error(err), zap.String("error_kind", entity.ErrorKind(err)))
		if isPermanent(err) {
			return nil, uc.handlePermanentFailure(ctx, job, msg, rawMsg, err)
		}
		return nil, uc.handleRetryableFailure(ctx, job, msg, rawMsg, fmt.Errorf("scan_frames: %w", err), log)
	}
	if ctx.Err() != nil {
		log.Warn("scan interrupted by shutdown", zap.Int("frames_processed", res.FramesProcessed))
		return nil, fmt.Errorf("scan interrupted: %w", ctx.Err())
	}
	scanSecs := time.Since(scanStart).Seconds()
	metrics.JobProcessingDuration.WithLabelValues("scan").Observe(scanSecs)
	metrics.FramesScannedTotal.WithLabelValues(string(cfg.Method)).Add(float64(res.FramesProcessed))
	if scanSecs > 0 {
		metrics.ScanFramesPerSecond.WithLabelValues(string(cfg.Method)).Observe(float64(res.FramesProcessed) / scanSecs)
	}

	if err := result.Validate(res); err != nil {
		log.Error("result failed validation", zap.Error(err))
		return nil, uc.handlePermanentFailure(ctx, job, msg, rawMsg, err)
	}

	// Upload result document to MinIO
	upStart := time.Now()
	ctx4, spanUp := tracer.Start(ctx, "upload_result")
	var buf bytes.Buffer
	if err := result.Encode(&buf, res); err != nil {
		spanUp.End()
		return nil, uc.handlePermanentFailure(ctx, job, msg, rawMsg, fmt.Errorf("encode_result: %w", err))
	}
	resultKey := fmt.Sprintf("%s/cuts_%s.json", msg.UserID, job.ID.String())
	if err := uc.storage.UploadResult(ctx4, resultKey, bytes.NewReader(buf.Bytes()), int64(buf.Len())); err != nil {
		spanUp.End()
		log.Error("result upload failed", zap.Error(err))
		return nil, uc.handleRetryableFailure(ctx, job, msg, rawMsg, fmt.Errorf("upload_result: %w", err), log)
	}
	spanUp.End()
	metrics.JobProcessingDuration.WithLabelValues("upload").Observe(time.Since(upStart).Seconds())

	// Persist cuts
	ctx5, spanDB := tracer.Start(ctx, "persist_cuts")
	if err := uc.cutRepo.ReplaceCuts(ctx5, job.ID, res.Cuts); err != nil {
		spanDB.End()
		log.Error("failed to persist cuts", zap.Error(err))
		return nil, uc.handleRetryableFailure(ctx, job, msg, rawMsg, fmt.Errorf("persist_cuts: %w", err), log)
	}
	spanDB.End()
	metrics.CutsDetectedTotal.WithLabelValues(string(cfg.Method)).Add(float64(len(res.Cuts)))

	job.MarkFinished(resultKey, res)
	if err := uc.repo.Update(ctx, job); err != nil {
		log.Error("failed to update finished job", zap.Error(err))
		return nil, fmt.Errorf("update job finished: %w", err)
	}

	uc.publishStatus(ctx, job, nil, log)

	log.Info("job finished",
		zap.String("status", string(job.Status)),
		zap.Int("frames_processed", res.FramesProcessed),
		zap.Int("total_frames", res.TotalFrames),
		zap.Int("cut_count", len(res.Cuts)),
		zap.String("result_key", resultKey),
	)
	return res, nil
}

func (uc *DetectCutsUseCase) runScan(
	ctx context.Context,
	job *entity.Job,
	msg entity.CutDetectionMessage,
	cfg detector.Config,
	videoPath string,
	flag *scan.CancelFlag,
	log *zap.Logger,
) (*entity.Result, error) {
	session, err := scan.NewSession(msg.VideoKey, cfg, log)
	if err != nil {
		return nil, err
	}

	src, err := uc.opener.Open(ctx, videoPath)
	if err != nil {
		var decodeErr *entity.DecodeError
		if ctx.Err() != nil || errors.As(err, &decodeErr) {
			return nil, err
		}
		return nil, &entity.DecodeError{LastFrame: -1, Err: err}
	}
	defer src.Close()

	desc := src.Descriptor()
	log.Info("scanning video",
		zap.Int("frame_count", desc.FrameCount),
		zap.Bool("estimated", desc.Estimated),
		zap.Float64("fps", desc.FPS),
	)

	throttle := newProgressThrottle(uc.progressStep, func(p port.Progress) {
		job.FramesProcessed = p.Processed
		job.TotalFrames = p.Total
		uc.publishStatus(ctx, job, &p, log)
	})
	flag.Report = throttle.report

	return session.Run(ctx, src, flag)
}

func isPermanent(err error) bool {
	var decodeErr *entity.DecodeError
	return errors.Is(err, entity.ErrInvalidConfiguration) || errors.As(err, &decodeErr)
}

func (uc *DetectCutsUseCase) handleRetryableFailure(
	ctx context.Context,
	job *entity.Job,
	msg entity.CutDetectionMessage,
	rawMsg []byte,
	cause error,
	log *zap.Logger,
) error {
	job.MarkFailed(entity.ErrorKind(cause), cause.Error())
	_ = uc.repo.Update(ctx, job)

	if !job.CanRetry() {
		return uc.handlePermanentFailure(ctx, job, msg, rawMsg, cause)
	}

	metrics.RetryTotal.WithLabelValues(strconv.Itoa(job.Attempt)).Inc()
	uc.publishStatus(ctx, job, nil, log)

	return fmt.Errorf("retryable failure (attempt %d/%d): %w", job.Attempt, job.MaxAttempts, cause)
}

func (uc *DetectCutsUseCase) handlePermanentFailure(
	ctx context.Context,
	job *entity.Job,
	msg entity.CutDetectionMessage,
	rawMsg []byte,
	cause error,
) error {
	job.MarkFailed(entity.ErrorKind(cause), cause.Error())
	_ = uc.repo.Update(ctx, job)

	_ = uc.dlq.PublishToDLQ(ctx, rawMsg, job.ErrorKind+": "+cause.Error())

	uc.publishStatus(ctx, job, nil, uc.logger)

	metrics.JobsProcessedTotal.WithLabelValues("dlq").Inc()

	if msg.UserEmail != "" {
		_ = uc.notifier.NotifyFailure(ctx, msg.UserEmail, job.ID.String(), msg.VideoKey, cause.Error())
	}

	return nil
}

func (uc *DetectCutsUseCase) publishStatus(ctx context.Context, job *entity.Job, p *port.Progress, log *zap.Logger) {
	statusMsg := entity.CutStatusMessage{
		JobID:           job.ID,
		UserID:          job.UserID,
		Status:          job.Status,
		VideoKey:        job.VideoKey,
		Method:          job.Method,
		FramesProcessed: job.FramesProcessed,
		TotalFrames:     job.TotalFrames,
		CutCount:        job.CutCount,
		ResultKey:       job.ResultKey,
		ErrorKind:       job.ErrorKind,
		ErrorMessage:    job.ErrorMessage,
		Attempt:         job.Attempt,
		MaxAttempts:     job.MaxAttempts,
	}
	if p != nil && !p.Indeterminate {
		fraction := p.Fraction
		statusMsg.Progress = &fraction
	}
	if job.Status == entity.JobStatusCompleted {
		done := 1.0
		statusMsg.Progress = &done
	}
	data, _ := json.Marshal(statusMsg)
	if err := uc.publisher.PublishStatus(ctx, data); err != nil {
		log.Error("failed to publish status", zap.Error(err))
	}
}
