// Package scan drives one detection run over a frame source, reporting progress after every
// frame and honoring cancellation between frames.
package scan

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/fiapx/fiapx-cutdetect-service/internal/cuts"
	"github.com/fiapx/fiapx-cutdetect-service/internal/detector"
	"github.com/fiapx/fiapx-cutdetect-service/internal/domain/entity"
	"github.com/fiapx/fiapx-cutdetect-service/internal/domain/port"
	"github.com/fiapx/fiapx-cutdetect-service/internal/result"
	"go.uber.org/zap"
)

var ErrSessionUsed = errors.New("scan session already used")

// Session owns all per-scan state. It runs at most once; independent scans need
// independent sessions.
type Session struct {
	input      string
	cfg        detector.Config
	det        detector.Detector
	agg        *cuts.Aggregator
	logger     *zap.Logger
	boundaries []int
	used       bool
}

// NewSession validates cfg before any frame is read.
func NewSession(input string, cfg detector.Config, logger *zap.Logger) (*Session, error) {
	det, err := detector.New(cfg)
	if err != nil {
		return nil, err
	}
	agg, err := cuts.NewAggregator(cfg.MinLenFrames)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		input:  input,
		cfg:    cfg,
		det:    det,
		agg:    agg,
		logger: logger.With(zap.String("method", string(cfg.Method)), zap.String("input", input)),
	}, nil
}

// Boundaries returns the raw boundary frames reported by the detector so far,
// before min-length merging.
func (s *Session) Boundaries() []int {
	out := make([]int, len(s.boundaries))
	copy(out, s.boundaries)
	return out
}

// Run scans src to the end. It returns a completed result, a cancelled result carrying only
// confirmed cuts, or an error: entity.ErrInvalidConfiguration before the first frame, or
// *entity.DecodeError when the source fails.
func (s *Session) Run(ctx context.Context, src port.FrameSource, obs port.ProgressObserver) (*entity.Result, error) {
	if s.used {
		return nil, ErrSessionUsed
	}
	s.used = true
	if obs == nil {
		obs = NopObserver{}
	}

	video := src.Descriptor()
	if video.FPS <= 0 {
		return nil, &entity.DecodeError{LastFrame: -1, Err: fmt.Errorf("frame source reported fps %v", video.FPS)}
	}
	if video.FrameCountKnown() && !video.Estimated && s.cfg.MinLenFrames > video.FrameCount {
		return nil, fmt.Errorf("%w: min_len_frames %d exceeds frame count %d",
			entity.ErrInvalidConfiguration, s.cfg.MinLenFrames, video.FrameCount)
	}

	started := time.Now()
	processed := 0
	for {
		if cancelRequested(ctx, obs) {
			return s.cancelled(video, processed), nil
		}

		frame, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
				return s.cancelled(video, processed), nil
			}
			return nil, &entity.DecodeError{LastFrame: processed - 1, Err: err}
		}
		if frame.Index != processed {
			return nil, &entity.DecodeError{
				LastFrame: processed - 1,
				Err:       fmt.Errorf("frame index %d out of order, want %d", frame.Index, processed),
			}
		}

		hit, err := s.det.Process(frame)
		if err != nil {
			return nil, &entity.DecodeError{LastFrame: processed - 1, Err: err}
		}
		if hit {
			if err := s.agg.Add(frame.Index); err != nil {
				return nil, fmt.Errorf("aggregate boundary: %w", err)
			}
			s.boundaries = append(s.boundaries, frame.Index)
			s.logger.Debug("boundary detected", zap.Int("frame", frame.Index))
		}
		processed++
		obs.OnProgress(progressOf(processed, video))
	}

	if video.FrameCountKnown() && processed != video.FrameCount {
		s.logger.Warn("frame count differs from source descriptor",
			zap.Int("reported", video.FrameCount),
			zap.Int("delivered", processed),
		)
	}
	video.FrameCount = processed
	video.Estimated = false

	intervals, err := s.agg.Finish(processed)
	if err != nil {
		return nil, fmt.Errorf("aggregate cuts: %w", err)
	}
	res := result.Build(s.params(video, entity.StatusCompleted, processed), intervals)

	s.logger.Info("scan completed",
		zap.Int("frames", processed),
		zap.Int("boundaries", len(s.boundaries)),
		zap.Int("cuts", len(res.Cuts)),
		zap.Duration("elapsed", time.Since(started)),
	)
	return res, nil
}

func (s *Session) cancelled(video entity.VideoDescriptor, processed int) *entity.Result {
	// an estimated length can fall short of what was already decoded
	if video.FrameCountKnown() && processed > video.FrameCount {
		video.FrameCount = processed
	}
	res := result.Build(s.params(video, entity.StatusCancelled, processed), s.agg.Confirmed())
	s.logger.Info("scan cancelled",
		zap.Int("frames", processed),
		zap.Int("confirmed_cuts", len(res.Cuts)),
	)
	return res
}

func (s *Session) params(video entity.VideoDescriptor, status entity.ResultStatus, processed int) result.Params {
	return result.Params{
		Input:           s.input,
		Method:          s.cfg.Method,
		MinLenFrames:    s.cfg.MinLenFrames,
		Video:           video,
		Status:          status,
		FramesProcessed: processed,
	}
}

func cancelRequested(ctx context.Context, obs port.ProgressObserver) bool {
	if ctx.Err() != nil {
		return true
	}
	return obs.CancelRequested()
}
