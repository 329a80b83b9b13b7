package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os/exec"
	"strings"
	"sync"

	"github.com/fiapx/fiapx-cutdetect-service/internal/domain/entity"
	"github.com/fiapx/fiapx-cutdetect-service/internal/domain/port"
	"go.uber.org/zap"
)

const stderrTail = 4096

// Decoder opens videos as raw RGB24 frame streams piped out of ffmpeg, downscaled to the
// analysis width so per-frame cost does not depend on the source resolution.
type Decoder struct {
	ffmpegPath    string
	ffprobePath   string
	analysisWidth int
	logger        *zap.Logger
}

func NewDecoder(ffmpegPath, ffprobePath string, analysisWidth int, logger *zap.Logger) *Decoder {
	return &Decoder{
		ffmpegPath:    ffmpegPath,
		ffprobePath:   ffprobePath,
		analysisWidth: analysisWidth,
		logger:        logger,
	}
}

var _ port.FrameSourceOpener = (*Decoder)(nil)

func (d *Decoder) Open(ctx context.Context, videoPath string) (port.FrameSource, error) {
	desc, err := d.Probe(ctx, videoPath)
	if err != nil {
		return nil, err
	}
	w, h := scaledSize(desc.Width, desc.Height, d.analysisWidth)

	cmd := exec.CommandContext(ctx, d.ffmpegPath,
		"-v", "error",
		"-nostdin",
		"-i", videoPath,
		"-map", "0:v:0",
		"-fps_mode", "passthrough",
		"-vf", fmt.Sprintf("scale=%d:%d", w, h),
		"-f", "rawvideo",
		"-pix_fmt", "rgb24",
		"pipe:1",
	)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg stdout: %w", err)
	}
	stderr := &tailBuffer{max: stderrTail}
	cmd.Stderr = stderr
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start ffmpeg: %w", err)
	}

	d.logger.Info("decoding video",
		zap.String("path", videoPath),
		zap.Int("frame_count", desc.FrameCount),
		zap.Bool("estimated", desc.Estimated),
		zap.Float64("fps", desc.FPS),
		zap.Int("analysis_width", w),
		zap.Int("analysis_height", h),
	)

	return &Source{
		cmd:    cmd,
		stdout: stdout,
		stderr: stderr,
		desc:   desc,
		width:  w,
		height: h,
		buf:    make([]byte, 3*w*h),
	}, nil
}

// Source is a running ffmpeg decode. The Pix buffer of a returned frame is reused by the
// next call to Next.
type Source struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr *tailBuffer
	desc   entity.VideoDescriptor
	width  int
	height int
	buf    []byte
	index  int
	done   bool
	once   sync.Once
	werr   error
}

func (s *Source) Descriptor() entity.VideoDescriptor { return s.desc }

func (s *Source) Next(ctx context.Context) (*entity.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.done {
		return nil, io.EOF
	}

	_, err := io.ReadFull(s.stdout, s.buf)
	switch {
	case err == nil:
		f := &entity.Frame{Index: s.index, Width: s.width, Height: s.height, Pix: s.buf}
		s.index++
		return f, nil
	case errors.Is(err, io.EOF):
		s.done = true
		if werr := s.wait(); werr != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("ffmpeg exited: %w: %s", werr, s.stderr.String())
		}
		return nil, io.EOF
	default:
		s.done = true
		werr := s.wait()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("read frame %d: %w (ffmpeg: %v: %s)", s.index, err, werr, s.stderr.String())
	}
}

func (s *Source) Close() error {
	if !s.done && s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}
	s.done = true
	_ = s.stdout.Close()
	if err := s.wait(); err != nil && !isKilled(err) {
		return err
	}
	return nil
}

func (s *Source) wait() error {
	s.once.Do(func() { s.werr = s.cmd.Wait() })
	return s.werr
}

func isKilled(err error) bool {
	var exitErr *exec.ExitError
	return errors.As(err, &exitErr) && !exitErr.Exited()
}

// scaledSize fits the frame into maxWidth keeping the aspect ratio, with an even height.
func scaledSize(width, height, maxWidth int) (int, int) {
	if maxWidth <= 0 || width <= maxWidth {
		return width, height
	}
	h := int(math.Round(float64(height)*float64(maxWidth)/float64(width)/2)) * 2
	if h < 2 {
		h = 2
	}
	return maxWidth, h
}

// tailBuffer keeps the last max bytes written to it.
type tailBuffer struct {
	mu  sync.Mutex
	max int
	buf []byte
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.max; over > 0 {
		t.buf = t.buf[over:]
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return strings.TrimSpace(string(t.buf))
}
