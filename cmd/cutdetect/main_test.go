package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fiapx/fiapx-cutdetect-service/internal/domain/entity"
	"github.com/fiapx/fiapx-cutdetect-service/internal/domain/port"
	"github.com/fiapx/fiapx-cutdetect-service/internal/result"
	"github.com/fiapx/fiapx-cutdetect-service/internal/scan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memorySource struct {
	levels []byte
	failAt int
	next   int
}

func (s *memorySource) Descriptor() entity.VideoDescriptor {
	return entity.VideoDescriptor{FrameCount: len(s.levels), FPS: 25, Width: 2, Height: 2}
}

func (s *memorySource) Next(context.Context) (*entity.Frame, error) {
	if s.next == s.failAt {
		return nil, errors.New("truncated stream")
	}
	if s.next >= len(s.levels) {
		return nil, io.EOF
	}
	pix := bytes.Repeat([]byte{s.levels[s.next]}, 3*2*2)
	f := &entity.Frame{Index: s.next, Width: 2, Height: 2, Pix: pix}
	s.next++
	return f, nil
}

func (s *memorySource) Close() error { return nil }

type memoryOpener struct{ src *memorySource }

func (m memoryOpener) Open(context.Context, string) (port.FrameSource, error) { return m.src, nil }

// twoCutSource changes scene at frames 40 and 70 of 100.
func twoCutSource() *memorySource {
	levels := make([]byte, 100)
	for i := range levels {
		switch {
		case i < 40:
			levels[i] = 10
		case i < 70:
			levels[i] = 200
		default:
			levels[i] = 60
		}
	}
	return &memorySource{levels: levels, failAt: -1}
}

func openerFor(src *memorySource) openerFunc {
	return func(options, *zap.Logger) port.FrameSourceOpener { return memoryOpener{src: src} }
}

func inputFile(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "clip.mp4")
	require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
	return p
}

func TestRunWritesResultFile(t *testing.T) {
	in := inputFile(t)
	out := filepath.Join(t.TempDir(), "cuts.json")
	notes := filepath.Join(t.TempDir(), "notes.json")
	require.NoError(t, os.WriteFile(notes, []byte(`{"2": "  interview  "}`), 0o644))

	var stdout, stderr bytes.Buffer
	code := run([]string{"-method", "threshold", "-min-len", "15", "-notes", notes, "-o", out, "-q", in},
		&stdout, &stderr, &scan.CancelFlag{}, openerFor(twoCutSource()))
	require.Equal(t, exitOK, code, stderr.String())
	assert.Empty(t, stdout.String())

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()
	res, err := result.Decode(f)
	require.NoError(t, err)
	require.Len(t, res.Cuts, 3)
	assert.Equal(t, "interview", res.Cuts[1].Note)
	assert.Equal(t, entity.MethodThreshold, res.Method)
	assert.Equal(t, in, res.Input)
}

func TestRunWritesStdout(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{"-method", "threshold", inputFile(t)}, &stdout, &stderr, &scan.CancelFlag{}, openerFor(twoCutSource()))
	require.Equal(t, exitOK, code, stderr.String())

	res, err := result.Decode(&stdout)
	require.NoError(t, err)
	assert.Len(t, res.Cuts, 3)
	assert.Contains(t, stderr.String(), "100.0% 100/100 frames")
}

func TestRunCancelled(t *testing.T) {
	cancel := &scan.CancelFlag{}
	cancel.Cancel()

	var stdout, stderr bytes.Buffer
	code := run([]string{"-method", "threshold", "-q", inputFile(t)}, &stdout, &stderr, cancel, openerFor(twoCutSource()))
	assert.Equal(t, exitCancelled, code)

	res, err := result.Decode(&stdout)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusCancelled, res.Status)
	assert.Empty(t, res.Cuts)
}

func TestRunExitCodes(t *testing.T) {
	failing := twoCutSource()
	failing.failAt = 57

	tests := []struct {
		name string
		args []string
		src  *memorySource
		want int
	}{
		{"no input", []string{}, twoCutSource(), exitUsage},
		{"unknown flag", []string{"-bogus"}, twoCutSource(), exitUsage},
		{"unknown method", []string{"-method", "flow"}, twoCutSource(), exitUsage},
		{"zero min len", []string{"-min-len", "0"}, twoCutSource(), exitUsage},
		{"threshold on adaptive", []string{"-method", "adaptive", "-threshold", "0.5"}, twoCutSource(), exitUsage},
		{"min len beyond video", []string{"-min-len", "500"}, twoCutSource(), exitUsage},
		{"unknown preset", []string{"-preset", "missing"}, twoCutSource(), exitUsage},
		{"decode error", []string{"-method", "threshold"}, failing, exitDecode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append(append([]string{"-q"}, tt.args...), inputFile(t))
			if tt.name == "no input" {
				args = []string{"-q"}
			}
			var stdout, stderr bytes.Buffer
			assert.Equal(t, tt.want, run(args, &stdout, &stderr, &scan.CancelFlag{}, openerFor(tt.src)))
			assert.Empty(t, stdout.String())
		})
	}
}

func TestRunMissingInput(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{"-q", filepath.Join(t.TempDir(), "nope.mp4")}, &stdout, &stderr, &scan.CancelFlag{}, openerFor(twoCutSource()))
	assert.Equal(t, exitFailure, code)
}

func TestRunNotesOutOfRange(t *testing.T) {
	notes := filepath.Join(t.TempDir(), "notes.json")
	require.NoError(t, os.WriteFile(notes, []byte(`{"9": "nothing here"}`), 0o644))

	var stdout, stderr bytes.Buffer
	code := run([]string{"-method", "threshold", "-q", "-notes", notes, inputFile(t)}, &stdout, &stderr, &scan.CancelFlag{}, openerFor(twoCutSource()))
	assert.Equal(t, exitUsage, code)
	assert.Contains(t, stderr.String(), "out of range")
}

func TestBuildConfigPreset(t *testing.T) {
	presets := filepath.Join(t.TempDir(), "presets.yaml")
	require.NoError(t, os.WriteFile(presets, []byte(`
presets:
  fades:
    method: adaptive
    min_len_frames: 30
    adaptive:
      k: 2
`), 0o644))

	o, err := parseArgs([]string{"-presets", presets, "-preset", "fades", "-window", "40", "in.mp4"}, io.Discard)
	require.NoError(t, err)
	cfg, err := buildConfig(o)
	require.NoError(t, err)
	assert.Equal(t, entity.MethodAdaptive, cfg.Method)
	assert.Equal(t, 30, cfg.MinLenFrames)
	assert.Equal(t, 2.0, cfg.Adaptive.K)
	assert.Equal(t, 40, cfg.Adaptive.Window)
}

func TestRunNormalizesMethodCase(t *testing.T) {
	presets := filepath.Join(t.TempDir(), "presets.yaml")
	require.NoError(t, os.WriteFile(presets, []byte(`
presets:
  strobe:
    method: Threshold
  loud:
    method: Adaptive
    adaptive:
      k: 500
`), 0o644))

	for _, args := range [][]string{
		{"-method", "THRESHOLD"},
		{"-presets", presets, "-preset", "strobe"},
	} {
		var stdout, stderr bytes.Buffer
		code := run(append(append([]string{"-q"}, args...), inputFile(t)), &stdout, &stderr, &scan.CancelFlag{}, openerFor(twoCutSource()))
		require.Equal(t, exitOK, code, stderr.String())
		res, err := result.Decode(&stdout)
		require.NoError(t, err)
		assert.Equal(t, entity.MethodThreshold, res.Method)
	}

	var stdout, stderr bytes.Buffer
	code := run([]string{"-q", "-presets", presets, "-preset", "loud", inputFile(t)}, &stdout, &stderr, &scan.CancelFlag{}, openerFor(twoCutSource()))
	assert.Equal(t, exitUsage, code)
	assert.Contains(t, stderr.String(), "adaptive_k")
}

func TestFormatProgress(t *testing.T) {
	assert.Equal(t, " 25.0% 25/100 frames (1.2s)",
		formatProgress(port.Progress{Processed: 25, Total: 100, Fraction: 0.25}, 1234*time.Millisecond))
	assert.Equal(t, "frames 7 (0s)",
		formatProgress(port.Progress{Processed: 7, Total: -1, Indeterminate: true}, 20*time.Millisecond))
}
