package ffmpeg

import (
	"context"
	"errors"
	"io"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/fiapx/fiapx-cutdetect-service/internal/domain/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestParseProbe(t *testing.T) {
	desc, err := parseProbe([]byte(`{
		"streams": [
			{"codec_type": "audio"},
			{"codec_type": "video", "width": 1920, "height": 1080,
			 "r_frame_rate": "30000/1001", "avg_frame_rate": "30000/1001", "nb_frames": "2997"}
		],
		"format": {"duration": "100.0"}
	}`))
	require.NoError(t, err)

	assert.Equal(t, 2997, desc.FrameCount)
	assert.False(t, desc.Estimated)
	assert.InDelta(t, 29.97, desc.FPS, 1e-3)
	assert.Equal(t, 1920, desc.Width)
}

func TestParseProbeEstimatesFromDuration(t *testing.T) {
	desc, err := parseProbe([]byte(`{
		"streams": [{"codec_type": "video", "width": 640, "height": 360,
			"r_frame_rate": "25/1", "avg_frame_rate": "0/0", "nb_frames": "N/A"}],
		"format": {"duration": "4.00"}
	}`))
	require.NoError(t, err)

	assert.Equal(t, 100, desc.FrameCount)
	assert.True(t, desc.Estimated)
	assert.InDelta(t, 25, desc.FPS, 1e-9)
}

func TestParseProbeUnknownLength(t *testing.T) {
	desc, err := parseProbe([]byte(`{"streams": [{"codec_type": "video", "width": 64, "height": 48, "avg_frame_rate": "24"}]}`))
	require.NoError(t, err)
	assert.False(t, desc.FrameCountKnown())
	assert.Equal(t, entity.UnknownFrameCount, desc.FrameCount)
}

func TestParseProbeErrors(t *testing.T) {
	for name, doc := range map[string]string{
		"not json": `{`,
		"no video": `{"streams": [{"codec_type": "audio"}]}`,
		"no size":  `{"streams": [{"codec_type": "video", "avg_frame_rate": "25/1"}]}`,
		"no fps":   `{"streams": [{"codec_type": "video", "width": 2, "height": 2, "avg_frame_rate": "0/0", "r_frame_rate": "0/0"}]}`,
		"bad fps":  `{"streams": [{"codec_type": "video", "width": 2, "height": 2, "avg_frame_rate": "x/y", "r_frame_rate": "fast"}]}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := parseProbe([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestParseRate(t *testing.T) {
	r, err := parseRate("24000/1001")
	require.NoError(t, err)
	assert.InDelta(t, 23.976, r, 1e-3)

	r, err = parseRate("50")
	require.NoError(t, err)
	assert.InDelta(t, 50, r, 1e-9)

	_, err = parseRate("1/0")
	assert.Error(t, err)
}

func TestScaledSize(t *testing.T) {
	w, h := scaledSize(1920, 1080, 320)
	assert.Equal(t, 320, w)
	assert.Equal(t, 180, h)

	w, h = scaledSize(200, 100, 320)
	assert.Equal(t, 200, w)
	assert.Equal(t, 100, h)

	w, h = scaledSize(4000, 10, 320)
	assert.Equal(t, 320, w)
	assert.Equal(t, 2, h)
}

func TestTailBuffer(t *testing.T) {
	tb := &tailBuffer{max: 5}
	_, _ = tb.Write([]byte("hello "))
	_, _ = tb.Write([]byte("world"))
	assert.Equal(t, "world", tb.String())
}

// makeTwoSceneVideo renders 2s of red followed by 2s of blue at 25 fps.
func makeTwoSceneVideo(t *testing.T) string {
	t.Helper()
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not installed")
	}
	if _, err := exec.LookPath("ffprobe"); err != nil {
		t.Skip("ffprobe not installed")
	}
	out := filepath.Join(t.TempDir(), "scenes.avi")
	cmd := exec.Command("ffmpeg", "-v", "error", "-y",
		"-filter_complex",
		"color=c=red:s=64x48:r=25:d=2[a];color=c=blue:s=64x48:r=25:d=2[b];[a][b]concat=n=2:v=1:a=0[out]",
		"-map", "[out]", "-c:v", "mpeg4", "-q:v", "2", out)
	if output, err := cmd.CombinedOutput(); err != nil {
		t.Skipf("cannot render test video: %v: %s", err, output)
	}
	return out
}

func TestDecoderStreamsFrames(t *testing.T) {
	path := makeTwoSceneVideo(t)
	dec := NewDecoder("ffmpeg", "ffprobe", 32, zap.NewNop())

	src, err := dec.Open(context.Background(), path)
	require.NoError(t, err)
	defer src.Close()

	assert.InDelta(t, 25, src.Descriptor().FPS, 1e-6)

	n := 0
	var first, last [3]byte
	for {
		f, err := src.Next(context.Background())
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		assert.Equal(t, n, f.Index)
		assert.Equal(t, 32, f.Width)
		assert.Equal(t, 24, f.Height)
		assert.Len(t, f.Pix, 3*32*24)
		if n == 0 {
			copy(first[:], f.Pix[:3])
		}
		copy(last[:], f.Pix[:3])
		n++
	}
	assert.InDelta(t, 100, n, 2)
	assert.Greater(t, first[0], first[2], "first scene is red")
	assert.Greater(t, last[2], last[0], "last scene is blue")
}

func TestDecoderMissingFile(t *testing.T) {
	if _, err := exec.LookPath("ffprobe"); err != nil {
		t.Skip("ffprobe not installed")
	}
	dec := NewDecoder("ffmpeg", "ffprobe", 32, zap.NewNop())
	_, err := dec.Open(context.Background(), filepath.Join(t.TempDir(), "missing.mp4"))
	assert.Error(t, err)
}
