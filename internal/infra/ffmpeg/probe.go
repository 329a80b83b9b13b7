package ffmpeg

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"

	"github.com/fiapx/fiapx-cutdetect-service/internal/domain/entity"
)

type probeOutput struct {
	Streams []probeStream `json:"streams"`
	Format  probeFormat   `json:"format"`
}

type probeStream struct {
	CodecType    string `json:"codec_type"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	RFrameRate   string `json:"r_frame_rate"`
	AvgFrameRate string `json:"avg_frame_rate"`
	NbFrames     string `json:"nb_frames"`
	Duration     string `json:"duration"`
}

type probeFormat struct {
	Duration string `json:"duration"`
}

// Probe reads the first video stream's geometry, frame rate and frame count with ffprobe.
func (d *Decoder) Probe(ctx context.Context, videoPath string) (entity.VideoDescriptor, error) {
	cmd := exec.CommandContext(ctx, d.ffprobePath,
		"-v", "error",
		"-print_format", "json",
		"-show_streams",
		"-show_format",
		"-select_streams", "v:0",
		videoPath,
	)
	output, err := cmd.Output()
	if err != nil {
		return entity.VideoDescriptor{}, fmt.Errorf("ffprobe: %w", err)
	}
	return parseProbe(output)
}

func parseProbe(data []byte) (entity.VideoDescriptor, error) {
	var out probeOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return entity.VideoDescriptor{}, fmt.Errorf("parse ffprobe output: %w", err)
	}

	var stream *probeStream
	for i := range out.Streams {
		if out.Streams[i].CodecType == "video" {
			stream = &out.Streams[i]
			break
		}
	}
	if stream == nil {
		return entity.VideoDescriptor{}, fmt.Errorf("no video stream")
	}
	if stream.Width <= 0 || stream.Height <= 0 {
		return entity.VideoDescriptor{}, fmt.Errorf("invalid video size %dx%d", stream.Width, stream.Height)
	}

	fps, err := parseRate(stream.AvgFrameRate)
	if err != nil || fps <= 0 {
		fps, err = parseRate(stream.RFrameRate)
	}
	if err != nil || fps <= 0 {
		return entity.VideoDescriptor{}, fmt.Errorf("no usable frame rate (avg %q, r %q)", stream.AvgFrameRate, stream.RFrameRate)
	}

	desc := entity.VideoDescriptor{
		FrameCount: entity.UnknownFrameCount,
		FPS:        fps,
		Width:      stream.Width,
		Height:     stream.Height,
	}
	if n, err := strconv.Atoi(stream.NbFrames); err == nil && n > 0 {
		desc.FrameCount = n
		return desc, nil
	}
	for _, raw := range []string{stream.Duration, out.Format.Duration} {
		if secs, err := strconv.ParseFloat(raw, 64); err == nil && secs > 0 {
			desc.FrameCount = int(math.Round(secs * fps))
			desc.Estimated = true
			break
		}
	}
	return desc, nil
}

// parseRate parses ffprobe rationals such as "30000/1001" as well as plain numbers.
func parseRate(s string) (float64, error) {
	s = strings.TrimSpace(s)
	num, den, ok := strings.Cut(s, "/")
	if !ok {
		return strconv.ParseFloat(s, 64)
	}
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, fmt.Errorf("parse rate %q: %w", s, err)
	}
	dv, err := strconv.ParseFloat(den, 64)
	if err != nil {
		return 0, fmt.Errorf("parse rate %q: %w", s, err)
	}
	if dv == 0 {
		return 0, fmt.Errorf("parse rate %q: zero denominator", s)
	}
	return n / dv, nil
}
