package detector

import (
	"errors"
	"fmt"
	"math"

	"github.com/fiapx/fiapx-cutdetect-service/internal/domain/entity"
)

// ErrMalformedFrame is returned for buffers that do not match their declared geometry.
var ErrMalformedFrame = errors.New("malformed frame")

// geometry pins the frame size seen first; every later frame must match it.
type geometry struct {
	width, height int
}

func (g *geometry) check(f *entity.Frame) error {
	if f == nil || f.Width <= 0 || f.Height <= 0 {
		return fmt.Errorf("%w: empty frame", ErrMalformedFrame)
	}
	if want := 3 * f.Width * f.Height; len(f.Pix) != want {
		return fmt.Errorf("%w: frame %d has %d bytes, want %d", ErrMalformedFrame, f.Index, len(f.Pix), want)
	}
	if g.width == 0 {
		g.width, g.height = f.Width, f.Height
		return nil
	}
	if f.Width != g.width || f.Height != g.height {
		return fmt.Errorf("%w: frame %d is %dx%d, stream is %dx%d",
			ErrMalformedFrame, f.Index, f.Width, f.Height, g.width, g.height)
	}
	return nil
}

// hsvHistogram holds per-channel bin fractions; each channel sums to 1.
type hsvHistogram struct {
	h, s, v []float64
}

func newHSVHistogram(bins int) hsvHistogram {
	return hsvHistogram{
		h: make([]float64, bins),
		s: make([]float64, bins),
		v: make([]float64, bins),
	}
}

func (hist *hsvHistogram) fill(f *entity.Frame) {
	clear(hist.h)
	clear(hist.s)
	clear(hist.v)
	bins := len(hist.h)
	for i := 0; i+2 < len(f.Pix); i += 3 {
		h, s, v := rgbToHSV(f.Pix[i], f.Pix[i+1], f.Pix[i+2])
		hist.h[binOf(h, bins)]++
		hist.s[binOf(s, bins)]++
		hist.v[binOf(v, bins)]++
	}
	n := float64(f.Width * f.Height)
	normalize(hist.h, n)
	normalize(hist.s, n)
	normalize(hist.v, n)
}

// fillLumaHistogram writes BT.601 luma bin fractions of f into dst.
func fillLumaHistogram(f *entity.Frame, dst []float64) {
	clear(dst)
	bins := len(dst)
	for i := 0; i+2 < len(f.Pix); i += 3 {
		y := (0.299*float64(f.Pix[i]) + 0.587*float64(f.Pix[i+1]) + 0.114*float64(f.Pix[i+2])) / 255
		dst[binOf(y, bins)]++
	}
	normalize(dst, float64(f.Width*f.Height))
}

// histogramDistance is half the L1 distance between two normalized histograms, in [0,1].
func histogramDistance(a, b []float64) float64 {
	var sum float64
	for i := range a {
		sum += math.Abs(a[i] - b[i])
	}
	return sum / 2
}

// meanAbsDiff is the mean absolute difference of two equally sized byte buffers, on the 0-255 scale.
func meanAbsDiff(a, b []byte) float64 {
	if len(a) == 0 {
		return 0
	}
	var sum uint64
	for i := range a {
		d := int(a[i]) - int(b[i])
		if d < 0 {
			d = -d
		}
		sum += uint64(d)
	}
	return float64(sum) / float64(len(a))
}

// rgbToHSV returns hue, saturation and value, each scaled to [0,1].
func rgbToHSV(r8, g8, b8 byte) (float64, float64, float64) {
	r, g, b := float64(r8)/255, float64(g8)/255, float64(b8)/255
	maxC := math.Max(r, math.Max(g, b))
	minC := math.Min(r, math.Min(g, b))
	delta := maxC - minC

	var h float64
	switch {
	case delta == 0:
		h = 0
	case maxC == r:
		h = math.Mod((g-b)/delta, 6)
	case maxC == g:
		h = (b-r)/delta + 2
	default:
		h = (r-g)/delta + 4
	}
	h /= 6
	if h < 0 {
		h++
	}

	var s float64
	if maxC > 0 {
		s = delta / maxC
	}
	return h, s, maxC
}

func binOf(x float64, bins int) int {
	b := int(x * float64(bins))
	if b >= bins {
		return bins - 1
	}
	if b < 0 {
		return 0
	}
	return b
}

func normalize(hist []float64, n float64) {
	if n == 0 {
		return
	}
	for i := range hist {
		hist[i] /= n
	}
}
