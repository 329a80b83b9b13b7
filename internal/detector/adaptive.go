package detector

import (
	"math"

	"github.com/fiapx/fiapx-cutdetect-service/internal/domain/entity"
)

// Adaptive compares each frame's luma histogram dissimilarity against the mean and standard
// deviation of the previous Window scores. No boundary is reported until the window is full.
type Adaptive struct {
	cfg       AdaptiveConfig
	geom      geometry
	prev, cur []float64
	primed    bool
	window    []float64
	next      int
	filled    int
	lastScore float64
}

func NewAdaptive(cfg AdaptiveConfig) *Adaptive {
	return &Adaptive{
		cfg:    cfg,
		prev:   make([]float64, cfg.Bins),
		cur:    make([]float64, cfg.Bins),
		window: make([]float64, cfg.Window),
	}
}

func (d *Adaptive) Method() entity.Method { return entity.MethodAdaptive }

func (d *Adaptive) Process(frame *entity.Frame) (bool, error) {
	if err := d.geom.check(frame); err != nil {
		return false, err
	}
	fillLumaHistogram(frame, d.cur)
	defer func() { d.prev, d.cur = d.cur, d.prev }()

	if !d.primed {
		d.primed = true
		return false, nil
	}

	score := histogramDistance(d.cur, d.prev)
	d.lastScore = score
	if d.filled < len(d.window) {
		d.push(score)
		return false, nil
	}

	mean, stddev := d.stats()
	boundary := score > mean+d.cfg.K*stddev && score >= d.cfg.MinScore
	d.push(score)
	return boundary, nil
}

// LastScore is the luma dissimilarity computed for the most recent frame.
func (d *Adaptive) LastScore() float64 { return d.lastScore }

func (d *Adaptive) push(score float64) {
	d.window[d.next] = score
	d.next = (d.next + 1) % len(d.window)
	if d.filled < len(d.window) {
		d.filled++
	}
}

// stats returns the population mean and standard deviation of the full window.
func (d *Adaptive) stats() (float64, float64) {
	n := float64(len(d.window))
	var sum float64
	for _, s := range d.window {
		sum += s
	}
	mean := sum / n
	var sq float64
	for _, s := range d.window {
		sq += (s - mean) * (s - mean)
	}
	return mean, math.Sqrt(sq / n)
}
