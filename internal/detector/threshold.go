package detector

import "github.com/fiapx/fiapx-cutdetect-service/internal/domain/entity"

// Threshold flags frames whose mean absolute pixel difference from the previous frame
// exceeds a fixed value.
type Threshold struct {
	cfg       ThresholdConfig
	geom      geometry
	prev      []byte
	primed    bool
	lastDelta float64
}

func NewThreshold(cfg ThresholdConfig) *Threshold {
	return &Threshold{cfg: cfg}
}

func (d *Threshold) Method() entity.Method { return entity.MethodThreshold }

func (d *Threshold) Process(frame *entity.Frame) (bool, error) {
	if err := d.geom.check(frame); err != nil {
		return false, err
	}
	if !d.primed {
		d.prev = append(d.prev[:0], frame.Pix...)
		d.primed = true
		return false, nil
	}

	d.lastDelta = meanAbsDiff(frame.Pix, d.prev)
	d.prev = append(d.prev[:0], frame.Pix...)
	return d.lastDelta > d.cfg.PixelThreshold, nil
}

// LastDelta is the pixel delta computed for the most recent frame.
func (d *Threshold) LastDelta() float64 { return d.lastDelta }
