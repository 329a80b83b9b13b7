package detector

import "github.com/fiapx/fiapx-cutdetect-service/internal/domain/entity"

// Content flags frames whose HSV histogram differs from the previous frame's by more than
// the configured threshold. Adjacent over-threshold frames are all reported; the interval
// aggregator collapses them.
type Content struct {
	cfg       ContentConfig
	geom      geometry
	prev, cur hsvHistogram
	primed    bool
	lastScore float64
}

func NewContent(cfg ContentConfig) *Content {
	return &Content{
		cfg:  cfg,
		prev: newHSVHistogram(cfg.Bins),
		cur:  newHSVHistogram(cfg.Bins),
	}
}

func (d *Content) Method() entity.Method { return entity.MethodContent }

func (d *Content) Process(frame *entity.Frame) (bool, error) {
	if err := d.geom.check(frame); err != nil {
		return false, err
	}
	d.cur.fill(frame)
	defer func() { d.prev, d.cur = d.cur, d.prev }()

	if !d.primed {
		d.primed = true
		return false, nil
	}
	d.lastScore = d.score()
	return d.lastScore > d.cfg.Threshold, nil
}

// LastScore is the dissimilarity computed for the most recent frame.
func (d *Content) LastScore() float64 { return d.lastScore }

func (d *Content) score() float64 {
	w := d.cfg.HueWeight + d.cfg.SatWeight + d.cfg.ValWeight
	sum := d.cfg.HueWeight*histogramDistance(d.cur.h, d.prev.h) +
		d.cfg.SatWeight*histogramDistance(d.cur.s, d.prev.s) +
		d.cfg.ValWeight*histogramDistance(d.cur.v, d.prev.v)
	return sum / w
}
