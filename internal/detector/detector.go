// Package detector turns a stream of decoded frames into scene boundary decisions.
//
// A Detector carries the causal history of exactly one scan (the previous frame's
// representation, the adaptive rolling window) and must not be shared between scans.
package detector

import (
	"fmt"

	"github.com/fiapx/fiapx-cutdetect-service/internal/domain/entity"
)

type Detector interface {
	Method() entity.Method
	// Process consumes the next frame and reports whether it starts a new scene.
	// Frames must arrive in strictly increasing index order.
	Process(frame *entity.Frame) (bool, error)
}

// New validates cfg and builds the strategy it selects.
func New(cfg Config) (Detector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Method {
	case entity.MethodContent:
		return NewContent(cfg.Content), nil
	case entity.MethodAdaptive:
		return NewAdaptive(cfg.Adaptive), nil
	case entity.MethodThreshold:
		return NewThreshold(cfg.Threshold), nil
	default:
		return nil, fmt.Errorf("%w: unknown method %q", entity.ErrInvalidConfiguration, cfg.Method)
	}
}
