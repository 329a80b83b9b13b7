package detector

import (
	"fmt"

	"github.com/fiapx/fiapx-cutdetect-service/internal/domain/entity"
)

const (
	DefaultMinLenFrames     = 15
	DefaultHistogramBins    = 16
	DefaultContentThreshold = 0.30
	DefaultAdaptiveWindow   = 15
	DefaultAdaptiveK        = 3.0
	DefaultAdaptiveMinScore = 0.05
	DefaultPixelThreshold   = 30.0
)

// ContentConfig tunes the HSV histogram strategy. Scores live in [0,1].
type ContentConfig struct {
	Threshold float64
	HueWeight float64
	SatWeight float64
	ValWeight float64
	Bins      int
}

// AdaptiveConfig tunes the rolling-statistics luma strategy.
type AdaptiveConfig struct {
	Window   int
	K        float64
	MinScore float64
	Bins     int
}

// ThresholdConfig tunes the fixed pixel-delta strategy. PixelThreshold is on the 0-255 scale.
type ThresholdConfig struct {
	PixelThreshold float64
}

type Config struct {
	Method       entity.Method
	MinLenFrames int
	Content      ContentConfig
	Adaptive     AdaptiveConfig
	Threshold    ThresholdConfig
}

func DefaultConfig() Config {
	return Config{
		Method:       entity.MethodContent,
		MinLenFrames: DefaultMinLenFrames,
		Content: ContentConfig{
			Threshold: DefaultContentThreshold,
			HueWeight: 1,
			SatWeight: 1,
			ValWeight: 1,
			Bins:      DefaultHistogramBins,
		},
		Adaptive: AdaptiveConfig{
			Window:   DefaultAdaptiveWindow,
			K:        DefaultAdaptiveK,
			MinScore: DefaultAdaptiveMinScore,
			Bins:     DefaultHistogramBins,
		},
		Threshold: ThresholdConfig{
			PixelThreshold: DefaultPixelThreshold,
		},
	}
}

// Validate checks the method, min length and the parameters of the selected strategy.
// Method must already be one of the lower-case constants; use entity.ParseMethod on
// user input first. Every failure wraps entity.ErrInvalidConfiguration.
func (c Config) Validate() error {
	if c.MinLenFrames <= 0 {
		return invalid("min_len_frames must be >= 1, got %d", c.MinLenFrames)
	}

	switch c.Method {
	case entity.MethodContent:
		cc := c.Content
		// scores never exceed 1, so a threshold of 1 could never fire
		if cc.Threshold <= 0 || cc.Threshold >= 1 {
			return invalid("content_threshold must be in (0,1), got %g", cc.Threshold)
		}
		if cc.HueWeight < 0 || cc.SatWeight < 0 || cc.ValWeight < 0 {
			return invalid("content weights must be non-negative")
		}
		if cc.HueWeight+cc.SatWeight+cc.ValWeight <= 0 {
			return invalid("at least one content weight must be positive")
		}
		if err := validateBins(cc.Bins); err != nil {
			return err
		}
	case entity.MethodAdaptive:
		ac := c.Adaptive
		if ac.Window < 2 || ac.Window > 1000 {
			return invalid("adaptive_window must be in [2,1000], got %d", ac.Window)
		}
		if ac.K <= 0 || ac.K > 100 {
			return invalid("adaptive_k must be in (0,100], got %g", ac.K)
		}
		if ac.MinScore < 0 || ac.MinScore > 1 {
			return invalid("adaptive_min_score must be in [0,1], got %g", ac.MinScore)
		}
		if err := validateBins(ac.Bins); err != nil {
			return err
		}
	case entity.MethodThreshold:
		if t := c.Threshold.PixelThreshold; t <= 0 || t > 255 {
			return invalid("pixel_threshold must be in (0,255], got %g", t)
		}
	default:
		return invalid("unknown method %q", c.Method)
	}
	return nil
}

func validateBins(bins int) error {
	if bins < 2 || bins > 256 {
		return invalid("histogram bins must be in [2,256], got %d", bins)
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{entity.ErrInvalidConfiguration}, args...)...)
}
