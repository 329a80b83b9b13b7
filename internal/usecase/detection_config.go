package usecase

import (
	"github.com/fiapx/fiapx-cutdetect-service/internal/detector"
	"github.com/fiapx/fiapx-cutdetect-service/internal/domain/entity"
	"github.com/fiapx/fiapx-cutdetect-service/internal/infra/config"
)

// BuildDetectionConfig layers the job's preset and explicit overrides on the service
// defaults, then validates the parameters of the resulting method.
func BuildDetectionConfig(defaults detector.Config, presets config.Presets, msg entity.CutDetectionMessage) (detector.Config, error) {
	cfg, err := presets.Apply(msg.Preset, defaults)
	if err != nil {
		return cfg, err
	}

	if msg.Method != "" {
		m, err := entity.ParseMethod(msg.Method)
		if err != nil {
			return cfg, err
		}
		cfg.Method = m
	}
	if msg.MinLenFrames != nil {
		cfg.MinLenFrames = *msg.MinLenFrames
	}
	if msg.ContentThreshold != nil {
		cfg.Content.Threshold = *msg.ContentThreshold
	}
	if msg.PixelThreshold != nil {
		cfg.Threshold.PixelThreshold = *msg.PixelThreshold
	}
	if msg.AdaptiveWindow != nil {
		cfg.Adaptive.Window = *msg.AdaptiveWindow
	}
	if msg.AdaptiveK != nil {
		cfg.Adaptive.K = *msg.AdaptiveK
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
