package usecase

import (
	"testing"

	"github.com/fiapx/fiapx-cutdetect-service/internal/detector"
	"github.com/fiapx/fiapx-cutdetect-service/internal/domain/entity"
	"github.com/fiapx/fiapx-cutdetect-service/internal/infra/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDetectionConfig(t *testing.T) {
	presets, err := config.ParsePresets([]byte(`
presets:
  sports:
    method: adaptive
    min_len_frames: 12
    adaptive:
      window: 20
  loud:
    method: Adaptive
    adaptive:
      k: 500
`))
	require.NoError(t, err)
	defaults := detector.DefaultConfig()

	t.Run("defaults", func(t *testing.T) {
		cfg, err := BuildDetectionConfig(defaults, presets, entity.CutDetectionMessage{})
		require.NoError(t, err)
		assert.Equal(t, defaults, cfg)
	})

	t.Run("preset then overrides", func(t *testing.T) {
		k := 2.0
		cfg, err := BuildDetectionConfig(defaults, presets, entity.CutDetectionMessage{
			Preset:    "sports",
			AdaptiveK: &k,
		})
		require.NoError(t, err)
		assert.Equal(t, entity.MethodAdaptive, cfg.Method)
		assert.Equal(t, 12, cfg.MinLenFrames)
		assert.Equal(t, 20, cfg.Adaptive.Window)
		assert.Equal(t, 2.0, cfg.Adaptive.K)
		assert.Equal(t, detector.DefaultAdaptiveMinScore, cfg.Adaptive.MinScore)
	})

	t.Run("message method wins over preset", func(t *testing.T) {
		px := 45.0
		cfg, err := BuildDetectionConfig(defaults, presets, entity.CutDetectionMessage{
			Preset:         "sports",
			Method:         "THRESHOLD",
			MinLenFrames:   intPtr(5),
			PixelThreshold: &px,
		})
		require.NoError(t, err)
		assert.Equal(t, entity.MethodThreshold, cfg.Method)
		assert.Equal(t, 5, cfg.MinLenFrames)
		assert.Equal(t, 45.0, cfg.Threshold.PixelThreshold)
	})

	t.Run("invalid override", func(t *testing.T) {
		bad := 1.5
		_, err := BuildDetectionConfig(defaults, presets, entity.CutDetectionMessage{ContentThreshold: &bad})
		assert.ErrorIs(t, err, entity.ErrInvalidConfiguration)
	})

	t.Run("mixed case preset method is validated", func(t *testing.T) {
		cfg, err := BuildDetectionConfig(defaults, presets, entity.CutDetectionMessage{Preset: "loud"})
		assert.ErrorIs(t, err, entity.ErrInvalidConfiguration)
		assert.Equal(t, entity.MethodAdaptive, cfg.Method)
	})

	t.Run("explicit zero min len", func(t *testing.T) {
		_, err := BuildDetectionConfig(defaults, presets, entity.CutDetectionMessage{MinLenFrames: intPtr(0)})
		assert.ErrorIs(t, err, entity.ErrInvalidConfiguration)
	})
}
