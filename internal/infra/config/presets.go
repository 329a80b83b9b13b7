package config

import (
	"fmt"
	"os"

	"github.com/fiapx/fiapx-cutdetect-service/internal/detector"
	"github.com/fiapx/fiapx-cutdetect-service/internal/domain/entity"
	"gopkg.in/yaml.v3"
)

// Presets are named detector parameter sets loaded from YAML:
//
//	presets:
//	  sports:
//	    method: adaptive
//	    min_len_frames: 12
//	    adaptive:
//	      window: 20
//	      k: 2.5
//
// Fields left out of a preset keep the value they are applied over; an explicit zero is
// applied like any other value. Method names are matched case-insensitively at load time.
type Presets map[string]Preset

type Preset struct {
	Method       entity.Method   `yaml:"method"`
	MinLenFrames *int            `yaml:"min_len_frames"`
	Content      ContentPreset   `yaml:"content"`
	Adaptive     AdaptivePreset  `yaml:"adaptive"`
	Threshold    ThresholdPreset `yaml:"threshold"`
}

type ContentPreset struct {
	Threshold *float64 `yaml:"threshold"`
	HueWeight *float64 `yaml:"hue_weight"`
	SatWeight *float64 `yaml:"sat_weight"`
	ValWeight *float64 `yaml:"val_weight"`
	Bins      *int     `yaml:"bins"`
}

type AdaptivePreset struct {
	Window   *int     `yaml:"window"`
	K        *float64 `yaml:"k"`
	MinScore *float64 `yaml:"min_score"`
	Bins     *int     `yaml:"bins"`
}

type ThresholdPreset struct {
	PixelThreshold *float64 `yaml:"pixel_threshold"`
}

type presetsFile struct {
	Presets Presets `yaml:"presets"`
}

func LoadPresets(path string) (Presets, error) {
	if path == "" {
		return Presets{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read presets: %w", err)
	}
	return ParsePresets(data)
}

func ParsePresets(data []byte) (Presets, error) {
	var f presetsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse presets: %w", err)
	}
	if f.Presets == nil {
		f.Presets = Presets{}
	}
	for name, p := range f.Presets {
		if p.Method == "" {
			continue
		}
		m, err := entity.ParseMethod(string(p.Method))
		if err != nil {
			return nil, fmt.Errorf("preset %q: %w", name, err)
		}
		p.Method = m
		f.Presets[name] = p
	}
	return f.Presets, nil
}

// Apply overlays the named preset on base. An empty name returns base unchanged.
func (p Presets) Apply(name string, base detector.Config) (detector.Config, error) {
	if name == "" {
		return base, nil
	}
	preset, ok := p[name]
	if !ok {
		return base, fmt.Errorf("%w: unknown preset %q", entity.ErrInvalidConfiguration, name)
	}
	return preset.Overlay(base), nil
}

// Overlay copies every field set in the preset onto base.
func (p Preset) Overlay(base detector.Config) detector.Config {
	out := base
	if p.Method != "" {
		out.Method = p.Method
	}
	set(&out.MinLenFrames, p.MinLenFrames)

	set(&out.Content.Threshold, p.Content.Threshold)
	set(&out.Content.HueWeight, p.Content.HueWeight)
	set(&out.Content.SatWeight, p.Content.SatWeight)
	set(&out.Content.ValWeight, p.Content.ValWeight)
	set(&out.Content.Bins, p.Content.Bins)

	set(&out.Adaptive.Window, p.Adaptive.Window)
	set(&out.Adaptive.K, p.Adaptive.K)
	set(&out.Adaptive.MinScore, p.Adaptive.MinScore)
	set(&out.Adaptive.Bins, p.Adaptive.Bins)

	set(&out.Threshold.PixelThreshold, p.Threshold.PixelThreshold)
	return out
}

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}
