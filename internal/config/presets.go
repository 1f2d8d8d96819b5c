package config

import (
	"fmt"
	"sort"
)

// Preset names. Each corresponds to one of the historical engine variants,
// expressed as a parameter set over the single unified engine.
const (
	PresetStable      = "stable"
	PresetUltraStable = "ultra-stable"
	PresetMobile      = "mobile"
)

// presets maps preset names to their tuning overrides. The stable preset is
// the all-defaults baseline.
var presets = map[string]func() *TuningConfig{
	// Walking-pace city tour: 50m acceptance gate, 2m lock radius.
	PresetStable: EmptyTuningConfig,

	// Stationary exhibit narration: only near-perfect fixes are admitted and
	// the display locks hard at 2m. Slow smoothing, slow update cadence.
	PresetUltraStable: func() *TuningConfig {
		return &TuningConfig{
			MinAccuracyMeters:       ptrFloat64(2),
			MaxAccuracyMeters:       ptrFloat64(5),
			MaxPlausibleSpeedMps:    ptrFloat64(50),
			LockRadiusMeters:        ptrFloat64(2),
			SmoothingFactor:         ptrFloat64(0.15),
			MinUpdateIntervalMillis: ptrInt64(1000),
		}
	},

	// Vehicle-based touring: coarse fixes are tolerated, the lock radius is
	// wide, the median stage is off so the display reacts faster.
	PresetMobile: func() *TuningConfig {
		return &TuningConfig{
			MinAccuracyMeters:       ptrFloat64(15),
			MaxAccuracyMeters:       ptrFloat64(100),
			MaxPlausibleSpeedMps:    ptrFloat64(100),
			LockRadiusMeters:        ptrFloat64(15),
			LockThreshold:           ptrInt(3),
			SmoothingFactor:         ptrFloat64(0.35),
			EnableMedianFilter:      ptrBool(false),
			MinUpdateIntervalMillis: ptrInt64(300),
		}
	},
}

// Preset returns the tuning config for a named preset.
func Preset(name string) (*TuningConfig, error) {
	f, ok := presets[name]
	if !ok {
		return nil, fmt.Errorf("unknown preset %q (have: %v)", name, PresetNames())
	}
	cfg := f()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("preset %q: %w", name, err)
	}
	return cfg, nil
}

// PresetNames returns the sorted list of known preset names.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
