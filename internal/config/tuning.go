// Package config loads and validates stabilization tuning parameters.
//
// The JSON schema uses pointer fields so partial configs are safe: fields
// omitted from the file keep their defaults, supplied by the Get* accessors.
// The same schema backs the named presets (stable, ultra-stable, mobile)
// that replace the historical parallel engine implementations.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
)

// TuningConfig represents the root configuration for the stabilization
// engine. All fields are optional; nil means "use the default".
type TuningConfig struct {
	// Validation gates
	MinAccuracyMeters    *float64 `json:"min_accuracy_m,omitempty" validate:"omitempty,gt=0"`
	MaxAccuracyMeters    *float64 `json:"max_accuracy_m,omitempty" validate:"omitempty,gt=0"`
	MaxPlausibleSpeedMps *float64 `json:"max_plausible_speed_mps,omitempty" validate:"omitempty,gt=0"`
	// ConsistencyRadiusMeters gates deviation from the recent mean.
	// Defaults to 3x the lock radius when unset.
	ConsistencyRadiusMeters *float64 `json:"consistency_radius_m,omitempty" validate:"omitempty,gt=0"`

	// Scoring
	ConfidenceFloor *float64 `json:"confidence_floor,omitempty" validate:"omitempty,gte=0,lte=1"`

	// History window
	BufferCapacity *int `json:"buffer_capacity,omitempty" validate:"omitempty,gt=0"`

	// Filter pipeline
	SmoothingFactor    *float64 `json:"smoothing_factor,omitempty" validate:"omitempty,gt=0,lte=1"`
	EnableMedianFilter *bool    `json:"enable_median_filter,omitempty"`
	EnableKalmanFilter *bool    `json:"enable_kalman_filter,omitempty"`
	EnableSmoothing    *bool    `json:"enable_smoothing,omitempty"`

	// Position lock
	EnablePositionLock *bool    `json:"enable_position_lock,omitempty"`
	LockRadiusMeters   *float64 `json:"lock_radius_m,omitempty" validate:"omitempty,gt=0"`
	LockThreshold      *int     `json:"lock_threshold,omitempty" validate:"omitempty,gt=0"`
	LockDurationMillis *int64   `json:"lock_duration_ms,omitempty" validate:"omitempty,gt=0"`

	// Ingest throttle
	MinUpdateIntervalMillis *int64 `json:"min_update_interval_ms,omitempty" validate:"omitempty,gte=0"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrInt(v int) *int             { return &v }
func ptrInt64(v int64) *int64       { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
// Every accessor then falls back to the stable-profile defaults.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file. Fields omitted from
// the file retain their default values, so partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Merge overlays the non-nil fields of other onto c. Used to apply a tuning
// file on top of a preset.
func (c *TuningConfig) Merge(other *TuningConfig) {
	if other == nil {
		return
	}
	if other.MinAccuracyMeters != nil {
		c.MinAccuracyMeters = other.MinAccuracyMeters
	}
	if other.MaxAccuracyMeters != nil {
		c.MaxAccuracyMeters = other.MaxAccuracyMeters
	}
	if other.MaxPlausibleSpeedMps != nil {
		c.MaxPlausibleSpeedMps = other.MaxPlausibleSpeedMps
	}
	if other.ConsistencyRadiusMeters != nil {
		c.ConsistencyRadiusMeters = other.ConsistencyRadiusMeters
	}
	if other.ConfidenceFloor != nil {
		c.ConfidenceFloor = other.ConfidenceFloor
	}
	if other.BufferCapacity != nil {
		c.BufferCapacity = other.BufferCapacity
	}
	if other.SmoothingFactor != nil {
		c.SmoothingFactor = other.SmoothingFactor
	}
	if other.EnableMedianFilter != nil {
		c.EnableMedianFilter = other.EnableMedianFilter
	}
	if other.EnableKalmanFilter != nil {
		c.EnableKalmanFilter = other.EnableKalmanFilter
	}
	if other.EnableSmoothing != nil {
		c.EnableSmoothing = other.EnableSmoothing
	}
	if other.EnablePositionLock != nil {
		c.EnablePositionLock = other.EnablePositionLock
	}
	if other.LockRadiusMeters != nil {
		c.LockRadiusMeters = other.LockRadiusMeters
	}
	if other.LockThreshold != nil {
		c.LockThreshold = other.LockThreshold
	}
	if other.LockDurationMillis != nil {
		c.LockDurationMillis = other.LockDurationMillis
	}
	if other.MinUpdateIntervalMillis != nil {
		c.MinUpdateIntervalMillis = other.MinUpdateIntervalMillis
	}
}

// Validate checks that the configuration values are valid. Range checks are
// declared as struct tags; cross-field rules are checked explicitly.
func (c *TuningConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("tuning config out of range: %w", err)
	}
	if c.MinAccuracyMeters != nil || c.MaxAccuracyMeters != nil {
		if c.GetMinAccuracyMeters() >= c.GetMaxAccuracyMeters() {
			return fmt.Errorf("min_accuracy_m (%g) must be below max_accuracy_m (%g)",
				c.GetMinAccuracyMeters(), c.GetMaxAccuracyMeters())
		}
	}
	return nil
}

// GetMinAccuracyMeters returns the accuracy radius considered "good" for
// lock counting, or the default.
func (c *TuningConfig) GetMinAccuracyMeters() float64 {
	if c.MinAccuracyMeters == nil {
		return 10.0
	}
	return *c.MinAccuracyMeters
}

// GetMaxAccuracyMeters returns the acceptance gate for reading accuracy,
// or the default.
func (c *TuningConfig) GetMaxAccuracyMeters() float64 {
	if c.MaxAccuracyMeters == nil {
		return 50.0
	}
	return *c.MaxAccuracyMeters
}

// GetMaxPlausibleSpeedMps returns the implied-speed rejection gate, or the default.
func (c *TuningConfig) GetMaxPlausibleSpeedMps() float64 {
	if c.MaxPlausibleSpeedMps == nil {
		return 75.0
	}
	return *c.MaxPlausibleSpeedMps
}

// GetConsistencyRadiusMeters returns the allowed deviation from the recent
// mean. Defaults to 3x the lock radius.
func (c *TuningConfig) GetConsistencyRadiusMeters() float64 {
	if c.ConsistencyRadiusMeters == nil {
		return 3 * c.GetLockRadiusMeters()
	}
	return *c.ConsistencyRadiusMeters
}

// GetConfidenceFloor returns the confidence below which a scored reading is
// discarded, or the default.
func (c *TuningConfig) GetConfidenceFloor() float64 {
	if c.ConfidenceFloor == nil {
		return 0.3
	}
	return *c.ConfidenceFloor
}

// GetBufferCapacity returns the reading history window size, or the default.
func (c *TuningConfig) GetBufferCapacity() int {
	if c.BufferCapacity == nil {
		return 16
	}
	return *c.BufferCapacity
}

// GetSmoothingFactor returns the exponential smoothing alpha, or the default.
func (c *TuningConfig) GetSmoothingFactor() float64 {
	if c.SmoothingFactor == nil {
		return 0.25
	}
	return *c.SmoothingFactor
}

// GetEnableMedianFilter returns whether the median stage is enabled.
func (c *TuningConfig) GetEnableMedianFilter() bool {
	if c.EnableMedianFilter == nil {
		return true
	}
	return *c.EnableMedianFilter
}

// GetEnableKalmanFilter returns whether the Kalman stage is enabled.
func (c *TuningConfig) GetEnableKalmanFilter() bool {
	if c.EnableKalmanFilter == nil {
		return true
	}
	return *c.EnableKalmanFilter
}

// GetEnableSmoothing returns whether the exponential smoothing stage is enabled.
func (c *TuningConfig) GetEnableSmoothing() bool {
	if c.EnableSmoothing == nil {
		return true
	}
	return *c.EnableSmoothing
}

// GetEnablePositionLock returns whether the lock state machine is enabled.
func (c *TuningConfig) GetEnablePositionLock() bool {
	if c.EnablePositionLock == nil {
		return true
	}
	return *c.EnablePositionLock
}

// GetLockRadiusMeters returns the lock radius, or the default.
func (c *TuningConfig) GetLockRadiusMeters() float64 {
	if c.LockRadiusMeters == nil {
		return 2.0
	}
	return *c.LockRadiusMeters
}

// GetLockThreshold returns the consecutive-good-readings threshold, or the default.
func (c *TuningConfig) GetLockThreshold() int {
	if c.LockThreshold == nil {
		return 5
	}
	return *c.LockThreshold
}

// GetLockDuration returns the lock expiry duration, or the default.
func (c *TuningConfig) GetLockDuration() time.Duration {
	if c.LockDurationMillis == nil {
		return 5000 * time.Millisecond
	}
	return time.Duration(*c.LockDurationMillis) * time.Millisecond
}

// GetMinUpdateInterval returns the ingest throttle interval, or the default.
func (c *TuningConfig) GetMinUpdateInterval() time.Duration {
	if c.MinUpdateIntervalMillis == nil {
		return 500 * time.Millisecond
	}
	return time.Duration(*c.MinUpdateIntervalMillis) * time.Millisecond
}
