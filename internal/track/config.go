package track

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/Kalpa111334/GPS-TUNNEL/internal/config"
)

// EngineConfig holds the resolved parameters for one engine instance.
// Construct it via EngineConfigFromTuning (or DefaultEngineConfig) so every
// field carries a sane value; New validates it and fails fast on nonsense.
type EngineConfig struct {
	// Validation gates
	MinAccuracyMeters       float64 `validate:"gt=0"`
	MaxAccuracyMeters       float64 `validate:"gt=0"`
	MaxPlausibleSpeedMps    float64 `validate:"gt=0"`
	ConsistencyRadiusMeters float64 `validate:"gt=0"`

	// Scoring
	ConfidenceFloor float64 `validate:"gte=0,lte=1"`

	// History window
	BufferCapacity int `validate:"gt=0"`

	// Filter pipeline
	SmoothingFactor    float64 `validate:"gt=0,lte=1"`
	EnableMedianFilter bool
	EnableKalmanFilter bool
	EnableSmoothing    bool

	// Position lock
	EnablePositionLock bool
	LockRadiusMeters   float64       `validate:"gt=0"`
	LockThreshold      int           `validate:"gt=0"`
	LockDuration       time.Duration `validate:"gt=0"`

	// Ingest throttle
	MinUpdateInterval time.Duration `validate:"gte=0"`
}

var validateConfig = validator.New(validator.WithRequiredStructEnabled())

// DefaultEngineConfig returns the stable-preset configuration.
func DefaultEngineConfig() EngineConfig {
	return EngineConfigFromTuning(config.EmptyTuningConfig())
}

// EngineConfigFromTuning resolves a loaded TuningConfig into an EngineConfig.
// Use this in production code where the TuningConfig is already loaded.
func EngineConfigFromTuning(cfg *config.TuningConfig) EngineConfig {
	return EngineConfig{
		MinAccuracyMeters:       cfg.GetMinAccuracyMeters(),
		MaxAccuracyMeters:       cfg.GetMaxAccuracyMeters(),
		MaxPlausibleSpeedMps:    cfg.GetMaxPlausibleSpeedMps(),
		ConsistencyRadiusMeters: cfg.GetConsistencyRadiusMeters(),
		ConfidenceFloor:         cfg.GetConfidenceFloor(),
		BufferCapacity:          cfg.GetBufferCapacity(),
		SmoothingFactor:         cfg.GetSmoothingFactor(),
		EnableMedianFilter:      cfg.GetEnableMedianFilter(),
		EnableKalmanFilter:      cfg.GetEnableKalmanFilter(),
		EnableSmoothing:         cfg.GetEnableSmoothing(),
		EnablePositionLock:      cfg.GetEnablePositionLock(),
		LockRadiusMeters:        cfg.GetLockRadiusMeters(),
		LockThreshold:           cfg.GetLockThreshold(),
		LockDuration:            cfg.GetLockDuration(),
		MinUpdateInterval:       cfg.GetMinUpdateInterval(),
	}
}

// Validate checks the configuration, returning a fatal error on invalid
// parameters. Field ranges are declared as struct tags; cross-field rules
// are checked explicitly.
func (c EngineConfig) Validate() error {
	if err := validateConfig.Struct(c); err != nil {
		return fmt.Errorf("engine config out of range: %w", err)
	}
	if c.MinAccuracyMeters >= c.MaxAccuracyMeters {
		return fmt.Errorf("MinAccuracyMeters (%g) must be below MaxAccuracyMeters (%g)",
			c.MinAccuracyMeters, c.MaxAccuracyMeters)
	}
	return nil
}
