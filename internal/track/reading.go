package track

import (
	"time"

	"github.com/Kalpa111334/GPS-TUNNEL/internal/geo"
)

// RawReading is one timestamped position sample from the positioning source.
// Immutable once created.
type RawReading struct {
	Coordinate      geo.Coordinate `json:"coordinate"`
	AccuracyMeters  float64        `json:"accuracy_m"`
	TimestampMillis uint64         `json:"timestamp_ms"`

	// Optional source-supplied kinematics. Nil when the source does not
	// report them (e.g. a GGA-only NMEA feed).
	SpeedMps       *float64 `json:"speed_mps,omitempty"`
	HeadingDegrees *float64 `json:"heading_deg,omitempty"`
}

// ScoredReading is a RawReading that passed validation, annotated with its
// confidence score. Never mutated after creation.
type ScoredReading struct {
	RawReading
	Confidence float64 `json:"confidence"`
	Validated  bool    `json:"validated"`
}

// SignalQuality is a coarse classification of current fix quality for
// display purposes.
type SignalQuality string

const (
	SignalExcellent SignalQuality = "excellent"
	SignalGood      SignalQuality = "good"
	SignalFair      SignalQuality = "fair"
	SignalPoor      SignalQuality = "poor"
)

// Accuracy bounds for the signal quality buckets, chosen to bracket the
// baseline 50m acceptance gate.
const (
	excellentAccuracyMeters = 10.0
	goodAccuracyMeters      = 25.0
	fairAccuracyMeters      = 50.0
)

// QualityForAccuracy classifies an accuracy radius in meters.
func QualityForAccuracy(accuracyMeters float64) SignalQuality {
	switch {
	case accuracyMeters <= excellentAccuracyMeters:
		return SignalExcellent
	case accuracyMeters <= goodAccuracyMeters:
		return SignalGood
	case accuracyMeters <= fairAccuracyMeters:
		return SignalFair
	default:
		return SignalPoor
	}
}

// SourceErrorKind classifies errors surfaced by the positioning source when
// no reading is available.
type SourceErrorKind string

const (
	SourcePermissionDenied SourceErrorKind = "permission_denied"
	SourceUnavailable      SourceErrorKind = "unavailable"
	SourceTimeout          SourceErrorKind = "timeout"
)

// Output is the engine's published state, recomputed on every accepted
// reading. The last computed value persists between readings.
type Output struct {
	StablePosition geo.Coordinate `json:"stable_position"`
	RawAccuracy    float64        `json:"raw_accuracy_m"`
	Confidence     float64        `json:"confidence"`
	SignalQuality  SignalQuality  `json:"signal_quality"`
	Locked         bool           `json:"is_locked"`
	Stable         bool           `json:"is_stable"`

	BufferSize              int `json:"buffer_size"`
	ConsecutiveGoodReadings int `json:"consecutive_good_readings"`

	// Kinematics estimated by the Kalman stage (zero until initialized).
	SpeedMps       float64 `json:"speed_mps"`
	HeadingDegrees float64 `json:"heading_deg"`

	// Distance travelled across the session, accumulated over successive
	// stabilized positions.
	DistanceMeters float64 `json:"distance_m"`

	TimestampMillis uint64 `json:"timestamp_ms"`

	// Source error state, if the positioning source reported one since the
	// last accepted reading. RetryAdvised tells the caller a retry is worth
	// attempting (timeouts only); the retry loop lives in the source.
	SourceError  SourceErrorKind `json:"source_error,omitempty"`
	RetryAdvised bool            `json:"retry_advised,omitempty"`

	// lockExpiresAt lets readers observe lock expiry between ingests
	// without mutating engine state.
	lockExpiresAt time.Time
}
