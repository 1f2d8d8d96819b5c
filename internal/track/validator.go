package track

import "github.com/Kalpa111334/GPS-TUNNEL/internal/geo"

// RejectReason identifies which rule discarded a reading. Rejections are
// routine filtering, not errors; they are counted for diagnostics only.
type RejectReason string

const (
	RejectNone        RejectReason = ""
	RejectAccuracy    RejectReason = "accuracy"
	RejectSpeed       RejectReason = "implied_speed"
	RejectConsistency RejectReason = "consistency"
	RejectConfidence  RejectReason = "confidence"
	RejectThrottled   RejectReason = "throttled"
)

// consistencySampleSize is the number of recent validated readings averaged
// for the consistency gate.
const consistencySampleSize = 3

// validateReading applies the rejection rules in order and returns the first
// failing rule, or RejectNone when the reading is acceptable.
//
// Rules: accuracy gate, implied-speed gate against the last validated
// reading, then deviation from the mean of the last three validated readings.
func validateReading(r RawReading, buf *Buffer, cfg EngineConfig) RejectReason {
	if r.AccuracyMeters > cfg.MaxAccuracyMeters {
		return RejectAccuracy
	}

	if last, ok := buf.Last(); ok {
		dtSeconds := float64(int64(r.TimestampMillis)-int64(last.TimestampMillis)) / 1000
		if dtSeconds > 0 {
			impliedSpeed := geo.DistanceMeters(r.Coordinate, last.Coordinate) / dtSeconds
			if impliedSpeed > cfg.MaxPlausibleSpeedMps {
				return RejectSpeed
			}
		}
	}

	if buf.Len() >= consistencySampleSize {
		mean, _ := buf.MeanOfLastN(consistencySampleSize)
		if geo.DistanceMeters(r.Coordinate, mean) > cfg.ConsistencyRadiusMeters {
			return RejectConsistency
		}
	}

	return RejectNone
}
