package track

import "github.com/Kalpa111334/GPS-TUNNEL/internal/geo"

// Confidence scoring constants. Each factor is clamped to [minFactor, 1] so
// a single bad dimension cannot zero out a reading entirely.
const (
	minFactor = 0.1

	// acceptableDeviationMeters is the deviation from the recent mean at
	// which the consistency factor bottoms out.
	acceptableDeviationMeters = 20.0

	// rapidFireIntervalMillis marks readings arriving faster than the
	// sensor settles; such readings are down-weighted.
	rapidFireIntervalMillis = 1000
	rapidFireFactor         = 0.7
)

// scoreReading computes a 0..1 trust score for a reading from three
// multiplicative factors: reported accuracy, consistency with the recent
// mean, and arrival frequency.
func scoreReading(r RawReading, buf *Buffer, cfg EngineConfig) float64 {
	accuracyFactor := 1 - (r.AccuracyMeters-cfg.MinAccuracyMeters)/(cfg.MaxAccuracyMeters-cfg.MinAccuracyMeters)
	accuracyFactor = clampFactor(accuracyFactor)

	consistencyFactor := 1.0
	if mean, ok := buf.MeanOfLastN(consistencySampleSize); ok {
		deviation := geo.DistanceMeters(r.Coordinate, mean)
		consistencyFactor = clampFactor(1 - deviation/acceptableDeviationMeters)
	}

	frequencyFactor := 1.0
	if last, ok := buf.Last(); ok {
		if r.TimestampMillis > last.TimestampMillis &&
			r.TimestampMillis-last.TimestampMillis < rapidFireIntervalMillis {
			frequencyFactor = rapidFireFactor
		}
	}

	return clampFactor(accuracyFactor * consistencyFactor * frequencyFactor)
}

func clampFactor(v float64) float64 {
	if v < minFactor {
		return minFactor
	}
	if v > 1 {
		return 1
	}
	return v
}
