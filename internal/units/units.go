// Package units converts and formats speed and distance values for display.
// The engine itself works exclusively in metres and metres per second.
package units

import "fmt"

// Supported display unit systems for speed values.
const (
	SpeedMps  = "mps"
	SpeedKmph = "kmph"
	SpeedMph  = "mph"
	SpeedKnot = "knots"
)

// ConvertSpeed converts a speed in m/s to the target display units.
// Unknown units fall back to m/s.
func ConvertSpeed(speedMps float64, targetUnits string) float64 {
	switch targetUnits {
	case SpeedMph:
		return speedMps * 2.23694
	case SpeedKmph, "kph":
		return speedMps * 3.6
	case SpeedKnot:
		return speedMps * 1.94384
	case SpeedMps:
		return speedMps
	default:
		return speedMps
	}
}

// FormatDistance renders a distance in metres as a human-readable string,
// switching to kilometres at 1000 m.
func FormatDistance(meters float64) string {
	if meters < 1000 {
		return fmt.Sprintf("%.0f m", meters)
	}
	return fmt.Sprintf("%.2f km", meters/1000)
}

// FormatAccuracy renders an accuracy radius for display, e.g. "±12 m".
func FormatAccuracy(meters float64) string {
	return fmt.Sprintf("±%.0f m", meters)
}
