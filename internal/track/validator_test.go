package track

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Kalpa111334/GPS-TUNNEL/internal/geo"
)

// testBase is a reference coordinate near Amsterdam used across tests.
var testBase = geo.Coordinate{Lat: 52.3676, Lng: 4.9041}

// coordAt offsets a coordinate roughly northMeters north of base.
func coordAt(base geo.Coordinate, northMeters float64) geo.Coordinate {
	return geo.Coordinate{Lat: base.Lat + northMeters/111320.0, Lng: base.Lng}
}

func reading(c geo.Coordinate, accuracy float64, ts uint64) RawReading {
	return RawReading{Coordinate: c, AccuracyMeters: accuracy, TimestampMillis: ts}
}

func TestValidateReading(t *testing.T) {
	t.Parallel()

	cfg := DefaultEngineConfig() // max accuracy 50m, max speed 75 m/s, consistency 6m

	t.Run("accuracy above gate is always rejected", func(t *testing.T) {
		t.Parallel()
		buf := NewBuffer(8)
		got := validateReading(reading(testBase, 200, 1000), buf, cfg)
		assert.Equal(t, RejectAccuracy, got)
	})

	t.Run("first reading with acceptable accuracy passes", func(t *testing.T) {
		t.Parallel()
		buf := NewBuffer(8)
		got := validateReading(reading(testBase, 10, 1000), buf, cfg)
		assert.Equal(t, RejectNone, got)
	})

	t.Run("implausible implied speed is rejected", func(t *testing.T) {
		t.Parallel()
		buf := NewBuffer(8)
		buf.Append(scored(testBase.Lat, testBase.Lng, 1000))

		// 200m in one second = 200 m/s, far beyond the 75 m/s gate.
		jump := coordAt(testBase, 200)
		got := validateReading(reading(jump, 10, 2000), buf, cfg)
		assert.Equal(t, RejectSpeed, got)
	})

	t.Run("plausible movement passes the speed gate", func(t *testing.T) {
		t.Parallel()
		buf := NewBuffer(8)
		buf.Append(scored(testBase.Lat, testBase.Lng, 1000))

		// 10m in one second.
		got := validateReading(reading(coordAt(testBase, 10), 10, 2000), buf, cfg)
		assert.Equal(t, RejectNone, got)
	})

	t.Run("deviation from recent mean is rejected", func(t *testing.T) {
		t.Parallel()
		buf := NewBuffer(8)
		buf.Append(scored(testBase.Lat, testBase.Lng, 1000))
		buf.Append(scored(testBase.Lat, testBase.Lng, 2000))
		buf.Append(scored(testBase.Lat, testBase.Lng, 3000))

		// 100m off the recent mean but slow enough to pass the speed gate.
		off := coordAt(testBase, 100)
		got := validateReading(reading(off, 10, 13000), buf, cfg)
		assert.Equal(t, RejectConsistency, got)
	})

	t.Run("consistency gate needs three buffered readings", func(t *testing.T) {
		t.Parallel()
		buf := NewBuffer(8)
		buf.Append(scored(testBase.Lat, testBase.Lng, 1000))
		buf.Append(scored(testBase.Lat, testBase.Lng, 2000))

		off := coordAt(testBase, 100)
		got := validateReading(reading(off, 10, 12000), buf, cfg)
		assert.Equal(t, RejectNone, got)
	})
}
