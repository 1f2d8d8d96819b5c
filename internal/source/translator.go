// Package source feeds raw position readings into the tracking engine from
// external producers: a serial NMEA receiver or a UDP line stream used for
// replay and testing.
package source

import (
	"github.com/Kalpa111334/GPS-TUNNEL/internal/nmea"
	"github.com/Kalpa111334/GPS-TUNNEL/internal/timeutil"
	"github.com/Kalpa111334/GPS-TUNNEL/internal/track"
)

// Sink accepts translated readings and source errors. *track.Engine
// satisfies it.
type Sink interface {
	Ingest(r track.RawReading) track.IngestStatus
	IngestError(kind track.SourceErrorKind)
}

// Translator converts NMEA sentences into raw readings. GGA sentences carry
// the accuracy estimate (HDOP) but no date; RMC sentences carry the full
// timestamp and kinematics but no accuracy. The translator remembers the
// most recent GGA accuracy and applies it to subsequent fixes.
type Translator struct {
	clock          timeutil.Clock
	accuracyMeters float64
	hasAccuracy    bool
}

func NewTranslator(clock timeutil.Clock) *Translator {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Translator{clock: clock}
}

// Translate parses one line and returns the reading it produces, if any.
// Unsupported sentence types, malformed sentences and void fixes yield no
// reading without being an error; a live NMEA stream is full of both.
func (t *Translator) Translate(line string) (track.RawReading, bool) {
	switch nmea.Identify(line) {
	case nmea.TypeGGA:
		g, err := nmea.ParseGGA(line)
		if err != nil || g.FixQuality == 0 {
			return track.RawReading{}, false
		}
		t.accuracyMeters = g.EstimatedAccuracyMeters()
		t.hasAccuracy = true
		return track.RawReading{
			Coordinate:      g.Coordinate,
			AccuracyMeters:  t.accuracyMeters,
			TimestampMillis: uint64(t.clock.Now().UnixMilli()),
		}, true

	case nmea.TypeRMC:
		r, err := nmea.ParseRMC(line)
		if err != nil || !r.Valid {
			return track.RawReading{}, false
		}
		speed := r.SpeedMps
		heading := r.CourseDegrees
		return track.RawReading{
			Coordinate:      r.Coordinate,
			AccuracyMeters:  t.currentAccuracy(),
			TimestampMillis: uint64(r.Timestamp.UnixMilli()),
			SpeedMps:        &speed,
			HeadingDegrees:  &heading,
		}, true
	}
	return track.RawReading{}, false
}

// currentAccuracy returns the last GGA-derived accuracy, or a conservative
// default before the first GGA arrives.
func (t *Translator) currentAccuracy() float64 {
	if t.hasAccuracy {
		return t.accuracyMeters
	}
	return defaultAccuracyMeters
}

// defaultAccuracyMeters is assumed for RMC fixes seen before any GGA.
const defaultAccuracyMeters = 25.0
