// Package nmea parses the subset of NMEA 0183 sentences a GPS receiver
// emits that this project consumes: GGA (fix data) and RMC (recommended
// minimum). Checksums are verified before any field is read.
package nmea

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Kalpa111334/GPS-TUNNEL/internal/geo"
)

// SentenceType identifies the supported sentence kinds. The talker prefix
// (GP, GN, GL...) is ignored; only the three-letter type matters.
type SentenceType string

const (
	TypeGGA     SentenceType = "GGA"
	TypeRMC     SentenceType = "RMC"
	TypeUnknown SentenceType = ""
)

const (
	knotsToMps = 0.514444

	// hdopAccuracyScaleMeters converts a dilution-of-precision figure into
	// an approximate accuracy radius. HDOP 1.0 from a consumer receiver is
	// roughly a 5m circle.
	hdopAccuracyScaleMeters = 5.0

	// fallbackAccuracyMeters is reported when a sentence carries no HDOP.
	fallbackAccuracyMeters = 25.0
)

// GGA is a parsed fix-data sentence.
type GGA struct {
	TimeOfDay  time.Duration // UTC time since midnight
	Coordinate geo.Coordinate
	FixQuality int
	Satellites int
	HDOP       float64 // 0 when the field was empty
	AltitudeM  float64
}

// EstimatedAccuracyMeters derives an accuracy radius from the HDOP figure.
func (g GGA) EstimatedAccuracyMeters() float64 {
	if g.HDOP <= 0 {
		return fallbackAccuracyMeters
	}
	return g.HDOP * hdopAccuracyScaleMeters
}

// RMC is a parsed recommended-minimum sentence. Timestamp combines the
// sentence's date and time-of-day fields in UTC.
type RMC struct {
	Timestamp     time.Time
	Valid         bool // status field A (active) vs V (void)
	Coordinate    geo.Coordinate
	SpeedMps      float64
	CourseDegrees float64
}

// Identify returns the sentence type without full parsing, or TypeUnknown
// for anything this package does not handle.
func Identify(line string) SentenceType {
	payload, ok := strip(line)
	if !ok {
		return TypeUnknown
	}
	head, _, _ := strings.Cut(payload, ",")
	if len(head) < 3 {
		return TypeUnknown
	}
	switch SentenceType(head[len(head)-3:]) {
	case TypeGGA:
		return TypeGGA
	case TypeRMC:
		return TypeRMC
	}
	return TypeUnknown
}

// Checksum computes the NMEA checksum of a payload (the text between '$'
// and '*').
func Checksum(payload string) byte {
	var sum byte
	for i := 0; i < len(payload); i++ {
		sum ^= payload[i]
	}
	return sum
}

// ParseGGA parses and checksum-verifies a GGA sentence.
func ParseGGA(line string) (GGA, error) {
	fields, err := fieldsOf(line, TypeGGA, 10)
	if err != nil {
		return GGA{}, err
	}

	tod, err := parseTimeOfDay(fields[1])
	if err != nil {
		return GGA{}, fmt.Errorf("gga time: %w", err)
	}
	coord, err := parseCoordinate(fields[2], fields[3], fields[4], fields[5])
	if err != nil {
		return GGA{}, fmt.Errorf("gga position: %w", err)
	}
	quality, err := strconv.Atoi(fields[6])
	if err != nil {
		return GGA{}, fmt.Errorf("gga fix quality %q: %w", fields[6], err)
	}

	g := GGA{TimeOfDay: tod, Coordinate: coord, FixQuality: quality}
	if fields[7] != "" {
		if g.Satellites, err = strconv.Atoi(fields[7]); err != nil {
			return GGA{}, fmt.Errorf("gga satellites %q: %w", fields[7], err)
		}
	}
	if fields[8] != "" {
		if g.HDOP, err = strconv.ParseFloat(fields[8], 64); err != nil {
			return GGA{}, fmt.Errorf("gga hdop %q: %w", fields[8], err)
		}
	}
	if fields[9] != "" {
		if g.AltitudeM, err = strconv.ParseFloat(fields[9], 64); err != nil {
			return GGA{}, fmt.Errorf("gga altitude %q: %w", fields[9], err)
		}
	}
	return g, nil
}

// ParseRMC parses and checksum-verifies an RMC sentence.
func ParseRMC(line string) (RMC, error) {
	fields, err := fieldsOf(line, TypeRMC, 10)
	if err != nil {
		return RMC{}, err
	}

	coord, err := parseCoordinate(fields[3], fields[4], fields[5], fields[6])
	if err != nil {
		return RMC{}, fmt.Errorf("rmc position: %w", err)
	}
	ts, err := parseDateTime(fields[9], fields[1])
	if err != nil {
		return RMC{}, fmt.Errorf("rmc timestamp: %w", err)
	}

	r := RMC{
		Timestamp:  ts,
		Valid:      fields[2] == "A",
		Coordinate: coord,
	}
	if fields[7] != "" {
		knots, err := strconv.ParseFloat(fields[7], 64)
		if err != nil {
			return RMC{}, fmt.Errorf("rmc speed %q: %w", fields[7], err)
		}
		r.SpeedMps = knots * knotsToMps
	}
	if fields[8] != "" {
		if r.CourseDegrees, err = strconv.ParseFloat(fields[8], 64); err != nil {
			return RMC{}, fmt.Errorf("rmc course %q: %w", fields[8], err)
		}
	}
	return r, nil
}

// strip removes the leading '$' and the '*hh' checksum suffix, verifying the
// checksum when present.
func strip(line string) (string, bool) {
	line = strings.TrimRight(line, "\r\n")
	if len(line) < 2 || line[0] != '$' {
		return "", false
	}
	payload := line[1:]
	if star := strings.LastIndexByte(payload, '*'); star >= 0 {
		want, err := strconv.ParseUint(payload[star+1:], 16, 8)
		if err != nil {
			return "", false
		}
		payload = payload[:star]
		if Checksum(payload) != byte(want) {
			return "", false
		}
	}
	return payload, true
}

func fieldsOf(line string, typ SentenceType, minFields int) ([]string, error) {
	payload, ok := strip(line)
	if !ok {
		return nil, fmt.Errorf("malformed sentence %q", line)
	}
	fields := strings.Split(payload, ",")
	if got := Identify(line); got != typ {
		return nil, fmt.Errorf("expected %s sentence, got %q", typ, fields[0])
	}
	if len(fields) < minFields {
		return nil, fmt.Errorf("%s sentence has %d fields, need %d", typ, len(fields), minFields)
	}
	return fields, nil
}

// parseCoordinate converts a DDMM.MMMM / DDDMM.MMMM pair with hemisphere
// indicators into decimal degrees.
func parseCoordinate(lat, latHemi, lng, lngHemi string) (geo.Coordinate, error) {
	latDeg, err := parseAngle(lat, latHemi, "S")
	if err != nil {
		return geo.Coordinate{}, err
	}
	lngDeg, err := parseAngle(lng, lngHemi, "W")
	if err != nil {
		return geo.Coordinate{}, err
	}
	return geo.Coordinate{Lat: latDeg, Lng: lngDeg}, nil
}

func parseAngle(value, hemi, negativeHemi string) (float64, error) {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("angle %q: %w", value, err)
	}
	deg := float64(int(v / 100))
	minutes := v - deg*100
	out := deg + minutes/60
	if hemi == negativeHemi {
		out = -out
	}
	return out, nil
}

// parseTimeOfDay parses hhmmss.sss into a duration since midnight UTC.
func parseTimeOfDay(value string) (time.Duration, error) {
	if len(value) < 6 {
		return 0, fmt.Errorf("time %q too short", value)
	}
	hours, err := strconv.Atoi(value[0:2])
	if err != nil {
		return 0, err
	}
	minutes, err := strconv.Atoi(value[2:4])
	if err != nil {
		return 0, err
	}
	seconds, err := strconv.ParseFloat(value[4:], 64)
	if err != nil {
		return 0, err
	}
	return time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds*float64(time.Second)), nil
}

// parseDateTime combines an RMC ddmmyy date with an hhmmss.sss time of day.
// Two-digit years map into 2000-2099.
func parseDateTime(date, timeOfDay string) (time.Time, error) {
	if len(date) != 6 {
		return time.Time{}, fmt.Errorf("date %q must be ddmmyy", date)
	}
	day, err := strconv.Atoi(date[0:2])
	if err != nil {
		return time.Time{}, err
	}
	month, err := strconv.Atoi(date[2:4])
	if err != nil {
		return time.Time{}, err
	}
	year, err := strconv.Atoi(date[4:6])
	if err != nil {
		return time.Time{}, err
	}
	tod, err := parseTimeOfDay(timeOfDay)
	if err != nil {
		return time.Time{}, err
	}
	midnight := time.Date(2000+year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return midnight.Add(tod), nil
}
