package track

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/Kalpa111334/GPS-TUNNEL/internal/geo"
)

// medianWindowSize is the number of recent readings (including the current
// one) considered by the median stage.
const medianWindowSize = 5

// medianMinReadings is the minimum buffered readings before the median stage
// activates; below it the raw coordinate passes through unchanged.
const medianMinReadings = 3

// medianCoordinate damps single-reading spikes by taking the per-axis median
// over the most recent readings. This is not a true 2D median: latitude and
// longitude are filtered independently, which is what resists single-axis
// spikes.
func medianCoordinate(raw geo.Coordinate, buf *Buffer) geo.Coordinate {
	if buf.Len() < medianMinReadings {
		return raw
	}

	recent := buf.LastN(medianWindowSize)
	lats := make([]float64, len(recent))
	lngs := make([]float64, len(recent))
	for i, r := range recent {
		lats[i] = r.Coordinate.Lat
		lngs[i] = r.Coordinate.Lng
	}
	sort.Float64s(lats)
	sort.Float64s(lngs)

	return geo.Coordinate{
		Lat: stat.Quantile(0.5, stat.Empirical, lats, nil),
		Lng: stat.Quantile(0.5, stat.Empirical, lngs, nil),
	}
}
