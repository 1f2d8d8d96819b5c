package track

import "github.com/Kalpa111334/GPS-TUNNEL/internal/geo"

// expSmoother is the final stabilization stage: an exponential moving
// average over the filtered coordinate. It trades a little extra lag for
// visibly eliminating residual jitter on the display.
type expSmoother struct {
	lat, lng    float64
	initialized bool
}

// smooth blends the new coordinate into the running average with weight
// alpha (higher alpha = more responsive, lower = smoother). The first
// coordinate passes through unchanged.
func (s *expSmoother) smooth(c geo.Coordinate, alpha float64) geo.Coordinate {
	if !s.initialized {
		s.lat = c.Lat
		s.lng = c.Lng
		s.initialized = true
		return c
	}
	s.lat = s.lat*(1-alpha) + c.Lat*alpha
	s.lng = s.lng*(1-alpha) + c.Lng*alpha
	return geo.Coordinate{Lat: s.lat, Lng: s.lng}
}

// reset clears the running average.
func (s *expSmoother) reset() {
	*s = expSmoother{}
}
