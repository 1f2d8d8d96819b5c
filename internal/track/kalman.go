package track

import (
	"math"

	"github.com/Kalpa111334/GPS-TUNNEL/internal/geo"
)

// Numerical constants for the Kalman stage. The covariance is a 4x4
// row-major array kept on the stack; no per-reading heap allocation.
const (
	// initialCovariance seeds the diagonal on the first reading.
	initialCovariance = 1000.0

	// minMeasurementNoise floors the adaptive measurement noise.
	minMeasurementNoise = 0.1
	// accuracyNoiseDivisor maps reported accuracy (meters) to measurement
	// noise: R = max(minMeasurementNoise, accuracy/accuracyNoiseDivisor).
	accuracyNoiseDivisor = 10.0

	// Process noise per second, in degrees^2. Position readings are in
	// decimal degrees, so these are deliberately tiny.
	processNoisePosition = 1e-9
	processNoiseVelocity = 1e-9

	// minDeterminant guards the 2x2 innovation covariance inversion.
	minDeterminant = 1e-18

	// Step time clamps: throttle gaps must not balloon the covariance and
	// out-of-order timestamps must not reverse the prediction.
	minStepSeconds = 1e-3
	maxStepSeconds = 5.0
)

// metersPerDegreeLat converts small latitude deltas to meters.
const metersPerDegreeLat = 111320.0

// kalmanFilter estimates position and velocity from noisy coordinate
// observations using a constant-velocity model. State vector is
// [lat, lng, velLat, velLng] with velocities in degrees per second.
// Owned exclusively by the filter pipeline; reset only on engine reset.
type kalmanFilter struct {
	lat, lng       float64
	velLat, velLng float64
	p              [16]float64 // 4x4 covariance, row-major
	initialized    bool
}

// reset returns the filter to its uninitialized state.
func (k *kalmanFilter) reset() {
	*k = kalmanFilter{}
}

// initialize seeds the state from the first observation. The covariance
// starts large so early measurements dominate the estimate.
func (k *kalmanFilter) initialize(obs geo.Coordinate) {
	k.lat = obs.Lat
	k.lng = obs.Lng
	k.velLat = 0
	k.velLng = 0
	k.p = [16]float64{
		initialCovariance, 0, 0, 0,
		0, initialCovariance, 0, 0,
		0, 0, initialCovariance, 0,
		0, 0, 0, initialCovariance,
	}
	k.initialized = true
}

// step runs one predict+update cycle against an observed coordinate and
// returns the filtered position. The measurement noise adapts to the
// reading's reported accuracy so degraded fixes are trusted less.
func (k *kalmanFilter) step(obs geo.Coordinate, accuracyMeters, dtSeconds float64) geo.Coordinate {
	if !k.initialized {
		k.initialize(obs)
		return obs
	}

	dt := dtSeconds
	if dt < minStepSeconds {
		dt = minStepSeconds
	}
	if dt > maxStepSeconds {
		dt = maxStepSeconds
	}

	k.predict(dt)
	k.update(obs, accuracyMeters)

	if !k.isFinite() {
		// Numerical blow-up; restart from the observation rather than
		// poisoning every subsequent estimate.
		k.initialize(obs)
		return obs
	}

	return geo.Coordinate{Lat: k.lat, Lng: k.lng}
}

// predict applies the constant-velocity prediction step:
//
//	F = [1 0 dt 0 ]
//	    [0 1 0  dt]
//	    [0 0 1  0 ]
//	    [0 0 0  1 ]
func (k *kalmanFilter) predict(dt float64) {
	// State: x' = F * x
	k.lat += k.velLat * dt
	k.lng += k.velLng * dt

	// Covariance: P' = F * P * F^T + Q, computed directly.
	P := k.p

	// F * P
	// Row 0: P[0,j] + dt*P[2,j]
	// Row 1: P[1,j] + dt*P[3,j]
	// Rows 2,3 unchanged.
	var fp [16]float64
	for j := 0; j < 4; j++ {
		fp[0*4+j] = P[0*4+j] + dt*P[2*4+j]
		fp[1*4+j] = P[1*4+j] + dt*P[3*4+j]
		fp[2*4+j] = P[2*4+j]
		fp[3*4+j] = P[3*4+j]
	}

	// (F * P) * F^T
	for i := 0; i < 4; i++ {
		k.p[i*4+0] = fp[i*4+0] + dt*fp[i*4+2]
		k.p[i*4+1] = fp[i*4+1] + dt*fp[i*4+3]
		k.p[i*4+2] = fp[i*4+2]
		k.p[i*4+3] = fp[i*4+3]
	}

	// Add process noise, scaled by dt for rate-independent growth.
	k.p[0*4+0] += processNoisePosition * dt
	k.p[1*4+1] += processNoisePosition * dt
	k.p[2*4+2] += processNoiseVelocity * dt
	k.p[3*4+3] += processNoiseVelocity * dt
}

// update applies the measurement step with H extracting position only.
func (k *kalmanFilter) update(obs geo.Coordinate, accuracyMeters float64) {
	r := math.Max(minMeasurementNoise, accuracyMeters/accuracyNoiseDivisor)

	// Innovation
	yLat := obs.Lat - k.lat
	yLng := obs.Lng - k.lng

	// Innovation covariance S = H * P * H^T + R
	s00 := k.p[0*4+0] + r
	s01 := k.p[0*4+1]
	s10 := k.p[1*4+0]
	s11 := k.p[1*4+1] + r

	det := s00*s11 - s01*s10
	if det < minDeterminant {
		return // singular covariance, skip this update
	}

	invS00 := s11 / det
	invS01 := -s01 / det
	invS10 := -s10 / det
	invS11 := s00 / det

	// Kalman gain K = P * H^T * S^-1 (4x2)
	var gain [8]float64
	for i := 0; i < 4; i++ {
		gain[i*2+0] = k.p[i*4+0]*invS00 + k.p[i*4+1]*invS10
		gain[i*2+1] = k.p[i*4+0]*invS01 + k.p[i*4+1]*invS11
	}

	// State: x' = x + K * y
	k.lat += gain[0*2+0]*yLat + gain[0*2+1]*yLng
	k.lng += gain[1*2+0]*yLat + gain[1*2+1]*yLng
	k.velLat += gain[2*2+0]*yLat + gain[2*2+1]*yLng
	k.velLng += gain[3*2+0]*yLat + gain[3*2+1]*yLng

	// Covariance: P' = (I - K*H) * P. Because H extracts the first two
	// state components, (K*H)[i][j] is K[i][j] for j<2 and 0 otherwise.
	var iMinusKH [16]float64
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			identity := 0.0
			if i == j {
				identity = 1
			}
			var kh float64
			switch j {
			case 0:
				kh = gain[i*2+0]
			case 1:
				kh = gain[i*2+1]
			}
			iMinusKH[i*4+j] = identity - kh
		}
	}

	var newP [16]float64
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			var sum float64
			for m := 0; m < 4; m++ {
				sum += iMinusKH[i*4+m] * k.p[m*4+j]
			}
			newP[i*4+j] = sum
		}
	}
	k.p = newP
}

// isFinite reports whether the state vector and covariance diagonal are free
// of NaN/Inf.
func (k *kalmanFilter) isFinite() bool {
	for _, v := range [...]float64{k.lat, k.lng, k.velLat, k.velLng} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	for i := 0; i < 4; i++ {
		v := k.p[i*4+i]
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// speedHeading converts the velocity estimate from degrees per second into a
// ground speed (m/s) and heading (degrees, [0,360)). Reports zeroes until
// the filter is initialized.
func (k *kalmanFilter) speedHeading() (speedMps, headingDeg float64) {
	if !k.initialized {
		return 0, 0
	}
	vNorth := k.velLat * metersPerDegreeLat
	vEast := k.velLng * metersPerDegreeLat * math.Cos(k.lat*math.Pi/180)
	speedMps = math.Hypot(vNorth, vEast)
	if speedMps > 0 {
		headingDeg = math.Mod(math.Atan2(vEast, vNorth)*180/math.Pi+360, 360)
	}
	return speedMps, headingDeg
}
