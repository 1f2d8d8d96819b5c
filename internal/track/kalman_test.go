package track

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kalpa111334/GPS-TUNNEL/internal/geo"
)

func TestKalmanFirstReadingBootstrap(t *testing.T) {
	t.Parallel()

	var k kalmanFilter
	obs := geo.Coordinate{Lat: 52.3676, Lng: 4.9041}
	got := k.step(obs, 10, 0)

	assert.Equal(t, obs, got)
	assert.True(t, k.initialized)

	speed, heading := k.speedHeading()
	assert.Zero(t, speed)
	assert.Zero(t, heading)
}

func TestKalmanConvergesOnStationaryTarget(t *testing.T) {
	t.Parallel()

	var k kalmanFilter
	target := geo.Coordinate{Lat: 52.3676, Lng: 4.9041}

	// Alternate small jitter around the target.
	jitter := []float64{1e-5, -1e-5, 5e-6, -5e-6}
	var got geo.Coordinate
	for i := 0; i < 40; i++ {
		obs := geo.Coordinate{Lat: target.Lat + jitter[i%4], Lng: target.Lng - jitter[i%4]}
		got = k.step(obs, 5, 1.0)
	}

	assert.InDelta(t, target.Lat, got.Lat, 2e-5)
	assert.InDelta(t, target.Lng, got.Lng, 2e-5)

	speed, _ := k.speedHeading()
	assert.Less(t, speed, 0.5, "stationary target should have near-zero velocity")
}

func TestKalmanSpikeDamping(t *testing.T) {
	t.Parallel()

	var k kalmanFilter
	target := geo.Coordinate{Lat: 52.3676, Lng: 4.9041}
	for i := 0; i < 10; i++ {
		k.step(target, 5, 1.0)
	}

	// A 50m spike with poor accuracy must barely move the estimate.
	spikeOffset := 50.0 / metersPerDegreeLat
	spike := geo.Coordinate{Lat: target.Lat + spikeOffset, Lng: target.Lng}
	got := k.step(spike, 50, 1.0)

	moved := (got.Lat - target.Lat) / spikeOffset
	assert.Less(t, moved, 0.3, "converged filter should damp a low-trust spike")
}

func TestKalmanAdaptiveMeasurementNoise(t *testing.T) {
	t.Parallel()

	target := geo.Coordinate{Lat: 52.3676, Lng: 4.9041}
	offset := 20.0 / metersPerDegreeLat
	off := geo.Coordinate{Lat: target.Lat + offset, Lng: target.Lng}

	run := func(spikeAccuracy float64) float64 {
		var k kalmanFilter
		for i := 0; i < 10; i++ {
			k.step(target, 5, 1.0)
		}
		got := k.step(off, spikeAccuracy, 1.0)
		return got.Lat - target.Lat
	}

	preciseMove := run(1)
	coarseMove := run(50)
	assert.Greater(t, preciseMove, coarseMove,
		"an accurate reading should pull the estimate harder than a coarse one")
}

func TestKalmanTracksEastwardMotion(t *testing.T) {
	t.Parallel()

	var k kalmanFilter
	base := geo.Coordinate{Lat: 52.0, Lng: 4.0}

	// ~7 m/s due east at this latitude.
	stepLng := 1e-4
	for i := 0; i < 20; i++ {
		obs := geo.Coordinate{Lat: base.Lat, Lng: base.Lng + float64(i)*stepLng}
		k.step(obs, 3, 1.0)
	}

	speed, heading := k.speedHeading()
	require.Greater(t, speed, 1.0)
	assert.InDelta(t, 90, heading, 25, "motion due east should read a ~90 degree heading")
}

func TestKalmanReset(t *testing.T) {
	t.Parallel()

	var k kalmanFilter
	k.step(geo.Coordinate{Lat: 52, Lng: 4}, 10, 0)
	require.True(t, k.initialized)

	k.reset()
	assert.False(t, k.initialized)

	// Next step bootstraps again.
	obs := geo.Coordinate{Lat: 51, Lng: 5}
	assert.Equal(t, obs, k.step(obs, 10, 1.0))
}

func TestKalmanClampsStepTime(t *testing.T) {
	t.Parallel()

	var k kalmanFilter
	target := geo.Coordinate{Lat: 52.3676, Lng: 4.9041}
	for i := 0; i < 5; i++ {
		k.step(target, 5, 1.0)
	}

	// A huge gap must not balloon the covariance into a wild estimate.
	got := k.step(target, 5, 3600)
	assert.InDelta(t, target.Lat, got.Lat, 1e-6)
	assert.True(t, k.isFinite())
}
