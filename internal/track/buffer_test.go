package track

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kalpa111334/GPS-TUNNEL/internal/geo"
)

func scored(lat, lng float64, ts uint64) ScoredReading {
	return ScoredReading{
		RawReading: RawReading{
			Coordinate:      geo.Coordinate{Lat: lat, Lng: lng},
			AccuracyMeters:  5,
			TimestampMillis: ts,
		},
		Confidence: 1,
		Validated:  true,
	}
}

func TestBufferAppendAndEviction(t *testing.T) {
	t.Parallel()

	buf := NewBuffer(3)
	assert.Zero(t, buf.Len())

	for i := uint64(1); i <= 5; i++ {
		buf.Append(scored(float64(i), 0, i*1000))
	}

	// Capacity 3: readings 1 and 2 were evicted, arrival order preserved.
	assert.Equal(t, 3, buf.Len())
	recent := buf.LastN(3)
	require.Len(t, recent, 3)
	assert.Equal(t, 3.0, recent[0].Coordinate.Lat)
	assert.Equal(t, 5.0, recent[2].Coordinate.Lat)
}

func TestBufferLast(t *testing.T) {
	t.Parallel()

	buf := NewBuffer(4)
	_, ok := buf.Last()
	assert.False(t, ok)

	buf.Append(scored(1, 1, 1000))
	buf.Append(scored(2, 2, 2000))
	last, ok := buf.Last()
	require.True(t, ok)
	assert.Equal(t, 2.0, last.Coordinate.Lat)
}

func TestBufferLastN(t *testing.T) {
	t.Parallel()

	buf := NewBuffer(8)
	buf.Append(scored(1, 0, 1000))
	buf.Append(scored(2, 0, 2000))

	assert.Nil(t, buf.LastN(0))
	assert.Len(t, buf.LastN(1), 1)
	// Asking for more than buffered returns what exists.
	assert.Len(t, buf.LastN(10), 2)
}

func TestBufferMeanOfLastN(t *testing.T) {
	t.Parallel()

	buf := NewBuffer(8)
	_, ok := buf.MeanOfLastN(3)
	assert.False(t, ok)

	buf.Append(scored(10, 20, 1000))
	buf.Append(scored(20, 40, 2000))
	mean, ok := buf.MeanOfLastN(2)
	require.True(t, ok)
	assert.InDelta(t, 15, mean.Lat, 1e-9)
	assert.InDelta(t, 30, mean.Lng, 1e-9)
}

func TestBufferClear(t *testing.T) {
	t.Parallel()

	buf := NewBuffer(4)
	buf.Append(scored(1, 1, 1000))
	buf.Clear()
	assert.Zero(t, buf.Len())
	_, ok := buf.Last()
	assert.False(t, ok)
}

func TestBufferDefaultCapacity(t *testing.T) {
	t.Parallel()

	buf := NewBuffer(0)
	assert.Equal(t, 16, buf.Capacity())
}
