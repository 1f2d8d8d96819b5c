package source

import (
	"context"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kalpa111334/GPS-TUNNEL/internal/timeutil"
	"github.com/Kalpa111334/GPS-TUNNEL/internal/track"
)

const (
	ggaLine       = "$GPGGA,120507.00,5222.056,N,00454.246,E,1,09,2.0,3.4,M,45.0,M,,*61"
	ggaNoFixLine  = "$GPGGA,120503.00,5222.056,N,00454.246,E,0,00,,3.4,M,45.0,M,,*41"
	rmcLine       = "$GPRMC,120503.00,A,5222.056,N,00454.246,E,6.8,270.0,250826,,*37"
	rmcVoidLine   = "$GPRMC,120505.00,V,5222.056,N,00454.246,E,0.0,0.0,250826,,*2D"
	unrelatedLine = "$GPGSV,3,1,11,03,03,111,00*74"
)

// recordingSink captures everything a feed pushes at it.
type recordingSink struct {
	mu       sync.Mutex
	readings []track.RawReading
	errors   []track.SourceErrorKind
}

func (s *recordingSink) Ingest(r track.RawReading) track.IngestStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readings = append(s.readings, r)
	return track.IngestStatus{Accepted: true}
}

func (s *recordingSink) IngestError(kind track.SourceErrorKind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors = append(s.errors, kind)
}

func (s *recordingSink) readingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.readings)
}

func (s *recordingSink) reading(i int) track.RawReading {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readings[i]
}

func TestTranslatorGGA(t *testing.T) {
	t.Parallel()

	clock := timeutil.NewMockClock(time.UnixMilli(5_000_000))
	tr := NewTranslator(clock)

	r, ok := tr.Translate(ggaLine)
	require.True(t, ok)
	assert.InDelta(t, 52.3676, r.Coordinate.Lat, 1e-6)
	assert.Equal(t, 10.0, r.AccuracyMeters, "HDOP 2.0 maps to a 10m radius")
	assert.Equal(t, uint64(5_000_000), r.TimestampMillis, "GGA has no date, the clock supplies the timestamp")
	assert.Nil(t, r.SpeedMps)
}

func TestTranslatorRMCInheritsGGAAccuracy(t *testing.T) {
	t.Parallel()

	tr := NewTranslator(timeutil.NewMockClock(time.UnixMilli(0)))
	_, ok := tr.Translate(ggaLine)
	require.True(t, ok)

	r, ok := tr.Translate(rmcLine)
	require.True(t, ok)
	assert.Equal(t, 10.0, r.AccuracyMeters)
	require.NotNil(t, r.SpeedMps)
	assert.InDelta(t, 3.498, *r.SpeedMps, 0.001)
	require.NotNil(t, r.HeadingDegrees)
	assert.Equal(t, 270.0, *r.HeadingDegrees)
	assert.Equal(t, uint64(time.Date(2026, 8, 25, 12, 5, 3, 0, time.UTC).UnixMilli()), r.TimestampMillis)
}

func TestTranslatorRMCBeforeAnyGGA(t *testing.T) {
	t.Parallel()

	tr := NewTranslator(timeutil.NewMockClock(time.UnixMilli(0)))
	r, ok := tr.Translate(rmcLine)
	require.True(t, ok)
	assert.Equal(t, defaultAccuracyMeters, r.AccuracyMeters)
}

func TestTranslatorSkipsUnusableSentences(t *testing.T) {
	t.Parallel()

	tr := NewTranslator(timeutil.NewMockClock(time.UnixMilli(0)))
	for _, line := range []string{ggaNoFixLine, rmcVoidLine, unrelatedLine, "", "garbage"} {
		_, ok := tr.Translate(line)
		assert.False(t, ok, "line %q should yield no reading", line)
	}
}

func TestSerialFeedDeliversReadings(t *testing.T) {
	t.Parallel()

	pr, pw := io.Pipe()
	sink := &recordingSink{}
	feed := NewSerialFeed(pr, sink, timeutil.NewMockClock(time.UnixMilli(1000)))

	done := make(chan error, 1)
	go func() { done <- feed.Run(context.Background()) }()

	_, err := pw.Write([]byte(ggaLine + "\r\n" + unrelatedLine + "\r\n" + rmcLine + "\r\n"))
	require.NoError(t, err)
	require.NoError(t, pw.Close())

	require.NoError(t, <-done)
	assert.Equal(t, 2, sink.readingCount())
	assert.Equal(t, 10.0, sink.reading(1).AccuracyMeters)
}

func TestSerialFeedStopsOnCancel(t *testing.T) {
	t.Parallel()

	pr, _ := io.Pipe()
	feed := NewSerialFeed(pr, &recordingSink{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- feed.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("feed did not stop on cancellation")
	}
}

func TestUDPFeedDeliversReadings(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	feed, err := ListenUDP("127.0.0.1:0", sink, timeutil.NewMockClock(time.UnixMilli(1000)))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- feed.Run(ctx) }()

	conn, err := net.Dial("udp", feed.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	// Two sentences in one datagram, replay-style.
	_, err = conn.Write([]byte(ggaLine + "\n" + rmcLine + "\n"))
	require.NoError(t, err)

	require.Eventually(t, func() bool { return sink.readingCount() == 2 },
		5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("feed did not stop on cancellation")
	}
}
