package track

import "github.com/Kalpa111334/GPS-TUNNEL/internal/geo"

// Buffer is a bounded, arrival-ordered window of scored readings. Only
// validated readings above the confidence floor are inserted; the oldest
// entry is evicted on overflow.
type Buffer struct {
	capacity int
	readings []ScoredReading
}

// NewBuffer creates a buffer with the given capacity.
func NewBuffer(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = 16
	}
	return &Buffer{
		capacity: capacity,
		readings: make([]ScoredReading, 0, capacity),
	}
}

// Append inserts a reading, evicting the oldest when full.
func (b *Buffer) Append(r ScoredReading) {
	b.readings = append(b.readings, r)
	if len(b.readings) > b.capacity {
		b.readings = b.readings[len(b.readings)-b.capacity:]
	}
}

// Len returns the number of buffered readings.
func (b *Buffer) Len() int { return len(b.readings) }

// Capacity returns the buffer's fixed capacity.
func (b *Buffer) Capacity() int { return b.capacity }

// Last returns the most recent reading, if any.
func (b *Buffer) Last() (ScoredReading, bool) {
	if len(b.readings) == 0 {
		return ScoredReading{}, false
	}
	return b.readings[len(b.readings)-1], true
}

// LastN returns up to n most recent readings, oldest first. The returned
// slice aliases the buffer and must not be retained across Append calls.
func (b *Buffer) LastN(n int) []ScoredReading {
	if n <= 0 || len(b.readings) == 0 {
		return nil
	}
	if n > len(b.readings) {
		n = len(b.readings)
	}
	return b.readings[len(b.readings)-n:]
}

// MeanOfLastN returns the arithmetic mean coordinate of the n most recent
// readings. Reports false when the buffer is empty.
func (b *Buffer) MeanOfLastN(n int) (geo.Coordinate, bool) {
	recent := b.LastN(n)
	if len(recent) == 0 {
		return geo.Coordinate{}, false
	}
	var sumLat, sumLng float64
	for _, r := range recent {
		sumLat += r.Coordinate.Lat
		sumLng += r.Coordinate.Lng
	}
	count := float64(len(recent))
	return geo.Coordinate{Lat: sumLat / count, Lng: sumLng / count}, true
}

// Clear empties the buffer.
func (b *Buffer) Clear() {
	b.readings = b.readings[:0]
}
