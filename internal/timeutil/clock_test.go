package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRealClock(t *testing.T) {
	t.Parallel()

	var clock Clock = RealClock{}
	before := time.Now()
	now := clock.Now()
	assert.False(t, now.Before(before))
	assert.GreaterOrEqual(t, clock.Since(before), time.Duration(0))
}

func TestMockClock(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := NewMockClock(start)

	assert.Equal(t, start, clock.Now())

	clock.Advance(5 * time.Second)
	assert.Equal(t, start.Add(5*time.Second), clock.Now())
	assert.Equal(t, 5*time.Second, clock.Since(start))

	later := start.Add(time.Minute)
	clock.Set(later)
	assert.Equal(t, later, clock.Now())
}
