package track

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// lockTestConfig returns a pass-through config suited to driving the lock
// machine directly: threshold 3, radius 5m, 5s duration.
func lockTestConfig() EngineConfig {
	cfg := DefaultEngineConfig()
	cfg.LockThreshold = 3
	cfg.LockRadiusMeters = 5
	cfg.LockDuration = 5 * time.Second
	return cfg
}

// settle feeds n identical good readings through the machine.
func settle(t *testing.T, l *lockMachine, buf *Buffer, cfg EngineConfig, now time.Time, n int) lockTransition {
	t.Helper()
	last := transitionNone
	for i := 0; i < n; i++ {
		r := reading(testBase, cfg.MinAccuracyMeters, uint64(1000*(i+1)))
		buf.Append(ScoredReading{RawReading: r, Confidence: 1, Validated: true})
		_, last = l.observe(testBase, r, buf, cfg, now)
	}
	return last
}

func TestLockMachineLocksAfterThreshold(t *testing.T) {
	t.Parallel()

	cfg := lockTestConfig()
	l := newLockMachine()
	buf := NewBuffer(8)
	now := time.Unix(100, 0)

	got := settle(t, &l, buf, cfg, now, 2)
	assert.Equal(t, transitionNone, got)
	assert.False(t, l.locked())

	got = settle(t, &l, buf, cfg, now, 1)
	assert.Equal(t, transitionLocked, got)
	require.True(t, l.locked())
	assert.Equal(t, now.Add(cfg.LockDuration), l.deadline)
}

func TestLockMachinePoorAccuracyResetsCounter(t *testing.T) {
	t.Parallel()

	cfg := lockTestConfig()
	l := newLockMachine()
	buf := NewBuffer(8)
	now := time.Unix(100, 0)

	settle(t, &l, buf, cfg, now, 2)
	require.Equal(t, 2, l.consecutiveGood)

	// A validated reading with mediocre accuracy breaks the streak.
	r := reading(testBase, cfg.MinAccuracyMeters+5, 3000)
	buf.Append(ScoredReading{RawReading: r, Confidence: 1, Validated: true})
	_, tr := l.observe(testBase, r, buf, cfg, now)
	assert.Equal(t, transitionNone, tr)
	assert.Zero(t, l.consecutiveGood)
	assert.False(t, l.locked())
}

func TestLockMachineFreezesPositionWhileLocked(t *testing.T) {
	t.Parallel()

	cfg := lockTestConfig()
	l := newLockMachine()
	buf := NewBuffer(8)
	now := time.Unix(100, 0)

	settle(t, &l, buf, cfg, now, 3)
	require.True(t, l.locked())

	// Drift inside the radius: output stays at the frozen position.
	drift := coordAt(testBase, 2)
	r := reading(drift, cfg.MinAccuracyMeters, 5000)
	buf.Append(ScoredReading{RawReading: r, Confidence: 1, Validated: true})
	got, tr := l.observe(drift, r, buf, cfg, now)
	assert.Equal(t, transitionNone, tr)
	assert.Equal(t, testBase, got)
	assert.True(t, l.locked())
}

func TestLockMachineMovementRelease(t *testing.T) {
	t.Parallel()

	cfg := lockTestConfig()
	l := newLockMachine()
	buf := NewBuffer(8)
	now := time.Unix(100, 0)

	settle(t, &l, buf, cfg, now, 3)
	require.True(t, l.locked())

	// 10m beyond a 5m radius: release immediately and follow the movement.
	moved := coordAt(testBase, 10)
	r := reading(moved, cfg.MinAccuracyMeters, 5000)
	buf.Append(ScoredReading{RawReading: r, Confidence: 1, Validated: true})
	got, tr := l.observe(moved, r, buf, cfg, now)
	assert.Equal(t, transitionReleased, tr)
	assert.Equal(t, moved, got)
	assert.False(t, l.locked())
	assert.Zero(t, l.consecutiveGood)
	assert.True(t, l.deadline.IsZero())
}

func TestLockMachineExpiry(t *testing.T) {
	t.Parallel()

	cfg := lockTestConfig()
	l := newLockMachine()
	buf := NewBuffer(8)
	now := time.Unix(100, 0)

	settle(t, &l, buf, cfg, now, 3)
	require.True(t, l.locked())

	// Just before the deadline: still locked.
	assert.False(t, l.expireIfDue(now.Add(cfg.LockDuration-time.Millisecond)))
	assert.True(t, l.locked())

	// At the deadline: expired, baseline retained.
	assert.True(t, l.expireIfDue(now.Add(cfg.LockDuration)))
	assert.False(t, l.locked())
	require.NotNil(t, l.baseline)
	assert.Equal(t, testBase, *l.baseline)
}

func TestLockMachineRelocksAfterExpiry(t *testing.T) {
	t.Parallel()

	cfg := lockTestConfig()
	l := newLockMachine()
	buf := NewBuffer(8)
	now := time.Unix(100, 0)

	settle(t, &l, buf, cfg, now, 3)
	require.True(t, l.locked())

	// Observe past the deadline: the same call reports the expiry, and the
	// good streak continues so the lock re-arms shortly after.
	later := now.Add(cfg.LockDuration + time.Second)
	r := reading(testBase, cfg.MinAccuracyMeters, 6000)
	buf.Append(ScoredReading{RawReading: r, Confidence: 1, Validated: true})
	_, tr := l.observe(testBase, r, buf, cfg, later)
	// consecutiveGood was already past the threshold, so expiry and re-lock
	// collapse into a single observation reporting the lock.
	assert.Equal(t, transitionLocked, tr)
	assert.True(t, l.locked())
	assert.Equal(t, later.Add(cfg.LockDuration), l.deadline)
}

func TestLockMachineDisabled(t *testing.T) {
	t.Parallel()

	cfg := lockTestConfig()
	cfg.EnablePositionLock = false
	l := newLockMachine()
	buf := NewBuffer(8)

	got := settle(t, &l, buf, cfg, time.Unix(100, 0), 6)
	assert.Equal(t, transitionNone, got)
	assert.False(t, l.locked())
}

func TestLockMachineNeedsSettledReadings(t *testing.T) {
	t.Parallel()

	cfg := lockTestConfig()
	l := newLockMachine()
	buf := NewBuffer(8)
	now := time.Unix(100, 0)

	// Good accuracy but scattered ~20m apart: the streak builds, the
	// settlement check does not.
	for i := 0; i < 5; i++ {
		c := coordAt(testBase, float64(i)*20)
		r := reading(c, cfg.MinAccuracyMeters, uint64(1000*(i+1)))
		buf.Append(ScoredReading{RawReading: r, Confidence: 1, Validated: true})
		_, tr := l.observe(c, r, buf, cfg, now)
		assert.Equal(t, transitionNone, tr)
	}
	assert.False(t, l.locked())
	assert.GreaterOrEqual(t, l.consecutiveGood, cfg.LockThreshold)
}

func TestLockMachineForceUnlock(t *testing.T) {
	t.Parallel()

	cfg := lockTestConfig()
	l := newLockMachine()
	buf := NewBuffer(8)

	settle(t, &l, buf, cfg, time.Unix(100, 0), 3)
	require.True(t, l.locked())

	l.forceUnlock()
	assert.False(t, l.locked())
	assert.True(t, l.deadline.IsZero())

	// Unlocking an unlocked machine is a no-op.
	l.forceUnlock()
	assert.False(t, l.locked())
}
