package track

import (
	"time"

	"github.com/Kalpa111334/GPS-TUNNEL/internal/geo"
)

// lockPhase is the lifecycle state of the position lock.
type lockPhase string

const (
	phaseStabilizing lockPhase = "stabilizing"
	phaseLocked      lockPhase = "locked"
)

// lockTransition describes a state change produced by one observation.
type lockTransition string

const (
	transitionNone     lockTransition = ""
	transitionLocked   lockTransition = "locked"
	transitionReleased lockTransition = "released"
	transitionExpired  lockTransition = "expired"
)

// lockMachine freezes the displayed position once enough consecutive good
// readings settle inside the lock radius, suppressing visual drift while the
// user is stationary. Movement beyond the radius releases the freeze
// immediately; otherwise the lock expires after a fixed duration.
//
// The expiry deadline is a plain value owned here and checked on each
// observation; re-locking overwrites it and reset clears it, so no timer
// state can outlive the engine.
type lockMachine struct {
	phase           lockPhase
	lockedPosition  *geo.Coordinate
	lockedAtMillis  uint64
	deadline        time.Time // zero while unlocked
	consecutiveGood int
	baseline        *geo.Coordinate
}

func newLockMachine() lockMachine {
	return lockMachine{phase: phaseStabilizing}
}

// reset returns the machine to its initial state.
func (l *lockMachine) reset() {
	*l = newLockMachine()
}

// locked reports whether the machine currently holds a frozen position.
func (l *lockMachine) locked() bool {
	return l.phase == phaseLocked
}

// expireIfDue transitions Locked -> Stabilizing when the deadline has
// passed. The last locked position is retained as the new baseline so the
// display does not jump.
func (l *lockMachine) expireIfDue(now time.Time) bool {
	if l.phase != phaseLocked || l.deadline.IsZero() || now.Before(l.deadline) {
		return false
	}
	l.baseline = l.lockedPosition
	l.lockedPosition = nil
	l.deadline = time.Time{}
	l.phase = phaseStabilizing
	return true
}

// observe evaluates one stabilized reading against the lock state and
// returns the position to publish plus any transition that occurred.
func (l *lockMachine) observe(stabilized geo.Coordinate, r RawReading, buf *Buffer, cfg EngineConfig, now time.Time) (geo.Coordinate, lockTransition) {
	transition := transitionNone
	if l.expireIfDue(now) {
		transition = transitionExpired
	}

	// Good-reading counter tracks accuracy only; a validated reading with
	// mediocre accuracy still resets it.
	if r.AccuracyMeters <= cfg.MinAccuracyMeters {
		l.consecutiveGood++
	} else {
		l.consecutiveGood = 0
	}

	if l.phase == phaseLocked {
		if geo.DistanceMeters(stabilized, *l.lockedPosition) > cfg.LockRadiusMeters {
			// Movement release: the user actually moved, unfreeze now.
			l.lockedPosition = nil
			l.deadline = time.Time{}
			l.consecutiveGood = 0
			base := stabilized
			l.baseline = &base
			l.phase = phaseStabilizing
			return stabilized, transitionReleased
		}
		// Still settled: the frozen position is the output.
		return *l.lockedPosition, transition
	}

	if cfg.EnablePositionLock && l.consecutiveGood >= cfg.LockThreshold &&
		l.readingsSettledAround(stabilized, buf, cfg) {
		l.lock(stabilized, r.TimestampMillis, now, cfg)
		return stabilized, transitionLocked
	}

	return stabilized, transition
}

// readingsSettledAround reports whether the last lockThreshold buffered
// readings all lie within the lock radius of the stabilized position.
func (l *lockMachine) readingsSettledAround(stabilized geo.Coordinate, buf *Buffer, cfg EngineConfig) bool {
	recent := buf.LastN(cfg.LockThreshold)
	if len(recent) < cfg.LockThreshold {
		return false
	}
	for _, r := range recent {
		if geo.DistanceMeters(r.Coordinate, stabilized) > cfg.LockRadiusMeters {
			return false
		}
	}
	return true
}

// lock freezes the given position and arms the expiry deadline, overwriting
// any previous one.
func (l *lockMachine) lock(pos geo.Coordinate, tsMillis uint64, now time.Time, cfg EngineConfig) {
	frozen := pos
	l.lockedPosition = &frozen
	l.lockedAtMillis = tsMillis
	l.deadline = now.Add(cfg.LockDuration)
	l.phase = phaseLocked
}

// forceUnlock releases the lock unconditionally (manual override).
func (l *lockMachine) forceUnlock() {
	if l.phase != phaseLocked {
		return
	}
	l.baseline = l.lockedPosition
	l.lockedPosition = nil
	l.deadline = time.Time{}
	l.consecutiveGood = 0
	l.phase = phaseStabilizing
}
