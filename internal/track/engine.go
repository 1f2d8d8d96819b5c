package track

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/Kalpa111334/GPS-TUNNEL/internal/geo"
	"github.com/Kalpa111334/GPS-TUNNEL/internal/monitoring"
	"github.com/Kalpa111334/GPS-TUNNEL/internal/timeutil"
)

// IngestStatus reports what happened to one ingested reading. Fire-and-forget
// callers may ignore it; the session recorder uses it to annotate persisted
// readings.
type IngestStatus struct {
	Accepted bool
	Reason   RejectReason
}

// Engine is the position stabilization facade. It receives one raw reading
// at a time, throttles, runs validation -> scoring -> filtering -> locking,
// and publishes the current stable position plus quality metadata.
//
// All internal state is mutated synchronously under a single mutex; the
// output snapshot is published through an atomic pointer swap so concurrent
// readers never observe a torn Output.
type Engine struct {
	mu    sync.Mutex
	cfg   EngineConfig
	clock timeutil.Clock

	buf      *Buffer
	kalman   kalmanFilter
	smoother expSmoother
	lock     lockMachine

	running bool

	// Timestamps of the last reading that entered processing (throttle
	// gate) and the last accepted reading (Kalman dt), in source millis.
	lastProcessedMillis uint64
	hasProcessed        bool
	lastAcceptedMillis  uint64

	lastOutputPos  *geo.Coordinate
	distanceMeters float64

	srcErr  SourceErrorKind
	metrics Metrics

	snapshot atomic.Pointer[Output]
}

// New creates an engine for a fresh tracking session. Invalid configuration
// fails fast here. A nil clock defaults to the real one.
func New(cfg EngineConfig, clock timeutil.Clock) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Engine{
		cfg:     cfg,
		clock:   clock,
		buf:     NewBuffer(cfg.BufferCapacity),
		lock:    newLockMachine(),
		running: true,
	}, nil
}

// Config returns a copy of the engine's configuration.
func (e *Engine) Config() EngineConfig {
	return e.cfg
}

// Ingest processes one raw reading. Readings arriving faster than the
// configured minimum update interval are dropped at the door; the rest run
// through validation, scoring, the filter pipeline and the lock machine.
func (e *Engine) Ingest(r RawReading) IngestStatus {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.running {
		return IngestStatus{Reason: RejectThrottled}
	}

	// Throttle before validation: this is rate limiting, not filtering.
	if e.hasProcessed {
		delta := int64(r.TimestampMillis) - int64(e.lastProcessedMillis)
		if delta < e.cfg.MinUpdateInterval.Milliseconds() {
			e.metrics.countRejection(RejectThrottled)
			return IngestStatus{Reason: RejectThrottled}
		}
	}
	e.lastProcessedMillis = r.TimestampMillis
	e.hasProcessed = true

	if reason := validateReading(r, e.buf, e.cfg); reason != RejectNone {
		e.metrics.countRejection(reason)
		monitoring.Logf("track: reading rejected (%s): acc=%.1fm ts=%d", reason, r.AccuracyMeters, r.TimestampMillis)
		return IngestStatus{Reason: reason}
	}

	confidence := scoreReading(r, e.buf, e.cfg)
	if confidence < e.cfg.ConfidenceFloor {
		// Sub-floor readings are discarded before buffer insertion so they
		// never contaminate the consistency baseline.
		e.metrics.countRejection(RejectConfidence)
		monitoring.Logf("track: reading rejected (confidence %.2f < %.2f)", confidence, e.cfg.ConfidenceFloor)
		return IngestStatus{Reason: RejectConfidence}
	}

	var dtSeconds float64
	if e.lastAcceptedMillis > 0 {
		dtSeconds = float64(int64(r.TimestampMillis)-int64(e.lastAcceptedMillis)) / 1000
	}

	e.buf.Append(ScoredReading{RawReading: r, Confidence: confidence, Validated: true})

	coord := r.Coordinate
	if e.cfg.EnableMedianFilter {
		coord = medianCoordinate(coord, e.buf)
	}
	if e.cfg.EnableKalmanFilter {
		coord = e.kalman.step(coord, r.AccuracyMeters, dtSeconds)
	}
	if e.cfg.EnableSmoothing {
		coord = e.smoother.smooth(coord, e.cfg.SmoothingFactor)
	}

	now := e.clock.Now()
	outPos, transition := e.lock.observe(coord, r, e.buf, e.cfg, now)
	switch transition {
	case transitionLocked:
		e.metrics.LockTransitions++
		monitoring.Logf("track: position locked at %.6f,%.6f", outPos.Lat, outPos.Lng)
	case transitionReleased:
		e.metrics.LockReleases++
		monitoring.Logf("track: lock released by movement")
	case transitionExpired:
		e.metrics.LockExpiries++
	}

	if e.lastOutputPos != nil {
		e.distanceMeters += geo.DistanceMeters(*e.lastOutputPos, outPos)
	}
	pos := outPos
	e.lastOutputPos = &pos

	e.lastAcceptedMillis = r.TimestampMillis
	e.srcErr = ""
	e.metrics.Accepted++

	e.publishLocked(outPos, r, confidence)
	return IngestStatus{Accepted: true}
}

// publishLocked recomputes the output snapshot and publishes it atomically.
// Callers must hold e.mu.
func (e *Engine) publishLocked(pos geo.Coordinate, r RawReading, confidence float64) {
	speed, heading := e.kalman.speedHeading()
	if !e.cfg.EnableKalmanFilter {
		// No velocity estimate without the Kalman stage; fall back to the
		// source-reported kinematics when present.
		if r.SpeedMps != nil {
			speed = *r.SpeedMps
		}
		if r.HeadingDegrees != nil {
			heading = *r.HeadingDegrees
		}
	}

	out := &Output{
		StablePosition:          pos,
		RawAccuracy:             r.AccuracyMeters,
		Confidence:              confidence,
		SignalQuality:           QualityForAccuracy(r.AccuracyMeters),
		Locked:                  e.lock.locked(),
		Stable:                  e.lock.locked() || e.lock.consecutiveGood >= e.cfg.LockThreshold,
		BufferSize:              e.buf.Len(),
		ConsecutiveGoodReadings: e.lock.consecutiveGood,
		SpeedMps:                speed,
		HeadingDegrees:          heading,
		DistanceMeters:          e.distanceMeters,
		TimestampMillis:         r.TimestampMillis,
		lockExpiresAt:           e.lock.deadline,
	}
	e.snapshot.Store(out)
}

// IngestError records a typed error from the positioning source. The engine
// surfaces it through the output snapshot; retrying is the source's job, the
// snapshot only advises it for timeouts.
func (e *Engine) IngestError(kind SourceErrorKind) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.srcErr = kind
	e.metrics.SourceErrors++
	monitoring.Logf("track: positioning source error: %s", kind)

	if p := e.snapshot.Load(); p != nil {
		out := *p
		out.SourceError = kind
		out.RetryAdvised = kind == SourceTimeout
		e.snapshot.Store(&out)
	}
}

// SourceError returns the most recent source error, cleared by the next
// accepted reading.
func (e *Engine) SourceError() SourceErrorKind {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.srcErr
}

// CurrentOutput returns the latest computed snapshot. The boolean is false
// until the first reading has been accepted ("no data yet" is distinct from
// a computed-but-stale position). Reading the snapshot never blocks writers.
func (e *Engine) CurrentOutput() (Output, bool) {
	p := e.snapshot.Load()
	if p == nil {
		return Output{}, false
	}
	out := *p
	// A lock whose deadline has passed reads as unlocked even before the
	// next ingest processes the transition; the position is unchanged.
	if out.Locked && !out.lockExpiresAt.IsZero() && !e.clock.Now().Before(out.lockExpiresAt) {
		out.Locked = false
	}
	return out, true
}

// Metrics returns a copy of the engine's diagnostic counters.
func (e *Engine) Metrics() Metrics {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.metrics
}

// ToggleLock forces a lock at the current stabilized position (bypassing the
// threshold check) or forces an unlock when already locked. Returns the new
// locked state. A no-op before the first accepted reading.
func (e *Engine) ToggleLock() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.lock.locked() {
		e.lock.forceUnlock()
		e.metrics.LockReleases++
		e.refreshLockStateLocked()
		return false
	}

	p := e.snapshot.Load()
	if p == nil {
		return false
	}
	e.lock.lock(p.StablePosition, p.TimestampMillis, e.clock.Now(), e.cfg)
	e.metrics.LockTransitions++
	e.refreshLockStateLocked()
	return true
}

// refreshLockStateLocked republishes the snapshot with the current lock
// state. Callers must hold e.mu.
func (e *Engine) refreshLockStateLocked() {
	p := e.snapshot.Load()
	if p == nil {
		return
	}
	out := *p
	out.Locked = e.lock.locked()
	out.Stable = e.lock.locked() || e.lock.consecutiveGood >= e.cfg.LockThreshold
	out.ConsecutiveGoodReadings = e.lock.consecutiveGood
	out.lockExpiresAt = e.lock.deadline
	e.snapshot.Store(&out)
}

// Reset clears the buffer, filter state and lock state unconditionally, so
// the next reading reproduces first-reading bootstrap behaviour. Lifetime
// diagnostic counters survive a reset.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.resetLocked()
}

func (e *Engine) resetLocked() {
	e.buf.Clear()
	e.kalman.reset()
	e.smoother.reset()
	e.lock.reset()
	e.lastProcessedMillis = 0
	e.hasProcessed = false
	e.lastAcceptedMillis = 0
	e.lastOutputPos = nil
	e.distanceMeters = 0
	e.srcErr = ""
	e.snapshot.Store(nil)
}

// StartSession resets the engine and resumes ingestion.
func (e *Engine) StartSession() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.resetLocked()
	e.running = true
}

// StopSession pauses ingestion; readings arriving while stopped are dropped.
// The last published snapshot remains readable.
func (e *Engine) StopSession() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.running = false
}

// Running reports whether the engine is accepting readings.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// lockDeadline exposes the current expiry deadline to tests.
func (e *Engine) lockDeadline() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lock.deadline
}
