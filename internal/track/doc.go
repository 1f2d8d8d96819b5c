// Package track implements the position stabilization engine: validation and
// outlier rejection of raw location readings, confidence scoring, a
// median -> Kalman -> exponential-smoothing filter pipeline, and a position
// lock state machine that freezes the displayed position while stationary.
//
// The engine consumes one RawReading at a time from a positioning source and
// publishes an Output snapshot suitable for driving a real-time navigation
// display. All per-reading work is O(buffer size).
package track
