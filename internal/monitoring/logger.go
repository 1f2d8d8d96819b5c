package monitoring

import "log"

// Logf is the package-level diagnostic logger. It defaults to log.Printf and
// may be swapped with SetLogger; the stabilization engine routes rejection
// and lock-transition diagnostics through it.
var Logf func(format string, v ...any) = log.Printf

// SetLogger replaces the package logger. Passing nil installs a no-op logger,
// which tests use to mute expected rejection noise.
func SetLogger(f func(format string, v ...any)) {
	if f == nil {
		Logf = func(string, ...any) {}
		return
	}
	Logf = f
}
