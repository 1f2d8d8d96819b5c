package source

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"go.bug.st/serial"

	"github.com/Kalpa111334/GPS-TUNNEL/internal/monitoring"
	"github.com/Kalpa111334/GPS-TUNNEL/internal/timeutil"
	"github.com/Kalpa111334/GPS-TUNNEL/internal/track"
)

// DefaultBaudRate matches the NMEA 0183 standard rate most GPS receivers
// ship with.
const DefaultBaudRate = 9600

// SerialFeed reads NMEA sentences from a GPS receiver line by line and
// pushes the resulting readings into the sink.
type SerialFeed struct {
	port io.ReadCloser
	sink Sink
	tr   *Translator
}

// OpenSerialFeed opens the named serial port in 8N1 mode and wraps it in a
// feed. baudRate <= 0 selects the default.
func OpenSerialFeed(portName string, baudRate int, sink Sink, clock timeutil.Clock) (*SerialFeed, error) {
	if baudRate <= 0 {
		baudRate = DefaultBaudRate
	}
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", portName, err)
	}
	return NewSerialFeed(port, sink, clock), nil
}

// NewSerialFeed wraps any line-oriented reader as a feed. Tests use an
// in-memory pipe here instead of a real port.
func NewSerialFeed(port io.ReadCloser, sink Sink, clock timeutil.Clock) *SerialFeed {
	return &SerialFeed{port: port, sink: sink, tr: NewTranslator(clock)}
}

// Run reads sentences until the context is cancelled or the port fails.
// A port failure is surfaced to the sink as an unavailable-source error
// before returning.
func (f *SerialFeed) Run(ctx context.Context) error {
	defer f.port.Close()

	// The scanner blocks in Read, so cancellation is delivered by closing
	// the port from a watcher goroutine.
	go func() {
		<-ctx.Done()
		f.port.Close()
	}()

	scan := bufio.NewScanner(f.port)
	for scan.Scan() {
		if r, ok := f.tr.Translate(scan.Text()); ok {
			f.sink.Ingest(r)
		}
	}
	if ctx.Err() != nil {
		return nil
	}
	if err := scan.Err(); err != nil {
		f.sink.IngestError(track.SourceUnavailable)
		return fmt.Errorf("serial feed: %w", err)
	}
	monitoring.Logf("source: serial stream ended")
	return nil
}
