package source

import (
	"context"
	"fmt"
	"net"
	"strings"

	"github.com/Kalpa111334/GPS-TUNNEL/internal/monitoring"
	"github.com/Kalpa111334/GPS-TUNNEL/internal/timeutil"
)

// UDPFeed receives NMEA sentences as UDP datagrams, one or more newline
// separated sentences per packet. It exists for replaying recorded streams
// and for driving the engine from test fixtures without hardware.
type UDPFeed struct {
	conn *net.UDPConn
	sink Sink
	tr   *Translator
}

// ListenUDP binds the feed to the given address (e.g. ":10110", the de
// facto NMEA-over-UDP port). Pass ":0" to let the kernel pick a port.
func ListenUDP(address string, sink Sink, clock timeutil.Clock) (*UDPFeed, error) {
	addr, err := net.ResolveUDPAddr("udp", address)
	if err != nil {
		return nil, fmt.Errorf("resolve udp %s: %w", address, err)
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen udp %s: %w", address, err)
	}
	return &UDPFeed{conn: conn, sink: sink, tr: NewTranslator(clock)}, nil
}

// Addr returns the bound local address.
func (f *UDPFeed) Addr() net.Addr {
	return f.conn.LocalAddr()
}

// Run receives datagrams until the context is cancelled.
func (f *UDPFeed) Run(ctx context.Context) error {
	defer f.conn.Close()

	go func() {
		<-ctx.Done()
		f.conn.Close()
	}()

	monitoring.Logf("source: udp feed listening on %s", f.conn.LocalAddr())
	buffer := make([]byte, 65536)
	for {
		n, _, err := f.conn.ReadFromUDP(buffer)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("udp feed: %w", err)
		}
		for _, line := range strings.Split(string(buffer[:n]), "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			if r, ok := f.tr.Translate(line); ok {
				f.sink.Ingest(r)
			}
		}
	}
}
