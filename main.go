// gps-tunnel stabilizes a jittery GPS position stream. It ingests raw
// readings from a serial NMEA receiver, a UDP replay feed or the HTTP API,
// runs them through validation, filtering and position locking, and serves
// the stabilized position back over HTTP.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/Kalpa111334/GPS-TUNNEL/internal/api"
	"github.com/Kalpa111334/GPS-TUNNEL/internal/config"
	"github.com/Kalpa111334/GPS-TUNNEL/internal/db"
	"github.com/Kalpa111334/GPS-TUNNEL/internal/source"
	"github.com/Kalpa111334/GPS-TUNNEL/internal/track"
	"github.com/Kalpa111334/GPS-TUNNEL/internal/version"
)

var (
	listen     = flag.String("listen", ":8080", "HTTP listen address")
	dbPath     = flag.String("db", "tracking.db", "SQLite database path (empty disables persistence)")
	presetName = flag.String("preset", config.PresetStable, "tuning preset: stable, ultra-stable or mobile")
	configPath = flag.String("config", "", "JSON tuning file overriding the preset")
	serialPort = flag.String("serial", "", "serial port of an NMEA GPS receiver (e.g. /dev/ttyUSB0)")
	baudRate   = flag.Int("baud", source.DefaultBaudRate, "serial baud rate")
	udpAddr    = flag.String("udp", "", "UDP listen address for an NMEA replay feed (e.g. :10110)")

	showVersion = flag.Bool("version", false, "print version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("gps-tunnel %s (%s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
		return
	}
	if *listen == "" {
		log.Fatal("Listen address is required")
	}

	tuning, err := loadTuning(*presetName, *configPath)
	if err != nil {
		log.Fatalf("Failed to load tuning config: %v", err)
	}
	engine, err := track.New(track.EngineConfigFromTuning(tuning), nil)
	if err != nil {
		log.Fatalf("Failed to create engine: %v", err)
	}

	var store *db.DB
	if *dbPath != "" {
		store, err = db.Open(*dbPath)
		if err != nil {
			log.Fatalf("Failed to open database: %v", err)
		}
		defer store.Close()
	}

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *serialPort != "" {
		feed, err := source.OpenSerialFeed(*serialPort, *baudRate, engine, nil)
		if err != nil {
			log.Fatalf("Failed to open serial feed: %v", err)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := feed.Run(ctx); err != nil {
				log.Printf("serial feed stopped: %v", err)
			}
		}()
	}

	if *udpAddr != "" {
		feed, err := source.ListenUDP(*udpAddr, engine, nil)
		if err != nil {
			log.Fatalf("Failed to open UDP feed: %v", err)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := feed.Run(ctx); err != nil {
				log.Printf("udp feed stopped: %v", err)
			}
		}()
	}

	// HTTP server goroutine with graceful shutdown.
	wg.Add(1)
	go func() {
		defer wg.Done()

		server := &http.Server{
			Addr:    *listen,
			Handler: api.NewServer(engine, store, *presetName, nil).Handler(),
		}
		go func() {
			log.Printf("gps-tunnel %s listening on %s (preset %s)", version.Version, *listen, *presetName)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
		}
	}()

	wg.Wait()
	log.Printf("Graceful shutdown complete")
}

// loadTuning resolves the preset and overlays an optional tuning file on
// top of it.
func loadTuning(preset, path string) (*config.TuningConfig, error) {
	tuning, err := config.Preset(preset)
	if err != nil {
		return nil, err
	}
	if path == "" {
		return tuning, nil
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("tuning file: %w", err)
	}
	override, err := config.LoadTuningConfig(path)
	if err != nil {
		return nil, err
	}
	tuning.Merge(override)
	if err := tuning.Validate(); err != nil {
		return nil, err
	}
	return tuning, nil
}
