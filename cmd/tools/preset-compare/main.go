// preset-compare replays a recorded session's raw readings through every
// tuning preset and reports how each one would have behaved: output jitter,
// rejection rate and time to the first position lock.
//
// Usage:
//
//	preset-compare -db tracking.db -session <id>
package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/Kalpa111334/GPS-TUNNEL/internal/config"
	"github.com/Kalpa111334/GPS-TUNNEL/internal/db"
	"github.com/Kalpa111334/GPS-TUNNEL/internal/geo"
	"github.com/Kalpa111334/GPS-TUNNEL/internal/timeutil"
	"github.com/Kalpa111334/GPS-TUNNEL/internal/track"
)

var (
	dbPath    = flag.String("db", "tracking.db", "SQLite database path")
	sessionID = flag.String("session", "", "session ID to replay")
)

type presetResult struct {
	Preset        string
	Accepted      int64
	RejectionRate float64
	JitterRMS     float64 // metres between consecutive stabilized outputs
	TimeToLock    time.Duration
	EverLocked    bool
}

func main() {
	flag.Parse()
	if *sessionID == "" {
		log.Fatal("A -session ID is required")
	}

	store, err := db.Open(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer store.Close()

	rows, err := store.SessionReadings(*sessionID)
	if err != nil {
		log.Fatalf("Failed to load readings: %v", err)
	}
	if len(rows) == 0 {
		log.Fatalf("Session %s has no readings", *sessionID)
	}

	fmt.Printf("%-14s %10s %10s %12s %14s\n", "preset", "accepted", "rejected%", "jitter(m)", "time-to-lock")
	for _, name := range config.PresetNames() {
		res, err := replay(name, rows)
		if err != nil {
			log.Fatalf("Replay with preset %s failed: %v", name, err)
		}
		lock := "never"
		if res.EverLocked {
			lock = res.TimeToLock.String()
		}
		fmt.Printf("%-14s %10d %9.1f%% %12.2f %14s\n",
			res.Preset, res.Accepted, res.RejectionRate*100, res.JitterRMS, lock)
	}
}

// replay runs the raw readings of a session through a fresh engine built
// from the named preset. The mock clock follows the reading timestamps so
// lock expiry behaves as it would have live.
func replay(preset string, rows []db.ReadingRow) (presetResult, error) {
	tuning, err := config.Preset(preset)
	if err != nil {
		return presetResult{}, err
	}
	clock := timeutil.NewMockClock(time.UnixMilli(int64(rows[0].TimestampMillis)))
	engine, err := track.New(track.EngineConfigFromTuning(tuning), clock)
	if err != nil {
		return presetResult{}, err
	}

	res := presetResult{Preset: preset}
	var prev *geo.Coordinate
	var jitterSquares []float64
	firstMillis := rows[0].TimestampMillis

	for _, row := range rows {
		clock.Set(time.UnixMilli(int64(row.TimestampMillis)))
		status := engine.Ingest(track.RawReading{
			Coordinate:      geo.Coordinate{Lat: row.RawLat, Lng: row.RawLng},
			AccuracyMeters:  row.AccuracyMeters,
			TimestampMillis: row.TimestampMillis,
		})
		if !status.Accepted {
			continue
		}
		out, ok := engine.CurrentOutput()
		if !ok {
			continue
		}
		if prev != nil {
			d := geo.DistanceMeters(*prev, out.StablePosition)
			jitterSquares = append(jitterSquares, d*d)
		}
		pos := out.StablePosition
		prev = &pos

		if out.Locked && !res.EverLocked {
			res.EverLocked = true
			res.TimeToLock = time.Duration(row.TimestampMillis-firstMillis) * time.Millisecond
		}
	}

	m := engine.Metrics()
	res.Accepted = m.Accepted
	res.RejectionRate = m.RejectionRate()
	if len(jitterSquares) > 0 {
		res.JitterRMS = math.Sqrt(stat.Mean(jitterSquares, nil))
	}
	return res, nil
}
