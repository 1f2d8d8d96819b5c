// track-plot renders a recorded tracking session as a standalone HTML page:
// a scatter of raw vs stabilized positions and a confidence timeline.
//
// Usage:
//
//	track-plot -db tracking.db -session <id> -out session.html
//	track-plot -db tracking.db -list
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/Kalpa111334/GPS-TUNNEL/internal/db"
)

var (
	dbPath    = flag.String("db", "tracking.db", "SQLite database path")
	sessionID = flag.String("session", "", "session ID to plot")
	outPath   = flag.String("out", "session.html", "output HTML file")
	list      = flag.Bool("list", false, "list recorded sessions and exit")
)

func main() {
	flag.Parse()

	store, err := db.Open(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer store.Close()

	if *list {
		listSessions(store)
		return
	}
	if *sessionID == "" {
		log.Fatal("A -session ID is required (use -list to see recorded sessions)")
	}

	rows, err := store.SessionReadings(*sessionID)
	if err != nil {
		log.Fatalf("Failed to load readings: %v", err)
	}
	if len(rows) == 0 {
		log.Fatalf("Session %s has no readings", *sessionID)
	}

	page := components.NewPage()
	page.SetPageTitle("Session " + *sessionID)
	page.AddCharts(pathScatter(rows), confidenceLine(rows))

	f, err := os.Create(*outPath)
	if err != nil {
		log.Fatalf("Failed to create output file: %v", err)
	}
	defer f.Close()
	if err := page.Render(f); err != nil {
		log.Fatalf("Failed to render charts: %v", err)
	}
	log.Printf("Wrote %s (%d readings)", *outPath, len(rows))
}

func listSessions(store *db.DB) {
	sessions, err := store.Sessions()
	if err != nil {
		log.Fatalf("Failed to list sessions: %v", err)
	}
	for _, s := range sessions {
		status := "running"
		if s.StoppedAt != nil {
			status = s.StoppedAt.Format("2006-01-02 15:04:05")
		}
		fmt.Printf("%s  preset=%-12s started=%s  stopped=%s\n",
			s.ID, s.Preset, s.StartedAt.Format("2006-01-02 15:04:05"), status)
	}
}

// pathScatter plots raw readings against the stabilized path on a lng/lat
// plane. Rejected readings have no stabilized counterpart and show up only
// in the raw series.
func pathScatter(rows []db.ReadingRow) *charts.Scatter {
	raw := make([]opts.ScatterData, 0, len(rows))
	stable := make([]opts.ScatterData, 0, len(rows))
	for _, r := range rows {
		raw = append(raw, opts.ScatterData{Value: []interface{}{r.RawLng, r.RawLat}})
		if r.StableLat != nil && r.StableLng != nil {
			stable = append(stable, opts.ScatterData{Value: []interface{}{*r.StableLng, *r.StableLat}})
		}
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Track", Width: "900px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Raw vs stabilized path",
			Subtitle: fmt.Sprintf("%d raw readings, %d stabilized", len(raw), len(stable)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Longitude", Scale: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Latitude", Scale: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)
	scatter.AddSeries("raw", raw, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 5}))
	scatter.AddSeries("stabilized", stable, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 7}))
	return scatter
}

// confidenceLine plots per-reading confidence over the session. Rejected
// readings chart as zero.
func confidenceLine(rows []db.ReadingRow) *charts.Line {
	x := make([]string, 0, len(rows))
	y := make([]opts.LineData, 0, len(rows))
	for _, r := range rows {
		x = append(x, fmt.Sprintf("%d", r.TimestampMillis))
		conf := 0.0
		if r.Confidence != nil {
			conf = *r.Confidence
		}
		y = append(y, opts.LineData{Value: conf})
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "900px", Height: "300px"}),
		charts.WithTitleOpts(opts.Title{Title: "Confidence over time"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Confidence", Min: 0, Max: 1}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Timestamp (ms)"}),
	)
	line.SetXAxis(x)
	line.AddSeries("confidence", y)
	return line
}
