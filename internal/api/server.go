// Package api exposes the tracking engine over HTTP: reading ingest,
// position snapshots, lock control and session management.
package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/Kalpa111334/GPS-TUNNEL/internal/db"
	"github.com/Kalpa111334/GPS-TUNNEL/internal/httputil"
	"github.com/Kalpa111334/GPS-TUNNEL/internal/monitoring"
	"github.com/Kalpa111334/GPS-TUNNEL/internal/timeutil"
	"github.com/Kalpa111334/GPS-TUNNEL/internal/track"
	"github.com/Kalpa111334/GPS-TUNNEL/internal/units"
	"github.com/Kalpa111334/GPS-TUNNEL/internal/version"
)

// Server wires the engine, the optional session store and the HTTP
// handlers together. A nil store disables persistence; everything else
// keeps working.
type Server struct {
	engine *track.Engine
	store  *db.DB
	preset string
	clock  timeutil.Clock

	mu      sync.Mutex
	session *db.Session
}

func NewServer(engine *track.Engine, store *db.DB, preset string, clock timeutil.Clock) *Server {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Server{engine: engine, store: store, preset: preset, clock: clock}
}

// ServeMux returns the API routing table.
func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/readings", s.handleReadings)
	mux.HandleFunc("/api/errors", s.handleErrors)
	mux.HandleFunc("/api/position", s.handlePosition)
	mux.HandleFunc("/api/metrics", s.handleMetrics)
	mux.HandleFunc("/api/lock", s.handleLock)
	mux.HandleFunc("/api/reset", s.handleReset)
	mux.HandleFunc("/api/session/start", s.handleSessionStart)
	mux.HandleFunc("/api/session/stop", s.handleSessionStop)
	mux.HandleFunc("/api/sessions", s.handleSessions)
	mux.HandleFunc("/api/healthz", s.handleHealthz)
	return mux
}

// Handler wraps the mux with request logging.
func (s *Server) Handler() http.Handler {
	return loggingMiddleware(s.ServeMux())
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lw := &loggingResponseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(lw, r)
		monitoring.Logf("api: %s %s -> %d (%s)", r.Method, r.URL.Path, lw.status, time.Since(start))
	})
}

type loggingResponseWriter struct {
	http.ResponseWriter
	status int
}

func (w *loggingResponseWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// ingestResponse is returned for every submitted reading.
type ingestResponse struct {
	Accepted bool               `json:"accepted"`
	Reason   track.RejectReason `json:"reason,omitempty"`
}

func (s *Server) handleReadings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	var reading track.RawReading
	if err := json.NewDecoder(r.Body).Decode(&reading); err != nil {
		httputil.BadRequest(w, "invalid reading payload: "+err.Error())
		return
	}
	if err := validateReadingPayload(reading); err != "" {
		httputil.BadRequest(w, err)
		return
	}

	status := s.engine.Ingest(reading)
	s.recordReading(reading, status)
	httputil.WriteJSONOK(w, ingestResponse{Accepted: status.Accepted, Reason: status.Reason})
}

// validateReadingPayload rejects structurally impossible readings before
// they reach the engine. Returns an empty string when the payload is sound.
func validateReadingPayload(r track.RawReading) string {
	switch {
	case r.Coordinate.Lat < -90 || r.Coordinate.Lat > 90:
		return "latitude out of range"
	case r.Coordinate.Lng < -180 || r.Coordinate.Lng > 180:
		return "longitude out of range"
	case r.AccuracyMeters <= 0:
		return "accuracy must be positive"
	case r.TimestampMillis == 0:
		return "timestamp missing"
	}
	return ""
}

// recordReading persists the reading when a recorded session is active.
func (s *Server) recordReading(r track.RawReading, status track.IngestStatus) {
	s.mu.Lock()
	session := s.session
	s.mu.Unlock()
	if s.store == nil || session == nil {
		return
	}

	row := db.ReadingRow{
		SessionID:       session.ID,
		TimestampMillis: r.TimestampMillis,
		RawLat:          r.Coordinate.Lat,
		RawLng:          r.Coordinate.Lng,
		AccuracyMeters:  r.AccuracyMeters,
		SignalQuality:   track.QualityForAccuracy(r.AccuracyMeters),
		Accepted:        status.Accepted,
		RejectReason:    status.Reason,
	}
	if status.Accepted {
		if out, ok := s.engine.CurrentOutput(); ok {
			row.StableLat = &out.StablePosition.Lat
			row.StableLng = &out.StablePosition.Lng
			row.Confidence = &out.Confidence
			row.Locked = out.Locked
		}
	}
	if err := s.store.RecordReading(row); err != nil {
		monitoring.Logf("api: failed to persist reading: %v", err)
	}
}

type sourceErrorRequest struct {
	Kind track.SourceErrorKind `json:"kind"`
}

func (s *Server) handleErrors(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	var req sourceErrorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.BadRequest(w, "invalid error payload: "+err.Error())
		return
	}
	switch req.Kind {
	case track.SourcePermissionDenied, track.SourceUnavailable, track.SourceTimeout:
	default:
		httputil.BadRequest(w, "unknown error kind")
		return
	}
	s.engine.IngestError(req.Kind)
	httputil.WriteJSONOK(w, map[string]string{"status": "recorded"})
}

// positionResponse is the engine output plus display-friendly derivations.
type positionResponse struct {
	track.Output
	Speed           float64 `json:"speed"`
	SpeedUnits      string  `json:"speed_units"`
	AccuracyDisplay string  `json:"accuracy_display"`
	DistanceDisplay string  `json:"distance_display"`
}

func (s *Server) handlePosition(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	out, ok := s.engine.CurrentOutput()
	if !ok {
		httputil.NotFound(w, "no position computed yet")
		return
	}

	speedUnits := r.URL.Query().Get("units")
	if speedUnits == "" {
		speedUnits = units.SpeedMps
	}
	httputil.WriteJSONOK(w, positionResponse{
		Output:          out,
		Speed:           units.ConvertSpeed(out.SpeedMps, speedUnits),
		SpeedUnits:      speedUnits,
		AccuracyDisplay: units.FormatAccuracy(out.RawAccuracy),
		DistanceDisplay: units.FormatDistance(out.DistanceMeters),
	})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	m := s.engine.Metrics()
	httputil.WriteJSONOK(w, struct {
		track.Metrics
		RejectionRate float64 `json:"rejection_rate"`
	}{Metrics: m, RejectionRate: m.RejectionRate()})
}

func (s *Server) handleLock(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	locked := s.engine.ToggleLock()
	httputil.WriteJSONOK(w, map[string]bool{"locked": locked})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	s.engine.Reset()
	httputil.WriteJSONOK(w, map[string]string{"status": "reset"})
}

func (s *Server) handleSessionStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	s.engine.StartSession()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.store == nil {
		httputil.WriteJSONOK(w, map[string]string{"status": "started"})
		return
	}
	session, err := s.store.CreateSession(s.preset, s.clock.Now())
	if err != nil {
		httputil.InternalServerError(w, "failed to create session: "+err.Error())
		return
	}
	s.session = &session
	httputil.WriteJSONOK(w, session)
}

func (s *Server) handleSessionStop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	s.engine.StopSession()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.store == nil || s.session == nil {
		httputil.WriteJSONOK(w, map[string]string{"status": "stopped"})
		return
	}
	if err := s.store.StopSession(s.session.ID, s.clock.Now()); err != nil {
		httputil.InternalServerError(w, "failed to stop session: "+err.Error())
		return
	}
	id := s.session.ID
	s.session = nil
	httputil.WriteJSONOK(w, map[string]string{"status": "stopped", "session_id": id})
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	if s.store == nil {
		httputil.WriteJSONOK(w, []db.Session{})
		return
	}
	sessions, err := s.store.Sessions()
	if err != nil {
		httputil.InternalServerError(w, "failed to list sessions: "+err.Error())
		return
	}
	if sessions == nil {
		sessions = []db.Session{}
	}
	httputil.WriteJSONOK(w, sessions)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSONOK(w, map[string]string{
		"status":  "ok",
		"version": version.Version,
	})
}
