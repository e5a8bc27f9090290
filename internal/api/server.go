// Package api serves the live session over HTTP: the latest per-frame
// result, session statistics, the effective thresholds, an SSE stream of
// results and a debug chart of recent angles.
package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/banshee-data/repcount/internal/monitoring"
	"github.com/banshee-data/repcount/internal/motion"
	"github.com/banshee-data/repcount/internal/pipeline"
	"github.com/banshee-data/repcount/internal/serialmux"
)

// ANSI escape codes for cyan and reset
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// SessionView is the slice of *motion.Tracker the server needs.
type SessionView interface {
	Snapshot() motion.Result
	Stats() motion.SessionStats
	History() []motion.AngleSample
	Config() motion.Config
	Reset()
}

type Server struct {
	session  SessionView
	m        serialmux.SerialMuxInterface
	events   *Broadcaster
	counters func() pipeline.Counters
}

// NewServer wires the HTTP surface. m and events may be nil.
func NewServer(session SessionView, m serialmux.SerialMuxInterface, events *Broadcaster) *Server {
	if m == nil {
		m = serialmux.NewDisabledSerialMux()
	}
	if events == nil {
		events = NewBroadcaster()
	}
	return &Server{session: session, m: m, events: events}
}

// SetPipelineCounters exposes the processing loop's totals at /api/pipeline.
func (s *Server) SetPipelineCounters(f func() pipeline.Counters) {
	s.counters = f
}

// Events returns the broadcaster clients of /events are served from.
func (s *Server) Events() *Broadcaster { return s.events }

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		monitoring.Logf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/state", s.showState)
	mux.HandleFunc("/api/session", s.showSession)
	mux.HandleFunc("/api/config", s.showConfig)
	mux.HandleFunc("/api/reset", s.resetSession)
	mux.HandleFunc("/api/pipeline", s.showPipeline)
	mux.HandleFunc("/api/command", s.sendCommandHandler)
	mux.HandleFunc("/events", s.streamEvents)
	mux.HandleFunc("/debug/angles", s.handleAngleChart)
	s.m.AttachAdminRoutes(mux)
	return mux
}

// Handler is ServeMux wrapped in LoggingMiddleware.
func (s *Server) Handler() http.Handler {
	return LoggingMiddleware(s.ServeMux())
}

func (s *Server) writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func (s *Server) writeJSON(w http.ResponseWriter, v any, what string) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		opsf("failed to write %s: %v", what, err)
	}
}

func (s *Server) showState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	s.writeJSON(w, s.session.Snapshot(), "state")
}

func (s *Server) showSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	s.writeJSON(w, s.session.Stats(), "session stats")
}

// ConfigResponse is the effective configuration as served at /api/config.
type ConfigResponse struct {
	DownAngleThreshold float64 `json:"down_angle_threshold"`
	UpAngleThreshold   float64 `json:"up_angle_threshold"`
	AlignmentThreshold float64 `json:"alignment_threshold"`
	SecondaryThreshold float64 `json:"secondary_threshold"`
	CountOnlyGoodForm  bool    `json:"count_only_good_form"`
	FormSide           string  `json:"form_side"`
	MinVisibility      float64 `json:"min_visibility"`
	AngleHistoryLength int     `json:"angle_history_length"`
}

func configResponse(c motion.Config) ConfigResponse {
	return ConfigResponse{
		DownAngleThreshold: c.DownAngleThreshold,
		UpAngleThreshold:   c.UpAngleThreshold,
		AlignmentThreshold: c.AlignmentThreshold,
		SecondaryThreshold: c.SecondaryThreshold,
		CountOnlyGoodForm:  c.CountOnlyGoodForm,
		FormSide:           string(c.FormSide),
		MinVisibility:      c.MinVisibility,
		AngleHistoryLength: c.HistoryLength,
	}
}

func (s *Server) showConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	s.writeJSON(w, configResponse(s.session.Config()), "config")
}

func (s *Server) resetSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	prev := s.session.Snapshot()
	s.session.Reset()
	next := s.session.Snapshot()
	diagf("session reset via API: %s (%d reps) -> %s", prev.SessionID, prev.RepetitionCount, next.SessionID)
	s.events.Publish(next)
	s.writeJSON(w, next, "reset result")
}

func (s *Server) showPipeline(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if s.counters == nil {
		s.writeJSONError(w, http.StatusServiceUnavailable, "Processing loop not running")
		return
	}
	s.writeJSON(w, s.counters(), "pipeline counters")
}

func (s *Server) sendCommandHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	command := r.FormValue("command")
	if command == "" {
		http.Error(w, "Missing command", http.StatusBadRequest)
		return
	}
	if err := s.m.SendCommand(command); err != nil {
		opsf("failed to send oracle command %q: %v", command, err)
		http.Error(w, "Failed to send command", http.StatusInternalServerError)
		return
	}
	io.WriteString(w, fmt.Sprintf("Command %q sent", command))
}
