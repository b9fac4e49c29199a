// Package web provides the HTTP status page and the remote command endpoints
// for the tank-filler daemon. Handlers never touch controller state directly:
// every mutation goes through the Commander's synchronized entry points.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/mrocca/tank-filler/internal/config"
	"github.com/mrocca/tank-filler/internal/control"
	"github.com/mrocca/tank-filler/internal/status"
)

// Commander is the synchronized control surface the handlers call.
// *control.Controller satisfies it.
type Commander interface {
	SetValve(open bool, now time.Time) ([]control.Event, error)
	SetMotor(on bool, now time.Time) ([]control.Event, error)
	ResetTotal()
	ReplaceSchedule(weekend bool, entries []control.Entry) error
	ScheduleEntries() (weekday, weekend []control.Entry)
	Snapshot(now time.Time) control.Snapshot
}

// Server serves the status page and command endpoints.
type Server struct {
	httpServer *http.Server
	tracker    *status.Tracker
	ctrl       Commander
	now        func() time.Time

	// OnEvents, if set, receives actuator transitions triggered by commands
	// (the run loop publishes them to MQTT). Optional.
	OnEvents func([]control.Event)

	// OnScheduleChange, if set, is called after a successful table
	// replacement so the new schedule can be persisted. Optional.
	OnScheduleChange func()
}

// New creates a Server that reads state from tracker and issues commands
// through ctrl.
func New(addr string, tracker *status.Tracker, ctrl Commander, now func() time.Time) *Server {
	s := &Server{
		tracker: tracker,
		ctrl:    ctrl,
		now:     now,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/index.html", s.handleIndex)
	mux.HandleFunc("/index.json", s.handleJSON)
	mux.HandleFunc("/valve", s.handleValve)
	mux.HandleFunc("/motor", s.handleMotor)
	mux.HandleFunc("/flow/reset", s.handleFlowReset)
	mux.HandleFunc("/schedule", s.handleSchedule)

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	return s
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener. Useful for tests.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the mux for httptest.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/index.html" {
		http.NotFound(w, r)
		return
	}
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	renderHTML(w, snap)
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(snap))
}

func (s *Server) handleValve(w http.ResponseWriter, r *http.Request) {
	open, ok := s.parseState(w, r)
	if !ok {
		return
	}
	s.applyActuator(w, r, func(now time.Time) ([]control.Event, error) {
		return s.ctrl.SetValve(open, now)
	})
}

func (s *Server) handleMotor(w http.ResponseWriter, r *http.Request) {
	on, ok := s.parseState(w, r)
	if !ok {
		return
	}
	s.applyActuator(w, r, func(now time.Time) ([]control.Event, error) {
		return s.ctrl.SetMotor(on, now)
	})
}

func (s *Server) handleFlowReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}
	s.ctrl.ResetTotal()
	s.refreshTracker()
	s.respond(w, r)
}

// scheduleRequest is the body of POST /schedule.
type scheduleRequest struct {
	Table string   `json:"table"` // "weekday" or "weekend"
	Times []string `json:"times"` // "HH:MM" entries
}

func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}

	var req scheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("bad request: %v", err), http.StatusBadRequest)
		return
	}

	var weekend bool
	switch req.Table {
	case "weekday":
		weekend = false
	case "weekend":
		weekend = true
	default:
		http.Error(w, fmt.Sprintf("unknown table %q", req.Table), http.StatusBadRequest)
		return
	}

	entries, err := config.ParseTimes(req.Times)
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid schedule: %v", err), http.StatusBadRequest)
		return
	}

	if err := s.ctrl.ReplaceSchedule(weekend, entries); err != nil {
		http.Error(w, fmt.Sprintf("invalid schedule: %v", err), http.StatusBadRequest)
		return
	}

	weekday, weekendEntries := s.ctrl.ScheduleEntries()
	s.tracker.SetSchedule(config.FormatTimes(weekday), config.FormatTimes(weekendEntries))
	if s.OnScheduleChange != nil {
		s.OnScheduleChange()
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string][]string{
		"weekday": config.FormatTimes(weekday),
		"weekend": config.FormatTimes(weekendEntries),
	})
}

// parseState reads the state=on|off form field. Anything else is rejected.
func (s *Server) parseState(w http.ResponseWriter, r *http.Request) (bool, bool) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return false, false
	}
	switch r.FormValue("state") {
	case "on":
		return true, true
	case "off":
		return false, true
	default:
		http.Error(w, `state must be "on" or "off"`, http.StatusBadRequest)
		return false, false
	}
}

func (s *Server) applyActuator(w http.ResponseWriter, r *http.Request, apply func(time.Time) ([]control.Event, error)) {
	events, err := apply(s.now())
	if errors.Is(err, control.ErrInterlocked) {
		// Distinguishable from a generic failure so callers can surface
		// "interlock blocked".
		http.Error(w, fmt.Sprintf("interlock blocked: %v", err), http.StatusConflict)
		return
	}
	if err != nil {
		http.Error(w, fmt.Sprintf("actuator error: %v", err), http.StatusInternalServerError)
		return
	}

	s.refreshTracker()
	if s.OnEvents != nil && len(events) > 0 {
		s.OnEvents(events)
	}
	s.respond(w, r)
}

// refreshTracker pushes the post-command controller state into the tracker so
// a status read immediately after a command reflects it, without waiting for
// the next tick.
func (s *Server) refreshTracker() {
	s.tracker.Update(s.ctrl.Snapshot(s.now()))
}

// respond redirects browser form posts back to the page and answers API
// clients with the fresh JSON snapshot.
func (s *Server) respond(w http.ResponseWriter, r *http.Request) {
	if r.FormValue("redirect") == "1" {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(s.tracker.Snapshot()))
}
