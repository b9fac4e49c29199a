package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/mrocca/tank-filler/internal/control"
	"github.com/mrocca/tank-filler/internal/gpio"
	"github.com/mrocca/tank-filler/internal/status"
)

type drains struct{}

func (drains) Drain() int { return 0 }

func newTestServer(t *testing.T) (*httptest.Server, *Server, *control.Controller, *status.Tracker) {
	t.Helper()

	sched, err := control.NewSchedule([]control.Entry{{Hour: 7, Minute: 0}}, nil)
	if err != nil {
		t.Fatal(err)
	}
	acts := control.NewActuators(&gpio.FakeActuator{}, &gpio.FakeActuator{})
	ctrl := control.NewController(drains{}, acts, sched,
		control.Calibration{KFactor: 450, StallTimeout: 300 * time.Second}, 0)

	cfg := status.Config{
		PollMs:           100,
		StatusIntervalMs: 5000,
		Broker:           "tcp://192.168.68.20:1883",
		HTTPAddr:         ":80",
		KFactor:          450,
		StallTimeoutSec:  300,
	}
	tr := status.NewTracker(time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), cfg)
	tr.SetSchedule([]string{"07:00"}, []string{})

	now := func() time.Time { return time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC) }
	srv := New(":0", tr, ctrl, now)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, srv, ctrl, tr
}

func postForm(t *testing.T, url string, form map[string]string) *http.Response {
	t.Helper()
	values := make([]string, 0, len(form))
	for k, v := range form {
		values = append(values, k+"="+v)
	}
	resp, err := http.Post(url, "application/x-www-form-urlencoded",
		strings.NewReader(strings.Join(values, "&")))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestIndexPage(t *testing.T) {
	ts, _, _, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestUnknownPathIs404(t *testing.T) {
	ts, _, _, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/nope")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 404 {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestJSONEndpoint(t *testing.T) {
	ts, _, ctrl, tr := newTestServer(t)
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	ctrl.SetValve(true, now)
	tr.Update(ctrl.Snapshot(now))

	resp, err := http.Get(ts.URL + "/index.json")
	if err != nil {
		t.Fatalf("GET /index.json: %v", err)
	}
	defer resp.Body.Close()

	var sj status.StatusJSON
	if err := json.NewDecoder(resp.Body).Decode(&sj); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	if sj.Status.Valve != "OPEN" {
		t.Errorf("valve = %q, want OPEN", sj.Status.Valve)
	}
	if len(sj.Status.Schedule.Weekday) != 1 || sj.Status.Schedule.Weekday[0] != "07:00" {
		t.Errorf("schedule = %v", sj.Status.Schedule)
	}
}

func TestValveCommand(t *testing.T) {
	ts, _, ctrl, _ := newTestServer(t)
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	resp := postForm(t, ts.URL+"/valve", map[string]string{"state": "on"})
	if resp.StatusCode != 200 {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	// Command takes effect and the response snapshot already shows it.
	var sj status.StatusJSON
	if err := json.NewDecoder(resp.Body).Decode(&sj); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	if sj.Status.Valve != "OPEN" {
		t.Errorf("response valve = %q, want OPEN", sj.Status.Valve)
	}
	if !ctrl.Snapshot(now).ValveOpen {
		t.Error("controller valve not open")
	}
}

func TestValveFormRedirect(t *testing.T) {
	ts, _, _, _ := newTestServer(t)

	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}
	resp, err := client.PostForm(ts.URL+"/valve", url.Values{"state": {"on"}, "redirect": {"1"}})
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusSeeOther {
		t.Errorf("status = %d, want 303", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != "/" {
		t.Errorf("Location = %q, want /", loc)
	}
}

func TestMotorInterlockConflict(t *testing.T) {
	ts, _, ctrl, _ := newTestServer(t)
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	ctrl.SetValve(true, now)

	resp := postForm(t, ts.URL+"/motor", map[string]string{"state": "on"})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("status = %d, want 409", resp.StatusCode)
	}

	snap := ctrl.Snapshot(now)
	if snap.MotorOn {
		t.Error("motor must stay off after interlock rejection")
	}
	if !snap.ValveOpen {
		t.Error("valve must stay open after interlock rejection")
	}
}

func TestValveOpenStopsMotor(t *testing.T) {
	ts, srv, ctrl, _ := newTestServer(t)
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	var published []control.Event
	srv.OnEvents = func(events []control.Event) {
		published = append(published, events...)
	}

	ctrl.SetMotor(true, now)

	resp := postForm(t, ts.URL+"/valve", map[string]string{"state": "on"})
	if resp.StatusCode != 200 {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	snap := ctrl.Snapshot(now)
	if snap.MotorOn || !snap.ValveOpen {
		t.Errorf("want motor off and valve open, got motor=%v valve=%v", snap.MotorOn, snap.ValveOpen)
	}
	if len(published) != 2 {
		t.Fatalf("expected motor-off and valve-open events, got %v", published)
	}
}

func TestBadStateRejected(t *testing.T) {
	ts, _, _, _ := newTestServer(t)

	resp := postForm(t, ts.URL+"/valve", map[string]string{"state": "maybe"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}

	getResp, err := http.Get(ts.URL + "/valve")
	if err != nil {
		t.Fatal(err)
	}
	defer getResp.Body.Close()
	if getResp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("GET status = %d, want 405", getResp.StatusCode)
	}
}

func TestFlowResetRoundTrip(t *testing.T) {
	ts, _, ctrl, _ := newTestServer(t)

	// Accumulate something, then reset over HTTP.
	ctrl.Tick(time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC))

	resp := postForm(t, ts.URL+"/flow/reset", nil)
	if resp.StatusCode != 200 {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var sj status.StatusJSON
	if err := json.NewDecoder(resp.Body).Decode(&sj); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	if sj.Status.LitersTotal != 0 {
		t.Errorf("liters_total = %v, want 0 immediately after reset", sj.Status.LitersTotal)
	}
}

func TestScheduleReplace(t *testing.T) {
	ts, srv, ctrl, tr := newTestServer(t)

	persisted := false
	srv.OnScheduleChange = func() { persisted = true }

	body := `{"table":"weekend","times":["09:30","15:00"]}`
	resp, err := http.Post(ts.URL+"/schedule", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	_, weekend := ctrl.ScheduleEntries()
	if len(weekend) != 2 || weekend[0] != (control.Entry{Hour: 9, Minute: 30}) {
		t.Errorf("weekend table = %v", weekend)
	}
	if !persisted {
		t.Error("OnScheduleChange not invoked")
	}
	if snap := tr.Snapshot(); len(snap.WeekendTimes) != 2 {
		t.Errorf("tracker weekend times = %v", snap.WeekendTimes)
	}
}

func TestScheduleReplaceInvalid(t *testing.T) {
	ts, _, ctrl, _ := newTestServer(t)

	tests := []string{
		`{"table":"weekend","times":["25:00"]}`,
		`{"table":"weekend","times":["09:00","09:00"]}`,
		`{"table":"lunar","times":["09:00"]}`,
		`not json`,
	}

	for _, body := range tests {
		resp, err := http.Post(ts.URL+"/schedule", "application/json", strings.NewReader(body))
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("body %q: status = %d, want 400", body, resp.StatusCode)
		}
	}

	// Never partially applied: original weekday table intact.
	weekday, _ := ctrl.ScheduleEntries()
	if len(weekday) != 1 || weekday[0] != (control.Entry{Hour: 7, Minute: 0}) {
		t.Errorf("weekday table modified by rejected requests: %v", weekday)
	}
}
