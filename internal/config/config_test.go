package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mrocca/tank-filler/internal/control"
)

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "config.json"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.KFactor != 450.0 {
		t.Errorf("k-factor = %v, want 450", cfg.KFactor)
	}
	if cfg.StallTimeoutSec != 300 {
		t.Errorf("stall timeout = %d, want 300", cfg.StallTimeoutSec)
	}
	if len(cfg.WeekdayTimes) != 3 {
		t.Errorf("weekday times = %v", cfg.WeekdayTimes)
	}
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"k_factor": 390.5}`), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.KFactor != 390.5 {
		t.Errorf("k-factor = %v, want 390.5", cfg.KFactor)
	}
	// Fields absent from the file keep defaults.
	if cfg.SaveIntervalSec != 60 {
		t.Errorf("save interval = %d, want default 60", cfg.SaveIntervalSec)
	}
	if len(cfg.WeekendTimes) != 3 {
		t.Errorf("weekend times = %v, want defaults", cfg.WeekendTimes)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad json", `{`},
		{"zero k-factor", `{"k_factor": 0}`},
		{"negative stall timeout", `{"stall_timeout_seconds": -1}`},
		{"bad time", `{"weekday_times": ["7am"]}`},
		{"out of range time", `{"weekday_times": ["24:00"]}`},
		{"duplicate time", `{"weekday_times": ["07:00", "07:00"]}`},
		{"bad timezone", `{"timezone": "Mars/Olympus"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.json")
			if err := os.WriteFile(path, []byte(tt.body), 0644); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); err == nil {
				t.Errorf("expected load error for %s", tt.name)
			}
		})
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	cfg := Default()
	cfg.KFactor = 500
	cfg.WeekendTimes = []string{"09:30"}
	if err := cfg.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.KFactor != 500 {
		t.Errorf("k-factor = %v, want 500", loaded.KFactor)
	}
	if len(loaded.WeekendTimes) != 1 || loaded.WeekendTimes[0] != "09:30" {
		t.Errorf("weekend times = %v", loaded.WeekendTimes)
	}
}

func TestParseTime(t *testing.T) {
	tests := []struct {
		in      string
		want    control.Entry
		wantErr bool
	}{
		{"07:00", control.Entry{Hour: 7, Minute: 0}, false},
		{"23:59", control.Entry{Hour: 23, Minute: 59}, false},
		{"0:5", control.Entry{Hour: 0, Minute: 5}, false},
		{" 12:30 ", control.Entry{Hour: 12, Minute: 30}, false},
		{"24:00", control.Entry{}, true},
		{"12:60", control.Entry{}, true},
		{"noon", control.Entry{}, true},
		{"12", control.Entry{}, true},
		{"12:30:00", control.Entry{}, true},
	}

	for _, tt := range tests {
		got, err := ParseTime(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseTime(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("ParseTime(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestScheduleFromConfig(t *testing.T) {
	cfg := Default()
	sched, err := cfg.Schedule()
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}

	// Default weekday table starts at 07:00, weekend at 08:00.
	if !sched.Due(control.TimeOfDay{Hour: 7, Minute: 0, Weekday: control.Monday}, false) {
		t.Error("expected 07:00 due on Monday")
	}
	if sched.Due(control.TimeOfDay{Hour: 7, Minute: 0, Weekday: control.Saturday}, false) {
		t.Error("07:00 must not be due on Saturday")
	}
	if !sched.Due(control.TimeOfDay{Hour: 8, Minute: 0, Weekday: control.Saturday}, false) {
		t.Error("expected 08:00 due on Saturday")
	}
}

func TestFormatTimes(t *testing.T) {
	got := FormatTimes([]control.Entry{{Hour: 7, Minute: 0}, {Hour: 19, Minute: 5}})
	if len(got) != 2 || got[0] != "07:00" || got[1] != "19:05" {
		t.Errorf("FormatTimes = %v", got)
	}
}
