// Package config loads and saves the tank filler's configuration file.
// All fields are explicit and validated at load time; unknown or missing
// fields fall back to defaults rather than being merged dynamically.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mrocca/tank-filler/internal/control"
)

// Config is the on-disk configuration. Schedule times are "HH:MM" strings
// for readability; they are parsed and range-checked by Validate.
type Config struct {
	KFactor         float64  `json:"k_factor"`              // flow sensor pulses per liter
	StallTimeoutSec int      `json:"stall_timeout_seconds"` // zero-flow auto-close, 0 disables
	MaxFillSec      int      `json:"max_fill_seconds"`      // overall scheduled-fill cutoff, 0 disables
	WeekdayTimes    []string `json:"weekday_times"`         // Mon–Fri fill times
	WeekendTimes    []string `json:"weekend_times"`         // Sat–Sun fill times
	Timezone        string   `json:"timezone"`              // IANA name, or "Local"
	SaveIntervalSec int      `json:"save_interval_seconds"` // water-total persistence cadence
}

// Default returns the built-in configuration used when no file exists.
func Default() Config {
	return Config{
		KFactor:         450.0,
		StallTimeoutSec: 300,
		MaxFillSec:      0,
		WeekdayTimes:    []string{"07:00", "12:00", "19:00"},
		WeekendTimes:    []string{"08:00", "12:00", "19:00"},
		Timezone:        "Local",
		SaveIntervalSec: 60,
	}
}

// Load reads the config file. A missing file yields the defaults; a present
// but invalid file is a startup error. Fields absent from the file keep
// their default values.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}

	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the config file via a temp file and rename.
func (c Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace config: %w", err)
	}
	return nil
}

// Validate checks ranges and parseability of every field.
func (c Config) Validate() error {
	if c.KFactor <= 0 {
		return fmt.Errorf("k_factor must be > 0, got %v", c.KFactor)
	}
	if c.StallTimeoutSec < 0 {
		return fmt.Errorf("stall_timeout_seconds must be >= 0, got %d", c.StallTimeoutSec)
	}
	if c.MaxFillSec < 0 {
		return fmt.Errorf("max_fill_seconds must be >= 0, got %d", c.MaxFillSec)
	}
	if c.SaveIntervalSec <= 0 {
		return fmt.Errorf("save_interval_seconds must be > 0, got %d", c.SaveIntervalSec)
	}
	if _, err := ParseTimes(c.WeekdayTimes); err != nil {
		return fmt.Errorf("weekday_times: %w", err)
	}
	if _, err := ParseTimes(c.WeekendTimes); err != nil {
		return fmt.Errorf("weekend_times: %w", err)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves the configured time zone.
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// StallTimeout returns the stall auto-close timeout as a duration.
func (c Config) StallTimeout() time.Duration {
	return time.Duration(c.StallTimeoutSec) * time.Second
}

// MaxFill returns the overall fill cutoff as a duration.
func (c Config) MaxFill() time.Duration {
	return time.Duration(c.MaxFillSec) * time.Second
}

// SaveInterval returns the persistence cadence as a duration.
func (c Config) SaveInterval() time.Duration {
	return time.Duration(c.SaveIntervalSec) * time.Second
}

// Schedule builds the schedule from the configured time lists.
func (c Config) Schedule() (*control.Schedule, error) {
	weekday, err := ParseTimes(c.WeekdayTimes)
	if err != nil {
		return nil, fmt.Errorf("weekday_times: %w", err)
	}
	weekend, err := ParseTimes(c.WeekendTimes)
	if err != nil {
		return nil, fmt.Errorf("weekend_times: %w", err)
	}
	return control.NewSchedule(weekday, weekend)
}

// ParseTimes converts "HH:MM" strings into schedule entries. The whole list
// is rejected on the first invalid entry.
func ParseTimes(times []string) ([]control.Entry, error) {
	entries := make([]control.Entry, 0, len(times))
	for _, s := range times {
		e, err := ParseTime(s)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := control.ValidateEntries(entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// ParseTime converts one "HH:MM" string into a schedule entry.
func ParseTime(s string) (control.Entry, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return control.Entry{}, fmt.Errorf("time %q: want HH:MM", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return control.Entry{}, fmt.Errorf("time %q: bad hour", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return control.Entry{}, fmt.Errorf("time %q: bad minute", s)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return control.Entry{}, fmt.Errorf("time %q out of range", s)
	}
	return control.Entry{Hour: h, Minute: m}, nil
}

// FormatTimes converts schedule entries back to "HH:MM" strings for saving.
func FormatTimes(entries []control.Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.String()
	}
	return out
}
