// Package store persists the accumulated water total across restarts.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"
)

// record is the on-disk format of the water log.
type record struct {
	TotalLiters float64 `json:"total_liters"`
	Timestamp   string  `json:"timestamp"`
}

// Store reads and writes the water-total log file.
type Store struct {
	path string
}

// New creates a store for the given log path.
func New(path string) *Store {
	return &Store{path: path}
}

// Load returns the persisted total. A missing file starts the counter at
// zero; a corrupt file is an error so the operator notices rather than
// silently losing the history.
func (s *Store) Load() (float64, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read water log: %w", err)
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return 0, fmt.Errorf("parse water log %s: %w", s.path, err)
	}
	return rec.TotalLiters, nil
}

// Save writes the total via a temp file and rename so a crash mid-write
// never corrupts the log.
func (s *Store) Save(total float64, now time.Time) error {
	data, err := json.Marshal(record{
		TotalLiters: total,
		Timestamp:   now.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("encode water log: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write water log: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace water log: %w", err)
	}
	return nil
}
