package control

import "fmt"

// Entry is one scheduled fill time.
type Entry struct {
	Hour   int
	Minute int
}

func (e Entry) String() string {
	return fmt.Sprintf("%02d:%02d", e.Hour, e.Minute)
}

// Schedule holds the weekday (Mon–Fri) and weekend (Sat–Sun) fill times.
// Tables are only ever replaced wholesale; the Controller's mutex makes the
// swap atomic from the tick's point of view.
type Schedule struct {
	weekday []Entry
	weekend []Entry
}

// NewSchedule builds a schedule from validated entry lists.
func NewSchedule(weekday, weekend []Entry) (*Schedule, error) {
	if err := ValidateEntries(weekday); err != nil {
		return nil, fmt.Errorf("weekday table: %w", err)
	}
	if err := ValidateEntries(weekend); err != nil {
		return nil, fmt.Errorf("weekend table: %w", err)
	}
	return &Schedule{
		weekday: append([]Entry(nil), weekday...),
		weekend: append([]Entry(nil), weekend...),
	}, nil
}

// ValidateEntries checks ranges and rejects duplicates. An invalid list is
// rejected as a whole; tables are never partially applied.
func ValidateEntries(entries []Entry) error {
	seen := make(map[Entry]bool, len(entries))
	for _, e := range entries {
		if e.Hour < 0 || e.Hour > 23 || e.Minute < 0 || e.Minute > 59 {
			return fmt.Errorf("entry %02d:%02d out of range", e.Hour, e.Minute)
		}
		if seen[e] {
			return fmt.Errorf("duplicate entry %s", e)
		}
		seen[e] = true
	}
	return nil
}

// Due reports whether a scheduled fill should start now. It fires only on
// second zero with the valve closed, so a matching minute triggers at most
// once: the moment the valve opens, the valve-closed guard stops it matching.
// A tick that misses the second-zero instant skips that slot entirely.
func (s *Schedule) Due(now TimeOfDay, valveOpen bool) bool {
	if valveOpen || now.Second != 0 {
		return false
	}

	table := s.weekday
	if now.Weekend() {
		table = s.weekend
	}

	for _, e := range table {
		if e.Hour == now.Hour && e.Minute == now.Minute {
			return true
		}
	}
	return false
}

// Replace swaps one table wholesale. The new list is validated first; on
// error the existing table is untouched.
func (s *Schedule) Replace(weekend bool, entries []Entry) error {
	if err := ValidateEntries(entries); err != nil {
		return err
	}
	copied := append([]Entry(nil), entries...)
	if weekend {
		s.weekend = copied
	} else {
		s.weekday = copied
	}
	return nil
}

// Entries returns a copy of the requested table.
func (s *Schedule) Entries(weekend bool) []Entry {
	if weekend {
		return append([]Entry(nil), s.weekend...)
	}
	return append([]Entry(nil), s.weekday...)
}
