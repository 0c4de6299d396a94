package web

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// Defaults are operator-stored booking parameters. A booking request may
// leave fields empty; they are filled from here before validation.
type Defaults struct {
	LoginURL         string   `json:"login_url"`
	BookingDate      string   `json:"booking_date"`
	StartTime        string   `json:"start_time"`
	DurationHours    float64  `json:"duration_hours"`
	DeviceMode       string   `json:"device_mode"`
	BookerFirstName  string   `json:"booker_first_name"`
	PlayerCandidates []string `json:"player_candidates"`
}

// DefaultsStore persists Defaults to a JSON file so they survive restarts.
type DefaultsStore struct {
	mu   sync.Mutex
	path string
	cur  Defaults
}

func OpenDefaults(path string) (*DefaultsStore, error) {
	s := &DefaultsStore{path: path}
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return s, nil
		}
		return nil, err
	}
	if err := json.Unmarshal(b, &s.cur); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *DefaultsStore) Get() Defaults {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur
}

func (s *DefaultsStore) Put(d Defaults) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	if err := os.WriteFile(s.path, b, 0o600); err != nil {
		return err
	}
	s.cur = d
	return nil
}
