package sfide

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"
)

// runState is the on-disk state format. The field name and unix-seconds
// encoding are kept byte-compatible with the original Python aggregator so
// existing state files keep working across the migration.
type runState struct {
	LastRunTimestamp float64 `json:"last_run_timestamp"`
}

// StateStore persists the timestamp of the last successful aggregation run.
type StateStore struct {
	path   string
	logger *slog.Logger
}

// NewStateStore creates a state store backed by the given JSON file.
func NewStateStore(path string, logger *slog.Logger) *StateStore {
	return &StateStore{path: path, logger: logger}
}

// LastRun returns the time of the last successful run. A missing or corrupt
// state file yields the zero time, which forces a full rescan.
func (s *StateStore) LastRun() time.Time {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("could not read state file, forcing full scan", "path", s.path, "error", err)
		}
		return time.Time{}
	}

	var st runState
	if err := json.Unmarshal(data, &st); err != nil {
		s.logger.Warn("corrupt state file, forcing full scan", "path", s.path, "error", err)
		return time.Time{}
	}
	if st.LastRunTimestamp <= 0 {
		return time.Time{}
	}

	sec := int64(st.LastRunTimestamp)
	nsec := int64((st.LastRunTimestamp - float64(sec)) * 1e9)
	return time.Unix(sec, nsec).UTC()
}

// SaveLastRun records the given time as the last successful run.
func (s *StateStore) SaveLastRun(t time.Time) error {
	st := runState{LastRunTimestamp: float64(t.UnixNano()) / 1e9}
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}
	return nil
}
