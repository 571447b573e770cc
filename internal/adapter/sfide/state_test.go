package sfide

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateStore_MissingFile(t *testing.T) {
	s := NewStateStore(filepath.Join(t.TempDir(), "state.json"), discardLogger())
	assert.True(t, s.LastRun().IsZero())
}

func TestStateStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	s := NewStateStore(path, discardLogger())

	now := time.Date(2026, 8, 30, 14, 45, 30, 0, time.UTC)
	require.NoError(t, s.SaveLastRun(now))

	got := s.LastRun()
	assert.WithinDuration(t, now, got, time.Millisecond)
}

func TestStateStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{ nope"), 0o644))

	s := NewStateStore(path, discardLogger())
	assert.True(t, s.LastRun().IsZero())
}

// The original aggregation script stored unix seconds as a JSON float under
// the same key; its state files must load as-is.
func TestStateStore_ReadsLegacyFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "processor_state.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"last_run_timestamp": 1788446730.5}`), 0o644))

	s := NewStateStore(path, discardLogger())
	got := s.LastRun()
	assert.Equal(t, time.Unix(1788446730, 500000000).UTC(), got)
}

func TestStateStore_ZeroTimestamp(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"last_run_timestamp": 0}`), 0o644))

	s := NewStateStore(path, discardLogger())
	assert.True(t, s.LastRun().IsZero())
}
