// Package cache persists fetched organization snapshots as JSON files with
// TTL expiry, so repeated report runs against the same organization can
// skip the API round trips.
package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/cmdouglas/adoreport/internal/config"
	"github.com/cmdouglas/adoreport/internal/model"
)

// envelope is the on-disk wrapper for cached data.
type envelope[T any] struct {
	FetchedAt time.Time `json:"fetched_at"`
	Payload   T         `json:"payload"`
}

// Store manages a directory of JSON cache files with TTL expiry.
type Store struct {
	dir string
	ttl time.Duration
	now func() time.Time // injectable clock for testing
}

// NewStore creates a Store with the given directory and TTL.
func NewStore(dir string, ttl time.Duration) *Store {
	return &Store{dir: dir, ttl: ttl, now: time.Now}
}

// Get reads a cached value for key into dst. Returns true on hit, false on
// miss, expiry or a corrupt file.
func Get[T any](s *Store, key string, dst *T) bool {
	data, err := os.ReadFile(filepath.Join(s.dir, key+".json"))
	if err != nil {
		return false
	}

	var e envelope[T]
	if err := json.Unmarshal(data, &e); err != nil {
		return false
	}

	if s.now().Sub(e.FetchedAt) > s.ttl {
		return false
	}

	*dst = e.Payload
	return true
}

// Set writes a value to the cache under key. Creates the directory if
// needed.
func Set[T any](s *Store, key string, value T) error {
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return err
	}

	e := envelope[T]{
		FetchedAt: s.now(),
		Payload:   value,
	}

	data, err := json.Marshal(e)
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(s.dir, key+".json"), data, 0600)
}

// Invalidate removes a cached entry by key.
func Invalidate(s *Store, key string) {
	_ = os.Remove(filepath.Join(s.dir, key+".json"))
}

// Dir returns the default cache directory path (~/.adoreport/cache/).
func Dir() (string, error) {
	cfgDir, err := config.ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cfgDir, "cache"), nil
}

// GetSnapshot loads the cached snapshot for an organization, if fresh.
func GetSnapshot(s *Store, organization string) (*model.Snapshot, bool) {
	var snap model.Snapshot
	if !Get(s, "snapshot_"+organization, &snap) {
		return nil, false
	}
	return &snap, true
}

// SetSnapshot caches an organization's snapshot.
func SetSnapshot(s *Store, snap *model.Snapshot) error {
	return Set(s, "snapshot_"+snap.Organization, *snap)
}
