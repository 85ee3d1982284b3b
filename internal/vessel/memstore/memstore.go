// Package memstore provides an in-memory implementation of vessel.Store.
package memstore

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/linnemanlabs/vesselwatch/internal/vessel"
)

// Store holds vessel tracks in memory. Suitable for dev/testing.
type Store struct {
	mu     sync.RWMutex
	tracks map[string]vessel.Track // vessel ID -> track
}

// New initializes a new in-memory Store.
func New() *Store {
	return &Store{tracks: make(map[string]vessel.Track)}
}

// LoadAll returns copies of every stored track ordered by vessel ID.
func (s *Store) LoadAll(_ context.Context) ([]vessel.Track, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]vessel.Track, 0, len(s.tracks))
	for _, id := range slices.Sorted(maps.Keys(s.tracks)) {
		out = append(out, s.tracks[id].Clone())
	}
	return out, nil
}

// Upsert stores a copy of the track.
func (s *Store) Upsert(_ context.Context, t vessel.Track) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tracks[t.VesselID] = t.Clone()
	return nil
}

// Delete removes a track. Unknown IDs are ignored.
func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tracks, id)
	return nil
}
