package vessel

import (
	"maps"
	"slices"
	"sync"
)

type entry struct {
	track Track
	rev   uint64
}

// Registry is the in-memory track store and the source of truth for the
// tick cycle. Every mutation bumps a per-vessel revision so a tick can
// commit its results without clobbering edits made while it was computing.
type Registry struct {
	mu      sync.RWMutex
	tracks  map[string]*entry
	nextRev uint64
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{tracks: make(map[string]*entry)}
}

// Upsert inserts or replaces a track. Last write wins.
func (r *Registry) Upsert(t Track) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextRev++
	r.tracks[t.VesselID] = &entry{track: t.Clone(), rev: r.nextRev}
}

// Remove deletes a track. Removing an unknown id is a no-op and returns false.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tracks[id]; !ok {
		return false
	}
	delete(r.tracks, id)
	return true
}

// Get returns a copy of one track.
func (r *Registry) Get(id string) (Track, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.tracks[id]
	if !ok {
		return Track{}, false
	}
	return e.track.Clone(), true
}

// IDs returns the sorted ids of every known vessel.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.tracks))
}

// Len returns the number of tracks.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tracks)
}

// Snapshot is an immutable copy of the registry taken at one instant.
type Snapshot struct {
	Tracks []Track
	revs   map[string]uint64
}

// Snapshot copies every track, ordered by vessel id.
func (r *Registry) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := slices.Sorted(maps.Keys(r.tracks))
	s := Snapshot{
		Tracks: make([]Track, 0, len(ids)),
		revs:   make(map[string]uint64, len(ids)),
	}
	for _, id := range ids {
		e := r.tracks[id]
		s.Tracks = append(s.Tracks, e.track.Clone())
		s.revs[id] = e.rev
	}
	return s
}

// Commit writes tick results computed from snap. A track is only
// overwritten if it still exists and has not been modified since the
// snapshot was taken; concurrent adds, edits and removals win. It returns
// the ids that were committed.
func (r *Registry) Commit(snap Snapshot, updated []Track) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	committed := make([]string, 0, len(updated))
	for _, t := range updated {
		rev, ok := snap.revs[t.VesselID]
		if !ok {
			continue
		}
		e, ok := r.tracks[t.VesselID]
		if !ok || e.rev != rev {
			continue
		}
		r.nextRev++
		r.tracks[t.VesselID] = &entry{track: t.Clone(), rev: r.nextRev}
		committed = append(committed, t.VesselID)
	}
	return committed
}
