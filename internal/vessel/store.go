package vessel

import "context"

// Store is the persistence interface for vessel tracks. The registry is
// authoritative while the process runs; a Store only needs to reload it
// on startup and mirror changes.
type Store interface {
	LoadAll(ctx context.Context) ([]Track, error)
	Upsert(ctx context.Context, t Track) error
	Delete(ctx context.Context, id string) error
}
