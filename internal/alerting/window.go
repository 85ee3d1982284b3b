package alerting

import "sync"

// Window is the sliding dedup set of alert identities that are currently
// recent.
type Window struct {
	mu      sync.Mutex
	tracked map[Key]struct{}
}

// NewWindow returns an empty Window.
func NewWindow() *Window {
	return &Window{tracked: make(map[Key]struct{})}
}

// Observe takes one tick's full alert set and returns the recent alerts
// whose identity was not already tracked. Afterwards the tracked set is
// exactly the identities recent in this tick, so an identity that ages out
// will fire again if it reappears later.
func (w *Window) Observe(alerts []Alert) []Alert {
	w.mu.Lock()
	defer w.mu.Unlock()

	next := make(map[Key]struct{}, len(alerts))
	var fresh []Alert
	for _, a := range alerts {
		if !a.Recent {
			continue
		}
		k := a.Key()
		if _, dup := next[k]; dup {
			continue
		}
		next[k] = struct{}{}
		if _, seen := w.tracked[k]; !seen {
			fresh = append(fresh, a)
		}
	}
	w.tracked = next
	return fresh
}

// Len returns the number of tracked identities.
func (w *Window) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.tracked)
}

// Tracked reports whether an identity is currently tracked.
func (w *Window) Tracked(k Key) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.tracked[k]
	return ok
}
