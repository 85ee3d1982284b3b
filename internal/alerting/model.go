package alerting

import (
	"context"
	"errors"
	"time"
)

// Type classifies an alert.
type Type string

const (
	TypeSpeed    Type = "speed"
	TypePiracy   Type = "piracy"
	TypeBoundary Type = "boundary"
)

// DefaultRecencyWindow is how long after its triggering report an alert
// counts as recent.
const DefaultRecencyWindow = 300 * time.Second

// Alert is one rule firing for one vessel in one tick.
type Alert struct {
	Type      Type      `json:"type"`
	VesselID  string    `json:"vessel_id"`
	Message   string    `json:"message"`
	EmittedAt time.Time `json:"emitted_at"`
	Recent    bool      `json:"recent"`
}

// Key is the identity of an alert for dedup purposes.
type Key struct {
	Type     Type
	VesselID string
	Message  string
}

// Key returns the alert's identity.
func (a Alert) Key() Key {
	return Key{Type: a.Type, VesselID: a.VesselID, Message: a.Message}
}

// Notifier delivers a newly raised alert somewhere outside the process.
type Notifier interface {
	Notify(ctx context.Context, a Alert) error
}

// NotifierFunc adapts a plain function to Notifier.
type NotifierFunc func(ctx context.Context, a Alert) error

// Notify implements Notifier.
func (f NotifierFunc) Notify(ctx context.Context, a Alert) error {
	return f(ctx, a)
}

// Notifiers fans an alert out to every member, joining their errors.
type Notifiers []Notifier

// Notify implements Notifier.
func (ns Notifiers) Notify(ctx context.Context, a Alert) error {
	var errs []error
	for _, n := range ns {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, a); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
