package monitor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/vesselwatch/internal/alerting"
	"github.com/linnemanlabs/vesselwatch/internal/anomaly"
	"github.com/linnemanlabs/vesselwatch/internal/motion"
	"github.com/linnemanlabs/vesselwatch/internal/postgres"
	"github.com/linnemanlabs/vesselwatch/internal/vessel"
)

// Anomaly status values reported per tick.
const (
	AnomalyOK           = "ok"
	AnomalyEmpty        = "empty"
	AnomalyInsufficient = "insufficient_data"
	AnomalyFailed       = "error"
)

// TickResult is the published outcome of one tick.
type TickResult struct {
	ID            string           `json:"tick_id"`
	At            time.Time        `json:"at"`
	Vessels       []vessel.Scored  `json:"vessels"`
	Alerts        []alerting.Alert `json:"alerts"`
	NewAlerts     []alerting.Alert `json:"new_alerts"`
	Conflicts     int              `json:"conflicts"`
	AnomalyStatus string           `json:"anomaly_status"`
}

// Tick runs one full update cycle. Periodic and manual ticks never
// overlap. Adds and removes that land while a tick is computing win over
// the tick's result for that vessel.
func (s *Service) Tick(ctx context.Context) TickResult {
	s.tickMu.Lock()
	defer s.tickMu.Unlock()

	start := time.Now()
	now := s.clock.Now()
	id := ulid.Make().String()

	ctx, span := tracer.Start(ctx, "monitor.Tick", trace.WithAttributes(
		attribute.String("tick.id", id),
	))
	defer span.End()

	L := s.logger.With("tick_id", id)
	ctx = log.WithContext(ctx, L)

	snap := s.reg.Snapshot()
	advanced := make([]vessel.Track, len(snap.Tracks))
	for i, t := range snap.Tracks {
		advanced[i] = motion.Advance(t, s.cfg.TickInterval, s.cfg.Calibration)
	}

	flags, status := s.detect(ctx, L, advanced)

	committed := s.reg.Commit(snap, advanced)
	kept := make(map[string]struct{}, len(committed))
	for _, vid := range committed {
		kept[vid] = struct{}{}
	}

	scored := make([]vessel.Scored, 0, len(committed))
	outliers := 0
	for i, t := range advanced {
		if _, ok := kept[t.VesselID]; !ok {
			continue
		}
		sc := s.score(t, flags[i])
		if sc.Anomaly == vessel.AnomalyOutlier {
			outliers++
		}
		scored = append(scored, sc)
	}

	alerts := s.engine.Evaluate(scored, now)
	fresh := s.window.Observe(alerts)

	s.persistCommitted(postgres.WithOperation(ctx, "tick"), committed)

	s.dispatch(ctx, L, fresh)

	res := TickResult{
		ID:            id,
		At:            now,
		Vessels:       scored,
		Alerts:        nonNil(alerts),
		NewAlerts:     nonNil(fresh),
		Conflicts:     len(advanced) - len(committed),
		AnomalyStatus: status,
	}
	s.publish(res)

	dur := time.Since(start)
	span.SetAttributes(
		attribute.Int("tick.vessels", len(scored)),
		attribute.Int("tick.alerts", len(alerts)),
		attribute.Int("tick.new_alerts", len(fresh)),
		attribute.Int("tick.conflicts", res.Conflicts),
		attribute.String("tick.anomaly_status", status),
	)
	if s.hooks.OnTick != nil {
		s.hooks.OnTick(&TickEvent{
			Duration:      dur.Seconds(),
			Vessels:       len(scored),
			Outliers:      outliers,
			Alerts:        len(alerts),
			RecentAlerts:  s.window.Len(),
			NewAlerts:     len(fresh),
			Conflicts:     res.Conflicts,
			AnomalyStatus: status,
		})
	}

	L.Info(ctx, "tick complete",
		"vessels", len(scored),
		"alerts", len(alerts),
		"new_alerts", len(fresh),
		"conflicts", res.Conflicts,
		"anomaly", status,
		"duration", dur,
	)
	return res
}

// persistCommitted writes the registry's current copy of each committed
// vessel. Adds and removes that landed after Commit have already written
// the store under the same lock, so a vessel gone from the registry is
// skipped rather than written back.
func (s *Service) persistCommitted(ctx context.Context, ids []string) {
	if s.store == nil {
		return
	}
	for _, id := range ids {
		unlock := s.writes.lock(id)
		if t, ok := s.reg.Get(id); ok {
			s.persist(ctx, "tick", t)
		}
		unlock()
	}
}

// detect labels the batch. Any failure leaves every flag unknown so
// scoring and alerting still run.
func (s *Service) detect(ctx context.Context, L log.Logger, tracks []vessel.Track) ([]vessel.AnomalyFlag, string) {
	flags := make([]vessel.AnomalyFlag, len(tracks))
	if len(tracks) == 0 {
		return flags, AnomalyEmpty
	}

	batch := make([]anomaly.Sample, len(tracks))
	for i, t := range tracks {
		batch[i] = anomaly.Sample{Speed: t.Speed, Heading: t.Heading}
	}

	labels, err := s.detector.FitAndLabel(batch, s.cfg.Anomaly)
	switch {
	case errors.Is(err, anomaly.ErrInsufficientData):
		L.Warn(ctx, "anomaly detection skipped", "vessels", len(tracks), "min_samples", s.cfg.Anomaly.MinSamples)
		return flags, AnomalyInsufficient
	case err != nil:
		L.Error(ctx, err, "anomaly detection failed", "vessels", len(tracks))
		return flags, AnomalyFailed
	case len(labels) != len(tracks):
		L.Error(ctx, fmt.Errorf("detector returned %d labels for %d samples", len(labels), len(tracks)), "anomaly detection failed")
		return flags, AnomalyFailed
	}

	for i, l := range labels {
		if l == anomaly.Outlier {
			flags[i] = vessel.AnomalyOutlier
		} else {
			flags[i] = vessel.AnomalyInlier
		}
	}
	return flags, AnomalyOK
}

// dispatch delivers newly raised alerts off the tick path, in order.
func (s *Service) dispatch(ctx context.Context, L log.Logger, alerts []alerting.Alert) {
	if s.notifier == nil || len(alerts) == 0 {
		return
	}
	ctx = context.WithoutCancel(ctx)
	s.notifyWG.Go(func() {
		for _, a := range alerts {
			nctx, cancel := context.WithTimeout(ctx, s.cfg.NotifyTimeout)
			err := s.notifier.Notify(nctx, a)
			cancel()
			if err != nil {
				L.Error(ctx, err, "alert notification failed", "vessel_id", a.VesselID, "type", a.Type)
			}
			if s.hooks.OnNotify != nil {
				s.hooks.OnNotify(a.Type, err)
			}
		}
	})
}

// Run ticks every TickInterval until ctx is cancelled. A tick already in
// progress when ctx is cancelled runs to completion.
func (s *Service) Run(ctx context.Context) {
	tk := s.clock.NewTicker(s.cfg.TickInterval)
	defer tk.Stop()

	s.logger.Info(ctx, "tick scheduler started", "interval", s.cfg.TickInterval)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info(context.WithoutCancel(ctx), "tick scheduler stopped")
			return
		case <-tk.C():
			s.Tick(context.WithoutCancel(ctx))
		}
	}
}

func nonNil(a []alerting.Alert) []alerting.Alert {
	if a == nil {
		return []alerting.Alert{}
	}
	return a
}
