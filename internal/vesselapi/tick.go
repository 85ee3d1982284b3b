package vesselapi

import (
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/linnemanlabs/vesselwatch/internal/alerting"
)

type tickSummary struct {
	ID            string           `json:"tick_id"`
	At            time.Time        `json:"at"`
	Vessels       int              `json:"vessels"`
	Alerts        int              `json:"alerts"`
	NewAlerts     []alerting.Alert `json:"new_alerts"`
	Conflicts     int              `json:"conflicts"`
	AnomalyStatus string           `json:"anomaly_status"`
}

func (a *API) handleTick(w http.ResponseWriter, r *http.Request) {
	res := a.svc.Tick(r.Context())

	trace.SpanFromContext(r.Context()).SetAttributes(
		attribute.String("vesselwatch.tick.id", res.ID),
		attribute.Int("vesselwatch.tick.new_alerts", len(res.NewAlerts)),
	)
	a.logger.Info(r.Context(), "manual tick", "tick_id", res.ID)

	writeJSON(w, http.StatusOK, tickSummary{
		ID:            res.ID,
		At:            res.At,
		Vessels:       len(res.Vessels),
		Alerts:        len(res.Alerts),
		NewAlerts:     res.NewAlerts,
		Conflicts:     res.Conflicts,
		AnomalyStatus: res.AnomalyStatus,
	})
}

func (a *API) handleAlerts(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]alerting.Alert{"alerts": a.svc.Alerts()})
}

func (a *API) handleLayout(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, a.svc.Layout())
}
