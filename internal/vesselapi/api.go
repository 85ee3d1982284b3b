// Package vesselapi exposes the vessel monitor over a JSON HTTP API.
package vesselapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"

	"github.com/linnemanlabs/vesselwatch/internal/alerting"
	"github.com/linnemanlabs/vesselwatch/internal/authmw"
	"github.com/linnemanlabs/vesselwatch/internal/geo"
	"github.com/linnemanlabs/vesselwatch/internal/monitor"
	"github.com/linnemanlabs/vesselwatch/internal/vessel"
)

// MonitorService defines the business operations vesselapi needs.
type MonitorService interface {
	Vessels(minSpeed float64) []vessel.Scored
	Vessel(id string) (vessel.Scored, bool)
	AddVessel(ctx context.Context, req monitor.AddRequest) (vessel.Scored, error)
	RemoveVessel(ctx context.Context, id string) bool
	Project(id string, horizon time.Duration, steps int) ([]geo.Point, error)
	Tick(ctx context.Context) monitor.TickResult
	Alerts() []alerting.Alert
	Layout() geo.Layout
}

// API holds dependencies for HTTP handlers.
type API struct {
	logger log.Logger
	svc    MonitorService
}

// New creates a new API handler.
func New(logger log.Logger, svc MonitorService) *API {
	if logger == nil {
		logger = log.Nop()
	}
	if svc == nil {
		panic(xerrors.New("monitor service is required"))
	}
	return &API{
		logger: logger,
		svc:    svc,
	}
}

// RegisterRoutes attaches API endpoints to the router. When token is set,
// requests that change state must carry it as a bearer token.
func (a *API) RegisterRoutes(r chi.Router, token string) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(authmw.Mutating(token))

		r.Get("/vessels", a.handleListVessels)
		r.Post("/vessels", a.handleAddVessel)
		r.Get("/vessels/{id}", a.handleGetVessel)
		r.Delete("/vessels/{id}", a.handleRemoveVessel)
		r.Get("/vessels/{id}/projection", a.handleProjection)

		r.Post("/tick", a.handleTick)
		r.Get("/alerts", a.handleAlerts)
		r.Get("/layout", a.handleLayout)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// nothing to do with errors here
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
