package vesselapi

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/linnemanlabs/vesselwatch/internal/geo"
	"github.com/linnemanlabs/vesselwatch/internal/monitor"
	"github.com/linnemanlabs/vesselwatch/internal/vessel"
)

type vesselList struct {
	Vessels []vessel.Scored `json:"vessels"`
	Count   int             `json:"count"`
}

type projection struct {
	VesselID string      `json:"vessel_id"`
	Minutes  int         `json:"minutes"`
	Steps    int         `json:"steps"`
	Points   []geo.Point `json:"points"`
}

func (a *API) handleListVessels(w http.ResponseWriter, r *http.Request) {
	minSpeed := 0.0
	if raw := r.URL.Query().Get("min_speed"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			writeError(w, http.StatusBadRequest, "invalid min_speed")
			return
		}
		minSpeed = v
	}

	vs := a.svc.Vessels(minSpeed)
	trace.SpanFromContext(r.Context()).SetAttributes(
		attribute.Float64("vesselwatch.min_speed", minSpeed),
		attribute.Int("vesselwatch.vessels", len(vs)),
	)
	writeJSON(w, http.StatusOK, vesselList{Vessels: vs, Count: len(vs)})
}

func (a *API) handleGetVessel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	trace.SpanFromContext(r.Context()).SetAttributes(attribute.String("vesselwatch.vessel.id", id))

	v, ok := a.svc.Vessel(id)
	if !ok {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (a *API) handleAddVessel(w http.ResponseWriter, r *http.Request) {
	var req monitor.AddRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	v, err := a.svc.AddVessel(r.Context(), req)
	if errors.Is(err, monitor.ErrInvalidVessel) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		a.logger.Error(r.Context(), err, "failed to add vessel")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	trace.SpanFromContext(r.Context()).SetAttributes(
		attribute.String("vesselwatch.vessel.id", v.VesselID),
		attribute.Bool("vesselwatch.vessel.friendly", v.IsFriendly),
	)
	writeJSON(w, http.StatusCreated, v)
}

func (a *API) handleRemoveVessel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	removed := a.svc.RemoveVessel(r.Context(), id)
	trace.SpanFromContext(r.Context()).SetAttributes(
		attribute.String("vesselwatch.vessel.id", id),
		attribute.Bool("vesselwatch.vessel.removed", removed),
	)
	writeJSON(w, http.StatusOK, map[string]bool{"removed": removed})
}

func (a *API) handleProjection(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	q := r.URL.Query()

	minutes, err := intParam(q.Get("minutes"), 60)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid minutes")
		return
	}
	steps, err := intParam(q.Get("steps"), 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid steps")
		return
	}

	pts, err := a.svc.Project(id, time.Duration(minutes)*time.Minute, steps)
	switch {
	case errors.Is(err, monitor.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
		return
	case errors.Is(err, monitor.ErrInvalidProjection):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		a.logger.Error(r.Context(), err, "failed to project vessel", "vessel_id", id)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	trace.SpanFromContext(r.Context()).SetAttributes(
		attribute.String("vesselwatch.vessel.id", id),
		attribute.Int("vesselwatch.projection.minutes", minutes),
	)
	writeJSON(w, http.StatusOK, projection{
		VesselID: id,
		Minutes:  minutes,
		Steps:    len(pts) - 1,
		Points:   pts,
	})
}

func intParam(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}
