// Package monitor runs the vessel tick pipeline: it advances every track,
// relabels anomalies, rescores risk, re-checks the geofence and raises
// deduplicated alerts. It is also the business boundary the HTTP API
// talks to for adding, removing and inspecting vessels.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"sync"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"

	"github.com/linnemanlabs/vesselwatch/internal/alerting"
	"github.com/linnemanlabs/vesselwatch/internal/anomaly"
	"github.com/linnemanlabs/vesselwatch/internal/geo"
	"github.com/linnemanlabs/vesselwatch/internal/geofence"
	"github.com/linnemanlabs/vesselwatch/internal/motion"
	"github.com/linnemanlabs/vesselwatch/internal/risk"
	"github.com/linnemanlabs/vesselwatch/internal/timeutil"
	"github.com/linnemanlabs/vesselwatch/internal/vessel"
)

var tracer = otel.Tracer("github.com/linnemanlabs/vesselwatch/internal/monitor")

var (
	// ErrNotFound is returned for operations on an unknown vessel id.
	ErrNotFound = errors.New("vessel not found")
	// ErrInvalidVessel is returned when an add request is out of range.
	ErrInvalidVessel = errors.New("invalid vessel")
	// ErrInvalidProjection is returned for an unusable projection horizon.
	ErrInvalidProjection = errors.New("invalid projection")
)

// Config tunes the pipeline. Zero fields take the DefaultConfig value.
type Config struct {
	TickInterval      time.Duration
	Calibration       motion.Calibration
	Anomaly           anomaly.Params
	DefaultProjection time.Duration
	MaxProjection     time.Duration
	ProjectionSteps   int
	MaxSteps          int
	NotifyTimeout     time.Duration
	SubscriberBuffer  int
}

// DefaultConfig returns a 60s tick, the default motion calibration and
// anomaly params, and a 60 minute projection in 10 steps.
func DefaultConfig() Config {
	return Config{
		TickInterval:      60 * time.Second,
		Calibration:       motion.DefaultCalibration(),
		Anomaly:           anomaly.DefaultParams(),
		DefaultProjection: 60 * time.Minute,
		MaxProjection:     1440 * time.Minute,
		ProjectionSteps:   motion.DefaultSteps,
		MaxSteps:          1000,
		NotifyTimeout:     15 * time.Second,
		SubscriberBuffer:  1,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.TickInterval <= 0 {
		c.TickInterval = d.TickInterval
	}
	if c.Calibration.Reference <= 0 {
		c.Calibration = d.Calibration
	}
	if c.Anomaly.Validate() != nil {
		c.Anomaly = d.Anomaly
	}
	if c.DefaultProjection <= 0 {
		c.DefaultProjection = d.DefaultProjection
	}
	if c.MaxProjection <= 0 {
		c.MaxProjection = d.MaxProjection
	}
	if c.ProjectionSteps <= 0 {
		c.ProjectionSteps = d.ProjectionSteps
	}
	if c.MaxSteps <= 0 {
		c.MaxSteps = d.MaxSteps
	}
	if c.NotifyTimeout <= 0 {
		c.NotifyTimeout = d.NotifyTimeout
	}
	if c.SubscriberBuffer <= 0 {
		c.SubscriberBuffer = d.SubscriberBuffer
	}
	return c
}

// Deps are the collaborators of a Service. Only Registry is required.
type Deps struct {
	Registry *vessel.Registry
	Store    vessel.Store
	Detector anomaly.Detector
	Scorer   *risk.Scorer
	Engine   *alerting.Engine
	Window   *alerting.Window
	Boundary geo.Boundary
	Notifier alerting.Notifier
	Clock    timeutil.Clock
	Logger   log.Logger
	Hooks    Hooks
}

// Service is the business boundary for vessel monitoring.
type Service struct {
	reg      *vessel.Registry
	store    vessel.Store
	detector anomaly.Detector
	scorer   *risk.Scorer
	engine   *alerting.Engine
	window   *alerting.Window
	boundary geo.Boundary
	notifier alerting.Notifier
	clock    timeutil.Clock
	logger   log.Logger
	hooks    Hooks
	cfg      Config

	// tickMu serialises periodic and manual ticks.
	tickMu sync.Mutex
	// addMu serialises default id allocation.
	addMu sync.Mutex
	// writes pairs each registry mutation with its store write.
	writes vesselLocks

	mu        sync.RWMutex
	last      *TickResult
	lastFlags map[string]vessel.AnomalyFlag
	subs      map[uint64]chan TickResult
	nextSub   uint64

	notifyWG sync.WaitGroup
}

// NewService wires a Service, filling unset collaborators with defaults.
func NewService(d Deps, cfg Config) *Service {
	if d.Registry == nil {
		panic(xerrors.New("monitor.NewService: nil registry"))
	}
	s := &Service{
		reg:      d.Registry,
		store:    d.Store,
		detector: d.Detector,
		scorer:   d.Scorer,
		engine:   d.Engine,
		window:   d.Window,
		boundary: d.Boundary,
		notifier: d.Notifier,
		clock:    d.Clock,
		logger:   d.Logger,
		hooks:    d.Hooks,
		cfg:      cfg.withDefaults(),
		subs:     make(map[uint64]chan TickResult),
	}
	if s.detector == nil {
		s.detector = anomaly.NewIsolationForest()
	}
	if s.scorer == nil {
		s.scorer = risk.NewScorer()
	}
	if len(s.boundary.Vertices) == 0 {
		s.boundary = geo.DefaultBoundary()
	}
	if s.engine == nil {
		s.engine = &alerting.Engine{
			SpeedThreshold: s.scorer.SpeedThreshold,
			BoundaryName:   s.boundary.Name,
			RecencyWindow:  alerting.DefaultRecencyWindow,
			ZoneFor:        s.scorer.ZoneFor,
		}
	}
	if s.window == nil {
		s.window = alerting.NewWindow()
	}
	if s.clock == nil {
		s.clock = timeutil.RealClock{}
	}
	if s.logger == nil {
		s.logger = log.Nop()
	}
	return s
}

// Load fills the registry from the persistent store and returns the
// number of tracks loaded.
func (s *Service) Load(ctx context.Context) (int, error) {
	if s.store == nil {
		return 0, nil
	}
	tracks, err := s.store.LoadAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("load tracks: %w", err)
	}
	for _, t := range tracks {
		s.reg.Upsert(t)
	}
	return len(tracks), nil
}

// AddRequest describes a vessel to add. ProjectionMinutes nil means the
// default horizon, 0 means no stored trajectory.
type AddRequest struct {
	VesselID          string  `json:"vessel_id"`
	Lat               float64 `json:"lat"`
	Lon               float64 `json:"lon"`
	Speed             float64 `json:"speed"`
	Heading           float64 `json:"heading"`
	IsFriendly        bool    `json:"is_friendly"`
	ProjectionMinutes *int    `json:"projection_minutes,omitempty"`
}

func (r AddRequest) validate(maxProjection time.Duration) error {
	var errs []error
	if !finite(r.Lat, r.Lon, r.Speed, r.Heading) {
		errs = append(errs, errors.New("coordinates, speed and heading must be finite"))
	}
	if r.Lat < -90 || r.Lat > 90 {
		errs = append(errs, fmt.Errorf("lat %v out of range [-90, 90]", r.Lat))
	}
	if r.Lon < -180 || r.Lon > 180 {
		errs = append(errs, fmt.Errorf("lon %v out of range [-180, 180]", r.Lon))
	}
	if r.Speed < vessel.MinSpeed || r.Speed > vessel.MaxSpeed {
		errs = append(errs, fmt.Errorf("speed %v out of range [%v, %v]", r.Speed, vessel.MinSpeed, vessel.MaxSpeed))
	}
	if r.Heading < 0 || r.Heading > 360 {
		errs = append(errs, fmt.Errorf("heading %v out of range [0, 360]", r.Heading))
	}
	if m := r.ProjectionMinutes; m != nil {
		if *m < 0 || time.Duration(*m)*time.Minute > maxProjection {
			errs = append(errs, fmt.Errorf("projection_minutes %d out of range [0, %d]", *m, int(maxProjection.Minutes())))
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidVessel, errors.Join(errs...))
}

// AddVessel inserts or replaces a vessel. An empty id is replaced with the
// next free VESSEL%03d id. The track is timestamped with the current time
// and, unless disabled, carries a projected trajectory that future ticks
// check against the boundary.
func (s *Service) AddVessel(ctx context.Context, req AddRequest) (vessel.Scored, error) {
	if err := req.validate(s.cfg.MaxProjection); err != nil {
		return vessel.Scored{}, err
	}

	horizon := s.cfg.DefaultProjection
	if req.ProjectionMinutes != nil {
		horizon = time.Duration(*req.ProjectionMinutes) * time.Minute
	}

	s.addMu.Lock()
	id := req.VesselID
	if id == "" {
		id = s.nextVesselID()
	}
	t := vessel.Track{
		VesselID:   id,
		Lat:        req.Lat,
		Lon:        req.Lon,
		Speed:      req.Speed,
		Heading:    motion.NormalizeHeading(req.Heading),
		LastUpdate: s.clock.Now(),
		IsFriendly: req.IsFriendly,
	}
	if horizon > 0 {
		t.Trajectory = motion.ProjectTrack(t, horizon, s.cfg.ProjectionSteps)
	}
	unlock := s.writes.lock(id)
	s.reg.Upsert(t)
	s.addMu.Unlock()
	s.forgetFlag(id)

	s.persist(ctx, "add", t)
	unlock()
	s.logger.Info(ctx, "vessel added",
		"vessel_id", id,
		"friendly", t.IsFriendly,
		"projection_minutes", horizon.Minutes(),
	)
	return s.view(t), nil
}

// nextVesselID must be called with addMu held.
func (s *Service) nextVesselID() string {
	for n := s.reg.Len() + 1; ; n++ {
		id := fmt.Sprintf("VESSEL%03d", n)
		if _, taken := s.reg.Get(id); !taken {
			return id
		}
	}
}

// RemoveVessel deletes a vessel. Removing an unknown id is a no-op and
// reports false.
func (s *Service) RemoveVessel(ctx context.Context, id string) bool {
	unlock := s.writes.lock(id)
	removed := s.reg.Remove(id)
	s.forgetFlag(id)
	if s.store != nil {
		if err := s.store.Delete(ctx, id); err != nil {
			s.logger.Error(ctx, err, "failed to delete vessel from store", "vessel_id", id)
			s.storeError("delete")
		}
	}
	unlock()
	if removed {
		s.logger.Info(ctx, "vessel removed", "vessel_id", id)
	}
	return removed
}

// Vessel returns one vessel with its latest assessment.
func (s *Service) Vessel(id string) (vessel.Scored, bool) {
	t, ok := s.reg.Get(id)
	if !ok {
		return vessel.Scored{}, false
	}
	return s.view(t), true
}

// Vessels returns every vessel whose speed is at least minSpeed, ordered
// by id.
func (s *Service) Vessels(minSpeed float64) []vessel.Scored {
	snap := s.reg.Snapshot()
	out := make([]vessel.Scored, 0, len(snap.Tracks))
	for _, t := range snap.Tracks {
		if t.Speed >= minSpeed {
			out = append(out, s.view(t))
		}
	}
	return out
}

// Project returns a read-only forward projection for a vessel.
func (s *Service) Project(id string, horizon time.Duration, steps int) ([]geo.Point, error) {
	if horizon <= 0 || horizon > s.cfg.MaxProjection {
		return nil, fmt.Errorf("%w: horizon %v must be in (0, %v]", ErrInvalidProjection, horizon, s.cfg.MaxProjection)
	}
	if steps <= 0 {
		steps = s.cfg.ProjectionSteps
	}
	if steps > s.cfg.MaxSteps {
		return nil, fmt.Errorf("%w: steps %d above %d", ErrInvalidProjection, steps, s.cfg.MaxSteps)
	}
	t, ok := s.reg.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	return motion.ProjectTrack(t, horizon, steps), nil
}

// Alerts returns the full alert set of the last tick, recent first.
func (s *Service) Alerts() []alerting.Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil {
		return []alerting.Alert{}
	}
	return slices.Clone(s.last.Alerts)
}

// Last returns the most recent tick result.
func (s *Service) Last() (TickResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil {
		return TickResult{}, false
	}
	return *s.last, true
}

// Layout returns the configured risk zones and boundary.
func (s *Service) Layout() geo.Layout {
	return geo.Layout{
		Zones: slices.Clone(s.scorer.Zones),
		Boundary: geo.Boundary{
			Name:     s.boundary.Name,
			Vertices: slices.Clone(s.boundary.Vertices),
		},
	}
}

// TickInterval returns the configured scheduler period.
func (s *Service) TickInterval() time.Duration { return s.cfg.TickInterval }

// view scores a registry track against the last tick's anomaly labels.
// Vessels added since then are reported as unknown.
func (s *Service) view(t vessel.Track) vessel.Scored {
	s.mu.RLock()
	flag, ok := s.lastFlags[t.VesselID]
	s.mu.RUnlock()
	if !ok {
		flag = vessel.AnomalyUnknown
	}
	return s.score(t, flag)
}

// forgetFlag drops the last tick's label for id so a replaced or removed
// vessel starts over as unknown.
func (s *Service) forgetFlag(id string) {
	s.mu.Lock()
	delete(s.lastFlags, id)
	s.mu.Unlock()
}

func (s *Service) score(t vessel.Track, flag vessel.AnomalyFlag) vessel.Scored {
	return vessel.Scored{
		Track:            t,
		Anomaly:          flag,
		RiskScore:        s.scorer.Score(t, flag),
		BoundaryCrossing: t.HasTrajectory() && geofence.CrossesBoundary(t.Trajectory, s.boundary),
	}
}

func (s *Service) persist(ctx context.Context, op string, t vessel.Track) {
	if s.store == nil {
		return
	}
	if err := s.store.Upsert(ctx, t); err != nil {
		s.logger.Error(ctx, err, "failed to persist vessel", "vessel_id", t.VesselID, "op", op)
		s.storeError(op)
	}
}

func (s *Service) storeError(op string) {
	if s.hooks.OnStoreError != nil {
		s.hooks.OnStoreError(op)
	}
}

// Subscribe registers a listener for tick results. Delivery never blocks
// the pipeline: a subscriber that falls behind misses updates. Results
// share their slices with other readers and must not be modified.
func (s *Service) Subscribe() (uint64, <-chan TickResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSub++
	ch := make(chan TickResult, s.cfg.SubscriberBuffer)
	s.subs[s.nextSub] = ch
	return s.nextSub, ch
}

// Unsubscribe removes a listener and closes its channel. Unknown ids are
// ignored.
func (s *Service) Unsubscribe(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ch, ok := s.subs[id]; ok {
		delete(s.subs, id)
		close(ch)
	}
}

// Wait blocks until every pending alert notification has finished.
func (s *Service) Wait() {
	s.notifyWG.Wait()
}

func (s *Service) publish(r TickResult) {
	flags := make(map[string]vessel.AnomalyFlag, len(r.Vessels))
	for _, v := range r.Vessels {
		flags[v.VesselID] = v.Anomaly
	}

	s.mu.Lock()
	s.last = &r
	s.lastFlags = flags
	// sends happen under the lock so Unsubscribe cannot close a channel
	// mid-send
	for _, ch := range s.subs {
		select {
		case ch <- r:
		default:
		}
	}
	s.mu.Unlock()
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
