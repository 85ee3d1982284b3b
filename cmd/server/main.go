// Vesselwatch tracks vessels from position reports, scores their risk,
// checks projected paths against a maritime boundary and raises alerts.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	otelpyroscope "github.com/grafana/otel-profiling-go"
	"go.opentelemetry.io/otel"

	"github.com/linnemanlabs/go-core/cfg"
	"github.com/linnemanlabs/go-core/health"
	"github.com/linnemanlabs/go-core/httpmw"
	"github.com/linnemanlabs/go-core/httpserver"
	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/metrics"
	"github.com/linnemanlabs/go-core/opshttp"
	"github.com/linnemanlabs/go-core/otelx"
	"github.com/linnemanlabs/go-core/prof"
	v "github.com/linnemanlabs/go-core/version"

	"github.com/linnemanlabs/vesselwatch/internal/alerting"
	"github.com/linnemanlabs/vesselwatch/internal/anomaly"
	vc "github.com/linnemanlabs/vesselwatch/internal/cfg"
	"github.com/linnemanlabs/vesselwatch/internal/monitor"
	"github.com/linnemanlabs/vesselwatch/internal/motion"
	"github.com/linnemanlabs/vesselwatch/internal/notify/slack"
	"github.com/linnemanlabs/vesselwatch/internal/risk"
	"github.com/linnemanlabs/vesselwatch/internal/timeutil"
	"github.com/linnemanlabs/vesselwatch/internal/vessel"
	"github.com/linnemanlabs/vesselwatch/internal/vesselapi"
)

const (
	appName   = "vesselwatch"
	component = "server"
	envPrefix = "VESSELWATCH_"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "fatal error:", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	v.AppName = appName
	v.Component = component
	vi := v.Get()

	var (
		appCfg    vc.Config
		httpCfg   httpserver.Config
		httpmwCfg httpmw.Config
		logCfg    log.Config
		opsCfg    opshttp.Config
		profCfg   prof.Config
		traceCfg  otelx.Config
	)
	appCfg.RegisterFlags(flag.CommandLine)
	httpCfg.RegisterFlags(flag.CommandLine)
	httpmwCfg.RegisterFlags(flag.CommandLine)
	logCfg.RegisterFlags(flag.CommandLine)
	opsCfg.RegisterFlags(flag.CommandLine)
	profCfg.RegisterFlags(flag.CommandLine)
	traceCfg.RegisterFlags(flag.CommandLine)
	var showVersion bool
	flag.BoolVar(&showVersion, "V", false, "Print version+build information and exit")

	// cmdline wins, env only fills flags that were not set
	flag.Parse()
	if showVersion {
		fmt.Printf(
			"%s (%s) %s (commit=%s, commit_date=%s, build_id=%s, build_date=%s, go=%s, dirty=%v)\n",
			vi.AppName, vi.Component, vi.Version, vi.Commit, vi.CommitDate, vi.BuildId, vi.BuildDate, vi.GoVersion,
			vi.VCSDirty != nil && *vi.VCSDirty,
		)
		return nil
	}
	cfg.FillFromEnv(flag.CommandLine, envPrefix, func(format string, args ...any) {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	})

	if err := errors.Join(
		appCfg.Validate(),
		httpCfg.Validate(),
		httpmwCfg.Validate(),
		logCfg.Validate(),
		opsCfg.Validate(),
		profCfg.Validate(),
		traceCfg.Validate(),
	); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	if appCfg.APIPort == opsCfg.Port {
		return fmt.Errorf("http and admin ports must differ (both %d)", appCfg.APIPort)
	}

	// geography is static for the life of the process, fail fast on a bad file
	layout, err := loadLayout(appCfg)
	if err != nil {
		return fmt.Errorf("layout: %w", err)
	}

	lg, err := log.New(logCfg.ToOptions(v.AppName))
	if err != nil {
		return fmt.Errorf("logger init: %w", err)
	}
	defer func() { _ = lg.Sync() }()

	L := lg.With("component", vi.Component)
	ctx = log.WithContext(ctx, L)

	L.Info(ctx, "initializing application",
		"version", vi.Version,
		"commit", vi.Commit,
		"build_id", vi.BuildId,
		"go_version", vi.GoVersion,
		"http_port", appCfg.APIPort,
		"admin_port", opsCfg.Port,
		"tick_interval", appCfg.TickInterval(),
		"recency_window", appCfg.RecencyWindow(),
		"speed_threshold", appCfg.SpeedThreshold,
		"anomaly_weight", appCfg.AnomalyWeight,
		"contamination", appCfg.Contamination,
		"zones", len(layout.Zones),
		"boundary", layout.Boundary.Name,
		"boundary_vertices", len(layout.Boundary.Vertices),
		"enable_pyroscope", profCfg.EnablePyroscope,
		"enable_tracing", traceCfg.EnableTracing,
		"otlp_endpoint", traceCfg.OTLPEndpoint,
		"auth_enabled", appCfg.APIToken != "",
	)

	// profiling first so the whole lifetime is covered
	profOpts := profCfg.ToOptions()
	profOpts.AppName = v.AppName
	profOpts.Tags = map[string]string{
		"app":       v.AppName,
		"component": v.Component,
		"version":   vi.Version,
		"commit":    vi.Commit,
		"build_id":  vi.BuildId,
	}
	stopProf, profErr := prof.Start(ctx, profOpts)
	if profErr != nil {
		L.Error(ctx, profErr, "pyroscope start failed", "pyro_server", profCfg.PyroServer)
	}
	if stopProf == nil {
		stopProf = func() {}
	}
	stopProf = sync.OnceFunc(stopProf)
	defer stopProf()

	traceOpts := traceCfg.ToOptions()
	traceOpts.Service = v.AppName
	traceOpts.Component = v.Component
	traceOpts.Version = v.Version
	shutdownOtelx, err := otelx.Init(ctx, traceOpts)
	if err != nil {
		L.Error(ctx, err, "otel init failed")
	}
	if shutdownOtelx == nil {
		shutdownOtelx = func(context.Context) error { return nil }
	}
	defer func() { _ = shutdownOtelx(context.Background()) }()

	// link tick spans to the profiles captured while they ran
	profilingActive := profErr == nil && profCfg.EnablePyroscope
	if profilingActive {
		otel.SetTracerProvider(otelpyroscope.NewTracerProvider(otel.GetTracerProvider()))
	}

	m := metrics.New()
	m.SetBuildInfoFromVersion(v.AppName, component, &vi)
	m.SetProfilingActive(profilingActive)

	store, closeStore, err := openStore(ctx, appCfg, L, m.Registry())
	if err != nil {
		return err
	}
	defer closeStore()

	monitorMetrics := monitor.NewMetrics(m.Registry())

	scorer := &risk.Scorer{
		SpeedThreshold: appCfg.SpeedThreshold,
		AnomalyWeight:  appCfg.AnomalyWeight,
		Zones:          layout.Zones,
	}

	var notifier alerting.Notifier
	if appCfg.SlackWebhookURL != "" {
		notifier = slack.New(appCfg.SlackWebhookURL)
		L.Info(ctx, "notifier enabled", "type", "slack")
	}

	params := anomaly.DefaultParams()
	params.Contamination = appCfg.Contamination
	params.Seed = appCfg.AnomalySeed

	monCfg := monitor.DefaultConfig()
	monCfg.TickInterval = appCfg.TickInterval()
	monCfg.Calibration = motion.Calibration{K: appCfg.MotionK, Reference: time.Minute}
	monCfg.Anomaly = params

	svc := monitor.NewService(monitor.Deps{
		Registry: vessel.NewRegistry(),
		Store:    store,
		Detector: anomaly.NewIsolationForest(),
		Scorer:   scorer,
		Engine: &alerting.Engine{
			SpeedThreshold: appCfg.SpeedThreshold,
			BoundaryName:   layout.Boundary.Name,
			RecencyWindow:  appCfg.RecencyWindow(),
			ZoneFor:        scorer.ZoneFor,
		},
		Window:   alerting.NewWindow(),
		Boundary: layout.Boundary,
		Notifier: notifier,
		Clock:    timeutil.RealClock{},
		Logger:   L.With("subsystem", "monitor"),
		Hooks:    monitorMetrics.Hooks(),
	}, monCfg)

	loaded, err := svc.Load(ctx)
	if err != nil {
		return err
	}
	L.Info(ctx, "loaded vessels", "count", loaded)
	if loaded == 0 && appCfg.SeedDemo {
		svc.SeedDemo(ctx)
	}

	// ready gate flips to draining on shutdown so the LB stops routing here
	var shutdownGate health.ShutdownGate
	readiness := health.All(shutdownGate.Probe())
	liveness := health.Fixed(true, "")

	opsOpts := opsCfg.ToOptions()
	opsOpts.Metrics = m.Handler()
	opsOpts.Health = liveness
	opsOpts.Readiness = readiness
	opsOpts.UseRecoverMW = true
	opsOpts.OnPanic = m.IncHttpPanic

	opsHTTPStop, err := opshttp.Start(ctx, L, opsOpts)
	if err != nil {
		L.Error(ctx, err, "failed to start ops http listener")
		return err
	}
	defer func() {
		if err := opsHTTPStop(context.Background()); err != nil {
			L.Error(ctx, err, "failed to stop ops http listener")
		}
	}()

	api := vesselapi.New(L, svc)
	h := newHandler(L, httpmwCfg, m.Middleware, func(r chi.Router) {
		r.Get("/-/healthy", health.HealthzHandler(liveness))
		r.Get("/-/ready", health.ReadyzHandler(readiness))
		api.RegisterRoutes(r, appCfg.APIToken)
	})

	apiOpts, err := httpCfg.ToOptions()
	if err != nil {
		L.Error(ctx, err, "invalid http config")
		return err
	}
	apiHTTPStop, err := httpserver.Start(ctx, fmt.Sprintf(":%d", appCfg.APIPort), h, L, apiOpts)
	if err != nil {
		L.Error(ctx, err, "failed to start api http listener")
		return err
	}
	defer func() {
		if err := apiHTTPStop(context.Background()); err != nil {
			L.Error(ctx, err, "failed to stop api http listener")
		}
	}()

	// periodic ticks stop with ctx; an in-flight tick finishes first
	schedulerDone := make(chan struct{})
	go func() {
		defer close(schedulerDone)
		svc.Run(ctx)
	}()

	if err := notifySystemd(); err != nil {
		// systemd kills us after its timeout if this really mattered
		L.Warn(ctx, "failed to notify systemd of readiness", "error", err)
	}

	<-ctx.Done()
	bg := context.Background()
	L.Info(bg, "shutdown signal received")

	shutdownGate.Set("draining")
	L.Info(bg, "shutdown gate closed")
	drain(L, time.Duration(appCfg.DrainSeconds)*time.Second)

	stopFns := []stopFn{
		{"api http server", apiHTTPStop},
		{"tick scheduler", func(ctx context.Context) error {
			select {
			case <-schedulerDone:
			case <-ctx.Done():
				return ctx.Err()
			}
			return waitCtx(ctx, svc.Wait)
		}},
		{"ops http server", opsHTTPStop},
		{"otel", shutdownOtelx},
	}
	shutdown(L, time.Duration(appCfg.ShutdownBudgetSeconds)*time.Second, stopFns)
	stopProf()

	L.Info(bg, "shutdown complete")
	return nil
}
