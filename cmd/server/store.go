package main

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/linnemanlabs/go-core/log"

	vc "github.com/linnemanlabs/vesselwatch/internal/cfg"
	"github.com/linnemanlabs/vesselwatch/internal/postgres"
	"github.com/linnemanlabs/vesselwatch/internal/vessel"
	"github.com/linnemanlabs/vesselwatch/internal/vessel/memstore"
	"github.com/linnemanlabs/vesselwatch/internal/vessel/pgstore"
	"github.com/linnemanlabs/vesselwatch/internal/vessel/sqlitestore"
)

// openStore picks the persistence backend: postgres when a database URL is
// set, sqlite when a file path is set, otherwise in-memory. The returned
// close func is always non-nil.
func openStore(ctx context.Context, appCfg vc.Config, L log.Logger, reg prometheus.Registerer) (vessel.Store, func(), error) {
	switch {
	case appCfg.DatabaseURL != "":
		dbQueryDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vesselwatch_db_query_duration_seconds",
			Help:    "Duration of individual database queries.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "outcome"})
		reg.MustRegister(dbQueryDuration)
		postgres.SetQueryObserver(postgres.QueryObserverFunc(
			func(_ context.Context, method, route, outcome string, dur time.Duration) {
				dbQueryDuration.WithLabelValues(method, route, outcome).Observe(dur.Seconds())
			},
		))

		pool, err := postgres.NewPool(ctx, appCfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("postgres pool: %w", err)
		}
		st, err := pgstore.New(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("pgstore init: %w", err)
		}
		L.Info(ctx, "using postgres store")
		return st, pool.Close, nil

	case appCfg.SQLitePath != "":
		st, err := sqlitestore.Open(ctx, appCfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("sqlite store: %w", err)
		}
		L.Info(ctx, "using sqlite store", "path", appCfg.SQLitePath)
		return st, func() {
			if err := st.Close(); err != nil {
				L.Error(context.Background(), err, "failed to close sqlite store")
			}
		}, nil

	default:
		L.Info(ctx, "using in-memory store (no database-url or sqlite-path configured)")
		return memstore.New(), func() {}, nil
	}
}
