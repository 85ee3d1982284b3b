package cfg

import (
	"errors"
	"flag"
	"fmt"
	"math"
	"time"
)

// Config holds vesselwatch's application settings. It follows the same
// RegisterFlags/Validate contract as the go-core config structs.
type Config struct {
	DrainSeconds          int
	ShutdownBudgetSeconds int
	APIPort               int
	APIToken              string
	DatabaseURL           string
	SQLitePath            string
	SlackWebhookURL       string

	TickIntervalSeconds  int
	RecencyWindowSeconds int
	SpeedThreshold       float64
	AnomalyWeight        int
	Contamination        float64
	AnomalySeed          uint64
	MotionK              float64

	LayoutFile        string
	BoundaryShapefile string
	SeedDemo          bool
}

// RegisterFlags binds Config fields to the given FlagSet with defaults inline
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.DrainSeconds, "drain-seconds", 60, "seconds to wait for in-flight requests to drain before shutdown (1..300)")
	fs.IntVar(&c.ShutdownBudgetSeconds, "shutdown-budget-seconds", 90, "total seconds for component shutdown after drain (1..300)")
	fs.IntVar(&c.APIPort, "http-port", 8080, "API listen TCP port (1..65535)")
	fs.StringVar(&c.APIToken, "api-token", "", "bearer token required on mutating API routes (empty = open)")
	fs.StringVar(&c.DatabaseURL, "database-url", "", "PostgreSQL connection URL (empty = sqlite or in-memory store)")
	fs.StringVar(&c.SQLitePath, "sqlite-path", "", "SQLite database file (empty = in-memory store)")
	fs.StringVar(&c.SlackWebhookURL, "slack-webhook-url", "", "Slack webhook URL for new alert notifications")

	fs.IntVar(&c.TickIntervalSeconds, "tick-interval-seconds", 60, "seconds between periodic ticks (1..3600)")
	fs.IntVar(&c.RecencyWindowSeconds, "recency-window-seconds", 300, "seconds an alert stays recent after its triggering report (1..86400)")
	fs.Float64Var(&c.SpeedThreshold, "speed-threshold", 12, "knots above which speed alerts fire and risk increases (0..25)")
	fs.IntVar(&c.AnomalyWeight, "anomaly-weight", 30, "risk points added for anomaly outliers (0..100)")
	fs.Float64Var(&c.Contamination, "contamination", 0.1, "expected share of anomalous vessels per batch (0..0.5]")
	fs.Uint64Var(&c.AnomalySeed, "anomaly-seed", 42, "random seed for the anomaly detector")
	fs.Float64Var(&c.MotionK, "motion-k", 0.0001, "degrees moved per knot per 60s of elapsed time")

	fs.StringVar(&c.LayoutFile, "layout-file", "", "YAML file with risk zones and maritime boundary (empty = built-in)")
	fs.StringVar(&c.BoundaryShapefile, "boundary-shapefile", "", "ESRI shapefile whose first polygon replaces the boundary")
	fs.BoolVar(&c.SeedDemo, "seed-demo", false, "seed a demo fleet when the store is empty")
}

// TickInterval returns the tick interval as a duration.
func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.TickIntervalSeconds) * time.Second
}

// RecencyWindow returns the recency window as a duration.
func (c *Config) RecencyWindow() time.Duration {
	return time.Duration(c.RecencyWindowSeconds) * time.Second
}

// Validate checks all configuration fields for correctness.
// It returns an error if any field is invalid, or nil if all fields are valid.
func (c *Config) Validate() error {
	var errs []error

	// Drain and shutdown budgets
	if c.DrainSeconds <= 0 || c.DrainSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid DRAIN_SECONDS %d (must be 1..300)", c.DrainSeconds))
	}
	if c.ShutdownBudgetSeconds <= 0 || c.ShutdownBudgetSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid SHUTDOWN_BUDGET_SECONDS %d (must be 1..300)", c.ShutdownBudgetSeconds))
	}
	if c.ShutdownBudgetSeconds <= c.DrainSeconds {
		errs = append(errs, fmt.Errorf("SHUTDOWN_BUDGET_SECONDS %d must be greater than DRAIN_SECONDS %d", c.ShutdownBudgetSeconds, c.DrainSeconds))
	}

	if c.APIPort <= 0 || c.APIPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid HTTP_PORT %d (must be 1..65535)", c.APIPort))
	}

	// only one persistence backend
	if c.DatabaseURL != "" && c.SQLitePath != "" {
		errs = append(errs, errors.New("DATABASE_URL and SQLITE_PATH are mutually exclusive"))
	}

	if c.TickIntervalSeconds <= 0 || c.TickIntervalSeconds > 3600 {
		errs = append(errs, fmt.Errorf("invalid TICK_INTERVAL_SECONDS %d (must be 1..3600)", c.TickIntervalSeconds))
	}
	if c.RecencyWindowSeconds <= 0 || c.RecencyWindowSeconds > 86400 {
		errs = append(errs, fmt.Errorf("invalid RECENCY_WINDOW_SECONDS %d (must be 1..86400)", c.RecencyWindowSeconds))
	}
	if math.IsNaN(c.SpeedThreshold) || c.SpeedThreshold < 0 || c.SpeedThreshold > 25 {
		errs = append(errs, fmt.Errorf("invalid SPEED_THRESHOLD %v (must be 0..25)", c.SpeedThreshold))
	}
	if c.AnomalyWeight < 0 || c.AnomalyWeight > 100 {
		errs = append(errs, fmt.Errorf("invalid ANOMALY_WEIGHT %d (must be 0..100)", c.AnomalyWeight))
	}
	if math.IsNaN(c.Contamination) || c.Contamination <= 0 || c.Contamination > 0.5 {
		errs = append(errs, fmt.Errorf("invalid CONTAMINATION %v (must be in (0, 0.5])", c.Contamination))
	}
	if math.IsNaN(c.MotionK) || math.IsInf(c.MotionK, 0) || c.MotionK < 0 {
		errs = append(errs, fmt.Errorf("invalid MOTION_K %v (must be a finite value >= 0)", c.MotionK))
	}

	return errors.Join(errs...)
}
