package cfg

import (
	"flag"
	"math"
	"strings"
	"testing"
	"time"
)

// validBase returns a Config with all fields set to valid values.
func validBase() Config {
	return Config{
		DrainSeconds:          60,
		ShutdownBudgetSeconds: 90,
		APIPort:               8080,
		TickIntervalSeconds:   60,
		RecencyWindowSeconds:  300,
		SpeedThreshold:        12,
		AnomalyWeight:         30,
		Contamination:         0.1,
		AnomalySeed:           42,
		MotionK:               0.0001,
	}
}

func TestRegisterFlags_Defaults(t *testing.T) {
	t.Parallel()

	var c Config
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	c.RegisterFlags(fs)

	if err := fs.Parse(nil); err != nil {
		t.Fatalf("parse empty args: %v", err)
	}

	want := validBase()
	if c != want {
		t.Errorf("defaults = %+v, want %+v", c, want)
	}
	if err := c.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
	if c.TickInterval() != time.Minute {
		t.Errorf("TickInterval = %v, want 1m", c.TickInterval())
	}
	if c.RecencyWindow() != 5*time.Minute {
		t.Errorf("RecencyWindow = %v, want 5m", c.RecencyWindow())
	}
}

func TestRegisterFlags_Override(t *testing.T) {
	t.Parallel()

	var c Config
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	c.RegisterFlags(fs)

	args := []string{
		"-drain-seconds", "30",
		"-http-port", "9090",
		"-api-token", "tok",
		"-sqlite-path", "/var/lib/vesselwatch/vessels.db",
		"-tick-interval-seconds", "10",
		"-recency-window-seconds", "600",
		"-speed-threshold", "14.5",
		"-anomaly-weight", "20",
		"-contamination", "0.2",
		"-anomaly-seed", "7",
		"-motion-k", "0.0002",
		"-layout-file", "layout.yaml",
		"-boundary-shapefile", "eez.shp",
		"-seed-demo",
	}
	if err := fs.Parse(args); err != nil {
		t.Fatalf("parse args: %v", err)
	}

	if c.DrainSeconds != 30 || c.APIPort != 9090 || c.APIToken != "tok" {
		t.Errorf("server fields not overridden: %+v", c)
	}
	if c.SQLitePath != "/var/lib/vesselwatch/vessels.db" {
		t.Errorf("SQLitePath = %q", c.SQLitePath)
	}
	if c.TickIntervalSeconds != 10 || c.RecencyWindowSeconds != 600 {
		t.Errorf("timing fields not overridden: %+v", c)
	}
	if c.SpeedThreshold != 14.5 || c.AnomalyWeight != 20 || c.Contamination != 0.2 || c.AnomalySeed != 7 || c.MotionK != 0.0002 {
		t.Errorf("model fields not overridden: %+v", c)
	}
	if c.LayoutFile != "layout.yaml" || c.BoundaryShapefile != "eez.shp" || !c.SeedDemo {
		t.Errorf("geo fields not overridden: %+v", c)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	with := func(mod func(*Config)) Config {
		c := validBase()
		mod(&c)
		return c
	}

	tests := []struct {
		name      string
		cfg       Config
		wantErr   bool
		errSubstr []string // substrings that must appear in error message
	}{
		{"defaults are valid", validBase(), false, nil},
		{"drain zero", with(func(c *Config) { c.DrainSeconds = 0 }), true, []string{"DRAIN_SECONDS"}},
		{"drain above max", with(func(c *Config) { c.DrainSeconds = 301; c.ShutdownBudgetSeconds = 302 }), true, []string{"DRAIN_SECONDS"}},
		{"budget equals drain", with(func(c *Config) { c.ShutdownBudgetSeconds = 60 }), true, []string{"must be greater than"}},
		{"budget is drain plus one", with(func(c *Config) { c.ShutdownBudgetSeconds = 61 }), false, nil},
		{"port zero", with(func(c *Config) { c.APIPort = 0 }), true, []string{"HTTP_PORT"}},
		{"port above max", with(func(c *Config) { c.APIPort = 65536 }), true, []string{"HTTP_PORT"}},
		{"both stores", with(func(c *Config) { c.DatabaseURL = "postgres://x"; c.SQLitePath = "x.db" }), true, []string{"mutually exclusive"}},
		{"postgres only", with(func(c *Config) { c.DatabaseURL = "postgres://x" }), false, nil},
		{"tick zero", with(func(c *Config) { c.TickIntervalSeconds = 0 }), true, []string{"TICK_INTERVAL_SECONDS"}},
		{"tick above max", with(func(c *Config) { c.TickIntervalSeconds = 3601 }), true, []string{"TICK_INTERVAL_SECONDS"}},
		{"recency zero", with(func(c *Config) { c.RecencyWindowSeconds = 0 }), true, []string{"RECENCY_WINDOW_SECONDS"}},
		{"speed negative", with(func(c *Config) { c.SpeedThreshold = -1 }), true, []string{"SPEED_THRESHOLD"}},
		{"speed nan", with(func(c *Config) { c.SpeedThreshold = math.NaN() }), true, []string{"SPEED_THRESHOLD"}},
		{"speed at max", with(func(c *Config) { c.SpeedThreshold = 25 }), false, nil},
		{"weight negative", with(func(c *Config) { c.AnomalyWeight = -1 }), true, []string{"ANOMALY_WEIGHT"}},
		{"weight above max", with(func(c *Config) { c.AnomalyWeight = 101 }), true, []string{"ANOMALY_WEIGHT"}},
		{"contamination zero", with(func(c *Config) { c.Contamination = 0 }), true, []string{"CONTAMINATION"}},
		{"contamination at max", with(func(c *Config) { c.Contamination = 0.5 }), false, nil},
		{"contamination above max", with(func(c *Config) { c.Contamination = 0.51 }), true, []string{"CONTAMINATION"}},
		{"motion k negative", with(func(c *Config) { c.MotionK = -0.1 }), true, []string{"MOTION_K"}},
		{"motion k inf", with(func(c *Config) { c.MotionK = math.Inf(1) }), true, []string{"MOTION_K"}},
		{"motion k zero freezes tracks", with(func(c *Config) { c.MotionK = 0 }), false, nil},
		{
			name:      "all fields invalid",
			cfg:       Config{Contamination: math.NaN(), MotionK: math.NaN(), AnomalyWeight: -1, SpeedThreshold: -1},
			wantErr:   true,
			errSubstr: []string{"DRAIN_SECONDS", "SHUTDOWN_BUDGET_SECONDS", "HTTP_PORT", "TICK_INTERVAL_SECONDS", "RECENCY_WINDOW_SECONDS", "SPEED_THRESHOLD", "ANOMALY_WEIGHT", "CONTAMINATION", "MOTION_K"},
		},
		{
			name:      "extreme negative values",
			cfg:       with(func(c *Config) { c.DrainSeconds, c.ShutdownBudgetSeconds, c.APIPort = math.MinInt32, math.MinInt32, math.MinInt32 }),
			wantErr:   true,
			errSubstr: []string{"DRAIN_SECONDS", "SHUTDOWN_BUDGET_SECONDS", "HTTP_PORT"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				errMsg := err.Error()
				for _, sub := range tt.errSubstr {
					if !strings.Contains(errMsg, sub) {
						t.Errorf("error %q does not contain %q", errMsg, sub)
					}
				}
			}
		})
	}
}

func FuzzValidate(f *testing.F) {
	seeds := []struct {
		drain, budget, port, tick, recency, weight int
		speed, contamination, k                    float64
	}{
		{60, 90, 8080, 60, 300, 30, 12, 0.1, 0.0001},
		{1, 2, 1, 1, 1, 0, 0, 0.5, 0},
		{300, 300, 65535, 3600, 86400, 100, 25, 0.01, 1},
		{0, 0, 0, 0, 0, -1, -1, 0, -1},
		{math.MaxInt32, math.MaxInt32, math.MaxInt32, math.MaxInt32, math.MaxInt32, math.MaxInt32, math.Inf(1), math.Inf(1), math.Inf(1)},
	}
	for _, s := range seeds {
		f.Add(s.drain, s.budget, s.port, s.tick, s.recency, s.weight, s.speed, s.contamination, s.k)
	}

	f.Fuzz(func(t *testing.T, drain, budget, port, tick, recency, weight int, speed, contamination, k float64) {
		c := Config{
			DrainSeconds:          drain,
			ShutdownBudgetSeconds: budget,
			APIPort:               port,
			TickIntervalSeconds:   tick,
			RecencyWindowSeconds:  recency,
			AnomalyWeight:         weight,
			SpeedThreshold:        speed,
			Contamination:         contamination,
			MotionK:               k,
		}
		err := c.Validate()

		allValid := drain >= 1 && drain <= 300 &&
			budget >= 1 && budget <= 300 && budget > drain &&
			port >= 1 && port <= 65535 &&
			tick >= 1 && tick <= 3600 &&
			recency >= 1 && recency <= 86400 &&
			weight >= 0 && weight <= 100 &&
			speed >= 0 && speed <= 25 &&
			contamination > 0 && contamination <= 0.5 &&
			k >= 0 && !math.IsInf(k, 0)

		if allValid && err != nil {
			t.Errorf("expected no error for valid config %+v, got: %v", c, err)
		}
		if !allValid && err == nil {
			t.Errorf("expected error for invalid config %+v, got nil", c)
		}
	})
}
