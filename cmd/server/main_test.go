package main

import (
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/linnemanlabs/go-core/log"

	vc "github.com/linnemanlabs/vesselwatch/internal/cfg"
	"github.com/linnemanlabs/vesselwatch/internal/geo"
)

func TestNotifySystemd_NoSocket(t *testing.T) {
	t.Setenv("NOTIFY_SOCKET", "")

	err := notifySystemd()
	if err == nil || !strings.Contains(err.Error(), "NOTIFY_SOCKET not set") {
		t.Errorf("err = %v, want NOTIFY_SOCKET not set", err)
	}
}

func TestNotifySystemd_InvalidPath(t *testing.T) {
	t.Setenv("NOTIFY_SOCKET", filepath.Join(t.TempDir(), "nonexistent.sock"))

	err := notifySystemd()
	if err == nil || !strings.Contains(err.Error(), "dial failed") {
		t.Errorf("err = %v, want dial failed", err)
	}
}

func TestNotifySystemd_Success(t *testing.T) {
	sockPath := filepath.Join(t.TempDir(), "notify.sock")

	var lc net.ListenConfig
	conn, err := lc.ListenPacket(context.Background(), "unixgram", sockPath)
	if err != nil {
		t.Fatalf("listen unixgram: %v", err)
	}
	defer func() { _ = conn.Close() }()

	t.Setenv("NOTIFY_SOCKET", sockPath)
	if err := notifySystemd(); err != nil {
		t.Fatalf("notifySystemd() = %v, want nil", err)
	}

	buf := make([]byte, 64)
	n, _, err := conn.ReadFrom(buf)
	if err != nil {
		t.Fatalf("read from socket: %v", err)
	}
	if got := string(buf[:n]); got != "READY=1" {
		t.Errorf("payload = %q, want READY=1", got)
	}
}

func TestLoadLayout(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	good := filepath.Join(dir, "layout.yaml")
	if err := os.WriteFile(good, []byte(`
zones:
  - name: bab_el_mandeb
    label: Bab-el-Mandeb
    min_lat: 12
    max_lat: 13.5
    min_lon: 42.5
    max_lon: 44
`), 0o600); err != nil {
		t.Fatal(err)
	}
	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("zones:\n  - name: x\n    min_lat: 10\n    max_lat: 5\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Run("defaults", func(t *testing.T) {
		t.Parallel()
		l, err := loadLayout(vc.Config{})
		if err != nil {
			t.Fatalf("loadLayout: %v", err)
		}
		if len(l.Zones) != len(geo.DefaultZones()) || l.Boundary.Name != geo.DefaultBoundaryName {
			t.Errorf("layout = %+v", l)
		}
	})
	t.Run("file", func(t *testing.T) {
		t.Parallel()
		l, err := loadLayout(vc.Config{LayoutFile: good})
		if err != nil {
			t.Fatalf("loadLayout: %v", err)
		}
		if len(l.Zones) != 1 || l.Zones[0].Label != "Bab-el-Mandeb" {
			t.Errorf("zones = %+v", l.Zones)
		}
		if len(l.Boundary.Vertices) == 0 {
			t.Error("boundary should fall back to the default")
		}
	})
	t.Run("invalid file", func(t *testing.T) {
		t.Parallel()
		if _, err := loadLayout(vc.Config{LayoutFile: bad}); err == nil {
			t.Error("expected error for inverted zone bounds")
		}
	})
	t.Run("missing shapefile", func(t *testing.T) {
		t.Parallel()
		if _, err := loadLayout(vc.Config{BoundaryShapefile: filepath.Join(dir, "nope.shp")}); err == nil {
			t.Error("expected error for missing shapefile")
		}
	})
}

func TestShutdown_RunsInOrderWithinBudget(t *testing.T) {
	t.Parallel()

	var order []string
	fns := []stopFn{
		{"first", func(context.Context) error { order = append(order, "first"); return nil }},
		{"slow", func(ctx context.Context) error {
			order = append(order, "slow")
			<-ctx.Done()
			return ctx.Err()
		}},
		{"last", func(context.Context) error { order = append(order, "last"); return errors.New("ignored") }},
	}

	start := time.Now()
	shutdown(log.Nop(), 300*time.Millisecond, fns)
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("shutdown took %v", elapsed)
	}
	if strings.Join(order, ",") != "first,slow,last" {
		t.Errorf("order = %v", order)
	}
}

func TestWaitCtx(t *testing.T) {
	t.Parallel()

	if err := waitCtx(context.Background(), func() {}); err != nil {
		t.Errorf("quick wait = %v", err)
	}

	block := make(chan struct{})
	defer close(block)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := waitCtx(ctx, func() { <-block }); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("blocked wait = %v, want deadline exceeded", err)
	}
}
