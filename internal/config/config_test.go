package config

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/statkeeper/statkeeper/internal/stats"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "statkeeper.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	for _, path := range []string{"", filepath.Join(t.TempDir(), "absent.yaml")} {
		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("Load(%q): %v", path, err)
		}
		if cfg.SavePath != stats.DefaultPath {
			t.Errorf("SavePath = %q, want %q", cfg.SavePath, stats.DefaultPath)
		}
		if cfg.SaveInterval != time.Minute {
			t.Errorf("SaveInterval = %v, want 1m", cfg.SaveInterval)
		}
		if !slices.Equal(cfg.LastDays, []int{7, 30, 90}) {
			t.Errorf("LastDays = %v, want [7 30 90]", cfg.LastDays)
		}
		if cfg.Tracking != AllTracking() {
			t.Errorf("Tracking = %+v, want all enabled", cfg.Tracking)
		}
		if cfg.Debug || cfg.DashboardAddr != "" || cfg.ArchiveDB != "" {
			t.Errorf("optional features enabled by default: %+v", cfg)
		}
	}
}

func TestLoad_ValidYAML(t *testing.T) {
	path := writeConfig(t, `
debug: true
save_path: /var/lib/statkeeper/stats.json
save_interval: 30s
last_days: [1, 7, 30, 7]
tracking:
  kills: false
  micro_hid_kills: false
do_not_track:
  - 76561198000000000@steam
dashboard_addr: 127.0.0.1:8088
archive_db: stats.db
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Debug {
		t.Error("Debug = false, want true")
	}
	if cfg.SavePath != "/var/lib/statkeeper/stats.json" {
		t.Errorf("SavePath = %q", cfg.SavePath)
	}
	if cfg.SaveInterval != 30*time.Second {
		t.Errorf("SaveInterval = %v, want 30s", cfg.SaveInterval)
	}
	if !slices.Equal(cfg.LastDays, []int{1, 7, 30}) {
		t.Errorf("LastDays = %v, want [1 7 30]", cfg.LastDays)
	}
	if cfg.Tracking.Kills || cfg.Tracking.MicroHidKills {
		t.Errorf("disabled toggles still on: %+v", cfg.Tracking)
	}
	if !cfg.Tracking.Deaths || !cfg.Tracking.Playtime {
		t.Errorf("unset toggles lost their default: %+v", cfg.Tracking)
	}
	if !cfg.Excluded("76561198000000000@steam") || cfg.Excluded("someone-else") {
		t.Error("Excluded does not follow do_not_track")
	}
	if cfg.DashboardAddr != "127.0.0.1:8088" || cfg.ArchiveDB != "stats.db" {
		t.Errorf("DashboardAddr = %q ArchiveDB = %q", cfg.DashboardAddr, cfg.ArchiveDB)
	}
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	path := writeConfig(t, `
save_path: from-file.json
last_days: [7]
`)
	t.Setenv("STATKEEPER_SAVE_PATH", "from-env.json")
	t.Setenv("STATKEEPER_LAST_DAYS", "3,14")
	t.Setenv("STATKEEPER_TRACKING_DEATHS", "false")
	t.Setenv("STATKEEPER_DO_NOT_TRACK", "a,b")
	t.Setenv("STATKEEPER_SAVE_INTERVAL", "2m")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.SavePath != "from-env.json" {
		t.Errorf("SavePath = %q, want from-env.json", cfg.SavePath)
	}
	if !slices.Equal(cfg.LastDays, []int{3, 14}) {
		t.Errorf("LastDays = %v, want [3 14]", cfg.LastDays)
	}
	if cfg.Tracking.Deaths {
		t.Error("Tracking.Deaths = true, want false")
	}
	if !cfg.Excluded("a") || !cfg.Excluded("b") {
		t.Error("env do_not_track not applied")
	}
	if cfg.SaveInterval != 2*time.Minute {
		t.Errorf("SaveInterval = %v, want 2m", cfg.SaveInterval)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, `{{{invalid`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestLoad_RejectsNonPositiveWindow(t *testing.T) {
	path := writeConfig(t, `last_days: [7, 0]`)
	_, err := Load(path)
	if !errors.Is(err, stats.ErrInvalidWindow) {
		t.Fatalf("Load error = %v, want ErrInvalidWindow", err)
	}
}

func TestLoad_RejectsNonPositiveInterval(t *testing.T) {
	path := writeConfig(t, `save_interval: -5s`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for negative save_interval")
	}
}

func TestTrackingEnabled(t *testing.T) {
	tr := AllTracking()
	tr.ScpKills = false

	tests := []struct {
		metric string
		want   bool
	}{
		{MetricPlayTime, true},
		{MetricScpKills, false},
		{MetricKills, true},
		{"CustomMetric", true},
	}
	for _, tt := range tests {
		if got := tr.Enabled(tt.metric); got != tt.want {
			t.Errorf("Enabled(%q) = %v, want %v", tt.metric, got, tt.want)
		}
	}
	if (Tracking{}).Enabled(MetricDeaths) {
		t.Error("zero Tracking should disable Deaths")
	}
}
