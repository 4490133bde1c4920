package report

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/statkeeper/statkeeper/internal/stats"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestStore(t *testing.T, now *time.Time) *stats.Store {
	t.Helper()
	s, err := stats.New(stats.Options{
		Path:     filepath.Join(t.TempDir(), "player_stats.json"),
		LastDays: []int{7, 30},
		Now:      func() time.Time { return *now },
	}, testLogger())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "0 seconds"},
		{-time.Minute, "0 seconds"},
		{59*time.Second + 900*time.Millisecond, "59 seconds"},
		{61 * time.Second, "1 minutes 1 seconds"},
		{time.Hour, "1 hours 0 minutes 0 seconds"},
		{26*time.Hour + 3*time.Minute + 4*time.Second, "1 days 2 hours 3 minutes 4 seconds"},
		{400 * 24 * time.Hour, "400 days 0 hours 0 minutes 0 seconds"},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.in); got != tt.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestKDRatio(t *testing.T) {
	if got := KDRatio(7, 0); got != 7 {
		t.Errorf("KDRatio(7, 0) = %v, want 7", got)
	}
	if got := KDRatio(7, 2); got != 3.5 {
		t.Errorf("KDRatio(7, 2) = %v, want 3.5", got)
	}
}

func TestStatSheet(t *testing.T) {
	now := time.Date(2026, time.October, 1, 12, 0, 0, 0, time.UTC)
	s := newTestStore(t, &now)
	s.ModifyCounter("u1", "Kills", 4)
	now = time.Date(2026, time.October, 14, 12, 0, 0, 0, time.UTC)
	s.ModifyCounter("u1", "Kills", 3)
	s.ModifyCounter("u1", "Deaths", 2)
	s.AddDuration("u1", "TotalPlayTime", time.Hour+time.Minute+time.Second)
	s.SetDuration("u1", "Idle", 0)

	e, _ := s.GetOrCreate("u1")
	got := StatSheet("Alice", "u1", e, []int{30, 7, 30}, s)
	want := strings.Join([]string{
		"Alice's Stats:",
		"Basic stats:",
		"- Deaths: 2",
		"- Kills: 7",
		"- Idle: 0 seconds",
		"- TotalPlayTime: 1 hours 1 minutes 1 seconds",
		"- K/D ratio: 3.50",
		"",
		"Last 7 Days:",
		"  - Deaths: 2",
		"  - Kills: 3",
		"  * TotalPlayTime: 1 hours 1 minutes 1 seconds",
		"",
		"Last 30 Days:",
		"  - Deaths: 2",
		"  - Kills: 7",
		"  * TotalPlayTime: 1 hours 1 minutes 1 seconds",
	}, "\n")
	if got != want {
		t.Errorf("StatSheet mismatch\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestStatSheetWindowMessages(t *testing.T) {
	now := time.Date(2026, time.October, 14, 12, 0, 0, 0, time.UTC)
	s := newTestStore(t, &now)

	empty, _ := s.GetOrCreate("nobody")
	if got := StatSheet("nobody", "nobody", empty, []int{7}, s); !strings.HasSuffix(got, noStatsLine) {
		t.Errorf("empty entry sheet = %q, want suffix %q", got, noStatsLine)
	}

	s.ModifyCounter("u1", "Kills", 1)
	e, _ := s.GetOrCreate("u1")
	if got := StatSheet("u1", "u1", e, nil, s); !strings.HasSuffix(got, noWindowsLine) {
		t.Errorf("no-window sheet = %q, want suffix %q", got, noWindowsLine)
	}
	if got := StatSheet("u1", "u1", e, []int{0, -2}, s); !strings.HasSuffix(got, noStatsLine) {
		t.Errorf("non-positive windows sheet = %q, want suffix %q", got, noStatsLine)
	}
	if got := StatSheet("u1", "u1", e, nil, s); strings.Contains(got, "K/D") {
		t.Errorf("sheet without deaths shows a K/D ratio: %q", got)
	}
}

func TestBoards(t *testing.T) {
	rows := []stats.Ranked[int64]{
		{Identity: "a", Value: 12345},
		{Identity: "b", Value: 7},
	}
	got := CounterBoard("Kills", rows)
	lines := strings.Split(got, "\n")
	if len(lines) != 3 || lines[0] != "Top Kills:" {
		t.Fatalf("CounterBoard = %q", got)
	}
	if !strings.Contains(lines[1], "1st") || !strings.Contains(lines[1], "12,345") {
		t.Errorf("first line = %q, want rank 1st and 12,345", lines[1])
	}
	if !strings.Contains(lines[2], "2nd") || !strings.HasSuffix(lines[2], " 7") {
		t.Errorf("second line = %q", lines[2])
	}

	dur := DurationBoard("TotalPlayTime", []stats.Ranked[time.Duration]{{Identity: "a", Value: 90 * time.Second}})
	if !strings.HasSuffix(dur, "1 minutes 30 seconds") {
		t.Errorf("DurationBoard = %q", dur)
	}

	if got := CounterBoard("Kills", nil); got != "Top Kills: (no stats tracked yet)" {
		t.Errorf("empty board = %q", got)
	}
}
