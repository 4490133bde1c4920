package report

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/statkeeper/statkeeper/internal/config"
	"github.com/statkeeper/statkeeper/internal/stats"
)

const (
	noWindowsLine = "Last X Days: (disabled / not configured)"
	noStatsLine   = "Last X Days: (no stats tracked yet)"
)

// Windows answers the "last N days" queries of a stat sheet. *stats.Store
// implements it.
type Windows interface {
	GetLastDaysCounter(identity, name string, days int) (int64, error)
	GetLastDaysDuration(identity, name string, days int) (time.Duration, error)
}

// FormatDuration spells out d in days, hours, minutes and seconds, leaving
// out leading units that are zero.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int64(d / time.Second)
	days := secs / 86400
	hours := secs / 3600 % 24
	minutes := secs / 60 % 60
	seconds := secs % 60

	switch {
	case days > 0:
		return fmt.Sprintf("%d days %d hours %d minutes %d seconds", days, hours, minutes, seconds)
	case hours > 0:
		return fmt.Sprintf("%d hours %d minutes %d seconds", hours, minutes, seconds)
	case minutes > 0:
		return fmt.Sprintf("%d minutes %d seconds", minutes, seconds)
	}
	return fmt.Sprintf("%d seconds", seconds)
}

// KDRatio is kills per death, or kills when there are no deaths.
func KDRatio(kills, deaths int64) float64 {
	if deaths == 0 {
		return float64(kills)
	}
	return float64(kills) / float64(deaths)
}

// StatSheet renders the stat listing for one entry: all-time counters and
// durations in name order, the K/D ratio when there are deaths, then one
// block per distinct positive window in ascending order.
func StatSheet(name, identity string, e *stats.Entry, windows []int, src Windows) string {
	lines := []string{name + "'s Stats:", "Basic stats:"}

	counters := e.CounterNames()
	durations := e.DurationNames()
	for _, c := range counters {
		lines = append(lines, fmt.Sprintf("- %s: %d", c, e.GetCounter(c)))
	}
	for _, d := range durations {
		lines = append(lines, fmt.Sprintf("- %s: %s", d, FormatDuration(e.GetDuration(d))))
	}
	if deaths := e.GetCounter(config.MetricDeaths); deaths > 0 {
		kd := KDRatio(e.GetCounter(config.MetricKills), deaths)
		lines = append(lines, fmt.Sprintf("- K/D ratio: %.2f", kd))
	}
	lines = append(lines, "")

	if len(windows) == 0 {
		lines = append(lines, noWindowsLine)
		return strings.Join(lines, "\n")
	}

	ordered := distinctPositive(windows)
	if len(ordered) == 0 || (len(counters) == 0 && len(durations) == 0) {
		lines = append(lines, noStatsLine)
		return strings.Join(lines, "\n")
	}

	for _, days := range ordered {
		lines = append(lines, fmt.Sprintf("Last %d Days:", days))
		for _, c := range counters {
			v, err := src.GetLastDaysCounter(identity, c, days)
			if err != nil {
				continue
			}
			lines = append(lines, fmt.Sprintf("  - %s: %d", c, v))
		}
		for _, d := range durations {
			v, err := src.GetLastDaysDuration(identity, d, days)
			if err != nil || v <= 0 {
				continue
			}
			lines = append(lines, fmt.Sprintf("  * %s: %s", d, FormatDuration(v)))
		}
		lines = append(lines, "")
	}

	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, "\n")
}

func distinctPositive(windows []int) []int {
	out := make([]int, 0, len(windows))
	for _, d := range windows {
		if d > 0 && !slices.Contains(out, d) {
			out = append(out, d)
		}
	}
	slices.Sort(out)
	return out
}

// CounterBoard renders a counter leaderboard, one ranked line per row.
func CounterBoard(metric string, rows []stats.Ranked[int64]) string {
	return board(metric, rows, humanize.Comma)
}

// DurationBoard renders a duration leaderboard.
func DurationBoard(metric string, rows []stats.Ranked[time.Duration]) string {
	return board(metric, rows, FormatDuration)
}

func board[K int64 | time.Duration](metric string, rows []stats.Ranked[K], format func(K) string) string {
	if len(rows) == 0 {
		return fmt.Sprintf("Top %s: (no stats tracked yet)", metric)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Top %s:", metric)
	for i, r := range rows {
		fmt.Fprintf(&b, "\n%5s  %-32s %s", humanize.Ordinal(i+1), r.Identity, format(r.Value))
	}
	return b.String()
}
