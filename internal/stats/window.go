package stats

import "time"

// DayLayout is the format of daily bucket keys (UTC calendar days).
const DayLayout = "2006-01-02"

// CalendarWeek is the window size that GetLastDays* answers with the
// Monday-to-Sunday week containing today instead of a trailing span.
const CalendarWeek = 7

// pruneSlack is how many days past the largest window a bucket survives.
const pruneSlack = 2

// DayKey returns the bucket key for the UTC calendar day containing t.
func DayKey(t time.Time) string {
	return t.UTC().Format(DayLayout)
}

// ParseDayKey parses a bucket key. Malformed keys report false.
func ParseDayKey(key string) (time.Time, bool) {
	t, err := time.Parse(DayLayout, key)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// span is the half-open day range [from, to).
type span struct {
	from, to time.Time
}

func (s span) contains(t time.Time) bool {
	return !t.Before(s.from) && t.Before(s.to)
}

// lastDays covers [today-(days-1), today].
func lastDays(now time.Time, days int) span {
	today := startOfDay(now)
	return span{from: today.AddDate(0, 0, -(days - 1)), to: today.AddDate(0, 0, 1)}
}

// currentWeek covers the ISO week (Monday start) containing now.
func currentWeek(now time.Time) span {
	today := startOfDay(now)
	offset := (int(today.Weekday()) + 6) % 7
	start := today.AddDate(0, 0, -offset)
	return span{from: start, to: start.AddDate(0, 0, 7)}
}

func sumSpan[T number](daily map[string]T, s span) T {
	var total T
	for key, v := range daily {
		t, ok := ParseDayKey(key)
		if !ok || !s.contains(t) {
			continue
		}
		total += v
	}
	return total
}

// prune drops buckets more than keep days older than today. Malformed keys
// are left alone.
func prune[T number](daily map[string]T, now time.Time, keep int) {
	cutoff := startOfDay(now).AddDate(0, 0, -keep)
	for key := range daily {
		t, ok := ParseDayKey(key)
		if ok && t.Before(cutoff) {
			delete(daily, key)
		}
	}
}

// retention returns the number of days a bucket is kept for the given
// window sizes.
func retention(windows []int) int {
	largest := CalendarWeek
	if len(windows) > 0 {
		largest = windows[0]
		for _, w := range windows[1:] {
			largest = max(largest, w)
		}
	}
	return largest + pruneSlack
}
