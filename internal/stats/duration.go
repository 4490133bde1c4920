package stats

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

const day = 24 * time.Hour

// Duration is a time.Duration that encodes as "[-][d.]hh:mm:ss[.fffffffff]"
// inside snapshot files.
type Duration time.Duration

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(FormatDuration(time.Duration(d))), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// FormatDuration renders d in the snapshot text form. Days are only written
// when non-zero and the fraction only when there is one, with trailing zeros
// trimmed. ParseDuration(FormatDuration(d)) == d for every d.
func FormatDuration(d time.Duration) string {
	neg := d < 0
	u := uint64(d)
	if neg {
		u = uint64(-(d + 1)) + 1
	}

	days := u / uint64(day)
	u %= uint64(day)
	hours := u / uint64(time.Hour)
	u %= uint64(time.Hour)
	minutes := u / uint64(time.Minute)
	u %= uint64(time.Minute)
	seconds := u / uint64(time.Second)
	frac := u % uint64(time.Second)

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	if days > 0 {
		fmt.Fprintf(&b, "%d.", days)
	}
	fmt.Fprintf(&b, "%02d:%02d:%02d", hours, minutes, seconds)
	if frac > 0 {
		b.WriteByte('.')
		b.WriteString(strings.TrimRight(fmt.Sprintf("%09d", frac), "0"))
	}
	return b.String()
}

// ParseDuration reads the snapshot text form. Fractions of 1-9 digits are
// accepted, so tick-precision values (7 digits) load too. A bare integer is a
// day count. Anything else falls back to time.ParseDuration syntax ("1h2m3s").
func ParseDuration(s string) (time.Duration, error) {
	v := strings.TrimSpace(s)
	if v == "" {
		return 0, fmt.Errorf("parse duration %q: empty value", s)
	}
	if d, ok := parseClock(v); ok {
		return d, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", s, err)
	}
	return d, nil
}

func parseClock(v string) (time.Duration, bool) {
	neg := strings.HasPrefix(v, "-")
	if neg {
		v = v[1:]
	}

	var days uint64
	clock := v
	colon := strings.IndexByte(v, ':')
	switch {
	case colon < 0:
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return 0, false
		}
		days, clock = n, ""
	case strings.IndexByte(v[:colon], '.') >= 0:
		dot := strings.IndexByte(v[:colon], '.')
		n, err := strconv.ParseUint(v[:dot], 10, 64)
		if err != nil {
			return 0, false
		}
		days, clock = n, v[dot+1:]
	}

	var hours, minutes, seconds, frac uint64
	if clock != "" {
		parts := strings.Split(clock, ":")
		if len(parts) != 2 && len(parts) != 3 {
			return 0, false
		}
		var ok bool
		if hours, ok = clockField(parts[0], 23); !ok {
			return 0, false
		}
		if minutes, ok = clockField(parts[1], 59); !ok {
			return 0, false
		}
		if len(parts) == 3 {
			whole, fraction, hasFrac := strings.Cut(parts[2], ".")
			if seconds, ok = clockField(whole, 59); !ok {
				return 0, false
			}
			if hasFrac {
				if frac, ok = fractionNanos(fraction); !ok {
					return 0, false
				}
			}
		}
	}

	limit := uint64(math.MaxInt64)
	if neg {
		limit++
	}
	if days > limit/uint64(day) {
		return 0, false
	}
	total := days*uint64(day) +
		hours*uint64(time.Hour) +
		minutes*uint64(time.Minute) +
		seconds*uint64(time.Second) +
		frac
	if total > limit {
		return 0, false
	}
	if neg {
		return time.Duration(-int64(total)), true
	}
	return time.Duration(total), true
}

func clockField(s string, max uint64) (uint64, bool) {
	if s == "" || len(s) > 2 {
		return 0, false
	}
	n, err := strconv.ParseUint(s, 10, 8)
	if err != nil || n > max {
		return 0, false
	}
	return n, true
}

func fractionNanos(s string) (uint64, bool) {
	if s == "" || len(s) > 9 {
		return 0, false
	}
	n, err := strconv.ParseUint(s+strings.Repeat("0", 9-len(s)), 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
