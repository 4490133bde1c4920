package stats

import (
	"math"
	"testing"
	"time"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "00:00:00"},
		{time.Hour + 2*time.Minute + 3*time.Second, "01:02:03"},
		{49*time.Hour + 3*time.Minute + 4*time.Second + 500*time.Millisecond, "2.01:03:04.5"},
		{-90 * time.Second, "-00:01:30"},
		{time.Nanosecond, "00:00:00.000000001"},
		{24 * time.Hour, "1.00:00:00"},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.in); got != tt.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"01:02:03", time.Hour + 2*time.Minute + 3*time.Second},
		{"1.02:03:04.1234567", 26*time.Hour + 3*time.Minute + 4*time.Second + 123456700*time.Nanosecond},
		{"00:00:00", 0},
		{"-00:01:30", -90 * time.Second},
		{"5", 5 * 24 * time.Hour},
		{"10:30", 10*time.Hour + 30*time.Minute},
		{"1h30m", 90 * time.Minute},
		{" 00:00:07 ", 7 * time.Second},
	}
	for _, tt := range tests {
		got, err := ParseDuration(tt.in)
		if err != nil {
			t.Errorf("ParseDuration(%q) error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseDuration(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseDurationRejects(t *testing.T) {
	for _, in := range []string{"", "garbage", "00:60:00", "24:00:00", "00:00:00.1234567890", "1.2.3", "-"} {
		if d, err := ParseDuration(in); err == nil {
			t.Errorf("ParseDuration(%q) = %v, want error", in, d)
		}
	}
}

func TestDurationRoundTrip(t *testing.T) {
	values := []time.Duration{
		0,
		time.Nanosecond,
		-time.Nanosecond,
		1500 * time.Millisecond,
		3*24*time.Hour + 7*time.Hour + 59*time.Minute + 59*time.Second + 999999999,
		-(26*time.Hour + 123*time.Microsecond),
		math.MaxInt64,
		math.MinInt64,
	}
	for _, d := range values {
		text := FormatDuration(d)
		got, err := ParseDuration(text)
		if err != nil {
			t.Errorf("ParseDuration(%q) error: %v", text, err)
			continue
		}
		if got != d {
			t.Errorf("round trip %v via %q = %v", d, text, got)
		}
	}
}
