package stats

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
	"time"
)

func assertEntriesEqual(t *testing.T, id string, got, want *Entry) {
	t.Helper()
	if !reflect.DeepEqual(got.Counters(), want.Counters()) {
		t.Errorf("%s counters = %v, want %v", id, got.Counters(), want.Counters())
	}
	if !reflect.DeepEqual(got.Durations(), want.Durations()) {
		t.Errorf("%s durations = %v, want %v", id, got.Durations(), want.Durations())
	}
	if !reflect.DeepEqual(got.DailyCounters(), want.DailyCounters()) {
		t.Errorf("%s daily counters = %v, want %v", id, got.DailyCounters(), want.DailyCounters())
	}
	if !reflect.DeepEqual(got.DailyDurations(), want.DailyDurations()) {
		t.Errorf("%s daily durations = %v, want %v", id, got.DailyDurations(), want.DailyDurations())
	}
}

func TestEntryJSONRoundTrip(t *testing.T) {
	clock := newFakeClock(date(2026, time.October, 13))
	e := newClockedEntry(clock, 0)
	e.IncrementCounter("Kills", 12)
	e.SetCounter("Deaths", 4)
	e.SetDuration("Idle", 0)
	clock.Set(date(2026, time.October, 14))
	e.AddDuration("TotalPlayTime", 3*24*time.Hour+5*time.Hour+7*time.Second+250*time.Millisecond)

	data, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	got := NewEntry()
	if err := json.Unmarshal(data, got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	assertEntriesEqual(t, "entry", got, e)
	if d := got.Durations(); len(d) != 2 {
		t.Errorf("durations = %v, want zero-valued Idle kept alongside TotalPlayTime", d)
	}
}

func TestEntryMarshalShape(t *testing.T) {
	e := NewEntry()
	e.SetCounter("Kills", 5)
	e.SetDuration("TotalPlayTime", time.Hour+2*time.Minute+3*time.Second)

	data, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	want := `{"Counters":{"Kills":5},"Durations":{"TotalPlayTime":"01:02:03"}}`
	if string(data) != want {
		t.Errorf("Marshal = %s, want %s", data, want)
	}
}

func TestDecodeLegacyEntry(t *testing.T) {
	doc := `{"u1": {"Kills": 5, "Deaths": 2, "TotalPlayTime": "01:02:03"}}`
	entries, err := DecodeSnapshot([]byte(doc), nil)
	if err != nil {
		t.Fatalf("DecodeSnapshot: %v", err)
	}
	e, ok := entries["u1"]
	if !ok {
		t.Fatal("u1 missing")
	}
	if got := e.GetCounter("Kills"); got != 5 {
		t.Errorf("Kills = %d, want 5", got)
	}
	if got := e.GetCounter("Deaths"); got != 2 {
		t.Errorf("Deaths = %d, want 2", got)
	}
	if got := e.GetDuration("TotalPlayTime"); got != time.Hour+2*time.Minute+3*time.Second {
		t.Errorf("TotalPlayTime = %v, want 1h2m3s", got)
	}
}

func TestDecodeLegacyOmitsZeroAndBadValues(t *testing.T) {
	doc := `{
		"zero": {"Kills": 0, "Deaths": 3},
		"badtime": {"Kills": 1, "TotalPlayTime": "not a duration"},
		"numtime": {"Kills": 2, "TotalPlayTime": 42},
		"empty": {}
	}`
	entries, err := DecodeSnapshot([]byte(doc), nil)
	if err != nil {
		t.Fatalf("DecodeSnapshot: %v", err)
	}
	if c := entries["zero"].Counters(); len(c) != 1 || c["Deaths"] != 3 {
		t.Errorf("zero counters = %v, want only Deaths=3", c)
	}
	for _, id := range []string{"badtime", "numtime"} {
		if d := entries[id].Durations(); len(d) != 0 {
			t.Errorf("%s durations = %v, want none", id, d)
		}
	}
	if !entries["empty"].Empty() {
		t.Error("empty legacy object should decode to an empty entry")
	}
}

func TestDecodeSnapshotSkipsBrokenEntries(t *testing.T) {
	doc := `{
		"good": {"Counters": {"Kills": 1}, "Durations": {}},
		"bad-duration": {"Counters": {}, "Durations": {"TotalPlayTime": "??"}},
		"not-object": 7
	}`
	var skipped []string
	entries, err := DecodeSnapshot([]byte(doc), func(id string, err error) {
		skipped = append(skipped, id)
	})
	if err != nil {
		t.Fatalf("DecodeSnapshot: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("decoded %d entries, want 1", len(entries))
	}
	if _, ok := entries["good"]; !ok {
		t.Error("good entry missing")
	}
	if len(skipped) != 2 {
		t.Errorf("skipped = %v, want 2 ids", skipped)
	}
}

func TestDecodeSnapshotRejectsNonObject(t *testing.T) {
	for _, doc := range []string{`[1,2]`, `{"u1":`, `nope`} {
		if _, err := DecodeSnapshot([]byte(doc), nil); err == nil {
			t.Errorf("DecodeSnapshot(%q) succeeded, want error", doc)
		}
	}
}

func TestUnparsableDayKeysAreIgnored(t *testing.T) {
	doc := `{"u1": {
		"Counters": {"Kills": 9},
		"DailyCounters": {"Kills": {"yesterday": 4, "2026-10-14": 2, "2026-13-01": 3}}
	}}`
	entries, err := DecodeSnapshot([]byte(doc), nil)
	if err != nil {
		t.Fatalf("DecodeSnapshot: %v", err)
	}
	e := entries["u1"]
	e.now = newFakeClock(date(2026, time.October, 14)).Now
	e.keep = 9

	got, err := e.SumLastDays("Kills", 30)
	if err != nil {
		t.Fatalf("SumLastDays: %v", err)
	}
	if got != 2 {
		t.Errorf("SumLastDays(30) = %d, want 2", got)
	}

	// A write prunes old buckets but must leave malformed keys untouched.
	e.IncrementCounter("Kills", 1)
	if _, ok := e.DailyCounters()["Kills"]["yesterday"]; !ok {
		t.Error("malformed key was dropped by pruning")
	}
}

func TestEncodeSnapshotIsIndented(t *testing.T) {
	e := NewEntry()
	e.SetCounter("Kills", 1)
	data, err := EncodeSnapshot(map[string]*Entry{"u1": e, "ghost": nil})
	if err != nil {
		t.Fatalf("EncodeSnapshot: %v", err)
	}
	text := string(data)
	if !strings.Contains(text, "\n  \"u1\": {") {
		t.Errorf("snapshot is not indented:\n%s", text)
	}
	if strings.Contains(text, "ghost") {
		t.Errorf("nil entry was encoded:\n%s", text)
	}
}
