package stats

import (
	"encoding/json"
	"fmt"
	"time"
)

// entryDoc is the current on-disk shape of an entry.
type entryDoc struct {
	Counters       map[string]int64               `json:"Counters"`
	Durations      map[string]Duration            `json:"Durations"`
	DailyCounters  map[string]map[string]int64    `json:"DailyCounters,omitempty"`
	DailyDurations map[string]map[string]Duration `json:"DailyDurations,omitempty"`
}

// legacyDoc is the fixed-field shape written before counters and durations
// became open-ended maps.
type legacyDoc struct {
	Kills         int64           `json:"Kills"`
	Deaths        int64           `json:"Deaths"`
	TotalPlayTime json.RawMessage `json:"TotalPlayTime"`
}

// Legacy metric names, also used by the tracker.
const (
	MetricKills         = "Kills"
	MetricDeaths        = "Deaths"
	MetricTotalPlayTime = "TotalPlayTime"
)

var currentSchemaKeys = []string{"Counters", "Durations", "DailyCounters", "DailyDurations"}

// MarshalJSON implements json.Marshaler.
func (e *Entry) MarshalJSON() ([]byte, error) {
	doc := entryDoc{
		Counters:  e.counters.totals(),
		Durations: make(map[string]Duration),
	}
	for name, d := range e.durations.totals() {
		doc.Durations[name] = Duration(d)
	}
	if daily := e.counters.dailies(); len(daily) > 0 {
		doc.DailyCounters = daily
	}
	if daily := e.durations.dailies(); len(daily) > 0 {
		doc.DailyDurations = make(map[string]map[string]Duration, len(daily))
		for name, buckets := range daily {
			out := make(map[string]Duration, len(buckets))
			for key, d := range buckets {
				out[key] = Duration(d)
			}
			doc.DailyDurations[name] = out
		}
	}
	return json.Marshal(doc)
}

// UnmarshalJSON implements json.Unmarshaler. Objects carrying any of the
// current schema keys decode directly; anything else is read as a legacy
// Kills/Deaths/TotalPlayTime record.
func (e *Entry) UnmarshalJSON(data []byte) error {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return fmt.Errorf("decode entry: %w", err)
	}
	for _, key := range currentSchemaKeys {
		if _, ok := probe[key]; ok {
			return e.decodeCurrent(data)
		}
	}
	return e.decodeLegacy(data)
}

func (e *Entry) decodeCurrent(data []byte) error {
	var doc entryDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("decode entry: %w", err)
	}

	durations := make(map[string]time.Duration, len(doc.Durations))
	for name, d := range doc.Durations {
		durations[name] = time.Duration(d)
	}
	dailyDurations := make(map[string]map[string]time.Duration, len(doc.DailyDurations))
	for name, buckets := range doc.DailyDurations {
		out := make(map[string]time.Duration, len(buckets))
		for key, d := range buckets {
			out[key] = time.Duration(d)
		}
		dailyDurations[name] = out
	}

	e.counters.restore(doc.Counters, doc.DailyCounters)
	e.durations.restore(durations, dailyDurations)
	return nil
}

func (e *Entry) decodeLegacy(data []byte) error {
	var doc legacyDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("decode legacy entry: %w", err)
	}

	counters := make(map[string]int64)
	if doc.Kills != 0 {
		counters[MetricKills] = doc.Kills
	}
	if doc.Deaths != 0 {
		counters[MetricDeaths] = doc.Deaths
	}
	durations := make(map[string]time.Duration)
	if d := legacyDuration(doc.TotalPlayTime); d != 0 {
		durations[MetricTotalPlayTime] = d
	}

	e.counters.restore(counters, nil)
	e.durations.restore(durations, nil)
	return nil
}

// legacyDuration reads a duration string, treating anything unreadable as
// zero.
func legacyDuration(raw json.RawMessage) time.Duration {
	var s string
	if len(raw) == 0 || json.Unmarshal(raw, &s) != nil {
		return 0
	}
	d, err := ParseDuration(s)
	if err != nil {
		return 0
	}
	return d
}

// EncodeSnapshot renders entries as an indented JSON object keyed by
// identity. Nil entries are left out.
func EncodeSnapshot(entries map[string]*Entry) ([]byte, error) {
	doc := make(map[string]*Entry, len(entries))
	for id, e := range entries {
		if e != nil {
			doc[id] = e
		}
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return data, nil
}

// DecodeSnapshot parses a snapshot document. An entry that cannot be decoded
// is passed to skip and left out; only a document that is not a JSON object
// fails as a whole.
func DecodeSnapshot(data []byte, skip func(identity string, err error)) (map[string]*Entry, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}

	entries := make(map[string]*Entry, len(raw))
	for id, msg := range raw {
		e := NewEntry()
		if err := json.Unmarshal(msg, e); err != nil {
			if skip != nil {
				skip(id, err)
			}
			continue
		}
		entries[id] = e
	}
	return entries, nil
}
