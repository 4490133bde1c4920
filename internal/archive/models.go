package archive

import "github.com/statkeeper/statkeeper/internal/stats"

// DayValue is one archived daily bucket. Duration buckets are nanoseconds.
type DayValue struct {
	Day   string `json:"day"`
	Value int64  `json:"value"`
}

// Row is a full archived bucket, as written by Archive.
type Row struct {
	Identity string
	Metric   string
	Kind     stats.Kind
	DayValue
}

// Summary describes the archive contents.
type Summary struct {
	Rows       int    `json:"rows"`
	Identities int    `json:"identities"`
	FirstDay   string `json:"first_day,omitempty"`
	LastDay    string `json:"last_day,omitempty"`
}
