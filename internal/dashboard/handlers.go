package dashboard

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/statkeeper/statkeeper/internal/archive"
	"github.com/statkeeper/statkeeper/internal/config"
	"github.com/statkeeper/statkeeper/internal/report"
	"github.com/statkeeper/statkeeper/internal/stats"
)

const (
	defaultTopN        = 10
	maxTopN            = 100
	defaultHistoryDays = 30
)

type windowTotals struct {
	Counters  map[string]int64          `json:"counters"`
	Durations map[string]stats.Duration `json:"durations"`
}

type playerResponse struct {
	Identity  string                    `json:"identity"`
	Counters  map[string]int64          `json:"counters"`
	Durations map[string]stats.Duration `json:"durations"`
	KDRatio   *float64                  `json:"kd_ratio,omitempty"`
	LastDays  map[string]windowTotals   `json:"last_days,omitempty"`
}

type rankedRow struct {
	Rank     int    `json:"rank"`
	Identity string `json:"identity"`
	Value    int64  `json:"value"`
	Text     string `json:"text"`
}

type historyResponse struct {
	Identity string `json:"identity"`
	Metric   string `json:"metric"`
	Kind     string `json:"kind"`
	From     string `json:"from"`
	To       string `json:"to"`
	Days     any    `json:"days"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func parseKind(v string) (stats.Kind, error) {
	switch stats.Kind(v) {
	case "", stats.KindCounter:
		return stats.KindCounter, nil
	case stats.KindDuration:
		return stats.KindDuration, nil
	}
	return "", fmt.Errorf("unknown kind %q", v)
}

// lookup credits a running session before reading, so online players see
// their current session included.
func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (string, *stats.Entry, bool) {
	id := r.PathValue("id")
	if s.tracker != nil {
		s.tracker.Checkpoint(id)
	}
	e, ok, err := s.store.TryGet(id)
	switch {
	case errors.Is(err, stats.ErrEmptyIdentity):
		http.Error(w, "invalid id", http.StatusBadRequest)
		return "", nil, false
	case err != nil:
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return "", nil, false
	case !ok:
		http.Error(w, "not found", http.StatusNotFound)
		return "", nil, false
	}
	return id, e, true
}

// handleStatus returns store and subscriber counts.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	online := 0
	if s.tracker != nil {
		online = len(s.tracker.Online())
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"identities":  s.store.Len(),
		"online":      online,
		"subscribers": s.eventBus.SubscriberCount(),
		"last_days":   s.windows,
		"save_path":   s.store.Path(),
		"archive":     s.history != nil,
		"started":     humanize.Time(s.started),
	})
}

// handleOnline lists players with an open session.
func (s *Server) handleOnline(w http.ResponseWriter, r *http.Request) {
	online := []string{}
	if s.tracker != nil {
		online = append(online, s.tracker.Online()...)
	}
	writeJSON(w, http.StatusOK, online)
}

// handlePlayer returns one player's totals and configured windows as JSON.
func (s *Server) handlePlayer(w http.ResponseWriter, r *http.Request) {
	id, e, ok := s.lookup(w, r)
	if !ok {
		return
	}

	resp := playerResponse{
		Identity:  id,
		Counters:  e.Counters(),
		Durations: make(map[string]stats.Duration),
	}
	for name, d := range e.Durations() {
		resp.Durations[name] = stats.Duration(d)
	}
	if deaths := e.GetCounter(config.MetricDeaths); deaths > 0 {
		kd := report.KDRatio(e.GetCounter(config.MetricKills), deaths)
		resp.KDRatio = &kd
	}

	if len(s.windows) > 0 {
		resp.LastDays = make(map[string]windowTotals, len(s.windows))
		for _, days := range s.windows {
			wt := windowTotals{Counters: make(map[string]int64), Durations: make(map[string]stats.Duration)}
			for _, name := range e.CounterNames() {
				v, err := s.store.GetLastDaysCounter(id, name, days)
				if err != nil {
					http.Error(w, err.Error(), http.StatusInternalServerError)
					return
				}
				wt.Counters[name] = v
			}
			for _, name := range e.DurationNames() {
				v, err := s.store.GetLastDaysDuration(id, name, days)
				if err != nil {
					http.Error(w, err.Error(), http.StatusInternalServerError)
					return
				}
				wt.Durations[name] = stats.Duration(v)
			}
			resp.LastDays[strconv.Itoa(days)] = wt
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleSheet returns the plain-text stat sheet.
func (s *Server) handleSheet(w http.ResponseWriter, r *http.Request) {
	id, e, ok := s.lookup(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintln(w, report.StatSheet(id, id, e, s.windows, s.store))
}

// handleTop returns a leaderboard for one metric.
func (s *Server) handleTop(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	metric := q.Get("metric")
	if metric == "" {
		http.Error(w, "metric is required", http.StatusBadRequest)
		return
	}
	kind, err := parseKind(q.Get("kind"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	n := defaultTopN
	if v := q.Get("n"); v != "" {
		n, err = strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "n must be a positive integer", http.StatusBadRequest)
			return
		}
	}
	n = min(n, maxTopN)

	rows := []rankedRow{}
	if kind == stats.KindDuration {
		for i, row := range stats.TopN(s.store, n, func(e *stats.Entry) time.Duration { return e.GetDuration(metric) }) {
			rows = append(rows, rankedRow{Rank: i + 1, Identity: row.Identity, Value: int64(row.Value), Text: report.FormatDuration(row.Value)})
		}
	} else {
		for i, row := range stats.TopN(s.store, n, func(e *stats.Entry) int64 { return e.GetCounter(metric) }) {
			rows = append(rows, rankedRow{Rank: i + 1, Identity: row.Identity, Value: row.Value, Text: humanize.Comma(row.Value)})
		}
	}
	writeJSON(w, http.StatusOK, rows)
}

// handleSave writes the snapshot file now.
func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	s.store.Save()
	writeJSON(w, http.StatusOK, map[string]any{"saved": true, "identities": s.store.Len()})
}

// handleArchiveSummary describes the archive contents.
func (s *Server) handleArchiveSummary(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		http.Error(w, "archive not enabled", http.StatusNotFound)
		return
	}
	sum, err := s.history.Summary(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// handleHistory returns archived daily buckets for one metric, or the list of
// archived metrics when no metric is given.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		http.Error(w, "archive not enabled", http.StatusNotFound)
		return
	}
	id := r.PathValue("id")
	q := r.URL.Query()

	metric := q.Get("metric")
	if metric == "" {
		names, err := s.history.Metrics(r.Context(), id)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if names == nil {
			names = []string{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"identity": id, "metrics": names})
		return
	}

	kind, err := parseKind(q.Get("kind"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	days := defaultHistoryDays
	if v := q.Get("days"); v != "" {
		days, err = strconv.Atoi(v)
		if err != nil || days <= 0 {
			http.Error(w, "days must be a positive integer", http.StatusBadRequest)
			return
		}
	}

	to := s.now()
	from := to.AddDate(0, 0, -(days - 1))
	values, err := s.history.History(r.Context(), id, metric, kind, from, to)
	if err != nil {
		s.logger.Error("query history", "identity", id, "metric", metric, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	resp := historyResponse{
		Identity: id,
		Metric:   metric,
		Kind:     string(kind),
		From:     stats.DayKey(from),
		To:       stats.DayKey(to),
	}
	if kind == stats.KindDuration {
		type durationDay struct {
			Day   string         `json:"day"`
			Value stats.Duration `json:"value"`
		}
		out := make([]durationDay, 0, len(values))
		for _, v := range values {
			out = append(out, durationDay{Day: v.Day, Value: stats.Duration(v.Value)})
		}
		resp.Days = out
	} else {
		if values == nil {
			values = []archive.DayValue{}
		}
		resp.Days = values
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleSSE streams live stat events to the browser.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	subID := "sse-" + uuid.NewString()
	ch, unsub := s.eventBus.Subscribe(subID)
	defer unsub()

	s.logger.Debug("sse client connected", "subscriber", subID)
	fmt.Fprintf(w, ": connected %s\n\n", subID)
	flusher.Flush()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				s.logger.Error("encode SSE event", "error", err)
				continue
			}
			fmt.Fprintf(w, "event: stat\ndata: %s\n\n", data)
			flusher.Flush()
		}
	}
}
