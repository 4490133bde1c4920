package stats

import (
	"bytes"
	"cmp"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultPath is the snapshot file used when Options.Path is empty.
const DefaultPath = "player_stats.json"

var (
	// ErrEmptyIdentity rejects blank identities.
	ErrEmptyIdentity = errors.New("identity must not be empty")
	// ErrInvalidWindow rejects window sizes below one day.
	ErrInvalidWindow = errors.New("window size must be positive")
	// ErrExcluded is returned when creating stats for an excluded identity.
	ErrExcluded = errors.New("identity is excluded from tracking")
)

// Kind tells counters and durations apart in events and queries.
type Kind string

const (
	KindCounter  Kind = "counter"
	KindDuration Kind = "duration"
)

// Event describes one store-level write. For durations Delta and Total are
// nanoseconds.
type Event struct {
	Identity string    `json:"identity"`
	Metric   string    `json:"metric"`
	Kind     Kind      `json:"kind"`
	Delta    int64     `json:"delta"`
	Total    int64     `json:"total"`
	Set      bool      `json:"set,omitempty"`
	At       time.Time `json:"at"`
}

// Publisher receives write events. Publish must not block.
type Publisher interface {
	Publish(ev *Event)
}

// Archiver is handed every successfully saved snapshot.
type Archiver interface {
	Archive(ctx context.Context, entries map[string]*Entry) error
}

// Options configures a Store.
type Options struct {
	// Path of the JSON snapshot file.
	Path string
	// LastDays lists the window sizes used for "last N days" reporting.
	// Daily buckets are kept for max(LastDays)+2 days.
	LastDays []int
	// Now overrides the wall clock.
	Now func() time.Time
	// Exclude reports identities that must not be tracked.
	Exclude func(identity string) bool
	// Events, if set, receives every store-level write.
	Events Publisher
	// Archive, if set, receives every saved snapshot.
	Archive Archiver
}

// Store maps identities to entries and persists them to a JSON file.
// Lookups and inserts of identities go through the store lock; writes to an
// entry only lock the metric being written.
type Store struct {
	path     string
	lastDays []int
	keep     int
	now      func() time.Time
	exclude  func(string) bool
	events   Publisher
	archive  Archiver
	logger   *slog.Logger

	mu      sync.RWMutex
	entries map[string]*Entry

	saveMu sync.Mutex
	wg     sync.WaitGroup
}

// New creates a store and loads the snapshot file if there is one. A missing,
// empty or unreadable file leaves the store empty; only invalid options fail.
func New(opts Options, logger *slog.Logger) (*Store, error) {
	for _, d := range opts.LastDays {
		if d <= 0 {
			return nil, fmt.Errorf("last days %d: %w", d, ErrInvalidWindow)
		}
	}

	s := &Store{
		path:     opts.Path,
		lastDays: slices.Clone(opts.LastDays),
		keep:     retention(opts.LastDays),
		now:      opts.Now,
		exclude:  opts.Exclude,
		events:   opts.Events,
		archive:  opts.Archive,
		logger:   logger,
		entries:  make(map[string]*Entry),
	}
	if s.path == "" {
		s.path = DefaultPath
	}
	if s.now == nil {
		s.now = time.Now
	}
	s.load()
	return s, nil
}

// Path returns the snapshot file location.
func (s *Store) Path() string { return s.path }

// LastDays returns the configured window sizes.
func (s *Store) LastDays() []int { return slices.Clone(s.lastDays) }

// Len returns the number of tracked identities.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// IsExcluded reports whether the identity is excluded from tracking.
func (s *Store) IsExcluded(identity string) bool {
	return s.exclude != nil && s.exclude(identity)
}

func checkIdentity(identity string) error {
	if strings.TrimSpace(identity) == "" {
		return ErrEmptyIdentity
	}
	return nil
}

func (s *Store) adopt(e *Entry) {
	e.now = s.now
	e.keep = s.keep
}

// TryGet returns the entry for identity without creating one.
func (s *Store) TryGet(identity string) (*Entry, bool, error) {
	if err := checkIdentity(identity); err != nil {
		return nil, false, err
	}
	s.mu.RLock()
	e, ok := s.entries[identity]
	s.mu.RUnlock()
	return e, ok, nil
}

// GetOrCreate returns the entry for identity, inserting an empty one on first
// use. Concurrent first calls all observe the same entry.
func (s *Store) GetOrCreate(identity string) (*Entry, error) {
	e, ok, err := s.TryGet(identity)
	if err != nil {
		return nil, err
	}
	if ok {
		return e, nil
	}
	if s.IsExcluded(identity) {
		return nil, fmt.Errorf("get stats for %q: %w", identity, ErrExcluded)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[identity]; ok {
		return e, nil
	}
	e = NewEntry()
	s.adopt(e)
	s.entries[identity] = e
	return e, nil
}

func (s *Store) publish(ev Event) {
	if s.events == nil {
		return
	}
	ev.At = s.now()
	s.events.Publish(&ev)
}

// ModifyCounter adds amount to a counter.
func (s *Store) ModifyCounter(identity, name string, amount int64) error {
	e, err := s.GetOrCreate(identity)
	if err != nil {
		return err
	}
	total := e.IncrementCounter(name, amount)
	s.publish(Event{Identity: identity, Metric: name, Kind: KindCounter, Delta: amount, Total: total})
	return nil
}

// SetCounter overwrites a counter.
func (s *Store) SetCounter(identity, name string, value int64) error {
	e, err := s.GetOrCreate(identity)
	if err != nil {
		return err
	}
	e.SetCounter(name, value)
	s.publish(Event{Identity: identity, Metric: name, Kind: KindCounter, Total: value, Set: true})
	return nil
}

// GetCounter returns a counter's all-time value.
func (s *Store) GetCounter(identity, name string) (int64, error) {
	e, err := s.GetOrCreate(identity)
	if err != nil {
		return 0, err
	}
	return e.GetCounter(name), nil
}

// AddDuration adds delta to a duration.
func (s *Store) AddDuration(identity, name string, delta time.Duration) error {
	e, err := s.GetOrCreate(identity)
	if err != nil {
		return err
	}
	total := e.AddDuration(name, delta)
	s.publish(Event{Identity: identity, Metric: name, Kind: KindDuration, Delta: int64(delta), Total: int64(total)})
	return nil
}

// SetDuration overwrites a duration.
func (s *Store) SetDuration(identity, name string, value time.Duration) error {
	e, err := s.GetOrCreate(identity)
	if err != nil {
		return err
	}
	e.SetDuration(name, value)
	s.publish(Event{Identity: identity, Metric: name, Kind: KindDuration, Total: int64(value), Set: true})
	return nil
}

// GetDuration returns a duration's all-time value.
func (s *Store) GetDuration(identity, name string) (time.Duration, error) {
	e, err := s.GetOrCreate(identity)
	if err != nil {
		return 0, err
	}
	return e.GetDuration(name), nil
}

// GetLastDaysCounter sums a counter over a window of days. A 7-day window
// is the current calendar week (Monday start), not the trailing seven days.
func (s *Store) GetLastDaysCounter(identity, name string, days int) (int64, error) {
	e, err := s.GetOrCreate(identity)
	if err != nil {
		return 0, err
	}
	if days == CalendarWeek {
		return e.SumCurrentWeek(name), nil
	}
	return e.SumLastDays(name, days)
}

// GetLastDaysDuration is GetLastDaysCounter for durations.
func (s *Store) GetLastDaysDuration(identity, name string, days int) (time.Duration, error) {
	e, err := s.GetOrCreate(identity)
	if err != nil {
		return 0, err
	}
	if days == CalendarWeek {
		return e.SumCurrentWeekDuration(name), nil
	}
	return e.SumLastDaysDuration(name, days)
}

// GetConfiguredLastDaysCounters evaluates GetLastDaysCounter once per
// distinct window size.
func (s *Store) GetConfiguredLastDaysCounters(identity, name string, days []int) (map[int]int64, error) {
	out := make(map[int]int64, len(days))
	for _, d := range days {
		if _, done := out[d]; done {
			continue
		}
		v, err := s.GetLastDaysCounter(identity, name, d)
		if err != nil {
			return nil, err
		}
		out[d] = v
	}
	return out, nil
}

// GetConfiguredLastDaysDurations evaluates GetLastDaysDuration once per
// distinct window size.
func (s *Store) GetConfiguredLastDaysDurations(identity, name string, days []int) (map[int]time.Duration, error) {
	out := make(map[int]time.Duration, len(days))
	for _, d := range days {
		if _, done := out[d]; done {
			continue
		}
		v, err := s.GetLastDaysDuration(identity, name, d)
		if err != nil {
			return nil, err
		}
		out[d] = v
	}
	return out, nil
}

// Snapshot returns a shallow copy of the identity map. The entries are the
// live ones and keep changing after the call.
func (s *Store) Snapshot() map[string]*Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.entries)
}

// Ranked is one row of a TopN result.
type Ranked[K cmp.Ordered] struct {
	Identity string
	Entry    *Entry
	Value    K
}

// TopN ranks every entry by key, highest first, and keeps the first n.
// Equal keys keep ascending identity order.
func TopN[K cmp.Ordered](s *Store, n int, key func(*Entry) K) []Ranked[K] {
	if n <= 0 {
		return nil
	}
	snap := s.Snapshot()
	ranked := make([]Ranked[K], 0, len(snap))
	for _, id := range slices.Sorted(maps.Keys(snap)) {
		e := snap[id]
		ranked = append(ranked, Ranked[K]{Identity: id, Entry: e, Value: key(e)})
	}
	slices.SortStableFunc(ranked, func(a, b Ranked[K]) int {
		return cmp.Compare(b.Value, a.Value)
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

// Save writes the snapshot file. Failures are logged and swallowed.
func (s *Store) Save() {
	saveID := uuid.NewString()
	start := time.Now()
	if err := s.save(); err != nil {
		s.logger.Error("save stats", "path", s.path, "save_id", saveID, "error", err)
		return
	}
	s.logger.Debug("stats saved", "path", s.path, "save_id", saveID, "duration", time.Since(start))
}

// SaveAsync runs Save on a new goroutine. Close waits for it.
func (s *Store) SaveAsync() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.Save()
	}()
}

// Close waits for in-flight asynchronous saves.
func (s *Store) Close() error {
	s.wg.Wait()
	return nil
}

// save serializes writers to the file; the identity map is only locked while
// it is copied.
func (s *Store) save() error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	snap := s.Snapshot()
	data, err := EncodeSnapshot(snap)
	if err != nil {
		return err
	}
	if err := writeFileAtomic(s.path, data); err != nil {
		return err
	}

	if s.archive != nil {
		if err := s.archive.Archive(context.Background(), snap); err != nil {
			s.logger.Error("archive stats", "error", err)
		}
	}
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create stats dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".stats-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write stats: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close stats: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace stats file: %w", err)
	}
	return nil
}

func (s *Store) load() {
	s.logger.Debug("loading stats", "path", s.path)

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return
	}
	if err != nil {
		s.logger.Error("read stats file", "path", s.path, "error", err)
		return
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return
	}

	entries, err := DecodeSnapshot(data, func(identity string, err error) {
		s.logger.Warn("skipping unreadable stats entry", "identity", identity, "error", err)
	})
	if err != nil {
		s.logger.Error("load stats", "path", s.path, "error", err)
		return
	}

	s.mu.Lock()
	for id, e := range entries {
		s.adopt(e)
		s.entries[id] = e
	}
	s.mu.Unlock()
	s.logger.Info("stats loaded", "path", s.path, "identities", len(entries))
}
