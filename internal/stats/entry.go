package stats

import (
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"
)

type number interface {
	~int64
}

// cell is one metric: its all-time total and the retained daily tail. Both
// are updated under the same lock so a write is visible to both views.
type cell[T number] struct {
	mu    sync.Mutex
	total T
	daily map[string]T
}

// series maps metric names to cells. The map lock only guards inserting a
// new metric; reads and writes of a metric take that metric's own lock.
type series[T number] struct {
	mu    sync.RWMutex
	cells map[string]*cell[T]
}

func (s *series[T]) lookup(name string) *cell[T] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cells[name]
}

func (s *series[T]) obtain(name string) *cell[T] {
	if c := s.lookup(name); c != nil {
		return c
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cells == nil {
		s.cells = make(map[string]*cell[T])
	}
	c, ok := s.cells[name]
	if !ok {
		c = &cell[T]{daily: make(map[string]T)}
		s.cells[name] = c
	}
	return c
}

func (s *series[T]) get(name string) T {
	c := s.lookup(name)
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.total
}

func (s *series[T]) set(name string, v T) {
	c := s.obtain(name)
	c.mu.Lock()
	c.total = v
	c.mu.Unlock()
}

func (s *series[T]) add(name string, delta T, now time.Time, keep int) T {
	c := s.obtain(name)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.total += delta
	c.daily[DayKey(now)] += delta
	if keep > 0 {
		prune(c.daily, now, keep)
	}
	return c.total
}

func (s *series[T]) sum(name string, sp span) T {
	c := s.lookup(name)
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return sumSpan(c.daily, sp)
}

func (s *series[T]) snapshotCells() map[string]*cell[T] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.cells)
}

func (s *series[T]) totals() map[string]T {
	out := make(map[string]T)
	for name, c := range s.snapshotCells() {
		c.mu.Lock()
		out[name] = c.total
		c.mu.Unlock()
	}
	return out
}

func (s *series[T]) dailies() map[string]map[string]T {
	out := make(map[string]map[string]T)
	for name, c := range s.snapshotCells() {
		c.mu.Lock()
		if len(c.daily) > 0 {
			out[name] = maps.Clone(c.daily)
		}
		c.mu.Unlock()
	}
	return out
}

func (s *series[T]) names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Sorted(maps.Keys(s.cells))
}

func (s *series[T]) count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.cells)
}

// restore replaces the series contents with decoded values.
func (s *series[T]) restore(totals map[string]T, daily map[string]map[string]T) {
	cells := make(map[string]*cell[T], len(totals))
	for name, v := range totals {
		cells[name] = &cell[T]{total: v, daily: make(map[string]T)}
	}
	for name, buckets := range daily {
		c, ok := cells[name]
		if !ok {
			c = &cell[T]{daily: make(map[string]T)}
			cells[name] = c
		}
		maps.Copy(c.daily, buckets)
	}
	s.mu.Lock()
	s.cells = cells
	s.mu.Unlock()
}

// Entry holds one identity's counters and durations together with their
// day-bucketed history. Entries are safe for concurrent use and must not be
// copied after first use.
type Entry struct {
	counters  series[int64]
	durations series[time.Duration]

	now  func() time.Time
	keep int
}

// NewEntry returns an empty entry that reads the wall clock and never
// prunes. Entries owned by a Store use the store's clock and retention.
func NewEntry() *Entry {
	return &Entry{}
}

func (e *Entry) clock() time.Time {
	if e.now != nil {
		return e.now()
	}
	return time.Now()
}

// GetCounter returns the all-time value of a counter, 0 if never written.
func (e *Entry) GetCounter(name string) int64 {
	return e.counters.get(name)
}

// SetCounter overwrites the all-time value. Daily buckets are untouched.
func (e *Entry) SetCounter(name string, value int64) {
	e.counters.set(name, value)
}

// IncrementCounter adds amount to the all-time total and today's bucket and
// returns the new total.
func (e *Entry) IncrementCounter(name string, amount int64) int64 {
	return e.counters.add(name, amount, e.clock(), e.keep)
}

// GetDuration returns the all-time value of a duration, 0 if never written.
func (e *Entry) GetDuration(name string) time.Duration {
	return e.durations.get(name)
}

// SetDuration overwrites the all-time value. Daily buckets are untouched.
func (e *Entry) SetDuration(name string, value time.Duration) {
	e.durations.set(name, value)
}

// AddDuration adds delta to the all-time total and today's bucket and
// returns the new total.
func (e *Entry) AddDuration(name string, delta time.Duration) time.Duration {
	return e.durations.add(name, delta, e.clock(), e.keep)
}

// SumLastDays sums the counter over today and the days-1 days before it.
func (e *Entry) SumLastDays(name string, days int) (int64, error) {
	if days <= 0 {
		return 0, fmt.Errorf("sum last %d days of %q: %w", days, name, ErrInvalidWindow)
	}
	return e.counters.sum(name, lastDays(e.clock(), days)), nil
}

// SumLastDaysDuration is SumLastDays for durations.
func (e *Entry) SumLastDaysDuration(name string, days int) (time.Duration, error) {
	if days <= 0 {
		return 0, fmt.Errorf("sum last %d days of %q: %w", days, name, ErrInvalidWindow)
	}
	return e.durations.sum(name, lastDays(e.clock(), days)), nil
}

// SumCurrentWeek sums the counter over the Monday-to-Sunday week containing
// today.
func (e *Entry) SumCurrentWeek(name string) int64 {
	return e.counters.sum(name, currentWeek(e.clock()))
}

// SumCurrentWeekDuration is SumCurrentWeek for durations.
func (e *Entry) SumCurrentWeekDuration(name string) time.Duration {
	return e.durations.sum(name, currentWeek(e.clock()))
}

// Counters returns a copy of every all-time counter.
func (e *Entry) Counters() map[string]int64 { return e.counters.totals() }

// Durations returns a copy of every all-time duration.
func (e *Entry) Durations() map[string]time.Duration { return e.durations.totals() }

// DailyCounters returns a copy of the retained daily counter buckets, keyed
// by metric then day.
func (e *Entry) DailyCounters() map[string]map[string]int64 { return e.counters.dailies() }

// DailyDurations returns a copy of the retained daily duration buckets.
func (e *Entry) DailyDurations() map[string]map[string]time.Duration {
	return e.durations.dailies()
}

// CounterNames returns the counter names in ascending order.
func (e *Entry) CounterNames() []string { return e.counters.names() }

// DurationNames returns the duration names in ascending order.
func (e *Entry) DurationNames() []string { return e.durations.names() }

// Empty reports whether nothing has been recorded.
func (e *Entry) Empty() bool {
	return e.counters.count() == 0 && e.durations.count() == 0
}
