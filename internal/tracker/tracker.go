package tracker

import (
	"errors"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/statkeeper/statkeeper/internal/config"
	"github.com/statkeeper/statkeeper/internal/stats"
)

// Role is the in-game class of a player at the time of an event.
type Role string

// RoleClassD is the role counted by the Class-D metrics.
const RoleClassD Role = "ClassD"

// IsSCP reports whether the role is one of the SCP classes.
func (r Role) IsSCP() bool {
	return strings.HasPrefix(string(r), "Scp")
}

// CauseMicroHID is the damage source counted by MicroHidKills.
const CauseMicroHID = "MicroHID"

// Death describes one player death. Attacker is empty for environmental
// deaths.
type Death struct {
	Victim       string
	VictimRole   Role
	Attacker     string
	AttackerRole Role
	Cause        string
}

// Tracker turns game events into store writes. It owns the join times of
// online players, which become TotalPlayTime when they leave.
type Tracker struct {
	store    *stats.Store
	tracking config.Tracking
	logger   *slog.Logger
	now      func() time.Time

	mu       sync.Mutex
	sessions map[string]time.Time
}

func New(store *stats.Store, tracking config.Tracking, logger *slog.Logger) *Tracker {
	return &Tracker{
		store:    store,
		tracking: tracking,
		logger:   logger,
		now:      time.Now,
		sessions: make(map[string]time.Time),
	}
}

// Joined starts a play session. Joining again restarts the clock without
// crediting the earlier session.
func (t *Tracker) Joined(identity string) {
	if t.store.IsExcluded(identity) {
		return
	}
	now := t.now()
	t.mu.Lock()
	t.sessions[identity] = now
	t.mu.Unlock()
	t.logger.Debug("player joined", "identity", identity, "at", now)
}

// Left ends a play session and credits its length. It returns the credited
// time, or zero if the player had no session.
func (t *Tracker) Left(identity string) time.Duration {
	t.mu.Lock()
	joined, ok := t.sessions[identity]
	delete(t.sessions, identity)
	t.mu.Unlock()
	if !ok {
		return 0
	}

	played := t.now().Sub(joined)
	t.addPlayTime(identity, played)
	t.logger.Debug("player left", "identity", identity, "played", played)
	return played
}

// Checkpoint credits the running session so far and restarts its clock, so
// that a stat sheet shown mid-session includes the current session. It
// reports whether the player had a session.
func (t *Tracker) Checkpoint(identity string) bool {
	now := t.now()
	t.mu.Lock()
	joined, ok := t.sessions[identity]
	if ok {
		t.sessions[identity] = now
	}
	t.mu.Unlock()
	if !ok {
		return false
	}
	t.addPlayTime(identity, now.Sub(joined))
	return true
}

// Died records a death for the victim and the kill metrics for the attacker.
func (t *Tracker) Died(d Death) {
	t.logger.Debug("player died", "identity", d.Victim, "attacker", d.Attacker, "cause", d.Cause)

	t.increment(d.Victim, config.MetricDeaths)
	if d.Attacker == "" {
		return
	}

	t.increment(d.Attacker, config.MetricKills)
	if d.VictimRole == RoleClassD {
		t.increment(d.Attacker, config.MetricClassDKills)
	}
	if d.AttackerRole == RoleClassD {
		t.increment(d.Attacker, config.MetricKillsAsClassD)
	}
	if d.VictimRole.IsSCP() {
		t.increment(d.Attacker, config.MetricScpKills)
	}
	if d.Cause == CauseMicroHID {
		t.increment(d.Attacker, config.MetricMicroHidKills)
	}
}

// FlushAll credits every open session and forgets them. It is called on
// shutdown, before the final save.
func (t *Tracker) FlushAll() int {
	now := t.now()
	t.mu.Lock()
	sessions := t.sessions
	t.sessions = make(map[string]time.Time)
	t.mu.Unlock()

	for id, joined := range sessions {
		t.addPlayTime(id, now.Sub(joined))
	}
	t.logger.Debug("flushed play sessions", "players", len(sessions))
	return len(sessions)
}

// Online returns the identities with an open session, sorted.
func (t *Tracker) Online() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Sorted(maps.Keys(t.sessions))
}

// Tracking returns the metric toggles in effect.
func (t *Tracker) Tracking() config.Tracking {
	return t.tracking
}

func (t *Tracker) addPlayTime(identity string, played time.Duration) {
	if !t.tracking.Enabled(config.MetricPlayTime) || played <= 0 {
		return
	}
	t.record(identity, config.MetricPlayTime, t.store.AddDuration(identity, config.MetricPlayTime, played))
}

func (t *Tracker) increment(identity, metric string) {
	if !t.tracking.Enabled(metric) || t.store.IsExcluded(identity) {
		return
	}
	t.record(identity, metric, t.store.ModifyCounter(identity, metric, 1))
}

func (t *Tracker) record(identity, metric string, err error) {
	if err == nil || errors.Is(err, stats.ErrExcluded) {
		return
	}
	t.logger.Warn("record stat", "identity", identity, "metric", metric, "error", err)
}
