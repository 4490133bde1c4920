package archive

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"time"

	_ "modernc.org/sqlite"

	"github.com/statkeeper/statkeeper/internal/stats"
)

//go:embed schema.sql
var schemaSQL string

// SQLiteArchive keeps every saved daily bucket in SQLite, so history survives
// the pruning of the in-memory tail.
type SQLiteArchive struct {
	db     *sql.DB
	logger *slog.Logger
	now    func() time.Time
}

// NewSQLite opens (or creates) the archive database.
func NewSQLite(dbPath string, logger *slog.Logger) (*SQLiteArchive, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create archive dir: %w", err)
	}

	dsn := "file:" + dbPath + "?" + url.Values{
		"_pragma": []string{
			"busy_timeout(5000)",
			"journal_mode(WAL)",
			"synchronous(NORMAL)",
		},
	}.Encode()
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	db.SetMaxOpenConns(2) // one for writer, one for readers
	db.SetMaxIdleConns(2)

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &SQLiteArchive{db: db, logger: logger, now: time.Now}, nil
}

// Archive upserts every daily bucket of every entry in one transaction.
// Buckets already pruned from memory keep their last archived value.
func (a *SQLiteArchive) Archive(ctx context.Context, entries map[string]*stats.Entry) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO daily_stats (identity, metric, kind, day, value, archived_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (identity, metric, kind, day) DO UPDATE SET
			value = excluded.value,
			archived_at = excluded.archived_at
	`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	archivedAt := a.now().UTC().Format(time.RFC3339Nano)
	written := 0
	for id, e := range entries {
		if e == nil {
			continue
		}
		for metric, days := range e.DailyCounters() {
			for day, v := range days {
				if _, err := stmt.ExecContext(ctx, id, metric, string(stats.KindCounter), day, v, archivedAt); err != nil {
					tx.Rollback()
					return fmt.Errorf("upsert %s/%s/%s: %w", id, metric, day, err)
				}
				written++
			}
		}
		for metric, days := range e.DailyDurations() {
			for day, v := range days {
				if _, err := stmt.ExecContext(ctx, id, metric, string(stats.KindDuration), day, int64(v), archivedAt); err != nil {
					tx.Rollback()
					return fmt.Errorf("upsert %s/%s/%s: %w", id, metric, day, err)
				}
				written++
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit archive: %w", err)
	}
	a.logger.Debug("archived daily buckets", "identities", len(entries), "rows", written)
	return nil
}

// History returns the archived buckets of one metric between from and to,
// both days inclusive, ordered by day.
func (a *SQLiteArchive) History(ctx context.Context, identity, metric string, kind stats.Kind, from, to time.Time) ([]DayValue, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT day, value FROM daily_stats
		WHERE identity = ? AND metric = ? AND kind = ? AND day >= ? AND day <= ?
		ORDER BY day ASC
	`, identity, metric, string(kind), stats.DayKey(from), stats.DayKey(to))
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var out []DayValue
	for rows.Next() {
		var dv DayValue
		if err := rows.Scan(&dv.Day, &dv.Value); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		out = append(out, dv)
	}
	return out, rows.Err()
}

// Rows returns every archived bucket for identity, ordered by metric, kind
// and day.
func (a *SQLiteArchive) Rows(ctx context.Context, identity string) ([]Row, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT identity, metric, kind, day, value FROM daily_stats
		WHERE identity = ?
		ORDER BY metric, kind, day
	`, identity)
	if err != nil {
		return nil, fmt.Errorf("query rows: %w", err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var r Row
		var kind string
		if err := rows.Scan(&r.Identity, &r.Metric, &kind, &r.Day, &r.Value); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		r.Kind = stats.Kind(kind)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Summary returns aggregate counts over the whole archive.
func (a *SQLiteArchive) Summary(ctx context.Context) (*Summary, error) {
	var s Summary
	var first, last sql.NullString
	err := a.db.QueryRowContext(ctx,
		"SELECT COUNT(*), COUNT(DISTINCT identity), MIN(day), MAX(day) FROM daily_stats",
	).Scan(&s.Rows, &s.Identities, &first, &last)
	if err != nil {
		return nil, fmt.Errorf("archive summary: %w", err)
	}
	s.FirstDay = first.String
	s.LastDay = last.String
	return &s, nil
}

// Metrics lists the distinct metric names archived for identity.
func (a *SQLiteArchive) Metrics(ctx context.Context, identity string) ([]string, error) {
	rows, err := a.db.QueryContext(ctx, "SELECT DISTINCT metric FROM daily_stats WHERE identity = ?", identity)
	if err != nil {
		return nil, fmt.Errorf("query metrics: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			continue
		}
		names = append(names, name)
	}
	slices.Sort(names)
	return names, rows.Err()
}

// Close closes the database.
func (a *SQLiteArchive) Close() error {
	return a.db.Close()
}
