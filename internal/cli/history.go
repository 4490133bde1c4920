package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/statkeeper/statkeeper/internal/archive"
	"github.com/statkeeper/statkeeper/internal/report"
	"github.com/statkeeper/statkeeper/internal/stats"
)

// RunHistory prints every archived daily bucket of one identity.
//
// Usage: statkeeper history -db archive.db <identity>
func RunHistory(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("history", stderr, "history -db <archive> <identity>")
	dbPath := fs.String("db", "", "SQLite archive path (archive_db in the config)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *dbPath == "" || fs.NArg() != 1 {
		fs.Usage()
		return fmt.Errorf("missing arguments")
	}
	identity := fs.Arg(0)
	if _, err := os.Stat(*dbPath); err != nil {
		return fmt.Errorf("open archive: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	a, err := archive.NewSQLite(*dbPath, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	rows, err := a.Rows(ctx, identity)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("no archived stats for %q", identity)
	}

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "METRIC\tDAY\tVALUE")
	for _, r := range rows {
		value := fmt.Sprint(r.Value)
		if r.Kind == stats.KindDuration {
			value = report.FormatDuration(time.Duration(r.Value))
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", r.Metric, r.Day, value)
	}
	return tw.Flush()
}
