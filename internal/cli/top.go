package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/statkeeper/statkeeper/internal/report"
	"github.com/statkeeper/statkeeper/internal/stats"
)

// RunTop prints the leaderboard of one metric from a snapshot file.
//
// Usage: statkeeper top [-config file] [-file snapshot] [-n N] [-kind counter|duration] <metric>
func RunTop(args []string, stdout, stderr io.Writer) error {
	var sf snapshotFlags
	fs := newFlagSet("top", stderr, "top [options] <metric>")
	sf.register(fs)
	n := fs.Int("n", 10, "number of rows")
	kind := fs.String("kind", string(stats.KindCounter), "metric kind: counter or duration")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return fmt.Errorf("expected one metric, got %d arguments", fs.NArg())
	}
	if *n <= 0 {
		return fmt.Errorf("-n must be positive, got %d", *n)
	}
	metric := fs.Arg(0)

	s, _, err := sf.open(stderr)
	if err != nil {
		return err
	}
	defer s.Close()

	switch stats.Kind(*kind) {
	case stats.KindCounter:
		rows := stats.TopN(s, *n, func(e *stats.Entry) int64 { return e.GetCounter(metric) })
		fmt.Fprintln(stdout, report.CounterBoard(metric, rows))
	case stats.KindDuration:
		rows := stats.TopN(s, *n, func(e *stats.Entry) time.Duration { return e.GetDuration(metric) })
		fmt.Fprintln(stdout, report.DurationBoard(metric, rows))
	default:
		return fmt.Errorf("unknown kind %q", *kind)
	}
	return nil
}
