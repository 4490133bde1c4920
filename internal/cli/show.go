package cli

import (
	"fmt"
	"io"

	"github.com/statkeeper/statkeeper/internal/report"
)

// RunShow prints the stat sheet of one identity from a snapshot file.
//
// Usage: statkeeper show [-config file] [-file snapshot] [-name display] <identity>
func RunShow(args []string, stdout, stderr io.Writer) error {
	var sf snapshotFlags
	fs := newFlagSet("show", stderr, "show [options] <identity>")
	sf.register(fs)
	name := fs.String("name", "", "display name for the sheet header (default: identity)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return fmt.Errorf("expected one identity, got %d arguments", fs.NArg())
	}
	identity := fs.Arg(0)

	s, cfg, err := sf.open(stderr)
	if err != nil {
		return err
	}
	defer s.Close()

	e, ok, err := s.TryGet(identity)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no stats for %q in %s", identity, s.Path())
	}

	display := identity
	if *name != "" {
		display = *name
	}
	fmt.Fprintln(stdout, report.StatSheet(display, identity, e, cfg.LastDays, s))
	return nil
}
