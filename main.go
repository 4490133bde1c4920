package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/statkeeper/statkeeper/internal/archive"
	"github.com/statkeeper/statkeeper/internal/cli"
	"github.com/statkeeper/statkeeper/internal/config"
	"github.com/statkeeper/statkeeper/internal/dashboard"
	"github.com/statkeeper/statkeeper/internal/eventbus"
	"github.com/statkeeper/statkeeper/internal/snapshot"
	"github.com/statkeeper/statkeeper/internal/stats"
	"github.com/statkeeper/statkeeper/internal/tracker"
)

var version = "dev"

func main() {
	// Check for subcommands before flag parsing
	if len(os.Args) > 1 {
		var err error
		switch os.Args[1] {
		case "show":
			err = cli.RunShow(os.Args[2:], os.Stdout, os.Stderr)
		case "top":
			err = cli.RunTop(os.Args[2:], os.Stdout, os.Stderr)
		case "history":
			err = cli.RunHistory(context.Background(), os.Args[2:], os.Stdout, os.Stderr)
		case "version":
			fmt.Fprintf(os.Stderr, "statkeeper %s\n", version)
			return
		case "help", "-h", "--help":
			printUsage()
			return
		default:
			err = serve(os.Args[1:])
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := serve(nil); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func serve(args []string) error {
	serveFlags := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := serveFlags.String("config", "statkeeper.yaml", "path to the YAML config file")
	logLevel := serveFlags.String("log-level", "info", "log level (debug, info, warn, error)")
	openBrowser := serveFlags.Bool("open", false, "open the dashboard in a browser")
	if len(args) > 0 && args[0] == "serve" {
		args = args[1:]
	}
	serveFlags.Parse(args)
	if serveFlags.NArg() > 0 {
		printUsage()
		return fmt.Errorf("unexpected arguments: %v", serveFlags.Args())
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Logger writes to stderr; stdout is left to subcommand output
	level := parseLogLevel(*logLevel)
	if cfg.Debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	logger.Info("starting statkeeper", "version", version, "config", *configPath, "save_path", cfg.SavePath, "last_days", cfg.LastDays)

	// Context with signal handling
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	eb := eventbus.New(256)

	opts := stats.Options{
		Path:     cfg.SavePath,
		LastDays: cfg.LastDays,
		Exclude:  cfg.Excluded,
		Events:   eb,
	}

	// Optional archive of daily buckets
	var history dashboard.History
	var arch *archive.SQLiteArchive
	if cfg.ArchiveDB != "" {
		arch, err = archive.NewSQLite(cfg.ArchiveDB, logger)
		if err != nil {
			return fmt.Errorf("open archive: %w", err)
		}
		defer arch.Close()
		opts.Archive = arch
		history = arch
		logger.Info("archive enabled", "path", cfg.ArchiveDB)
	}

	store, err := stats.New(opts, logger)
	if err != nil {
		return fmt.Errorf("create stats store: %w", err)
	}
	defer store.Close()

	tr := tracker.New(store, cfg.Tracking, logger)

	// The snapshotter outlives ctx so its final save sees flushed sessions.
	snapCtx, stopSnap := context.WithCancel(context.Background())
	defer stopSnap()
	snapDone := make(chan struct{})
	snap := snapshot.New(store, cfg.SaveInterval, logger)
	go func() {
		defer close(snapDone)
		snap.Run(snapCtx)
	}()

	// Start dashboard in background
	if cfg.DashboardAddr != "" {
		dash := dashboard.NewServer(cfg.DashboardAddr, store, eb, history, tr, logger)
		go func() {
			if err := dash.Start(ctx); err != nil {
				logger.Error("dashboard error", "error", err)
				cancel()
			}
		}()

		if *openBrowser {
			dashURL := cli.DashboardURL(cfg.DashboardAddr)
			go func() {
				// Small delay to let the server start
				time.Sleep(300 * time.Millisecond)
				if err := cli.OpenBrowser(dashURL); err != nil {
					logger.Debug("could not open browser", "error", err)
				}
			}()
		}
	}

	<-ctx.Done()
	logger.Info("shutting down")

	tr.FlushAll()
	stopSnap()
	<-snapDone
	return nil
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "statkeeper: player statistics service")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  statkeeper [serve] [options]                       Run the stats service")
	fmt.Fprintln(os.Stderr, "  statkeeper show [-file path] [-name n] <identity>  Print a stat sheet")
	fmt.Fprintln(os.Stderr, "  statkeeper top [-file path] [-n N] <metric>        Print a leaderboard")
	fmt.Fprintln(os.Stderr, "  statkeeper history -db path <identity>             Print archived daily stats")
	fmt.Fprintln(os.Stderr, "  statkeeper version                                 Print version")
	fmt.Fprintln(os.Stderr, "  statkeeper help                                    Show this help")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Serve options:")
	fmt.Fprintln(os.Stderr, "  -config string     YAML config file (default \"statkeeper.yaml\", missing file = defaults)")
	fmt.Fprintln(os.Stderr, "  -log-level string  Log level: debug, info, warn, error (default \"info\")")
	fmt.Fprintln(os.Stderr, "  -open              Open the dashboard in a browser")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Environment:")
	fmt.Fprintln(os.Stderr, "  STATKEEPER_* overrides any config key, e.g. STATKEEPER_SAVE_PATH, STATKEEPER_LAST_DAYS=7,30")
}

func parseLogLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
