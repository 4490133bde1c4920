package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"github.com/statkeeper/statkeeper/internal/config"
	"github.com/statkeeper/statkeeper/internal/stats"
)

// snapshotFlags are shared by the subcommands that read a snapshot file.
type snapshotFlags struct {
	configPath string
	file       string
}

func (f *snapshotFlags) register(flags *flag.FlagSet) {
	flags.StringVar(&f.configPath, "config", "", "config file for save_path and last_days")
	flags.StringVar(&f.file, "file", "", "snapshot file (default: save_path from config)")
}

// open loads the snapshot read-only. Nothing is ever saved back.
func (f *snapshotFlags) open(stderr io.Writer) (*stats.Store, *config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return nil, nil, err
	}
	path := cfg.SavePath
	if f.file != "" {
		path = f.file
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil, nil, fmt.Errorf("snapshot file %s does not exist", path)
	}

	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	s, err := stats.New(stats.Options{Path: path, LastDays: cfg.LastDays}, logger)
	if err != nil {
		return nil, nil, err
	}
	return s, cfg, nil
}

func newFlagSet(name string, stderr io.Writer, usage string) *flag.FlagSet {
	flags := flag.NewFlagSet(name, flag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.Usage = func() {
		fmt.Fprintf(stderr, "Usage: statkeeper %s\n\nOptions:\n", usage)
		flags.PrintDefaults()
	}
	return flags
}
