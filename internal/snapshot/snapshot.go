package snapshot

import (
	"context"
	"log/slog"
	"time"
)

// DefaultInterval is the time between periodic saves.
const DefaultInterval = time.Minute

// Saver is the part of the stats store the snapshotter drives.
type Saver interface {
	Save()
	SaveAsync()
}

// Snapshotter saves a store on a fixed interval and once more on shutdown.
type Snapshotter struct {
	saver    Saver
	interval time.Duration
	logger   *slog.Logger
}

func New(saver Saver, interval time.Duration, logger *slog.Logger) *Snapshotter {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Snapshotter{saver: saver, interval: interval, logger: logger}
}

// Run blocks until ctx is cancelled. Each tick starts an asynchronous save;
// after cancellation a final synchronous save runs before Run returns.
func (s *Snapshotter) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Debug("snapshotter started", "interval", s.interval)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("saving stats before shutdown")
			s.saver.Save()
			return
		case <-ticker.C:
			s.saver.SaveAsync()
		}
	}
}
