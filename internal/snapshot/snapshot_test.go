package snapshot

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"testing"
	"testing/synctest"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

type countingSaver struct {
	mu    sync.Mutex
	sync  int
	async int
}

func (c *countingSaver) Save() {
	c.mu.Lock()
	c.sync++
	c.mu.Unlock()
}

func (c *countingSaver) SaveAsync() {
	c.mu.Lock()
	c.async++
	c.mu.Unlock()
}

func (c *countingSaver) counts() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sync, c.async
}

func TestRunSavesOnIntervalAndShutdown(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		saver := &countingSaver{}
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})

		go func() {
			New(saver, time.Minute, testLogger()).Run(ctx)
			close(done)
		}()

		time.Sleep(3*time.Minute + 30*time.Second)
		synctest.Wait()
		if s, a := saver.counts(); s != 0 || a != 3 {
			t.Fatalf("after 3.5m got %d sync and %d async saves, want 0 and 3", s, a)
		}

		cancel()
		<-done
		if s, a := saver.counts(); s != 1 || a != 3 {
			t.Errorf("after shutdown got %d sync and %d async saves, want 1 and 3", s, a)
		}
	})
}

func TestRunCancelledBeforeFirstTick(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		saver := &countingSaver{}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		New(saver, time.Minute, testLogger()).Run(ctx)
		if s, a := saver.counts(); s != 1 || a != 0 {
			t.Errorf("got %d sync and %d async saves, want 1 and 0", s, a)
		}
	})
}

func TestNewDefaultsInterval(t *testing.T) {
	s := New(&countingSaver{}, 0, testLogger())
	if s.interval != DefaultInterval {
		t.Errorf("interval = %v, want %v", s.interval, DefaultInterval)
	}
}
