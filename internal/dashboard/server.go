package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"slices"
	"time"

	"github.com/statkeeper/statkeeper/internal/archive"
	"github.com/statkeeper/statkeeper/internal/eventbus"
	"github.com/statkeeper/statkeeper/internal/stats"
	"github.com/statkeeper/statkeeper/internal/tracker"
)

// History is the read side of the daily bucket archive.
type History interface {
	History(ctx context.Context, identity, metric string, kind stats.Kind, from, to time.Time) ([]archive.DayValue, error)
	Metrics(ctx context.Context, identity string) ([]string, error)
	Summary(ctx context.Context) (*archive.Summary, error)
}

// Server is the JSON and SSE dashboard over a stats store. It also accepts
// game events for the tracker.
type Server struct {
	store    *stats.Store
	eventBus *eventbus.EventBus
	history  History
	tracker  *tracker.Tracker
	windows  []int
	logger   *slog.Logger
	addr     string
	started  time.Time
	now      func() time.Time
}

// NewServer builds the dashboard. history and tr may be nil; the routes that
// need them then answer 404 or report nobody online.
func NewServer(addr string, s *stats.Store, eb *eventbus.EventBus, history History, tr *tracker.Tracker, logger *slog.Logger) *Server {
	return &Server{
		store:    s,
		eventBus: eb,
		history:  history,
		tracker:  tr,
		windows:  slices.Clone(s.LastDays()),
		logger:   logger,
		addr:     addr,
		started:  time.Now(),
		now:      time.Now,
	}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// SSE
	mux.HandleFunc("GET /events", s.handleSSE)

	// JSON API
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/online", s.handleOnline)
	mux.HandleFunc("GET /api/players/{id}", s.handlePlayer)
	mux.HandleFunc("GET /api/players/{id}/sheet", s.handleSheet)
	mux.HandleFunc("GET /api/top", s.handleTop)
	mux.HandleFunc("POST /api/save", s.handleSave)

	// Game events
	mux.HandleFunc("POST /api/players/{id}/join", s.handleJoin)
	mux.HandleFunc("POST /api/players/{id}/leave", s.handleLeave)
	mux.HandleFunc("POST /api/deaths", s.handleDeath)

	// Archive API
	mux.HandleFunc("GET /api/archive", s.handleArchiveSummary)
	mux.HandleFunc("GET /api/history/{id}", s.handleHistory)

	return mux
}

// Start starts the HTTP server. Blocks until context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		// Open SSE streams end with ctx instead of holding up Shutdown.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutCtx)
	}()

	s.logger.Info("dashboard starting", "url", fmt.Sprintf("http://%s", s.addr))
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
