package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/heimdex/clip-agent/internal/autosave"
	"github.com/heimdex/clip-agent/internal/clips"
	"github.com/heimdex/clip-agent/internal/export"
	"github.com/heimdex/clip-agent/internal/metrics"
	"github.com/heimdex/clip-agent/internal/player"
	"github.com/heimdex/clip-agent/internal/render"
)

// PlayerClient reads the media player's current state.
type PlayerClient interface {
	CurrentFilePath(ctx context.Context) (string, error)
	CurrentPosition(ctx context.Context) (player.Position, error)
}

// SnapshotLister enumerates auto-saved sessions.
type SnapshotLister interface {
	List() ([]autosave.Summary, error)
}

// Exporter writes a session snapshot to an export file.
type Exporter interface {
	Export(snap clips.Snapshot, opts export.Options) (export.Result, error)
}

// RenderDispatcher starts a background render of a timeline file.
type RenderDispatcher interface {
	Dispatch(timelineFile, outputDir string) error
}

// MediaStreamer serves a media file with range support.
type MediaStreamer interface {
	Stream(w http.ResponseWriter, r *http.Request, filePath string) error
}

type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

type ServerConfig struct {
	Port int

	Sessions      clips.SessionService
	Player        PlayerClient
	Snapshots     SnapshotLister
	Exporter      Exporter
	Renders       RenderDispatcher
	RenderHistory render.History
	Media         MediaStreamer

	MetricsHandler http.Handler
	HTTPMetrics    *metrics.HTTPMetrics

	Clock     clockwork.Clock
	Logger    *slog.Logger
	StartTime time.Time
	Version   string
}

func NewServer(cfg ServerConfig) *Server {
	router := NewRouter(cfg)

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf("127.0.0.1:%d", cfg.Port),
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 0, // media streams are long-lived
			IdleTimeout:  60 * time.Second,
		},
		logger: cfg.Logger,
	}
}

func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) Addr() string {
	return s.httpServer.Addr
}
