package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/heimdex/clip-agent/internal/api"
	"github.com/heimdex/clip-agent/internal/autosave"
	"github.com/heimdex/clip-agent/internal/clips"
	"github.com/heimdex/clip-agent/internal/config"
	"github.com/heimdex/clip-agent/internal/db"
	"github.com/heimdex/clip-agent/internal/export"
	"github.com/heimdex/clip-agent/internal/logging"
	"github.com/heimdex/clip-agent/internal/metrics"
	"github.com/heimdex/clip-agent/internal/playback"
	"github.com/heimdex/clip-agent/internal/player"
	"github.com/heimdex/clip-agent/internal/render"
	"github.com/heimdex/clip-agent/internal/ui"
)

var Version = "0.1.0"

// janitorInterval is how often idle sessions are looked for.
const janitorInterval = 10 * time.Minute

func main() {
	if err := run(); err != nil {
		log.Fatalf("fatal error: %v", err)
	}
}

func run() error {
	clock := clockwork.NewRealClock()
	startTime := clock.Now()

	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := os.MkdirAll(cfg.DataDir(), 0755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}

	logger := logging.NewLogger(cfg.LogLevel())
	logger.Info("starting clip agent",
		"version", Version,
		"data_dir", cfg.DataDir(),
		"autosave_dir", cfg.AutoSaveDir(),
	)

	reg := metrics.NewRegistry()
	engineMetrics := metrics.NewEngine(reg)
	httpMetrics := metrics.NewHTTPMetrics(reg)

	database, err := db.New(cfg.DBPath(), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	writer, err := autosave.NewWriter(cfg.AutoSaveDir(), clock, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize auto-save dir: %w", err)
	}
	if removed, err := writer.Sweep(cfg.SnapshotRetention()); err != nil {
		logger.Warn("auto-save sweep failed", "error", err)
	} else if removed > 0 {
		logger.Info("expired auto-saves removed", "count", removed)
	}

	playerClient := player.NewClient(player.Options{
		BaseURL: cfg.PlayerURL(),
		Timeout: cfg.PlayerTimeout(),
		Metrics: engineMetrics,
		Logger:  logger,
	})

	quitCh := make(chan struct{})
	var quitOnce sync.Once
	quit := func() { quitOnce.Do(func() { close(quitCh) }) }

	var tray *ui.Tray
	if !cfg.Headless() {
		tray = ui.NewTray(ui.TrayConfig{
			Addr:   fmt.Sprintf("127.0.0.1:%d", cfg.Port()),
			Logger: logger,
			OnQuit: quit,
		})
	}

	store := clips.NewStore(clock, logger)
	store.OnSizeChange = func(n int) {
		engineMetrics.SetSessions(n)
		if tray != nil {
			tray.UpdateSessionCount(n)
		}
	}
	store.OnEvict = func(ids []string) {
		engineMetrics.AddEvicted(len(ids))
	}

	sessions := clips.NewService(clips.ServiceConfig{
		Store:     store,
		Resolver:  playerClient,
		Snapshots: writer,
		Clock:     clock,
		Metrics:   engineMetrics,
		Logger:    logger,
	})

	var engine render.Engine
	if cmd := cfg.RenderCommand(); cmd != "" {
		engine = &render.SubprocessEngine{Command: cmd, Args: cfg.RenderArgs(), Logger: logger}
		logger.Info("render engine configured", "command", cmd)
	} else {
		engine = &render.StubEngine{Logger: logger}
		logger.Info("no render command configured, using stub engine")
	}

	dispatcher := render.NewDispatcher(render.Options{
		Engine:  engine,
		Workers: cfg.RenderWorkers(),
		Clock:   clock,
		Metrics: engineMetrics,
		Logger:  logger,
	})
	history := render.NewSQLiteHistory(database.Conn())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go render.NewRecorder(history, logger).Run(ctx, dispatcher.Events())
	go store.RunJanitor(ctx, janitorInterval, cfg.SessionIdleTTL())

	apiServer := api.NewServer(api.ServerConfig{
		Port:           cfg.Port(),
		Sessions:       sessions,
		Player:         playerClient,
		Snapshots:      writer,
		Exporter:       export.NewExporter(clock, logger),
		Renders:        dispatcher,
		RenderHistory:  history,
		Media:          playback.NewStreamer(logger),
		MetricsHandler: metrics.Handler(reg),
		HTTPMetrics:    httpMetrics,
		Clock:          clock,
		Logger:         logger,
		StartTime:      startTime,
		Version:        Version,
	})

	go func() {
		if err := apiServer.Start(); err != nil {
			logger.Error("HTTP server error", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("received shutdown signal", "signal", sig)
			quit()
		case <-quitCh:
		}
	}()

	if tray != nil {
		go tray.Run()
	} else {
		logger.Info("running in headless mode (no system tray)")
	}

	<-quitCh

	logger.Info("initiating graceful shutdown")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown HTTP server", "error", err)
	}
	if err := dispatcher.Shutdown(shutdownCtx); err != nil {
		logger.Error("render jobs did not stop in time", "error", err)
	}
	cancel()

	logger.Info("shutdown complete")
	return nil
}
