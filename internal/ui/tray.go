package ui

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/getlantern/systray"

	"github.com/heimdex/clip-agent/internal/logging"
)

type Tray struct {
	logger *slog.Logger

	statusItem   *systray.MenuItem
	sessionsItem *systray.MenuItem

	mu       sync.Mutex
	sessions int
	addr     string

	onQuit func()
}

type TrayConfig struct {
	// Addr is the API address shown in the menu.
	Addr   string
	Logger *slog.Logger
	OnQuit func()
}

func NewTray(cfg TrayConfig) *Tray {
	return &Tray{
		logger: logging.WithComponent(logging.OrDiscard(cfg.Logger), "tray"),
		addr:   cfg.Addr,
		onQuit: cfg.OnQuit,
	}
}

func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

func (t *Tray) onReady() {
	systray.SetIcon(iconBytes)
	systray.SetTitle("Clips")
	systray.SetTooltip("Clip Agent")

	t.mu.Lock()
	t.statusItem = systray.AddMenuItem("Listening on "+t.addr, "API address")
	t.statusItem.Disable()

	t.sessionsItem = systray.AddMenuItem(sessionsLabel(t.sessions), "Live clip sessions")
	t.sessionsItem.Disable()
	t.mu.Unlock()

	systray.AddSeparator()

	quitItem := systray.AddMenuItem("Quit", "Quit Clip Agent")

	go func() {
		<-quitItem.ClickedCh
		t.logger.Info("quit requested from tray")
		if t.onQuit != nil {
			t.onQuit()
		}
		systray.Quit()
	}()

	t.logger.Info("system tray ready")
}

func (t *Tray) onExit() {
	t.logger.Info("system tray exiting")
}

// UpdateSessionCount is safe to call before the tray is ready; the count is
// shown once the menu exists.
func (t *Tray) UpdateSessionCount(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.sessions = n
	if t.sessionsItem != nil {
		t.sessionsItem.SetTitle(sessionsLabel(n))
	}
}

func (t *Tray) Quit() {
	systray.Quit()
}

func sessionsLabel(n int) string {
	if n == 1 {
		return "1 session"
	}
	return fmt.Sprintf("%d sessions", n)
}
