package ui

import (
	_ "embed"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/getlantern/systray"
)

//go:embed icon.png
var iconBytes []byte

const refreshInterval = 2 * time.Second

// StatusSource is the part of the session manager the tray reads from.
type StatusSource interface {
	Count() int
	ActiveExports() int
	CancelExports() int
}

type Tray struct {
	source StatusSource
	logger *slog.Logger
	apiURL string

	statusItem   *systray.MenuItem
	sessionsItem *systray.MenuItem
	cancelItem   *systray.MenuItem

	mu   sync.Mutex
	done chan struct{}

	onQuit func()
}

type TrayConfig struct {
	Source StatusSource
	APIURL string
	Logger *slog.Logger
	OnQuit func()
}

func NewTray(cfg TrayConfig) *Tray {
	return &Tray{
		source: cfg.Source,
		apiURL: cfg.APIURL,
		logger: cfg.Logger,
		onQuit: cfg.OnQuit,
		done:   make(chan struct{}),
	}
}

// Run blocks until the tray exits.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

func (t *Tray) onReady() {
	systray.SetIcon(iconBytes)
	systray.SetTitle("Heimdex")
	systray.SetTooltip("Heimdex Editor " + t.apiURL)

	t.statusItem = systray.AddMenuItem("Status: Idle", "Current editor status")
	t.statusItem.Disable()

	t.sessionsItem = systray.AddMenuItem("Sessions: 0", "Open editing sessions")
	t.sessionsItem.Disable()

	systray.AddSeparator()

	t.cancelItem = systray.AddMenuItem("Cancel Exports", "Cancel every running export")
	t.cancelItem.Disable()

	systray.AddSeparator()

	quitItem := systray.AddMenuItem("Quit", "Quit Heimdex Editor")

	go t.refreshLoop()

	go func() {
		for {
			select {
			case <-t.cancelItem.ClickedCh:
				t.cancelExports()
			case <-quitItem.ClickedCh:
				t.logger.Info("quit requested from tray")
				if t.onQuit != nil {
					t.onQuit()
				}
				systray.Quit()
				return
			}
		}
	}()

	t.logger.Info("system tray ready")
}

func (t *Tray) onExit() {
	close(t.done)
	t.logger.Info("system tray exiting")
}

func (t *Tray) refreshLoop() {
	ticker := time.NewTicker(refreshInterval)
	defer ticker.Stop()

	t.refresh()
	for {
		select {
		case <-ticker.C:
			t.refresh()
		case <-t.done:
			return
		}
	}
}

func (t *Tray) refresh() {
	if t.source == nil {
		return
	}
	sessions, exports := t.source.Count(), t.source.ActiveExports()

	t.mu.Lock()
	defer t.mu.Unlock()

	t.sessionsItem.SetTitle(fmt.Sprintf("Sessions: %d", sessions))
	t.statusItem.SetTitle("Status: " + StatusLabel(exports))
	if exports > 0 {
		t.cancelItem.Enable()
	} else {
		t.cancelItem.Disable()
	}
}

func (t *Tray) cancelExports() {
	if t.source == nil {
		return
	}
	n := t.source.CancelExports()
	t.logger.Info("exports cancelled from tray", "count", n)
	t.refresh()
}

// StatusLabel is the tray's one-word summary of export activity.
func StatusLabel(activeExports int) string {
	switch {
	case activeExports == 1:
		return "Exporting"
	case activeExports > 1:
		return fmt.Sprintf("Exporting (%d)", activeExports)
	default:
		return "Idle"
	}
}

func (t *Tray) Quit() {
	systray.Quit()
}
