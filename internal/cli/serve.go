package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/heimdex/heimdex-editor/internal/api"
	"github.com/heimdex/heimdex-editor/internal/config"
	"github.com/heimdex/heimdex-editor/internal/db"
	"github.com/heimdex/heimdex-editor/internal/export"
	"github.com/heimdex/heimdex-editor/internal/history"
	"github.com/heimdex/heimdex-editor/internal/logging"
	"github.com/heimdex/heimdex-editor/internal/metrics"
	"github.com/heimdex/heimdex-editor/internal/playback"
	"github.com/heimdex/heimdex-editor/internal/renderer"
	"github.com/heimdex/heimdex-editor/internal/session"
	"github.com/heimdex/heimdex-editor/internal/thumbnail"
	"github.com/heimdex/heimdex-editor/internal/ui"
)

const shutdownTimeout = 10 * time.Second

func NewServeCmd() *cobra.Command {
	var port int
	var headless bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the editing agent",
		Long:  "Starts the localhost API that preview clients use to edit overlays and export.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.New()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			opts := serveOptions{port: cfg.Port(), headless: cfg.Headless()}
			if cmd.Flags().Changed("port") {
				opts.port = port
			}
			if cmd.Flags().Changed("headless") {
				opts.headless = headless
			}
			return runServe(cfg, opts)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to listen on (overrides EDITOR_PORT)")
	cmd.Flags().BoolVar(&headless, "headless", true, "Run without the system tray")

	return cmd
}

type serveOptions struct {
	port     int
	headless bool
}

func runServe(cfg config.Config, opts serveOptions) error {
	startTime := time.Now()

	if err := os.MkdirAll(cfg.DataDir(), 0o755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}
	if err := os.MkdirAll(cfg.CacheDir(), 0o755); err != nil {
		return fmt.Errorf("failed to create cache dir: %w", err)
	}

	logger := logging.NewLogger(cfg.LogLevel())
	logger.Info("starting heimdex editor", "version", config.Version, "data_dir", logging.SanitizePath(cfg.DataDir()))
	if f := cfg.ConfigFile(); f != "" {
		logger.Info("loaded config file", "path", logging.SanitizePath(f))
	}

	database, err := db.New(cfg.DBPath(), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	repo := history.NewRepository(database.Conn())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	deviceID, err := history.EnsureSecret(ctx, repo, history.KeyDeviceID, 16)
	if err != nil {
		return fmt.Errorf("failed to ensure device ID: %w", err)
	}
	authToken, err := history.EnsureSecret(ctx, repo, history.KeyAuthToken, 32)
	if err != nil {
		return fmt.Errorf("failed to ensure auth token: %w", err)
	}

	printBanner(opts.port, authToken, deviceID)

	m := metrics.New()
	thumbs := thumbnail.New(thumbnail.Config{
		FFmpegPath: cfg.FFmpegPath(),
		CacheDir:   cfg.CacheDir(),
		Logger:     logging.WithComponent(logger, "thumbnails"),
	})

	sessions := session.NewManager(session.Config{
		Renderer:      newRendererClient(cfg, logger),
		Thumbnails:    thumbs,
		FrameInterval: cfg.FrameInterval(),
		PollInterval:  cfg.PollInterval(),
		MaxPolls:      cfg.MaxPolls(),
		Observers: []export.Observer{
			history.NewRecorder(repo, logging.WithComponent(logger, "history")),
			m,
		},
		Logger: logger,
	})

	apiServer := api.NewServer(api.ServerConfig{
		Port:         opts.port,
		Sessions:     sessions,
		History:      repo,
		Metrics:      m,
		Media:        playback.NewMediaServer(logger),
		ThumbnailDir: cfg.CacheDir(),
		Logger:       logger,
		StartTime:    startTime,
		DeviceID:     deviceID,
	})

	go func() {
		if err := apiServer.Start(); err != nil {
			logger.Error("HTTP server error", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	trayQuit := make(chan struct{}, 1)

	if opts.headless {
		logger.Info("running in headless mode (no system tray)")
	} else {
		tray := ui.NewTray(ui.TrayConfig{
			Source: sessions,
			APIURL: fmt.Sprintf("http://127.0.0.1:%d", opts.port),
			Logger: logger,
			OnQuit: func() {
				trayQuit <- struct{}{}
			},
		})
		go tray.Run()
	}

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig)
	case <-trayQuit:
	}

	logger.Info("initiating graceful shutdown")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown HTTP server", "error", err)
	}
	sessions.CloseAll()

	logger.Info("shutdown complete")
	return nil
}

// newRendererClient falls back to the stub when no renderer is configured,
// so editing still works and exports fail with a clear error.
func newRendererClient(cfg config.Config, logger *slog.Logger) renderer.Client {
	if cfg.RendererURL() == "" {
		logger.Warn("no renderer configured, exports disabled")
		return renderer.NewStubClient(logger)
	}
	logger.Info("renderer configured", "base_url", cfg.RendererURL())
	return renderer.NewHTTPClient(cfg.RendererURL(), cfg.HTTPTimeout(), logging.WithComponent(logger, "renderer"))
}

func printBanner(port int, authToken, deviceID string) {
	fmt.Println()
	fmt.Println("╔═══════════════════════════════════════════════════════════╗")
	fmt.Printf("║  %-56s ║\n", "HEIMDEX EDITOR v"+config.Version)
	fmt.Println("╠═══════════════════════════════════════════════════════════╣")
	fmt.Printf("║  API URL:    http://127.0.0.1:%-28d ║\n", port)
	fmt.Printf("║  Auth Token: %-45s ║\n", authToken)
	fmt.Printf("║  Device ID:  %-45s ║\n", deviceID[:16]+"...")
	fmt.Println("╚═══════════════════════════════════════════════════════════╝")
	fmt.Println()
}
