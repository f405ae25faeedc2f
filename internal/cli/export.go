package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/heimdex/heimdex-editor/internal/config"
	"github.com/heimdex/heimdex-editor/internal/db"
	"github.com/heimdex/heimdex-editor/internal/export"
	"github.com/heimdex/heimdex-editor/internal/history"
	"github.com/heimdex/heimdex-editor/internal/logging"
	"github.com/heimdex/heimdex-editor/internal/overlay"
	"github.com/heimdex/heimdex-editor/internal/renderer"
	"github.com/heimdex/heimdex-editor/internal/tui"
)

// Composition is the on-disk form of an export: a base video plus its
// overlays. A bare JSON array of overlays is accepted too.
type Composition struct {
	BaseVideo string            `json:"base_video,omitempty"`
	Overlays  []overlay.Overlay `json:"overlays"`
}

func NewExportCmd() *cobra.Command {
	var (
		video       string
		overlayFile string
		rendererURL string
		plain       bool
		noHistory   bool
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Render a composition once and wait for the result",
		Long: "Uploads a base video and the overlays described in a JSON file to the renderer,\n" +
			"then follows the job until it completes. Ctrl+C cancels the export.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.New()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			comp := Composition{}
			if overlayFile != "" {
				if comp, err = LoadComposition(overlayFile); err != nil {
					return err
				}
			}
			if video != "" {
				comp.BaseVideo = video
			}
			if comp.BaseVideo == "" {
				return errors.New("a base video is required (--video or base_video in the overlays file)")
			}
			if _, err := os.Stat(comp.BaseVideo); err != nil {
				return fmt.Errorf("base video: %w", err)
			}

			url := cfg.RendererURL()
			if rendererURL != "" {
				url = rendererURL
			}

			return runExport(cmd, cfg, exportOptions{
				comp:        comp,
				rendererURL: url,
				plain:       plain,
				history:     !noHistory,
			})
		},
	}

	cmd.Flags().StringVar(&video, "video", "", "Base video to render onto")
	cmd.Flags().StringVar(&overlayFile, "overlays", "", "JSON file with the overlays")
	cmd.Flags().StringVar(&rendererURL, "renderer", "", "Renderer base URL (overrides EDITOR_RENDERER_URL)")
	cmd.Flags().BoolVar(&plain, "plain", false, "Print progress lines instead of the interactive view")
	cmd.Flags().BoolVar(&noHistory, "no-history", false, "Do not record the job in the export history")

	return cmd
}

type exportOptions struct {
	comp        Composition
	rendererURL string
	plain       bool
	history     bool
}

func runExport(cmd *cobra.Command, cfg config.Config, opts exportOptions) error {
	level := cfg.LogLevel()
	if !opts.plain {
		// The progress view owns the terminal.
		level = "error"
	}
	logger := logging.NewLoggerTo(cmd.ErrOrStderr(), level)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var observers []export.Observer
	if opts.history {
		database, err := db.New(cfg.DBPath(), logger)
		if err != nil {
			return fmt.Errorf("failed to open export history: %w", err)
		}
		defer database.Close()
		observers = append(observers, history.NewRecorder(history.NewRepository(database.Conn()), logger))
	}

	client := renderer.NewHTTPClient(opts.rendererURL, cfg.HTTPTimeout(), logging.WithComponent(logger, "renderer"))
	orch := export.New(client, export.Options{
		PollInterval: cfg.PollInterval(),
		MaxPolls:     cfg.MaxPolls(),
		Logger:       logger,
	})
	sub := renderer.Submission{BaseVideo: opts.comp.BaseVideo, Overlays: opts.comp.Overlays}
	out := cmd.OutOrStdout()

	var final export.Job
	if opts.plain {
		observers = append(observers, progressPrinter(out))
		job, err := orch.Run(ctx, sub, observers...)
		if err != nil {
			return err
		}
		final = job
	} else {
		feed := tui.NewFeed()
		if _, err := orch.Start(ctx, sub, append(observers, feed)...); err != nil {
			return err
		}
		title := fmt.Sprintf("Exporting %s with %d overlays", filepath.Base(sub.BaseVideo), len(sub.Overlays))
		if _, err := tui.Run(title, feed, orch.Cancel, cmd.InOrStdin(), out); err != nil {
			orch.Cancel()
			logger.Error("progress view failed", "error", err)
		}
		final = orch.Wait()
	}

	return exportResult(out, final, logger)
}

// progressPrinter writes one line per phase or progress change.
func progressPrinter(w io.Writer) export.Observer {
	var last export.Job
	return export.ObserverFunc(func(j export.Job) {
		if j.Phase == last.Phase && j.Progress == last.Progress {
			return
		}
		last = j
		fmt.Fprintf(w, "%-10s %3.0f%%  %s\n", j.Phase, j.Progress*100, j.Message)
	})
}

func exportResult(w io.Writer, j export.Job, logger *slog.Logger) error {
	switch j.Phase {
	case export.PhaseCompleted:
		fmt.Fprintln(w, j.ResultURL)
		return nil
	case export.PhaseFailed:
		logger.Debug("export failed", "job_id", j.ID, "kind", j.FailureKind)
		return &export.Failure{Kind: j.FailureKind, Message: j.Error, Retryable: j.Retryable}
	default:
		return fmt.Errorf("export ended in phase %q", j.Phase)
	}
}

// LoadComposition reads an overlays file. Overlays without an id get one and
// unknown types are rejected.
func LoadComposition(path string) (Composition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Composition{}, fmt.Errorf("read overlays file: %w", err)
	}

	var comp Composition
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		err = json.Unmarshal(trimmed, &comp.Overlays)
	} else {
		err = json.Unmarshal(trimmed, &comp)
	}
	if err != nil {
		return Composition{}, fmt.Errorf("parse overlays file: %w", err)
	}

	for i := range comp.Overlays {
		o := &comp.Overlays[i]
		if !o.Kind.Valid() {
			return Composition{}, fmt.Errorf("overlay %d: unsupported type %q", i, o.Kind)
		}
		if o.ID == "" {
			o.ID = uuid.NewString()
		}
		if o.Kind.HasAsset() && o.Content != "" && !filepath.IsAbs(o.Content) && !hasScheme(o.Content) {
			o.Content = filepath.Join(filepath.Dir(path), o.Content)
		}
	}
	return comp, nil
}

// hasScheme reports whether ref is a URI rather than a path. Single-letter
// schemes are Windows drive letters.
func hasScheme(ref string) bool {
	u, err := url.Parse(ref)
	return err == nil && len(u.Scheme) > 1
}
