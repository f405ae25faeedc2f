package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/heimdex/heimdex-editor/internal/config"
	"github.com/heimdex/heimdex-editor/internal/db"
	"github.com/heimdex/heimdex-editor/internal/export"
	"github.com/heimdex/heimdex-editor/internal/history"
	"github.com/heimdex/heimdex-editor/internal/logging"
)

func NewHistoryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent exports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.New()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			database, err := db.New(cfg.DBPath(), logging.Discard())
			if err != nil {
				return fmt.Errorf("failed to open export history: %w", err)
			}
			defer database.Close()

			jobs, err := history.NewRepository(database.Conn()).ListExports(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return printHistory(cmd.OutOrStdout(), jobs)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of exports to show")

	return cmd
}

func printHistory(w io.Writer, jobs []*export.Job) error {
	if len(jobs) == 0 {
		_, err := fmt.Fprintln(w, "No exports yet.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTARTED\tPHASE\tPROGRESS\tRESULT")
	for _, j := range jobs {
		result := j.ResultURL
		if j.Phase == export.PhaseFailed {
			result = j.Error
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.0f%%\t%s\n",
			shortID(j.ID),
			j.StartedAt.Local().Format(time.DateTime),
			j.Phase,
			j.Progress*100,
			result,
		)
	}
	return tw.Flush()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
