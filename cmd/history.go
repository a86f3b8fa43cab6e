package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"time-for/domain/history"
	historystore "time-for/infrastructure/history"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent runs",
	Long: `List the most recent runs with their query, outcome and link (or the
local path when nothing was uploaded).

Example:
  time-for history
  time-for history --limit 50`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", 20, "Number of runs to show")
}

func runHistory(cmd *cobra.Command, args []string) error {
	c, err := requireConfig()
	if err != nil {
		return err
	}
	if !c.History.Enabled {
		return fmt.Errorf("run history is disabled (time-for config set history.enabled true)")
	}

	log, err := newLogger(c)
	if err != nil {
		return err
	}

	store, err := historystore.Open(c.History.Database, logrus.NewEntry(log))
	if err != nil {
		return err
	}
	defer store.Close()

	return RunHistoryWithDependencies(cmd.Context(), store, historyLimit, os.Stdout)
}

// RunHistoryWithDependencies runs the history command with injected dependencies (for testing)
func RunHistoryWithDependencies(ctx context.Context, lister history.Lister, limit int, output io.Writer) error {
	entries, err := lister.Recent(ctx, limit)
	if err != nil {
		return fmt.Errorf("could not read run history: %w", err)
	}
	if len(entries) == 0 {
		fmt.Fprintln(output, "No runs recorded yet.")
		return nil
	}

	w := tabwriter.NewWriter(output, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STARTED\tSTATUS\tQUERY\tSTRATEGY\tTOOK\tRESULT")
	for _, e := range entries {
		query := e.Query
		if query == "" {
			query = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			e.StartedAt.Local().Format("2006-01-02 15:04:05"),
			e.Status,
			query,
			e.Strategy,
			formatTook(e.Duration),
			outcome(e),
		)
	}
	return w.Flush()
}

func outcome(e history.Entry) string {
	switch {
	case e.Status == history.StatusFailed:
		return e.Error
	case e.Uploaded():
		return e.Link
	default:
		return e.OutputPath
	}
}

func formatTook(d time.Duration) string {
	return d.Round(100 * time.Millisecond).String()
}
