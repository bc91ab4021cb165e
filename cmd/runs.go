package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"hpa-bench/internal/storage"
)

var (
	runsKind     string
	runsLimit    int
	runsMaxAge   time.Duration
	runsShowJSON bool
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect the run history",
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent runs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		runs, err := store.ListRuns(storage.RunKind(runsKind), runsLimit)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded")
			return nil
		}

		t := table.New().
			Border(lipgloss.NormalBorder()).
			Headers("ID", "KIND", "ARCH", "STATUS", "STARTED", "DURATION")
		for _, r := range runs {
			duration := "-"
			if r.FinishedAt != nil {
				duration = r.FinishedAt.Sub(r.StartedAt).String()
			}
			t.Row(r.ID, string(r.Kind), orDash(r.Architecture), string(r.Status),
				r.StartedAt.Local().Format("2006-01-02 15:04:05"), duration)
		}
		fmt.Fprintln(cmd.OutOrStdout(), t.Render())
		return nil
	},
}

var runsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a run with its summary",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		run, err := store.GetRun(args[0])
		if err != nil {
			return err
		}

		detail := map[string]interface{}{"run": run}
		if run.Kind == storage.KindLoadTest {
			endpoints, err := store.LoadEndpointStats(run.ID)
			if err != nil {
				return err
			}
			detail["endpoints"] = endpoints
			if runsShowJSON {
				history, err := store.LoadHistory(run.ID)
				if err != nil {
					return err
				}
				detail["history"] = history
			}
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(detail)
	},
}

var runsCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove runs older than --max-age",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		removed, err := store.Cleanup(runsMaxAge)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "🧹 %d run(s) removed\n", removed)
		return nil
	},
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func init() {
	runsListCmd.Flags().StringVar(&runsKind, "kind", "",
		"Filter by kind: merge, loadtest or collect")
	runsListCmd.Flags().IntVar(&runsLimit, "limit", 20,
		"Maximum number of runs")
	runsShowCmd.Flags().BoolVar(&runsShowJSON, "history", false,
		"Include the load test history points")
	runsCleanupCmd.Flags().DurationVar(&runsMaxAge, "max-age", 90*24*time.Hour,
		"Age after which runs are removed")

	runsCmd.AddCommand(runsListCmd, runsShowCmd, runsCleanupCmd)
	rootCmd.AddCommand(runsCmd)
}
