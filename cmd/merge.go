package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"hpa-bench/internal/merge"
	"hpa-bench/internal/results"
	"hpa-bench/internal/storage"
)

var (
	mergeMode   string
	mergeOutput string
	mergeArchs  []string
)

var mergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Consolidate cpu/hpa and locust CSVs of every architecture",
	Long: `Reads <results>/<architecture>/cpu_hpa and <results>/<architecture>/locust for each
architecture and writes merged_all.csv and merged_locust.csv to the output directory.

Modes:
  standard   outer-join every CSV of a service on timestamp (cpu_pod_long excluded)
  aggregate  one cpu frame per service (cpu_deployment, or cpu_pod_long summed per
             timestamp) joined with hpa_current/desired/max, plus all_services totals
             per architecture; locust columns are renamed to snake_case`,
	Example: `  hpa-bench merge
  hpa-bench merge --mode aggregate --output out/
  hpa-bench merge --arch monolith --arch decoupled`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		run, err := store.StartRun(storage.KindMerge, "")
		if err != nil {
			return err
		}

		summary, err := runMerge(ctx)
		if err != nil {
			finishRun(store, run, nil, err)
			return err
		}
		finishRun(store, run, summary, nil)

		for _, f := range summary.Files {
			fmt.Fprintf(cmd.OutOrStdout(), "✅ %s\n", f)
		}
		if len(summary.Files) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "⚠️  No input data found, nothing written")
		}
		return nil
	},
}

// mergeSummary resumo gravado no histórico
type mergeSummary struct {
	Mode          string            `json:"mode"`
	Architectures []string          `json:"architectures"`
	Files         []string          `json:"files"`
	Frames        []merge.FrameInfo `json:"frames"`
	AllRows       int               `json:"all_rows"`
	LocustRows    int               `json:"locust_rows"`
}

func runMerge(ctx context.Context) (*mergeSummary, error) {
	cfg := merge.DefaultConfig()
	cfg.ResultsDir = resultsDir
	cfg.Mode = merge.Mode(mergeMode)
	if len(mergeArchs) > 0 {
		cfg.Architectures = mergeArchs
	}

	merger, err := merge.New(cfg)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("results_dir", cfg.ResultsDir).
		Strs("architectures", cfg.Architectures).
		Str("mode", string(cfg.Mode)).
		Msg("Merging results")

	result, err := merger.Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("merge failed: %w", err)
	}

	files, err := result.Write(mergeOutput)
	if err != nil {
		return nil, fmt.Errorf("failed to write merged files: %w", err)
	}

	return &mergeSummary{
		Mode:          string(cfg.Mode),
		Architectures: cfg.Architectures,
		Files:         files,
		Frames:        result.Frames,
		AllRows:       result.All.Len(),
		LocustRows:    result.Locust.Len(),
	}, nil
}

func init() {
	mergeCmd.Flags().StringVar(&mergeMode, "mode", string(merge.ModeStandard),
		"Merge strategy: standard or aggregate")
	mergeCmd.Flags().StringVarP(&mergeOutput, "output", "o", ".",
		"Directory for merged_all.csv and merged_locust.csv")
	mergeCmd.Flags().StringSliceVar(&mergeArchs, "arch", nil,
		fmt.Sprintf("Architectures to merge (default: %v)", results.DefaultArchitectures))

	rootCmd.AddCommand(mergeCmd)
}
