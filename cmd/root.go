package cmd

import (
	"io"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"hpa-bench/internal/config"
	"hpa-bench/internal/logs"
	"hpa-bench/internal/storage"
)

var (
	debug      bool
	logFile    string
	configDir  string
	resultsDir string
	dbPath     string
	noDB       bool

	settings  *config.Settings
	logCloser io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "hpa-bench",
	Short: "HPA benchmark toolkit: load tests, metric collection and result consolidation",
	Long: `Toolkit for benchmarking Kubernetes Horizontal Pod Autoscalers across
application architectures (monolith vs. decoupled services).

Workflow:
- loadtest: drive a scripted storefront session and write locust-compatible CSVs
- collect:  export CPU and replica series of each HPA from Prometheus
- merge:    consolidate the per-architecture CSVs into merged_all.csv and merged_locust.csv
- serve:    browse run history and merged datasets over HTTP
- runs:     inspect the run history stored in SQLite

Results layout:
  <results>/<architecture>/cpu_hpa/<service-dir>/*.csv
  <results>/<architecture>/locust/<architecture>_run_stats_history.csv`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		closer, err := logs.Setup(logs.Options{Debug: debug, File: logFile})
		if err != nil {
			return err
		}
		logCloser = closer

		settings, err = config.Load(configDir)
		if err != nil {
			return err
		}
		if !cmd.Flags().Changed("results-dir") {
			resultsDir = settings.ResultsDir
		}
		if !cmd.Flags().Changed("db") {
			dbPath = settings.DBPath
		}

		log.Debug().
			Str("results_dir", resultsDir).
			Str("db", dbPath).
			Bool("db_enabled", !noDB).
			Msg("Configuration loaded")
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if logCloser != nil {
			return logCloser.Close()
		}
		return nil
	},
}

// Execute executa o comando raiz
func Execute() error {
	return rootCmd.Execute()
}

// openStore abre o histórico de execuções (no-op com --no-db)
func openStore() (*storage.Persistence, error) {
	cfg := storage.DefaultPersistenceConfig()
	cfg.Enabled = !noDB
	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	return storage.NewPersistence(cfg)
}

// finishRun registra o término sem interromper o comando em caso de falha do banco
func finishRun(store *storage.Persistence, run *storage.Run, summary interface{}, runErr error) {
	if err := store.FinishRun(run.ID, summary, runErr); err != nil {
		log.Warn().Err(err).Str("run_id", run.ID).Msg("Failed to record run result")
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false,
		"Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "",
		"Also write JSON logs to this file")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "",
		"Directory holding config.json and runs.db (default: $HOME/.hpa-bench)")
	rootCmd.PersistentFlags().StringVar(&resultsDir, "results-dir", "results",
		"Base results directory (env: HPA_BENCH_RESULTS_DIR)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "",
		"Path of the SQLite run history (default: <config-dir>/runs.db)")
	rootCmd.PersistentFlags().BoolVar(&noDB, "no-db", false,
		"Do not record runs in the SQLite history")
}
