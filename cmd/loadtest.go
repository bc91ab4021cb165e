package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"hpa-bench/internal/loadtest"
	"hpa-bench/internal/results"
	"hpa-bench/internal/storage"
	"hpa-bench/internal/tui"
)

var (
	ltHost        string
	ltArch        string
	ltUsers       int
	ltSpawnRate   float64
	ltRunTime     time.Duration
	ltWaitMin     time.Duration
	ltWaitMax     time.Duration
	ltTimeout     time.Duration
	ltCSVPrefix   string
	ltNoCSV       bool
	ltCSVInterval time.Duration
	ltMetricsAddr string
	ltTUI         bool
	ltSeed        uint64
)

var loadtestCmd = &cobra.Command{
	Use:   "loadtest",
	Short: "Run the scripted storefront load test",
	Long: `Spawns simulated shoppers against the demo storefront. Each user warms up with
GET /, then repeatedly picks a weighted task (browse, product, cart, currency,
checkout, logout, static assets) and waits 2-5s between tasks.

Statistics are written in locust's CSV format so that merge can consume them:
  <prefix>_stats_history.csv  every --csv-interval (Aggregated row)
  <prefix>_stats.csv          per request name at the end
  <prefix>_failures.csv       failures grouped by request and error`,
	Example: `  hpa-bench loadtest --host http://frontend.local --arch monolith --users 50 --spawn-rate 5 --run-time 10m
  hpa-bench loadtest --arch decoupled --tui --metrics-addr :9100`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		cfg, err := loadtestConfig(cmd)
		if err != nil {
			return err
		}

		metrics := loadtest.NewMetrics(cfg.Architecture)
		runner, err := loadtest.NewRunner(cfg, loadtest.Storefront(), metrics)
		if err != nil {
			return err
		}

		if ltMetricsAddr != "" {
			shutdown := serveMetrics(ltMetricsAddr, metrics.Handler())
			defer shutdown()
		}

		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		run, err := store.StartRun(storage.KindLoadTest, cfg.Architecture)
		if err != nil {
			return err
		}

		var (
			mu      sync.Mutex
			history []storage.HistoryPoint
		)
		runner.OnTick = func(s loadtest.Snapshot) {
			mu.Lock()
			history = append(history, storage.HistoryPointFromSnapshot(s))
			mu.Unlock()
		}

		var report *loadtest.Report
		if ltTUI {
			report, err = tui.RunLive(ctx, fmt.Sprintf("hpa-bench loadtest (%s)", cfg.Architecture), runner)
		} else {
			report, err = runner.Run(ctx)
		}

		if err != nil {
			finishRun(store, run, nil, err)
			return fmt.Errorf("load test failed: %w", err)
		}

		mu.Lock()
		points := history
		mu.Unlock()
		if err := store.SaveHistory(run.ID, points); err != nil {
			log.Warn().Err(err).Msg("Failed to store load test history")
		}
		if err := store.SaveEndpointStats(run.ID, storage.EndpointStatsFromSnapshot(report.Snapshot)); err != nil {
			log.Warn().Err(err).Msg("Failed to store endpoint statistics")
		}
		finishRun(store, run, report, nil)

		fmt.Fprintln(cmd.OutOrStdout(), tui.RenderSummary(fmt.Sprintf("Load test %s (%s)", run.ID, cfg.Architecture), report))
		return nil
	},
}

func loadtestConfig(cmd *cobra.Command) (*loadtest.Config, error) {
	if ltArch == "" {
		return nil, errors.New("--arch is required")
	}

	host := ltHost
	if !cmd.Flags().Changed("host") && settings.Host != "" {
		host = settings.Host
	}

	cfg := loadtest.DefaultConfig()
	cfg.Host = host
	cfg.Architecture = ltArch
	cfg.Users = ltUsers
	cfg.SpawnRate = ltSpawnRate
	cfg.RunTime = ltRunTime
	cfg.WaitMin = ltWaitMin
	cfg.WaitMax = ltWaitMax
	cfg.RequestTimeout = ltTimeout
	cfg.CSVInterval = ltCSVInterval
	cfg.Seed = ltSeed

	switch {
	case ltNoCSV:
		cfg.CSVPrefix = ""
	case ltCSVPrefix != "":
		cfg.CSVPrefix = ltCSVPrefix
	default:
		cfg.CSVPrefix = results.NewLayout(resultsDir).LocustPrefix(ltArch)
	}

	return cfg, cfg.Validate()
}

// serveMetrics expõe /metrics do teste em background
func serveMetrics(addr string, handler http.Handler) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		log.Info().Str("addr", addr).Msg("Serving load test metrics")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Str("addr", addr).Msg("Metrics server failed")
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}
}

func init() {
	defaults := loadtest.DefaultConfig()

	loadtestCmd.Flags().StringVar(&ltHost, "host", defaults.Host,
		"Base URL of the storefront")
	loadtestCmd.Flags().StringVar(&ltArch, "arch", "",
		"Architecture under test (monolith, decoupled, ...); selects the CSV location")
	loadtestCmd.Flags().IntVarP(&ltUsers, "users", "u", defaults.Users,
		"Number of simulated users")
	loadtestCmd.Flags().Float64VarP(&ltSpawnRate, "spawn-rate", "r", defaults.SpawnRate,
		"Users started per second")
	loadtestCmd.Flags().DurationVarP(&ltRunTime, "run-time", "t", defaults.RunTime,
		"Test duration (0 runs until interrupted)")
	loadtestCmd.Flags().DurationVar(&ltWaitMin, "wait-min", defaults.WaitMin,
		"Minimum wait between tasks")
	loadtestCmd.Flags().DurationVar(&ltWaitMax, "wait-max", defaults.WaitMax,
		"Maximum wait between tasks")
	loadtestCmd.Flags().DurationVar(&ltTimeout, "request-timeout", defaults.RequestTimeout,
		"HTTP request timeout")
	loadtestCmd.Flags().StringVar(&ltCSVPrefix, "csv", "",
		"CSV prefix (default: <results>/<arch>/locust/<arch>_run)")
	loadtestCmd.Flags().BoolVar(&ltNoCSV, "no-csv", false,
		"Do not write CSV files")
	loadtestCmd.Flags().DurationVar(&ltCSVInterval, "csv-interval", defaults.CSVInterval,
		"Interval between stats history rows")
	loadtestCmd.Flags().StringVar(&ltMetricsAddr, "metrics-addr", "",
		"Expose Prometheus metrics on this address (e.g. :9100)")
	loadtestCmd.Flags().BoolVar(&ltTUI, "tui", false,
		"Show a live statistics table")
	loadtestCmd.Flags().Uint64Var(&ltSeed, "seed", 0,
		"Seed for task selection and waits (0 uses the clock)")

	rootCmd.AddCommand(loadtestCmd)
}
