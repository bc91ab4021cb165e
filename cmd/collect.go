package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"hpa-bench/internal/collector"
	"hpa-bench/internal/config"
	"hpa-bench/internal/kubernetes"
	"hpa-bench/internal/storage"
)

var (
	colArch          string
	colNamespace     string
	colHPAs          []string
	colTargets       []string
	colLabelSelector string
	colPrometheusURL string
	colKubeconfig    string
	colContext       string
	colLookback      time.Duration
	colStep          time.Duration
	colRateWindow    string
	colEnd           string
)

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Export HPA CPU and replica series from Prometheus into the cpu_hpa tree",
	Long: `Discovers the HPAs of a namespace (or uses the ones given with --hpa / --target)
and, for each one, runs Prometheus range queries for deployment CPU, per-pod CPU
and current/desired/max replicas. Files are written to
<results>/<arch>/cpu_hpa/<scale-target>/ (monolith: cpu_hpa/monolith/).

--target hpa:deployment skips the cluster lookup entirely.`,
	Example: `  hpa-bench collect --arch decoupled --namespace boutique --lookback 45m
  hpa-bench collect --arch monolith --target frontend:monolith --prometheus-url http://prom:9090`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		if colArch == "" {
			return errors.New("--arch is required")
		}
		applyCollectDefaults(cmd)

		targets, err := resolveTargets(ctx)
		if err != nil {
			return err
		}
		if len(targets) == 0 {
			return fmt.Errorf("no HPA found in namespace %s", colNamespace)
		}

		api, err := collector.NewPrometheusAPI(colPrometheusURL)
		if err != nil {
			return err
		}

		cfg := collector.DefaultConfig()
		cfg.ResultsDir = resultsDir
		cfg.Architecture = colArch
		cfg.Lookback = colLookback
		cfg.Step = colStep
		cfg.RateWindow = colRateWindow
		if colEnd != "" {
			end, err := time.Parse(time.RFC3339, colEnd)
			if err != nil {
				return fmt.Errorf("invalid --end (RFC3339 expected): %w", err)
			}
			cfg.End = end
		}

		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		run, err := store.StartRun(storage.KindCollect, colArch)
		if err != nil {
			return err
		}

		summary, err := collector.New(api, cfg).Collect(ctx, targets)
		if err != nil {
			finishRun(store, run, nil, err)
			return err
		}
		finishRun(store, run, summary, nil)

		fmt.Fprintf(cmd.OutOrStdout(), "✅ %d file(s) written for %d HPA(s)\n", len(summary.Files), summary.Targets)
		for _, f := range summary.Failed {
			fmt.Fprintf(cmd.OutOrStdout(), "⚠️  %s skipped\n", f)
		}
		return nil
	},
}

// applyCollectDefaults completa flags não informadas com as configurações carregadas
func applyCollectDefaults(cmd *cobra.Command) {
	if !cmd.Flags().Changed("namespace") && settings.Namespace != "" {
		colNamespace = settings.Namespace
	}
	if !cmd.Flags().Changed("prometheus-url") && settings.PrometheusURL != "" {
		colPrometheusURL = settings.PrometheusURL
	}
	if !cmd.Flags().Changed("kubeconfig") {
		colKubeconfig = settings.Kubeconfig
	}
}

// resolveTargets monta os alvos a partir de --target ou consultando o cluster
func resolveTargets(ctx context.Context) ([]collector.Target, error) {
	if len(colTargets) > 0 {
		return parseTargets(colTargets, colNamespace)
	}

	client, err := kubernetes.NewClientFromKubeconfig(colKubeconfig, colContext)
	if err != nil {
		if colContext != "" {
			if names, _, cerr := config.Contexts(colKubeconfig); cerr == nil {
				return nil, fmt.Errorf("%w (available contexts: %s)", err, strings.Join(names, ", "))
			}
		}
		return nil, err
	}

	var hpas []kubernetes.HPAInfo
	if len(colHPAs) > 0 {
		hpas, err = client.GetHPAs(ctx, colNamespace, colHPAs)
	} else {
		hpas, err = client.ListHPAs(ctx, colNamespace, colLabelSelector)
	}
	if err != nil {
		return nil, err
	}

	targets := make([]collector.Target, 0, len(hpas))
	for _, h := range hpas {
		log.Debug().
			Str("hpa", h.Name).
			Str("scale_target", h.ScaleTargetName).
			Int32("min", h.MinReplicas).
			Int32("max", h.MaxReplicas).
			Msg("HPA discovered")
		targets = append(targets, targetFromHPA(h))
	}
	return targets, nil
}

func targetFromHPA(h kubernetes.HPAInfo) collector.Target {
	return collector.Target{
		HPA:         h.Name,
		Namespace:   h.Namespace,
		ScaleTarget: h.ScaleTargetName,
	}
}

// parseTargets interpreta "hpa" ou "hpa:deployment"
func parseTargets(raws []string, namespace string) ([]collector.Target, error) {
	targets := make([]collector.Target, 0, len(raws))
	for _, raw := range raws {
		hpa, scale, _ := strings.Cut(strings.TrimSpace(raw), ":")
		if hpa == "" {
			return nil, fmt.Errorf("invalid target %q (expected hpa[:deployment])", raw)
		}
		targets = append(targets, collector.Target{
			HPA:         hpa,
			Namespace:   namespace,
			ScaleTarget: scale,
		})
	}
	return targets, nil
}

func init() {
	defaults := collector.DefaultConfig()

	collectCmd.Flags().StringVar(&colArch, "arch", "",
		"Architecture the metrics belong to (monolith writes to cpu_hpa/monolith)")
	collectCmd.Flags().StringVarP(&colNamespace, "namespace", "n", "default",
		"Namespace of the HPAs")
	collectCmd.Flags().StringSliceVar(&colHPAs, "hpa", nil,
		"HPA names to collect (default: every HPA in the namespace)")
	collectCmd.Flags().StringSliceVar(&colTargets, "target", nil,
		"Offline targets as hpa[:deployment], no cluster access")
	collectCmd.Flags().StringVarP(&colLabelSelector, "selector", "l", "",
		"Label selector used when discovering HPAs")
	collectCmd.Flags().StringVar(&colPrometheusURL, "prometheus-url", "http://localhost:9090",
		"Prometheus base URL (env: PROMETHEUS_URL)")
	collectCmd.Flags().StringVar(&colKubeconfig, "kubeconfig", "",
		"Path to kubeconfig file (default: $KUBECONFIG or $HOME/.kube/config)")
	collectCmd.Flags().StringVar(&colContext, "context", "",
		"Kubeconfig context (default: current context)")
	collectCmd.Flags().DurationVar(&colLookback, "lookback", defaults.Lookback,
		"Time window to export, ending at --end")
	collectCmd.Flags().DurationVar(&colStep, "step", defaults.Step,
		"Query resolution step")
	collectCmd.Flags().StringVar(&colRateWindow, "rate-window", defaults.RateWindow,
		"Range used in rate() for CPU queries")
	collectCmd.Flags().StringVar(&colEnd, "end", "",
		"End of the window in RFC3339 (default: now)")

	rootCmd.AddCommand(collectCmd)
}
