package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/rs/zerolog/log"
	"k8s.io/client-go/tools/clientcmd"
)

// Variáveis de ambiente reconhecidas
const (
	EnvResultsDir    = "HPA_BENCH_RESULTS_DIR"
	EnvToken         = "HPA_BENCH_TOKEN"
	EnvKubeconfig    = "KUBECONFIG"
	EnvPrometheusURL = "PROMETHEUS_URL"

	// SettingsFile arquivo opcional em BaseDir
	SettingsFile = "config.json"
)

// Settings valores padrão das flags, vindos de ~/.hpa-bench/config.json e do ambiente
type Settings struct {
	BaseDir       string `json:"-"`
	ResultsDir    string `json:"resultsDir"`
	DBPath        string `json:"dbPath"`
	Token         string `json:"token"`
	Kubeconfig    string `json:"kubeconfig"`
	PrometheusURL string `json:"prometheusUrl"`
	Namespace     string `json:"namespace"`
	Host          string `json:"host"`
}

// DefaultBaseDir diretório de dados do usuário (~/.hpa-bench)
func DefaultBaseDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".hpa-bench"
	}
	return filepath.Join(homeDir, ".hpa-bench")
}

// DefaultSettings retorna configuração padrão
func DefaultSettings(baseDir string) *Settings {
	kubeconfig := ""
	if homeDir, err := os.UserHomeDir(); err == nil {
		kubeconfig = filepath.Join(homeDir, ".kube", "config")
	}

	return &Settings{
		BaseDir:       baseDir,
		ResultsDir:    "results",
		DBPath:        filepath.Join(baseDir, "runs.db"),
		Kubeconfig:    kubeconfig,
		PrometheusURL: "http://localhost:9090",
		Namespace:     "default",
		Host:          "http://localhost:8080",
	}
}

// Load aplica, nesta ordem, os padrões, o config.json de baseDir e as variáveis de ambiente
func Load(baseDir string) (*Settings, error) {
	if baseDir == "" {
		baseDir = DefaultBaseDir()
	}
	s := DefaultSettings(baseDir)

	path := filepath.Join(baseDir, SettingsFile)
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// sem arquivo, só padrões e ambiente
	case err != nil:
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	default:
		if err := json.Unmarshal(data, s); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		log.Debug().Str("file", path).Msg("Settings loaded")
	}

	s.applyEnv(os.LookupEnv)
	return s, nil
}

func (s *Settings) applyEnv(lookup func(string) (string, bool)) {
	set := func(env string, dst *string) {
		if v, ok := lookup(env); ok && v != "" {
			*dst = v
		}
	}
	set(EnvResultsDir, &s.ResultsDir)
	set(EnvToken, &s.Token)
	set(EnvPrometheusURL, &s.PrometheusURL)

	// KUBECONFIG pode ser lista; o primeiro arquivo vale
	if v, ok := lookup(EnvKubeconfig); ok && v != "" {
		s.Kubeconfig = filepath.SplitList(v)[0]
	}
}

// Contexts lista os contextos do kubeconfig em ordem alfabética
func Contexts(kubeconfigPath string) ([]string, string, error) {
	cfg, err := clientcmd.LoadFromFile(kubeconfigPath)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load kubeconfig: %w", err)
	}

	names := make([]string, 0, len(cfg.Contexts))
	for name := range cfg.Contexts {
		names = append(names, name)
	}
	sort.Strings(names)

	return names, cfg.CurrentContext, nil
}
