package collector

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	v1 "github.com/prometheus/client_golang/api/prometheus/v1"
	"github.com/rs/zerolog/log"

	"hpa-bench/internal/results"
)

// Target HPA cujas métricas serão exportadas
type Target struct {
	HPA         string `json:"hpa"`
	Namespace   string `json:"namespace"`
	ScaleTarget string `json:"scale_target"`       // deployment alvo do HPA
	Selector    string `json:"selector,omitempty"` // regex de pods (padrão: <scale_target>-.*)
	Dir         string `json:"dir,omitempty"`      // diretório em cpu_hpa (padrão: scale target)
}

// PodSelector regex usada no label pod
func (t Target) PodSelector() string {
	if t.Selector != "" {
		return t.Selector
	}
	name := t.ScaleTarget
	if name == "" {
		name = t.HPA
	}
	return name + "-.*"
}

// DirName diretório de saída dentro de cpu_hpa
func (t Target) DirName() string {
	switch {
	case t.Dir != "":
		return t.Dir
	case t.ScaleTarget != "":
		return t.ScaleTarget
	}
	return t.HPA
}

// Config configuração da coleta
type Config struct {
	ResultsDir   string
	Architecture string
	Start        time.Time // zero: End - Lookback
	End          time.Time // zero: agora
	Lookback     time.Duration
	Step         time.Duration
	RateWindow   string
}

// DefaultConfig retorna configuração padrão
func DefaultConfig() *Config {
	return &Config{
		ResultsDir: "results",
		Lookback:   30 * time.Minute,
		Step:       15 * time.Second,
		RateWindow: "1m",
	}
}

// Summary resultado da coleta
type Summary struct {
	Targets int      `json:"targets"`
	Files   []string `json:"files"`
	Failed  []string `json:"failed,omitempty"`
	Start   int64    `json:"start"`
	End     int64    `json:"end"`
}

// Collector exporta métricas do Prometheus para CSVs no layout de resultados
type Collector struct {
	api    QueryAPI
	config *Config
	layout results.Layout
	now    func() time.Time
}

// New cria novo coletor
func New(api QueryAPI, config *Config) *Collector {
	if config == nil {
		config = DefaultConfig()
	}
	return &Collector{
		api:    api,
		config: config,
		layout: results.NewLayout(config.ResultsDir),
		now:    time.Now,
	}
}

func (c *Collector) window() (time.Time, time.Time) {
	end := c.config.End
	if end.IsZero() {
		end = c.now()
	}
	start := c.config.Start
	if start.IsZero() {
		lookback := c.config.Lookback
		if lookback <= 0 {
			lookback = 30 * time.Minute
		}
		start = end.Add(-lookback)
	}
	return start, end
}

// OutputDir diretório de saída do alvo
func (c *Collector) OutputDir(t Target) string {
	if c.config.Architecture == results.Monolith {
		return c.layout.MonolithDir(c.config.Architecture)
	}
	return c.layout.ServiceDir(c.config.Architecture, t.DirName())
}

// Collect executa todas as queries para cada alvo. Query com erro é registrada e
// o arquivo correspondente não é gerado.
func (c *Collector) Collect(ctx context.Context, targets []Target) (*Summary, error) {
	if c.config.Architecture == "" {
		return nil, fmt.Errorf("architecture is required")
	}
	if c.config.Architecture == results.Monolith && len(targets) > 1 {
		return nil, fmt.Errorf("monolith architecture expects a single target, got %d", len(targets))
	}
	if c.config.Step <= 0 {
		return nil, fmt.Errorf("step must be positive")
	}

	start, end := c.window()
	if !end.After(start) {
		return nil, fmt.Errorf("invalid time range: %s - %s", start, end)
	}
	r := rangeFor(start, end, c.config.Step)

	summary := &Summary{Targets: len(targets), Start: start.Unix(), End: end.Unix()}

	for _, target := range targets {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		dir := c.OutputDir(target)
		for _, tpl := range AllTemplates() {
			path, err := c.collectOne(ctx, target, tpl, r, dir)
			if err != nil {
				if ctx.Err() != nil {
					return summary, ctx.Err()
				}
				log.Warn().
					Err(err).
					Str("hpa", target.HPA).
					Str("query", tpl.Name).
					Msg("Query failed, skipping file")
				summary.Failed = append(summary.Failed, target.HPA+"/"+tpl.Name)
				continue
			}
			summary.Files = append(summary.Files, path)
		}

		log.Info().
			Str("architecture", c.config.Architecture).
			Str("hpa", target.HPA).
			Str("dir", dir).
			Msg("HPA metrics collected")
	}

	return summary, nil
}

func (c *Collector) collectOne(ctx context.Context, target Target, tpl QueryTemplate, r v1.Range, dir string) (string, error) {
	query, err := NewQueryBuilder(tpl).
		WithNamespace(target.Namespace).
		WithTarget(target).
		WithRateWindow(c.config.RateWindow).
		Build()
	if err != nil {
		return "", err
	}

	matrix, err := queryRange(ctx, c.api, query, r)
	if err != nil {
		return "", err
	}

	t := matrixToTable(matrix, tpl)
	path := filepath.Join(dir, tpl.File)
	if err := t.Write(path); err != nil {
		return "", err
	}

	log.Debug().
		Str("hpa", target.HPA).
		Str("file", path).
		Int("rows", t.Len()).
		Msg("Metric exported")

	return path, nil
}
