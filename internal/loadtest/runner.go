package loadtest

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
)

// Config configuração do teste de carga
type Config struct {
	Host           string
	Architecture   string
	Users          int
	SpawnRate      float64 // usuários por segundo
	RunTime        time.Duration
	WaitMin        time.Duration
	WaitMax        time.Duration
	RequestTimeout time.Duration
	CSVPrefix      string // vazio desativa os CSVs
	CSVInterval    time.Duration
	Window         time.Duration
	Seed           uint64 // zero usa o relógio
}

// DefaultConfig retorna configuração padrão
func DefaultConfig() *Config {
	return &Config{
		Host:           "http://localhost:8080",
		Users:          10,
		SpawnRate:      1,
		RunTime:        5 * time.Minute,
		WaitMin:        2 * time.Second,
		WaitMax:        5 * time.Second,
		RequestTimeout: 30 * time.Second,
		CSVInterval:    time.Second,
		Window:         DefaultWindow,
	}
}

// Validate verifica a configuração
func (c *Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("host is required")
	}
	if c.Users <= 0 {
		return fmt.Errorf("users must be positive, got %d", c.Users)
	}
	if c.SpawnRate <= 0 {
		return fmt.Errorf("spawn rate must be positive, got %v", c.SpawnRate)
	}
	if c.WaitMax < c.WaitMin {
		return fmt.Errorf("wait max (%s) is lower than wait min (%s)", c.WaitMax, c.WaitMin)
	}
	return nil
}

// Report resultado do teste
type Report struct {
	Started  time.Time `json:"started"`
	Finished time.Time `json:"finished"`
	Snapshot Snapshot  `json:"snapshot"`
	Files    []string  `json:"files,omitempty"`
}

// Runner dispara os usuários e grava as estatísticas
type Runner struct {
	config  *Config
	catalog *Catalog
	stats   *Stats
	metrics *Metrics
	active  atomic.Int64

	// OnTick recebe um snapshot a cada intervalo (opcional)
	OnTick func(Snapshot)
}

// NewRunner cria novo runner
func NewRunner(config *Config, catalog *Catalog, metrics *Metrics) (*Runner, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if catalog == nil {
		catalog = Storefront()
	}
	if config.CSVInterval <= 0 {
		config.CSVInterval = time.Second
	}

	return &Runner{
		config:  config,
		catalog: catalog,
		stats:   NewStats(config.Window),
		metrics: metrics,
	}, nil
}

// Stats coletor de estatísticas do runner
func (r *Runner) Stats() *Stats {
	return r.stats
}

// ActiveUsers usuários em execução
func (r *Runner) ActiveUsers() int {
	return int(r.active.Load())
}

// Run executa o teste até RunTime (se > 0) ou até o contexto ser cancelado
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	if r.config.RunTime > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.config.RunTime)
		defer cancel()
	}

	var history *HistoryWriter
	if r.config.CSVPrefix != "" {
		w, err := NewHistoryWriter(r.config.CSVPrefix)
		if err != nil {
			return nil, err
		}
		history = w
	}

	report := &Report{Started: time.Now()}

	log.Info().
		Str("host", r.config.Host).
		Int("users", r.config.Users).
		Float64("spawn_rate", r.config.SpawnRate).
		Dur("run_time", r.config.RunTime).
		Msg("Starting load test")

	var wg sync.WaitGroup
	spawnDone := make(chan struct{})
	go func() {
		defer close(spawnDone)
		r.spawn(ctx, &wg)
	}()

	ticker := time.NewTicker(r.config.CSVInterval)
	defer ticker.Stop()

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case <-ticker.C:
			r.tick(history)
		}
	}

	<-spawnDone
	wg.Wait()
	r.metrics.SetUsers(0)

	report.Finished = time.Now()
	// a última linha do histórico e o último OnTick recebem o mesmo snapshot
	report.Snapshot = r.stats.Snapshot(r.ActiveUsers())

	if history != nil {
		if err := history.Append(report.Snapshot); err != nil {
			log.Warn().Err(err).Msg("Failed to append final history row")
		}
		if err := history.Close(); err != nil {
			return report, fmt.Errorf("failed to close history: %w", err)
		}
		report.Files = append(report.Files, history.Path())

		files, err := WriteFinal(r.config.CSVPrefix, report.Snapshot)
		report.Files = append(report.Files, files...)
		if err != nil {
			return report, err
		}
	}

	if r.OnTick != nil {
		r.OnTick(report.Snapshot)
	}

	log.Info().
		Int64("requests", report.Snapshot.Total.Requests).
		Int64("failures", report.Snapshot.Total.Failures).
		Dur("duration", report.Finished.Sub(report.Started)).
		Msg("Load test finished")

	return report, nil
}

func (r *Runner) tick(history *HistoryWriter) {
	snap := r.stats.Snapshot(r.ActiveUsers())
	if history != nil {
		if err := history.Append(snap); err != nil {
			log.Warn().Err(err).Msg("Failed to append history row")
		}
	}
	if r.OnTick != nil {
		r.OnTick(snap)
	}
}

// spawn inicia os usuários na taxa configurada
func (r *Runner) spawn(ctx context.Context, wg *sync.WaitGroup) {
	interval := time.Duration(float64(time.Second) / r.config.SpawnRate)

	for i := 0; i < r.config.Users; i++ {
		if i > 0 {
			timer := time.NewTimer(interval)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
		}
		if ctx.Err() != nil {
			return
		}

		user, err := NewUser(i+1, r.config, r.catalog, r.stats, r.metrics)
		if err != nil {
			log.Error().Err(err).Int("user", i+1).Msg("Failed to create user")
			continue
		}

		wg.Add(1)
		r.metrics.SetUsers(int(r.active.Add(1)))
		go func() {
			defer wg.Done()
			defer func() { r.metrics.SetUsers(int(r.active.Add(-1))) }()
			user.Run(ctx)
		}()
	}

	log.Info().Int("users", r.config.Users).Msg("All users spawned")
}
