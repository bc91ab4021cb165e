package loadtest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// User usuário simulado: sessão própria (cookies) e laço de tarefas ponderadas
type User struct {
	id      int
	baseURL string
	client  *http.Client
	catalog *Catalog
	rng     *rand.Rand
	stats   *Stats
	metrics *Metrics
	waitMin time.Duration
	waitMax time.Duration
}

// NewUser cria usuário com cliente HTTP e cookie jar próprios
func NewUser(id int, cfg *Config, catalog *Catalog, st *Stats, metrics *Metrics) (*User, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	return &User{
		id:      id,
		baseURL: strings.TrimRight(cfg.Host, "/"),
		client: &http.Client{
			Timeout: cfg.RequestTimeout,
			Jar:     jar,
		},
		catalog: catalog,
		rng:     rand.New(rand.NewPCG(cfg.seed(), uint64(id))),
		stats:   st,
		metrics: metrics,
		waitMin: cfg.WaitMin,
		waitMax: cfg.WaitMax,
	}, nil
}

func (c *Config) seed() uint64 {
	if c.Seed != 0 {
		return c.Seed
	}
	return uint64(time.Now().UnixNano())
}

// Run executa o warm-up e depois tarefas até o contexto encerrar
func (u *User) Run(ctx context.Context) {
	log.Debug().Int("user", u.id).Msg("User started")
	defer log.Debug().Int("user", u.id).Msg("User stopped")

	if !u.runSteps(ctx, u.catalog.OnStart) && ctx.Err() != nil {
		return
	}

	for {
		if ctx.Err() != nil {
			return
		}

		if task := u.catalog.Pick(u.rng); task != nil {
			u.runSteps(ctx, task.Steps)
		}

		if !u.wait(ctx) {
			return
		}
	}
}

// runSteps executa os passos em ordem, parando no primeiro que falhar
func (u *User) runSteps(ctx context.Context, steps []Step) bool {
	for _, step := range steps {
		if ctx.Err() != nil {
			return false
		}
		if !u.execute(ctx, step) {
			return false
		}
	}
	return true
}

// execute faz a requisição, classifica e registra a amostra
func (u *User) execute(ctx context.Context, step Step) bool {
	req := step.Build(u.rng)

	start := time.Now()
	status, size, err := u.do(ctx, req)
	elapsed := time.Since(start)

	// encerramento do teste não conta como falha
	if err != nil && ctx.Err() != nil {
		return false
	}

	ok, reason := step.Check(status)
	sample := Sample{
		Method:        req.Method,
		Name:          req.Name,
		Start:         start,
		ResponseTime:  elapsed,
		ContentLength: size,
		Status:        status,
	}
	if !ok {
		sample.Error = reason
		log.Debug().
			Int("user", u.id).
			Str("name", req.Name).
			Int("status", status).
			Str("reason", reason).
			Err(err).
			Msg("Request failed")
	}

	u.stats.Record(sample)
	u.metrics.Observe(sample)

	return ok
}

// do envia a requisição. Erro de transporte vira status 0.
func (u *User) do(ctx context.Context, r Request) (int, int64, error) {
	var body io.Reader
	if r.Method == http.MethodPost {
		body = strings.NewReader(r.Form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, u.baseURL+r.Path, body)
	if err != nil {
		return 0, 0, err
	}
	if r.Method == http.MethodPost {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := u.client.Do(req)
	if err != nil {
		return 0, 0, err
	}
	defer resp.Body.Close()

	size, err := io.Copy(io.Discard, resp.Body)
	if err != nil && !errors.Is(err, io.EOF) {
		return resp.StatusCode, size, err
	}
	return resp.StatusCode, size, nil
}

// wait pausa uniforme entre waitMin e waitMax; false se o contexto encerrou
func (u *User) wait(ctx context.Context) bool {
	d := u.waitMin
	if span := u.waitMax - u.waitMin; span > 0 {
		d += time.Duration(u.rng.Int64N(int64(span)))
	}
	if d <= 0 {
		return ctx.Err() == nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
