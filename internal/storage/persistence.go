package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
)

// ErrNotFound execução inexistente
var ErrNotFound = errors.New("run not found")

// RunKind tipo de execução registrada
type RunKind string

const (
	KindMerge    RunKind = "merge"
	KindLoadTest RunKind = "loadtest"
	KindCollect  RunKind = "collect"
)

// RunStatus estado da execução
type RunStatus string

const (
	StatusRunning   RunStatus = "running"
	StatusCompleted RunStatus = "completed"
	StatusFailed    RunStatus = "failed"
)

// Run execução de merge, teste de carga ou coleta
type Run struct {
	ID           string          `json:"id"`
	Kind         RunKind         `json:"kind"`
	Architecture string          `json:"architecture,omitempty"`
	Status       RunStatus       `json:"status"`
	StartedAt    time.Time       `json:"started_at"`
	FinishedAt   *time.Time      `json:"finished_at,omitempty"`
	Summary      json.RawMessage `json:"summary,omitempty"`
	Error        string          `json:"error,omitempty"`
}

// HistoryPoint linha agregada do histórico de um teste de carga
type HistoryPoint struct {
	Timestamp         int64   `json:"timestamp"`
	Users             int     `json:"users"`
	RPS               float64 `json:"rps"`
	FailuresPerSecond float64 `json:"failures_per_second"`
	Requests          int64   `json:"requests"`
	Failures          int64   `json:"failures"`
	MedianMs          float64 `json:"median_ms"`
	AverageMs         float64 `json:"average_ms"`
	P95Ms             float64 `json:"p95_ms"`
}

// EndpointStat estatística final de um endpoint
type EndpointStat struct {
	Method    string  `json:"method"`
	Name      string  `json:"name"`
	Requests  int64   `json:"requests"`
	Failures  int64   `json:"failures"`
	MedianMs  float64 `json:"median_ms"`
	AverageMs float64 `json:"average_ms"`
	MinMs     float64 `json:"min_ms"`
	MaxMs     float64 `json:"max_ms"`
	P95Ms     float64 `json:"p95_ms"`
	RPS       float64 `json:"rps"`
}

// PersistenceConfig configuração de persistência
type PersistenceConfig struct {
	Enabled     bool          // Habilita persistência
	DBPath      string        // Caminho do banco SQLite
	MaxAge      time.Duration // Retenção das execuções
	AutoCleanup bool          // Limpeza de execuções antigas na abertura
}

// DefaultPersistenceConfig retorna configuração padrão
func DefaultPersistenceConfig() *PersistenceConfig {
	homeDir, _ := os.UserHomeDir()

	return &PersistenceConfig{
		Enabled:     true,
		DBPath:      filepath.Join(homeDir, ".hpa-bench", "runs.db"),
		MaxAge:      90 * 24 * time.Hour,
		AutoCleanup: true,
	}
}

// Persistence histórico de execuções em SQLite
type Persistence struct {
	config *PersistenceConfig
	db     *sql.DB
	now    func() time.Time
}

// NewPersistence cria nova instância de persistência
func NewPersistence(config *PersistenceConfig) (*Persistence, error) {
	if config == nil {
		config = DefaultPersistenceConfig()
	}

	if !config.Enabled {
		log.Debug().Msg("Persistence disabled")
		return &Persistence{config: config, now: time.Now}, nil
	}

	if err := os.MkdirAll(filepath.Dir(config.DBPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create db directory: %w", err)
	}

	db, err := sql.Open("sqlite3", config.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite com uma conexão só
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	p := &Persistence{
		config: config,
		db:     db,
		now:    time.Now,
	}

	if err := p.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	log.Debug().
		Str("db_path", config.DBPath).
		Dur("max_age", config.MaxAge).
		Msg("Persistence initialized")

	if config.AutoCleanup && config.MaxAge > 0 {
		if _, err := p.Cleanup(config.MaxAge); err != nil {
			log.Warn().Err(err).Msg("Initial cleanup failed")
		}
	}

	return p, nil
}

// Enabled indica se a persistência está ativa
func (p *Persistence) Enabled() bool {
	return p != nil && p.config.Enabled && p.db != nil
}

func (p *Persistence) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		architecture TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		started_at INTEGER NOT NULL,
		finished_at INTEGER,
		summary TEXT,
		error TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_runs_kind ON runs(kind, started_at DESC);

	CREATE TABLE IF NOT EXISTS loadtest_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		timestamp INTEGER NOT NULL,
		users INTEGER NOT NULL,
		rps REAL NOT NULL,
		failures_per_second REAL NOT NULL,
		requests INTEGER NOT NULL,
		failures INTEGER NOT NULL,
		median_ms REAL NOT NULL,
		average_ms REAL NOT NULL,
		p95_ms REAL NOT NULL,

		FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_history_run ON loadtest_history(run_id, timestamp);

	CREATE TABLE IF NOT EXISTS endpoint_stats (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		method TEXT NOT NULL,
		name TEXT NOT NULL,
		requests INTEGER NOT NULL,
		failures INTEGER NOT NULL,
		median_ms REAL NOT NULL,
		average_ms REAL NOT NULL,
		min_ms REAL NOT NULL,
		max_ms REAL NOT NULL,
		p95_ms REAL NOT NULL,
		rps REAL NOT NULL,

		FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_endpoint_run ON endpoint_stats(run_id);

	CREATE TABLE IF NOT EXISTS metadata (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`

	if _, err := p.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	_, err := p.db.Exec(`INSERT OR REPLACE INTO metadata (key, value) VALUES ('schema_version', '1')`)
	return err
}

// StartRun registra o início de uma execução
func (p *Persistence) StartRun(kind RunKind, architecture string) (*Run, error) {
	run := &Run{
		ID:           uuid.New().String(),
		Kind:         kind,
		Architecture: architecture,
		Status:       StatusRunning,
		StartedAt:    p.now().UTC().Truncate(time.Second),
	}

	if !p.Enabled() {
		return run, nil
	}

	_, err := p.db.Exec(`
		INSERT INTO runs (id, kind, architecture, status, started_at)
		VALUES (?, ?, ?, ?, ?)
	`, run.ID, string(run.Kind), run.Architecture, string(run.Status), run.StartedAt.Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to save run: %w", err)
	}

	log.Debug().Str("run_id", run.ID).Str("kind", string(kind)).Msg("Run started")
	return run, nil
}

// FinishRun marca a execução como concluída (ou falha, se runErr != nil) com o resumo em JSON
func (p *Persistence) FinishRun(id string, summary interface{}, runErr error) error {
	if !p.Enabled() {
		return nil
	}

	var data sql.NullString
	if summary != nil {
		raw, err := json.Marshal(summary)
		if err != nil {
			return fmt.Errorf("failed to marshal summary: %w", err)
		}
		data = sql.NullString{String: string(raw), Valid: true}
	}

	status, msg := StatusCompleted, ""
	if runErr != nil {
		status, msg = StatusFailed, runErr.Error()
	}

	result, err := p.db.Exec(`
		UPDATE runs SET status = ?, finished_at = ?, summary = ?, error = ?
		WHERE id = ?
	`, string(status), p.now().UTC().Unix(), data, msg, id)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	return nil
}

// SaveHistory salva o histórico em uma transação
func (p *Persistence) SaveHistory(runID string, points []HistoryPoint) error {
	if !p.Enabled() || len(points) == 0 {
		return nil
	}

	tx, err := p.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO loadtest_history
			(run_id, timestamp, users, rps, failures_per_second, requests, failures, median_ms, average_ms, p95_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, pt := range points {
		if _, err := stmt.Exec(runID, pt.Timestamp, pt.Users, pt.RPS, pt.FailuresPerSecond,
			pt.Requests, pt.Failures, pt.MedianMs, pt.AverageMs, pt.P95Ms); err != nil {
			return fmt.Errorf("failed to insert history point: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.Debug().Str("run_id", runID).Int("count", len(points)).Msg("History saved to database")
	return nil
}

// SaveEndpointStats salva as estatísticas finais por endpoint
func (p *Persistence) SaveEndpointStats(runID string, stats []EndpointStat) error {
	if !p.Enabled() || len(stats) == 0 {
		return nil
	}

	tx, err := p.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO endpoint_stats
			(run_id, method, name, requests, failures, median_ms, average_ms, min_ms, max_ms, p95_ms, rps)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, s := range stats {
		if _, err := stmt.Exec(runID, s.Method, s.Name, s.Requests, s.Failures,
			s.MedianMs, s.AverageMs, s.MinMs, s.MaxMs, s.P95Ms, s.RPS); err != nil {
			return fmt.Errorf("failed to insert endpoint stats: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

const runColumns = `id, kind, architecture, status, started_at, finished_at, summary, error`

func scanRun(scan func(dest ...interface{}) error) (*Run, error) {
	var (
		run      Run
		kind     string
		status   string
		started  int64
		finished sql.NullInt64
		summary  sql.NullString
	)
	if err := scan(&run.ID, &kind, &run.Architecture, &status, &started, &finished, &summary, &run.Error); err != nil {
		return nil, err
	}

	run.Kind = RunKind(kind)
	run.Status = RunStatus(status)
	run.StartedAt = time.Unix(started, 0).UTC()
	if finished.Valid {
		t := time.Unix(finished.Int64, 0).UTC()
		run.FinishedAt = &t
	}
	if summary.Valid {
		run.Summary = json.RawMessage(summary.String)
	}
	return &run, nil
}

// ListRuns lista execuções mais recentes primeiro. kind vazio lista todas.
func (p *Persistence) ListRuns(kind RunKind, limit int) ([]Run, error) {
	if !p.Enabled() {
		return []Run{}, nil
	}
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT ` + runColumns + ` FROM runs`
	args := []interface{}{}
	if kind != "" {
		query += ` WHERE kind = ?`
		args = append(args, string(kind))
	}
	query += ` ORDER BY started_at DESC, rowid DESC LIMIT ?`
	args = append(args, limit)

	rows, err := p.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	runs := make([]Run, 0)
	for rows.Next() {
		run, err := scanRun(rows.Scan)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to scan run")
			continue
		}
		runs = append(runs, *run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	return runs, nil
}

// GetRun busca uma execução
func (p *Persistence) GetRun(id string) (*Run, error) {
	if !p.Enabled() {
		return nil, ErrNotFound
	}

	run, err := scanRun(p.db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE id = ?`, id).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// LoadHistory histórico de um teste de carga em ordem de tempo
func (p *Persistence) LoadHistory(runID string) ([]HistoryPoint, error) {
	if !p.Enabled() {
		return nil, nil
	}

	rows, err := p.db.Query(`
		SELECT timestamp, users, rps, failures_per_second, requests, failures, median_ms, average_ms, p95_ms
		FROM loadtest_history
		WHERE run_id = ?
		ORDER BY timestamp ASC, id ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	points := make([]HistoryPoint, 0)
	for rows.Next() {
		var pt HistoryPoint
		if err := rows.Scan(&pt.Timestamp, &pt.Users, &pt.RPS, &pt.FailuresPerSecond,
			&pt.Requests, &pt.Failures, &pt.MedianMs, &pt.AverageMs, &pt.P95Ms); err != nil {
			return nil, fmt.Errorf("failed to scan history: %w", err)
		}
		points = append(points, pt)
	}

	return points, rows.Err()
}

// LoadEndpointStats estatísticas por endpoint de um teste de carga
func (p *Persistence) LoadEndpointStats(runID string) ([]EndpointStat, error) {
	if !p.Enabled() {
		return nil, nil
	}

	rows, err := p.db.Query(`
		SELECT method, name, requests, failures, median_ms, average_ms, min_ms, max_ms, p95_ms, rps
		FROM endpoint_stats
		WHERE run_id = ?
		ORDER BY id ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query endpoint stats: %w", err)
	}
	defer rows.Close()

	stats := make([]EndpointStat, 0)
	for rows.Next() {
		var s EndpointStat
		if err := rows.Scan(&s.Method, &s.Name, &s.Requests, &s.Failures,
			&s.MedianMs, &s.AverageMs, &s.MinMs, &s.MaxMs, &s.P95Ms, &s.RPS); err != nil {
			return nil, fmt.Errorf("failed to scan endpoint stats: %w", err)
		}
		stats = append(stats, s)
	}

	return stats, rows.Err()
}

// Cleanup remove execuções mais antigas que maxAge (com histórico e estatísticas)
func (p *Persistence) Cleanup(maxAge time.Duration) (int64, error) {
	if !p.Enabled() {
		return 0, nil
	}

	cutoff := p.now().Add(-maxAge).Unix()

	tx, err := p.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, q := range []string{
		`DELETE FROM loadtest_history WHERE run_id IN (SELECT id FROM runs WHERE started_at < ?)`,
		`DELETE FROM endpoint_stats WHERE run_id IN (SELECT id FROM runs WHERE started_at < ?)`,
	} {
		if _, err := tx.Exec(q, cutoff); err != nil {
			return 0, fmt.Errorf("failed to cleanup: %w", err)
		}
	}

	result, err := tx.Exec(`DELETE FROM runs WHERE started_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup runs: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit cleanup: %w", err)
	}

	removed, _ := result.RowsAffected()
	if removed > 0 {
		log.Info().
			Int64("removed", removed).
			Time("cutoff", time.Unix(cutoff, 0)).
			Msg("Cleanup: removed old runs")
	}
	return removed, nil
}

// PersistenceStats estatísticas do banco
type PersistenceStats struct {
	Enabled   bool             `json:"enabled"`
	DBPath    string           `json:"db_path,omitempty"`
	TotalRuns int64            `json:"total_runs"`
	ByKind    map[string]int64 `json:"by_kind,omitempty"`
	DBSize    int64            `json:"db_size"`
}

// Stats retorna estatísticas do banco
func (p *Persistence) Stats() (*PersistenceStats, error) {
	if !p.Enabled() {
		return &PersistenceStats{Enabled: false}, nil
	}

	stats := &PersistenceStats{
		Enabled: true,
		DBPath:  p.config.DBPath,
		ByKind:  make(map[string]int64),
	}

	rows, err := p.db.Query(`SELECT kind, COUNT(*) FROM runs GROUP BY kind`)
	if err != nil {
		return nil, fmt.Errorf("failed to count runs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var kind string
		var n int64
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, fmt.Errorf("failed to scan run count: %w", err)
		}
		stats.ByKind[kind] = n
		stats.TotalRuns += n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if info, err := os.Stat(p.config.DBPath); err == nil {
		stats.DBSize = info.Size()
	}

	return stats, nil
}

// Close fecha o banco
func (p *Persistence) Close() error {
	if p == nil || p.db == nil {
		return nil
	}
	return p.db.Close()
}
