package loadtest

import (
	"maps"
	"math"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/montanaflynn/stats"
)

// AggregatedName nome da linha agregada (mesmo rótulo do locust)
const AggregatedName = "Aggregated"

// DefaultWindow janela usada para RPS e percentis correntes
const DefaultWindow = 10 * time.Second

// Percentiles colunas de percentil dos CSVs
var Percentiles = []float64{50, 66, 75, 80, 90, 95, 98, 99, 99.9, 99.99, 100}

// Sample resultado de uma requisição
type Sample struct {
	Method        string
	Name          string
	Start         time.Time
	ResponseTime  time.Duration
	ContentLength int64
	Status        int
	Error         string // vazio em caso de sucesso
}

// Failed indica falha
func (s Sample) Failed() bool {
	return s.Error != ""
}

type timedPoint struct {
	at     time.Time
	ms     float64
	failed bool
}

// entry acumuladores de um endpoint
type entry struct {
	method        string
	name          string
	requests      int64
	failures      int64
	totalMs       float64
	minMs         float64
	maxMs         float64
	contentLength int64
	buckets       map[int64]int64 // tempo arredondado -> ocorrências
	recent        []timedPoint
}

func newEntry(method, name string) *entry {
	return &entry{method: method, name: name, buckets: make(map[int64]int64)}
}

// roundResponseTime arredonda como o locust para limitar o número de buckets
func roundResponseTime(ms float64) int64 {
	switch {
	case ms < 100:
		return int64(math.Round(ms))
	case ms < 1000:
		return int64(math.Round(ms/10)) * 10
	case ms < 10000:
		return int64(math.Round(ms/100)) * 100
	default:
		return int64(math.Round(ms/1000)) * 1000
	}
}

func (e *entry) add(s Sample) {
	ms := float64(s.ResponseTime) / float64(time.Millisecond)

	if e.requests == 0 || ms < e.minMs {
		e.minMs = ms
	}
	if ms > e.maxMs {
		e.maxMs = ms
	}
	e.requests++
	if s.Failed() {
		e.failures++
	}
	e.totalMs += ms
	e.contentLength += s.ContentLength
	e.buckets[roundResponseTime(ms)]++
	e.recent = append(e.recent, timedPoint{at: s.Start.Add(s.ResponseTime), ms: ms, failed: s.Failed()})
}

func (e *entry) prune(cutoff time.Time) {
	i := 0
	for i < len(e.recent) && e.recent[i].at.Before(cutoff) {
		i++
	}
	if i > 0 {
		e.recent = append(e.recent[:0], e.recent[i:]...)
	}
}

// EntrySummary fotografia das estatísticas de um endpoint
type EntrySummary struct {
	Method             string             `json:"method"`
	Name               string             `json:"name"`
	Requests           int64              `json:"requests"`
	Failures           int64              `json:"failures"`
	MedianMs           float64            `json:"median_ms"`
	AverageMs          float64            `json:"average_ms"`
	MinMs              float64            `json:"min_ms"`
	MaxMs              float64            `json:"max_ms"`
	AverageContentSize float64            `json:"average_content_size"`
	RPS                float64            `json:"rps"`
	FailuresPerSecond  float64            `json:"failures_per_second"`
	Percentiles        map[string]float64 `json:"percentiles"`

	// janela corrente
	CurrentRPS         float64            `json:"current_rps"`
	CurrentFailPerSec  float64            `json:"current_fail_per_sec"`
	CurrentPercentiles map[string]float64 `json:"current_percentiles"`
}

// FailureSummary falhas agrupadas por (método, nome, erro)
type FailureSummary struct {
	Method      string `json:"method"`
	Name        string `json:"name"`
	Error       string `json:"error"`
	Occurrences int64  `json:"occurrences"`
}

// Snapshot estado das estatísticas num instante
type Snapshot struct {
	Time      time.Time        `json:"time"`
	Users     int              `json:"users"`
	Entries   []EntrySummary   `json:"entries"`
	Total     EntrySummary     `json:"total"`
	Failures  []FailureSummary `json:"failures"`
	StartTime time.Time        `json:"start_time"`
}

type failureKey struct {
	method string
	name   string
	err    string
}

// Stats coleta amostras de todos os usuários
type Stats struct {
	mu       sync.Mutex
	window   time.Duration
	start    time.Time
	now      func() time.Time
	entries  map[string]*entry
	order    []string
	total    *entry
	failures map[failureKey]int64
}

// NewStats cria coletor com a janela informada (DefaultWindow se zero)
func NewStats(window time.Duration) *Stats {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Stats{
		window:   window,
		start:    time.Now(),
		now:      time.Now,
		entries:  make(map[string]*entry),
		total:    newEntry("", AggregatedName),
		failures: make(map[failureKey]int64),
	}
}

// Record registra uma amostra
func (s *Stats) Record(sample Sample) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := sample.Method + " " + sample.Name
	e, ok := s.entries[key]
	if !ok {
		e = newEntry(sample.Method, sample.Name)
		s.entries[key] = e
		s.order = append(s.order, key)
	}
	e.add(sample)
	s.total.add(sample)

	if sample.Failed() {
		s.failures[failureKey{sample.Method, sample.Name, sample.Error}]++
	}
}

// entryState cópia de um entry feita sob o lock
type entryState struct {
	method        string
	name          string
	requests      int64
	failures      int64
	totalMs       float64
	minMs         float64
	maxMs         float64
	contentLength int64
	buckets       map[int64]int64
	recent        []float64
	recentFailed  int
}

func (e *entry) state() entryState {
	st := entryState{
		method:        e.method,
		name:          e.name,
		requests:      e.requests,
		failures:      e.failures,
		totalMs:       e.totalMs,
		minMs:         e.minMs,
		maxMs:         e.maxMs,
		contentLength: e.contentLength,
		buckets:       maps.Clone(e.buckets),
		recent:        make([]float64, len(e.recent)),
	}
	for i, p := range e.recent {
		st.recent[i] = p.ms
		if p.failed {
			st.recentFailed++
		}
	}
	return st
}

// Snapshot calcula resumo de todos os endpoints.
// O lock cobre só a cópia do estado; ordenação e percentis rodam fora dele.
func (s *Stats) Snapshot(users int) Snapshot {
	s.mu.Lock()
	now := s.now()
	cutoff := now.Add(-s.window)

	keys := make([]string, len(s.order))
	copy(keys, s.order)

	states := make(map[string]entryState, len(keys))
	for _, k := range keys {
		e := s.entries[k]
		e.prune(cutoff)
		states[k] = e.state()
	}
	s.total.prune(cutoff)
	total := s.total.state()

	failures := make([]FailureSummary, 0, len(s.failures))
	for k, n := range s.failures {
		failures = append(failures, FailureSummary{
			Method:      k.method,
			Name:        k.name,
			Error:       k.err,
			Occurrences: n,
		})
	}
	start := s.start
	s.mu.Unlock()

	elapsed := now.Sub(start).Seconds()
	sort.Strings(keys)

	snap := Snapshot{
		Time:      now,
		Users:     users,
		StartTime: start,
		Entries:   make([]EntrySummary, 0, len(keys)),
	}
	for _, k := range keys {
		snap.Entries = append(snap.Entries, s.summarize(states[k], elapsed))
	}
	snap.Total = s.summarize(total, elapsed)

	if len(failures) > 0 {
		snap.Failures = failures
	}
	sort.Slice(snap.Failures, func(i, j int) bool {
		if snap.Failures[i].Occurrences != snap.Failures[j].Occurrences {
			return snap.Failures[i].Occurrences > snap.Failures[j].Occurrences
		}
		return snap.Failures[i].Name+snap.Failures[i].Error < snap.Failures[j].Name+snap.Failures[j].Error
	})

	return snap
}

func (s *Stats) summarize(e entryState, elapsed float64) EntrySummary {
	sum := EntrySummary{
		Method:   e.method,
		Name:     e.name,
		Requests: e.requests,
		Failures: e.failures,
		MinMs:    e.minMs,
		MaxMs:    e.maxMs,
	}

	if e.requests > 0 {
		sum.AverageMs = e.totalMs / float64(e.requests)
		sum.AverageContentSize = float64(e.contentLength) / float64(e.requests)
		sum.Percentiles = bucketPercentiles(e.buckets, e.requests, e.maxMs)
		sum.MedianMs = sum.Percentiles[PercentileLabel(50)]
	}
	if elapsed > 0 {
		sum.RPS = float64(e.requests) / elapsed
		sum.FailuresPerSecond = float64(e.failures) / elapsed
	}

	if len(e.recent) > 0 {
		windowSec := s.window.Seconds()
		if elapsed > 0 && elapsed < windowSec {
			windowSec = elapsed
		}
		sum.CurrentRPS = float64(len(e.recent)) / windowSec
		sum.CurrentFailPerSec = float64(e.recentFailed) / windowSec
		sum.CurrentPercentiles = percentiles(e.recent)
	}

	return sum
}

// bucketPercentiles percentis nearest rank sobre os buckets arredondados.
// O percentil 100 devolve o máximo exato.
func bucketPercentiles(buckets map[int64]int64, n int64, maxMs float64) map[string]float64 {
	keys := slices.Sorted(maps.Keys(buckets))
	out := make(map[string]float64, len(Percentiles))
	for _, p := range Percentiles {
		if p >= 100 {
			out[PercentileLabel(p)] = maxMs
			continue
		}
		rank := int64(math.Ceil(p / 100 * float64(n)))
		if rank < 1 {
			rank = 1
		}
		var seen int64
		for _, k := range keys {
			seen += buckets[k]
			if seen >= rank {
				out[PercentileLabel(p)] = float64(k)
				break
			}
		}
	}
	return out
}

// percentiles calcula os percentis da janela corrente pelo método nearest rank
func percentiles(data []float64) map[string]float64 {
	out := make(map[string]float64, len(Percentiles))
	for _, p := range Percentiles {
		v, err := stats.PercentileNearestRank(data, p)
		if err != nil {
			continue
		}
		out[PercentileLabel(p)] = v
	}
	return out
}

// PercentileLabel rótulo da coluna (50%, 99.9%)
func PercentileLabel(p float64) string {
	return formatNumber(p) + "%"
}
