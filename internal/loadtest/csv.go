package loadtest

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"hpa-bench/internal/table"
)

// Sufixos dos arquivos gerados a partir do prefixo (mesmos nomes do locust)
const (
	HistorySuffix  = "_stats_history.csv"
	StatsSuffix    = "_stats.csv"
	FailuresSuffix = "_failures.csv"
)

const notAvailable = "N/A"

// HistoryHeader cabeçalho do <prefix>_stats_history.csv
func HistoryHeader() []string {
	header := []string{"Timestamp", "User Count", "Type", "Name", "Requests/s", "Failures/s"}
	for _, p := range Percentiles {
		header = append(header, PercentileLabel(p))
	}
	return append(header,
		"Total Request Count",
		"Total Failure Count",
		"Total Median Response Time",
		"Total Average Response Time",
		"Total Min Response Time",
		"Total Max Response Time",
		"Total Average Content Size",
	)
}

// StatsHeader cabeçalho do <prefix>_stats.csv
func StatsHeader() []string {
	header := []string{
		"Type", "Name", "Request Count", "Failure Count",
		"Median Response Time", "Average Response Time",
		"Min Response Time", "Max Response Time",
		"Average Content Size", "Requests/s", "Failures/s",
	}
	for _, p := range Percentiles {
		header = append(header, PercentileLabel(p))
	}
	return header
}

// FailuresHeader cabeçalho do <prefix>_failures.csv
func FailuresHeader() []string {
	return []string{"Method", "Name", "Error", "Occurrences"}
}

// HistoryWriter grava uma linha Aggregated por intervalo
type HistoryWriter struct {
	file   *os.File
	writer *csv.Writer
}

// NewHistoryWriter cria o arquivo de histórico e escreve o cabeçalho
func NewHistoryWriter(prefix string) (*HistoryWriter, error) {
	path := prefix + HistorySuffix
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create csv directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", path, err)
	}

	w := &HistoryWriter{file: f, writer: csv.NewWriter(f)}
	if err := w.writer.Write(HistoryHeader()); err != nil {
		f.Close()
		return nil, err
	}
	w.writer.Flush()
	return w, w.writer.Error()
}

// Path caminho do arquivo
func (w *HistoryWriter) Path() string {
	return w.file.Name()
}

// Append escreve a linha agregada do snapshot
func (w *HistoryWriter) Append(snap Snapshot) error {
	if err := w.writer.Write(HistoryRow(snap)); err != nil {
		return err
	}
	w.writer.Flush()
	return w.writer.Error()
}

// Close fecha o arquivo
func (w *HistoryWriter) Close() error {
	w.writer.Flush()
	if err := w.writer.Error(); err != nil {
		w.file.Close()
		return err
	}
	return w.file.Close()
}

// HistoryRow linha Aggregated do histórico
func HistoryRow(snap Snapshot) []string {
	t := snap.Total
	row := []string{
		strconv.FormatInt(snap.Time.Unix(), 10),
		strconv.Itoa(snap.Users),
		"",
		AggregatedName,
		formatNumber(t.CurrentRPS),
		formatNumber(t.CurrentFailPerSec),
	}
	for _, p := range Percentiles {
		row = append(row, percentileCell(t.CurrentPercentiles, p))
	}
	return append(row,
		strconv.FormatInt(t.Requests, 10),
		strconv.FormatInt(t.Failures, 10),
		roundedMs(t.MedianMs, t.Requests),
		formatNumber(t.AverageMs),
		roundedMs(t.MinMs, t.Requests),
		roundedMs(t.MaxMs, t.Requests),
		formatNumber(t.AverageContentSize),
	)
}

// StatsTable tabela final por endpoint mais a linha Aggregated
func StatsTable(snap Snapshot) *table.Table {
	out := table.New(StatsHeader()...)
	for _, e := range snap.Entries {
		out.AddRow(statsRow(e)...)
	}
	out.AddRow(statsRow(snap.Total)...)
	return out
}

func statsRow(e EntrySummary) []string {
	row := []string{
		e.Method,
		e.Name,
		strconv.FormatInt(e.Requests, 10),
		strconv.FormatInt(e.Failures, 10),
		roundedMs(e.MedianMs, e.Requests),
		formatNumber(e.AverageMs),
		roundedMs(e.MinMs, e.Requests),
		roundedMs(e.MaxMs, e.Requests),
		formatNumber(e.AverageContentSize),
		formatNumber(e.RPS),
		formatNumber(e.FailuresPerSecond),
	}
	for _, p := range Percentiles {
		row = append(row, percentileCell(e.Percentiles, p))
	}
	return row
}

// FailuresTable falhas agrupadas
func FailuresTable(snap Snapshot) *table.Table {
	out := table.New(FailuresHeader()...)
	for _, f := range snap.Failures {
		out.AddRow(f.Method, f.Name, f.Error, strconv.FormatInt(f.Occurrences, 10))
	}
	return out
}

// WriteFinal grava <prefix>_stats.csv e <prefix>_failures.csv
func WriteFinal(prefix string, snap Snapshot) ([]string, error) {
	statsPath := prefix + StatsSuffix
	if err := StatsTable(snap).Write(statsPath); err != nil {
		return nil, err
	}

	failuresPath := prefix + FailuresSuffix
	if err := FailuresTable(snap).Write(failuresPath); err != nil {
		return []string{statsPath}, err
	}

	return []string{statsPath, failuresPath}, nil
}

func percentileCell(values map[string]float64, p float64) string {
	v, ok := values[PercentileLabel(p)]
	if !ok {
		return notAvailable
	}
	return strconv.FormatFloat(math.Round(v), 'f', 0, 64)
}

func roundedMs(v float64, count int64) string {
	if count == 0 {
		return "0"
	}
	return strconv.FormatFloat(math.Round(v), 'f', 0, 64)
}

// formatNumber até 6 casas sem zeros à direita
func formatNumber(v float64) string {
	return strconv.FormatFloat(math.Round(v*1e6)/1e6, 'f', -1, 64)
}
