package storage

import (
	"hpa-bench/internal/loadtest"
)

// HistoryPointFromSnapshot linha agregada do snapshot (janela corrente)
func HistoryPointFromSnapshot(snap loadtest.Snapshot) HistoryPoint {
	total := snap.Total
	return HistoryPoint{
		Timestamp:         snap.Time.Unix(),
		Users:             snap.Users,
		RPS:               total.CurrentRPS,
		FailuresPerSecond: total.CurrentFailPerSec,
		Requests:          total.Requests,
		Failures:          total.Failures,
		MedianMs:          total.CurrentPercentiles[loadtest.PercentileLabel(50)],
		AverageMs:         total.AverageMs,
		P95Ms:             total.CurrentPercentiles[loadtest.PercentileLabel(95)],
	}
}

// EndpointStatsFromSnapshot estatísticas por endpoint, com a linha Aggregated no fim
func EndpointStatsFromSnapshot(snap loadtest.Snapshot) []EndpointStat {
	out := make([]EndpointStat, 0, len(snap.Entries)+1)
	for _, e := range snap.Entries {
		out = append(out, endpointStat(e))
	}
	total := endpointStat(snap.Total)
	total.Name = loadtest.AggregatedName
	total.Method = ""
	return append(out, total)
}

func endpointStat(e loadtest.EntrySummary) EndpointStat {
	return EndpointStat{
		Method:    e.Method,
		Name:      e.Name,
		Requests:  e.Requests,
		Failures:  e.Failures,
		MedianMs:  e.MedianMs,
		AverageMs: e.AverageMs,
		MinMs:     e.MinMs,
		MaxMs:     e.MaxMs,
		P95Ms:     e.Percentiles[loadtest.PercentileLabel(95)],
		RPS:       e.RPS,
	}
}
