package collector

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/prometheus/client_golang/api"
	v1 "github.com/prometheus/client_golang/api/prometheus/v1"
	"github.com/prometheus/common/model"
	"github.com/rs/zerolog/log"

	"hpa-bench/internal/table"
)

// QueryAPI subconjunto da v1.API usado pelo coletor
type QueryAPI interface {
	QueryRange(ctx context.Context, query string, r v1.Range, opts ...v1.Option) (model.Value, v1.Warnings, error)
}

// NewPrometheusAPI cria client da API Prometheus para o endpoint
func NewPrometheusAPI(endpoint string) (QueryAPI, error) {
	client, err := api.NewClient(api.Config{Address: endpoint})
	if err != nil {
		return nil, fmt.Errorf("failed to create Prometheus client: %w", err)
	}

	log.Debug().Str("endpoint", endpoint).Msg("Prometheus client created")
	return v1.NewAPI(client), nil
}

// queryRange executa a range query registrando warnings
func queryRange(ctx context.Context, a QueryAPI, query string, r v1.Range) (model.Matrix, error) {
	result, warnings, err := a.QueryRange(ctx, query, r)
	if err != nil {
		return nil, fmt.Errorf("range query failed: %w", err)
	}

	if len(warnings) > 0 {
		log.Warn().
			Strs("warnings", warnings).
			Str("query", query).
			Msg("Prometheus range query returned warnings")
	}

	matrix, ok := result.(model.Matrix)
	if !ok {
		return nil, fmt.Errorf("expected matrix, got %T", result)
	}
	return matrix, nil
}

// matrixToTable converte o resultado em tabela timestamp,[label],valor.
// Sem label usa só a primeira série; com label gera uma linha por série e instante.
func matrixToTable(matrix model.Matrix, tpl QueryTemplate) *table.Table {
	if tpl.LabelName == "" {
		t := table.New("timestamp", tpl.ValueName)
		if len(matrix) == 0 {
			return t
		}
		for _, pair := range matrix[0].Values {
			t.AddRow(formatTimestamp(pair.Timestamp), formatValue(pair.Value))
		}
		return t
	}

	t := table.New("timestamp", tpl.LabelName, tpl.ValueName)

	type point struct {
		ts    model.Time
		label string
		value model.SampleValue
	}
	var points []point
	for _, series := range matrix {
		label := string(series.Metric[model.LabelName(tpl.LabelName)])
		for _, pair := range series.Values {
			points = append(points, point{ts: pair.Timestamp, label: label, value: pair.Value})
		}
	}
	sort.SliceStable(points, func(i, j int) bool {
		if points[i].ts != points[j].ts {
			return points[i].ts < points[j].ts
		}
		return points[i].label < points[j].label
	})

	for _, p := range points {
		t.AddRow(formatTimestamp(p.ts), p.label, formatValue(p.value))
	}
	return t
}

// formatTimestamp unix em segundos (fração só quando existe)
func formatTimestamp(ts model.Time) string {
	if ts%1000 == 0 {
		return fmt.Sprint(ts.Unix())
	}
	return table.FormatFloat(float64(ts) / 1000)
}

func formatValue(v model.SampleValue) string {
	return table.FormatFloat(float64(v))
}

// rangeFor monta o intervalo da consulta
func rangeFor(start, end time.Time, step time.Duration) v1.Range {
	return v1.Range{Start: start, End: end, Step: step}
}
