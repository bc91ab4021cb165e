package collector

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	v1 "github.com/prometheus/client_golang/api/prometheus/v1"
	"github.com/prometheus/common/model"

	"hpa-bench/internal/results"
	"hpa-bench/internal/table"
)

// fakeAPI responde range queries a partir do nome da métrica na query
type fakeAPI struct {
	mu      sync.Mutex
	queries []string
	fail    string // substring de query que deve falhar
}

func (f *fakeAPI) QueryRange(ctx context.Context, query string, r v1.Range, opts ...v1.Option) (model.Value, v1.Warnings, error) {
	f.mu.Lock()
	f.queries = append(f.queries, query)
	f.mu.Unlock()

	if f.fail != "" && strings.Contains(query, f.fail) {
		return nil, nil, errors.New("bad_data: parse error")
	}

	t0 := model.TimeFromUnix(r.Start.Unix())
	t1 := model.TimeFromUnix(r.Start.Add(r.Step).Unix())

	if strings.Contains(query, "sum by (pod)") {
		return model.Matrix{
			{
				Metric: model.Metric{"pod": "cart-b"},
				Values: []model.SamplePair{{Timestamp: t0, Value: 0.2}, {Timestamp: t1, Value: 0.3}},
			},
			{
				Metric: model.Metric{"pod": "cart-a"},
				Values: []model.SamplePair{{Timestamp: t0, Value: 0.1}},
			},
		}, nil, nil
	}

	return model.Matrix{{
		Metric: model.Metric{},
		Values: []model.SamplePair{{Timestamp: t0, Value: 2}, {Timestamp: t1, Value: 3}},
	}}, v1.Warnings{"partial"}, nil
}

func testCollector(t *testing.T, api QueryAPI, arch string) (*Collector, string) {
	t.Helper()
	base := t.TempDir()
	cfg := DefaultConfig()
	cfg.ResultsDir = base
	cfg.Architecture = arch
	cfg.End = time.Unix(1700000600, 0)
	cfg.Lookback = 10 * time.Minute
	cfg.Step = 30 * time.Second
	return New(api, cfg), base
}

func TestCollectWritesCPUHPATree(t *testing.T) {
	api := &fakeAPI{}
	c, base := testCollector(t, api, "decoupled")

	target := Target{HPA: "cart-hpa", Namespace: "boutique", ScaleTarget: "deploy-cart"}
	summary, err := c.Collect(context.Background(), []Target{target})
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if len(summary.Files) != 5 || len(summary.Failed) != 0 {
		t.Fatalf("Unexpected summary %+v", summary)
	}

	dir := results.NewLayout(base).ServiceDir("decoupled", "deploy-cart")

	cpu, err := table.Read(filepath.Join(dir, results.CPUDeploymentFile))
	if err != nil {
		t.Fatalf("Failed to read cpu_deployment: %v", err)
	}
	if strings.Join(cpu.Columns, ",") != "timestamp,cores" {
		t.Errorf("Unexpected columns %v", cpu.Columns)
	}
	if cpu.Value(0, "timestamp") != "1700000000" || cpu.Value(1, "timestamp") != "1700000030" {
		t.Errorf("Unexpected timestamps %v", cpu.Column("timestamp"))
	}

	pods, err := table.Read(filepath.Join(dir, results.CPUPodLongFile))
	if err != nil {
		t.Fatalf("Failed to read cpu_pod_long: %v", err)
	}
	if pods.Len() != 3 || pods.Value(0, "pod") != "cart-a" || pods.Value(1, "pod") != "cart-b" {
		t.Errorf("Unexpected pod rows %v", pods.Rows)
	}

	hpaMax, err := table.Read(filepath.Join(dir, results.HPAMaxFile))
	if err != nil {
		t.Fatalf("Failed to read hpa_max: %v", err)
	}
	if !hpaMax.Has("max_replicas") || hpaMax.Value(1, "max_replicas") != "3" {
		t.Errorf("Unexpected hpa_max %v", hpaMax.Rows)
	}

	// ServiceName do diretório deve ser o segundo token
	dirs, _ := results.NewLayout(base).ServiceDirs("decoupled")
	if len(dirs) != 1 || dirs[0].Service != "cart" {
		t.Errorf("Unexpected service dirs %+v", dirs)
	}

	for _, q := range api.queries {
		if strings.Contains(q, "{{.") {
			t.Errorf("Unsubstituted query %s", q)
		}
	}
}

func TestCollectSkipsFailedQuery(t *testing.T) {
	api := &fakeAPI{fail: "spec_max_replicas"}
	c, base := testCollector(t, api, "monolith")

	summary, err := c.Collect(context.Background(), []Target{{HPA: "frontend", Namespace: "default", ScaleTarget: "monolith"}})
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if len(summary.Failed) != 1 || summary.Failed[0] != "frontend/hpa_max" {
		t.Errorf("Unexpected failures %v", summary.Failed)
	}

	mono := results.NewLayout(base).MonolithDir("monolith")
	if results.Exists(filepath.Join(mono, results.HPAMaxFile)) {
		t.Error("hpa_max.csv must not be written when the query fails")
	}
	if !results.Exists(filepath.Join(mono, results.HPACurrentFile)) {
		t.Error("Expected hpa_current.csv in monolith dir")
	}
}

func TestCollectValidation(t *testing.T) {
	c, _ := testCollector(t, &fakeAPI{}, "monolith")
	if _, err := c.Collect(context.Background(), []Target{{HPA: "a"}, {HPA: "b"}}); err == nil {
		t.Error("Expected error for multiple monolith targets")
	}

	c, _ = testCollector(t, &fakeAPI{}, "")
	if _, err := c.Collect(context.Background(), nil); err == nil {
		t.Error("Expected error for missing architecture")
	}
}

func TestQueryBuilder(t *testing.T) {
	q, err := NewQueryBuilder(CPUDeploymentQuery).
		WithNamespace("boutique").
		WithTarget(Target{HPA: "cart", ScaleTarget: "cartservice"}).
		WithRateWindow("2m").
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	for _, want := range []string{`namespace="boutique"`, `pod=~"cartservice-.*"`, "[2m]"} {
		if !strings.Contains(q, want) {
			t.Errorf("Expected %s in %s", want, q)
		}
	}
	if strings.Contains(q, "\n") {
		t.Error("Expected whitespace to be collapsed")
	}

	if _, err := NewQueryBuilder(HPACurrentReplicasQuery).Build(); err == nil {
		t.Error("Expected error for missing variables")
	}
}

func TestTargetDefaults(t *testing.T) {
	tgt := Target{HPA: "cart-hpa"}
	if tgt.DirName() != "cart-hpa" || tgt.PodSelector() != "cart-hpa-.*" {
		t.Errorf("Unexpected defaults %s %s", tgt.DirName(), tgt.PodSelector())
	}
	tgt = Target{HPA: "x", ScaleTarget: "deploy-y", Dir: "svc-y", Selector: "y.*"}
	if tgt.DirName() != "svc-y" || tgt.PodSelector() != "y.*" {
		t.Errorf("Unexpected overrides %s %s", tgt.DirName(), tgt.PodSelector())
	}
}
