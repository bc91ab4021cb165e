package storage

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"hpa-bench/internal/loadtest"
)

func newTestPersistence(t *testing.T) *Persistence {
	t.Helper()
	p, err := NewPersistence(&PersistenceConfig{
		Enabled: true,
		DBPath:  filepath.Join(t.TempDir(), "runs.db"),
	})
	if err != nil {
		t.Fatalf("NewPersistence failed: %v", err)
	}
	t.Cleanup(func() { p.Close() })
	return p
}

func TestRunLifecycle(t *testing.T) {
	p := newTestPersistence(t)

	run, err := p.StartRun(KindLoadTest, "decoupled")
	if err != nil {
		t.Fatalf("StartRun failed: %v", err)
	}
	if run.ID == "" || run.Status != StatusRunning {
		t.Fatalf("Unexpected run %+v", run)
	}

	if err := p.FinishRun(run.ID, map[string]int{"requests": 42}, nil); err != nil {
		t.Fatalf("FinishRun failed: %v", err)
	}

	got, err := p.GetRun(run.ID)
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if got.Status != StatusCompleted || got.FinishedAt == nil || got.Architecture != "decoupled" {
		t.Errorf("Unexpected run %+v", got)
	}

	var summary map[string]int
	if err := json.Unmarshal(got.Summary, &summary); err != nil || summary["requests"] != 42 {
		t.Errorf("Unexpected summary %s (%v)", got.Summary, err)
	}
}

func TestFinishRunWithError(t *testing.T) {
	p := newTestPersistence(t)

	run, _ := p.StartRun(KindMerge, "")
	if err := p.FinishRun(run.ID, nil, errors.New("boom")); err != nil {
		t.Fatalf("FinishRun failed: %v", err)
	}

	got, _ := p.GetRun(run.ID)
	if got.Status != StatusFailed || got.Error != "boom" || got.Summary != nil {
		t.Errorf("Unexpected run %+v", got)
	}

	if err := p.FinishRun("missing", nil, nil); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if _, err := p.GetRun("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestListRuns(t *testing.T) {
	p := newTestPersistence(t)

	base := time.Unix(1700000000, 0)
	for i, kind := range []RunKind{KindMerge, KindLoadTest, KindLoadTest} {
		at := base.Add(time.Duration(i) * time.Minute)
		p.now = func() time.Time { return at }
		if _, err := p.StartRun(kind, ""); err != nil {
			t.Fatalf("StartRun failed: %v", err)
		}
	}

	all, err := p.ListRuns("", 0)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(all) != 3 || all[0].Kind != KindLoadTest || all[2].Kind != KindMerge {
		t.Errorf("Expected newest first, got %+v", all)
	}

	loads, _ := p.ListRuns(KindLoadTest, 1)
	if len(loads) != 1 || !loads[0].StartedAt.Equal(base.Add(2*time.Minute)) {
		t.Errorf("Unexpected filtered runs %+v", loads)
	}
}

func TestHistoryAndEndpointStats(t *testing.T) {
	p := newTestPersistence(t)
	run, _ := p.StartRun(KindLoadTest, "monolith")

	points := []HistoryPoint{
		{Timestamp: 2, Users: 10, RPS: 4.5, Requests: 9},
		{Timestamp: 1, Users: 5, RPS: 2, Requests: 2},
	}
	if err := p.SaveHistory(run.ID, points); err != nil {
		t.Fatalf("SaveHistory failed: %v", err)
	}

	loaded, err := p.LoadHistory(run.ID)
	if err != nil {
		t.Fatalf("LoadHistory failed: %v", err)
	}
	if len(loaded) != 2 || loaded[0].Timestamp != 1 || loaded[1].RPS != 4.5 {
		t.Errorf("Unexpected history %+v", loaded)
	}

	stats := []EndpointStat{{Method: "GET", Name: "/", Requests: 10, Failures: 1, P95Ms: 120}}
	if err := p.SaveEndpointStats(run.ID, stats); err != nil {
		t.Fatalf("SaveEndpointStats failed: %v", err)
	}
	got, _ := p.LoadEndpointStats(run.ID)
	if len(got) != 1 || got[0] != stats[0] {
		t.Errorf("Unexpected endpoint stats %+v", got)
	}
}

func TestCleanup(t *testing.T) {
	p := newTestPersistence(t)

	now := time.Unix(1700000000, 0)
	p.now = func() time.Time { return now.Add(-48 * time.Hour) }
	old, _ := p.StartRun(KindLoadTest, "")
	p.SaveHistory(old.ID, []HistoryPoint{{Timestamp: 1}})

	p.now = func() time.Time { return now }
	recent, _ := p.StartRun(KindLoadTest, "")

	removed, err := p.Cleanup(24 * time.Hour)
	if err != nil {
		t.Fatalf("Cleanup failed: %v", err)
	}
	if removed != 1 {
		t.Errorf("Expected 1 removed run, got %d", removed)
	}
	if _, err := p.GetRun(recent.ID); err != nil {
		t.Errorf("Recent run should survive: %v", err)
	}
	if h, _ := p.LoadHistory(old.ID); len(h) != 0 {
		t.Errorf("Expected history of old run to be removed, got %+v", h)
	}

	stats, err := p.Stats()
	if err != nil || stats.TotalRuns != 1 || stats.ByKind["loadtest"] != 1 {
		t.Errorf("Unexpected stats %+v (%v)", stats, err)
	}
}

func TestDisabledPersistence(t *testing.T) {
	p, err := NewPersistence(&PersistenceConfig{Enabled: false})
	if err != nil {
		t.Fatalf("NewPersistence failed: %v", err)
	}
	if p.Enabled() {
		t.Error("Expected disabled persistence")
	}

	run, err := p.StartRun(KindCollect, "")
	if err != nil || run.ID == "" {
		t.Fatalf("Disabled StartRun should still return an id: %v", err)
	}
	if err := p.FinishRun(run.ID, nil, nil); err != nil {
		t.Errorf("Unexpected error %v", err)
	}
	if runs, _ := p.ListRuns("", 10); len(runs) != 0 {
		t.Errorf("Expected no runs, got %d", len(runs))
	}
	if _, err := p.GetRun(run.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestConvertSnapshot(t *testing.T) {
	snap := loadtest.Snapshot{
		Time:  time.Unix(1700000000, 0),
		Users: 7,
		Entries: []loadtest.EntrySummary{{
			Method: "GET", Name: "/", Requests: 3, RPS: 1.5,
			Percentiles: map[string]float64{"95%": 80},
		}},
		Total: loadtest.EntrySummary{
			Name: loadtest.AggregatedName, Requests: 3, CurrentRPS: 2,
			CurrentPercentiles: map[string]float64{"50%": 10, "95%": 90},
		},
	}

	pt := HistoryPointFromSnapshot(snap)
	if pt.Timestamp != 1700000000 || pt.Users != 7 || pt.RPS != 2 || pt.MedianMs != 10 || pt.P95Ms != 90 {
		t.Errorf("Unexpected point %+v", pt)
	}

	stats := EndpointStatsFromSnapshot(snap)
	if len(stats) != 2 || stats[0].P95Ms != 80 || stats[1].Name != loadtest.AggregatedName {
		t.Errorf("Unexpected endpoint stats %+v", stats)
	}
}
