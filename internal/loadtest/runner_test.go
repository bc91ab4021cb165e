package loadtest

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"hpa-bench/internal/table"
)

// Helper que sobe uma loja fake: /cart/checkout responde 500, o resto 200
func newStorefrontServer(t *testing.T) (*httptest.Server, *sync.Map) {
	t.Helper()
	hits := &sync.Map{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		v, _ := hits.LoadOrStore(r.Method+" "+r.URL.Path, new(atomic.Int64))
		v.(*atomic.Int64).Add(1)

		if r.URL.Path == "/cart/checkout" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		if r.Method == http.MethodPost && r.Header.Get("Content-Type") != "application/x-www-form-urlencoded" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "shop_session-id", Value: "abc"})
		w.Write([]byte("ok"))
	}))
	t.Cleanup(srv.Close)
	return srv, hits
}

func testConfig(host string) *Config {
	cfg := DefaultConfig()
	cfg.Host = host
	cfg.Users = 3
	cfg.SpawnRate = 100
	cfg.RunTime = 400 * time.Millisecond
	cfg.WaitMin = 5 * time.Millisecond
	cfg.WaitMax = 10 * time.Millisecond
	cfg.RequestTimeout = 2 * time.Second
	cfg.CSVInterval = 50 * time.Millisecond
	return cfg
}

func TestRunnerWritesLocustCSVs(t *testing.T) {
	srv, hits := newStorefrontServer(t)

	cfg := testConfig(srv.URL)
	cfg.CSVPrefix = filepath.Join(t.TempDir(), "locust", "monolith_run")

	runner, err := NewRunner(cfg, Storefront(), NewMetrics("monolith"))
	if err != nil {
		t.Fatalf("Failed to create runner: %v", err)
	}

	var ticks int
	var last Snapshot
	runner.OnTick = func(s Snapshot) {
		ticks++
		last = s
	}

	report, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if report.Snapshot.Total.Requests == 0 {
		t.Fatal("Expected requests to be recorded")
	}
	if _, ok := hits.Load("GET /"); !ok {
		t.Error("Expected warm-up request on /")
	}
	if ticks == 0 {
		t.Error("Expected OnTick to be called")
	}
	if len(report.Files) != 3 {
		t.Fatalf("Expected 3 csv files, got %v", report.Files)
	}

	history, err := table.Read(cfg.CSVPrefix + HistorySuffix)
	if err != nil {
		t.Fatalf("Failed to read history: %v", err)
	}
	if history.Len() == 0 || !history.Has("Requests/s") || !history.Has("Total Average Response Time") {
		t.Errorf("Unexpected history %v", history.Columns)
	}

	// cada OnTick corresponde a uma linha do histórico, inclusive a final
	if history.Len() != ticks {
		t.Errorf("Expected %d history rows (one per tick), got %d", ticks, history.Len())
	}
	lastRow := history.Len() - 1
	if got, want := history.Value(lastRow, "Total Request Count"), fmt.Sprint(last.Total.Requests); got != want {
		t.Errorf("Last history row has %s requests, last tick %s", got, want)
	}
	if got, want := history.Value(lastRow, "User Count"), fmt.Sprint(last.Users); got != want {
		t.Errorf("Last history row has %s users, last tick %s", got, want)
	}
	if last.Total.Requests != report.Snapshot.Total.Requests {
		t.Errorf("Last tick differs from report: %d vs %d", last.Total.Requests, report.Snapshot.Total.Requests)
	}

	stats, err := table.Read(cfg.CSVPrefix + StatsSuffix)
	if err != nil {
		t.Fatalf("Failed to read stats: %v", err)
	}
	if stats.Value(stats.Len()-1, "Name") != AggregatedName {
		t.Error("Expected Aggregated row at the end of stats csv")
	}

	if _, err := table.Read(cfg.CSVPrefix + FailuresSuffix); err != nil {
		t.Errorf("Failed to read failures: %v", err)
	}
}

func TestRunnerStopsOnCancel(t *testing.T) {
	srv, _ := newStorefrontServer(t)

	cfg := testConfig(srv.URL)
	cfg.RunTime = 0

	runner, err := NewRunner(cfg, nil, nil)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, err := runner.Run(ctx); err != nil {
			t.Errorf("Run failed: %v", err)
		}
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Runner did not stop after cancel")
	}
	if runner.ActiveUsers() != 0 {
		t.Errorf("Expected no active users, got %d", runner.ActiveUsers())
	}
}

func TestCheckoutFailureRecorded(t *testing.T) {
	srv, _ := newStorefrontServer(t)

	catalog := &Catalog{Tasks: []Task{findTask(t, Storefront(), "checkout_flow")}}
	cfg := testConfig(srv.URL)
	cfg.Users = 1

	st := NewStats(0)
	user, err := NewUser(1, cfg, catalog, st, nil)
	if err != nil {
		t.Fatal(err)
	}
	user.runSteps(context.Background(), catalog.Tasks[0].Steps)

	snap := st.Snapshot(1)
	if snap.Total.Requests != 2 || snap.Total.Failures != 1 {
		t.Fatalf("Expected prep + failed checkout, got %d/%d", snap.Total.Requests, snap.Total.Failures)
	}
	if snap.Failures[0].Error != "Checkout returned 500 - server error" {
		t.Errorf("Unexpected failure %q", snap.Failures[0].Error)
	}
}

func TestConnectionFailureIsStatusZero(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	cfg := testConfig(url)
	st := NewStats(0)
	user, err := NewUser(1, cfg, Storefront(), st, nil)
	if err != nil {
		t.Fatal(err)
	}
	user.runSteps(context.Background(), Storefront().OnStart)

	snap := st.Snapshot(1)
	if len(snap.Failures) != 1 || snap.Failures[0].Error != "Connection failed - server may be down" {
		t.Errorf("Unexpected failures %+v", snap.Failures)
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Users = 0
	if err := cfg.Validate(); err == nil {
		t.Error("Expected error for zero users")
	}

	cfg = DefaultConfig()
	cfg.WaitMin, cfg.WaitMax = 5*time.Second, time.Second
	if err := cfg.Validate(); err == nil {
		t.Error("Expected error for inverted wait range")
	}
}

func TestSeededUsersPickSameTasks(t *testing.T) {
	cfg := testConfig("http://localhost")
	cfg.Seed = 42

	picks := func(id int) []string {
		user, err := NewUser(id, cfg, Storefront(), NewStats(0), nil)
		if err != nil {
			t.Fatal(err)
		}
		var names []string
		for i := 0; i < 50; i++ {
			names = append(names, user.catalog.Pick(user.rng).Name)
		}
		return names
	}

	a, b := picks(1), picks(1)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("Pick %d differs with the same seed: %s vs %s", i, a[i], b[i])
		}
	}

	other := picks(2)
	same := true
	for i := range a {
		if a[i] != other[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("Expected a different sequence for another user id")
	}
}
