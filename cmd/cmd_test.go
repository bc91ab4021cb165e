package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"hpa-bench/internal/kubernetes"
	"hpa-bench/internal/merge"
)

func TestParseTargets(t *testing.T) {
	targets, err := parseTargets([]string{"cart-hpa:cartservice", " frontend "}, "boutique")
	if err != nil {
		t.Fatalf("parseTargets failed: %v", err)
	}
	if len(targets) != 2 {
		t.Fatalf("Expected 2 targets, got %d", len(targets))
	}
	if targets[0].HPA != "cart-hpa" || targets[0].ScaleTarget != "cartservice" || targets[0].Namespace != "boutique" {
		t.Errorf("Unexpected target %+v", targets[0])
	}
	if targets[1].HPA != "frontend" || targets[1].DirName() != "frontend" {
		t.Errorf("Unexpected target %+v", targets[1])
	}

	if _, err := parseTargets([]string{":deploy"}, "x"); err == nil {
		t.Error("Expected error for empty HPA name")
	}
}

func TestTargetFromHPA(t *testing.T) {
	tgt := targetFromHPA(kubernetes.HPAInfo{Name: "cart", Namespace: "boutique", ScaleTargetName: "cartservice"})
	if tgt.DirName() != "cartservice" || tgt.PodSelector() != "cartservice-.*" {
		t.Errorf("Unexpected target %+v", tgt)
	}
}

func TestMergeCommand(t *testing.T) {
	base := t.TempDir()
	results := filepath.Join(base, "results")
	out := filepath.Join(base, "out")

	svc := filepath.Join(results, "decoupled", "cpu_hpa", "deploy-cart")
	if err := os.MkdirAll(svc, 0755); err != nil {
		t.Fatal(err)
	}
	os.WriteFile(filepath.Join(svc, "cpu_deployment.csv"), []byte("timestamp,cores\n2,0.4\n1,0.3\n"), 0644)
	os.WriteFile(filepath.Join(svc, "hpa_current.csv"), []byte("timestamp,current_replicas\n1,2\n"), 0644)

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetArgs([]string{
		"--config-dir", base, "--no-db", "--results-dir", results,
		"merge", "--arch", "decoupled", "--output", out,
	})
	t.Cleanup(func() { rootCmd.SetArgs(nil); mergeArchs = nil })

	if err := Execute(); err != nil {
		t.Fatalf("merge failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(out, merge.AllOutputFile))
	if err != nil {
		t.Fatalf("Expected merged_all.csv: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 || !strings.HasPrefix(lines[1], "1,") {
		t.Errorf("Unexpected merged output %q", data)
	}
	if !strings.Contains(stdout.String(), merge.AllOutputFile) {
		t.Errorf("Expected written file in output, got %q", stdout.String())
	}
}
