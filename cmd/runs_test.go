package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cwbudde/varqopt/internal/config"
	"github.com/cwbudde/varqopt/internal/problems"
	"github.com/cwbudde/varqopt/internal/store"
)

func TestSelectRunsForDeletion_ByAge(t *testing.T) {
	now := time.Now()
	infos := []store.RunInfo{
		{RunID: "run1", Timestamp: now.AddDate(0, 0, -10)},
		{RunID: "run2", Timestamp: now.AddDate(0, 0, -5)},
		{RunID: "run3", Timestamp: now.AddDate(0, 0, -1)},
		{RunID: "run4", Timestamp: now.AddDate(0, 0, -30)},
	}

	toDelete := selectRunsForDeletion(infos, 0, 7)

	if len(toDelete) != 2 {
		t.Fatalf("Expected 2 runs to delete, got %d", len(toDelete))
	}
	ids := map[string]bool{}
	for _, info := range toDelete {
		ids[info.RunID] = true
	}
	if !ids["run1"] || !ids["run4"] {
		t.Error("Expected run1 and run4 to be selected for deletion")
	}
}

func TestSelectRunsForDeletion_ByCount(t *testing.T) {
	now := time.Now()
	infos := []store.RunInfo{
		{RunID: "run1", Timestamp: now.AddDate(0, 0, -10)},
		{RunID: "run2", Timestamp: now.AddDate(0, 0, -5)},
		{RunID: "run3", Timestamp: now.AddDate(0, 0, -1)},
		{RunID: "run4", Timestamp: now.AddDate(0, 0, -30)},
	}

	toDelete := selectRunsForDeletion(infos, 2, 0)

	if len(toDelete) != 2 {
		t.Fatalf("Expected 2 runs to delete, got %d", len(toDelete))
	}
	for _, info := range toDelete {
		if info.RunID != "run1" && info.RunID != "run4" {
			t.Errorf("Newest runs must be kept, but %s was selected", info.RunID)
		}
	}
}

func TestSelectRunsForDeletion_Combined(t *testing.T) {
	now := time.Now()
	infos := []store.RunInfo{
		{RunID: "run1", Timestamp: now.AddDate(0, 0, -10)},
		{RunID: "run2", Timestamp: now.AddDate(0, 0, -5)},
		{RunID: "run3", Timestamp: now.AddDate(0, 0, -1)},
	}

	// run1 matches both rules and must be listed once
	toDelete := selectRunsForDeletion(infos, 1, 7)
	if len(toDelete) != 2 {
		t.Errorf("Expected 2 runs to delete, got %d", len(toDelete))
	}
}

func TestSelectRunsForDeletion_NothingToDo(t *testing.T) {
	infos := []store.RunInfo{{RunID: "run1", Timestamp: time.Now()}}
	if got := selectRunsForDeletion(infos, 5, 0); len(got) != 0 {
		t.Errorf("Expected nothing to delete, got %d", len(got))
	}
}

func TestGetDirSize(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(tmpDir, "a"), make([]byte, 100), 0644); err != nil {
		t.Fatal(err)
	}
	sub := filepath.Join(tmpDir, "sub")
	if err := os.MkdirAll(sub, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(sub, "b"), make([]byte, 50), 0644); err != nil {
		t.Fatal(err)
	}

	size, err := getDirSize(tmpDir)
	if err != nil {
		t.Fatalf("getDirSize failed: %v", err)
	}
	if size != 150 {
		t.Errorf("Expected 150 bytes, got %d", size)
	}

	if _, err := getDirSize(filepath.Join(tmpDir, "missing")); err == nil {
		t.Error("Expected error for missing directory")
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		bytes    int64
		expected string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{1048576, "1.0 MB"},
		{1073741824, "1.0 GB"},
	}

	for _, tt := range tests {
		if got := formatBytes(tt.bytes); got != tt.expected {
			t.Errorf("formatBytes(%d) = %s, want %s", tt.bytes, got, tt.expected)
		}
	}
}

func saveTestRun(t *testing.T, fs *store.FSStore, runID string, ts time.Time) {
	t.Helper()
	rec := store.NewRunRecord(runID, store.JobSpec{
		Solver:  store.SolverQAOA,
		Problem: &problems.Spec{Kind: problems.KindMaxCut, Edges: []problems.WeightedEdge{{U: 0, V: 1, Weight: 1}}},
	})
	rec.Solution = []bool{true, false}
	rec.Cost = -1
	rec.Timestamp = ts
	if err := fs.SaveRun(runID, rec); err != nil {
		t.Fatalf("Failed to save run: %v", err)
	}
}

func withConfig(t *testing.T, dir string) {
	t.Helper()
	c := config.Default()
	c.DataDir = dir
	original := cfg
	cfg = &c
	t.Cleanup(func() { cfg = original })
}

func TestRunsListCommand(t *testing.T) {
	tmpDir := t.TempDir()
	t.Chdir(tmpDir)
	withConfig(t, tmpDir)

	out, err := execute(t, "runs", "list", "--data-dir", tmpDir, "--log-level", "error")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !strings.Contains(out, "No runs found.") {
		t.Errorf("Unexpected output: %s", out)
	}

	fs, err := store.NewFSStore(tmpDir)
	if err != nil {
		t.Fatal(err)
	}
	saveTestRun(t, fs, "test-run-id", time.Now())

	out, err = execute(t, "runs", "list", "--data-dir", tmpDir, "--log-level", "error")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !strings.Contains(out, "test-run-id") || !strings.Contains(out, "Total runs: 1") {
		t.Errorf("Unexpected output: %s", out)
	}
}

func TestRunsCleanCommand_NoFlags(t *testing.T) {
	tmpDir := t.TempDir()
	withConfig(t, tmpDir)

	keepLast = 0
	olderThanDays = 0

	if err := runCleanRuns(cleanRunsCmd, nil); err == nil {
		t.Error("Expected error when no flags specified")
	}
}

func TestRunsCleanCommand_WithForce(t *testing.T) {
	tmpDir := t.TempDir()
	withConfig(t, tmpDir)

	fs, err := store.NewFSStore(tmpDir)
	if err != nil {
		t.Fatal(err)
	}
	saveTestRun(t, fs, "old-run", time.Now().AddDate(0, 0, -30))
	saveTestRun(t, fs, "new-run", time.Now())

	keepLast = 0
	olderThanDays = 7
	forceClean = true
	defer func() { olderThanDays, forceClean = 0, false }()

	if err := runCleanRuns(cleanRunsCmd, nil); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if _, err := fs.LoadRun("old-run"); err == nil {
		t.Error("Expected old run to be deleted")
	}
	if _, err := fs.LoadRun("new-run"); err != nil {
		t.Errorf("New run should be kept: %v", err)
	}
}

func TestRunsCleanCommand_Abort(t *testing.T) {
	tmpDir := t.TempDir()
	withConfig(t, tmpDir)

	fs, err := store.NewFSStore(tmpDir)
	if err != nil {
		t.Fatal(err)
	}
	saveTestRun(t, fs, "old-run", time.Now().AddDate(0, 0, -30))

	keepLast = 0
	olderThanDays = 7
	forceClean = false
	defer func() { olderThanDays = 0 }()

	cleanRunsCmd.SetIn(strings.NewReader("n\n"))
	defer cleanRunsCmd.SetIn(nil)

	if err := runCleanRuns(cleanRunsCmd, nil); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if _, err := fs.LoadRun("old-run"); err != nil {
		t.Error("Run should survive an aborted clean")
	}
}
