package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cwbudde/varqopt/internal/problems"
	"github.com/cwbudde/varqopt/internal/solver"
)

// setupTestStore creates a temporary directory and returns an FSStore for testing.
func setupTestStore(t *testing.T) (*FSStore, string) {
	t.Helper()

	tempDir := t.TempDir()
	store, err := NewFSStore(tempDir)
	if err != nil {
		t.Fatalf("Failed to create test store: %v", err)
	}
	return store, tempDir
}

// createTestRecord creates a maxcut run record with test data.
func createTestRecord(runID string) *RunRecord {
	return &RunRecord{
		RunID: runID,
		Spec: JobSpec{
			Solver: SolverPCE,
			Problem: &problems.Spec{
				Kind:  problems.KindMaxCut,
				Edges: []problems.WeightedEdge{{U: 0, V: 1, Weight: 1}, {U: 1, V: 2, Weight: 1}},
			},
		},
		Optimizer:    "neldermead",
		Backend:      "simulator",
		Cost:         -2,
		Solution:     []bool{true, false, true},
		TopSolutions: []solver.Candidate{{Solution: []bool{true, false, true}, Cost: -2}},
		Params:       []float64{0.1, 0.2, 0.3, 0.4},
		NumQubits:    2,
		FuncEvals:    120,
		Converged:    true,
		Timestamp:    time.Now(),
	}
}

func TestNewFSStore(t *testing.T) {
	tempDir := filepath.Join(t.TempDir(), "nested", "data")

	store, err := NewFSStore(tempDir)
	if err != nil {
		t.Fatalf("NewFSStore failed: %v", err)
	}
	if store == nil {
		t.Fatal("Expected non-nil store")
	}
	if _, err := os.Stat(tempDir); os.IsNotExist(err) {
		t.Fatal("Base directory was not created")
	}
}

func TestSaveRun(t *testing.T) {
	store, tempDir := setupTestStore(t)

	runID := "run-123"
	if err := store.SaveRun(runID, createTestRecord(runID)); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}

	expectedPath := filepath.Join(tempDir, "runs", runID, "record.json")
	if _, err := os.Stat(expectedPath); os.IsNotExist(err) {
		t.Fatalf("Record file was not created at %s", expectedPath)
	}
	if _, err := os.Stat(expectedPath + ".tmp"); !os.IsNotExist(err) {
		t.Error("Temporary file was left behind")
	}
	if store.RunDir(runID) != filepath.Join(tempDir, "runs", runID) {
		t.Errorf("Unexpected run dir %s", store.RunDir(runID))
	}
}

func TestSaveRun_InvalidArguments(t *testing.T) {
	store, _ := setupTestStore(t)

	if err := store.SaveRun("", createTestRecord("x")); err == nil {
		t.Error("Expected error for empty runID")
	}
	if err := store.SaveRun("x", nil); err == nil {
		t.Error("Expected error for nil record")
	}
}

func TestSaveRun_Overwrite(t *testing.T) {
	store, _ := setupTestStore(t)

	runID := "run-overwrite"
	first := createTestRecord(runID)
	if err := store.SaveRun(runID, first); err != nil {
		t.Fatalf("First save failed: %v", err)
	}

	second := createTestRecord(runID)
	second.Cost = -3
	second.FuncEvals = 200
	if err := store.SaveRun(runID, second); err != nil {
		t.Fatalf("Second save failed: %v", err)
	}

	loaded, err := store.LoadRun(runID)
	if err != nil {
		t.Fatalf("LoadRun failed: %v", err)
	}
	if loaded.Cost != -3 || loaded.FuncEvals != 200 {
		t.Errorf("Expected overwritten record, got cost=%f evals=%d", loaded.Cost, loaded.FuncEvals)
	}
}

func TestLoadRun(t *testing.T) {
	store, _ := setupTestStore(t)

	runID := "run-load"
	original := createTestRecord(runID)
	if err := store.SaveRun(runID, original); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}

	loaded, err := store.LoadRun(runID)
	if err != nil {
		t.Fatalf("LoadRun failed: %v", err)
	}

	if loaded.RunID != original.RunID {
		t.Errorf("RunID mismatch: got %s, want %s", loaded.RunID, original.RunID)
	}
	if loaded.Spec.Solver != SolverPCE || loaded.Spec.Problem == nil || loaded.Spec.Problem.Kind != problems.KindMaxCut {
		t.Errorf("Spec not restored: %+v", loaded.Spec)
	}
	if len(loaded.Solution) != 3 || !loaded.Solution[0] || loaded.Solution[1] {
		t.Errorf("Solution mismatch: %v", loaded.Solution)
	}
	if len(loaded.TopSolutions) != 1 || loaded.TopSolutions[0].Cost != -2 {
		t.Errorf("TopSolutions mismatch: %+v", loaded.TopSolutions)
	}
	if !loaded.Timestamp.Equal(original.Timestamp) {
		t.Errorf("Timestamp mismatch: got %v, want %v", loaded.Timestamp, original.Timestamp)
	}
}

func TestLoadRun_NotFound(t *testing.T) {
	store, _ := setupTestStore(t)

	_, err := store.LoadRun("missing")
	if err == nil {
		t.Fatal("Expected error for missing run")
	}
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if _, err := store.LoadRun(""); err == nil {
		t.Error("Expected error for empty runID")
	}
}

func TestListRuns_Empty(t *testing.T) {
	store, _ := setupTestStore(t)

	infos, err := store.ListRuns()
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(infos) != 0 {
		t.Errorf("Expected 0 runs, got %d", len(infos))
	}
}

func TestListRuns_NewestFirst(t *testing.T) {
	store, _ := setupTestStore(t)

	base := time.Now()
	for i := 0; i < 3; i++ {
		runID := fmt.Sprintf("run-%d", i)
		rec := createTestRecord(runID)
		rec.Timestamp = base.Add(time.Duration(i) * time.Minute)
		if err := store.SaveRun(runID, rec); err != nil {
			t.Fatalf("SaveRun failed: %v", err)
		}
	}

	infos, err := store.ListRuns()
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(infos) != 3 {
		t.Fatalf("Expected 3 runs, got %d", len(infos))
	}
	if infos[0].RunID != "run-2" || infos[2].RunID != "run-0" {
		t.Errorf("Unexpected order: %s, %s, %s", infos[0].RunID, infos[1].RunID, infos[2].RunID)
	}
	if infos[0].Input != "maxcut" || infos[0].Solver != SolverPCE {
		t.Errorf("Unexpected info: %+v", infos[0])
	}
}

func TestListRuns_SkipsInvalidDirectories(t *testing.T) {
	store, tempDir := setupTestStore(t)

	if err := store.SaveRun("good", createTestRecord("good")); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}

	// directory without record.json, e.g. a run still in progress
	if err := os.MkdirAll(filepath.Join(tempDir, "runs", "pending"), 0755); err != nil {
		t.Fatal(err)
	}
	// corrupted record
	corrupt := filepath.Join(tempDir, "runs", "corrupt")
	if err := os.MkdirAll(corrupt, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(corrupt, "record.json"), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	// stray file
	if err := os.WriteFile(filepath.Join(tempDir, "runs", "README"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	infos, err := store.ListRuns()
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(infos) != 1 || infos[0].RunID != "good" {
		t.Errorf("Expected only the good run, got %+v", infos)
	}
}

func TestDeleteRun(t *testing.T) {
	store, _ := setupTestStore(t)

	runID := "run-delete"
	if err := store.SaveRun(runID, createTestRecord(runID)); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}
	tw, err := NewTraceWriter(store.RunDir(runID), false)
	if err != nil {
		t.Fatalf("NewTraceWriter failed: %v", err)
	}
	tw.Write(TraceEntry{Evaluation: 1, Cost: 0.5, Timestamp: time.Now()})
	tw.Close()

	if err := store.DeleteRun(runID); err != nil {
		t.Fatalf("DeleteRun failed: %v", err)
	}
	if _, err := os.Stat(store.RunDir(runID)); !os.IsNotExist(err) {
		t.Error("Run directory still exists after delete")
	}

	if err := store.DeleteRun(runID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound on second delete, got %v", err)
	}
	if err := store.DeleteRun(""); err == nil {
		t.Error("Expected error for empty runID")
	}
}

func TestConcurrentSave(t *testing.T) {
	store, _ := setupTestStore(t)

	const n = 10
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		go func(i int) {
			runID := fmt.Sprintf("concurrent-%d", i)
			errs <- store.SaveRun(runID, createTestRecord(runID))
		}(i)
	}
	for i := 0; i < n; i++ {
		if err := <-errs; err != nil {
			t.Errorf("Concurrent save failed: %v", err)
		}
	}

	infos, err := store.ListRuns()
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(infos) != n {
		t.Errorf("Expected %d runs, got %d", n, len(infos))
	}
}
