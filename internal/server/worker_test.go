package server

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/cwbudde/varqopt/internal/config"
	"github.com/cwbudde/varqopt/internal/problems"
	"github.com/cwbudde/varqopt/internal/runner"
	"github.com/cwbudde/varqopt/internal/solver"
	"github.com/cwbudde/varqopt/internal/store"
)

func edgeProblem() *problems.Spec {
	return &problems.Spec{
		Kind:  problems.KindMaxCut,
		Edges: []problems.WeightedEdge{{U: 0, V: 1, Weight: 1}},
	}
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	cfg.Addr = "127.0.0.1:0"
	cfg.SetSeed(11)
	cfg.PCE.MaxIter = 20
	cfg.QAOA.MaxIter = 20
	cfg.VQE.MaxIter = 20
	return &cfg
}

func TestRunJob_Success(t *testing.T) {
	cfg := testConfig(t)
	fs, err := store.NewFSStore(cfg.DataDir)
	if err != nil {
		t.Fatal(err)
	}
	jm := NewJobManager()
	m := newJobMetrics(prometheus.NewRegistry())

	job := jm.CreateJob(store.JobSpec{Solver: store.SolverQAOA, Problem: edgeProblem()}, nil)
	if err := runJob(context.Background(), jm, fs, runner.New(cfg, nil), m, job.ID); err != nil {
		t.Fatalf("runJob should succeed: %v", err)
	}

	updated, _ := jm.GetJob(job.ID)
	if updated.State != StateCompleted {
		t.Fatalf("Job should be completed, got %s (%s)", updated.State, updated.Error)
	}
	if updated.Record == nil || len(updated.Record.Solution) != 2 {
		t.Fatalf("Expected a record with a 2-bit solution, got %+v", updated.Record)
	}
	if updated.EndTime == nil {
		t.Error("EndTime should be set")
	}
	if updated.Evaluations == 0 {
		t.Error("Evaluations should be counted")
	}

	rec, err := fs.LoadRun(job.ID)
	if err != nil {
		t.Fatalf("Run should be persisted: %v", err)
	}
	if rec.Cost != updated.Record.Cost {
		t.Errorf("Persisted cost %f differs from job cost %f", rec.Cost, updated.Record.Cost)
	}

	reader, err := store.NewTraceReader(fs.RunDir(job.ID))
	if err != nil {
		t.Fatalf("Trace should exist: %v", err)
	}
	defer reader.Close()
	entries, err := reader.ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != rec.FuncEvals {
		t.Errorf("Expected %d trace entries, got %d", rec.FuncEvals, len(entries))
	}

	if got := testutil.ToFloat64(m.finished.WithLabelValues(store.SolverQAOA, string(StateCompleted))); got != 1 {
		t.Errorf("Expected one completed job in metrics, got %f", got)
	}
	if got := testutil.ToFloat64(m.running); got != 0 {
		t.Errorf("Running gauge should be back to 0, got %f", got)
	}
}

func TestRunJob_WithoutStore(t *testing.T) {
	cfg := testConfig(t)
	jm := NewJobManager()
	spec := store.JobSpec{
		Solver:      store.SolverVQE,
		Hamiltonian: []solver.PauliTerm{{Coeff: 1, Ops: map[int]string{0: "Z"}}},
	}
	job := jm.CreateJob(spec, nil)

	if err := runJob(context.Background(), jm, nil, runner.New(cfg, nil), newJobMetrics(prometheus.NewRegistry()), job.ID); err != nil {
		t.Fatalf("runJob should succeed: %v", err)
	}
	updated, _ := jm.GetJob(job.ID)
	if updated.State != StateCompleted {
		t.Errorf("Job should be completed, got %s", updated.State)
	}
	if _, err := os.Stat(filepath.Join(cfg.DataDir, "runs")); !os.IsNotExist(err) {
		t.Error("Nothing should be written without a store")
	}
}

func TestRunJob_InvalidConfigFails(t *testing.T) {
	cfg := testConfig(t)
	jm := NewJobManager()
	m := newJobMetrics(prometheus.NewRegistry())

	bad := solver.DefaultQAOAConfig()
	bad.Layers = 0
	job := jm.CreateJob(store.JobSpec{Solver: store.SolverQAOA, Problem: edgeProblem(), QAOA: &bad}, nil)

	if err := runJob(context.Background(), jm, nil, runner.New(cfg, nil), m, job.ID); err == nil {
		t.Fatal("runJob should fail for p = 0")
	}
	updated, _ := jm.GetJob(job.ID)
	if updated.State != StateFailed {
		t.Errorf("Job should be failed, got %s", updated.State)
	}
	if updated.Error == "" {
		t.Error("Error message should be set")
	}
	if got := testutil.ToFloat64(m.finished.WithLabelValues(store.SolverQAOA, string(StateFailed))); got != 1 {
		t.Errorf("Expected one failed job in metrics, got %f", got)
	}
}

func TestRunJob_Cancelled(t *testing.T) {
	cfg := testConfig(t)
	jm := NewJobManager()
	job := jm.CreateJob(store.JobSpec{Solver: store.SolverPCE, Problem: edgeProblem()}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := runJob(ctx, jm, nil, runner.New(cfg, nil), newJobMetrics(prometheus.NewRegistry()), job.ID); err == nil {
		t.Fatal("runJob should return the context error")
	}
	updated, _ := jm.GetJob(job.ID)
	if updated.State != StateCancelled {
		t.Errorf("Job should be cancelled, got %s", updated.State)
	}
}

func TestRunJob_MissingJob(t *testing.T) {
	cfg := testConfig(t)
	err := runJob(context.Background(), NewJobManager(), nil, runner.New(cfg, nil), newJobMetrics(prometheus.NewRegistry()), "missing")
	if err == nil {
		t.Error("Expected error for missing job")
	}
}
