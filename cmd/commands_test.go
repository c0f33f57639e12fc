package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cwbudde/varqopt/internal/store"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)
	err := rootCmd.Execute()
	return buf.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func decodeRecord(t *testing.T, out string) store.RunRecord {
	t.Helper()
	var rec store.RunRecord
	if err := json.Unmarshal([]byte(out), &rec); err != nil {
		t.Fatalf("Output is not a run record: %v\n%s", err, out)
	}
	return rec
}

const edgeProblemYAML = `kind: maxcut
edges:
  - {u: 0, v: 1, weight: 1}
`

func TestSolveCommand(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	problem := writeFile(t, dir, "edge.yaml", edgeProblemYAML)

	out, err := execute(t, "solve", "--solver", "qaoa", "--problem", problem,
		"--max-iter", "15", "--shots", "256", "--json", "--no-save=false",
		"--data-dir", dir, "--log-level", "error")
	if err != nil {
		t.Fatalf("solve failed: %v\n%s", err, out)
	}

	rec := decodeRecord(t, out)
	if rec.Spec.Solver != store.SolverQAOA || len(rec.Solution) != 2 {
		t.Errorf("Unexpected record %+v", rec)
	}
	if rec.Spec.QAOA == nil || rec.Spec.QAOA.Shots != 256 || rec.Spec.QAOA.MaxIter != 15 {
		t.Errorf("Flag overrides not applied: %+v", rec.Spec.QAOA)
	}
	if _, err := os.Stat(filepath.Join(dir, "runs", rec.RunID, "record.json")); err != nil {
		t.Errorf("Run should be saved: %v", err)
	}

	// the stored run can be repeated under a new ID
	out, err = execute(t, "rerun", rec.RunID, "--seed", "9", "--json", "--data-dir", dir, "--log-level", "error")
	if err != nil {
		t.Fatalf("rerun failed: %v\n%s", err, out)
	}
	again := decodeRecord(t, out)
	if again.RunID == rec.RunID {
		t.Error("rerun must use a new run ID")
	}
	if again.Spec.QAOA == nil || again.Spec.QAOA.Seed != 9 {
		t.Errorf("rerun seed not applied: %+v", again.Spec.QAOA)
	}
	if again.Spec.QAOA.Shots != 256 {
		t.Error("rerun must keep the stored solver settings")
	}
}

func TestSolveCommandRejectsUnknownSolver(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	problem := writeFile(t, dir, "edge.yaml", edgeProblemYAML)

	_, err := execute(t, "solve", "--solver", "vqe", "--problem", problem, "--data-dir", dir, "--log-level", "error")
	if err == nil {
		t.Error("Expected error for vqe on the solve command")
	}
	solveSolver = store.SolverPCE
}

func TestSolveCommandMissingProblemFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	_, err := execute(t, "solve", "--solver", "pce", "--problem", filepath.Join(dir, "nope.yaml"), "--data-dir", dir, "--log-level", "error")
	if err == nil {
		t.Error("Expected error for a missing problem file")
	}
}

func TestVQECommand(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	h := writeFile(t, dir, "h.yaml", `terms:
  - coeff: 1.0
    ops: {0: Z}
  - coeff: 0.5
    ops: {0: X, 1: X}
`)

	out, err := execute(t, "vqe", "--hamiltonian", h, "--max-iter", "10", "--layers", "1",
		"--json", "--no-save", "--data-dir", dir, "--log-level", "error")
	if err != nil {
		t.Fatalf("vqe failed: %v\n%s", err, out)
	}
	rec := decodeRecord(t, out)
	if rec.Spec.Solver != store.SolverVQE || rec.NumQubits != 2 {
		t.Errorf("Unexpected record %+v", rec)
	}
	if _, err := os.Stat(filepath.Join(dir, "runs")); !os.IsNotExist(err) {
		t.Error("--no-save must not write runs")
	}
	noSave = false
}

func TestPartitionCommand(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	// two triangles joined by a weak edge
	graph := writeFile(t, dir, "graph.yaml", `kind: maxcut
edges:
  - {u: 0, v: 1, weight: 1}
  - {u: 1, v: 2, weight: 1}
  - {u: 0, v: 2, weight: 1}
  - {u: 3, v: 4, weight: 1}
  - {u: 4, v: 5, weight: 1}
  - {u: 3, v: 5, weight: 1}
  - {u: 2, v: 3, weight: 0.1}
`)

	out, err := execute(t, "partition", "--graph", graph, "--parts", "2", "--json", "--data-dir", dir, "--log-level", "error")
	if err != nil {
		t.Fatalf("partition failed: %v\n%s", err, out)
	}
	var parts [][]int
	if err := json.Unmarshal([]byte(out), &parts); err != nil {
		t.Fatalf("Bad output %q: %v", out, err)
	}
	if len(parts) != 2 || len(parts[0]) != 3 || len(parts[1]) != 3 {
		t.Errorf("Expected two triangles, got %v", parts)
	}

	_, err = execute(t, "partition", "--graph", graph, "--clusterer", "dbscan", "--data-dir", dir, "--log-level", "error")
	if err == nil {
		t.Error("Expected error for unknown clusterer")
	}
	clustererName = "kmeans"
}

func TestVersionCommand(t *testing.T) {
	t.Chdir(t.TempDir())
	out, err := execute(t, "version", "--log-level", "error")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "varqopt version "+version) {
		t.Errorf("Unexpected output %q", out)
	}
}

func TestBitstring(t *testing.T) {
	if got := bitstring([]bool{true, false, true}); got != "101" {
		t.Errorf("bitstring = %s", got)
	}
	if got := displayID("0123456789abcdef"); got != "0123456789ab..." {
		t.Errorf("displayID = %s", got)
	}
}
