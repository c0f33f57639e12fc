package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/cwbudde/varqopt/internal/encoding"
	"github.com/cwbudde/varqopt/internal/runner"
	"github.com/cwbudde/varqopt/internal/solver"
	"github.com/cwbudde/varqopt/internal/store"
)

var (
	solveSolver   string
	problemPath   string
	solveEncoding string
	solveLayers   int
	solveShots    int
	solveMaxIter  int
	solveAlpha    float64
	solveCVaRTop  float64
	solveSeed     uint64
	outputJSON    bool
	noSave        bool
)

var solveCmd = &cobra.Command{
	Use:   "solve",
	Short: "Solve a quadratic binary problem with PCE or QAOA",
	Long: `Reads a problem file (matrix, terms, maxcut, tsp or portfolio), runs the
selected variational solver and prints the best assignments. Unless --no-save
is given the run is stored under the data directory.`,
	Example: `  varqopt solve --problem graph.yaml
  varqopt solve --solver qaoa --problem tsp.yaml --layers 2 --shots 2048`,
	RunE: runSolve,
}

func init() {
	solveCmd.Flags().StringVar(&solveSolver, "solver", store.SolverPCE, "Solver: pce or qaoa")
	solveCmd.Flags().StringVar(&problemPath, "problem", "", "Problem file (required)")
	solveCmd.Flags().StringVar(&solveEncoding, "encoding", string(encoding.KindDense), "PCE encoding: dense or poly")
	solveCmd.Flags().IntVar(&solveLayers, "layers", 0, "Ansatz layers (PCE) or QAOA depth p")
	solveCmd.Flags().IntVar(&solveShots, "shots", 0, "Shots per circuit evaluation")
	solveCmd.Flags().IntVar(&solveMaxIter, "max-iter", 0, "Objective evaluation budget")
	solveCmd.Flags().Float64Var(&solveAlpha, "alpha", 0, "PCE smoothing sharpness; values >= 5 switch to CVaR")
	solveCmd.Flags().Float64Var(&solveCVaRTop, "cvar-top", 0, "Fraction of best outcomes averaged by CVaR")
	solveCmd.Flags().Uint64Var(&solveSeed, "seed", 0, "Random seed")
	solveCmd.Flags().BoolVar(&outputJSON, "json", false, "Print the run record as JSON")
	solveCmd.Flags().BoolVar(&noSave, "no-save", false, "Do not store the run")

	solveCmd.MarkFlagRequired("problem")
	rootCmd.AddCommand(solveCmd)
}

func runSolve(cmd *cobra.Command, args []string) error {
	problem, err := loadProblem(problemPath)
	if err != nil {
		return err
	}

	spec := store.JobSpec{Solver: solveSolver, Problem: problem}
	flags := cmd.Flags()
	switch solveSolver {
	case store.SolverPCE:
		c := cfg.PCE
		if flags.Changed("encoding") {
			c.Encoding = encoding.Kind(solveEncoding)
		}
		if flags.Changed("layers") {
			c.Layers = solveLayers
		}
		if flags.Changed("shots") {
			c.Shots = solveShots
		}
		if flags.Changed("max-iter") {
			c.MaxIter = solveMaxIter
		}
		if flags.Changed("alpha") {
			c.Alpha = solveAlpha
		}
		if flags.Changed("cvar-top") {
			c.CVaRTop = solveCVaRTop
		}
		if flags.Changed("seed") {
			c.Seed = solveSeed
		}
		spec.PCE = &c
	case store.SolverQAOA:
		c := cfg.QAOA
		if flags.Changed("layers") {
			c.Layers = solveLayers
		}
		if flags.Changed("shots") {
			c.Shots = solveShots
		}
		if flags.Changed("max-iter") {
			c.MaxIter = solveMaxIter
		}
		if flags.Changed("cvar-top") {
			c.CVaRTop = solveCVaRTop
		}
		if flags.Changed("seed") {
			c.Seed = solveSeed
		}
		spec.QAOA = &c
	default:
		return fmt.Errorf("unknown solver %q; choose pce or qaoa (use the vqe command for Hamiltonians)", solveSolver)
	}
	if flags.Changed("seed") {
		cfg.Seed = solveSeed
	}

	return executeSpec(cmd.Context(), cmd.OutOrStdout(), spec)
}

// executeSpec runs spec under a fresh run ID, stores it unless --no-save
// and prints the record.
func executeSpec(ctx context.Context, out io.Writer, spec store.JobSpec) error {
	if ctx == nil {
		ctx = context.Background()
	}
	r := runner.New(cfg, nil)
	if err := r.Check(spec); err != nil {
		return err
	}

	runID := uuid.New().String()
	rec, err := r.Run(ctx, runID, spec, func(e solver.Evaluation) {
		slog.Debug("Evaluation", "run_id", runID, "eval", e.Index, "cost", e.Cost)
	})
	if err != nil {
		return err
	}

	if !noSave {
		fs, err := store.NewFSStore(cfg.DataDir)
		if err != nil {
			return fmt.Errorf("failed to create run store: %w", err)
		}
		if err := fs.SaveRun(runID, rec); err != nil {
			return err
		}
	}

	if outputJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(rec)
	}
	printRecord(out, rec)
	return nil
}

func printRecord(out io.Writer, rec *store.RunRecord) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Run:\t%s\n", rec.RunID)
	fmt.Fprintf(w, "Solver:\t%s (%s, %s)\n", rec.Spec.Solver, rec.Optimizer, rec.Backend)
	fmt.Fprintf(w, "Input:\t%s\n", rec.Spec.Input())
	if rec.Spec.Solver == store.SolverVQE {
		fmt.Fprintf(w, "Energy:\t%.6f\n", rec.Cost)
	} else {
		fmt.Fprintf(w, "Cost:\t%.6f\n", rec.Cost)
		fmt.Fprintf(w, "Solution:\t%s\n", bitstring(rec.Solution))
	}
	if rec.Tour != nil {
		fmt.Fprintf(w, "Tour:\t%v\n", rec.Tour)
	}
	fmt.Fprintf(w, "Qubits:\t%d\n", rec.NumQubits)
	fmt.Fprintf(w, "Evaluations:\t%d (converged: %v)\n", rec.FuncEvals, rec.Converged)
	fmt.Fprintf(w, "Elapsed:\t%.2fs\n", rec.ElapsedSeconds)
	w.Flush()

	if len(rec.TopSolutions) > 1 {
		fmt.Fprintln(out, "\nTop solutions:")
		w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "RANK\tASSIGNMENT\tCOST")
		for i, c := range rec.TopSolutions {
			fmt.Fprintf(w, "%d\t%s\t%.6f\n", i+1, bitstring(c.Solution), c.Cost)
		}
		w.Flush()
	}
}
