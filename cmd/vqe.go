package main

import (
	"github.com/spf13/cobra"

	"github.com/cwbudde/varqopt/internal/store"
)

var (
	hamiltonianPath string
	vqeQubits       int
	vqeLayers       int
	vqeShots        int
	vqeMaxIter      int
	vqeSeed         uint64
	vqeParallel     bool
)

var vqeCmd = &cobra.Command{
	Use:   "vqe",
	Short: "Estimate the ground-state energy of a Pauli-sum Hamiltonian",
	Long: `Reads a Hamiltonian file of weighted Pauli strings and minimises its
expectation value over a hardware-efficient ansatz.`,
	Example: `  varqopt vqe --hamiltonian h2.yaml --layers 3 --parallel`,
	RunE:    runVQE,
}

func init() {
	vqeCmd.Flags().StringVar(&hamiltonianPath, "hamiltonian", "", "Hamiltonian file (required)")
	vqeCmd.Flags().IntVar(&vqeQubits, "qubits", 0, "Register width (0 = smallest that fits the Hamiltonian)")
	vqeCmd.Flags().IntVar(&vqeLayers, "layers", 0, "Ansatz layers")
	vqeCmd.Flags().IntVar(&vqeShots, "shots", 0, "Shots per measurement circuit")
	vqeCmd.Flags().IntVar(&vqeMaxIter, "max-iter", 0, "Objective evaluation budget")
	vqeCmd.Flags().Uint64Var(&vqeSeed, "seed", 0, "Random seed")
	vqeCmd.Flags().BoolVar(&vqeParallel, "parallel", false, "Run measurement circuits concurrently")
	vqeCmd.Flags().BoolVar(&outputJSON, "json", false, "Print the run record as JSON")
	vqeCmd.Flags().BoolVar(&noSave, "no-save", false, "Do not store the run")

	vqeCmd.MarkFlagRequired("hamiltonian")
	rootCmd.AddCommand(vqeCmd)
}

func runVQE(cmd *cobra.Command, args []string) error {
	terms, err := loadHamiltonian(hamiltonianPath)
	if err != nil {
		return err
	}

	c := cfg.VQE
	flags := cmd.Flags()
	if flags.Changed("qubits") {
		c.Qubits = vqeQubits
	}
	if flags.Changed("layers") {
		c.Layers = vqeLayers
	}
	if flags.Changed("shots") {
		c.Shots = vqeShots
	}
	if flags.Changed("max-iter") {
		c.MaxIter = vqeMaxIter
	}
	if flags.Changed("seed") {
		c.Seed = vqeSeed
		cfg.Seed = vqeSeed
	}
	if flags.Changed("parallel") {
		c.Parallel = vqeParallel
	}

	spec := store.JobSpec{Solver: store.SolverVQE, Hamiltonian: terms, VQE: &c}
	return executeSpec(cmd.Context(), cmd.OutOrStdout(), spec)
}
