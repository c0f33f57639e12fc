package main

import (
	"github.com/spf13/cobra"

	"github.com/cwbudde/varqopt/internal/store"
)

var rerunSeed uint64

var rerunCmd = &cobra.Command{
	Use:   "rerun <run-id>",
	Short: "Repeat a stored run",
	Long: `Loads the job spec of a stored run and solves it again under a new run ID
with the current backend and optimizer settings. --seed replaces the
solver seed; without it the run is reproduced with its original seed.`,
	Args: cobra.ExactArgs(1),
	RunE: runRerun,
}

func init() {
	rerunCmd.Flags().Uint64Var(&rerunSeed, "seed", 0, "Replace the solver seed")
	rerunCmd.Flags().BoolVar(&outputJSON, "json", false, "Print the run record as JSON")
	rerunCmd.Flags().BoolVar(&noSave, "no-save", false, "Do not store the new run")
	rootCmd.AddCommand(rerunCmd)
}

func runRerun(cmd *cobra.Command, args []string) error {
	runStore, err := openStore()
	if err != nil {
		return err
	}
	prev, err := runStore.LoadRun(args[0])
	if err != nil {
		return err
	}

	spec := withSolverDefaults(prev.Spec)
	if cmd.Flags().Changed("seed") {
		setSpecSeed(&spec, rerunSeed)
		cfg.Seed = rerunSeed
	}
	return executeSpec(cmd.Context(), cmd.OutOrStdout(), spec)
}

// withSolverDefaults fills a nil solver section from the loaded config.
func withSolverDefaults(spec store.JobSpec) store.JobSpec {
	switch spec.Solver {
	case store.SolverPCE:
		if spec.PCE == nil {
			c := cfg.PCE
			spec.PCE = &c
		}
	case store.SolverQAOA:
		if spec.QAOA == nil {
			c := cfg.QAOA
			spec.QAOA = &c
		}
	case store.SolverVQE:
		if spec.VQE == nil {
			c := cfg.VQE
			spec.VQE = &c
		}
	}
	return spec
}

// setSpecSeed expects the solver section to be filled by withSolverDefaults.
func setSpecSeed(spec *store.JobSpec, seed uint64) {
	switch spec.Solver {
	case store.SolverPCE:
		c := *spec.PCE
		c.Seed = seed
		spec.PCE = &c
	case store.SolverQAOA:
		c := *spec.QAOA
		c.Seed = seed
		spec.QAOA = &c
	case store.SolverVQE:
		c := *spec.VQE
		c.Seed = seed
		spec.VQE = &c
	}
}
