package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cwbudde/varqopt/internal/problems"
	"github.com/cwbudde/varqopt/internal/solver"
)

// hamiltonianFile is the on-disk form of a Pauli-sum Hamiltonian:
//
//	terms:
//	  - coeff: -1.0
//	    ops: {0: Z, 1: Z}
type hamiltonianFile struct {
	Terms []solver.PauliTerm `yaml:"terms"`
}

// loadProblem reads a problem spec from a YAML (or JSON) file.
func loadProblem(path string) (*problems.Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read problem: %w", err)
	}
	var spec problems.Spec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("failed to parse problem %s: %w", path, err)
	}
	if spec.Kind == "" {
		return nil, fmt.Errorf("problem %s: kind is required", path)
	}
	return &spec, nil
}

// loadHamiltonian reads Pauli terms from a YAML (or JSON) file.
func loadHamiltonian(path string) ([]solver.PauliTerm, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read hamiltonian: %w", err)
	}
	var f hamiltonianFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse hamiltonian %s: %w", path, err)
	}
	if len(f.Terms) == 0 {
		return nil, fmt.Errorf("hamiltonian %s has no terms", path)
	}
	return f.Terms, nil
}
