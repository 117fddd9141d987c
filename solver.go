package sqd

import (
	"gonum.org/v1/gonum/mat"

	"github.com/joannaqw/sqd/rotation"
)

// RDMs are the reduced density matrices derived from a solver state.
type RDMs struct {
	// DM1 is the spin-summed one-body reduced density matrix.
	DM1 *mat.Dense
	// DM1Up and DM1Down are the spin-resolved one-body matrices.
	DM1Up   *mat.Dense
	DM1Down *mat.Dense
	// DM2 is the two-body reduced density matrix in chemist index ordering.
	DM2 *rotation.Tensor4
}

// SolverOptions configure the external CI solver.
type SolverOptions struct {
	// SpinSquared, when non-nil, is the target total spin squared for the
	// ground state. When nil, no spin is imposed.
	SpinSquared *float64
	// MaxIterations bounds the solver's internal diagonalization cycles.
	MaxIterations int
	// Verbose is a verbosity level between 0 and 10.
	Verbose int
}

// NewSolverOptions returns the default solver options.
func NewSolverOptions() SolverOptions {
	return SolverOptions{MaxIterations: 100}
}

// Solver is the external eigensolver oracle that projects a fermionic
// Hamiltonian onto a determinant subspace and approximates its ground state.
type Solver interface {
	// Diagonalize returns the minimal eigenvalue and the ground state
	// amplitudes over the subspace spanned by ciStrs. The returned state
	// carries the determinant lists the solver actually used, and its
	// amplitude shape matches those lists exactly.
	Diagonalize(hcore *mat.Dense, eri *rotation.Tensor4, norb int, nelec [2]int, ciStrs CIStrs, opt SolverOptions) (float64, *SCIState, error)

	// RDMs derives the one- and two-body reduced density matrices from a
	// state returned by Diagonalize.
	RDMs(state *SCIState, norb int, nelec [2]int) (RDMs, error)
}
