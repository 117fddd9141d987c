// Package sqd implements sample-based quantum diagonalization of fermionic
// systems: canonicalization and expansion of electronic configuration
// subspaces, and optimization of the orbital basis rotation that lets a
// fixed-size subspace reach the lowest ground state energy.
//
// References:
//   - Chemistry beyond exact solutions on a quantum-centric supercomputer,
//     Sec. II A 4, https://arxiv.org/pdf/2405.05068
package sqd

import (
	"log"
	"math/bits"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/joannaqw/sqd/rotation"
)

// SolveOptions are options for Solve.
type SolveOptions struct {
	openShell bool
	solver    SolverOptions
	window    *subspaceWindow
}

type subspaceWindow struct {
	orb  int
	up   int
	down int
}

// NewSolveOptions returns the default options for Solve.
func NewSolveOptions() SolveOptions {
	return SolveOptions{solver: NewSolverOptions()}
}

// OpenShell keeps the spin-up and spin-down configuration sets distinct
// instead of replacing both with their union.
func (o SolveOptions) OpenShell(b bool) SolveOptions {
	o.openShell = b
	return o
}

// Solver sets the options forwarded to the CI solver.
func (o SolveOptions) Solver(so SolverOptions) SolveOptions {
	o.solver = so
	return o
}

// Subspace guarantees that every configuration of an active window of orb
// orbitals holding up and down electrons is present in the subspace,
// regardless of what was sampled. See GenerateSubspaceBitstrings.
func (o SolveOptions) Subspace(orb, up, down int) SolveOptions {
	o.window = &subspaceWindow{orb: orb, up: up, down: down}
	return o
}

// SolveResult is the outcome of diagonalizing a configuration subspace.
type SolveResult struct {
	// Energy is the minimal eigenvalue found.
	Energy float64
	// State is the ground state over the subspace.
	State *SCIState
	// Occupancies are the average occupancies of each orbital for the
	// spin-up and spin-down sectors, the diagonals of the spin-resolved
	// one-body reduced density matrices.
	Occupancies [2][]float64
}

// Solve approximates the ground state of the Hamiltonian defined by the
// molecular integrals, projected onto the configuration subspace sampled in
// the bitstring matrix. eri must be in chemist index ordering.
func Solve(solver Solver, bm [][]bool, hcore *mat.Dense, eri *rotation.Tensor4, options ...SolveOptions) (SolveResult, error) {
	opt := NewSolveOptions()
	if len(options) > 0 {
		opt = options[0]
	}

	cs, err := BitstringMatrixToCIStrs(bm, opt.openShell)
	if err != nil {
		return SolveResult{}, errors.Wrap(err, "")
	}
	return solveCIStrs(solver, cs, hcore, eri, opt)
}

// SolveCIStrs is like Solve but takes the determinant lists directly,
// bypassing bit decoding.
//
// Deprecated: pass a bitstring matrix to Solve instead.
func SolveCIStrs(solver Solver, ciStrs CIStrs, hcore *mat.Dense, eri *rotation.Tensor4, options ...SolveOptions) (SolveResult, error) {
	log.Printf("warning: passing determinants as integers is deprecated, pass a bitstring matrix instead")
	opt := NewSolveOptions()
	if len(options) > 0 {
		opt = options[0]
	}
	return solveCIStrs(solver, ciStrs, hcore, eri, opt)
}

func solveCIStrs(solver Solver, cs CIStrs, hcore *mat.Dense, eri *rotation.Tensor4, opt SolveOptions) (SolveResult, error) {
	if err := CheckCIStrs(&cs); err != nil {
		return SolveResult{}, errors.Wrap(err, "")
	}
	norb, err := checkIntegrals(hcore, eri)
	if err != nil {
		return SolveResult{}, errors.Wrap(err, "")
	}
	nelec := [2]int{bits.OnesCount64(cs.Up[0]), bits.OnesCount64(cs.Down[0])}

	if opt.window != nil {
		rows, err := GenerateSubspaceBitstrings(norb, nelec[0], nelec[1], opt.window.orb, opt.window.up, opt.window.down)
		if err != nil {
			return SolveResult{}, errors.Wrap(err, "")
		}
		sub, err := BitstringMatrixToCIStrs(rows, opt.openShell)
		if err != nil {
			return SolveResult{}, errors.Wrap(err, "")
		}
		cs.Up = unionSorted(cs.Up, sub.Up)
		cs.Down = unionSorted(cs.Down, sub.Down)
		if err := CheckCIStrs(&cs); err != nil {
			return SolveResult{}, errors.Wrap(err, "")
		}
	}

	energy, state, err := solver.Diagonalize(hcore, eri, norb, nelec, cs, opt.solver)
	if err != nil {
		return SolveResult{}, errors.Wrap(err, "")
	}
	rdms, err := solver.RDMs(state, norb, nelec)
	if err != nil {
		return SolveResult{}, errors.Wrap(err, "")
	}

	res := SolveResult{
		Energy:      energy,
		State:       state,
		Occupancies: [2][]float64{diagonal(rdms.DM1Up), diagonal(rdms.DM1Down)},
	}
	return res, nil
}

func checkIntegrals(hcore *mat.Dense, eri *rotation.Tensor4) (int, error) {
	norb, cols := hcore.Dims()
	if norb != cols {
		return -1, errors.Errorf("hcore is %dx%d, not square", norb, cols)
	}
	if eri.N() != norb {
		return -1, errors.Errorf("eri axis length %d, expected %d", eri.N(), norb)
	}
	return norb, nil
}
