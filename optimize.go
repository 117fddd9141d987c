package sqd

import (
	"log"
	"math/bits"
	"slices"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/joannaqw/sqd/rotation"
)

// Options are options for OptimizeOrbitals.
type Options struct {
	openShell    bool
	numIters     int
	numStepsGrad int
	learningRate float64
	momentum     float64
	solver       SolverOptions
}

// NewOptions returns the default orbital optimization options.
func NewOptions() Options {
	opt := Options{}
	opt.numIters = 10
	opt.numStepsGrad = 10_000
	opt.learningRate = 0.01
	opt.momentum = 0.9
	opt.solver = NewSolverOptions()
	return opt
}

// OpenShell keeps the spin-up and spin-down configuration sets distinct
// instead of replacing both with their union.
func (o Options) OpenShell(b bool) Options {
	o.openShell = b
	return o
}

// NumIters sets the number of orbital optimization iterations.
func (o Options) NumIters(n int) Options {
	o.numIters = n
	return o
}

// NumStepsGrad sets the number of gradient descent steps per iteration.
func (o Options) NumStepsGrad(n int) Options {
	o.numStepsGrad = n
	return o
}

// LearningRate sets the gradient descent learning rate.
func (o Options) LearningRate(lr float64) Options {
	o.learningRate = lr
	return o
}

// Momentum sets the gradient descent momentum.
func (o Options) Momentum(m float64) Options {
	o.momentum = m
	return o
}

// Solver sets the options forwarded to the CI solver.
func (o Options) Solver(so SolverOptions) Options {
	o.solver = so
	return o
}

// OptimizeResult is the outcome of an orbital optimization run.
type OptimizeResult struct {
	// Energy is the ground state energy found during the last iteration.
	Energy float64
	// KFlat are the optimized rotation parameters.
	KFlat []float64
	// Occupancies are the average orbital occupancies of the last
	// iteration, per spin sector.
	Occupancies [2][]float64
}

// OptimizeOrbitals optimizes the orbital basis rotation so that the fixed
// configuration subspace yields a minimal ground state energy. Every
// iteration rotates the original integrals by the current parameters,
// diagonalizes over the subspace, and updates the parameters by gradient
// descent against the reduced density matrices just obtained. The subspace
// is frozen for the whole run and the iteration count is the only budget;
// there is no early stopping.
//
// eri must be in chemist index ordering. kFlat holds the strict upper
// triangle of the antisymmetric generator in row-major order and is not
// mutated; the optimized copy is returned in the result.
func OptimizeOrbitals(solver Solver, bm [][]bool, hcore *mat.Dense, eri *rotation.Tensor4, kFlat []float64, options ...Options) (OptimizeResult, error) {
	opt := NewOptions()
	if len(options) > 0 {
		opt = options[0]
	}

	cs, err := BitstringMatrixToCIStrs(bm, opt.openShell)
	if err != nil {
		return OptimizeResult{}, errors.Wrap(err, "")
	}
	return optimizeCIStrs(solver, cs, hcore, eri, kFlat, opt)
}

// OptimizeOrbitalsCIStrs is like OptimizeOrbitals but takes the determinant
// lists directly, bypassing bit decoding.
//
// Deprecated: pass a bitstring matrix to OptimizeOrbitals instead.
func OptimizeOrbitalsCIStrs(solver Solver, ciStrs CIStrs, hcore *mat.Dense, eri *rotation.Tensor4, kFlat []float64, options ...Options) (OptimizeResult, error) {
	log.Printf("warning: passing determinants as integers is deprecated, pass a bitstring matrix instead")
	opt := NewOptions()
	if len(options) > 0 {
		opt = options[0]
	}
	return optimizeCIStrs(solver, ciStrs, hcore, eri, kFlat, opt)
}

func optimizeCIStrs(solver Solver, cs CIStrs, hcore *mat.Dense, eri *rotation.Tensor4, kFlat []float64, opt Options) (OptimizeResult, error) {
	norb, err := checkIntegrals(hcore, eri)
	if err != nil {
		return OptimizeResult{}, errors.Wrap(err, "")
	}
	if len(kFlat) != rotation.NumParams(norb) {
		err := &rotation.DimensionError{What: "rotation parameters", Expected: rotation.NumParams(norb), Got: len(kFlat)}
		return OptimizeResult{}, errors.WithStack(err)
	}
	if opt.numIters < 1 {
		return OptimizeResult{}, errors.Errorf("%d iterations", opt.numIters)
	}
	if err := CheckCIStrs(&cs); err != nil {
		return OptimizeResult{}, errors.Wrap(err, "")
	}
	nelec := [2]int{bits.OnesCount64(cs.Up[0]), bits.OnesCount64(cs.Down[0])}

	k := slices.Clone(kFlat)
	eriPhys := eri.Transpose([4]int{0, 2, 3, 1})
	var energy float64
	var rdms RDMs
	for iter := 0; iter < opt.numIters; iter++ {
		// Rotate the original integrals by the current parameters.
		hrot, erot, err := rotation.Integrals(hcore, eriPhys, k)
		if err != nil {
			return OptimizeResult{}, errors.Wrap(err, "")
		}
		erotChem := erot.Transpose([4]int{0, 3, 1, 2})

		// Solve for the ground state in the rotated basis.
		var state *SCIState
		energy, state, err = solver.Diagonalize(hrot, erotChem, norb, nelec, cs, opt.solver)
		if err != nil {
			return OptimizeResult{}, errors.Wrapf(err, "iteration %d", iter)
		}
		rdms, err = solver.RDMs(state, norb, nelec)
		if err != nil {
			return OptimizeResult{}, errors.Wrapf(err, "iteration %d", iter)
		}

		// Descend on the rotation parameters against the fresh density
		// matrices. The energy functional rotates the original, unrotated
		// integrals, so the parameters keep accumulating across iterations.
		dm2Phys := rdms.DM2.Transpose([4]int{0, 2, 3, 1})
		if err := rotation.Descend(k, opt.learningRate, opt.momentum, opt.numStepsGrad, rdms.DM1, dm2Phys, hcore, eriPhys); err != nil {
			return OptimizeResult{}, errors.Wrapf(err, "iteration %d", iter)
		}
	}

	res := OptimizeResult{
		Energy:      energy,
		KFlat:       k,
		Occupancies: [2][]float64{diagonal(rdms.DM1Up), diagonal(rdms.DM1Down)},
	}
	return res, nil
}
