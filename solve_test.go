package sqd_test

import (
	"math"
	"testing"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/joannaqw/sqd"
	"github.com/joannaqw/sqd/exactdiag"
	"github.com/joannaqw/sqd/rotation"
)

// twoOrbitalSystem is a two orbital system with one electron per spin and
// no electron repulsion. Orbital 0 costs 1, orbital 1 costs 2, so the
// ground state doubly occupies orbital 0 at energy 2.
func twoOrbitalSystem() (*mat.Dense, *rotation.Tensor4, [][]bool) {
	hcore := mat.NewDense(2, 2, []float64{1, 0, 0, 2})
	eri := rotation.NewTensor4(2)
	bm := [][]bool{
		{false, true, false, true},
		{true, false, true, false},
	}
	return hcore, eri, bm
}

func TestSolve(t *testing.T) {
	t.Parallel()
	hcore, eri, bm := twoOrbitalSystem()
	res, err := sqd.Solve(exactdiag.Solver{}, bm, hcore, eri)
	if err != nil {
		t.Fatalf("%+v", err)
	}

	if math.Abs(res.Energy-2) > 1e-12 {
		t.Fatalf("%f", res.Energy)
	}
	for sector, occ := range res.Occupancies {
		want := []float64{1, 0}
		for i, o := range occ {
			if math.Abs(o-want[i]) > 1e-12 {
				t.Fatalf("sector %d %v", sector, occ)
			}
		}
	}

	// The ground state is the determinant pair occupying orbital 0,
	// which is 0b10 at index 1 of both sorted sectors.
	nu, nd := len(res.State.UpStrs), len(res.State.DownStrs)
	if !(nu == 2 && nd == 2) {
		t.Fatalf("%d %d", nu, nd)
	}
	if v := res.State.Amplitudes.At(1, 1); math.Abs(v-1) > 1e-12 {
		t.Fatalf("%f", v)
	}
}

func TestSolveCIStrs(t *testing.T) {
	t.Parallel()
	hcore, eri, _ := twoOrbitalSystem()
	cs := sqd.CIStrs{Up: []uint64{0b01, 0b10}, Down: []uint64{0b01, 0b10}}
	res, err := sqd.SolveCIStrs(exactdiag.Solver{}, cs, hcore, eri)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if math.Abs(res.Energy-2) > 1e-12 {
		t.Fatalf("%f", res.Energy)
	}
}

func TestSolveSubspace(t *testing.T) {
	t.Parallel()
	hcore, eri, _ := twoOrbitalSystem()
	// The sampled batch only reaches the excited determinant, the window
	// of both orbitals restores the full subspace.
	bm := [][]bool{{false, true, false, true}}

	res, err := sqd.Solve(exactdiag.Solver{}, bm, hcore, eri)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if math.Abs(res.Energy-4) > 1e-12 {
		t.Fatalf("%f", res.Energy)
	}

	opt := sqd.NewSolveOptions().Subspace(2, 1, 1)
	res, err = sqd.Solve(exactdiag.Solver{}, bm, hcore, eri, opt)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if math.Abs(res.Energy-2) > 1e-12 {
		t.Fatalf("%f", res.Energy)
	}
}

func TestOptimizeOrbitals(t *testing.T) {
	t.Parallel()
	hcore, eri, bm := twoOrbitalSystem()

	// A zero learning rate leaves the parameters untouched.
	opt := sqd.NewOptions().NumIters(2).NumStepsGrad(10).LearningRate(0)
	res, err := sqd.OptimizeOrbitals(exactdiag.Solver{}, bm, hcore, eri, []float64{0}, opt)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if math.Abs(res.Energy-2) > 1e-12 {
		t.Fatalf("%f", res.Energy)
	}
	if res.KFlat[0] != 0 {
		t.Fatalf("%v", res.KFlat)
	}

	// The subspace spans all states of one electron per spin, so the
	// ground energy is invariant under any orbital rotation.
	res, err = sqd.OptimizeOrbitals(exactdiag.Solver{}, bm, hcore, eri, []float64{0.3}, opt)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if math.Abs(res.Energy-2) > 1e-12 {
		t.Fatalf("%f", res.Energy)
	}
}

func TestOptimizeOrbitalsDescends(t *testing.T) {
	t.Parallel()
	hcore, eri, _ := twoOrbitalSystem()
	// Only the determinant occupying orbital 1 is sampled, at energy 4.
	// Rotating the orbitals relabels the occupied one towards orbital 0,
	// recovering the true ground energy 2 within the one point subspace.
	bm := [][]bool{{false, true, false, true}}

	opt := sqd.NewOptions().OpenShell(true).NumIters(2).NumStepsGrad(200).LearningRate(0.1).Momentum(0)
	res, err := sqd.OptimizeOrbitals(exactdiag.Solver{}, bm, hcore, eri, []float64{0.2}, opt)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if math.Abs(res.Energy-2) > 1e-6 {
		t.Fatalf("%f", res.Energy)
	}
}

func TestOptimizeOrbitalsInvalid(t *testing.T) {
	t.Parallel()
	hcore, eri, bm := twoOrbitalSystem()

	_, err := sqd.OptimizeOrbitals(exactdiag.Solver{}, bm, hcore, eri, []float64{0, 0})
	var dimErr *rotation.DimensionError
	if !errors.As(err, &dimErr) {
		t.Fatalf("%+v", err)
	}
	if !(dimErr.Expected == 1 && dimErr.Got == 2) {
		t.Fatalf("%#v", dimErr)
	}

	opt := sqd.NewOptions().NumIters(0)
	if _, err := sqd.OptimizeOrbitals(exactdiag.Solver{}, bm, hcore, eri, []float64{0}, opt); err == nil {
		t.Fatalf("expected error")
	}
}

func TestOptimizeOrbitalsCIStrs(t *testing.T) {
	t.Parallel()
	hcore, eri, _ := twoOrbitalSystem()
	cs := sqd.CIStrs{Up: []uint64{0b01, 0b10}, Down: []uint64{0b01, 0b10}}
	opt := sqd.NewOptions().NumIters(1).NumStepsGrad(1).LearningRate(0)
	res, err := sqd.OptimizeOrbitalsCIStrs(exactdiag.Solver{}, cs, hcore, eri, []float64{0}, opt)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if math.Abs(res.Energy-2) > 1e-12 {
		t.Fatalf("%f", res.Energy)
	}
}
