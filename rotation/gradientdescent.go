package rotation

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Energy evaluates the orbital-rotation energy functional
//
//	E(k) = sum(dm1 .* rot1(hcore, k)) + 1/2 sum(dm2 .* rot2(eri, k))
//
// where rot1 and rot2 rotate the unrotated integrals by the orthogonal
// transform generated by kFlat. dm1 and dm2 are constants with respect to k.
// dm2 and eri must share the same index ordering.
func Energy(dm1 *mat.Dense, dm2 *Tensor4, hcore *mat.Dense, eri *Tensor4, kFlat []float64) (float64, error) {
	hrot, erot, err := Integrals(hcore, eri, kFlat)
	if err != nil {
		return 0, err
	}

	n, _ := hcore.Dims()
	var e float64
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			e += dm1.At(i, j) * hrot.At(i, j)
		}
	}
	e += Dot(dm2, erot) / 2
	return e, nil
}

// Gradient computes the exact derivative of the energy functional with
// respect to kFlat by reverse-mode differentiation, writing it into grad.
//
// The adjoints of the tensor contractions are accumulated by hand, and the
// adjoint of the matrix exponential is the Frechet derivative evaluated via
// the block identity: L(K^T, Ubar) is the upper-right block of
// exp([[K^T, Ubar], [0, K^T]]).
func Gradient(grad []float64, dm1 *mat.Dense, dm2 *Tensor4, hcore *mat.Dense, eri *Tensor4, kFlat []float64) error {
	n, _ := hcore.Dims()
	if len(grad) != len(kFlat) {
		return &DimensionError{What: "gradient buffer", Expected: len(kFlat), Got: len(grad)}
	}
	u, err := Orthogonal(kFlat, n)
	if err != nil {
		return err
	}

	// Forward pass through the two-body contraction chain, keeping the
	// intermediates needed by the reverse pass.
	a1 := contractAxis(eri, u, 0)
	a2 := contractAxis(a1, u, 1)
	a3 := contractAxis(a2, u, 2)

	// Reverse pass. The seed for the rotated two-body tensor is dm2/2.
	erotBar := dm2.Clone()
	for i := range erotBar.data {
		erotBar.data[i] /= 2
	}

	uBar := mat.NewDense(n, n, nil)
	ut := mat.DenseCopyOf(u.T())

	outerContract(uBar, a3, erotBar, 3)
	a3Bar := contractAxis(erotBar, ut, 3)
	outerContract(uBar, a2, a3Bar, 2)
	a2Bar := contractAxis(a3Bar, ut, 2)
	outerContract(uBar, a1, a2Bar, 1)
	a1Bar := contractAxis(a2Bar, ut, 1)
	outerContract(uBar, eri, a1Bar, 0)

	// One-body adjoint: d/dU sum(dm1 .* U^T h U) = h U dm1^T + h^T U dm1.
	var hu, t mat.Dense
	hu.Mul(hcore, u)
	t.Mul(&hu, dm1.T())
	uBar.Add(uBar, &t)
	hu.Mul(hcore.T(), u)
	t.Mul(&hu, dm1)
	uBar.Add(uBar, &t)

	kBar := expmAdjoint(uBar, kFlat, n)

	// Project onto the strict upper triangle: K[i,j] = k_m, K[j,i] = -k_m.
	m := 0
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			grad[m] = kBar.At(i, j) - kBar.At(j, i)
			m++
		}
	}
	return nil
}

// expmAdjoint returns the adjoint of U = exp(K) applied to uBar, that is
// the Kbar with <Kbar, dK> = <uBar, dU> for all perturbations dK.
func expmAdjoint(uBar *mat.Dense, kFlat []float64, n int) *mat.Dense {
	k, err := Antisymmetric(kFlat, n)
	if err != nil {
		panic(fmt.Sprintf("%+v", err))
	}

	block := mat.NewDense(2*n, 2*n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			kt := k.At(j, i)
			block.Set(i, j, kt)
			block.Set(n+i, n+j, kt)
			block.Set(i, n+j, uBar.At(i, j))
		}
	}

	var e mat.Dense
	e.Exp(block)

	kBar := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			kBar.Set(i, j, e.At(i, n+j))
		}
	}
	return kBar
}

// Descend runs classical momentum gradient descent on kFlat in place:
//
//	velocity = learningRate*grad + momentum*velocity
//	kFlat -= velocity
//
// for numSteps steps. The learning rate and momentum are fixed for the whole
// run; there is no convergence check, the step count is the budget. Callers
// must bound numSteps and learningRate, since a diverging kFlat overflows the
// matrix exponential without any explicit detection here.
func Descend(kFlat []float64, learningRate, momentum float64, numSteps int, dm1 *mat.Dense, dm2 *Tensor4, hcore *mat.Dense, eri *Tensor4) error {
	grad := make([]float64, len(kFlat))
	velocity := make([]float64, len(kFlat))
	for step := 0; step < numSteps; step++ {
		if err := Gradient(grad, dm1, dm2, hcore, eri, kFlat); err != nil {
			return err
		}
		for i := range kFlat {
			velocity[i] = learningRate*grad[i] + momentum*velocity[i]
			kFlat[i] -= velocity[i]
		}
	}
	return nil
}
