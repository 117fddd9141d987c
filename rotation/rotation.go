package rotation

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// DimensionError reports a mismatch between an expected and an actual size.
type DimensionError struct {
	What     string
	Expected int
	Got      int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("%s: expected %d, got %d", e.What, e.Expected, e.Got)
}

// NumParams returns the number of rotation parameters for n orbitals,
// which is the size of the strict upper triangle of an n by n matrix.
func NumParams(n int) int {
	return n * (n - 1) / 2
}

// Antisymmetric places kFlat into the strict upper triangle of an n by n
// matrix in row-major order, and its negation into the strict lower triangle.
// The result satisfies K[i,j] = -K[j,i] with a zero diagonal by construction.
func Antisymmetric(kFlat []float64, n int) (*mat.Dense, error) {
	if len(kFlat) != NumParams(n) {
		return nil, &DimensionError{What: "rotation parameters", Expected: NumParams(n), Got: len(kFlat)}
	}

	k := mat.NewDense(n, n, nil)
	m := 0
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			k.Set(i, j, kFlat[m])
			k.Set(j, i, -kFlat[m])
			m++
		}
	}
	return k, nil
}

// Orthogonal returns U = exp(K) for the antisymmetric generator built from
// kFlat. The exponential of an antisymmetric matrix is orthogonal, so no
// separate orthogonality enforcement is needed.
func Orthogonal(kFlat []float64, n int) (*mat.Dense, error) {
	k, err := Antisymmetric(kFlat, n)
	if err != nil {
		return nil, err
	}
	var u mat.Dense
	u.Exp(k)
	return &u, nil
}

// OneBody returns U^T hcore U.
func OneBody(hcore, u *mat.Dense) *mat.Dense {
	var hu, rot mat.Dense
	hu.Mul(hcore, u)
	rot.Mul(u.T(), &hu)
	return &rot
}

// TwoBody contracts all four indices of eri with U:
// out[i,j,k,l] = sum_pqrs eri[p,q,r,s] U[p,i] U[q,j] U[r,k] U[s,l].
// The contraction does not care whether eri is in chemist or physicist index
// ordering; callers must keep the ordering consistent with whatever is
// contracted against the result downstream.
func TwoBody(eri *Tensor4, u *mat.Dense) *Tensor4 {
	out := eri
	for axis := 0; axis < 4; axis++ {
		out = contractAxis(out, u, axis)
	}
	return out
}

// Integrals rotates the one- and two-body integrals by the orthogonal
// transform generated by kFlat. The inputs are never mutated; rotated copies
// are returned. Rotation by all-zero parameters is the identity and returns
// the integrals unchanged.
func Integrals(hcore *mat.Dense, eri *Tensor4, kFlat []float64) (*mat.Dense, *Tensor4, error) {
	n, _ := hcore.Dims()
	if allZero(kFlat) && len(kFlat) == NumParams(n) {
		return mat.DenseCopyOf(hcore), eri.Clone(), nil
	}

	u, err := Orthogonal(kFlat, n)
	if err != nil {
		return nil, nil, err
	}
	return OneBody(hcore, u), TwoBody(eri, u), nil
}

func allZero(xs []float64) bool {
	for _, x := range xs {
		if x != 0 {
			return false
		}
	}
	return true
}
