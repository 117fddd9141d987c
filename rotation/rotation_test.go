package rotation

import (
	"fmt"
	"math"
	"testing"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

func TestAntisymmetric(t *testing.T) {
	t.Parallel()
	k, err := Antisymmetric([]float64{1, 2, 3}, 3)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	expected := mat.NewDense(3, 3, []float64{
		0, 1, 2,
		-1, 0, 3,
		-2, -3, 0,
	})
	if !mat.Equal(k, expected) {
		t.Fatalf("%v, expected %v", mat.Formatted(k), mat.Formatted(expected))
	}
}

func TestAntisymmetricDimension(t *testing.T) {
	t.Parallel()
	_, err := Antisymmetric([]float64{1, 2}, 3)
	var dimErr *DimensionError
	if !errors.As(err, &dimErr) {
		t.Fatalf("%+v", err)
	}
	if dimErr.Expected != 3 || dimErr.Got != 2 {
		t.Fatalf("%#v", dimErr)
	}
}

func TestOrthogonal(t *testing.T) {
	t.Parallel()
	for _, n := range []int{2, 3, 5, 8} {
		n := n
		t.Run(fmt.Sprintf("%d", n), func(t *testing.T) {
			t.Parallel()
			kFlat := make([]float64, NumParams(n))
			rng := newTestRand(uint64(n))
			for i := range kFlat {
				kFlat[i] = rng.float() - 0.5
			}

			u, err := Orthogonal(kFlat, n)
			if err != nil {
				t.Fatalf("%+v", err)
			}
			var utu mat.Dense
			utu.Mul(u.T(), u)
			for i := 0; i < n; i++ {
				for j := 0; j < n; j++ {
					expected := 0.0
					if i == j {
						expected = 1
					}
					if math.Abs(utu.At(i, j)-expected) > 1e-12 {
						t.Fatalf("%d %d %v", i, j, mat.Formatted(&utu))
					}
				}
			}
		})
	}
}

func TestIntegralsIdentity(t *testing.T) {
	t.Parallel()
	n := 3
	hcore := mat.NewDense(n, n, []float64{
		1, 0.1, 0,
		0.1, 2, 0.2,
		0, 0.2, 3,
	})
	eri := NewTensor4(n)
	eri.Set(0, 0, 1, 1, 0.5)
	eri.Set(2, 1, 0, 2, -0.25)

	hrot, erot, err := Integrals(hcore, eri, make([]float64, NumParams(n)))
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if !mat.Equal(hrot, hcore) {
		t.Fatalf("%v, expected %v", mat.Formatted(hrot), mat.Formatted(hcore))
	}
	if !erot.Equal(eri) {
		t.Fatalf("rotated eri differs from eri under zero parameters")
	}
}

func TestTwoBodyPermutation(t *testing.T) {
	t.Parallel()
	// A permutation is orthogonal, so rotating by it relabels all indices.
	n := 2
	u := mat.NewDense(n, n, []float64{
		0, 1,
		1, 0,
	})
	eri := NewTensor4(n)
	v := 1.0
	for p := 0; p < n; p++ {
		for q := 0; q < n; q++ {
			for r := 0; r < n; r++ {
				for s := 0; s < n; s++ {
					eri.Set(p, q, r, s, v)
					v++
				}
			}
		}
	}

	erot := TwoBody(eri, u)
	for p := 0; p < n; p++ {
		for q := 0; q < n; q++ {
			for r := 0; r < n; r++ {
				for s := 0; s < n; s++ {
					expected := eri.At(1-p, 1-q, 1-r, 1-s)
					if erot.At(p, q, r, s) != expected {
						t.Fatalf("%d%d%d%d %f, expected %f", p, q, r, s, erot.At(p, q, r, s), expected)
					}
				}
			}
		}
	}
}

func TestTensor4Transpose(t *testing.T) {
	t.Parallel()
	n := 3
	a := NewTensor4(n)
	rng := newTestRand(7)
	for p := 0; p < n; p++ {
		for q := 0; q < n; q++ {
			for r := 0; r < n; r++ {
				for s := 0; s < n; s++ {
					a.Set(p, q, r, s, rng.float())
				}
			}
		}
	}

	// Chemist to physicist ordering and back is the identity.
	phys := a.Transpose([4]int{0, 2, 3, 1})
	chem := phys.Transpose([4]int{0, 3, 1, 2})
	if !chem.Equal(a) {
		t.Fatalf("transpose round trip differs")
	}

	// Spot check the relabeling: phys[i,j,k,l] = a[i,l,j,k].
	if phys.At(0, 1, 2, 1) != a.At(0, 1, 1, 2) {
		t.Fatalf("%f %f", phys.At(0, 1, 2, 1), a.At(0, 1, 1, 2))
	}
}

// testRand is a splitmix64 generator for reproducible test data.
type testRand struct {
	s uint64
}

func newTestRand(seed uint64) *testRand {
	return &testRand{s: seed}
}

func (r *testRand) next() uint64 {
	r.s += 0x9e3779b97f4a7c15
	z := r.s
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

func (r *testRand) float() float64 {
	return float64(r.next()>>11) / float64(1<<53)
}
