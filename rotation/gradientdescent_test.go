package rotation

import (
	"flag"
	"log"
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

// testSystem returns deterministic dm1, dm2, hcore and eri for n orbitals.
func testSystem(n int, seed uint64) (*mat.Dense, *Tensor4, *mat.Dense, *Tensor4) {
	rng := newTestRand(seed)

	dm1 := mat.NewDense(n, n, nil)
	hcore := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			dm1.Set(i, j, rng.float()-0.5)
			hcore.Set(i, j, rng.float()-0.5)
		}
	}

	dm2 := NewTensor4(n)
	eri := NewTensor4(n)
	for p := 0; p < n; p++ {
		for q := 0; q < n; q++ {
			for r := 0; r < n; r++ {
				for s := 0; s < n; s++ {
					dm2.Set(p, q, r, s, rng.float()-0.5)
					eri.Set(p, q, r, s, rng.float()-0.5)
				}
			}
		}
	}
	return dm1, dm2, hcore, eri
}

func TestEnergyUnrotated(t *testing.T) {
	t.Parallel()
	n := 3
	dm1, dm2, hcore, eri := testSystem(n, 1)

	e, err := Energy(dm1, dm2, hcore, eri, make([]float64, NumParams(n)))
	if err != nil {
		t.Fatalf("%+v", err)
	}

	var expected float64
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			expected += dm1.At(i, j) * hcore.At(i, j)
		}
	}
	expected += Dot(dm2, eri) / 2
	if e != expected {
		t.Fatalf("%f, expected %f", e, expected)
	}
}

func TestGradient(t *testing.T) {
	t.Parallel()
	n := 3
	dm1, dm2, hcore, eri := testSystem(n, 2)

	kFlat := []float64{0.1, -0.2, 0.05}
	grad := make([]float64, len(kFlat))
	if err := Gradient(grad, dm1, dm2, hcore, eri, kFlat); err != nil {
		t.Fatalf("%+v", err)
	}

	// Compare against central finite differences.
	const h = 1e-5
	for m := range kFlat {
		kp := append([]float64{}, kFlat...)
		km := append([]float64{}, kFlat...)
		kp[m] += h
		km[m] -= h
		ep, err := Energy(dm1, dm2, hcore, eri, kp)
		if err != nil {
			t.Fatalf("%+v", err)
		}
		em, err := Energy(dm1, dm2, hcore, eri, km)
		if err != nil {
			t.Fatalf("%+v", err)
		}
		numeric := (ep - em) / (2 * h)
		if math.Abs(grad[m]-numeric) > 1e-6 {
			t.Fatalf("%d %.12f, expected %.12f", m, grad[m], numeric)
		}
	}
}

func TestDescendDeterminism(t *testing.T) {
	t.Parallel()
	n := 3
	dm1, dm2, hcore, eri := testSystem(n, 3)

	k1 := []float64{0.02, -0.01, 0.03}
	k2 := append([]float64{}, k1...)
	if err := Descend(k1, 0.01, 0.9, 20, dm1, dm2, hcore, eri); err != nil {
		t.Fatalf("%+v", err)
	}
	if err := Descend(k2, 0.01, 0.9, 20, dm1, dm2, hcore, eri); err != nil {
		t.Fatalf("%+v", err)
	}
	for i := range k1 {
		if k1[i] != k2[i] {
			t.Fatalf("%d %v %v", i, k1, k2)
		}
	}
}

func TestDescendZeroRate(t *testing.T) {
	t.Parallel()
	n := 3
	dm1, dm2, hcore, eri := testSystem(n, 4)

	kFlat := []float64{0.3, -0.4, 0.1}
	orig := append([]float64{}, kFlat...)
	if err := Descend(kFlat, 0, 0.9, 100, dm1, dm2, hcore, eri); err != nil {
		t.Fatalf("%+v", err)
	}
	for i := range kFlat {
		if kFlat[i] != orig[i] {
			t.Fatalf("%d %v %v", i, kFlat, orig)
		}
	}
}

func TestDescendDecreasesEnergy(t *testing.T) {
	t.Parallel()
	n := 3
	dm1, dm2, hcore, eri := testSystem(n, 5)

	kFlat := []float64{0.1, 0.1, 0.1}
	before, err := Energy(dm1, dm2, hcore, eri, kFlat)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if err := Descend(kFlat, 1e-3, 0, 50, dm1, dm2, hcore, eri); err != nil {
		t.Fatalf("%+v", err)
	}
	after, err := Energy(dm1, dm2, hcore, eri, kFlat)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if after >= before {
		t.Fatalf("%f %f", after, before)
	}
}

func TestMain(m *testing.M) {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds | log.Llongfile | log.LstdFlags)

	m.Run()
}
