// Package exactdiag is a reference eigensolver that builds the projected
// Hamiltonian densely over the determinant subspace and factorizes it
// directly. It is meant for small systems and tests; production runs should
// plug in an external selected CI program instead.
package exactdiag

import (
	"log"
	"math/bits"
	"slices"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/joannaqw/sqd"
	"github.com/joannaqw/sqd/rotation"
)

// Solver implements sqd.Solver by dense diagonalization.
type Solver struct{}

var _ sqd.Solver = Solver{}

// term is a determinant pair with a coefficient, produced by applying
// excitation operators to a basis state.
type term struct {
	up   uint64
	down uint64
	v    float64
}

// Diagonalize builds the Hamiltonian over the product basis of the two
// determinant lists and returns its minimal eigenpair. The factorization is
// direct, so SolverOptions.MaxIterations does not apply.
func (Solver) Diagonalize(hcore *mat.Dense, eri *rotation.Tensor4, norb int, nelec [2]int, ciStrs sqd.CIStrs, opt sqd.SolverOptions) (float64, *sqd.SCIState, error) {
	if opt.SpinSquared != nil {
		return 0, nil, errors.Errorf("spin constraint unsupported")
	}
	if err := checkSector(ciStrs.Up, nelec[0]); err != nil {
		return 0, nil, errors.Wrap(err, "up")
	}
	if err := checkSector(ciStrs.Down, nelec[1]); err != nil {
		return 0, nil, errors.Wrap(err, "down")
	}

	nu, nd := len(ciStrs.Up), len(ciStrs.Down)
	dim := nu * nd
	if opt.Verbose > 0 {
		log.Printf("diagonalizing %d x %d", dim, dim)
	}

	data := make([]float64, dim*dim)
	col := make([]float64, dim)
	for iu := 0; iu < nu; iu++ {
		for id := 0; id < nd; id++ {
			for i := range col {
				col[i] = 0
			}
			base := term{up: ciStrs.Up[iu], down: ciStrs.Down[id], v: 1}
			applyHamiltonian(col, hcore, eri, norb, ciStrs, base)

			k := iu*nd + id
			for i, v := range col {
				data[i*dim+k] = v
			}
		}
	}

	var eig mat.EigenSym
	if ok := eig.Factorize(mat.NewSymDense(dim, data), true); !ok {
		return 0, nil, errors.Errorf("eigendecomposition failed")
	}
	energy := eig.Values(nil)[0]

	var vecs mat.Dense
	eig.VectorsTo(&vecs)
	amps := mat.NewDense(nu, nd, nil)
	var maxAbs, maxV float64
	for iu := 0; iu < nu; iu++ {
		for id := 0; id < nd; id++ {
			v := vecs.At(iu*nd+id, 0)
			amps.Set(iu, id, v)
			if a := v * v; a > maxAbs {
				maxAbs, maxV = a, v
			}
		}
	}
	// The eigenvector sign is arbitrary, fix it for determinism.
	if maxV < 0 {
		amps.Scale(-1, amps)
	}

	state, err := sqd.NewSCIState(amps, slices.Clone(ciStrs.Up), slices.Clone(ciStrs.Down))
	if err != nil {
		return 0, nil, errors.Wrap(err, "")
	}
	return energy, state, nil
}

// RDMs computes the one- and two-body reduced density matrices of a state,
// exactly over its subspace. The two-body matrix is in chemist ordering.
func (Solver) RDMs(state *sqd.SCIState, norb int, nelec [2]int) (sqd.RDMs, error) {
	nu, nd := len(state.UpStrs), len(state.DownStrs)
	if rows, cols := state.Amplitudes.Dims(); rows != nu || cols != nd {
		return sqd.RDMs{}, errors.Errorf("amplitudes %dx%d, determinants %dx%d", rows, cols, nu, nd)
	}
	cs := sqd.CIStrs{Up: state.UpStrs, Down: state.DownStrs}

	dm1Up := mat.NewDense(norb, norb, nil)
	dm1Down := mat.NewDense(norb, norb, nil)
	for iu := 0; iu < nu; iu++ {
		for id := 0; id < nd; id++ {
			v0 := state.Amplitudes.At(iu, id)
			if v0 == 0 {
				continue
			}
			for p := 0; p < norb; p++ {
				for q := 0; q < norb; q++ {
					if up, sign, ok := excite(cs.Up[iu], p, q, norb); ok {
						if j, found := slices.BinarySearch(cs.Up, up); found {
							dm1Up.Set(p, q, dm1Up.At(p, q)+sign*state.Amplitudes.At(j, id)*v0)
						}
					}
					if down, sign, ok := excite(cs.Down[id], p, q, norb); ok {
						if j, found := slices.BinarySearch(cs.Down, down); found {
							dm1Down.Set(p, q, dm1Down.At(p, q)+sign*state.Amplitudes.At(iu, j)*v0)
						}
					}
				}
			}
		}
	}
	dm1 := mat.NewDense(norb, norb, nil)
	dm1.Add(dm1Up, dm1Down)

	dm2 := rotation.NewTensor4(norb)
	for iu := 0; iu < nu; iu++ {
		for id := 0; id < nd; id++ {
			v0 := state.Amplitudes.At(iu, id)
			if v0 == 0 {
				continue
			}
			base := term{up: cs.Up[iu], down: cs.Down[id], v: v0}
			for r := 0; r < norb; r++ {
				for s := 0; s < norb; s++ {
					for _, t := range applyExcitation(r, s, base, norb) {
						for p := 0; p < norb; p++ {
							for q := 0; q < norb; q++ {
								for _, t2 := range applyExcitation(p, q, t, norb) {
									amp, ok := lookup(cs, state.Amplitudes, t2)
									if !ok {
										continue
									}
									dm2.Set(p, q, r, s, dm2.At(p, q, r, s)+amp*t2.v)
								}
							}
						}
					}
				}
			}
		}
	}
	// gamma_pqrs = <E_pq E_rs> - delta_qr <E_ps>.
	for p := 0; p < norb; p++ {
		for q := 0; q < norb; q++ {
			for s := 0; s < norb; s++ {
				dm2.Set(p, q, q, s, dm2.At(p, q, q, s)-dm1.At(p, s))
			}
		}
	}

	return sqd.RDMs{DM1: dm1, DM1Up: dm1Up, DM1Down: dm1Down, DM2: dm2}, nil
}

// applyHamiltonian accumulates H applied to base into col, indexed over the
// subspace. Excursions outside the subspace are allowed in intermediate
// operator applications, only the final determinant pair is projected.
func applyHamiltonian(col []float64, hcore *mat.Dense, eri *rotation.Tensor4, norb int, cs sqd.CIStrs, base term) {
	nd := len(cs.Down)
	add := func(t term, v float64) {
		iu, found := slices.BinarySearch(cs.Up, t.up)
		if !found {
			return
		}
		id, found := slices.BinarySearch(cs.Down, t.down)
		if !found {
			return
		}
		col[iu*nd+id] += v
	}

	for p := 0; p < norb; p++ {
		for q := 0; q < norb; q++ {
			h := hcore.At(p, q)
			if h == 0 {
				continue
			}
			for _, t := range applyExcitation(p, q, base, norb) {
				add(t, h*t.v)
			}
		}
	}

	for r := 0; r < norb; r++ {
		for s := 0; s < norb; s++ {
			for _, t := range applyExcitation(r, s, base, norb) {
				for p := 0; p < norb; p++ {
					for q := 0; q < norb; q++ {
						g := eri.At(p, q, r, s)
						if g == 0 {
							continue
						}
						for _, t2 := range applyExcitation(p, q, t, norb) {
							add(t2, 0.5*g*t2.v)
						}
					}
				}
			}
		}
	}
	// The contraction over coinciding inner indices.
	for p := 0; p < norb; p++ {
		for s := 0; s < norb; s++ {
			var g float64
			for q := 0; q < norb; q++ {
				g += eri.At(p, q, q, s)
			}
			if g == 0 {
				continue
			}
			for _, t := range applyExcitation(p, s, base, norb) {
				add(t, -0.5*g*t.v)
			}
		}
	}
}

// applyExcitation applies the spin-summed operator moving an electron from
// orbital q to orbital p, yielding up to two determinant pairs.
func applyExcitation(p, q int, t term, norb int) []term {
	out := make([]term, 0, 2)
	if up, sign, ok := excite(t.up, p, q, norb); ok {
		out = append(out, term{up: up, down: t.down, v: sign * t.v})
	}
	if down, sign, ok := excite(t.down, p, q, norb); ok {
		out = append(out, term{up: t.up, down: down, v: sign * t.v})
	}
	return out
}

// excite annihilates orbital q and creates orbital p on a single sector
// determinant, returning the fermionic sign.
func excite(det uint64, p, q, norb int) (uint64, float64, bool) {
	qb := uint64(1) << (norb - 1 - q)
	if det&qb == 0 {
		return 0, 0, false
	}
	d := det &^ qb
	pb := uint64(1) << (norb - 1 - p)
	if d&pb != 0 {
		return 0, 0, false
	}
	sign := 1.0
	if (onesBelow(det, q, norb)+onesBelow(d, p, norb))%2 == 1 {
		sign = -1
	}
	return d | pb, sign, true
}

// onesBelow counts the occupied orbitals with index strictly less than orb.
func onesBelow(det uint64, orb, norb int) int {
	mask := ^(uint64(1)<<uint(norb-orb) - 1)
	return bits.OnesCount64(det & mask)
}

func checkSector(strs []uint64, nelec int) error {
	if len(strs) == 0 {
		return errors.Errorf("no determinants")
	}
	if !slices.IsSorted(strs) {
		return errors.Errorf("determinants not sorted")
	}
	for _, det := range strs {
		if w := bits.OnesCount64(det); w != nelec {
			return errors.Errorf("determinant %b has %d electrons, expected %d", det, w, nelec)
		}
	}
	return nil
}

func lookup(cs sqd.CIStrs, amps *mat.Dense, t term) (float64, bool) {
	iu, found := slices.BinarySearch(cs.Up, t.up)
	if !found {
		return 0, false
	}
	id, found := slices.BinarySearch(cs.Down, t.down)
	if !found {
		return 0, false
	}
	return amps.At(iu, id), true
}
