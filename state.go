package sqd

import (
	"fmt"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/joannaqw/sqd/rotation"
)

// SCIState is the amplitudes and determinants describing a quantum state.
type SCIState struct {
	// Amplitudes has one row per spin-up determinant and one column per
	// spin-down determinant; entry (i, j) is the coefficient of the
	// determinant pair (UpStrs[i], DownStrs[j]).
	Amplitudes *mat.Dense
	// UpStrs are the spin-up determinants.
	UpStrs []uint64
	// DownStrs are the spin-down determinants.
	DownStrs []uint64
}

// NewSCIState validates that the amplitude shape matches both determinant
// lists exactly.
func NewSCIState(amplitudes *mat.Dense, upStrs, downStrs []uint64) (*SCIState, error) {
	rows, cols := amplitudes.Dims()
	if rows != len(upStrs) {
		return nil, errors.WithStack(&rotation.DimensionError{What: "amplitude rows", Expected: len(upStrs), Got: rows})
	}
	if cols != len(downStrs) {
		return nil, errors.WithStack(&rotation.DimensionError{What: "amplitude columns", Expected: len(downStrs), Got: cols})
	}
	return &SCIState{Amplitudes: amplitudes, UpStrs: upStrs, DownStrs: downStrs}, nil
}

// FlipOrbitalOccupancies reverses each spin half of a spin-orbital occupancy
// vector, reformatting
//
//	[up_1, ..., up_N, down_1, ..., down_N]
//
// into
//
//	[up_N, ..., up_1, down_N, ..., down_1]
//
// so that the entries line up with bitstring column indexing.
func FlipOrbitalOccupancies(occ []float64) []float64 {
	if len(occ)%2 != 0 {
		panic(fmt.Sprintf("%d", len(occ)))
	}
	norb := len(occ) / 2
	out := make([]float64, 2*norb)
	for i := 0; i < norb; i++ {
		out[i] = occ[norb-1-i]
		out[norb+i] = occ[2*norb-1-i]
	}
	return out
}

func diagonal(m *mat.Dense) []float64 {
	n, _ := m.Dims()
	d := make([]float64, n)
	for i := range d {
		d[i] = m.At(i, i)
	}
	return d
}
