package sqd

import (
	"fmt"
	"math/bits"
	"slices"

	"github.com/pkg/errors"
)

// CIStrs holds the sorted unique determinants of the two spin sectors.
// A determinant is an unsigned integer whose bit i, counted from the most
// significant bit of the orbital width, marks spatial orbital i as occupied.
type CIStrs struct {
	Up   []uint64
	Down []uint64
}

// ConfigurationError reports a determinant whose particle number disagrees
// with the rest of its spin sector.
type ConfigurationError struct {
	Sector string
	Index  int
	Weight int
	Want   int
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("spin-%s determinant at index 0 has hamming weight %d, but the determinant at index %d has hamming weight %d",
		e.Sector, e.Want, e.Index, e.Weight)
}

// BitstringMatrixToCIStrs converts bitstring rows into determinants.
// Each row splits at the midpoint: the left half holds the spin-down
// orbitals, the right half the spin-up orbitals. Column i of a half carries
// weight 2^(norb-1-i). Both sectors are reduced to sorted unique arrays.
// If openShell is false, both sectors are replaced by their union and share
// one configuration set.
func BitstringMatrixToCIStrs(bm [][]bool, openShell bool) (CIStrs, error) {
	if len(bm) == 0 {
		return CIStrs{}, errors.Errorf("empty bitstring matrix")
	}
	width := len(bm[0])
	if width == 0 || width%2 != 0 {
		return CIStrs{}, errors.Errorf("bitstring width %d is not an even number of columns", width)
	}
	norb := width / 2
	if norb > 64 {
		return CIStrs{}, errors.Errorf("%d orbitals exceed the 64 bit determinant width", norb)
	}

	cs := CIStrs{Up: make([]uint64, 0, len(bm)), Down: make([]uint64, 0, len(bm))}
	for i, row := range bm {
		if len(row) != width {
			return CIStrs{}, errors.Errorf("row %d has %d columns, expected %d", i, len(row), width)
		}
		cs.Down = append(cs.Down, bitsToDeterminant(row[:norb]))
		cs.Up = append(cs.Up, bitsToDeterminant(row[norb:]))
	}

	slices.Sort(cs.Up)
	cs.Up = slices.Compact(cs.Up)
	slices.Sort(cs.Down)
	cs.Down = slices.Compact(cs.Down)
	if !openShell {
		union := unionSorted(cs.Up, cs.Down)
		cs.Up, cs.Down = union, slices.Clone(union)
	}

	if err := CheckCIStrs(&cs); err != nil {
		return CIStrs{}, err
	}
	return cs, nil
}

// CheckCIStrs sorts and deduplicates both sectors in place and verifies that
// every determinant within a sector has the same hamming weight, the fixed
// particle number per spin required by the solver.
func CheckCIStrs(cs *CIStrs) error {
	for _, sector := range []struct {
		name string
		strs *[]uint64
	}{
		{name: "up", strs: &cs.Up},
		{name: "down", strs: &cs.Down},
	} {
		if len(*sector.strs) == 0 {
			return errors.Errorf("spin-%s sector has no determinants", sector.name)
		}
		slices.Sort(*sector.strs)
		*sector.strs = slices.Compact(*sector.strs)

		want := bits.OnesCount64((*sector.strs)[0])
		for i, det := range *sector.strs {
			if w := bits.OnesCount64(det); w != want {
				return errors.WithStack(&ConfigurationError{Sector: sector.name, Index: i, Weight: w, Want: want})
			}
		}
	}
	return nil
}

// DeterminantBits expands a determinant into its occupation pattern,
// indexed by orbital. It is the inverse of the column encoding used by
// BitstringMatrixToCIStrs.
func DeterminantBits(det uint64, norb int) []bool {
	occ := make([]bool, norb)
	for i := range occ {
		occ[i] = det>>(norb-1-i)&1 == 1
	}
	return occ
}

func bitsToDeterminant(half []bool) uint64 {
	var det uint64
	w := len(half)
	for i, b := range half {
		if b {
			det |= 1 << (w - 1 - i)
		}
	}
	return det
}

func unionSorted(a, b []uint64) []uint64 {
	u := make([]uint64, 0, len(a)+len(b))
	u = append(u, a...)
	u = append(u, b...)
	slices.Sort(u)
	return slices.Compact(u)
}

// GenerateSubspaceBitstrings enumerates every configuration of an active
// window of windowOrb orbitals holding windowUp and windowDown electrons,
// sandwiched between doubly occupied orbitals carrying the remaining
// electrons and empty virtual orbitals. The rows are laid out like a
// bitstring matrix for a system of norb orbitals with nelecUp and nelecDown
// electrons, so the output can be merged into a sampled batch to guarantee
// that core configurations are always present.
func GenerateSubspaceBitstrings(norb, nelecUp, nelecDown, windowOrb, windowUp, windowDown int) ([][]bool, error) {
	if windowUp > windowOrb || windowDown > windowOrb {
		return nil, errors.Errorf("window of %d orbitals cannot hold %d up and %d down electrons", windowOrb, windowUp, windowDown)
	}
	remaining := nelecUp + nelecDown - windowUp - windowDown
	if remaining < 0 || remaining%2 != 0 {
		return nil, errors.Errorf("%d electrons left outside the window cannot doubly occupy orbitals", remaining)
	}
	numDouble := remaining / 2
	numVirtual := norb - windowOrb - numDouble
	if numVirtual < 0 {
		return nil, errors.Errorf("%d orbitals cannot hold a window of %d plus %d doubly occupied", norb, windowOrb, numDouble)
	}

	upWindows := combinationBits(windowOrb, windowUp)
	downWindows := combinationBits(windowOrb, windowDown)

	rows := make([][]bool, 0, len(upWindows)*len(downWindows))
	for _, up := range upWindows {
		for _, down := range downWindows {
			row := make([]bool, 0, 2*norb)
			row = appendHalf(row, down, numVirtual, numDouble)
			row = appendHalf(row, up, numVirtual, numDouble)
			rows = append(rows, row)
		}
	}
	return rows, nil
}

func appendHalf(row []bool, window []bool, numVirtual, numDouble int) []bool {
	for i := 0; i < numVirtual; i++ {
		row = append(row, false)
	}
	row = append(row, window...)
	for i := 0; i < numDouble; i++ {
		row = append(row, true)
	}
	return row
}

// combinationBits lists all occupation patterns of k electrons in n
// orbitals, in lexicographic order of the occupied positions.
func combinationBits(n, k int) [][]bool {
	var out [][]bool
	comb := make([]int, 0, k)
	var rec func(start int)
	rec = func(start int) {
		if len(comb) == k {
			row := make([]bool, n)
			for _, i := range comb {
				row[i] = true
			}
			out = append(out, row)
			return
		}
		for i := start; i <= n-(k-len(comb)); i++ {
			comb = append(comb, i)
			rec(i + 1)
			comb = comb[:len(comb)-1]
		}
	}
	rec(0)
	return out
}
