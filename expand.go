package sqd

import (
	"github.com/pkg/errors"
)

// transitionMasks is the boolean representation of one transition operator
// row: diag marks positions that leave occupation unchanged (Identity or
// Number), create marks creation operators (Create or Number), annihilate
// marks annihilation operators (Annihilate or Number).
type transitionMasks struct {
	diag       []bool
	create     []bool
	annihilate []bool
}

// parseTransition translates a string of I, +, - and n symbols, one per
// orbital position across both spin halves, into mask form.
func parseTransition(op string) (transitionMasks, error) {
	m := transitionMasks{
		diag:       make([]bool, len(op)),
		create:     make([]bool, len(op)),
		annihilate: make([]bool, len(op)),
	}
	for i := 0; i < len(op); i++ {
		switch op[i] {
		case 'I':
			m.diag[i] = true
		case '+':
			m.create[i] = true
		case '-':
			m.annihilate[i] = true
		case 'n':
			m.diag[i], m.create[i], m.annihilate[i] = true, true, true
		default:
			return transitionMasks{}, errors.Errorf("unknown transition symbol %q at position %d", op[i], i)
		}
	}
	return m, nil
}

// EnlargeFromTransitions applies every transition operator to every
// configuration in the bitstring matrix and returns the augmented matrix of
// surviving configurations. Pairs whose matrix element is zero, a creation
// onto an occupied orbital or an annihilation of an empty one, are dropped.
// Fermionic sign is not tracked; only occupancy reachability is modeled.
func EnlargeFromTransitions(bm [][]bool, ops []string) ([][]bool, error) {
	if len(bm) == 0 {
		return nil, errors.Errorf("empty bitstring matrix")
	}
	width := len(bm[0])

	masks := make([]transitionMasks, 0, len(ops))
	for i, op := range ops {
		if len(op) != width {
			return nil, errors.Errorf("operator %d has %d positions, expected %d", i, len(op), width)
		}
		m, err := parseTransition(op)
		if err != nil {
			return nil, errors.Wrap(err, "")
		}
		masks = append(masks, m)
	}

	out := make([][]bool, 0, len(bm)*len(masks))
	for _, m := range masks {
		for i, row := range bm {
			if len(row) != width {
				return nil, errors.Errorf("row %d has %d columns, expected %d", i, len(row), width)
			}
			if cfg, ok := applyTransition(row, m); ok {
				out = append(out, cfg)
			}
		}
	}
	return out, nil
}

// applyTransition applies one operator to one occupation vector. Positions
// with diag set keep their occupation; all others flip. A pure creation
// requires the orbital to be empty, and any annihilation flag requires it to
// be occupied. The Number operator's diag flag satisfies the creation clause
// structurally, so only its annihilation clause enforces occupancy; this
// asymmetry matches the solver convention and must not be symmetrized.
func applyTransition(row []bool, m transitionMasks) ([]bool, bool) {
	out := make([]bool, len(row))
	for i, occ := range row {
		out[i] = occ == m.diag[i]
		if !m.diag[i] && m.create[i] && occ {
			return nil, false
		}
		if m.annihilate[i] && !occ {
			return nil, false
		}
	}
	return out, true
}
