// Package rotation implements orbital basis rotations and their
// optimization: antisymmetric generators, orthogonal rotations via the matrix
// exponential, rank-4 integral tensors, and gradient descent over the
// rotation parameters.
//
// All computation is in float64.
package rotation

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Tensor4 is a dense rank-4 tensor whose four axes all have length N.
// It stores two-body integrals and two-body reduced density matrices.
type Tensor4 struct {
	n    int
	data []float64
}

// NewTensor4 returns a zero tensor with all axes of length n.
func NewTensor4(n int) *Tensor4 {
	return &Tensor4{n: n, data: make([]float64, n*n*n*n)}
}

func (t *Tensor4) N() int { return t.n }

func (t *Tensor4) At(p, q, r, s int) float64 {
	return t.data[((p*t.n+q)*t.n+r)*t.n+s]
}

func (t *Tensor4) Set(p, q, r, s int, v float64) {
	t.data[((p*t.n+q)*t.n+r)*t.n+s] = v
}

func (t *Tensor4) Clone() *Tensor4 {
	u := NewTensor4(t.n)
	copy(u.data, t.data)
	return u
}

func (a *Tensor4) Equal(b *Tensor4) bool {
	if a.n != b.n {
		return false
	}
	for i, av := range a.data {
		if av != b.data[i] {
			return false
		}
	}
	return true
}

// Transpose returns a new tensor whose axis m is the receiver's axis perm[m],
// following the numpy convention: out[i0,i1,i2,i3] = t[j] with j[perm[m]] = im.
func (t *Tensor4) Transpose(perm [4]int) *Tensor4 {
	seen := [4]bool{}
	for _, ax := range perm {
		if ax < 0 || ax > 3 || seen[ax] {
			panic(fmt.Sprintf("%v", perm))
		}
		seen[ax] = true
	}

	u := NewTensor4(t.n)
	var j [4]int
	for p := 0; p < t.n; p++ {
		for q := 0; q < t.n; q++ {
			for r := 0; r < t.n; r++ {
				for s := 0; s < t.n; s++ {
					j[0], j[1], j[2], j[3] = p, q, r, s
					u.Set(j[perm[0]], j[perm[1]], j[perm[2]], j[perm[3]], t.At(p, q, r, s))
				}
			}
		}
	}
	return u
}

// Dot returns the sum of the elementwise product of a and b.
func Dot(a, b *Tensor4) float64 {
	if a.n != b.n {
		panic(fmt.Sprintf("%d %d", a.n, b.n))
	}
	var sum float64
	for i, av := range a.data {
		sum += av * b.data[i]
	}
	return sum
}

// contractAxis contracts the given axis of t with the first index of u:
// out[..., j, ...] = sum_p u[p,j] * t[..., p, ...].
func contractAxis(t *Tensor4, u *mat.Dense, axis int) *Tensor4 {
	n := t.n
	out := NewTensor4(n)
	var idx, odx [4]int
	for a := 0; a < n; a++ {
		for b := 0; b < n; b++ {
			for c := 0; c < n; c++ {
				for d := 0; d < n; d++ {
					idx[0], idx[1], idx[2], idx[3] = a, b, c, d
					v := t.At(a, b, c, d)
					if v == 0 {
						continue
					}
					odx = idx
					for j := 0; j < n; j++ {
						odx[axis] = j
						p := idx[axis]
						out.data[((odx[0]*n+odx[1])*n+odx[2])*n+odx[3]] += u.At(p, j) * v
					}
				}
			}
		}
	}
	return out
}

// outerContract accumulates into acc[x,y] the contraction of a and b over all
// axes except the given one: acc[x,y] += sum a[..., x, ...] * b[..., y, ...],
// with x at position axis of a and y at position axis of b.
func outerContract(acc *mat.Dense, a, b *Tensor4, axis int) {
	n := a.n
	var idx [4]int
	for p := 0; p < n; p++ {
		for q := 0; q < n; q++ {
			for r := 0; r < n; r++ {
				for s := 0; s < n; s++ {
					idx[0], idx[1], idx[2], idx[3] = p, q, r, s
					av := a.At(p, q, r, s)
					if av == 0 {
						continue
					}
					x := idx[axis]
					for y := 0; y < n; y++ {
						idx[axis] = y
						bv := b.data[((idx[0]*n+idx[1])*n+idx[2])*n+idx[3]]
						acc.Set(x, y, acc.At(x, y)+av*bv)
					}
					idx[axis] = x
				}
			}
		}
	}
}
