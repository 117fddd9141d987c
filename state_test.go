package sqd

import (
	"slices"
	"testing"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/joannaqw/sqd/rotation"
)

func TestNewSCIState(t *testing.T) {
	t.Parallel()
	amps := mat.NewDense(2, 1, []float64{1, 0})
	if _, err := NewSCIState(amps, []uint64{0b01, 0b10}, []uint64{0b01}); err != nil {
		t.Fatalf("%+v", err)
	}

	_, err := NewSCIState(amps, []uint64{0b01}, []uint64{0b01})
	var dimErr *rotation.DimensionError
	if !errors.As(err, &dimErr) {
		t.Fatalf("%+v", err)
	}
	if !(dimErr.Expected == 1 && dimErr.Got == 2) {
		t.Fatalf("%#v", dimErr)
	}

	_, err = NewSCIState(amps, []uint64{0b01, 0b10}, []uint64{0b01, 0b10})
	if !errors.As(err, &dimErr) {
		t.Fatalf("%+v", err)
	}
}

func TestFlipOrbitalOccupancies(t *testing.T) {
	t.Parallel()
	got := FlipOrbitalOccupancies([]float64{1, 2, 3, 4, 5, 6})
	if !slices.Equal(got, []float64{3, 2, 1, 6, 5, 4}) {
		t.Fatalf("%v", got)
	}
}
