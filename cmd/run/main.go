package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/joannaqw/sqd"
	"github.com/joannaqw/sqd/exactdiag"
	"github.com/joannaqw/sqd/rotation"
)

const (
	fnameResult = "result.txt"
	fnameDone   = "done.txt"
	fnameState  = "state.db"
)

var (
	runDir = flag.String("d", filepath.Join("runs", "sqd"), "run directory")
)

type Result struct {
	norb int
	u    float64
	sqd.OptimizeResult
}

// hubbardChain builds the integrals of an open chain with nearest neighbour
// hopping -1 and on-site repulsion u.
func hubbardChain(norb int, u float64) (*mat.Dense, *rotation.Tensor4) {
	hcore := mat.NewDense(norb, norb, nil)
	for i := 0; i+1 < norb; i++ {
		hcore.Set(i, i+1, -1)
		hcore.Set(i+1, i, -1)
	}
	eri := rotation.NewTensor4(norb)
	for p := 0; p < norb; p++ {
		eri.Set(p, p, p, p, u)
	}
	return hcore, eri
}

func optimize(dir string, norb int, u float64) (Result, error) {
	hcore, eri := hubbardChain(norb, u)
	nUp, nDown := (norb+1)/2, norb/2
	bm, err := sqd.GenerateSubspaceBitstrings(norb, nUp, nDown, norb, nUp, nDown)
	if err != nil {
		return Result{}, errors.Wrap(err, "")
	}

	solver := exactdiag.Solver{}
	kFlat := make([]float64, rotation.NumParams(norb))
	// Odd chains have unequal spin populations, keep the sectors distinct.
	opt := sqd.NewOptions().OpenShell(true).NumIters(5).NumStepsGrad(100).LearningRate(0.01)
	res, err := sqd.OptimizeOrbitals(solver, bm, hcore, eri, kFlat, opt)
	if err != nil {
		return Result{}, errors.Wrap(err, "")
	}

	// Archive the ground state in the optimized orbital basis.
	eriPhys := eri.Transpose([4]int{0, 2, 3, 1})
	hrot, erotPhys, err := rotation.Integrals(hcore, eriPhys, res.KFlat)
	if err != nil {
		return Result{}, errors.Wrap(err, "")
	}
	erotChem := erotPhys.Transpose([4]int{0, 3, 1, 2})
	solveRes, err := sqd.Solve(solver, bm, hrot, erotChem, sqd.NewSolveOptions().OpenShell(true))
	if err != nil {
		return Result{}, errors.Wrap(err, "")
	}
	if err := sqd.SaveState(filepath.Join(dir, fnameState), solveRes.State); err != nil {
		return Result{}, errors.Wrap(err, "")
	}

	return Result{norb: norb, u: u, OptimizeResult: res}, nil
}

func solve(dir string, norb int, u float64) error {
	donePath := filepath.Join(dir, fnameDone)
	if _, err := os.Stat(donePath); err == nil {
		return nil
	}
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return errors.Wrap(err, "")
	}

	res, err := optimize(dir, norb, u)
	if err != nil {
		return errors.Wrap(err, "")
	}
	b, err := json.Marshal(res.OptimizeResult)
	if err != nil {
		return errors.Wrap(err, "")
	}
	if err := os.WriteFile(filepath.Join(dir, fnameResult), b, 0644); err != nil {
		return errors.Wrap(err, "")
	}

	if err := os.WriteFile(donePath, nil, 0644); err != nil {
		return errors.Wrap(err, "")
	}
	return nil
}

func gather(dir string) ([]Result, error) {
	results := make([]Result, 0)
	nEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	for _, nent := range nEntries {
		norb, err := strconv.Atoi(nent.Name())
		if err != nil {
			return nil, errors.Wrap(err, fmt.Sprintf("%#v", nent))
		}

		ndir := filepath.Join(dir, nent.Name())
		uEntries, err := os.ReadDir(ndir)
		if err != nil {
			return nil, errors.Wrap(err, fmt.Sprintf("%#v", nent))
		}
		for _, uent := range uEntries {
			u, err := strconv.ParseFloat(uent.Name(), 64)
			if err != nil {
				return nil, errors.Wrap(err, fmt.Sprintf("%#v %#v", nent, uent))
			}

			udir := filepath.Join(ndir, uent.Name())
			rb, err := os.ReadFile(filepath.Join(udir, fnameResult))
			if err != nil {
				return nil, errors.Wrap(err, fmt.Sprintf("%#v %#v", nent, uent))
			}
			r := Result{norb: norb, u: u}
			if err := json.Unmarshal(rb, &r.OptimizeResult); err != nil {
				return nil, errors.Wrap(err, fmt.Sprintf("%#v %#v", nent, uent))
			}
			results = append(results, r)
		}
	}
	return results, nil
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds | log.Llongfile | log.LstdFlags)

	if err := mainWithErr(); err != nil {
		log.Fatalf("%+v", err)
	}
}

func mainWithErr() error {
	if err := os.MkdirAll(*runDir, os.ModePerm); err != nil {
		return errors.Wrap(err, "")
	}

	type config struct {
		norb int
		u    float64
	}
	configs := make([]config, 0)
	for _, norb := range []int{2, 3, 4} {
		for _, u := range []float64{0, 1, 2, 4, 8} {
			configs = append(configs, config{norb: norb, u: u})
		}
	}

	// Optimize the orbitals for every system.
	for _, c := range configs {
		dir := filepath.Join(*runDir, strconv.Itoa(c.norb), fmt.Sprintf("%f", c.u))
		if err := solve(dir, c.norb, c.u); err != nil {
			return errors.Wrap(err, fmt.Sprintf("%d %f", c.norb, c.u))
		}
		log.Printf("%d %f", c.norb, c.u)
	}

	// Gather results and print them.
	results, err := gather(*runDir)
	if err != nil {
		return errors.Wrap(err, "")
	}
	fmt.Printf("norb,u,energy,occupancies\n")
	for _, r := range results {
		occ := make([]string, 0, 2*r.norb)
		for _, sector := range r.Occupancies {
			for _, o := range sector {
				occ = append(occ, strconv.FormatFloat(o, 'f', 4, 64))
			}
		}
		fmt.Printf("%d,%f,%f,%s\n", r.norb, r.u, r.Energy, strings.Join(occ, " "))
	}
	return nil
}
