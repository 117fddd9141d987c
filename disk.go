package sqd

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

const (
	tableShape        = "shape"
	tableDeterminants = "determinants"
	tableAmplitudes   = "amplitudes"

	sectorUp   = 0
	sectorDown = 1
)

// SaveState archives a solver eigenstate at dbPath, overwriting any
// previously archived state. Zero amplitudes are not stored.
func SaveState(dbPath string, state *SCIState) error {
	db, err := newStateDB(dbPath)
	if err != nil {
		return errors.Wrap(err, "")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	nrows, ncols := state.Amplitudes.Dims()
	sqlStr := fmt.Sprintf(`INSERT INTO %s (nrows, ncols) VALUES (?, ?)`, tableShape)
	if _, err := db.ExecContext(ctx, sqlStr, nrows, ncols); err != nil {
		return errors.Wrap(err, "")
	}

	for sector, strs := range [2][]uint64{state.UpStrs, state.DownStrs} {
		for idx, det := range strs {
			sqlStr := fmt.Sprintf(`INSERT INTO %s (sector, idx, det) VALUES (?, ?, ?)`, tableDeterminants)
			// SQLite integers are signed, so store the determinant as int64.
			if _, err := db.ExecContext(ctx, sqlStr, sector, idx, int64(det)); err != nil {
				return errors.Wrap(err, fmt.Sprintf("sector %d idx %d", sector, idx))
			}
		}
	}

	for i := 0; i < nrows; i++ {
		for j := 0; j < ncols; j++ {
			v := state.Amplitudes.At(i, j)
			if v == 0 {
				continue
			}
			sqlStr := fmt.Sprintf(`INSERT INTO %s (i, j, v) VALUES (?, ?, ?)`, tableAmplitudes)
			if _, err := db.ExecContext(ctx, sqlStr, i, j, v); err != nil {
				return errors.Wrap(err, fmt.Sprintf("%d %d", i, j))
			}
		}
	}
	return nil
}

// LoadState reads back a state archived with SaveState.
func LoadState(dbPath string) (*SCIState, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s", dbPath))
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	var nrows, ncols int
	sqlStr := fmt.Sprintf(`SELECT nrows, ncols FROM %s`, tableShape)
	if err := db.QueryRowContext(ctx, sqlStr).Scan(&nrows, &ncols); err != nil {
		return nil, errors.Wrap(err, "")
	}

	up, err := loadDeterminants(ctx, db, sectorUp)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	down, err := loadDeterminants(ctx, db, sectorDown)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}

	amps := mat.NewDense(nrows, ncols, nil)
	sqlStr = fmt.Sprintf(`SELECT i, j, v FROM %s`, tableAmplitudes)
	rows, err := db.QueryContext(ctx, sqlStr)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	defer rows.Close()
	for rows.Next() {
		var i, j int
		var v float64
		if err := rows.Scan(&i, &j, &v); err != nil {
			return nil, errors.Wrap(err, "")
		}
		if i < 0 || i >= nrows || j < 0 || j >= ncols {
			return nil, errors.Errorf("amplitude (%d, %d) outside %dx%d", i, j, nrows, ncols)
		}
		amps.Set(i, j, v)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "")
	}

	state, err := NewSCIState(amps, up, down)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	return state, nil
}

func loadDeterminants(ctx context.Context, db *sql.DB, sector int) ([]uint64, error) {
	sqlStr := fmt.Sprintf(`SELECT det FROM %s WHERE sector=? ORDER BY idx`, tableDeterminants)
	rows, err := db.QueryContext(ctx, sqlStr, sector)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	defer rows.Close()

	var dets []uint64
	for rows.Next() {
		var det int64
		if err := rows.Scan(&det); err != nil {
			return nil, errors.Wrap(err, "")
		}
		dets = append(dets, uint64(det))
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "")
	}
	return dets, nil
}

func newStateDB(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s", dbPath))
	if err != nil {
		return nil, errors.Wrap(err, "")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	stmts := []string{
		fmt.Sprintf(`DROP TABLE IF EXISTS %s`, tableShape),
		fmt.Sprintf(`DROP TABLE IF EXISTS %s`, tableDeterminants),
		fmt.Sprintf(`DROP TABLE IF EXISTS %s`, tableAmplitudes),
		fmt.Sprintf(`CREATE TABLE %s (nrows INTEGER, ncols INTEGER) STRICT`, tableShape),
		fmt.Sprintf(`CREATE TABLE %s (sector INTEGER, idx INTEGER, det INTEGER, PRIMARY KEY (sector, idx)) STRICT`, tableDeterminants),
		fmt.Sprintf(`CREATE TABLE %s (i INTEGER, j INTEGER, v REAL, PRIMARY KEY (i, j)) STRICT`, tableAmplitudes),
	}
	for _, sqlStr := range stmts {
		if _, err := db.ExecContext(ctx, sqlStr); err != nil {
			db.Close()
			return nil, errors.Wrap(err, sqlStr)
		}
	}
	return db, nil
}
