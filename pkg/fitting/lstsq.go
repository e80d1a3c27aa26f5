package fitting

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// rcond is the relative singular-value cutoff used by the SVD fallback
const rcond = 1e-12

// LeastSquares solves min ||A c - b|| for c.
//
// QR factorization is used first. If A is too ill-conditioned for QR the
// system is re-solved with a truncated SVD, which also copes with rank
// deficient design matrices.
func LeastSquares(a mat.Matrix, b mat.Vector) (*mat.VecDense, error) {
	rows, cols := a.Dims()
	if b.Len() != rows {
		return nil, fmt.Errorf("design matrix has %d rows but target has %d", rows, b.Len())
	}
	if rows < cols {
		return nil, fmt.Errorf("underdetermined system: %d equations for %d unknowns", rows, cols)
	}

	var qr mat.QR
	qr.Factorize(a)

	var x mat.VecDense
	err := qr.SolveVecTo(&x, false, b)
	if err == nil {
		return &x, nil
	}
	var cond mat.Condition
	if !errors.As(err, &cond) {
		return nil, fmt.Errorf("QR solve failed: %w", err)
	}

	var svd mat.SVD
	if ok := svd.Factorize(a, mat.SVDThin); !ok {
		return nil, errors.New("SVD factorization failed")
	}
	rank := svd.Rank(rcond)
	if rank == 0 {
		return nil, errors.New("design matrix has rank zero")
	}
	svd.SolveVecTo(&x, b, rank)
	return &x, nil
}
