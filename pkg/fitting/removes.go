package fitting

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Removal is the outcome of removing a fitted surface from a height map.
type Removal struct {
	// Residual is Z minus the fitted surface, NaN where Z is NaN
	Residual *mat.Dense

	// Fitted is the fitted surface evaluated over the whole grid
	Fitted *mat.Dense

	Fit Fit
}

// RemoveSurface fits and removes a plane (piston and tilt)
func RemoveSurface(X, Y, Z *mat.Dense) (*Removal, error) {
	return Remove(Plane, 1, X, Y, Z)
}

// RemovePolynomials fits and removes a 2-D polynomial with all terms
// x^i*y^j, i+j <= order
func RemovePolynomials(X, Y, Z *mat.Dense, order int) (*Removal, error) {
	if order < 0 {
		return nil, fmt.Errorf("polynomial order must be non-negative, got %d", order)
	}
	return Remove(Polynomial, order, X, Y, Z)
}

// RemoveSphere fits and removes piston, tilt and power
func RemoveSphere(X, Y, Z *mat.Dense) (*Removal, error) {
	return Remove(Sphere, 2, X, Y, Z)
}

// Remove fits the given model to the finite samples of Z and subtracts it.
func Remove(model Model, order int, X, Y, Z *mat.Dense) (*Removal, error) {
	rows, cols := Z.Dims()
	if xr, xc := X.Dims(); xr != rows || xc != cols {
		return nil, fmt.Errorf("X is %dx%d but Z is %dx%d", xr, xc, rows, cols)
	}
	if yr, yc := Y.Dims(); yr != rows || yc != cols {
		return nil, fmt.Errorf("Y is %dx%d but Z is %dx%d", yr, yc, rows, cols)
	}

	// collect finite samples
	var xs, ys, zs []float64
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			z := Z.At(i, j)
			if math.IsNaN(z) || math.IsInf(z, 0) {
				continue
			}
			xs = append(xs, X.At(i, j))
			ys = append(ys, Y.At(i, j))
			zs = append(zs, z)
		}
	}

	nTerms := NumTerms(model, order)
	if len(zs) < nTerms {
		return nil, fmt.Errorf("%s fit needs at least %d valid samples, got %d", model, nTerms, len(zs))
	}

	fit := Fit{Model: model, Order: order}
	fit.CenterX, fit.CenterY, fit.Scale = normalisation(xs, ys)

	design := mat.NewDense(len(zs), nTerms, nil)
	row := make([]float64, nTerms)
	for k := range zs {
		u, v := fit.normalize(xs[k], ys[k])
		Terms(model, order, u, v, row)
		design.SetRow(k, row)
	}

	coeffs, err := LeastSquares(design, mat.NewVecDense(len(zs), zs))
	if err != nil {
		return nil, fmt.Errorf("%s fit failed: %w", model, err)
	}
	fit.Coeffs = make([]float64, nTerms)
	for i := range fit.Coeffs {
		fit.Coeffs[i] = coeffs.AtVec(i)
	}

	fitted := fit.Surface(X, Y)
	residual := mat.NewDense(rows, cols, nil)
	residual.Sub(Z, fitted)
	return &Removal{Residual: residual, Fitted: fitted, Fit: fit}, nil
}

// normalisation centres the coordinates on their bounding box and scales
// the larger half-extent to one.
func normalisation(xs, ys []float64) (cx, cy, scale float64) {
	minX, maxX := xs[0], xs[0]
	minY, maxY := ys[0], ys[0]
	for k := range xs {
		minX, maxX = math.Min(minX, xs[k]), math.Max(maxX, xs[k])
		minY, maxY = math.Min(minY, ys[k]), math.Max(maxY, ys[k])
	}
	cx, cy = (minX+maxX)/2, (minY+maxY)/2
	scale = math.Max(maxX-minX, maxY-minY) / 2
	if scale == 0 {
		scale = 1
	}
	return cx, cy, scale
}
