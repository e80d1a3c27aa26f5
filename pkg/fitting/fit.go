// Package fitting removes low-order form (piston, tilt, power, polynomial
// surfaces) from height maps by linear least squares.
package fitting

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Model identifies the basis a Fit was made with
type Model int

const (
	Plane Model = iota
	Polynomial
	Sphere
)

func (m Model) String() string {
	switch m {
	case Plane:
		return "plane"
	case Polynomial:
		return "polynomial"
	case Sphere:
		return "sphere"
	}
	return fmt.Sprintf("Model(%d)", int(m))
}

// Fit is a fitted surface: a basis, its coefficients and the coordinate
// normalisation applied before evaluating the basis. It holds no
// references to the data it was fitted to.
type Fit struct {
	Model Model

	// Order is the total polynomial degree for Polynomial fits
	Order int

	// Coeffs are ordered as the basis terms, see Terms
	Coeffs []float64

	// CenterX, CenterY and Scale map physical coordinates onto roughly
	// [-1, 1] before the basis is evaluated
	CenterX, CenterY, Scale float64
}

// NumTerms returns the number of basis terms for a model
func NumTerms(model Model, order int) int {
	switch model {
	case Plane:
		return 3
	case Sphere:
		return 4
	default:
		return (order + 1) * (order + 2) / 2
	}
}

// Terms writes the basis terms at normalised coordinates (u, v) into dst.
// Polynomial terms are ordered by total degree, then by the power of v:
// 1, u, v, u^2, uv, v^2, ...
func Terms(model Model, order int, u, v float64, dst []float64) {
	switch model {
	case Plane:
		dst[0], dst[1], dst[2] = 1, u, v
	case Sphere:
		dst[0], dst[1], dst[2], dst[3] = 1, u, v, u*u+v*v
	default:
		k := 0
		for d := 0; d <= order; d++ {
			for j := 0; j <= d; j++ {
				dst[k] = math.Pow(u, float64(d-j)) * math.Pow(v, float64(j))
				k++
			}
		}
	}
}

func (f Fit) normalize(x, y float64) (float64, float64) {
	return (x - f.CenterX) / f.Scale, (y - f.CenterY) / f.Scale
}

// Eval evaluates the fitted surface at physical coordinates (x, y)
func (f Fit) Eval(x, y float64) float64 {
	u, v := f.normalize(x, y)
	terms := make([]float64, len(f.Coeffs))
	Terms(f.Model, f.Order, u, v, terms)
	var z float64
	for i, c := range f.Coeffs {
		z += c * terms[i]
	}
	return z
}

// Surface evaluates the fit over coordinate grids X and Y
func (f Fit) Surface(X, Y *mat.Dense) *mat.Dense {
	rows, cols := X.Dims()
	out := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			out.Set(i, j, f.Eval(X.At(i, j), Y.At(i, j)))
		}
	}
	return out
}

// Radius returns the radius of curvature of a Sphere fit in the units of
// the coordinates. Other models and flat spheres report +Inf.
func (f Fit) Radius() float64 {
	if f.Model != Sphere || len(f.Coeffs) < 4 || f.Coeffs[3] == 0 {
		return math.Inf(1)
	}
	// z = c3*r^2/Scale^2 is the paraxial sag r^2/(2R)
	return f.Scale * f.Scale / (2 * f.Coeffs[3])
}
