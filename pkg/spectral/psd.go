package spectral

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Axis selects the direction of the profiles a 1-D PSD is averaged over
type Axis string

const (
	AxisX Axis = "x"
	AxisY Axis = "y"
)

// Spectrum is an averaged one-sided 1-D power spectral density.
type Spectrum struct {
	// Q holds the spatial frequencies 1/lambda, in inverse length units
	Q []float64

	// C is the PSD at each Q, in height^2 * length
	C []float64

	// Integrated is the running integral of C over Q. For an unwindowed
	// profile its last value equals the mean square of the profile.
	Integrated []float64

	// Profiles is the number of profiles averaged
	Profiles int
}

// RMS returns the root of the fully integrated spectrum
func (s *Spectrum) RMS() float64 {
	if len(s.Integrated) == 0 {
		return math.NaN()
	}
	return math.Sqrt(s.Integrated[len(s.Integrated)-1])
}

// PSD1D computes the averaged 1-D PSD of the profiles of z along axis.
// AxisX takes each row as a profile, AxisY each column. Profiles holding
// NaN are skipped; each profile has its mean removed before windowing, and
// the window is normalised to unit mean square.
func PSD1D(z *mat.Dense, pixelSize float64, axis Axis, win WindowType) (*Spectrum, error) {
	if pixelSize <= 0 {
		return nil, fmt.Errorf("pixel size must be positive, got %g", pixelSize)
	}

	rows, cols := z.Dims()
	var nProfiles, n int
	var profile func(k int, dst []float64)
	switch axis {
	case AxisX:
		nProfiles, n = rows, cols
		profile = func(k int, dst []float64) { mat.Row(dst, k, z) }
	case AxisY:
		nProfiles, n = cols, rows
		profile = func(k int, dst []float64) { mat.Col(dst, k, z) }
	default:
		return nil, fmt.Errorf("invalid axis %q (must be x or y)", axis)
	}
	if n < 2 {
		return nil, fmt.Errorf("profiles need at least 2 samples, got %d", n)
	}

	w, err := Window(n, win)
	if err != nil {
		return nil, err
	}
	energy := floats.Dot(w, w) / float64(n)
	if energy == 0 {
		return nil, fmt.Errorf("%s window of %d samples is identically zero", win, n)
	}
	floats.Scale(1/math.Sqrt(energy), w)

	nq := n/2 + 1
	power := make([]float64, nq)
	p := make([]float64, n)
	used := 0
	for k := 0; k < nProfiles; k++ {
		profile(k, p)
		if floats.HasNaN(p) {
			continue
		}
		mean := stat.Mean(p, nil)
		floats.AddConst(-mean, p)
		floats.Mul(p, w)

		coeffs := FFT1D(ToComplex(p), n)
		for i := 0; i < nq; i++ {
			a := cmplx.Abs(coeffs[i])
			power[i] += a * a
		}
		used++
	}
	if used == 0 {
		return nil, errors.New("no profile without missing data")
	}

	length := float64(n) * pixelSize
	dq := 1 / length
	s := &Spectrum{
		Q:          make([]float64, nq),
		C:          make([]float64, nq),
		Integrated: make([]float64, nq),
		Profiles:   used,
	}
	var running float64
	for i := 0; i < nq; i++ {
		c := pixelSize / float64(n) * power[i] / float64(used)
		// fold negative frequencies; DC and Nyquist have no mirror
		if i > 0 && 2*i != n {
			c *= 2
		}
		s.Q[i] = float64(i) * dq
		s.C[i] = c
		running += c * dq
		s.Integrated[i] = running
	}
	return s, nil
}
