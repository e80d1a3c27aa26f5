// Package spectral provides the discrete Fourier transforms, window
// functions and power spectral densities used to characterise surface
// height maps.
package spectral

import (
	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/mat"
)

// ToComplex widens a real sequence
func ToComplex(x []float64) []complex128 {
	out := make([]complex128, len(x))
	for i, v := range x {
		out[i] = complex(v, 0)
	}
	return out
}

// resize zero-pads or truncates x to n samples
func resize(x []complex128, n int) []complex128 {
	out := make([]complex128, n)
	copy(out, x)
	return out
}

// FFT1D computes the unnormalised forward DFT of x with an output length
// of n, zero-padding or truncating x as needed. n <= 0 uses len(x).
func FFT1D(x []complex128, n int) []complex128 {
	if n <= 0 {
		n = len(x)
	}
	if n == 0 {
		return nil
	}
	fft := fourier.NewCmplxFFT(n)
	return fft.Coefficients(nil, resize(x, n))
}

// IFFT1D computes the inverse DFT of x with an output length of n,
// normalised by 1/n so that IFFT1D(FFT1D(x, 0), 0) reproduces x.
func IFFT1D(x []complex128, n int) []complex128 {
	if n <= 0 {
		n = len(x)
	}
	if n == 0 {
		return nil
	}
	fft := fourier.NewCmplxFFT(n)
	out := fft.Sequence(nil, resize(x, n))
	scale := complex(1/float64(n), 0)
	for i := range out {
		out[i] *= scale
	}
	return out
}

// FFT2D computes the 2-D forward DFT of a with an output shape of
// rows x cols (non-positive values keep a's extent). The transform is
// applied along every row and then along every column.
func FFT2D(a *mat.CDense, rows, cols int) *mat.CDense {
	return transform2D(a, rows, cols, FFT1D)
}

// IFFT2D computes the normalised 2-D inverse DFT of a
func IFFT2D(a *mat.CDense, rows, cols int) *mat.CDense {
	return transform2D(a, rows, cols, IFFT1D)
}

func transform2D(a *mat.CDense, rows, cols int, fn func([]complex128, int) []complex128) *mat.CDense {
	ar, ac := a.Dims()
	if rows <= 0 {
		rows = ar
	}
	if cols <= 0 {
		cols = ac
	}

	result := mat.NewCDense(rows, cols, nil)

	// row transforms
	row := make([]complex128, ac)
	for i := 0; i < min(rows, ar); i++ {
		for j := 0; j < ac; j++ {
			row[j] = a.At(i, j)
		}
		out := fn(row, cols)
		for j := 0; j < cols; j++ {
			result.Set(i, j, out[j])
		}
	}

	// column transforms over the zero-padded row results
	col := make([]complex128, rows)
	for j := 0; j < cols; j++ {
		for i := 0; i < rows; i++ {
			col[i] = result.At(i, j)
		}
		out := fn(col, rows)
		for i := 0; i < rows; i++ {
			result.Set(i, j, out[i])
		}
	}
	return result
}
