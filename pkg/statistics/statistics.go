// Package statistics reduces surface height data to scalar figures.
// Every reducer ignores NaN samples and returns NaN when no finite samples
// remain.
package statistics

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// fwhmFactor is 2*sqrt(2*ln 2), the FWHM of a unit-sigma Gaussian
var fwhmFactor = 2 * math.Sqrt(2*math.Ln2)

// Finite returns the finite samples of data in their original order
func Finite(data []float64) []float64 {
	out := make([]float64, 0, len(data))
	for _, v := range data {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			out = append(out, v)
		}
	}
	return out
}

// RMS returns the root-mean-square deviation of data about its mean.
func RMS(data []float64) float64 {
	valid := Finite(data)
	if len(valid) == 0 {
		return math.NaN()
	}
	mean := stat.Mean(valid, nil)
	var sum float64
	for _, v := range valid {
		d := v - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(valid)))
}

// PV returns the peak-to-valley range of data.
func PV(data []float64) float64 {
	valid := Finite(data)
	if len(valid) == 0 {
		return math.NaN()
	}
	return floats.Max(valid) - floats.Min(valid)
}

// RobustPV returns the peak-to-valley range after discarding the lowest
// fraction lo and the highest fraction hi of the samples.
func RobustPV(data []float64, lo, hi float64) float64 {
	valid := Finite(data)
	if len(valid) == 0 || lo < 0 || hi < 0 || lo+hi >= 1 {
		return math.NaN()
	}
	sort.Float64s(valid)
	top := stat.Quantile(1-hi, stat.LinInterp, valid, nil)
	bottom := stat.Quantile(lo, stat.LinInterp, valid, nil)
	return top - bottom
}

// FWHMToSigma converts a Gaussian full width at half maximum to sigma
func FWHMToSigma(fwhm float64) float64 {
	return fwhm / fwhmFactor
}

// SigmaToFWHM converts a Gaussian sigma to its full width at half maximum
func SigmaToFWHM(sigma float64) float64 {
	return sigma * fwhmFactor
}
