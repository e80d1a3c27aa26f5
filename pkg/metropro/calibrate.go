package metropro

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"opticmetro/internal/models"
)

// InvalidPhase is the smallest raw phase count that marks a pixel without
// data.
const InvalidPhase = 2147483640

// phaseResolutionDivisors maps the phase_res code to the number of counts
// per fringe.
var phaseResolutionDivisors = map[int64]float64{
	0: 4096,
	1: 32768,
	2: 131072,
}

// PhaseResolutionDivisor returns the counts-per-fringe divisor for a
// phase_res code.
func PhaseResolutionDivisor(code int64) (float64, error) {
	d, ok := phaseResolutionDivisors[code]
	if !ok {
		return 0, formatError("phase_res", "unknown phase resolution code %d", code)
	}
	return d, nil
}

// HeightScale returns the metres-per-count factor of a header:
// intf_scale_factor * obliquity_factor * wavelength_in / divisor(phase_res).
func HeightScale(hdr *models.Header) (float64, error) {
	code, err := hdr.Int("phase_res")
	if err != nil {
		return 0, formatError("phase_res", "%v", err)
	}
	divisor, err := PhaseResolutionDivisor(code)
	if err != nil {
		return 0, err
	}

	var factors [3]float64
	for i, name := range []string{"intf_scale_factor", "obliquity_factor", "wavelength_in"} {
		v, err := hdr.Float(name)
		if err != nil {
			return 0, formatError(name, "%v", err)
		}
		factors[i] = v
	}
	return factors[0] * factors[1] * factors[2] / divisor, nil
}

// Calibrate converts raw phase counts into heights in metres. Counts at or
// above InvalidPhase become NaN. counts is row-major [height, width]; an
// empty slice yields a nil matrix.
func Calibrate(counts []int32, width, height int, hdr *models.Header) (*mat.Dense, error) {
	if len(counts) == 0 {
		return nil, nil
	}
	if len(counts) != width*height {
		return nil, formatError("cn_width", "%d phase samples do not fill a %dx%d array", len(counts), height, width)
	}

	scale, err := HeightScale(hdr)
	if err != nil {
		return nil, err
	}

	data := make([]float64, len(counts))
	for i, c := range counts {
		if c >= InvalidPhase {
			data[i] = math.NaN()
			continue
		}
		data[i] = float64(c) * scale
	}
	return mat.NewDense(height, width, data), nil
}
