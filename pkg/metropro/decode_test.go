package metropro

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opticmetro/internal/models"
)

// syntheticHeader creates a format-1 header with the given intensity and
// phase geometry and simple calibration values
func syntheticHeader(t *testing.T, acW, acH, buckets, cnW, cnH int) *models.Header {
	t.Helper()
	hdr, err := NewHeader(1)
	require.NoError(t, err)
	hdr.Set("ac_width", int64(acW))
	hdr.Set("ac_height", int64(acH))
	hdr.Set("ac_n_buckets", int64(buckets))
	hdr.Set("cn_width", int64(cnW))
	hdr.Set("cn_height", int64(cnH))
	hdr.Set("intf_scale_factor", 0.5)
	hdr.Set("obliquity_factor", float64(float32(1.02)))
	hdr.Set("wavelength_in", float64(float32(632.8e-9)))
	hdr.Set("lateral_res", float64(float32(1e-4)))
	hdr.Set("phase_res", int64(0))
	return hdr
}

func expectedScale(hdr *models.Header, divisor float64) float64 {
	s, _ := hdr.Float("intf_scale_factor")
	o, _ := hdr.Float("obliquity_factor")
	w, _ := hdr.Float("wavelength_in")
	return s * o * w / divisor
}

// TestDecodeEndToEnd decodes a minimal 834-byte-header file with one
// sentinel phase sample
func TestDecodeEndToEnd(t *testing.T) {
	hdr := syntheticHeader(t, 4, 3, 0, 4, 3)

	intensity := &models.IntensityStack{Buckets: 1, Width: 4, Height: 3, Data: make([]uint16, 12)}
	for i := range intensity.Data {
		intensity.Data[i] = uint16(1000 + i)
	}
	counts := make([]int32, 12)
	for i := range counts {
		counts[i] = 1
	}
	counts[5] = InvalidPhase

	raw, err := Encode(hdr, intensity, counts)
	require.NoError(t, err)
	require.Len(t, raw, 834+12*2+12*4)

	m, err := Decode(raw)
	require.NoError(t, err)
	assert.Empty(t, m.Warnings)

	require.NotNil(t, m.Intensity)
	assert.Equal(t, 1, m.Intensity.Buckets)
	assert.Equal(t, uint16(1000+2*4+1), m.Intensity.At(0, 2, 1))

	require.NotNil(t, m.Phase)
	rows, cols := m.Phase.Dims()
	assert.Equal(t, 3, rows)
	assert.Equal(t, 4, cols)

	want := expectedScale(hdr, 4096)
	nans := 0
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			v := m.Phase.At(i, j)
			if math.IsNaN(v) {
				nans++
				continue
			}
			assert.Equal(t, want, v, "phase[%d][%d]", i, j)
		}
	}
	assert.Equal(t, 1, nans)
	assert.True(t, math.IsNaN(m.Phase.At(1, 1)))
}

func TestDecodeZeroCounts(t *testing.T) {
	hdr := syntheticHeader(t, 0, 0, 0, 2, 2)
	raw, err := Encode(hdr, nil, []int32{0, 0, 0, 0})
	require.NoError(t, err)

	m, err := Decode(raw)
	require.NoError(t, err)
	assert.Nil(t, m.Intensity)
	for _, v := range m.Phase.RawMatrix().Data {
		assert.Equal(t, 0.0, v)
	}
}

// TestSentinelMasking checks masking for every resolution code
func TestSentinelMasking(t *testing.T) {
	counts := []int32{InvalidPhase - 1, InvalidPhase, InvalidPhase + 3, math.MaxInt32, -5, 0}

	for code, divisor := range map[int64]float64{0: 4096, 1: 32768, 2: 131072} {
		hdr := syntheticHeader(t, 0, 0, 0, len(counts), 1)
		hdr.Set("phase_res", code)

		phase, err := Calibrate(counts, len(counts), 1, hdr)
		require.NoError(t, err)

		scale := expectedScale(hdr, divisor)
		assert.Equal(t, float64(InvalidPhase-1)*scale, phase.At(0, 0), "code %d", code)
		assert.True(t, math.IsNaN(phase.At(0, 1)), "code %d", code)
		assert.True(t, math.IsNaN(phase.At(0, 2)), "code %d", code)
		assert.True(t, math.IsNaN(phase.At(0, 3)), "code %d", code)
		assert.Equal(t, -5*scale, phase.At(0, 4), "code %d", code)
		assert.Equal(t, 0.0, phase.At(0, 5), "code %d", code)
	}
}

// TestCalibrationIsLinear checks that doubling the scale factor doubles
// every valid height
func TestCalibrationIsLinear(t *testing.T) {
	counts := []int32{1, -17, 4000, InvalidPhase, 123456}
	hdr := syntheticHeader(t, 0, 0, 0, len(counts), 1)

	base, err := Calibrate(counts, len(counts), 1, hdr)
	require.NoError(t, err)

	hdr.Set("intf_scale_factor", 1.0)
	doubled, err := Calibrate(counts, len(counts), 1, hdr)
	require.NoError(t, err)

	for j := range counts {
		b, d := base.At(0, j), doubled.At(0, j)
		if math.IsNaN(b) {
			assert.True(t, math.IsNaN(d))
			continue
		}
		assert.Equal(t, 2*b, d)
	}
}

func TestUnknownPhaseResolution(t *testing.T) {
	hdr := syntheticHeader(t, 0, 0, 0, 1, 1)
	hdr.Set("phase_res", int64(3))
	raw, err := Encode(hdr, nil, []int32{7})
	require.NoError(t, err)

	_, err = Decode(raw)
	var fe *FormatError
	require.True(t, errors.As(err, &fe), "expected FormatError, got %v", err)
	assert.Equal(t, "phase_res", fe.Field)
	assert.Equal(t, 218, fe.Offset)
}

func TestTruncatedIntensityIsDropped(t *testing.T) {
	hdr := syntheticHeader(t, 4, 3, 2, 0, 0)
	raw, err := EncodeHeader(hdr)
	require.NoError(t, err)
	raw = append(raw, make([]byte, 10)...)

	m, err := Decode(raw)
	require.NoError(t, err)
	assert.Nil(t, m.Intensity)
	assert.Nil(t, m.Phase)
	require.Len(t, m.Warnings, 1)

	var te *TruncatedDataError
	require.True(t, errors.As(m.Warnings[0], &te))
	assert.Equal(t, "intensity", te.Block)
	assert.Equal(t, 834, te.Offset)
	assert.Equal(t, 4*3*2*2, te.Need)
	assert.Equal(t, 10, te.Have)
}

func TestTruncatedPhaseIsFatal(t *testing.T) {
	hdr := syntheticHeader(t, 2, 2, 0, 2, 2)
	raw, err := Encode(hdr, &models.IntensityStack{Buckets: 1, Width: 2, Height: 2, Data: make([]uint16, 4)}, make([]int32, 4))
	require.NoError(t, err)

	_, err = Decode(raw[:len(raw)-3])
	var te *TruncatedDataError
	require.True(t, errors.As(err, &te), "expected TruncatedDataError, got %v", err)
	assert.Equal(t, "phase", te.Block)
	assert.Equal(t, 834+8, te.Offset)
	assert.Equal(t, 16, te.Need)
	assert.Equal(t, 13, te.Have)
}

func TestMultipleBuckets(t *testing.T) {
	hdr := syntheticHeader(t, 3, 2, 3, 0, 0)
	stack := &models.IntensityStack{Buckets: 3, Width: 3, Height: 2, Data: make([]uint16, 18)}
	for i := range stack.Data {
		stack.Data[i] = uint16(i * 100)
	}
	raw, err := Encode(hdr, stack, nil)
	require.NoError(t, err)

	m, err := Decode(raw)
	require.NoError(t, err)
	require.NotNil(t, m.Intensity)
	assert.Equal(t, 3, m.Intensity.Buckets)
	assert.Equal(t, stack.Data, m.Intensity.Data)
	assert.Equal(t, uint16((2*6+1*3+2)*100), m.Intensity.At(2, 1, 2))
	assert.Equal(t, stack.Data[6:12], m.Intensity.Frame(1))
}

func TestNegativeGeometry(t *testing.T) {
	hdr := syntheticHeader(t, 0, 0, 0, 2, 2)
	raw, err := Encode(hdr, nil, make([]int32, 4))
	require.NoError(t, err)
	// cn_height is a signed 16-bit field at offset 70
	be.PutUint16(raw[70:72], 0xFFFE)

	_, err = Decode(raw)
	var fe *FormatError
	require.True(t, errors.As(err, &fe), "expected FormatError, got %v", err)
	assert.Equal(t, "cn_height", fe.Field)
}

func TestEncodeChecksBlockSizes(t *testing.T) {
	hdr := syntheticHeader(t, 2, 2, 0, 2, 2)
	_, err := Encode(hdr, nil, make([]int32, 3))
	assert.Error(t, err)

	_, err = Encode(hdr, &models.IntensityStack{Data: make([]uint16, 5)}, make([]int32, 4))
	assert.Error(t, err)
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	hdr := syntheticHeader(t, 0, 0, 0, 2, 1)
	raw, err := Encode(hdr, nil, []int32{10, 20})
	require.NoError(t, err)

	path := filepath.Join(dir, "flat.DAT")
	require.NoError(t, os.WriteFile(path, raw, 0644))

	m, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2*m.Phase.At(0, 0), m.Phase.At(0, 1))

	_, err = ReadFile(filepath.Join(dir, "flat.datx"))
	assert.True(t, errors.Is(err, ErrContainerFormat))

	_, err = ReadFile(filepath.Join(dir, "flat.csv"))
	assert.True(t, errors.Is(err, ErrUnsupportedExtension))

	_, err = ReadFile(filepath.Join(dir, "missing.dat"))
	assert.Error(t, err)
}
