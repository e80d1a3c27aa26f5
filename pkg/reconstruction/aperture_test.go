package reconstruction

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"opticmetro/internal/models"
	"opticmetro/pkg/metropro"
)

const pitch = 0.5

func cropHeader(orgX, orgY, width, height int) *models.Header {
	hdr := models.NewHeader()
	hdr.Set("lateral_res", pitch)
	hdr.Set("cn_org_x", int64(orgX))
	hdr.Set("cn_org_y", int64(orgY))
	hdr.Set("cn_width", int64(width))
	hdr.Set("cn_height", int64(height))
	return hdr
}

func phaseMap(rows, cols int) *mat.Dense {
	p := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			p.Set(i, j, float64(10*i+j+1))
		}
	}
	p.Set(rows-1, 0, math.NaN())
	return p
}

func frame(rows, cols int) *models.IntensityStack {
	return &models.IntensityStack{Buckets: 1, Width: cols, Height: rows, Data: make([]uint16, rows*cols)}
}

// equalNaN compares matrices treating NaN as equal to NaN
func equalNaN(t *testing.T, want, got *mat.Dense) {
	t.Helper()
	wr, wc := want.Dims()
	gr, gc := got.Dims()
	require.Equal(t, [2]int{wr, wc}, [2]int{gr, gc}, "shape")
	for i := 0; i < wr; i++ {
		for j := 0; j < wc; j++ {
			w, g := want.At(i, j), got.At(i, j)
			if math.IsNaN(w) {
				assert.True(t, math.IsNaN(g), "(%d,%d) expected NaN, got %g", i, j, g)
				continue
			}
			assert.Equal(t, w, g, "(%d,%d)", i, j)
		}
	}
}

func TestReconstructWithoutIntensity(t *testing.T) {
	m := &models.Measurement{Header: cropHeader(0, 0, 4, 3), Phase: phaseMap(3, 4)}

	g, err := Reconstruct(m)
	require.NoError(t, err)

	equalNaN(t, m.Phase, g.Z)
	equalNaN(t, g.X, g.XCropped)
	equalNaN(t, g.Y, g.YCropped)
	equalNaN(t, g.Z, g.ZCropped)

	// Y is flipped: the top row has the largest Y and the bottom row Y = 0
	assert.Equal(t, 2*pitch, g.Y.At(0, 0))
	assert.Equal(t, 0.0, g.Y.At(2, 3))
	assert.Equal(t, 3*pitch, g.X.At(1, 3))
	assert.Equal(t, 0.0, g.X.At(1, 0))
}

func TestReconstructMatchingShapes(t *testing.T) {
	m := &models.Measurement{
		Header:    cropHeader(5, 5, 4, 3), // crop fields are not consulted
		Intensity: frame(3, 4),
		Phase:     phaseMap(3, 4),
	}

	g, err := Reconstruct(m)
	require.NoError(t, err)
	equalNaN(t, m.Phase, g.Z)
	equalNaN(t, g.Z, g.ZCropped)
	equalNaN(t, g.X, g.XCropped)
	equalNaN(t, g.Y, g.YCropped)
}

func TestReconstructCropWindow(t *testing.T) {
	const rows, cols = 6, 8
	const orgX, orgY, width, height = 1, 2, 4, 3
	m := &models.Measurement{
		Header:    cropHeader(orgX, orgY, width, height),
		Intensity: frame(rows, cols),
		Phase:     phaseMap(height, width),
	}

	g, err := Reconstruct(m)
	require.NoError(t, err)

	r, c := g.Z.Dims()
	require.Equal(t, rows, r)
	require.Equal(t, cols, c)

	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			inside := i >= orgY && i < orgY+height && j >= orgX && j < orgX+width
			if !inside {
				assert.True(t, math.IsNaN(g.Z.At(i, j)), "(%d,%d) outside the crop should be NaN", i, j)
			}
		}
	}
	equalNaN(t, m.Phase, mat.DenseCopyOf(g.Z.Slice(orgY, orgY+height, orgX, orgX+width)))

	equalNaN(t, m.Phase, g.ZCropped)
	assert.Equal(t, float64(orgX)*pitch, g.XCropped.At(0, 0))
	assert.Equal(t, float64(rows-1-orgY)*pitch, g.YCropped.At(0, 0))
	assert.Equal(t, float64(rows-orgY-height)*pitch, g.YCropped.At(height-1, 0))

	// cropped outputs do not alias the full frame
	g.ZCropped.Set(0, 0, -1)
	assert.NotEqual(t, -1.0, g.Z.At(orgY, orgX))
}

func TestReconstructBadCropWindow(t *testing.T) {
	tests := []struct {
		name  string
		hdr   *models.Header
		field string
	}{
		{"right edge", cropHeader(6, 0, 4, 3), "cn_org_x"},
		{"bottom edge", cropHeader(0, 4, 4, 3), "cn_org_y"},
		{"negative x", cropHeader(-1, 0, 4, 3), "cn_org_x"},
		{"negative y", cropHeader(0, -2, 4, 3), "cn_org_y"},
		{"width", cropHeader(0, 0, 5, 3), "cn_width"},
		{"height", cropHeader(0, 0, 4, 2), "cn_height"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &models.Measurement{Header: tt.hdr, Intensity: frame(6, 8), Phase: phaseMap(3, 4)}
			_, err := Reconstruct(m)

			var fe *metropro.FormatError
			require.True(t, errors.As(err, &fe), "expected FormatError, got %v", err)
			assert.Equal(t, tt.field, fe.Field)
			off, _ := metropro.FieldOffset(tt.field)
			assert.Equal(t, off, fe.Offset)
		})
	}
}

func TestReconstructMissingCropField(t *testing.T) {
	hdr := models.NewHeader()
	hdr.Set("lateral_res", pitch)
	m := &models.Measurement{Header: hdr, Intensity: frame(6, 8), Phase: phaseMap(3, 4)}

	_, err := Reconstruct(m)
	var fe *metropro.FormatError
	assert.True(t, errors.As(err, &fe))
}

func TestReconstructWithoutPhase(t *testing.T) {
	m := &models.Measurement{Header: cropHeader(0, 0, 0, 0), Intensity: frame(3, 4)}
	_, err := Reconstruct(m)
	assert.True(t, errors.Is(err, metropro.ErrNoPhase))
}

// TestReconstructDecodedFile runs a cropped measurement through the binary
// encoder and decoder before reconstructing it
func TestReconstructDecodedFile(t *testing.T) {
	hdr, err := metropro.NewHeader(2)
	require.NoError(t, err)
	hdr.Set("ac_width", int64(5))
	hdr.Set("ac_height", int64(4))
	hdr.Set("ac_n_buckets", int64(1))
	hdr.Set("cn_org_x", int64(2))
	hdr.Set("cn_org_y", int64(1))
	hdr.Set("cn_width", int64(3))
	hdr.Set("cn_height", int64(2))
	hdr.Set("intf_scale_factor", 1.0)
	hdr.Set("obliquity_factor", 1.0)
	hdr.Set("wavelength_in", 4096.0)
	hdr.Set("lateral_res", 0.25)

	counts := []int32{1, 2, 3, 4, 5, metropro.InvalidPhase}
	raw, err := metropro.Encode(hdr, nil, counts)
	require.NoError(t, err)

	m, err := metropro.Decode(raw)
	require.NoError(t, err)
	require.NotNil(t, m.Intensity)

	g, err := Reconstruct(m)
	require.NoError(t, err)

	want := mat.NewDense(2, 3, []float64{1, 2, 3, 4, 5, math.NaN()})
	equalNaN(t, want, g.ZCropped)
	assert.Equal(t, 2.0, g.Z.At(1, 3))
	assert.True(t, math.IsNaN(g.Z.At(0, 0)))
	assert.Equal(t, 0.5, g.XCropped.At(0, 0))
	assert.Equal(t, 0.5, g.YCropped.At(0, 0))
}
