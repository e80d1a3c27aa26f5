package datx

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestNormalizeAttributes(t *testing.T) {
	raw := map[string]any{
		"Data Context.Data Attributes.Resolution:Unit":  []string{"MicroMeters"},
		"Data Context.Data Attributes.Resolution:Value": []float64{2.5},
		"Data Context.Data Attributes.Part Name":        [][]byte{[]byte("mirror")},
		"Property Bag List":                              []string{"ignored"},
		"Group Number":                                   []int32{4},
		"TextCount":                                      []int32{1},
		"Camera Width":                                   []int32{640},
		"Flags":                                          []uint16{7},
		"Compound":                                       []struct{ A int }{{1}},
		"Empty":                                          []float64{},
		"Surface Wavelength":                             float32(0.5),
	}

	want := map[string]any{
		"Resolution:Unit":    "MicroMeters",
		"Resolution:Value":   2.5,
		"Part Name":          "mirror",
		"Camera Width":       int64(640),
		"Flags":              int64(7),
		"Surface Wavelength": 0.5,
	}
	if diff := cmp.Diff(want, NormalizeAttributes(raw)); diff != "" {
		t.Errorf("NormalizeAttributes mismatch (-want +got):\n%s", diff)
	}
}

func TestLateralResolution(t *testing.T) {
	tests := []struct {
		unit  string
		value any
		want  float64
	}{
		{"Meters", 0.002, 0.002},
		{"MiliMeters", 2.0, 2e-3},
		{"MilliMeters", 2.0, 2e-3},
		{"MicroMeters", 2.0, 2e-6},
		{"NanoMeters", int64(400), 400e-9},
	}
	for _, tt := range tests {
		t.Run(tt.unit, func(t *testing.T) {
			meta := map[string]any{ResolutionUnitKey: tt.unit, ResolutionValueKey: tt.value}
			got, err := LateralResolution(meta)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-15)
			assert.Equal(t, got, meta[LateralResKey])
		})
	}
}

func TestLateralResolutionErrors(t *testing.T) {
	_, err := LateralResolution(map[string]any{ResolutionUnitKey: "Inches", ResolutionValueKey: 1.0})
	var unitErr *UnsupportedUnitError
	require.True(t, errors.As(err, &unitErr))
	assert.Equal(t, "Inches", unitErr.Unit)

	_, err = LateralResolution(map[string]any{ResolutionValueKey: 1.0})
	assert.Error(t, err)

	_, err = LateralResolution(map[string]any{ResolutionUnitKey: "Meters", ResolutionValueKey: "1"})
	assert.Error(t, err)
}

func TestCalibratePhase(t *testing.T) {
	const noData = 1e30
	phase := mat.NewDense(2, 2, []float64{1, 2, noData, -4})
	got := CalibratePhase(phase, noData, 632.8e-9, 0.5, 1.1)
	require.NotNil(t, got)

	factor := 1.1 * 0.5 * 632.8e-9
	assert.InDelta(t, factor, got.At(0, 0), 1e-20)
	assert.InDelta(t, 2*factor, got.At(0, 1), 1e-20)
	assert.True(t, math.IsNaN(got.At(1, 0)))
	assert.InDelta(t, -4*factor, got.At(1, 1), 1e-20)

	// input is not modified
	assert.Equal(t, noData, phase.At(1, 0))
}

func TestHeader(t *testing.T) {
	meta := map[string]any{"b": int64(2), "a": "x", "c": 1.5}
	hdr, err := Header(meta)
	require.NoError(t, err)

	fields := hdr.Fields()
	require.Len(t, fields, 3)
	assert.Equal(t, "a", fields[0].Name)
	assert.Equal(t, "c", fields[2].Name)

	_, err = Header(map[string]any{"bad": []int{1}})
	assert.Error(t, err)
}
