package statistics

import (
	"math"
	"testing"
)

func TestRMS(t *testing.T) {
	tests := []struct {
		name     string
		data     []float64
		expected float64
	}{
		{"one to ten", []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, 2.8723},
		{"constant", []float64{3, 3, 3}, 0},
		{"nan ignored", []float64{1, math.NaN(), 3}, 1},
		{"symmetric", []float64{-2, 2}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := RMS(tt.data)
			if math.Abs(result-tt.expected) > 1e-4 {
				t.Errorf("RMS(%v) = %f, want %f", tt.data, result, tt.expected)
			}
		})
	}
}

func TestPV(t *testing.T) {
	data := []float64{1, 2, 3, 4, 5, math.NaN(), 6, 7, 8, 9, 10}
	if pv := PV(data); pv != 9 {
		t.Errorf("Expected PV 9, got %f", pv)
	}
}

func TestEmptyInputIsNaN(t *testing.T) {
	all := []float64{math.NaN(), math.NaN()}
	for name, v := range map[string]float64{
		"RMS":      RMS(all),
		"PV":       PV(all),
		"RobustPV": RobustPV(all, 0.1, 0.1),
		"RMS nil":  RMS(nil),
	} {
		if !math.IsNaN(v) {
			t.Errorf("%s of no finite samples = %f, want NaN", name, v)
		}
	}
}

func TestRobustPV(t *testing.T) {
	data := make([]float64, 101)
	for i := range data {
		data[i] = float64(i)
	}
	// a spike that a plain PV would report
	data[50] = 1e6

	if pv := RobustPV(data, 0, 0); pv != 1e6 {
		t.Errorf("Expected untrimmed robust PV to equal PV, got %f", pv)
	}
	if pv := RobustPV(data, 0.05, 0.05); pv > 100 {
		t.Errorf("Expected the spike to be trimmed, got %f", pv)
	}
	if pv := RobustPV(data, 0.6, 0.6); !math.IsNaN(pv) {
		t.Errorf("Expected NaN for overlapping trims, got %f", pv)
	}
}

func TestFWHMConversions(t *testing.T) {
	if s := FWHMToSigma(5); math.Abs(s-2.1233) > 1e-4 {
		t.Errorf("FWHMToSigma(5) = %f, want 2.1233", s)
	}
	if f := SigmaToFWHM(2.12); math.Round(f) != 5 {
		t.Errorf("SigmaToFWHM(2.12) = %f, want ~5", f)
	}
	if f := SigmaToFWHM(FWHMToSigma(3.7)); math.Abs(f-3.7) > 1e-12 {
		t.Errorf("round trip gave %f", f)
	}
}
