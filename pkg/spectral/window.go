package spectral

import (
	"fmt"
	"math"
	"strings"
)

// WindowType names a tapering window applied to profiles before their
// spectrum is taken
type WindowType string

const (
	WindowHann  WindowType = "hann"
	WindowWelch WindowType = "welch"
	WindowNone  WindowType = "none"
)

// ParseWindow parses a window name, ignoring case
func ParseWindow(name string) (WindowType, error) {
	switch w := WindowType(strings.ToLower(name)); w {
	case WindowHann, WindowWelch, WindowNone:
		return w, nil
	}
	return "", fmt.Errorf("invalid window type %q (must be hann, welch or none)", name)
}

// Window returns n samples of the given window over [0, n-1].
func Window(n int, win WindowType) ([]float64, error) {
	if n < 0 {
		return nil, fmt.Errorf("the number of window samples cannot be %d", n)
	}
	w := make([]float64, n)
	if n == 1 {
		w[0] = 1
		if _, err := ParseWindow(string(win)); err != nil {
			return nil, err
		}
		return w, nil
	}

	half := float64(n-1) / 2
	switch WindowType(strings.ToLower(string(win))) {
	case WindowHann:
		for k := range w {
			w[k] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(k)/float64(n-1))
		}
	case WindowWelch:
		for k := range w {
			r := (float64(k) - half) / half
			w[k] = 1 - r*r
		}
	case WindowNone:
		for k := range w {
			w[k] = 1
		}
	default:
		return nil, fmt.Errorf("invalid window type %q (must be hann, welch or none)", win)
	}
	return w, nil
}
