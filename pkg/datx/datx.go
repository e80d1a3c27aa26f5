// Package datx normalises the attributes and phase values of Zygo HDF5
// (.datx) containers once they have been read into memory. Reading the
// HDF5 container itself is left to the caller.
package datx

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strings"

	"gonum.org/v1/gonum/mat"

	"opticmetro/internal/models"
)

const attributePrefix = "Data Context.Data Attributes."

// Attribute keys consumed by LateralResolution
const (
	ResolutionUnitKey  = "Resolution:Unit"
	ResolutionValueKey = "Resolution:Value"
	LateralResKey      = "lateral_res"
)

var skippedAttributes = map[string]bool{
	"Property Bag List": true,
	"Group Number":      true,
	"TextCount":         true,
}

// unitScale converts a lateral resolution unit to metres. "MiliMeters" is
// the spelling written by the instrument software.
var unitScale = map[string]float64{
	"Meters":      1,
	"MiliMeters":  1e-3,
	"MilliMeters": 1e-3,
	"MicroMeters": 1e-6,
	"NanoMeters":  1e-9,
}

// UnsupportedUnitError reports a lateral resolution unit outside the known
// set.
type UnsupportedUnitError struct {
	Unit string
}

func (e *UnsupportedUnitError) Error() string {
	return fmt.Sprintf("datx: unsupported lateral resolution unit %q", e.Unit)
}

// NormalizeAttributes flattens raw container attributes into scalar
// metadata. Keys lose the "Data Context.Data Attributes." prefix,
// bookkeeping keys are dropped, and array values are reduced to their first
// element. Values that are not text, integer or floating point are skipped.
func NormalizeAttributes(raw map[string]any) map[string]any {
	meta := make(map[string]any, len(raw))
	for key, value := range raw {
		if strings.HasPrefix(key, attributePrefix) {
			key = strings.TrimPrefix(key, attributePrefix)
		} else if skippedAttributes[key] {
			continue
		}
		if v, ok := scalar(value); ok {
			meta[key] = v
		}
	}
	return meta
}

// scalar reduces v to a string, int64 or float64
func scalar(v any) (any, bool) {
	switch x := v.(type) {
	case nil:
		return nil, false
	case string:
		return x, true
	case []byte:
		return string(x), true
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if rv.Len() == 0 {
			return nil, false
		}
		return scalar(rv.Index(0).Interface())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return nil, false
		}
		return int64(u), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	case reflect.String:
		return rv.String(), true
	}
	return nil, false
}

// LateralResolution converts the resolution attributes to metres per pixel
// and stores the result under "lateral_res".
func LateralResolution(meta map[string]any) (float64, error) {
	unit, ok := meta[ResolutionUnitKey].(string)
	if !ok {
		return 0, fmt.Errorf("datx: missing %q attribute", ResolutionUnitKey)
	}
	var value float64
	switch v := meta[ResolutionValueKey].(type) {
	case float64:
		value = v
	case int64:
		value = float64(v)
	default:
		return 0, fmt.Errorf("datx: missing or non-numeric %q attribute", ResolutionValueKey)
	}

	scale, ok := unitScale[unit]
	if !ok {
		return 0, &UnsupportedUnitError{Unit: unit}
	}
	res := value * scale
	meta[LateralResKey] = res
	return res, nil
}

// CalibratePhase converts raw surface values to metres. Values at or above
// noData become NaN; the rest are multiplied by
// obliquity * scale * wavelength. phase is left untouched.
func CalibratePhase(phase mat.Matrix, noData, wavelength, scale, obliquity float64) *mat.Dense {
	rows, cols := phase.Dims()
	if rows == 0 || cols == 0 {
		return nil
	}
	factor := obliquity * scale * wavelength
	out := mat.NewDense(rows, cols, nil)
	out.Apply(func(i, j int, v float64) float64 {
		if v >= noData || math.IsNaN(v) {
			return math.NaN()
		}
		return v * factor
	}, phase)
	return out
}

// Header copies normalised metadata into a Header ordered by key
func Header(meta map[string]any) (*models.Header, error) {
	keys := make([]string, 0, len(meta))
	for k := range meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	hdr := models.NewHeader()
	for _, k := range keys {
		switch v := meta[k].(type) {
		case string, int64, float64:
			hdr.Set(k, v)
		default:
			return nil, errors.New("datx: attribute " + k + " is not a normalised scalar")
		}
	}
	return hdr, nil
}
