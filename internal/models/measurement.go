package models

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// HeaderField is one decoded header entry. Value holds an int64, float64,
// string or []float64 depending on the field's on-disk type.
type HeaderField struct {
	Name  string
	Value any
}

// Header is the ordered set of fields decoded from a measurement file header.
// Field order follows the byte offsets of the layout it was decoded from.
type Header struct {
	fields []HeaderField
	index  map[string]int
}

// NewHeader creates an empty header
func NewHeader() *Header {
	return &Header{index: make(map[string]int)}
}

// Set stores a field value, replacing any earlier value with the same name
// while keeping its original position.
func (h *Header) Set(name string, value any) {
	if i, ok := h.index[name]; ok {
		h.fields[i].Value = value
		return
	}
	h.index[name] = len(h.fields)
	h.fields = append(h.fields, HeaderField{Name: name, Value: value})
}

// Get returns the raw value of a field
func (h *Header) Get(name string) (any, bool) {
	i, ok := h.index[name]
	if !ok {
		return nil, false
	}
	return h.fields[i].Value, true
}

// Fields returns a copy of the fields in decode order
func (h *Header) Fields() []HeaderField {
	out := make([]HeaderField, len(h.fields))
	copy(out, h.fields)
	return out
}

// Len returns the number of fields
func (h *Header) Len() int {
	return len(h.fields)
}

// Int returns an integer field. Missing fields and fields of another kind
// are reported as errors so a caller can name the field it needed.
func (h *Header) Int(name string) (int64, error) {
	v, ok := h.Get(name)
	if !ok {
		return 0, fmt.Errorf("header field %q not present", name)
	}
	i, ok := v.(int64)
	if !ok {
		return 0, fmt.Errorf("header field %q is %T, not an integer", name, v)
	}
	return i, nil
}

// Float returns a floating-point field
func (h *Header) Float(name string) (float64, error) {
	v, ok := h.Get(name)
	if !ok {
		return 0, fmt.Errorf("header field %q not present", name)
	}
	f, ok := v.(float64)
	if !ok {
		return 0, fmt.Errorf("header field %q is %T, not a float", name, v)
	}
	return f, nil
}

// Text returns a text field
func (h *Header) Text(name string) (string, error) {
	v, ok := h.Get(name)
	if !ok {
		return "", fmt.Errorf("header field %q not present", name)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("header field %q is %T, not text", name, v)
	}
	return s, nil
}

// IntensityStack holds the camera intensity frames of a measurement.
type IntensityStack struct {
	// Buckets is the number of frames in Data
	Buckets int

	// Width and Height are the per-frame pixel dimensions
	Width, Height int

	// Data holds Buckets frames of Width*Height samples each, row-major
	Data []uint16
}

// Frame returns bucket b as a row-major slice sharing Data's storage
func (s *IntensityStack) Frame(b int) []uint16 {
	n := s.Width * s.Height
	return s.Data[b*n : (b+1)*n]
}

// At returns the sample at bucket b, row y, column x
func (s *IntensityStack) At(b, y, x int) uint16 {
	return s.Data[(b*s.Height+y)*s.Width+x]
}

// Measurement is the decoded content of one measurement file.
type Measurement struct {
	// Header holds every decoded header field
	Header *Header

	// Intensity is nil when the file carries no intensity data or when the
	// declared intensity block could not be read
	Intensity *IntensityStack

	// Phase is the calibrated height map in metres, [height, width], with
	// NaN marking pixels without data. Nil when the file has no phase data.
	Phase *mat.Dense

	// Warnings collects non-fatal decode problems, such as a truncated
	// intensity block that was dropped
	Warnings []error
}

// ApertureGrids holds the full-frame and cropped coordinate/height triples
// of a measurement. Coordinates and heights are in metres.
type ApertureGrids struct {
	X, Y, Z                      *mat.Dense
	XCropped, YCropped, ZCropped *mat.Dense
}
