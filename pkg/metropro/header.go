// Package metropro decodes MetroPro binary interferometer files (.dat).
//
// A file is a fixed-layout header followed by an optional block of camera
// intensity frames and an optional block of phase counts. Decode turns the
// bytes into a models.Measurement with the phase already converted to
// heights in metres; Encode performs the inverse for synthetic files.
package metropro

import (
	"bytes"
	"fmt"
	"math"

	"golang.org/x/text/encoding/charmap"

	"opticmetro/internal/models"
)

// identitySize is the length of the magic/format/size triple at offset 0
const identitySize = 10

// revision is one known header generation.
type revision struct {
	format int
	magic  uint32
	size   int
}

var revisions = []revision{
	{format: 1, magic: 0x881B036F, size: 834},
	{format: 2, magic: 0x881B0370, size: 834},
	{format: 3, magic: 0x881B0371, size: 4096},
}

func revisionFor(format int) (revision, bool) {
	for _, r := range revisions {
		if r.format == format {
			return r, true
		}
	}
	return revision{}, false
}

// identify validates the identity triple at the start of raw.
func identify(raw []byte) (revision, error) {
	if len(raw) < identitySize {
		return revision{}, &FormatError{
			Field:  "magic_number",
			Offset: 0,
			Reason: fmt.Sprintf("file is %d bytes, shorter than the %d-byte identity block", len(raw), identitySize),
		}
	}

	magic := be.Uint32(raw[0:4])
	format := int(be.Uint16(raw[4:6]))
	size := int(be.Uint32(raw[6:10]))

	for _, r := range revisions {
		if r.magic == magic && r.format == format && r.size == size {
			return r, nil
		}
	}
	return revision{}, &FormatError{
		Field:  "magic_number",
		Offset: 0,
		Reason: fmt.Sprintf("unknown header identity (magic 0x%08X, format %d, size %d)", magic, format, size),
	}
}

// DecodeHeader decodes the header at the start of raw.
func DecodeHeader(raw []byte) (*models.Header, error) {
	rev, err := identify(raw)
	if err != nil {
		return nil, err
	}
	if len(raw) < rev.size {
		return nil, &TruncatedDataError{Block: "header", Offset: 0, Need: rev.size, Have: len(raw)}
	}

	hdr := models.NewHeader()
	for _, f := range headerFields {
		if f.since > rev.format {
			continue
		}
		v, err := decodeField(raw[f.offset:f.offset+f.size()], f)
		if err != nil {
			return nil, err
		}
		hdr.Set(f.name, v)
	}
	return hdr, nil
}

func decodeField(b []byte, f field) (any, error) {
	switch f.kind {
	case kindU16:
		return int64(f.order.Uint16(b)), nil
	case kindI16:
		return int64(int16(f.order.Uint16(b))), nil
	case kindU32:
		return int64(f.order.Uint32(b)), nil
	case kindI32:
		return int64(int32(f.order.Uint32(b))), nil
	case kindByte:
		return int64(b[0]), nil
	case kindF32:
		if f.count == 1 {
			return float64(math.Float32frombits(f.order.Uint32(b))), nil
		}
		out := make([]float64, f.count)
		for i := range out {
			out[i] = float64(math.Float32frombits(f.order.Uint32(b[4*i:])))
		}
		return out, nil
	case kindText:
		s, err := charmap.ISO8859_1.NewDecoder().Bytes(bytes.TrimRight(b, "\x00"))
		if err != nil {
			return nil, &FormatError{Field: f.name, Offset: f.offset, Reason: err.Error()}
		}
		return string(s), nil
	}
	return nil, &FormatError{Field: f.name, Offset: f.offset, Reason: "unknown field type"}
}

// EncodeHeader produces the byte image of hdr. The revision is chosen by
// the header_format field; magic_number and header_size are always written
// from that revision. Fields absent from hdr encode as zero.
func EncodeHeader(hdr *models.Header) ([]byte, error) {
	format, err := hdr.Int("header_format")
	if err != nil {
		return nil, formatError("header_format", "%v", err)
	}
	rev, ok := revisionFor(int(format))
	if !ok {
		return nil, formatError("header_format", "unknown header format %d", format)
	}

	buf := make([]byte, rev.size)
	be.PutUint32(buf[0:4], rev.magic)
	be.PutUint16(buf[4:6], uint16(rev.format))
	be.PutUint32(buf[6:10], uint32(rev.size))

	for _, f := range headerFields {
		if f.since > rev.format || f.offset < identitySize {
			continue
		}
		v, ok := hdr.Get(f.name)
		if !ok {
			continue
		}
		if err := encodeField(buf[f.offset:f.offset+f.size()], f, v); err != nil {
			return nil, err
		}
	}
	return buf, nil
}

func encodeField(b []byte, f field, v any) error {
	switch f.kind {
	case kindU16, kindI16, kindU32, kindI32, kindByte:
		i, ok := v.(int64)
		if !ok {
			return &FormatError{Field: f.name, Offset: f.offset, Reason: fmt.Sprintf("expected an integer, got %T", v)}
		}
		lo, hi := intRange(f.kind)
		if i < lo || i > hi {
			return &FormatError{Field: f.name, Offset: f.offset, Reason: fmt.Sprintf("value %d out of range [%d, %d]", i, lo, hi)}
		}
		switch f.kind {
		case kindU16, kindI16:
			f.order.PutUint16(b, uint16(i))
		case kindU32, kindI32:
			f.order.PutUint32(b, uint32(i))
		default:
			b[0] = byte(i)
		}
	case kindF32:
		var vals []float64
		switch x := v.(type) {
		case float64:
			vals = []float64{x}
		case []float64:
			vals = x
		default:
			return &FormatError{Field: f.name, Offset: f.offset, Reason: fmt.Sprintf("expected a float, got %T", v)}
		}
		if len(vals) != f.count {
			return &FormatError{Field: f.name, Offset: f.offset, Reason: fmt.Sprintf("expected %d values, got %d", f.count, len(vals))}
		}
		for i, x := range vals {
			f.order.PutUint32(b[4*i:], math.Float32bits(float32(x)))
		}
	case kindText:
		s, ok := v.(string)
		if !ok {
			return &FormatError{Field: f.name, Offset: f.offset, Reason: fmt.Sprintf("expected text, got %T", v)}
		}
		enc, err := charmap.ISO8859_1.NewEncoder().Bytes([]byte(s))
		if err != nil {
			return &FormatError{Field: f.name, Offset: f.offset, Reason: fmt.Sprintf("text not representable in ISO-8859-1: %v", err)}
		}
		if len(enc) > f.count {
			return &FormatError{Field: f.name, Offset: f.offset, Reason: fmt.Sprintf("text is %d bytes, field holds %d", len(enc), f.count)}
		}
		copy(b, enc)
	}
	return nil
}

func intRange(k fieldKind) (int64, int64) {
	switch k {
	case kindU16:
		return 0, math.MaxUint16
	case kindI16:
		return math.MinInt16, math.MaxInt16
	case kindU32:
		return 0, math.MaxUint32
	case kindI32:
		return math.MinInt32, math.MaxInt32
	default:
		return 0, math.MaxUint8
	}
}

// NewHeader returns a header of the given revision with every field of
// that revision present and zero-valued, identity fields filled in.
func NewHeader(format int) (*models.Header, error) {
	rev, ok := revisionFor(format)
	if !ok {
		return nil, formatError("header_format", "unknown header format %d", format)
	}
	hdr := models.NewHeader()
	for _, f := range headerFields {
		if f.since > rev.format {
			continue
		}
		switch {
		case f.kind == kindText:
			hdr.Set(f.name, "")
		case f.kind == kindF32 && f.count > 1:
			hdr.Set(f.name, make([]float64, f.count))
		case f.kind == kindF32:
			hdr.Set(f.name, 0.0)
		default:
			hdr.Set(f.name, int64(0))
		}
	}
	hdr.Set("magic_number", int64(rev.magic))
	hdr.Set("header_format", int64(rev.format))
	hdr.Set("header_size", int64(rev.size))
	return hdr, nil
}
