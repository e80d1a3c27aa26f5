package metropro

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"opticmetro/internal/models"
)

// ReadFile reads and decodes a measurement file. The format is chosen by
// extension: .dat files are decoded here, .datx container files are
// rejected with ErrContainerFormat.
func ReadFile(path string) (*models.Measurement, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".dat":
	case ".datx":
		return nil, fmt.Errorf("%s: %w", path, ErrContainerFormat)
	default:
		return nil, fmt.Errorf("%s: %w", path, ErrUnsupportedExtension)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read measurement file: %w", err)
	}

	m, err := Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Decode decodes a complete in-memory measurement file.
//
// A truncated intensity block is not fatal: the measurement is returned
// without intensity and the TruncatedDataError is recorded in Warnings.
// A truncated phase block is fatal.
func Decode(raw []byte) (*models.Measurement, error) {
	hdr, err := DecodeHeader(raw)
	if err != nil {
		return nil, err
	}
	headerSize, err := hdr.Int("header_size")
	if err != nil {
		return nil, formatError("header_size", "%v", err)
	}

	m := &models.Measurement{Header: hdr}

	ig, err := intensityGeometry(hdr)
	if err != nil {
		return nil, err
	}
	offset := int(headerSize)
	intensity, span, err := extractIntensity(raw, ig, offset)
	var truncated *TruncatedDataError
	switch {
	case errors.As(err, &truncated):
		m.Warnings = append(m.Warnings, err)
	case err != nil:
		return nil, err
	}
	m.Intensity = intensity

	pg, err := phaseGeometry(hdr)
	if err != nil {
		return nil, err
	}
	counts, err := extractPhase(raw, pg, offset+span)
	if err != nil {
		return nil, err
	}
	m.Phase, err = Calibrate(counts, pg.width, pg.height, hdr)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// Encode produces a complete measurement file from a header, an optional
// intensity stack and optional raw phase counts. The block sizes must agree
// with the geometry declared in hdr.
func Encode(hdr *models.Header, intensity *models.IntensityStack, phaseCounts []int32) ([]byte, error) {
	head, err := EncodeHeader(hdr)
	if err != nil {
		return nil, err
	}

	ig, err := intensityGeometry(hdr)
	if err != nil {
		return nil, err
	}
	var nIntensity int
	if intensity != nil {
		nIntensity = len(intensity.Data)
	}
	if nIntensity != ig.samples() && nIntensity != 0 {
		return nil, formatError("ac_width", "intensity has %d samples, header declares %d", nIntensity, ig.samples())
	}

	pg, err := phaseGeometry(hdr)
	if err != nil {
		return nil, err
	}
	if len(phaseCounts) != pg.samples() {
		return nil, formatError("cn_width", "phase has %d samples, header declares %d", len(phaseCounts), pg.samples())
	}

	// an absent intensity block still occupies its declared span
	out := make([]byte, len(head), len(head)+2*ig.samples()+4*pg.samples())
	copy(out, head)
	iblock := make([]byte, 2*ig.samples())
	if intensity != nil {
		for i, v := range intensity.Data {
			be.PutUint16(iblock[2*i:], v)
		}
	}
	out = append(out, iblock...)

	pblock := make([]byte, 4*len(phaseCounts))
	for i, c := range phaseCounts {
		be.PutUint32(pblock[4*i:], uint32(c))
	}
	return append(out, pblock...), nil
}
