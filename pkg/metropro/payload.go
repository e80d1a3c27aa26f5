package metropro

import (
	"opticmetro/internal/models"
)

// geometry is the pixel extent of one data block.
type geometry struct {
	width, height, buckets int
}

func (g geometry) samples() int {
	return g.width * g.height * g.buckets
}

// blockGeometry reads width/height (and optionally bucket count) fields
// from hdr. Negative extents are format errors.
func blockGeometry(hdr *models.Header, widthField, heightField, bucketField string) (geometry, error) {
	g := geometry{buckets: 1}
	for _, f := range []struct {
		name string
		dst  *int
	}{
		{widthField, &g.width},
		{heightField, &g.height},
	} {
		v, err := hdr.Int(f.name)
		if err != nil {
			return geometry{}, formatError(f.name, "%v", err)
		}
		if v < 0 {
			return geometry{}, formatError(f.name, "negative extent %d", v)
		}
		*f.dst = int(v)
	}

	if bucketField != "" {
		n, err := hdr.Int(bucketField)
		if err != nil {
			return geometry{}, formatError(bucketField, "%v", err)
		}
		if n < 0 {
			return geometry{}, formatError(bucketField, "negative bucket count %d", n)
		}
		// zero buckets means a single implicit frame
		if n > 1 {
			g.buckets = int(n)
		}
	}
	return g, nil
}

func intensityGeometry(hdr *models.Header) (geometry, error) {
	return blockGeometry(hdr, "ac_width", "ac_height", "ac_n_buckets")
}

func phaseGeometry(hdr *models.Header) (geometry, error) {
	return blockGeometry(hdr, "cn_width", "cn_height", "")
}

// extractIntensity reads the intensity block starting at offset. It returns
// the block's byte span whether or not the block could be read, because the
// phase block follows it regardless.
func extractIntensity(raw []byte, g geometry, offset int) (*models.IntensityStack, int, error) {
	span := g.samples() * 2
	if span == 0 {
		return nil, 0, nil
	}
	if offset+span > len(raw) {
		return nil, span, &TruncatedDataError{Block: "intensity", Offset: offset, Need: span, Have: max(len(raw)-offset, 0)}
	}

	stack := &models.IntensityStack{
		Buckets: g.buckets,
		Width:   g.width,
		Height:  g.height,
		Data:    make([]uint16, g.samples()),
	}
	b := raw[offset : offset+span]
	for i := range stack.Data {
		stack.Data[i] = be.Uint16(b[2*i:])
	}
	return stack, span, nil
}

// extractPhase reads the raw phase counts starting at offset.
func extractPhase(raw []byte, g geometry, offset int) ([]int32, error) {
	n := g.samples()
	if n == 0 {
		return nil, nil
	}
	span := n * 4
	if offset+span > len(raw) {
		return nil, &TruncatedDataError{Block: "phase", Offset: offset, Need: span, Have: max(len(raw)-offset, 0)}
	}

	counts := make([]int32, n)
	b := raw[offset : offset+span]
	for i := range counts {
		counts[i] = int32(be.Uint32(b[4*i:]))
	}
	return counts, nil
}
