package main

import (
	"math"
	"os"

	"opticmetro/internal/models"
	"opticmetro/pkg/metropro"
)

// Synthetic measurement geometry: a 64x64 camera frame with a 48x48 crop
// window holding a circular aperture over a spherical cap with some tilt.
const (
	synthFrame    = 64
	synthCrop     = 48
	synthOrigin   = 8
	synthPixel    = 50e-6
	synthRadius   = 5.0
	synthWave     = 632.8e-9
	synthTiltX    = 2e-7
	synthRippleNm = 3.0
)

// synthetic builds the header, intensity and raw phase counts of a
// synthetic measurement
func synthetic() (*models.Header, *models.IntensityStack, []int32, error) {
	hdr, err := metropro.NewHeader(3)
	if err != nil {
		return nil, nil, nil, err
	}
	hdr.Set("ac_width", int64(synthFrame))
	hdr.Set("ac_height", int64(synthFrame))
	hdr.Set("ac_n_buckets", int64(1))
	hdr.Set("ac_range", int64(65535))
	hdr.Set("ac_n_bytes", int64(2*synthFrame*synthFrame))
	hdr.Set("cn_org_x", int64(synthOrigin))
	hdr.Set("cn_org_y", int64(synthOrigin))
	hdr.Set("cn_width", int64(synthCrop))
	hdr.Set("cn_height", int64(synthCrop))
	hdr.Set("cn_n_bytes", int64(4*synthCrop*synthCrop))
	hdr.Set("intf_scale_factor", 0.5)
	hdr.Set("wavelength_in", synthWave)
	hdr.Set("obliquity_factor", 1.0)
	hdr.Set("num_aperture", 0.08)
	hdr.Set("lateral_res", synthPixel)
	hdr.Set("phase_res", int64(1))
	hdr.Set("comment", "synthetic spherical cap")
	hdr.Set("part_name", "synthetic")
	hdr.Set("part_ser_num", "SYN-0001")

	scale, err := metropro.HeightScale(hdr)
	if err != nil {
		return nil, nil, nil, err
	}

	intensity := &models.IntensityStack{
		Buckets: 1,
		Width:   synthFrame,
		Height:  synthFrame,
		Data:    make([]uint16, synthFrame*synthFrame),
	}
	counts := make([]int32, synthCrop*synthCrop)

	c := float64(synthCrop-1) / 2
	for i := 0; i < synthCrop; i++ {
		for j := 0; j < synthCrop; j++ {
			dx, dy := float64(j)-c, float64(i)-c
			r := math.Hypot(dx, dy)
			if r > c {
				counts[i*synthCrop+j] = metropro.InvalidPhase
				continue
			}
			x, y := dx*synthPixel, dy*synthPixel
			z := (x*x+y*y)/(2*synthRadius) + synthTiltX*x/(synthCrop*synthPixel) +
				synthRippleNm*1e-9*math.Sin(2*math.Pi*float64(j)/8)
			counts[i*synthCrop+j] = int32(math.Round(z / scale))

			intensity.Data[(i+synthOrigin)*synthFrame+j+synthOrigin] = uint16(40000 - 400*r)
		}
	}
	return hdr, intensity, counts, nil
}

// writeSynthetic writes a synthetic .dat measurement to path
func writeSynthetic(path string) error {
	hdr, intensity, counts, err := synthetic()
	if err != nil {
		return err
	}
	raw, err := metropro.Encode(hdr, intensity, counts)
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0644)
}
