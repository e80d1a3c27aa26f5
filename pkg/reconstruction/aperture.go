// Package reconstruction maps decoded measurements onto physical coordinate
// grids and runs the per-file reduction pipeline.
package reconstruction

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"opticmetro/internal/models"
	"opticmetro/pkg/metropro"
)

// meshGrid returns the X and Y coordinates of a rows x cols pixel grid with
// the given pitch. Row 0 is the top of the image, so Y decreases with the
// row index and the last row sits at Y = 0.
func meshGrid(rows, cols int, pitch float64) (X, Y *mat.Dense) {
	X = mat.NewDense(rows, cols, nil)
	Y = mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		y := float64(rows-1-i) * pitch
		for j := 0; j < cols; j++ {
			X.Set(i, j, float64(j)*pitch)
			Y.Set(i, j, y)
		}
	}
	return X, Y
}

// window copies the sub-matrix at (i, j) of size r x c
func window(m *mat.Dense, i, j, r, c int) *mat.Dense {
	return mat.DenseCopyOf(m.Slice(i, i+r, j, j+c))
}

func cropError(name, format string, args ...any) error {
	off, ok := metropro.FieldOffset(name)
	if !ok {
		off = -1
	}
	return &metropro.FormatError{Field: name, Offset: off, Reason: fmt.Sprintf(format, args...)}
}

func headerInt(hdr *models.Header, name string) (int, error) {
	v, err := hdr.Int(name)
	if err != nil {
		return 0, cropError(name, "%v", err)
	}
	return int(v), nil
}

// Reconstruct embeds the phase map of m into the full camera frame.
//
// Without intensity data the frame is the phase map itself and the full and
// cropped grids are identical. With intensity data the frame takes the
// intensity frame shape; pixels outside the crop window are NaN. A crop
// window that does not fit the frame, or whose extent disagrees with the
// phase map, is a *metropro.FormatError.
func Reconstruct(m *models.Measurement) (*models.ApertureGrids, error) {
	if m.Phase == nil {
		return nil, metropro.ErrNoPhase
	}
	pitch, err := m.Header.Float("lateral_res")
	if err != nil {
		return nil, cropError("lateral_res", "%v", err)
	}

	pr, pc := m.Phase.Dims()

	if m.Intensity == nil {
		X, Y := meshGrid(pr, pc, pitch)
		Z := mat.DenseCopyOf(m.Phase)
		return &models.ApertureGrids{
			X: X, Y: Y, Z: Z,
			XCropped: mat.DenseCopyOf(X),
			YCropped: mat.DenseCopyOf(Y),
			ZCropped: mat.DenseCopyOf(Z),
		}, nil
	}

	rows, cols := m.Intensity.Height, m.Intensity.Width
	if rows <= 0 || cols <= 0 {
		return nil, cropError("ac_width", "intensity frame is %dx%d", cols, rows)
	}
	X, Y := meshGrid(rows, cols, pitch)
	missing := make([]float64, rows*cols)
	for k := range missing {
		missing[k] = math.NaN()
	}
	Z := mat.NewDense(rows, cols, missing)

	if pr == rows && pc == cols {
		Z.Copy(m.Phase)
		return &models.ApertureGrids{
			X: X, Y: Y, Z: Z,
			XCropped: mat.DenseCopyOf(X),
			YCropped: mat.DenseCopyOf(Y),
			ZCropped: mat.DenseCopyOf(Z),
		}, nil
	}

	orgY, err := headerInt(m.Header, "cn_org_y")
	if err != nil {
		return nil, err
	}
	orgX, err := headerInt(m.Header, "cn_org_x")
	if err != nil {
		return nil, err
	}
	height, err := headerInt(m.Header, "cn_height")
	if err != nil {
		return nil, err
	}
	width, err := headerInt(m.Header, "cn_width")
	if err != nil {
		return nil, err
	}

	switch {
	case height != pr:
		return nil, cropError("cn_height", "crop height %d does not match phase height %d", height, pr)
	case width != pc:
		return nil, cropError("cn_width", "crop width %d does not match phase width %d", width, pc)
	case orgY < 0 || orgY+height > rows:
		return nil, cropError("cn_org_y", "rows %d..%d fall outside the %d-row frame", orgY, orgY+height, rows)
	case orgX < 0 || orgX+width > cols:
		return nil, cropError("cn_org_x", "columns %d..%d fall outside the %d-column frame", orgX, orgX+width, cols)
	}

	Z.Slice(orgY, orgY+height, orgX, orgX+width).(*mat.Dense).Copy(m.Phase)

	return &models.ApertureGrids{
		X: X, Y: Y, Z: Z,
		XCropped: window(X, orgY, orgX, height, width),
		YCropped: window(Y, orgY, orgX, height, width),
		ZCropped: window(Z, orgY, orgX, height, width),
	}, nil
}
