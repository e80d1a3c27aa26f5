package reconstruction

import (
	"errors"
	"fmt"
	"log"
	"math"
	"sync"

	"gonum.org/v1/gonum/mat"

	"opticmetro/internal/models"
	"opticmetro/pkg/catalog"
	"opticmetro/pkg/config"
	"opticmetro/pkg/fitting"
	"opticmetro/pkg/metropro"
	"opticmetro/pkg/spectral"
	"opticmetro/pkg/statistics"
)

// Metrics holds the scalar figures of a reduced height map.
type Metrics struct {
	// RMS is the root-mean-square height deviation about the mean, in metres
	RMS float64

	// PV is the peak-to-valley height, in metres
	PV float64

	// ValidPoints is the number of pixels carrying data
	ValidPoints int

	// Removal names the form removed before the figures were taken
	Removal string

	// Radius is the fitted radius of curvature for sphere removal,
	// otherwise +Inf
	Radius float64
}

// Result is everything produced for one measurement file.
type Result struct {
	Path        string
	Measurement *models.Measurement
	Grids       *models.ApertureGrids

	// Surface is the reduced height map: the full frame or the crop window,
	// with the configured form removed
	Surface *mat.Dense

	// Fit is nil when no form was removed
	Fit *fitting.Fit

	Metrics Metrics

	// Spectrum is nil when no profile of Surface was free of missing data
	Spectrum *spectral.Spectrum

	// CatalogID is set when the result was recorded in a catalog
	CatalogID string

	// Warnings collects non-fatal problems from decoding and reduction
	Warnings []error
}

// Params holds the reduction parameters for one input file.
type Params struct {
	// InputFile is the measurement file to reduce
	InputFile string

	// Config selects the removal, spectrum and output settings.
	// Nil uses config.DefaultConfig().
	Config *config.Config

	// Logger receives progress messages when Config.Output.Verbose is set.
	// Nil uses log.Default().
	Logger *log.Logger

	// Catalog, when set, records every successful result
	Catalog *catalog.Store
}

// Reconstructor runs the reduction of one measurement file:
// 1. Decoding the file
// 2. Reconstructing the full-frame and cropped aperture grids
// 3. Removing the configured form
// 4. Computing RMS and PV
// 5. Computing the 1-D PSD
// 6. Recording the result in the catalog
type Reconstructor struct {
	params *Params
	cfg    *config.Config
	logger *log.Logger

	result  *Result
	metrics Metrics
}

// NewReconstructor creates a new reconstructor instance with the provided parameters.
func NewReconstructor(params *Params) *Reconstructor {
	cfg := params.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	logger := params.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Reconstructor{params: params, cfg: cfg, logger: logger}
}

func (r *Reconstructor) logf(format string, args ...any) {
	if r.cfg.Output.Verbose {
		r.logger.Printf(format, args...)
	}
}

// Process runs the complete reduction pipeline
func (r *Reconstructor) Process() error {
	if err := r.cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	path := r.params.InputFile
	res := &Result{Path: path}

	// Step 1: Decode the measurement file
	r.logf("Step 1: Decoding %s...", path)
	m, err := metropro.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to decode measurement: %w", err)
	}
	res.Measurement = m
	for _, w := range m.Warnings {
		r.logf("Warning: %s: %v", path, w)
		res.Warnings = append(res.Warnings, w)
	}

	// Step 2: Reconstruct the aperture grids
	r.logf("Step 2: Reconstructing aperture...")
	grids, err := Reconstruct(m)
	if err != nil {
		return fmt.Errorf("failed to reconstruct aperture: %w", err)
	}
	res.Grids = grids

	X, Y, Z := grids.X, grids.Y, grids.Z
	if r.cfg.Processing.UseCropped {
		X, Y, Z = grids.XCropped, grids.YCropped, grids.ZCropped
	}

	// Step 3: Remove form
	r.logf("Step 3: Removing form (%s)...", r.cfg.Processing.Removal)
	surface, fit, err := removeForm(r.cfg, X, Y, Z)
	if err != nil {
		return fmt.Errorf("failed to remove form: %w", err)
	}
	res.Surface = surface
	res.Fit = fit

	// Step 4: Compute the scalar figures
	r.logf("Step 4: Computing surface statistics...")
	data := flatten(surface)
	r.metrics = Metrics{
		RMS:         statistics.RMS(data),
		PV:          statistics.PV(data),
		ValidPoints: len(statistics.Finite(data)),
		Removal:     r.cfg.Processing.Removal,
		Radius:      math.Inf(1),
	}
	if fit != nil && fit.Model == fitting.Sphere {
		r.metrics.Radius = fit.Radius()
	}
	res.Metrics = r.metrics

	// Step 5: Compute the PSD
	r.logf("Step 5: Computing %s-axis PSD...", r.cfg.Spectrum.Axis)
	pitch, _ := m.Header.Float("lateral_res")
	spectrum, err := spectral.PSD1D(surface, pitch,
		spectral.Axis(r.cfg.Spectrum.Axis), spectral.WindowType(r.cfg.Spectrum.Window))
	if err != nil {
		w := fmt.Errorf("PSD skipped: %w", err)
		r.logf("Warning: %s: %v", path, w)
		res.Warnings = append(res.Warnings, w)
	}
	res.Spectrum = spectrum

	// Step 6: Record the result
	if r.params.Catalog != nil {
		r.logf("Step 6: Recording in catalog...")
		id, err := r.record(res)
		if err != nil {
			return fmt.Errorf("failed to record measurement: %w", err)
		}
		res.CatalogID = id
	}

	r.result = res
	return nil
}

// removeForm applies the configured removal and returns the residual
func removeForm(cfg *config.Config, X, Y, Z *mat.Dense) (*mat.Dense, *fitting.Fit, error) {
	var rem *fitting.Removal
	var err error
	switch cfg.Processing.Removal {
	case "none":
		return mat.DenseCopyOf(Z), nil, nil
	case "surface":
		rem, err = fitting.RemoveSurface(X, Y, Z)
	case "polynomial":
		rem, err = fitting.RemovePolynomials(X, Y, Z, cfg.Processing.PolynomialOrder)
	case "sphere":
		rem, err = fitting.RemoveSphere(X, Y, Z)
	default:
		return nil, nil, fmt.Errorf("unknown removal %q", cfg.Processing.Removal)
	}
	if err != nil {
		return nil, nil, err
	}
	return rem.Residual, &rem.Fit, nil
}

// flatten copies m into a row-major slice
func flatten(m *mat.Dense) []float64 {
	rows, cols := m.Dims()
	out := make([]float64, 0, rows*cols)
	for i := 0; i < rows; i++ {
		out = append(out, m.RawRowView(i)...)
	}
	return out
}

func (r *Reconstructor) record(res *Result) (string, error) {
	hdr := res.Measurement.Header
	rec := &catalog.Record{
		Path:        res.Path,
		ValidPoints: res.Metrics.ValidPoints,
		RMS:         res.Metrics.RMS,
		PV:          res.Metrics.PV,
		Removal:     res.Metrics.Removal,
	}
	if v, err := hdr.Int("header_format"); err == nil {
		rec.HeaderFormat = int(v)
	}
	rec.PartName, _ = hdr.Text("part_name")
	rec.PartSerial, _ = hdr.Text("part_ser_num")
	rec.Wavelength, _ = hdr.Float("wavelength_in")
	rec.LateralRes, _ = hdr.Float("lateral_res")
	rec.Height, rec.Width = res.Surface.Dims()

	if err := r.params.Catalog.Insert(rec, hdr); err != nil {
		return "", err
	}
	return rec.ID, nil
}

// GetMetrics returns the figures of the last successful Process
func (r *Reconstructor) GetMetrics() Metrics {
	return r.metrics
}

// GetResult returns the result of the last successful Process, or nil
func (r *Reconstructor) GetResult() *Result {
	return r.result
}

// FileResult pairs an input path with its outcome
type FileResult struct {
	Path   string
	Result *Result
	Err    error
}

// ProcessFiles reduces every path with up to Config.Processing.NumCores files
// in flight. Results are returned in input order; a failing file does not
// stop the others. params.InputFile is ignored.
func ProcessFiles(paths []string, params Params) []FileResult {
	results := make([]FileResult, len(paths))
	if len(paths) == 0 {
		return results
	}

	cfg := params.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
		params.Config = cfg
	}
	numWorkers := min(max(cfg.Processing.NumCores, 1), len(paths))

	type processingResult struct {
		idx    int
		result *Result
		err    error
	}
	jobs := make(chan int)
	resultChan := make(chan processingResult)

	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				p := params
				p.InputFile = paths[idx]
				r := NewReconstructor(&p)
				err := r.Process()
				resultChan <- processingResult{idx: idx, result: r.GetResult(), err: err}
			}
		}()
	}

	go func() {
		for i := range paths {
			jobs <- i
		}
		close(jobs)
		wg.Wait()
		close(resultChan)
	}()

	logger := params.Logger
	if logger == nil {
		logger = log.Default()
	}
	completed, failed := 0, 0
	for res := range resultChan {
		results[res.idx] = FileResult{Path: paths[res.idx], Result: res.result, Err: res.err}
		completed++
		if res.err != nil {
			failed++
		}
		if cfg.Output.Verbose {
			logger.Printf("Progress: %d/%d files processed (%d failed)", completed, len(paths), failed)
		}
	}
	return results
}

// Failed returns the errors of the failed results, joined
func Failed(results []FileResult) error {
	var errs []error
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", r.Path, r.Err))
		}
	}
	return errors.Join(errs...)
}
