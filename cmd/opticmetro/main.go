package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"opticmetro/pkg/catalog"
	"opticmetro/pkg/config"
	"opticmetro/pkg/metropro"
	"opticmetro/pkg/reconstruction"
)

func main() {
	// Parse command line arguments
	configPath := flag.String("config", "opticmetro.yaml", "YAML configuration file (defaults are used if it does not exist)")
	writeConfig := flag.String("write-config", "", "Write the default configuration to this path and exit")
	numCores := flag.Int("cores", 0, "Number of files reduced in parallel (overrides config)")
	removal := flag.String("removal", "", "Form removal: none, surface, polynomial or sphere (overrides config)")
	order := flag.Int("order", 0, "Polynomial order for polynomial removal (overrides config)")
	cropped := flag.Bool("cropped", false, "Reduce the crop window instead of the full frame")
	axis := flag.String("axis", "", "PSD profile axis: x or y (overrides config)")
	window := flag.String("window", "", "PSD window: welch, hann or none (overrides config)")
	catalogPath := flag.String("catalog", "", "SQLite catalog to record results in (overrides config)")
	verbose := flag.Bool("verbose", false, "Log every processing step")
	dumpHeader := flag.Bool("header", false, "Print the decoded header of each input file")
	synthPath := flag.String("synth", "", "Write a synthetic .dat measurement to this path and exit")
	flag.Parse()

	if *writeConfig != "" {
		if err := config.CreateDefaultConfigFile(*writeConfig); err != nil {
			log.Fatalf("Failed to write configuration: %v", err)
		}
		fmt.Printf("Default configuration written to: %s\n", *writeConfig)
		return
	}

	if *synthPath != "" {
		if err := writeSynthetic(*synthPath); err != nil {
			log.Fatalf("Failed to write synthetic measurement: %v", err)
		}
		fmt.Printf("Synthetic measurement written to: %s\n", *synthPath)
		return
	}

	inputs := flag.Args()
	if len(inputs) == 0 {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Only flags given on the command line override the configuration
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "cores":
			cfg.Processing.NumCores = *numCores
		case "removal":
			cfg.Processing.Removal = *removal
		case "order":
			cfg.Processing.PolynomialOrder = *order
		case "cropped":
			cfg.Processing.UseCropped = *cropped
		case "axis":
			cfg.Spectrum.Axis = *axis
		case "window":
			cfg.Spectrum.Window = *window
		case "catalog":
			cfg.Output.CatalogPath = *catalogPath
		case "verbose":
			cfg.Output.Verbose = *verbose
		}
	})
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	if *dumpHeader {
		for _, path := range inputs {
			printHeader(path)
		}
	}

	params := reconstruction.Params{Config: cfg, Logger: log.Default()}
	if cfg.Output.CatalogPath != "" {
		store, err := catalog.Open(cfg.Output.CatalogPath)
		if err != nil {
			log.Fatalf("Failed to open catalog: %v", err)
		}
		defer store.Close()
		params.Catalog = store
	}

	fmt.Printf("Reducing %d file(s) on %d core(s), removal: %s\n",
		len(inputs), cfg.Processing.NumCores, cfg.Processing.Removal)
	startTime := time.Now()
	results := reconstruction.ProcessFiles(inputs, params)
	processingTime := time.Since(startTime)

	for _, res := range results {
		if res.Err != nil {
			fmt.Printf("\n%s\n  FAILED: %v\n", res.Path, res.Err)
			continue
		}
		printResult(res.Result)
	}
	fmt.Printf("\nCompleted in %.2f seconds\n", processingTime.Seconds())

	if err := reconstruction.Failed(results); err != nil {
		// deferred catalog close is skipped by os.Exit
		if params.Catalog != nil {
			params.Catalog.Close()
		}
		os.Exit(1)
	}
}

func printHeader(path string) {
	m, err := metropro.ReadFile(path)
	if err != nil {
		fmt.Printf("%s: %v\n", path, err)
		return
	}
	fmt.Printf("%s (%d header fields)\n", path, m.Header.Len())
	for _, f := range m.Header.Fields() {
		fmt.Printf("  %-32s %v\n", f.Name, f.Value)
	}
}

func printResult(res *reconstruction.Result) {
	rows, cols := res.Surface.Dims()
	m := res.Metrics
	fmt.Printf("\n%s\n", res.Path)
	fmt.Printf("  Surface: %dx%d, %d valid points\n", cols, rows, m.ValidPoints)
	fmt.Printf("  Removal: %s\n", m.Removal)
	if res.Fit != nil && m.Removal == "sphere" {
		fmt.Printf("  Radius of curvature: %.6g m\n", m.Radius)
	}
	fmt.Printf("  PV:  %.3f nm\n", m.PV*1e9)
	fmt.Printf("  RMS: %.3f nm\n", m.RMS*1e9)
	if s := res.Spectrum; s != nil {
		fmt.Printf("  PSD: %d frequencies up to %.4g 1/m over %d profiles, band RMS %.3f nm\n",
			len(s.Q), s.Q[len(s.Q)-1], s.Profiles, s.RMS()*1e9)
	}
	if res.CatalogID != "" {
		fmt.Printf("  Catalog ID: %s\n", res.CatalogID)
	}
	for _, w := range res.Warnings {
		fmt.Printf("  Warning: %v\n", w)
	}
}
