// Package config provides configuration loading and management for opticmetro.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Processing parameters
	Processing struct {
		// NumCores specifies how many files are reduced in parallel
		NumCores int `yaml:"numCores"`

		// Removal names the form removed before statistics are taken:
		// none, surface, polynomial or sphere
		Removal string `yaml:"removal"`

		// PolynomialOrder is the total degree used by polynomial removal
		PolynomialOrder int `yaml:"polynomialOrder"`

		// UseCropped reduces the connected-phase window instead of the full frame
		UseCropped bool `yaml:"useCropped"`
	} `yaml:"processing"`

	// Spectrum parameters
	Spectrum struct {
		// Axis is the profile direction of the 1-D PSD (x or y)
		Axis string `yaml:"axis"`

		// Window is the taper applied to each profile (welch, hann or none)
		Window string `yaml:"window"`
	} `yaml:"spectrum"`

	// Output parameters
	Output struct {
		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`

		// CatalogPath is the SQLite catalog the results are recorded in.
		// Empty disables the catalog.
		CatalogPath string `yaml:"catalogPath"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Processing.NumCores = runtime.NumCPU()
	cfg.Processing.Removal = "surface"
	cfg.Processing.PolynomialOrder = 2
	cfg.Processing.UseCropped = false

	cfg.Spectrum.Axis = "x"
	cfg.Spectrum.Window = "welch"

	cfg.Output.Verbose = false
	cfg.Output.CatalogPath = ""

	return cfg
}

// Validate reports the first invalid setting
func (c *Config) Validate() error {
	if c.Processing.NumCores <= 0 {
		return fmt.Errorf("numCores must be positive, got %d", c.Processing.NumCores)
	}
	switch c.Processing.Removal {
	case "none", "surface", "polynomial", "sphere":
	default:
		return fmt.Errorf("invalid removal %q (must be none, surface, polynomial or sphere)", c.Processing.Removal)
	}
	if c.Processing.PolynomialOrder <= 0 {
		return fmt.Errorf("polynomialOrder must be positive, got %d", c.Processing.PolynomialOrder)
	}
	switch c.Spectrum.Axis {
	case "x", "y":
	default:
		return fmt.Errorf("invalid spectrum axis %q (must be x or y)", c.Spectrum.Axis)
	}
	switch c.Spectrum.Window {
	case "welch", "hann", "none":
	default:
		return fmt.Errorf("invalid spectrum window %q (must be welch, hann or none)", c.Spectrum.Window)
	}
	return nil
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(configPath)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	return SaveConfig(DefaultConfig(), configPath)
}
