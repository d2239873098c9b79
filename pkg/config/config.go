// Package config provides configuration loading and management for niftiview.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"niftiview/pkg/logging"
)

// CenterIndex selects the middle slice along an axis.
const CenterIndex = -1

// Config represents the application configuration loaded from YAML
type Config struct {
	// View parameters
	View struct {
		// AxialIndex is the Z index of the axial slice, or -1 for the centre
		AxialIndex int `yaml:"axialIndex"`

		// SagittalIndex is the X index of the sagittal slice, or -1 for the centre
		SagittalIndex int `yaml:"sagittalIndex"`

		// CoronalIndex is the Y index of the coronal slice, or -1 for the centre
		CoronalIndex int `yaml:"coronalIndex"`

		// Frame is the time/volume index shown for 4D volumes
		Frame int `yaml:"frame"`
	} `yaml:"view"`

	// Output parameters
	Output struct {
		// Dir is the directory rendered images are written to
		Dir string `yaml:"dir"`

		// Format is the image format of saved slices: png or jpeg
		Format string `yaml:"format"`

		// JPEGQuality is used when Format is jpeg
		JPEGQuality int `yaml:"jpegQuality"`

		// SaveQuad writes the composed four-quadrant view in addition to the
		// individual planes
		SaveQuad bool `yaml:"saveQuad"`

		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`

	// Cache parameters
	Cache struct {
		// SizeBytes is the capacity of the display buffer cache; 0 disables it.
		// Slices larger than 1/1024 of the capacity are never cached, so the
		// default holds planes up to 256x256.
		SizeBytes int `yaml:"sizeBytes"`
	} `yaml:"cache"`

	// Logging configures an optional rotating log file
	Logging logging.LogConfig `yaml:"logging"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.View.AxialIndex = CenterIndex
	cfg.View.SagittalIndex = CenterIndex
	cfg.View.CoronalIndex = CenterIndex
	cfg.View.Frame = 0

	cfg.Output.Dir = "niftiview_output"
	cfg.Output.Format = "png"
	cfg.Output.JPEGQuality = 90
	cfg.Output.SaveQuad = true
	cfg.Output.Verbose = false

	cfg.Cache.SizeBytes = 128 * 1024 * 1024

	cfg.Logging.MaxSize = 10
	cfg.Logging.MaxAge = 7

	return cfg
}

// Validate checks values that cannot be corrected by the viewer at runtime.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Output.Format) {
	case "png", "jpeg", "jpg":
	default:
		return fmt.Errorf("invalid output format %q (must be png or jpeg)", c.Output.Format)
	}
	if c.Output.JPEGQuality < 1 || c.Output.JPEGQuality > 100 {
		return fmt.Errorf("invalid JPEG quality %d (must be 1-100)", c.Output.JPEGQuality)
	}
	if c.View.Frame < 0 {
		return fmt.Errorf("invalid frame %d", c.View.Frame)
	}
	if c.Cache.SizeBytes < 0 {
		return fmt.Errorf("invalid cache size %d", c.Cache.SizeBytes)
	}
	return nil
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	// Read config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Parse YAML
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("error in config file %s: %w", configPath, err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	// Marshal config to YAML
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	// Write to file
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}
