// Package config loads pdfwm settings from YAML, a dotenv file and the
// environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/benedoc-inc/pdfwm/core/asset"
	"github.com/benedoc-inc/pdfwm/core/classify"
	"github.com/benedoc-inc/pdfwm/core/stamp"
	"github.com/benedoc-inc/pdfwm/types"
)

// EnvPrefix prefixes every environment override
const EnvPrefix = "PDFWM_"

// Config holds all settings for a watermarking run.
type Config struct {
	InputDir       string               `yaml:"input_dir"`
	OutputDir      string               `yaml:"output_dir"`
	Watermarks     WatermarkConfig      `yaml:"watermarks"`
	Classification ClassificationConfig `yaml:"classification"`
	Processing     ProcessingConfig     `yaml:"processing"`
	Logging        LoggingConfig        `yaml:"logging"`

	// path of the file the config was read from, if any
	path string
}

// WatermarkConfig maps each page size class to an image file.
type WatermarkConfig struct {
	A4Landscape string  `yaml:"A4L"`
	A4Portrait  string  `yaml:"A4P"`
	F4Landscape string  `yaml:"F4L"`
	F4Portrait  string  `yaml:"F4P"`
	Opacity     float64 `yaml:"opacity"`
}

// ClassificationConfig holds the reference aspect ratios.
type ClassificationConfig struct {
	A4Ratio   float64 `yaml:"a4_ratio"`
	F4Ratio   float64 `yaml:"f4_ratio"`
	Tolerance float64 `yaml:"tolerance"`
}

// ProcessingConfig controls how documents are processed.
type ProcessingConfig struct {
	Workers       int    `yaml:"workers"`
	OnPageError   string `yaml:"on_page_error"` // abort_file or skip_page
	ObjectStreams bool   `yaml:"object_streams"`
	Producer      string `yaml:"producer"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn or error
	Format string `yaml:"format"` // console or json
}

// Load reads configuration from a YAML file and applies environment overrides.
// The result is not validated: callers apply their own overrides first and
// then call Validate or ValidateClassification.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
		cfg.path = path
	}

	applyEnvOverrides(cfg)

	return cfg, nil
}

// DefaultConfig returns the built-in settings: A4 and F4 ratios of 297/210
// and 330/210 with a 0.04 tolerance, and one PNG per size class in the
// working directory.
func DefaultConfig() *Config {
	return &Config{
		InputDir:  "input_pdf",
		OutputDir: "wm_output",
		Watermarks: WatermarkConfig{
			A4Landscape: "wm_a4_landscape.png",
			A4Portrait:  "wm_a4_portrait.png",
			F4Landscape: "wm_f4_landscape.png",
			F4Portrait:  "wm_f4_portrait.png",
			Opacity:     1,
		},
		Classification: ClassificationConfig{
			A4Ratio:   classify.A4Ratio,
			F4Ratio:   classify.F4Ratio,
			Tolerance: classify.DefaultTolerance,
		},
		Processing: ProcessingConfig{
			Workers:     1,
			OnPageError: string(stamp.AbortFile),
			Producer:    "pdfwm",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	for class, p := range c.WatermarkPaths() {
		if strings.TrimSpace(p) == "" {
			return types.NewPDFErrorf(types.ErrCodeInvalidConfig, "no watermark configured for %s", class)
		}
	}
	if c.Watermarks.Opacity <= 0 || c.Watermarks.Opacity > 1 {
		return types.NewPDFErrorf(types.ErrCodeInvalidConfig, "opacity must be above 0 and at most 1, got %g", c.Watermarks.Opacity)
	}

	if err := c.ValidateClassification(); err != nil {
		return err
	}

	if c.Processing.Workers < 1 {
		return types.NewPDFErrorf(types.ErrCodeInvalidConfig, "workers must be at least 1, got %d", c.Processing.Workers)
	}
	if _, err := stamp.ParsePolicy(c.Processing.OnPageError); err != nil {
		return types.WrapError(types.ErrCodeInvalidConfig, "invalid on_page_error", err)
	}

	if c.InputDir == "" || c.OutputDir == "" {
		return types.NewPDFError(types.ErrCodeInvalidConfig, "input_dir and output_dir are required")
	}
	if sameDir(c.InputDir, c.OutputDir) {
		return types.NewPDFErrorf(types.ErrCodeInvalidConfig, "output_dir must differ from input_dir (%s)", c.InputDir)
	}

	return nil
}

// ValidateClassification checks only the settings the classifier uses.
func (c *Config) ValidateClassification() error {
	if c.Classification.A4Ratio <= 0 || c.Classification.F4Ratio <= 0 {
		return types.NewPDFErrorf(types.ErrCodeInvalidConfig, "reference ratios must be positive")
	}
	if c.Classification.Tolerance < 0 {
		return types.NewPDFErrorf(types.ErrCodeInvalidConfig, "tolerance must not be negative, got %g", c.Classification.Tolerance)
	}
	return nil
}

// Path returns the file the configuration was loaded from, or "".
func (c *Config) Path() string {
	return c.path
}

// WatermarkPaths returns the configured file for each size class.
func (c *Config) WatermarkPaths() map[classify.SizeClass]string {
	return map[classify.SizeClass]string{
		classify.A4Landscape: c.Watermarks.A4Landscape,
		classify.A4Portrait:  c.Watermarks.A4Portrait,
		classify.F4Landscape: c.Watermarks.F4Landscape,
		classify.F4Portrait:  c.Watermarks.F4Portrait,
	}
}

// AssetTable builds the watermark table. Relative paths are resolved
// against the config file's directory.
func (c *Config) AssetTable() (asset.Table, error) {
	paths := c.WatermarkPaths()
	if c.path != "" {
		for class, p := range paths {
			paths[class] = ResolveRelativePath(c.path, p)
		}
	}
	return asset.NewTable(paths, "")
}

// Classifier returns the classifier described by the configuration.
func (c *Config) Classifier() classify.Classifier {
	return classify.Classifier{
		A4Ratio:   c.Classification.A4Ratio,
		F4Ratio:   c.Classification.F4Ratio,
		Tolerance: c.Classification.Tolerance,
	}
}

// StampOptions converts the processing settings for the stamper.
func (c *Config) StampOptions() stamp.Options {
	policy, _ := stamp.ParsePolicy(c.Processing.OnPageError)
	return stamp.Options{
		Classifier:    c.Classifier(),
		Workers:       c.Processing.Workers,
		OnPageError:   policy,
		Opacity:       c.Watermarks.Opacity,
		ObjectStreams: c.Processing.ObjectStreams,
		Producer:      c.Processing.Producer,
	}
}

// applyEnvOverrides applies environment variable overrides to config.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv(EnvPrefix + "INPUT_DIR"); v != "" {
		cfg.InputDir = v
	}

	if v := os.Getenv(EnvPrefix + "OUTPUT_DIR"); v != "" {
		cfg.OutputDir = v
	}

	if v := os.Getenv(EnvPrefix + "WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Processing.Workers = n
		}
	}

	if v := os.Getenv(EnvPrefix + "ON_PAGE_ERROR"); v != "" {
		cfg.Processing.OnPageError = v
	}

	if v := os.Getenv(EnvPrefix + "OBJECT_STREAMS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Processing.ObjectStreams = b
		}
	}

	if v := os.Getenv(EnvPrefix + "TOLERANCE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Classification.Tolerance = f
		}
	}

	if v := os.Getenv(EnvPrefix + "OPACITY"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Watermarks.Opacity = f
		}
	}

	if v := os.Getenv(EnvPrefix + "LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	if v := os.Getenv(EnvPrefix + "LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}

// ResolveRelativePath resolves a path relative to the config file location.
func ResolveRelativePath(configPath, targetPath string) string {
	if filepath.IsAbs(targetPath) {
		return targetPath
	}
	configDir := filepath.Dir(configPath)
	return filepath.Join(configDir, targetPath)
}

func sameDir(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return absA == absB
}
