// Package config defines the application configuration and its loading from
// files, environment variables, and flags.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/MeKo-Tech/pdfmask/internal/match"
	"github.com/MeKo-Tech/pdfmask/internal/ocr"
	"github.com/MeKo-Tech/pdfmask/internal/orientation"
	"github.com/MeKo-Tech/pdfmask/internal/redact"
	"github.com/MeKo-Tech/pdfmask/internal/render"
)

// Config is the complete configuration for the pdfmask application. It covers
// the redact and serve commands and loads from configuration files,
// environment variables, and command-line flags.
type Config struct {
	// Global settings
	LogLevel string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose  bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	// OutputDir receives redacted documents.
	OutputDir string `mapstructure:"output_dir" yaml:"output_dir" json:"output_dir"`

	// Words are the default literals to redact when a request or invocation
	// supplies none.
	Words []string `mapstructure:"words" yaml:"words" json:"words"`

	Pipeline PipelineConfig `mapstructure:"pipeline" yaml:"pipeline" json:"pipeline"`
	OCR      OCRConfig      `mapstructure:"ocr" yaml:"ocr" json:"ocr"`
	Rotation RotationConfig `mapstructure:"rotation" yaml:"rotation" json:"rotation"`
	Render   RenderConfig   `mapstructure:"render" yaml:"render" json:"render"`
	Server   ServerConfig   `mapstructure:"server" yaml:"server" json:"server"`
}

// PipelineConfig contains the matching, burn-in, and OCR-policy settings.
type PipelineConfig struct {
	Match  MatchConfig  `mapstructure:"match" yaml:"match" json:"match"`
	Redact RedactConfig `mapstructure:"redact" yaml:"redact" json:"redact"`
	Policy PolicyConfig `mapstructure:"policy" yaml:"policy" json:"policy"`
}

// MatchConfig contains the geometric fallback matcher settings.
type MatchConfig struct {
	Lookahead       int     `mapstructure:"lookahead" yaml:"lookahead" json:"lookahead"`
	MinGap          float64 `mapstructure:"min_gap" yaml:"min_gap" json:"min_gap"`
	MaxGap          float64 `mapstructure:"max_gap" yaml:"max_gap" json:"max_gap"`
	MinOverlapRatio float64 `mapstructure:"min_overlap_ratio" yaml:"min_overlap_ratio" json:"min_overlap_ratio"`
}

// RedactConfig contains burn-in settings.
type RedactConfig struct {
	FontSizes     []float64 `mapstructure:"font_sizes" yaml:"font_sizes" json:"font_sizes"`
	InflatePoints float64   `mapstructure:"inflate_points" yaml:"inflate_points" json:"inflate_points"`
}

// PolicyConfig contains the adaptive OCR revert thresholds.
type PolicyConfig struct {
	MinCharGain int `mapstructure:"min_char_gain" yaml:"min_char_gain" json:"min_char_gain"`
}

// OCRConfig contains the external recognition engine settings.
type OCRConfig struct {
	Binary     string   `mapstructure:"binary" yaml:"binary" json:"binary"`
	Languages  []string `mapstructure:"languages" yaml:"languages" json:"languages"`
	Optimize   int      `mapstructure:"optimize" yaml:"optimize" json:"optimize"`
	TimeoutSec int      `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
}

// RotationConfig contains orientation correction settings.
type RotationConfig struct {
	Enabled          bool    `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	BlankThreshold   float64 `mapstructure:"blank_threshold" yaml:"blank_threshold" json:"blank_threshold"`
	TesseractBinary  string  `mapstructure:"tesseract_binary" yaml:"tesseract_binary" json:"tesseract_binary"`
	UseTrialFallback bool    `mapstructure:"use_trial_fallback" yaml:"use_trial_fallback" json:"use_trial_fallback"`
}

// RenderConfig contains page rasterization settings.
type RenderConfig struct {
	Binary string `mapstructure:"binary" yaml:"binary" json:"binary"`
	DPI    int    `mapstructure:"dpi" yaml:"dpi" json:"dpi"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host            string `mapstructure:"host" yaml:"host" json:"host"`
	Port            int    `mapstructure:"port" yaml:"port" json:"port"`
	CORSOrigin      string `mapstructure:"cors_origin" yaml:"cors_origin" json:"cors_origin"`
	MaxUploadMB     int    `mapstructure:"max_upload_mb" yaml:"max_upload_mb" json:"max_upload_mb"`
	TimeoutSec      int    `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`
}

// DefaultConfig returns a configuration with the component defaults.
func DefaultConfig() Config {
	matchDefaults := match.DefaultConfig()
	redactDefaults := redact.DefaultConfig()
	policyDefaults := ocr.DefaultPolicyConfig()
	ocrDefaults := ocr.DefaultConfig()
	rotationDefaults := orientation.DefaultConfig()
	renderDefaults := render.DefaultConfig()

	return Config{
		LogLevel:  "info",
		Verbose:   false,
		OutputDir: "output",
		Pipeline: PipelineConfig{
			Match: MatchConfig{
				Lookahead:       matchDefaults.Lookahead,
				MinGap:          matchDefaults.MinGap,
				MaxGap:          matchDefaults.MaxGap,
				MinOverlapRatio: matchDefaults.MinOverlapRatio,
			},
			Redact: RedactConfig{
				FontSizes:     redactDefaults.FontSizes,
				InflatePoints: redactDefaults.InflatePoints,
			},
			Policy: PolicyConfig{
				MinCharGain: policyDefaults.MinCharGain,
			},
		},
		OCR: OCRConfig{
			Binary:     ocrDefaults.Binary,
			Languages:  ocrDefaults.Languages,
			Optimize:   ocrDefaults.Optimize,
			TimeoutSec: int(ocrDefaults.Timeout.Seconds()),
		},
		Rotation: RotationConfig{
			Enabled:          rotationDefaults.Enabled,
			BlankThreshold:   rotationDefaults.BlankThreshold,
			TesseractBinary:  rotationDefaults.TesseractBinary,
			UseTrialFallback: rotationDefaults.UseTrialFallback,
		},
		Render: RenderConfig{
			Binary: renderDefaults.Binary,
			DPI:    renderDefaults.DPI,
		},
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8080,
			CORSOrigin:      "*",
			MaxUploadMB:     50,
			TimeoutSec:      300,
			ShutdownTimeout: 10,
		},
	}
}

// MatchConfig converts to the matcher's own config type.
func (c *Config) MatchConfig() match.Config {
	return match.Config{
		Lookahead:       c.Pipeline.Match.Lookahead,
		MinGap:          c.Pipeline.Match.MinGap,
		MaxGap:          c.Pipeline.Match.MaxGap,
		MinOverlapRatio: c.Pipeline.Match.MinOverlapRatio,
	}
}

// RedactConfig converts to the burner's own config type.
func (c *Config) RedactConfig() redact.Config {
	cfg := redact.DefaultConfig()
	if len(c.Pipeline.Redact.FontSizes) > 0 {
		cfg.FontSizes = c.Pipeline.Redact.FontSizes
	}
	if c.Pipeline.Redact.InflatePoints > 0 {
		cfg.InflatePoints = c.Pipeline.Redact.InflatePoints
	}
	return cfg
}

// PolicyConfig converts to the OCR policy's own config type.
func (c *Config) PolicyConfig() ocr.PolicyConfig {
	return ocr.PolicyConfig{MinCharGain: c.Pipeline.Policy.MinCharGain}
}

// EngineConfig converts to the OCR engine's own config type.
func (c *Config) EngineConfig() ocr.Config {
	cfg := ocr.DefaultConfig()
	if c.OCR.Binary != "" {
		cfg.Binary = c.OCR.Binary
	}
	if len(c.OCR.Languages) > 0 {
		cfg.Languages = c.OCR.Languages
	}
	cfg.Optimize = c.OCR.Optimize
	if c.OCR.TimeoutSec > 0 {
		cfg.Timeout = time.Duration(c.OCR.TimeoutSec) * time.Second
	}
	return cfg
}

// RotationConfig converts to the orientation detector's own config type.
func (c *Config) RotationConfig() orientation.Config {
	cfg := orientation.DefaultConfig()
	cfg.Enabled = c.Rotation.Enabled
	if c.Rotation.BlankThreshold > 0 {
		cfg.BlankThreshold = c.Rotation.BlankThreshold
	}
	if c.Rotation.TesseractBinary != "" {
		cfg.TesseractBinary = c.Rotation.TesseractBinary
	}
	cfg.UseTrialFallback = c.Rotation.UseTrialFallback
	return cfg
}

// RenderConfig converts to the renderer's own config type.
func (c *Config) RenderConfig() render.Config {
	cfg := render.DefaultConfig()
	if c.Render.Binary != "" {
		cfg.Binary = c.Render.Binary
	}
	if c.Render.DPI > 0 {
		cfg.DPI = c.Render.DPI
	}
	return cfg
}

// Validate checks configuration values for consistency.
func (c *Config) Validate() error {
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log_level %q (want debug, info, warn, or error)", c.LogLevel)
	}

	if c.Pipeline.Match.Lookahead < 1 {
		return fmt.Errorf("pipeline.match.lookahead must be at least 1, got %d", c.Pipeline.Match.Lookahead)
	}
	if c.Pipeline.Match.MaxGap <= c.Pipeline.Match.MinGap {
		return fmt.Errorf("pipeline.match.max_gap (%g) must exceed min_gap (%g)",
			c.Pipeline.Match.MaxGap, c.Pipeline.Match.MinGap)
	}
	if r := c.Pipeline.Match.MinOverlapRatio; r <= 0 || r > 1 {
		return fmt.Errorf("pipeline.match.min_overlap_ratio must be in (0,1], got %g", r)
	}
	for _, size := range c.Pipeline.Redact.FontSizes {
		if size <= 0 {
			return fmt.Errorf("pipeline.redact.font_sizes entries must be positive, got %g", size)
		}
	}
	if c.Pipeline.Policy.MinCharGain < 0 {
		return fmt.Errorf("pipeline.policy.min_char_gain must not be negative, got %d", c.Pipeline.Policy.MinCharGain)
	}

	if len(c.OCR.Languages) == 0 {
		return fmt.Errorf("ocr.languages must name at least one language")
	}
	if c.OCR.TimeoutSec < 0 {
		return fmt.Errorf("ocr.timeout_sec must not be negative, got %d", c.OCR.TimeoutSec)
	}

	if t := c.Rotation.BlankThreshold; t <= 0 || t > 1 {
		return fmt.Errorf("rotation.blank_threshold must be in (0,1], got %g", t)
	}

	if c.Render.DPI < 36 || c.Render.DPI > 1200 {
		return fmt.Errorf("render.dpi must be in [36,1200], got %d", c.Render.DPI)
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in [1,65535], got %d", c.Server.Port)
	}
	if c.Server.MaxUploadMB < 1 {
		return fmt.Errorf("server.max_upload_mb must be at least 1, got %d", c.Server.MaxUploadMB)
	}

	return nil
}
