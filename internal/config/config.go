// Package config handles papercraft configuration loading and management.
package config

import (
	"fmt"
	"image/color"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
)

// Config holds all settings. It is read-only once loaded.
type Config struct {
	Scene    SceneConfig    `yaml:"scene"`
	Export   ExportConfig   `yaml:"export"`
	Simplify SimplifyConfig `yaml:"simplify"`
	Unfold   UnfoldConfig   `yaml:"unfold"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// SceneConfig holds import and editing defaults.
type SceneConfig struct {
	Color       string  `yaml:"color"`        // Hex RGB applied to imported meshes
	WeldEpsilon float64 `yaml:"weld_epsilon"` // Negative disables welding
	PruneRatio  float64 `yaml:"prune_ratio"`
	TargetSize  float64 `yaml:"target_size"`
	Workers     int     `yaml:"workers"` // Concurrent file imports
}

// ExportConfig holds interchange file settings.
type ExportConfig struct {
	Dir       string `yaml:"dir"`
	Format    string `yaml:"format"` // Interchange extension for external tools
	KeepFiles bool   `yaml:"keep_files"`
}

// SimplifyConfig holds settings for the external simplification tool.
type SimplifyConfig struct {
	Command string        `yaml:"command"`
	Method  string        `yaml:"method"`
	Ratio   float64       `yaml:"ratio"`
	Timeout time.Duration `yaml:"timeout"`
}

// UnfoldConfig holds settings for the external unfolding tool.
type UnfoldConfig struct {
	Command      string        `yaml:"command"`
	Script       string        `yaml:"script"`
	Session      string        `yaml:"session"`
	PageWidth    float64       `yaml:"page_width"`
	PageHeight   float64       `yaml:"page_height"`
	Format       string        `yaml:"format"`
	PageGrowth   float64       `yaml:"page_growth"`
	MaxAttempts  int           `yaml:"max_attempts"`
	RetryOn      string        `yaml:"retry_on"` // Substring marking a recoverable failure
	Timeout      time.Duration `yaml:"timeout"`
	ImportPanels bool          `yaml:"import_panels"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Scene: SceneConfig{
			Color:       "#c8c8c8",
			WeldEpsilon: 1e-6,
			PruneRatio:  0.05,
			TargetSize:  100,
			Workers:     4,
		},
		Export: ExportConfig{
			Dir:    "~/.cache/papercraft",
			Format: "obj",
		},
		Simplify: SimplifyConfig{
			Command: "mesh-simplify",
			Method:  "quadric_edge_collapse",
			Ratio:   0.5,
			Timeout: 10 * time.Minute,
		},
		Unfold: UnfoldConfig{
			Command:     "papercraft-unfold",
			Script:      "~/.config/papercraft/unfold.py",
			Session:     "papercraft",
			PageWidth:   210,
			PageHeight:  297,
			Format:      "svg",
			PageGrowth:  1.25,
			MaxAttempts: 5,
			RetryOn:     "needs more room",
			Timeout:     15 * time.Minute,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// DefaultColor returns the scene color parsed from its hex form.
func (c *Config) DefaultColor() (color.RGBA, error) {
	return ParseColor(c.Scene.Color)
}

// ExportDir returns the export directory with ~ expanded.
func (c *Config) ExportDir() (string, error) {
	return homedir.Expand(c.Export.Dir)
}

// UnfoldScript returns the unfold script path with ~ expanded.
func (c *Config) UnfoldScript() (string, error) {
	return homedir.Expand(c.Unfold.Script)
}

// Validate reports the first setting that cannot work.
func (c *Config) Validate() error {
	if _, err := c.DefaultColor(); err != nil {
		return err
	}
	if c.Scene.PruneRatio < 0 || c.Scene.PruneRatio > 1 {
		return fmt.Errorf("scene.prune_ratio %v outside [0, 1]", c.Scene.PruneRatio)
	}
	if c.Scene.Workers < 1 {
		return fmt.Errorf("scene.workers must be at least 1")
	}
	if c.Simplify.Ratio < 0.1 || c.Simplify.Ratio > 1 {
		return fmt.Errorf("simplify.ratio %v outside [0.1, 1.0]", c.Simplify.Ratio)
	}
	if c.Unfold.PageWidth <= 0 || c.Unfold.PageHeight <= 0 {
		return fmt.Errorf("unfold page size must be positive")
	}
	if c.Unfold.PageGrowth <= 1 {
		return fmt.Errorf("unfold.page_growth must be greater than 1")
	}
	if c.Unfold.MaxAttempts < 1 {
		return fmt.Errorf("unfold.max_attempts must be at least 1")
	}
	return nil
}

// ParseColor parses "#rrggbb" or "rrggbb".
func ParseColor(s string) (color.RGBA, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) != 6 {
		return color.RGBA{}, fmt.Errorf("color %q: want #rrggbb", s)
	}
	var r, g, b uint8
	if _, err := fmt.Sscanf(hex, "%02x%02x%02x", &r, &g, &b); err != nil {
		return color.RGBA{}, fmt.Errorf("color %q: %w", s, err)
	}
	return color.RGBA{R: r, G: g, B: b, A: 255}, nil
}
