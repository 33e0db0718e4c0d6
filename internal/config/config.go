package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type contextKey string

const configKey contextKey = "config"

// Config holds all application configuration
type Config struct {
	// Core settings
	BasePath    string `yaml:"base_path"`
	Concurrency int    `yaml:"concurrency"`
	Dataset     string `yaml:"dataset"`

	// FFmpeg settings
	FFmpeg FFmpegConfig `yaml:"ffmpeg"`

	// Selection settings
	Selection SelectionConfig `yaml:"selection"`

	// Split settings
	Split SplitConfig `yaml:"split"`

	// Datasets adds to or overrides the built-in dataset registry
	Datasets map[string]Dataset `yaml:"datasets"`
}

type FFmpegConfig struct {
	BinaryPath  string        `yaml:"binary_path"`
	ProbePath   string        `yaml:"ffprobe_path"`
	Threads     int           `yaml:"threads"`
	CopyCodec   bool          `yaml:"copy_codec"`
	VideoCodec  string        `yaml:"video_codec"`
	CRF         int           `yaml:"crf"`
	Preset      string        `yaml:"preset"`
	ScaleHeight int           `yaml:"scale_height"`
	CutTimeout  time.Duration `yaml:"cut_timeout"`
}

type SelectionConfig struct {
	MaxEntries int `yaml:"max_entries"`
	// Seed drives random tie breaking. Zero draws a fresh seed, which is
	// recorded in the run record so the run can be reproduced.
	Seed uint64 `yaml:"seed"`
}

type SplitConfig struct {
	// ValRatio is the fraction of videos whose clips go to the validation
	// manifest. Zero disables splitting.
	ValRatio float64 `yaml:"val_ratio"`
}

// Load reads configuration from file or returns defaults
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path == "" {
		path = findConfigFile()
	}

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return cfg, nil
}

// Save writes configuration to file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Validate checks settings that cannot be fixed up with defaults.
func (c *Config) Validate() error {
	if c.Concurrency < 0 {
		return fmt.Errorf("concurrency must not be negative, got %d", c.Concurrency)
	}
	if c.Selection.MaxEntries < 0 {
		return fmt.Errorf("selection.max_entries must not be negative, got %d", c.Selection.MaxEntries)
	}
	if c.Split.ValRatio < 0 || c.Split.ValRatio >= 1 {
		return fmt.Errorf("split.val_ratio must be in [0, 1), got %g", c.Split.ValRatio)
	}
	if c.FFmpeg.CutTimeout < 0 {
		return fmt.Errorf("ffmpeg.cut_timeout must not be negative")
	}
	return nil
}

func defaultConfig() *Config {
	return &Config{
		BasePath:    "./SFT",
		Concurrency: 0,
		Dataset:     "cholec80",
		FFmpeg: FFmpegConfig{
			BinaryPath: "ffmpeg",
			ProbePath:  "ffprobe",
			Threads:    0,
			CopyCodec:  true,
			VideoCodec: "libx264",
			CRF:        23,
			Preset:     "medium",
		},
		Selection: SelectionConfig{
			MaxEntries: 5000,
		},
		Datasets: make(map[string]Dataset),
	}
}

// Default returns the built-in configuration.
func Default() *Config {
	return defaultConfig()
}

func findConfigFile() string {
	candidates := []string{
		"./surgclip.yaml",
		"./config.yaml",
		"./config.yml",
		filepath.Join(os.Getenv("HOME"), ".surgclip", "config.yaml"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// WithConfig stores config in context
func WithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey, cfg)
}

// FromContext retrieves config from context
func FromContext(ctx context.Context) *Config {
	if cfg, ok := ctx.Value(configKey).(*Config); ok {
		return cfg
	}
	return defaultConfig()
}
