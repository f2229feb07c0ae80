package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Settings holds the gifski encode parameters for one run. A run receives
// a copy and never mutates it.
type Settings struct {
	// Quality is the overall GIF quality (1-100)
	Quality int `yaml:"quality" json:"quality"`

	// Width is the output width in pixels (0 = keep source width)
	Width int `yaml:"width" json:"width"`

	// Height is the output height in pixels (0 = keep source height)
	Height int `yaml:"height" json:"height"`

	// FPS is the output frame rate (whole frames per second, > 0)
	FPS int `yaml:"fps" json:"fps"`

	// LossyQuality is the compression level (1-100)
	LossyQuality int `yaml:"lossy_quality" json:"lossy_quality"`

	// MotionQuality is the motion handling quality (1-100)
	MotionQuality int `yaml:"motion_quality" json:"motion_quality"`

	// KeepTempFiles keeps extracted video frames in the temp folder
	KeepTempFiles bool `yaml:"keep_temp_files" json:"keep_temp_files"`
}

// Validate is the single validation entry point for Settings. It rejects
// out-of-range values before a run starts.
func (s Settings) Validate() error {
	if s.Quality < 1 || s.Quality > 100 {
		return fmt.Errorf("quality must be between 1 and 100, got %d", s.Quality)
	}
	if s.Width < 0 {
		return fmt.Errorf("width must be 0 (original) or positive, got %d", s.Width)
	}
	if s.Height < 0 {
		return fmt.Errorf("height must be 0 (original) or positive, got %d", s.Height)
	}
	if s.FPS <= 0 {
		return fmt.Errorf("fps must be positive, got %d", s.FPS)
	}
	if s.LossyQuality < 1 || s.LossyQuality > 100 {
		return fmt.Errorf("lossy quality must be between 1 and 100, got %d", s.LossyQuality)
	}
	if s.MotionQuality < 1 || s.MotionQuality > 100 {
		return fmt.Errorf("motion quality must be between 1 and 100, got %d", s.MotionQuality)
	}
	return nil
}

// Config is the persisted application configuration: the default encode
// settings plus tool paths and last-used folders.
type Config struct {
	Settings `yaml:",inline"`

	// LastInputDir is the last used input folder path
	LastInputDir string `yaml:"last_input_folder" json:"last_input_folder"`

	// LastOutputDir is the last used output folder path
	LastOutputDir string `yaml:"last_output_folder" json:"last_output_folder"`

	// FFmpegPath is the path to the ffmpeg binary (default: "ffmpeg")
	FFmpegPath string `yaml:"ffmpeg_path" json:"-"`

	// GifskiPath is the path to the gifski binary (default: "gifski")
	GifskiPath string `yaml:"gifski_path" json:"-"`

	// LogLevel is the slog level: debug, info, warn, error
	LogLevel string `yaml:"log_level" json:"-"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Settings: Settings{
			Quality:       70,
			Width:         320,
			Height:        0, // keep source height
			FPS:           20,
			LossyQuality:  80,
			MotionQuality: 80,
			KeepTempFiles: true,
		},
		FFmpegPath: "ffmpeg",
		GifskiPath: "gifski",
		LogLevel:   "info",
	}
}

// Load reads config from a YAML file. File values are merged over defaults,
// so unknown or missing keys never break the consumer.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// No config file - use defaults
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	// Apply defaults for empty values
	if cfg.FFmpegPath == "" {
		cfg.FFmpegPath = "ffmpeg"
	}
	if cfg.GifskiPath == "" {
		cfg.GifskiPath = "gifski"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	return cfg, nil
}

// Save writes the config to a YAML file
func (c *Config) Save(path string) error {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
