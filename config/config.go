package config

import (
	"os"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/lumenbio/casa-go/motility"
	"github.com/lumenbio/casa-go/tracking"
)

// Config is the whole-pipeline configuration file.
type Config struct {
	Tracking TrackingConfig `yaml:"tracking"`
	Motility MotilityConfig `yaml:"motility"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type TrackingConfig struct {
	MinArea          int     `yaml:"min_area"`
	MaxArea          int     `yaml:"max_area"`
	MaxDistance      float64 `yaml:"max_distance"`
	MaxDisappeared   int     `yaml:"max_disappeared"`
	MaxActiveTracks  int     `yaml:"max_active_tracks"`
	MaxDetections    int     `yaml:"max_detections"`
	Assignment       string  `yaml:"assignment"` // "greedy" or "hungarian"
	PredictiveGating bool    `yaml:"predictive_gating"`
	FrameDelayMs     int     `yaml:"frame_delay_ms"`
}

type MotilityConfig struct {
	MinTrackLength        int     `yaml:"min_track_length"`
	PixelsPerMicron       float64 `yaml:"pixels_per_micron"`
	FPS                   float64 `yaml:"fps"`
	MotileThresholdPixels float64 `yaml:"motile_threshold_pixels"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads config from a YAML file and applies environment variable
// overrides. Defaults are pre-populated before parsing, so a field absent
// from the file keeps its default while an explicit zero in the file is
// honored. Use Default() when no file is present.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config file")
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "parse config")
	}

	applyEnvOverrides(cfg)

	return cfg, nil
}

// Default returns the configuration used when no file is supplied.
func Default() *Config {
	cfg := defaults()
	applyEnvOverrides(cfg)
	return cfg
}

// Tracker maps the file section onto the engine configuration. Validation
// happens in tracking.NewEngine.
func (c *Config) Tracker() tracking.TrackerConfig {
	out := tracking.TrackerConfig{
		MinArea:          c.Tracking.MinArea,
		MaxArea:          c.Tracking.MaxArea,
		MaxDistance:      c.Tracking.MaxDistance,
		MaxDisappeared:   c.Tracking.MaxDisappeared,
		MaxActiveTracks:  c.Tracking.MaxActiveTracks,
		MaxDetections:    c.Tracking.MaxDetections,
		PredictiveGating: c.Tracking.PredictiveGating,
		FrameDelay:       time.Duration(c.Tracking.FrameDelayMs) * time.Millisecond,
	}
	if c.Tracking.Assignment == "hungarian" {
		out.Assignment = tracking.AssignmentHungarian
	}
	return out
}

// Analyzer maps the file section onto the analysis configuration.
// Validation happens in motility.NewAnalyzer.
func (c *Config) Analyzer() motility.Config {
	return motility.Config{
		MinTrackLength:        c.Motility.MinTrackLength,
		PixelsPerMicron:       c.Motility.PixelsPerMicron,
		FPS:                   c.Motility.FPS,
		MotileThresholdPixels: c.Motility.MotileThresholdPixels,
	}
}

func defaults() *Config {
	trackerDefaults := tracking.DefaultTrackerConfig()
	analyzerDefaults := motility.DefaultConfig()
	return &Config{
		Tracking: TrackingConfig{
			MinArea:         trackerDefaults.MinArea,
			MaxArea:         trackerDefaults.MaxArea,
			MaxDistance:     trackerDefaults.MaxDistance,
			MaxDisappeared:  trackerDefaults.MaxDisappeared,
			MaxActiveTracks: trackerDefaults.MaxActiveTracks,
			MaxDetections:   trackerDefaults.MaxDetections,
			Assignment:      "greedy",
		},
		Motility: MotilityConfig{
			MinTrackLength:        analyzerDefaults.MinTrackLength,
			PixelsPerMicron:       analyzerDefaults.PixelsPerMicron,
			FPS:                   analyzerDefaults.FPS,
			MotileThresholdPixels: analyzerDefaults.MotileThresholdPixels,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CASA_MAX_DISTANCE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Tracking.MaxDistance = f
		}
	}
	if v := os.Getenv("CASA_MAX_DISAPPEARED"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Tracking.MaxDisappeared = n
		}
	}
	if v := os.Getenv("CASA_MAX_ACTIVE_TRACKS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Tracking.MaxActiveTracks = n
		}
	}
	if v := os.Getenv("CASA_FRAME_DELAY_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Tracking.FrameDelayMs = n
		}
	}
	if v := os.Getenv("CASA_FPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Motility.FPS = f
		}
	}
	if v := os.Getenv("CASA_PIXELS_PER_MICRON"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Motility.PixelsPerMicron = f
		}
	}
	if v := os.Getenv("CASA_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("CASA_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
