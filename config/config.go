package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
)

// LabelPolicy selects which labels a training window carries
type LabelPolicy string

const (
	// LabelCenter always yields the single state at the window's temporal center
	LabelCenter LabelPolicy = "center"
	// LabelWindow always yields one state per window frame
	LabelWindow LabelPolicy = "window"
	// LabelLegacy yields the center state for cropped windows and the whole
	// zero-padded state sequence for padded windows
	LabelLegacy LabelPolicy = "legacy"
)

// Config holds the hyperparameters shared by sampling, decoding and scoring
type Config struct {
	// Window sampling
	WindowSize  int         `json:"window_size"`  // W, frames per training window
	LabelPolicy LabelPolicy `json:"label_policy"` // "center", "window", "legacy"
	Seed        uint64      `json:"seed"`         // seed for window start selection

	// Feature layout
	Groups      int `json:"groups"`       // channel groups the feature height splits into
	GroupHeight int `json:"group_height"` // rows per channel group

	// Decoding
	ContextFrames int `json:"context_frames"` // frames of context on each side of the decoded frame
	DecodeWorkers int `json:"decode_workers"` // recordings decoded concurrently

	// Scoring
	Threshold float64 `json:"threshold"` // decision threshold on normalized scores
}

// Default returns the configuration the reference models were trained with
func Default() *Config {
	return &Config{
		WindowSize:    19,
		LabelPolicy:   LabelCenter,
		Seed:          0,
		Groups:        3,
		GroupHeight:   522,
		ContextFrames: 9,
		DecodeWorkers: 4,
		Threshold:     0.5,
	}
}

// Load reads a JSON configuration file on top of the defaults.
// Keys missing from the file keep their default value; unknown keys are rejected.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks that every parameter is usable
func (c *Config) Validate() error {
	if c.WindowSize < 1 {
		return fmt.Errorf("window_size must be positive, got %d", c.WindowSize)
	}
	if c.Groups < 1 {
		return fmt.Errorf("groups must be positive, got %d", c.Groups)
	}
	if c.GroupHeight < 1 {
		return fmt.Errorf("group_height must be positive, got %d", c.GroupHeight)
	}
	if c.ContextFrames < 0 {
		return fmt.Errorf("context_frames must not be negative, got %d", c.ContextFrames)
	}
	if c.DecodeWorkers < 1 {
		return fmt.Errorf("decode_workers must be positive, got %d", c.DecodeWorkers)
	}
	if c.Threshold < 0 || c.Threshold > 1 {
		return fmt.Errorf("threshold must be within [0, 1], got %g", c.Threshold)
	}

	switch c.LabelPolicy {
	case LabelCenter, LabelWindow, LabelLegacy:
	default:
		return fmt.Errorf("unknown label_policy %q", c.LabelPolicy)
	}
	return nil
}

// DecodeWindow returns the width of the window centered on each decoded frame
func (c *Config) DecodeWindow() int {
	return 2*c.ContextFrames + 1
}
