// Package config loads clustering tuning parameters from JSON files.
// Fields are pointers so partial configs overlay cleanly on defaults:
// an omitted field keeps its default, an explicit field overrides it.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/parcelboard/mapcluster/internal/cluster"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
// This is the single source of truth for default clustering values.
const DefaultConfigPath = "config/cluster.defaults.json"

// TuningConfig represents the tunable clustering parameters. The
// schema matches the host dashboard's cluster settings payload so the
// same JSON serves both startup configuration and runtime updates.
type TuningConfig struct {
	Strategy         *string  `json:"strategy,omitempty"`
	Radius           *float64 `json:"radius,omitempty"`
	MinPoints        *int     `json:"min_points,omitempty"`
	MaxZoom          *float64 `json:"max_zoom,omitempty"`
	GridSize         *float64 `json:"grid_size,omitempty"`
	DensityThreshold *float64 `json:"density_threshold,omitempty"`
}

// EmptyTuningConfig returns a TuningConfig with all fields unset.
// Use LoadTuningConfig to load actual values from a file.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file. The file
// must have a .json extension and stay under the max file size.
// Fields omitted from the JSON retain their defaults, so partial
// configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical tuning defaults from
// DefaultConfigPath, searching from the current directory up through
// common parent directories. Panics if the file cannot be loaded;
// intended for test setup and binaries that have already validated
// config availability.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // deeper packages
		"../../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run from repository root")
}

// Merge overlays override's set fields onto c, returning c for
// chaining. Nil override is a no-op.
func (c *TuningConfig) Merge(override *TuningConfig) *TuningConfig {
	if override == nil {
		return c
	}
	if override.Strategy != nil {
		c.Strategy = override.Strategy
	}
	if override.Radius != nil {
		c.Radius = override.Radius
	}
	if override.MinPoints != nil {
		c.MinPoints = override.MinPoints
	}
	if override.MaxZoom != nil {
		c.MaxZoom = override.MaxZoom
	}
	if override.GridSize != nil {
		c.GridSize = override.GridSize
	}
	if override.DensityThreshold != nil {
		c.DensityThreshold = override.DensityThreshold
	}
	return c
}

// GetStrategy returns the strategy or the default.
func (c *TuningConfig) GetStrategy() string {
	if c.Strategy == nil {
		return string(cluster.StrategyAdaptive)
	}
	return *c.Strategy
}

// GetRadius returns the radius or the default.
func (c *TuningConfig) GetRadius() float64 {
	if c.Radius == nil {
		return cluster.DefaultRadius
	}
	return *c.Radius
}

// GetMinPoints returns the min_points value or the default.
func (c *TuningConfig) GetMinPoints() int {
	if c.MinPoints == nil {
		return cluster.DefaultMinPoints
	}
	return *c.MinPoints
}

// GetMaxZoom returns the max_zoom value or the default.
func (c *TuningConfig) GetMaxZoom() float64 {
	if c.MaxZoom == nil {
		return cluster.DefaultMaxZoom
	}
	return *c.MaxZoom
}

// GetGridSize returns the grid_size value or the default.
func (c *TuningConfig) GetGridSize() float64 {
	if c.GridSize == nil {
		return cluster.DefaultGridSize
	}
	return *c.GridSize
}

// GetDensityThreshold returns the density_threshold value or the default.
func (c *TuningConfig) GetDensityThreshold() float64 {
	if c.DensityThreshold == nil {
		return cluster.DefaultDensityThreshold
	}
	return *c.DensityThreshold
}

// ClusterConfig materializes the tuning values as an engine Config.
// Range and strategy validation is cluster.Config.Validate's job; the
// loader deliberately does not duplicate it.
func (c *TuningConfig) ClusterConfig() cluster.Config {
	return cluster.Config{
		Strategy:         cluster.Strategy(c.GetStrategy()),
		Radius:           c.GetRadius(),
		MinPoints:        c.GetMinPoints(),
		MaxZoom:          c.GetMaxZoom(),
		GridSize:         c.GetGridSize(),
		DensityThreshold: c.GetDensityThreshold(),
	}
}
