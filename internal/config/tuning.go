package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
const DefaultConfigPath = "config/tuning.defaults.json"

// Built-in defaults, used by the Get* accessors when a field is unset.
const (
	DefaultNoiseThreshold = 2.5
	DefaultDBSCANEps      = 1.5
	DefaultDBSCANMinPts   = 5
	DefaultXColumn        = 7
	DefaultYColumn        = 8
	DefaultZColumn        = 9
	DefaultBatchWorkers   = 1
)

// TuningConfig holds the frame-processing parameters. Every field is a
// pointer so that a partial JSON file only overrides what it names.
type TuningConfig struct {
	// Noise filter
	NoiseThreshold *float64 `json:"noise_threshold,omitempty"`

	// Object segmentation
	DBSCANEps    *float64 `json:"dbscan_eps,omitempty"`
	DBSCANMinPts *int     `json:"dbscan_min_pts,omitempty"`

	// Spatial column positions (0-indexed) within each CSV row.
	XColumn *int `json:"x_column,omitempty"`
	YColumn *int `json:"y_column,omitempty"`
	ZColumn *int `json:"z_column,omitempty"`

	// Optional header names for the spatial columns. When a frame has a
	// header containing the name, it takes precedence over the position.
	XColumnName *string `json:"x_column_name,omitempty"`
	YColumnName *string `json:"y_column_name,omitempty"`
	ZColumnName *string `json:"z_column_name,omitempty"`

	// Batch driver
	BatchWorkers *int `json:"batch_workers,omitempty"`
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// DefaultTuningConfig returns a TuningConfig with every numeric field
// populated from the built-in defaults. Column names stay unset.
func DefaultTuningConfig() *TuningConfig {
	return &TuningConfig{
		NoiseThreshold: ptrFloat64(DefaultNoiseThreshold),
		DBSCANEps:      ptrFloat64(DefaultDBSCANEps),
		DBSCANMinPts:   ptrInt(DefaultDBSCANMinPts),
		XColumn:        ptrInt(DefaultXColumn),
		YColumn:        ptrInt(DefaultYColumn),
		ZColumn:        ptrInt(DefaultZColumn),
		BatchWorkers:   ptrInt(DefaultBatchWorkers),
	}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file must have a .json extension and be under 1MB.
// Fields omitted from the file fall back to the built-in defaults.
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

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical defaults from DefaultConfigPath,
// searching the current directory and its parents up to the repository root.
// Panics if the file cannot be loaded; intended for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath,       // from internal/config/
		"../../../" + DefaultConfigPath,    // from internal/lidar/pipeline/
		"../../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that every set field holds a usable value.
func (c *TuningConfig) Validate() error {
	if c.NoiseThreshold != nil {
		v := *c.NoiseThreshold
		if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
			return fmt.Errorf("noise_threshold must be a positive finite number, got %f", v)
		}
	}

	if c.DBSCANEps != nil {
		v := *c.DBSCANEps
		if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
			return fmt.Errorf("dbscan_eps must be a positive finite number, got %f", v)
		}
	}

	if c.DBSCANMinPts != nil && *c.DBSCANMinPts < 1 {
		return fmt.Errorf("dbscan_min_pts must be at least 1, got %d", *c.DBSCANMinPts)
	}

	cols := c.GetSpatialColumns()
	for i, col := range cols {
		if col < 0 {
			return fmt.Errorf("%s_column must be non-negative, got %d", axisNames[i], col)
		}
	}
	if cols[0] == cols[1] || cols[0] == cols[2] || cols[1] == cols[2] {
		return fmt.Errorf("spatial columns must be distinct, got %v", cols)
	}

	if c.BatchWorkers != nil && *c.BatchWorkers < 1 {
		return fmt.Errorf("batch_workers must be at least 1, got %d", *c.BatchWorkers)
	}

	return nil
}

var axisNames = [3]string{"x", "y", "z"}

// GetNoiseThreshold returns the noise_threshold value or the default.
func (c *TuningConfig) GetNoiseThreshold() float64 {
	if c.NoiseThreshold == nil {
		return DefaultNoiseThreshold
	}
	return *c.NoiseThreshold
}

// GetDBSCANEps returns the dbscan_eps value or the default.
func (c *TuningConfig) GetDBSCANEps() float64 {
	if c.DBSCANEps == nil {
		return DefaultDBSCANEps
	}
	return *c.DBSCANEps
}

// GetDBSCANMinPts returns the dbscan_min_pts value or the default.
func (c *TuningConfig) GetDBSCANMinPts() int {
	if c.DBSCANMinPts == nil {
		return DefaultDBSCANMinPts
	}
	return *c.DBSCANMinPts
}

// GetSpatialColumns returns the X, Y and Z column positions.
func (c *TuningConfig) GetSpatialColumns() [3]int {
	cols := [3]int{DefaultXColumn, DefaultYColumn, DefaultZColumn}
	for i, p := range []*int{c.XColumn, c.YColumn, c.ZColumn} {
		if p != nil {
			cols[i] = *p
		}
	}
	return cols
}

// GetSpatialColumnNames returns the configured X, Y and Z header names.
// Unset names are returned as empty strings.
func (c *TuningConfig) GetSpatialColumnNames() [3]string {
	var names [3]string
	for i, p := range []*string{c.XColumnName, c.YColumnName, c.ZColumnName} {
		if p != nil {
			names[i] = strings.TrimSpace(*p)
		}
	}
	return names
}

// GetBatchWorkers returns the batch_workers value or the default.
func (c *TuningConfig) GetBatchWorkers() int {
	if c.BatchWorkers == nil {
		return DefaultBatchWorkers
	}
	return *c.BatchWorkers
}
