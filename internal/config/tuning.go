package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/banshee-data/obstacle.report/internal/lidar/l4perception"
	"github.com/banshee-data/obstacle.report/internal/lidar/pipeline"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
// This is the single source of truth for all default tuning values.
const DefaultConfigPath = "config/tuning.defaults.json"

// TuningConfig represents the root configuration for detection parameters.
// Every field is optional; Get* methods supply the default for omitted ones.
type TuningConfig struct {
	// Filter params
	VoxelSize    *float64    `json:"voxel_size,omitempty"`
	CropMin      *[3]float64 `json:"crop_min,omitempty"`
	CropMax      *[3]float64 `json:"crop_max,omitempty"`
	EgoExclusion *bool       `json:"ego_exclusion,omitempty"`
	EgoMin       *[3]float64 `json:"ego_min,omitempty"`
	EgoMax       *[3]float64 `json:"ego_max,omitempty"`

	// Ground segmentation params
	PlaneIterations *int     `json:"plane_iterations,omitempty"`
	PlaneThreshold  *float64 `json:"plane_threshold,omitempty"`

	// Clustering params
	ClusterRadius  *float64 `json:"cluster_radius,omitempty"`
	ClusterMinSize *int     `json:"cluster_min_size,omitempty"`
	ClusterMaxSize *int     `json:"cluster_max_size,omitempty"`

	// Run params
	Seed          *int64  `json:"seed,omitempty"`
	Workers       *int    `json:"workers,omitempty"`
	StatsInterval *string `json:"stats_interval,omitempty"` // duration string like "5s"
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }
func ptrInt64(v int64) *int64       { return &v }

func ptrVec(x, y, z float64) *[3]float64 { return &[3]float64{x, y, z} }

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
// Use LoadTuningConfig to load actual values from the defaults file.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// DefaultTuningConfig returns a TuningConfig with every field set to its
// default, matching config/tuning.defaults.json.
func DefaultTuningConfig() *TuningConfig {
	return &TuningConfig{
		VoxelSize:       ptrFloat64(0.15),
		CropMin:         ptrVec(-20, -6, -2),
		CropMax:         ptrVec(20, 7, 2),
		EgoExclusion:    ptrBool(true),
		EgoMin:          ptrVec(-1.5, -1.7, -1),
		EgoMax:          ptrVec(2.6, 1.7, -0.4),
		PlaneIterations: ptrInt(25),
		PlaneThreshold:  ptrFloat64(0.3),
		ClusterRadius:   ptrFloat64(l4perception.DefaultClusterRadius),
		ClusterMinSize:  ptrInt(l4perception.DefaultClusterMinSize),
		ClusterMaxSize:  ptrInt(l4perception.DefaultClusterMaxSize),
		Seed:            ptrInt64(l4perception.DefaultPlaneSeed),
		Workers:         ptrInt(4),
		StatsInterval:   ptrString("5s"),
	}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the max file size.
// Fields omitted from the JSON file retain their default values, so
// partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
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

// MustLoadDefaultConfig loads the canonical tuning defaults from DefaultConfigPath.
// It searches for the file in the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,          // from cmd/obstacles/
		"../../" + DefaultConfigPath,       // from internal/config/
		"../../../" + DefaultConfigPath,    // from internal/lidar/pipeline/
		"../../../../" + DefaultConfigPath, // from internal/lidar/storage/sqlite/
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	if c.Workers != nil && *c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", *c.Workers)
	}

	if c.StatsInterval != nil && *c.StatsInterval != "" {
		d, err := time.ParseDuration(*c.StatsInterval)
		if err != nil {
			return fmt.Errorf("invalid stats_interval '%s': %w", *c.StatsInterval, err)
		}
		if d <= 0 {
			return fmt.Errorf("stats_interval must be positive, got %s", *c.StatsInterval)
		}
	}

	// Everything else is a stage parameter; the pipeline owns those rules.
	return c.ToPipelineConfig().Validate()
}

// ToPipelineConfig resolves every field (falling back to defaults) into the
// configuration consumed by pipeline.NewFrameProcessor.
func (c *TuningConfig) ToPipelineConfig() pipeline.Config {
	cropMin, cropMax := c.GetCropMin(), c.GetCropMax()
	cfg := pipeline.Config{
		VoxelSize:       c.GetVoxelSize(),
		Region:          l4perception.NewRegion(cropMin[0], cropMin[1], cropMin[2], cropMax[0], cropMax[1], cropMax[2]),
		PlaneIterations: c.GetPlaneIterations(),
		PlaneThreshold:  c.GetPlaneThreshold(),
		Cluster: l4perception.ClusterParams{
			Radius:  c.GetClusterRadius(),
			MinSize: c.GetClusterMinSize(),
			MaxSize: c.GetClusterMaxSize(),
		},
		Seed: c.GetSeed(),
	}
	if c.GetEgoExclusion() {
		egoMin, egoMax := c.GetEgoMin(), c.GetEgoMax()
		ego := l4perception.NewRegion(egoMin[0], egoMin[1], egoMin[2], egoMax[0], egoMax[1], egoMax[2])
		cfg.Exclude = &ego
	}
	return cfg
}

// GetVoxelSize returns the voxel_size value or the default.
func (c *TuningConfig) GetVoxelSize() float64 {
	if c.VoxelSize == nil {
		return 0.15
	}
	return *c.VoxelSize
}

// GetCropMin returns the crop_min corner or the default.
func (c *TuningConfig) GetCropMin() [3]float64 {
	if c.CropMin == nil {
		return [3]float64{-20, -6, -2}
	}
	return *c.CropMin
}

// GetCropMax returns the crop_max corner or the default.
func (c *TuningConfig) GetCropMax() [3]float64 {
	if c.CropMax == nil {
		return [3]float64{20, 7, 2}
	}
	return *c.CropMax
}

// GetEgoExclusion returns the ego_exclusion value or the default.
func (c *TuningConfig) GetEgoExclusion() bool {
	if c.EgoExclusion == nil {
		return true // default: drop returns from the ego vehicle
	}
	return *c.EgoExclusion
}

// GetEgoMin returns the ego_min corner or the default.
func (c *TuningConfig) GetEgoMin() [3]float64 {
	if c.EgoMin == nil {
		return [3]float64{-1.5, -1.7, -1}
	}
	return *c.EgoMin
}

// GetEgoMax returns the ego_max corner or the default.
func (c *TuningConfig) GetEgoMax() [3]float64 {
	if c.EgoMax == nil {
		return [3]float64{2.6, 1.7, -0.4}
	}
	return *c.EgoMax
}

// GetPlaneIterations returns the plane_iterations value or the default.
func (c *TuningConfig) GetPlaneIterations() int {
	if c.PlaneIterations == nil {
		return 25
	}
	return *c.PlaneIterations
}

// GetPlaneThreshold returns the plane_threshold value or the default.
func (c *TuningConfig) GetPlaneThreshold() float64 {
	if c.PlaneThreshold == nil {
		return 0.3
	}
	return *c.PlaneThreshold
}

// GetClusterRadius returns the cluster_radius value or the default.
func (c *TuningConfig) GetClusterRadius() float64 {
	if c.ClusterRadius == nil {
		return l4perception.DefaultClusterRadius
	}
	return *c.ClusterRadius
}

// GetClusterMinSize returns the cluster_min_size value or the default.
func (c *TuningConfig) GetClusterMinSize() int {
	if c.ClusterMinSize == nil {
		return l4perception.DefaultClusterMinSize
	}
	return *c.ClusterMinSize
}

// GetClusterMaxSize returns the cluster_max_size value or the default.
func (c *TuningConfig) GetClusterMaxSize() int {
	if c.ClusterMaxSize == nil {
		return l4perception.DefaultClusterMaxSize
	}
	return *c.ClusterMaxSize
}

// GetSeed returns the seed value or the default.
func (c *TuningConfig) GetSeed() int64 {
	if c.Seed == nil {
		return l4perception.DefaultPlaneSeed
	}
	return *c.Seed
}

// GetWorkers returns the workers value or the default.
func (c *TuningConfig) GetWorkers() int {
	if c.Workers == nil {
		return 4
	}
	return *c.Workers
}

// GetStatsInterval parses and returns the StatsInterval as a time.Duration.
func (c *TuningConfig) GetStatsInterval() time.Duration {
	if c.StatsInterval == nil || *c.StatsInterval == "" {
		return 5 * time.Second // default
	}
	d, err := time.ParseDuration(*c.StatsInterval)
	if err != nil {
		return 5 * time.Second // default on parse error
	}
	return d
}
