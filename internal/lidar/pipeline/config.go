package pipeline

import (
	"fmt"

	"github.com/banshee-data/obstacle.report/internal/lidar/l4perception"
)

// Config holds the per-run parameters of the perception stages. A
// FrameProcessor copies it at construction; it is never modified afterwards.
type Config struct {
	// VoxelSize is the edge length (metres) of the downsampling voxel.
	VoxelSize float64

	// Region is the crop box kept after downsampling, in sensor frame.
	Region l4perception.Region

	// Exclude, when non-nil, removes returns from the ego vehicle's own
	// body (roof and bonnet) after cropping.
	Exclude *l4perception.Region

	// PlaneIterations and PlaneThreshold drive the RANSAC ground fit.
	PlaneIterations int
	PlaneThreshold  float64

	// Cluster bounds the connected-component extraction.
	Cluster l4perception.ClusterParams

	// Seed is the base of the per-frame RANSAC seed; frame seq uses
	// Seed+seq so results do not depend on scheduling.
	Seed int64
}

// DefaultConfig returns the parameters tuned for a roof-mounted sensor on a
// passenger car driving through a city block.
func DefaultConfig() Config {
	ego := l4perception.NewRegion(-1.5, -1.7, -1, 2.6, 1.7, -0.4)
	return Config{
		VoxelSize:       0.15,
		Region:          l4perception.NewRegion(-20, -6, -2, 20, 7, 2),
		Exclude:         &ego,
		PlaneIterations: 25,
		PlaneThreshold:  0.3,
		Cluster:         l4perception.DefaultClusterParams(),
		Seed:            l4perception.DefaultPlaneSeed,
	}
}

// Validate reports the first stage parameter that violates its precondition,
// wrapping l4perception.ErrInvalidParameter.
func (c Config) Validate() error {
	if !(c.VoxelSize > 0) {
		return fmt.Errorf("%w: voxel size must be > 0, got %v", l4perception.ErrInvalidParameter, c.VoxelSize)
	}
	if err := c.Region.Validate(); err != nil {
		return fmt.Errorf("crop region: %w", err)
	}
	if c.Exclude != nil {
		if err := c.Exclude.Validate(); err != nil {
			return fmt.Errorf("exclude region: %w", err)
		}
	}
	if c.PlaneIterations <= 0 {
		return fmt.Errorf("%w: plane iterations must be > 0, got %d", l4perception.ErrInvalidParameter, c.PlaneIterations)
	}
	if !(c.PlaneThreshold > 0) {
		return fmt.Errorf("%w: plane threshold must be > 0, got %v", l4perception.ErrInvalidParameter, c.PlaneThreshold)
	}
	return c.Cluster.Validate()
}

func (c Config) String() string {
	exclude := "none"
	if c.Exclude != nil {
		exclude = fmt.Sprintf("%v..%v", c.Exclude.Min, c.Exclude.Max)
	}
	return fmt.Sprintf("voxel=%.3f crop=%v..%v exclude=%s ransac=%d@%.3f cluster=%.3f[%d,%d] seed=%d",
		c.VoxelSize, c.Region.Min, c.Region.Max, exclude,
		c.PlaneIterations, c.PlaneThreshold,
		c.Cluster.Radius, c.Cluster.MinSize, c.Cluster.MaxSize, c.Seed)
}
