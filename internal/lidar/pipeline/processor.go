package pipeline

import (
	"fmt"
	"math/rand"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/obstacle.report/internal/lidar/l4perception"
)

// Stage names the step of ProcessFrame that produced an error.
type Stage string

const (
	StageFilter  Stage = "filter"
	StageSegment Stage = "segment"
	StageCluster Stage = "cluster"
	StageBound   Stage = "bound"
)

// FrameError reports a frame aborted by one of its stages. Cause is the
// component error and remains reachable through errors.Is and errors.As.
type FrameError struct {
	Seq   uint64
	Stage Stage
	Cause error
}

func (e *FrameError) Error() string {
	return fmt.Sprintf("frame %d: %s stage: %v", e.Seq, e.Stage, e.Cause)
}

func (e *FrameError) Unwrap() error { return e.Cause }

// Obstacle is one cluster with its axis-aligned and oriented extents.
type Obstacle struct {
	l4perception.Cluster
	Box      l4perception.BoundingBox
	Oriented l4perception.OrientedBoundingBox
}

// FrameStats records point counts and wall time per stage.
type FrameStats struct {
	InputPoints    int
	FilteredPoints int
	GroundPoints   int
	ObstaclePoints int
	Clusters       int

	FilterDuration  time.Duration
	SegmentDuration time.Duration
	ClusterDuration time.Duration
	BoundDuration   time.Duration
}

// Total is the summed duration of all stages.
func (s FrameStats) Total() time.Duration {
	return s.FilterDuration + s.SegmentDuration + s.ClusterDuration + s.BoundDuration
}

// FrameResult is the complete output for one frame. Obstacles are ordered as
// the clusters were extracted.
type FrameResult struct {
	Seq       uint64
	Plane     l4perception.PlaneModel
	Ground    l4perception.PointSet
	Obstacles []Obstacle
	Stats     FrameStats
}

// FrameProcessor runs frames through filter, segment, cluster and bound. It
// holds only its validated configuration and may be shared between
// goroutines.
type FrameProcessor struct {
	cfg Config
}

// NewFrameProcessor validates cfg and returns a processor bound to it.
func NewFrameProcessor(cfg Config) (*FrameProcessor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Exclude != nil {
		ex := *cfg.Exclude
		cfg.Exclude = &ex
	}
	return &FrameProcessor{cfg: cfg}, nil
}

// Config returns a copy of the processor's configuration.
func (fp *FrameProcessor) Config() Config {
	cfg := fp.cfg
	if cfg.Exclude != nil {
		ex := *cfg.Exclude
		cfg.Exclude = &ex
	}
	return cfg
}

// ProcessFrame runs one raw frame through every stage. Any stage failure
// aborts the frame and is returned as a *FrameError; no partial result is
// returned alongside it. raw is not modified.
func (fp *FrameProcessor) ProcessFrame(seq uint64, raw l4perception.PointSet) (*FrameResult, error) {
	cfg := fp.cfg
	stats := FrameStats{InputPoints: len(raw)}
	fail := func(stage Stage, err error) (*FrameResult, error) {
		return nil, &FrameError{Seq: seq, Stage: stage, Cause: err}
	}

	start := time.Now()
	filtered, err := l4perception.Filter(raw, cfg.VoxelSize, cfg.Region, cfg.Exclude)
	if err != nil {
		return fail(StageFilter, err)
	}
	stats.FilteredPoints = len(filtered)
	stats.FilterDuration = time.Since(start)

	start = time.Now()
	segmenter := l4perception.NewPlaneSegmenter(rand.New(rand.NewSource(cfg.Seed + int64(seq))))
	seg, err := segmenter.Segment(filtered, cfg.PlaneIterations, cfg.PlaneThreshold)
	if err != nil {
		return fail(StageSegment, err)
	}
	stats.GroundPoints = len(seg.Inliers)
	stats.ObstaclePoints = len(seg.Outliers)
	stats.SegmentDuration = time.Since(start)

	start = time.Now()
	clusters, err := l4perception.ExtractClusters(seg.Outliers, cfg.Cluster.Radius, cfg.Cluster.MinSize, cfg.Cluster.MaxSize)
	if err != nil {
		return fail(StageCluster, err)
	}
	stats.Clusters = len(clusters)
	stats.ClusterDuration = time.Since(start)

	start = time.Now()
	obstacles, err := boundClusters(clusters)
	if err != nil {
		return fail(StageBound, err)
	}
	stats.BoundDuration = time.Since(start)

	tracef("frame %d: in=%d filtered=%d ground=%d obstacle=%d clusters=%d took=%v",
		seq, stats.InputPoints, stats.FilteredPoints, stats.GroundPoints,
		stats.ObstaclePoints, stats.Clusters, stats.Total())

	return &FrameResult{
		Seq:       seq,
		Plane:     seg.Plane,
		Ground:    seg.Inliers,
		Obstacles: obstacles,
		Stats:     stats,
	}, nil
}

// boundClusters computes both boxes for each cluster concurrently. Each
// goroutine writes only its own slot, so the output keeps cluster order.
func boundClusters(clusters []l4perception.Cluster) ([]Obstacle, error) {
	obstacles := make([]Obstacle, len(clusters))
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := range clusters {
		i := i
		g.Go(func() error {
			box, err := l4perception.BuildBoundingBox(clusters[i])
			if err != nil {
				return fmt.Errorf("cluster %d: %w", i, err)
			}
			obb, err := l4perception.BuildOrientedBoundingBox(clusters[i])
			if err != nil {
				return fmt.Errorf("cluster %d: %w", i, err)
			}
			obstacles[i] = Obstacle{Cluster: clusters[i], Box: box, Oriented: obb}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return obstacles, nil
}
