package pipeline

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/banshee-data/obstacle.report/internal/lidar/l4perception"
)

// testConfig keeps the ground exact and the voxel finer than the point
// spacing, so every test point survives filtering unchanged.
func testConfig() Config {
	return Config{
		VoxelSize:       0.1,
		Region:          l4perception.NewRegion(-20, -6, -2, 20, 7, 2),
		PlaneIterations: 25,
		PlaneThreshold:  0.1,
		Cluster:         l4perception.ClusterParams{Radius: 0.44, MinSize: 3, MaxSize: 1000},
		Seed:            1,
	}
}

// road returns a flat grid at z=-1.7 covering most of the crop region.
func road() l4perception.PointSet {
	var points l4perception.PointSet
	for x := -19.0; x <= 19.0; x += 0.25 {
		for y := -5.5; y <= 5.5; y += 0.25 {
			points = append(points, l4perception.Point{X: x, Y: y, Z: -1.7, Intensity: 10})
		}
	}
	return points
}

// cube returns a lattice of points filling an axis-aligned cube of the given
// edge centred on (cx, cy, cz).
func cube(cx, cy, cz, edge, step float64) l4perception.PointSet {
	var points l4perception.PointSet
	n := int(edge/step + 0.5)
	for i := 0; i <= n; i++ {
		for j := 0; j <= n; j++ {
			for k := 0; k <= n; k++ {
				points = append(points, l4perception.Point{
					X:         cx - edge/2 + float64(i)*step,
					Y:         cy - edge/2 + float64(j)*step,
					Z:         cz - edge/2 + float64(k)*step,
					Intensity: 80,
				})
			}
		}
	}
	return points
}

// twoCarScene is a road with one obstacle ahead and one behind to the left.
func twoCarScene() l4perception.PointSet {
	scene := road()
	scene = append(scene, cube(8, 0, -1, 1, 0.2)...)
	scene = append(scene, cube(-10, 3, -1, 1, 0.2)...)
	return scene
}

// ignoreTimings drops wall-clock fields from result comparisons and compares
// errors by message.
var ignoreTimings = cmp.Options{
	cmpopts.IgnoreFields(FrameStats{}, "FilterDuration", "SegmentDuration", "ClusterDuration", "BoundDuration"),
	cmpopts.IgnoreFields(RunSummary{}, "Elapsed"),
	cmp.Comparer(func(a, b error) bool {
		if a == nil || b == nil {
			return a == nil && b == nil
		}
		return a.Error() == b.Error()
	}),
}

// sliceSource serves a fixed list of frames and then io.EOF.
type sliceSource struct {
	mu     sync.Mutex
	frames []l4perception.PointSet
	next   int
	err    error // returned instead of io.EOF when set
}

func (s *sliceSource) NextFrame(ctx context.Context) (l4perception.PointSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.next >= len(s.frames) {
		if s.err != nil {
			return nil, s.err
		}
		return nil, io.EOF
	}
	f := s.frames[s.next]
	s.next++
	return f, nil
}

// collectSink records every outcome it is handed.
type collectSink struct {
	outcomes []FrameOutcome
	failAt   int // 1-based publish call that fails; 0 disables
}

var errSinkFull = errors.New("sink full")

func (c *collectSink) Publish(_ context.Context, o FrameOutcome) error {
	if c.failAt > 0 && len(c.outcomes)+1 == c.failAt {
		return errSinkFull
	}
	c.outcomes = append(c.outcomes, o)
	return nil
}
