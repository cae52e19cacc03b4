package l4perception

import (
	"fmt"
	"math"
)

// voxelKey addresses one cube of the voxel grid.
type voxelKey struct {
	I, J, K int64
}

func voxelKeyOf(p Point, leafSize float64) voxelKey {
	return voxelKey{
		I: int64(math.Floor(p.X / leafSize)),
		J: int64(math.Floor(p.Y / leafSize)),
		K: int64(math.Floor(p.Z / leafSize)),
	}
}

// voxelAccumulator sums the points that fell into one voxel.
type voxelAccumulator struct {
	sumX, sumY, sumZ float64
	sumIntensity     float64
	count            int
}

// VoxelGrid downsamples points so that every occupied cube of edge leafSize
// contributes exactly one point: the centroid of the points it contains, with
// the mean intensity. Output order follows the first point seen in each voxel.
func VoxelGrid(points PointSet, leafSize float64) (PointSet, error) {
	if !(leafSize > 0) || math.IsInf(leafSize, 1) {
		return nil, fmt.Errorf("%w: voxel size must be > 0, got %v", ErrInvalidParameter, leafSize)
	}
	if len(points) == 0 {
		return PointSet{}, nil
	}

	slots := make(map[voxelKey]int, len(points)/4+1)
	accs := make([]voxelAccumulator, 0, len(points)/4+1)

	for _, p := range points {
		key := voxelKeyOf(p, leafSize)
		slot, ok := slots[key]
		if !ok {
			slot = len(accs)
			slots[key] = slot
			accs = append(accs, voxelAccumulator{})
		}
		acc := &accs[slot]
		acc.sumX += p.X
		acc.sumY += p.Y
		acc.sumZ += p.Z
		acc.sumIntensity += float64(p.Intensity)
		acc.count++
	}

	out := make(PointSet, len(accs))
	for i, acc := range accs {
		if acc.count == 1 {
			// A lone point is its own centroid; keep it bit-exact.
			out[i] = Point{X: acc.sumX, Y: acc.sumY, Z: acc.sumZ, Intensity: float32(acc.sumIntensity)}
			continue
		}
		n := float64(acc.count)
		out[i] = Point{
			X:         acc.sumX / n,
			Y:         acc.sumY / n,
			Z:         acc.sumZ / n,
			Intensity: float32(acc.sumIntensity / n),
		}
	}
	return out, nil
}
