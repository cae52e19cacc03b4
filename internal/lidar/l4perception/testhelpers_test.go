package l4perception

import (
	"math/rand"
)

// flatGround returns a side×side grid of coplanar points at height z with
// the given spacing, centred on the origin.
func flatGround(side int, spacing, z float64) PointSet {
	points := make(PointSet, 0, side*side)
	offset := float64(side-1) * spacing / 2
	for i := 0; i < side; i++ {
		for j := 0; j < side; j++ {
			points = append(points, Point{
				X: float64(i)*spacing - offset,
				Y: float64(j)*spacing - offset,
				Z: z,
			})
		}
	}
	return points
}

// blob returns n points scattered uniformly inside a cube of edge size
// centred on (cx, cy, cz), using a fixed seed so tests are reproducible.
func blob(n int, cx, cy, cz, size float64, seed int64) PointSet {
	rng := rand.New(rand.NewSource(seed))
	points := make(PointSet, n)
	for i := range points {
		points[i] = Point{
			X:         cx + (rng.Float64()-0.5)*size,
			Y:         cy + (rng.Float64()-0.5)*size,
			Z:         cz + (rng.Float64()-0.5)*size,
			Intensity: float32(rng.Intn(256)),
		}
	}
	return points
}

// line returns n collinear points spaced step apart along X starting at x0.
func line(n int, x0, step float64) PointSet {
	points := make(PointSet, n)
	for i := range points {
		points[i] = Point{X: x0 + float64(i)*step}
	}
	return points
}

// bruteForceNeighbours is the O(n) reference for radius queries.
func bruteForceNeighbours(points PointSet, q Point, radius float64) []int {
	r2 := radius * radius
	out := []int{}
	for i, p := range points {
		dx, dy, dz := p.X-q.X, p.Y-q.Y, p.Z-q.Z
		if dx*dx+dy*dy+dz*dz <= r2 {
			out = append(out, i)
		}
	}
	return out
}

func dist2(a, b Point) float64 {
	dx, dy, dz := a.X-b.X, a.Y-b.Y, a.Z-b.Z
	return dx*dx + dy*dy + dz*dz
}
