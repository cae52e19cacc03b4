package l4perception

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/golang/geo/r3"
)

// collinearEpsilon is the relative threshold below which the cross product
// of two sample edges is treated as zero. It is scaled by the edge lengths so
// the test does not depend on the units of the cloud.
const collinearEpsilon = 1e-9

// DefaultPlaneSeed seeds PlaneSegmenter when the caller does not supply a source.
const DefaultPlaneSeed = 1

// PlaneModel is the plane A·x + B·y + C·z + D = 0 with (A, B, C) of unit
// length, together with the inlier distance threshold it was fitted with.
// The normal is oriented so that C >= 0.
type PlaneModel struct {
	A, B, C, D float64
	Threshold  float64
}

// Normal returns the unit normal of the plane.
func (m PlaneModel) Normal() r3.Vector {
	return r3.Vector{X: m.A, Y: m.B, Z: m.C}
}

// Distance returns the perpendicular distance from p to the plane.
func (m PlaneModel) Distance(p Point) float64 {
	return math.Abs(m.A*p.X + m.B*p.Y + m.C*p.Z + m.D)
}

// IsInlier reports whether p lies within Threshold of the plane.
func (m PlaneModel) IsInlier(p Point) bool {
	return m.Distance(p) <= m.Threshold
}

// SegmentationResult splits one PointSet into the points on the fitted plane
// and everything else. Inliers and Outliers are disjoint, their union is the
// input, and each keeps the input order.
type SegmentationResult struct {
	Plane    PlaneModel
	Inliers  PointSet
	Outliers PointSet
}

// PlaneSegmenter fits the dominant plane of a point set with RANSAC.
//
// Each iteration consumes exactly one sample of three distinct indices from
// the random source, so a segmenter seeded identically replays identically.
// A collinear sample uses up its iteration; the next iteration draws the
// replacement sample.
//
// A PlaneSegmenter is not safe for concurrent use because it advances its
// random source.
type PlaneSegmenter struct {
	rng *rand.Rand
}

// NewPlaneSegmenter returns a segmenter drawing samples from rng. A nil rng
// is replaced by a source seeded with DefaultPlaneSeed.
func NewPlaneSegmenter(rng *rand.Rand) *PlaneSegmenter {
	if rng == nil {
		rng = rand.New(rand.NewSource(DefaultPlaneSeed))
	}
	return &PlaneSegmenter{rng: rng}
}

// SegmentPlane is a convenience wrapper running a fresh segmenter seeded with seed.
func SegmentPlane(input PointSet, maxIterations int, distanceThreshold float64, seed int64) (SegmentationResult, error) {
	return NewPlaneSegmenter(rand.New(rand.NewSource(seed))).Segment(input, maxIterations, distanceThreshold)
}

// Segment runs maxIterations RANSAC iterations over input and partitions it
// with the plane that gathered the most inliers. Ties keep the plane found
// first.
func (s *PlaneSegmenter) Segment(input PointSet, maxIterations int, distanceThreshold float64) (SegmentationResult, error) {
	if maxIterations <= 0 {
		return SegmentationResult{}, fmt.Errorf("%w: max iterations must be > 0, got %d", ErrInvalidParameter, maxIterations)
	}
	if !(distanceThreshold > 0) {
		return SegmentationResult{}, fmt.Errorf("%w: distance threshold must be > 0, got %v", ErrInvalidParameter, distanceThreshold)
	}
	n := len(input)
	if n < 3 {
		return SegmentationResult{}, fmt.Errorf("%w: plane fit needs 3 points, got %d", ErrInsufficientPoints, n)
	}

	var (
		best        PlaneModel
		bestInliers = -1
		degenerate  int
	)
	for iter := 0; iter < maxIterations; iter++ {
		i, j, k := s.sampleTriple(n)
		model, ok := planeThrough(input[i], input[j], input[k], distanceThreshold)
		if !ok {
			degenerate++
			continue
		}

		count := 0
		for _, p := range input {
			if model.IsInlier(p) {
				count++
			}
		}
		// Strictly greater: the first plane found wins ties.
		if count > bestInliers {
			best = model
			bestInliers = count
		}
	}

	if bestInliers < 0 {
		diagf("segment: all %d samples degenerate over %d points", maxIterations, n)
		return SegmentationResult{}, fmt.Errorf("%w: %d of %d samples were collinear", ErrNoPlaneFound, degenerate, maxIterations)
	}

	result := SegmentationResult{
		Plane:    best,
		Inliers:  make(PointSet, 0, bestInliers),
		Outliers: make(PointSet, 0, n-bestInliers),
	}
	for _, p := range input {
		if best.IsInlier(p) {
			result.Inliers = append(result.Inliers, p)
		} else {
			result.Outliers = append(result.Outliers, p)
		}
	}

	tracef("segment: points=%d iterations=%d degenerate=%d inliers=%d plane=(%.4f, %.4f, %.4f, %.4f)",
		n, maxIterations, degenerate, len(result.Inliers), best.A, best.B, best.C, best.D)
	return result, nil
}

// sampleTriple draws three distinct indices in [0, n) with exactly three
// calls to the random source.
func (s *PlaneSegmenter) sampleTriple(n int) (int, int, int) {
	i := s.rng.Intn(n)
	j := s.rng.Intn(n - 1)
	if j >= i {
		j++
	}
	lo, hi := i, j
	if lo > hi {
		lo, hi = hi, lo
	}
	k := s.rng.Intn(n - 2)
	if k >= lo {
		k++
	}
	if k >= hi {
		k++
	}
	return i, j, k
}

// planeThrough returns the plane through three points, or false when they
// are collinear or coincident.
func planeThrough(a, b, c Point, threshold float64) (PlaneModel, bool) {
	p1 := a.Vec()
	v1 := b.Vec().Sub(p1)
	v2 := c.Vec().Sub(p1)

	cross := v1.Cross(v2)
	norm := cross.Norm()
	if norm == 0 || norm <= collinearEpsilon*v1.Norm()*v2.Norm() {
		return PlaneModel{}, false
	}

	normal := cross.Mul(1 / norm)
	if normal.Z < 0 {
		normal = normal.Mul(-1)
	}
	return PlaneModel{
		A:         normal.X,
		B:         normal.Y,
		C:         normal.Z,
		D:         -normal.Dot(p1),
		Threshold: threshold,
	}, true
}
