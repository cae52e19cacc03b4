package l4perception

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// obbCovarianceEpsilon is the off-diagonal covariance below which the X-Y
// spread is treated as axis-aligned and no eigen decomposition is attempted.
const obbCovarianceEpsilon = 1e-9

// OrientedBoundingBox is a yaw-only 3D box: the tightest rectangle in the
// X-Y plane along the cluster's principal axis, extruded over its Z extent.
//
//   - Center: midpoint of the box (metres)
//   - Length: extent along the heading direction
//   - Width: extent perpendicular to the heading
//   - Height: extent along Z
//   - HeadingRad: yaw of the principal axis, in (-π/2, π/2]
type OrientedBoundingBox struct {
	CenterX, CenterY, CenterZ float64
	Length, Width, Height     float64
	HeadingRad                float64
}

// BuildOrientedBoundingBox fits an OrientedBoundingBox to the cluster using
// PCA on the X-Y plane.
//
// Algorithm:
//  1. Compute the X-Y centroid and 2x2 covariance
//  2. Take the eigenvector of the largest eigenvalue as the principal axis
//  3. Project points onto the principal and perpendicular axes for extents
func BuildOrientedBoundingBox(cluster Cluster) (OrientedBoundingBox, error) {
	points := cluster.Points
	n := len(points)
	if n == 0 {
		return OrientedBoundingBox{}, fmt.Errorf("%w: cannot bound a cluster with no points", ErrEmptyCluster)
	}

	var sumX, sumY float64
	for _, p := range points {
		sumX += p.X
		sumY += p.Y
	}
	nf := float64(n)
	meanX, meanY := sumX/nf, sumY/nf

	var c00, c01, c11 float64
	for _, p := range points {
		dx, dy := p.X-meanX, p.Y-meanY
		c00 += dx * dx
		c01 += dx * dy
		c11 += dy * dy
	}
	c00 /= nf
	c01 /= nf
	c11 /= nf

	evX, evY := principalAxis(c00, c01, c11)

	minAlong, maxAlong := math.MaxFloat64, -math.MaxFloat64
	minPerp, maxPerp := math.MaxFloat64, -math.MaxFloat64
	minZ, maxZ := math.MaxFloat64, -math.MaxFloat64
	for _, p := range points {
		dx, dy := p.X-meanX, p.Y-meanY
		along := dx*evX + dy*evY
		perp := -dx*evY + dy*evX
		minAlong = math.Min(minAlong, along)
		maxAlong = math.Max(maxAlong, along)
		minPerp = math.Min(minPerp, perp)
		maxPerp = math.Max(maxPerp, perp)
		minZ = math.Min(minZ, p.Z)
		maxZ = math.Max(maxZ, p.Z)
	}

	// Shift the centroid to the middle of the projected extents.
	midAlong := (minAlong + maxAlong) / 2
	midPerp := (minPerp + maxPerp) / 2
	return OrientedBoundingBox{
		CenterX:    meanX + midAlong*evX - midPerp*evY,
		CenterY:    meanY + midAlong*evY + midPerp*evX,
		CenterZ:    (minZ + maxZ) / 2,
		Length:     maxAlong - minAlong,
		Width:      maxPerp - minPerp,
		Height:     maxZ - minZ,
		HeadingRad: math.Atan2(evY, evX),
	}, nil
}

// principalAxis returns the unit eigenvector of the larger eigenvalue of the
// symmetric matrix [c00 c01; c01 c11], with a non-negative X component.
func principalAxis(c00, c01, c11 float64) (float64, float64) {
	if math.Abs(c01) <= obbCovarianceEpsilon {
		if c00 >= c11 {
			return 1, 0
		}
		return 0, 1
	}

	var eig mat.EigenSym
	if !eig.Factorize(mat.NewSymDense(2, []float64{c00, c01, c01, c11}), true) {
		return 1, 0
	}
	var vecs mat.Dense
	eig.VectorsTo(&vecs)

	// Eigenvalues come back in ascending order; column 1 is the principal axis.
	evX, evY := vecs.At(0, 1), vecs.At(1, 1)
	if mag := math.Hypot(evX, evY); mag > obbCovarianceEpsilon {
		evX, evY = evX/mag, evY/mag
	} else {
		return 1, 0
	}
	if evX < 0 || (evX == 0 && evY < 0) {
		evX, evY = -evX, -evY
	}
	return evX, evY
}
