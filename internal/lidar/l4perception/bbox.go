package l4perception

import (
	"fmt"

	"github.com/golang/geo/r3"
)

// BuildBoundingBox returns the per-axis minimum and maximum over the
// cluster's points. It is a pure function of the cluster, so calling it again
// on the same cluster yields the same box.
func BuildBoundingBox(cluster Cluster) (BoundingBox, error) {
	if len(cluster.Points) == 0 {
		return BoundingBox{}, fmt.Errorf("%w: cannot bound a cluster with no points", ErrEmptyCluster)
	}
	return boundsOf(cluster.Points), nil
}

// boundsOf computes the axis-aligned extent of a non-empty point set.
func boundsOf(points PointSet) BoundingBox {
	first := points[0]
	lo := r3.Vector{X: first.X, Y: first.Y, Z: first.Z}
	hi := lo
	for _, p := range points[1:] {
		if p.X < lo.X {
			lo.X = p.X
		}
		if p.X > hi.X {
			hi.X = p.X
		}
		if p.Y < lo.Y {
			lo.Y = p.Y
		}
		if p.Y > hi.Y {
			hi.Y = p.Y
		}
		if p.Z < lo.Z {
			lo.Z = p.Z
		}
		if p.Z > hi.Z {
			hi.Z = p.Z
		}
	}
	return BoundingBox{Min: lo, Max: hi}
}
