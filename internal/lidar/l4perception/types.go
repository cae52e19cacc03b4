package l4perception

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"
)

// Point is a single range-sensor return in the sensor frame.
type Point struct {
	X, Y, Z   float64 // Position (metres)
	Intensity float32 // Return intensity, zero when the sensor does not report one
}

// Vec returns the position of p as an r3 vector.
func (p Point) Vec() r3.Vector {
	return r3.Vector{X: p.X, Y: p.Y, Z: p.Z}
}

// PointSet is an ordered collection of points. Order carries no meaning for
// correctness but is preserved by every operation so results are reproducible.
type PointSet []Point

// Clone returns a copy of ps that shares no storage with it.
func (ps PointSet) Clone() PointSet {
	if ps == nil {
		return nil
	}
	out := make(PointSet, len(ps))
	copy(out, ps)
	return out
}

// Region is an axis-aligned box with inclusive bounds.
type Region struct {
	Min, Max r3.Vector
}

// NewRegion builds a Region from corner coordinates.
func NewRegion(minX, minY, minZ, maxX, maxY, maxZ float64) Region {
	return Region{
		Min: r3.Vector{X: minX, Y: minY, Z: minZ},
		Max: r3.Vector{X: maxX, Y: maxY, Z: maxZ},
	}
}

// Validate reports ErrInvalidParameter when Min exceeds Max on any axis or a
// bound is NaN.
func (r Region) Validate() error {
	for _, axis := range [3]struct {
		name     string
		min, max float64
	}{
		{"x", r.Min.X, r.Max.X},
		{"y", r.Min.Y, r.Max.Y},
		{"z", r.Min.Z, r.Max.Z},
	} {
		if math.IsNaN(axis.min) || math.IsNaN(axis.max) || axis.min > axis.max {
			return fmt.Errorf("%w: region %s bounds [%v, %v]", ErrInvalidParameter, axis.name, axis.min, axis.max)
		}
	}
	return nil
}

// Contains reports whether p lies inside r, bounds included.
func (r Region) Contains(p Point) bool {
	return p.X >= r.Min.X && p.X <= r.Max.X &&
		p.Y >= r.Min.Y && p.Y <= r.Max.Y &&
		p.Z >= r.Min.Z && p.Z <= r.Max.Z
}

// BoundingBox is the axis-aligned extent of a cluster. It is derived from
// the cluster's points and never edited on its own.
type BoundingBox struct {
	Min, Max r3.Vector
}

// Size returns the box extent along each axis.
func (b BoundingBox) Size() r3.Vector {
	return b.Max.Sub(b.Min)
}

// Center returns the midpoint of the box.
func (b BoundingBox) Center() r3.Vector {
	return b.Min.Add(b.Max).Mul(0.5)
}

// Region converts the box to a crop region with the same bounds.
func (b BoundingBox) Region() Region {
	return Region{Min: b.Min, Max: b.Max}
}
