package l4perception

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/spatial/kdtree"
)

// indexedPoint is one arena record: the position of points[idx] and its index.
// Tree nodes hold pointers into the arena, so no point is copied per node.
type indexedPoint struct {
	pos [3]float64
	idx int
}

// Compare returns the signed distance of p from c along dimension d.
func (p *indexedPoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(*indexedPoint)
	return p.pos[d] - q.pos[d]
}

// Dims returns the number of indexed dimensions.
func (p *indexedPoint) Dims() int { return 3 }

// Distance returns the squared Euclidean distance between p and c.
func (p *indexedPoint) Distance(c kdtree.Comparable) float64 {
	q := c.(*indexedPoint)
	dx := p.pos[0] - q.pos[0]
	dy := p.pos[1] - q.pos[1]
	dz := p.pos[2] - q.pos[2]
	return dx*dx + dy*dy + dz*dz
}

// arena is a window onto the contiguous record buffer, satisfying kdtree.Interface.
type arena []indexedPoint

func (a arena) Index(i int) kdtree.Comparable { return &a[i] }
func (a arena) Len() int { return len(a) }
func (a arena) Slice(start, end int) kdtree.Interface { return a[start:end] }
func (a arena) Pivot(d kdtree.Dim) int { return arenaPlane{Dim: d, arena: a}.Pivot() }

// arenaPlane orders an arena window along one dimension for median selection.
type arenaPlane struct {
	kdtree.Dim
	arena
}

func (p arenaPlane) Less(i, j int) bool { return p.arena[i].pos[p.Dim] < p.arena[j].pos[p.Dim] }
func (p arenaPlane) Swap(i, j int) { p.arena[i], p.arena[j] = p.arena[j], p.arena[i] }
func (p arenaPlane) Pivot() int { return kdtree.Partition(p, kdtree.MedianOfMedians(p)) }
func (p arenaPlane) Slice(start, end int) kdtree.SortSlicer {
	p.arena = p.arena[start:end]
	return p
}

// SpatialIndex answers exact radius queries over a fixed PointSet using a
// balanced k-d tree on X, Y and Z. Intensity is ignored. The index is
// immutable once built and safe for concurrent queries; rebuild it when the
// point set changes.
type SpatialIndex struct {
	records arena
	tree    *kdtree.Tree
}

// BuildIndex builds a SpatialIndex over points in O(n log n).
func BuildIndex(points PointSet) *SpatialIndex {
	records := make(arena, len(points))
	for i, p := range points {
		records[i] = indexedPoint{pos: [3]float64{p.X, p.Y, p.Z}, idx: i}
	}
	si := &SpatialIndex{records: records}
	if len(records) > 0 {
		// kdtree.New reorders the records while choosing medians; tree nodes
		// then point at their final slots.
		si.tree = kdtree.New(records, false)
	}
	return si
}

// Len returns the number of indexed points.
func (si *SpatialIndex) Len() int {
	return len(si.records)
}

// NeighborsWithinRadius returns, in ascending order, the indices of every
// indexed point whose Euclidean distance to p is at most radius. p itself is
// included when it belongs to the indexed set.
func (si *SpatialIndex) NeighborsWithinRadius(p Point, radius float64) ([]int, error) {
	if !(radius > 0) {
		return nil, fmt.Errorf("%w: radius must be > 0, got %v", ErrInvalidParameter, radius)
	}
	if si.tree == nil {
		return []int{}, nil
	}
	return si.query([3]float64{p.X, p.Y, p.Z}, radius*radius), nil
}

// query collects the indices within sqrt(r2) of pos. r2 must be positive.
func (si *SpatialIndex) query(pos [3]float64, r2 float64) []int {
	keeper := kdtree.NewDistKeeper(r2)
	si.tree.NearestSet(keeper, &indexedPoint{pos: pos, idx: -1})

	out := make([]int, 0, len(keeper.Heap))
	for _, cd := range keeper.Heap {
		// The keeper may retain its distance sentinel, which has no point.
		if cd.Comparable == nil || cd.Dist > r2 {
			continue
		}
		out = append(out, cd.Comparable.(*indexedPoint).idx)
	}
	sort.Ints(out)
	return out
}
