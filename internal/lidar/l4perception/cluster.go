package l4perception

import (
	"fmt"
	"sort"
)

// Default clustering parameters, matching the city-block tuning.
const (
	DefaultClusterRadius  = 0.44
	DefaultClusterMinSize = 3
	DefaultClusterMaxSize = 1000
)

// Cluster is a connected group of obstacle points: every point reaches every
// other through a chain of neighbours no further apart than the clustering
// radius, and no point outside the cluster is that close to any member.
type Cluster struct {
	Points  PointSet // Copied member points, ascending by Indices
	Indices []int    // Positions of the members in the clustered PointSet
}

// Size returns the number of points in the cluster.
func (c Cluster) Size() int {
	return len(c.Points)
}

// ClusterParams bundles the clustering thresholds.
type ClusterParams struct {
	Radius  float64 // Neighbour distance in metres
	MinSize int     // Smallest component kept (noise below)
	MaxSize int     // Largest component kept (merged objects or ground remnants above)
}

// DefaultClusterParams returns the production clustering parameters.
func DefaultClusterParams() ClusterParams {
	return ClusterParams{
		Radius:  DefaultClusterRadius,
		MinSize: DefaultClusterMinSize,
		MaxSize: DefaultClusterMaxSize,
	}
}

// Validate reports ErrInvalidParameter for a non-positive radius, a minimum
// below one, or a minimum above the maximum.
func (p ClusterParams) Validate() error {
	if !(p.Radius > 0) {
		return fmt.Errorf("%w: cluster radius must be > 0, got %v", ErrInvalidParameter, p.Radius)
	}
	if p.MinSize < 1 {
		return fmt.Errorf("%w: cluster min size must be >= 1, got %d", ErrInvalidParameter, p.MinSize)
	}
	if p.MinSize > p.MaxSize {
		return fmt.Errorf("%w: cluster min size %d exceeds max size %d", ErrInvalidParameter, p.MinSize, p.MaxSize)
	}
	return nil
}

// ExtractClusters groups points into connected components of the
// "within radius" relation and returns those whose size lies in
// [minSize, maxSize], ordered by the input position of each component's seed.
func ExtractClusters(points PointSet, radius float64, minSize, maxSize int) ([]Cluster, error) {
	params := ClusterParams{Radius: radius, MinSize: minSize, MaxSize: maxSize}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if len(points) == 0 {
		return []Cluster{}, nil
	}

	index := BuildIndex(points)
	r2 := radius * radius
	visited := make([]bool, len(points))
	clusters := make([]Cluster, 0)
	var tooSmall, tooLarge int

	queue := make([]int, 0, 64)
	for seed := range points {
		if visited[seed] {
			continue
		}

		// Breadth-first expansion; the queue doubles as the member list.
		visited[seed] = true
		queue = append(queue[:0], seed)
		for j := 0; j < len(queue); j++ {
			p := points[queue[j]]
			for _, nb := range index.query([3]float64{p.X, p.Y, p.Z}, r2) {
				if !visited[nb] {
					visited[nb] = true
					queue = append(queue, nb)
				}
			}
		}

		switch {
		case len(queue) < minSize:
			tooSmall++
			continue
		case len(queue) > maxSize:
			tooLarge++
			continue
		}

		members := make([]int, len(queue))
		copy(members, queue)
		sort.Ints(members)
		cluster := Cluster{Points: make(PointSet, len(members)), Indices: members}
		for i, idx := range members {
			cluster.Points[i] = points[idx]
		}
		clusters = append(clusters, cluster)
	}

	tracef("cluster: points=%d radius=%.3f kept=%d too_small=%d too_large=%d",
		len(points), radius, len(clusters), tooSmall, tooLarge)
	return clusters, nil
}
