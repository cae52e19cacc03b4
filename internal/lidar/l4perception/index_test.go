package l4perception

import (
	"math/rand"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpatialIndex_MatchesBruteForce(t *testing.T) {
	points := append(blob(2000, 0, 0, 0, 8, 21), flatGround(30, 0.3, -2)...)
	index := BuildIndex(points)
	require.Equal(t, len(points), index.Len())

	rng := rand.New(rand.NewSource(4))
	for q := 0; q < 200; q++ {
		var query Point
		if q%2 == 0 {
			query = points[rng.Intn(len(points))]
		} else {
			query = Point{X: rng.Float64()*10 - 5, Y: rng.Float64()*10 - 5, Z: rng.Float64()*6 - 3}
		}
		radius := 0.05 + rng.Float64()*1.5

		got, err := index.NeighborsWithinRadius(query, radius)
		require.NoError(t, err)
		want := bruteForceNeighbours(points, query, radius)
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("query %d (r=%.3f) mismatch (-brute +index):\n%s", q, radius, diff)
		}
	}
}

func TestSpatialIndex_BoundaryIsInclusive(t *testing.T) {
	points := PointSet{{X: 0}, {X: 1}, {X: 2}, {X: 0, Y: 1.0000001}}
	index := BuildIndex(points)

	got, err := index.NeighborsWithinRadius(Point{}, 1)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, got)
}

func TestSpatialIndex_IncludesQueryPointAndDuplicates(t *testing.T) {
	points := PointSet{{X: 3, Y: 3, Z: 3}, {X: 3, Y: 3, Z: 3}, {X: 9}}
	index := BuildIndex(points)

	got, err := index.NeighborsWithinRadius(points[0], 0.01)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, got)
}

func TestSpatialIndex_IgnoresIntensity(t *testing.T) {
	points := PointSet{{X: 1, Intensity: 0}, {X: 1, Intensity: 255}}
	index := BuildIndex(points)

	got, err := index.NeighborsWithinRadius(Point{X: 1, Intensity: 17}, 0.001)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, got)
}

func TestSpatialIndex_Empty(t *testing.T) {
	index := BuildIndex(nil)
	got, err := index.NeighborsWithinRadius(Point{}, 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSpatialIndex_InvalidRadius(t *testing.T) {
	index := BuildIndex(PointSet{{X: 1}})
	for _, r := range []float64{0, -1} {
		_, err := index.NeighborsWithinRadius(Point{}, r)
		assert.ErrorIs(t, err, ErrInvalidParameter)
	}
}

func TestSpatialIndex_DoesNotReorderInput(t *testing.T) {
	points := blob(500, 0, 0, 0, 4, 8)
	before := points.Clone()
	BuildIndex(points)
	assert.Equal(t, before, points)
}

func TestSpatialIndex_ConcurrentQueries(t *testing.T) {
	points := blob(3000, 0, 0, 0, 10, 2)
	index := BuildIndex(points)

	var wg sync.WaitGroup
	errs := make(chan string, 8)
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			for q := 0; q < 50; q++ {
				query := points[rng.Intn(len(points))]
				got, err := index.NeighborsWithinRadius(query, 0.8)
				if err != nil || !cmp.Equal(got, bruteForceNeighbours(points, query, 0.8)) {
					errs <- "concurrent query mismatch"
					return
				}
			}
		}(int64(w))
	}
	wg.Wait()
	close(errs)
	for msg := range errs {
		t.Error(msg)
	}
}
