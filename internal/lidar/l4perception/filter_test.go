package l4perception

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var wideRegion = NewRegion(-100, -100, -100, 100, 100, 100)

func TestVoxelGrid_Empty(t *testing.T) {
	result, err := VoxelGrid(nil, 0.1)
	require.NoError(t, err)
	assert.Empty(t, result)
}

func TestVoxelGrid_InvalidLeafSize(t *testing.T) {
	points := PointSet{{X: 1, Y: 2, Z: 3}}
	for _, leaf := range []float64{0, -0.5, math.NaN(), math.Inf(1)} {
		_, err := VoxelGrid(points, leaf)
		if !errors.Is(err, ErrInvalidParameter) {
			t.Errorf("leaf=%v: expected ErrInvalidParameter, got %v", leaf, err)
		}
	}
}

func TestVoxelGrid_SinglePoint(t *testing.T) {
	points := PointSet{{X: 1.0, Y: 2.0, Z: 3.0, Intensity: 100}}
	result, err := VoxelGrid(points, 1.0)
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, points[0], result[0])
}

func TestVoxelGrid_TwoPointsSameVoxelUsesCentroid(t *testing.T) {
	points := PointSet{
		{X: 0.1, Y: 0.1, Z: 0.1, Intensity: 50},
		{X: 0.2, Y: 0.3, Z: 0.4, Intensity: 60},
	}
	result, err := VoxelGrid(points, 1.0)
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.InDelta(t, 0.15, result[0].X, 1e-12)
	assert.InDelta(t, 0.2, result[0].Y, 1e-12)
	assert.InDelta(t, 0.25, result[0].Z, 1e-12)
	assert.InDelta(t, 55, result[0].Intensity, 1e-6)
}

func TestVoxelGrid_DistinctVoxels(t *testing.T) {
	points := PointSet{
		{X: 0.5, Y: 0.5, Z: 0.5},
		{X: 1.5, Y: 0.5, Z: 0.5},
		{X: 0.5, Y: 1.5, Z: 0.5},
	}
	result, err := VoxelGrid(points, 1.0)
	require.NoError(t, err)
	if diff := cmp.Diff(points, result); diff != "" {
		t.Errorf("distinct voxels should pass through in order (-want +got):\n%s", diff)
	}
}

func TestVoxelGrid_Reduction(t *testing.T) {
	points := make(PointSet, 100)
	for i := range points {
		points[i] = Point{X: float64(i%10) * 0.1, Y: float64(i/10) * 0.1, Z: 0.5}
	}

	// 0.5m voxels over a 1m x 1m patch: 2 x 2 cells in one Z layer.
	result, err := VoxelGrid(points, 0.5)
	require.NoError(t, err)
	assert.Len(t, result, 4)
}

func TestVoxelGrid_NegativeCoordinates(t *testing.T) {
	points := PointSet{
		{X: -0.5, Y: -0.5, Z: 0.0},
		{X: 0.5, Y: 0.5, Z: 0.0},
	}
	result, err := VoxelGrid(points, 1.0)
	require.NoError(t, err)
	assert.Len(t, result, 2, "points either side of the origin fall in different voxels")
}

func TestVoxelGrid_3DSeparation(t *testing.T) {
	points := PointSet{
		{X: 0.5, Y: 0.5, Z: 0.5},
		{X: 0.5, Y: 0.5, Z: 1.5},
	}
	result, err := VoxelGrid(points, 1.0)
	require.NoError(t, err)
	assert.Len(t, result, 2)
}

func TestVoxelGrid_OrderFollowsFirstSeen(t *testing.T) {
	points := PointSet{
		{X: 5.1, Y: 0, Z: 0},
		{X: 0.1, Y: 0, Z: 0},
		{X: 5.2, Y: 0, Z: 0},
	}
	result, err := VoxelGrid(points, 1.0)
	require.NoError(t, err)
	require.Len(t, result, 2)
	assert.InDelta(t, 5.15, result[0].X, 1e-12)
	assert.InDelta(t, 0.1, result[1].X, 1e-12)
}

func TestVoxelGrid_DoesNotMutateInput(t *testing.T) {
	points := blob(200, 0, 0, 0, 2, 7)
	before := points.Clone()
	_, err := VoxelGrid(points, 0.3)
	require.NoError(t, err)
	assert.Equal(t, before, points)
}

func TestFilter_EmptyInput(t *testing.T) {
	result, err := Filter(PointSet{}, 0.2, wideRegion, nil)
	require.NoError(t, err)
	assert.Empty(t, result)
}

func TestFilter_CropExcludesOutsidePoint(t *testing.T) {
	region := NewRegion(-5, -5, -5, 5, 5, 5)
	points := PointSet{
		{X: 10, Y: 0, Z: 0},
		{X: 1, Y: 1, Z: 1},
	}
	result, err := Filter(points, 0.1, region, nil)
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, Point{X: 1, Y: 1, Z: 1}, result[0])
}

func TestFilter_CropBoundsAreInclusive(t *testing.T) {
	region := NewRegion(-5, -5, -5, 5, 5, 5)
	points := PointSet{
		{X: 5, Y: -5, Z: 0},
		{X: 5.01, Y: 0, Z: 0},
	}
	result, err := Filter(points, 0.001, region, nil)
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, 5.0, result[0].X)
}

func TestFilter_EgoExclusion(t *testing.T) {
	ego := NewRegion(-1.5, -1.7, -1, 2.6, 1.7, -0.4)
	points := PointSet{
		{X: 0, Y: 0, Z: -0.5},  // roof return
		{X: 8, Y: 1, Z: -0.5},  // car ahead
		{X: 0, Y: 0, Z: -1.7},  // road under the car, below the footprint
		{X: 2.6, Y: 0, Z: -1},  // footprint corner, inclusive
		{X: -30, Y: 0, Z: 0.0}, // outside crop
	}
	result, err := Filter(points, 0.01, NewRegion(-20, -6, -2, 20, 7, 2), &ego)
	require.NoError(t, err)
	want := PointSet{
		{X: 8, Y: 1, Z: -0.5},
		{X: 0, Y: 0, Z: -1.7},
	}
	if diff := cmp.Diff(want, result); diff != "" {
		t.Errorf("unexpected filter output (-want +got):\n%s", diff)
	}
}

func TestFilter_InvalidParameters(t *testing.T) {
	points := PointSet{{X: 1}}
	inverted := NewRegion(1, 0, 0, 0, 1, 1)

	tests := []struct {
		name    string
		voxel   float64
		region  Region
		exclude *Region
	}{
		{"zero voxel", 0, wideRegion, nil},
		{"negative voxel", -1, wideRegion, nil},
		{"inverted crop", 0.1, inverted, nil},
		{"inverted exclusion", 0.1, wideRegion, &inverted},
		{"nan bound", 0.1, NewRegion(math.NaN(), 0, 0, 1, 1, 1), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Filter(points, tt.voxel, tt.region, tt.exclude)
			assert.ErrorIs(t, err, ErrInvalidParameter)
		})
	}
}

func TestFilter_IsFixedPoint(t *testing.T) {
	ego := NewRegion(-1, -1, -1, 1, 1, 1)
	region := NewRegion(-4, -4, -4, 4, 4, 4)
	points := append(blob(3000, 0, 0, 0, 10, 11), flatGround(60, 0.15, -1.5)...)

	once, err := Filter(points, 0.25, region, &ego)
	require.NoError(t, err)
	require.NotEmpty(t, once)

	twice, err := Filter(once, 0.25, region, &ego)
	require.NoError(t, err)
	if diff := cmp.Diff(once, twice); diff != "" {
		t.Errorf("second filter pass changed the set (-first +second):\n%s", diff)
	}
}

func TestRegion_Contains(t *testing.T) {
	r := NewRegion(0, 0, 0, 1, 1, 1)
	assert.True(t, r.Contains(Point{X: 0, Y: 0, Z: 0}))
	assert.True(t, r.Contains(Point{X: 1, Y: 1, Z: 1}))
	assert.False(t, r.Contains(Point{X: 1.0001, Y: 0.5, Z: 0.5}))
	assert.False(t, r.Contains(Point{X: 0.5, Y: -0.0001, Z: 0.5}))
}
